// Package forwarder implements the delegated request relay: EIP-712
// verification of signed ForwardRequests, the per-account nonce registry, and
// dispatch to registered targets with the original signer's identity preserved.
package forwarder

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/BuFi007/autopay-go"
)

// DomainName and DomainVersion are the EIP-712 domain parameters every
// conforming forwarder signs and verifies under.
const (
	DomainName    = "TrustedForwarder"
	DomainVersion = "1"
)

// Domain is the EIP-712 domain descriptor a forwarder verifies requests
// against. Two forwarders with different domains never accept each other's
// signatures.
type Domain struct {
	// Name is the protocol name, normally DomainName.
	Name string

	// Version is the protocol version, normally DomainVersion.
	Version string

	// ChainID identifies the network the forwarder serves.
	ChainID *big.Int

	// VerifyingContract is the forwarder's own identity address.
	VerifyingContract common.Address
}

// NewDomain creates a Domain with the standard name and version.
func NewDomain(chainID *big.Int, verifyingContract common.Address) Domain {
	return Domain{
		Name:              DomainName,
		Version:           DomainVersion,
		ChainID:           chainID,
		VerifyingContract: verifyingContract,
	}
}

// typedData builds the canonical EIP-712 structure for a forward request.
// Field encoding is type-tagged per EIP-712, so two semantically different
// requests never hash identically.
func typedData(d Domain, req *autopay.ForwardRequest) apitypes.TypedData {
	value := req.Value
	if value == nil {
		value = new(big.Int)
	}
	gas := req.Gas
	if gas == nil {
		gas = new(big.Int)
	}

	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": []apitypes.Type{
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"ForwardRequest": []apitypes.Type{
				{Name: "from", Type: "address"},
				{Name: "to", Type: "address"},
				{Name: "value", Type: "uint256"},
				{Name: "gas", Type: "uint256"},
				{Name: "nonce", Type: "uint256"},
				{Name: "data", Type: "bytes"},
			},
		},
		PrimaryType: "ForwardRequest",
		Domain: apitypes.TypedDataDomain{
			Name:              d.Name,
			Version:           d.Version,
			ChainId:           (*math.HexOrDecimal256)(d.ChainID),
			VerifyingContract: d.VerifyingContract.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"from":  req.From.Hex(),
			"to":    req.To.Hex(),
			"value": (*math.HexOrDecimal256)(value),
			"gas":   (*math.HexOrDecimal256)(gas),
			"nonce": (*math.HexOrDecimal256)(new(big.Int).SetUint64(req.Nonce)),
			"data":  hexutil.Encode(req.Data),
		},
	}
}

// Digest computes the EIP-712 signing digest
// keccak256("\x19\x01" || domainSeparator || structHash) for the request.
func Digest(d Domain, req *autopay.ForwardRequest) ([]byte, error) {
	td := typedData(d, req)

	domainSeparator, err := td.HashStruct("EIP712Domain", td.Domain.Map())
	if err != nil {
		return nil, autopay.NewError(autopay.ErrCodeInvalidRequest, "failed to hash domain", err)
	}

	structHash, err := td.HashStruct("ForwardRequest", td.Message)
	if err != nil {
		return nil, autopay.NewError(autopay.ErrCodeInvalidRequest, "failed to hash request", err)
	}

	raw := append([]byte{0x19, 0x01}, append(domainSeparator, structHash...)...)
	return crypto.Keccak256(raw), nil
}

// RecoverSigner recovers the account that signed the request under the given
// domain. It returns ErrInvalidSignature if the signature is malformed,
// recovery fails, or recovery yields the zero address.
func RecoverSigner(d Domain, req *autopay.ForwardRequest, signature []byte) (common.Address, error) {
	if len(signature) != crypto.SignatureLength {
		return common.Address{}, autopay.NewError(autopay.ErrCodeInvalidSignature,
			"signature must be 65 bytes", autopay.ErrInvalidSignature)
	}

	digest, err := Digest(d, req)
	if err != nil {
		return common.Address{}, err
	}

	// Normalize v from the Ethereum convention (27/28) to recovery id (0/1).
	sig := make([]byte, crypto.SignatureLength)
	copy(sig, signature)
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return common.Address{}, autopay.NewError(autopay.ErrCodeInvalidSignature,
			"signature recovery failed", autopay.ErrInvalidSignature)
	}

	signer := crypto.PubkeyToAddress(*pub)
	if signer == (common.Address{}) {
		return common.Address{}, autopay.NewError(autopay.ErrCodeInvalidSignature,
			"recovered zero address", autopay.ErrInvalidSignature)
	}
	return signer, nil
}

// Verify recovers the signer and checks it matches the request's From field.
func Verify(d Domain, req *autopay.ForwardRequest, signature []byte) (common.Address, error) {
	signer, err := RecoverSigner(d, req, signature)
	if err != nil {
		return common.Address{}, err
	}
	if signer != req.From {
		return common.Address{}, autopay.NewError(autopay.ErrCodeInvalidSignature,
			"signer does not match request sender", autopay.ErrInvalidSignature).
			WithDetails("recovered", signer.Hex()).
			WithDetails("from", req.From.Hex())
	}
	return signer, nil
}
