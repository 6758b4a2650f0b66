// Package signer builds and signs forward requests on behalf of an account.
// Keys can come from raw hex, an encrypted keystore file, or a BIP39 mnemonic.
package signer

import (
	"crypto/ecdsa"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/BuFi007/autopay-go"
	"github.com/BuFi007/autopay-go/forwarder"
)

// Signer holds a private key and the forwarder domain it signs requests for.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
	domain     forwarder.Domain
}

// Option configures a Signer.
type Option func(*Signer) error

// New creates a signer with the given options. A key source and a domain
// (either WithDomain or WithForwarder) are required.
func New(opts ...Option) (*Signer, error) {
	s := &Signer{}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	if s.privateKey == nil {
		return nil, autopay.ErrInvalidKey
	}
	if s.domain.ChainID == nil {
		return nil, autopay.NewError(autopay.ErrCodeInvalidRequest,
			"signer domain is not configured", autopay.ErrInvalidRequest)
	}

	s.address = crypto.PubkeyToAddress(s.privateKey.PublicKey)
	return s, nil
}

// WithPrivateKey sets the private key from a hex string.
func WithPrivateKey(hexKey string) Option {
	return func(s *Signer) error {
		hexKey = strings.TrimPrefix(hexKey, "0x")

		privateKey, err := crypto.HexToECDSA(hexKey)
		if err != nil {
			return autopay.ErrInvalidKey
		}

		s.privateKey = privateKey
		return nil
	}
}

// WithECDSAKey sets an already-parsed private key.
func WithECDSAKey(key *ecdsa.PrivateKey) Option {
	return func(s *Signer) error {
		if key == nil {
			return autopay.ErrInvalidKey
		}
		s.privateKey = key
		return nil
	}
}

// WithDomain sets the full EIP-712 domain to sign under.
func WithDomain(domain forwarder.Domain) Option {
	return func(s *Signer) error {
		s.domain = domain
		return nil
	}
}

// WithForwarder sets the standard domain for a forwarder identity on the
// given chain.
func WithForwarder(chainID *big.Int, forwarderAddr common.Address) Option {
	return func(s *Signer) error {
		s.domain = forwarder.NewDomain(chainID, forwarderAddr)
		return nil
	}
}

// Address returns the account the signer signs as.
func (s *Signer) Address() common.Address {
	return s.address
}

// Domain returns the EIP-712 domain the signer signs under.
func (s *Signer) Domain() forwarder.Domain {
	return s.domain
}

// NewRequest builds a forward request from this signer's account to the
// target, carrying the given call data under the given nonce.
func (s *Signer) NewRequest(to common.Address, nonce uint64, data []byte) *autopay.ForwardRequest {
	return &autopay.ForwardRequest{
		From:  s.address,
		To:    to,
		Value: new(big.Int),
		Gas:   new(big.Int),
		Nonce: nonce,
		Data:  data,
	}
}

// Sign produces a 65-byte [R || S || V] signature over the request's EIP-712
// digest, with V in the Ethereum 27/28 convention.
func (s *Signer) Sign(req *autopay.ForwardRequest) ([]byte, error) {
	digest, err := forwarder.Digest(s.domain, req)
	if err != nil {
		return nil, err
	}

	signature, err := crypto.Sign(digest, s.privateKey)
	if err != nil {
		return nil, autopay.NewError(autopay.ErrCodeInvalidSignature,
			"signing failed", err)
	}

	signature[crypto.RecoveryIDOffset] += 27
	return signature, nil
}
