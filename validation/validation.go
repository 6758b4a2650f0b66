// Package validation checks wire-level inputs before they reach the
// forwarder or the payments engine. The engine re-checks its own invariants;
// these helpers exist so the HTTP surface can reject garbage early with a
// useful message.
package validation

import (
	"fmt"
	"math/big"
	"regexp"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/BuFi007/autopay-go"
	"github.com/BuFi007/autopay-go/encoding"
)

// evmAddressRegex matches Ethereum-style addresses (0x followed by 40 hex chars)
var evmAddressRegex = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

// ValidateAmount validates that an amount string is a valid positive integer.
// Returns an error if the amount is empty, malformed, or not greater than zero.
func ValidateAmount(amount string) error {
	if amount == "" {
		return fmt.Errorf("%w: amount cannot be empty", autopay.ErrInvalidAmount)
	}

	amt, ok := new(big.Int).SetString(amount, 10)
	if !ok {
		return fmt.Errorf("%w: invalid amount format: %s", autopay.ErrInvalidAmount, amount)
	}

	if amt.Sign() <= 0 {
		return fmt.Errorf("%w: amount must be greater than 0, got: %s", autopay.ErrInvalidAmount, amount)
	}

	return nil
}

// ValidateAddress validates an Ethereum-style hex address string.
func ValidateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("%w: address cannot be empty", autopay.ErrInvalidRequest)
	}
	if !evmAddressRegex.MatchString(address) {
		return fmt.Errorf("%w: invalid address format: %s (expected 0x followed by 40 hex characters)",
			autopay.ErrInvalidRequest, address)
	}
	return nil
}

// ParseAddress validates and parses an address string.
func ParseAddress(address string) (common.Address, error) {
	if err := ValidateAddress(address); err != nil {
		return common.Address{}, err
	}
	return common.HexToAddress(address), nil
}

// ValidateSignedRequest checks the structural fields of a signed forward
// request: a non-zero sender, a 65-byte signature, and parseable amounts.
// Signature recovery itself is the forwarder's job.
func ValidateSignedRequest(w encoding.SignedRequestJSON) error {
	if w.Request.From == (common.Address{}) {
		return fmt.Errorf("%w: from cannot be the zero address", autopay.ErrInvalidRequest)
	}
	if w.Request.To == (common.Address{}) {
		return fmt.Errorf("%w: to cannot be the zero address", autopay.ErrInvalidRequest)
	}
	if len(w.Signature) != crypto.SignatureLength {
		return fmt.Errorf("%w: signature must be %d bytes, got %d",
			autopay.ErrInvalidSignature, crypto.SignatureLength, len(w.Signature))
	}
	if _, err := encoding.ParseAmount(w.Request.Value); err != nil {
		return fmt.Errorf("%w: malformed value %q", autopay.ErrInvalidRequest, w.Request.Value)
	}
	if _, err := encoding.ParseAmount(w.Request.Gas); err != nil {
		return fmt.Errorf("%w: malformed gas %q", autopay.ErrInvalidRequest, w.Request.Gas)
	}
	return nil
}

// ValidateAuthorizeParams checks authorize parameters before dispatch.
func ValidateAuthorizeParams(p encoding.AuthorizeParams) error {
	if p.Payee == (common.Address{}) {
		return fmt.Errorf("%w: payee cannot be the zero address", autopay.ErrInvalidRecipient)
	}
	if err := ValidateAmount(p.Amount); err != nil {
		return err
	}
	if p.ValidUntil <= 0 {
		return fmt.Errorf("%w: validUntil must be a positive unix timestamp", autopay.ErrInvalidRequest)
	}
	return nil
}
