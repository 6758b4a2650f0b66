// Package autopay defines the core types for delegated request forwarding and
// recurring payment authorizations. A payer pre-authorizes a payee to pull a
// fixed amount on a cadence, and any party may trigger a due payment. Requests
// may also be submitted by a third-party relay carrying an EIP-712 signature
// that proves the original signer's intent; downstream logic then observes the
// signer, not the relay, as the caller.
//
// The concrete components live in subpackages: forwarder (signature
// verification, nonce registry, relay), payments (authorization store and
// execution engine), token (the asset ledger contract), signer (client-side
// request signing), storage (the key-value backends), and http (the service
// surface).
package autopay

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ForwardRequest is a client-constructed request to be executed on behalf of
// From by the trusted forwarder. It is ephemeral: clients sign it, the relay
// verifies and dispatches it, and nothing of it is persisted beyond the nonce.
type ForwardRequest struct {
	// From is the account whose signature authorizes the request and whose
	// identity the downstream target observes as the caller.
	From common.Address

	// To is the target the forwarder dispatches the request to.
	To common.Address

	// Value is the native value attached to the call, in atomic units.
	Value *big.Int

	// Gas is the gas limit forwarded with the call.
	Gas *big.Int

	// Nonce must equal the signer's current registry counter at verification time.
	Nonce uint64

	// Data is the opaque call payload delivered to the target.
	Data []byte
}

// PaymentAgreement is a stored recurring-payment authorization, keyed by
// (Payer, Payee). At most one agreement exists per pair; re-authorizing
// overwrites the prior record.
type PaymentAgreement struct {
	// Payer is the account funds are pulled from.
	Payer common.Address `json:"payer"`

	// Payee is the account funds are paid to.
	Payee common.Address `json:"payee"`

	// Amount is the amount transferred per execution, in atomic units. Always > 0.
	Amount *big.Int `json:"amount"`

	// Frequency is the minimum interval between executions, in seconds.
	Frequency uint64 `json:"frequency"`

	// ValidUntil is the unix timestamp after which the agreement is permanently
	// ineligible. The record persists past expiry; it is never auto-deleted.
	ValidUntil int64 `json:"validUntil"`

	// Token references the asset ledger the amount is denominated in.
	Token common.Address `json:"token"`

	// LastExecuted is the unix timestamp of the most recent execution,
	// zero until the first one.
	LastExecuted int64 `json:"lastExecuted"`

	// IsActive gates execution and cancellation. Cancellation clears it;
	// re-authorization sets it again.
	IsActive bool `json:"isActive"`
}

// Clone returns a deep copy of the agreement.
func (a *PaymentAgreement) Clone() *PaymentAgreement {
	if a == nil {
		return nil
	}
	cp := *a
	if a.Amount != nil {
		cp.Amount = new(big.Int).Set(a.Amount)
	}
	return &cp
}
