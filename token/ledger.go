// Package token defines the asset ledger contract the payment engine consumes
// and provides an in-memory allowance-bounded ledger for tests, examples, and
// the bridge. The engine only ever moves funds through TransferFrom, bounded
// by a prior allowance grant from the payer.
package token

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/BuFi007/autopay-go"
)

// Ledger is the external value-transfer primitive: debit owner, credit
// recipient, bounded by owner's allowance to spender. Balance and allowance
// reads are auxiliary; only a transfer attempt is authoritative.
type Ledger interface {
	// TransferFrom moves amount from owner to recipient on spender's
	// authority, consuming allowance. It fails without partial effect when
	// balance or allowance is insufficient.
	TransferFrom(ctx context.Context, owner, spender, recipient common.Address, amount *big.Int) error

	// BalanceOf returns owner's current balance.
	BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error)

	// Allowance returns the remaining amount spender may pull from owner.
	Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error)
}

// Registry resolves token references to their ledgers. Agreements denominate
// amounts in a token address; the engine looks the ledger up per execution.
type Registry struct {
	mu      sync.RWMutex
	ledgers map[common.Address]Ledger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{ledgers: make(map[common.Address]Ledger)}
}

// Register binds a token address to its ledger, replacing any prior binding.
func (r *Registry) Register(token common.Address, ledger Ledger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ledgers[token] = ledger
}

// Resolve returns the ledger for a token address.
func (r *Registry) Resolve(token common.Address) (Ledger, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ledger, ok := r.ledgers[token]
	if !ok {
		return nil, autopay.NewError(autopay.ErrCodeTransferFailed, "no ledger registered", autopay.ErrUnknownToken).
			WithDetails("token", token.Hex())
	}
	return ledger, nil
}
