// Package bridge implements the cross-domain token bridge: a deposit/withdraw
// pass-through between an L1 ledger and its bridged L2 representation. It
// carries no recurring-payment logic; the payments engine only ever sees the
// resulting token balances.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/BuFi007/autopay-go"
	"github.com/BuFi007/autopay-go/token"
)

// Bridge failure modes.
var (
	ErrTokenNotSupported = errors.New("bridge: token not supported")
	ErrNotOwner          = errors.New("bridge: caller is not the owner")
	ErrNotMessenger      = errors.New("bridge: caller is not the cross-domain messenger")
)

// Pair binds an L1 token to its bridged L2 representation.
type Pair struct {
	L1 *token.Token
	L2 *token.Token
}

// Bridge escrows supported L1 tokens on deposit and mints the L2
// representation; withdrawals finalize only on the authorized messenger's
// word and release escrowed funds.
type Bridge struct {
	owner     common.Address
	messenger common.Address
	escrow    common.Address
	logger    *slog.Logger
	emitter   autopay.Emitter

	mu        sync.RWMutex
	supported map[common.Address]Pair
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the structured logger. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) { b.logger = logger }
}

// WithEmitter sets the event sink for deposit and withdrawal events.
func WithEmitter(emitter autopay.Emitter) Option {
	return func(b *Bridge) { b.emitter = emitter }
}

// New creates a bridge. owner gates the token allowlist, messenger gates
// withdrawal finalization, and escrow is the bridge's own account on the L1
// ledgers.
func New(owner, messenger, escrow common.Address, opts ...Option) *Bridge {
	b := &Bridge{
		owner:     owner,
		messenger: messenger,
		escrow:    escrow,
		logger:    slog.Default(),
		emitter:   autopay.NopEmitter{},
		supported: make(map[common.Address]Pair),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Escrow returns the bridge's escrow account.
func (b *Bridge) Escrow() common.Address { return b.escrow }

// AddSupportedToken allowlists an L1 token and its L2 counterpart.
// Only the owner may call it.
func (b *Bridge) AddSupportedToken(caller common.Address, pair Pair) error {
	if caller != b.owner {
		return ErrNotOwner
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.supported[pair.L1.Address()] = pair
	return nil
}

// IsSupported reports whether an L1 token is allowlisted.
func (b *Bridge) IsSupported(l1Token common.Address) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.supported[l1Token]
	return ok
}

func (b *Bridge) pair(l1Token common.Address) (Pair, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	pair, ok := b.supported[l1Token]
	if !ok {
		return Pair{}, fmt.Errorf("%w: %s", ErrTokenNotSupported, l1Token.Hex())
	}
	return pair, nil
}

// DepositToL2 escrows amount of the caller's L1 tokens (bounded by their
// allowance grant to the escrow account) and mints the same amount of the L2
// representation to the caller.
func (b *Bridge) DepositToL2(ctx context.Context, caller, l1Token common.Address, amount *big.Int) error {
	pair, err := b.pair(l1Token)
	if err != nil {
		return err
	}

	if err := pair.L1.TransferFrom(ctx, caller, b.escrow, b.escrow, amount); err != nil {
		return fmt.Errorf("bridge: escrow transfer failed: %w", err)
	}
	if err := pair.L2.Mint(b.escrow, caller, amount); err != nil {
		// The L2 token must name the escrow account as its minter; failing
		// here means the pair is miswired. Return the escrowed funds so the
		// deposit stays all-or-nothing.
		if refundErr := pair.L1.Transfer(b.escrow, caller, amount); refundErr != nil {
			return fmt.Errorf("bridge: l2 mint failed: %w (refund failed: %w)", err, refundErr)
		}
		return fmt.Errorf("bridge: l2 mint failed: %w", err)
	}

	b.logger.Info("deposit initiated",
		"token", l1Token.Hex(), "from", caller.Hex(), "amount", amount.String())
	b.emitter.Emit(DepositInitiated{Token: l1Token, From: caller, Amount: new(big.Int).Set(amount)})
	return nil
}

// FinalizeWithdrawal releases escrowed L1 tokens to the recipient. Only the
// cross-domain messenger may call it; the burn on the L2 side already
// happened under the messenger's protocol.
func (b *Bridge) FinalizeWithdrawal(ctx context.Context, caller, recipient, l1Token common.Address, amount *big.Int) error {
	if caller != b.messenger {
		return ErrNotMessenger
	}
	pair, err := b.pair(l1Token)
	if err != nil {
		return err
	}

	if err := pair.L1.Transfer(b.escrow, recipient, amount); err != nil {
		return fmt.Errorf("bridge: escrow release failed: %w", err)
	}

	b.logger.Info("withdrawal finalized",
		"token", l1Token.Hex(), "to", recipient.Hex(), "amount", amount.String())
	b.emitter.Emit(WithdrawalFinalized{Token: l1Token, To: recipient, Amount: new(big.Int).Set(amount)})
	return nil
}
