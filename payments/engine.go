package payments

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/BuFi007/autopay-go"
	"github.com/BuFi007/autopay-go/token"
)

// Engine executes due payments against the asset ledger. It is callable by
// any account: the only authorization is the pre-existing agreement, never
// the caller's identity. The engine owns no state; it reads and mutates
// agreements through the store within a single atomic step per execution.
type Engine struct {
	store   *Store
	ledgers *token.Registry
	spender common.Address
	emitter autopay.Emitter
	now     func() time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithEngineEmitter sets the event sink for execution events.
func WithEngineEmitter(emitter autopay.Emitter) EngineOption {
	return func(e *Engine) { e.emitter = emitter }
}

// WithClock overrides the time source. Tests use this for deterministic cadence.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an engine. spender is the engine's own identity on the
// ledgers: payers grant it allowances, and transfers run on its authority.
func NewEngine(store *Store, ledgers *token.Registry, spender common.Address, opts ...EngineOption) *Engine {
	e := &Engine{
		store:   store,
		ledgers: ledgers,
		spender: spender,
		emitter: autopay.NopEmitter{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Spender returns the engine's ledger identity.
func (e *Engine) Spender() common.Address { return e.spender }

// eligibility checks the three execution gates. Zero lastExecuted means the
// agreement has never executed and the cadence gate does not apply.
func eligibility(agreement *autopay.PaymentAgreement, now int64) error {
	if agreement == nil || !agreement.IsActive {
		return autopay.NewError(autopay.ErrCodeNotAuthorized, "payment not authorized", autopay.ErrNotAuthorized)
	}
	if agreement.LastExecuted != 0 && now < agreement.LastExecuted+int64(agreement.Frequency) {
		return autopay.NewError(autopay.ErrCodeTooSoon, "payment too soon", autopay.ErrTooSoon)
	}
	if now > agreement.ValidUntil {
		return autopay.NewError(autopay.ErrCodeExpired, "payment authorization expired", autopay.ErrExpired)
	}
	return nil
}

// ExecutePayment executes the (payer, payee) agreement: it verifies
// eligibility, advances lastExecuted, and instructs the ledger to move the
// amount from payer to payee bounded by the payer's allowance. The advanced
// record is persisted before the ledger moves, so a storage failure surfaces
// while funds are still untouched; a failed transfer restores the prior
// record. Either way the caller never observes a partial execution.
func (e *Engine) ExecutePayment(ctx context.Context, payer, payee common.Address) error {
	now := e.now().Unix()

	var (
		ledger   token.Ledger
		executed autopay.PaymentExecuted
	)
	err := e.store.settle(payer, payee,
		func(agreement *autopay.PaymentAgreement) error {
			if err := eligibility(agreement, now); err != nil {
				return err
			}
			var err error
			if ledger, err = e.ledgers.Resolve(agreement.Token); err != nil {
				return err
			}
			agreement.LastExecuted = now
			executed = autopay.PaymentExecuted{
				Payer:     payer,
				Payee:     payee,
				Amount:    new(big.Int).Set(agreement.Amount),
				Timestamp: now,
				Token:     agreement.Token,
			}
			return nil
		},
		func(agreement *autopay.PaymentAgreement) error {
			if err := ledger.TransferFrom(ctx, payer, e.spender, payee, agreement.Amount); err != nil {
				return autopay.NewError(autopay.ErrCodeTransferFailed, "token transfer failed",
					errors.Join(autopay.ErrTransferFailed, err))
			}
			return nil
		})
	if err != nil {
		return err
	}

	e.emitter.Emit(executed)
	return nil
}

// CanExecutePayment re-evaluates the eligibility gates (active, cadence,
// expiry) without touching the ledger. A true result does not guarantee the
// transfer will succeed: balance and allowance sufficiency is only known by
// attempting it.
func (e *Engine) CanExecutePayment(payer, payee common.Address) (bool, error) {
	agreement, ok, err := e.store.Get(payer, payee)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	return eligibility(agreement, e.now().Unix()) == nil, nil
}
