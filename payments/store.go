// Package payments implements the recurring payment authorization store and
// the execution engine. The store exclusively owns agreement records; the
// engine holds no state of its own and mutates agreements only through the
// store's atomic read-modify-write.
package payments

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/BuFi007/autopay-go"
	"github.com/BuFi007/autopay-go/storage"
)

const agreementPrefix = "agreement/"

// Store maps (payer, payee) pairs to payment agreements. Every public
// operation is an atomic unit: it either commits all of its effects or none.
type Store struct {
	mu      sync.Mutex
	db      storage.Database
	emitter autopay.Emitter
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithStoreEmitter sets the event sink for authorization and cancellation events.
func WithStoreEmitter(emitter autopay.Emitter) StoreOption {
	return func(s *Store) { s.emitter = emitter }
}

// NewStore creates a store persisting agreements in db.
func NewStore(db storage.Database, opts ...StoreOption) *Store {
	s := &Store{db: db, emitter: autopay.NopEmitter{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func agreementKey(payer, payee common.Address) []byte {
	return []byte(agreementPrefix + payer.Hex() + "/" + payee.Hex())
}

// load reads the agreement for a pair; (nil, nil) when absent. Callers hold s.mu.
func (s *Store) load(payer, payee common.Address) (*autopay.PaymentAgreement, error) {
	raw, err := s.db.Get(agreementKey(payer, payee))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var agreement autopay.PaymentAgreement
	if err := json.Unmarshal(raw, &agreement); err != nil {
		return nil, fmt.Errorf("corrupt agreement record for (%s, %s): %w", payer.Hex(), payee.Hex(), err)
	}
	return &agreement, nil
}

// put writes the agreement record. Callers hold s.mu.
func (s *Store) put(agreement *autopay.PaymentAgreement) error {
	raw, err := json.Marshal(agreement)
	if err != nil {
		return err
	}
	return s.db.Put(agreementKey(agreement.Payer, agreement.Payee), raw)
}

// Authorize creates or overwrites the agreement for (payer, payee). The prior
// record, if any, is replaced wholesale: lastExecuted resets to 0 and the
// agreement becomes active again even from a cancelled or expired state.
// A validUntil in the past is accepted and simply yields an agreement that is
// never eligible.
func (s *Store) Authorize(payer, payee common.Address, amount *big.Int, frequency uint64, validUntil int64, tokenRef common.Address) (*autopay.PaymentAgreement, error) {
	if payee == (common.Address{}) {
		return nil, autopay.NewError(autopay.ErrCodeInvalidRecipient, "payee is the zero address", autopay.ErrInvalidRecipient)
	}
	if payee == payer {
		return nil, autopay.NewError(autopay.ErrCodeInvalidRecipient, "payee equals payer", autopay.ErrInvalidRecipient)
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, autopay.NewError(autopay.ErrCodeInvalidAmount, "amount must be greater than 0", autopay.ErrInvalidAmount)
	}

	agreement := &autopay.PaymentAgreement{
		Payer:        payer,
		Payee:        payee,
		Amount:       new(big.Int).Set(amount),
		Frequency:    frequency,
		ValidUntil:   validUntil,
		Token:        tokenRef,
		LastExecuted: 0,
		IsActive:     true,
	}

	s.mu.Lock()
	err := s.put(agreement)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	s.emitter.Emit(autopay.PaymentAuthorized{
		Payer:      payer,
		Payee:      payee,
		Amount:     new(big.Int).Set(amount),
		Frequency:  frequency,
		ValidUntil: validUntil,
		Token:      tokenRef,
	})
	return agreement.Clone(), nil
}

// Cancel deactivates the (payer, payee) agreement. Cancelling a missing or
// already-inactive agreement fails with ErrNotAuthorized, so callers get a
// reliable signal instead of a silent no-op.
func (s *Store) Cancel(payer, payee common.Address) error {
	err := s.update(payer, payee, func(agreement *autopay.PaymentAgreement) error {
		if agreement == nil || !agreement.IsActive {
			return autopay.NewError(autopay.ErrCodeNotAuthorized, "no active agreement to cancel", autopay.ErrNotAuthorized).
				WithDetails("payer", payer.Hex()).
				WithDetails("payee", payee.Hex())
		}
		agreement.IsActive = false
		return nil
	})
	if err != nil {
		return err
	}

	s.emitter.Emit(autopay.PaymentCancelled{Payer: payer, Payee: payee})
	return nil
}

// Get returns a copy of the agreement for the pair; ok reports whether a
// record exists at all (active or not).
func (s *Store) Get(payer, payee common.Address) (*autopay.PaymentAgreement, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	agreement, err := s.load(payer, payee)
	if err != nil {
		return nil, false, err
	}
	if agreement == nil {
		return nil, false, nil
	}
	return agreement, true, nil
}

// update runs fn on the current agreement (nil when absent) and commits the
// mutation only when fn succeeds. The read, the check, and the write form one
// indivisible step: concurrent updates to the same pair serialize here.
func (s *Store) update(payer, payee common.Address, fn func(*autopay.PaymentAgreement) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	agreement, err := s.load(payer, payee)
	if err != nil {
		return err
	}
	if err := fn(agreement); err != nil {
		return err
	}
	if agreement == nil {
		return nil
	}
	return s.put(agreement)
}

// settle is update with an external side effect ordered after the durable
// write: fn mutates the record, put commits it, and only then does effect run.
// A failing write leaves the effect unrun; a failing effect restores the prior
// record. The side effect can therefore never outrun a write that did not
// stick.
func (s *Store) settle(payer, payee common.Address, fn, effect func(*autopay.PaymentAgreement) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prior, err := s.load(payer, payee)
	if err != nil {
		return err
	}
	var agreement *autopay.PaymentAgreement
	if prior != nil {
		agreement = prior.Clone()
	}
	if err := fn(agreement); err != nil {
		return err
	}
	if agreement == nil {
		return nil
	}
	if err := s.put(agreement); err != nil {
		return err
	}
	if err := effect(agreement); err != nil {
		if restoreErr := s.put(prior); restoreErr != nil {
			return errors.Join(err, fmt.Errorf("restoring prior agreement record: %w", restoreErr))
		}
		return err
	}
	return nil
}
