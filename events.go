package autopay

import (
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Event is an observable state change emitted for off-system indexers.
type Event interface {
	// EventName returns the stable event identifier.
	EventName() string

	// Attrs returns the event fields as structured logging attributes.
	Attrs() []slog.Attr
}

// PaymentAuthorized is emitted when an agreement is created or overwritten.
type PaymentAuthorized struct {
	Payer      common.Address
	Payee      common.Address
	Amount     *big.Int
	Frequency  uint64
	ValidUntil int64
	Token      common.Address
}

func (PaymentAuthorized) EventName() string { return "PaymentAuthorized" }

func (e PaymentAuthorized) Attrs() []slog.Attr {
	return []slog.Attr{
		slog.String("payer", e.Payer.Hex()),
		slog.String("payee", e.Payee.Hex()),
		slog.String("amount", e.Amount.String()),
		slog.Uint64("frequency", e.Frequency),
		slog.Int64("validUntil", e.ValidUntil),
		slog.String("token", e.Token.Hex()),
	}
}

// PaymentExecuted is emitted after a successful transfer for an agreement.
type PaymentExecuted struct {
	Payer     common.Address
	Payee     common.Address
	Amount    *big.Int
	Timestamp int64
	Token     common.Address
}

func (PaymentExecuted) EventName() string { return "PaymentExecuted" }

func (e PaymentExecuted) Attrs() []slog.Attr {
	return []slog.Attr{
		slog.String("payer", e.Payer.Hex()),
		slog.String("payee", e.Payee.Hex()),
		slog.String("amount", e.Amount.String()),
		slog.Int64("timestamp", e.Timestamp),
		slog.String("token", e.Token.Hex()),
	}
}

// PaymentCancelled is emitted when the payer deactivates an agreement.
type PaymentCancelled struct {
	Payer common.Address
	Payee common.Address
}

func (PaymentCancelled) EventName() string { return "PaymentCancelled" }

func (e PaymentCancelled) Attrs() []slog.Attr {
	return []slog.Attr{
		slog.String("payer", e.Payer.Hex()),
		slog.String("payee", e.Payee.Hex()),
	}
}

// Emitter receives events as they are committed. Implementations must not
// fail: event delivery never affects the outcome of the operation that
// produced the event.
type Emitter interface {
	Emit(event Event)
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(Event)

func (f EmitterFunc) Emit(event Event) { f(event) }

// NopEmitter discards all events. It is the default when no emitter is configured.
type NopEmitter struct{}

func (NopEmitter) Emit(Event) {}

// LogEmitter writes events to a structured logger.
type LogEmitter struct {
	Logger *slog.Logger
}

func (l LogEmitter) Emit(event Event) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	args := make([]any, 0, len(event.Attrs()))
	for _, attr := range event.Attrs() {
		args = append(args, attr)
	}
	logger.Info(event.EventName(), args...)
}
