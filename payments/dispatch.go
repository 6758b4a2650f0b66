package payments

import (
	"context"
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"

	"github.com/BuFi007/autopay-go"
	"github.com/BuFi007/autopay-go/encoding"
	"github.com/BuFi007/autopay-go/validation"
)

// Service exposes the store and engine as a forwarder target. Payloads are
// JSON dispatch envelopes; the effective caller comes from the resolver, so a
// request relayed for signer S lands exactly as if S had called directly.
type Service struct {
	resolver CallerResolver
	store    *Store
	engine   *Engine
}

// NewService creates a dispatchable payments service trusting the given
// forwarder identity for caller delegation.
func NewService(store *Store, engine *Engine, trustedForwarder common.Address) *Service {
	return &Service{
		resolver: NewCallerResolver(trustedForwarder),
		store:    store,
		engine:   engine,
	}
}

// Store returns the underlying authorization store.
func (s *Service) Store() *Store { return s.store }

// Engine returns the underlying execution engine.
func (s *Service) Engine() *Engine { return s.engine }

// Call implements forwarder.Target. It resolves the effective caller, decodes
// the dispatch envelope, and routes to the matching operation. The returned
// bytes are the JSON wire form of the operation's result.
func (s *Service) Call(ctx context.Context, caller common.Address, data []byte) ([]byte, error) {
	effective, payload := s.resolver.Resolve(caller, data)

	call, err := encoding.DecodeCall(payload)
	if err != nil {
		return nil, err
	}

	switch call.Method {
	case encoding.MethodAuthorizePayment:
		var params encoding.AuthorizeParams
		if err := json.Unmarshal(call.Params, &params); err != nil {
			return nil, autopay.NewError(autopay.ErrCodeInvalidRequest, "malformed authorize params", autopay.ErrInvalidRequest)
		}
		if err := validation.ValidateAuthorizeParams(params); err != nil {
			return nil, err
		}
		amount, err := encoding.ParseAmount(params.Amount)
		if err != nil {
			return nil, err
		}
		agreement, err := s.store.Authorize(effective, params.Payee, amount, params.Frequency, params.ValidUntil, params.Token)
		if err != nil {
			return nil, err
		}
		return json.Marshal(encoding.EncodeAgreement(agreement))

	case encoding.MethodCancelPayment:
		var params encoding.CancelParams
		if err := json.Unmarshal(call.Params, &params); err != nil {
			return nil, autopay.NewError(autopay.ErrCodeInvalidRequest, "malformed cancel params", autopay.ErrInvalidRequest)
		}
		if err := s.store.Cancel(effective, params.Payee); err != nil {
			return nil, err
		}
		return json.Marshal(map[string]bool{"cancelled": true})

	case encoding.MethodExecutePayment:
		var params encoding.ExecuteParams
		if err := json.Unmarshal(call.Params, &params); err != nil {
			return nil, autopay.NewError(autopay.ErrCodeInvalidRequest, "malformed execute params", autopay.ErrInvalidRequest)
		}
		if err := s.engine.ExecutePayment(ctx, params.Payer, params.Payee); err != nil {
			return nil, err
		}
		return json.Marshal(map[string]bool{"executed": true})

	default:
		return nil, autopay.NewError(autopay.ErrCodeInvalidRequest, "unknown method", autopay.ErrInvalidRequest).
			WithDetails("method", call.Method)
	}
}
