// Package http exposes the relay and payments API over HTTP. The API type
// holds the framework-independent operations; the chi router in this package
// and the gin adapter in http/gin are thin surfaces over it.
package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/BuFi007/autopay-go"
	"github.com/BuFi007/autopay-go/encoding"
	"github.com/BuFi007/autopay-go/forwarder"
	"github.com/BuFi007/autopay-go/payments"
	"github.com/BuFi007/autopay-go/validation"
)

// ErrNotFound indicates the requested resource does not exist.
var ErrNotFound = errors.New("autopay: not found")

// Config wires the API to the relay and payments components.
type Config struct {
	Forwarder *forwarder.Forwarder
	Engine    *payments.Engine
	Store     *payments.Store
	Logger    *slog.Logger
}

// RelayResponse is the response body for a relayed execution.
type RelayResponse struct {
	ReturnData hexutil.Bytes `json:"returnData"`
}

// NonceResponse reports an account's current relay nonce.
type NonceResponse struct {
	Address string `json:"address"`
	Nonce   uint64 `json:"nonce"`
}

// ExecuteResponse acknowledges a direct payment execution.
type ExecuteResponse struct {
	Status string `json:"status"`
}

// CanExecuteResponse reports execution eligibility for an agreement.
type CanExecuteResponse struct {
	CanExecute bool `json:"canExecute"`
}

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Details map[string]string `json:"details,omitempty"`
}

// API implements the HTTP operations independent of any router framework.
type API struct {
	forwarder *forwarder.Forwarder
	engine    *payments.Engine
	store     *payments.Store
	logger    *slog.Logger
}

// NewAPI creates the API from its wired components.
func NewAPI(cfg Config) *API {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &API{
		forwarder: cfg.Forwarder,
		engine:    cfg.Engine,
		store:     cfg.Store,
		logger:    logger,
	}
}

// Relay verifies and executes a signed forward request.
func (a *API) Relay(ctx context.Context, body encoding.SignedRequestJSON) (*RelayResponse, error) {
	if err := validation.ValidateSignedRequest(body); err != nil {
		return nil, err
	}
	req, err := encoding.DecodeForwardRequest(body.Request)
	if err != nil {
		return nil, err
	}

	ret, err := a.forwarder.Execute(ctx, req, body.Signature)
	if err != nil {
		return nil, err
	}
	return &RelayResponse{ReturnData: ret}, nil
}

// Nonce returns the account's current relay nonce.
func (a *API) Nonce(address string) (*NonceResponse, error) {
	account, err := validation.ParseAddress(address)
	if err != nil {
		return nil, err
	}
	nonce, err := a.forwarder.Nonce(account)
	if err != nil {
		return nil, err
	}
	return &NonceResponse{Address: account.Hex(), Nonce: nonce}, nil
}

// ExecutePayment runs a due agreement directly, without the relay.
func (a *API) ExecutePayment(ctx context.Context, params encoding.ExecuteParams) (*ExecuteResponse, error) {
	if err := a.engine.ExecutePayment(ctx, params.Payer, params.Payee); err != nil {
		return nil, err
	}
	return &ExecuteResponse{Status: "executed"}, nil
}

// Agreement returns the stored agreement for the pair, or ErrNotFound.
func (a *API) Agreement(payer, payee string) (*encoding.AgreementJSON, error) {
	payerAddr, err := validation.ParseAddress(payer)
	if err != nil {
		return nil, err
	}
	payeeAddr, err := validation.ParseAddress(payee)
	if err != nil {
		return nil, err
	}

	agreement, ok, err := a.store.Get(payerAddr, payeeAddr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	wire := encoding.EncodeAgreement(agreement)
	return &wire, nil
}

// CanExecute reports whether the pair's agreement is currently eligible.
func (a *API) CanExecute(payer, payee string) (*CanExecuteResponse, error) {
	payerAddr, err := validation.ParseAddress(payer)
	if err != nil {
		return nil, err
	}
	payeeAddr, err := validation.ParseAddress(payee)
	if err != nil {
		return nil, err
	}

	ok, err := a.engine.CanExecutePayment(payerAddr, payeeAddr)
	if err != nil {
		return nil, err
	}
	return &CanExecuteResponse{CanExecute: ok}, nil
}

// errorCode classifies err, falling back to sentinel matching for errors
// that carry no structured code (the validation helpers wrap bare sentinels).
func errorCode(err error) autopay.ErrorCode {
	if code := autopay.CodeOf(err); code != autopay.ErrCodeInternal {
		return code
	}
	switch {
	case errors.Is(err, autopay.ErrInvalidSignature):
		return autopay.ErrCodeInvalidSignature
	case errors.Is(err, autopay.ErrInvalidAmount):
		return autopay.ErrCodeInvalidAmount
	case errors.Is(err, autopay.ErrInvalidRecipient):
		return autopay.ErrCodeInvalidRecipient
	case errors.Is(err, autopay.ErrInvalidRequest):
		return autopay.ErrCodeInvalidRequest
	case errors.Is(err, autopay.ErrNonceMismatch):
		return autopay.ErrCodeNonceMismatch
	case errors.Is(err, autopay.ErrNotAuthorized):
		return autopay.ErrCodeNotAuthorized
	default:
		return autopay.ErrCodeInternal
	}
}

// ErrorStatus maps an API error to its HTTP status code.
func ErrorStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	switch errorCode(err) {
	case autopay.ErrCodeInvalidRequest, autopay.ErrCodeInvalidAmount, autopay.ErrCodeInvalidRecipient:
		return http.StatusBadRequest
	case autopay.ErrCodeInvalidSignature:
		return http.StatusUnauthorized
	case autopay.ErrCodeNotAuthorized:
		return http.StatusForbidden
	case autopay.ErrCodeNonceMismatch, autopay.ErrCodeTooSoon:
		return http.StatusConflict
	case autopay.ErrCodeExpired:
		return http.StatusGone
	case autopay.ErrCodeTransferFailed:
		return http.StatusPaymentRequired
	case autopay.ErrCodeForwardFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// NewErrorResponse builds the wire error body for an API error.
func NewErrorResponse(err error) ErrorResponse {
	resp := ErrorResponse{
		Error: err.Error(),
		Code:  string(errorCode(err)),
	}
	if errors.Is(err, ErrNotFound) {
		resp.Code = "NOT_FOUND"
	}
	var ae *autopay.Error
	if errors.As(err, &ae) {
		resp.Error = ae.Message
		resp.Details = ae.Details
	}
	return resp
}
