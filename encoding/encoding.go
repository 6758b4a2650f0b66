// Package encoding provides the wire JSON representations for forward
// requests, dispatch payloads, and payment agreements. Amounts travel as
// decimal strings and byte payloads as 0x-prefixed hex, so values survive
// JSON number precision limits.
package encoding

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/BuFi007/autopay-go"
)

// ForwardRequestJSON is the wire form of autopay.ForwardRequest.
type ForwardRequestJSON struct {
	From  common.Address `json:"from"`
	To    common.Address `json:"to"`
	Value string         `json:"value"`
	Gas   string         `json:"gas"`
	Nonce uint64         `json:"nonce"`
	Data  hexutil.Bytes  `json:"data"`
}

// SignedRequestJSON carries a forward request together with its EIP-712 signature.
type SignedRequestJSON struct {
	Request   ForwardRequestJSON `json:"request"`
	Signature hexutil.Bytes      `json:"signature"`
}

// AgreementJSON is the wire form of autopay.PaymentAgreement.
type AgreementJSON struct {
	Payer        common.Address `json:"payer"`
	Payee        common.Address `json:"payee"`
	Amount       string         `json:"amount"`
	Frequency    uint64         `json:"frequency"`
	ValidUntil   int64          `json:"validUntil"`
	Token        common.Address `json:"token"`
	LastExecuted int64          `json:"lastExecuted"`
	IsActive     bool           `json:"isActive"`
}

// Call is the dispatch envelope a forwarded payload decodes to.
type Call struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

// Dispatch method names.
const (
	MethodAuthorizePayment = "authorizePayment"
	MethodCancelPayment    = "cancelPayment"
	MethodExecutePayment   = "executePayment"
)

// AuthorizeParams are the parameters for MethodAuthorizePayment. The payer is
// never part of the payload: it is the effective caller.
type AuthorizeParams struct {
	Payee      common.Address `json:"payee"`
	Amount     string         `json:"amount"`
	Frequency  uint64         `json:"frequency"`
	ValidUntil int64          `json:"validUntil"`
	Token      common.Address `json:"token"`
}

// CancelParams are the parameters for MethodCancelPayment.
type CancelParams struct {
	Payee common.Address `json:"payee"`
}

// ExecuteParams are the parameters for MethodExecutePayment.
type ExecuteParams struct {
	Payer common.Address `json:"payer"`
	Payee common.Address `json:"payee"`
}

// ParseAmount parses a decimal amount string into atomic units.
func ParseAmount(s string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, autopay.NewError(autopay.ErrCodeInvalidAmount,
			fmt.Sprintf("malformed amount %q", s), autopay.ErrInvalidAmount)
	}
	return amount, nil
}

// FormatAmount renders atomic units as a decimal string; nil renders as "0".
func FormatAmount(amount *big.Int) string {
	if amount == nil {
		return "0"
	}
	return amount.String()
}

// EncodeForwardRequest converts a forward request to its wire form.
func EncodeForwardRequest(req *autopay.ForwardRequest) ForwardRequestJSON {
	return ForwardRequestJSON{
		From:  req.From,
		To:    req.To,
		Value: FormatAmount(req.Value),
		Gas:   FormatAmount(req.Gas),
		Nonce: req.Nonce,
		Data:  hexutil.Bytes(req.Data),
	}
}

// DecodeForwardRequest converts the wire form back to a forward request.
func DecodeForwardRequest(w ForwardRequestJSON) (*autopay.ForwardRequest, error) {
	value, err := ParseAmount(w.Value)
	if err != nil {
		return nil, autopay.NewError(autopay.ErrCodeInvalidRequest, "malformed value", autopay.ErrInvalidRequest)
	}
	gas, err := ParseAmount(w.Gas)
	if err != nil {
		return nil, autopay.NewError(autopay.ErrCodeInvalidRequest, "malformed gas", autopay.ErrInvalidRequest)
	}
	return &autopay.ForwardRequest{
		From:  w.From,
		To:    w.To,
		Value: value,
		Gas:   gas,
		Nonce: w.Nonce,
		Data:  []byte(w.Data),
	}, nil
}

// EncodeAgreement converts an agreement to its wire form.
func EncodeAgreement(a *autopay.PaymentAgreement) AgreementJSON {
	return AgreementJSON{
		Payer:        a.Payer,
		Payee:        a.Payee,
		Amount:       FormatAmount(a.Amount),
		Frequency:    a.Frequency,
		ValidUntil:   a.ValidUntil,
		Token:        a.Token,
		LastExecuted: a.LastExecuted,
		IsActive:     a.IsActive,
	}
}

// NewCall builds a dispatch envelope from a method name and its parameters.
func NewCall(method string, params any) ([]byte, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal params: %w", err)
	}
	return json.Marshal(Call{Method: method, Params: raw})
}

// DecodeCall parses a dispatch envelope.
func DecodeCall(data []byte) (*Call, error) {
	var call Call
	if err := json.Unmarshal(data, &call); err != nil {
		return nil, autopay.NewError(autopay.ErrCodeInvalidRequest, "malformed dispatch payload", autopay.ErrInvalidRequest)
	}
	if call.Method == "" {
		return nil, autopay.NewError(autopay.ErrCodeInvalidRequest, "missing method", autopay.ErrInvalidRequest)
	}
	return &call, nil
}
