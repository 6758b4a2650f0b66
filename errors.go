package autopay

import (
	"errors"
	"fmt"
)

// Standard autopay error definitions

var (
	// ErrInvalidSignature indicates the request signature does not recover to the claimed signer.
	ErrInvalidSignature = errors.New("autopay: invalid signature")

	// ErrNonceMismatch indicates the presented nonce does not match the signer's current nonce.
	ErrNonceMismatch = errors.New("autopay: nonce mismatch")

	// ErrForwardFailed indicates the downstream call of a forwarded request failed.
	ErrForwardFailed = errors.New("autopay: forwarded call failed")

	// ErrInvalidRecipient indicates an invalid payment recipient (zero address or self).
	ErrInvalidRecipient = errors.New("autopay: invalid recipient")

	// ErrInvalidAmount indicates a payment amount that is zero, negative, or malformed.
	ErrInvalidAmount = errors.New("autopay: invalid amount")

	// ErrNotAuthorized indicates no active payment agreement exists for the pair,
	// or the caller lacks the authority for the operation.
	ErrNotAuthorized = errors.New("autopay: payment not authorized")

	// ErrTooSoon indicates the agreement's cadence interval has not yet elapsed.
	ErrTooSoon = errors.New("autopay: payment too soon")

	// ErrExpired indicates the agreement's validUntil timestamp has passed.
	ErrExpired = errors.New("autopay: payment authorization expired")

	// ErrTransferFailed indicates the asset ledger rejected the transfer.
	ErrTransferFailed = errors.New("autopay: token transfer failed")

	// ErrUnknownTarget indicates a forwarded request named an unregistered target.
	ErrUnknownTarget = errors.New("autopay: unknown forward target")

	// ErrUnknownToken indicates no ledger is registered for the referenced token.
	ErrUnknownToken = errors.New("autopay: unknown token")

	// ErrInvalidKey indicates an invalid private key.
	ErrInvalidKey = errors.New("autopay: invalid private key")

	// ErrInvalidKeystore indicates an invalid keystore file.
	ErrInvalidKeystore = errors.New("autopay: invalid keystore file")

	// ErrInvalidMnemonic indicates an invalid mnemonic phrase.
	ErrInvalidMnemonic = errors.New("autopay: invalid mnemonic phrase")

	// ErrInvalidRequest indicates a malformed forward request or dispatch payload.
	ErrInvalidRequest = errors.New("autopay: invalid request")
)

// ErrorCode is a machine-readable error classification carried by Error.
type ErrorCode string

const (
	ErrCodeInvalidSignature ErrorCode = "INVALID_SIGNATURE"
	ErrCodeNonceMismatch    ErrorCode = "NONCE_MISMATCH"
	ErrCodeForwardFailed    ErrorCode = "FORWARD_FAILED"
	ErrCodeInvalidRecipient ErrorCode = "INVALID_RECIPIENT"
	ErrCodeInvalidAmount    ErrorCode = "INVALID_AMOUNT"
	ErrCodeNotAuthorized    ErrorCode = "NOT_AUTHORIZED"
	ErrCodeTooSoon          ErrorCode = "TOO_SOON"
	ErrCodeExpired          ErrorCode = "EXPIRED"
	ErrCodeTransferFailed   ErrorCode = "TRANSFER_FAILED"
	ErrCodeInvalidRequest   ErrorCode = "INVALID_REQUEST"
	ErrCodeInternal         ErrorCode = "INTERNAL"
)

// Error is a structured error that carries a classification code and optional
// key-value details alongside the wrapped cause. The HTTP layer maps codes to
// response statuses; callers can still match with errors.Is on the sentinels.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
	Details map[string]string
}

// NewError creates a structured Error wrapping an underlying cause.
func NewError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithDetails attaches a key-value detail pair and returns the error for chaining.
func (e *Error) WithDetails(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf extracts the ErrorCode from err, or ErrCodeInternal if it carries none.
func CodeOf(err error) ErrorCode {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ErrCodeInternal
}
