package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/BuFi007/autopay-go"
	"github.com/BuFi007/autopay-go/encoding"
	"github.com/BuFi007/autopay-go/retry"
)

// Client calls a relay server. Transient failures (network errors, 5xx
// responses) retry with exponential backoff; rejections on the merits, like a
// bad signature or a stale nonce, surface immediately.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retry      retry.Config
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithRetryConfig overrides the retry policy.
func WithRetryConfig(cfg retry.Config) ClientOption {
	return func(c *Client) { c.retry = cfg }
}

// NewClient creates a client for the relay server at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		retry:      retry.DefaultConfig,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Nonce fetches the account's current relay nonce.
func (c *Client) Nonce(ctx context.Context, account common.Address) (uint64, error) {
	var resp NonceResponse
	err := c.get(ctx, "/relay/nonce/"+account.Hex(), &resp)
	if err != nil {
		return 0, err
	}
	return resp.Nonce, nil
}

// Relay submits a signed forward request and returns the target's return data.
func (c *Client) Relay(ctx context.Context, req *autopay.ForwardRequest, signature []byte) ([]byte, error) {
	body := encoding.SignedRequestJSON{
		Request:   encoding.EncodeForwardRequest(req),
		Signature: signature,
	}
	var resp RelayResponse
	if err := c.post(ctx, "/relay/execute", body, &resp); err != nil {
		return nil, err
	}
	return resp.ReturnData, nil
}

// ExecutePayment triggers a due agreement directly, without the relay.
func (c *Client) ExecutePayment(ctx context.Context, payer, payee common.Address) error {
	var resp ExecuteResponse
	return c.post(ctx, "/payments/execute", encoding.ExecuteParams{Payer: payer, Payee: payee}, &resp)
}

// Agreement fetches the stored agreement for the pair. ErrNotFound means no
// agreement has ever been authorized for it.
func (c *Client) Agreement(ctx context.Context, payer, payee common.Address) (*encoding.AgreementJSON, error) {
	var resp encoding.AgreementJSON
	err := c.get(ctx, "/payments/"+payer.Hex()+"/"+payee.Hex(), &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// CanExecute reports whether the pair's agreement is currently eligible.
func (c *Client) CanExecute(ctx context.Context, payer, payee common.Address) (bool, error) {
	var resp CanExecuteResponse
	err := c.get(ctx, "/payments/"+payer.Hex()+"/"+payee.Hex()+"/can-execute", &resp)
	if err != nil {
		return false, err
	}
	return resp.CanExecute, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	_, err := retry.WithRetry(ctx, c.retry, retry.Transient, func() (struct{}, error) {
		return struct{}{}, c.do(ctx, http.MethodGet, path, nil, out)
	})
	return err
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	_, err = retry.WithRetry(ctx, c.retry, retry.Transient, func() (struct{}, error) {
		return struct{}{}, c.do(ctx, http.MethodPost, path, data, out)
	})
	return err
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// decodeError reconstructs a matchable error from a non-2xx response so
// callers can use errors.Is against the autopay sentinels.
func decodeError(resp *http.Response) error {
	var body ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Code == "" {
		return &retry.StatusError{StatusCode: resp.StatusCode, Message: resp.Status}
	}

	if sentinel, ok := sentinelByCode[body.Code]; ok {
		return fmt.Errorf("%w: %s", sentinel, body.Error)
	}
	return &retry.StatusError{StatusCode: resp.StatusCode, Message: body.Error}
}

var sentinelByCode = map[string]error{
	string(autopay.ErrCodeInvalidSignature): autopay.ErrInvalidSignature,
	string(autopay.ErrCodeNonceMismatch):    autopay.ErrNonceMismatch,
	string(autopay.ErrCodeForwardFailed):    autopay.ErrForwardFailed,
	string(autopay.ErrCodeInvalidRecipient): autopay.ErrInvalidRecipient,
	string(autopay.ErrCodeInvalidAmount):    autopay.ErrInvalidAmount,
	string(autopay.ErrCodeNotAuthorized):    autopay.ErrNotAuthorized,
	string(autopay.ErrCodeTooSoon):          autopay.ErrTooSoon,
	string(autopay.ErrCodeExpired):          autopay.ErrExpired,
	string(autopay.ErrCodeTransferFailed):   autopay.ErrTransferFailed,
	string(autopay.ErrCodeInvalidRequest):   autopay.ErrInvalidRequest,
	"NOT_FOUND":                             ErrNotFound,
}
