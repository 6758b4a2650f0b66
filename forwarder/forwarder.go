package forwarder

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/BuFi007/autopay-go"
)

// Target is an operation endpoint the forwarder can dispatch requests to.
//
// caller is the immediate invoker's identity: the forwarder passes its own
// address and appends the original signer's 20-byte address to data, so a
// caller-sensitive target resolves the effective caller from the suffix only
// when caller equals the trusted forwarder. Applications invoking a target
// directly pass the account they have authenticated and the bare payload.
type Target interface {
	Call(ctx context.Context, caller common.Address, data []byte) ([]byte, error)
}

// Forwarder authenticates signed forward requests and dispatches them so the
// target observes the original signer as the logical caller.
//
// Nonce policy: the signer's nonce is consumed even when the downstream call
// fails. A relayed request that failed downstream cannot be resubmitted with
// the same signature; the signer must issue a fresh request with the next
// nonce. This blocks resubmission griefing at the cost of one counter slot
// per failed attempt.
type Forwarder struct {
	address common.Address
	domain  Domain
	nonces  *NonceRegistry
	logger  *slog.Logger

	mu      sync.RWMutex
	targets map[common.Address]Target
}

// Option configures a Forwarder.
type Option func(*Forwarder)

// WithLogger sets the structured logger. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Forwarder) { f.logger = logger }
}

// New creates a Forwarder with the given identity address. The EIP-712 domain
// binds signatures to this forwarder on this chain.
func New(address common.Address, chainID *big.Int, nonces *NonceRegistry, opts ...Option) *Forwarder {
	f := &Forwarder{
		address: address,
		domain:  NewDomain(chainID, address),
		nonces:  nonces,
		logger:  slog.Default(),
		targets: make(map[common.Address]Target),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Address returns the forwarder's identity address. Targets treat it as the
// trusted relay when resolving effective callers.
func (f *Forwarder) Address() common.Address {
	return f.address
}

// Domain returns the EIP-712 domain clients must sign requests under.
func (f *Forwarder) Domain() Domain {
	return f.domain
}

// Nonce returns the account's current nonce.
func (f *Forwarder) Nonce(account common.Address) (uint64, error) {
	return f.nonces.Current(account)
}

// RegisterTarget makes a target addressable by forwarded requests.
func (f *Forwarder) RegisterTarget(address common.Address, target Target) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.targets[address] = target
}

func (f *Forwarder) target(address common.Address) (Target, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	t, ok := f.targets[address]
	return t, ok
}

// Execute verifies the signed request, consumes the signer's nonce, and
// dispatches the payload to the target with the signer's identity appended.
// Downstream success or failure propagates unchanged; failures surface as
// ErrForwardFailed wrapping the cause, without retry.
func (f *Forwarder) Execute(ctx context.Context, req *autopay.ForwardRequest, signature []byte) ([]byte, error) {
	signer, err := Verify(f.domain, req, signature)
	if err != nil {
		return nil, err
	}

	if err := f.nonces.Consume(signer, req.Nonce); err != nil {
		return nil, err
	}

	target, ok := f.target(req.To)
	if !ok {
		return nil, autopay.NewError(autopay.ErrCodeForwardFailed, "no target registered", autopay.ErrUnknownTarget).
			WithDetails("to", req.To.Hex())
	}

	// ERC-2771 style suffix: the target strips the trailing 20 bytes and
	// trusts them as the caller because the immediate invoker is this relay.
	data := make([]byte, 0, len(req.Data)+common.AddressLength)
	data = append(data, req.Data...)
	data = append(data, signer.Bytes()...)

	ret, err := target.Call(ctx, f.address, data)
	if err != nil {
		f.logger.Warn("forwarded call failed",
			"signer", signer.Hex(), "to", req.To.Hex(), "nonce", req.Nonce, "err", err)
		return nil, autopay.NewError(autopay.ErrCodeForwardFailed, "forwarded call failed",
			errors.Join(autopay.ErrForwardFailed, err))
	}

	f.logger.Info("forwarded call executed",
		"signer", signer.Hex(), "to", req.To.Hex(), "nonce", req.Nonce)
	return ret, nil
}
