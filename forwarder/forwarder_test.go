package forwarder

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/BuFi007/autopay-go"
	"github.com/BuFi007/autopay-go/storage"
)

// stubTarget records the identity material a dispatched call carries.
type stubTarget struct {
	caller common.Address
	data   []byte
	ret    []byte
	err    error
	calls  int
}

func (s *stubTarget) Call(_ context.Context, caller common.Address, data []byte) ([]byte, error) {
	s.calls++
	s.caller = caller
	s.data = append([]byte(nil), data...)
	return s.ret, s.err
}

func newTestForwarder(t *testing.T) (*Forwarder, *stubTarget, common.Address) {
	t.Helper()
	fwdAddr := common.HexToAddress("0x00000000000000000000000000000000000000f0")
	targetAddr := common.HexToAddress("0x00000000000000000000000000000000000000a1")

	f := New(fwdAddr, big.NewInt(10), NewNonceRegistry(storage.NewMemDB()))
	target := &stubTarget{ret: []byte("ok")}
	f.RegisterTarget(targetAddr, target)
	return f, target, targetAddr
}

func TestExecuteDispatchesWithSignerSuffix(t *testing.T) {
	f, target, targetAddr := newTestForwarder(t)
	key := newKey(t)

	payload := []byte(`{"method":"cancelPayment","params":{}}`)
	req := &autopay.ForwardRequest{
		From:  key.address,
		To:    targetAddr,
		Gas:   big.NewInt(500000),
		Nonce: 0,
		Data:  payload,
	}
	sig := signRequest(t, f.Domain(), req, key)

	ret, err := f.Execute(context.Background(), req, sig)
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if string(ret) != "ok" {
		t.Errorf("return data = %q, want %q", ret, "ok")
	}

	// The target sees the forwarder as the immediate caller and the signer's
	// address as a 20-byte suffix on the payload.
	if target.caller != f.Address() {
		t.Errorf("immediate caller = %s, want forwarder %s", target.caller.Hex(), f.Address().Hex())
	}
	wantLen := len(payload) + common.AddressLength
	if len(target.data) != wantLen {
		t.Fatalf("payload length = %d, want %d", len(target.data), wantLen)
	}
	suffix := common.BytesToAddress(target.data[len(payload):])
	if suffix != key.address {
		t.Errorf("payload suffix = %s, want signer %s", suffix.Hex(), key.address.Hex())
	}

	nonce, _ := f.Nonce(key.address)
	if nonce != 1 {
		t.Errorf("nonce after execute = %d, want 1", nonce)
	}
}

func TestExecuteRejectsReplay(t *testing.T) {
	f, target, targetAddr := newTestForwarder(t)
	key := newKey(t)

	req := &autopay.ForwardRequest{From: key.address, To: targetAddr, Nonce: 0, Data: []byte("x")}
	sig := signRequest(t, f.Domain(), req, key)

	if _, err := f.Execute(context.Background(), req, sig); err != nil {
		t.Fatalf("first execute failed: %v", err)
	}
	if _, err := f.Execute(context.Background(), req, sig); !errors.Is(err, autopay.ErrNonceMismatch) {
		t.Fatalf("replay = %v, want ErrNonceMismatch", err)
	}
	if target.calls != 1 {
		t.Errorf("target invoked %d times, want 1", target.calls)
	}
}

func TestExecuteRejectsFutureNonce(t *testing.T) {
	f, _, targetAddr := newTestForwarder(t)
	key := newKey(t)

	req := &autopay.ForwardRequest{From: key.address, To: targetAddr, Nonce: 7}
	sig := signRequest(t, f.Domain(), req, key)

	if _, err := f.Execute(context.Background(), req, sig); !errors.Is(err, autopay.ErrNonceMismatch) {
		t.Fatalf("future nonce = %v, want ErrNonceMismatch", err)
	}
}

func TestExecuteRejectsBadSignatureBeforeNonce(t *testing.T) {
	f, _, targetAddr := newTestForwarder(t)
	key := newKey(t)
	other := newKey(t)

	req := &autopay.ForwardRequest{From: key.address, To: targetAddr, Nonce: 0}
	sig := signRequest(t, f.Domain(), req, other)

	if _, err := f.Execute(context.Background(), req, sig); !errors.Is(err, autopay.ErrInvalidSignature) {
		t.Fatalf("bad signature = %v, want ErrInvalidSignature", err)
	}

	// A failed verification must not touch the nonce.
	nonce, _ := f.Nonce(key.address)
	if nonce != 0 {
		t.Errorf("nonce = %d after rejected signature, want 0", nonce)
	}
}

func TestExecuteConsumesNonceOnDownstreamFailure(t *testing.T) {
	f, target, targetAddr := newTestForwarder(t)
	target.err = errors.New("downstream revert")
	key := newKey(t)

	req := &autopay.ForwardRequest{From: key.address, To: targetAddr, Nonce: 0}
	sig := signRequest(t, f.Domain(), req, key)

	_, err := f.Execute(context.Background(), req, sig)
	if !errors.Is(err, autopay.ErrForwardFailed) {
		t.Fatalf("downstream failure = %v, want ErrForwardFailed", err)
	}
	if !errors.Is(err, target.err) {
		t.Errorf("downstream cause not preserved: %v", err)
	}

	// Policy: the nonce is consumed regardless of downstream outcome, so the
	// same signed request cannot be resubmitted.
	nonce, _ := f.Nonce(key.address)
	if nonce != 1 {
		t.Errorf("nonce = %d after failed forward, want 1", nonce)
	}
	if _, err := f.Execute(context.Background(), req, sig); !errors.Is(err, autopay.ErrNonceMismatch) {
		t.Fatalf("resubmission = %v, want ErrNonceMismatch", err)
	}
}

func TestExecuteUnknownTarget(t *testing.T) {
	f, _, _ := newTestForwarder(t)
	key := newKey(t)

	req := &autopay.ForwardRequest{
		From:  key.address,
		To:    common.HexToAddress("0x00000000000000000000000000000000000000ee"),
		Nonce: 0,
	}
	sig := signRequest(t, f.Domain(), req, key)

	if _, err := f.Execute(context.Background(), req, sig); !errors.Is(err, autopay.ErrUnknownTarget) {
		t.Fatalf("unknown target = %v, want ErrUnknownTarget", err)
	}
}
