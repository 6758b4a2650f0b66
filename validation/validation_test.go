package validation

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/BuFi007/autopay-go"
	"github.com/BuFi007/autopay-go/encoding"
)

func TestValidateAmount(t *testing.T) {
	tests := []struct {
		name    string
		amount  string
		wantErr bool
	}{
		{
			name:   "valid positive amount",
			amount: "10000",
		},
		{
			name:   "valid large amount",
			amount: "999999999999999999999",
		},
		{
			name:    "empty amount",
			amount:  "",
			wantErr: true,
		},
		{
			name:    "zero amount",
			amount:  "0",
			wantErr: true,
		},
		{
			name:    "negative amount",
			amount:  "-100",
			wantErr: true,
		},
		{
			name:    "invalid format - letters",
			amount:  "abc",
			wantErr: true,
		},
		{
			name:    "invalid format - decimal",
			amount:  "100.50",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAmount(tt.amount)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAmount() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, autopay.ErrInvalidAmount) {
				t.Errorf("error %v does not wrap ErrInvalidAmount", err)
			}
		})
	}
}

func TestValidateAddress(t *testing.T) {
	tests := []struct {
		name    string
		address string
		wantErr bool
	}{
		{
			name:    "valid lowercase address",
			address: "0x833589fcd6edb6e08f4c7c32d4f71b54bda02913",
		},
		{
			name:    "valid checksummed address",
			address: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
		},
		{
			name:    "empty address",
			address: "",
			wantErr: true,
		},
		{
			name:    "missing 0x prefix",
			address: "833589fcd6edb6e08f4c7c32d4f71b54bda02913",
			wantErr: true,
		},
		{
			name:    "too short",
			address: "0x833589",
			wantErr: true,
		},
		{
			name:    "non-hex characters",
			address: "0x833589fcd6edb6e08f4c7c32d4f71b54bda0291g",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAddress(tt.address)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAddress() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")
	if err != nil {
		t.Fatalf("ParseAddress() failed: %v", err)
	}
	want := common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")
	if addr != want {
		t.Errorf("ParseAddress() = %s, want %s", addr.Hex(), want.Hex())
	}

	if _, err := ParseAddress("nope"); err == nil {
		t.Error("ParseAddress() accepted a malformed address")
	}
}

func TestValidateSignedRequest(t *testing.T) {
	from := common.HexToAddress("0x0000000000000000000000000000000000000001")
	to := common.HexToAddress("0x0000000000000000000000000000000000000002")
	sig := make([]byte, 65)

	valid := encoding.SignedRequestJSON{
		Request: encoding.ForwardRequestJSON{
			From: from, To: to, Value: "0", Gas: "0", Nonce: 0,
		},
		Signature: sig,
	}

	tests := []struct {
		name    string
		mutate  func(*encoding.SignedRequestJSON)
		wantErr error
	}{
		{
			name:   "valid request",
			mutate: func(*encoding.SignedRequestJSON) {},
		},
		{
			name:    "zero from",
			mutate:  func(w *encoding.SignedRequestJSON) { w.Request.From = common.Address{} },
			wantErr: autopay.ErrInvalidRequest,
		},
		{
			name:    "zero to",
			mutate:  func(w *encoding.SignedRequestJSON) { w.Request.To = common.Address{} },
			wantErr: autopay.ErrInvalidRequest,
		},
		{
			name:    "short signature",
			mutate:  func(w *encoding.SignedRequestJSON) { w.Signature = w.Signature[:10] },
			wantErr: autopay.ErrInvalidSignature,
		},
		{
			name:    "malformed value",
			mutate:  func(w *encoding.SignedRequestJSON) { w.Request.Value = "ten" },
			wantErr: autopay.ErrInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := valid
			tt.mutate(&w)
			err := ValidateSignedRequest(w)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("ValidateSignedRequest() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ValidateSignedRequest() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateAuthorizeParams(t *testing.T) {
	payee := common.HexToAddress("0x0000000000000000000000000000000000000002")

	tests := []struct {
		name    string
		params  encoding.AuthorizeParams
		wantErr error
	}{
		{
			name:   "valid",
			params: encoding.AuthorizeParams{Payee: payee, Amount: "100", Frequency: 3600, ValidUntil: 1},
		},
		{
			name:    "zero payee",
			params:  encoding.AuthorizeParams{Amount: "100", Frequency: 3600, ValidUntil: 1},
			wantErr: autopay.ErrInvalidRecipient,
		},
		{
			name:    "zero amount",
			params:  encoding.AuthorizeParams{Payee: payee, Amount: "0", Frequency: 3600, ValidUntil: 1},
			wantErr: autopay.ErrInvalidAmount,
		},
		{
			name:    "non-positive validUntil",
			params:  encoding.AuthorizeParams{Payee: payee, Amount: "100", Frequency: 3600},
			wantErr: autopay.ErrInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAuthorizeParams(tt.params)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("ValidateAuthorizeParams() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ValidateAuthorizeParams() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
