package token

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/BuFi007/autopay-go"
)

var (
	minter  = common.HexToAddress("0x00000000000000000000000000000000000000b0")
	alice   = common.HexToAddress("0x0000000000000000000000000000000000000001")
	bob     = common.HexToAddress("0x0000000000000000000000000000000000000002")
	spender = common.HexToAddress("0x00000000000000000000000000000000000000c0")
)

func newTestToken(t *testing.T) *Token {
	t.Helper()
	return New(Config{
		Name:     "Mock Token",
		Symbol:   "MTK",
		Decimals: 18,
		Address:  common.HexToAddress("0x00000000000000000000000000000000000000aa"),
		Minter:   minter,
		Burnable: true,
	})
}

func balanceOf(t *testing.T, tok *Token, account common.Address) *big.Int {
	t.Helper()
	b, err := tok.BalanceOf(context.Background(), account)
	if err != nil {
		t.Fatalf("balanceOf failed: %v", err)
	}
	return b
}

func TestMintGatedToMinter(t *testing.T) {
	tok := newTestToken(t)

	if err := tok.Mint(alice, alice, big.NewInt(100)); !errors.Is(err, ErrNotMinter) {
		t.Fatalf("non-minter mint = %v, want ErrNotMinter", err)
	}

	if err := tok.Mint(minter, alice, big.NewInt(100)); err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	if got := balanceOf(t, tok, alice); got.Cmp(big.NewInt(100)) != 0 {
		t.Errorf("balance = %s, want 100", got)
	}
}

func TestBurnDisabled(t *testing.T) {
	tok := New(Config{Name: "L2 Token", Symbol: "L2T", Minter: minter, Burnable: false})
	if err := tok.Mint(minter, alice, big.NewInt(10)); err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	if err := tok.Burn(minter, alice, big.NewInt(5)); !errors.Is(err, ErrBurnDisabled) {
		t.Fatalf("burn = %v, want ErrBurnDisabled", err)
	}
	if err := tok.Burn(alice, alice, big.NewInt(5)); !errors.Is(err, ErrNotMinter) {
		t.Fatalf("non-minter burn = %v, want ErrNotMinter", err)
	}
}

func TestTransferFromConsumesAllowance(t *testing.T) {
	tok := newTestToken(t)
	ctx := context.Background()

	if err := tok.Mint(minter, alice, big.NewInt(1000)); err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	tok.Approve(alice, spender, big.NewInt(300))

	if err := tok.TransferFrom(ctx, alice, spender, bob, big.NewInt(100)); err != nil {
		t.Fatalf("transferFrom failed: %v", err)
	}

	if got := balanceOf(t, tok, bob); got.Cmp(big.NewInt(100)) != 0 {
		t.Errorf("recipient balance = %s, want 100", got)
	}
	allowance, _ := tok.Allowance(ctx, alice, spender)
	if allowance.Cmp(big.NewInt(200)) != 0 {
		t.Errorf("remaining allowance = %s, want 200", allowance)
	}
}

func TestTransferFromFailuresMutateNothing(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		balance int64
		grant   int64
		amount  int64
		wantErr error
	}{
		{"insufficient allowance", 1000, 50, 100, ErrInsufficientAllowance},
		{"insufficient balance", 40, 100, 100, ErrInsufficientBalance},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := newTestToken(t)
			if err := tok.Mint(minter, alice, big.NewInt(tt.balance)); err != nil {
				t.Fatalf("mint failed: %v", err)
			}
			tok.Approve(alice, spender, big.NewInt(tt.grant))

			err := tok.TransferFrom(ctx, alice, spender, bob, big.NewInt(tt.amount))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("transferFrom = %v, want %v", err, tt.wantErr)
			}

			if got := balanceOf(t, tok, alice); got.Cmp(big.NewInt(tt.balance)) != 0 {
				t.Errorf("owner balance changed: %s", got)
			}
			if got := balanceOf(t, tok, bob); got.Sign() != 0 {
				t.Errorf("recipient balance changed: %s", got)
			}
			allowance, _ := tok.Allowance(ctx, alice, spender)
			if allowance.Cmp(big.NewInt(tt.grant)) != 0 {
				t.Errorf("allowance changed: %s", allowance)
			}
		})
	}
}

func TestRegistryResolve(t *testing.T) {
	reg := NewRegistry()
	tok := newTestToken(t)
	reg.Register(tok.Address(), tok)

	ledger, err := reg.Resolve(tok.Address())
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if ledger != Ledger(tok) {
		t.Error("resolve returned a different ledger")
	}

	_, err = reg.Resolve(common.HexToAddress("0x00000000000000000000000000000000000000ff"))
	if !errors.Is(err, autopay.ErrUnknownToken) {
		t.Fatalf("unknown token = %v, want ErrUnknownToken", err)
	}
}
