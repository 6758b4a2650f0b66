package bridge

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/BuFi007/autopay-go/token"
)

var (
	owner     = common.HexToAddress("0x0000000000000000000000000000000000000010")
	messenger = common.HexToAddress("0x0000000000000000000000000000000000000020")
	escrow    = common.HexToAddress("0x0000000000000000000000000000000000000030")
	user      = common.HexToAddress("0x0000000000000000000000000000000000000040")
	minter    = common.HexToAddress("0x0000000000000000000000000000000000000050")
)

func newTestBridge(t *testing.T) (*Bridge, Pair) {
	t.Helper()

	l1 := token.New(token.Config{
		Name: "Mock Token", Symbol: "MTK", Decimals: 18,
		Address: common.HexToAddress("0x00000000000000000000000000000000000000a1"),
		Minter:  minter,
	})
	l2 := token.New(token.Config{
		Name: "Bridged Mock Token", Symbol: "MTK.b", Decimals: 18,
		Address: common.HexToAddress("0x00000000000000000000000000000000000000a2"),
		Minter:  escrow,
	})

	b := New(owner, messenger, escrow)
	pair := Pair{L1: l1, L2: l2}
	if err := b.AddSupportedToken(owner, pair); err != nil {
		t.Fatalf("addSupportedToken failed: %v", err)
	}

	if err := l1.Mint(minter, user, big.NewInt(1000)); err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	l1.Approve(user, escrow, big.NewInt(1000))
	return b, pair
}

func balanceOf(t *testing.T, tok *token.Token, account common.Address) *big.Int {
	t.Helper()
	b, err := tok.BalanceOf(context.Background(), account)
	if err != nil {
		t.Fatalf("balanceOf failed: %v", err)
	}
	return b
}

func TestAddSupportedTokenOwnerOnly(t *testing.T) {
	b, pair := newTestBridge(t)

	other := token.New(token.Config{Name: "New Token", Symbol: "NTK",
		Address: common.HexToAddress("0x00000000000000000000000000000000000000a3")})

	if err := b.AddSupportedToken(user, Pair{L1: other, L2: pair.L2}); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("non-owner add = %v, want ErrNotOwner", err)
	}
	if b.IsSupported(other.Address()) {
		t.Error("token allowlisted by non-owner")
	}

	if err := b.AddSupportedToken(owner, Pair{L1: other, L2: pair.L2}); err != nil {
		t.Fatalf("owner add failed: %v", err)
	}
	if !b.IsSupported(other.Address()) {
		t.Error("token not allowlisted after owner add")
	}
}

func TestDepositEscrowsAndMints(t *testing.T) {
	b, pair := newTestBridge(t)
	ctx := context.Background()

	if err := b.DepositToL2(ctx, user, pair.L1.Address(), big.NewInt(100)); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}

	if got := balanceOf(t, pair.L1, escrow); got.Cmp(big.NewInt(100)) != 0 {
		t.Errorf("escrow balance = %s, want 100", got)
	}
	if got := balanceOf(t, pair.L1, user); got.Cmp(big.NewInt(900)) != 0 {
		t.Errorf("user L1 balance = %s, want 900", got)
	}
	if got := balanceOf(t, pair.L2, user); got.Cmp(big.NewInt(100)) != 0 {
		t.Errorf("user L2 balance = %s, want 100", got)
	}
}

func TestDepositUnsupportedToken(t *testing.T) {
	b, _ := newTestBridge(t)

	unknown := common.HexToAddress("0x00000000000000000000000000000000000000ff")
	err := b.DepositToL2(context.Background(), user, unknown, big.NewInt(1))
	if !errors.Is(err, ErrTokenNotSupported) {
		t.Fatalf("deposit unsupported = %v, want ErrTokenNotSupported", err)
	}
}

func TestDepositWithoutAllowance(t *testing.T) {
	b, pair := newTestBridge(t)
	pair.L1.Approve(user, escrow, big.NewInt(0))

	err := b.DepositToL2(context.Background(), user, pair.L1.Address(), big.NewInt(100))
	if !errors.Is(err, token.ErrInsufficientAllowance) {
		t.Fatalf("deposit without allowance = %v, want ErrInsufficientAllowance", err)
	}
	if got := balanceOf(t, pair.L2, user); got.Sign() != 0 {
		t.Errorf("L2 minted despite failed escrow: %s", got)
	}
}

func TestDepositRefundsEscrowOnMintFailure(t *testing.T) {
	b, pair := newTestBridge(t)

	// An L2 token whose minter is not the escrow account rejects the bridge's
	// mint; the escrowed L1 funds must come back to the depositor.
	miswired := token.New(token.Config{
		Name: "Bridged Mock Token", Symbol: "MTK.b", Decimals: 18,
		Address: common.HexToAddress("0x00000000000000000000000000000000000000a4"),
		Minter:  minter,
	})
	if err := b.AddSupportedToken(owner, Pair{L1: pair.L1, L2: miswired}); err != nil {
		t.Fatalf("addSupportedToken failed: %v", err)
	}

	err := b.DepositToL2(context.Background(), user, pair.L1.Address(), big.NewInt(100))
	if !errors.Is(err, token.ErrNotMinter) {
		t.Fatalf("deposit with miswired minter = %v, want ErrNotMinter", err)
	}

	if got := balanceOf(t, pair.L1, user); got.Cmp(big.NewInt(1000)) != 0 {
		t.Errorf("user L1 balance = %s, want 1000 after refund", got)
	}
	if got := balanceOf(t, pair.L1, escrow); got.Sign() != 0 {
		t.Errorf("escrow balance = %s after refund, want 0", got)
	}
	if got := balanceOf(t, miswired, user); got.Sign() != 0 {
		t.Errorf("L2 balance = %s, want 0", got)
	}
}

func TestFinalizeWithdrawalMessengerOnly(t *testing.T) {
	b, pair := newTestBridge(t)
	ctx := context.Background()

	if err := b.DepositToL2(ctx, user, pair.L1.Address(), big.NewInt(100)); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}

	if err := b.FinalizeWithdrawal(ctx, user, user, pair.L1.Address(), big.NewInt(100)); !errors.Is(err, ErrNotMessenger) {
		t.Fatalf("unauthorized finalize = %v, want ErrNotMessenger", err)
	}

	if err := b.FinalizeWithdrawal(ctx, messenger, user, pair.L1.Address(), big.NewInt(100)); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}
	if got := balanceOf(t, pair.L1, user); got.Cmp(big.NewInt(1000)) != 0 {
		t.Errorf("user balance after withdrawal = %s, want 1000", got)
	}
	if got := balanceOf(t, pair.L1, escrow); got.Sign() != 0 {
		t.Errorf("escrow balance after withdrawal = %s, want 0", got)
	}
}
