package token

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Token ledger failure modes.
var (
	ErrInsufficientBalance   = errors.New("token: insufficient balance")
	ErrInsufficientAllowance = errors.New("token: insufficient allowance")
	ErrNotMinter             = errors.New("token: only the minter can mint and burn")
	ErrBurnDisabled          = errors.New("token: burning is disabled")
)

// Token is an in-memory allowance-bounded fungible asset ledger. Minting and
// burning are gated to a single minter account (the bridge, in the L2
// deployment); everything else follows standard ERC-20 semantics.
type Token struct {
	name     string
	symbol   string
	decimals uint8
	address  common.Address
	minter   common.Address
	burnable bool

	mu         sync.Mutex
	balances   map[common.Address]*big.Int
	allowances map[common.Address]map[common.Address]*big.Int
}

// Config describes a token to create.
type Config struct {
	Name     string
	Symbol   string
	Decimals uint8

	// Address is the token's reference identity used by agreements and the registry.
	Address common.Address

	// Minter is the only account allowed to mint. Zero disables minting.
	Minter common.Address

	// Burnable controls whether the minter may burn. Bridged representations
	// that cannot be withdrawn keep this false.
	Burnable bool
}

// New creates an empty token ledger.
func New(cfg Config) *Token {
	return &Token{
		name:       cfg.Name,
		symbol:     cfg.Symbol,
		decimals:   cfg.Decimals,
		address:    cfg.Address,
		minter:     cfg.Minter,
		burnable:   cfg.Burnable,
		balances:   make(map[common.Address]*big.Int),
		allowances: make(map[common.Address]map[common.Address]*big.Int),
	}
}

// Name returns the token name.
func (t *Token) Name() string { return t.name }

// Symbol returns the token symbol.
func (t *Token) Symbol() string { return t.symbol }

// Decimals returns the token's decimal places.
func (t *Token) Decimals() uint8 { return t.decimals }

// Address returns the token's reference identity.
func (t *Token) Address() common.Address { return t.address }

// Minter returns the account allowed to mint and burn.
func (t *Token) Minter() common.Address { return t.minter }

func (t *Token) balance(account common.Address) *big.Int {
	if b, ok := t.balances[account]; ok {
		return b
	}
	return new(big.Int)
}

func (t *Token) allowance(owner, spender common.Address) *big.Int {
	if grants, ok := t.allowances[owner]; ok {
		if a, ok := grants[spender]; ok {
			return a
		}
	}
	return new(big.Int)
}

// Mint credits amount to account. Only the minter may call it.
func (t *Token) Mint(caller, account common.Address, amount *big.Int) error {
	if caller != t.minter || t.minter == (common.Address{}) {
		return ErrNotMinter
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.balances[account] = new(big.Int).Add(t.balance(account), amount)
	return nil
}

// Burn debits amount from account. Only the minter may call it, and only on
// burnable tokens.
func (t *Token) Burn(caller, account common.Address, amount *big.Int) error {
	if caller != t.minter || t.minter == (common.Address{}) {
		return ErrNotMinter
	}
	if !t.burnable {
		return ErrBurnDisabled
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	balance := t.balance(account)
	if balance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: have %s, burn %s", ErrInsufficientBalance, balance, amount)
	}
	t.balances[account] = new(big.Int).Sub(balance, amount)
	return nil
}

// Approve grants spender the right to pull up to amount from owner,
// replacing any prior grant.
func (t *Token) Approve(owner, spender common.Address, amount *big.Int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	grants, ok := t.allowances[owner]
	if !ok {
		grants = make(map[common.Address]*big.Int)
		t.allowances[owner] = grants
	}
	grants[spender] = new(big.Int).Set(amount)
}

// Transfer moves amount from the caller's own balance to recipient.
func (t *Token) Transfer(from, to common.Address, amount *big.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.move(from, to, amount)
}

// move debits from and credits to. Callers hold t.mu.
func (t *Token) move(from, to common.Address, amount *big.Int) error {
	balance := t.balance(from)
	if balance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance, balance, amount)
	}
	t.balances[from] = new(big.Int).Sub(balance, amount)
	t.balances[to] = new(big.Int).Add(t.balance(to), amount)
	return nil
}

// TransferFrom implements Ledger. The allowance check and both balance
// mutations happen under one lock; a failure leaves every balance and
// allowance unchanged.
func (t *Token) TransferFrom(_ context.Context, owner, spender, recipient common.Address, amount *big.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	allowance := t.allowance(owner, spender)
	if allowance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientAllowance, allowance, amount)
	}
	if err := t.move(owner, recipient, amount); err != nil {
		return err
	}
	t.allowances[owner][spender] = new(big.Int).Sub(allowance, amount)
	return nil
}

// BalanceOf implements Ledger.
func (t *Token) BalanceOf(_ context.Context, owner common.Address) (*big.Int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return new(big.Int).Set(t.balance(owner)), nil
}

// Allowance implements Ledger.
func (t *Token) Allowance(_ context.Context, owner, spender common.Address) (*big.Int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return new(big.Int).Set(t.allowance(owner, spender)), nil
}
