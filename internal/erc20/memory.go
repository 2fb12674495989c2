package erc20

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Metadata is the optional descriptive triple a token may expose.
type Metadata struct {
	Name     string
	Symbol   string
	Decimals uint8
}

// MemoryToken is an in-process ERC20 ledger with standard balance and
// allowance semantics. It backs the devnet daemon and tests.
type MemoryToken struct {
	mu         sync.Mutex
	balances   map[common.Address]*big.Int
	allowances map[common.Address]map[common.Address]*big.Int

	meta    Metadata
	hasMeta bool
}

// NewMemoryToken creates a token without metadata accessors, modeling a
// nonstandard token whose probes fail.
func NewMemoryToken() *MemoryToken {
	return &MemoryToken{
		balances:   make(map[common.Address]*big.Int),
		allowances: make(map[common.Address]map[common.Address]*big.Int),
	}
}

// NewMemoryTokenWithMetadata creates a token that answers the metadata
// probes.
func NewMemoryTokenWithMetadata(md Metadata) *MemoryToken {
	t := NewMemoryToken()
	t.meta = md
	t.hasMeta = true
	return t
}

// Metadata reports the token's metadata and whether it exposes any.
func (t *MemoryToken) Metadata() (Metadata, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.meta, t.hasMeta
}

// Mint credits amount to addr.
func (t *MemoryToken) Mint(addr common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("%w: mint amount must be >= 0", ErrInvalidAmount)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.credit(addr, amount)
	return nil
}

// Approve sets spender's allowance over owner's balance.
func (t *MemoryToken) Approve(owner, spender common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("%w: allowance must be >= 0", ErrInvalidAmount)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	m := t.allowances[owner]
	if m == nil {
		m = make(map[common.Address]*big.Int)
		t.allowances[owner] = m
	}
	m[spender] = new(big.Int).Set(amount)
	return nil
}

// Allowance reports spender's remaining allowance over owner's balance.
func (t *MemoryToken) Allowance(owner, spender common.Address) *big.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if a, ok := t.allowances[owner][spender]; ok {
		return new(big.Int).Set(a)
	}
	return big.NewInt(0)
}

func (t *MemoryToken) BalanceOf(_ context.Context, addr common.Address) (*big.Int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if b, ok := t.balances[addr]; ok {
		return new(big.Int).Set(b), nil
	}
	return big.NewInt(0), nil
}

func (t *MemoryToken) Transfer(_ context.Context, from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("%w: transfer amount must be >= 0", ErrInvalidAmount)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.move(from, to, amount)
}

func (t *MemoryToken) TransferFrom(_ context.Context, spender, owner, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("%w: transfer amount must be >= 0", ErrInvalidAmount)
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	a, ok := t.allowances[owner][spender]
	if !ok || a.Cmp(amount) < 0 {
		return fmt.Errorf("%w: spender %s owner %s", ErrInsufficientAllowance, spender, owner)
	}
	if err := t.move(owner, to, amount); err != nil {
		return err
	}
	a.Sub(a, amount)
	return nil
}

// move debits from and credits to. Caller holds the lock.
func (t *MemoryToken) move(from, to common.Address, amount *big.Int) error {
	b, ok := t.balances[from]
	if !ok || b.Cmp(amount) < 0 {
		return fmt.Errorf("%w: holder %s", ErrInsufficientBalance, from)
	}
	b.Sub(b, amount)
	t.credit(to, amount)
	return nil
}

func (t *MemoryToken) credit(addr common.Address, amount *big.Int) {
	if b, ok := t.balances[addr]; ok {
		b.Add(b, amount)
		return
	}
	t.balances[addr] = new(big.Int).Set(amount)
}

// MemoryBank is an in-process token registry.
type MemoryBank struct {
	mu     sync.Mutex
	tokens map[common.Address]*MemoryToken
}

func NewMemoryBank() *MemoryBank {
	return &MemoryBank{tokens: make(map[common.Address]*MemoryToken)}
}

// Register adds or replaces the token at addr.
func (b *MemoryBank) Register(addr common.Address, t *MemoryToken) error {
	if t == nil {
		return fmt.Errorf("%w: nil token", ErrInvalidConfig)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens[addr] = t
	return nil
}

func (b *MemoryBank) Token(addr common.Address) (Token, error) {
	t, ok := b.lookup(addr)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownToken, addr)
	}
	return t, nil
}

// MemoryTokenAt returns the concrete memory token at addr, for devnet
// mint/approve plumbing.
func (b *MemoryBank) MemoryTokenAt(addr common.Address) (*MemoryToken, bool) {
	return b.lookup(addr)
}

func (b *MemoryBank) lookup(addr common.Address) (*MemoryToken, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.tokens[addr]
	return t, ok
}
