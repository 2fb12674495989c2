// Package erc20 models the fungible-token surface the gateway escrows
// against: standard transfer/transferFrom semantics plus the optional
// name/symbol/decimals metadata probes.
package erc20

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrInvalidConfig         = errors.New("erc20: invalid config")
	ErrInvalidAmount         = errors.New("erc20: invalid amount")
	ErrUnknownToken          = errors.New("erc20: unknown token")
	ErrInsufficientBalance   = errors.New("erc20: insufficient balance")
	ErrInsufficientAllowance = errors.New("erc20: insufficient allowance")
)

// Token is the transferable surface of a single token contract. The token's
// own ledger is the source of truth for balances; callers never maintain a
// shadow counter.
type Token interface {
	// Transfer moves amount from the caller identity to the recipient.
	Transfer(ctx context.Context, from, to common.Address, amount *big.Int) error

	// TransferFrom moves amount from owner to the recipient on behalf of
	// spender, consuming spender's allowance.
	TransferFrom(ctx context.Context, spender, owner, to common.Address, amount *big.Int) error

	// BalanceOf reports the current ledger balance of addr.
	BalanceOf(ctx context.Context, addr common.Address) (*big.Int, error)
}

// Bank resolves a token address to its transferable surface.
type Bank interface {
	Token(addr common.Address) (Token, error)
}
