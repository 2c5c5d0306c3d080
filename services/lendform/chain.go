package lendform

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ErrNotConfigured is returned by the Func adapters when a callback is missing.
var ErrNotConfigured = errors.New("lendform: collaborator not configured")

// Wallet exposes the connected account and a way to ask the user to connect one.
type Wallet interface {
	Address() (common.Address, bool)
	Open(ctx context.Context) error
}

// Contract issues the two on-chain calls of a lend submission.
type Contract interface {
	Approve(ctx context.Context, spender common.Address, amount *big.Int) (common.Hash, error)
	Lend(ctx context.Context, amount *big.Int) (common.Hash, error)
}

// Confirmer blocks until a transaction is confirmed or fails.
type Confirmer interface {
	WaitForTransaction(ctx context.Context, hash common.Hash) error
}

// FuncWallet adapts callbacks to the Wallet interface.
type FuncWallet struct {
	AddressFunc func() (common.Address, bool)
	OpenFunc    func(ctx context.Context) error
}

// Address delegates to the configured callback.
func (w FuncWallet) Address() (common.Address, bool) {
	if w.AddressFunc == nil {
		return common.Address{}, false
	}
	return w.AddressFunc()
}

// Open delegates to the configured callback.
func (w FuncWallet) Open(ctx context.Context) error {
	if w.OpenFunc == nil {
		return ErrNotConfigured
	}
	return w.OpenFunc(ctx)
}

// FuncContract adapts callbacks to the Contract interface.
type FuncContract struct {
	ApproveFunc func(ctx context.Context, spender common.Address, amount *big.Int) (common.Hash, error)
	LendFunc    func(ctx context.Context, amount *big.Int) (common.Hash, error)
}

// Approve delegates to the configured callback.
func (c FuncContract) Approve(ctx context.Context, spender common.Address, amount *big.Int) (common.Hash, error) {
	if c.ApproveFunc == nil {
		return common.Hash{}, ErrNotConfigured
	}
	return c.ApproveFunc(ctx, spender, amount)
}

// Lend delegates to the configured callback.
func (c FuncContract) Lend(ctx context.Context, amount *big.Int) (common.Hash, error) {
	if c.LendFunc == nil {
		return common.Hash{}, ErrNotConfigured
	}
	return c.LendFunc(ctx, amount)
}

// ConfirmerFunc adapts a function to the Confirmer interface.
type ConfirmerFunc func(ctx context.Context, hash common.Hash) error

// WaitForTransaction calls f.
func (f ConfirmerFunc) WaitForTransaction(ctx context.Context, hash common.Hash) error {
	if f == nil {
		return ErrNotConfigured
	}
	return f(ctx, hash)
}
