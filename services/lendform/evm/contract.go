package evm

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// Transactor hands out signing options for the connected account.
type Transactor interface {
	Transactor(ctx context.Context) (*bind.TransactOpts, error)
}

// Contract submits approve on the token and lend on the lending contract.
type Contract struct {
	token   *bind.BoundContract
	lending *bind.BoundContract
	signer  Transactor
}

// NewContract binds the token and lending contract to backend.
func NewContract(backend bind.ContractBackend, token, lending common.Address, signer Transactor) (*Contract, error) {
	if backend == nil {
		return nil, fmt.Errorf("evm backend required")
	}
	if signer == nil {
		return nil, fmt.Errorf("transactor required")
	}
	tokenABI, err := parseABI("erc20", ERC20ApproveABI)
	if err != nil {
		return nil, err
	}
	lendingABI, err := parseABI("lending", CoreFiLendABI)
	if err != nil {
		return nil, err
	}
	return &Contract{
		token:   bind.NewBoundContract(token, tokenABI, backend, backend, backend),
		lending: bind.NewBoundContract(lending, lendingABI, backend, backend, backend),
		signer:  signer,
	}, nil
}

// Approve grants spender an allowance of amount token units.
func (c *Contract) Approve(ctx context.Context, spender common.Address, amount *big.Int) (common.Hash, error) {
	return c.transact(ctx, c.token, "approve", spender, amount)
}

// Lend deposits amount token units into the lending contract.
func (c *Contract) Lend(ctx context.Context, amount *big.Int) (common.Hash, error) {
	return c.transact(ctx, c.lending, "lend", amount)
}

func (c *Contract) transact(ctx context.Context, bound *bind.BoundContract, method string, params ...interface{}) (common.Hash, error) {
	opts, err := c.signer.Transactor(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	tx, err := bound.Transact(opts, method, params...)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%s: %w", method, err)
	}
	return tx.Hash(), nil
}
