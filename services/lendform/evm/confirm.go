package evm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
)

// ErrTransactionReverted is returned when a mined transaction has a failed status.
var ErrTransactionReverted = errors.New("execution reverted")

// ReceiptReader is the subset of the Ethereum RPC the confirmer polls.
type ReceiptReader interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// Confirmer waits until a transaction is mined successfully and buried under
// the configured number of blocks.
type Confirmer struct {
	client        ReceiptReader
	confirmations uint64
	pollInterval  time.Duration
}

// NewConfirmer builds a confirmer. Zero confirmations is treated as one.
func NewConfirmer(client ReceiptReader, confirmations uint64, pollInterval time.Duration) *Confirmer {
	if confirmations == 0 {
		confirmations = 1
	}
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &Confirmer{client: client, confirmations: confirmations, pollInterval: pollInterval}
}

// WaitForTransaction blocks until hash is confirmed, reverts, or ctx ends.
func (c *Confirmer) WaitForTransaction(ctx context.Context, hash common.Hash) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("evm confirmer not initialised")
	}
	if (hash == common.Hash{}) {
		return fmt.Errorf("tx hash required")
	}
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		done, err := c.confirmed(ctx, hash)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for %s: %w", hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *Confirmer) confirmed(ctx context.Context, hash common.Hash) (bool, error) {
	receipt, err := c.client.TransactionReceipt(ctx, hash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return false, nil
		}
		return false, fmt.Errorf("fetch receipt: %w", err)
	}
	if receipt == nil {
		return false, nil
	}
	if receipt.Status != gethtypes.ReceiptStatusSuccessful {
		return false, fmt.Errorf("transaction %s: %w", hash.Hex(), ErrTransactionReverted)
	}
	if c.confirmations <= 1 {
		return true, nil
	}
	if receipt.BlockNumber == nil {
		return false, fmt.Errorf("block metadata unavailable")
	}
	head, err := c.client.BlockNumber(ctx)
	if err != nil {
		return false, fmt.Errorf("fetch head: %w", err)
	}
	mined := receipt.BlockNumber.Uint64()
	if head < mined {
		return false, nil
	}
	return head-mined+1 >= c.confirmations, nil
}
