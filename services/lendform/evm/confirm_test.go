package evm

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

type scriptedReader struct {
	mu       sync.Mutex
	receipts []*gethtypes.Receipt
	errs     []error
	heads    []uint64
	calls    int
}

func (r *scriptedReader) TransactionReceipt(context.Context, common.Hash) (*gethtypes.Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.calls
	r.calls++
	if idx >= len(r.receipts) {
		idx = len(r.receipts) - 1
	}
	var err error
	if idx < len(r.errs) {
		err = r.errs[idx]
	}
	return r.receipts[idx], err
}

func (r *scriptedReader) BlockNumber(context.Context) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.heads) == 0 {
		return 0, errors.New("no head")
	}
	head := r.heads[0]
	if len(r.heads) > 1 {
		r.heads = r.heads[1:]
	}
	return head, nil
}

var txHash = common.HexToHash("0xabc")

func minedReceipt(status uint64, block int64) *gethtypes.Receipt {
	return &gethtypes.Receipt{Status: status, BlockNumber: big.NewInt(block), TxHash: txHash}
}

func TestConfirmerWaitsForReceipt(t *testing.T) {
	reader := &scriptedReader{
		receipts: []*gethtypes.Receipt{nil, nil, minedReceipt(gethtypes.ReceiptStatusSuccessful, 10)},
		errs:     []error{ethereum.NotFound, ethereum.NotFound, nil},
	}
	c := NewConfirmer(reader, 1, time.Millisecond)

	require.NoError(t, c.WaitForTransaction(context.Background(), txHash))
	require.Equal(t, 3, reader.calls)
}

func TestConfirmerReportsRevert(t *testing.T) {
	reader := &scriptedReader{receipts: []*gethtypes.Receipt{minedReceipt(gethtypes.ReceiptStatusFailed, 10)}}
	c := NewConfirmer(reader, 1, time.Millisecond)

	err := c.WaitForTransaction(context.Background(), txHash)
	require.ErrorIs(t, err, ErrTransactionReverted)
}

func TestConfirmerCountsConfirmations(t *testing.T) {
	reader := &scriptedReader{
		receipts: []*gethtypes.Receipt{minedReceipt(gethtypes.ReceiptStatusSuccessful, 10)},
		heads:    []uint64{9, 10, 11, 12},
	}
	c := NewConfirmer(reader, 3, time.Millisecond)

	require.NoError(t, c.WaitForTransaction(context.Background(), txHash))
	require.Equal(t, 4, reader.calls)
}

func TestConfirmerHonoursContext(t *testing.T) {
	reader := &scriptedReader{receipts: []*gethtypes.Receipt{nil}, errs: []error{ethereum.NotFound}}
	c := NewConfirmer(reader, 1, 5*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := c.WaitForTransaction(ctx, txHash)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestConfirmerSurfacesRPCErrors(t *testing.T) {
	reader := &scriptedReader{receipts: []*gethtypes.Receipt{nil}, errs: []error{errors.New("connection refused")}}
	c := NewConfirmer(reader, 1, time.Millisecond)

	err := c.WaitForTransaction(context.Background(), txHash)
	require.ErrorContains(t, err, "fetch receipt")
	require.Error(t, c.WaitForTransaction(context.Background(), common.Hash{}))
}
