package lendform

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

var (
	testWallet  = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	testSpender = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	approveHash = common.HexToHash("0x01")
	lendHash    = common.HexToHash("0x02")
)

type fakeWallet struct {
	mu        sync.Mutex
	connected bool
	opens     int
	openErr   error
}

func (w *fakeWallet) Address() (common.Address, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.connected {
		return common.Address{}, false
	}
	return testWallet, true
}

func (w *fakeWallet) Open(context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.opens++
	return w.openErr
}

type call struct {
	method  string
	spender common.Address
	amount  *big.Int
}

type fakeContract struct {
	mu         sync.Mutex
	calls      []call
	approveErr error
	lendErr    error
	block      chan struct{}
	entered    chan struct{}
}

func (c *fakeContract) Approve(_ context.Context, spender common.Address, amount *big.Int) (common.Hash, error) {
	c.mu.Lock()
	c.calls = append(c.calls, call{method: "approve", spender: spender, amount: new(big.Int).Set(amount)})
	block, entered := c.block, c.entered
	c.mu.Unlock()
	if entered != nil {
		close(entered)
	}
	if block != nil {
		<-block
	}
	if c.approveErr != nil {
		return common.Hash{}, c.approveErr
	}
	return approveHash, nil
}

func (c *fakeContract) Lend(_ context.Context, amount *big.Int) (common.Hash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, call{method: "lend", amount: new(big.Int).Set(amount)})
	if c.lendErr != nil {
		return common.Hash{}, c.lendErr
	}
	return lendHash, nil
}

func (c *fakeContract) recorded() []call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]call(nil), c.calls...)
}

type toastRecorder struct {
	mu     sync.Mutex
	toasts []Toast
}

func (r *toastRecorder) Notify(t Toast) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, t)
}

func (r *toastRecorder) all() []Toast {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Toast(nil), r.toasts...)
}

var errInsufficientFunds = errors.New("insufficient funds for gas * price + value")

func fixedClock() func() time.Time {
	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return now }
}
