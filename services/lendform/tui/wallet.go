package tui

import (
	"context"

	"corefi/services/lendform"
)

// Unlocker is a wallet that can be unlocked with a passphrase typed by the user.
type Unlocker interface {
	lendform.Wallet
	Unlock(passphrase string) error
}

// PromptWallet turns Open into a request for the model to show the
// passphrase field. Open never blocks.
type PromptWallet struct {
	Unlocker
	requests chan struct{}
}

// NewPromptWallet wraps w.
func NewPromptWallet(w Unlocker) *PromptWallet {
	return &PromptWallet{Unlocker: w, requests: make(chan struct{}, 1)}
}

// Open queues a connect request; repeated calls collapse into one.
func (p *PromptWallet) Open(context.Context) error {
	select {
	case p.requests <- struct{}{}:
	default:
	}
	return nil
}

// Requests delivers connect requests to the model.
func (p *PromptWallet) Requests() <-chan struct{} {
	return p.requests
}
