package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
)

// ErrWalletLocked is returned when signing is attempted before the account is unlocked.
var ErrWalletLocked = errors.New("wallet locked")

// KeystoreWallet signs with an account from a go-ethereum keystore directory.
// The wallet only reports an address once the account has been unlocked.
type KeystoreWallet struct {
	ks         *keystore.KeyStore
	account    accounts.Account
	chainID    *big.Int
	passphrase PassphraseSource

	mu       sync.RWMutex
	unlocked bool
}

// OpenKeystore loads the keystore at dir and selects account, or the first
// account when account is empty.
func OpenKeystore(dir, account string, chainID int64, passphrase PassphraseSource) (*KeystoreWallet, error) {
	return newKeystoreWallet(keystore.NewKeyStore(dir, keystore.StandardScryptN, keystore.StandardScryptP), account, chainID, passphrase)
}

func newKeystoreWallet(ks *keystore.KeyStore, account string, chainID int64, passphrase PassphraseSource) (*KeystoreWallet, error) {
	if chainID <= 0 {
		return nil, fmt.Errorf("chain id must be positive")
	}
	var selected accounts.Account
	if trimmed := strings.TrimSpace(account); trimmed != "" {
		found, err := ks.Find(accounts.Account{Address: common.HexToAddress(trimmed)})
		if err != nil {
			return nil, fmt.Errorf("find account %s: %w", trimmed, err)
		}
		selected = found
	} else {
		all := ks.Accounts()
		if len(all) == 0 {
			return nil, fmt.Errorf("keystore has no accounts")
		}
		selected = all[0]
	}
	return &KeystoreWallet{
		ks:         ks,
		account:    selected,
		chainID:    big.NewInt(chainID),
		passphrase: passphrase,
	}, nil
}

// Address returns the account address once the wallet is unlocked.
func (w *KeystoreWallet) Address() (common.Address, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if !w.unlocked {
		return common.Address{}, false
	}
	return w.account.Address, true
}

// Account returns the selected account address regardless of lock state.
func (w *KeystoreWallet) Account() common.Address {
	return w.account.Address
}

// Open asks the passphrase source for the account passphrase and unlocks it.
func (w *KeystoreWallet) Open(ctx context.Context) error {
	if w.passphrase == nil {
		return fmt.Errorf("no passphrase source configured")
	}
	pass, err := w.passphrase(ctx)
	if err != nil {
		return fmt.Errorf("read passphrase: %w", err)
	}
	return w.Unlock(pass)
}

// Unlock decrypts the account key with passphrase.
func (w *KeystoreWallet) Unlock(passphrase string) error {
	if err := w.ks.Unlock(w.account, passphrase); err != nil {
		return fmt.Errorf("unlock %s: %w", w.account.Address.Hex(), err)
	}
	w.mu.Lock()
	w.unlocked = true
	w.mu.Unlock()
	return nil
}

// Lock forgets the decrypted key.
func (w *KeystoreWallet) Lock() error {
	w.mu.Lock()
	w.unlocked = false
	w.mu.Unlock()
	return w.ks.Lock(w.account.Address)
}

// Transactor returns signing options bound to ctx.
func (w *KeystoreWallet) Transactor(ctx context.Context) (*bind.TransactOpts, error) {
	if _, ok := w.Address(); !ok {
		return nil, ErrWalletLocked
	}
	opts, err := bind.NewKeyStoreTransactorWithChainID(w.ks, w.account, w.chainID)
	if err != nil {
		return nil, fmt.Errorf("build transactor: %w", err)
	}
	opts.Context = ctx
	return opts, nil
}
