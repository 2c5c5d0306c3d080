package evm

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/ethclient"

	"corefi/services/lendform"
)

// Stack bundles the chain-facing collaborators built from configuration.
type Stack struct {
	Client    *ethclient.Client
	Wallet    *KeystoreWallet
	Contract  *Contract
	Confirmer *Confirmer
}

// Build dials the RPC endpoint and wires wallet, contract and confirmer.
func Build(ctx context.Context, cfg lendform.Config, passphrase PassphraseSource) (*Stack, error) {
	client, err := Dial(ctx, cfg.EVM.RPCURL)
	if err != nil {
		return nil, err
	}
	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("fetch chain id: %w", err)
	}
	if chainID.Int64() != cfg.EVM.ChainID {
		client.Close()
		return nil, fmt.Errorf("rpc chain id %s does not match configured %d", chainID, cfg.EVM.ChainID)
	}
	wallet, err := OpenKeystore(cfg.Wallet.KeystoreDir, cfg.Wallet.Account, cfg.EVM.ChainID, passphrase)
	if err != nil {
		client.Close()
		return nil, err
	}
	contract, err := NewContract(client, cfg.EVM.TokenAddress(), cfg.EVM.LendingAddress(), wallet)
	if err != nil {
		client.Close()
		return nil, err
	}
	return &Stack{
		Client:    client,
		Wallet:    wallet,
		Contract:  contract,
		Confirmer: NewConfirmer(client, cfg.EVM.Confirmations, cfg.EVM.PollInterval.Duration),
	}, nil
}

// Close releases the RPC connection.
func (s *Stack) Close() {
	if s != nil && s.Client != nil {
		s.Client.Close()
	}
}
