package evm

import (
	"context"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

// recordingBackend answers the calls bind.BoundContract.Transact makes and
// captures the signed transactions.
type recordingBackend struct {
	bind.ContractBackend

	mu   sync.Mutex
	sent []*gethtypes.Transaction
}

func (b *recordingBackend) HeaderByNumber(context.Context, *big.Int) (*gethtypes.Header, error) {
	return &gethtypes.Header{Number: big.NewInt(1), BaseFee: big.NewInt(1_000_000_000)}, nil
}

func (b *recordingBackend) PendingCodeAt(context.Context, common.Address) ([]byte, error) {
	return []byte{0x60, 0x80}, nil
}

func (b *recordingBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return uint64(len(b.sent)), nil
}

func (b *recordingBackend) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(2_000_000_000), nil
}

func (b *recordingBackend) SuggestGasTipCap(context.Context) (*big.Int, error) {
	return big.NewInt(1), nil
}

func (b *recordingBackend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return 60_000, nil
}

func (b *recordingBackend) SendTransaction(_ context.Context, tx *gethtypes.Transaction) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, tx)
	return nil
}

func TestContractApproveAndLend(t *testing.T) {
	ks, address := newTestKeystore(t)
	wallet, err := newKeystoreWallet(ks, address, 31337, StaticPassphrase(testPassphrase))
	require.NoError(t, err)
	require.NoError(t, wallet.Open(context.Background()))

	backend := &recordingBackend{}
	token := common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	lending := common.HexToAddress("0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512")
	contract, err := NewContract(backend, token, lending, wallet)
	require.NoError(t, err)

	amount := big.NewInt(1_000_000_000)
	approveHash, err := contract.Approve(context.Background(), lending, amount)
	require.NoError(t, err)
	lendHash, err := contract.Lend(context.Background(), amount)
	require.NoError(t, err)

	require.Len(t, backend.sent, 2)
	approveTx, lendTx := backend.sent[0], backend.sent[1]
	require.Equal(t, approveHash, approveTx.Hash())
	require.Equal(t, lendHash, lendTx.Hash())
	require.Equal(t, token, *approveTx.To())
	require.Equal(t, lending, *lendTx.To())
	require.Equal(t, big.NewInt(31337), approveTx.ChainId())

	tokenABI, err := parseABI("erc20", ERC20ApproveABI)
	require.NoError(t, err)
	require.Equal(t, common.FromHex("0x095ea7b3"), approveTx.Data()[:4])
	args, err := tokenABI.Methods["approve"].Inputs.Unpack(approveTx.Data()[4:])
	require.NoError(t, err)
	require.Equal(t, lending, args[0])
	require.Equal(t, amount, args[1])

	lendingABI, err := parseABI("lending", CoreFiLendABI)
	require.NoError(t, err)
	require.Equal(t, lendingABI.Methods["lend"].ID, lendTx.Data()[:4])
	lendArgs, err := lendingABI.Methods["lend"].Inputs.Unpack(lendTx.Data()[4:])
	require.NoError(t, err)
	require.Equal(t, amount, lendArgs[0])

	sender, err := gethtypes.Sender(gethtypes.LatestSignerForChainID(big.NewInt(31337)), approveTx)
	require.NoError(t, err)
	require.Equal(t, address, sender.Hex())
}

func TestContractRequiresUnlockedWallet(t *testing.T) {
	ks, address := newTestKeystore(t)
	wallet, err := newKeystoreWallet(ks, address, 31337, nil)
	require.NoError(t, err)

	backend := &recordingBackend{}
	contract, err := NewContract(backend, common.Address{1}, common.Address{2}, wallet)
	require.NoError(t, err)

	_, err = contract.Approve(context.Background(), common.Address{2}, big.NewInt(1))
	require.ErrorIs(t, err, ErrWalletLocked)
	require.Empty(t, backend.sent)

	_, err = NewContract(nil, common.Address{1}, common.Address{2}, wallet)
	require.Error(t, err)
}
