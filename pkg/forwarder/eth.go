package forwarder

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// ErrTxFailed is returned when a mined transaction has a failed receipt.
var ErrTxFailed = errors.New("transaction reverted")

// EthBackend signs with locally held keys and talks to a JSON-RPC node.
// SendTransaction waits for the receipt so that balance reads that follow
// observe the transaction's effects.
type EthBackend struct {
	client  *ethclient.Client
	chainID *big.Int
	logger  *zap.Logger

	mu   sync.Mutex // one in-flight transaction per backend keeps nonces simple
	keys map[common.Address]*ecdsa.PrivateKey

	PollInterval time.Duration
}

// DialEthBackend connects to rpcURL and reads the chain id.
func DialEthBackend(ctx context.Context, rpcURL string, logger *zap.Logger) (*EthBackend, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", rpcURL, err)
	}
	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("chain id: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EthBackend{
		client:       client,
		chainID:      chainID,
		logger:       logger,
		keys:         make(map[common.Address]*ecdsa.PrivateKey),
		PollInterval: 200 * time.Millisecond,
	}, nil
}

// AddKey makes the backend able to send from the key's address.
func (b *EthBackend) AddKey(key *ecdsa.PrivateKey) common.Address {
	addr := crypto.PubkeyToAddress(key.PublicKey)
	b.mu.Lock()
	b.keys[addr] = key
	b.mu.Unlock()
	return addr
}

func (b *EthBackend) Close() { b.client.Close() }

// CallContract implements Caller.
func (b *EthBackend) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return b.client.CallContract(ctx, call, blockNumber)
}

// SendTransaction implements Transactor with an EIP-1559 transaction.
func (b *EthBackend) SendTransaction(ctx context.Context, from, to common.Address, value *big.Int, data []byte) (common.Hash, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key, ok := b.keys[from]
	if !ok {
		return common.Hash{}, fmt.Errorf("no key for %s", from.Hex())
	}
	if value == nil {
		value = new(big.Int)
	}

	nonce, err := b.client.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("nonce: %w", err)
	}
	tip, err := b.client.SuggestGasTipCap(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("gas tip: %w", err)
	}
	head, err := b.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return common.Hash{}, fmt.Errorf("head: %w", err)
	}
	baseFee := head.BaseFee
	if baseFee == nil {
		baseFee = new(big.Int)
	}
	feeCap := new(big.Int).Add(tip, new(big.Int).Mul(baseFee, big.NewInt(2)))
	gas, err := b.client.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &to, Value: value, Data: data})
	if err != nil {
		return common.Hash{}, fmt.Errorf("estimate gas: %w", err)
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   b.chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &to,
		Value:     value,
		Data:      data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(b.chainID), key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign tx: %w", err)
	}
	if err := b.client.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("send tx: %w", err)
	}

	receipt, err := b.waitMined(ctx, signed.Hash())
	if err != nil {
		return signed.Hash(), err
	}
	b.logger.Debug("tx_mined",
		zap.String("hash", signed.Hash().Hex()),
		zap.Uint64("block", receipt.BlockNumber.Uint64()),
		zap.Uint64("gas_used", receipt.GasUsed))
	if receipt.Status != types.ReceiptStatusSuccessful {
		return signed.Hash(), fmt.Errorf("%s: %w", signed.Hash().Hex(), ErrTxFailed)
	}
	return signed.Hash(), nil
}

func (b *EthBackend) waitMined(ctx context.Context, h common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(b.PollInterval)
	defer ticker.Stop()
	for {
		receipt, err := b.client.TransactionReceipt(ctx, h)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("receipt %s: %w", h.Hex(), err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

var (
	_ Transactor = (*EthBackend)(nil)
	_ Caller     = (*EthBackend)(nil)
)
