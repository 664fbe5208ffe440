package forwarder

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

// Transactor sends a state-changing call. Implementations sign for from and
// return once the transaction is accepted.
type Transactor interface {
	SendTransaction(ctx context.Context, from, to common.Address, value *big.Int, data []byte) (common.Hash, error)
}

// Caller runs a read-only call. *ethclient.Client satisfies it.
type Caller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}
