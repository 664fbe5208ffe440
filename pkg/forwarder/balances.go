package forwarder

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ByOwner maps owner → token → balance.
type ByOwner map[common.Address]map[common.Address]*big.Int

// Get returns the recorded balance, zero if absent.
func (b ByOwner) Get(owner, token common.Address) *big.Int {
	if v, ok := b[owner][token]; ok {
		return new(big.Int).Set(v)
	}
	return new(big.Int)
}

// Delta returns after - b for every (owner, token) in either snapshot.
func (b ByOwner) Delta(after ByOwner) ByOwner {
	out := make(ByOwner)
	add := func(owner, token common.Address) {
		if out[owner] == nil {
			out[owner] = make(map[common.Address]*big.Int)
		}
		out[owner][token] = new(big.Int).Sub(after.Get(owner, token), b.Get(owner, token))
	}
	for owner, tokens := range b {
		for token := range tokens {
			add(owner, token)
		}
	}
	for owner, tokens := range after {
		for token := range tokens {
			add(owner, token)
		}
	}
	return out
}

// Balances snapshots a fixed set of token balances for a fixed set of owners.
type Balances struct {
	tokens []*Token
	owners []common.Address
}

func NewBalances(tokens []*Token, owners []common.Address) *Balances {
	return &Balances{tokens: tokens, owners: owners}
}

// Get reads every balance. Reads are independent calls, not an atomic
// snapshot; callers take them between transactions.
func (b *Balances) Get(ctx context.Context) (ByOwner, error) {
	out := make(ByOwner, len(b.owners))
	for _, owner := range b.owners {
		out[owner] = make(map[common.Address]*big.Int, len(b.tokens))
		for _, token := range b.tokens {
			bal, err := token.BalanceOf(ctx, owner)
			if err != nil {
				return nil, err
			}
			out[owner][token.Address] = bal
		}
	}
	return out, nil
}
