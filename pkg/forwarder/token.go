package forwarder

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Token wraps an ERC20 contract. SetBalance only works against test tokens
// that expose it.
type Token struct {
	Address common.Address
	caller  Caller
	tx      Transactor
}

func NewToken(address common.Address, caller Caller, tx Transactor) *Token {
	return &Token{Address: address, caller: caller, tx: tx}
}

// BalanceOf reads owner's balance at the latest block.
func (t *Token) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	return t.callUint(ctx, "balanceOf", owner)
}

// Allowance reads how much spender may move on owner's behalf.
func (t *Token) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	return t.callUint(ctx, "allowance", owner, spender)
}

// Approve lets spender (normally the asset proxy) move amount of from's tokens.
func (t *Token) Approve(ctx context.Context, from, spender common.Address, amount *big.Int) (common.Hash, error) {
	return t.send(ctx, from, "approve", spender, amount)
}

// Transfer moves amount from from to to.
func (t *Token) Transfer(ctx context.Context, from, to common.Address, amount *big.Int) (common.Hash, error) {
	return t.send(ctx, from, "transfer", to, amount)
}

// SetBalance mints or burns so that target holds exactly amount.
func (t *Token) SetBalance(ctx context.Context, from, target common.Address, amount *big.Int) (common.Hash, error) {
	return t.send(ctx, from, "setBalance", target, amount)
}

func (t *Token) callUint(ctx context.Context, method string, args ...interface{}) (*big.Int, error) {
	data, err := tokenABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	to := t.Address
	out, err := t.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s on %s: %w", method, t.Address.Hex(), err)
	}
	res, err := tokenABI.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(res) != 1 {
		return nil, fmt.Errorf("%s returned %d values", method, len(res))
	}
	return abi.ConvertType(res[0], new(big.Int)).(*big.Int), nil
}

func (t *Token) send(ctx context.Context, from common.Address, method string, args ...interface{}) (common.Hash, error) {
	data, err := tokenABI.Pack(method, args...)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pack %s: %w", method, err)
	}
	h, err := t.tx.SendTransaction(ctx, from, t.Address, nil, data)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%s on %s: %w", method, t.Address.Hex(), err)
	}
	return h, nil
}
