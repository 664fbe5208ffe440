// Package forwarder drives a 0x Forwarder contract, which lets a taker pay
// in ETH for orders whose taker asset is WETH, and keeps the balance
// bookkeeping needed to check what a fill moved.
package forwarder

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/assetbuyer/pkg/order"
)

var (
	ErrZeroFill    = errors.New("fill amount must be positive")
	ErrOverfill    = errors.New("fill amount exceeds order taker amount")
	ErrNotWETHSide = errors.New("order taker asset is not the forwarder's WETH")
)

// Wrapper sends Forwarder calls through a Transactor.
type Wrapper struct {
	Address common.Address
	// WETH is the ether token the Forwarder wraps ETH into. When set,
	// FillOrder refuses orders whose taker asset is anything else.
	WETH common.Address
	tx   Transactor
}

func NewWrapper(address common.Address, tx Transactor) *Wrapper {
	return &Wrapper{Address: address, tx: tx}
}

// Initialize sets the Forwarder's token approvals. It must be sent once
// after deployment, before any fill.
func (w *Wrapper) Initialize(ctx context.Context, from common.Address) (common.Hash, error) {
	data, err := forwarderABI.Pack("initialize")
	if err != nil {
		return common.Hash{}, fmt.Errorf("pack initialize: %w", err)
	}
	return w.tx.SendTransaction(ctx, from, w.Address, nil, data)
}

// FillOrder fills takerFillAmount of o on behalf of taker, sending the same
// amount of ETH for the Forwarder to wrap.
func (w *Wrapper) FillOrder(ctx context.Context, o *order.SignedOrder, takerFillAmount *big.Int, taker common.Address) (common.Hash, error) {
	if err := o.Validate("order"); err != nil {
		return common.Hash{}, err
	}
	if takerFillAmount == nil || takerFillAmount.Sign() <= 0 {
		return common.Hash{}, ErrZeroFill
	}
	if takerFillAmount.Cmp(o.TakerAssetAmount) > 0 {
		return common.Hash{}, ErrOverfill
	}
	if w.WETH != (common.Address{}) && !o.TakerAssetData.Equal(order.EncodeERC20AssetData(w.WETH)) {
		return common.Hash{}, ErrNotWETHSide
	}

	data, err := forwarderABI.Pack("fillOrder", toTuple(o), takerFillAmount, o.Signature)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pack fillOrder: %w", err)
	}
	h, err := w.tx.SendTransaction(ctx, taker, w.Address, new(big.Int).Set(takerFillAmount), data)
	if err != nil {
		return common.Hash{}, fmt.Errorf("fillOrder: %w", err)
	}
	return h, nil
}

// MakerFillAmount is the maker asset a taker receives for takerFillAmount,
// rounded down: takerFill * makerAssetAmount / takerAssetAmount.
func MakerFillAmount(o *order.SignedOrder, takerFillAmount *big.Int) *big.Int {
	if o.TakerAssetAmount == nil || o.TakerAssetAmount.Sign() == 0 {
		return new(big.Int)
	}
	out := new(big.Int).Mul(takerFillAmount, o.MakerAssetAmount)
	return out.Quo(out, o.TakerAssetAmount)
}
