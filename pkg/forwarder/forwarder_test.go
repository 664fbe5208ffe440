package forwarder

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uhyunpark/assetbuyer/pkg/order"
	"github.com/uhyunpark/assetbuyer/pkg/order/ordertest"
)

var (
	makerAddress        = common.HexToAddress("0x5409ed021d9299bf6814279a6a1411a7e866a631")
	tokenOwner          = makerAddress
	takerAddress        = common.HexToAddress("0x6ecbe1db9ef729cbe972c83fb886247691fb6beb")
	feeRecipientAddress = common.HexToAddress("0xe36ea790bc9d7ab70c55260c66d52b1eca985f84")
	forwarderAddress    = common.HexToAddress("0xb69e673309512a9d726f87304c6984054f87a93b")
)

type fixture struct {
	chain     *fakeChain
	rep       *Token
	zrx       *Token
	weth      *Token
	forwarder *Wrapper
	balances  *Balances
	order     order.SignedOrder
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	chain := newFakeChain(forwarderAddress, ordertest.WETH, ordertest.REP, ordertest.ZRX)

	f := &fixture{
		chain: chain,
		rep:   NewToken(ordertest.REP, chain, chain),
		zrx:   NewToken(ordertest.ZRX, chain, chain),
		weth:  NewToken(ordertest.WETH, chain, chain),
	}
	initial := ToBaseUnitAmount(decimal.NewFromInt(10000), DefaultDecimals)
	for _, tok := range []*Token{f.rep, f.zrx} {
		_, err := tok.Approve(ctx, makerAddress, proxyAddress, initial)
		require.NoError(t, err)
		_, err = tok.SetBalance(ctx, tokenOwner, makerAddress, initial)
		require.NoError(t, err)
	}

	f.forwarder = NewWrapper(forwarderAddress, chain)
	f.forwarder.WETH = ordertest.WETH
	_, err := f.forwarder.Initialize(ctx, tokenOwner)
	require.NoError(t, err)

	f.balances = NewBalances(
		[]*Token{f.rep, f.zrx, f.weth},
		[]common.Address{makerAddress, takerAddress, feeRecipientAddress, forwarderAddress},
	)

	f.order = ordertest.New(ordertest.ERC20(ordertest.REP), ordertest.ERC20(ordertest.WETH), 1)
	f.order.MakerAddress = makerAddress
	f.order.FeeRecipientAddress = feeRecipientAddress
	f.order.MakerAssetAmount = ToBaseUnitAmount(decimal.NewFromInt(200), DefaultDecimals)
	f.order.TakerAssetAmount = ToBaseUnitAmount(decimal.NewFromInt(100), DefaultDecimals)
	f.order.MakerFee = ToBaseUnitAmount(decimal.NewFromInt(1), DefaultDecimals)
	return f
}

func TestFillOrder(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	before, err := f.balances.Get(ctx)
	require.NoError(t, err)

	fillAmount := new(big.Int).Div(f.order.TakerAssetAmount, big.NewInt(2))
	_, err = f.forwarder.FillOrder(ctx, &f.order, fillAmount, takerAddress)
	require.NoError(t, err)

	after, err := f.balances.Get(ctx)
	require.NoError(t, err)

	makerTokenFillAmount := MakerFillAmount(&f.order, fillAmount)
	assert.Equal(t, ToBaseUnitAmount(decimal.NewFromInt(100), DefaultDecimals), makerTokenFillAmount)

	rep := ordertest.REP
	assert.Equal(t,
		new(big.Int).Sub(before.Get(makerAddress, rep), makerTokenFillAmount),
		after.Get(makerAddress, rep))
	assert.Equal(t,
		new(big.Int).Add(before.Get(takerAddress, rep), makerTokenFillAmount),
		after.Get(takerAddress, rep))
	assert.Equal(t,
		new(big.Int).Add(before.Get(makerAddress, ordertest.WETH), fillAmount),
		after.Get(makerAddress, ordertest.WETH))

	delta := before.Delta(after)
	assert.Zero(t, delta.Get(forwarderAddress, rep).Sign(), "forwarder must not keep tokens")
	assert.Zero(t, delta.Get(feeRecipientAddress, ordertest.ZRX).Sign())

	// the call carried the fill amount as ETH and the order unchanged
	last := f.chain.sent[len(f.chain.sent)-1]
	assert.Equal(t, takerAddress, last.from)
	assert.Equal(t, fillAmount, last.value)
	call, err := DecodeFillOrder(last.data)
	require.NoError(t, err)
	assert.Equal(t, fillAmount, call.TakerAssetFillAmount)
	assert.Equal(t, f.order.Signature, call.Signature)
	assert.Equal(t, []byte(f.order.MakerAssetData), call.Order.MakerAssetData)
	assert.Equal(t, f.order.Salt, call.Order.Salt)
}

func TestFillOrderConsumesAllowance(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	allowanceBefore, err := f.rep.Allowance(ctx, makerAddress, proxyAddress)
	require.NoError(t, err)

	fill := f.order.TakerAssetAmount
	_, err = f.forwarder.FillOrder(ctx, &f.order, fill, takerAddress)
	require.NoError(t, err)

	allowanceAfter, err := f.rep.Allowance(ctx, makerAddress, proxyAddress)
	require.NoError(t, err)
	assert.Equal(t, new(big.Int).Sub(allowanceBefore, f.order.MakerAssetAmount), allowanceAfter)
}

func TestFillOrderRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	sent := len(f.chain.sent)

	_, err := f.forwarder.FillOrder(ctx, &f.order, big.NewInt(0), takerAddress)
	assert.ErrorIs(t, err, ErrZeroFill)

	over := new(big.Int).Add(f.order.TakerAssetAmount, big.NewInt(1))
	_, err = f.forwarder.FillOrder(ctx, &f.order, over, takerAddress)
	assert.ErrorIs(t, err, ErrOverfill)

	zrxForRep := ordertest.New(ordertest.ERC20(ordertest.REP), ordertest.ERC20(ordertest.ZRX), 2)
	_, err = f.forwarder.FillOrder(ctx, &zrxForRep, big.NewInt(1), takerAddress)
	assert.ErrorIs(t, err, ErrNotWETHSide)

	broken := f.order.Clone()
	broken.Signature = nil
	_, err = f.forwarder.FillOrder(ctx, &broken, big.NewInt(1), takerAddress)
	assert.ErrorIs(t, err, order.ErrValidation)

	assert.Len(t, f.chain.sent, sent, "rejected fills must not reach the chain")
}

func TestTokenTransfer(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	amount := big.NewInt(12345)
	_, err := f.zrx.Transfer(ctx, makerAddress, takerAddress, amount)
	require.NoError(t, err)

	bal, err := f.zrx.BalanceOf(ctx, takerAddress)
	require.NoError(t, err)
	assert.Equal(t, amount, bal)
}

func TestMakerFillAmountRoundsDown(t *testing.T) {
	o := ordertest.New(ordertest.ERC20(ordertest.REP), ordertest.ERC20(ordertest.WETH), 1)
	o.MakerAssetAmount = big.NewInt(10)
	o.TakerAssetAmount = big.NewInt(3)

	assert.Equal(t, big.NewInt(3), MakerFillAmount(&o, big.NewInt(1)))
	assert.Equal(t, big.NewInt(6), MakerFillAmount(&o, big.NewInt(2)))

	o.TakerAssetAmount = big.NewInt(0)
	assert.Zero(t, MakerFillAmount(&o, big.NewInt(2)).Sign())
}

func TestByOwnerDelta(t *testing.T) {
	a, b := common.HexToAddress("0x01"), common.HexToAddress("0x02")
	tok := common.HexToAddress("0x03")

	before := ByOwner{a: {tok: big.NewInt(10)}}
	after := ByOwner{a: {tok: big.NewInt(4)}, b: {tok: big.NewInt(6)}}

	d := before.Delta(after)
	assert.Equal(t, big.NewInt(-6), d.Get(a, tok))
	assert.Equal(t, big.NewInt(6), d.Get(b, tok))
	assert.Zero(t, d.Get(b, common.HexToAddress("0x04")).Sign())
}

func TestBaseUnitAmounts(t *testing.T) {
	amt := ToBaseUnitAmount(decimal.RequireFromString("1.5"), DefaultDecimals)
	assert.Equal(t, "1500000000000000000", amt.String())

	// precision beyond the token is dropped
	assert.Equal(t, "1", ToBaseUnitAmount(decimal.RequireFromString("1.9"), 0).String())

	back := FromBaseUnitAmount(amt, DefaultDecimals)
	assert.True(t, back.Equal(decimal.RequireFromString("1.5")))
}

func TestDecodeFillOrderRejectsOtherCalls(t *testing.T) {
	data, err := forwarderABI.Pack("initialize")
	require.NoError(t, err)
	_, err = DecodeFillOrder(data)
	assert.Error(t, err)

	_, err = DecodeFillOrder([]byte{0x01})
	assert.Error(t, err)
}
