package provider_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uhyunpark/assetbuyer/pkg/order"
	"github.com/uhyunpark/assetbuyer/pkg/order/ordertest"
	"github.com/uhyunpark/assetbuyer/pkg/provider"
)

var (
	assetA = ordertest.ERC20(ordertest.ZRX)
	assetB = ordertest.ERC20(ordertest.WETH)
	assetC = ordertest.ERC20(ordertest.REP)
)

func salts(orders []order.SignedOrder) []int64 {
	out := make([]int64, len(orders))
	for i, o := range orders {
		out[i] = o.Salt.Int64()
	}
	return out
}

func TestBasicOrderProvider_Scenario(t *testing.T) {
	o1 := ordertest.New(assetA, assetB, 1)
	o2 := ordertest.New(assetB, assetA, 2)
	o3 := ordertest.New(assetA, assetB, 3)

	p, err := provider.NewBasicOrderProvider([]order.SignedOrder{o1, o2, o3})
	require.NoError(t, err)

	res, err := p.GetOrders(context.Background(), provider.Request{MakerAssetData: assetA, TakerAssetData: assetB})
	require.NoError(t, err)
	assert.Equal(t, []order.SignedOrder{o1, o3}, res.Orders)
}

func TestBasicOrderProvider_Subsequence(t *testing.T) {
	pairs := [][2]order.AssetData{
		{assetA, assetB}, {assetA, assetC}, {assetB, assetA}, {assetC, assetB},
		{assetA, assetB}, {assetC, assetA}, {assetA, assetB}, {assetB, assetC},
	}
	var inventory []order.SignedOrder
	for i, pr := range pairs {
		inventory = append(inventory, ordertest.New(pr[0], pr[1], int64(i)))
	}
	p, err := provider.NewBasicOrderProvider(inventory)
	require.NoError(t, err)

	assets := []order.AssetData{assetA, assetB, assetC}
	for _, maker := range assets {
		for _, taker := range assets {
			var want []int64
			for i, pr := range pairs {
				if pr[0].Equal(maker) && pr[1].Equal(taker) {
					want = append(want, int64(i))
				}
			}
			res, err := p.GetOrders(context.Background(), provider.Request{MakerAssetData: maker, TakerAssetData: taker})
			require.NoError(t, err)
			if want == nil {
				want = []int64{}
			}
			assert.Equal(t, want, salts(res.Orders), "maker=%s taker=%s", maker, taker)
		}
	}
}

func TestBasicOrderProvider_Idempotent(t *testing.T) {
	p, err := provider.NewBasicOrderProvider([]order.SignedOrder{
		ordertest.New(assetA, assetB, 1),
		ordertest.New(assetA, assetB, 2),
	})
	require.NoError(t, err)

	req := provider.Request{MakerAssetData: assetA, TakerAssetData: assetB}
	first, err := p.GetOrders(context.Background(), req)
	require.NoError(t, err)
	second, err := p.GetOrders(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestBasicOrderProvider_EmptyResult(t *testing.T) {
	p, err := provider.NewBasicOrderProvider([]order.SignedOrder{ordertest.New(assetA, assetB, 1)})
	require.NoError(t, err)

	res, err := p.GetOrders(context.Background(), provider.Request{MakerAssetData: assetC, TakerAssetData: assetA})
	require.NoError(t, err)
	require.NotNil(t, res.Orders)
	assert.Empty(t, res.Orders)

	empty, err := provider.NewBasicOrderProvider(nil)
	require.NoError(t, err)
	res, err = empty.GetOrders(context.Background(), provider.Request{MakerAssetData: assetA, TakerAssetData: assetB})
	require.NoError(t, err)
	assert.NotNil(t, res.Orders)
	assert.Empty(t, res.Orders)
}

func TestBasicOrderProvider_Duplicates(t *testing.T) {
	o1 := ordertest.New(assetA, assetB, 10)
	o2 := ordertest.New(assetA, assetB, 20)
	o2.MakerAssetAmount.SetInt64(999)
	dup := o1.Clone()

	p, err := provider.NewBasicOrderProvider([]order.SignedOrder{o1, o2, dup})
	require.NoError(t, err)

	res, err := p.GetOrders(context.Background(), provider.Request{MakerAssetData: assetA, TakerAssetData: assetB})
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 20, 10}, salts(res.Orders))
	assert.Equal(t, int64(999), res.Orders[1].MakerAssetAmount.Int64())
}

func TestBasicOrderProvider_ExactMatchOnly(t *testing.T) {
	// same token, one extra trailing byte
	aliased := append(assetA.Clone(), 0x00)
	p, err := provider.NewBasicOrderProvider([]order.SignedOrder{ordertest.New(aliased, assetB, 1)})
	require.NoError(t, err)

	res, err := p.GetOrders(context.Background(), provider.Request{MakerAssetData: assetA, TakerAssetData: assetB})
	require.NoError(t, err)
	assert.Empty(t, res.Orders)
}

func TestNewBasicOrderProvider_RejectsMalformed(t *testing.T) {
	bad := ordertest.New(assetA, assetB, 2)
	bad.MakerAssetData = nil

	p, err := provider.NewBasicOrderProvider([]order.SignedOrder{ordertest.New(assetA, assetB, 1), bad})
	assert.Nil(t, p)
	require.ErrorIs(t, err, order.ErrValidation)

	var verr *order.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "orders[1]", verr.Name)
	assert.Equal(t, "makerAssetData", verr.Field)
}

func TestBasicOrderProvider_RejectsMalformedRequest(t *testing.T) {
	p, err := provider.NewBasicOrderProvider([]order.SignedOrder{ordertest.New(assetA, assetB, 1)})
	require.NoError(t, err)

	res, err := p.GetOrders(context.Background(), provider.Request{MakerAssetData: assetA})
	assert.Nil(t, res)
	var verr *order.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "takerAssetData", verr.Field)

	_, err = p.GetOrders(context.Background(), provider.Request{TakerAssetData: assetB})
	assert.ErrorIs(t, err, order.ErrValidation)
}

func TestBasicOrderProvider_SnapshotIsolation(t *testing.T) {
	orders := []order.SignedOrder{ordertest.New(assetA, assetB, 1)}
	p, err := provider.NewBasicOrderProvider(orders)
	require.NoError(t, err)

	// mutate the caller's slice and the orders it points at
	orders[0] = ordertest.New(assetC, assetC, 2)
	req := provider.Request{MakerAssetData: assetA, TakerAssetData: assetB}
	res, err := p.GetOrders(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, res.Orders, 1)

	// mutating a result leaves the inventory alone
	res.Orders[0].MakerAssetData[0] = 0x00
	res.Orders[0].Salt.SetInt64(42)
	again, err := p.GetOrders(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, again.Orders, 1)
	assert.Equal(t, int64(1), again.Orders[0].Salt.Int64())

	all := p.Orders()
	all[0].Salt.SetInt64(77)
	assert.Equal(t, int64(1), p.Orders()[0].Salt.Int64())
	assert.Equal(t, 1, p.Len())
}

func TestBasicOrderProvider_ConcurrentQueries(t *testing.T) {
	var inventory []order.SignedOrder
	for i := 0; i < 50; i++ {
		if i%2 == 0 {
			inventory = append(inventory, ordertest.New(assetA, assetB, int64(i)))
		} else {
			inventory = append(inventory, ordertest.New(assetB, assetA, int64(i)))
		}
	}
	p, err := provider.NewBasicOrderProvider(inventory)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for g := 0; g < 32; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := 0; n < 100; n++ {
				res, err := p.GetOrders(context.Background(), provider.Request{MakerAssetData: assetA, TakerAssetData: assetB})
				if err != nil {
					errs <- err
					return
				}
				if len(res.Orders) != 25 {
					errs <- errors.New("unexpected result size")
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
}

func TestRequestFromJSON(t *testing.T) {
	req, err := provider.RequestFromJSON(order.AssetPairJSON{
		MakerAssetData: assetA.Hex(),
		TakerAssetData: assetB.Hex(),
	})
	require.NoError(t, err)
	assert.True(t, req.MakerAssetData.Equal(assetA))
	assert.True(t, req.TakerAssetData.Equal(assetB))

	_, err = provider.RequestFromJSON(order.AssetPairJSON{MakerAssetData: assetA.Hex()})
	assert.ErrorIs(t, err, order.ErrValidation)
}
