package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/uhyunpark/assetbuyer/params"
	"github.com/uhyunpark/assetbuyer/pkg/order"
	"github.com/uhyunpark/assetbuyer/pkg/order/ordertest"
	"github.com/uhyunpark/assetbuyer/pkg/provider"
)

func writeOrders(t *testing.T, orders ...order.SignedOrder) string {
	t.Helper()
	data, err := json.Marshal(order.ToJSONList(orders))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "orders.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func query(t *testing.T, p provider.OrderProvider, maker, taker order.AssetData) []order.SignedOrder {
	t.Helper()
	resp, err := p.GetOrders(context.Background(), provider.Request{MakerAssetData: maker, TakerAssetData: taker})
	require.NoError(t, err)
	return resp.Orders
}

func TestBuildProviderFromFile(t *testing.T) {
	zrx, weth := ordertest.ERC20(ordertest.ZRX), ordertest.ERC20(ordertest.WETH)
	cfg := params.Default()
	cfg.Inventory.OrdersFile = writeOrders(t, ordertest.New(zrx, weth, 1), ordertest.New(weth, zrx, 2))

	p, err := buildProvider(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Len(t, query(t, p, zrx, weth), 1)
}

func TestBuildProviderSeedsStoreOnce(t *testing.T) {
	zrx, weth := ordertest.ERC20(ordertest.ZRX), ordertest.ERC20(ordertest.WETH)
	cfg := params.Default()
	cfg.Inventory.DBPath = filepath.Join(t.TempDir(), "inventory")
	cfg.Inventory.OrdersFile = writeOrders(t, ordertest.New(zrx, weth, 1))

	_, err := buildProvider(cfg, zap.NewNop())
	require.NoError(t, err)

	// a second start must not append the file again
	p, err := buildProvider(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Len(t, query(t, p, zrx, weth), 1)
}

func TestBuildProviderEmptyInventory(t *testing.T) {
	p, err := buildProvider(params.Default(), zap.NewNop())
	require.NoError(t, err)
	zrx, weth := ordertest.ERC20(ordertest.ZRX), ordertest.ERC20(ordertest.WETH)
	assert.Empty(t, query(t, p, zrx, weth))
}

func TestBuildProviderRelayer(t *testing.T) {
	cfg := params.Default()
	cfg.Relayer.URL = "https://relayer.example"
	p, err := buildProvider(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &provider.StandardRelayerOrderProvider{}, p)

	cfg.Relayer.URL = "ftp://relayer.example"
	_, err = buildProvider(cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestBuildProviderRejectsBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"makerAddress":"0x1"}]`), 0o644))
	cfg := params.Default()
	cfg.Inventory.OrdersFile = path

	_, err := buildProvider(cfg, zap.NewNop())
	assert.ErrorIs(t, err, order.ErrValidation)
}
