package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/uhyunpark/assetbuyer/params"
	"github.com/uhyunpark/assetbuyer/pkg/order"
	"github.com/uhyunpark/assetbuyer/pkg/provider"
	"github.com/uhyunpark/assetbuyer/pkg/storage"
)

// buildProvider picks the order source from cfg: a remote relayer when
// RELAYER_URL is set, otherwise the static inventory.
func buildProvider(cfg params.Config, logger *zap.Logger) (provider.OrderProvider, error) {
	sugar := logger.Sugar()
	if cfg.Relayer.URL != "" {
		p, err := provider.NewStandardRelayerOrderProvider(provider.RelayerConfig{
			BaseURL: cfg.Relayer.URL,
			PerPage: cfg.Relayer.PerPage,
			Timeout: cfg.Relayer.Timeout,
			Logger:  logger.Named("relayer"),
		})
		if err != nil {
			return nil, err
		}
		sugar.Infow("provider_selected", "kind", "relayer", "url", cfg.Relayer.URL, "per_page", cfg.Relayer.PerPage)
		return p, nil
	}

	orders, err := loadInventory(cfg.Inventory, sugar)
	if err != nil {
		return nil, err
	}
	p, err := provider.NewBasicOrderProvider(orders)
	if err != nil {
		return nil, fmt.Errorf("inventory rejected: %w", err)
	}
	sugar.Infow("provider_selected", "kind", "basic", "orders", p.Len())
	return p, nil
}

// loadInventory reads the static order set. With a store configured, the
// orders file seeds it once and the store is the source afterwards.
func loadInventory(inv params.Inventory, sugar *zap.SugaredLogger) ([]order.SignedOrder, error) {
	if inv.DBPath == "" {
		if inv.OrdersFile == "" {
			sugar.Warnw("inventory_empty", "reason", "neither ORDERS_FILE nor INVENTORY_DB is set")
			return nil, nil
		}
		orders, err := storage.ReadOrdersFile(inv.OrdersFile)
		if err != nil {
			return nil, err
		}
		sugar.Infow("inventory_loaded", "source", inv.OrdersFile, "orders", len(orders))
		return orders, nil
	}

	store, err := storage.NewPebbleStore(inv.DBPath)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	if store.Count() == 0 && inv.OrdersFile != "" {
		seed, err := storage.ReadOrdersFile(inv.OrdersFile)
		if err != nil {
			return nil, err
		}
		if err := store.AppendOrders(seed); err != nil {
			return nil, err
		}
		sugar.Infow("inventory_seeded", "source", inv.OrdersFile, "db", inv.DBPath, "orders", len(seed))
	}
	orders, err := store.LoadOrders()
	if err != nil {
		return nil, err
	}
	sugar.Infow("inventory_loaded", "source", inv.DBPath, "orders", len(orders))
	return orders, nil
}
