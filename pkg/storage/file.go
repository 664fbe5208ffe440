package storage

import (
	"fmt"
	"os"

	"github.com/uhyunpark/assetbuyer/pkg/order"
)

// ReadOrdersFile loads a JSON array of wire orders. The file is untrusted
// input, so every record is validated.
func ReadOrdersFile(path string) ([]order.SignedOrder, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read orders file: %w", err)
	}
	orders, err := order.ParseOrders(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return orders, nil
}
