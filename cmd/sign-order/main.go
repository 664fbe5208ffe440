package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/uhyunpark/assetbuyer/pkg/crypto"
	"github.com/uhyunpark/assetbuyer/pkg/forwarder"
	"github.com/uhyunpark/assetbuyer/pkg/order"
)

// Kovan deployment defaults.
const (
	defaultExchange = "0x35dd2932454449b14cee11a94d3674a936d5d7b2"
	defaultZRX      = "0x2002d3812f58e35f0ea1ffbf80a75a38c32175fa"
	defaultWETH     = "0xd0a1e359811322d97991e03f863a0c30c2cf029c"
)

func main() {
	keyHex := flag.String("key", "", "maker private key (hex); a new key is generated when empty")
	exchange := flag.String("exchange", defaultExchange, "exchange contract address")
	makerToken := flag.String("maker-token", defaultZRX, "ERC20 token the maker sells")
	takerToken := flag.String("taker-token", defaultWETH, "ERC20 token the maker buys (WETH for Forwarder fills)")
	makerAmount := flag.String("maker-amount", "200", "maker amount in whole tokens")
	takerAmount := flag.String("taker-amount", "0.1", "taker amount in whole tokens")
	ttl := flag.Duration("ttl", 24*time.Hour, "order lifetime")
	flag.Parse()

	if err := run(*keyHex, *exchange, *makerToken, *takerToken, *makerAmount, *takerAmount, *ttl); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(keyHex, exchange, makerToken, takerToken, makerAmount, takerAmount string, ttl time.Duration) error {
	// Step 1: Generate or load key
	var (
		signer *crypto.Signer
		err    error
	)
	if keyHex == "" {
		signer, err = crypto.GenerateKey()
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Private Key: %s (KEEP SECRET!)\n", signer.PrivateKeyHex())
	} else if signer, err = crypto.FromPrivateKeyHex(keyHex); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Maker: %s\n", signer.Address().Hex())

	// Step 2: Create order
	for _, a := range []string{exchange, makerToken, takerToken} {
		if !common.IsHexAddress(a) {
			return fmt.Errorf("invalid address %q", a)
		}
	}
	makerUnits, err := decimal.NewFromString(makerAmount)
	if err != nil {
		return fmt.Errorf("maker amount: %w", err)
	}
	takerUnits, err := decimal.NewFromString(takerAmount)
	if err != nil {
		return fmt.Errorf("taker amount: %w", err)
	}
	salt, err := crypto.GenerateSalt()
	if err != nil {
		return err
	}

	o := order.SignedOrder{
		MakerAddress:          signer.Address(),
		ExchangeAddress:       common.HexToAddress(exchange),
		MakerAssetAmount:      forwarder.ToBaseUnitAmount(makerUnits, forwarder.DefaultDecimals),
		TakerAssetAmount:      forwarder.ToBaseUnitAmount(takerUnits, forwarder.DefaultDecimals),
		MakerFee:              new(big.Int),
		TakerFee:              new(big.Int),
		ExpirationTimeSeconds: big.NewInt(time.Now().Add(ttl).Unix()),
		Salt:                  salt,
		MakerAssetData:        order.EncodeERC20AssetData(common.HexToAddress(makerToken)),
		TakerAssetData:        order.EncodeERC20AssetData(common.HexToAddress(takerToken)),
	}

	// Step 3: Sign order with EIP-712
	if err := crypto.SignOrder(signer, &o); err != nil {
		return err
	}
	hash, err := crypto.HashOrder(&o)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Order Hash: %s\n", hash.Hex())

	// Step 4: Print as an ORDERS_FILE entry
	out, err := json.MarshalIndent([]order.OrderJSON{order.ToJSON(o)}, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
