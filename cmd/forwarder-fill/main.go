package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/big"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/uhyunpark/assetbuyer/params"
	"github.com/uhyunpark/assetbuyer/pkg/crypto"
	"github.com/uhyunpark/assetbuyer/pkg/forwarder"
	"github.com/uhyunpark/assetbuyer/pkg/order"
	"github.com/uhyunpark/assetbuyer/pkg/util"
)

func main() {
	orderPath := flag.String("order", "", "file holding one wire order (as printed by sign-order)")
	fill := flag.String("fill", "", "taker amount to fill in whole tokens; the whole order when empty")
	timeout := flag.Duration("timeout", 2*time.Minute, "give up after this long")
	flag.Parse()

	cfg, err := params.LoadFromEnv("")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := util.NewLogger(cfg.Log.Level)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, cfg.Forwarder, *orderPath, *fill, logger); err != nil {
		logger.Sugar().Errorw("fill_failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg params.Forwarder, orderPath, fill string, logger *zap.Logger) error {
	sugar := logger.Sugar()
	if orderPath == "" {
		return errors.New("-order is required")
	}
	if cfg.Address == (common.Address{}) {
		return errors.New("FORWARDER_ADDRESS is not set")
	}
	if cfg.PrivateKey == "" {
		return errors.New("TAKER_PRIVATE_KEY is not set")
	}

	data, err := os.ReadFile(orderPath)
	if err != nil {
		return err
	}
	o, err := order.ParseOrder(data)
	if err != nil {
		return err
	}
	if ok, err := crypto.VerifyOrderSignature(&o); err != nil || !ok {
		sugar.Warnw("order_signature_unverified", "maker", o.MakerAddress.Hex(), "err", err)
	}

	takerFill := o.TakerAssetAmount
	if fill != "" {
		units, err := decimal.NewFromString(fill)
		if err != nil {
			return fmt.Errorf("fill amount: %w", err)
		}
		takerFill = forwarder.ToBaseUnitAmount(units, forwarder.DefaultDecimals)
	}

	taker, err := crypto.FromPrivateKeyHex(cfg.PrivateKey)
	if err != nil {
		return err
	}
	backend, err := forwarder.DialEthBackend(ctx, cfg.RPCURL, logger.Named("eth"))
	if err != nil {
		return err
	}
	defer backend.Close()
	backend.AddKey(taker.PrivateKey())

	makerAsset, err := order.DecodeAssetData(o.MakerAssetData)
	if err != nil {
		return fmt.Errorf("maker asset: %w", err)
	}
	if !makerAsset.IsERC20() {
		return errors.New("only ERC20 maker assets are supported")
	}
	makerToken := forwarder.NewToken(makerAsset.TokenAddress, backend, backend)
	tokens := []*forwarder.Token{makerToken}
	if cfg.WETH != (common.Address{}) {
		tokens = append(tokens, forwarder.NewToken(cfg.WETH, backend, backend))
	}
	balances := forwarder.NewBalances(tokens, []common.Address{o.MakerAddress, taker.Address(), cfg.Address})

	before, err := balances.Get(ctx)
	if err != nil {
		return err
	}

	w := forwarder.NewWrapper(cfg.Address, backend)
	w.WETH = cfg.WETH
	h, err := w.FillOrder(ctx, &o, takerFill, taker.Address())
	if err != nil {
		return err
	}
	sugar.Infow("order_filled",
		"tx", h.Hex(),
		"taker_fill", takerFill.String(),
		"expected_maker_fill", forwarder.MakerFillAmount(&o, takerFill).String())

	after, err := balances.Get(ctx)
	if err != nil {
		return err
	}
	delta := before.Delta(after)
	for _, owner := range []common.Address{o.MakerAddress, taker.Address(), cfg.Address} {
		for _, t := range tokens {
			d := delta.Get(owner, t.Address)
			if d.Sign() == 0 {
				continue
			}
			fmt.Printf("%s %s %s\n", owner.Hex(), t.Address.Hex(), signed(d))
		}
	}
	return nil
}

func signed(v *big.Int) string {
	s := forwarder.FromBaseUnitAmount(v, forwarder.DefaultDecimals).String()
	if v.Sign() > 0 {
		return "+" + s
	}
	return s
}
