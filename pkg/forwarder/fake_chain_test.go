package forwarder

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/uhyunpark/assetbuyer/pkg/order"
)

// fakeChain executes token and Forwarder calldata against in-memory
// balances, enough to observe what a fill moves.
type fakeChain struct {
	mu          sync.Mutex
	forwarder   common.Address
	weth        common.Address
	balances    map[common.Address]map[common.Address]*big.Int // token → owner → balance
	allowances  map[common.Address]map[[2]common.Address]*big.Int
	sent        []sentTx
	initialized bool
}

type sentTx struct {
	from, to common.Address
	value    *big.Int
	data     []byte
}

func newFakeChain(forwarder, weth common.Address, tokens ...common.Address) *fakeChain {
	c := &fakeChain{
		forwarder:  forwarder,
		weth:       weth,
		balances:   make(map[common.Address]map[common.Address]*big.Int),
		allowances: make(map[common.Address]map[[2]common.Address]*big.Int),
	}
	for _, t := range append(tokens, weth) {
		c.balances[t] = make(map[common.Address]*big.Int)
		c.allowances[t] = make(map[[2]common.Address]*big.Int)
	}
	return c
}

func (c *fakeChain) balance(token, owner common.Address) *big.Int {
	if v, ok := c.balances[token][owner]; ok {
		return v
	}
	v := new(big.Int)
	c.balances[token][owner] = v
	return v
}

func (c *fakeChain) move(token, from, to common.Address, amount *big.Int) error {
	src := c.balance(token, from)
	if src.Cmp(amount) < 0 {
		return fmt.Errorf("insufficient %s balance for %s", token.Hex(), from.Hex())
	}
	src.Sub(src, amount)
	dst := c.balance(token, to)
	dst.Add(dst, amount)
	return nil
}

func (c *fakeChain) SendTransaction(_ context.Context, from, to common.Address, value *big.Int, data []byte) (common.Hash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sent = append(c.sent, sentTx{from: from, to: to, value: value, data: data})
	h := crypto.Keccak256Hash(data, from.Bytes(), big.NewInt(int64(len(c.sent))).Bytes())

	if to == c.forwarder {
		return h, c.execForwarder(from, value, data)
	}
	if _, ok := c.balances[to]; ok {
		return h, c.execToken(from, to, data)
	}
	return common.Hash{}, fmt.Errorf("no contract at %s", to.Hex())
}

func (c *fakeChain) execToken(from, token common.Address, data []byte) error {
	method, err := tokenABI.MethodById(data[:4])
	if err != nil {
		return err
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return err
	}
	addr := args[0].(common.Address)
	amount := abi.ConvertType(args[1], new(big.Int)).(*big.Int)
	switch method.Name {
	case "approve":
		c.allowances[token][[2]common.Address{from, addr}] = amount
	case "transfer":
		return c.move(token, from, addr, amount)
	case "setBalance":
		c.balances[token][addr] = new(big.Int).Set(amount)
	default:
		return fmt.Errorf("unexpected token method %s", method.Name)
	}
	return nil
}

func (c *fakeChain) execForwarder(taker common.Address, value *big.Int, data []byte) error {
	method, err := forwarderABI.MethodById(data[:4])
	if err != nil {
		return err
	}
	if method.Name == "initialize" {
		c.initialized = true
		return nil
	}
	if !c.initialized {
		return errors.New("forwarder not initialized")
	}
	call, err := DecodeFillOrder(data)
	if err != nil {
		return err
	}
	if value == nil || value.Cmp(call.TakerAssetFillAmount) != 0 {
		return errors.New("msg.value must equal fill amount")
	}
	makerAsset, err := order.DecodeAssetData(call.Order.MakerAssetData)
	if err != nil {
		return err
	}
	o := &order.SignedOrder{MakerAssetAmount: call.Order.MakerAssetAmount, TakerAssetAmount: call.Order.TakerAssetAmount}
	makerFill := MakerFillAmount(o, call.TakerAssetFillAmount)

	maker := call.Order.MakerAddress
	allowed := c.allowances[makerAsset.TokenAddress][[2]common.Address{maker, proxyAddress}]
	if allowed == nil || allowed.Cmp(makerFill) < 0 {
		return errors.New("maker allowance too low")
	}
	allowed.Sub(allowed, makerFill)

	// ETH is wrapped and paid to the maker; maker asset goes to the taker
	weth := c.balance(c.weth, maker)
	weth.Add(weth, call.TakerAssetFillAmount)
	return c.move(makerAsset.TokenAddress, maker, taker, makerFill)
}

func (c *fakeChain) CallContract(_ context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if call.To == nil {
		return nil, errors.New("call without target")
	}
	token := *call.To
	if _, ok := c.balances[token]; !ok {
		return nil, fmt.Errorf("no token at %s", token.Hex())
	}
	method, err := tokenABI.MethodById(call.Data[:4])
	if err != nil {
		return nil, err
	}
	args, err := method.Inputs.Unpack(call.Data[4:])
	if err != nil {
		return nil, err
	}
	var v *big.Int
	switch method.Name {
	case "balanceOf":
		v = new(big.Int).Set(c.balance(token, args[0].(common.Address)))
	case "allowance":
		v = c.allowances[token][[2]common.Address{args[0].(common.Address), args[1].(common.Address)}]
		if v == nil {
			v = new(big.Int)
		}
	default:
		return nil, fmt.Errorf("unexpected call %s", method.Name)
	}
	return method.Outputs.Pack(v)
}

// proxyAddress stands in for the asset proxy makers approve.
var proxyAddress = common.HexToAddress("0x00000000000000000000000000000000000000aa")
