package forwarder

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/assetbuyer/pkg/order"
)

const orderTupleJSON = `{"name":"order","type":"tuple","components":[
	{"name":"makerAddress","type":"address"},
	{"name":"takerAddress","type":"address"},
	{"name":"feeRecipientAddress","type":"address"},
	{"name":"senderAddress","type":"address"},
	{"name":"makerAssetAmount","type":"uint256"},
	{"name":"takerAssetAmount","type":"uint256"},
	{"name":"makerFee","type":"uint256"},
	{"name":"takerFee","type":"uint256"},
	{"name":"expirationTimeSeconds","type":"uint256"},
	{"name":"salt","type":"uint256"},
	{"name":"makerAssetData","type":"bytes"},
	{"name":"takerAssetData","type":"bytes"}]}`

// ForwarderABI covers the Forwarder methods the wrapper calls.
const ForwarderABI = `[
	{"type":"function","name":"initialize","stateMutability":"nonpayable","inputs":[],"outputs":[]},
	{"type":"function","name":"fillOrder","stateMutability":"payable","inputs":[` + orderTupleJSON + `,
		{"name":"takerAssetFillAmount","type":"uint256"},
		{"name":"signature","type":"bytes"}],"outputs":[
		{"name":"makerAssetFilledAmount","type":"uint256"}]}
]`

// DummyTokenABI is ERC20 plus the setBalance hook of test tokens.
const DummyTokenABI = `[
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"balance","type":"uint256"}]},
	{"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"remaining","type":"uint256"}]},
	{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"value","type":"uint256"}],"outputs":[{"name":"success","type":"bool"}]},
	{"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"outputs":[{"name":"success","type":"bool"}]},
	{"type":"function","name":"setBalance","stateMutability":"nonpayable","inputs":[{"name":"target","type":"address"},{"name":"value","type":"uint256"}],"outputs":[]}
]`

var (
	forwarderABI = mustParseABI(ForwarderABI)
	tokenABI     = mustParseABI(DummyTokenABI)
)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(fmt.Errorf("parse abi: %w", err))
	}
	return parsed
}

// OrderTuple mirrors the Solidity Order struct for ABI packing.
type OrderTuple struct {
	MakerAddress          common.Address
	TakerAddress          common.Address
	FeeRecipientAddress   common.Address
	SenderAddress         common.Address
	MakerAssetAmount      *big.Int
	TakerAssetAmount      *big.Int
	MakerFee              *big.Int
	TakerFee              *big.Int
	ExpirationTimeSeconds *big.Int
	Salt                  *big.Int
	MakerAssetData        []byte
	TakerAssetData        []byte
}

func toTuple(o *order.SignedOrder) OrderTuple {
	return OrderTuple{
		MakerAddress:          o.MakerAddress,
		TakerAddress:          o.TakerAddress,
		FeeRecipientAddress:   o.FeeRecipientAddress,
		SenderAddress:         o.SenderAddress,
		MakerAssetAmount:      o.MakerAssetAmount,
		TakerAssetAmount:      o.TakerAssetAmount,
		MakerFee:              o.MakerFee,
		TakerFee:              o.TakerFee,
		ExpirationTimeSeconds: o.ExpirationTimeSeconds,
		Salt:                  o.Salt,
		MakerAssetData:        o.MakerAssetData,
		TakerAssetData:        o.TakerAssetData,
	}
}

// FillOrderCall is a decoded fillOrder calldata.
type FillOrderCall struct {
	Order                OrderTuple
	TakerAssetFillAmount *big.Int
	Signature            []byte
}

// DecodeFillOrder decodes fillOrder calldata, selector included.
func DecodeFillOrder(data []byte) (*FillOrderCall, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("calldata too short: %d bytes", len(data))
	}
	method, err := forwarderABI.MethodById(data[:4])
	if err != nil {
		return nil, err
	}
	if method.Name != "fillOrder" {
		return nil, fmt.Errorf("calldata is %s, not fillOrder", method.Name)
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, fmt.Errorf("unpack fillOrder: %w", err)
	}
	var call FillOrderCall
	if err := method.Inputs.Copy(&call, args); err != nil {
		return nil, fmt.Errorf("copy fillOrder args: %w", err)
	}
	return &call, nil
}
