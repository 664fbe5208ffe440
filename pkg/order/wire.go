package order

import (
	"encoding/json"
	"fmt"
	"math/big"
	"reflect"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/go-playground/validator/v10"
)

// OrderJSON is the wire form of a SignedOrder, as exchanged with relayers
// and stored on disk. Addresses and hex are lowercase, amounts are base-10
// strings.
type OrderJSON struct {
	MakerAddress          string `json:"makerAddress" validate:"required,address"`
	TakerAddress          string `json:"takerAddress" validate:"required,address"`
	FeeRecipientAddress   string `json:"feeRecipientAddress" validate:"required,address"`
	SenderAddress         string `json:"senderAddress" validate:"required,address"`
	ExchangeAddress       string `json:"exchangeAddress" validate:"required,address"`
	MakerAssetAmount      string `json:"makerAssetAmount" validate:"required,wholenumber"`
	TakerAssetAmount      string `json:"takerAssetAmount" validate:"required,wholenumber"`
	MakerFee              string `json:"makerFee" validate:"required,wholenumber"`
	TakerFee              string `json:"takerFee" validate:"required,wholenumber"`
	ExpirationTimeSeconds string `json:"expirationTimeSeconds" validate:"required,wholenumber"`
	Salt                  string `json:"salt" validate:"required,wholenumber"`
	MakerAssetData        string `json:"makerAssetData" validate:"required,hexdata"`
	TakerAssetData        string `json:"takerAssetData" validate:"required,hexdata"`
	Signature             string `json:"signature" validate:"required,hexdata"`
}

// AssetPairJSON is the wire form of an inventory query.
type AssetPairJSON struct {
	MakerAssetData string `json:"makerAssetData" validate:"required,hexdata"`
	TakerAssetData string `json:"takerAssetData" validate:"required,hexdata"`
}

var (
	addressPattern     = regexp.MustCompile(`^0x[0-9a-f]{40}$`)
	hexDataPattern     = regexp.MustCompile(`^0x([0-9a-f]{2})+$`)
	wholeNumberPattern = regexp.MustCompile(`^\d+$`)

	validate = newValidator()
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	register := func(tag string, re *regexp.Regexp) {
		if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return re.MatchString(fl.Field().String())
		}); err != nil {
			panic(fmt.Errorf("register %s: %w", tag, err))
		}
	}
	register("address", addressPattern)
	register("hexdata", hexDataPattern)
	register("wholenumber", wholeNumberPattern)
	return v
}

func checkStruct(name string, s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return invalid(name, "", err.Error())
	}
	fe := verrs[0]
	if fe.Tag() == "required" {
		return invalid(name, fe.Field(), "required")
	}
	return invalid(name, fe.Field(), fmt.Sprintf("%q does not match %s", fe.Value(), fe.Tag()))
}

// ParseOrders decodes a JSON array of wire orders. The batch is accepted
// only if every element is well formed; the first bad element is reported.
func ParseOrders(data []byte) ([]SignedOrder, error) {
	var raw []*OrderJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, invalid("orders", "", err.Error())
	}
	orders := make([]SignedOrder, 0, len(raw))
	for i, r := range raw {
		o, err := r.toOrder(fmt.Sprintf("orders[%d]", i))
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// ParseOrder decodes and validates a single wire order.
func ParseOrder(data []byte) (SignedOrder, error) {
	var raw *OrderJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return SignedOrder{}, invalid("order", "", err.Error())
	}
	return raw.toOrder("order")
}

// ToOrder validates j and converts it to a SignedOrder.
func (j *OrderJSON) ToOrder() (SignedOrder, error) {
	return j.toOrder("order")
}

func (j *OrderJSON) toOrder(name string) (SignedOrder, error) {
	if j == nil {
		return SignedOrder{}, invalid(name, "", "order is null")
	}
	if err := checkStruct(name, j); err != nil {
		return SignedOrder{}, err
	}

	o := SignedOrder{
		MakerAddress:        common.HexToAddress(j.MakerAddress),
		TakerAddress:        common.HexToAddress(j.TakerAddress),
		FeeRecipientAddress: common.HexToAddress(j.FeeRecipientAddress),
		SenderAddress:       common.HexToAddress(j.SenderAddress),
		ExchangeAddress:     common.HexToAddress(j.ExchangeAddress),
	}
	ints := []struct {
		field string
		src   string
		dst   **big.Int
	}{
		{"makerAssetAmount", j.MakerAssetAmount, &o.MakerAssetAmount},
		{"takerAssetAmount", j.TakerAssetAmount, &o.TakerAssetAmount},
		{"makerFee", j.MakerFee, &o.MakerFee},
		{"takerFee", j.TakerFee, &o.TakerFee},
		{"expirationTimeSeconds", j.ExpirationTimeSeconds, &o.ExpirationTimeSeconds},
		{"salt", j.Salt, &o.Salt},
	}
	for _, n := range ints {
		v, ok := new(big.Int).SetString(n.src, 10)
		if !ok {
			return SignedOrder{}, invalid(name, n.field, "not a base-10 integer")
		}
		if v.BitLen() > 256 {
			return SignedOrder{}, invalid(name, n.field, "exceeds uint256")
		}
		*n.dst = v
	}
	var err error
	if o.MakerAssetData, err = hexutil.Decode(j.MakerAssetData); err != nil {
		return SignedOrder{}, invalid(name, "makerAssetData", err.Error())
	}
	if o.TakerAssetData, err = hexutil.Decode(j.TakerAssetData); err != nil {
		return SignedOrder{}, invalid(name, "takerAssetData", err.Error())
	}
	if o.Signature, err = hexutil.Decode(j.Signature); err != nil {
		return SignedOrder{}, invalid(name, "signature", err.Error())
	}
	return o, nil
}

// ToJSON converts o to its wire form.
func ToJSON(o SignedOrder) OrderJSON {
	return OrderJSON{
		MakerAddress:          lowerHex(o.MakerAddress),
		TakerAddress:          lowerHex(o.TakerAddress),
		FeeRecipientAddress:   lowerHex(o.FeeRecipientAddress),
		SenderAddress:         lowerHex(o.SenderAddress),
		ExchangeAddress:       lowerHex(o.ExchangeAddress),
		MakerAssetAmount:      intString(o.MakerAssetAmount),
		TakerAssetAmount:      intString(o.TakerAssetAmount),
		MakerFee:              intString(o.MakerFee),
		TakerFee:              intString(o.TakerFee),
		ExpirationTimeSeconds: intString(o.ExpirationTimeSeconds),
		Salt:                  intString(o.Salt),
		MakerAssetData:        o.MakerAssetData.Hex(),
		TakerAssetData:        o.TakerAssetData.Hex(),
		Signature:             hexutil.Encode(o.Signature),
	}
}

// ToJSONList converts orders to wire form, keeping their order. The result
// is never nil so it encodes as [] when empty.
func ToJSONList(orders []SignedOrder) []OrderJSON {
	out := make([]OrderJSON, len(orders))
	for i, o := range orders {
		out[i] = ToJSON(o)
	}
	return out
}

// ParseAssetPair validates a wire query and decodes its two asset data fields.
func ParseAssetPair(name string, p AssetPairJSON) (maker, taker AssetData, err error) {
	if err := checkStruct(name, &p); err != nil {
		return nil, nil, err
	}
	if maker, err = hexutil.Decode(p.MakerAssetData); err != nil {
		return nil, nil, invalid(name, "makerAssetData", err.Error())
	}
	if taker, err = hexutil.Decode(p.TakerAssetData); err != nil {
		return nil, nil, invalid(name, "takerAssetData", err.Error())
	}
	return maker, taker, nil
}

func lowerHex(a common.Address) string {
	return strings.ToLower(a.Hex())
}

func intString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
