package order

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// SignedOrder is a 0x v2 order together with the maker's signature.
// Only MakerAssetData and TakerAssetData take part in inventory queries;
// the other fields are carried untouched.
type SignedOrder struct {
	MakerAddress          common.Address
	TakerAddress          common.Address
	FeeRecipientAddress   common.Address
	SenderAddress         common.Address
	ExchangeAddress       common.Address
	MakerAssetAmount      *big.Int
	TakerAssetAmount      *big.Int
	MakerFee              *big.Int
	TakerFee              *big.Int
	ExpirationTimeSeconds *big.Int
	Salt                  *big.Int
	MakerAssetData        AssetData
	TakerAssetData        AssetData
	Signature             []byte
}

// Validate checks the shape of an order built in-process. Data crossing a
// trust boundary goes through ParseOrders instead, which checks the wire form.
func (o *SignedOrder) Validate(name string) error {
	if o == nil {
		return invalid(name, "", "order is nil")
	}
	if len(o.MakerAssetData) == 0 {
		return invalid(name, "makerAssetData", "required")
	}
	if len(o.TakerAssetData) == 0 {
		return invalid(name, "takerAssetData", "required")
	}
	amounts := []struct {
		field string
		v     *big.Int
	}{
		{"makerAssetAmount", o.MakerAssetAmount},
		{"takerAssetAmount", o.TakerAssetAmount},
		{"makerFee", o.MakerFee},
		{"takerFee", o.TakerFee},
		{"expirationTimeSeconds", o.ExpirationTimeSeconds},
		{"salt", o.Salt},
	}
	for _, a := range amounts {
		if a.v == nil {
			return invalid(name, a.field, "required")
		}
		if a.v.Sign() < 0 {
			return invalid(name, a.field, "must be a whole number")
		}
		if a.v.BitLen() > 256 {
			return invalid(name, a.field, "exceeds uint256")
		}
	}
	if len(o.Signature) == 0 {
		return invalid(name, "signature", "required")
	}
	return nil
}

// Clone returns a deep copy of o.
func (o SignedOrder) Clone() SignedOrder {
	c := o
	c.MakerAssetAmount = cloneInt(o.MakerAssetAmount)
	c.TakerAssetAmount = cloneInt(o.TakerAssetAmount)
	c.MakerFee = cloneInt(o.MakerFee)
	c.TakerFee = cloneInt(o.TakerFee)
	c.ExpirationTimeSeconds = cloneInt(o.ExpirationTimeSeconds)
	c.Salt = cloneInt(o.Salt)
	c.MakerAssetData = o.MakerAssetData.Clone()
	c.TakerAssetData = o.TakerAssetData.Clone()
	if o.Signature != nil {
		c.Signature = append([]byte{}, o.Signature...)
	}
	return c
}

// Matches reports whether o trades exactly the given maker and taker assets.
func (o *SignedOrder) Matches(makerAssetData, takerAssetData AssetData) bool {
	return o.MakerAssetData.Equal(makerAssetData) && o.TakerAssetData.Equal(takerAssetData)
}

func cloneInt(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}
