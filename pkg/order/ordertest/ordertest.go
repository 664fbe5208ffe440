// Package ordertest builds well-formed orders for tests.
package ordertest

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/assetbuyer/pkg/order"
)

var (
	Exchange = common.HexToAddress("0x48bacb9266a570d521063ef5dd96e61686dbe788")
	Maker    = common.HexToAddress("0x5409ed021d9299bf6814279a6a1411a7e866a631")
	WETH     = common.HexToAddress("0x0b1ba0af832d7c05fd64161e0db78e85978e8082")
	ZRX      = common.HexToAddress("0x871dd7c2b4b25e1aa18728e9d5f2af4c4e431f5c")
	REP      = common.HexToAddress("0x1dc4c1cefef38a777b15aa20260a54e584b16c48")
)

// New returns a valid order trading maker for taker. Salt distinguishes
// orders that share an asset pair.
func New(maker, taker order.AssetData, salt int64) order.SignedOrder {
	return order.SignedOrder{
		MakerAddress:          Maker,
		ExchangeAddress:       Exchange,
		MakerAssetAmount:      big.NewInt(200),
		TakerAssetAmount:      big.NewInt(100),
		MakerFee:              big.NewInt(0),
		TakerFee:              big.NewInt(0),
		ExpirationTimeSeconds: big.NewInt(1_900_000_000),
		Salt:                  big.NewInt(salt),
		MakerAssetData:        maker,
		TakerAssetData:        taker,
		Signature:             append(make([]byte, 65), 0x02),
	}
}

// ERC20 returns the asset data of token.
func ERC20(token common.Address) order.AssetData {
	return order.EncodeERC20AssetData(token)
}
