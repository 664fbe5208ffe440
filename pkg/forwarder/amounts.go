package forwarder

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// DefaultDecimals is the decimals of WETH, ZRX and most ERC20 tokens.
const DefaultDecimals = 18

// ToBaseUnitAmount converts a human amount (e.g. 1.5 ZRX) into base units.
// Digits beyond the token's precision are truncated.
func ToBaseUnitAmount(amount decimal.Decimal, decimals int32) *big.Int {
	return amount.Shift(decimals).Truncate(0).BigInt()
}

// FromBaseUnitAmount is the inverse of ToBaseUnitAmount.
func FromBaseUnitAmount(amount *big.Int, decimals int32) decimal.Decimal {
	return decimal.NewFromBigInt(amount, -decimals)
}
