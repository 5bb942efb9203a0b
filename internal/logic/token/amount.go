package token

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"token-deployer-sol/internal/xerr"
)

var maxUint64 = decimal.NewFromBigInt(new(big.Int).SetUint64(^uint64(0)), 0)

// ParseAmount 解析用户输入的整币数量，必须为正数
func ParseAmount(amount string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return decimal.Zero, xerr.Invalid("amount %q is not a number", amount)
	}
	if !d.IsPositive() {
		return decimal.Zero, xerr.Invalid("amount must be positive, got %s", amount)
	}
	return d, nil
}

// ScaleAmount 整币数量 × 10^decimals 得到最小单位；小数位超过精度或超出 uint64 都视为非法输入
func ScaleAmount(amount string, decimals uint8) (uint64, error) {
	d, err := ParseAmount(amount)
	if err != nil {
		return 0, err
	}
	scaled := d.Shift(int32(decimals))
	if !scaled.IsInteger() {
		return 0, xerr.Invalid("amount %s has more than %d decimal places", amount, decimals)
	}
	if scaled.GreaterThan(maxUint64) {
		return 0, xerr.Invalid("amount %s overflows u64 at %d decimals", amount, decimals)
	}
	return scaled.BigInt().Uint64(), nil
}

// FormatAmount 最小单位转回整币数量字符串
func FormatAmount(baseUnits uint64, decimals uint8) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(baseUnits), -int32(decimals)).String()
}
