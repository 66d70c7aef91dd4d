package currency

import (
	"strings"

	decimal "github.com/shopspring/decimal"
)

// 货币换算：对外的金额统一为 decimal（各聚合商/钱包按自身精度传递），
// 系统内部统一使用"最小货币单位"的 int64（system minor unit）。
// 舍入规则：按币种精度四舍五入（half-up），默认两位小数。

// 零小数/特殊精度币种表；未列出的币种默认 2 位小数
var exponents = map[string]int32{
	"JPY": 0,
	"KRW": 0,
	"VND": 0,
	"CLP": 0,
	"IDR": 0,
	"UGX": 0,
	"BHD": 3,
	"KWD": 3,
	"TND": 3,
}

// Exponent 返回币种的小数位数（minor unit 指数）
func Exponent(code string) int32 {
	if e, ok := exponents[strings.ToUpper(strings.TrimSpace(code))]; ok {
		return e
	}
	return 2
}

// ToSystem 将外部 decimal 金额换算为系统最小单位整数。
// 例：EUR 10.555 -> 1056（half-up）
func ToSystem(amount decimal.Decimal, code string) int64 {
	// decimal.Round 对正数即 half-up；金额在本系统内恒为非负
	return amount.Shift(Exponent(code)).Round(0).IntPart()
}

// FromSystem 将系统最小单位整数换算回外部 decimal 金额
func FromSystem(minor int64, code string) decimal.Decimal {
	return decimal.NewFromInt(minor).Shift(-Exponent(code))
}

// VendorUnit 叠加在基础换算之上的"厂商自有单位"因子。
// Scale 表示 1 个厂商单位等于多少个系统最小单位（例如 evoplay 为 100）。
// Scale<=1 表示厂商金额即普通 decimal 金额（按币种精度换算）。
type VendorUnit struct {
	Scale int64
}

// FromVendor 将厂商侧数值换算为系统最小单位
func (u VendorUnit) FromVendor(amount decimal.Decimal, code string) int64 {
	if u.Scale > 1 {
		return amount.Mul(decimal.NewFromInt(u.Scale)).Round(0).IntPart()
	}
	return ToSystem(amount, code)
}

// ToVendor 将系统最小单位换算为厂商侧数值
func (u VendorUnit) ToVendor(minor int64, code string) decimal.Decimal {
	if u.Scale > 1 {
		return decimal.NewFromInt(minor).Div(decimal.NewFromInt(u.Scale))
	}
	return FromSystem(minor, code)
}
