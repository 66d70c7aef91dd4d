package helper

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount 解析外部金额字符串为 decimal；空串/非法格式返回 (zero, false)
func ParseAmount(s string) (decimal.Decimal, bool) {
	v, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, false
	}
	return v, true
}
