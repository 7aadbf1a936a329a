package strategy

import "github.com/shopspring/decimal"

// roundPrice 按品种 digits 精度吃掉浮点尾差，避免下游出现 1999.9999998。
func roundPrice(v float64, digits int) float64 {
	if digits < 0 {
		digits = 0
	}
	out, _ := decimal.NewFromFloat(v).Round(int32(digits)).Float64()
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
