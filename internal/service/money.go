package service

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// ToMinorUnits переводит цену в копейки/пенсы с округлением половины от нуля.
func ToMinorUnits(price decimal.Decimal) int64 {
	return price.Mul(hundred).Round(0).IntPart()
}

func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

// LineMinor: сумма строки в минимальных единицах: сначала цена в копейки, потом умножение.
func LineMinor(price decimal.Decimal, qty int32) int64 {
	return ToMinorUnits(price) * int64(qty)
}
