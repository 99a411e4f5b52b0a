// Package pricing は税込価格計算と通貨丸めの純粋関数を持ちます。
package pricing

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"
)

// 入力が負数・NaN・Infのとき返す。
var ErrInvalidInput = errors.New("invalid price input")

// RoundUpToCents は小数2桁へ切り上げる。
// 結果は常に x 以上で、差は0.01未満。2桁に揃った値はそのまま返る。
func RoundUpToCents(x float64) (float64, error) {
	if x < 0 || math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, ErrInvalidInput
	}
	d := decimal.NewFromFloat(x)
	ceiled := d.Mul(decimal.NewFromInt(100)).Ceil().Div(decimal.NewFromInt(100))
	return ceiled.InexactFloat64(), nil
}

// PriceWithTax は税抜価格に税率（パーセント）を掛けて切り上げた税込価格を返す。
func PriceWithTax(basePrice float64, taxRatePercent float64) (float64, error) {
	if basePrice < 0 || taxRatePercent < 0 ||
		math.IsNaN(basePrice) || math.IsInf(basePrice, 0) ||
		math.IsNaN(taxRatePercent) || math.IsInf(taxRatePercent, 0) {
		return 0, ErrInvalidInput
	}

	base := decimal.NewFromFloat(basePrice)
	rate := decimal.NewFromFloat(taxRatePercent).Div(decimal.NewFromInt(100))
	taxed := base.Mul(decimal.NewFromInt(1).Add(rate))

	return RoundUpToCents(taxed.InexactFloat64())
}

// LinesTotal はΣ(price×quantity)を2桁切り上げで返す。
// 各priceは既に2桁に揃っている前提だが、合算はdecimalで行う。
func LinesTotal(prices []float64, quantities []int64) float64 {
	sum := decimal.Zero
	for i := range prices {
		q := decimal.NewFromInt(quantities[i])
		sum = sum.Add(decimal.NewFromFloat(prices[i]).Mul(q))
	}
	ceiled := sum.Mul(decimal.NewFromInt(100)).Ceil().Div(decimal.NewFromInt(100))
	return ceiled.InexactFloat64()
}
