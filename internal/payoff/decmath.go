package payoff

import (
	"math"

	"github.com/shopspring/decimal"

	"legwork/internal/types"
)

func decFromFloat(val float64) decimal.Decimal {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(val)
}

func decToFloat(val decimal.Decimal) float64 {
	f, _ := val.Float64()
	return f
}

// roundTo rounds with decimal arithmetic so money values survive float
// noise (2.4999999998 -> 2.50).
func roundTo(val float64, places int32) float64 {
	return decToFloat(decFromFloat(val).Round(places))
}

// NetPremium returns the per-share net premium of the option legs: positive
// for a net credit, negative for a net debit. Stock legs do not contribute.
func NetPremium(legs []types.PricedLeg) float64 {
	total := decimal.Zero
	for _, leg := range legs {
		if !leg.Type.IsOption() {
			continue
		}
		amt := decFromFloat(leg.Price).Mul(decFromFloat(leg.Qty))
		if leg.Side == types.SideSell {
			total = total.Add(amt)
		} else {
			total = total.Sub(amt)
		}
	}
	return decToFloat(total)
}
