package payoff

import "legwork/internal/types"

// Simplified per-contract greek estimates by option type. These are fixed
// near-the-money approximations, not model outputs: the engine trades
// precision for leg-shape generality.
const (
	estCallDelta = 0.5
	estPutDelta  = -0.5
	estGamma     = 0.03
	estTheta     = -0.04
	estVega      = 0.08
)

// legGreeks returns the estimated greeks contribution of a single leg.
// Stock legs carry delta only; option legs scale the fixed estimates by
// side sign, qty and the contract multiplier.
func legGreeks(legType types.LegType, side types.LegSide, qty float64) types.Greeks {
	sign := side.Sign()
	switch legType {
	case types.LegStock:
		return types.Greeks{Delta: sign * qty}
	case types.LegCall, types.LegPut:
		delta := estCallDelta
		if legType == types.LegPut {
			delta = estPutDelta
		}
		scale := sign * qty * ContractMultiplier
		return types.Greeks{
			Delta: delta * scale,
			Gamma: estGamma * scale,
			Theta: estTheta * scale,
			Vega:  estVega * scale,
		}
	default:
		return types.Greeks{}
	}
}

// AggregateGreeks sums the per-leg estimates across a structure.
func AggregateGreeks(legs []types.PricedLeg) types.Greeks {
	var total types.Greeks
	for _, leg := range legs {
		g := legGreeks(leg.Type, leg.Side, leg.Qty)
		total.Delta += g.Delta
		total.Gamma += g.Gamma
		total.Theta += g.Theta
		total.Vega += g.Vega
	}
	return total
}

// AggregateTrackedGreeks is the same estimate over live position legs; the
// tracker refreshes the actual block with it.
func AggregateTrackedGreeks(legs []types.TrackedLeg) types.Greeks {
	var total types.Greeks
	for _, leg := range legs {
		g := legGreeks(leg.Type, leg.Side, leg.Qty)
		total.Delta += g.Delta
		total.Gamma += g.Gamma
		total.Theta += g.Theta
		total.Vega += g.Vega
	}
	return total
}
