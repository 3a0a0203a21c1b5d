package payoff

import (
	"testing"

	"legwork/internal/types"

	"github.com/stretchr/testify/assert"
)

func TestAggregateGreeksSigns(t *testing.T) {
	longCall := []types.PricedLeg{
		{Type: types.LegCall, Side: types.SideBuy, Qty: 1, Strike: 100, Price: 2},
	}
	g := AggregateGreeks(longCall)
	assert.InDelta(t, 50.0, g.Delta, 1e-9)
	assert.InDelta(t, 3.0, g.Gamma, 1e-9)
	assert.InDelta(t, -4.0, g.Theta, 1e-9)
	assert.InDelta(t, 8.0, g.Vega, 1e-9)

	shortPut := []types.PricedLeg{
		{Type: types.LegPut, Side: types.SideSell, Qty: 1, Strike: 100, Price: 2},
	}
	g = AggregateGreeks(shortPut)
	assert.InDelta(t, 50.0, g.Delta, 1e-9) // short put is long delta
	assert.InDelta(t, -3.0, g.Gamma, 1e-9)
	assert.InDelta(t, 4.0, g.Theta, 1e-9) // short options collect theta
	assert.InDelta(t, -8.0, g.Vega, 1e-9)
}

func TestAggregateGreeksStockAndQty(t *testing.T) {
	legs := []types.PricedLeg{
		{Type: types.LegStock, Side: types.SideBuy, Qty: 100, Price: 50},
		{Type: types.LegCall, Side: types.SideSell, Qty: 2, Strike: 55, Price: 1},
	}
	g := AggregateGreeks(legs)
	// 100 share delta minus two short calls at 0.5 x 100 each.
	assert.InDelta(t, 0.0, g.Delta, 1e-9)
	assert.InDelta(t, -6.0, g.Gamma, 1e-9)
}

func TestBalancedSpreadGreeksCancel(t *testing.T) {
	legs := []types.PricedLeg{
		{Type: types.LegPut, Side: types.SideSell, Qty: 1, Strike: 50, Price: 1.5},
		{Type: types.LegPut, Side: types.SideBuy, Qty: 1, Strike: 45, Price: 0.5},
	}
	g := AggregateGreeks(legs)
	assert.InDelta(t, 0.0, g.Delta, 1e-9)
	assert.InDelta(t, 0.0, g.Gamma, 1e-9)
	assert.InDelta(t, 0.0, g.Theta, 1e-9)
	assert.InDelta(t, 0.0, g.Vega, 1e-9)
}

func TestTrackedGreeksMatchPriced(t *testing.T) {
	priced := []types.PricedLeg{
		{Type: types.LegCall, Side: types.SideSell, Qty: 1, Strike: 195, Price: 2.40},
	}
	tracked := []types.TrackedLeg{
		{Type: types.LegCall, Side: types.SideSell, Qty: 1, Strike: 195, TheoreticalPrice: 2.40},
	}
	assert.Equal(t, AggregateGreeks(priced), AggregateTrackedGreeks(tracked))
}
