package payoff

import (
	"testing"

	"legwork/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurveGeometry(t *testing.T) {
	legs := []types.PricedLeg{
		{Type: types.LegPut, Side: types.SideSell, Qty: 1, Strike: 10, Price: 0.5},
	}
	th, err := ComputeTheoretical(10, legs)
	require.NoError(t, err)

	assert.Len(t, th.PayoffCurve, CurvePoints)
	assert.Len(t, th.Distribution, CurvePoints)
	assert.InDelta(t, 6.0, th.PayoffCurve[0].Price, 1e-9)
	assert.InDelta(t, 14.0, th.PayoffCurve[CurvePoints-1].Price, 1e-9)
}

func TestCashSecuredPut(t *testing.T) {
	// SELL PUT 10 @ 0.50 on a $10 underlying. Credit is kept above the
	// strike; worst sampled loss sits at the window floor.
	legs := []types.PricedLeg{
		{Type: types.LegPut, Side: types.SideSell, Qty: 1, Strike: 10, Price: 0.5},
	}
	th, err := ComputeTheoretical(10, legs)
	require.NoError(t, err)

	assert.InDelta(t, 50.0, th.MaxProfit, 1e-9)
	assert.InDelta(t, -350.0, th.MaxLoss, 1e-9) // (10 - 6 - 0.5) * 100 at the window floor
	require.Len(t, th.Breakevens, 1)
	assert.InDelta(t, 9.5, th.Breakevens[0], 0.01)
	assert.InDelta(t, 56.4, th.POP, 0.2)
}

func TestPutCreditSpread(t *testing.T) {
	// SELL PUT 50 / BUY PUT 45 for a 1.00 net credit.
	legs := []types.PricedLeg{
		{Type: types.LegPut, Side: types.SideSell, Qty: 1, Strike: 50, Price: 1.5},
		{Type: types.LegPut, Side: types.SideBuy, Qty: 1, Strike: 45, Price: 0.5},
	}
	th, err := ComputeTheoretical(52, legs)
	require.NoError(t, err)

	assert.InDelta(t, 100.0, th.MaxProfit, 1e-9)
	assert.InDelta(t, -400.0, th.MaxLoss, 1e-9) // width*100 - credit*100
	require.Len(t, th.Breakevens, 1)
	assert.InDelta(t, 49.0, th.Breakevens[0], 0.01)
}

func TestIronCondorScenario(t *testing.T) {
	// Four-leg condor around a 184.10 underlying, 2.55 net credit.
	legs := []types.PricedLeg{
		{Type: types.LegPut, Side: types.SideSell, Qty: 1, Strike: 175, Price: 2.50},
		{Type: types.LegPut, Side: types.SideBuy, Qty: 1, Strike: 170, Price: 1.20},
		{Type: types.LegCall, Side: types.SideSell, Qty: 1, Strike: 195, Price: 2.40},
		{Type: types.LegCall, Side: types.SideBuy, Qty: 1, Strike: 200, Price: 1.15},
	}
	th, err := ComputeTheoretical(184.10, legs)
	require.NoError(t, err)

	assert.InDelta(t, 255.0, th.MaxProfit, 1e-9)
	assert.InDelta(t, -245.0, th.MaxLoss, 1e-9)
	require.Len(t, th.Breakevens, 2)
	assert.InDelta(t, 172.45, th.Breakevens[0], 0.01)
	assert.InDelta(t, 197.55, th.Breakevens[1], 0.01)
}

func TestStockLeg(t *testing.T) {
	legs := []types.PricedLeg{
		{Type: types.LegStock, Side: types.SideBuy, Qty: 100, Price: 10},
	}
	th, err := ComputeTheoretical(10, legs)
	require.NoError(t, err)

	assert.InDelta(t, 400.0, th.MaxProfit, 1e-9)
	assert.InDelta(t, -400.0, th.MaxLoss, 1e-9)
	require.Len(t, th.Breakevens, 1)
	assert.InDelta(t, 10.0, th.Breakevens[0], 0.05)
}

func TestExpectedValueBoundedByExtrema(t *testing.T) {
	legs := []types.PricedLeg{
		{Type: types.LegPut, Side: types.SideSell, Qty: 1, Strike: 175, Price: 2.50},
		{Type: types.LegPut, Side: types.SideBuy, Qty: 1, Strike: 170, Price: 1.20},
	}
	th, err := ComputeTheoretical(184.10, legs)
	require.NoError(t, err)

	ev := th.ExpectedValue()
	assert.GreaterOrEqual(t, ev, th.MaxLoss)
	assert.LessOrEqual(t, ev, th.MaxProfit)
}

func TestComputeTheoreticalInputContract(t *testing.T) {
	good := []types.PricedLeg{
		{Type: types.LegCall, Side: types.SideBuy, Qty: 1, Strike: 100, Price: 1},
	}

	_, err := ComputeTheoretical(100, nil)
	assert.ErrorIs(t, err, ErrNoLegs)

	_, err = ComputeTheoretical(0, good)
	assert.ErrorIs(t, err, ErrBadPrice)

	_, err = ComputeTheoretical(-5, good)
	assert.ErrorIs(t, err, ErrBadPrice)

	bad := []types.PricedLeg{{Type: types.LegCall, Side: types.SideBuy, Qty: 0, Strike: 100, Price: 1}}
	_, err = ComputeTheoretical(100, bad)
	assert.ErrorIs(t, err, ErrBadLeg)

	bad = []types.PricedLeg{{Type: types.LegCall, Side: types.SideBuy, Qty: 1, Price: 1}}
	_, err = ComputeTheoretical(100, bad)
	assert.ErrorIs(t, err, ErrBadLeg)

	bad = []types.PricedLeg{{Type: "BOND", Side: types.SideBuy, Qty: 1, Price: 1}}
	_, err = ComputeTheoretical(100, bad)
	assert.ErrorIs(t, err, ErrBadLeg)
}

func TestNetPremium(t *testing.T) {
	legs := []types.PricedLeg{
		{Type: types.LegPut, Side: types.SideSell, Qty: 1, Strike: 175, Price: 2.50},
		{Type: types.LegPut, Side: types.SideBuy, Qty: 1, Strike: 170, Price: 1.20},
		{Type: types.LegStock, Side: types.SideBuy, Qty: 100, Price: 184.10}, // stock excluded
	}
	assert.InDelta(t, 1.30, NetPremium(legs), 1e-9)
}
