package tracker

import (
	"math"
	"testing"
	"time"

	"legwork/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// creditSpreadLegs is a 5-wide put credit spread filled slightly worse
// than theoretical: 0.93 net credit against a 1.00 theoretical.
func creditSpreadLegs() []types.TrackedLeg {
	return []types.TrackedLeg{
		{Type: types.LegPut, Side: types.SideSell, Qty: 1, Strike: 50, TheoreticalPrice: 1.50, ActualPrice: 1.45, CurrentPrice: 1.45},
		{Type: types.LegPut, Side: types.SideBuy, Qty: 1, Strike: 45, TheoreticalPrice: 0.50, ActualPrice: 0.52, CurrentPrice: 0.52},
	}
}

func baseline() types.BaselineAnalytics {
	return types.BaselineAnalytics{ExpectedValue: 40, MaxProfit: 100, MaxLoss: -400, Breakevens: []float64{49.0}}
}

func TestNewTrackingComputesEntrySlippageOnce(t *testing.T) {
	now := time.Date(2026, 8, 20, 14, 30, 0, 0, time.UTC)
	pt, err := NewTracking("pos-1", "prop-1", "XYZ", creditSpreadLegs(), baseline(), now)
	require.NoError(t, err)

	// (1.50-1.45) + (0.50-0.52) per share, against 2.00 of premium.
	assert.InDelta(t, 0.03, pt.EntrySlippage, 1e-9)
	assert.InDelta(t, 1.5, pt.Actual.EntrySlipPct, 1e-9)

	assert.InDelta(t, -93.0, pt.Actual.EntryValue, 1e-9)
	assert.InDelta(t, 0.0, pt.Actual.UnrealizedPL, 1e-9)
	assert.Equal(t, now, pt.OpenedAt)
	assert.False(t, pt.Closed())

	// Slippage is frozen at fill; later updates must not touch it.
	pt.Legs[0].CurrentPrice = 1.00
	require.NoError(t, Update(pt, now.Add(time.Minute)))
	assert.InDelta(t, 0.03, pt.EntrySlippage, 1e-9)
	assert.InDelta(t, 1.5, pt.Actual.EntrySlipPct, 1e-9)
}

func TestUpdateRecomputesActualBlock(t *testing.T) {
	now := time.Now()
	pt, err := NewTracking("pos-1", "", "XYZ", creditSpreadLegs(), baseline(), now)
	require.NoError(t, err)

	pt.Legs[0].CurrentPrice = 1.00
	pt.Legs[1].CurrentPrice = 0.30
	later := now.Add(5 * time.Minute)
	require.NoError(t, Update(pt, later))

	// Structure marked at -70 against a -93 entry: +23 unrealized.
	assert.InDelta(t, -70.0, pt.Actual.CurrentValue, 1e-9)
	assert.InDelta(t, 23.0, pt.Actual.UnrealizedPL, 1e-9)
	assert.InDelta(t, 57.5, pt.Actual.EdgeCapturedPct, 1e-9) // 23/40 x 100
	assert.InDelta(t, 0.0, pt.Actual.Greeks.Delta, 1e-9)
	assert.Equal(t, later, pt.LastUpdated)

	// Baseline block stays frozen.
	assert.Equal(t, baseline(), pt.Theoretical)
}

func TestUpdateIdempotentOnUnchangedMarks(t *testing.T) {
	pt, err := NewTracking("pos-1", "", "XYZ", creditSpreadLegs(), baseline(), time.Now())
	require.NoError(t, err)

	pt.Legs[0].CurrentPrice = 1.00
	pt.Legs[1].CurrentPrice = 0.30
	require.NoError(t, Update(pt, time.Now()))
	first := pt.Actual

	require.NoError(t, Update(pt, time.Now()))
	assert.Equal(t, first, pt.Actual)
}

func TestCloseFinalizesAndLocks(t *testing.T) {
	now := time.Now()
	pt, err := NewTracking("pos-1", "", "XYZ", creditSpreadLegs(), baseline(), now)
	require.NoError(t, err)
	pt.Legs[0].CurrentPrice = 1.00
	pt.Legs[1].CurrentPrice = 0.30
	require.NoError(t, Update(pt, now))

	closedAt := now.Add(48 * time.Hour)
	require.NoError(t, Close(pt, []float64{0.60, 0.15}, closedAt))

	// Closed at -45 against a -93 entry.
	assert.InDelta(t, 48.0, pt.RealizedPL, 1e-9)
	assert.InDelta(t, 0.0, pt.Actual.UnrealizedPL, 1e-9)
	assert.InDelta(t, 120.0, pt.Actual.EdgeCapturedPct, 1e-9) // 48/40 x 100
	// Exit slip: (1.00-0.60) + (0.30-0.15) against 2.00 of premium.
	assert.InDelta(t, 27.5, pt.Actual.ExitSlipPct, 1e-9)
	require.NotNil(t, pt.ClosedAt)
	assert.Equal(t, closedAt, *pt.ClosedAt)
	assert.True(t, pt.Closed())

	assert.ErrorIs(t, Update(pt, closedAt.Add(time.Minute)), ErrClosed)
	assert.ErrorIs(t, Close(pt, []float64{0, 0}, closedAt.Add(time.Minute)), ErrClosed)
}

func TestStockLegTrackedAtShareValue(t *testing.T) {
	legs := []types.TrackedLeg{
		{Type: types.LegStock, Side: types.SideBuy, Qty: 100, TheoreticalPrice: 20, ActualPrice: 20.10, CurrentPrice: 20.10},
	}
	pt, err := NewTracking("pos-1", "", "XYZ", legs, types.BaselineAnalytics{ExpectedValue: 50}, time.Now())
	require.NoError(t, err)
	assert.InDelta(t, 2010.0, pt.Actual.EntryValue, 1e-9)

	pt.Legs[0].CurrentPrice = 21
	require.NoError(t, Update(pt, time.Now()))
	assert.InDelta(t, 90.0, pt.Actual.UnrealizedPL, 1e-9)
}

func TestTrackerInputContract(t *testing.T) {
	t.Run("no legs", func(t *testing.T) {
		_, err := NewTracking("pos-1", "", "XYZ", nil, baseline(), time.Now())
		assert.ErrorIs(t, err, ErrNoLegs)
	})
	t.Run("nil position", func(t *testing.T) {
		assert.ErrorIs(t, Update(nil, time.Now()), ErrNilPosition)
		assert.ErrorIs(t, Close(nil, nil, time.Now()), ErrNilPosition)
	})
	t.Run("non-finite mark", func(t *testing.T) {
		pt, err := NewTracking("pos-1", "", "XYZ", creditSpreadLegs(), baseline(), time.Now())
		require.NoError(t, err)
		pt.Legs[0].CurrentPrice = math.NaN()
		assert.ErrorIs(t, Update(pt, time.Now()), ErrBadMark)
	})
	t.Run("close price count mismatch", func(t *testing.T) {
		pt, err := NewTracking("pos-1", "", "XYZ", creditSpreadLegs(), baseline(), time.Now())
		require.NoError(t, err)
		assert.Error(t, Close(pt, []float64{0.60}, time.Now()))
	})
	t.Run("negative close price", func(t *testing.T) {
		pt, err := NewTracking("pos-1", "", "XYZ", creditSpreadLegs(), baseline(), time.Now())
		require.NoError(t, err)
		assert.ErrorIs(t, Close(pt, []float64{-0.10, 0.15}, time.Now()), ErrBadMark)
	})
}
