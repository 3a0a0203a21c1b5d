package tracker

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"legwork/internal/payoff"
	"legwork/internal/types"
)

// Contract-violation errors; these mean caller bugs, not market conditions.
var (
	ErrNilPosition = errors.New("tracker: nil position record")
	ErrNoLegs      = errors.New("tracker: position has no legs")
	ErrClosed      = errors.New("tracker: position is closed")
	ErrBadMark     = errors.New("tracker: non-finite leg mark")
)

// NewTracking builds the live record at fill time. Entry slippage is
// computed exactly once here, as the per-share sum of theoretical minus
// actual fill across legs, and never recomputed afterward.
func NewTracking(positionID, proposalID, symbol string, legs []types.TrackedLeg, baseline types.BaselineAnalytics, now time.Time) (*types.PositionTracking, error) {
	if len(legs) == 0 {
		return nil, ErrNoLegs
	}
	pt := &types.PositionTracking{
		PositionID:    positionID,
		ProposalID:    proposalID,
		Symbol:        symbol,
		Legs:          append([]types.TrackedLeg(nil), legs...),
		Theoretical:   baseline,
		EntrySlippage: entrySlippage(legs),
		OpenedAt:      now,
		LastUpdated:   now,
	}
	pt.Actual.EntrySlipPct = slipPct(pt.EntrySlippage, legs)
	if err := Update(pt, now); err != nil {
		return nil, err
	}
	return pt, nil
}

// Update recomputes the actual block from current leg marks. The
// theoretical baseline block is never touched. Repeated calls with
// unchanged marks yield identical results; callers must serialize updates
// per position id (the tracker holds no lock).
func Update(pt *types.PositionTracking, now time.Time) error {
	if pt == nil {
		return ErrNilPosition
	}
	if pt.Closed() {
		return fmt.Errorf("%w: %s closed at %s", ErrClosed, pt.PositionID, pt.ClosedAt.Format(time.RFC3339))
	}
	if len(pt.Legs) == 0 {
		return ErrNoLegs
	}

	entry, err := structureValue(pt.Legs, func(l types.TrackedLeg) float64 { return l.ActualPrice })
	if err != nil {
		return err
	}
	current, err := structureValue(pt.Legs, func(l types.TrackedLeg) float64 { return l.CurrentPrice })
	if err != nil {
		return err
	}

	pt.Actual.EntryValue = entry
	pt.Actual.CurrentValue = current
	// Signed-value convention: sold legs carry negative value, so a credit
	// structure gains as its current value rises toward zero.
	pt.Actual.UnrealizedPL = roundCents(current - entry)
	pt.Actual.Greeks = payoff.AggregateTrackedGreeks(pt.Legs)
	pt.Actual.EdgeCapturedPct = edgeCaptured(pt.Actual.UnrealizedPL, pt.Theoretical.ExpectedValue)
	pt.LastUpdated = now
	return nil
}

// Close finalizes the position against executed close prices (one per leg,
// same order). Realized P&L replaces the running unrealized figure, exit
// slippage is measured against the last marks, and further updates are
// rejected.
func Close(pt *types.PositionTracking, closePrices []float64, now time.Time) error {
	if pt == nil {
		return ErrNilPosition
	}
	if pt.Closed() {
		return fmt.Errorf("%w: %s already closed", ErrClosed, pt.PositionID)
	}
	if len(closePrices) != len(pt.Legs) {
		return fmt.Errorf("tracker: %d close prices for %d legs", len(closePrices), len(pt.Legs))
	}

	exitSlip := decimal.Zero
	closeValue := decimal.Zero
	entryValue := decimal.Zero
	for i, leg := range pt.Legs {
		px := closePrices[i]
		if !finite(px) || px < 0 {
			return fmt.Errorf("%w: close price %v for leg %d", ErrBadMark, px, i)
		}
		exitSlip = exitSlip.Add(decimal.NewFromFloat(leg.CurrentPrice).Sub(decimal.NewFromFloat(px)))
		closeValue = closeValue.Add(decimal.NewFromFloat(legValue(leg, px)))
		entryValue = entryValue.Add(decimal.NewFromFloat(legValue(leg, leg.ActualPrice)))
		pt.Legs[i].CurrentPrice = px
	}

	entry, _ := entryValue.Round(2).Float64()
	closed, _ := closeValue.Round(2).Float64()
	slip, _ := exitSlip.Float64()

	pt.Actual.CurrentValue = closed
	pt.Actual.EntryValue = entry
	pt.RealizedPL = roundCents(closed - entry)
	pt.Actual.UnrealizedPL = 0
	pt.Actual.ExitSlipPct = slipPct(slip, pt.Legs)
	pt.Actual.EdgeCapturedPct = edgeCaptured(pt.RealizedPL, pt.Theoretical.ExpectedValue)
	t := now
	pt.ClosedAt = &t
	pt.LastUpdated = now
	return nil
}

// structureValue sums signed leg values under the given price accessor.
func structureValue(legs []types.TrackedLeg, price func(types.TrackedLeg) float64) (float64, error) {
	total := decimal.Zero
	for i, leg := range legs {
		px := price(leg)
		if !finite(px) || px < 0 {
			return 0, fmt.Errorf("%w: %v for leg %d", ErrBadMark, px, i)
		}
		total = total.Add(decimal.NewFromFloat(legValue(leg, px)))
	}
	f, _ := total.Round(2).Float64()
	return f, nil
}

// legValue prices one leg: options at side_sign*price*qty*100, stock at
// side_sign*price*qty.
func legValue(leg types.TrackedLeg, price float64) float64 {
	if leg.Type == types.LegStock {
		return leg.Side.Sign() * price * leg.Qty
	}
	return payoff.MarketValue(leg.Side, leg.Qty, price)
}

// entrySlippage is the per-share sum of theoretical minus actual fill.
func entrySlippage(legs []types.TrackedLeg) float64 {
	total := decimal.Zero
	for _, leg := range legs {
		total = total.Add(decimal.NewFromFloat(leg.TheoreticalPrice).Sub(decimal.NewFromFloat(leg.ActualPrice)))
	}
	f, _ := total.Float64()
	return f
}

// slipPct expresses a per-share slippage sum against the structure's
// theoretical per-share premium magnitude, as a percentage.
func slipPct(slip float64, legs []types.TrackedLeg) float64 {
	base := decimal.Zero
	for _, leg := range legs {
		base = base.Add(decimal.NewFromFloat(leg.TheoreticalPrice).Abs())
	}
	if base.IsZero() {
		return 0
	}
	pct, _ := decimal.NewFromFloat(slip).Div(base).Mul(decimal.NewFromInt(100)).Round(2).Float64()
	return pct
}

// edgeCaptured is the execution-quality score: P&L as a percentage of the
// theoretical expected value at entry.
func edgeCaptured(pl, expected float64) float64 {
	if expected == 0 || !finite(expected) {
		return 0
	}
	return roundCents(pl / expected * 100)
}

func roundCents(v float64) float64 {
	d, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return d
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
