package types

import "time"

// TrackedLeg is one filled leg of a live position. TheoreticalPrice is the
// price the proposal was priced at and never changes; ActualPrice is the
// fill, CurrentPrice the latest mark.
type TrackedLeg struct {
	Type             LegType `json:"type"`
	Side             LegSide `json:"side"`
	Qty              float64 `json:"qty"`
	Strike           float64 `json:"strike,omitempty"`
	Expiry           string  `json:"expiry,omitempty"`
	TheoreticalPrice float64 `json:"theoretical_price"`
	ActualPrice      float64 `json:"actual_price"`
	CurrentPrice     float64 `json:"current_price"`
}

// BaselineAnalytics is the theoretical block frozen when the proposal was
// accepted. The tracker reads it for comparison and never mutates it.
type BaselineAnalytics struct {
	ExpectedValue float64   `json:"expected_value"` // theoretical edge at entry
	MaxProfit     float64   `json:"max_profit"`
	MaxLoss       float64   `json:"max_loss"`
	Breakevens    []float64 `json:"breakevens"`
	Greeks        Greeks    `json:"greeks"`
}

// LiveAnalytics is the actual block the tracker recomputes on every update.
// Values are signed per leg side (sold legs negative), so UnrealizedPL is
// CurrentValue - EntryValue under one convention for debit and credit
// structures alike: a credit structure opens at a negative EntryValue and a
// decaying one reports a positive UnrealizedPL.
type LiveAnalytics struct {
	EntryValue      float64 `json:"entry_value"`
	CurrentValue    float64 `json:"current_value"`
	UnrealizedPL    float64 `json:"unrealized_pl"`
	Greeks          Greeks  `json:"greeks"`
	EdgeCapturedPct float64 `json:"edge_captured_pct"` // realized / theoretical edge × 100
	EntrySlipPct    float64 `json:"entry_slip_pct"`
	ExitSlipPct     float64 `json:"exit_slip_pct"`
}

// PositionTracking is the live record created on fill. Theoretical is
// immutable; Actual, RealizedPL and LastUpdated are owned by the tracker.
// Callers must serialize updates per position id.
type PositionTracking struct {
	PositionID    string            `json:"position_id"`
	ProposalID    string            `json:"proposal_id,omitempty"`
	Symbol        string            `json:"symbol"`
	Legs          []TrackedLeg      `json:"legs"`
	Theoretical   BaselineAnalytics `json:"theoretical"`
	Actual        LiveAnalytics     `json:"actual"`
	EntrySlippage float64           `json:"entry_slippage"` // set once at fill, per-share sum
	OpenedAt      time.Time         `json:"opened_at"`
	ClosedAt      *time.Time        `json:"closed_at,omitempty"`
	LastUpdated   time.Time         `json:"last_updated"`
	RealizedPL    float64           `json:"realized_pl,omitempty"`
}

// Closed reports whether the position has been closed; closed positions
// reject further tracker updates.
func (p *PositionTracking) Closed() bool { return p != nil && p.ClosedAt != nil }
