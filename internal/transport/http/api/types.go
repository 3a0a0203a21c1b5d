package apihttp

import (
	"legwork/internal/market"
	"legwork/internal/types"
	"legwork/internal/validate"
)

// validateRequest wraps a strategy document with optional account context.
// Clients may also post the bare document; see parseStrategyRequest.
type validateRequest struct {
	Document *types.Strategy          `json:"document"`
	Account  *validate.AccountContext `json:"account,omitempty"`
}

type payoffRequest struct {
	Symbol       string            `json:"symbol,omitempty"`
	CurrentPrice float64           `json:"current_price"`
	Legs         []types.PricedLeg `json:"legs"`
}

type proposalRequest struct {
	StrategyID      string          `json:"strategy_id,omitempty"`
	StrategyVersion int             `json:"strategy_version,omitempty"`
	Snapshot        market.Snapshot `json:"snapshot"`
	Overrides       map[string]any  `json:"user_overrides,omitempty"`
}

type openPositionRequest struct {
	PositionID   string             `json:"position_id,omitempty"`
	ProposalID   string             `json:"proposal_id,omitempty"`
	Symbol       string             `json:"symbol"`
	CurrentPrice float64            `json:"current_price"`
	Legs         []types.TrackedLeg `json:"legs"`
}

type refreshPositionRequest struct {
	Marks []float64 `json:"marks"` // one per leg, same order
}

type closePositionRequest struct {
	ClosePrices []float64 `json:"close_prices"` // one per leg, same order
}

type repriceRequest struct {
	LimitPrice float64 `json:"limit_price"`
}

type fillRequest struct {
	Partial bool `json:"partial"`
}
