package types

import (
	"fmt"
	"strings"
	"time"
)

// Proposal states. A proposal is generated from a strategy plus a market
// snapshot and waits for approval until its deadline.
const (
	ProposalPending  = "pending"
	ProposalApproved = "approved"
	ProposalRejected = "rejected"
	ProposalExpired  = "expired"
)

// ProposalPricing captures the quoted cost of the structure at generation
// time. NetPremium is positive for a credit, negative for a debit.
type ProposalPricing struct {
	NetPremium float64 `json:"net_premium"`
	Mid        float64 `json:"mid"`
	Bid        float64 `json:"bid"`
	Ask        float64 `json:"ask"`
	SpreadPct  float64 `json:"spread_pct"`
}

// ProposalRisk is the structural risk summary attached to a proposal.
type ProposalRisk struct {
	MaxRisk         float64   `json:"max_risk"`
	MaxProfit       float64   `json:"max_profit"`
	Breakevens      []float64 `json:"breakevens"`
	RiskRewardRatio float64   `json:"risk_reward_ratio"`
}

// Proposal is a concrete trade suggestion derived from a strategy version.
// The theoretical baseline computed here is carried forward unchanged
// through the order and position stages.
type Proposal struct {
	ProposalID       string          `json:"proposal_id"`
	StrategyID       string          `json:"strategy_id"`
	StrategyVersion  int             `json:"strategy_version"`
	Symbol           string          `json:"symbol"`
	Template         string          `json:"template,omitempty"`
	Legs             []PricedLeg     `json:"legs"`
	Pricing          ProposalPricing `json:"pricing"`
	Risk             ProposalRisk    `json:"risk"`
	Greeks           Greeks          `json:"greeks"`
	State            string          `json:"state"`
	CreatedAt        time.Time       `json:"created_at"`
	ApprovalDeadline time.Time       `json:"approval_deadline"`
	DecidedAt        *time.Time      `json:"decided_at,omitempty"`
}

// Approve moves a pending proposal to approved. Approving after the
// deadline fails: deadline expiry itself is enforced by the store that
// filters stale records, but a late approval must never slip through.
func (p *Proposal) Approve(now time.Time) error {
	if err := p.requirePending(); err != nil {
		return err
	}
	if !p.ApprovalDeadline.IsZero() && now.After(p.ApprovalDeadline) {
		p.State = ProposalExpired
		return fmt.Errorf("proposal %s approval deadline passed", p.ProposalID)
	}
	p.State = ProposalApproved
	t := now
	p.DecidedAt = &t
	return nil
}

// Reject moves a pending proposal to rejected.
func (p *Proposal) Reject(now time.Time) error {
	if err := p.requirePending(); err != nil {
		return err
	}
	p.State = ProposalRejected
	t := now
	p.DecidedAt = &t
	return nil
}

func (p *Proposal) requirePending() error {
	if strings.TrimSpace(p.State) != ProposalPending {
		return fmt.Errorf("proposal %s is %s, not pending", p.ProposalID, p.State)
	}
	return nil
}
