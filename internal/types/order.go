package types

import (
	"fmt"
	"time"
)

// Order states. An order is created from an approved proposal and walks
// staged → submitted → partial|filled|rejected|canceled.
const (
	OrderStaged    = "staged"
	OrderSubmitted = "submitted"
	OrderPartial   = "partial"
	OrderFilled    = "filled"
	OrderRejected  = "rejected"
	OrderCanceled  = "canceled"
)

// Order tracks routing of an approved proposal. Attempts counts limit-price
// revisions and is bounded by the strategy's risk.max_order_reprices.
type Order struct {
	OrderID     string      `json:"order_id"`
	ProposalID  string      `json:"proposal_id"`
	Symbol      string      `json:"symbol"`
	Legs        []PricedLeg `json:"legs"`
	LimitPrice  float64     `json:"limit_price,omitempty"`
	State       string      `json:"state"`
	Attempts    int         `json:"attempts"`
	MaxReprices int         `json:"max_reprices"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// NewOrderFromProposal stages an order for an approved proposal.
func NewOrderFromProposal(orderID string, p *Proposal, maxReprices int, now time.Time) (*Order, error) {
	if p == nil {
		return nil, fmt.Errorf("nil proposal")
	}
	if p.State != ProposalApproved {
		return nil, fmt.Errorf("proposal %s is %s, only approved proposals can be staged", p.ProposalID, p.State)
	}
	return &Order{
		OrderID:     orderID,
		ProposalID:  p.ProposalID,
		Symbol:      p.Symbol,
		Legs:        append([]PricedLeg(nil), p.Legs...),
		State:       OrderStaged,
		MaxReprices: maxReprices,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Submit moves a staged order to submitted.
func (o *Order) Submit(now time.Time) error {
	if o.State != OrderStaged {
		return fmt.Errorf("order %s is %s, not staged", o.OrderID, o.State)
	}
	o.State = OrderSubmitted
	o.UpdatedAt = now
	return nil
}

// Reprice revises the limit price of a working order. The attempt budget is
// a hard stop: once exhausted, the caller must cancel instead.
func (o *Order) Reprice(limitPrice float64, now time.Time) error {
	if o.State != OrderSubmitted && o.State != OrderPartial {
		return fmt.Errorf("order %s is %s, cannot reprice", o.OrderID, o.State)
	}
	if o.Attempts >= o.MaxReprices {
		return fmt.Errorf("order %s exhausted %d reprice attempts", o.OrderID, o.MaxReprices)
	}
	o.Attempts++
	o.LimitPrice = limitPrice
	o.UpdatedAt = now
	return nil
}

// Fill marks a working order filled (partial=false) or partially filled.
func (o *Order) Fill(partial bool, now time.Time) error {
	if o.State != OrderSubmitted && o.State != OrderPartial {
		return fmt.Errorf("order %s is %s, cannot fill", o.OrderID, o.State)
	}
	if partial {
		o.State = OrderPartial
	} else {
		o.State = OrderFilled
	}
	o.UpdatedAt = now
	return nil
}

// Cancel terminates a staged or working order.
func (o *Order) Cancel(now time.Time) error {
	switch o.State {
	case OrderStaged, OrderSubmitted, OrderPartial:
		o.State = OrderCanceled
		o.UpdatedAt = now
		return nil
	default:
		return fmt.Errorf("order %s is %s, cannot cancel", o.OrderID, o.State)
	}
}

// MarkRejected records a venue rejection of a submitted order.
func (o *Order) MarkRejected(now time.Time) error {
	if o.State != OrderSubmitted {
		return fmt.Errorf("order %s is %s, cannot reject", o.OrderID, o.State)
	}
	o.State = OrderRejected
	o.UpdatedAt = now
	return nil
}
