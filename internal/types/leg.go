package types

// LegType is the closed set of instrument kinds a leg can carry.
type LegType string

const (
	LegStock LegType = "STOCK"
	LegCall  LegType = "CALL"
	LegPut   LegType = "PUT"
)

// Valid reports whether t is one of the known leg types.
func (t LegType) Valid() bool {
	switch t {
	case LegStock, LegCall, LegPut:
		return true
	default:
		return false
	}
}

// IsOption reports whether the leg is an option contract.
func (t LegType) IsOption() bool { return t == LegCall || t == LegPut }

// LegSide is the direction of a leg.
type LegSide string

const (
	SideBuy  LegSide = "BUY"
	SideSell LegSide = "SELL"
)

// Valid reports whether s is one of the known sides.
func (s LegSide) Valid() bool { return s == SideBuy || s == SideSell }

// Sign returns +1 for BUY and -1 for SELL. Unknown sides return 0 so a
// malformed leg contributes nothing instead of flipping P&L.
func (s LegSide) Sign() float64 {
	switch s {
	case SideBuy:
		return 1
	case SideSell:
		return -1
	default:
		return 0
	}
}

// Leg is one component of a position structure. Option legs either pin an
// explicit strike+expiry or declare a dte+delta target used to resolve a
// strike at proposal time.
type Leg struct {
	Type   LegType  `json:"type"`
	Side   LegSide  `json:"side"`
	Qty    float64  `json:"qty"`
	Strike float64  `json:"strike,omitempty"`
	Expiry string   `json:"expiry,omitempty"` // YYYY-MM-DD
	DTE    int      `json:"dte,omitempty"`
	Delta  *float64 `json:"delta,omitempty"` // target delta in [-1, 1]
}

// HasExplicitContract reports whether the option leg pins strike+expiry.
func (l Leg) HasExplicitContract() bool { return l.Strike > 0 && l.Expiry != "" }

// HasResolutionTarget reports whether the option leg declares a dte/delta
// target instead of an explicit contract.
func (l Leg) HasResolutionTarget() bool { return l.DTE > 0 && l.Delta != nil }

// PricedLeg is a leg bound to a concrete price: an option premium per share
// or a stock entry price. This is the payoff engine's input shape.
type PricedLeg struct {
	Type   LegType `json:"type"`
	Side   LegSide `json:"side"`
	Qty    float64 `json:"qty"`
	Strike float64 `json:"strike,omitempty"`
	Expiry string  `json:"expiry,omitempty"`
	Price  float64 `json:"price"`
}

// Greeks aggregates position-level sensitivity estimates.
type Greeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"`
	Vega  float64 `json:"vega"`
}
