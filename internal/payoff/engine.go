package payoff

import (
	"errors"
	"fmt"
	"math"

	"legwork/internal/types"
)

// Curve geometry. The window and point count are part of the contract:
// callers and charts rely on 101 points spanning [0.6P, 1.4P].
const (
	CurvePoints        = 101
	windowLowFactor    = 0.6
	windowHighFactor   = 1.4
	ContractMultiplier = 100

	// Plotting distribution parameters: Gaussian centered on the
	// underlying with sigma = 15% of price, scaled for chart overlay.
	distributionSigmaPct = 0.15
	distributionScale    = 100.0
)

// Contract-violation errors. These signal caller bugs, not validation
// problems, and are distinct from the validator's structured output.
var (
	ErrNoLegs   = errors.New("payoff: at least one leg is required")
	ErrBadPrice = errors.New("payoff: underlying price must be positive and finite")
	ErrBadLeg   = errors.New("payoff: malformed leg")
)

// CurvePoint is one sample of the payoff curve.
type CurvePoint struct {
	Price float64 `json:"price"`
	PL    float64 `json:"pl"`
}

// DistributionPoint is one sample of the plotting density.
type DistributionPoint struct {
	Price   float64 `json:"price"`
	Density float64 `json:"density"`
}

// Theoretical is the full risk analytics payload for a leg structure.
//
// POP is the fraction of sampled price points with positive P&L, as a
// percentage with one decimal. It deliberately ignores the probability
// density of future prices; downstream scoring and display depend on this
// exact simplified figure.
type Theoretical struct {
	PayoffCurve  []CurvePoint        `json:"payoff_curve"`
	Breakevens   []float64           `json:"breakevens"`
	MaxProfit    float64             `json:"max_profit"`
	MaxLoss      float64             `json:"max_loss"`
	POP          float64             `json:"pop"`
	Greeks       types.Greeks        `json:"greeks"`
	Distribution []DistributionPoint `json:"probability_distribution"`
}

// ComputeTheoretical samples aggregate P&L across [0.6P, 1.4P] in 100 equal
// steps and derives breakevens, curve extrema, POP and aggregate greeks.
//
// Max profit/loss are curve extrema, not closed-form limits: a structure
// with unbounded loss reports the worst sampled value. The sampled,
// leg-generic approach is what lets any leg combination share one code
// path.
func ComputeTheoretical(underlying float64, legs []types.PricedLeg) (*Theoretical, error) {
	if underlying <= 0 || math.IsNaN(underlying) || math.IsInf(underlying, 0) {
		return nil, fmt.Errorf("%w: got %v", ErrBadPrice, underlying)
	}
	if len(legs) == 0 {
		return nil, ErrNoLegs
	}
	for i, leg := range legs {
		if err := checkLeg(leg); err != nil {
			return nil, fmt.Errorf("leg %d: %w", i, err)
		}
	}

	low := underlying * windowLowFactor
	high := underlying * windowHighFactor
	step := (high - low) / float64(CurvePoints-1)

	curve := make([]CurvePoint, CurvePoints)
	positive := 0
	maxProfit := math.Inf(-1)
	maxLoss := math.Inf(1)
	for i := 0; i < CurvePoints; i++ {
		price := low + step*float64(i)
		pl := 0.0
		for _, leg := range legs {
			pl += LegPL(leg, price)
		}
		curve[i] = CurvePoint{Price: roundTo(price, 4), PL: roundTo(pl, 2)}
		if pl > 0 {
			positive++
		}
		if pl > maxProfit {
			maxProfit = pl
		}
		if pl < maxLoss {
			maxLoss = pl
		}
	}

	return &Theoretical{
		PayoffCurve:  curve,
		Breakevens:   findBreakevens(curve, step),
		MaxProfit:    roundTo(maxProfit, 2),
		MaxLoss:      roundTo(maxLoss, 2),
		POP:          roundTo(float64(positive)/float64(CurvePoints)*100, 1),
		Greeks:       AggregateGreeks(legs),
		Distribution: distribution(underlying, low, step),
	}, nil
}

// ExpectedValue is the density-weighted mean P&L across the sampled window.
// The curve and distribution share the same price samples, so the two
// slices align index for index.
func (t *Theoretical) ExpectedValue() float64 {
	if t == nil || len(t.PayoffCurve) == 0 || len(t.Distribution) != len(t.PayoffCurve) {
		return 0
	}
	var weighted, total float64
	for i, pt := range t.PayoffCurve {
		w := t.Distribution[i].Density
		weighted += pt.PL * w
		total += w
	}
	if total == 0 {
		return 0
	}
	return roundTo(weighted/total, 2)
}

// LegPL is the per-leg P&L primitive at a hypothetical underlying price.
// Stock legs settle per share; option legs settle intrinsic-minus-premium
// per contract. The position tracker reuses this for baseline comparisons.
func LegPL(leg types.PricedLeg, samplePrice float64) float64 {
	sign := leg.Side.Sign()
	switch leg.Type {
	case types.LegStock:
		return sign * (samplePrice - leg.Price) * leg.Qty
	case types.LegCall, types.LegPut:
		return sign * (intrinsic(leg.Type, leg.Strike, samplePrice) - leg.Price) * leg.Qty * ContractMultiplier
	default:
		return 0
	}
}

// MarketValue returns the signed dollar value of an option leg at the given
// per-share price: side_sign * price * qty * 100.
func MarketValue(side types.LegSide, qty, price float64) float64 {
	return side.Sign() * price * qty * ContractMultiplier
}

func intrinsic(legType types.LegType, strike, price float64) float64 {
	switch legType {
	case types.LegCall:
		return math.Max(0, price-strike)
	case types.LegPut:
		return math.Max(0, strike-price)
	default:
		return 0
	}
}

// findBreakevens scans adjacent samples for sign changes (exact zeros
// included) and linearly interpolates each crossing by the ratio of the
// absolute P&L magnitudes.
func findBreakevens(curve []CurvePoint, step float64) []float64 {
	var out []float64
	push := func(v float64) {
		v = roundTo(v, 2)
		if n := len(out); n > 0 && math.Abs(out[n-1]-v) < 1e-9 {
			return
		}
		out = append(out, v)
	}
	for i := 1; i < len(curve); i++ {
		a, b := curve[i-1].PL, curve[i].PL
		switch {
		case a == 0 && b == 0:
			continue
		case a == 0:
			push(curve[i-1].Price)
		case b == 0:
			push(curve[i].Price)
		case (a < 0) != (b < 0):
			ratio := math.Abs(a) / (math.Abs(a) + math.Abs(b))
			push(curve[i-1].Price + ratio*step)
		}
	}
	if out == nil {
		out = []float64{}
	}
	return out
}

// distribution is a Gaussian density over the sampled window, for chart
// overlay only. It is not used by POP.
func distribution(underlying, low, step float64) []DistributionPoint {
	sigma := underlying * distributionSigmaPct
	out := make([]DistributionPoint, CurvePoints)
	for i := 0; i < CurvePoints; i++ {
		price := low + step*float64(i)
		z := (price - underlying) / sigma
		out[i] = DistributionPoint{
			Price:   roundTo(price, 4),
			Density: roundTo(math.Exp(-0.5*z*z)*distributionScale, 4),
		}
	}
	return out
}

func checkLeg(leg types.PricedLeg) error {
	if !leg.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrBadLeg, string(leg.Type))
	}
	if !leg.Side.Valid() {
		return fmt.Errorf("%w: unknown side %q", ErrBadLeg, string(leg.Side))
	}
	if leg.Qty <= 0 || math.IsNaN(leg.Qty) || math.IsInf(leg.Qty, 0) {
		return fmt.Errorf("%w: qty must be positive, got %v", ErrBadLeg, leg.Qty)
	}
	if math.IsNaN(leg.Price) || math.IsInf(leg.Price, 0) || leg.Price < 0 {
		return fmt.Errorf("%w: price must be finite and non-negative, got %v", ErrBadLeg, leg.Price)
	}
	if leg.Type.IsOption() && (leg.Strike <= 0 || math.IsNaN(leg.Strike) || math.IsInf(leg.Strike, 0)) {
		return fmt.Errorf("%w: option legs require a positive strike, got %v", ErrBadLeg, leg.Strike)
	}
	return nil
}
