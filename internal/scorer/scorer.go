package scorer

import (
	"fmt"
	"time"

	"legwork/internal/catalog"
	"legwork/internal/market"
)

// Rule weights. Each rule is independent and order-insensitive; the sum of
// all positive contributions is exactly 100, so a perfect fit scores 100
// before clamping.
const (
	priceFitBonus      = 25
	priceFitPenalty    = -30
	liquidityBonus     = 20
	liquidityPenalty   = -20
	spreadBonus        = 15
	spreadPenalty      = -15
	momentumBonus      = 15
	earningsBonus      = 10
	earningsPenalty    = -20
	ivRegimeBonus      = 15
	ivRegimePenalty    = -10
	earningsClearanceD = 7

	rsiOversold   = 40
	rsiOverbought = 60
)

// Score is the outcome of ranking one template against a snapshot.
type Score struct {
	TemplateID string   `json:"template_id"`
	Confidence int      `json:"confidence"` // clamped to [0, 100]
	Reasoning  []string `json:"reasoning"`
}

// ScoreTemplate applies the additive rule set. A price-range miss
// short-circuits: no further rules run, matching how the ranker treats
// out-of-universe names. Missing optional snapshot blocks skip their rule
// instead of erroring so partial market data still ranks candidates.
func ScoreTemplate(tpl catalog.Template, snap market.Snapshot, now time.Time) Score {
	s := Score{TemplateID: tpl.ID}
	if !snap.Usable() {
		s.Reasoning = append(s.Reasoning, "snapshot missing symbol or price; template not scored")
		return s
	}

	points := 0
	say := func(delta int, format string, args ...any) {
		points += delta
		s.Reasoning = append(s.Reasoning, fmt.Sprintf("%+d: ", delta)+fmt.Sprintf(format, args...))
	}

	if tpl.InPriceRange(snap.CurrentPrice) {
		say(priceFitBonus, "price %.2f inside target range %v", snap.CurrentPrice, tpl.PriceRange)
	} else {
		say(priceFitPenalty, "price %.2f outside target range %v; remaining rules skipped", snap.CurrentPrice, tpl.PriceRange)
		s.Confidence = clamp(points)
		return s
	}

	if snap.Liquidity != nil && tpl.MinATMOpenInterest > 0 {
		if snap.Liquidity.ATMOpenInterest >= tpl.MinATMOpenInterest {
			say(liquidityBonus, "ATM open interest %d >= %d", snap.Liquidity.ATMOpenInterest, tpl.MinATMOpenInterest)
		} else {
			say(liquidityPenalty, "ATM open interest %d < %d", snap.Liquidity.ATMOpenInterest, tpl.MinATMOpenInterest)
		}
	}

	if snap.Liquidity != nil && tpl.MaxSpreadPct > 0 {
		if snap.Liquidity.AvgSpreadPct <= tpl.MaxSpreadPct {
			say(spreadBonus, "avg spread %.1f%% within %.1f%%", snap.Liquidity.AvgSpreadPct*100, tpl.MaxSpreadPct*100)
		} else {
			say(spreadPenalty, "avg spread %.1f%% above %.1f%%", snap.Liquidity.AvgSpreadPct*100, tpl.MaxSpreadPct*100)
		}
	}

	if snap.Technicals != nil {
		rsi := snap.Technicals.RSI14
		switch {
		case tpl.Bias == catalog.BiasPut && rsi < rsiOversold:
			say(momentumBonus, "RSI %.1f oversold; favors put-centric entry", rsi)
		case tpl.Bias == catalog.BiasCall && rsi > rsiOverbought:
			say(momentumBonus, "RSI %.1f overbought; favors call-centric entry", rsi)
		}
	}

	if days, ok := snap.DaysToEarnings(now); ok {
		if days >= tpl.EarningsExitBuffer+earningsClearanceD {
			say(earningsBonus, "earnings in %dd, clear of %dd exit buffer", days, tpl.EarningsExitBuffer)
		} else {
			say(earningsPenalty, "earnings in %dd, inside %dd exit buffer + %dd clearance", days, tpl.EarningsExitBuffer, earningsClearanceD)
		}
	}

	if snap.IVPercentile != nil && tpl.PremiumSelling {
		if *snap.IVPercentile > 50 {
			say(ivRegimeBonus, "IV percentile %.0f favors premium selling", *snap.IVPercentile)
		} else {
			say(ivRegimePenalty, "IV percentile %.0f is thin premium", *snap.IVPercentile)
		}
	}

	s.Confidence = clamp(points)
	return s
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
