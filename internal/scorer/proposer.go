package scorer

import (
	"fmt"
	"math"

	"legwork/internal/catalog"
	"legwork/internal/payoff"
	"legwork/internal/types"
)

// Strike and premium construction constants. Strikes are fixed dollar
// offsets from the $5-rounded ATM strike; premiums are coarse estimates
// standing in until live quotes price the structure.
const (
	strikeIncrement = 5.0

	creditPerWidthPct = 0.30 // spread credit ~ 30% of width
	atmPremiumPct     = 0.02 // single short option ~ 2% of strike
	wingPremiumPct    = 0.01
)

// Suggestion is a concrete, risk-quantified trade proposal built from a
// template.
type Suggestion struct {
	TemplateID      string            `json:"template_id"`
	Archetype       string            `json:"archetype"`
	Symbol          string            `json:"symbol"`
	Confidence      int               `json:"confidence"`
	Reasoning       []string          `json:"reasoning"`
	ProposedLegs    []types.PricedLeg `json:"proposed_legs"`
	DTE             int               `json:"dte"`
	MaxRisk         float64           `json:"max_risk"`
	MaxProfit       float64           `json:"max_profit"`
	Breakevens      []float64         `json:"breakevens"`
	RiskRewardRatio float64           `json:"risk_reward_ratio"`
	Greeks          types.Greeks      `json:"greeks"`
}

// Propose instantiates the template's archetype at the current price:
// concrete strikes, estimated premiums, and the archetype's structural
// risk formula.
func Propose(tpl catalog.Template, symbol string, currentPrice float64, score Score) (Suggestion, error) {
	if currentPrice <= 0 || math.IsNaN(currentPrice) || math.IsInf(currentPrice, 0) {
		return Suggestion{}, fmt.Errorf("propose: bad current price %v", currentPrice)
	}
	atm := atmStrike(currentPrice)
	width := tpl.StrikeWidth
	if width <= 0 {
		width = strikeIncrement
	}

	sug := Suggestion{
		TemplateID: tpl.ID,
		Archetype:  tpl.Archetype,
		Symbol:     symbol,
		Confidence: score.Confidence,
		Reasoning:  score.Reasoning,
		DTE:        tpl.DTE,
	}

	switch tpl.Archetype {
	case catalog.ArchetypeCashSecuredPut:
		strike := atm - strikeIncrement
		credit := premiumEstimate(strike, atmPremiumPct)
		sug.ProposedLegs = []types.PricedLeg{
			{Type: types.LegPut, Side: types.SideSell, Qty: 1, Strike: strike, Price: credit},
		}
		sug.MaxProfit = credit * payoff.ContractMultiplier
		sug.MaxRisk = (strike - credit) * payoff.ContractMultiplier
		sug.Breakevens = []float64{strike - credit}

	case catalog.ArchetypePutCreditSpread:
		short := atm - strikeIncrement
		long := short - width
		credit := width * creditPerWidthPct
		sug.ProposedLegs = []types.PricedLeg{
			{Type: types.LegPut, Side: types.SideSell, Qty: 1, Strike: short, Price: premiumEstimate(short, atmPremiumPct)},
			{Type: types.LegPut, Side: types.SideBuy, Qty: 1, Strike: long, Price: premiumEstimate(short, atmPremiumPct) - credit},
		}
		sug.MaxProfit = credit * payoff.ContractMultiplier
		sug.MaxRisk = width*payoff.ContractMultiplier - credit*payoff.ContractMultiplier
		sug.Breakevens = []float64{short - credit}

	case catalog.ArchetypeIronCondor:
		shortPut := atm - 2*strikeIncrement
		longPut := shortPut - width
		shortCall := atm + 2*strikeIncrement
		longCall := shortCall + width
		credit := 2 * width * creditPerWidthPct
		half := credit / 2
		sug.ProposedLegs = []types.PricedLeg{
			{Type: types.LegPut, Side: types.SideSell, Qty: 1, Strike: shortPut, Price: premiumEstimate(shortPut, atmPremiumPct)},
			{Type: types.LegPut, Side: types.SideBuy, Qty: 1, Strike: longPut, Price: premiumEstimate(shortPut, atmPremiumPct) - half},
			{Type: types.LegCall, Side: types.SideSell, Qty: 1, Strike: shortCall, Price: premiumEstimate(shortCall, atmPremiumPct)},
			{Type: types.LegCall, Side: types.SideBuy, Qty: 1, Strike: longCall, Price: premiumEstimate(shortCall, atmPremiumPct) - half},
		}
		sug.MaxProfit = credit * payoff.ContractMultiplier
		sug.MaxRisk = width*payoff.ContractMultiplier - credit*payoff.ContractMultiplier
		sug.Breakevens = []float64{shortPut - credit, shortCall + credit}

	case catalog.ArchetypeCollar:
		putStrike := atm - strikeIncrement
		callStrike := atm + strikeIncrement
		putCost := premiumEstimate(putStrike, wingPremiumPct)
		callCredit := premiumEstimate(callStrike, wingPremiumPct)
		netDebit := putCost - callCredit
		sug.ProposedLegs = []types.PricedLeg{
			{Type: types.LegStock, Side: types.SideBuy, Qty: payoff.ContractMultiplier, Price: currentPrice},
			{Type: types.LegPut, Side: types.SideBuy, Qty: 1, Strike: putStrike, Price: putCost},
			{Type: types.LegCall, Side: types.SideSell, Qty: 1, Strike: callStrike, Price: callCredit},
		}
		sug.MaxProfit = (callStrike - currentPrice - netDebit) * payoff.ContractMultiplier
		sug.MaxRisk = (currentPrice - putStrike + netDebit) * payoff.ContractMultiplier
		sug.Breakevens = []float64{currentPrice + netDebit}

	default:
		return Suggestion{}, fmt.Errorf("propose: unknown archetype %q on template %s", tpl.Archetype, tpl.ID)
	}

	sug.RiskRewardRatio = sug.MaxProfit / math.Max(sug.MaxRisk, 1)
	sug.Greeks = payoff.AggregateGreeks(sug.ProposedLegs)
	return sug, nil
}

// atmStrike rounds the underlying to the nearest $5 strike.
func atmStrike(price float64) float64 {
	return math.Round(price/strikeIncrement) * strikeIncrement
}

func premiumEstimate(strike, pct float64) float64 {
	est := strike * pct
	if est < 0.05 {
		est = 0.05 // listed minimum tick
	}
	return math.Round(est*100) / 100
}
