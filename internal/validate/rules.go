package validate

import (
	"fmt"
	"strings"

	"legwork/internal/types"
)

// applyBusinessRules runs the cross-field Phase B checks. Structural
// problems found in Phase A do not suppress these: every rule guards its
// own inputs so one call reports everything at once.
func applyBusinessRules(doc *types.Strategy, acct *AccountContext, res *Result) {
	checkCapitalDiscipline(doc, res)
	checkAutopilotGating(doc, acct, res)
	checkLiquidityAdvisory(doc, res)
}

// checkCapitalDiscipline forbids undefined-risk short options on cheap
// names: a universe capped at <= $4 may not carry a short CALL/PUT without
// an offsetting long option of the same type.
func checkCapitalDiscipline(doc *types.Strategy, res *Result) {
	priceCap := doc.Universe.PriceCap()
	if priceCap <= 0 || priceCap > capitalDisciplineCapUSD || doc.Position == nil {
		return
	}
	longs := map[types.LegType]bool{}
	for _, leg := range doc.Position.Legs {
		if leg.Type.IsOption() && leg.Side == types.SideBuy {
			longs[leg.Type] = true
		}
	}
	for i, leg := range doc.Position.Legs {
		if !leg.Type.IsOption() || leg.Side != types.SideSell {
			continue
		}
		if !longs[leg.Type] {
			res.addError(fmt.Sprintf("position.legs[%d]", i),
				fmt.Sprintf("short %s without an offsetting long %s is undefined risk; disallowed on sub-$%.0f universes",
					leg.Type, leg.Type, capitalDisciplineCapUSD),
				CodeCapitalDiscipline)
		}
	}
}

// checkAutopilotGating enforces the observed-performance bar before a
// strategy may run unattended. Live mode blocks; simulated mode only
// advises. The account context comes from the caller, never from ambient
// state.
func checkAutopilotGating(doc *types.Strategy, acct *AccountContext, res *Result) {
	if doc.Automation == nil || doc.Automation.ExecutionMode != types.ModeAutopilot {
		return
	}
	if !doc.Automation.Gates.Declared() {
		res.addWarning("automation.gates",
			"autopilot strategy declares no performance gates (win rate / sharpe / drawdown)",
			CodeAutopilotNoGates)
	}
	if acct == nil {
		res.addError("account_context",
			"autopilot validation requires an account context (trading mode and trade history)",
			CodeRequiredField)
		return
	}

	threshold := DefaultAutopilotWinRate
	if doc.Automation.Gates != nil && doc.Automation.Gates.MinWinRate > 0 {
		threshold = doc.Automation.Gates.MinWinRate
	}
	hist := acct.History

	switch strings.TrimSpace(acct.TradingMode) {
	case ModeLive:
		if hist.Days < MinAutopilotHistoryDays {
			res.addError("automation.execution_mode",
				fmt.Sprintf("autopilot in live mode requires %d days of trade history, observed %d",
					MinAutopilotHistoryDays, hist.Days),
				CodeAutopilotInsufficientHistory)
		}
		if hist.WinRate < threshold {
			res.addError("automation.execution_mode",
				fmt.Sprintf("autopilot in live mode requires win rate >= %.2f, observed %.2f",
					threshold, hist.WinRate),
				CodeAutopilotWinRateTooLow)
		}
	default:
		// Simulated (and any unrecognized) mode never blocks.
		if hist.Days < MinAutopilotHistoryDays || hist.WinRate < threshold {
			res.addWarning("automation.execution_mode",
				fmt.Sprintf("autopilot would be blocked in live mode (history %dd, win rate %.2f vs %.2f); paper trading only",
					hist.Days, hist.WinRate, threshold),
				CodeAutopilotPaperMode)
		}
	}
}

// checkLiquidityAdvisory nudges sub-$4 strategies toward entry liquidity
// checks. Advisory only.
func checkLiquidityAdvisory(doc *types.Strategy, res *Result) {
	priceCap := doc.Universe.PriceCap()
	if priceCap <= 0 || priceCap > capitalDisciplineCapUSD {
		return
	}
	if doc.Entry != nil && !doc.Entry.LiquidityChecks {
		res.addWarning("entry.liquidity_checks",
			fmt.Sprintf("sub-$%.0f universe without entry liquidity checks; fills may be thin", capitalDisciplineCapUSD),
			CodeLiquidityChecksAdvised)
	}
}
