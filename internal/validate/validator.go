package validate

import (
	"fmt"
	"strings"

	"legwork/internal/types"
)

// TradingMode values for AccountContext.
const (
	ModeLive      = "live"
	ModeSimulated = "simulated"
)

// Autopilot policy constants.
const (
	DefaultAutopilotWinRate = 0.58
	MinAutopilotHistoryDays = 90
	capitalDisciplineCapUSD = 4.0
)

// TradeHistory summarizes observed per-strategy performance, supplied by
// the caller. The validator never reads ambient state.
type TradeHistory struct {
	Days    int     `json:"days"`
	Trades  int     `json:"trades"`
	WinRate float64 `json:"win_rate"`
}

// AccountContext is the external account/market context required to judge
// autopilot eligibility.
type AccountContext struct {
	TradingMode string       `json:"trading_mode"`
	History     TradeHistory `json:"history"`
}

// Strategy validates a strategy document. All problems come back as data;
// this function never panics and never returns an error. acct may be nil
// for requires_approval strategies; autopilot strategies need it.
func Strategy(doc *types.Strategy, acct *AccountContext) Result {
	var res Result
	if doc == nil {
		res.addError("strategy", "strategy document is required", CodeRequiredField)
		return res.finalize()
	}
	validateUniverse(doc.Universe, &res)
	validateEntry(doc.Entry, &res)
	validatePosition(doc.Position, &res)
	validateSizing(doc.Sizing, &res)
	validateExits(doc.Exits, &res)
	validateRisk(doc.Risk, &res)
	validateAutomation(doc.Automation, &res)
	validateBrokerRouting(doc.BrokerRouting, &res)

	applyBusinessRules(doc, acct, &res)
	return res.finalize()
}

func validateUniverse(u *types.Universe, res *Result) {
	if u == nil {
		res.addError("universe", "universe section is required", CodeRequiredField)
		return
	}
	switch len(u.PriceBetween) {
	case 0:
		res.addError("universe.price_between", "price filter is required", CodeRequiredField)
	case 2:
		lo, hi := u.PriceBetween[0], u.PriceBetween[1]
		if lo < 0 || hi <= 0 {
			res.addError("universe.price_between", "price bounds must be positive", CodeInvalidRange)
		} else if lo >= hi {
			res.addError("universe.price_between",
				fmt.Sprintf("price range must be ascending, got [%.2f, %.2f]", lo, hi), CodeInvalidRange)
		}
	default:
		res.addError("universe.price_between",
			fmt.Sprintf("price_between must be a [low, high] pair, got %d elements", len(u.PriceBetween)),
			CodeInvalidFormat)
	}
	checkFraction("universe.max_spread_pct", u.MaxSpreadPct, res)
	if u.EarningsBufferDays < 0 {
		res.addError("universe.earnings_buffer_days", "earnings buffer cannot be negative", CodeInvalidRange)
	}
}

func validateEntry(e *types.Entry, res *Result) {
	if e == nil {
		res.addError("entry", "entry section is required", CodeRequiredField)
		return
	}
	if strings.TrimSpace(e.WindowStart) == "" {
		res.addError("entry.window_start", "entry window start is required", CodeRequiredField)
	}
	if strings.TrimSpace(e.WindowEnd) == "" {
		res.addError("entry.window_end", "entry window end is required", CodeRequiredField)
	}
}

func validatePosition(p *types.Position, res *Result) {
	if p == nil {
		res.addError("position", "position section is required", CodeRequiredField)
		return
	}
	if len(p.Legs) == 0 {
		res.addError("position.legs", "position requires at least one leg", CodeRequiredField)
		return
	}
	for i, leg := range p.Legs {
		validateLeg(i, leg, res)
	}
}

func validateLeg(idx int, leg types.Leg, res *Result) {
	field := func(name string) string { return fmt.Sprintf("position.legs[%d].%s", idx, name) }

	if !leg.Type.Valid() {
		res.addError(field("type"),
			fmt.Sprintf("leg type must be STOCK, CALL or PUT, got %q", string(leg.Type)), CodeInvalidFormat)
	}
	if !leg.Side.Valid() {
		res.addError(field("side"),
			fmt.Sprintf("leg side must be BUY or SELL, got %q", string(leg.Side)), CodeInvalidFormat)
	}
	if leg.Qty < 0 {
		res.addError(field("qty"), "leg qty cannot be negative", CodeInvalidRange)
	}
	switch {
	case leg.Type == types.LegStock:
		if leg.Qty == 0 {
			res.addError(field("qty"), "stock legs must specify qty", CodeRequiredField)
		}
	case leg.Type.IsOption():
		if !leg.HasExplicitContract() && !leg.HasResolutionTarget() {
			res.addWarning(field("strike"),
				"option leg has neither an explicit strike/expiry nor a dte/delta target; strike resolution is deferred",
				CodeMissingOptional)
		}
		if leg.Delta != nil && (*leg.Delta < -1 || *leg.Delta > 1) {
			res.addError(field("delta"),
				fmt.Sprintf("delta target must lie in [-1, 1], got %.4f", *leg.Delta), CodeInvalidRange)
		}
		if leg.DTE < 0 {
			res.addError(field("dte"), "dte cannot be negative", CodeInvalidRange)
		}
	}
}

func validateSizing(s *types.Sizing, res *Result) {
	if s == nil {
		res.addError("sizing", "sizing section is required", CodeRequiredField)
		return
	}
	if s.MaxConcurrentPositions < 1 {
		res.addError("sizing.max_concurrent_positions",
			"max_concurrent_positions must be at least 1", CodeInvalidRange)
	}
	switch strings.TrimSpace(s.Allocation) {
	case "":
		res.addError("sizing.allocation", "allocation policy is required", CodeRequiredField)
	case types.AllocationCash:
		if s.PerTradeCash <= 0 {
			res.addError("sizing.per_trade_cash",
				"cash allocation requires per_trade_cash", CodeRequiredField)
		}
	case types.AllocationRiskPct:
		if s.RiskPerTradePct == 0 {
			res.addError("sizing.risk_per_trade_pct",
				"risk-based allocation requires risk_per_trade_pct", CodeRequiredField)
		} else {
			checkFraction("sizing.risk_per_trade_pct", s.RiskPerTradePct, res)
		}
	default:
		res.addError("sizing.allocation",
			fmt.Sprintf("unknown allocation policy %q", s.Allocation), CodeInvalidFormat)
	}
}

func validateExits(e *types.Exits, res *Result) {
	if e == nil {
		res.addError("exits", "exits section is required", CodeRequiredField)
		return
	}
	checkFraction("exits.profit_target_pct", e.ProfitTargetPct, res)
	checkFraction("exits.max_loss_pct", e.MaxLossPct, res)
	if e.TimeExitDTE < 0 {
		res.addError("exits.time_exit_dte", "time exit DTE cannot be negative", CodeInvalidRange)
	}
	if e.TimeExitBeforeEarnings < 0 {
		res.addError("exits.time_exit_before_earnings_days",
			"earnings exit buffer cannot be negative", CodeInvalidRange)
	}
}

func validateRisk(r *types.Risk, res *Result) {
	if r == nil {
		res.addError("risk", "risk section is required", CodeRequiredField)
		return
	}
	checkFraction("risk.portfolio_heat_max", r.PortfolioHeatMax, res)
	checkFraction("risk.slippage_budget_pct", r.SlippageBudgetPct, res)
	if r.MaxOrderReprices < 0 {
		res.addError("risk.max_order_reprices", "max_order_reprices cannot be negative", CodeInvalidRange)
	}
}

func validateAutomation(a *types.Automation, res *Result) {
	if a == nil {
		res.addError("automation", "automation section is required", CodeRequiredField)
		return
	}
	switch strings.TrimSpace(a.ExecutionMode) {
	case "":
		res.addError("automation.execution_mode", "execution mode is required", CodeRequiredField)
	case types.ModeRequiresApproval, types.ModeAutopilot:
	default:
		res.addError("automation.execution_mode",
			fmt.Sprintf("execution mode must be %q or %q, got %q",
				types.ModeRequiresApproval, types.ModeAutopilot, a.ExecutionMode), CodeInvalidFormat)
	}
	if a.Gates != nil {
		checkFraction("automation.gates.min_win_rate", a.Gates.MinWinRate, res)
		checkFraction("automation.gates.max_drawdown_pct", a.Gates.MaxDrawdownPct, res)
	}
}

func validateBrokerRouting(b *types.BrokerRouting, res *Result) {
	if b == nil {
		res.addError("broker_routing", "broker_routing section is required", CodeRequiredField)
		return
	}
	switch strings.TrimSpace(b.OrderType) {
	case "":
		res.addError("broker_routing.order_type", "order type is required", CodeRequiredField)
	case types.OrderTypeLimit, types.OrderTypeMarket:
	default:
		res.addError("broker_routing.order_type",
			fmt.Sprintf("unknown order type %q", b.OrderType), CodeInvalidFormat)
	}
	if b.OrderType == types.OrderTypeLimit && strings.TrimSpace(b.LimitPriceStrategy) == "" {
		res.addError("broker_routing.limit_price_strategy",
			"limit orders require a limit price strategy", CodeRequiredField)
	}
	checkFraction("broker_routing.tolerance_pct", b.TolerancePct, res)
}

// checkFraction enforces the spec-wide rule that declared fractions lie in
// [0,1]. Zero is "unset" and always acceptable.
func checkFraction(field string, v float64, res *Result) {
	if v < 0 || v > 1 {
		res.addError(field, fmt.Sprintf("%s must lie in [0, 1], got %.4f", field, v), CodeInvalidRange)
	}
}
