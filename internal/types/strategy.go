package types

// Strategy is a user-authored or templated strategy document. It is pure
// data: behavior lives in the validator, payoff engine and scorer.
//
// Top-level sections are pointers so a missing section can be told apart
// from a present-but-empty one when validating.
type Strategy struct {
	StrategyID    string         `json:"strategy_id"`
	Version       int            `json:"version"`
	Name          string         `json:"name,omitempty"`
	Universe      *Universe      `json:"universe"`
	Entry         *Entry         `json:"entry"`
	Position      *Position      `json:"position"`
	Sizing        *Sizing        `json:"sizing"`
	Exits         *Exits         `json:"exits"`
	Risk          *Risk          `json:"risk"`
	Automation    *Automation    `json:"automation"`
	BrokerRouting *BrokerRouting `json:"broker_routing"`
	UserOverrides map[string]any `json:"user_overrides,omitempty"`
}

// Clone returns a deep copy of the document. Stores keep clones so a
// caller mutating its document after save cannot rewrite a frozen revision.
func (s *Strategy) Clone() *Strategy {
	if s == nil {
		return nil
	}
	cp := *s
	if s.Universe != nil {
		u := *s.Universe
		u.PriceBetween = append([]float64(nil), s.Universe.PriceBetween...)
		cp.Universe = &u
	}
	if s.Entry != nil {
		e := *s.Entry
		cp.Entry = &e
	}
	if s.Position != nil {
		p := Position{Legs: make([]Leg, len(s.Position.Legs))}
		for i, leg := range s.Position.Legs {
			if leg.Delta != nil {
				d := *leg.Delta
				leg.Delta = &d
			}
			p.Legs[i] = leg
		}
		cp.Position = &p
	}
	if s.Sizing != nil {
		sz := *s.Sizing
		cp.Sizing = &sz
	}
	if s.Exits != nil {
		ex := *s.Exits
		cp.Exits = &ex
	}
	if s.Risk != nil {
		rk := *s.Risk
		cp.Risk = &rk
	}
	if s.Automation != nil {
		au := *s.Automation
		if s.Automation.Gates != nil {
			g := *s.Automation.Gates
			au.Gates = &g
		}
		cp.Automation = &au
	}
	if s.BrokerRouting != nil {
		br := *s.BrokerRouting
		cp.BrokerRouting = &br
	}
	if s.UserOverrides != nil {
		ov := make(map[string]any, len(s.UserOverrides))
		for k, v := range s.UserOverrides {
			ov[k] = v
		}
		cp.UserOverrides = ov
	}
	return &cp
}

// Universe filters which tickers the strategy may trade.
type Universe struct {
	PriceBetween       []float64 `json:"price_between"` // [low, high], ascending
	MinLiquidityShares float64   `json:"min_liquidity_shares"`
	MaxSpreadPct       float64   `json:"max_spread_pct"`
	EarningsBufferDays int       `json:"earnings_buffer_days"` // skip names reporting within N days
}

// PriceCap returns the upper bound of the price filter, 0 when unset.
func (u *Universe) PriceCap() float64 {
	if u == nil || len(u.PriceBetween) != 2 {
		return 0
	}
	return u.PriceBetween[1]
}

// Entry describes when positions may be opened.
type Entry struct {
	WindowStart     string `json:"window_start"` // "09:45" exchange time
	WindowEnd       string `json:"window_end"`
	LiquidityChecks bool   `json:"liquidity_checks"`
}

// Position holds the ordered leg list that defines the structure.
type Position struct {
	Legs []Leg `json:"legs"`
}

// Allocation policies for Sizing.
const (
	AllocationCash    = "cash"
	AllocationRiskPct = "risk_pct"
)

// Sizing controls capital allocation per trade and concurrency.
type Sizing struct {
	Allocation             string  `json:"allocation"`
	PerTradeCash           float64 `json:"per_trade_cash,omitempty"`
	RiskPerTradePct        float64 `json:"risk_per_trade_pct,omitempty"`
	MaxConcurrentPositions int     `json:"max_concurrent_positions"`
}

// Exits declares profit/loss/time exit thresholds. Percentages are
// fractions in [0,1].
type Exits struct {
	ProfitTargetPct        float64 `json:"profit_target_pct"`
	MaxLossPct             float64 `json:"max_loss_pct"`
	TimeExitDTE            int     `json:"time_exit_dte"`
	TimeExitBeforeEarnings int     `json:"time_exit_before_earnings_days"`
}

// Risk carries circuit breakers and execution-risk budgets.
type Risk struct {
	PortfolioHeatMax  float64 `json:"portfolio_heat_max"`
	SlippageBudgetPct float64 `json:"slippage_budget_pct"`
	MaxOrderReprices  int     `json:"max_order_reprices"`
	DailyLossHaltPct  float64 `json:"daily_loss_halt_pct,omitempty"`
}

// Execution modes for Automation.
const (
	ModeRequiresApproval = "requires_approval"
	ModeAutopilot        = "autopilot"
)

// Automation selects the execution mode and optional performance gates
// that must hold before autopilot may act.
type Automation struct {
	ExecutionMode string            `json:"execution_mode"`
	Gates         *PerformanceGates `json:"gates,omitempty"`
}

// PerformanceGates are observed-performance thresholds for autopilot.
// Zero values mean "gate not declared".
type PerformanceGates struct {
	MinWinRate     float64 `json:"min_win_rate,omitempty"`
	MinSharpe      float64 `json:"min_sharpe,omitempty"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct,omitempty"`
}

// Declared reports whether at least one gate threshold is set.
func (g *PerformanceGates) Declared() bool {
	return g != nil && (g.MinWinRate > 0 || g.MinSharpe > 0 || g.MaxDrawdownPct > 0)
}

// Order types for BrokerRouting.
const (
	OrderTypeLimit  = "limit"
	OrderTypeMarket = "market"
)

// BrokerRouting describes how approved orders are priced and routed.
type BrokerRouting struct {
	OrderType          string  `json:"order_type"`
	LimitPriceStrategy string  `json:"limit_price_strategy"` // "mid", "mid_plus", "cross"
	TolerancePct       float64 `json:"tolerance_pct"`
}
