package market

import (
	"math"
	"time"
)

// Candle is one daily bar. Times are unix milliseconds.
type Candle struct {
	OpenTime  int64   `json:"open_time"`
	CloseTime int64   `json:"close_time"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// Technicals are the indicator readings the scorer consumes. Optional on a
// snapshot: a missing block simply skips the momentum rule.
type Technicals struct {
	RSI14 float64 `json:"rsi14"`
}

// OptionsLiquidity summarizes the option chain near the money.
type OptionsLiquidity struct {
	ATMOpenInterest int     `json:"atm_open_interest"`
	AvgSpreadPct    float64 `json:"avg_spread_pct"` // fraction of mid
}

// Snapshot is the market context handed to the scorer. Everything beyond
// symbol and price is optional; scoring degrades gracefully when a block
// is absent.
type Snapshot struct {
	Symbol       string            `json:"symbol"`
	CurrentPrice float64           `json:"current_price"`
	Technicals   *Technicals       `json:"technicals,omitempty"`
	Liquidity    *OptionsLiquidity `json:"options_liquidity,omitempty"`
	EarningsDate *time.Time        `json:"earnings_date,omitempty"`
	IVPercentile *float64          `json:"iv_percentile,omitempty"`
	AsOf         time.Time         `json:"as_of"`
}

// Usable reports whether the snapshot carries the minimum the scorer needs.
func (s Snapshot) Usable() bool {
	return s.Symbol != "" && s.CurrentPrice > 0 &&
		!math.IsNaN(s.CurrentPrice) && !math.IsInf(s.CurrentPrice, 0)
}

// DaysToEarnings returns whole days until the next earnings report, false
// when no earnings date is known.
func (s Snapshot) DaysToEarnings(now time.Time) (int, bool) {
	if s.EarningsDate == nil {
		return 0, false
	}
	d := int(s.EarningsDate.Sub(now).Hours() / 24)
	return d, true
}
