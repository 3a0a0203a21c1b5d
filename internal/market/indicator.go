package market

import (
	"fmt"

	talib "github.com/markcheno/go-talib"
)

const rsiPeriod = 14

// TechnicalsFromCandles derives the snapshot technicals from daily bars,
// for callers that have raw candles but no indicator service. Needs at
// least rsiPeriod+1 bars.
func TechnicalsFromCandles(candles []Candle) (*Technicals, error) {
	if len(candles) < rsiPeriod+1 {
		return nil, fmt.Errorf("technicals: need %d candles, got %d", rsiPeriod+1, len(candles))
	}
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	series := talib.Rsi(closes, rsiPeriod)
	if len(series) == 0 {
		return nil, fmt.Errorf("technicals: talib produced no RSI output")
	}
	return &Technicals{RSI14: series[len(series)-1]}, nil
}

// EnrichSnapshot fills missing snapshot blocks from candles when possible.
// Present blocks are left alone.
func EnrichSnapshot(s *Snapshot, candles []Candle) error {
	if s == nil {
		return fmt.Errorf("technicals: nil snapshot")
	}
	if s.Technicals != nil {
		return nil
	}
	tech, err := TechnicalsFromCandles(candles)
	if err != nil {
		return err
	}
	s.Technicals = tech
	return nil
}
