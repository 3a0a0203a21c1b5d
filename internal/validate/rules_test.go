package validate

import (
	"testing"

	"legwork/internal/types"

	"github.com/stretchr/testify/assert"
)

func cheapUniverseDoc() *types.Strategy {
	doc := validDoc()
	doc.Universe.PriceBetween = []float64{0.5, 3.5}
	doc.Position.Legs = []types.Leg{
		{Type: types.LegStock, Side: types.SideBuy, Qty: 100},
	}
	doc.Sizing.PerTradeCash = 300
	return doc
}

func TestCapitalDisciplineBlocksNakedShortOnCheapNames(t *testing.T) {
	doc := cheapUniverseDoc()
	doc.Position.Legs = []types.Leg{
		{Type: types.LegCall, Side: types.SideSell, Qty: 1, Strike: 3, Expiry: "2026-09-18"},
	}
	res := Strategy(doc, nil)
	assert.False(t, res.Valid)
	assert.True(t, res.HasCode(CodeCapitalDiscipline))
}

func TestCapitalDisciplineAllowsCoveredStructures(t *testing.T) {
	doc := cheapUniverseDoc()
	doc.Position.Legs = []types.Leg{
		{Type: types.LegCall, Side: types.SideSell, Qty: 1, Strike: 3, Expiry: "2026-09-18"},
		{Type: types.LegCall, Side: types.SideBuy, Qty: 1, Strike: 4, Expiry: "2026-09-18"},
	}
	res := Strategy(doc, nil)
	assert.False(t, res.HasCode(CodeCapitalDiscipline))
}

func TestCapitalDisciplineMismatchedTypeStillBlocks(t *testing.T) {
	// A long CALL does not cover a short PUT.
	doc := cheapUniverseDoc()
	doc.Position.Legs = []types.Leg{
		{Type: types.LegPut, Side: types.SideSell, Qty: 1, Strike: 3, Expiry: "2026-09-18"},
		{Type: types.LegCall, Side: types.SideBuy, Qty: 1, Strike: 4, Expiry: "2026-09-18"},
	}
	res := Strategy(doc, nil)
	assert.True(t, res.HasCode(CodeCapitalDiscipline))
}

func TestCapitalDisciplineIgnoresExpensiveUniverse(t *testing.T) {
	doc := validDoc() // cap $60, naked short put
	res := Strategy(doc, nil)
	assert.False(t, res.HasCode(CodeCapitalDiscipline))
}

func TestAutopilotRequiresAccountContext(t *testing.T) {
	doc := validDoc()
	doc.Automation = &types.Automation{
		ExecutionMode: types.ModeAutopilot,
		Gates:         &types.PerformanceGates{MinWinRate: 0.6},
	}
	res := Strategy(doc, nil)
	assert.False(t, res.Valid)
	found := false
	for _, is := range res.Errors {
		if is.Field == "account_context" {
			found = true
			assert.Equal(t, CodeRequiredField, is.Code)
		}
	}
	assert.True(t, found)
}

func TestAutopilotLiveGating(t *testing.T) {
	doc := validDoc()
	doc.Automation = &types.Automation{
		ExecutionMode: types.ModeAutopilot,
		Gates:         &types.PerformanceGates{MinWinRate: 0.6},
	}

	t.Run("insufficient history blocks", func(t *testing.T) {
		acct := &AccountContext{TradingMode: ModeLive, History: TradeHistory{Days: 30, WinRate: 0.7}}
		res := Strategy(doc, acct)
		assert.False(t, res.Valid)
		assert.True(t, res.HasCode(CodeAutopilotInsufficientHistory))
		assert.False(t, res.HasCode(CodeAutopilotWinRateTooLow))
	})

	t.Run("low win rate blocks", func(t *testing.T) {
		acct := &AccountContext{TradingMode: ModeLive, History: TradeHistory{Days: 120, WinRate: 0.55}}
		res := Strategy(doc, acct)
		assert.False(t, res.Valid)
		assert.True(t, res.HasCode(CodeAutopilotWinRateTooLow))
	})

	t.Run("both violations both reported", func(t *testing.T) {
		acct := &AccountContext{TradingMode: ModeLive, History: TradeHistory{Days: 10, WinRate: 0.1}}
		res := Strategy(doc, acct)
		assert.True(t, res.HasCode(CodeAutopilotInsufficientHistory))
		assert.True(t, res.HasCode(CodeAutopilotWinRateTooLow))
	})

	t.Run("qualified passes", func(t *testing.T) {
		acct := &AccountContext{TradingMode: ModeLive, History: TradeHistory{Days: 120, WinRate: 0.65}}
		res := Strategy(doc, acct)
		assert.True(t, res.Valid)
	})
}

func TestAutopilotSimulatedOnlyWarns(t *testing.T) {
	doc := validDoc()
	doc.Automation = &types.Automation{
		ExecutionMode: types.ModeAutopilot,
		Gates:         &types.PerformanceGates{MinWinRate: 0.6},
	}
	acct := &AccountContext{TradingMode: ModeSimulated, History: TradeHistory{Days: 10, WinRate: 0.2}}
	res := Strategy(doc, acct)
	assert.True(t, res.Valid)
	assert.True(t, res.HasCode(CodeAutopilotPaperMode))
}

func TestAutopilotDefaultWinRateThreshold(t *testing.T) {
	doc := validDoc()
	doc.Automation = &types.Automation{ExecutionMode: types.ModeAutopilot}

	acct := &AccountContext{TradingMode: ModeLive, History: TradeHistory{Days: 120, WinRate: 0.57}}
	res := Strategy(doc, acct)
	assert.True(t, res.HasCode(CodeAutopilotWinRateTooLow))
	assert.True(t, res.HasCode(CodeAutopilotNoGates))

	acct.History.WinRate = 0.58
	res = Strategy(doc, acct)
	assert.False(t, res.HasCode(CodeAutopilotWinRateTooLow))
}

func TestLiquidityAdvisoryOnCheapUniverse(t *testing.T) {
	doc := cheapUniverseDoc()
	doc.Entry.LiquidityChecks = false
	res := Strategy(doc, nil)
	assert.True(t, res.HasCode(CodeLiquidityChecksAdvised))

	doc.Entry.LiquidityChecks = true
	res = Strategy(doc, nil)
	assert.False(t, res.HasCode(CodeLiquidityChecksAdvised))
}
