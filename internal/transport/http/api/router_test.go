package apihttp

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"legwork/internal/catalog"
	"legwork/internal/config"
	"legwork/internal/scorer"
	"legwork/internal/version"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

const testCatalog = `templates:
  csp_value:
    archetype: cash_secured_put
    price_range: [50, 500]
    dte: 30
    bias: put
    premium_selling: true
    overrides_schema:
      type: object
      additionalProperties: false
      properties:
        dte:
          type: integer
          minimum: 7
          maximum: 60
  pcs_income:
    archetype: put_credit_spread
    price_range: [50, 500]
    strike_width: 5
    premium_selling: true
`

const strategyDoc = `{
  "strategy_id": "s-1",
  "universe": {"price_between": [10, 60], "max_spread_pct": 0.05, "earnings_buffer_days": 5},
  "entry": {"window_start": "09:45", "window_end": "15:30", "liquidity_checks": true},
  "position": {"legs": [{"type": "PUT", "side": "SELL", "qty": 1, "strike": 45, "expiry": "2026-09-18"}]},
  "sizing": {"allocation": "cash", "per_trade_cash": 4500, "max_concurrent_positions": 3},
  "exits": {"profit_target_pct": 0.5, "max_loss_pct": 1, "time_exit_dte": 7},
  "risk": {"portfolio_heat_max": 0.2, "slippage_budget_pct": 0.01, "max_order_reprices": 3},
  "automation": {"execution_mode": "requires_approval"},
  "broker_routing": {"order_type": "limit", "limit_price_strategy": "mid", "tolerance_pct": 0.02}
}`

func testEngine(t *testing.T) (*gin.Engine, *Router) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	path := filepath.Join(t.TempDir(), "templates.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testCatalog), 0o644))
	reg, err := catalog.NewRegistry(path)
	require.NoError(t, err)

	router := NewRouter(
		version.NewMemoryStore(),
		reg,
		scorer.NewService(reg),
		config.ProposalConfig{ApprovalTTLMinutes: 60, MaxReprices: 2},
		config.ChartConfig{Enabled: false},
	)
	engine := gin.New()
	router.Register(engine.Group("/api"))
	return engine, router
}

func do(engine *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestValidateEndpointAcceptsBareAndWrappedDocuments(t *testing.T) {
	engine, _ := testEngine(t)

	t.Run("bare document", func(t *testing.T) {
		w := do(engine, http.MethodPost, "/api/strategies/validate", strategyDoc)
		require.Equal(t, http.StatusOK, w.Code)
		assert.True(t, gjson.Get(w.Body.String(), "valid").Bool())
	})

	t.Run("wrapped with account", func(t *testing.T) {
		body := `{"document": ` + strategyDoc + `, "account": {"trading_mode": "live", "history": {"days": 120, "win_rate": 0.65}}}`
		w := do(engine, http.MethodPost, "/api/strategies/validate", body)
		require.Equal(t, http.StatusOK, w.Code)
		assert.True(t, gjson.Get(w.Body.String(), "valid").Bool())
	})

	t.Run("fenced document", func(t *testing.T) {
		w := do(engine, http.MethodPost, "/api/strategies/validate", "```json\n"+strategyDoc+"\n```")
		require.Equal(t, http.StatusOK, w.Code)
		assert.True(t, gjson.Get(w.Body.String(), "valid").Bool())
	})

	t.Run("garbage", func(t *testing.T) {
		w := do(engine, http.MethodPost, "/api/strategies/validate", "not json at all")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestStrategySaveAndHistory(t *testing.T) {
	engine, _ := testEngine(t)

	w := do(engine, http.MethodPost, "/api/strategies", strategyDoc)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), gjson.Get(w.Body.String(), "version").Int())

	w = do(engine, http.MethodPost, "/api/strategies", strategyDoc)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(2), gjson.Get(w.Body.String(), "version").Int())

	w = do(engine, http.MethodGet, "/api/strategies/s-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(2), gjson.Get(w.Body.String(), "version").Int())

	w = do(engine, http.MethodGet, "/api/strategies/s-1/history", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, gjson.Get(w.Body.String(), "revisions").Array(), 2)

	w = do(engine, http.MethodGet, "/api/strategies/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInvalidStrategyNotSaved(t *testing.T) {
	engine, _ := testEngine(t)

	w := do(engine, http.MethodPost, "/api/strategies", `{"strategy_id": "s-bad"}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(engine, http.MethodGet, "/api/strategies/s-bad", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPayoffEndpoint(t *testing.T) {
	engine, _ := testEngine(t)

	body := `{"current_price": 52, "legs": [
		{"type": "PUT", "side": "SELL", "qty": 1, "strike": 50, "price": 1.5},
		{"type": "PUT", "side": "BUY", "qty": 1, "strike": 45, "price": 0.5}
	]}`
	w := do(engine, http.MethodPost, "/api/payoff/theoretical", body)
	require.Equal(t, http.StatusOK, w.Code)

	out := w.Body.String()
	assert.InDelta(t, 100.0, gjson.Get(out, "theoretical.max_profit").Float(), 1e-9)
	assert.InDelta(t, 1.0, gjson.Get(out, "net_premium").Float(), 1e-9)
	assert.Len(t, gjson.Get(out, "theoretical.payoff_curve").Array(), 101)

	w = do(engine, http.MethodPost, "/api/payoff/theoretical", `{"current_price": 0, "legs": []}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPayoffChartDisabled(t *testing.T) {
	engine, _ := testEngine(t)
	w := do(engine, http.MethodPost, "/api/payoff/chart", `{"symbol": "XYZ", "current_price": 52, "legs": []}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestTemplatesListAndFilter(t *testing.T) {
	engine, _ := testEngine(t)

	w := do(engine, http.MethodGet, "/api/templates", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, gjson.Get(w.Body.String(), "templates").Array(), 2)

	w = do(engine, http.MethodGet, "/api/templates?price=30", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, gjson.Get(w.Body.String(), "templates").Array())
}

func TestOverridesEndpoint(t *testing.T) {
	engine, _ := testEngine(t)

	w := do(engine, http.MethodPost, "/api/templates/csp_value/overrides", `{"dte": 45}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(engine, http.MethodPost, "/api/templates/csp_value/overrides", `{"dte": 90}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(engine, http.MethodPost, "/api/templates/nope/overrides", `{}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func generateProposal(t *testing.T, engine *gin.Engine) string {
	t.Helper()
	body := `{"strategy_id": "s-1", "strategy_version": 1, "snapshot": {"symbol": "XYZ", "current_price": 184.10}}`
	w := do(engine, http.MethodPost, "/api/proposals/generate", body)
	require.Equal(t, http.StatusOK, w.Code)
	props := gjson.Get(w.Body.String(), "proposals").Array()
	require.NotEmpty(t, props)
	return props[0].Get("proposal_id").String()
}

func TestProposalToOrderLifecycle(t *testing.T) {
	engine, _ := testEngine(t)
	id := generateProposal(t, engine)

	w := do(engine, http.MethodGet, "/api/proposals/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pending", gjson.Get(w.Body.String(), "state").String())

	w = do(engine, http.MethodPost, "/api/proposals/"+id+"/approve", "")
	require.Equal(t, http.StatusOK, w.Code)
	orderID := gjson.Get(w.Body.String(), "order.order_id").String()
	require.NotEmpty(t, orderID)
	assert.Equal(t, "staged", gjson.Get(w.Body.String(), "order.state").String())

	// A decided proposal cannot be decided again.
	w = do(engine, http.MethodPost, "/api/proposals/"+id+"/reject", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(engine, http.MethodPost, "/api/orders/"+orderID+"/submit", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = do(engine, http.MethodPost, "/api/orders/"+orderID+"/reprice", `{"limit_price": 3.55}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), gjson.Get(w.Body.String(), "attempts").Int())

	w = do(engine, http.MethodPost, "/api/orders/"+orderID+"/fill", `{"partial": false}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "filled", gjson.Get(w.Body.String(), "state").String())

	w = do(engine, http.MethodPost, "/api/orders/"+orderID+"/cancel", "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRoutingHaltAfterRepeatedRejections(t *testing.T) {
	engine, _ := testEngine(t)

	for i := 0; i < 3; i++ {
		id := generateProposal(t, engine)
		w := do(engine, http.MethodPost, "/api/proposals/"+id+"/approve", "")
		require.Equal(t, http.StatusOK, w.Code)
		orderID := gjson.Get(w.Body.String(), "order.order_id").String()

		w = do(engine, http.MethodPost, "/api/orders/"+orderID+"/submit", "")
		require.Equal(t, http.StatusOK, w.Code)
		w = do(engine, http.MethodPost, "/api/orders/"+orderID+"/reject", "")
		require.Equal(t, http.StatusOK, w.Code)
	}

	id := generateProposal(t, engine)
	w := do(engine, http.MethodPost, "/api/proposals/"+id+"/approve", "")
	require.Equal(t, http.StatusOK, w.Code)
	orderID := gjson.Get(w.Body.String(), "order.order_id").String()

	w = do(engine, http.MethodPost, "/api/orders/"+orderID+"/submit", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestPositionLifecycle(t *testing.T) {
	engine, _ := testEngine(t)

	open := `{"position_id": "pos-1", "symbol": "XYZ", "current_price": 52, "legs": [
		{"type": "PUT", "side": "SELL", "qty": 1, "strike": 50, "theoretical_price": 1.5, "actual_price": 1.45, "current_price": 1.45},
		{"type": "PUT", "side": "BUY", "qty": 1, "strike": 45, "theoretical_price": 0.5, "actual_price": 0.52, "current_price": 0.52}
	]}`
	w := do(engine, http.MethodPost, "/api/positions", open)
	require.Equal(t, http.StatusOK, w.Code)
	assert.InDelta(t, 100.0, gjson.Get(w.Body.String(), "theoretical.max_profit").Float(), 1e-9)

	w = do(engine, http.MethodPost, "/api/positions/pos-1/refresh", `{"marks": [1.0, 0.3]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.InDelta(t, 23.0, gjson.Get(w.Body.String(), "actual.unrealized_pl").Float(), 1e-9)

	w = do(engine, http.MethodPost, "/api/positions/pos-1/refresh", `{"marks": [1.0]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(engine, http.MethodPost, "/api/positions/pos-1/close", `{"close_prices": [0.6, 0.15]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.InDelta(t, 48.0, gjson.Get(w.Body.String(), "realized_pl").Float(), 1e-9)

	w = do(engine, http.MethodPost, "/api/positions/pos-1/refresh", `{"marks": [1.0, 0.3]}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(engine, http.MethodGet, "/api/positions/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRefreshRejectedKeepsMarks(t *testing.T) {
	engine, _ := testEngine(t)
	openSpread := func(id string) {
		body := `{"position_id": "` + id + `", "symbol": "XYZ", "current_price": 52, "legs": [
			{"type": "PUT", "side": "SELL", "qty": 1, "strike": 50, "theoretical_price": 1.5, "actual_price": 1.45, "current_price": 1.45},
			{"type": "PUT", "side": "BUY", "qty": 1, "strike": 45, "theoretical_price": 0.5, "actual_price": 0.52, "current_price": 0.52}
		]}`
		w := do(engine, http.MethodPost, "/api/positions", body)
		require.Equal(t, http.StatusOK, w.Code)
	}

	t.Run("closed position keeps close prices", func(t *testing.T) {
		openSpread("pos-a")
		w := do(engine, http.MethodPost, "/api/positions/pos-a/close", `{"close_prices": [0.6, 0.15]}`)
		require.Equal(t, http.StatusOK, w.Code)

		w = do(engine, http.MethodPost, "/api/positions/pos-a/refresh", `{"marks": [9.99, 8.88]}`)
		require.Equal(t, http.StatusConflict, w.Code)

		w = do(engine, http.MethodGet, "/api/positions/pos-a", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.InDelta(t, 0.6, gjson.Get(w.Body.String(), "legs.0.current_price").Float(), 1e-9)
		assert.InDelta(t, 0.15, gjson.Get(w.Body.String(), "legs.1.current_price").Float(), 1e-9)
		assert.InDelta(t, 48.0, gjson.Get(w.Body.String(), "realized_pl").Float(), 1e-9)
	})

	t.Run("open position keeps prior marks on bad input", func(t *testing.T) {
		openSpread("pos-b")
		w := do(engine, http.MethodPost, "/api/positions/pos-b/refresh", `{"marks": [-1.0, 0.3]}`)
		require.Equal(t, http.StatusConflict, w.Code)

		w = do(engine, http.MethodGet, "/api/positions/pos-b", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.InDelta(t, 1.45, gjson.Get(w.Body.String(), "legs.0.current_price").Float(), 1e-9)
		assert.InDelta(t, 0.52, gjson.Get(w.Body.String(), "legs.1.current_price").Float(), 1e-9)
	})
}
