package apihttp

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"legwork/internal/analysis/visual"
	"legwork/internal/catalog"
	"legwork/internal/config"
	"legwork/internal/logger"
	"legwork/internal/payoff"
	"legwork/internal/pkg/circuit"
	"legwork/internal/pkg/convert"
	"legwork/internal/pkg/jsonutil"
	"legwork/internal/scorer"
	"legwork/internal/tracker"
	"legwork/internal/types"
	"legwork/internal/validate"
	"legwork/internal/version"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// Router owns the API handlers and the in-process state for proposals,
// orders and live positions.
type Router struct {
	Versions  version.Store
	Catalog   *catalog.Registry
	Ranker    *scorer.Service
	Proposals config.ProposalConfig
	Chart     config.ChartConfig

	mu        sync.Mutex
	proposals map[string]*types.Proposal
	orders    map[string]*types.Order
	positions map[string]*types.PositionTracking

	// routing halt: repeated venue rejections open the breaker and block
	// further submissions until the cooldown lapses.
	breaker *circuit.CircuitBreaker
}

const (
	routingHaltThreshold = 3
	routingHaltCooldown  = 10 * time.Minute
)

// NewRouter wires the API router to its collaborators.
func NewRouter(versions version.Store, cat *catalog.Registry, ranker *scorer.Service, proposals config.ProposalConfig, chart config.ChartConfig) *Router {
	return &Router{
		Versions:  versions,
		Catalog:   cat,
		Ranker:    ranker,
		Proposals: proposals,
		Chart:     chart,
		proposals: make(map[string]*types.Proposal),
		orders:    make(map[string]*types.Order),
		positions: make(map[string]*types.PositionTracking),
		breaker:   circuit.NewCircuitBreaker("order-routing", routingHaltThreshold, routingHaltCooldown),
	}
}

// Register mounts all API routes under the given group.
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.POST("/strategies/validate", r.handleValidate)
	group.POST("/strategies", r.handleSaveStrategy)
	group.GET("/strategies/:id", r.handleStrategy)
	group.GET("/strategies/:id/history", r.handleStrategyHistory)

	group.POST("/payoff/theoretical", r.handlePayoff)
	group.POST("/payoff/chart", r.handlePayoffChart)

	group.GET("/templates", r.handleTemplates)
	group.POST("/templates/:id/overrides", r.handleValidateOverrides)
	group.POST("/proposals/generate", r.handleGenerateProposals)
	group.GET("/proposals/:id", r.handleProposal)
	group.POST("/proposals/:id/approve", r.handleApproveProposal)
	group.POST("/proposals/:id/reject", r.handleRejectProposal)

	group.GET("/orders/:id", r.handleOrder)
	group.POST("/orders/:id/submit", r.handleSubmitOrder)
	group.POST("/orders/:id/reprice", r.handleRepriceOrder)
	group.POST("/orders/:id/fill", r.handleFillOrder)
	group.POST("/orders/:id/reject", r.handleRejectOrder)
	group.POST("/orders/:id/cancel", r.handleCancelOrder)

	group.POST("/positions", r.handleOpenPosition)
	group.GET("/positions/:id", r.handlePosition)
	group.POST("/positions/:id/refresh", r.handleRefreshPosition)
	group.POST("/positions/:id/close", r.handleClosePosition)
}

// parseStrategyRequest accepts either {"document": {...}, "account": {...}}
// or a bare strategy document, optionally wrapped in a markdown code fence
// the way pasted documents usually arrive.
func parseStrategyRequest(raw []byte) (*types.Strategy, *validate.AccountContext, error) {
	body := strings.TrimSpace(string(raw))
	if extracted, ok := jsonutil.ExtractJSON(body); ok {
		body = extracted
	}
	if gjson.Get(body, "document").IsObject() {
		var req validateRequest
		if err := json.Unmarshal([]byte(body), &req); err != nil {
			return nil, nil, err
		}
		return req.Document, req.Account, nil
	}
	var doc types.Strategy
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, nil, err
	}
	return &doc, nil, nil
}

func (r *Router) handleValidate(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	doc, acct, err := parseStrategyRequest(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed strategy document: " + err.Error()})
		return
	}
	res := validate.Strategy(doc, acct)
	c.JSON(http.StatusOK, res)
}

func (r *Router) handleSaveStrategy(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	doc, acct, err := parseStrategyRequest(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed strategy document: " + err.Error()})
		return
	}
	res := validate.Strategy(doc, acct)
	if !res.Valid {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"validation": res})
		return
	}
	rev, err := r.Versions.Append(doc.StrategyID, doc, time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	logger.Infof("Strategy %s saved as version %d", rev.StrategyID, rev.Version)
	c.JSON(http.StatusOK, gin.H{
		"strategy_id": rev.StrategyID,
		"version":     rev.Version,
		"saved_at":    rev.SavedAt,
		"validation":  res,
	})
}

func (r *Router) handleStrategy(c *gin.Context) {
	rev, ok := r.Versions.Current(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown strategy: " + c.Param("id")})
		return
	}
	c.JSON(http.StatusOK, rev)
}

func (r *Router) handleStrategyHistory(c *gin.Context) {
	revs := r.Versions.History(c.Param("id"))
	if len(revs) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown strategy: " + c.Param("id")})
		return
	}
	c.JSON(http.StatusOK, gin.H{"strategy_id": c.Param("id"), "revisions": revs})
}

func (r *Router) handlePayoff(c *gin.Context) {
	var req payoffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	th, err := payoff.ComputeTheoretical(req.CurrentPrice, req.Legs)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"theoretical":    th,
		"net_premium":    payoff.NetPremium(req.Legs),
		"expected_value": th.ExpectedValue(),
	})
}

func (r *Router) handlePayoffChart(c *gin.Context) {
	if !r.Chart.Enabled {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "chart rendering is disabled"})
		return
	}
	var req payoffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Symbol) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required for chart rendering"})
		return
	}
	th, err := payoff.ComputeTheoretical(req.CurrentPrice, req.Legs)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	img, err := visual.RenderPayoff(visual.PayoffInput{
		Context:       c.Request.Context(),
		Symbol:        req.Symbol,
		Result:        *th,
		RenderTimeout: time.Duration(r.Chart.RenderTimeoutSeconds) * time.Second,
	})
	if err != nil {
		logger.Errorf("Payoff chart render failed for %s: %v", req.Symbol, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Disposition", "inline; filename="+img.Filename)
	c.Data(http.StatusOK, "image/png", img.Bytes)
}

func (r *Router) handleTemplates(c *gin.Context) {
	snap := r.Catalog.Snapshot()
	templates := snap.Sorted()
	if price := convert.ToFloat64(c.Query("price")); price > 0 {
		filtered := templates[:0]
		for _, tpl := range templates {
			if tpl.InPriceRange(price) {
				filtered = append(filtered, tpl)
			}
		}
		templates = filtered
	}
	c.JSON(http.StatusOK, gin.H{
		"version":   snap.Version,
		"loaded_at": snap.LoadedAt,
		"templates": templates,
	})
}

func (r *Router) handleValidateOverrides(c *gin.Context) {
	var overrides map[string]any
	if err := c.ShouldBindJSON(&overrides); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tpl, err := r.Catalog.ValidateOverrides(c.Param("id"), overrides)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"template": tpl.ID, "valid": true})
}

func (r *Router) handleGenerateProposals(c *gin.Context) {
	var req proposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	now := time.Now()
	suggestions, err := r.Ranker.Rank(c.Request.Context(), req.Snapshot, req.Overrides, now)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	deadline := now.Add(time.Duration(r.Proposals.ApprovalTTLMinutes) * time.Minute)
	out := make([]*types.Proposal, 0, len(suggestions))
	r.mu.Lock()
	for _, sug := range suggestions {
		p := &types.Proposal{
			ProposalID:      uuid.NewString(),
			StrategyID:      req.StrategyID,
			StrategyVersion: req.StrategyVersion,
			Symbol:          sug.Symbol,
			Template:        sug.TemplateID,
			Legs:            sug.ProposedLegs,
			Pricing: types.ProposalPricing{
				NetPremium: payoff.NetPremium(sug.ProposedLegs),
			},
			Risk: types.ProposalRisk{
				MaxRisk:         sug.MaxRisk,
				MaxProfit:       sug.MaxProfit,
				Breakevens:      sug.Breakevens,
				RiskRewardRatio: sug.RiskRewardRatio,
			},
			Greeks:           sug.Greeks,
			State:            types.ProposalPending,
			CreatedAt:        now,
			ApprovalDeadline: deadline,
		}
		r.proposals[p.ProposalID] = p
		out = append(out, p)
	}
	r.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"proposals": out, "suggestions": suggestions})
}

// lookupProposal fetches a proposal and lazily expires it when the approval
// deadline has passed.
func (r *Router) lookupProposal(id string, now time.Time) (*types.Proposal, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.proposals[id]
	if !ok {
		return nil, false
	}
	if p.State == types.ProposalPending && !p.ApprovalDeadline.IsZero() && now.After(p.ApprovalDeadline) {
		p.State = types.ProposalExpired
	}
	return p, true
}

func (r *Router) handleProposal(c *gin.Context) {
	p, ok := r.lookupProposal(c.Param("id"), time.Now())
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown proposal: " + c.Param("id")})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (r *Router) handleApproveProposal(c *gin.Context) {
	now := time.Now()
	p, ok := r.lookupProposal(c.Param("id"), now)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown proposal: " + c.Param("id")})
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := p.Approve(now); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	order, err := types.NewOrderFromProposal(uuid.NewString(), p, r.Proposals.MaxReprices, now)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	r.orders[order.OrderID] = order
	logger.Infof("Proposal %s approved, order %s staged", p.ProposalID, order.OrderID)
	c.JSON(http.StatusOK, gin.H{"proposal": p, "order": order})
}

func (r *Router) handleRejectProposal(c *gin.Context) {
	now := time.Now()
	p, ok := r.lookupProposal(c.Param("id"), now)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown proposal: " + c.Param("id")})
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := p.Reject(now); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (r *Router) lookupOrder(id string) (*types.Order, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	return o, ok
}

func (r *Router) handleOrder(c *gin.Context) {
	o, ok := r.lookupOrder(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown order: " + c.Param("id")})
		return
	}
	c.JSON(http.StatusOK, o)
}

// mutateOrder runs a state transition under the router lock and writes the
// uniform success/conflict response.
func (r *Router) mutateOrder(c *gin.Context, fn func(o *types.Order) error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[c.Param("id")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown order: " + c.Param("id")})
		return
	}
	if err := fn(o); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, o)
}

func (r *Router) handleSubmitOrder(c *gin.Context) {
	if !r.breaker.Allow() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "order routing halted after repeated rejections"})
		return
	}
	now := time.Now()
	r.mutateOrder(c, func(o *types.Order) error { return o.Submit(now) })
}

func (r *Router) handleRepriceOrder(c *gin.Context) {
	var req repriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	now := time.Now()
	r.mutateOrder(c, func(o *types.Order) error { return o.Reprice(req.LimitPrice, now) })
}

func (r *Router) handleFillOrder(c *gin.Context) {
	var req fillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	now := time.Now()
	r.mutateOrder(c, func(o *types.Order) error {
		if err := o.Fill(req.Partial, now); err != nil {
			return err
		}
		r.breaker.RecordSuccess()
		return nil
	})
}

func (r *Router) handleRejectOrder(c *gin.Context) {
	now := time.Now()
	r.mutateOrder(c, func(o *types.Order) error {
		if err := o.MarkRejected(now); err != nil {
			return err
		}
		r.breaker.RecordFailure()
		return nil
	})
}

func (r *Router) handleCancelOrder(c *gin.Context) {
	now := time.Now()
	r.mutateOrder(c, func(o *types.Order) error { return o.Cancel(now) })
}

func (r *Router) handleOpenPosition(c *gin.Context) {
	var req openPositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	priced := make([]types.PricedLeg, len(req.Legs))
	for i, leg := range req.Legs {
		priced[i] = types.PricedLeg{
			Type:   leg.Type,
			Side:   leg.Side,
			Qty:    leg.Qty,
			Strike: leg.Strike,
			Expiry: leg.Expiry,
			Price:  leg.TheoreticalPrice,
		}
	}
	th, err := payoff.ComputeTheoretical(req.CurrentPrice, priced)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	baseline := types.BaselineAnalytics{
		ExpectedValue: th.ExpectedValue(),
		MaxProfit:     th.MaxProfit,
		MaxLoss:       th.MaxLoss,
		Breakevens:    th.Breakevens,
		Greeks:        th.Greeks,
	}
	positionID := strings.TrimSpace(req.PositionID)
	if positionID == "" {
		positionID = uuid.NewString()
	}
	pt, err := tracker.NewTracking(positionID, req.ProposalID, req.Symbol, req.Legs, baseline, time.Now())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	r.mu.Lock()
	r.positions[pt.PositionID] = pt
	r.mu.Unlock()
	logger.Infof("Position %s opened on %s with %d legs", pt.PositionID, pt.Symbol, len(pt.Legs))
	c.JSON(http.StatusOK, pt)
}

func (r *Router) handlePosition(c *gin.Context) {
	r.mu.Lock()
	pt, ok := r.positions[c.Param("id")]
	r.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown position: " + c.Param("id")})
		return
	}
	c.JSON(http.StatusOK, pt)
}

func (r *Router) handleRefreshPosition(c *gin.Context) {
	var req refreshPositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	pt, ok := r.positions[c.Param("id")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown position: " + c.Param("id")})
		return
	}
	if len(req.Marks) != len(pt.Legs) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "marks must match leg count"})
		return
	}
	// Marks are committed only if the tracker accepts the update; a closed
	// position keeps the close prices written by tracker.Close.
	prev := make([]float64, len(pt.Legs))
	for i, mark := range req.Marks {
		prev[i] = pt.Legs[i].CurrentPrice
		pt.Legs[i].CurrentPrice = mark
	}
	if err := tracker.Update(pt, time.Now()); err != nil {
		for i, px := range prev {
			pt.Legs[i].CurrentPrice = px
		}
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, pt)
}

func (r *Router) handleClosePosition(c *gin.Context) {
	var req closePositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	pt, ok := r.positions[c.Param("id")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown position: " + c.Param("id")})
		return
	}
	if err := tracker.Close(pt, req.ClosePrices, time.Now()); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	logger.Infof("Position %s closed, realized P&L %.2f", pt.PositionID, pt.RealizedPL)
	c.JSON(http.StatusOK, pt)
}
