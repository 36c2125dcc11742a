package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// DispositionRequest sets the valuation inputs of a deal's disposition snapshot.
type DispositionRequest struct {
	BrokerOpinionOfValue *decimal.Decimal `json:"broker_opinion_of_value"`
	CurrentMarketCapRate *decimal.Decimal `json:"current_market_cap_rate"`
}

func (h *Handler) dispositionsReady(c *gin.Context) bool {
	if h.dispositions == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Disposition analysis unavailable"})
		return false
	}
	return true
}

func (h *Handler) AnalyzeDisposition(c *gin.Context) {
	id, ok := h.dealID(c)
	if !ok || !h.dispositionsReady(c) {
		return
	}
	var req DispositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid disposition request: " + err.Error()})
		return
	}

	analysis, err := h.dispositions.Analyze(c.Request.Context(), id, req.BrokerOpinionOfValue, req.CurrentMarketCapRate)
	if err != nil {
		h.respondError(c, err, "Failed to analyze disposition")
		return
	}
	c.JSON(http.StatusOK, analysis)
}

// GetHoldScenario handles ?years=N&growth=G; years defaults to 5 and growth to 3%.
func (h *Handler) GetHoldScenario(c *gin.Context) {
	id, ok := h.dealID(c)
	if !ok || !h.dispositionsReady(c) {
		return
	}
	years, err := strconv.Atoi(c.DefaultQuery("years", "5"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid years"})
		return
	}
	growth, ok := decimalQuery(c, "growth")
	if !ok {
		return
	}
	if growth == nil {
		g := decimal.NewFromInt(3)
		growth = &g
	}

	scenario, err := h.dispositions.Hold(c.Request.Context(), id, years, *growth)
	if err != nil {
		h.respondError(c, err, "Failed to run hold scenario")
		return
	}
	c.JSON(http.StatusOK, scenario)
}

// GetSellScenario handles ?price=P&cost_percent=C. Without a price the broker
// opinion of value or implied value is used.
func (h *Handler) GetSellScenario(c *gin.Context) {
	id, ok := h.dealID(c)
	if !ok || !h.dispositionsReady(c) {
		return
	}
	price, ok := decimalQuery(c, "price")
	if !ok {
		return
	}
	costPercent, ok := decimalQuery(c, "cost_percent")
	if !ok {
		return
	}

	scenario, err := h.dispositions.Sell(c.Request.Context(), id, price, costPercent)
	if err != nil {
		h.respondError(c, err, "Failed to run sell scenario")
		return
	}
	c.JSON(http.StatusOK, scenario)
}

// GetRefinanceScenario handles ?loan=L&rate=R; both are required.
func (h *Handler) GetRefinanceScenario(c *gin.Context) {
	id, ok := h.dealID(c)
	if !ok || !h.dispositionsReady(c) {
		return
	}
	loan, ok := decimalQuery(c, "loan")
	if !ok {
		return
	}
	rate, ok := decimalQuery(c, "rate")
	if !ok {
		return
	}
	if loan == nil || rate == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "loan and rate are required"})
		return
	}

	scenario, err := h.dispositions.Refinance(c.Request.Context(), id, *loan, *rate)
	if err != nil {
		h.respondError(c, err, "Failed to run refinance scenario")
		return
	}
	c.JSON(http.StatusOK, scenario)
}
