package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"underwriting/server/internal/actuals"
	"underwriting/server/internal/models"
	"underwriting/server/internal/underwriting"
)

// Underwrite builds a report for the posted deal without storing it.
func (h *Handler) Underwrite(c *gin.Context) {
	var deal models.DealAssumptions
	if err := c.ShouldBindJSON(&deal); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid deal: " + err.Error()})
		return
	}
	if err := deal.Validate(); err != nil {
		h.respondError(c, err, "Failed to underwrite deal")
		return
	}

	report, err := h.assembler.Assemble(c.Request.Context(), &deal, nil)
	if err != nil {
		h.respondError(c, err, "Failed to underwrite deal")
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) CreateDeal(c *gin.Context) {
	var deal models.DealAssumptions
	if err := c.ShouldBindJSON(&deal); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid deal: " + err.Error()})
		return
	}
	if h.geocoder != nil {
		if err := h.geocoder.Locate(c.Request.Context(), &deal); err != nil {
			h.logger.WithError(err).WithField("address", deal.Address).Warn("Could not geocode deal")
		}
	}
	if err := h.store.SaveDeal(c.Request.Context(), &deal); err != nil {
		h.respondError(c, err, "Failed to save deal")
		return
	}
	h.logger.WithField("deal_id", deal.ID).Info("Created deal")
	c.JSON(http.StatusCreated, deal)
}

func (h *Handler) ListDeals(c *gin.Context) {
	deals, err := h.store.ListDeals(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "Failed to list deals")
		return
	}
	c.JSON(http.StatusOK, deals)
}

func (h *Handler) GetDeal(c *gin.Context) {
	id, ok := h.dealID(c)
	if !ok {
		return
	}
	deal, err := h.store.GetDeal(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "Failed to get deal")
		return
	}
	c.JSON(http.StatusOK, deal)
}

// GetCalculation returns the raw underwriting figures of a stored deal.
func (h *Handler) GetCalculation(c *gin.Context) {
	id, ok := h.dealID(c)
	if !ok {
		return
	}
	deal, err := h.store.GetDeal(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "Failed to get deal")
		return
	}
	calc, err := h.calculator.Calculate(deal, underwriting.MarketInputs{})
	if err != nil {
		h.respondError(c, err, "Failed to calculate deal")
		return
	}
	c.JSON(http.StatusOK, calc)
}

// GetReport assembles the report of a stored deal, reconciled against its
// trailing twelve months of actuals.
func (h *Handler) GetReport(c *gin.Context) {
	id, ok := h.dealID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	deal, err := h.store.GetDeal(ctx, id)
	if err != nil {
		h.respondError(c, err, "Failed to get deal")
		return
	}
	monthly, err := h.store.GetTrailingTwelve(ctx, id, h.now())
	if err != nil {
		h.respondError(c, err, "Failed to load actuals")
		return
	}

	report, err := h.assembler.Assemble(ctx, deal, monthly)
	if err != nil {
		h.respondError(c, err, "Failed to assemble report")
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetVariance compares the trailing twelve months of actuals to the projection.
func (h *Handler) GetVariance(c *gin.Context) {
	id, ok := h.dealID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	deal, err := h.store.GetDeal(ctx, id)
	if err != nil {
		h.respondError(c, err, "Failed to get deal")
		return
	}
	calc, err := h.calculator.Calculate(deal, underwriting.MarketInputs{})
	if err != nil {
		h.respondError(c, err, "Failed to calculate deal")
		return
	}
	monthly, err := h.store.GetTrailingTwelve(ctx, id, h.now())
	if err != nil {
		h.respondError(c, err, "Failed to load actuals")
		return
	}

	variance, err := actuals.BuildReport(calc, monthly)
	if err != nil {
		h.respondError(c, err, "Failed to build variance report")
		return
	}
	if variance == nil {
		h.respondError(c, fmt.Errorf("no actuals recorded: %w", models.ErrDataUnavailable), "")
		return
	}
	c.JSON(http.StatusOK, variance)
}
