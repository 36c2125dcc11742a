package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"underwriting/server/internal/actuals"
	"underwriting/server/internal/models"
)

// requireDeal writes a 404 and returns false when the deal does not exist.
func (h *Handler) requireDeal(c *gin.Context, id uuid.UUID) bool {
	if _, err := h.store.GetDeal(c.Request.Context(), id); err != nil {
		h.respondError(c, err, "Failed to get deal")
		return false
	}
	return true
}

// PutMonth records one month of actuals, replacing any earlier entry.
func (h *Handler) PutMonth(c *gin.Context) {
	id, ok := h.dealID(c)
	if !ok {
		return
	}
	year, ok := intParam(c, "year")
	if !ok {
		return
	}
	month, ok := intParam(c, "month")
	if !ok {
		return
	}

	var actual models.MonthlyActual
	if err := c.ShouldBindJSON(&actual); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid actuals: " + err.Error()})
		return
	}
	actual.DealID, actual.Year, actual.Month = id, year, month
	if err := actual.Validate(); err != nil {
		h.respondError(c, err, "Failed to save actuals")
		return
	}
	if !h.requireDeal(c, id) {
		return
	}

	stored, err := h.store.SaveMonth(c.Request.Context(), &actual)
	if err != nil {
		h.respondError(c, err, "Failed to save actuals")
		return
	}
	c.JSON(http.StatusOK, stored)
}

// PostBatch validates a batch of months and queues it for storage.
func (h *Handler) PostBatch(c *gin.Context) {
	id, ok := h.dealID(c)
	if !ok {
		return
	}

	var batch []*models.MonthlyActual
	if err := c.ShouldBindJSON(&batch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid actuals batch: " + err.Error()})
		return
	}
	if len(batch) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Empty actuals batch"})
		return
	}
	if h.maxBatchSize > 0 && len(batch) > h.maxBatchSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Batch exceeds %d months", h.maxBatchSize)})
		return
	}
	for _, a := range batch {
		if a == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Null entry in actuals batch"})
			return
		}
		a.DealID = id
		a.ID = uuid.Nil
		if err := a.Validate(); err != nil {
			h.respondError(c, err, "Failed to queue actuals")
			return
		}
	}
	if !h.requireDeal(c, id) {
		return
	}
	if h.queue == nil {
		h.respondError(c, fmt.Errorf("actuals queue not configured"), "Batch ingestion unavailable")
		return
	}

	if err := h.queue.Push(batch); err != nil {
		h.respondError(c, err, "Failed to queue actuals")
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"accepted": len(batch)})
}

func (h *Handler) GetMonth(c *gin.Context) {
	id, ok := h.dealID(c)
	if !ok {
		return
	}
	year, ok := intParam(c, "year")
	if !ok {
		return
	}
	month, ok := intParam(c, "month")
	if !ok {
		return
	}
	actual, err := h.store.GetMonth(c.Request.Context(), id, year, month)
	if err != nil {
		h.respondError(c, err, "Failed to get actuals")
		return
	}
	c.JSON(http.StatusOK, actual)
}

func (h *Handler) DeleteMonth(c *gin.Context) {
	id, ok := h.dealID(c)
	if !ok {
		return
	}
	year, ok := intParam(c, "year")
	if !ok {
		return
	}
	month, ok := intParam(c, "month")
	if !ok {
		return
	}
	if err := h.store.DeleteMonth(c.Request.Context(), id, year, month); err != nil {
		h.respondError(c, err, "Failed to delete actuals")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) GetYear(c *gin.Context) {
	id, ok := h.dealID(c)
	if !ok {
		return
	}
	year, ok := intParam(c, "year")
	if !ok {
		return
	}
	months, err := h.store.GetYear(c.Request.Context(), id, year)
	if err != nil {
		h.respondError(c, err, "Failed to get actuals")
		return
	}
	c.JSON(http.StatusOK, months)
}

// GetYearSummary rolls up a year, or one quarter of it with ?quarter=N.
func (h *Handler) GetYearSummary(c *gin.Context) {
	id, ok := h.dealID(c)
	if !ok {
		return
	}
	year, ok := intParam(c, "year")
	if !ok {
		return
	}
	months, err := h.store.GetYear(c.Request.Context(), id, year)
	if err != nil {
		h.respondError(c, err, "Failed to get actuals")
		return
	}

	var summary models.AnnualSummary
	if raw := c.Query("quarter"); raw != "" {
		quarter, convErr := strconv.Atoi(raw)
		if convErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid quarter"})
			return
		}
		summary, err = actuals.AggregateQuarter(year, quarter, months)
	} else {
		summary, err = actuals.AggregateYear(year, months)
	}
	if err != nil {
		h.respondError(c, err, "Failed to summarize actuals")
		return
	}
	c.JSON(http.StatusOK, summary)
}
