package api

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"underwriting/server/internal/disposition"
	"underwriting/server/internal/geocoding"
	"underwriting/server/internal/models"
	"underwriting/server/internal/queue"
	"underwriting/server/internal/report"
	"underwriting/server/internal/underwriting"
)

// Store is the persistence the handlers read and write. *database.Database satisfies it.
type Store interface {
	GetDeal(ctx context.Context, id uuid.UUID) (*models.DealAssumptions, error)
	SaveDeal(ctx context.Context, deal *models.DealAssumptions) error
	ListDeals(ctx context.Context) ([]models.DealAssumptions, error)

	GetMonth(ctx context.Context, dealID uuid.UUID, year, month int) (*models.MonthlyActual, error)
	GetYear(ctx context.Context, dealID uuid.UUID, year int) ([]models.MonthlyActual, error)
	GetTrailingTwelve(ctx context.Context, dealID uuid.UUID, asOf time.Time) ([]models.MonthlyActual, error)
	SaveMonth(ctx context.Context, actual *models.MonthlyActual) (*models.MonthlyActual, error)
	DeleteMonth(ctx context.Context, dealID uuid.UUID, year, month int) error
}

type Handler struct {
	store        Store
	calculator   *underwriting.Calculator
	assembler    *report.Assembler
	dispositions *disposition.Service
	queue        *queue.ActualsQueue
	geocoder     *geocoding.Geocoder
	maxBatchSize int
	logger       *logrus.Logger
	now          func() time.Time
}

// Options carries the collaborators of a Handler.
type Options struct {
	Store        Store
	Calculator   *underwriting.Calculator
	Assembler    *report.Assembler
	Dispositions *disposition.Service
	Queue        *queue.ActualsQueue
	Geocoder     *geocoding.Geocoder
	MaxBatchSize int
}

func NewHandler(opts Options, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	if opts.Calculator == nil {
		opts.Calculator = underwriting.NewCalculator(nil, underwriting.DefaultSettings())
	}
	if opts.Assembler == nil {
		opts.Assembler = report.NewAssembler(opts.Calculator, nil, nil, nil, logger)
	}
	return &Handler{
		store:        opts.Store,
		calculator:   opts.Calculator,
		assembler:    opts.Assembler,
		dispositions: opts.Dispositions,
		queue:        opts.Queue,
		geocoder:     opts.Geocoder,
		maxBatchSize: opts.MaxBatchSize,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// respondError maps the error taxonomy onto HTTP status codes.
func (h *Handler) respondError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, models.ErrInvalidAssumption):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrDataUnavailable):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, queue.ErrQueueFull), errors.Is(err, queue.ErrQueueClosed):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		h.logger.WithError(err).WithField("path", c.FullPath()).Error(message)
		c.JSON(http.StatusInternalServerError, gin.H{"error": message})
	}
}

func (h *Handler) dealID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid deal id"})
		return uuid.Nil, false
	}
	return id, true
}

func intParam(c *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return v, true
}

// decimalQuery parses an optional decimal query parameter. A missing parameter is nil.
func decimalQuery(c *gin.Context, name string) (*decimal.Decimal, bool) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return nil, true
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return nil, false
	}
	return &v, true
}

// GetPropertyTypeDefaults returns the defaults row applied to a property type.
func (h *Handler) GetPropertyTypeDefaults(c *gin.Context) {
	pt, err := models.ParsePropertyType(c.Param("type"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"property_type": pt,
		"defaults":      h.calculator.Resolver().Defaults(pt),
	})
}
