package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"underwriting/server/internal/database"
	"underwriting/server/internal/disposition"
	"underwriting/server/internal/geocoding"
	"underwriting/server/internal/models"
	"underwriting/server/internal/queue"
	"underwriting/server/internal/underwriting"
)

type testServer struct {
	router *gin.Engine
	db     *database.Database
	queue  *queue.ActualsQueue
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	db, err := database.NewDatabase(":memory:", logger)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())
	t.Cleanup(func() { db.Close() })

	calculator := underwriting.NewCalculator(nil, underwriting.DefaultSettings())
	q := queue.NewActualsQueue(1, logger)
	t.Cleanup(func() { q.Close() })

	handler := NewHandler(Options{
		Store:        db,
		Calculator:   calculator,
		Dispositions: disposition.NewService(db, db, db, calculator, decimal.NewFromInt(3)),
		Queue:        q,
		MaxBatchSize: 3,
	}, logger)
	handler.now = func() time.Time { return time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC) }

	router := gin.New()
	SetupRoutes(router, handler)
	return &testServer{router: router, db: db, queue: q}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func dealBody() map[string]interface{} {
	return map[string]interface{}{
		"name":           "Maple Court",
		"city":           "Austin",
		"state":          "TX",
		"property_type":  "Multifamily",
		"unit_count":     100,
		"purchase_price": "10000000",
		"rent_per_unit":  "1000",
		"loan_ltv":       "70",
		"loan_rate":      "6.5",
		"closed_date":    "2024-06-01T00:00:00Z",
	}
}

func (s *testServer) createDeal(t *testing.T) uuid.UUID {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/deals", dealBody())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var deal models.DealAssumptions
	decode(t, w, &deal)
	require.NotEqual(t, uuid.Nil, deal.ID)
	return deal.ID
}

func monthBody(gri string) map[string]interface{} {
	return map[string]interface{}{
		"gross_rental_income": gri,
		"property_taxes":      "10000",
		"debt_service":        "20000",
		"occupied_units":      95,
		"total_units":         100,
	}
}

func TestUnderwrite(t *testing.T) {
	s := setupTestServer(t)

	w := s.do(t, http.MethodPost, "/api/underwrite", dealBody())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var report models.Report
	decode(t, w, &report)
	assert.Equal(t, "Maple Court", report.PropertyName)
	assert.Equal(t, 1, report.CoreMetrics.Number)
	assert.Equal(t, models.DecisionConditionalGo, report.InvestmentDecision.Decision)
	assert.Nil(t, report.Variance)
}

func TestUnderwrite_Errors(t *testing.T) {
	s := setupTestServer(t)

	tests := []struct {
		name   string
		body   interface{}
		status int
	}{
		{name: "malformed body", body: "not a deal", status: http.StatusBadRequest},
		{name: "negative opex ratio", body: func() map[string]interface{} {
			b := dealBody()
			b["opex_ratio"] = "-0.2"
			return b
		}(), status: http.StatusBadRequest},
		{name: "unknown property type", body: func() map[string]interface{} {
			b := dealBody()
			b["property_type"] = "Warehouse"
			return b
		}(), status: http.StatusBadRequest},
		{name: "hold beyond horizon", body: func() map[string]interface{} {
			b := dealBody()
			b["hold_years"] = 1500
			return b
		}(), status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/api/underwrite", tt.body)
			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), "error")
		})
	}
}

func TestDeals(t *testing.T) {
	s := setupTestServer(t)
	id := s.createDeal(t)

	w := s.do(t, http.MethodGet, "/api/deals/"+id.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var deal models.DealAssumptions
	decode(t, w, &deal)
	assert.Equal(t, "Austin", deal.City)

	w = s.do(t, http.MethodGet, "/api/deals", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var deals []models.DealAssumptions
	decode(t, w, &deals)
	assert.Len(t, deals, 1)

	w = s.do(t, http.MethodGet, "/api/deals/"+id.String()+"/calculation", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "going_in_cap_rate")

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/deals/"+uuid.NewString(), nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/deals/not-a-uuid", nil).Code)
}

func TestActualsAndVariance(t *testing.T) {
	s := setupTestServer(t)
	id := s.createDeal(t)
	base := "/api/deals/" + id.String()

	w := s.do(t, http.MethodGet, base+"/variance", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	for month, gri := range map[string]string{"1": "100000", "2": "102000", "4": "104000"} {
		w = s.do(t, http.MethodPut, base+"/actuals/2025/"+month, monthBody(gri))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w = s.do(t, http.MethodGet, base+"/actuals/2025/2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stored models.MonthlyActual
	decode(t, w, &stored)
	assert.True(t, decimal.NewFromInt(72000).Equal(stored.CashFlow))

	w = s.do(t, http.MethodGet, base+"/actuals/2025", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var months []models.MonthlyActual
	decode(t, w, &months)
	assert.Len(t, months, 3)

	w = s.do(t, http.MethodGet, base+"/actuals/2025/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var summary models.AnnualSummary
	decode(t, w, &summary)
	assert.Equal(t, 3, summary.MonthsReported)
	assert.True(t, decimal.NewFromInt(276000).Equal(summary.TotalNOI))

	w = s.do(t, http.MethodGet, base+"/actuals/2025/summary?quarter=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &summary)
	assert.Equal(t, 2, summary.MonthsReported)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, base+"/actuals/2025/summary?quarter=5", nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPut, base+"/actuals/2025/13", monthBody("1")).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPut, "/api/deals/"+uuid.NewString()+"/actuals/2025/1", monthBody("1")).Code)

	w = s.do(t, http.MethodGet, base+"/variance", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var variance models.VarianceReport
	decode(t, w, &variance)
	assert.Equal(t, 3, variance.MonthsReported)

	w = s.do(t, http.MethodGet, base+"/report", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var report models.Report
	decode(t, w, &report)
	require.NotNil(t, report.Variance)

	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, base+"/actuals/2025/4", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, base+"/actuals/2025/4", nil).Code)
}

func TestPostBatch(t *testing.T) {
	s := setupTestServer(t)
	id := s.createDeal(t)
	other := s.createDeal(t)
	path := "/api/deals/" + id.String() + "/actuals/batch"

	entry := func(month int) map[string]interface{} {
		b := monthBody("100000")
		b["year"] = 2025
		b["month"] = month
		return b
	}

	tests := []struct {
		name   string
		path   string
		body   interface{}
		status int
	}{
		{name: "empty", body: []interface{}{}, status: http.StatusBadRequest},
		{name: "too large", body: []interface{}{entry(1), entry(2), entry(3), entry(4)}, status: http.StatusBadRequest},
		{name: "invalid month", body: []interface{}{entry(1), entry(0)}, status: http.StatusBadRequest},
		{name: "accepted", body: []interface{}{entry(1), entry(2)}, status: http.StatusAccepted},
		{name: "same deal merges into pending batch", body: []interface{}{entry(3)}, status: http.StatusAccepted},
		{name: "queue full", path: "/api/deals/" + other.String() + "/actuals/batch", body: []interface{}{entry(3)}, status: http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := path
			if tt.path != "" {
				p = tt.path
			}
			w := s.do(t, http.MethodPost, p, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
	assert.Equal(t, 1, s.queue.Len())

	w := s.do(t, http.MethodPost, "/api/deals/"+uuid.NewString()+"/actuals/batch", []interface{}{entry(1)})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDisposition(t *testing.T) {
	s := setupTestServer(t)
	id := s.createDeal(t)
	base := "/api/deals/" + id.String() + "/disposition"

	w := s.do(t, http.MethodPost, base, map[string]interface{}{"broker_opinion_of_value": "11000000", "current_market_cap_rate": "5.5"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var analysis models.DispositionAnalysis
	decode(t, w, &analysis)
	require.NotNil(t, analysis.BrokerOpinionOfValue)
	assert.Equal(t, id, analysis.DealID)

	w = s.do(t, http.MethodGet, base+"/sell", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var sell models.SellScenario
	decode(t, w, &sell)
	assert.True(t, decimal.NewFromInt(11000000).Equal(sell.EstimatedSalePrice))
	assert.True(t, decimal.NewFromInt(330000).Equal(sell.SellingCosts))
	assert.Greater(t, sell.HoldPeriodMonths, 12)

	w = s.do(t, http.MethodGet, base+"/hold?years=3&growth=2", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var hold models.HoldScenario
	decode(t, w, &hold)
	assert.Equal(t, 3, hold.AdditionalYears)
	assert.True(t, decimal.RequireFromString("5.5").Equal(hold.ExitCapRate))

	w = s.do(t, http.MethodGet, base+"/refinance?loan=8000000&rate=6", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var refi models.RefinanceScenario
	decode(t, w, &refi)
	assert.True(t, decimal.NewFromInt(480000).Equal(refi.NewAnnualDebtService))

	unvalued := s.createDeal(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
	}{
		{name: "sell without valuation", method: http.MethodGet, path: "/api/deals/" + unvalued.String() + "/disposition/sell", status: http.StatusNotFound},
		{name: "hold beyond horizon", method: http.MethodGet, path: base + "/hold?years=51", status: http.StatusBadRequest},
		{name: "negative bov", method: http.MethodPost, path: base, body: map[string]interface{}{"broker_opinion_of_value": "-1"}, status: http.StatusBadRequest},
		{name: "hold zero years", method: http.MethodGet, path: base + "/hold?years=0", status: http.StatusBadRequest},
		{name: "hold bad growth", method: http.MethodGet, path: base + "/hold?growth=abc", status: http.StatusBadRequest},
		{name: "refinance missing rate", method: http.MethodGet, path: base + "/refinance?loan=1", status: http.StatusBadRequest},
		{name: "sell negative price", method: http.MethodGet, path: base + "/sell?price=-5", status: http.StatusBadRequest},
		{name: "unknown deal", method: http.MethodGet, path: "/api/deals/" + uuid.NewString() + "/disposition/sell", status: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, s.do(t, tt.method, tt.path, tt.body).Code)
		})
	}
}

func TestGetPropertyTypeDefaults(t *testing.T) {
	s := setupTestServer(t)

	w := s.do(t, http.MethodGet, "/api/property-types/assistedliving/defaults", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body struct {
		PropertyType models.PropertyType `json:"property_type"`
		Defaults     struct {
			MinDSCR decimal.Decimal `json:"min_dscr"`
		} `json:"defaults"`
	}
	decode(t, w, &body)
	assert.Equal(t, models.PropertyTypeAssistedLiving, body.PropertyType)
	assert.True(t, decimal.RequireFromString("1.4").Equal(body.Defaults.MinDSCR))

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/property-types/warehouse/defaults", nil).Code)
}

func TestCreateDeal_Geocodes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	search := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "Nowhere" {
			_, _ = io.WriteString(w, `[]`)
			return
		}
		_, _ = io.WriteString(w, `[{"lat":"30.2672","lon":"-97.7431"}]`)
	}))
	t.Cleanup(search.Close)

	db, err := database.NewDatabase(":memory:", logger)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())
	t.Cleanup(func() { db.Close() })

	handler := NewHandler(Options{
		Store:    db,
		Geocoder: geocoding.NewGeocoder(logger, search.URL, ""),
	}, logger)
	router := gin.New()
	SetupRoutes(router, handler)
	s := &testServer{router: router, db: db}

	w := s.do(t, http.MethodPost, "/api/deals", dealBody())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var deal models.DealAssumptions
	decode(t, w, &deal)
	require.NotNil(t, deal.Latitude)
	assert.InDelta(t, 30.2672, *deal.Latitude, 1e-9)

	// A failed lookup still creates the deal without coordinates.
	body := dealBody()
	body["city"], body["state"] = "Nowhere", ""
	w = s.do(t, http.MethodPost, "/api/deals", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var unlocated models.DealAssumptions
	decode(t, w, &unlocated)
	assert.Nil(t, unlocated.Latitude)
}
