package database

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"underwriting/server/internal/models"
)

func setupTestDatabase(t *testing.T) *Database {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	db, err := NewDatabase(memoryPath, logger)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())
	t.Cleanup(func() { db.Close() })
	return db
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func decPtr(v string) *decimal.Decimal {
	d := dec(v)
	return &d
}

func testDeal() *models.DealAssumptions {
	closed := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	return &models.DealAssumptions{
		Name:          "Maple Court",
		City:          "Austin",
		State:         "TX",
		PropertyType:  models.PropertyTypeMultifamily,
		UnitCount:     100,
		PurchasePrice: dec("10000000"),
		RentPerUnit:   decPtr("1000"),
		LoanRate:      decPtr("6.5"),
		DetailedExpenses: &models.DetailedExpenses{
			RealEstateTaxes: decPtr("150000"),
		},
		ClosedDate: &closed,
	}
}

func month(dealID uuid.UUID, year, m int, gri string) *models.MonthlyActual {
	return &models.MonthlyActual{
		DealID:            dealID,
		Year:              year,
		Month:             m,
		GrossRentalIncome: dec(gri),
		PropertyTaxes:     dec("10000"),
		DebtService:       dec("20000"),
		OccupiedUnits:     95,
		TotalUnits:        100,
	}
}

func TestDeals(t *testing.T) {
	ctx := context.Background()
	db := setupTestDatabase(t)

	deal := testDeal()
	require.NoError(t, db.SaveDeal(ctx, deal))
	require.NotEqual(t, uuid.Nil, deal.ID)
	assert.False(t, deal.CreatedAt.IsZero())

	stored, err := db.GetDeal(ctx, deal.ID)
	require.NoError(t, err)
	assert.Equal(t, "Maple Court", stored.Name)
	assert.Equal(t, models.PropertyTypeMultifamily, stored.PropertyType)
	assert.True(t, dec("10000000").Equal(stored.PurchasePrice))
	require.NotNil(t, stored.RentPerUnit)
	assert.True(t, dec("1000").Equal(*stored.RentPerUnit))
	assert.Nil(t, stored.LoanLTV)
	require.NotNil(t, stored.DetailedExpenses)
	require.NotNil(t, stored.DetailedExpenses.RealEstateTaxes)
	assert.True(t, dec("150000").Equal(*stored.DetailedExpenses.RealEstateTaxes))
	require.NotNil(t, stored.ClosedDate)
	assert.True(t, deal.ClosedDate.Equal(*stored.ClosedDate))

	stored.Name = "Maple Court II"
	require.NoError(t, db.SaveDeal(ctx, stored))
	deals, err := db.ListDeals(ctx)
	require.NoError(t, err)
	require.Len(t, deals, 1)
	assert.Equal(t, "Maple Court II", deals[0].Name)

	_, err = db.GetDeal(ctx, uuid.New())
	assert.ErrorIs(t, err, models.ErrDataUnavailable)

	bad := testDeal()
	bad.PropertyType = "Warehouse"
	assert.ErrorIs(t, db.SaveDeal(ctx, bad), models.ErrInvalidAssumption)
}

func TestActuals_SaveMonthUpserts(t *testing.T) {
	ctx := context.Background()
	db := setupTestDatabase(t)
	dealID := uuid.New()

	first, err := db.SaveMonth(ctx, month(dealID, 2025, 1, "100000"))
	require.NoError(t, err)
	assert.True(t, dec("70000").Equal(first.CashFlow))
	assert.True(t, dec("95").Equal(first.OccupancyPercent))

	second, err := db.SaveMonth(ctx, month(dealID, 2025, 1, "110000"))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, dec("110000").Equal(second.GrossRentalIncome))
	assert.True(t, dec("100000").Equal(second.NetOperatingIncome))

	year, err := db.GetYear(ctx, dealID, 2025)
	require.NoError(t, err)
	assert.Len(t, year, 1)

	_, err = db.SaveMonth(ctx, month(dealID, 2025, 13, "1"))
	assert.ErrorIs(t, err, models.ErrInvalidAssumption)
}

func TestActuals_Queries(t *testing.T) {
	ctx := context.Background()
	db := setupTestDatabase(t)
	dealID := uuid.New()
	other := uuid.New()

	batch := []*models.MonthlyActual{
		month(dealID, 2024, 6, "90000"),
		month(dealID, 2024, 7, "91000"),
		month(dealID, 2025, 3, "95000"),
		month(dealID, 2025, 1, "93000"),
		month(dealID, 2025, 6, "96000"),
		month(dealID, 2025, 7, "97000"),
		month(other, 2025, 1, "1"),
	}
	require.NoError(t, db.GetDB().Transaction(func(tx *gorm.DB) error {
		return UpsertActuals(tx, batch)
	}))

	year, err := db.GetYear(ctx, dealID, 2025)
	require.NoError(t, err)
	require.Len(t, year, 4)
	assert.Equal(t, []int{1, 3, 6, 7}, []int{year[0].Month, year[1].Month, year[2].Month, year[3].Month})

	t12, err := db.GetTrailingTwelve(ctx, dealID, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, t12, 4)
	assert.Equal(t, 2024, t12[0].Year)
	assert.Equal(t, 7, t12[0].Month)
	assert.Equal(t, 6, t12[3].Month)

	all, err := db.GetAllActuals(ctx, dealID)
	require.NoError(t, err)
	assert.Len(t, all, 6)

	got, err := db.GetMonth(ctx, dealID, 2025, 3)
	require.NoError(t, err)
	assert.True(t, dec("95000").Equal(got.GrossRentalIncome))

	require.NoError(t, db.DeleteMonth(ctx, dealID, 2025, 3))
	_, err = db.GetMonth(ctx, dealID, 2025, 3)
	assert.ErrorIs(t, err, models.ErrDataUnavailable)
	assert.ErrorIs(t, db.DeleteMonth(ctx, dealID, 2025, 3), models.ErrDataUnavailable)
}

func TestDispositions(t *testing.T) {
	ctx := context.Background()
	db := setupTestDatabase(t)
	dealID := uuid.New()

	_, err := db.GetDisposition(ctx, dealID)
	assert.ErrorIs(t, err, models.ErrDataUnavailable)

	analysis := models.NewDispositionAnalysis(dealID, nil, decPtr("6"), dec("120000"))
	require.NoError(t, db.SaveDisposition(ctx, analysis))

	stored, err := db.GetDisposition(ctx, dealID)
	require.NoError(t, err)
	assert.True(t, dec("2000000").Equal(stored.ImpliedValue))
	assert.Nil(t, stored.BrokerOpinionOfValue)

	stored.BrokerOpinionOfValue = decPtr("2100000")
	require.NoError(t, db.SaveDisposition(ctx, stored))

	updated, err := db.GetDisposition(ctx, dealID)
	require.NoError(t, err)
	require.NotNil(t, updated.BrokerOpinionOfValue)
	assert.True(t, dec("2100000").Equal(*updated.BrokerOpinionOfValue))
	assert.Equal(t, analysis.ID, updated.ID)
}
