package disposition

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"underwriting/server/internal/models"
	"underwriting/server/internal/underwriting"
)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func decPtr(v string) *decimal.Decimal {
	d := dec(v)
	return &d
}

func assertDecEqual(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got.String())
}

func monthWithNOI(year, month int, noi string) models.MonthlyActual {
	a := models.MonthlyActual{
		Year:              year,
		Month:             month,
		GrossRentalIncome: dec(noi),
		DebtService:       dec("4000"),
	}
	a.Recalculate()
	return a
}

func TestHoldMonths(t *testing.T) {
	asOf := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	closed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	future := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 12, HoldMonths(nil, asOf))
	assert.Equal(t, 12, HoldMonths(&closed, asOf))
	assert.Equal(t, 1, HoldMonths(&recent, asOf))
	assert.Equal(t, 0, HoldMonths(&future, asOf))
}

func TestAnnualizedNOI(t *testing.T) {
	six := make([]models.MonthlyActual, 0, 6)
	for m := 1; m <= 6; m++ {
		six = append(six, monthWithNOI(2025, m, "10000"))
	}
	assertDecEqual(t, "120000", AnnualizedNOI(six))

	twelve := make([]models.MonthlyActual, 0, 12)
	for m := 1; m <= 12; m++ {
		twelve = append(twelve, monthWithNOI(2025, m, "10000"))
	}
	assertDecEqual(t, "120000", AnnualizedNOI(twelve))

	assert.True(t, AnnualizedNOI(nil).IsZero())
}

func TestRefinance(t *testing.T) {
	engine := NewEngine(Position{
		LoanBalance:   dec("700000"),
		PropertyValue: dec("1200000"),
		CurrentNOI:    dec("100000"),
	}, decimal.Zero)

	tests := []struct {
		name        string
		newLoan     string
		wantCashOut string
		wantService string
		wantEquity  string
		wantCoC     string
	}{
		{name: "cash-out refinance", newLoan: "850000", wantCashOut: "150000", wantService: "51000", wantEquity: "350000", wantCoC: "14"},
		{name: "new loan below balance", newLoan: "600000", wantCashOut: "0", wantService: "36000", wantEquity: "600000", wantCoC: "10.67"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := engine.Refinance(dec(tt.newLoan), dec("6"))
			require.NoError(t, err)
			assertDecEqual(t, tt.wantCashOut, s.CashOutAmount)
			assertDecEqual(t, tt.wantService, s.NewAnnualDebtService)
			assertDecEqual(t, tt.wantEquity, s.RemainingEquity)
			assertDecEqual(t, tt.wantCoC, s.GoForwardCashOnCash)
			assertDecEqual(t, "700000", s.CurrentLoanBalance)
		})
	}
}

func TestRefinance_Invalid(t *testing.T) {
	engine := NewEngine(Position{}, decimal.Zero)

	_, err := engine.Refinance(dec("-1"), dec("6"))
	assert.ErrorIs(t, err, models.ErrInvalidAssumption)

	_, err = engine.Refinance(dec("100"), dec("-6"))
	assert.ErrorIs(t, err, models.ErrInvalidAssumption)
}

func TestRefinance_NoRemainingEquity(t *testing.T) {
	engine := NewEngine(Position{PropertyValue: dec("500000"), CurrentNOI: dec("50000")}, decimal.Zero)

	s, err := engine.Refinance(dec("600000"), dec("5"))
	require.NoError(t, err)
	assertDecEqual(t, "-100000", s.RemainingEquity)
	assert.True(t, s.GoForwardCashOnCash.IsZero())
}

func sellPosition(months int) Position {
	return Position{
		EntryEquity:        dec("300000"),
		LoanBalance:        dec("700000"),
		CumulativeCashFlow: dec("60000"),
		MonthsHeld:         months,
	}
}

func TestSell(t *testing.T) {
	engine := NewEngine(sellPosition(24), dec("3"))

	s, err := engine.Sell(dec("1200000"), nil)
	require.NoError(t, err)

	assertDecEqual(t, "3", s.SellingCostPercent)
	assertDecEqual(t, "36000", s.SellingCosts)
	assertDecEqual(t, "464000", s.NetProceeds)
	assertDecEqual(t, "464000", s.EquityReturned)
	assertDecEqual(t, "224000", s.TotalProfit)
	assertDecEqual(t, "1.75", s.EquityMultiple)
	assert.Equal(t, 24, s.HoldPeriodMonths)
	require.NotNil(t, s.AnnualizedReturn)
	assert.InDelta(t, 32.16, *s.AnnualizedReturn, 0.01)
}

func TestSell_CustomCostAndZeroHold(t *testing.T) {
	engine := NewEngine(sellPosition(0), dec("3"))

	s, err := engine.Sell(dec("1000000"), decPtr("5"))
	require.NoError(t, err)
	assertDecEqual(t, "50000", s.SellingCosts)
	assertDecEqual(t, "250000", s.NetProceeds)
	assert.Nil(t, s.AnnualizedReturn)
}

func TestSell_Invalid(t *testing.T) {
	engine := NewEngine(sellPosition(12), dec("3"))

	_, err := engine.Sell(decimal.Zero, nil)
	assert.ErrorIs(t, err, models.ErrInvalidAssumption)

	_, err = engine.Sell(dec("100"), decPtr("-1"))
	assert.ErrorIs(t, err, models.ErrInvalidAssumption)
}

func TestHold(t *testing.T) {
	engine := NewEngine(Position{
		EntryEquity:       dec("400000"),
		CurrentNOI:        dec("100000"),
		AnnualDebtService: dec("60000"),
	}, dec("3"))

	s, err := engine.Hold(1, decimal.Zero)
	require.NoError(t, err)

	assertDecEqual(t, "6", s.ExitCapRate)
	assertDecEqual(t, "100000", s.ProjectedAnnualNOI)
	assertDecEqual(t, "1666666.67", s.ProjectedExitValue)
	assertDecEqual(t, "10", s.ProjectedCashOnCash)
	assertDecEqual(t, "4.14", s.ProjectedEquityMultiple)
	require.NotNil(t, s.ProjectedIRR)
	assert.InDelta(t, 314.17, *s.ProjectedIRR, 0.01)
}

func TestHold_Growth(t *testing.T) {
	engine := NewEngine(Position{
		EntryEquity:    dec("400000"),
		CurrentNOI:     dec("100000"),
		CurrentCapRate: dec("5"),
	}, dec("3"))

	s, err := engine.Hold(2, dec("3"))
	require.NoError(t, err)
	assertDecEqual(t, "106090", s.ProjectedAnnualNOI)
	assertDecEqual(t, "2121800", s.ProjectedExitValue)
	assertDecEqual(t, "5", s.ExitCapRate)
}

func TestHold_Invalid(t *testing.T) {
	engine := NewEngine(Position{}, dec("3"))

	_, err := engine.Hold(0, decimal.Zero)
	assert.ErrorIs(t, err, models.ErrInvalidAssumption)

	_, err = engine.Hold(3, dec("-1"))
	assert.ErrorIs(t, err, models.ErrInvalidAssumption)

	_, err = engine.Hold(underwriting.MaxHoldYears+1, dec("3"))
	assert.ErrorIs(t, err, models.ErrInvalidAssumption)
}

func TestHold_LongHorizonStaysInCents(t *testing.T) {
	engine := NewEngine(Position{
		EntryEquity:       dec("400000"),
		CurrentNOI:        dec("100000"),
		AnnualDebtService: dec("60000"),
	}, dec("3"))

	s, err := engine.Hold(underwriting.MaxHoldYears, dec("3"))
	require.NoError(t, err)
	assert.LessOrEqual(t, -s.ProjectedAnnualNOI.Exponent(), int32(2))
	assert.True(t, s.ProjectedEquityMultiple.IsPositive())
}

func TestHold_NoEquity(t *testing.T) {
	engine := NewEngine(Position{CurrentNOI: dec("100000")}, dec("3"))

	s, err := engine.Hold(5, dec("2"))
	require.NoError(t, err)
	assert.Nil(t, s.ProjectedIRR)
	assert.True(t, s.ProjectedEquityMultiple.IsZero())
}

func testDeal(closed *time.Time) *models.DealAssumptions {
	return &models.DealAssumptions{
		PropertyType:  models.PropertyTypeMultifamily,
		UnitCount:     100,
		PurchasePrice: dec("10000000"),
		RentPerUnit:   decPtr("1000"),
		LoanLTV:       decPtr("70"),
		LoanRate:      decPtr("6.5"),
		ClosedDate:    closed,
	}
}

func TestNewPosition(t *testing.T) {
	asOf := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	closed := time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC)
	deal := testDeal(&closed)
	calc, err := underwriting.NewCalculator(nil, underwriting.DefaultSettings()).Calculate(deal, underwriting.MarketInputs{})
	require.NoError(t, err)

	actuals := []models.MonthlyActual{monthWithNOI(2025, 5, "50000"), monthWithNOI(2025, 6, "50000")}
	p := NewPosition(deal, calc, actuals, asOf)

	assert.Equal(t, 24, p.MonthsHeld)
	assert.True(t, calc.Loan.BalanceAtMonth(24).Equal(p.LoanBalance))
	assert.True(t, p.LoanBalance.LessThan(calc.Loan.LoanAmount))
	assert.True(t, calc.EquityRequired.Equal(p.EntryEquity))
	assertDecEqual(t, "600000", p.CurrentNOI)
	assertDecEqual(t, "92000", p.CumulativeCashFlow)
	assertDecEqual(t, "10000000", p.PropertyValue)
}

func TestNewPosition_NoActuals(t *testing.T) {
	deal := testDeal(nil)
	calc, err := underwriting.NewCalculator(nil, underwriting.DefaultSettings()).Calculate(deal, underwriting.MarketInputs{})
	require.NoError(t, err)

	p := NewPosition(deal, calc, nil, time.Now())
	assert.Equal(t, 12, p.MonthsHeld)
	assert.True(t, calc.Pnl.NetOperatingIncome.Equal(p.CurrentNOI))
	assert.True(t, p.CumulativeCashFlow.IsZero())
}

func TestApplyAnalysis(t *testing.T) {
	tests := []struct {
		name      string
		analysis  *models.DispositionAnalysis
		wantValue string
		wantCap   string
	}{
		{name: "nil snapshot", analysis: nil, wantValue: "1000000", wantCap: "5.5"},
		{
			name:      "broker opinion wins",
			analysis:  models.NewDispositionAnalysis(uuid.Nil, decPtr("1500000"), decPtr("6"), dec("120000")),
			wantValue: "1500000",
			wantCap:   "6",
		},
		{
			name:      "implied value",
			analysis:  models.NewDispositionAnalysis(uuid.Nil, nil, decPtr("6"), dec("120000")),
			wantValue: "2000000",
			wantCap:   "6",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Position{PropertyValue: dec("1000000"), CurrentCapRate: dec("5.5")}
			p.ApplyAnalysis(tt.analysis)
			assertDecEqual(t, tt.wantValue, p.PropertyValue)
			assertDecEqual(t, tt.wantCap, p.CurrentCapRate)
		})
	}
}
