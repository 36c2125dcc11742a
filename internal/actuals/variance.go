package actuals

import (
	"strings"

	"github.com/shopspring/decimal"

	"underwriting/server/internal/models"
	"underwriting/server/internal/underwriting"
)

var (
	hundred           = decimal.NewFromInt(100)
	warningThreshold  = decimal.NewFromInt(5)
	criticalThreshold = decimal.NewFromInt(15)
)

// Direction says which way a line item is good.
type Direction int

const (
	// HigherIsBetter applies to income lines.
	HigherIsBetter Direction = iota
	// LowerIsBetter applies to expense and loss lines.
	LowerIsBetter
)

// Variance compares actual to projected. The percentage is relative to the
// magnitude of projected and is zero when projected is zero.
func Variance(label string, projected, actual decimal.Decimal, direction Direction) models.VarianceRow {
	delta := actual.Sub(projected)
	row := models.VarianceRow{
		Label:          label,
		Projected:      projected.Round(2),
		Actual:         actual.Round(2),
		VarianceAmount: delta.Round(2),
	}
	if !projected.IsZero() {
		row.VariancePercent = delta.Div(projected.Abs()).Mul(hundred).Round(2)
	}
	row.Severity = ClassifySeverity(row.VariancePercent)
	if direction == HigherIsBetter {
		row.Favorable = !delta.IsNegative()
	} else {
		row.Favorable = !delta.IsPositive()
	}
	return row
}

// ClassifySeverity buckets a variance percentage: under 5% is on track,
// under 15% a warning, anything larger critical.
func ClassifySeverity(pct decimal.Decimal) models.VarianceSeverity {
	abs := pct.Abs()
	switch {
	case abs.LessThan(warningThreshold):
		return models.SeverityOnTrack
	case abs.LessThan(criticalThreshold):
		return models.SeverityWarning
	default:
		return models.SeverityCritical
	}
}

// expenseSplit allocates an aggregate projected OpEx across the actuals categories.
var expenseSplit = []struct {
	label string
	share decimal.Decimal
}{
	{"Property Taxes", decimal.RequireFromString("0.25")},
	{"Insurance", decimal.RequireFromString("0.10")},
	{"Utilities", decimal.RequireFromString("0.15")},
	{"Repairs & Maintenance", decimal.RequireFromString("0.10")},
	{"Management", decimal.RequireFromString("0.20")},
	{"Other Expenses", decimal.RequireFromString("0.20")},
}

// BuildReport annualizes actuals and reconciles them against calc.
// It returns nil when there are no actuals.
func BuildReport(calc *underwriting.CalculationResult, actuals []models.MonthlyActual) (*models.VarianceReport, error) {
	if len(actuals) == 0 {
		return nil, nil
	}
	if err := validateMonths(actuals); err != nil {
		return nil, err
	}

	recalculated := make([]models.MonthlyActual, len(actuals))
	for i, a := range actuals {
		a.Recalculate()
		recalculated[i] = a
	}
	factor := AnnualizationFactor(len(recalculated))
	annual := func(field func(models.MonthlyActual) decimal.Decimal) decimal.Decimal {
		total := decimal.Zero
		for _, a := range recalculated {
			total = total.Add(field(a))
		}
		return total.Mul(factor)
	}

	pnl := calc.Pnl
	actualCashFlow := annual(func(a models.MonthlyActual) decimal.Decimal { return a.CashFlow })
	actualCoC := decimal.Zero
	if calc.EquityRequired.IsPositive() {
		actualCoC = actualCashFlow.Div(calc.EquityRequired).Mul(hundred)
	}

	report := &models.VarianceReport{
		MonthsReported:      len(recalculated),
		AnnualizationFactor: factor.Round(4),
		NOI:                 Variance("Net Operating Income", pnl.NetOperatingIncome, annual(func(a models.MonthlyActual) decimal.Decimal { return a.NetOperatingIncome }), HigherIsBetter),
		Revenue:             Variance("Effective Gross Income", pnl.EffectiveGrossIncome, annual(func(a models.MonthlyActual) decimal.Decimal { return a.EffectiveGrossIncome }), HigherIsBetter),
		Expenses:            Variance("Operating Expenses", pnl.OperatingExpenses, annual(func(a models.MonthlyActual) decimal.Decimal { return a.TotalOperatingExpenses }), LowerIsBetter),
		CashOnCash:          Variance("Cash-on-Cash Return", calc.CashOnCash, actualCoC, HigherIsBetter),
	}

	report.RevenueItems = []models.VarianceRow{
		Variance("Gross Rental Income", pnl.GrossPotentialRevenue, annual(func(a models.MonthlyActual) decimal.Decimal { return a.GrossRentalIncome }), HigherIsBetter),
		Variance("Vacancy Loss", pnl.VacancyLoss, annual(func(a models.MonthlyActual) decimal.Decimal { return a.VacancyLoss }), LowerIsBetter),
		Variance("Other Income", pnl.OtherIncome, annual(func(a models.MonthlyActual) decimal.Decimal { return a.OtherIncome }), HigherIsBetter),
	}

	projected := projectedExpenses(pnl)
	otherExpenses := annual(func(a models.MonthlyActual) decimal.Decimal {
		return decimal.Sum(a.Payroll, a.Marketing, a.Administrative, a.OtherExpenses)
	})
	actual := map[string]decimal.Decimal{
		"Property Taxes":        annual(func(a models.MonthlyActual) decimal.Decimal { return a.PropertyTaxes }),
		"Insurance":             annual(func(a models.MonthlyActual) decimal.Decimal { return a.Insurance }),
		"Utilities":             annual(func(a models.MonthlyActual) decimal.Decimal { return a.Utilities }),
		"Repairs & Maintenance": annual(func(a models.MonthlyActual) decimal.Decimal { return a.Repairs }),
		"Management":            annual(func(a models.MonthlyActual) decimal.Decimal { return a.Management }),
		"Other Expenses":        otherExpenses,
	}
	for _, split := range expenseSplit {
		report.ExpenseItems = append(report.ExpenseItems,
			Variance(split.label, projected[split.label], actual[split.label], LowerIsBetter))
	}

	return report, nil
}

// projectedExpenses maps the year-one expense lines onto the actuals categories.
// A single aggregate line is spread by the fixed category shares.
func projectedExpenses(pnl underwriting.Pnl) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(expenseSplit))
	for _, split := range expenseSplit {
		out[split.label] = decimal.Zero
	}

	if len(pnl.ExpenseLines) <= 1 {
		for _, split := range expenseSplit {
			out[split.label] = pnl.OperatingExpenses.Mul(split.share)
		}
		return out
	}

	for _, line := range pnl.ExpenseLines {
		category := expenseCategory(line.Label)
		out[category] = out[category].Add(line.Annual)
	}
	return out
}

func expenseCategory(label string) string {
	switch {
	case strings.HasPrefix(label, "Real Estate Taxes"):
		return "Property Taxes"
	case strings.HasPrefix(label, "Insurance"):
		return "Insurance"
	case strings.HasPrefix(label, "Utilities"):
		return "Utilities"
	case strings.HasPrefix(label, "Repairs"):
		return "Repairs & Maintenance"
	case strings.HasPrefix(label, "Management"):
		return "Management"
	default:
		return "Other Expenses"
	}
}
