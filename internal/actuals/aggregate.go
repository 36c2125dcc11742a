package actuals

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"underwriting/server/internal/models"
)

// AggregateYear rolls up the months of year found in actuals. Records for other
// years are ignored; an empty year yields a zero summary.
func AggregateYear(year int, actuals []models.MonthlyActual) (models.AnnualSummary, error) {
	if err := validateMonths(actuals); err != nil {
		return models.AnnualSummary{Year: year}, err
	}
	summary := summarize(filter(actuals, func(a models.MonthlyActual) bool {
		return a.Year == year
	}))
	summary.Year = year
	return summary, nil
}

// AggregateQuarter rolls up the three months of quarter (1-4) of year.
func AggregateQuarter(year, quarter int, actuals []models.MonthlyActual) (models.AnnualSummary, error) {
	if quarter < 1 || quarter > 4 {
		return models.AnnualSummary{Year: year}, models.NewAssumptionError("quarter", quarter, "must be between 1 and 4")
	}
	if err := validateMonths(actuals); err != nil {
		return models.AnnualSummary{Year: year}, err
	}
	first := (quarter-1)*3 + 1
	summary := summarize(filter(actuals, func(a models.MonthlyActual) bool {
		return a.Year == year && a.Month >= first && a.Month < first+3
	}))
	summary.Year = year
	summary.Quarter = quarter
	return summary, nil
}

// TrailingTwelve returns the records for the twelve calendar months ending with
// the month of asOf, oldest first.
func TrailingTwelve(actuals []models.MonthlyActual, asOf time.Time) []models.MonthlyActual {
	end := time.Date(asOf.Year(), asOf.Month(), 1, 0, 0, 0, 0, time.UTC)
	start := end.AddDate(0, -11, 0)

	window := filter(actuals, func(a models.MonthlyActual) bool {
		p := a.Period()
		return !p.Before(start) && !p.After(end)
	})
	sort.Slice(window, func(i, j int) bool {
		return window[i].Period().Before(window[j].Period())
	})
	return window
}

// AnnualizationFactor scales a partial year of months to twelve. Zero months yields zero.
func AnnualizationFactor(months int) decimal.Decimal {
	if months <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(12).Div(decimal.NewFromInt(int64(months)))
}

func validateMonths(actuals []models.MonthlyActual) error {
	for _, a := range actuals {
		if a.Month < 1 || a.Month > 12 {
			return models.NewAssumptionError("month", a.Month, "must be between 1 and 12")
		}
	}
	return nil
}

func filter(actuals []models.MonthlyActual, keep func(models.MonthlyActual) bool) []models.MonthlyActual {
	out := make([]models.MonthlyActual, 0, len(actuals))
	for _, a := range actuals {
		if keep(a) {
			out = append(out, a)
		}
	}
	return out
}

func summarize(actuals []models.MonthlyActual) models.AnnualSummary {
	s := models.AnnualSummary{
		TotalRevenue:     decimal.Zero,
		TotalExpenses:    decimal.Zero,
		TotalNOI:         decimal.Zero,
		TotalDebtService: decimal.Zero,
		TotalCapex:       decimal.Zero,
		TotalCashFlow:    decimal.Zero,
		AverageOccupancy: decimal.Zero,
	}
	occupancy := decimal.Zero
	occupancyMonths := 0
	for _, a := range actuals {
		a.Recalculate()
		s.TotalRevenue = s.TotalRevenue.Add(a.EffectiveGrossIncome)
		s.TotalExpenses = s.TotalExpenses.Add(a.TotalOperatingExpenses)
		s.TotalNOI = s.TotalNOI.Add(a.NetOperatingIncome)
		s.TotalDebtService = s.TotalDebtService.Add(a.DebtService)
		s.TotalCapex = s.TotalCapex.Add(a.CapitalExpenditures)
		s.TotalCashFlow = s.TotalCashFlow.Add(a.CashFlow)
		if a.TotalUnits > 0 {
			occupancy = occupancy.Add(a.OccupancyPercent)
			occupancyMonths++
		}
	}
	s.MonthsReported = len(actuals)
	if occupancyMonths > 0 {
		s.AverageOccupancy = occupancy.Div(decimal.NewFromInt(int64(occupancyMonths))).Round(2)
	}
	return s
}
