package underwriting

import (
	"github.com/shopspring/decimal"

	"underwriting/server/internal/models"
)

var (
	incomeStress    = decimal.RequireFromString("0.95")
	occupancyStress = decimal.NewFromInt(10)
	capRateStress   = decimal.NewFromInt(1)
)

// RunSensitivity stresses the year-one P&L and the exit cap rate and reports
// each scenario next to the base case.
func RunSensitivity(deal *models.DealAssumptions, calc *CalculationResult) []models.SensitivityRow {
	strategy := SelectRevenueStrategy(deal)
	gpr := strategy.GrossPotentialRevenue(deal)
	resolved := calc.Resolved
	exitCap := calc.ExitCapRate.Value
	terminal := GrowthFactor(resolved.NOIGrowthRate.Value, resolved.HoldYears.Int()-1)
	debtService := calc.Loan.AnnualDebtService

	base := calc.Pnl.NetOperatingIncome
	baseExit := ExitValue(base.Mul(terminal), exitCap)

	scenario := func(name string, noi, capRate decimal.Decimal) models.SensitivityRow {
		exit := ExitValue(noi.Mul(terminal), capRate)
		row := models.SensitivityRow{
			Scenario:       name,
			NOI:            noi,
			ExitValue:      exit,
			ExitValueDelta: exit.Sub(baseExit),
			DSCR:           DSCR(noi, debtService),
		}
		if !base.IsZero() {
			row.NOIChange = noi.Sub(base).Div(base.Abs()).Mul(hundred).Round(2)
		}
		return row
	}

	stressedOccupancy := decimal.Max(decimal.Zero, resolved.Occupancy.Value.Sub(occupancyStress))

	return []models.SensitivityRow{
		scenario("Base Case", base, exitCap),
		scenario("Income -5%", buildPnl(deal, resolved, strategy, gpr.Mul(incomeStress), resolved.Occupancy.Value).NetOperatingIncome, exitCap),
		scenario("Occupancy -10 pts", buildPnl(deal, resolved, strategy, gpr, stressedOccupancy).NetOperatingIncome, exitCap),
		scenario("Cap Rate +100 bps", base, exitCap.Add(capRateStress)),
	}
}
