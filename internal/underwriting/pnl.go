package underwriting

import (
	"fmt"

	"github.com/shopspring/decimal"

	"underwriting/server/internal/models"
)

// ExpenseLine is one operating expense in the year-one P&L.
type ExpenseLine struct {
	Label      string            `json:"label"`
	Annual     decimal.Decimal   `json:"annual"`
	Provenance models.Provenance `json:"provenance"`
}

// Pnl is the year-one operating statement.
type Pnl struct {
	RevenueStrategy string `json:"revenue_strategy"`
	Capacity        int    `json:"capacity"`

	GrossPotentialRevenue decimal.Decimal `json:"gross_potential_revenue"`
	VacancyLoss           decimal.Decimal `json:"vacancy_loss"`
	NetRentalIncome       decimal.Decimal `json:"net_rental_income"`
	OtherIncome           decimal.Decimal `json:"other_income"`
	EffectiveGrossIncome  decimal.Decimal `json:"effective_gross_income"`

	OperatingExpenses           decimal.Decimal   `json:"operating_expenses"`
	OperatingExpensesProvenance models.Provenance `json:"operating_expenses_provenance"`
	ExpenseLines                []ExpenseLine     `json:"expense_lines"`

	NetOperatingIncome decimal.Decimal `json:"net_operating_income"`
	NOIMargin          decimal.Decimal `json:"noi_margin"`
}

// BuildPnl computes the year-one P&L for deal from its resolved assumptions.
func BuildPnl(deal *models.DealAssumptions, resolved ResolvedSet) (Pnl, error) {
	if err := validateRevenueInputs(deal); err != nil {
		return Pnl{}, err
	}
	strategy := SelectRevenueStrategy(deal)
	return buildPnl(deal, resolved, strategy, strategy.GrossPotentialRevenue(deal), resolved.Occupancy.Value), nil
}

func validateRevenueInputs(deal *models.DealAssumptions) error {
	if deal.AverageDailyRate != nil && deal.AverageDailyRate.IsNegative() {
		return models.NewAssumptionError("average_daily_rate", deal.AverageDailyRate, "must not be negative")
	}
	if deal.RentPerUnit != nil && deal.RentPerUnit.IsNegative() {
		return models.NewAssumptionError("rent_per_unit", deal.RentPerUnit, "must not be negative")
	}
	if deal.T12OperatingExpenses != nil && deal.T12OperatingExpenses.IsNegative() {
		return models.NewAssumptionError("t12_operating_expenses", deal.T12OperatingExpenses, "must not be negative")
	}
	if deal.DetailedExpenses != nil {
		for _, item := range deal.DetailedExpenses.FixedItems() {
			if item.Amount.IsNegative() {
				return models.NewAssumptionError(item.Label, item.Amount, "must not be negative")
			}
		}
		if fee := deal.DetailedExpenses.ManagementFee; fee != nil && fee.IsNegative() {
			return models.NewAssumptionError("management_fee", fee, "must not be negative")
		}
		if res := deal.DetailedExpenses.ReplacementReserves; res != nil && res.IsNegative() {
			return models.NewAssumptionError("replacement_reserves", res, "must not be negative")
		}
	}
	return nil
}

// buildPnl runs the P&L waterfall from an already computed gross potential revenue.
// Sensitivity scenarios reuse it with stressed revenue or occupancy.
func buildPnl(deal *models.DealAssumptions, resolved ResolvedSet, strategy RevenueStrategy, gpr, occupancy decimal.Decimal) Pnl {
	p := Pnl{
		RevenueStrategy:       strategy.Name(),
		Capacity:              strategy.Capacity(deal),
		GrossPotentialRevenue: gpr.Round(2),
	}

	vacancyRate := decimal.NewFromInt(1).Sub(occupancy.Div(hundred))
	p.VacancyLoss = p.GrossPotentialRevenue.Mul(vacancyRate).Round(2)
	p.NetRentalIncome = p.GrossPotentialRevenue.Sub(p.VacancyLoss)
	p.OtherIncome = p.NetRentalIncome.Mul(resolved.OtherIncomeRatio.Value).Round(2)
	p.EffectiveGrossIncome = p.NetRentalIncome.Add(p.OtherIncome)

	switch {
	case deal.T12OperatingExpenses != nil:
		p.OperatingExpenses = *deal.T12OperatingExpenses
		p.OperatingExpensesProvenance = models.ProvenanceUserInput
		p.ExpenseLines = []ExpenseLine{{
			Label:      "Operating Expenses (T12)",
			Annual:     p.OperatingExpenses,
			Provenance: models.ProvenanceUserInput,
		}}
	case deal.DetailedExpenses.HasAnyValues():
		p.ExpenseLines = buildUpExpenses(deal.DetailedExpenses, resolved, p.EffectiveGrossIncome, p.Capacity)
		p.OperatingExpenses = decimal.Zero
		for _, line := range p.ExpenseLines {
			p.OperatingExpenses = p.OperatingExpenses.Add(line.Annual)
		}
		p.OperatingExpensesProvenance = models.ProvenanceUserInput
	default:
		p.OperatingExpenses = p.EffectiveGrossIncome.Mul(resolved.OpExRatio.Value).Round(2)
		p.OperatingExpensesProvenance = resolved.OpExRatio.Provenance
		p.ExpenseLines = []ExpenseLine{{
			Label:      "Operating Expenses",
			Annual:     p.OperatingExpenses,
			Provenance: resolved.OpExRatio.Provenance,
		}}
	}

	p.NetOperatingIncome = p.EffectiveGrossIncome.Sub(p.OperatingExpenses)
	if !p.EffectiveGrossIncome.IsZero() {
		p.NOIMargin = p.NetOperatingIncome.Div(p.EffectiveGrossIncome).Mul(hundred).Round(2)
	}
	return p
}

// buildUpExpenses itemizes the supplied expenses. A flat management fee overrides
// the percentage of EGI; reserves never fall below the per-unit floor.
func buildUpExpenses(e *models.DetailedExpenses, resolved ResolvedSet, egi decimal.Decimal, capacity int) []ExpenseLine {
	var lines []ExpenseLine
	for _, item := range e.FixedItems() {
		lines = append(lines, ExpenseLine{Label: item.Label, Annual: item.Amount, Provenance: models.ProvenanceUserInput})
	}

	if e.ManagementFee != nil {
		lines = append(lines, ExpenseLine{Label: "Management Fee", Annual: *e.ManagementFee, Provenance: models.ProvenanceUserInput})
	} else {
		pct := resolved.ManagementFeePct
		lines = append(lines, ExpenseLine{
			Label:      fmt.Sprintf("Management Fee (%s%% of EGI)", pct.Value.String()),
			Annual:     egi.Mul(pct.Value).Div(hundred).Round(2),
			Provenance: pct.Provenance,
		})
	}

	floor := resolved.ReservesPerUnit.Value.Mul(decimal.NewFromInt(int64(capacity)))
	reserves := ExpenseLine{Label: "Replacement Reserves", Annual: floor, Provenance: resolved.ReservesPerUnit.Provenance}
	if e.ReplacementReserves != nil && e.ReplacementReserves.GreaterThanOrEqual(floor) {
		reserves.Annual = *e.ReplacementReserves
		reserves.Provenance = models.ProvenanceUserInput
	}
	lines = append(lines, reserves)

	return lines
}
