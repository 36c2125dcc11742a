package report

import (
	"fmt"

	"github.com/shopspring/decimal"

	"underwriting/server/internal/market"
	"underwriting/server/internal/models"
	"underwriting/server/internal/underwriting"
)

var (
	criticalCoverage = decimal.RequireFromString("0.80")
	highCoverage     = decimal.RequireFromString("0.92")
	gapCritical      = decimal.NewFromInt(20)
	gapHigh          = decimal.NewFromInt(10)
	gapModerate      = decimal.NewFromInt(5)
	premiumCritical  = decimal.NewFromInt(15)
)

var severityRank = map[models.RiskSeverity]int{
	models.RiskLow:      0,
	models.RiskModerate: 1,
	models.RiskHigh:     2,
	models.RiskCritical: 3,
}

// RateDSCR grades coverage against the product minimum: more than 20% short is
// critical, 8-20% short high, anything short moderate.
func RateDSCR(dscr, minDSCR decimal.Decimal) models.RiskSeverity {
	switch {
	case dscr.LessThan(minDSCR.Mul(criticalCoverage)):
		return models.RiskCritical
	case dscr.LessThan(minDSCR.Mul(highCoverage)):
		return models.RiskHigh
	case dscr.LessThan(minDSCR):
		return models.RiskModerate
	default:
		return models.RiskLow
	}
}

// RateOccupancyGap grades how far subject occupancy trails the market, in points.
func RateOccupancyGap(subject, marketOccupancy decimal.Decimal) models.RiskSeverity {
	return rateGap(marketOccupancy.Sub(subject), gapModerate, gapHigh, gapCritical)
}

// RateRentPremium grades how far subject rent sits above market rent, in percent.
func RateRentPremium(subject, marketRent decimal.Decimal) models.RiskSeverity {
	if marketRent.IsZero() {
		return models.RiskLow
	}
	premium := subject.Sub(marketRent).Div(marketRent).Mul(hundred)
	return rateGap(premium, gapModerate, gapHigh, premiumCritical)
}

func rateGap(gap, moderate, high, critical decimal.Decimal) models.RiskSeverity {
	switch {
	case gap.GreaterThanOrEqual(critical):
		return models.RiskCritical
	case gap.GreaterThanOrEqual(high):
		return models.RiskHigh
	case gap.GreaterThanOrEqual(moderate):
		return models.RiskModerate
	default:
		return models.RiskLow
	}
}

// IdentifyRisks lists every risk graded above low.
func IdentifyRisks(deal *models.DealAssumptions, calc *underwriting.CalculationResult, mkt *market.Context) []models.RiskItem {
	var risks []models.RiskItem
	add := func(item models.RiskItem) {
		if item.Severity != models.RiskLow {
			risks = append(risks, item)
		}
	}
	resolved := calc.Resolved

	if calc.Loan.AnnualDebtService.IsPositive() {
		add(models.RiskItem{
			Category: "Debt Coverage",
			Description: fmt.Sprintf("Year-one DSCR of %s against a %s minimum",
				Multiple(calc.DSCR), Multiple(resolved.MinDSCR.Value)),
			Severity:   RateDSCR(calc.DSCR, resolved.MinDSCR.Value),
			Mitigation: fmt.Sprintf("Size the loan to the DSCR-constrained amount of %s", Currency(calc.DSCRBasedLoan)),
		})
	}

	if resolved.LoanLTV.Value.GreaterThan(resolved.MaxLTV.Value) {
		add(models.RiskItem{
			Category: "Leverage",
			Description: fmt.Sprintf("Requested LTV of %s exceeds the %s maximum",
				Percent(resolved.LoanLTV.Value), Percent(resolved.MaxLTV.Value)),
			Severity:   models.RiskHigh,
			Mitigation: fmt.Sprintf("Reduce leverage to %s LTV or increase equity", Percent(resolved.MaxLTV.Value)),
		})
	}

	if len(calc.Projection) > 0 && calc.Projection[0].CashFlow.IsNegative() {
		add(models.RiskItem{
			Category:    "Cash Flow",
			Description: fmt.Sprintf("Year-one cash flow after debt service is %s", Currency(calc.Projection[0].CashFlow)),
			Severity:    models.RiskHigh,
			Mitigation:  "Fund an operating reserve to cover the shortfall until stabilization",
		})
	}

	if calc.Returns.IRR == nil {
		add(models.RiskItem{
			Category:    "Returns",
			Description: "Projected cash flows do not produce a defined IRR",
			Severity:    models.RiskModerate,
			Mitigation:  "Revisit pricing and exit assumptions",
		})
	}

	if mkt != nil && mkt.MarketOccupancy != nil {
		add(models.RiskItem{
			Category: "Occupancy",
			Description: fmt.Sprintf("Underwritten occupancy of %s trails the market at %s",
				Percent(resolved.Occupancy.Value), Percent(*mkt.MarketOccupancy)),
			Severity:   RateOccupancyGap(resolved.Occupancy.Value, *mkt.MarketOccupancy),
			Mitigation: "Budget a lease-up plan and concessions to reach market occupancy",
		})
	}

	if mkt != nil && mkt.MarketRentPerUnit != nil && deal.RentPerUnit != nil {
		add(models.RiskItem{
			Category: "Rent",
			Description: fmt.Sprintf("Subject rent of %s per unit is above the market at %s",
				Currency(*deal.RentPerUnit), Currency(*mkt.MarketRentPerUnit)),
			Severity:   RateRentPremium(*deal.RentPerUnit, *mkt.MarketRentPerUnit),
			Mitigation: "Underwrite rents to market and verify the rent roll",
		})
	}

	return risks
}

// Decide makes the investment call: any critical risk or non-positive NOI is a
// no-go, any other risk makes the deal conditional.
func Decide(calc *underwriting.CalculationResult, risks []models.RiskItem) models.InvestmentDecision {
	if !calc.Pnl.NetOperatingIncome.IsPositive() {
		return models.DecisionNoGo
	}
	worst := 0
	for _, r := range risks {
		if rank := severityRank[r.Severity]; rank > worst {
			worst = rank
		}
	}
	switch {
	case worst >= severityRank[models.RiskCritical]:
		return models.DecisionNoGo
	case worst > severityRank[models.RiskLow]:
		return models.DecisionConditionalGo
	default:
		return models.DecisionGo
	}
}
