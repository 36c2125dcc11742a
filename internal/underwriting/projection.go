package underwriting

import (
	"fmt"

	"github.com/shopspring/decimal"

	"underwriting/server/internal/models"
)

// MaxHoldYears bounds every projection horizon.
const MaxHoldYears = 50

// YearCashFlow is one year of the hold-period projection.
type YearCashFlow struct {
	Year                 int             `json:"year"`
	EffectiveGrossIncome decimal.Decimal `json:"effective_gross_income"`
	OperatingExpenses    decimal.Decimal `json:"operating_expenses"`
	NetOperatingIncome   decimal.Decimal `json:"net_operating_income"`
	DebtService          decimal.Decimal `json:"debt_service"`
	CashFlow             decimal.Decimal `json:"cash_flow"`
	CashOnCash           decimal.Decimal `json:"cash_on_cash"`
}

// GrowthFactor returns (1 + rate/100)^periods, computed exactly.
func GrowthFactor(rate decimal.Decimal, periods int) decimal.Decimal {
	base := decimal.NewFromInt(1).Add(rate.Div(hundred))
	factor := decimal.NewFromInt(1)
	for i := 0; i < periods; i++ {
		factor = factor.Mul(base)
	}
	return factor
}

// Project grows the year-one P&L over holdYears at growthRate percent per year,
// compounding. Yearly figures are rounded to cents and operating expenses are
// the difference of the rounded EGI and NOI, so NOI = EGI - OpEx holds exactly.
// Debt service is held constant. When equity is positive each year carries its
// cash-on-cash return.
func Project(pnl Pnl, debtService decimal.Decimal, holdYears int, growthRate, equity decimal.Decimal) ([]YearCashFlow, error) {
	if holdYears < 1 {
		return nil, models.NewAssumptionError(string(ParamHoldYears), holdYears, "must be at least 1")
	}
	if holdYears > MaxHoldYears {
		return nil, models.NewAssumptionError(string(ParamHoldYears), holdYears, fmt.Sprintf("must be at most %d", MaxHoldYears))
	}

	years := make([]YearCashFlow, 0, holdYears)
	for n := 1; n <= holdYears; n++ {
		factor := GrowthFactor(growthRate, n-1)
		y := YearCashFlow{
			Year:                 n,
			EffectiveGrossIncome: pnl.EffectiveGrossIncome.Mul(factor).Round(2),
			NetOperatingIncome:   pnl.NetOperatingIncome.Mul(factor).Round(2),
			DebtService:          debtService,
		}
		y.OperatingExpenses = y.EffectiveGrossIncome.Sub(y.NetOperatingIncome)
		y.CashFlow = y.NetOperatingIncome.Sub(debtService)
		if equity.IsPositive() {
			y.CashOnCash = y.CashFlow.Div(equity).Mul(hundred).Round(2)
		}
		years = append(years, y)
	}
	return years, nil
}
