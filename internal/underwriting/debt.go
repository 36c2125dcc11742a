package underwriting

import (
	"math"

	"github.com/shopspring/decimal"

	"underwriting/server/internal/models"
)

// LoanSchedule is a fixed-rate acquisition loan.
type LoanSchedule struct {
	LoanAmount        decimal.Decimal `json:"loan_amount"`
	RatePercent       decimal.Decimal `json:"rate_percent"`
	AmortizationYears int             `json:"amortization_years"`
	InterestOnly      bool            `json:"interest_only"`
	MonthlyPayment    decimal.Decimal `json:"monthly_payment"`
	AnnualDebtService decimal.Decimal `json:"annual_debt_service"`
}

// Amortize sizes a loan at ltv percent of price and computes its debt service.
// Interest-only and zero-rate loans pay loanAmount × rate/100 per year.
func Amortize(price, ltv, rate decimal.Decimal, amortYears int, interestOnly bool) (LoanSchedule, error) {
	if ltv.IsNegative() {
		return LoanSchedule{}, models.NewAssumptionError(string(ParamLoanLTV), ltv, "must not be negative")
	}
	if rate.IsNegative() {
		return LoanSchedule{}, models.NewAssumptionError(string(ParamLoanRate), rate, "must not be negative")
	}
	if !interestOnly && amortYears <= 0 {
		return LoanSchedule{}, models.NewAssumptionError(string(ParamAmortizationYears), amortYears, "amortizing loan requires a positive term")
	}

	s := LoanSchedule{
		LoanAmount:        price.Mul(ltv).Div(hundred).Round(2),
		RatePercent:       rate,
		AmortizationYears: amortYears,
		InterestOnly:      interestOnly,
	}
	if s.LoanAmount.IsZero() || rate.IsZero() {
		return s, nil
	}

	if interestOnly {
		s.AnnualDebtService = s.LoanAmount.Mul(rate).Div(hundred).Round(2)
		s.MonthlyPayment = s.AnnualDebtService.Div(monthsPerYear).Round(2)
		return s, nil
	}

	r := s.monthlyRate()
	factor := s.growth(s.totalMonths())
	s.MonthlyPayment = s.LoanAmount.Mul(r).Mul(factor).Div(factor.Sub(decimal.NewFromInt(1)))
	s.AnnualDebtService = s.MonthlyPayment.Mul(monthsPerYear).Round(2)
	s.MonthlyPayment = s.MonthlyPayment.Round(2)
	return s, nil
}

func (s LoanSchedule) monthlyRate() decimal.Decimal {
	return s.RatePercent.Div(decimal.NewFromInt(1200))
}

func (s LoanSchedule) totalMonths() int {
	return s.AmortizationYears * 12
}

// growth returns (1 + r)^months.
func (s LoanSchedule) growth(months int) decimal.Decimal {
	r := s.monthlyRate().InexactFloat64()
	return decimal.NewFromFloat(math.Pow(1+r, float64(months)))
}

// BalanceAtMonth is the outstanding principal after n monthly payments.
func (s LoanSchedule) BalanceAtMonth(n int) decimal.Decimal {
	if n <= 0 || s.InterestOnly || s.LoanAmount.IsZero() {
		return s.LoanAmount
	}
	total := s.totalMonths()
	if total <= 0 {
		return s.LoanAmount
	}
	if n >= total {
		return decimal.Zero
	}

	if s.RatePercent.IsZero() {
		paid := s.LoanAmount.Mul(decimal.NewFromInt(int64(n))).Div(decimal.NewFromInt(int64(total)))
		return decimal.Max(decimal.Zero, s.LoanAmount.Sub(paid)).Round(2)
	}

	r := s.monthlyRate()
	factor := s.growth(n)
	payment := s.LoanAmount.Mul(r).Mul(s.growth(total)).Div(s.growth(total).Sub(decimal.NewFromInt(1)))
	balance := s.LoanAmount.Mul(factor).Sub(payment.Mul(factor.Sub(decimal.NewFromInt(1))).Div(r))
	return decimal.Max(decimal.Zero, balance).Round(2)
}

// BalanceAtYear is the outstanding principal at the end of year y.
func (s LoanSchedule) BalanceAtYear(y int) decimal.Decimal {
	return s.BalanceAtMonth(y * 12)
}

// DSCR is noi ÷ debtService, zero when there is no debt service.
func DSCR(noi, debtService decimal.Decimal) decimal.Decimal {
	if !debtService.IsPositive() {
		return decimal.Zero
	}
	return noi.Div(debtService).Round(2)
}

// MaxLoanByDSCR is the largest loan whose debt service keeps coverage at minDSCR.
func MaxLoanByDSCR(noi, minDSCR, rate decimal.Decimal, amortYears int, interestOnly bool) decimal.Decimal {
	if !noi.IsPositive() || !minDSCR.IsPositive() || !rate.IsPositive() {
		return decimal.Zero
	}
	maxDebtService := noi.Div(minDSCR)
	if interestOnly || amortYears <= 0 {
		return maxDebtService.Div(rate.Div(hundred)).Round(2)
	}

	r := rate.Div(decimal.NewFromInt(1200)).InexactFloat64()
	n := float64(amortYears * 12)
	annuity := (1 - math.Pow(1+r, -n)) / r
	return maxDebtService.Div(monthsPerYear).Mul(decimal.NewFromFloat(annuity)).Round(2)
}
