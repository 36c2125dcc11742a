package disposition

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"underwriting/server/internal/models"
	"underwriting/server/internal/underwriting"
)

const daysPerMonth = 30.44

var (
	hundred           = decimal.NewFromInt(100)
	defaultExitCap    = decimal.NewFromInt(6)
	defaultSellCost   = decimal.NewFromInt(3)
	monthsPerYear     = decimal.NewFromInt(12)
	defaultHoldMonths = 12
)

// Position is the state of an owned asset that scenarios are priced against.
type Position struct {
	PurchasePrice      decimal.Decimal
	EntryEquity        decimal.Decimal
	Loan               underwriting.LoanSchedule
	LoanBalance        decimal.Decimal
	MonthsHeld         int
	AnnualDebtService  decimal.Decimal
	CurrentNOI         decimal.Decimal
	CurrentCapRate     decimal.Decimal
	PropertyValue      decimal.Decimal
	CumulativeCashFlow decimal.Decimal
	ClosedDate         *time.Time
}

// HoldMonths counts whole months of 30.44 days from closed to asOf.
// Without a closed date the hold is assumed to be twelve months.
func HoldMonths(closed *time.Time, asOf time.Time) int {
	if closed == nil {
		return defaultHoldMonths
	}
	days := asOf.Sub(*closed).Hours() / 24
	if days <= 0 {
		return 0
	}
	return int(days / daysPerMonth)
}

// AnnualizedNOI scales the NOI of a partial trailing window to a full year.
// It returns zero when there are no actuals.
func AnnualizedNOI(actuals []models.MonthlyActual) decimal.Decimal {
	if len(actuals) == 0 {
		return decimal.Zero
	}
	total := decimal.Zero
	for _, a := range actuals {
		a.Recalculate()
		total = total.Add(a.NetOperatingIncome)
	}
	if len(actuals) < 12 {
		total = total.Mul(monthsPerYear).Div(decimal.NewFromInt(int64(len(actuals))))
	}
	return total.Round(2)
}

// NewPosition derives the current position of deal from its underwriting and the
// actuals recorded so far. Current NOI prefers annualized actuals over the
// underwritten year-one NOI.
func NewPosition(deal *models.DealAssumptions, calc *underwriting.CalculationResult, actuals []models.MonthlyActual, asOf time.Time) Position {
	months := HoldMonths(deal.ClosedDate, asOf)
	p := Position{
		PurchasePrice:      deal.PurchasePrice,
		EntryEquity:        calc.EquityRequired,
		Loan:               calc.Loan,
		LoanBalance:        calc.Loan.BalanceAtMonth(months),
		MonthsHeld:         months,
		AnnualDebtService:  calc.Loan.AnnualDebtService,
		CurrentNOI:         calc.Pnl.NetOperatingIncome,
		CurrentCapRate:     calc.GoingInCapRate,
		PropertyValue:      deal.PurchasePrice,
		CumulativeCashFlow: decimal.Zero,
		ClosedDate:         deal.ClosedDate,
	}
	if len(actuals) > 0 {
		p.CurrentNOI = AnnualizedNOI(actuals)
	}
	for _, a := range actuals {
		a.Recalculate()
		p.CumulativeCashFlow = p.CumulativeCashFlow.Add(a.CashFlow)
	}
	return p
}

// ApplyAnalysis marks the position to the valuation snapshot: the market cap rate
// replaces the going-in cap, and a broker opinion or implied value replaces cost.
func (p *Position) ApplyAnalysis(a *models.DispositionAnalysis) {
	if a == nil {
		return
	}
	if a.CurrentMarketCapRate != nil && a.CurrentMarketCapRate.IsPositive() {
		p.CurrentCapRate = *a.CurrentMarketCapRate
	}
	switch {
	case a.BrokerOpinionOfValue != nil && a.BrokerOpinionOfValue.IsPositive():
		p.PropertyValue = *a.BrokerOpinionOfValue
	case a.ImpliedValue.IsPositive():
		p.PropertyValue = a.ImpliedValue
	}
}

// Engine prices hold, sell and refinance scenarios for one position.
type Engine struct {
	position        Position
	sellCostPercent decimal.Decimal
}

// NewEngine creates an engine. A non-positive sell cost falls back to 3%.
func NewEngine(position Position, sellCostPercent decimal.Decimal) *Engine {
	if !sellCostPercent.IsPositive() {
		sellCostPercent = defaultSellCost
	}
	return &Engine{position: position, sellCostPercent: sellCostPercent}
}

// Position returns the position the engine prices against.
func (e *Engine) Position() Position {
	return e.position
}

// Hold projects keeping the asset for additionalYears with NOI compounding at
// growth percent, exiting at the current cap rate (6% when unknown).
func (e *Engine) Hold(additionalYears int, growth decimal.Decimal) (*models.HoldScenario, error) {
	if additionalYears < 1 {
		return nil, models.NewAssumptionError("additional_years", additionalYears, "must be at least 1")
	}
	if additionalYears > underwriting.MaxHoldYears {
		return nil, models.NewAssumptionError("additional_years", additionalYears, fmt.Sprintf("must be at most %d", underwriting.MaxHoldYears))
	}
	if growth.IsNegative() {
		return nil, models.NewAssumptionError("noi_growth_rate", growth, "must not be negative")
	}
	p := e.position

	exitCap := p.CurrentCapRate
	if !exitCap.IsPositive() {
		exitCap = defaultExitCap
	}
	futureNOI := p.CurrentNOI.Mul(underwriting.GrowthFactor(growth, additionalYears)).Round(2)
	exitValue := underwriting.ExitValue(futureNOI, exitCap)
	loanBalance := p.Loan.BalanceAtMonth(p.MonthsHeld + additionalYears*12)
	sellingCosts := exitValue.Mul(e.sellCostPercent).Div(hundred).Round(2)
	netProceeds := exitValue.Sub(sellingCosts).Sub(loanBalance)

	scenario := &models.HoldScenario{
		AdditionalYears:      additionalYears,
		NOIGrowthRate:        growth,
		ProjectedAnnualNOI:   futureNOI,
		ExitCapRate:          exitCap,
		ProjectedExitValue:   exitValue,
		ProjectedLoanBalance: loanBalance,
	}

	flows := []float64{-p.EntryEquity.InexactFloat64()}
	distributions := decimal.Zero
	for year := 1; year <= additionalYears; year++ {
		noi := p.CurrentNOI.Mul(underwriting.GrowthFactor(growth, year)).Round(2)
		cf := noi.Sub(p.AnnualDebtService)
		if year == 1 && p.EntryEquity.IsPositive() {
			scenario.ProjectedCashOnCash = cf.Div(p.EntryEquity).Mul(hundred).Round(2)
		}
		if year == additionalYears {
			cf = cf.Add(netProceeds)
		}
		distributions = distributions.Add(cf)
		flows = append(flows, cf.InexactFloat64())
	}

	if p.EntryEquity.IsPositive() {
		scenario.ProjectedEquityMultiple = distributions.Div(p.EntryEquity).Round(2)
		if rate, ok := underwriting.IRR(flows); ok {
			irr := math.Round(rate*10000) / 100
			scenario.ProjectedIRR = &irr
		}
	}
	return scenario, nil
}

// Sell prices an exit at salePrice. A nil sellCostPercent uses the engine default.
func (e *Engine) Sell(salePrice decimal.Decimal, sellCostPercent *decimal.Decimal) (*models.SellScenario, error) {
	if !salePrice.IsPositive() {
		return nil, models.NewAssumptionError("sale_price", salePrice, "must be positive")
	}
	pct := e.sellCostPercent
	if sellCostPercent != nil {
		if sellCostPercent.IsNegative() {
			return nil, models.NewAssumptionError("selling_cost_percent", *sellCostPercent, "must not be negative")
		}
		pct = *sellCostPercent
	}
	p := e.position

	sellingCosts := salePrice.Mul(pct).Div(hundred).Round(2)
	netProceeds := salePrice.Sub(sellingCosts).Sub(p.LoanBalance)
	scenario := &models.SellScenario{
		EstimatedSalePrice:   salePrice,
		SellingCostPercent:   pct,
		SellingCosts:         sellingCosts,
		RemainingLoanBalance: p.LoanBalance,
		NetProceeds:          netProceeds,
		EquityReturned:       netProceeds,
		TotalProfit:          netProceeds.Add(p.CumulativeCashFlow).Sub(p.EntryEquity),
		HoldPeriodMonths:     p.MonthsHeld,
	}

	if p.EntryEquity.IsPositive() {
		multiple := netProceeds.Add(p.CumulativeCashFlow).Div(p.EntryEquity)
		scenario.EquityMultiple = multiple.Round(2)
		if multiple.IsPositive() && p.MonthsHeld > 0 {
			annualized := math.Pow(multiple.InexactFloat64(), 12/float64(p.MonthsHeld)) - 1
			annualized = math.Round(annualized*10000) / 100
			scenario.AnnualizedReturn = &annualized
		}
	}
	return scenario, nil
}

// Refinance prices an interest-only refinance quote. Cash-out never goes below zero.
func (e *Engine) Refinance(newLoanAmount, newRate decimal.Decimal) (*models.RefinanceScenario, error) {
	if newLoanAmount.IsNegative() {
		return nil, models.NewAssumptionError("new_loan_amount", newLoanAmount, "must not be negative")
	}
	if newRate.IsNegative() {
		return nil, models.NewAssumptionError("new_rate", newRate, "must not be negative")
	}
	p := e.position

	debtService := newLoanAmount.Mul(newRate).Div(hundred).Round(2)
	remainingEquity := p.PropertyValue.Sub(newLoanAmount)
	scenario := &models.RefinanceScenario{
		NewLoanAmount:        newLoanAmount,
		CurrentLoanBalance:   p.LoanBalance,
		CashOutAmount:        decimal.Max(decimal.Zero, newLoanAmount.Sub(p.LoanBalance)),
		NewInterestRate:      newRate,
		NewAnnualDebtService: debtService,
		RemainingEquity:      remainingEquity,
	}
	if remainingEquity.IsPositive() {
		scenario.GoForwardCashOnCash = p.CurrentNOI.Sub(debtService).Div(remainingEquity).Mul(hundred).Round(2)
	}
	return scenario, nil
}
