package underwriting

import (
	"github.com/shopspring/decimal"

	"underwriting/server/config"
	"underwriting/server/internal/models"
)

// Settings are the deal-independent modeling constants, in percent.
type Settings struct {
	SaleCostPercent        decimal.Decimal
	AcquisitionCostPercent decimal.Decimal
	ExitCapSpread          decimal.Decimal
}

// DefaultSettings matches the configuration defaults.
func DefaultSettings() Settings {
	return Settings{
		SaleCostPercent:        decimal.NewFromInt(2),
		AcquisitionCostPercent: decimal.NewFromInt(2),
		ExitCapSpread:          decimal.RequireFromString("0.5"),
	}
}

// SettingsFromConfig converts the environment configuration.
func SettingsFromConfig(c config.UnderwritingConfig) Settings {
	return Settings{
		SaleCostPercent:        decimal.NewFromFloat(c.SaleCostPercent),
		AcquisitionCostPercent: decimal.NewFromFloat(c.AcquisitionCostPercent),
		ExitCapSpread:          decimal.NewFromFloat(c.ExitCapSpread),
	}
}

// CalculationResult is the full set of derived figures for one deal.
type CalculationResult struct {
	Resolved ResolvedSet  `json:"resolved"`
	Pnl      Pnl          `json:"pnl"`
	Loan     LoanSchedule `json:"loan"`

	AcquisitionCosts decimal.Decimal `json:"acquisition_costs"`
	CapexBudget      decimal.Decimal `json:"capex_budget"`
	TotalUses        decimal.Decimal `json:"total_uses"`
	EquityRequired   decimal.Decimal `json:"equity_required"`
	DSCRBasedLoan    decimal.Decimal `json:"dscr_based_loan"`
	ConstrainingTest string          `json:"constraining_test"`

	PricePerUnit   decimal.Decimal    `json:"price_per_unit"`
	GoingInCapRate decimal.Decimal    `json:"going_in_cap_rate"`
	ExitCapRate    ResolvedAssumption `json:"exit_cap_rate"`
	DSCR           decimal.Decimal    `json:"dscr"`
	CashOnCash     decimal.Decimal    `json:"cash_on_cash"`

	Projection  []YearCashFlow          `json:"projection"`
	Returns     Returns                 `json:"returns"`
	Sensitivity []models.SensitivityRow `json:"sensitivity"`
}

// Calculator runs the full pipeline: resolve, P&L, debt, projection, returns.
type Calculator struct {
	resolver *Resolver
	settings Settings
}

// NewCalculator creates a calculator. A nil resolver uses the compiled-in defaults.
func NewCalculator(resolver *Resolver, settings Settings) *Calculator {
	if resolver == nil {
		resolver = NewResolver(nil, decimal.NewFromInt(config.DefaultNOIGrowthRate))
	}
	return &Calculator{resolver: resolver, settings: settings}
}

// Resolver exposes the resolver the calculator was built with.
func (c *Calculator) Resolver() *Resolver {
	return c.resolver
}

// Calculate computes every figure for deal. It performs no I/O.
func (c *Calculator) Calculate(deal *models.DealAssumptions, market MarketInputs) (*CalculationResult, error) {
	if err := deal.Validate(); err != nil {
		return nil, err
	}

	resolved, err := c.resolver.ResolveAll(deal, market)
	if err != nil {
		return nil, err
	}

	pnl, err := BuildPnl(deal, resolved)
	if err != nil {
		return nil, err
	}

	loan, err := Amortize(deal.PurchasePrice, resolved.LoanLTV.Value, resolved.LoanRate.Value,
		resolved.AmortizationYears.Int(), deal.InterestOnly)
	if err != nil {
		return nil, err
	}

	calc := &CalculationResult{
		Resolved: resolved,
		Pnl:      pnl,
		Loan:     loan,
		DSCR:     DSCR(pnl.NetOperatingIncome, loan.AnnualDebtService),
	}

	calc.AcquisitionCosts = deal.PurchasePrice.Mul(c.settings.AcquisitionCostPercent).Div(hundred).Round(2)
	if deal.CapexBudget != nil {
		calc.CapexBudget = *deal.CapexBudget
	}
	calc.TotalUses = deal.PurchasePrice.Add(calc.AcquisitionCosts).Add(calc.CapexBudget)
	calc.EquityRequired = calc.TotalUses.Sub(loan.LoanAmount)

	calc.DSCRBasedLoan = MaxLoanByDSCR(pnl.NetOperatingIncome, resolved.MinDSCR.Value, resolved.LoanRate.Value,
		resolved.AmortizationYears.Int(), deal.InterestOnly)
	calc.ConstrainingTest = "LTV"
	if calc.DSCRBasedLoan.IsPositive() && calc.DSCRBasedLoan.LessThan(loan.LoanAmount) {
		calc.ConstrainingTest = "DSCR"
	}

	if pnl.Capacity > 0 {
		calc.PricePerUnit = deal.PurchasePrice.Div(decimal.NewFromInt(int64(pnl.Capacity))).Round(2)
	}
	if deal.PurchasePrice.IsPositive() {
		calc.GoingInCapRate = pnl.NetOperatingIncome.Div(deal.PurchasePrice).Mul(hundred)
	}
	calc.ExitCapRate = c.exitCapRate(deal, market, calc.GoingInCapRate)

	holdYears := resolved.HoldYears.Int()
	calc.Projection, err = Project(pnl, loan.AnnualDebtService, holdYears, resolved.NOIGrowthRate.Value, calc.EquityRequired)
	if err != nil {
		return nil, err
	}
	calc.CashOnCash = calc.Projection[0].CashOnCash

	calc.Returns = ComputeReturns(ReturnsInput{
		InitialEquity:     calc.EquityRequired,
		CashFlows:         calc.Projection,
		ExitCapRate:       calc.ExitCapRate.Value,
		LoanBalanceAtExit: loan.BalanceAtYear(holdYears),
		SaleCostPercent:   c.settings.SaleCostPercent,
	})
	calc.Sensitivity = RunSensitivity(deal, calc)

	return calc, nil
}

// exitCapRate prefers an explicit exit cap, then a market cap rate plus the
// configured spread, then the going-in cap rate.
func (c *Calculator) exitCapRate(deal *models.DealAssumptions, market MarketInputs, goingIn decimal.Decimal) ResolvedAssumption {
	exit := ResolvedAssumption{Parameter: ParamExitCapRate}
	switch {
	case deal.ExitCapRate != nil:
		exit.Value = *deal.ExitCapRate
		exit.Provenance = models.ProvenanceUserInput
	case deal.MarketCapRate != nil:
		exit.Value = deal.MarketCapRate.Add(c.settings.ExitCapSpread)
		exit.Provenance = models.ProvenanceUserInput
	case market.CapRate != nil:
		exit.Value = market.CapRate.Add(c.settings.ExitCapSpread)
		exit.Provenance = models.ProvenanceMarketData
	default:
		exit.Value = goingIn.Round(4)
		exit.Provenance = models.ProvenanceCalculated
	}
	return exit
}
