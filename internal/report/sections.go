package report

import (
	"fmt"

	"github.com/shopspring/decimal"

	"underwriting/server/internal/market"
	"underwriting/server/internal/models"
	"underwriting/server/internal/underwriting"
)

var hundred = decimal.NewFromInt(100)

var sectionTitles = []string{
	"Core Investment Metrics",
	"Executive Summary",
	"Underwriting Assumptions",
	"Property & Sales Comparables",
	"Tenant & Market Intelligence",
	"Operations T12 P&L",
	"Financial Analysis",
	"Value Creation Strategy",
	"Risk Assessment",
	"Investment Decision",
}

func header(n int) models.SectionHeader {
	return models.SectionHeader{Number: n, Title: sectionTitles[n-1]}
}

func buildCoreMetrics(deal *models.DealAssumptions, calc *underwriting.CalculationResult) models.CoreMetricsSection {
	pnl := calc.Pnl
	resolved := calc.Resolved
	s := models.CoreMetricsSection{
		SectionHeader:  header(1),
		PurchasePrice:  deal.PurchasePrice,
		CapacityLabel:  deal.EffectivePropertyType().CapacityLabel(),
		Capacity:       pnl.Capacity,
		PricePerUnit:   calc.PricePerUnit,
		CapRate:        calc.GoingInCapRate.Round(2),
		NOI:            pnl.NetOperatingIncome,
		EGI:            pnl.EffectiveGrossIncome,
		DSCR:           calc.DSCR,
		LoanAmount:     calc.Loan.LoanAmount,
		LTV:            resolved.LoanLTV.Value,
		CashOnCash:     calc.CashOnCash,
		IRR:            calc.Returns.IRR,
		EquityMultiple: calc.Returns.EquityMultiple,
	}
	if pnl.EffectiveGrossIncome.IsPositive() {
		s.OpExRatio = pnl.OperatingExpenses.Div(pnl.EffectiveGrossIncome).Mul(hundred).Round(2)
	}

	s.Metrics = []models.MetricRow{
		{Label: "Purchase Price", Value: Currency(deal.PurchasePrice), Provenance: models.ProvenanceUserInput},
		{Label: s.CapacityLabel, Value: Integer(pnl.Capacity), Provenance: models.ProvenanceUserInput},
		{Label: "Price per " + singular(s.CapacityLabel), Value: Currency(calc.PricePerUnit), Provenance: models.ProvenanceCalculated},
		{Label: "Going-In Cap Rate", Value: PercentExact(calc.GoingInCapRate), Provenance: models.ProvenanceCalculated},
		{Label: "Net Operating Income", Value: Currency(pnl.NetOperatingIncome), Provenance: models.ProvenanceCalculated},
		{Label: "Effective Gross Income", Value: Currency(pnl.EffectiveGrossIncome), Provenance: models.ProvenanceCalculated},
		{Label: "Operating Expense Ratio", Value: Percent(s.OpExRatio), Provenance: pnl.OperatingExpensesProvenance},
		{Label: "DSCR", Value: Multiple(calc.DSCR), Provenance: models.ProvenanceCalculated},
		{Label: "Loan Amount", Value: Currency(calc.Loan.LoanAmount), Provenance: models.ProvenanceCalculated},
		{Label: "LTV", Value: Percent(resolved.LoanLTV.Value), Provenance: resolved.LoanLTV.Provenance},
		{Label: "Cash-on-Cash (Year 1)", Value: PercentExact(calc.CashOnCash), Provenance: models.ProvenanceCalculated},
		{Label: "IRR", Value: IRR(calc.Returns.IRR), Provenance: models.ProvenanceCalculated},
		{Label: "Equity Multiple", Value: Multiple(calc.Returns.EquityMultiple), Provenance: models.ProvenanceCalculated},
	}
	return s
}

func singular(label string) string {
	switch label {
	case "Keys":
		return "Key"
	case "Beds":
		return "Bed"
	default:
		return "Unit"
	}
}

var assumptionLabels = map[underwriting.Parameter]string{
	underwriting.ParamOccupancy:         "Target Occupancy",
	underwriting.ParamOpExRatio:         "Operating Expense Ratio",
	underwriting.ParamOtherIncomeRatio:  "Other Income Ratio",
	underwriting.ParamManagementFeePct:  "Management Fee",
	underwriting.ParamReservesPerUnit:   "Replacement Reserves",
	underwriting.ParamMinDSCR:           "Minimum DSCR",
	underwriting.ParamMaxLTV:            "Maximum LTV",
	underwriting.ParamLoanLTV:           "Loan LTV",
	underwriting.ParamLoanRate:          "Loan Rate",
	underwriting.ParamAmortizationYears: "Amortization",
	underwriting.ParamLoanTermYears:     "Loan Term",
	underwriting.ParamHoldYears:         "Hold Period",
	underwriting.ParamNOIGrowthRate:     "NOI Growth Rate",
	underwriting.ParamExitCapRate:       "Exit Cap Rate",
}

func formatAssumption(a underwriting.ResolvedAssumption) string {
	switch a.Parameter {
	case underwriting.ParamOpExRatio, underwriting.ParamOtherIncomeRatio:
		return Percent(a.Value.Mul(hundred))
	case underwriting.ParamReservesPerUnit:
		return Currency(a.Value) + "/unit"
	case underwriting.ParamMinDSCR:
		return Multiple(a.Value)
	case underwriting.ParamAmortizationYears, underwriting.ParamLoanTermYears, underwriting.ParamHoldYears:
		return Years(a.Int())
	case underwriting.ParamLoanRate, underwriting.ParamNOIGrowthRate, underwriting.ParamExitCapRate, underwriting.ParamManagementFeePct:
		return PercentExact(a.Value)
	default:
		return Percent(a.Value)
	}
}

func buildAssumptions(deal *models.DealAssumptions, calc *underwriting.CalculationResult) models.AssumptionsSection {
	rows := []models.AssumptionRow{
		{Parameter: "Purchase Price", Value: Currency(deal.PurchasePrice), Provenance: models.ProvenanceUserInput},
	}
	for _, a := range append(calc.Resolved.All(), calc.ExitCapRate) {
		value := formatAssumption(a)
		if a.Parameter == underwriting.ParamLoanRate && a.Provenance == models.ProvenanceProtocolDefault {
			value = "TBD"
		}
		rows = append(rows, models.AssumptionRow{Parameter: assumptionLabels[a.Parameter], Value: value, Provenance: a.Provenance})
	}
	interestOnly := "No"
	if deal.InterestOnly {
		interestOnly = "Yes"
	}
	rows = append(rows, models.AssumptionRow{Parameter: "Interest Only", Value: interestOnly, Provenance: models.ProvenanceUserInput})
	return models.AssumptionsSection{SectionHeader: header(3), Assumptions: rows}
}

func lineItem(label string, annual decimal.Decimal, pnl underwriting.Pnl, provenance models.Provenance) models.ReportLineItem {
	item := models.ReportLineItem{Label: label, Annual: annual, Provenance: provenance}
	if pnl.Capacity > 0 {
		item.PerUnit = annual.Div(decimal.NewFromInt(int64(pnl.Capacity))).Round(2)
	}
	if !pnl.EffectiveGrossIncome.IsZero() {
		item.PercentOfEGI = annual.Div(pnl.EffectiveGrossIncome).Mul(hundred).Round(2)
	}
	return item
}

func buildOperations(deal *models.DealAssumptions, calc *underwriting.CalculationResult) models.OperationsSection {
	pnl := calc.Pnl
	resolved := calc.Resolved
	revenueSource := models.ProvenanceUserInput
	if deal.RentPerUnit == nil && deal.AverageDailyRate == nil {
		revenueSource = models.ProvenanceProtocolDefault
	}

	s := models.OperationsSection{
		SectionHeader: header(6),
		RevenueItems: []models.ReportLineItem{
			lineItem("Gross Potential Revenue", pnl.GrossPotentialRevenue, pnl, revenueSource),
			lineItem("Vacancy Loss", pnl.VacancyLoss.Neg(), pnl, resolved.Occupancy.Provenance),
			lineItem("Net Rental Income", pnl.NetRentalIncome, pnl, models.ProvenanceCalculated),
			lineItem("Other Income", pnl.OtherIncome, pnl, resolved.OtherIncomeRatio.Provenance),
		},
		TotalRevenue:  pnl.EffectiveGrossIncome,
		TotalExpenses: pnl.OperatingExpenses,
		NOI:           pnl.NetOperatingIncome,
		NOIMargin:     pnl.NOIMargin,
	}
	for _, line := range pnl.ExpenseLines {
		s.ExpenseItems = append(s.ExpenseItems, lineItem(line.Label, line.Annual, pnl, line.Provenance))
	}
	return s
}

func buildFinancialAnalysis(calc *underwriting.CalculationResult) models.FinancialAnalysisSection {
	returns := calc.Returns
	s := models.FinancialAnalysisSection{
		SectionHeader: header(7),
		SourcesAndUses: models.SourcesAndUses{
			PurchasePrice:    calc.TotalUses.Sub(calc.AcquisitionCosts).Sub(calc.CapexBudget),
			AcquisitionCosts: calc.AcquisitionCosts,
			CapexReserve:     calc.CapexBudget,
			TotalUses:        calc.TotalUses,
			LoanAmount:       calc.Loan.LoanAmount,
			EquityRequired:   calc.EquityRequired,
			TotalSources:     calc.Loan.LoanAmount.Add(calc.EquityRequired),
			LTVBasedLoan:     calc.Loan.LoanAmount,
			DSCRBasedLoan:    calc.DSCRBasedLoan,
			ConstrainingTest: calc.ConstrainingTest,
		},
		Returns: models.ReturnsAnalysis{
			IRR:               returns.IRR,
			EquityMultiple:    returns.EquityMultiple,
			AverageCashOnCash: returns.AverageCashOnCash,
			TotalProfit:       returns.TotalProfit,
			Metrics: []models.MetricRow{
				{Label: "IRR", Value: IRR(returns.IRR), Provenance: models.ProvenanceCalculated},
				{Label: "Equity Multiple", Value: Multiple(returns.EquityMultiple), Provenance: models.ProvenanceCalculated},
				{Label: "Average Cash-on-Cash", Value: PercentExact(returns.AverageCashOnCash), Provenance: models.ProvenanceCalculated},
				{Label: "Total Profit", Value: Currency(returns.TotalProfit), Provenance: models.ProvenanceCalculated},
				{Label: "Hold Period", Value: Years(calc.Resolved.HoldYears.Int()), Provenance: calc.Resolved.HoldYears.Provenance},
			},
		},
		Exit: models.ExitAnalysis{
			ExitCapRate:           calc.ExitCapRate.Value,
			ExitCapRateProvenance: calc.ExitCapRate.Provenance,
			ExitNOI:               returns.ExitNOI,
			ExitValue:             returns.ExitValue,
			SellingCosts:          returns.SellingCosts,
			LoanBalance:           returns.LoanBalanceAtExit,
			NetProceeds:           returns.NetSaleProceeds,
		},
		Sensitivity: calc.Sensitivity,
	}
	for _, y := range calc.Projection {
		s.CashFlows = append(s.CashFlows, models.CashFlowRow{
			Year:        y.Year,
			EGI:         y.EffectiveGrossIncome,
			OpEx:        y.OperatingExpenses,
			NOI:         y.NetOperatingIncome,
			DebtService: y.DebtService,
			CashFlow:    y.CashFlow,
			CashOnCash:  y.CashOnCash,
			Provenance:  models.ProvenanceCalculated,
		})
	}
	return s
}

func compsSummary(deal *models.DealAssumptions, calc *underwriting.CalculationResult, comps []market.Comparable) string {
	avg := averagePricePerUnit(comps)
	if avg.IsZero() {
		return fmt.Sprintf("%d comparable sales identified near %s.", len(comps), deal.City)
	}
	return fmt.Sprintf("%d comparable sales average %s per unit against the subject's %s.",
		len(comps), Currency(avg), Currency(calc.PricePerUnit))
}

func marketItems(items []market.Item) []models.MarketItem {
	out := make([]models.MarketItem, 0, len(items))
	for _, i := range items {
		out = append(out, models.MarketItem{Name: i.Name, Description: i.Description, SourceURL: i.SourceURL})
	}
	return out
}

func benchmark(metric string, subject, mkt decimal.Decimal, format func(decimal.Decimal) string) models.BenchmarkRow {
	row := models.BenchmarkRow{Metric: metric, Subject: format(subject), Market: format(mkt), Variance: "N/A"}
	if !mkt.IsZero() {
		delta := subject.Sub(mkt).Div(mkt).Mul(hundred)
		sign := ""
		if delta.IsPositive() {
			sign = "+"
		}
		row.Variance = sign + Percent(delta)
	}
	return row
}

func buildTenantMarketData(deal *models.DealAssumptions, calc *underwriting.CalculationResult, mkt *market.Context) models.TenantMarketSection {
	s := models.TenantMarketSection{
		SectionHeader:    header(5),
		SubjectOccupancy: calc.Resolved.Occupancy.Value,
	}
	if deal.RentPerUnit != nil {
		s.SubjectRentPerUnit = *deal.RentPerUnit
	}
	if mkt == nil {
		return s
	}
	s.MarketRentPerUnit = mkt.MarketRentPerUnit
	s.MarketOccupancy = mkt.MarketOccupancy
	s.MajorEmployers = marketItems(mkt.MajorEmployers)
	s.EconomicDrivers = marketItems(mkt.EconomicDrivers)
	s.ConstructionPipeline = marketItems(mkt.ConstructionPipeline)
	if mkt.MarketRentPerUnit != nil && deal.RentPerUnit != nil {
		s.Benchmarks = append(s.Benchmarks, benchmark("Rent per Unit", *deal.RentPerUnit, *mkt.MarketRentPerUnit, Currency))
	}
	if mkt.MarketOccupancy != nil {
		s.Benchmarks = append(s.Benchmarks, benchmark("Occupancy", s.SubjectOccupancy, *mkt.MarketOccupancy, Percent))
	}
	return s
}

func marketSummary(deal *models.DealAssumptions, mkt *market.Context) string {
	return fmt.Sprintf("%s, %s: %d major employers, %d economic drivers and %d pipeline projects tracked.",
		deal.City, deal.State, len(mkt.MajorEmployers), len(mkt.EconomicDrivers), len(mkt.ConstructionPipeline))
}

func valueAddStrategies(deal *models.DealAssumptions, calc *underwriting.CalculationResult, mkt *market.Context) []models.ValueAddItem {
	var items []models.ValueAddItem
	if calc.CapexBudget.IsPositive() {
		items = append(items, models.ValueAddItem{
			Strategy:      "Capital improvement program",
			Timeline:      "Years 1-2",
			EstimatedCost: calc.CapexBudget,
		})
	}
	if mkt == nil {
		return items
	}
	if mkt.MarketRentPerUnit != nil && deal.RentPerUnit != nil && deal.RentPerUnit.LessThan(*mkt.MarketRentPerUnit) {
		items = append(items, models.ValueAddItem{
			Strategy: fmt.Sprintf("Mark rents to market (%s per unit monthly gap)",
				Currency(mkt.MarketRentPerUnit.Sub(*deal.RentPerUnit))),
			Timeline:      "Upon lease rollover",
			EstimatedCost: decimal.Zero,
		})
	}
	if mkt.MarketOccupancy != nil && calc.Resolved.Occupancy.Value.LessThan(*mkt.MarketOccupancy) {
		items = append(items, models.ValueAddItem{
			Strategy:      fmt.Sprintf("Lease up to market occupancy of %s", Percent(*mkt.MarketOccupancy)),
			Timeline:      "Years 1-2",
			EstimatedCost: decimal.Zero,
		})
	}
	return items
}

func keyHighlights(calc *underwriting.CalculationResult) []string {
	highlights := []string{
		fmt.Sprintf("Going-in cap rate of %s on %s of NOI", PercentExact(calc.GoingInCapRate), Currency(calc.Pnl.NetOperatingIncome)),
		fmt.Sprintf("Year-one DSCR of %s", Multiple(calc.DSCR)),
		fmt.Sprintf("Equity requirement of %s", Currency(calc.EquityRequired)),
	}
	if calc.Returns.IRR != nil {
		highlights = append(highlights, fmt.Sprintf("%s IRR and %s equity multiple over %s",
			IRR(calc.Returns.IRR), Multiple(calc.Returns.EquityMultiple), Years(calc.Resolved.HoldYears.Int())))
	}
	return highlights
}

func riskSummaries(risks []models.RiskItem) []string {
	out := make([]string, 0, len(risks))
	for _, r := range risks {
		out = append(out, fmt.Sprintf("%s (%s): %s", r.Category, r.Severity, r.Description))
	}
	return out
}

func conditions(risks []models.RiskItem) []string {
	out := make([]string, 0, len(risks))
	for _, r := range risks {
		out = append(out, r.Mitigation)
	}
	return out
}

func nextSteps(decision models.InvestmentDecision) []string {
	if decision == models.DecisionNoGo {
		return []string{"Decline at current pricing", "Re-engage if seller terms change"}
	}
	return []string{
		"Submit letter of intent",
		"Obtain lender term sheet",
		"Order third-party appraisal and property condition assessment",
		"Complete financial due diligence on trailing operations",
	}
}
