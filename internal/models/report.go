package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb/geojson"
	"github.com/shopspring/decimal"
)

// InvestmentDecision is the go/no-go call attached to a report.
type InvestmentDecision string

const (
	DecisionGo            InvestmentDecision = "GO"
	DecisionConditionalGo InvestmentDecision = "CONDITIONAL GO"
	DecisionNoGo          InvestmentDecision = "NO GO"
)

// RiskSeverity grades a risk item.
type RiskSeverity string

const (
	RiskLow      RiskSeverity = "Low"
	RiskModerate RiskSeverity = "Moderate"
	RiskHigh     RiskSeverity = "High"
	RiskCritical RiskSeverity = "Critical"
)

// SectionHeader numbers and titles a report section.
type SectionHeader struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
}

// ReportLineItem is a single P&L figure with its source.
type ReportLineItem struct {
	Label        string          `json:"label"`
	Annual       decimal.Decimal `json:"annual"`
	PerUnit      decimal.Decimal `json:"per_unit"`
	PercentOfEGI decimal.Decimal `json:"percent_of_egi"`
	Provenance   Provenance      `json:"provenance"`
}

// MetricRow is a formatted headline figure with its source.
type MetricRow struct {
	Label      string     `json:"label"`
	Value      string     `json:"value"`
	Provenance Provenance `json:"provenance"`
}

type CoreMetricsSection struct {
	SectionHeader
	PurchasePrice  decimal.Decimal `json:"purchase_price"`
	CapacityLabel  string          `json:"capacity_label"`
	Capacity       int             `json:"capacity"`
	PricePerUnit   decimal.Decimal `json:"price_per_unit"`
	CapRate        decimal.Decimal `json:"cap_rate"`
	NOI            decimal.Decimal `json:"noi"`
	EGI            decimal.Decimal `json:"egi"`
	OpExRatio      decimal.Decimal `json:"opex_ratio"`
	DSCR           decimal.Decimal `json:"dscr"`
	LoanAmount     decimal.Decimal `json:"loan_amount"`
	LTV            decimal.Decimal `json:"ltv"`
	CashOnCash     decimal.Decimal `json:"cash_on_cash"`
	IRR            *float64        `json:"irr"`
	EquityMultiple decimal.Decimal `json:"equity_multiple"`
	Metrics        []MetricRow     `json:"metrics"`
}

type ExecutiveSummarySection struct {
	SectionHeader
	Decision      InvestmentDecision `json:"decision"`
	Narrative     string             `json:"narrative"`
	Provenance    Provenance         `json:"provenance"`
	KeyHighlights []string           `json:"key_highlights"`
	KeyRisks      []string           `json:"key_risks"`
}

// AssumptionRow shows one resolved parameter.
type AssumptionRow struct {
	Parameter  string     `json:"parameter"`
	Value      string     `json:"value"`
	Provenance Provenance `json:"provenance"`
}

type AssumptionsSection struct {
	SectionHeader
	Assumptions []AssumptionRow `json:"assumptions"`
}

// SalesCompRow is one comparable sale.
type SalesCompRow struct {
	Name          string           `json:"name"`
	Address       string           `json:"address"`
	SalePrice     decimal.Decimal  `json:"sale_price"`
	Units         int              `json:"units"`
	PricePerUnit  decimal.Decimal  `json:"price_per_unit"`
	CapRate       decimal.Decimal  `json:"cap_rate"`
	SaleDate      time.Time        `json:"sale_date"`
	DistanceMiles *decimal.Decimal `json:"distance_miles,omitempty"`
	Provenance    Provenance       `json:"provenance"`
}

type PropertyCompsSection struct {
	SectionHeader
	Narrative  string         `json:"narrative"`
	Provenance Provenance     `json:"provenance"`
	Comps      []SalesCompRow `json:"comps"`

	Map *geojson.FeatureCollection `json:"map,omitempty"`
}

// BenchmarkRow sets a subject figure against its market counterpart.
type BenchmarkRow struct {
	Metric   string `json:"metric"`
	Subject  string `json:"subject"`
	Market   string `json:"market"`
	Variance string `json:"variance"`
}

// MarketItem is a named market fact (employer, driver, pipeline project).
type MarketItem struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	SourceURL   string `json:"source_url,omitempty"`
}

type TenantMarketSection struct {
	SectionHeader
	Narrative            string           `json:"narrative"`
	Provenance           Provenance       `json:"provenance"`
	Benchmarks           []BenchmarkRow   `json:"benchmarks"`
	SubjectRentPerUnit   decimal.Decimal  `json:"subject_rent_per_unit"`
	MarketRentPerUnit    *decimal.Decimal `json:"market_rent_per_unit,omitempty"`
	SubjectOccupancy     decimal.Decimal  `json:"subject_occupancy"`
	MarketOccupancy      *decimal.Decimal `json:"market_occupancy,omitempty"`
	MajorEmployers       []MarketItem     `json:"major_employers"`
	EconomicDrivers      []MarketItem     `json:"economic_drivers"`
	ConstructionPipeline []MarketItem     `json:"construction_pipeline"`
}

type OperationsSection struct {
	SectionHeader
	RevenueItems  []ReportLineItem `json:"revenue_items"`
	ExpenseItems  []ReportLineItem `json:"expense_items"`
	TotalRevenue  decimal.Decimal  `json:"total_revenue"`
	TotalExpenses decimal.Decimal  `json:"total_expenses"`
	NOI           decimal.Decimal  `json:"noi"`
	NOIMargin     decimal.Decimal  `json:"noi_margin"`
}

// SourcesAndUses summarizes acquisition capitalization.
type SourcesAndUses struct {
	PurchasePrice    decimal.Decimal `json:"purchase_price"`
	AcquisitionCosts decimal.Decimal `json:"acquisition_costs"`
	CapexReserve     decimal.Decimal `json:"capex_reserve"`
	TotalUses        decimal.Decimal `json:"total_uses"`
	LoanAmount       decimal.Decimal `json:"loan_amount"`
	EquityRequired   decimal.Decimal `json:"equity_required"`
	TotalSources     decimal.Decimal `json:"total_sources"`
	LTVBasedLoan     decimal.Decimal `json:"ltv_based_loan"`
	DSCRBasedLoan    decimal.Decimal `json:"dscr_based_loan"`
	ConstrainingTest string          `json:"constraining_test"`
}

// CashFlowRow is one projected year.
type CashFlowRow struct {
	Year        int             `json:"year"`
	EGI         decimal.Decimal `json:"egi"`
	OpEx        decimal.Decimal `json:"opex"`
	NOI         decimal.Decimal `json:"noi"`
	DebtService decimal.Decimal `json:"debt_service"`
	CashFlow    decimal.Decimal `json:"cash_flow"`
	CashOnCash  decimal.Decimal `json:"cash_on_cash"`
	Provenance  Provenance      `json:"provenance"`
}

// ReturnsAnalysis holds the hold-period return figures.
type ReturnsAnalysis struct {
	IRR               *float64        `json:"irr"`
	EquityMultiple    decimal.Decimal `json:"equity_multiple"`
	AverageCashOnCash decimal.Decimal `json:"average_cash_on_cash"`
	TotalProfit       decimal.Decimal `json:"total_profit"`
	Metrics           []MetricRow     `json:"metrics"`
}

// ExitAnalysis describes the assumed sale at the end of the hold.
type ExitAnalysis struct {
	ExitCapRate           decimal.Decimal `json:"exit_cap_rate"`
	ExitCapRateProvenance Provenance      `json:"exit_cap_rate_provenance"`
	ExitNOI               decimal.Decimal `json:"exit_noi"`
	ExitValue             decimal.Decimal `json:"exit_value"`
	SellingCosts          decimal.Decimal `json:"selling_costs"`
	LoanBalance           decimal.Decimal `json:"loan_balance"`
	NetProceeds           decimal.Decimal `json:"net_proceeds"`
}

// SensitivityRow is one stressed scenario against the base case.
type SensitivityRow struct {
	Scenario       string          `json:"scenario"`
	NOI            decimal.Decimal `json:"noi"`
	NOIChange      decimal.Decimal `json:"noi_change"`
	ExitValue      decimal.Decimal `json:"exit_value"`
	ExitValueDelta decimal.Decimal `json:"exit_value_delta"`
	DSCR           decimal.Decimal `json:"dscr"`
}

type FinancialAnalysisSection struct {
	SectionHeader
	SourcesAndUses SourcesAndUses   `json:"sources_and_uses"`
	CashFlows      []CashFlowRow    `json:"cash_flows"`
	Returns        ReturnsAnalysis  `json:"returns"`
	Exit           ExitAnalysis     `json:"exit"`
	Sensitivity    []SensitivityRow `json:"sensitivity"`
}

// ValueAddItem is one value creation lever.
type ValueAddItem struct {
	Strategy      string          `json:"strategy"`
	Timeline      string          `json:"timeline"`
	EstimatedCost decimal.Decimal `json:"estimated_cost"`
}

type ValueCreationSection struct {
	SectionHeader
	Narrative  string         `json:"narrative"`
	Provenance Provenance     `json:"provenance"`
	Strategies []ValueAddItem `json:"strategies"`
}

// RiskItem is one identified risk.
type RiskItem struct {
	Category    string       `json:"category"`
	Description string       `json:"description"`
	Severity    RiskSeverity `json:"severity"`
	Mitigation  string       `json:"mitigation"`
}

type RiskAssessmentSection struct {
	SectionHeader
	Narrative  string     `json:"narrative"`
	Provenance Provenance `json:"provenance"`
	Risks      []RiskItem `json:"risks"`
}

type InvestmentDecisionSection struct {
	SectionHeader
	Decision         InvestmentDecision `json:"decision"`
	InvestmentThesis string             `json:"investment_thesis"`
	Provenance       Provenance         `json:"provenance"`
	Conditions       []string           `json:"conditions"`
	NextSteps        []string           `json:"next_steps"`
}

// Report is the assembled underwriting report.
type Report struct {
	DealID       uuid.UUID    `json:"deal_id"`
	PropertyName string       `json:"property_name"`
	Address      string       `json:"address"`
	PropertyType PropertyType `json:"property_type"`
	GeneratedAt  time.Time    `json:"generated_at"`

	CoreMetrics        CoreMetricsSection        `json:"core_metrics"`
	ExecutiveSummary   ExecutiveSummarySection   `json:"executive_summary"`
	Assumptions        AssumptionsSection        `json:"assumptions"`
	PropertyComps      PropertyCompsSection      `json:"property_comps"`
	TenantMarket       TenantMarketSection       `json:"tenant_market"`
	Operations         OperationsSection         `json:"operations"`
	FinancialAnalysis  FinancialAnalysisSection  `json:"financial_analysis"`
	ValueCreation      ValueCreationSection      `json:"value_creation"`
	RiskAssessment     RiskAssessmentSection     `json:"risk_assessment"`
	InvestmentDecision InvestmentDecisionSection `json:"investment_decision"`

	Variance *VarianceReport `json:"variance,omitempty"`
}

// Sections returns the section headers in report order.
func (r *Report) Sections() []SectionHeader {
	return []SectionHeader{
		r.CoreMetrics.SectionHeader,
		r.ExecutiveSummary.SectionHeader,
		r.Assumptions.SectionHeader,
		r.PropertyComps.SectionHeader,
		r.TenantMarket.SectionHeader,
		r.Operations.SectionHeader,
		r.FinancialAnalysis.SectionHeader,
		r.ValueCreation.SectionHeader,
		r.RiskAssessment.SectionHeader,
		r.InvestmentDecision.SectionHeader,
	}
}
