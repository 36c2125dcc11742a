package models

import "github.com/shopspring/decimal"

// VarianceSeverity buckets the magnitude of a projected-vs-actual gap.
type VarianceSeverity string

const (
	SeverityOnTrack  VarianceSeverity = "OnTrack"
	SeverityWarning  VarianceSeverity = "Warning"
	SeverityCritical VarianceSeverity = "Critical"
)

// VarianceRow compares one projected line item to its actual value.
type VarianceRow struct {
	Label           string           `json:"label"`
	Projected       decimal.Decimal  `json:"projected"`
	Actual          decimal.Decimal  `json:"actual"`
	VarianceAmount  decimal.Decimal  `json:"variance_amount"`
	VariancePercent decimal.Decimal  `json:"variance_percent"`
	Severity        VarianceSeverity `json:"severity"`
	Favorable       bool             `json:"favorable"`
}

// VarianceReport reconciles annualized actuals against the underwritten projection.
type VarianceReport struct {
	MonthsReported      int             `json:"months_reported"`
	AnnualizationFactor decimal.Decimal `json:"annualization_factor"`

	NOI        VarianceRow `json:"noi"`
	Revenue    VarianceRow `json:"revenue"`
	Expenses   VarianceRow `json:"expenses"`
	CashOnCash VarianceRow `json:"cash_on_cash"`

	RevenueItems []VarianceRow `json:"revenue_items"`
	ExpenseItems []VarianceRow `json:"expense_items"`
}

// AnnualSummary rolls up a period of monthly actuals.
type AnnualSummary struct {
	Year             int             `json:"year"`
	Quarter          int             `json:"quarter,omitempty"`
	TotalRevenue     decimal.Decimal `json:"total_revenue"`
	TotalExpenses    decimal.Decimal `json:"total_expenses"`
	TotalNOI         decimal.Decimal `json:"total_noi"`
	TotalDebtService decimal.Decimal `json:"total_debt_service"`
	TotalCapex       decimal.Decimal `json:"total_capex"`
	TotalCashFlow    decimal.Decimal `json:"total_cash_flow"`
	AverageOccupancy decimal.Decimal `json:"average_occupancy"`
	MonthsReported   int             `json:"months_reported"`
}
