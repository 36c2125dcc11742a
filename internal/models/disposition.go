package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// HoldScenario projects keeping the asset for additional years.
type HoldScenario struct {
	AdditionalYears         int             `json:"additional_years"`
	NOIGrowthRate           decimal.Decimal `json:"noi_growth_rate"`
	ProjectedAnnualNOI      decimal.Decimal `json:"projected_annual_noi"`
	ExitCapRate             decimal.Decimal `json:"exit_cap_rate"`
	ProjectedExitValue      decimal.Decimal `json:"projected_exit_value"`
	ProjectedLoanBalance    decimal.Decimal `json:"projected_loan_balance"`
	ProjectedCashOnCash     decimal.Decimal `json:"projected_cash_on_cash"`
	ProjectedEquityMultiple decimal.Decimal `json:"projected_equity_multiple"`
	ProjectedIRR            *float64        `json:"projected_irr"`
}

// SellScenario prices an exit at a given sale price.
type SellScenario struct {
	EstimatedSalePrice   decimal.Decimal `json:"estimated_sale_price"`
	SellingCostPercent   decimal.Decimal `json:"selling_cost_percent"`
	SellingCosts         decimal.Decimal `json:"selling_costs"`
	RemainingLoanBalance decimal.Decimal `json:"remaining_loan_balance"`
	NetProceeds          decimal.Decimal `json:"net_proceeds"`
	EquityReturned       decimal.Decimal `json:"equity_returned"`
	TotalProfit          decimal.Decimal `json:"total_profit"`
	EquityMultiple       decimal.Decimal `json:"equity_multiple"`
	AnnualizedReturn     *float64        `json:"annualized_return"`
	HoldPeriodMonths     int             `json:"hold_period_months"`
}

// RefinanceScenario prices an interest-only refinance quote.
type RefinanceScenario struct {
	NewLoanAmount        decimal.Decimal `json:"new_loan_amount"`
	CurrentLoanBalance   decimal.Decimal `json:"current_loan_balance"`
	CashOutAmount        decimal.Decimal `json:"cash_out_amount"`
	NewInterestRate      decimal.Decimal `json:"new_interest_rate"`
	NewAnnualDebtService decimal.Decimal `json:"new_annual_debt_service"`
	GoForwardCashOnCash  decimal.Decimal `json:"go_forward_cash_on_cash"`
	RemainingEquity      decimal.Decimal `json:"remaining_equity"`
}

// DispositionAnalysis is the per-deal valuation snapshot scenarios are run against.
type DispositionAnalysis struct {
	ID                   uuid.UUID        `json:"id" gorm:"type:text;primaryKey"`
	DealID               uuid.UUID        `json:"deal_id" gorm:"type:text;uniqueIndex"`
	BrokerOpinionOfValue *decimal.Decimal `json:"broker_opinion_of_value,omitempty" gorm:"type:numeric"`
	CurrentMarketCapRate *decimal.Decimal `json:"current_market_cap_rate,omitempty" gorm:"type:numeric"`
	TrailingTwelveNOI    decimal.Decimal  `json:"trailing_twelve_noi" gorm:"type:numeric"`
	ImpliedValue         decimal.Decimal  `json:"implied_value" gorm:"type:numeric"`
	Recommendation       string           `json:"recommendation,omitempty"`
	AnalyzedAt           time.Time        `json:"analyzed_at"`

	Hold      *HoldScenario      `json:"hold,omitempty" gorm:"-"`
	Sell      *SellScenario      `json:"sell,omitempty" gorm:"-"`
	Refinance *RefinanceScenario `json:"refinance,omitempty" gorm:"-"`
}

// NewDispositionAnalysis builds a snapshot and computes its implied value.
func NewDispositionAnalysis(dealID uuid.UUID, bov, marketCapRate *decimal.Decimal, t12NOI decimal.Decimal) *DispositionAnalysis {
	a := &DispositionAnalysis{
		ID:                   uuid.New(),
		DealID:               dealID,
		BrokerOpinionOfValue: bov,
		CurrentMarketCapRate: marketCapRate,
		TrailingTwelveNOI:    t12NOI,
		AnalyzedAt:           time.Now().UTC(),
	}
	a.RecalculateImpliedValue()
	return a
}

// RecalculateImpliedValue sets ImpliedValue to T12 NOI capitalized at the market cap rate.
// A missing or non-positive cap rate yields zero.
func (a *DispositionAnalysis) RecalculateImpliedValue() {
	if a.CurrentMarketCapRate == nil || !a.CurrentMarketCapRate.IsPositive() {
		a.ImpliedValue = decimal.Zero
		return
	}
	a.ImpliedValue = a.TrailingTwelveNOI.Div(a.CurrentMarketCapRate.Div(decimal.NewFromInt(100))).Round(2)
}
