package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DetailedExpenses is an itemized annual operating expense breakdown.
// Nil fields were not supplied.
type DetailedExpenses struct {
	RealEstateTaxes      *decimal.Decimal `json:"real_estate_taxes,omitempty" gorm:"type:numeric"`
	Insurance            *decimal.Decimal `json:"insurance,omitempty" gorm:"type:numeric"`
	Utilities            *decimal.Decimal `json:"utilities,omitempty" gorm:"type:numeric"`
	RepairsMaintenance   *decimal.Decimal `json:"repairs_maintenance,omitempty" gorm:"type:numeric"`
	Payroll              *decimal.Decimal `json:"payroll,omitempty" gorm:"type:numeric"`
	Marketing            *decimal.Decimal `json:"marketing,omitempty" gorm:"type:numeric"`
	GeneralAdmin         *decimal.Decimal `json:"general_administrative,omitempty" gorm:"type:numeric"`
	ManagementFee        *decimal.Decimal `json:"management_fee,omitempty" gorm:"type:numeric"`
	ManagementFeePercent *decimal.Decimal `json:"management_fee_percent,omitempty" gorm:"type:numeric"`
	ReplacementReserves  *decimal.Decimal `json:"replacement_reserves,omitempty" gorm:"type:numeric"`
	Other                *decimal.Decimal `json:"other,omitempty" gorm:"type:numeric"`
}

// ExpenseItem is one supplied line of a DetailedExpenses breakdown.
type ExpenseItem struct {
	Label  string
	Amount decimal.Decimal
}

// FixedItems returns the supplied dollar items other than management fee and reserves,
// in report order.
func (e *DetailedExpenses) FixedItems() []ExpenseItem {
	if e == nil {
		return nil
	}
	candidates := []struct {
		label string
		value *decimal.Decimal
	}{
		{"Real Estate Taxes", e.RealEstateTaxes},
		{"Insurance", e.Insurance},
		{"Utilities", e.Utilities},
		{"Repairs & Maintenance", e.RepairsMaintenance},
		{"Payroll", e.Payroll},
		{"Marketing", e.Marketing},
		{"General & Administrative", e.GeneralAdmin},
		{"Other", e.Other},
	}
	var items []ExpenseItem
	for _, c := range candidates {
		if c.value != nil {
			items = append(items, ExpenseItem{Label: c.label, Amount: *c.value})
		}
	}
	return items
}

// HasAnyValues reports whether at least one expense field was supplied.
func (e *DetailedExpenses) HasAnyValues() bool {
	if e == nil {
		return false
	}
	return len(e.FixedItems()) > 0 ||
		e.ManagementFee != nil ||
		e.ManagementFeePercent != nil ||
		e.ReplacementReserves != nil
}

// Total sums every supplied dollar amount. The percentage fee is not included.
func (e *DetailedExpenses) Total() decimal.Decimal {
	total := decimal.Zero
	if e == nil {
		return total
	}
	for _, item := range e.FixedItems() {
		total = total.Add(item.Amount)
	}
	if e.ManagementFee != nil {
		total = total.Add(*e.ManagementFee)
	}
	if e.ReplacementReserves != nil {
		total = total.Add(*e.ReplacementReserves)
	}
	return total
}

// DealAssumptions holds the property facts and deal terms a deal is underwritten from.
// Pointer fields are optional; nil triggers fallback resolution.
type DealAssumptions struct {
	ID           uuid.UUID    `json:"id" gorm:"type:text;primaryKey"`
	Name         string       `json:"name"`
	Address      string       `json:"address"`
	City         string       `json:"city"`
	State        string       `json:"state"`
	Latitude     *float64     `json:"latitude,omitempty"`
	Longitude    *float64     `json:"longitude,omitempty"`
	PropertyType PropertyType `json:"property_type"`

	UnitCount     int             `json:"unit_count"`
	LicensedBeds  int             `json:"licensed_beds"`
	PurchasePrice decimal.Decimal `json:"purchase_price" gorm:"type:numeric"`

	AverageDailyRate     *decimal.Decimal `json:"average_daily_rate,omitempty" gorm:"type:numeric"`
	RentPerUnit          *decimal.Decimal `json:"rent_per_unit,omitempty" gorm:"type:numeric"`
	T12OperatingExpenses *decimal.Decimal `json:"t12_operating_expenses,omitempty" gorm:"type:numeric"`
	T12NOI               *decimal.Decimal `json:"t12_noi,omitempty" gorm:"type:numeric"`

	LoanLTV           *decimal.Decimal `json:"loan_ltv,omitempty" gorm:"type:numeric"`
	LoanRate          *decimal.Decimal `json:"loan_rate,omitempty" gorm:"type:numeric"`
	AmortizationYears *int             `json:"amortization_years,omitempty"`
	LoanTermYears     *int             `json:"loan_term_years,omitempty"`
	InterestOnly      bool             `json:"interest_only"`

	HoldYears       *int             `json:"hold_years,omitempty"`
	TargetOccupancy *decimal.Decimal `json:"target_occupancy,omitempty" gorm:"type:numeric"`
	CapexBudget     *decimal.Decimal `json:"capex_budget,omitempty" gorm:"type:numeric"`
	MarketCapRate   *decimal.Decimal `json:"market_cap_rate,omitempty" gorm:"type:numeric"`
	NOIGrowthRate   *decimal.Decimal `json:"noi_growth_rate,omitempty" gorm:"type:numeric"`
	ExitCapRate     *decimal.Decimal `json:"exit_cap_rate,omitempty" gorm:"type:numeric"`

	OpExRatio        *decimal.Decimal `json:"opex_ratio,omitempty" gorm:"type:numeric"`
	OtherIncomeRatio *decimal.Decimal `json:"other_income_ratio,omitempty" gorm:"type:numeric"`
	ReservesPerUnit  *decimal.Decimal `json:"reserves_per_unit,omitempty" gorm:"type:numeric"`
	MinDSCR          *decimal.Decimal `json:"min_dscr,omitempty" gorm:"type:numeric"`
	MaxLTV           *decimal.Decimal `json:"max_ltv,omitempty" gorm:"type:numeric"`

	DetailedExpenses *DetailedExpenses `json:"detailed_expenses,omitempty" gorm:"embedded;embeddedPrefix:expense_"`

	ClosedDate *time.Time `json:"closed_date,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// TableName pins the gorm table name.
func (DealAssumptions) TableName() string {
	return "deals"
}

// EffectivePropertyType is the deal's property type, Multifamily when unset.
func (d *DealAssumptions) EffectivePropertyType() PropertyType {
	if d.PropertyType == "" {
		return PropertyTypeMultifamily
	}
	return d.PropertyType
}

// Validate rejects deal facts that no fallback can repair. It never modifies d.
func (d *DealAssumptions) Validate() error {
	if pt := d.EffectivePropertyType(); !pt.IsValid() {
		return NewAssumptionError("property_type", d.PropertyType, "unknown property type")
	}
	if d.UnitCount < 0 {
		return NewAssumptionError("unit_count", d.UnitCount, "must not be negative")
	}
	if d.LicensedBeds < 0 {
		return NewAssumptionError("licensed_beds", d.LicensedBeds, "must not be negative")
	}
	if d.PurchasePrice.IsNegative() {
		return NewAssumptionError("purchase_price", d.PurchasePrice, "must not be negative")
	}
	return nil
}
