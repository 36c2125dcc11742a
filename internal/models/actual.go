package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	minActualYear = 2000
	maxActualYear = 2100
)

// MonthlyActual is one calendar month of recorded performance for a deal.
// Derived fields are refreshed by Recalculate.
type MonthlyActual struct {
	ID     uuid.UUID `json:"id" gorm:"type:text;primaryKey"`
	DealID uuid.UUID `json:"deal_id" gorm:"type:text;uniqueIndex:idx_actual_period"`
	Year   int       `json:"year" gorm:"uniqueIndex:idx_actual_period"`
	Month  int       `json:"month" gorm:"uniqueIndex:idx_actual_period"`

	GrossRentalIncome    decimal.Decimal `json:"gross_rental_income" gorm:"type:numeric"`
	VacancyLoss          decimal.Decimal `json:"vacancy_loss" gorm:"type:numeric"`
	OtherIncome          decimal.Decimal `json:"other_income" gorm:"type:numeric"`
	EffectiveGrossIncome decimal.Decimal `json:"effective_gross_income" gorm:"type:numeric"`

	PropertyTaxes          decimal.Decimal `json:"property_taxes" gorm:"type:numeric"`
	Insurance              decimal.Decimal `json:"insurance" gorm:"type:numeric"`
	Utilities              decimal.Decimal `json:"utilities" gorm:"type:numeric"`
	Repairs                decimal.Decimal `json:"repairs" gorm:"type:numeric"`
	Management             decimal.Decimal `json:"management" gorm:"type:numeric"`
	Payroll                decimal.Decimal `json:"payroll" gorm:"type:numeric"`
	Marketing              decimal.Decimal `json:"marketing" gorm:"type:numeric"`
	Administrative         decimal.Decimal `json:"administrative" gorm:"type:numeric"`
	OtherExpenses          decimal.Decimal `json:"other_expenses" gorm:"type:numeric"`
	TotalOperatingExpenses decimal.Decimal `json:"total_operating_expenses" gorm:"type:numeric"`

	NetOperatingIncome  decimal.Decimal `json:"net_operating_income" gorm:"type:numeric"`
	DebtService         decimal.Decimal `json:"debt_service" gorm:"type:numeric"`
	CapitalExpenditures decimal.Decimal `json:"capital_expenditures" gorm:"type:numeric"`
	CashFlow            decimal.Decimal `json:"cash_flow" gorm:"type:numeric"`

	OccupiedUnits    int             `json:"occupied_units"`
	TotalUnits       int             `json:"total_units"`
	OccupancyPercent decimal.Decimal `json:"occupancy_percent" gorm:"type:numeric"`

	Notes     string    `json:"notes,omitempty"`
	EnteredAt time.Time `json:"entered_at"`
}

// NewMonthlyActual returns an empty record for the given period.
func NewMonthlyActual(dealID uuid.UUID, year, month int) (*MonthlyActual, error) {
	a := &MonthlyActual{
		ID:        uuid.New(),
		DealID:    dealID,
		Year:      year,
		Month:     month,
		EnteredAt: time.Now().UTC(),
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// Validate checks the period bounds.
func (a *MonthlyActual) Validate() error {
	if a.Month < 1 || a.Month > 12 {
		return NewAssumptionError("month", a.Month, "must be between 1 and 12")
	}
	if a.Year < minActualYear || a.Year > maxActualYear {
		return NewAssumptionError("year", a.Year, "must be between 2000 and 2100")
	}
	if a.OccupiedUnits < 0 || a.TotalUnits < 0 {
		return NewAssumptionError("occupied_units", a.OccupiedUnits, "unit counts must not be negative")
	}
	return nil
}

// Recalculate refreshes the derived totals from the recorded line items.
func (a *MonthlyActual) Recalculate() {
	a.EffectiveGrossIncome = a.GrossRentalIncome.Sub(a.VacancyLoss).Add(a.OtherIncome)
	a.TotalOperatingExpenses = decimal.Sum(
		a.PropertyTaxes,
		a.Insurance,
		a.Utilities,
		a.Repairs,
		a.Management,
		a.Payroll,
		a.Marketing,
		a.Administrative,
		a.OtherExpenses,
	)
	a.NetOperatingIncome = a.EffectiveGrossIncome.Sub(a.TotalOperatingExpenses)
	a.CashFlow = a.NetOperatingIncome.Sub(a.DebtService).Sub(a.CapitalExpenditures)
	if a.TotalUnits > 0 {
		a.OccupancyPercent = decimal.NewFromInt(int64(a.OccupiedUnits)).
			Div(decimal.NewFromInt(int64(a.TotalUnits))).
			Mul(decimal.NewFromInt(100))
	} else {
		a.OccupancyPercent = decimal.Zero
	}
}

// Period returns the first instant of the month the record covers.
func (a *MonthlyActual) Period() time.Time {
	return time.Date(a.Year, time.Month(a.Month), 1, 0, 0, 0, 0, time.UTC)
}
