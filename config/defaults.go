package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"

	"underwriting/server/internal/models"
)

// Deal-level fallbacks applied when neither the user nor market data supplies a value.
const (
	DefaultLoanLTV           = 65
	DefaultHoldYears         = 5
	DefaultAmortizationYears = 30
	DefaultLoanTermYears     = 5
	DefaultNOIGrowthRate     = 3
)

// PropertyTypeDefaults is one row of the defaults table.
// Occupancy, ManagementFeePct and MaxLTV are percentages; OpExRatio and
// OtherIncomeRatio are fractions; ReservesPerUnit is dollars per unit per year.
type PropertyTypeDefaults struct {
	Occupancy        decimal.Decimal `json:"occupancy"`
	OpExRatio        decimal.Decimal `json:"opex_ratio"`
	OtherIncomeRatio decimal.Decimal `json:"other_income_ratio"`
	ManagementFeePct decimal.Decimal `json:"management_fee_pct"`
	ReservesPerUnit  decimal.Decimal `json:"reserves_per_unit"`
	MinDSCR          decimal.Decimal `json:"min_dscr"`
	MaxLTV           decimal.Decimal `json:"max_ltv"`
}

func row(occupancy, opex, otherIncome, mgmtFee, reserves, minDSCR, maxLTV string) PropertyTypeDefaults {
	return PropertyTypeDefaults{
		Occupancy:        decimal.RequireFromString(occupancy),
		OpExRatio:        decimal.RequireFromString(opex),
		OtherIncomeRatio: decimal.RequireFromString(otherIncome),
		ManagementFeePct: decimal.RequireFromString(mgmtFee),
		ReservesPerUnit:  decimal.RequireFromString(reserves),
		MinDSCR:          decimal.RequireFromString(minDSCR),
		MaxLTV:           decimal.RequireFromString(maxLTV),
	}
}

// DefaultsTable maps property types to their default underwriting parameters.
// It is never mutated after construction and is safe for concurrent reads.
type DefaultsTable struct {
	rows       map[models.PropertyType]PropertyTypeDefaults
	senior     PropertyTypeDefaults
	healthcare PropertyTypeDefaults
}

// NewDefaultsTable returns the compiled-in table.
func NewDefaultsTable() *DefaultsTable {
	return &DefaultsTable{
		rows: map[models.PropertyType]PropertyTypeDefaults{
			models.PropertyTypeMultifamily:       row("95", "0.5435", "0.135", "4", "250", "1.25", "80"),
			models.PropertyTypeBridge:            row("90", "0.55", "0.10", "4", "300", "1.20", "75"),
			models.PropertyTypeHospitality:       row("72", "0.70", "0.20", "3", "1500", "1.40", "65"),
			models.PropertyTypeCommercial:        row("92", "0.40", "0.05", "4", "200", "1.30", "70"),
			models.PropertyTypeLIHTC:             row("97", "0.50", "0.05", "5", "300", "1.20", "80"),
			models.PropertyTypeSkilledNursing:    row("82", "0.75", "0.05", "5", "400", "1.45", "75"),
			models.PropertyTypeAssistedLiving:    row("87", "0.68", "0.05", "5", "350", "1.40", "75"),
			models.PropertyTypeMemoryCare:        row("85", "0.70", "0.05", "5", "350", "1.45", "75"),
			models.PropertyTypeIndependentLiving: row("90", "0.60", "0.05", "5", "300", "1.30", "75"),
			models.PropertyTypeSeniorApartment:   row("94", "0.50", "0.10", "4", "275", "1.30", "75"),
		},
		senior:     row("90", "0.60", "0.05", "5", "300", "1.30", "75"),
		healthcare: row("87", "0.68", "0.05", "5", "350", "1.40", "75"),
	}
}

// Lookup returns the row for pt. Types without their own row fall back to the
// healthcare row, then the senior housing row, then Multifamily.
func (t *DefaultsTable) Lookup(pt models.PropertyType) PropertyTypeDefaults {
	if r, ok := t.rows[pt]; ok {
		return r
	}
	switch {
	case pt.IsHealthcare():
		return t.healthcare
	case pt.IsSeniorHousing():
		return t.senior
	default:
		return t.rows[models.PropertyTypeMultifamily]
	}
}

type rowOverride struct {
	Occupancy        *float64 `yaml:"occupancy"`
	OpExRatio        *float64 `yaml:"opex_ratio"`
	OtherIncomeRatio *float64 `yaml:"other_income_ratio"`
	ManagementFeePct *float64 `yaml:"management_fee_pct"`
	ReservesPerUnit  *float64 `yaml:"reserves_per_unit"`
	MinDSCR          *float64 `yaml:"min_dscr"`
	MaxLTV           *float64 `yaml:"max_ltv"`
}

type defaultsFile struct {
	PropertyTypes map[string]rowOverride `yaml:"property_types"`
	SeniorHousing *rowOverride           `yaml:"senior_housing"`
	Healthcare    *rowOverride           `yaml:"healthcare"`
}

// LoadDefaultsTable returns the compiled-in table with the rows of the YAML file
// at path applied on top. An empty path returns the compiled-in table.
func LoadDefaultsTable(path string) (*DefaultsTable, error) {
	table := NewDefaultsTable()
	if path == "" {
		return table, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read defaults file: %w", err)
	}

	var file defaultsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse defaults file: %w", err)
	}

	for name, override := range file.PropertyTypes {
		pt, err := models.ParsePropertyType(name)
		if err != nil {
			return nil, fmt.Errorf("defaults file: %w", err)
		}
		merged, err := override.apply(table.Lookup(pt))
		if err != nil {
			return nil, fmt.Errorf("defaults file %s: %w", pt, err)
		}
		table.rows[pt] = merged
	}
	if file.SeniorHousing != nil {
		if table.senior, err = file.SeniorHousing.apply(table.senior); err != nil {
			return nil, fmt.Errorf("defaults file senior_housing: %w", err)
		}
	}
	if file.Healthcare != nil {
		if table.healthcare, err = file.Healthcare.apply(table.healthcare); err != nil {
			return nil, fmt.Errorf("defaults file healthcare: %w", err)
		}
	}

	return table, nil
}

func (o rowOverride) apply(base PropertyTypeDefaults) (PropertyTypeDefaults, error) {
	fields := []struct {
		name   string
		value  *float64
		target *decimal.Decimal
	}{
		{"occupancy", o.Occupancy, &base.Occupancy},
		{"opex_ratio", o.OpExRatio, &base.OpExRatio},
		{"other_income_ratio", o.OtherIncomeRatio, &base.OtherIncomeRatio},
		{"management_fee_pct", o.ManagementFeePct, &base.ManagementFeePct},
		{"reserves_per_unit", o.ReservesPerUnit, &base.ReservesPerUnit},
		{"min_dscr", o.MinDSCR, &base.MinDSCR},
		{"max_ltv", o.MaxLTV, &base.MaxLTV},
	}
	for _, f := range fields {
		if f.value == nil {
			continue
		}
		if *f.value < 0 {
			return base, models.NewAssumptionError(f.name, *f.value, "must not be negative")
		}
		*f.target = decimal.NewFromFloat(*f.value)
	}
	return base, nil
}
