package underwriting

import (
	"fmt"

	"github.com/shopspring/decimal"

	"underwriting/server/config"
	"underwriting/server/internal/models"
)

// Parameter names an underwriting input that is resolved with fallback precedence.
type Parameter string

const (
	ParamOccupancy        Parameter = "occupancy"
	ParamOpExRatio        Parameter = "opex_ratio"
	ParamOtherIncomeRatio Parameter = "other_income_ratio"
	ParamManagementFeePct Parameter = "management_fee_pct"
	ParamReservesPerUnit  Parameter = "reserves_per_unit"
	ParamMinDSCR          Parameter = "min_dscr"
	ParamMaxLTV           Parameter = "max_ltv"

	ParamLoanLTV           Parameter = "loan_ltv"
	ParamLoanRate          Parameter = "loan_rate"
	ParamAmortizationYears Parameter = "amortization_years"
	ParamLoanTermYears     Parameter = "loan_term_years"
	ParamHoldYears         Parameter = "hold_years"
	ParamNOIGrowthRate     Parameter = "noi_growth_rate"
	ParamExitCapRate       Parameter = "exit_cap_rate"
)

// ResolvedAssumption is a parameter value tagged with the source it came from.
type ResolvedAssumption struct {
	Parameter  Parameter         `json:"parameter"`
	Value      decimal.Decimal   `json:"value"`
	Provenance models.Provenance `json:"provenance"`
}

// Int returns the value truncated to an int.
func (a ResolvedAssumption) Int() int {
	return int(a.Value.IntPart())
}

// MarketInputs carries the values a market data feed can contribute.
// Nil fields are unavailable.
type MarketInputs struct {
	Occupancy        *decimal.Decimal
	OpExRatio        *decimal.Decimal
	OtherIncomeRatio *decimal.Decimal
	ManagementFeePct *decimal.Decimal
	ReservesPerUnit  *decimal.Decimal
	MinDSCR          *decimal.Decimal
	MaxLTV           *decimal.Decimal
	LoanRate         *decimal.Decimal
	NOIGrowthRate    *decimal.Decimal
	CapRate          *decimal.Decimal
}

// ResolvedSet is every resolved input one calculation needs.
type ResolvedSet struct {
	Occupancy        ResolvedAssumption
	OpExRatio        ResolvedAssumption
	OtherIncomeRatio ResolvedAssumption
	ManagementFeePct ResolvedAssumption
	ReservesPerUnit  ResolvedAssumption
	MinDSCR          ResolvedAssumption
	MaxLTV           ResolvedAssumption

	LoanLTV           ResolvedAssumption
	LoanRate          ResolvedAssumption
	AmortizationYears ResolvedAssumption
	LoanTermYears     ResolvedAssumption
	HoldYears         ResolvedAssumption
	NOIGrowthRate     ResolvedAssumption
}

// All lists the set in display order.
func (s ResolvedSet) All() []ResolvedAssumption {
	return []ResolvedAssumption{
		s.Occupancy,
		s.OpExRatio,
		s.OtherIncomeRatio,
		s.ManagementFeePct,
		s.ReservesPerUnit,
		s.MinDSCR,
		s.MaxLTV,
		s.LoanLTV,
		s.LoanRate,
		s.AmortizationYears,
		s.LoanTermYears,
		s.HoldYears,
		s.NOIGrowthRate,
	}
}

// Resolver picks each parameter from user input, then market data, then the
// property type defaults table.
type Resolver struct {
	defaults  *config.DefaultsTable
	noiGrowth decimal.Decimal
}

// NewResolver creates a resolver over defaults. A nil table uses the compiled-in one.
func NewResolver(defaults *config.DefaultsTable, noiGrowthRate decimal.Decimal) *Resolver {
	if defaults == nil {
		defaults = config.NewDefaultsTable()
	}
	return &Resolver{
		defaults:  defaults,
		noiGrowth: noiGrowthRate,
	}
}

// Defaults returns the table row used for pt.
func (r *Resolver) Defaults(pt models.PropertyType) config.PropertyTypeDefaults {
	return r.defaults.Lookup(pt)
}

// Resolve applies UserInput > MarketData > ProtocolDefault precedence to one
// table-backed parameter. It panics on a parameter the defaults table does not hold.
func (r *Resolver) Resolve(p Parameter, user, market *decimal.Decimal, pt models.PropertyType) (ResolvedAssumption, error) {
	fallback := tableValue(p, r.defaults.Lookup(pt))
	return pick(p, user, market, fallback)
}

func tableValue(p Parameter, row config.PropertyTypeDefaults) decimal.Decimal {
	switch p {
	case ParamOccupancy:
		return row.Occupancy
	case ParamOpExRatio:
		return row.OpExRatio
	case ParamOtherIncomeRatio:
		return row.OtherIncomeRatio
	case ParamManagementFeePct:
		return row.ManagementFeePct
	case ParamReservesPerUnit:
		return row.ReservesPerUnit
	case ParamMinDSCR:
		return row.MinDSCR
	case ParamMaxLTV:
		return row.MaxLTV
	default:
		panic(fmt.Sprintf("underwriting: parameter %q has no defaults table entry", p))
	}
}

func pick(p Parameter, user, market *decimal.Decimal, fallback decimal.Decimal) (ResolvedAssumption, error) {
	resolved := ResolvedAssumption{Parameter: p, Value: fallback, Provenance: models.ProvenanceProtocolDefault}
	switch {
	case user != nil:
		resolved.Value = *user
		resolved.Provenance = models.ProvenanceUserInput
	case market != nil:
		resolved.Value = *market
		resolved.Provenance = models.ProvenanceMarketData
	}
	if resolved.Value.IsNegative() {
		return resolved, models.NewAssumptionError(string(p), resolved.Value, "must not be negative")
	}
	return resolved, nil
}

func intPtr(v *int) *decimal.Decimal {
	if v == nil {
		return nil
	}
	d := decimal.NewFromInt(int64(*v))
	return &d
}

// ResolveAll resolves every parameter for deal. The result depends only on its
// inputs, so resolving the same deal twice yields identical sets.
func (r *Resolver) ResolveAll(deal *models.DealAssumptions, market MarketInputs) (ResolvedSet, error) {
	var (
		set ResolvedSet
		err error
	)
	pt := deal.EffectivePropertyType()

	var userMgmtPct *decimal.Decimal
	if deal.DetailedExpenses != nil {
		userMgmtPct = deal.DetailedExpenses.ManagementFeePercent
	}

	tableBacked := []struct {
		param  Parameter
		user   *decimal.Decimal
		market *decimal.Decimal
		target *ResolvedAssumption
	}{
		{ParamOccupancy, deal.TargetOccupancy, market.Occupancy, &set.Occupancy},
		{ParamOpExRatio, deal.OpExRatio, market.OpExRatio, &set.OpExRatio},
		{ParamOtherIncomeRatio, deal.OtherIncomeRatio, market.OtherIncomeRatio, &set.OtherIncomeRatio},
		{ParamManagementFeePct, userMgmtPct, market.ManagementFeePct, &set.ManagementFeePct},
		{ParamReservesPerUnit, deal.ReservesPerUnit, market.ReservesPerUnit, &set.ReservesPerUnit},
		{ParamMinDSCR, deal.MinDSCR, market.MinDSCR, &set.MinDSCR},
		{ParamMaxLTV, deal.MaxLTV, market.MaxLTV, &set.MaxLTV},
	}
	for _, tb := range tableBacked {
		if *tb.target, err = r.Resolve(tb.param, tb.user, tb.market, pt); err != nil {
			return ResolvedSet{}, err
		}
	}
	if set.Occupancy.Value.GreaterThan(decimal.NewFromInt(100)) {
		return ResolvedSet{}, models.NewAssumptionError(string(ParamOccupancy), set.Occupancy.Value, "must not exceed 100")
	}

	protocol := []struct {
		param    Parameter
		user     *decimal.Decimal
		market   *decimal.Decimal
		fallback decimal.Decimal
		target   *ResolvedAssumption
	}{
		{ParamLoanLTV, deal.LoanLTV, nil, decimal.NewFromInt(config.DefaultLoanLTV), &set.LoanLTV},
		{ParamLoanRate, deal.LoanRate, market.LoanRate, decimal.Zero, &set.LoanRate},
		{ParamAmortizationYears, intPtr(deal.AmortizationYears), nil, decimal.NewFromInt(config.DefaultAmortizationYears), &set.AmortizationYears},
		{ParamLoanTermYears, intPtr(deal.LoanTermYears), nil, decimal.NewFromInt(config.DefaultLoanTermYears), &set.LoanTermYears},
		{ParamHoldYears, intPtr(deal.HoldYears), nil, decimal.NewFromInt(config.DefaultHoldYears), &set.HoldYears},
		{ParamNOIGrowthRate, deal.NOIGrowthRate, market.NOIGrowthRate, r.noiGrowth, &set.NOIGrowthRate},
	}
	for _, p := range protocol {
		if *p.target, err = pick(p.param, p.user, p.market, p.fallback); err != nil {
			return ResolvedSet{}, err
		}
	}
	if set.HoldYears.Int() < 1 {
		return ResolvedSet{}, models.NewAssumptionError(string(ParamHoldYears), set.HoldYears.Value, "must be at least 1")
	}
	if set.HoldYears.Int() > MaxHoldYears {
		return ResolvedSet{}, models.NewAssumptionError(string(ParamHoldYears), set.HoldYears.Value, fmt.Sprintf("must be at most %d", MaxHoldYears))
	}

	return set, nil
}
