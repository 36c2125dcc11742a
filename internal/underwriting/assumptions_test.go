package underwriting

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"underwriting/server/internal/models"
)

func TestResolver_Resolve(t *testing.T) {
	r := defaultResolver()

	tests := []struct {
		name           string
		param          Parameter
		user           *decimal.Decimal
		market         *decimal.Decimal
		propertyType   models.PropertyType
		wantValue      string
		wantProvenance models.Provenance
	}{
		{
			name:           "user wins over market",
			param:          ParamOccupancy,
			user:           decPtr("91"),
			market:         decPtr("96"),
			propertyType:   models.PropertyTypeMultifamily,
			wantValue:      "91",
			wantProvenance: models.ProvenanceUserInput,
		},
		{
			name:           "user zero is still user input",
			param:          ParamOtherIncomeRatio,
			user:           decPtr("0"),
			market:         decPtr("0.2"),
			propertyType:   models.PropertyTypeMultifamily,
			wantValue:      "0",
			wantProvenance: models.ProvenanceUserInput,
		},
		{
			name:           "market when user absent",
			param:          ParamOpExRatio,
			market:         decPtr("0.48"),
			propertyType:   models.PropertyTypeMultifamily,
			wantValue:      "0.48",
			wantProvenance: models.ProvenanceMarketData,
		},
		{
			name:           "property type default",
			param:          ParamOccupancy,
			propertyType:   models.PropertyTypeAssistedLiving,
			wantValue:      "87",
			wantProvenance: models.ProvenanceProtocolDefault,
		},
		{
			name:           "skilled nursing opex default",
			param:          ParamOpExRatio,
			propertyType:   models.PropertyTypeSkilledNursing,
			wantValue:      "0.75",
			wantProvenance: models.ProvenanceProtocolDefault,
		},
		{
			name:           "multifamily reserves default",
			param:          ParamReservesPerUnit,
			propertyType:   models.PropertyTypeMultifamily,
			wantValue:      "250",
			wantProvenance: models.ProvenanceProtocolDefault,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(tt.param, tt.user, tt.market, tt.propertyType)
			require.NoError(t, err)
			assert.Equal(t, tt.param, got.Parameter)
			assert.Equal(t, tt.wantProvenance, got.Provenance)
			assertDecEqual(t, tt.wantValue, got.Value)
		})
	}
}

func TestResolver_UserPrecedenceForEveryParameter(t *testing.T) {
	r := defaultResolver()
	params := []Parameter{
		ParamOccupancy, ParamOpExRatio, ParamOtherIncomeRatio, ParamManagementFeePct,
		ParamReservesPerUnit, ParamMinDSCR, ParamMaxLTV,
	}

	for _, p := range params {
		for _, pt := range models.AllPropertyTypes {
			got, err := r.Resolve(p, decPtr("1.11"), decPtr("2.22"), pt)
			require.NoError(t, err)
			assert.Equal(t, models.ProvenanceUserInput, got.Provenance, "%s/%s", p, pt)
			assertDecEqual(t, "1.11", got.Value)
		}
	}
}

func TestResolver_RejectsNegative(t *testing.T) {
	r := defaultResolver()

	_, err := r.Resolve(ParamOpExRatio, decPtr("-0.1"), nil, models.PropertyTypeMultifamily)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInvalidAssumption)

	var ae *models.AssumptionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "opex_ratio", ae.Field)
}

func TestResolver_UnknownParameterPanics(t *testing.T) {
	r := defaultResolver()
	assert.Panics(t, func() {
		_, _ = r.Resolve(Parameter("cap_rate_typo"), nil, nil, models.PropertyTypeMultifamily)
	})
}

func TestResolver_ResolveAll(t *testing.T) {
	r := defaultResolver()
	deal := multifamilyDeal()
	deal.HoldYears = intRef(7)

	set, err := r.ResolveAll(deal, MarketInputs{LoanRate: decPtr("5.9"), Occupancy: decPtr("93")})
	require.NoError(t, err)

	assert.Equal(t, models.ProvenanceMarketData, set.Occupancy.Provenance)
	assertDecEqual(t, "93", set.Occupancy.Value)
	assert.Equal(t, models.ProvenanceUserInput, set.LoanRate.Provenance)
	assertDecEqual(t, "6.5", set.LoanRate.Value)
	assert.Equal(t, 7, set.HoldYears.Int())
	assert.Equal(t, models.ProvenanceUserInput, set.HoldYears.Provenance)
	assert.Equal(t, 30, set.AmortizationYears.Int())
	assert.Equal(t, models.ProvenanceProtocolDefault, set.AmortizationYears.Provenance)
	assertDecEqual(t, "3", set.NOIGrowthRate.Value)
	assert.Len(t, set.All(), 13)
}

func TestResolver_ResolveAllDefaults(t *testing.T) {
	r := defaultResolver()
	deal := &models.DealAssumptions{PropertyType: models.PropertyTypeMultifamily, UnitCount: 10}

	set, err := r.ResolveAll(deal, MarketInputs{})
	require.NoError(t, err)

	assertDecEqual(t, "65", set.LoanLTV.Value)
	assertDecEqual(t, "0", set.LoanRate.Value)
	assert.Equal(t, models.ProvenanceProtocolDefault, set.LoanRate.Provenance)
	assert.Equal(t, 5, set.HoldYears.Int())
	assert.Equal(t, 5, set.LoanTermYears.Int())
}

func TestResolver_ResolveAllIsIdempotent(t *testing.T) {
	r := defaultResolver()
	deal := multifamilyDeal()
	deal.DetailedExpenses = &models.DetailedExpenses{ManagementFeePercent: decPtr("3.5")}
	market := MarketInputs{OpExRatio: decPtr("0.5"), NOIGrowthRate: decPtr("2.5")}

	first, err := r.ResolveAll(deal, market)
	require.NoError(t, err)
	second, err := r.ResolveAll(deal, market)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, models.ProvenanceUserInput, first.ManagementFeePct.Provenance)
}

func TestResolver_ResolveAllErrors(t *testing.T) {
	r := defaultResolver()

	tests := []struct {
		name   string
		mutate func(d *models.DealAssumptions)
		field  string
	}{
		{name: "occupancy over 100", mutate: func(d *models.DealAssumptions) { d.TargetOccupancy = decPtr("101") }, field: "occupancy"},
		{name: "negative other income", mutate: func(d *models.DealAssumptions) { d.OtherIncomeRatio = decPtr("-0.01") }, field: "other_income_ratio"},
		{name: "zero hold years", mutate: func(d *models.DealAssumptions) { d.HoldYears = intRef(0) }, field: "hold_years"},
		{name: "hold years over cap", mutate: func(d *models.DealAssumptions) { d.HoldYears = intRef(MaxHoldYears + 1) }, field: "hold_years"},
		{name: "negative rate", mutate: func(d *models.DealAssumptions) { d.LoanRate = decPtr("-1") }, field: "loan_rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deal := multifamilyDeal()
			tt.mutate(deal)
			_, err := r.ResolveAll(deal, MarketInputs{})
			var ae *models.AssumptionError
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, tt.field, ae.Field)
		})
	}
}
