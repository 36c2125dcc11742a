package underwriting

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"underwriting/server/internal/models"
)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func decPtr(v string) *decimal.Decimal {
	d := dec(v)
	return &d
}

func intRef(v int) *int {
	return &v
}

func assertDecEqual(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got.String())
}

func multifamilyDeal() *models.DealAssumptions {
	return &models.DealAssumptions{
		Name:          "Maple Court",
		PropertyType:  models.PropertyTypeMultifamily,
		UnitCount:     100,
		PurchasePrice: dec("10000000"),
		RentPerUnit:   decPtr("1000"),
		LoanLTV:       decPtr("70"),
		LoanRate:      decPtr("6.5"),
	}
}

func defaultResolver() *Resolver {
	return NewResolver(nil, decimal.NewFromInt(3))
}
