package underwriting

import (
	"github.com/shopspring/decimal"

	"underwriting/server/internal/models"
)

var (
	daysPerYear   = decimal.NewFromInt(365)
	monthsPerYear = decimal.NewFromInt(12)
	hundred       = decimal.NewFromInt(100)
)

// RevenueStrategy computes gross potential revenue for a deal.
type RevenueStrategy interface {
	Name() string
	GrossPotentialRevenue(deal *models.DealAssumptions) decimal.Decimal
	Capacity(deal *models.DealAssumptions) int
}

// BedDayRateStrategy prices licensed beds (or keys) at an average daily rate.
type BedDayRateStrategy struct{}

func (BedDayRateStrategy) Name() string { return "bed_day_rate" }

// Capacity is licensed beds, or units when no bed count was supplied.
func (BedDayRateStrategy) Capacity(deal *models.DealAssumptions) int {
	if deal.LicensedBeds > 0 {
		return deal.LicensedBeds
	}
	return deal.UnitCount
}

func (s BedDayRateStrategy) GrossPotentialRevenue(deal *models.DealAssumptions) decimal.Decimal {
	if deal.AverageDailyRate == nil {
		return decimal.Zero
	}
	beds := decimal.NewFromInt(int64(s.Capacity(deal)))
	return beds.Mul(*deal.AverageDailyRate).Mul(daysPerYear)
}

// UnitRentStrategy prices units at a monthly rent.
type UnitRentStrategy struct{}

func (UnitRentStrategy) Name() string { return "unit_rent" }

func (UnitRentStrategy) Capacity(deal *models.DealAssumptions) int {
	return deal.UnitCount
}

func (UnitRentStrategy) GrossPotentialRevenue(deal *models.DealAssumptions) decimal.Decimal {
	if deal.RentPerUnit == nil {
		return decimal.Zero
	}
	units := decimal.NewFromInt(int64(deal.UnitCount))
	return units.Mul(*deal.RentPerUnit).Mul(monthsPerYear)
}

// SelectRevenueStrategy uses the day-rate path whenever an average daily rate is
// present and the unit-rent path otherwise, whatever the property type.
func SelectRevenueStrategy(deal *models.DealAssumptions) RevenueStrategy {
	if deal.AverageDailyRate != nil {
		return BedDayRateStrategy{}
	}
	return UnitRentStrategy{}
}
