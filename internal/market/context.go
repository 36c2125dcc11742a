package market

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Provider supplies market intelligence for a location.
type Provider interface {
	Context(ctx context.Context, city, state string) (*Context, error)
}

// Item is a named market fact with its source.
type Item struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	SourceURL   string `json:"source_url,omitempty"`
}

// Comparable is a recent sale near the subject property.
type Comparable struct {
	Name      string           `json:"name"`
	Address   string           `json:"address"`
	SalePrice decimal.Decimal  `json:"sale_price"`
	Units     int              `json:"units"`
	CapRate   *decimal.Decimal `json:"cap_rate,omitempty"`
	SaleDate  *time.Time       `json:"sale_date,omitempty"`
	Latitude  *float64         `json:"latitude,omitempty"`
	Longitude *float64         `json:"longitude,omitempty"`
}

// PricePerUnit is the sale price divided by units, zero without units.
func (c Comparable) PricePerUnit() decimal.Decimal {
	if c.Units <= 0 {
		return decimal.Zero
	}
	return c.SalePrice.Div(decimal.NewFromInt(int64(c.Units))).Round(2)
}

// Context is the market snapshot for one location. Numeric fields are nil when
// the source did not report them.
type Context struct {
	City  string `json:"city"`
	State string `json:"state"`

	MajorEmployers       []Item       `json:"major_employers,omitempty"`
	EconomicDrivers      []Item       `json:"economic_drivers,omitempty"`
	ConstructionPipeline []Item       `json:"construction_pipeline,omitempty"`
	Comparables          []Comparable `json:"comparables,omitempty"`

	CurrentRate       *decimal.Decimal `json:"current_rate,omitempty"`
	MarketCapRate     *decimal.Decimal `json:"market_cap_rate,omitempty"`
	MarketOccupancy   *decimal.Decimal `json:"market_occupancy,omitempty"`
	MarketRentPerUnit *decimal.Decimal `json:"market_rent_per_unit,omitempty"`
	NOIGrowthRate     *decimal.Decimal `json:"noi_growth_rate,omitempty"`

	FetchedAt time.Time `json:"fetched_at"`
}

// IsEmpty reports whether c carries no usable market data.
func (c *Context) IsEmpty() bool {
	if c == nil {
		return true
	}
	return len(c.MajorEmployers) == 0 &&
		len(c.EconomicDrivers) == 0 &&
		len(c.ConstructionPipeline) == 0 &&
		len(c.Comparables) == 0 &&
		c.CurrentRate == nil &&
		c.MarketCapRate == nil &&
		c.MarketOccupancy == nil &&
		c.MarketRentPerUnit == nil &&
		c.NOIGrowthRate == nil
}
