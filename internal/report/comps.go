package report

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"
	"github.com/shopspring/decimal"

	"underwriting/server/internal/geometry"
	"underwriting/server/internal/market"
	"underwriting/server/internal/models"
)

const metersPerMile = 1609.344

func point(lat, lon *float64) (orb.Point, bool) {
	if lat == nil || lon == nil {
		return orb.Point{}, false
	}
	return orb.Point{*lon, *lat}, true
}

// DistanceMiles is the great-circle distance between two coordinates, or nil
// when either side is missing.
func DistanceMiles(fromLat, fromLon, toLat, toLon *float64) *decimal.Decimal {
	from, ok := point(fromLat, fromLon)
	if !ok {
		return nil
	}
	to, ok := point(toLat, toLon)
	if !ok {
		return nil
	}
	miles := decimal.NewFromFloat(geo.Distance(from, to) / metersPerMile).Round(2)
	return &miles
}

// CompRows converts market comparables into report rows.
func CompRows(deal *models.DealAssumptions, comps []market.Comparable) []models.SalesCompRow {
	rows := make([]models.SalesCompRow, 0, len(comps))
	for _, c := range comps {
		row := models.SalesCompRow{
			Name:          c.Name,
			Address:       c.Address,
			SalePrice:     c.SalePrice,
			Units:         c.Units,
			PricePerUnit:  c.PricePerUnit(),
			DistanceMiles: DistanceMiles(deal.Latitude, deal.Longitude, c.Latitude, c.Longitude),
			Provenance:    models.ProvenanceMarketData,
		}
		if c.CapRate != nil {
			row.CapRate = *c.CapRate
		}
		if c.SaleDate != nil {
			row.SaleDate = *c.SaleDate
		}
		rows = append(rows, row)
	}
	return rows
}

// CompMap builds a GeoJSON collection with the subject, every located comparable
// and the footprint of the comp set. It returns nil when nothing is located.
func CompMap(deal *models.DealAssumptions, comps []market.Comparable) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	var located orb.MultiPoint

	if subject, ok := point(deal.Latitude, deal.Longitude); ok {
		feature := geojson.NewFeature(subject)
		feature.Properties = geojson.Properties{
			"role": "subject",
			"name": deal.Name,
		}
		fc.Append(feature)
		located = append(located, subject)
	}

	for _, c := range comps {
		p, ok := point(c.Latitude, c.Longitude)
		if !ok {
			continue
		}
		feature := geojson.NewFeature(p)
		feature.Properties = geojson.Properties{
			"role":       "comparable",
			"name":       c.Name,
			"sale_price": c.SalePrice.InexactFloat64(),
			"units":      c.Units,
		}
		fc.Append(feature)
		located = append(located, p)
	}

	if len(located) == 0 {
		return nil
	}
	if area := geometry.Footprint(located); area != nil {
		feature := geojson.NewFeature(area)
		feature.Properties = geojson.Properties{"role": "comp_area"}
		fc.Append(feature)
	}
	return fc
}

// averagePricePerUnit is the mean price per unit over comps with units.
func averagePricePerUnit(comps []market.Comparable) decimal.Decimal {
	total := decimal.Zero
	n := 0
	for _, c := range comps {
		if c.Units > 0 {
			total = total.Add(c.PricePerUnit())
			n++
		}
	}
	if n == 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(int64(n))).Round(2)
}
