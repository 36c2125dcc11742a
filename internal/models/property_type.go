package models

import (
	"fmt"
	"strings"
)

// PropertyType is the asset class a deal is underwritten as.
type PropertyType string

const (
	PropertyTypeMultifamily       PropertyType = "Multifamily"
	PropertyTypeBridge            PropertyType = "Bridge"
	PropertyTypeHospitality       PropertyType = "Hospitality"
	PropertyTypeCommercial        PropertyType = "Commercial"
	PropertyTypeLIHTC             PropertyType = "LIHTC"
	PropertyTypeSkilledNursing    PropertyType = "SkilledNursing"
	PropertyTypeAssistedLiving    PropertyType = "AssistedLiving"
	PropertyTypeMemoryCare        PropertyType = "MemoryCare"
	PropertyTypeCCRC              PropertyType = "CCRC"
	PropertyTypeBoardAndCare      PropertyType = "BoardAndCare"
	PropertyTypeIndependentLiving PropertyType = "IndependentLiving"
	PropertyTypeSeniorApartment   PropertyType = "SeniorApartment"
)

// AllPropertyTypes lists every supported property type in declaration order.
var AllPropertyTypes = []PropertyType{
	PropertyTypeMultifamily,
	PropertyTypeBridge,
	PropertyTypeHospitality,
	PropertyTypeCommercial,
	PropertyTypeLIHTC,
	PropertyTypeSkilledNursing,
	PropertyTypeAssistedLiving,
	PropertyTypeMemoryCare,
	PropertyTypeCCRC,
	PropertyTypeBoardAndCare,
	PropertyTypeIndependentLiving,
	PropertyTypeSeniorApartment,
}

// ParsePropertyType matches a property type name case-insensitively.
// An empty string parses as Multifamily.
func ParsePropertyType(name string) (PropertyType, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return PropertyTypeMultifamily, nil
	}
	for _, pt := range AllPropertyTypes {
		if strings.EqualFold(string(pt), trimmed) {
			return pt, nil
		}
	}
	return "", fmt.Errorf("unknown property type: %s", name)
}

// IsValid reports whether p is one of the supported property types.
func (p PropertyType) IsValid() bool {
	for _, pt := range AllPropertyTypes {
		if pt == p {
			return true
		}
	}
	return false
}

// IsSeniorHousing reports whether p is any senior-living asset class.
func (p PropertyType) IsSeniorHousing() bool {
	switch p {
	case PropertyTypeSkilledNursing,
		PropertyTypeAssistedLiving,
		PropertyTypeMemoryCare,
		PropertyTypeCCRC,
		PropertyTypeBoardAndCare,
		PropertyTypeIndependentLiving,
		PropertyTypeSeniorApartment:
		return true
	default:
		return false
	}
}

// IsHealthcare reports whether p delivers licensed care.
func (p PropertyType) IsHealthcare() bool {
	switch p {
	case PropertyTypeSkilledNursing,
		PropertyTypeAssistedLiving,
		PropertyTypeMemoryCare,
		PropertyTypeCCRC:
		return true
	default:
		return false
	}
}

// CapacityLabel is the noun used for the revenue-producing units of p.
func (p PropertyType) CapacityLabel() string {
	switch {
	case p == PropertyTypeHospitality:
		return "Keys"
	case p.IsHealthcare():
		return "Beds"
	default:
		return "Units"
	}
}
