package models

// Provenance records where a reported figure came from.
type Provenance string

const (
	ProvenanceUserInput       Provenance = "UserInput"
	ProvenanceMarketData      Provenance = "MarketData"
	ProvenanceProtocolDefault Provenance = "ProtocolDefault"
	ProvenanceCalculated      Provenance = "Calculated"
)
