package report

import (
	"context"

	"underwriting/server/internal/market"
	"underwriting/server/internal/models"
	"underwriting/server/internal/underwriting"
)

// Section names a narrative block of the report.
type Section string

const (
	SectionExecutiveSummary Section = "executive_summary"
	SectionPropertyComps    Section = "property_comps"
	SectionTenantMarket     Section = "tenant_market"
	SectionValueCreation    Section = "value_creation"
	SectionRiskAssessment   Section = "risk_assessment"
	SectionInvestmentThesis Section = "investment_thesis"
)

// Placeholders stand in for narrative that could not be generated.
var Placeholders = map[Section]string{
	SectionExecutiveSummary: "[AI-generated executive summary pending]",
	SectionPropertyComps:    "[AI-generated comparables analysis pending]",
	SectionTenantMarket:     "[AI-generated market intelligence pending]",
	SectionValueCreation:    "[AI-generated value creation strategy pending]",
	SectionRiskAssessment:   "[AI-generated risk narrative pending]",
	SectionInvestmentThesis: "[AI-generated investment thesis pending]",
}

// NarrativeInput is what a generator sees when writing a section.
type NarrativeInput struct {
	Deal        *models.DealAssumptions
	Calculation *underwriting.CalculationResult
	Market      *market.Context
	Decision    models.InvestmentDecision
	Risks       []models.RiskItem
}

// NarrativeGenerator writes prose for a report section. It is optional; errors
// and empty text degrade to placeholders.
type NarrativeGenerator interface {
	GenerateSection(ctx context.Context, section Section, input NarrativeInput) (string, error)
}
