package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"underwriting/server/internal/actuals"
	"underwriting/server/internal/market"
	"underwriting/server/internal/models"
	"underwriting/server/internal/underwriting"
)

// Assembler runs the underwriting pipeline for a deal and lays the results out
// as a ten-section report.
type Assembler struct {
	calculator *underwriting.Calculator
	markets    market.Provider
	narrative  NarrativeGenerator
	cache      *market.Cache
	logger     *logrus.Logger
	now        func() time.Time
}

// NewAssembler creates an assembler. markets, narrative and cache are optional.
func NewAssembler(calculator *underwriting.Calculator, markets market.Provider, narrative NarrativeGenerator, cache *market.Cache, logger *logrus.Logger) *Assembler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	if calculator == nil {
		calculator = underwriting.NewCalculator(nil, underwriting.DefaultSettings())
	}
	return &Assembler{
		calculator: calculator,
		markets:    markets,
		narrative:  narrative,
		cache:      cache,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// MarketInputs extracts the values a market context can contribute to resolution.
func MarketInputs(mkt *market.Context) underwriting.MarketInputs {
	if mkt == nil {
		return underwriting.MarketInputs{}
	}
	return underwriting.MarketInputs{
		Occupancy:     mkt.MarketOccupancy,
		LoanRate:      mkt.CurrentRate,
		NOIGrowthRate: mkt.NOIGrowthRate,
		CapRate:       mkt.MarketCapRate,
	}
}

func cacheKey(deal *models.DealAssumptions) string {
	if deal.ID != uuid.Nil {
		return deal.ID.String()
	}
	return strings.ToLower(deal.City + "|" + deal.State)
}

// marketContext fetches the market context for deal. Every failure degrades to nil.
func (a *Assembler) marketContext(ctx context.Context, deal *models.DealAssumptions) *market.Context {
	if a.markets == nil || deal.City == "" {
		return nil
	}
	fetch := func(ctx context.Context) (*market.Context, error) {
		return a.markets.Context(ctx, deal.City, deal.State)
	}

	var (
		mkt *market.Context
		err error
	)
	if a.cache != nil {
		mkt, err = a.cache.GetOrFetch(ctx, cacheKey(deal), fetch)
	} else {
		mkt, err = fetch(ctx)
	}
	if err != nil {
		a.logger.WithError(err).WithFields(logrus.Fields{
			"deal_id": deal.ID,
			"city":    deal.City,
			"state":   deal.State,
		}).Warn("Market context unavailable, falling back to defaults")
		return nil
	}
	if mkt.IsEmpty() {
		return nil
	}
	return mkt
}

// narrate asks the generator for a section, falling back to its placeholder.
func (a *Assembler) narrate(ctx context.Context, section Section, input NarrativeInput) (string, bool) {
	if a.narrative == nil {
		return Placeholders[section], false
	}
	text, err := a.narrative.GenerateSection(ctx, section, input)
	if err != nil {
		a.logger.WithError(err).WithField("section", section).Warn("Narrative generation failed, using placeholder")
		return Placeholders[section], false
	}
	if strings.TrimSpace(text) == "" {
		return Placeholders[section], false
	}
	return text, true
}

// narrateWithFallback prefers generated prose, then a market-derived summary,
// then the placeholder.
func (a *Assembler) narrateWithFallback(ctx context.Context, section Section, input NarrativeInput, summary string) (string, models.Provenance) {
	if text, ok := a.narrate(ctx, section, input); ok {
		return text, models.ProvenanceCalculated
	}
	if summary != "" {
		return summary, models.ProvenanceMarketData
	}
	return Placeholders[section], models.ProvenanceProtocolDefault
}

// Assemble underwrites deal and builds its report. Assumption errors are returned;
// missing market data or narrative only degrades the prose sections.
func (a *Assembler) Assemble(ctx context.Context, deal *models.DealAssumptions, monthly []models.MonthlyActual) (*models.Report, error) {
	if deal == nil {
		return nil, fmt.Errorf("deal: %w", models.ErrDataUnavailable)
	}

	mkt := a.marketContext(ctx, deal)
	calc, err := a.calculator.Calculate(deal, MarketInputs(mkt))
	if err != nil {
		return nil, err
	}

	variance, err := actuals.BuildReport(calc, monthly)
	if err != nil {
		return nil, err
	}

	risks := IdentifyRisks(deal, calc, mkt)
	decision := Decide(calc, risks)
	input := NarrativeInput{Deal: deal, Calculation: calc, Market: mkt, Decision: decision, Risks: risks}

	report := &models.Report{
		DealID:            deal.ID,
		PropertyName:      deal.Name,
		Address:           formatAddress(deal),
		PropertyType:      deal.EffectivePropertyType(),
		GeneratedAt:       a.now(),
		CoreMetrics:       buildCoreMetrics(deal, calc),
		Assumptions:       buildAssumptions(deal, calc),
		Operations:        buildOperations(deal, calc),
		FinancialAnalysis: buildFinancialAnalysis(calc),
		Variance:          variance,
	}

	summary, summaryOK := a.narrate(ctx, SectionExecutiveSummary, input)
	report.ExecutiveSummary = models.ExecutiveSummarySection{
		SectionHeader: header(2),
		Decision:      decision,
		Narrative:     summary,
		Provenance:    provenanceOf(summaryOK),
		KeyHighlights: keyHighlights(calc),
		KeyRisks:      riskSummaries(risks),
	}

	report.PropertyComps = models.PropertyCompsSection{SectionHeader: header(4)}
	compsFallback := ""
	if mkt != nil && len(mkt.Comparables) > 0 {
		report.PropertyComps.Comps = CompRows(deal, mkt.Comparables)
		report.PropertyComps.Map = CompMap(deal, mkt.Comparables)
		compsFallback = compsSummary(deal, calc, mkt.Comparables)
	}
	report.PropertyComps.Narrative, report.PropertyComps.Provenance =
		a.narrateWithFallback(ctx, SectionPropertyComps, input, compsFallback)

	report.TenantMarket = buildTenantMarketData(deal, calc, mkt)
	marketFallback := ""
	if mkt != nil {
		marketFallback = marketSummary(deal, mkt)
	}
	report.TenantMarket.Narrative, report.TenantMarket.Provenance =
		a.narrateWithFallback(ctx, SectionTenantMarket, input, marketFallback)

	valueNarrative, valueOK := a.narrate(ctx, SectionValueCreation, input)
	report.ValueCreation = models.ValueCreationSection{
		SectionHeader: header(8),
		Narrative:     valueNarrative,
		Provenance:    provenanceOf(valueOK),
		Strategies:    valueAddStrategies(deal, calc, mkt),
	}

	riskNarrative, riskOK := a.narrate(ctx, SectionRiskAssessment, input)
	report.RiskAssessment = models.RiskAssessmentSection{
		SectionHeader: header(9),
		Narrative:     riskNarrative,
		Provenance:    provenanceOf(riskOK),
		Risks:         risks,
	}

	thesis, thesisOK := a.narrate(ctx, SectionInvestmentThesis, input)
	report.InvestmentDecision = models.InvestmentDecisionSection{
		SectionHeader:    header(10),
		Decision:         decision,
		InvestmentThesis: thesis,
		Provenance:       provenanceOf(thesisOK),
		Conditions:       conditions(risks),
		NextSteps:        nextSteps(decision),
	}

	a.logger.WithFields(logrus.Fields{
		"deal_id":  deal.ID,
		"decision": decision,
		"market":   mkt != nil,
		"actuals":  len(monthly),
	}).Info("Assembled underwriting report")
	return report, nil
}

func provenanceOf(generated bool) models.Provenance {
	if generated {
		return models.ProvenanceCalculated
	}
	return models.ProvenanceProtocolDefault
}

func formatAddress(deal *models.DealAssumptions) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{deal.Address, deal.City, deal.State} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, strings.TrimSpace(p))
		}
	}
	return strings.Join(parts, ", ")
}
