package disposition

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"underwriting/server/internal/models"
	"underwriting/server/internal/underwriting"
)

// DealReader loads deal assumptions.
type DealReader interface {
	GetDeal(ctx context.Context, id uuid.UUID) (*models.DealAssumptions, error)
}

// ActualsReader loads the monthly actuals of a deal.
type ActualsReader interface {
	GetTrailingTwelve(ctx context.Context, dealID uuid.UUID, asOf time.Time) ([]models.MonthlyActual, error)
}

// AnalysisStore persists the per-deal valuation snapshot.
type AnalysisStore interface {
	GetDisposition(ctx context.Context, dealID uuid.UUID) (*models.DispositionAnalysis, error)
	SaveDisposition(ctx context.Context, analysis *models.DispositionAnalysis) error
}

// Service loads a deal and its actuals and runs disposition scenarios against them.
type Service struct {
	deals      DealReader
	actuals    ActualsReader
	analyses   AnalysisStore
	calculator *underwriting.Calculator
	sellCost   decimal.Decimal
	now        func() time.Time
}

// NewService wires the service to its stores. sellCostPercent is the default
// selling cost for sell scenarios.
func NewService(deals DealReader, actuals ActualsReader, analyses AnalysisStore, calculator *underwriting.Calculator, sellCostPercent decimal.Decimal) *Service {
	return &Service{
		deals:      deals,
		actuals:    actuals,
		analyses:   analyses,
		calculator: calculator,
		sellCost:   sellCostPercent,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Analyze creates or refreshes the valuation snapshot of a deal from its trailing
// twelve months. Nil inputs keep the values of an existing snapshot.
func (s *Service) Analyze(ctx context.Context, dealID uuid.UUID, bov, marketCapRate *decimal.Decimal) (*models.DispositionAnalysis, error) {
	if bov != nil && bov.IsNegative() {
		return nil, models.NewAssumptionError("broker_opinion_of_value", *bov, "must not be negative")
	}
	if marketCapRate != nil && marketCapRate.IsNegative() {
		return nil, models.NewAssumptionError("current_market_cap_rate", *marketCapRate, "must not be negative")
	}
	if _, err := s.deals.GetDeal(ctx, dealID); err != nil {
		return nil, err
	}

	actuals, err := s.actuals.GetTrailingTwelve(ctx, dealID, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to load trailing actuals: %w", err)
	}
	t12NOI := AnnualizedNOI(actuals)

	analysis, err := s.analyses.GetDisposition(ctx, dealID)
	switch {
	case errors.Is(err, models.ErrDataUnavailable):
		analysis = models.NewDispositionAnalysis(dealID, bov, marketCapRate, t12NOI)
	case err != nil:
		return nil, err
	default:
		if bov != nil {
			analysis.BrokerOpinionOfValue = bov
		}
		if marketCapRate != nil {
			analysis.CurrentMarketCapRate = marketCapRate
		}
		analysis.TrailingTwelveNOI = t12NOI
		analysis.RecalculateImpliedValue()
		analysis.AnalyzedAt = s.now()
	}

	if err := s.analyses.SaveDisposition(ctx, analysis); err != nil {
		return nil, fmt.Errorf("failed to save disposition analysis: %w", err)
	}
	return analysis, nil
}

// Engine builds the scenario engine for the current position of a deal, marked
// to its valuation snapshot when one exists.
func (s *Service) Engine(ctx context.Context, dealID uuid.UUID) (*Engine, *models.DispositionAnalysis, error) {
	deal, err := s.deals.GetDeal(ctx, dealID)
	if err != nil {
		return nil, nil, err
	}
	calc, err := s.calculator.Calculate(deal, underwriting.MarketInputs{})
	if err != nil {
		return nil, nil, err
	}
	now := s.now()
	actuals, err := s.actuals.GetTrailingTwelve(ctx, dealID, now)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load trailing actuals: %w", err)
	}

	position := NewPosition(deal, calc, actuals, now)
	analysis, err := s.analyses.GetDisposition(ctx, dealID)
	switch {
	case errors.Is(err, models.ErrDataUnavailable):
		analysis = nil
	case err != nil:
		return nil, nil, err
	}
	position.ApplyAnalysis(analysis)
	return NewEngine(position, s.sellCost), analysis, nil
}

// Hold runs a hold scenario for a deal.
func (s *Service) Hold(ctx context.Context, dealID uuid.UUID, additionalYears int, growth decimal.Decimal) (*models.HoldScenario, error) {
	engine, _, err := s.Engine(ctx, dealID)
	if err != nil {
		return nil, err
	}
	return engine.Hold(additionalYears, growth)
}

// Sell runs a sell scenario. A nil salePrice uses the broker opinion or implied
// value of the snapshot; without either there is nothing to price against and
// ErrDataUnavailable is returned.
func (s *Service) Sell(ctx context.Context, dealID uuid.UUID, salePrice, sellCostPercent *decimal.Decimal) (*models.SellScenario, error) {
	engine, analysis, err := s.Engine(ctx, dealID)
	if err != nil {
		return nil, err
	}
	if salePrice != nil {
		return engine.Sell(*salePrice, sellCostPercent)
	}

	price := decimal.Zero
	switch {
	case analysis != nil && analysis.BrokerOpinionOfValue != nil && analysis.BrokerOpinionOfValue.IsPositive():
		price = *analysis.BrokerOpinionOfValue
	case analysis != nil:
		price = analysis.ImpliedValue
	}
	if !price.IsPositive() {
		return nil, fmt.Errorf("no valuation for deal %s: %w", dealID, models.ErrDataUnavailable)
	}
	return engine.Sell(price, sellCostPercent)
}

// Refinance runs an interest-only refinance quote for a deal.
func (s *Service) Refinance(ctx context.Context, dealID uuid.UUID, newLoanAmount, newRate decimal.Decimal) (*models.RefinanceScenario, error) {
	engine, _, err := s.Engine(ctx, dealID)
	if err != nil {
		return nil, err
	}
	return engine.Refinance(newLoanAmount, newRate)
}
