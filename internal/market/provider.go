package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"underwriting/server/internal/models"
)

// HTTPProvider fetches market contexts as JSON from a market data service.
type HTTPProvider struct {
	logger  *logrus.Logger
	baseURL string
	client  *http.Client
}

// NewHTTPProvider creates a provider for the service at baseURL.
func NewHTTPProvider(logger *logrus.Logger, baseURL string) *HTTPProvider {
	return &HTTPProvider{
		logger:  logger,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Context requests the market context for city and state. A 404 from the service
// is reported as ErrDataUnavailable.
func (p *HTTPProvider) Context(ctx context.Context, city, state string) (*Context, error) {
	params := url.Values{
		"city":  []string{city},
		"state": []string{state},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.URL.RawQuery = params.Encode()
	req.Header.Set("User-Agent", "Underwriting Engine/1.0")
	req.Header.Set("Accept", "application/json")

	location := fmt.Sprintf("%s, %s", city, state)
	p.logger.WithField("location", location).Info("Fetching market context")

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.WithError(err).WithField("location", location).Error("Market data request failed")
		return nil, fmt.Errorf("market data request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("market context for %s: %w", location, models.ErrDataUnavailable)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("market data service returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var result Context
	if err := json.Unmarshal(body, &result); err != nil {
		p.logger.WithError(err).WithField("location", location).Error("Failed to parse market data response")
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	result.City = city
	result.State = state
	if result.FetchedAt.IsZero() {
		result.FetchedAt = time.Now().UTC()
	}

	p.logger.WithFields(logrus.Fields{
		"location":    location,
		"comparables": len(result.Comparables),
		"source":      "market_service",
	}).Info("Fetched market context")
	return &result, nil
}
