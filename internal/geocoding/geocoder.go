package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"underwriting/server/internal/models"
)

const cacheFileName = "geocode_cache.json"

// Geocoder resolves a deal's street address to coordinates against a
// Nominatim-compatible search endpoint. Results are cached in memory and,
// when cacheDir is set, in a JSON file under it.
type Geocoder struct {
	logger   *logrus.Logger
	baseURL  string
	cacheDir string
	cache    map[string][2]float64
	mu       sync.RWMutex
	client   *http.Client
}

func NewGeocoder(logger *logrus.Logger, baseURL, cacheDir string) *Geocoder {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	g := &Geocoder{
		logger:   logger,
		baseURL:  strings.TrimRight(baseURL, "/"),
		cacheDir: cacheDir,
		cache:    make(map[string][2]float64),
		client:   &http.Client{Timeout: 10 * time.Second},
	}
	if cacheDir != "" {
		if err := os.MkdirAll(cacheDir, 0755); err != nil {
			logger.WithError(err).Warn("Could not create geocode cache directory")
		}
		g.loadCache()
	}
	return g
}

func (g *Geocoder) cachePath() string {
	return filepath.Join(g.cacheDir, cacheFileName)
}

func (g *Geocoder) loadCache() {
	data, err := os.ReadFile(g.cachePath())
	if err != nil {
		if !os.IsNotExist(err) {
			g.logger.WithError(err).Warn("Could not load geocode cache")
		}
		return
	}
	if err := json.Unmarshal(data, &g.cache); err != nil {
		g.logger.WithError(err).Error("Failed to parse geocode cache")
		return
	}
	g.logger.Infof("Loaded %d cached addresses", len(g.cache))
}

func (g *Geocoder) saveCache() error {
	if g.cacheDir == "" {
		return nil
	}
	g.mu.RLock()
	data, err := json.Marshal(g.cache)
	g.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal geocode cache: %w", err)
	}
	if err := os.WriteFile(g.cachePath(), data, 0644); err != nil {
		return fmt.Errorf("failed to save geocode cache: %w", err)
	}
	return nil
}

type searchResult []struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

func cacheKey(address, city, state string) string {
	return strings.ToLower(strings.Join([]string{
		strings.TrimSpace(address), strings.TrimSpace(city), strings.TrimSpace(state),
	}, "|"))
}

// Geocode returns the latitude and longitude of the address.
func (g *Geocoder) Geocode(ctx context.Context, address, city, state string) (float64, float64, error) {
	key := cacheKey(address, city, state)
	g.mu.RLock()
	coords, ok := g.cache[key]
	g.mu.RUnlock()
	if ok {
		return coords[0], coords[1], nil
	}

	query := strings.Join(nonEmpty(address, city, state), ", ")
	if query == "" {
		return 0, 0, fmt.Errorf("%w: no address to geocode", models.ErrDataUnavailable)
	}

	params := url.Values{
		"q":      []string{query},
		"format": []string{"json"},
		"limit":  []string{"1"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "underwriting-server/1.0")
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("geocoding request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("geocoding request failed: status %d", resp.StatusCode)
	}

	var result searchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, 0, fmt.Errorf("failed to parse geocoding response: %w", err)
	}
	if len(result) == 0 {
		return 0, 0, fmt.Errorf("%w: no results for %q", models.ErrDataUnavailable, query)
	}

	lat, err := strconv.ParseFloat(result[0].Lat, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid latitude %q: %w", result[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(result[0].Lon, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid longitude %q: %w", result[0].Lon, err)
	}

	g.logger.WithFields(logrus.Fields{
		"address":   query,
		"latitude":  lat,
		"longitude": lon,
	}).Info("Geocoded address")

	g.mu.Lock()
	g.cache[key] = [2]float64{lat, lon}
	g.mu.Unlock()
	if err := g.saveCache(); err != nil {
		g.logger.WithError(err).Warn("Could not persist geocode cache")
	}
	return lat, lon, nil
}

// Locate fills in the deal's coordinates when either is missing. A deal that
// already has both is left unchanged.
func (g *Geocoder) Locate(ctx context.Context, deal *models.DealAssumptions) error {
	if deal == nil || (deal.Latitude != nil && deal.Longitude != nil) {
		return nil
	}
	lat, lon, err := g.Geocode(ctx, deal.Address, deal.City, deal.State)
	if err != nil {
		return err
	}
	deal.Latitude, deal.Longitude = &lat, &lon
	return nil
}

func nonEmpty(parts ...string) []string {
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
