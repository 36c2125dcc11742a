package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	Server struct {
		Port string `env:"SERVER_PORT" envDefault:"5250"`

		// Origins allowed by the CORS middleware
		AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

		LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	}

	Database struct {
		Path string `env:"DATABASE_PATH" envDefault:"database/underwriting.db"`
	}

	Underwriting UnderwritingConfig

	// BatchProcessing configuration for monthly actuals ingestion
	BatchProcessing struct {
		// Number of batches the ingestion queue buffers
		QueueSize int `env:"BATCH_QUEUE_SIZE" envDefault:"100"`

		// Maximum number of monthly records accepted in one batch
		MaxBatchSize int `env:"BATCH_MAX_SIZE" envDefault:"120"`

		// Maximum number of retries for failed batches
		MaxRetries int `env:"BATCH_MAX_RETRIES" envDefault:"3"`

		// Delay between retries in seconds
		RetryDelay int `env:"BATCH_RETRY_DELAY" envDefault:"5"`
	}
}

// UnderwritingConfig holds the deal-independent modeling constants.
// Rates and percentages are expressed in percent (3 means 3%).
type UnderwritingConfig struct {
	NOIGrowthRate          float64 `env:"UW_NOI_GROWTH_RATE" envDefault:"3"`
	SaleCostPercent        float64 `env:"UW_SALE_COST_PERCENT" envDefault:"2"`
	AcquisitionCostPercent float64 `env:"UW_ACQUISITION_COST_PERCENT" envDefault:"2"`
	ExitCapSpread          float64 `env:"UW_EXIT_CAP_SPREAD" envDefault:"0.5"`

	// Broker and closing costs assumed by the disposition sell scenario
	DispositionSellCostPercent float64 `env:"UW_DISPOSITION_SELL_COST_PERCENT" envDefault:"3"`

	// Base URL of the market context service; empty disables market lookups
	MarketDataURL       string        `env:"UW_MARKET_DATA_URL"`
	MarketCacheTTL      time.Duration `env:"UW_MARKET_CACHE_TTL" envDefault:"24h"`
	MarketCacheSnapshot string        `env:"UW_MARKET_CACHE_SNAPSHOT"`

	// How often expired market entries are purged and the snapshot rewritten
	MaintenanceInterval time.Duration `env:"UW_MAINTENANCE_INTERVAL" envDefault:"1h"`

	// Nominatim-compatible geocoder used to locate deals created without
	// coordinates; empty disables geocoding
	GeocoderURL     string `env:"UW_GEOCODER_URL"`
	GeocodeCacheDir string `env:"UW_GEOCODE_CACHE_DIR" envDefault:"cache"`

	// Optional YAML file overriding rows of the property type defaults table
	DefaultsFile string `env:"UW_DEFAULTS_FILE"`
}

// LoadConfig reads an optional .env file and parses the environment.
func LoadConfig(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
