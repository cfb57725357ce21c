package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"pricing-optimizer/models"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	RedisAddr     string
	RedisPassword string

	RenderAPIURL string
	RenderAPIKey string
	ChromeBin    string

	InflationAPIURL string

	ServerPort string
	Debug      bool

	MaxConcurrency int
	RateLimitMs    int
	FetchTimeoutMs int

	MaxRetries      int
	RetryBackoffSec int

	Pricing Pricing
}

// ZonePair is the expected-volume multiplier pair for zones A and B.
// Zone C always carries a multiplier of 1.0.
type ZonePair struct {
	ZoneA float64
	ZoneB float64
}

// Pricing collects every tunable of the decision chain: similarity cutoffs,
// validator gates, safety bounds, and the zone-velocity table. Loaded once
// and validated before the service starts.
type Pricing struct {
	// MatchThreshold screens scraped candidates in the adapter.
	MatchThreshold float64
	// HighSimilarity selects products for the primary aggregation path.
	HighSimilarity float64
	// CandidateBandLow/High bound candidate price vs. baseline price.
	CandidateBandLow  float64
	CandidateBandHigh float64

	// MinProducts is the validator's minimum qualifying sample size.
	MinProducts int
	// MaxSpreadRatio rejects markets where (highest-lowest)/average exceeds it.
	MaxSpreadRatio float64
	// AvgRatioLow/High bound market_average/baseline_price.
	AvgRatioLow  float64
	AvgRatioHigh float64
	// Relaxed bands for size-variable categories.
	AvgRatioLowRelaxed  float64
	AvgRatioHighRelaxed float64
	// LowPriceWarnRatio triggers the non-blocking size/bundle-mismatch warning.
	LowPriceWarnRatio        float64
	LowPriceWarnRatioRelaxed float64

	// MinMarginMarkup is the hard floor multiplier over unit cost.
	MinMarginMarkup float64
	// CeilingFactor caps the suggestion below the inflation-adjusted highest.
	CeilingFactor float64
	// BlendAvgWeight weights the market average against the theoretical optimum.
	BlendAvgWeight float64
	// ZoneAWindow is the relative distance from market lowest counted as zone A.
	ZoneAWindow float64

	// ElasticityCalibration scales the competitor-factor influence.
	ElasticityCalibration float64

	// Zones maps categories to zone-velocity multiplier pairs.
	Zones       map[models.Category]ZonePair
	DefaultZone ZonePair
}

// Load reads the .env file and returns a populated, validated Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	cfg := &Config{
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "pricing"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "pricing123"),
		PostgresDB:       getEnv("POSTGRES_DB", "pricing_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		RenderAPIURL: getEnv("RENDER_API_URL", "https://render.scrapeproxy.io/v1/render"),
		RenderAPIKey: getEnv("RENDER_API_KEY", ""),
		ChromeBin:    getEnv("CHROME_BIN", ""),

		InflationAPIURL: getEnv("INFLATION_API_URL", ""),

		ServerPort: getEnv("SERVER_PORT", "8080"),
		Debug:      getEnv("DEBUG", "") == "true",

		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 4),
		RateLimitMs:    getEnvInt("RATE_LIMIT_MS", 500),
		FetchTimeoutMs: getEnvInt("FETCH_TIMEOUT_MS", 45000),

		MaxRetries:      getEnvInt("MAX_RETRIES", 3),
		RetryBackoffSec: getEnvInt("RETRY_BACKOFF_SEC", 3),

		Pricing: DefaultPricing(),
	}

	cfg.Pricing.MatchThreshold = getEnvFloat("MATCH_THRESHOLD", cfg.Pricing.MatchThreshold)
	cfg.Pricing.HighSimilarity = getEnvFloat("HIGH_SIMILARITY", cfg.Pricing.HighSimilarity)

	if err := cfg.Pricing.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// DefaultPricing returns the reference tunables.
func DefaultPricing() Pricing {
	return Pricing{
		MatchThreshold:    0.70,
		HighSimilarity:    0.80,
		CandidateBandLow:  0.3,
		CandidateBandHigh: 3.0,

		MinProducts:              3,
		MaxSpreadRatio:           5.0,
		AvgRatioLow:              0.3,
		AvgRatioHigh:             3.0,
		AvgRatioLowRelaxed:       0.2,
		AvgRatioHighRelaxed:      4.0,
		LowPriceWarnRatio:        0.15,
		LowPriceWarnRatioRelaxed: 0.10,

		MinMarginMarkup: 1.15,
		CeilingFactor:   0.95,
		BlendAvgWeight:  0.6,
		ZoneAWindow:     0.05,

		ElasticityCalibration: 0.3,

		Zones: map[models.Category]ZonePair{
			models.CategoryElectronics:   {ZoneA: 3.5, ZoneB: 2.2},
			models.CategoryAppliances:    {ZoneA: 3.5, ZoneB: 2.2},
			models.CategoryHealthBeauty:  {ZoneA: 1.8, ZoneB: 1.3},
			models.CategoryFoodBeverages: {ZoneA: 1.8, ZoneB: 1.3},
			models.CategoryGroceries:     {ZoneA: 1.8, ZoneB: 1.3},
		},
		DefaultZone: ZonePair{ZoneA: 2.5, ZoneB: 1.8},
	}
}

// Validate rejects tunables that would make the decision chain unsound.
func (p *Pricing) Validate() error {
	if p.MatchThreshold < 0.65 || p.MatchThreshold > 0.8 {
		return fmt.Errorf("match threshold %.2f outside [0.65, 0.8]", p.MatchThreshold)
	}
	if p.HighSimilarity < p.MatchThreshold || p.HighSimilarity > 1 {
		return fmt.Errorf("high-similarity cutoff %.2f outside [%.2f, 1.0]", p.HighSimilarity, p.MatchThreshold)
	}
	if p.CandidateBandLow <= 0 || p.CandidateBandLow >= p.CandidateBandHigh {
		return fmt.Errorf("candidate price band [%.2f, %.2f] is not an interval", p.CandidateBandLow, p.CandidateBandHigh)
	}
	if p.MinProducts < 1 {
		return fmt.Errorf("min products %d must be at least 1", p.MinProducts)
	}
	if p.MinMarginMarkup <= 1 {
		return fmt.Errorf("margin markup %.2f must exceed 1", p.MinMarginMarkup)
	}
	if p.CeilingFactor <= 0 || p.CeilingFactor >= 1 {
		return fmt.Errorf("ceiling factor %.2f outside (0, 1)", p.CeilingFactor)
	}
	if p.BlendAvgWeight < 0 || p.BlendAvgWeight > 1 {
		return fmt.Errorf("blend weight %.2f outside [0, 1]", p.BlendAvgWeight)
	}
	for cat, zp := range p.Zones {
		if !cat.IsValid() {
			return fmt.Errorf("zone table references unknown category %q", cat)
		}
		if zp.ZoneA < zp.ZoneB || zp.ZoneB < 1 {
			return fmt.Errorf("zone multipliers for %s must satisfy A >= B >= 1, got {%.2f, %.2f}",
				cat, zp.ZoneA, zp.ZoneB)
		}
	}
	if p.DefaultZone.ZoneA < p.DefaultZone.ZoneB || p.DefaultZone.ZoneB < 1 {
		return fmt.Errorf("default zone multipliers must satisfy A >= B >= 1")
	}
	return nil
}

// ZoneFor returns the zone-velocity pair for a category.
func (p *Pricing) ZoneFor(cat models.Category) ZonePair {
	if zp, ok := p.Zones[cat]; ok {
		return zp
	}
	return p.DefaultZone
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}
