package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"

	"pricing-optimizer/models"
	"pricing-optimizer/utils"
)

// InflationRate is the annual inflation figure applied to market prices.
type InflationRate struct {
	Rate   float64 `json:"rate"`
	Source string  `json:"source"`
}

// InflationProvider supplies the inflation rate for a currency. Pluggable:
// the pipeline degrades to the static reference table on provider errors.
type InflationProvider interface {
	Rate(ctx context.Context, currency models.Currency) (InflationRate, error)
}

// Reference rates used when no external provider is configured or reachable.
const (
	refRateSAR   = 0.023
	refRateUSD   = 0.031
	refRateOther = 0.025
)

// StaticInflationProvider returns the built-in reference rates.
type StaticInflationProvider struct{}

// Rate returns the reference rate for the currency.
func (StaticInflationProvider) Rate(_ context.Context, currency models.Currency) (InflationRate, error) {
	switch currency {
	case models.CurrencySAR:
		return InflationRate{Rate: refRateSAR, Source: "reference"}, nil
	case models.CurrencyUSD:
		return InflationRate{Rate: refRateUSD, Source: "reference"}, nil
	default:
		return InflationRate{Rate: refRateOther, Source: "reference"}, nil
	}
}

// HTTPInflationProvider fetches rates from an external JSON API.
type HTTPInflationProvider struct {
	baseURL string
	client  *http.Client
}

// NewHTTPInflationProvider creates a provider with an explicit timeout.
func NewHTTPInflationProvider(baseURL string, timeout time.Duration) *HTTPInflationProvider {
	return &HTTPInflationProvider{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Rate calls GET {base}?currency=XXX and decodes {"rate": ..., "source": ...}.
func (p *HTTPInflationProvider) Rate(ctx context.Context, currency models.Currency) (InflationRate, error) {
	u, err := url.Parse(p.baseURL)
	if err != nil {
		return InflationRate{}, fmt.Errorf("inflation: invalid base url: %w", err)
	}
	q := u.Query()
	q.Set("currency", string(currency))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return InflationRate{}, fmt.Errorf("inflation: build request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return InflationRate{}, fmt.Errorf("inflation: fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return InflationRate{}, fmt.Errorf("inflation: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return InflationRate{}, fmt.Errorf("inflation: read body: %w", err)
	}

	var rate InflationRate
	if err := json.Unmarshal(body, &rate); err != nil {
		return InflationRate{}, fmt.Errorf("inflation: decode: %w", err)
	}
	if rate.Rate < -1 || rate.Rate > 1 {
		return InflationRate{}, fmt.Errorf("inflation: implausible rate %.4f", rate.Rate)
	}
	return rate, nil
}

// CachedInflationProvider wraps another provider with a redis cache-aside
// layer. Rates change slowly, so a long TTL is safe.
type CachedInflationProvider struct {
	inner  InflationProvider
	rdb    *redis.Client
	ttl    time.Duration
	logger *utils.Logger
}

// NewCachedInflationProvider creates the cache decorator.
func NewCachedInflationProvider(inner InflationProvider, rdb *redis.Client, logger *utils.Logger) *CachedInflationProvider {
	return &CachedInflationProvider{inner: inner, rdb: rdb, ttl: 12 * time.Hour, logger: logger}
}

// Rate serves from cache when possible; cache errors fall through to the
// inner provider rather than failing the lookup.
func (p *CachedInflationProvider) Rate(ctx context.Context, currency models.Currency) (InflationRate, error) {
	key := "inflation:" + string(currency)

	cached, err := p.rdb.Get(ctx, key).Result()
	if err == nil {
		var rate InflationRate
		if jsonErr := json.Unmarshal([]byte(cached), &rate); jsonErr == nil {
			return rate, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		p.logger.Warnf("[inflation] cache read failed for %s: %v", currency, err)
	}

	rate, err := p.inner.Rate(ctx, currency)
	if err != nil {
		return InflationRate{}, err
	}

	if payload, jsonErr := json.Marshal(rate); jsonErr == nil {
		if setErr := p.rdb.Set(ctx, key, payload, p.ttl).Err(); setErr != nil {
			p.logger.Warnf("[inflation] cache write failed for %s: %v", currency, setErr)
		}
	}
	return rate, nil
}
