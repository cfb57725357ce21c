package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"pricing-optimizer/config"
	"pricing-optimizer/models"
	"pricing-optimizer/services"
	"pricing-optimizer/utils"
)

// fakeFetcher serves canned HTML keyed by URL substring and fails otherwise.
type fakeFetcher struct {
	pages map[string]string
	fail  map[string]bool
}

func (f *fakeFetcher) FetchRenderedHTML(_ context.Context, pageURL string) (string, error) {
	for key := range f.fail {
		if strings.Contains(pageURL, key) {
			return "", errors.New("render timeout")
		}
	}
	for key, html := range f.pages {
		if strings.Contains(pageURL, key) {
			return html, nil
		}
	}
	return "<html><body></body></html>", nil
}

func amazonStyleHTML(titlePrices ...[2]string) string {
	var sb strings.Builder
	sb.WriteString("<html><body>")
	for i, tp := range titlePrices {
		sb.WriteString(fmt.Sprintf(`
<div data-component-type="s-search-result">
  <h2><a href="/dp/ITEM%d"><span>%s</span></a></h2>
  <span class="a-price"><span class="a-offscreen">%s</span></span>
</div>`, i, tp[0], tp[1]))
	}
	sb.WriteString("</body></html>")
	return sb.String()
}

func testAdapterConfig() *config.Config {
	return &config.Config{
		MaxConcurrency: 4,
		RateLimitMs:    0,
		FetchTimeoutMs: 5000,
		Pricing:        config.DefaultPricing(),
	}
}

func testScrapeBaseline() *models.ProductBaseline {
	return &models.ProductBaseline{
		ID:           "b-scrape",
		ProductName:  "Apple iPhone 15 Pro 256GB",
		Category:     models.CategoryElectronics,
		CurrentPrice: 4500,
		CostPerUnit:  3000,
		Currency:     models.CurrencySAR,
	}
}

func newTestAdapter(t *testing.T, fetcher RenderedFetcher) *Adapter {
	t.Helper()
	cfg := testAdapterConfig()
	a, err := NewAdapter(fetcher, services.NewMatcher(cfg.Pricing.MatchThreshold), cfg, utils.NewNopLogger())
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}
	return a
}

func TestCatalogValidates(t *testing.T) {
	if err := validateCatalog(); err != nil {
		t.Fatalf("catalog must validate: %v", err)
	}
	for _, cur := range []models.Currency{models.CurrencySAR, models.CurrencyUSD} {
		if len(catalogs[cur]) != 4 {
			t.Errorf("%s catalog: got %d marketplaces, want 4", cur, len(catalogs[cur]))
		}
	}
}

func TestFetchCompetitorsScreensCandidates(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{
		"amazon.sa": amazonStyleHTML(
			[2]string{"Apple iPhone 15 Pro 256GB", "SAR 4,599"},
			[2]string{"Apple iPhone 15 Pro 256GB Renewed", "SAR 4,200"},
			[2]string{"Apple iPhone 15 Pro 256GB Case", "SAR 49"}, // price band reject
			[2]string{"Logitech MX Master 3S Mouse", "SAR 4,400"}, // similarity reject
		),
	}}

	a := newTestAdapter(t, fetcher)
	products, reports, err := a.FetchCompetitors(context.Background(), testScrapeBaseline())
	if err != nil {
		t.Fatalf("FetchCompetitors: %v", err)
	}

	if len(products) != 2 {
		t.Fatalf("products: got %d, want 2", len(products))
	}
	for _, p := range products {
		if p.SimilarityScore < 0 || p.SimilarityScore > 1 {
			t.Errorf("similarity %v outside [0,1]", p.SimilarityScore)
		}
		if p.Marketplace != "amazon.sa" {
			t.Errorf("marketplace: got %q", p.Marketplace)
		}
	}

	byName := map[string]FetchReport{}
	for _, r := range reports {
		byName[r.Marketplace] = r
	}
	if byName["amazon.sa"].Status != FetchSuccess {
		t.Errorf("amazon.sa status: got %q, want success", byName["amazon.sa"].Status)
	}
	if byName["noon.com"].Status != FetchNoData {
		t.Errorf("noon.com status: got %q, want no_data", byName["noon.com"].Status)
	}
}

func TestFetchCompetitorsIsolatesFailures(t *testing.T) {
	fetcher := &fakeFetcher{
		pages: map[string]string{
			"amazon.sa": amazonStyleHTML([2]string{"Apple iPhone 15 Pro 256GB", "SAR 4,599"}),
		},
		fail: map[string]bool{"noon.com": true, "extra.com": true},
	}

	a := newTestAdapter(t, fetcher)
	products, reports, err := a.FetchCompetitors(context.Background(), testScrapeBaseline())
	if err != nil {
		t.Fatalf("partial failures must not error the fetch: %v", err)
	}
	if len(products) != 1 {
		t.Errorf("products: got %d, want 1", len(products))
	}

	failed := 0
	for _, r := range reports {
		if r.Status == FetchFailed {
			failed++
		}
	}
	if failed != 2 {
		t.Errorf("failed reports: got %d, want 2", failed)
	}
}

func TestFetchCompetitorsAllFailed(t *testing.T) {
	fetcher := &fakeFetcher{fail: map[string]bool{
		"amazon.sa": true, "noon.com": true, "extra.com": true, "jarir.com": true,
	}}

	a := newTestAdapter(t, fetcher)
	_, reports, err := a.FetchCompetitors(context.Background(), testScrapeBaseline())
	if err == nil {
		t.Fatal("expected an error when every marketplace fails")
	}
	if len(reports) != 4 {
		t.Errorf("reports: got %d, want 4", len(reports))
	}
}
