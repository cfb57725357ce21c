package scraper

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"pricing-optimizer/config"
	"pricing-optimizer/models"
	"pricing-optimizer/services"
	"pricing-optimizer/utils"
)

// Per-marketplace fetch outcomes. A failure is terminal for that marketplace
// only; the other fetches continue (bulkhead).
const (
	FetchSuccess = "success"
	FetchNoData  = "no_data"
	FetchFailed  = "failed"
)

// FetchReport records the outcome of one marketplace fetch.
type FetchReport struct {
	Marketplace string `json:"marketplace"`
	Status      string `json:"status"`
	Accepted    int    `json:"accepted"`
	Error       string `json:"error,omitempty"`
}

// Marketplace is one scrape target: where to search and how to read results.
type Marketplace struct {
	Name      string
	SearchURL string // fmt template, %s = escaped query
	Selectors SelectorSet
}

// catalogs maps each currency to its fixed marketplace list.
var catalogs = map[models.Currency][]Marketplace{
	models.CurrencySAR: {
		{
			Name:      "amazon.sa",
			SearchURL: "https://www.amazon.sa/s?k=%s",
			Selectors: SelectorSet{
				Container: `div[data-component-type="s-search-result"]`,
				Title:     `h2 a span`,
				Price:     `span.a-price span.a-offscreen`,
			},
		},
		{
			Name:      "noon.com",
			SearchURL: "https://www.noon.com/saudi-en/search/?q=%s",
			Selectors: SelectorSet{
				Container: `div.productContainer`,
				Title:     `div[data-qa="product-name"]`,
				Price:     `strong.amount`,
			},
		},
		{
			Name:      "extra.com",
			SearchURL: "https://www.extra.com/en-sa/search/?q=%s",
			Selectors: SelectorSet{
				Container: `div.product-tile`,
				Title:     `a.product-name`,
				Price:     `span.price`,
			},
		},
		{
			Name:      "jarir.com",
			SearchURL: "https://www.jarir.com/sa-en/catalogsearch/result?search=%s",
			Selectors: SelectorSet{
				Container: `div.product-item`,
				Title:     `a.product-title`,
				Price:     `span.price`,
			},
		},
	},
	models.CurrencyUSD: {
		{
			Name:      "amazon.com",
			SearchURL: "https://www.amazon.com/s?k=%s",
			Selectors: SelectorSet{
				Container: `div[data-component-type="s-search-result"]`,
				Title:     `h2 a span`,
				Price:     `span.a-price span.a-offscreen`,
			},
		},
		{
			Name:      "walmart.com",
			SearchURL: "https://www.walmart.com/search?q=%s",
			Selectors: SelectorSet{
				Container: `div[data-item-id]`,
				Title:     `span[data-automation-id="product-title"]`,
				Price:     `div[data-automation-id="product-price"]`,
			},
		},
		{
			Name:      "ebay.com",
			SearchURL: "https://www.ebay.com/sch/i.html?_nkw=%s",
			Selectors: SelectorSet{
				Container: `li.s-item`,
				Title:     `div.s-item__title`,
				Price:     `span.s-item__price`,
			},
		},
		{
			Name:      "bestbuy.com",
			SearchURL: "https://www.bestbuy.com/site/searchpage.jsp?st=%s",
			Selectors: SelectorSet{
				Container: `li.sku-item`,
				Title:     `h4.sku-title a`,
				Price:     `div.priceView-customer-price span`,
			},
		},
	},
}

// currencyTokens feed the regex fallback grammar per currency.
var currencyTokens = map[models.Currency][]string{
	models.CurrencySAR: {"ر.س", "SAR", "ريال"},
	models.CurrencyUSD: {"$", "USD"},
}

// Adapter fetches rendered competitor pages, extracts price/title pairs and
// screens them against the baseline. No retry here: a marketplace that fails
// stays failed for this refresh.
type Adapter struct {
	fetcher  RenderedFetcher
	matcher  *services.Matcher
	cfg      *config.Config
	grammars map[models.Currency]*PriceGrammar
	logger   *utils.Logger
}

// NewAdapter validates the marketplace catalog and builds the adapter.
func NewAdapter(fetcher RenderedFetcher, matcher *services.Matcher, cfg *config.Config, logger *utils.Logger) (*Adapter, error) {
	if err := validateCatalog(); err != nil {
		return nil, err
	}

	grammars := make(map[models.Currency]*PriceGrammar, len(currencyTokens))
	for cur, tokens := range currencyTokens {
		grammars[cur] = NewPriceGrammar(tokens)
	}

	return &Adapter{
		fetcher:  fetcher,
		matcher:  matcher,
		cfg:      cfg,
		grammars: grammars,
		logger:   logger,
	}, nil
}

func validateCatalog() error {
	for cur, list := range catalogs {
		if len(list) == 0 {
			return fmt.Errorf("catalog for %s is empty", cur)
		}
		for _, m := range list {
			if m.Name == "" || !strings.Contains(m.SearchURL, "%s") {
				return fmt.Errorf("catalog entry %q for %s has no query slot", m.Name, cur)
			}
			if m.Selectors.Container == "" || m.Selectors.Title == "" || m.Selectors.Price == "" {
				return fmt.Errorf("catalog entry %q for %s has an incomplete selector set", m.Name, cur)
			}
		}
		if _, ok := currencyTokens[cur]; !ok {
			return fmt.Errorf("no currency tokens for %s", cur)
		}
	}
	return nil
}

// FetchCompetitors scrapes every marketplace for the baseline's currency with
// bounded parallelism. It returns the screened competitor set and one report
// per marketplace. The error is non-nil only when every marketplace failed,
// which is what the orchestrator's retry reacts to.
func (a *Adapter) FetchCompetitors(ctx context.Context, b *models.ProductBaseline) ([]models.CompetitorProduct, []FetchReport, error) {
	marketplaces := catalogs[b.Currency]
	grammar := a.grammars[b.Currency]
	query := services.Normalize(b.ProductName)

	pool := utils.NewWorkerPool(a.cfg.MaxConcurrency, a.cfg.RateLimitMs)
	seen := utils.NewSeenSet()

	var mu sync.Mutex
	var products []models.CompetitorProduct
	reports := make([]FetchReport, len(marketplaces))

	for i, m := range marketplaces {
		i, m := i, m
		pool.Submit(func() {
			accepted, report := a.fetchOne(ctx, m, grammar, query, b, seen)

			mu.Lock()
			defer mu.Unlock()
			products = append(products, accepted...)
			reports[i] = report
		})
	}
	pool.Wait()

	// Deterministic ordering across concurrent collection.
	sort.SliceStable(products, func(i, j int) bool {
		if products[i].Marketplace != products[j].Marketplace {
			return products[i].Marketplace < products[j].Marketplace
		}
		return products[i].Rank < products[j].Rank
	})

	failures := 0
	for _, r := range reports {
		if r.Status == FetchFailed {
			failures++
		}
	}
	if failures == len(reports) {
		return nil, reports, fmt.Errorf("all %d marketplaces failed for baseline %s", failures, b.ID)
	}
	return products, reports, nil
}

// fetchOne scrapes a single marketplace. All errors are contained in the
// returned report.
func (a *Adapter) fetchOne(ctx context.Context, m Marketplace, grammar *PriceGrammar, query string, b *models.ProductBaseline, seen *utils.SeenSet) ([]models.CompetitorProduct, FetchReport) {
	report := FetchReport{Marketplace: m.Name}

	fetchCtx, cancel := context.WithTimeout(ctx, time.Duration(a.cfg.FetchTimeoutMs)*time.Millisecond)
	defer cancel()

	searchURL := fmt.Sprintf(m.SearchURL, url.QueryEscape(query))
	html, err := a.fetcher.FetchRenderedHTML(fetchCtx, searchURL)
	if err != nil {
		fetchErr := &models.UpstreamFetchError{Marketplace: m.Name, Err: err}
		a.logger.Warnf("[adapter] %v", fetchErr)
		report.Status = FetchFailed
		report.Error = fetchErr.Error()
		return nil, report
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		fetchErr := &models.UpstreamFetchError{Marketplace: m.Name, Err: err}
		a.logger.Warnf("[adapter] %v", fetchErr)
		report.Status = FetchFailed
		report.Error = fetchErr.Error()
		return nil, report
	}

	candidates := extractBySelectors(doc, m.Selectors, grammar)
	if len(candidates) == 0 {
		a.logger.Debugf("[adapter] %s: selectors empty, trying regex fallback", m.Name)
		candidates = extractByRegex(doc, grammar)
	}

	accepted := a.screen(candidates, m, b, seen)
	a.logger.Debugf("[adapter] %s: %d candidates, %d accepted", m.Name, len(candidates), len(accepted))

	report.Accepted = len(accepted)
	if len(accepted) == 0 {
		report.Status = FetchNoData
	} else {
		report.Status = FetchSuccess
	}
	return accepted, report
}

// screen keeps candidates whose title clears the similarity threshold and
// whose price sits inside the plausible band around the baseline price.
func (a *Adapter) screen(candidates []candidate, m Marketplace, b *models.ProductBaseline, seen *utils.SeenSet) []models.CompetitorProduct {
	var out []models.CompetitorProduct
	now := time.Now()

	for _, c := range candidates {
		sim := a.matcher.Score(b.ProductName, c.Title)
		if sim < a.cfg.Pricing.MatchThreshold {
			continue
		}

		ratio := c.Price / b.CurrentPrice
		if ratio < a.cfg.Pricing.CandidateBandLow || ratio > a.cfg.Pricing.CandidateBandHigh {
			continue
		}

		link := absoluteURL(m.Name, c.URL)
		dedupeKey := link
		if dedupeKey == "" {
			dedupeKey = m.Name + "|" + c.Title
		}
		if !seen.Add(dedupeKey) {
			continue
		}

		out = append(out, models.CompetitorProduct{
			BaselineID:      b.ID,
			Marketplace:     m.Name,
			ProductName:     c.Title,
			Price:           c.Price,
			SimilarityScore: sim,
			PriceRatio:      ratio,
			Rank:            len(out) + 1,
			URL:             link,
			ScrapedAt:       now,
		})
	}
	return out
}

func absoluteURL(host, href string) string {
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if !strings.HasPrefix(href, "/") {
		href = "/" + href
	}
	return "https://www." + host + href
}
