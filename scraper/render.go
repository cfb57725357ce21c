package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/chromedp"

	"pricing-optimizer/utils"
)

// RenderedFetcher returns fully-rendered HTML for a URL. Marketplace search
// pages are JavaScript-heavy, so a plain GET is not enough.
type RenderedFetcher interface {
	FetchRenderedHTML(ctx context.Context, pageURL string) (string, error)
}

// RenderAPIFetcher fetches pages through an external rendering/proxy service.
// The service is an opaque third party keyed by an API credential.
type RenderAPIFetcher struct {
	endpoint string
	apiKey   string
	client   *http.Client
	logger   *utils.Logger
}

// NewRenderAPIFetcher creates the client with an explicit timeout.
func NewRenderAPIFetcher(endpoint, apiKey string, timeout time.Duration, logger *utils.Logger) *RenderAPIFetcher {
	return &RenderAPIFetcher{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// FetchRenderedHTML proxies the target URL through the render service.
func (f *RenderAPIFetcher) FetchRenderedHTML(ctx context.Context, pageURL string) (string, error) {
	u, err := url.Parse(f.endpoint)
	if err != nil {
		return "", fmt.Errorf("render api: invalid endpoint: %w", err)
	}
	q := u.Query()
	q.Set("api_key", f.apiKey)
	q.Set("url", pageURL)
	q.Set("render_js", "true")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("render api: build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("render api: fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("render api: status %d for %s", resp.StatusCode, pageURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return "", fmt.Errorf("render api: read body: %w", err)
	}
	return string(body), nil
}

// ChromeFetcher renders pages with a local headless browser. Used when no
// render-API credential is configured.
type ChromeFetcher struct {
	chromeBin string
	timeout   time.Duration
	logger    *utils.Logger
}

// NewChromeFetcher creates the fetcher, locating the browser binary.
func NewChromeFetcher(chromeBin string, timeout time.Duration, logger *utils.Logger) *ChromeFetcher {
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	return &ChromeFetcher{chromeBin: chromeBin, timeout: timeout, logger: logger}
}

// FetchRenderedHTML navigates to the page, waits for scripts to settle and
// returns the document's outer HTML.
func (f *ChromeFetcher) FetchRenderedHTML(ctx context.Context, pageURL string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)
	if f.chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(f.chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelBrowser()

	browserCtx, cancelTimeout := context.WithTimeout(browserCtx, f.timeout)
	defer cancelTimeout()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(pageURL),
		chromedp.Sleep(4*time.Second),
		chromedp.Evaluate(`document.documentElement.outerHTML`, &html),
	)
	if err != nil {
		return "", fmt.Errorf("chromedp render: %w", err)
	}
	return html, nil
}

// findChromeBinary locates a Chrome/Chromium binary.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
