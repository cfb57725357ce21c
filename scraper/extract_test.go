package scraper

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func TestPriceGrammarParse(t *testing.T) {
	sar := NewPriceGrammar([]string{"ر.س", "SAR", "ريال"})
	usd := NewPriceGrammar([]string{"$", "USD"})

	tests := []struct {
		grammar *PriceGrammar
		in      string
		want    float64
	}{
		{sar, "SAR 1,299.00", 1299},
		{sar, "1299 ر.س", 1299},
		{sar, "199 ريال", 199},
		{usd, "$449.99", 449.99},
		{usd, "USD 1,050", 1050},
		{usd, "no price here", 0},
		{usd, "SAR 500", 0}, // wrong currency token
	}

	for _, tt := range tests {
		if got := tt.grammar.Parse(tt.in); got != tt.want {
			t.Errorf("Parse(%q) = %v; want %v", tt.in, got, tt.want)
		}
	}
}

const sampleSearchHTML = `
<html><body>
  <div class="result">
    <h3 class="title">Apple iPhone 15 Pro 256GB</h3>
    <span class="price">SAR 4,599.00</span>
    <a href="/dp/B0IPHONE15">view</a>
  </div>
  <div class="result">
    <h3 class="title">iPhone 15 Pro Case</h3>
    <span class="price">SAR 89.00</span>
    <a href="/dp/B0CASE"></a>
  </div>
  <div class="result">
    <h3 class="title">No Price Product</h3>
    <span class="price"></span>
  </div>
</body></html>`

func TestExtractBySelectors(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(sampleSearchHTML))
	if err != nil {
		t.Fatalf("parse sample html: %v", err)
	}

	grammar := NewPriceGrammar([]string{"SAR"})
	sel := SelectorSet{Container: "div.result", Title: "h3.title", Price: "span.price"}

	got := extractBySelectors(doc, sel, grammar)
	if len(got) != 2 {
		t.Fatalf("candidates: got %d, want 2", len(got))
	}
	if got[0].Title != "Apple iPhone 15 Pro 256GB" {
		t.Errorf("title: got %q", got[0].Title)
	}
	if got[0].Price != 4599 {
		t.Errorf("price: got %v, want 4599", got[0].Price)
	}
	if got[0].URL != "/dp/B0IPHONE15" {
		t.Errorf("url: got %q", got[0].URL)
	}
}

func TestExtractByRegexFallback(t *testing.T) {
	raw := `<html><body><div>
Apple iPhone 15 Pro 256GB SAR 4,599.00
Some unrelated navigation text
iPhone 15 Pro Max 512GB 5,999 SAR
</div></body></html>`

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("parse sample html: %v", err)
	}

	grammar := NewPriceGrammar([]string{"SAR"})
	got := extractByRegex(doc, grammar)
	if len(got) != 2 {
		t.Fatalf("candidates: got %d, want 2", len(got))
	}
	if got[0].Price != 4599 {
		t.Errorf("first price: got %v, want 4599", got[0].Price)
	}
	if got[1].Price != 5999 {
		t.Errorf("second price: got %v, want 5999", got[1].Price)
	}
	if !strings.Contains(got[0].Title, "iPhone 15 Pro") {
		t.Errorf("first title: got %q", got[0].Title)
	}
}
