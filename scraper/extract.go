package scraper

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// SelectorSet is a marketplace's container→title→price CSS-selector triple.
type SelectorSet struct {
	Container string
	Title     string
	Price     string
}

// numberPattern matches prices with optional thousands separators.
const numberPattern = `((?:\d{1,3}(?:,\d{3})+|\d+)(?:\.\d+)?)`

// PriceGrammar is the declarative (currency-token, numeric-token) grammar
// used when selector extraction returns nothing. One grammar per currency.
type PriceGrammar struct {
	tokens []string
	re     *regexp.Regexp
}

// NewPriceGrammar compiles the grammar for a currency's token set. Tokens may
// appear before or after the number.
func NewPriceGrammar(tokens []string) *PriceGrammar {
	escaped := make([]string, len(tokens))
	for i, tok := range tokens {
		escaped[i] = regexp.QuoteMeta(tok)
	}
	alt := strings.Join(escaped, "|")
	re := regexp.MustCompile(`(?:` + alt + `)\s*` + numberPattern +
		`|` + numberPattern + `\s*(?:` + alt + `)`)
	return &PriceGrammar{tokens: tokens, re: re}
}

// Parse extracts the first price in the text, or 0 when none matches.
func (g *PriceGrammar) Parse(text string) float64 {
	m := g.re.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	raw := m[1]
	if raw == "" {
		raw = m[2]
	}
	return parseNumber(raw)
}

func parseNumber(raw string) float64 {
	raw = strings.ReplaceAll(raw, ",", "")
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return v
}

// candidate is one extracted title/price pair before screening.
type candidate struct {
	Title string
	Price float64
	URL   string
}

// extractBySelectors walks the marketplace's container nodes and pulls the
// title and price through the configured selectors.
func extractBySelectors(doc *goquery.Document, sel SelectorSet, grammar *PriceGrammar) []candidate {
	var out []candidate

	doc.Find(sel.Container).Each(func(_ int, node *goquery.Selection) {
		title := strings.TrimSpace(node.Find(sel.Title).First().Text())
		if title == "" {
			return
		}

		priceText := strings.TrimSpace(node.Find(sel.Price).First().Text())
		price := grammar.Parse(priceText)
		if price == 0 {
			// Selector hit a bare number without a currency token.
			price = parseNumber(firstNumber(priceText))
		}
		if price <= 0 {
			return
		}

		href, _ := node.Find("a[href]").First().Attr("href")
		out = append(out, candidate{Title: title, Price: price, URL: href})
	})

	return out
}

var bareNumberRegexp = regexp.MustCompile(numberPattern)

func firstNumber(text string) string {
	return bareNumberRegexp.FindString(text)
}

// extractByRegex is the fallback path: scan the rendered text line by line
// for anything shaped like a price and use the remaining line as the title.
func extractByRegex(doc *goquery.Document, grammar *PriceGrammar) []candidate {
	var out []candidate

	for _, line := range strings.Split(doc.Text(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		loc := grammar.re.FindStringIndex(line)
		if loc == nil {
			continue
		}
		price := grammar.Parse(line)
		if price <= 0 {
			continue
		}
		title := strings.TrimSpace(line[:loc[0]] + " " + line[loc[1]:])
		if title == "" {
			continue
		}
		out = append(out, candidate{Title: title, Price: price})
	}

	return out
}
