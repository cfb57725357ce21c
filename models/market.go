package models

import "time"

// CompetitorProduct is one scraped competitor listing matched to a baseline.
// The full set for a baseline is replaced atomically on each refresh.
type CompetitorProduct struct {
	ID              int64     `db:"id" json:"id"`
	BaselineID      string    `db:"baseline_id" json:"baseline_id"`
	Marketplace     string    `db:"marketplace" json:"marketplace"`
	ProductName     string    `db:"product_name" json:"product_name"`
	Price           float64   `db:"price" json:"price"`
	SimilarityScore float64   `db:"similarity_score" json:"similarity_score"`
	PriceRatio      float64   `db:"price_ratio" json:"price_ratio"`
	Rank            int       `db:"rank" json:"rank"`
	URL             string    `db:"url" json:"url"`
	ScrapedAt       time.Time `db:"scraped_at" json:"scraped_at"`
}

// MarketplaceAggregate is a legacy per-marketplace summary row. It is the
// fallback price source when too few individually matched products survive
// the similarity cutoff.
type MarketplaceAggregate struct {
	BaselineID  string    `db:"baseline_id" json:"baseline_id"`
	Marketplace string    `db:"marketplace" json:"marketplace"`
	Lowest      float64   `db:"lowest" json:"lowest"`
	Average     float64   `db:"average" json:"average"`
	Highest     float64   `db:"highest" json:"highest"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Confidence grades the quality of a MarketStats sample.
type Confidence string

const (
	ConfidenceNone    Confidence = "none"
	ConfidenceVeryLow Confidence = "very_low"
	ConfidenceLow     Confidence = "low"
	ConfidenceMedium  Confidence = "medium"
	ConfidenceHigh    Confidence = "high"
)

// MarketStats is the aggregated market view for one baseline. Derived, never
// persisted: a pure function of the current competitor set.
type MarketStats struct {
	Lowest          float64    `json:"lowest"`
	Average         float64    `json:"average"`
	Highest         float64    `json:"highest"`
	Confidence      Confidence `json:"confidence"`
	OutliersRemoved int        `json:"outliers_removed"`
	ProductsUsed    int        `json:"products_used"`
}
