package services

import (
	"math"
	"sort"

	"pricing-optimizer/config"
	"pricing-optimizer/models"
	"pricing-optimizer/utils"
)

// Aggregator turns the raw competitor set into MarketStats: similarity
// filtering, IQR outlier removal, similarity-weighted averaging and a
// confidence grade. Pure with respect to its inputs.
type Aggregator struct {
	cfg    config.Pricing
	logger *utils.Logger
}

// NewAggregator creates an Aggregator with the given tunables.
func NewAggregator(cfg config.Pricing, logger *utils.Logger) *Aggregator {
	return &Aggregator{cfg: cfg, logger: logger}
}

type weightedPrice struct {
	price  float64
	weight float64
}

// Aggregate computes market statistics for one baseline. Products below the
// high-similarity cutoff are dropped; if fewer than MinProducts survive, the
// legacy per-marketplace aggregate rows are flattened into the price list at
// lowered confidence. Outliers go through the IQR rule, but a filter that
// would empty a non-empty set is skipped entirely.
func (a *Aggregator) Aggregate(products []models.CompetitorProduct, aggregates []models.MarketplaceAggregate) models.MarketStats {
	var sample []weightedPrice
	for _, p := range products {
		if p.SimilarityScore >= a.cfg.HighSimilarity && p.Price > 0 {
			sample = append(sample, weightedPrice{price: p.Price, weight: p.SimilarityScore})
		}
	}

	primary := len(sample) >= a.cfg.MinProducts
	if !primary {
		sample = flattenAggregates(aggregates)
		a.logger.Debugf("[aggregator] only %d high-similarity products, falling back to %d aggregate prices",
			countHighSimilarity(products, a.cfg.HighSimilarity), len(sample))
	}

	if len(sample) == 0 {
		return models.MarketStats{Confidence: models.ConfidenceNone}
	}

	cleaned, removed := removeOutliersIQR(sample)

	stats := models.MarketStats{
		Lowest:          cleaned[0].price,
		Highest:         cleaned[0].price,
		OutliersRemoved: removed,
		ProductsUsed:    len(cleaned),
	}

	var weightedSum, weightTotal float64
	for _, wp := range cleaned {
		weightedSum += wp.price * wp.weight
		weightTotal += wp.weight
		if wp.price < stats.Lowest {
			stats.Lowest = wp.price
		}
		if wp.price > stats.Highest {
			stats.Highest = wp.price
		}
	}
	stats.Average = weightedSum / weightTotal

	switch {
	case !primary:
		stats.Confidence = models.ConfidenceVeryLow
	case len(cleaned) >= 10:
		stats.Confidence = models.ConfidenceHigh
	case len(cleaned) >= 5:
		stats.Confidence = models.ConfidenceMedium
	default:
		stats.Confidence = models.ConfidenceLow
	}

	return stats
}

func countHighSimilarity(products []models.CompetitorProduct, cutoff float64) int {
	n := 0
	for _, p := range products {
		if p.SimilarityScore >= cutoff {
			n++
		}
	}
	return n
}

// flattenAggregates turns legacy per-marketplace summary rows into an
// unweighted price list. Equal prices within one row collapse to a single
// entry: a marketplace that only ever saw one listing contributes one price,
// not three copies of it.
func flattenAggregates(aggregates []models.MarketplaceAggregate) []weightedPrice {
	var out []weightedPrice
	for _, agg := range aggregates {
		seen := map[float64]bool{}
		for _, price := range []float64{agg.Lowest, agg.Average, agg.Highest} {
			if price > 0 && !seen[price] {
				seen[price] = true
				out = append(out, weightedPrice{price: price, weight: 1})
			}
		}
	}
	return out
}

// removeOutliersIQR drops prices outside [Q1 − 1.5·IQR, Q3 + 1.5·IQR].
// A filter that would discard everything keeps the original sample instead.
func removeOutliersIQR(sample []weightedPrice) ([]weightedPrice, int) {
	if len(sample) < 4 {
		// Quartiles are meaningless on tiny samples.
		return sample, 0
	}

	prices := make([]float64, len(sample))
	for i, wp := range sample {
		prices[i] = wp.price
	}
	sort.Float64s(prices)

	q1 := quantile(prices, 0.25)
	q3 := quantile(prices, 0.75)
	iqr := q3 - q1
	lo := q1 - 1.5*iqr
	hi := q3 + 1.5*iqr

	var kept []weightedPrice
	for _, wp := range sample {
		if wp.price >= lo && wp.price <= hi {
			kept = append(kept, wp)
		}
	}
	if len(kept) == 0 {
		return sample, 0
	}
	return kept, len(sample) - len(kept)
}

// quantile interpolates the q-th quantile of a sorted slice.
func quantile(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
