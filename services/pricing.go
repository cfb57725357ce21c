package services

import (
	"math"
	"time"

	"github.com/google/uuid"

	"pricing-optimizer/config"
	"pricing-optimizer/models"
	"pricing-optimizer/utils"
)

// PricingEngine computes a suggested price from a validated market sample.
// Versioned behind an interface so the decision policy can be swapped
// without touching the orchestrator.
type PricingEngine interface {
	Version() string
	Price(baseline *models.ProductBaseline, stats models.MarketStats, inflation InflationRate) *models.PricingResult
}

// Price zones relative to the inflation-adjusted market.
const (
	ZoneA = "A" // within ZoneAWindow of the market lowest
	ZoneB = "B" // at or below the market average
	ZoneC = "C" // above the market average
)

// Market position labels on the result.
const (
	PositionBelowMarket = "below_market"
	PositionAtMarket    = "at_market"
	PositionAboveMarket = "above_market"
)

// ZoneVelocityEngine is the canonical engine: constant-elasticity optimum,
// inflation-adjusted market blend, hard safety clamp, then a break-even gate
// on the zone's expected sales velocity.
type ZoneVelocityEngine struct {
	cfg    config.Pricing
	logger *utils.Logger
}

// NewZoneVelocityEngine creates the engine with the given tunables.
func NewZoneVelocityEngine(cfg config.Pricing, logger *utils.Logger) *ZoneVelocityEngine {
	return &ZoneVelocityEngine{cfg: cfg, logger: logger}
}

// Version identifies the pricing policy on results and logs.
func (e *ZoneVelocityEngine) Version() string { return "zone-velocity/v1" }

// Price runs the full decision chain. Elasticities are negative with
// magnitude above 1; demand projection uses the magnitude.
func (e *ZoneVelocityEngine) Price(b *models.ProductBaseline, stats models.MarketStats, inflation InflationRate) *models.PricingResult {
	floor := b.CostPerUnit * e.cfg.MinMarginMarkup

	// Step 1: theoretical optimum from the monopolist markup rule.
	optimal := floor
	if b.BaseElasticity < -1 {
		optimal = b.CostPerUnit / (1 + 1/b.BaseElasticity)
	}

	// Step 2: inflation-adjust the market view.
	adj := 1 + inflation.Rate
	lowAdj := stats.Lowest * adj
	avgAdj := stats.Average * adj
	highAdj := stats.Highest * adj

	// Step 3: the market average anchors the suggestion; a theoretical
	// optimum sitting between the floor and the average pulls it down.
	suggested := avgAdj
	if optimal > floor && optimal < avgAdj {
		suggested = e.cfg.BlendAvgWeight*avgAdj + (1-e.cfg.BlendAvgWeight)*optimal
	}

	// Step 4: hard safety clamp.
	ceiling := highAdj * e.cfg.CeilingFactor
	if suggested > ceiling {
		suggested = ceiling
	}
	if suggested < floor {
		suggested = floor
	}

	// Step 5: zone velocity gate.
	zone, zoneMult := e.classifyZone(b.Category, suggested, lowAdj, avgAdj)
	currentMargin := b.CurrentPrice - b.CostPerUnit
	newMargin := suggested - b.CostPerUnit
	breakEven := math.Inf(1)
	if newMargin > 0 {
		breakEven = currentMargin / newMargin
	}

	hasWarning := false
	warning := ""
	if zoneMult < breakEven {
		midpoint := (b.CurrentPrice + suggested) / 2
		e.logger.Debugf("[pricing] %s: zone %s multiplier %.2f below break-even %.2f, risk-adjusting %.2f -> %.2f",
			b.ID, zone, zoneMult, breakEven, suggested, midpoint)
		suggested = midpoint
		hasWarning = true
		warning = "risk-adjusted: expected zone velocity does not cover the margin cut; moved halfway toward the current price"
		zone, zoneMult = e.classifyZone(b.Category, suggested, lowAdj, avgAdj)
	}
	if suggested < floor {
		suggested = floor
	}

	// Step 6: profit projection under calibrated elasticity.
	competitorFactor := 0.0
	if b.CurrentPrice > 0 {
		competitorFactor = avgAdj / b.CurrentPrice
	}
	calibrated := b.BaseElasticity * (1 + (competitorFactor-1)*e.cfg.ElasticityCalibration)

	newQuantity := float64(b.CurrentQuantity) *
		math.Pow(b.CurrentPrice/suggested, math.Abs(calibrated))
	expectedProfit := newQuantity * (suggested - b.CostPerUnit)
	currentProfit := float64(b.CurrentQuantity) * currentMargin

	result := &models.PricingResult{
		ID:                    uuid.New().String(),
		BaselineID:            b.ID,
		OptimalPrice:          round2(optimal),
		SuggestedPrice:        round2(suggested),
		InflationRate:         inflation.Rate,
		InflationAdjustment:   round2(avgAdj - stats.Average),
		BaseElasticity:        b.BaseElasticity,
		CalibratedElasticity:  calibrated,
		CompetitorFactor:      competitorFactor,
		MarketLowest:          round2(lowAdj),
		MarketAverage:         round2(avgAdj),
		MarketHighest:         round2(highAdj),
		PositionVsMarket:      positionVsMarket(suggested, avgAdj),
		Zone:                  zone,
		ExpectedMonthlyProfit: round2(expectedProfit),
		ProfitIncreaseAmount:  round2(expectedProfit - currentProfit),
		HasWarning:            hasWarning,
		WarningMessage:        warning,
		CreatedAt:             time.Now(),
	}
	if currentProfit > 0 {
		result.ProfitIncreasePercent = round2((expectedProfit - currentProfit) / currentProfit * 100)
	}

	e.logger.Infof("[pricing] %s: engine=%s zone=%s suggested=%.2f optimal=%.2f market=[%.2f %.2f %.2f] warning=%v",
		b.ID, e.Version(), result.Zone, result.SuggestedPrice, result.OptimalPrice,
		result.MarketLowest, result.MarketAverage, result.MarketHighest, result.HasWarning)

	return result
}

// classifyZone places a price against the inflation-adjusted market and
// returns the zone with its expected-volume multiplier.
func (e *ZoneVelocityEngine) classifyZone(cat models.Category, price, lowAdj, avgAdj float64) (string, float64) {
	pair := e.cfg.ZoneFor(cat)
	switch {
	case price <= lowAdj*(1+e.cfg.ZoneAWindow):
		return ZoneA, pair.ZoneA
	case price <= avgAdj:
		return ZoneB, pair.ZoneB
	default:
		return ZoneC, 1.0
	}
}

func positionVsMarket(price, avg float64) string {
	switch {
	case price < avg*0.98:
		return PositionBelowMarket
	case price > avg*1.02:
		return PositionAboveMarket
	default:
		return PositionAtMarket
	}
}

// KeepCurrentPrice builds the degraded result emitted when the validator
// blocks pricing: the current price is kept and the reason is surfaced.
func KeepCurrentPrice(b *models.ProductBaseline, stats models.MarketStats, inflation InflationRate, reason string) *models.PricingResult {
	currentProfit := float64(b.CurrentQuantity) * (b.CurrentPrice - b.CostPerUnit)
	return &models.PricingResult{
		ID:                    uuid.New().String(),
		BaselineID:            b.ID,
		OptimalPrice:          b.CurrentPrice,
		SuggestedPrice:        b.CurrentPrice,
		InflationRate:         inflation.Rate,
		BaseElasticity:        b.BaseElasticity,
		MarketLowest:          round2(stats.Lowest),
		MarketAverage:         round2(stats.Average),
		MarketHighest:         round2(stats.Highest),
		PositionVsMarket:      PositionAtMarket,
		ExpectedMonthlyProfit: round2(currentProfit),
		HasWarning:            true,
		WarningMessage:        reason,
		CreatedAt:             time.Now(),
	}
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
