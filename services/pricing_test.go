package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricing-optimizer/config"
	"pricing-optimizer/models"
	"pricing-optimizer/utils"
)

func newTestEngine() *ZoneVelocityEngine {
	return NewZoneVelocityEngine(config.DefaultPricing(), utils.NewNopLogger())
}

func zeroInflation() InflationRate {
	return InflationRate{Rate: 0, Source: "test"}
}

func TestTheoreticalOptimumAboveCost(t *testing.T) {
	engine := newTestEngine()
	stats := models.MarketStats{Lowest: 80, Average: 100, Highest: 130, ProductsUsed: 6}

	for _, cat := range models.Categories() {
		b := &models.ProductBaseline{
			ID: "b-opt", ProductName: "x", Category: cat,
			CurrentPrice: 100, CurrentQuantity: 50, CostPerUnit: 60,
			Currency: models.CurrencySAR, BaseElasticity: cat.BaseElasticity(),
		}
		res := engine.Price(b, stats, zeroInflation())
		assert.Greater(t, res.OptimalPrice, b.CostPerUnit,
			"optimal price must exceed cost for category %s (elasticity %.2f)", cat, cat.BaseElasticity())
	}
}

// Fashion-default zone pair, zero inflation, elasticity -2: the suggestion
// must land inside [cost*1.15, highest*0.95] and report its zone.
func TestPriceLandsInsideSafetyBounds(t *testing.T) {
	engine := newTestEngine()
	b := &models.ProductBaseline{
		ID: "b-scenA", ProductName: "Widget", Category: models.CategoryFashion,
		CurrentPrice: 100, CurrentQuantity: 100, CostPerUnit: 60,
		Currency: models.CurrencyUSD, BaseElasticity: -2,
	}
	stats := models.MarketStats{Lowest: 80, Average: 90, Highest: 120, ProductsUsed: 8}

	res := engine.Price(b, stats, zeroInflation())

	require.NotNil(t, res)
	assert.GreaterOrEqual(t, res.SuggestedPrice, 69.0)
	assert.LessOrEqual(t, res.SuggestedPrice, 114.0)
	assert.Equal(t, 90.0, res.SuggestedPrice)
	assert.Equal(t, ZoneB, res.Zone)
	assert.False(t, res.HasWarning)
	assert.Equal(t, PositionAtMarket, res.PositionVsMarket)
}

func TestPriceBlendsTheoreticalOptimumBelowAverage(t *testing.T) {
	engine := newTestEngine()
	// elasticity -3 puts the optimum at cost/(1-1/3) = 90, under the average.
	b := &models.ProductBaseline{
		ID: "b-blend", ProductName: "Widget", Category: models.CategoryElectronics,
		CurrentPrice: 100, CurrentQuantity: 100, CostPerUnit: 60,
		Currency: models.CurrencyUSD, BaseElasticity: -3,
	}
	stats := models.MarketStats{Lowest: 85, Average: 100, Highest: 140, ProductsUsed: 8}

	res := engine.Price(b, stats, zeroInflation())
	// 0.6*100 + 0.4*90 = 96
	assert.InDelta(t, 96.0, res.SuggestedPrice, 0.01)
}

func TestPriceRiskAdjustsWhenVelocityCannotCoverMarginCut(t *testing.T) {
	engine := newTestEngine()
	// Groceries zone pair {1.8, 1.3}: a deep cut needs 5x velocity, so the
	// engine must fall back to the midpoint and flag the result.
	b := &models.ProductBaseline{
		ID: "b-risk", ProductName: "Rice Bag 5kg", Category: models.CategoryGroceries,
		CurrentPrice: 100, CurrentQuantity: 200, CostPerUnit: 50,
		Currency: models.CurrencySAR, BaseElasticity: -1.25,
	}
	stats := models.MarketStats{Lowest: 58, Average: 60, Highest: 70, ProductsUsed: 6}

	res := engine.Price(b, stats, zeroInflation())

	assert.True(t, res.HasWarning)
	assert.Contains(t, res.WarningMessage, "risk-adjusted")
	assert.InDelta(t, 80.0, res.SuggestedPrice, 0.01) // midpoint of 100 and 60
	assert.Equal(t, ZoneC, res.Zone)
}

func TestPriceRiskAdjustAnchorsOnCurrentPrice(t *testing.T) {
	engine := newTestEngine()
	// A merchant priced far above the market: the midpoint fallback moves
	// halfway toward the live price, which can land above the market ceiling.
	// Only the floor is re-applied after the midpoint; the ceiling bounds the
	// market-derived suggestion, not the merchant's own price.
	b := &models.ProductBaseline{
		ID: "b-anchor", ProductName: "Olive Oil 2L", Category: models.CategoryGroceries,
		CurrentPrice: 200, CurrentQuantity: 30, CostPerUnit: 50,
		Currency: models.CurrencySAR, BaseElasticity: -1.25,
	}
	stats := models.MarketStats{Lowest: 90, Average: 100, Highest: 110, ProductsUsed: 6}

	res := engine.Price(b, stats, zeroInflation())

	assert.True(t, res.HasWarning)
	assert.Contains(t, res.WarningMessage, "risk-adjusted")
	assert.InDelta(t, 150.0, res.SuggestedPrice, 0.01) // midpoint of 200 and 100
	assert.Equal(t, ZoneC, res.Zone)
	assert.Greater(t, res.SuggestedPrice, 110*0.95, "midpoint may sit above the market ceiling")
	assert.GreaterOrEqual(t, res.SuggestedPrice, 50*1.15)
}

func TestPriceAppliesInflationAdjustment(t *testing.T) {
	engine := newTestEngine()
	b := &models.ProductBaseline{
		ID: "b-infl", ProductName: "Widget", Category: models.CategoryFashion,
		CurrentPrice: 100, CurrentQuantity: 100, CostPerUnit: 60,
		Currency: models.CurrencySAR, BaseElasticity: -2,
	}
	stats := models.MarketStats{Lowest: 80, Average: 90, Highest: 120, ProductsUsed: 8}

	res := engine.Price(b, stats, InflationRate{Rate: 0.023, Source: "reference"})

	assert.InDelta(t, 90*1.023, res.MarketAverage, 0.01)
	assert.InDelta(t, 120*1.023, res.MarketHighest, 0.01)
	assert.InDelta(t, 90*0.023, res.InflationAdjustment, 0.01)
}

func TestPriceNeverBreachesFloor(t *testing.T) {
	engine := newTestEngine()
	// Market far below cost: the clamp must hold the floor even though the
	// average sits under it.
	b := &models.ProductBaseline{
		ID: "b-floor", ProductName: "Widget", Category: models.CategoryFashion,
		CurrentPrice: 100, CurrentQuantity: 100, CostPerUnit: 80,
		Currency: models.CurrencyUSD, BaseElasticity: -1.6,
	}
	stats := models.MarketStats{Lowest: 40, Average: 50, Highest: 150, ProductsUsed: 8}

	res := engine.Price(b, stats, zeroInflation())
	assert.GreaterOrEqual(t, res.SuggestedPrice, 80*1.15)
}

func TestKeepCurrentPrice(t *testing.T) {
	b := &models.ProductBaseline{
		ID: "b-keep", ProductName: "Widget", Category: models.CategoryFashion,
		CurrentPrice: 100, CurrentQuantity: 100, CostPerUnit: 60,
		Currency: models.CurrencyUSD, BaseElasticity: -1.6,
	}
	stats := models.MarketStats{ProductsUsed: 1}

	res := KeepCurrentPrice(b, stats, zeroInflation(), "insufficient data: 1 competitor product")

	assert.Equal(t, b.CurrentPrice, res.SuggestedPrice)
	assert.True(t, res.HasWarning)
	assert.Contains(t, res.WarningMessage, "insufficient data")
}

func TestProfitProjectionPopulated(t *testing.T) {
	engine := newTestEngine()
	b := &models.ProductBaseline{
		ID: "b-profit", ProductName: "Widget", Category: models.CategoryElectronics,
		CurrentPrice: 100, CurrentQuantity: 100, CostPerUnit: 60,
		Currency: models.CurrencyUSD, BaseElasticity: -2.1,
	}
	stats := models.MarketStats{Lowest: 95, Average: 110, Highest: 140, ProductsUsed: 10}

	res := engine.Price(b, stats, zeroInflation())

	assert.Greater(t, res.ExpectedMonthlyProfit, 0.0)
	assert.NotZero(t, res.CalibratedElasticity)
	assert.InDelta(t, 1.1, res.CompetitorFactor, 1e-9)
}
