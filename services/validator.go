package services

import (
	"fmt"

	"pricing-optimizer/config"
	"pricing-optimizer/models"
	"pricing-optimizer/utils"
)

// GateResult is the validator's verdict on a market sample.
type GateResult struct {
	ShouldProceed bool
	// Reason explains a rejection; empty when ShouldProceed is true.
	Reason string
	// Warning is non-blocking: pricing proceeds but the result is flagged.
	Warning string
}

// Validator gates low-quality market data before the pricing engine runs.
// A rejection is not a pipeline failure: the orchestrator emits a
// keep-current-price result carrying the reason.
type Validator struct {
	cfg    config.Pricing
	logger *utils.Logger
}

// NewValidator creates a Validator with the given tunables.
func NewValidator(cfg config.Pricing, logger *utils.Logger) *Validator {
	return &Validator{cfg: cfg, logger: logger}
}

// Check applies the quality gates in order: sample size, price spread, then
// the market-average band relative to the baseline price. Size-variable
// categories get relaxed bands. A very low market minimum only warns.
func (v *Validator) Check(stats models.MarketStats, baseline *models.ProductBaseline) GateResult {
	if stats.ProductsUsed < v.cfg.MinProducts {
		return GateResult{
			ShouldProceed: false,
			Reason: fmt.Sprintf("insufficient data: %d competitor products, need at least %d",
				stats.ProductsUsed, v.cfg.MinProducts),
		}
	}

	if stats.Average > 0 {
		spread := (stats.Highest - stats.Lowest) / stats.Average
		if spread > v.cfg.MaxSpreadRatio {
			return GateResult{
				ShouldProceed: false,
				Reason: fmt.Sprintf("price spread too wide: %.2f exceeds %.2f",
					spread, v.cfg.MaxSpreadRatio),
			}
		}
	}

	ratioLow, ratioHigh := v.cfg.AvgRatioLow, v.cfg.AvgRatioHigh
	warnRatio := v.cfg.LowPriceWarnRatio
	if baseline.Category.IsSizeVariable() {
		ratioLow, ratioHigh = v.cfg.AvgRatioLowRelaxed, v.cfg.AvgRatioHighRelaxed
		warnRatio = v.cfg.LowPriceWarnRatioRelaxed
	}

	avgRatio := stats.Average / baseline.CurrentPrice
	if avgRatio < ratioLow || avgRatio > ratioHigh {
		return GateResult{
			ShouldProceed: false,
			Reason: fmt.Sprintf("market average %.2f is %.2fx the baseline price, outside [%.2f, %.2f]",
				stats.Average, avgRatio, ratioLow, ratioHigh),
		}
	}

	result := GateResult{ShouldProceed: true}
	if stats.Lowest/baseline.CurrentPrice < warnRatio {
		result.Warning = fmt.Sprintf("market lowest %.2f is under %.0f%% of the baseline price; possible size or bundle mismatch",
			stats.Lowest, warnRatio*100)
		v.logger.Warnf("[validator] %s: %s", baseline.ID, result.Warning)
	}
	return result
}
