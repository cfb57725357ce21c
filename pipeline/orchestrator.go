// Package pipeline sequences a baseline's pricing run: inflation fetch,
// competitor refresh, aggregation, validation and the pricing decision,
// with retry and degradation so a run almost always ends in a usable
// recommendation.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"pricing-optimizer/models"
	"pricing-optimizer/scraper"
	"pricing-optimizer/services"
	"pricing-optimizer/storage"
	"pricing-optimizer/utils"
)

// runTimeout bounds one detached pipeline run end to end.
const runTimeout = 10 * time.Minute

// CompetitorFetcher is the marketplace content adapter as the orchestrator
// sees it.
type CompetitorFetcher interface {
	FetchCompetitors(ctx context.Context, b *models.ProductBaseline) ([]models.CompetitorProduct, []scraper.FetchReport, error)
}

// Orchestrator drives the pricing state machine:
// pending → processing(fetching_inflation → fetching_competitors →
// calculating_price) → completed | failed.
type Orchestrator struct {
	store      storage.Store
	fetcher    CompetitorFetcher
	inflation  services.InflationProvider
	aggregator *services.Aggregator
	validator  *services.Validator
	engine     services.PricingEngine
	retry      *utils.RetryConfig
	logger     *utils.Logger
}

// New wires the orchestrator.
func New(
	store storage.Store,
	fetcher CompetitorFetcher,
	inflation services.InflationProvider,
	aggregator *services.Aggregator,
	validator *services.Validator,
	engine services.PricingEngine,
	retry *utils.RetryConfig,
	logger *utils.Logger,
) *Orchestrator {
	return &Orchestrator{
		store:      store,
		fetcher:    fetcher,
		inflation:  inflation,
		aggregator: aggregator,
		validator:  validator,
		engine:     engine,
		retry:      retry,
		logger:     logger,
	}
}

// Trigger starts a detached pricing run for the baseline and returns the
// status the caller should poll. A baseline with a live (non-terminal)
// status is not re-triggered; its current status comes back unchanged.
func (o *Orchestrator) Trigger(ctx context.Context, baselineID string) (*models.ProcessingStatus, error) {
	b, err := o.store.GetBaseline(ctx, baselineID)
	if err != nil {
		return nil, err
	}

	if existing, err := o.store.GetStatus(ctx, baselineID); err == nil {
		if !existing.Status.Terminal() {
			o.logger.Infof("[pipeline] %s: run already in flight (%s/%s), not re-triggering",
				baselineID, existing.Status, existing.CurrentStep)
			return existing, nil
		}
	} else if err != storage.ErrNotFound {
		return nil, err
	}

	status := &models.ProcessingStatus{
		BaselineID: baselineID,
		Status:     models.StatusPending,
		UpdatedAt:  time.Now(),
	}
	if err := o.store.UpsertStatus(ctx, status); err != nil {
		return nil, err
	}

	go o.run(b)
	return status, nil
}

// Status returns the live status for a baseline.
func (o *Orchestrator) Status(ctx context.Context, baselineID string) (*models.ProcessingStatus, error) {
	return o.store.GetStatus(ctx, baselineID)
}

// run executes the whole pipeline for one baseline. It owns its context:
// the triggering request has long since returned.
func (o *Orchestrator) run(b *models.ProductBaseline) {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			perr := &models.PipelineError{Step: "run", Err: fmt.Errorf("panic: %v", r)}
			o.logger.Errorf("[pipeline] %s: %v", b.ID, perr)
			o.setStatus(ctx, b.ID, models.StatusFailed, "", perr.Error())
		}
	}()

	o.logger.Infof("[pipeline] %s: starting run for %q (%s)", b.ID, b.ProductName, b.Currency)

	// Step 1: inflation. Provider errors degrade to the reference table.
	o.setStatus(ctx, b.ID, models.StatusProcessing, models.StepFetchingInflation, "")
	inflation, err := o.inflation.Rate(ctx, b.Currency)
	if err != nil {
		o.logger.Warnf("[pipeline] %s: inflation provider failed (%v), using reference rate", b.ID, err)
		inflation, _ = services.StaticInflationProvider{}.Rate(ctx, b.Currency)
	}

	// Step 2: competitor refresh, retried with linear backoff. Exhausted
	// retries degrade to whatever competitor data already exists.
	o.setStatus(ctx, b.ID, models.StatusProcessing, models.StepFetchingCompetitors, "")
	err = o.retry.Do(ctx, "competitor-refresh", func(ctx context.Context) error {
		products, reports, err := o.fetcher.FetchCompetitors(ctx, b)
		if err != nil {
			return err
		}
		for _, r := range reports {
			o.logger.Debugf("[pipeline] %s: %s -> %s (%d accepted)", b.ID, r.Marketplace, r.Status, r.Accepted)
		}
		return o.store.ReplaceCompetitors(ctx, b.ID, products, buildAggregates(b.ID, products))
	})
	if err != nil {
		o.logger.Warnf("[pipeline] %s: competitor refresh exhausted retries (%v), pricing with existing data", b.ID, err)
	}

	products, err := o.store.ListCompetitors(ctx, b.ID)
	if err != nil {
		o.fail(ctx, b.ID, models.StepFetchingCompetitors, err)
		return
	}
	aggregates, err := o.store.ListAggregates(ctx, b.ID)
	if err != nil {
		o.fail(ctx, b.ID, models.StepFetchingCompetitors, err)
		return
	}

	// Step 3: aggregate, gate, price.
	o.setStatus(ctx, b.ID, models.StatusProcessing, models.StepCalculatingPrice, "")
	stats := o.aggregator.Aggregate(products, aggregates)
	gate := o.validator.Check(stats, b)

	var result *models.PricingResult
	if !gate.ShouldProceed {
		qerr := &models.DataQualityError{Reason: gate.Reason}
		o.logger.Infof("[pipeline] %s: %v, keeping current price", b.ID, qerr)
		result = services.KeepCurrentPrice(b, stats, inflation, qerr.Error())
	} else {
		result = o.engine.Price(b, stats, inflation)
		if gate.Warning != "" {
			result.HasWarning = true
			if result.WarningMessage == "" {
				result.WarningMessage = gate.Warning
			} else {
				result.WarningMessage += "; " + gate.Warning
			}
		}
	}

	if err := o.store.SavePricingResult(ctx, result); err != nil {
		o.fail(ctx, b.ID, models.StepCalculatingPrice, err)
		return
	}

	o.setStatus(ctx, b.ID, models.StatusCompleted, "", "")
	o.logger.Infof("[pipeline] %s: completed, suggested price %.2f (warning=%v)",
		b.ID, result.SuggestedPrice, result.HasWarning)
}

func (o *Orchestrator) fail(ctx context.Context, baselineID, step string, err error) {
	perr := &models.PipelineError{Step: step, Err: err}
	o.logger.Errorf("[pipeline] %s: %v", baselineID, perr)
	o.setStatus(ctx, baselineID, models.StatusFailed, step, perr.Error())
}

func (o *Orchestrator) setStatus(ctx context.Context, baselineID string, status models.Status, step, errMsg string) {
	s := &models.ProcessingStatus{
		BaselineID:   baselineID,
		Status:       status,
		CurrentStep:  step,
		ErrorMessage: errMsg,
		UpdatedAt:    time.Now(),
	}
	if err := o.store.UpsertStatus(ctx, s); err != nil {
		o.logger.Errorf("[pipeline] %s: status write failed: %v", baselineID, err)
	}
}

// buildAggregates summarizes the fresh competitor set per marketplace. These
// rows back the aggregator's fallback path on later runs.
func buildAggregates(baselineID string, products []models.CompetitorProduct) []models.MarketplaceAggregate {
	byMarket := map[string][]float64{}
	for _, p := range products {
		byMarket[p.Marketplace] = append(byMarket[p.Marketplace], p.Price)
	}

	now := time.Now()
	var out []models.MarketplaceAggregate
	for market, prices := range byMarket {
		agg := models.MarketplaceAggregate{
			BaselineID:  baselineID,
			Marketplace: market,
			Lowest:      prices[0],
			Highest:     prices[0],
			UpdatedAt:   now,
		}
		var sum float64
		for _, p := range prices {
			sum += p
			if p < agg.Lowest {
				agg.Lowest = p
			}
			if p > agg.Highest {
				agg.Highest = p
			}
		}
		agg.Average = sum / float64(len(prices))
		out = append(out, agg)
	}
	return out
}
