package storage

import (
	"context"
	"errors"

	"pricing-optimizer/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("storage: not found")

// Store is the persistence surface the pipeline and API run against.
type Store interface {
	BaselineStore
	CompetitorStore
	ResultStore
	StatusStore
	Close() error
}

// BaselineStore manages merchant product baselines. Baselines are immutable
// once created and only ever soft-deleted.
type BaselineStore interface {
	CreateBaseline(ctx context.Context, b *models.ProductBaseline) error
	GetBaseline(ctx context.Context, id string) (*models.ProductBaseline, error)
	ListBaselines(ctx context.Context) ([]models.ProductBaseline, error)
	SoftDeleteBaseline(ctx context.Context, id string) error
}

// CompetitorStore manages the scraped competitor set and the legacy
// per-marketplace aggregate rows.
type CompetitorStore interface {
	// ReplaceCompetitors swaps the full competitor set and its aggregates
	// for a baseline in one transaction, so readers never observe a
	// partially-refreshed state.
	ReplaceCompetitors(ctx context.Context, baselineID string, products []models.CompetitorProduct, aggregates []models.MarketplaceAggregate) error
	ListCompetitors(ctx context.Context, baselineID string) ([]models.CompetitorProduct, error)
	ListAggregates(ctx context.Context, baselineID string) ([]models.MarketplaceAggregate, error)
}

// ResultStore appends pricing results; history is never rewritten.
type ResultStore interface {
	SavePricingResult(ctx context.Context, r *models.PricingResult) error
	LatestPricingResult(ctx context.Context, baselineID string) (*models.PricingResult, error)
}

// StatusStore keeps the single live processing-status row per baseline.
type StatusStore interface {
	// GetStatus returns ErrNotFound when no run was ever triggered.
	GetStatus(ctx context.Context, baselineID string) (*models.ProcessingStatus, error)
	// UpsertStatus is last-writer-wins by baseline_id.
	UpsertStatus(ctx context.Context, s *models.ProcessingStatus) error
}
