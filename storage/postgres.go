package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"pricing-optimizer/models"
)

// PostgresStore implements Store on PostgreSQL via sqlx.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore opens the connection, waits for the database to accept
// pings, runs schema migrations and returns a ready store.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	ps := &PostgresStore{db: db}
	if err := ps.migrate(); err != nil {
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return ps, nil
}

func (ps *PostgresStore) migrate() error {
	_, err := ps.db.Exec(`
		CREATE TABLE IF NOT EXISTS product_baselines (
			id               UUID PRIMARY KEY,
			product_name     TEXT          NOT NULL,
			category         VARCHAR(50)   NOT NULL,
			current_price    NUMERIC(12,2) NOT NULL,
			current_quantity INTEGER       NOT NULL,
			cost_per_unit    NUMERIC(12,2) NOT NULL,
			currency         VARCHAR(3)    NOT NULL,
			base_elasticity  NUMERIC(6,3)  NOT NULL,
			created_at       TIMESTAMPTZ   NOT NULL DEFAULT NOW(),
			deleted_at       TIMESTAMPTZ
		);

		CREATE TABLE IF NOT EXISTS competitor_products (
			id               BIGSERIAL PRIMARY KEY,
			baseline_id      UUID          NOT NULL REFERENCES product_baselines(id),
			marketplace      VARCHAR(100)  NOT NULL,
			product_name     TEXT          NOT NULL,
			price            NUMERIC(12,2) NOT NULL,
			similarity_score NUMERIC(5,4)  NOT NULL,
			price_ratio      NUMERIC(8,4)  NOT NULL,
			rank             INTEGER       NOT NULL,
			url              TEXT          NOT NULL DEFAULT '',
			scraped_at       TIMESTAMPTZ   NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS marketplace_aggregates (
			baseline_id  UUID          NOT NULL REFERENCES product_baselines(id),
			marketplace  VARCHAR(100)  NOT NULL,
			lowest       NUMERIC(12,2) NOT NULL,
			average      NUMERIC(12,2) NOT NULL,
			highest      NUMERIC(12,2) NOT NULL,
			updated_at   TIMESTAMPTZ   NOT NULL DEFAULT NOW(),
			PRIMARY KEY (baseline_id, marketplace)
		);

		CREATE TABLE IF NOT EXISTS pricing_results (
			id                      UUID PRIMARY KEY,
			baseline_id             UUID          NOT NULL REFERENCES product_baselines(id),
			optimal_price           NUMERIC(12,2) NOT NULL,
			suggested_price         NUMERIC(12,2) NOT NULL,
			inflation_rate          NUMERIC(8,5)  NOT NULL,
			inflation_adjustment    NUMERIC(12,2) NOT NULL,
			base_elasticity         NUMERIC(6,3)  NOT NULL,
			calibrated_elasticity   NUMERIC(8,5)  NOT NULL,
			competitor_factor       NUMERIC(8,4)  NOT NULL,
			market_lowest           NUMERIC(12,2) NOT NULL,
			market_average          NUMERIC(12,2) NOT NULL,
			market_highest          NUMERIC(12,2) NOT NULL,
			position_vs_market      VARCHAR(20)   NOT NULL,
			zone                    VARCHAR(2)    NOT NULL DEFAULT '',
			expected_monthly_profit NUMERIC(14,2) NOT NULL,
			profit_increase_amount  NUMERIC(14,2) NOT NULL,
			profit_increase_percent NUMERIC(10,2) NOT NULL,
			has_warning             BOOLEAN       NOT NULL DEFAULT FALSE,
			warning_message         TEXT          NOT NULL DEFAULT '',
			created_at              TIMESTAMPTZ   NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS processing_status (
			baseline_id   UUID PRIMARY KEY REFERENCES product_baselines(id),
			status        VARCHAR(20) NOT NULL,
			current_step  VARCHAR(40) NOT NULL DEFAULT '',
			error_message TEXT        NOT NULL DEFAULT '',
			updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_competitors_baseline ON competitor_products(baseline_id);
		CREATE INDEX IF NOT EXISTS idx_results_baseline     ON pricing_results(baseline_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_baselines_deleted    ON product_baselines(deleted_at);
	`)
	return err
}

// Close releases the connection pool.
func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}

func (ps *PostgresStore) CreateBaseline(ctx context.Context, b *models.ProductBaseline) error {
	_, err := ps.db.NamedExecContext(ctx, `
		INSERT INTO product_baselines (
			id, product_name, category, current_price, current_quantity,
			cost_per_unit, currency, base_elasticity, created_at
		) VALUES (
			:id, :product_name, :category, :current_price, :current_quantity,
			:cost_per_unit, :currency, :base_elasticity, :created_at
		)`, b)
	if err != nil {
		return fmt.Errorf("postgres: create baseline: %w", err)
	}
	return nil
}

func (ps *PostgresStore) GetBaseline(ctx context.Context, id string) (*models.ProductBaseline, error) {
	var b models.ProductBaseline
	err := ps.db.GetContext(ctx, &b, `
		SELECT * FROM product_baselines
		WHERE id = $1 AND deleted_at IS NULL`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get baseline: %w", err)
	}
	return &b, nil
}

func (ps *PostgresStore) ListBaselines(ctx context.Context) ([]models.ProductBaseline, error) {
	var out []models.ProductBaseline
	err := ps.db.SelectContext(ctx, &out, `
		SELECT * FROM product_baselines
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list baselines: %w", err)
	}
	return out, nil
}

func (ps *PostgresStore) SoftDeleteBaseline(ctx context.Context, id string) error {
	res, err := ps.db.ExecContext(ctx, `
		UPDATE product_baselines SET deleted_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("postgres: soft delete baseline: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceCompetitors swaps the competitor set and aggregates atomically so a
// concurrent reader sees either the old refresh or the new one, never a
// half-written window.
func (ps *PostgresStore) ReplaceCompetitors(ctx context.Context, baselineID string, products []models.CompetitorProduct, aggregates []models.MarketplaceAggregate) error {
	tx, err := ps.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM competitor_products WHERE baseline_id = $1`, baselineID); err != nil {
		return fmt.Errorf("postgres: clear competitors: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM marketplace_aggregates WHERE baseline_id = $1`, baselineID); err != nil {
		return fmt.Errorf("postgres: clear aggregates: %w", err)
	}

	for i := range products {
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO competitor_products (
				baseline_id, marketplace, product_name, price,
				similarity_score, price_ratio, rank, url, scraped_at
			) VALUES (
				:baseline_id, :marketplace, :product_name, :price,
				:similarity_score, :price_ratio, :rank, :url, :scraped_at
			)`, &products[i]); err != nil {
			return fmt.Errorf("postgres: insert competitor: %w", err)
		}
	}

	for i := range aggregates {
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO marketplace_aggregates (
				baseline_id, marketplace, lowest, average, highest, updated_at
			) VALUES (
				:baseline_id, :marketplace, :lowest, :average, :highest, :updated_at
			)`, &aggregates[i]); err != nil {
			return fmt.Errorf("postgres: insert aggregate: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit replace: %w", err)
	}
	return nil
}

func (ps *PostgresStore) ListCompetitors(ctx context.Context, baselineID string) ([]models.CompetitorProduct, error) {
	var out []models.CompetitorProduct
	err := ps.db.SelectContext(ctx, &out, `
		SELECT * FROM competitor_products
		WHERE baseline_id = $1
		ORDER BY marketplace, rank`, baselineID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list competitors: %w", err)
	}
	return out, nil
}

func (ps *PostgresStore) ListAggregates(ctx context.Context, baselineID string) ([]models.MarketplaceAggregate, error) {
	var out []models.MarketplaceAggregate
	err := ps.db.SelectContext(ctx, &out, `
		SELECT * FROM marketplace_aggregates
		WHERE baseline_id = $1
		ORDER BY marketplace`, baselineID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list aggregates: %w", err)
	}
	return out, nil
}

func (ps *PostgresStore) SavePricingResult(ctx context.Context, r *models.PricingResult) error {
	_, err := ps.db.NamedExecContext(ctx, `
		INSERT INTO pricing_results (
			id, baseline_id, optimal_price, suggested_price,
			inflation_rate, inflation_adjustment, base_elasticity,
			calibrated_elasticity, competitor_factor,
			market_lowest, market_average, market_highest,
			position_vs_market, zone, expected_monthly_profit,
			profit_increase_amount, profit_increase_percent,
			has_warning, warning_message, created_at
		) VALUES (
			:id, :baseline_id, :optimal_price, :suggested_price,
			:inflation_rate, :inflation_adjustment, :base_elasticity,
			:calibrated_elasticity, :competitor_factor,
			:market_lowest, :market_average, :market_highest,
			:position_vs_market, :zone, :expected_monthly_profit,
			:profit_increase_amount, :profit_increase_percent,
			:has_warning, :warning_message, :created_at
		)`, r)
	if err != nil {
		return fmt.Errorf("postgres: save pricing result: %w", err)
	}
	return nil
}

func (ps *PostgresStore) LatestPricingResult(ctx context.Context, baselineID string) (*models.PricingResult, error) {
	var r models.PricingResult
	err := ps.db.GetContext(ctx, &r, `
		SELECT * FROM pricing_results
		WHERE baseline_id = $1
		ORDER BY created_at DESC
		LIMIT 1`, baselineID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: latest pricing result: %w", err)
	}
	return &r, nil
}

func (ps *PostgresStore) GetStatus(ctx context.Context, baselineID string) (*models.ProcessingStatus, error) {
	var s models.ProcessingStatus
	err := ps.db.GetContext(ctx, &s, `
		SELECT * FROM processing_status WHERE baseline_id = $1`, baselineID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get status: %w", err)
	}
	return &s, nil
}

func (ps *PostgresStore) UpsertStatus(ctx context.Context, s *models.ProcessingStatus) error {
	_, err := ps.db.NamedExecContext(ctx, `
		INSERT INTO processing_status (baseline_id, status, current_step, error_message, updated_at)
		VALUES (:baseline_id, :status, :current_step, :error_message, :updated_at)
		ON CONFLICT (baseline_id) DO UPDATE SET
			status        = EXCLUDED.status,
			current_step  = EXCLUDED.current_step,
			error_message = EXCLUDED.error_message,
			updated_at    = EXCLUDED.updated_at`, s)
	if err != nil {
		return fmt.Errorf("postgres: upsert status: %w", err)
	}
	return nil
}
