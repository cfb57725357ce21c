package models

import "time"

// PricingResult is one completed pricing run. Append-only history.
type PricingResult struct {
	ID                    string    `db:"id" json:"id"`
	BaselineID            string    `db:"baseline_id" json:"baseline_id"`
	OptimalPrice          float64   `db:"optimal_price" json:"optimal_price"`
	SuggestedPrice        float64   `db:"suggested_price" json:"suggested_price"`
	InflationRate         float64   `db:"inflation_rate" json:"inflation_rate"`
	InflationAdjustment   float64   `db:"inflation_adjustment" json:"inflation_adjustment"`
	BaseElasticity        float64   `db:"base_elasticity" json:"base_elasticity"`
	CalibratedElasticity  float64   `db:"calibrated_elasticity" json:"calibrated_elasticity"`
	CompetitorFactor      float64   `db:"competitor_factor" json:"competitor_factor"`
	MarketLowest          float64   `db:"market_lowest" json:"market_lowest"`
	MarketAverage         float64   `db:"market_average" json:"market_average"`
	MarketHighest         float64   `db:"market_highest" json:"market_highest"`
	PositionVsMarket      string    `db:"position_vs_market" json:"position_vs_market"`
	Zone                  string    `db:"zone" json:"zone"`
	ExpectedMonthlyProfit float64   `db:"expected_monthly_profit" json:"expected_monthly_profit"`
	ProfitIncreaseAmount  float64   `db:"profit_increase_amount" json:"profit_increase_amount"`
	ProfitIncreasePercent float64   `db:"profit_increase_percent" json:"profit_increase_percent"`
	HasWarning            bool      `db:"has_warning" json:"has_warning"`
	WarningMessage        string    `db:"warning_message" json:"warning_message"`
	CreatedAt             time.Time `db:"created_at" json:"created_at"`
}

// Status is the pipeline state for one baseline.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the status allows a new run to be triggered.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Pipeline step names surfaced through the status endpoint.
const (
	StepFetchingInflation   = "fetching_inflation"
	StepFetchingCompetitors = "fetching_competitors"
	StepCalculatingPrice    = "calculating_price"
)

// ProcessingStatus is the single live status record per baseline,
// overwritten in place (last-writer-wins upsert).
type ProcessingStatus struct {
	BaselineID   string    `db:"baseline_id" json:"baseline_id"`
	Status       Status    `db:"status" json:"status"`
	CurrentStep  string    `db:"current_step" json:"current_step"`
	ErrorMessage string    `db:"error_message" json:"error_message"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
