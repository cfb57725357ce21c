package models

import "fmt"

// ValidationError marks a malformed baseline. The pipeline never starts.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid baseline: %s: %s", e.Field, e.Reason)
}

// UpstreamFetchError marks a failed scrape of a single marketplace. It is
// isolated to that marketplace and never fails the pipeline.
type UpstreamFetchError struct {
	Marketplace string
	Err         error
}

func (e *UpstreamFetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Marketplace, e.Err)
}

func (e *UpstreamFetchError) Unwrap() error { return e.Err }

// DataQualityError marks a market-data validation gate failure. The pipeline
// completes with a keep-current-price result and a warning.
type DataQualityError struct {
	Reason string
}

func (e *DataQualityError) Error() string {
	return "market data rejected: " + e.Reason
}

// PipelineError marks an unexpected defect during orchestration. The baseline
// transitions to failed with the captured message.
type PipelineError struct {
	Step string
	Err  error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline step %s: %v", e.Step, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }
