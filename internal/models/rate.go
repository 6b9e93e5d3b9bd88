package models

import (
	"math"
	"time"
)

// RateResult is the outcome of scraping one source. Either the numeric
// fields are populated or Error is set, never both.
type RateResult struct {
	SourceID     string  `json:"source_id"`
	InterestRate float64 `json:"interest_rate"`
	APR          float64 `json:"apr"`
	Points       string  `json:"points"`
	Timestamp    string  `json:"timestamp"`
	Error        string  `json:"error,omitempty"`
}

func NewRateResult(sourceID string, rate, apr float64, points, timestamp string) RateResult {
	if timestamp == "" {
		timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	return RateResult{
		SourceID:     sourceID,
		InterestRate: rate,
		APR:          apr,
		Points:       points,
		Timestamp:    timestamp,
	}
}

// NewFailedResult builds the sentinel result: error set, numeric fields zero.
func NewFailedResult(sourceID string, err error) RateResult {
	msg := "unknown extraction error"
	if err != nil {
		msg = err.Error()
	}
	return RateResult{
		SourceID:  sourceID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Error:     msg,
	}
}

func (r RateResult) Failed() bool {
	return r.Error != ""
}

func (r RateResult) Validate() []string {
	var errors []string

	if r.SourceID == "" {
		errors = append(errors, "source_id is required")
	}

	if r.Failed() {
		if r.InterestRate != 0 || r.APR != 0 {
			errors = append(errors, "failed result must not carry rates")
		}
		return errors
	}

	if !finite(r.InterestRate) {
		errors = append(errors, "interest_rate must be finite")
	} else if r.InterestRate <= 0 {
		errors = append(errors, "interest_rate must be positive")
	}

	if !finite(r.APR) {
		errors = append(errors, "apr must be finite")
	} else if r.APR <= 0 {
		errors = append(errors, "apr must be positive")
	}

	return errors
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
