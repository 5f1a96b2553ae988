package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrPriceNotFound     = errors.New("price not found")
	ErrNoAttributionData = errors.New("no attribution data")
)

// AggregationTolerance is how far (as a fraction) summed weights may drift
// from 100% before an AggregationMismatch is reported. 0.001 == 0.1 points.
const AggregationTolerance = 0.001

// DataGapError means a price or FX rate was missing for a required date and no
// earlier value could be carried forward. The ticker is excluded from that
// period only.
type DataGapError struct {
	Ticker string
	Period Period
	Date   time.Time
	Kind   string
	Err    error
}

func (e DataGapError) Error() string {
	return fmt.Sprintf("missing %s for %s on %s (period %s): %v", e.Kind, e.Ticker, e.Date.Format(time.DateOnly), e.Period, e.Err)
}

func (e DataGapError) Unwrap() error {
	return e.Err
}

// MalformedSnapshotError means a snapshot was dropped during normalization
type MalformedSnapshotError struct {
	Ticker string
	Date   time.Time
	Weight float64
	Reason string
}

func (e MalformedSnapshotError) Error() string {
	return fmt.Sprintf("dropped snapshot %s on %s (weight %v): %s", e.Ticker, e.Date.Format(time.DateOnly), e.Weight, e.Reason)
}

// AggregationMismatch means summed weights deviate from 100% beyond
// AggregationTolerance. It never blocks rendering.
type AggregationMismatch struct {
	Scope     string
	WeightSum float64
}

func (e AggregationMismatch) Error() string {
	return fmt.Sprintf("weights for %s sum to %.4f%%, expected 100%%", e.Scope, e.WeightSum*100)
}

type WarningKind string

const (
	WarningDataGap             WarningKind = "DATA_GAP"
	WarningMalformedSnapshot   WarningKind = "MALFORMED_SNAPSHOT"
	WarningAggregationMismatch WarningKind = "AGGREGATION_MISMATCH"
	WarningOther               WarningKind = "OTHER"
)

// Warning is a non-fatal condition recorded in result metadata
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Ticker  string      `json:"ticker,omitempty"`
	Message string      `json:"message"`
	Err     error       `json:"-"`
}

func NewWarning(err error) Warning {
	w := Warning{
		Kind:    WarningOther,
		Message: err.Error(),
		Err:     err,
	}

	var gap DataGapError
	var malformed MalformedSnapshotError
	var mismatch AggregationMismatch
	switch {
	case errors.As(err, &gap):
		w.Kind = WarningDataGap
		w.Ticker = gap.Ticker
	case errors.As(err, &malformed):
		w.Kind = WarningMalformedSnapshot
		w.Ticker = malformed.Ticker
	case errors.As(err, &mismatch):
		w.Kind = WarningAggregationMismatch
	}

	return w
}

// CheckWeightSum returns a warning when sum is outside the tolerance around 1
func CheckWeightSum(scope string, sum float64) *Warning {
	diff := sum - 1
	if diff < 0 {
		diff = -diff
	}
	if diff <= AggregationTolerance {
		return nil
	}
	w := NewWarning(AggregationMismatch{Scope: scope, WeightSum: sum})
	return &w
}
