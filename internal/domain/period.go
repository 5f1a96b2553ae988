package domain

import (
	"fmt"
	"time"
)

// Period is the interval between two consecutive observed dates of one
// ticker's weight series
type Period struct {
	Start time.Time
	End   time.Time
}

func (p Period) String() string {
	return fmt.Sprintf("%s..%s", p.Start.Format(time.DateOnly), p.End.Format(time.DateOnly))
}

// Contains reports whether t falls in the closed interval [Start, End]
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End)
}

type PeriodResult struct {
	Ticker string
	Period Period
	// weight observed at Period.Start; contribution is computed from this
	BeginWeight float64
	// weight observed at Period.End
	EndWeight        float64
	RawReturn        float64
	FxAdjustedReturn float64
	Contribution     float64
	Sector           *string
	// true when return/contribution came from the snapshot instead of prices
	Precomputed bool
}

// Return is the base-currency return used for attribution
func (r PeriodResult) Return() float64 {
	return r.FxAdjustedReturn
}

// PeriodTotal sums every ticker's result for one period
type PeriodTotal struct {
	Period       Period
	WeightSum    float64
	Contribution float64
}

// RangeResult is one ticker's attribution over a queried range.
// Return is back-derived as Contribution / EndWeight, which is an
// approximation and not a geometrically compounded return. PriceReturn is the
// full-range price return when prices were available.
type RangeResult struct {
	Ticker       string
	Range        Period
	Contribution float64
	EndWeight    float64
	Return       float64
	PriceReturn  *float64
}
