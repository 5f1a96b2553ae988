package domain

import (
	"fmt"
	"strings"
	"time"
)

type Granularity int

const (
	Month Granularity = iota
	Quarter
	YTD
)

func (g Granularity) String() string {
	switch g {
	case Month:
		return "month"
	case Quarter:
		return "quarter"
	case YTD:
		return "ytd"
	default:
		panic(fmt.Sprintf("unknown granularity %d", g))
	}
}

// PeriodsPerYear is used to annualize per-bucket statistics
func (g Granularity) PeriodsPerYear() float64 {
	switch g {
	case Month:
		return 12
	case Quarter:
		return 4
	default:
		return 1
	}
}

func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "month", "monthly", "m":
		return Month, nil
	case "quarter", "quarterly", "q":
		return Quarter, nil
	case "ytd", "year", "yearly", "y":
		return YTD, nil
	default:
		return Month, fmt.Errorf("unknown granularity %s", s)
	}
}

func (g Granularity) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

func (g *Granularity) UnmarshalText(b []byte) error {
	parsed, err := ParseGranularity(string(b))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

// Bucket is a calendar-aligned aggregation window. Index is the month (1-12)
// or the quarter (1-4); it is 0 for YTD.
type Bucket struct {
	Granularity Granularity
	Year        int
	Index       int
}

func BucketFor(g Granularity, t time.Time) Bucket {
	switch g {
	case Month:
		return Bucket{Granularity: g, Year: t.Year(), Index: int(t.Month())}
	case Quarter:
		return Bucket{Granularity: g, Year: t.Year(), Index: (int(t.Month())-1)/3 + 1}
	default:
		return Bucket{Granularity: YTD, Year: t.Year()}
	}
}

// Start is the first calendar day of the bucket
func (b Bucket) Start() time.Time {
	switch b.Granularity {
	case Month:
		return time.Date(b.Year, time.Month(b.Index), 1, 0, 0, 0, 0, time.UTC)
	case Quarter:
		return time.Date(b.Year, time.Month((b.Index-1)*3+1), 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(b.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
}

// End is the last calendar day of the bucket
func (b Bucket) End() time.Time {
	switch b.Granularity {
	case Month:
		return b.Start().AddDate(0, 1, -1)
	case Quarter:
		return b.Start().AddDate(0, 3, -1)
	default:
		return time.Date(b.Year, time.December, 31, 0, 0, 0, 0, time.UTC)
	}
}

func (b Bucket) Contains(t time.Time) bool {
	return BucketFor(b.Granularity, t) == b
}

func (b Bucket) Before(other Bucket) bool {
	if b.Year != other.Year {
		return b.Year < other.Year
	}
	return b.Index < other.Index
}

func (b Bucket) Label() string {
	switch b.Granularity {
	case Month:
		return fmt.Sprintf("%s %d", time.Month(b.Index).String()[:3], b.Year)
	case Quarter:
		return fmt.Sprintf("Q%d %d", b.Index, b.Year)
	default:
		return fmt.Sprintf("YTD %d", b.Year)
	}
}

func (b Bucket) String() string {
	return b.Label()
}

// Presence tells apart the reasons a bucket row can render as 0.00%
type Presence string

const (
	// at least one period ending in the bucket has a non-zero weight
	PresenceHeld Presence = "held"
	// no data (or only zero weights) in this bucket, non-zero weight elsewhere in the range
	PresenceNoPositionThisBucket Presence = "no position this bucket"
	// zero weight across the entire range
	PresenceFlatAbsent Presence = "flat/absent"
)

// BucketResult is one ticker's aggregate for one bucket. Contribution, Weight
// and Return are nil when the ticker has no period ending in the bucket, which
// is different from a legitimately zero value.
type BucketResult struct {
	Bucket       Bucket
	Ticker       string
	Contribution *float64
	Weight       *float64
	Return       *float64
	NumPeriods   int
	Presence     Presence
	Sector       *string
}

func (b BucketResult) HasData() bool {
	return b.NumPeriods > 0
}

func (b BucketResult) ContributionValue() float64 {
	return valueOrZero(b.Contribution)
}

func (b BucketResult) WeightValue() float64 {
	return valueOrZero(b.Weight)
}

func (b BucketResult) ReturnValue() float64 {
	return valueOrZero(b.Return)
}

// BucketWindow is the effective date span covered by a bucket's periods. Start
// is the previous bucket's last period end when there is one.
type BucketWindow struct {
	Bucket Bucket
	Start  time.Time
	End    time.Time
}

func valueOrZero(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
