package domain

import "time"

// ReferenceKind names the lookups held by the market data cache
type ReferenceKind string

const (
	ReferencePrice  ReferenceKind = "price"
	ReferenceFx     ReferenceKind = "fx"
	ReferenceSector ReferenceKind = "sector"
	ReferenceBeta   ReferenceKind = "beta"
)

// ReferenceEntry is one cached lookup. Found is false for a remembered miss.
// Sector and beta are not dated and use the zero time.
type ReferenceEntry struct {
	Kind      ReferenceKind
	Symbol    string
	Date      time.Time
	Value     float64
	Text      string
	Found     bool
	FetchedAt time.Time
}
