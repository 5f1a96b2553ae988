package domain

import (
	"fmt"
	"time"
)

// PositionSnapshot is one observed weight for a ticker on a rebalancing date.
// Weight is a decimal fraction (0.25 == 25%). ReturnPct and Contribution are
// only set for snapshots that were already resolved upstream, and they describe
// the period that starts on Date.
type PositionSnapshot struct {
	Ticker       string
	Date         time.Time
	Weight       float64
	ReturnPct    *float64
	Contribution *float64
	Sector       *string
}

func (s PositionSnapshot) Key() string {
	return fmt.Sprintf("%s_%s", s.Ticker, s.Date.Format(time.DateOnly))
}

// AssetPrice is a single close (or NAV) observation
type AssetPrice struct {
	Symbol string
	Price  float64
	Date   time.Time
}
