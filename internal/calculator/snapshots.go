package calculator

import (
	"attribution/internal/domain"
	"attribution/internal/util"
	"math"
	"sort"
	"strings"
	"time"
)

// NormalizeSnapshots drops malformed snapshots and merges duplicates so the
// output is unique per (ticker, date). Later duplicates win, but optional
// fields the later snapshot lacks are kept from the earlier one. Output is
// ordered by each ticker's first appearance, then by date.
func NormalizeSnapshots(in []domain.PositionSnapshot) ([]domain.PositionSnapshot, []domain.Warning) {
	warnings := []domain.Warning{}

	tickerOrder := []string{}
	seenTicker := map[string]bool{}
	merged := map[string]domain.PositionSnapshot{}

	for _, s := range in {
		s.Ticker = strings.TrimSpace(s.Ticker)
		s.Date = util.DateOnly(s.Date)

		if reason := malformedReason(s); reason != "" {
			warnings = append(warnings, domain.NewWarning(domain.MalformedSnapshotError{
				Ticker: s.Ticker,
				Date:   s.Date,
				Weight: s.Weight,
				Reason: reason,
			}))
			continue
		}

		if !seenTicker[s.Ticker] {
			seenTicker[s.Ticker] = true
			tickerOrder = append(tickerOrder, s.Ticker)
		}

		key := s.Key()
		if existing, ok := merged[key]; ok {
			s = mergeSnapshot(existing, s)
		}
		merged[key] = s
	}

	byTicker := map[string][]domain.PositionSnapshot{}
	for _, s := range merged {
		byTicker[s.Ticker] = append(byTicker[s.Ticker], s)
	}

	out := make([]domain.PositionSnapshot, 0, len(merged))
	for _, ticker := range tickerOrder {
		series := byTicker[ticker]
		sort.Slice(series, func(i, j int) bool {
			return series[i].Date.Before(series[j].Date)
		})
		out = append(out, series...)
	}

	return out, warnings
}

func malformedReason(s domain.PositionSnapshot) string {
	switch {
	case s.Ticker == "":
		return "empty ticker"
	case s.Date.IsZero():
		return "missing date"
	case math.IsNaN(s.Weight) || math.IsInf(s.Weight, 0):
		return "weight is not a number"
	case s.Weight < 0:
		return "negative weight"
	case s.ReturnPct != nil && (math.IsNaN(*s.ReturnPct) || math.IsInf(*s.ReturnPct, 0)):
		return "return is not a number"
	case s.Contribution != nil && (math.IsNaN(*s.Contribution) || math.IsInf(*s.Contribution, 0)):
		return "contribution is not a number"
	}
	return ""
}

func mergeSnapshot(existing, next domain.PositionSnapshot) domain.PositionSnapshot {
	if next.ReturnPct == nil {
		next.ReturnPct = existing.ReturnPct
	}
	if next.Contribution == nil {
		next.Contribution = existing.Contribution
	}
	if next.Sector == nil {
		next.Sector = existing.Sector
	}
	return next
}

// AlignToObservationDates gives each ticker a snapshot on every observation
// date from its first appearance on. A ticker missing from a later snapshot
// was not held on that date, so it gets an explicit zero weight. Input must be
// normalized.
func AlignToObservationDates(normalized []domain.PositionSnapshot) []domain.PositionSnapshot {
	dates := ObservationDates(normalized)
	order, series := groupByTicker(normalized)

	out := make([]domain.PositionSnapshot, 0, len(order)*len(dates))
	for _, ticker := range order {
		s := series[ticker]
		observed := map[string]domain.PositionSnapshot{}
		for _, x := range s {
			observed[util.DateKey(x.Date)] = x
		}
		first := s[0].Date
		for _, d := range dates {
			if d.Before(first) {
				continue
			}
			if x, ok := observed[util.DateKey(d)]; ok {
				out = append(out, x)
				continue
			}
			out = append(out, domain.PositionSnapshot{Ticker: ticker, Date: d})
		}
	}
	return out
}

// groupByTicker splits normalized snapshots into per-ticker series while
// keeping the first-appearance ticker order
func groupByTicker(snapshots []domain.PositionSnapshot) ([]string, map[string][]domain.PositionSnapshot) {
	order := []string{}
	out := map[string][]domain.PositionSnapshot{}
	for _, s := range snapshots {
		if _, ok := out[s.Ticker]; !ok {
			order = append(order, s.Ticker)
		}
		out[s.Ticker] = append(out[s.Ticker], s)
	}
	return order, out
}

// ObservationDates returns every distinct snapshot date in ascending order
func ObservationDates(snapshots []domain.PositionSnapshot) []time.Time {
	seen := map[string]bool{}
	dates := []time.Time{}
	for _, s := range snapshots {
		k := util.DateKey(s.Date)
		if !seen[k] {
			seen[k] = true
			dates = append(dates, s.Date)
		}
	}
	sort.Slice(dates, func(i, j int) bool {
		return dates[i].Before(dates[j])
	})
	return dates
}
