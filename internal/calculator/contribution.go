package calculator

import (
	"attribution/internal/domain"
	"math"
	"sort"
)

// weights below this are treated as zero when dividing
const weightEpsilon = 1e-9

// Contribution is beginning weight times period return, both fractions
func Contribution(beginWeight, periodReturn float64) float64 {
	return beginWeight * periodReturn
}

// SafeDivide resolves any division by a (near) zero denominator to 0
func SafeDivide(num, denom float64) float64 {
	if math.Abs(denom) < weightEpsilon {
		return 0
	}
	return num / denom
}

// RangeContribution sums a ticker's period contributions whose end date falls
// in rng. Weight can change between periods, so this is never
// weight * cumulative return.
func RangeContribution(results []domain.PeriodResult, ticker string, rng domain.Period) float64 {
	total := 0.0
	for _, r := range results {
		if r.Ticker == ticker && rng.Contains(r.Period.End) {
			total += r.Contribution
		}
	}
	return total
}

// RangeReturn back-derives a display return from a range contribution. This
// is an approximation and not a compounded return: with weights changing
// between periods a per-ticker compounded return is ill-defined.
func RangeReturn(totalContribution, endOfRangeWeight float64) float64 {
	return SafeDivide(totalContribution, endOfRangeWeight)
}

// CumulativeContributions builds one RangeResult per ticker (first-appearance
// order) for the periods ending inside rng
func CumulativeContributions(results []domain.PeriodResult, rng domain.Period) []domain.RangeResult {
	order := []string{}
	byTicker := map[string][]domain.PeriodResult{}
	for _, r := range results {
		if !rng.Contains(r.Period.End) {
			continue
		}
		if _, ok := byTicker[r.Ticker]; !ok {
			order = append(order, r.Ticker)
		}
		byTicker[r.Ticker] = append(byTicker[r.Ticker], r)
	}

	out := make([]domain.RangeResult, 0, len(order))
	for _, ticker := range order {
		periods := byTicker[ticker]
		sort.SliceStable(periods, func(i, j int) bool {
			return periods[i].Period.End.Before(periods[j].Period.End)
		})

		total := 0.0
		for _, p := range periods {
			total += p.Contribution
		}
		endWeight := periods[len(periods)-1].EndWeight

		out = append(out, domain.RangeResult{
			Ticker:       ticker,
			Range:        rng,
			Contribution: total,
			EndWeight:    endWeight,
			Return:       RangeReturn(total, endWeight),
		})
	}
	return out
}

// PeriodTotals sums weights and contributions across tickers for each
// distinct period and flags periods whose weights do not add up to 100%
func PeriodTotals(results []domain.PeriodResult) ([]domain.PeriodTotal, []domain.Warning) {
	order := []domain.Period{}
	totals := map[domain.Period]*domain.PeriodTotal{}
	for _, r := range results {
		t, ok := totals[r.Period]
		if !ok {
			t = &domain.PeriodTotal{Period: r.Period}
			totals[r.Period] = t
			order = append(order, r.Period)
		}
		t.WeightSum += r.BeginWeight
		t.Contribution += r.Contribution
	}

	sort.SliceStable(order, func(i, j int) bool {
		if !order[i].End.Equal(order[j].End) {
			return order[i].End.Before(order[j].End)
		}
		return order[i].Start.Before(order[j].Start)
	})

	out := make([]domain.PeriodTotal, 0, len(order))
	warnings := []domain.Warning{}
	for _, p := range order {
		t := totals[p]
		out = append(out, *t)
		if w := domain.CheckWeightSum("period "+p.String(), t.WeightSum); w != nil {
			warnings = append(warnings, *w)
		}
	}
	return out, warnings
}
