package calculator

import (
	"attribution/internal/domain"
	"attribution/internal/util"
	"sort"
)

// AggregateByCalendar groups period results into the calendar bucket holding
// each period's end date. Every ticker gets a row for every bucket so callers
// can tell a gap from a zero: rows without data keep nil values and carry a
// Presence sentinel.
//
// For ticker T and bucket B:
//   - contribution is the sum of period contributions ending in B
//   - weight is the end weight of the last period ending in B
//   - return is sum(w_i * r_i) / sum(w_i) over beginning weights, 0 if sum(w_i) == 0
func AggregateByCalendar(results []domain.PeriodResult, g domain.Granularity) []domain.BucketResult {
	tickers := []string{}
	everHeld := map[string]bool{}
	byKey := map[domain.Bucket]map[string][]domain.PeriodResult{}
	buckets := []domain.Bucket{}

	for _, r := range results {
		if _, ok := everHeld[r.Ticker]; !ok {
			tickers = append(tickers, r.Ticker)
			everHeld[r.Ticker] = false
		}
		if r.BeginWeight > 0 || r.EndWeight > 0 {
			everHeld[r.Ticker] = true
		}

		b := domain.BucketFor(g, r.Period.End)
		if _, ok := byKey[b]; !ok {
			byKey[b] = map[string][]domain.PeriodResult{}
			buckets = append(buckets, b)
		}
		byKey[b][r.Ticker] = append(byKey[b][r.Ticker], r)
	}

	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Before(buckets[j])
	})

	out := make([]domain.BucketResult, 0, len(buckets)*len(tickers))
	for _, b := range buckets {
		for _, ticker := range tickers {
			out = append(out, aggregateBucket(b, ticker, byKey[b][ticker], everHeld[ticker]))
		}
	}

	return out
}

func aggregateBucket(b domain.Bucket, ticker string, periods []domain.PeriodResult, everHeld bool) domain.BucketResult {
	out := domain.BucketResult{
		Bucket:     b,
		Ticker:     ticker,
		NumPeriods: len(periods),
	}

	if len(periods) == 0 {
		out.Presence = absentPresence(everHeld)
		return out
	}

	sort.SliceStable(periods, func(i, j int) bool {
		return periods[i].Period.End.Before(periods[j].Period.End)
	})

	contribution := 0.0
	weightedReturn := 0.0
	weightSum := 0.0
	held := false
	for _, p := range periods {
		contribution += p.Contribution
		if p.BeginWeight > 0 {
			weightedReturn += p.BeginWeight * p.Return()
			weightSum += p.BeginWeight
		}
		if p.BeginWeight > 0 || p.EndWeight > 0 {
			held = true
		}
	}

	last := periods[len(periods)-1]
	out.Contribution = util.FloatPointer(contribution)
	out.Weight = util.FloatPointer(last.EndWeight)
	out.Return = util.FloatPointer(SafeDivide(weightedReturn, weightSum))
	out.Sector = last.Sector

	if held {
		out.Presence = domain.PresenceHeld
	} else {
		out.Presence = absentPresence(everHeld)
	}

	return out
}

func absentPresence(everHeld bool) domain.Presence {
	if everHeld {
		return domain.PresenceNoPositionThisBucket
	}
	return domain.PresenceFlatAbsent
}

// GroupByBucket splits bucket results per bucket, keeping bucket order
func GroupByBucket(results []domain.BucketResult) ([]domain.Bucket, map[domain.Bucket][]domain.BucketResult) {
	order := []domain.Bucket{}
	out := map[domain.Bucket][]domain.BucketResult{}
	for _, r := range results {
		if _, ok := out[r.Bucket]; !ok {
			order = append(order, r.Bucket)
		}
		out[r.Bucket] = append(out[r.Bucket], r)
	}
	return order, out
}

// BucketWindows returns the effective date span of each bucket. A bucket
// starts at the previous bucket's last period end, so consecutive windows
// chain without gaps; the first bucket starts at its earliest period start.
func BucketWindows(results []domain.PeriodResult, g domain.Granularity) []domain.BucketWindow {
	windows := map[domain.Bucket]*domain.BucketWindow{}
	buckets := []domain.Bucket{}
	for _, r := range results {
		b := domain.BucketFor(g, r.Period.End)
		w, ok := windows[b]
		if !ok {
			w = &domain.BucketWindow{Bucket: b, Start: r.Period.Start, End: r.Period.End}
			windows[b] = w
			buckets = append(buckets, b)
		}
		if r.Period.Start.Before(w.Start) {
			w.Start = r.Period.Start
		}
		if r.Period.End.After(w.End) {
			w.End = r.Period.End
		}
	}

	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Before(buckets[j])
	})

	out := make([]domain.BucketWindow, 0, len(buckets))
	for i, b := range buckets {
		w := *windows[b]
		if i > 0 {
			w.Start = out[i-1].End
		}
		out = append(out, w)
	}
	return out
}
