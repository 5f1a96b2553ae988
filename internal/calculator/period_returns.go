package calculator

import (
	"attribution/internal/domain"
	"attribution/internal/util"
	"errors"
	"fmt"
	"sort"
	"time"
)

// PriceFunc returns the close price of ticker on date, or an error wrapping
// domain.ErrPriceNotFound
type PriceFunc func(ticker string, date time.Time) (float64, error)

// FxFunc returns how many units of base one unit of quote buys on date
type FxFunc func(base, quote string, date time.Time) (float64, error)

type Options struct {
	Rules domain.CurrencyRules
	// calendar days to step back when a price is missing on the requested date
	CarryForwardDays int
	// ticker -> date key -> NAV. NAV tickers are priced from this series and
	// never FX adjusted.
	Nav map[string]map[string]float64
}

func DefaultOptions() Options {
	return Options{
		Rules:            domain.DefaultCurrencyRules(),
		CarryForwardDays: util.DefaultCarryForwardDays,
	}
}

type PeriodReturnsResult struct {
	Results  []domain.PeriodResult
	Warnings []domain.Warning
}

// ComputePeriodReturns walks every ticker's weight series and computes the raw
// and FX adjusted return plus the contribution of each consecutive pair of
// portfolio observation dates. A ticker absent from a snapshot weighs 0 there.
// Missing market data only excludes the affected ticker/period; it never
// aborts the other tickers.
func ComputePeriodReturns(snapshots []domain.PositionSnapshot, priceFn PriceFunc, fxFn FxFunc, opts Options) PeriodReturnsResult {
	normalized, warnings := NormalizeSnapshots(snapshots)
	resolver := newPriceResolver(priceFn, fxFn, opts)

	results := []domain.PeriodResult{}
	order, series := groupByTicker(AlignToObservationDates(normalized))
	for _, ticker := range order {
		s := series[ticker]
		for i := 1; i < len(s); i++ {
			result, err := periodResult(s[i-1], s[i], resolver)
			if err != nil {
				warnings = append(warnings, domain.NewWarning(err))
				continue
			}
			results = append(results, *result)
		}
	}

	return PeriodReturnsResult{
		Results:  results,
		Warnings: warnings,
	}
}

func periodResult(begin, end domain.PositionSnapshot, resolver *priceResolver) (*domain.PeriodResult, error) {
	period := domain.Period{Start: begin.Date, End: end.Date}
	sector := begin.Sector
	if sector == nil {
		sector = end.Sector
	}
	out := &domain.PeriodResult{
		Ticker:      begin.Ticker,
		Period:      period,
		BeginWeight: begin.Weight,
		EndWeight:   end.Weight,
		Sector:      sector,
	}

	// hard override: cash never earns a return, whatever was supplied
	if resolver.opts.Rules.IsCash(begin.Ticker) {
		return out, nil
	}

	if begin.ReturnPct != nil || begin.Contribution != nil {
		out.Precomputed = true
		switch {
		case begin.ReturnPct != nil:
			out.RawReturn = *begin.ReturnPct
		case begin.Weight != 0:
			out.RawReturn = *begin.Contribution / begin.Weight
		}
		out.FxAdjustedReturn = out.RawReturn
		out.Contribution = Contribution(begin.Weight, out.FxAdjustedReturn)
		if begin.Contribution != nil {
			out.Contribution = *begin.Contribution
		}
		return out, nil
	}

	// nothing held over the period, so no market data is needed
	if begin.Weight == 0 {
		return out, nil
	}

	raw, fxAdjusted, err := resolver.periodReturn(begin.Ticker, period)
	if err != nil {
		return nil, err
	}
	out.RawReturn = raw
	out.FxAdjustedReturn = fxAdjusted
	out.Contribution = Contribution(begin.Weight, fxAdjusted)

	return out, nil
}

// RangePriceReturns computes the FX adjusted price return of each ticker over
// the whole range. Cash is always 0. Tickers without usable prices are left
// out of the map and flagged.
func RangePriceReturns(tickers []string, rng domain.Period, priceFn PriceFunc, fxFn FxFunc, opts Options) (map[string]float64, []domain.Warning) {
	resolver := newPriceResolver(priceFn, fxFn, opts)
	out := map[string]float64{}
	warnings := []domain.Warning{}
	for _, ticker := range tickers {
		if opts.Rules.IsCash(ticker) {
			out[ticker] = 0
			continue
		}
		_, fxAdjusted, err := resolver.periodReturn(ticker, rng)
		if err != nil {
			warnings = append(warnings, domain.NewWarning(err))
			continue
		}
		out[ticker] = fxAdjusted
	}
	return out, warnings
}

// ComputeBenchmarkReturns reports each benchmark's return between consecutive
// observation dates. Benchmarks are not FX adjusted; the FX benchmark reports
// the base/foreign rate return itself.
func ComputeBenchmarkReturns(dates []time.Time, benchmarks []domain.Benchmark, priceFn PriceFunc, fxFn FxFunc, opts Options) ([]domain.BenchmarkReturn, []domain.Warning) {
	resolver := newPriceResolver(priceFn, fxFn, opts)
	out := []domain.BenchmarkReturn{}
	warnings := []domain.Warning{}

	for _, b := range benchmarks {
		for i := 1; i < len(dates); i++ {
			period := domain.Period{Start: dates[i-1], End: dates[i]}
			ret := domain.BenchmarkReturn{
				Name:   b.Name,
				Ticker: b.Ticker,
				Period: period,
			}

			var (
				r   float64
				err error
			)
			if b.IsFx {
				r, err = resolver.fxReturn(b.Name, opts.Rules.ForeignCurrency, period)
			} else {
				r, err = resolver.rawReturn(b.Ticker, period)
			}
			if err != nil {
				warnings = append(warnings, domain.NewWarning(err))
			} else {
				ret.Return = &r
			}
			out = append(out, ret)
		}
	}

	return out, warnings
}

type priceResolver struct {
	priceFn PriceFunc
	fxFn    FxFunc
	opts    Options

	// ticker -> date key -> resolved value, includes carried values
	prices map[string]map[string]float64
	fx     map[string]map[string]float64
	// sorted NAV dates per ticker
	navDates map[string][]time.Time
}

func newPriceResolver(priceFn PriceFunc, fxFn FxFunc, opts Options) *priceResolver {
	navDates := map[string][]time.Time{}
	for ticker, series := range opts.Nav {
		dates := []time.Time{}
		for k := range series {
			d, err := util.ParseDate(k)
			if err != nil {
				continue
			}
			dates = append(dates, d)
		}
		sort.Slice(dates, func(i, j int) bool {
			return dates[i].Before(dates[j])
		})
		navDates[ticker] = dates
	}

	return &priceResolver{
		priceFn:  priceFn,
		fxFn:     fxFn,
		opts:     opts,
		prices:   map[string]map[string]float64{},
		fx:       map[string]map[string]float64{},
		navDates: navDates,
	}
}

func (r *priceResolver) isNav(ticker string) bool {
	_, ok := r.opts.Nav[ticker]
	return ok
}

// periodReturn returns the raw and base-currency return of ticker over period
func (r *priceResolver) periodReturn(ticker string, period domain.Period) (float64, float64, error) {
	raw, err := r.rawReturn(ticker, period)
	if err != nil {
		return 0, 0, err
	}
	if r.isNav(ticker) || r.opts.Rules.IsDomestic(ticker) {
		return raw, raw, nil
	}

	fxReturn, err := r.fxReturn(ticker, r.opts.Rules.QuoteCurrency(ticker), period)
	if err != nil {
		return 0, 0, err
	}
	return raw, (1+raw)*(1+fxReturn) - 1, nil
}

func (r *priceResolver) rawReturn(ticker string, period domain.Period) (float64, error) {
	start, err := r.price(ticker, period.Start)
	if err != nil {
		return 0, domain.DataGapError{Ticker: ticker, Period: period, Date: period.Start, Kind: "price", Err: err}
	}
	end, err := r.price(ticker, period.End)
	if err != nil {
		return 0, domain.DataGapError{Ticker: ticker, Period: period, Date: period.End, Kind: "price", Err: err}
	}
	if start == 0 {
		return 0, domain.DataGapError{Ticker: ticker, Period: period, Date: period.Start, Kind: "price", Err: fmt.Errorf("zero price")}
	}
	return end/start - 1, nil
}

// fxReturn is the return of the quote currency expressed in the base currency.
// label is only used to identify the gap in warnings.
func (r *priceResolver) fxReturn(label, quote string, period domain.Period) (float64, error) {
	base := r.opts.Rules.BaseCurrency
	if quote == base {
		return 0, nil
	}
	start, err := r.fxRate(quote, period.Start)
	if err != nil {
		return 0, domain.DataGapError{Ticker: label, Period: period, Date: period.Start, Kind: "fx rate " + quote + base, Err: err}
	}
	end, err := r.fxRate(quote, period.End)
	if err != nil {
		return 0, domain.DataGapError{Ticker: label, Period: period, Date: period.End, Kind: "fx rate " + quote + base, Err: err}
	}
	if start == 0 {
		return 0, domain.DataGapError{Ticker: label, Period: period, Date: period.Start, Kind: "fx rate " + quote + base, Err: fmt.Errorf("zero rate")}
	}
	return end/start - 1, nil
}

func (r *priceResolver) price(ticker string, date time.Time) (float64, error) {
	if p, ok := r.navPrice(ticker, date); ok {
		return p, nil
	}
	lookup := func(t time.Time) (float64, error) {
		if r.priceFn == nil {
			return 0, domain.ErrPriceNotFound
		}
		return r.priceFn(ticker, t)
	}
	return r.resolve(r.prices, ticker, date, lookup)
}

func (r *priceResolver) fxRate(quote string, date time.Time) (float64, error) {
	base := r.opts.Rules.BaseCurrency
	lookup := func(t time.Time) (float64, error) {
		if r.fxFn == nil {
			return 0, domain.ErrPriceNotFound
		}
		return r.fxFn(base, quote, t)
	}
	return r.resolve(r.fx, quote+base, date, lookup)
}

func (r *priceResolver) navPrice(ticker string, date time.Time) (float64, bool) {
	series, ok := r.opts.Nav[ticker]
	if !ok {
		return 0, false
	}
	if nav, ok := series[util.DateKey(date)]; ok {
		return nav, true
	}
	dates := r.navDates[ticker]
	for i := len(dates) - 1; i >= 0; i-- {
		if !dates[i].After(date) {
			return series[util.DateKey(dates[i])], true
		}
	}
	return 0, false
}

// resolve looks the value up on date, then steps back one calendar day at a
// time up to CarryForwardDays, then falls back to the most recent value
// already resolved for an earlier date. Failures are not memoized.
func (r *priceResolver) resolve(memo map[string]map[string]float64, key string, date time.Time, lookup func(time.Time) (float64, error)) (float64, error) {
	if _, ok := memo[key]; !ok {
		memo[key] = map[string]float64{}
	}
	values := memo[key]
	if v, ok := values[util.DateKey(date)]; ok {
		return v, nil
	}

	var firstErr error
	for back := 0; back <= r.opts.CarryForwardDays; back++ {
		v, err := lookup(date.AddDate(0, 0, -back))
		if err == nil {
			values[util.DateKey(date)] = v
			return v, nil
		}
		if firstErr == nil {
			firstErr = err
		}
		// only a plain miss is worth retrying on an earlier day
		if !errors.Is(err, domain.ErrPriceNotFound) {
			break
		}
	}

	if v, ok := latestBefore(values, date); ok {
		values[util.DateKey(date)] = v
		return v, nil
	}

	return 0, fmt.Errorf("no value on or before %s: %w", util.DateKey(date), firstErr)
}

func latestBefore(values map[string]float64, date time.Time) (float64, bool) {
	target := util.DateKey(date)
	best := ""
	for k := range values {
		if k < target && k > best {
			best = k
		}
	}
	if best == "" {
		return 0, false
	}
	return values[best], true
}
