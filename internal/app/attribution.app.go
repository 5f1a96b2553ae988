package app

import (
	"attribution/internal/calculator"
	"attribution/internal/domain"
	"attribution/internal/logger"
	"attribution/internal/service"
	"attribution/internal/util"
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

type AttributionHandler struct {
	MarketDataService service.MarketDataService
	Options           calculator.Options
	TopN              int
	IncludeBenchmarks bool
	Benchmarks        []domain.Benchmark
}

func NewAttributionHandler(marketDataService service.MarketDataService, cfg *util.Config) AttributionHandler {
	opts := calculator.DefaultOptions()
	opts.Rules = domain.CurrencyRules{
		BaseCurrency:     cfg.Currency.Base,
		ForeignCurrency:  cfg.Currency.Foreign,
		CashTicker:       cfg.Currency.CashTicker,
		DomesticSuffixes: cfg.Currency.DomesticSuffixes,
		DomesticTickers:  cfg.Currency.DomesticTickers,
	}
	opts.CarryForwardDays = cfg.Attribution.CarryForwardDays

	return AttributionHandler{
		MarketDataService: marketDataService,
		Options:           opts,
		TopN:              cfg.Attribution.TopN,
		IncludeBenchmarks: cfg.Attribution.IncludeBenchmarks,
		Benchmarks:        domain.DefaultBenchmarks(),
	}
}

type AttributionInput struct {
	Snapshots []domain.PositionSnapshot
	// ticker -> date key -> NAV
	Nav map[string]map[string]float64
	// defaults to month, quarter and ytd
	Granularities []domain.Granularity
	// defaults to the first and last observation dates
	Start *time.Time
	End   *time.Time
	// overrides the handler's TopN when > 0
	TopN              int
	IncludeBenchmarks bool
}

type GranularityReport struct {
	Granularity domain.Granularity
	Buckets     []domain.BucketResult
	Windows     []domain.BucketWindow
	Rankings    []domain.RankingOutput
	Risk        domain.RiskMetricsResult
}

type AttributionReport struct {
	ReportID      uuid.UUID
	Range         domain.Period
	Periods       []domain.PeriodResult
	PeriodTotals  []domain.PeriodTotal
	Granularities []GranularityReport
	Cumulative    []domain.RangeResult
	Benchmarks    []domain.BenchmarkReturn
	Warnings      []domain.Warning
	Profile       *domain.Profile
}

func (r AttributionReport) Granularity(g domain.Granularity) *GranularityReport {
	for i := range r.Granularities {
		if r.Granularities[i].Granularity == g {
			return &r.Granularities[i]
		}
	}
	return nil
}

// Attribute runs the whole pipeline for one set of snapshots: period
// returns, calendar buckets, rankings, risk metrics and range totals. Data
// problems become warnings on the report; only a range without a single
// usable period returns domain.ErrNoAttributionData.
func (h AttributionHandler) Attribute(ctx context.Context, in AttributionInput) (*AttributionReport, error) {
	log := logger.FromContext(ctx)
	profile := domain.ProfileFromContext(ctx)
	defer profile.End()

	normalized, _ := calculator.NormalizeSnapshots(in.Snapshots)
	dates := calculator.ObservationDates(normalized)
	if len(dates) == 0 {
		return nil, fmt.Errorf("%w: no valid snapshots", domain.ErrNoAttributionData)
	}

	rng := domain.Period{Start: dates[0], End: dates[len(dates)-1]}
	if in.Start != nil {
		rng.Start = util.DateOnly(*in.Start)
	}
	if in.End != nil {
		rng.End = util.DateOnly(*in.End)
	}
	if rng.End.Before(rng.Start) {
		return nil, fmt.Errorf("range end %s is before start %s", util.DateKey(rng.End), util.DateKey(rng.Start))
	}

	snapshots := []domain.PositionSnapshot{}
	for _, s := range in.Snapshots {
		if rng.Contains(util.DateOnly(s.Date)) {
			snapshots = append(snapshots, s)
		}
	}

	opts := h.Options
	opts.Nav = in.Nav
	topN := h.TopN
	if in.TopN > 0 {
		topN = in.TopN
	}
	granularities := in.Granularities
	if len(granularities) == 0 {
		granularities = []domain.Granularity{domain.Month, domain.Quarter, domain.YTD}
	}
	var benchmarks []domain.Benchmark
	if in.IncludeBenchmarks || h.IncludeBenchmarks {
		benchmarks = h.Benchmarks
	}

	snapshots = h.fillSectors(ctx, snapshots)
	inRange, _ := calculator.NormalizeSnapshots(snapshots)
	tickers := tickersOf(inRange)

	profile.StartSpan("prefetch")
	err := h.MarketDataService.Prefetch(ctx, h.prefetchRequests(tickers, opts, benchmarks), rng.Start, rng.End)
	if err != nil {
		log.Warnf("prefetch incomplete, falling back to per-date lookups: %s", err.Error())
	}

	priceFn := h.MarketDataService.PriceFunc(ctx)
	fxFn := h.MarketDataService.FxFunc(ctx)

	profile.StartSpan("period returns")
	periods := calculator.ComputePeriodReturns(snapshots, priceFn, fxFn, opts)
	warnings := periods.Warnings
	if len(periods.Results) == 0 {
		return nil, fmt.Errorf("%w for %s (%d warnings)", domain.ErrNoAttributionData, rng, len(warnings))
	}

	totals, totalWarnings := calculator.PeriodTotals(periods.Results)
	warnings = append(warnings, totalWarnings...)

	report := &AttributionReport{
		ReportID:      uuid.New(),
		Range:         rng,
		Periods:       periods.Results,
		PeriodTotals:  totals,
		Granularities: []GranularityReport{},
		Profile:       profile,
	}

	profile.StartSpan("buckets")

	for _, g := range granularities {
		buckets := calculator.AggregateByCalendar(periods.Results, g)
		rankings := calculator.RankAll(buckets, topN)
		for _, r := range rankings {
			warnings = append(warnings, r.Warnings...)
		}
		risk := calculator.CalculateRiskMetrics(buckets)
		if g == domain.Month {
			for _, t := range risk.Tickers {
				h.MarketDataService.SetBeta(ctx, t.Ticker, t.Beta)
			}
		}

		report.Granularities = append(report.Granularities, GranularityReport{
			Granularity: g,
			Buckets:     buckets,
			Windows:     calculator.BucketWindows(periods.Results, g),
			Rankings:    rankings,
			Risk:        risk,
		})
	}

	profile.StartSpan("range totals")
	report.Cumulative = calculator.CumulativeContributions(periods.Results, rng)
	priceReturns, priceWarnings := calculator.RangePriceReturns(tickers, rng, priceFn, fxFn, opts)
	for i := range report.Cumulative {
		if r, ok := priceReturns[report.Cumulative[i].Ticker]; ok {
			report.Cumulative[i].PriceReturn = util.FloatPointer(r)
		}
	}
	// range price returns are informational; a gap there is already reported per period
	if len(priceWarnings) > 0 {
		log.Infow("range price return unavailable", "tickers", len(priceWarnings))
	}

	if len(benchmarks) > 0 {
		profile.StartSpan("benchmarks")
		benchmarkReturns, benchmarkWarnings := calculator.ComputeBenchmarkReturns(
			calculator.ObservationDates(inRange),
			benchmarks,
			priceFn,
			fxFn,
			opts,
		)
		report.Benchmarks = benchmarkReturns
		warnings = append(warnings, benchmarkWarnings...)
	}

	report.Warnings = warnings
	profile.End()
	for _, w := range warnings {
		log.Warnw("attribution warning", "reportID", report.ReportID, "kind", w.Kind, "ticker", w.Ticker, "message", w.Message)
	}
	log.Infow(
		"attribution complete",
		"reportID", report.ReportID,
		"range", rng.String(),
		"tickers", len(tickers),
		"periods", len(report.Periods),
		"warnings", len(report.Warnings),
		"timingsMs", profile.Timings(),
		"totalMs", *profile.TotalMs,
	)

	return report, nil
}

// fillSectors remembers sectors given on snapshots and fills the missing ones
// from earlier runs
func (h AttributionHandler) fillSectors(ctx context.Context, snapshots []domain.PositionSnapshot) []domain.PositionSnapshot {
	out := make([]domain.PositionSnapshot, len(snapshots))
	copy(out, snapshots)

	for _, s := range out {
		if s.Sector != nil && *s.Sector != "" {
			h.MarketDataService.SetSector(ctx, strings.TrimSpace(s.Ticker), *s.Sector)
		}
	}
	for i := range out {
		if out[i].Sector != nil {
			continue
		}
		if sector, ok := h.MarketDataService.GetSector(ctx, strings.TrimSpace(out[i].Ticker)); ok {
			out[i].Sector = util.StringPointer(sector)
		}
	}
	return out
}

func (h AttributionHandler) prefetchRequests(tickers []string, opts calculator.Options, benchmarks []domain.Benchmark) []service.PrefetchRequest {
	requests := []service.PrefetchRequest{}
	needsFx := false
	for _, ticker := range tickers {
		if opts.Rules.IsCash(ticker) {
			continue
		}
		if _, ok := opts.Nav[ticker]; ok {
			continue
		}
		requests = append(requests, service.PricePrefetch(ticker))
		if !opts.Rules.IsDomestic(ticker) {
			needsFx = true
		}
	}
	for _, b := range benchmarks {
		if b.IsFx {
			needsFx = true
			continue
		}
		requests = append(requests, service.PricePrefetch(b.Ticker))
	}
	if needsFx {
		requests = append(requests, service.FxPrefetch(opts.Rules.BaseCurrency, opts.Rules.ForeignCurrency))
	}
	return requests
}

func tickersOf(snapshots []domain.PositionSnapshot) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, s := range snapshots {
		if !seen[s.Ticker] {
			seen[s.Ticker] = true
			out = append(out, s.Ticker)
		}
	}
	return out
}

// AnalysisRow is the long layout of period results: one row per period start
// and ticker
type AnalysisRow struct {
	Date         time.Time
	Ticker       string
	Weight       float64
	Return       float64
	Contribution float64
	Sector       *string
}

func (r AttributionReport) AnalysisRows() []AnalysisRow {
	out := make([]AnalysisRow, 0, len(r.Periods))
	for _, p := range r.Periods {
		out = append(out, AnalysisRow{
			Date:         p.Period.Start,
			Ticker:       p.Ticker,
			Weight:       p.BeginWeight,
			Return:       p.Return(),
			Contribution: p.Contribution,
			Sector:       p.Sector,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}
