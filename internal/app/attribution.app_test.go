package app

import (
	"attribution/internal/domain"
	"attribution/internal/repository"
	"attribution/internal/service"
	"attribution/internal/util"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
)

var (
	jan = util.NewDate(2024, 1, 31)
	feb = util.NewDate(2024, 2, 29)
	mar = util.NewDate(2024, 3, 28)

	approx = cmpopts.EquateApprox(0, 1e-9)
)

func seriesPrices(symbol string, prices ...float64) []domain.AssetPrice {
	dates := []time.Time{jan, feb, mar}
	out := []domain.AssetPrice{}
	for i, p := range prices {
		out = append(out, domain.AssetPrice{Symbol: symbol, Date: dates[i], Price: p})
	}
	return out
}

func snap(ticker string, date time.Time, weight float64) domain.PositionSnapshot {
	return domain.PositionSnapshot{Ticker: ticker, Date: date, Weight: weight}
}

func testSnapshots() []domain.PositionSnapshot {
	aapl := snap("AAPL", jan, 0.3)
	aapl.Sector = util.StringPointer("Tech")
	return []domain.PositionSnapshot{
		snap("A.TO", jan, 0.5),
		aapl,
		snap("$CASH$", jan, 0.2),
		snap("A.TO", feb, 0.5),
		snap("AAPL", feb, 0.3),
		snap("$CASH$", feb, 0.2),
		snap("A.TO", mar, 0.4),
		snap("AAPL", mar, 0.4),
		snap("$CASH$", mar, 0.2),
	}
}

func newTestHandler(prices []domain.AssetPrice) (AttributionHandler, service.MarketDataService) {
	cfg := util.DefaultConfig()
	svc := service.NewMarketDataService(
		repository.NewStaticMarketDataRepository(prices),
		nil,
		service.MarketDataServiceConfig{LookbackDays: cfg.MarketData.LookbackDays},
	)
	return NewAttributionHandler(svc, cfg), svc
}

func testMarket() []domain.AssetPrice {
	prices := seriesPrices("A.TO", 100, 110, 99)
	prices = append(prices, seriesPrices("AAPL", 100, 105, 105)...)
	prices = append(prices, seriesPrices("USDCAD=X", 1.3, 1.3, 1.3)...)
	return prices
}

func findPeriod(t *testing.T, results []domain.PeriodResult, ticker string, start time.Time) domain.PeriodResult {
	for _, r := range results {
		if r.Ticker == ticker && r.Period.Start.Equal(start) {
			return r
		}
	}
	t.Fatalf("no period for %s starting %s", ticker, util.DateKey(start))
	return domain.PeriodResult{}
}

func TestAttributionHandler_Attribute(t *testing.T) {
	ctx := context.Background()

	t.Run("full report", func(t *testing.T) {
		handler, svc := newTestHandler(testMarket())

		report, err := handler.Attribute(ctx, AttributionInput{Snapshots: testSnapshots()})
		require.NoError(t, err)
		require.Empty(t, report.Warnings)
		require.Equal(t, domain.Period{Start: jan, End: mar}, report.Range)
		require.Len(t, report.Periods, 6)

		require.InDelta(t, 0.05, findPeriod(t, report.Periods, "A.TO", jan).Contribution, 1e-9)
		require.InDelta(t, -0.05, findPeriod(t, report.Periods, "A.TO", feb).Contribution, 1e-9)
		require.InDelta(t, 0.015, findPeriod(t, report.Periods, "AAPL", jan).Contribution, 1e-9)
		require.InDelta(t, 0.0, findPeriod(t, report.Periods, "AAPL", feb).Contribution, 1e-9)

		// sector carried from the first snapshot to later periods
		aaplFeb := findPeriod(t, report.Periods, "AAPL", feb)
		require.NotNil(t, aaplFeb.Sector)
		require.Equal(t, "Tech", *aaplFeb.Sector)

		require.Len(t, report.PeriodTotals, 2)
		for _, total := range report.PeriodTotals {
			require.InDelta(t, 1.0, total.WeightSum, 1e-9)
		}
		require.InDelta(t, 0.065, report.PeriodTotals[0].Contribution, 1e-9)
		require.InDelta(t, -0.05, report.PeriodTotals[1].Contribution, 1e-9)

		require.Len(t, report.Granularities, 3)
		quarter := report.Granularity(domain.Quarter)
		require.NotNil(t, quarter)
		require.Len(t, quarter.Rankings, 1)
		ranking := quarter.Rankings[0]
		require.Equal(t, "AAPL", ranking.TopContributors[0].Ticker)
		require.InDelta(t, 0.015, ranking.Total.Contribution, 1e-9)
		require.InDelta(t, 1.0, ranking.Total.Weight, 1e-9)

		month := report.Granularity(domain.Month)
		require.NotNil(t, month)
		require.Len(t, month.Rankings, 2)
		require.Equal(t, 2, month.Risk.Observations)

		_, ok := svc.GetBeta(ctx, "AAPL")
		require.True(t, ok)

		cumulative := map[string]domain.RangeResult{}
		for _, r := range report.Cumulative {
			cumulative[r.Ticker] = r
		}
		require.InDelta(t, 0.0, cumulative["A.TO"].Contribution, 1e-9)
		require.InDelta(t, 0.015, cumulative["AAPL"].Contribution, 1e-9)
		require.NotNil(t, cumulative["A.TO"].PriceReturn)
		require.InDelta(t, -0.01, *cumulative["A.TO"].PriceReturn, 1e-9)
		require.InDelta(t, 0.05, *cumulative["AAPL"].PriceReturn, 1e-9)
		require.InDelta(t, 0.0, *cumulative["$CASH$"].PriceReturn, 1e-9)

		require.Empty(t, report.Benchmarks)

		require.NotNil(t, report.Profile.TotalMs)
		require.Contains(t, report.Profile.Timings(), "period returns")
	})

	t.Run("range filter", func(t *testing.T) {
		handler, _ := newTestHandler(testMarket())
		start := feb

		report, err := handler.Attribute(ctx, AttributionInput{
			Snapshots:     testSnapshots(),
			Start:         &start,
			Granularities: []domain.Granularity{domain.Month},
			TopN:          1,
		})
		require.NoError(t, err)
		require.Len(t, report.Periods, 3)
		require.Len(t, report.Granularities, 1)

		ranking := report.Granularities[0].Rankings[0]
		require.Len(t, ranking.TopContributors, 1)
		require.Len(t, ranking.TopDisruptors, 1)
		require.Equal(t, "A.TO", ranking.TopDisruptors[0].Ticker)
		require.InDelta(t, -0.05, ranking.Total.Contribution, 1e-9)
	})

	t.Run("end before start", func(t *testing.T) {
		handler, _ := newTestHandler(testMarket())
		start, end := mar, jan

		_, err := handler.Attribute(ctx, AttributionInput{Snapshots: testSnapshots(), Start: &start, End: &end})
		require.Error(t, err)
		require.False(t, errors.Is(err, domain.ErrNoAttributionData))
	})

	t.Run("no snapshots", func(t *testing.T) {
		handler, _ := newTestHandler(testMarket())

		_, err := handler.Attribute(ctx, AttributionInput{})
		require.ErrorIs(t, err, domain.ErrNoAttributionData)
	})

	t.Run("range without snapshots", func(t *testing.T) {
		handler, _ := newTestHandler(testMarket())
		start, end := util.NewDate(2024, 4, 1), util.NewDate(2024, 4, 30)

		_, err := handler.Attribute(ctx, AttributionInput{Snapshots: testSnapshots(), Start: &start, End: &end})
		require.ErrorIs(t, err, domain.ErrNoAttributionData)
	})

	t.Run("no prices at all", func(t *testing.T) {
		handler, _ := newTestHandler(nil)

		_, err := handler.Attribute(ctx, AttributionInput{Snapshots: []domain.PositionSnapshot{
			snap("A.TO", jan, 1),
			snap("A.TO", feb, 1),
		}})
		require.ErrorIs(t, err, domain.ErrNoAttributionData)
	})

	t.Run("missing prices become warnings", func(t *testing.T) {
		handler, _ := newTestHandler(seriesPrices("A.TO", 100, 110, 99))

		report, err := handler.Attribute(ctx, AttributionInput{Snapshots: testSnapshots()})
		require.NoError(t, err)
		// AAPL has neither prices nor fx for both periods
		gaps := 0
		for _, w := range report.Warnings {
			if w.Kind == domain.WarningDataGap {
				require.Equal(t, "AAPL", w.Ticker)
				gaps++
			}
		}
		require.Equal(t, 2, gaps)
		require.Len(t, report.Periods, 4)
	})

	t.Run("nav overrides prices", func(t *testing.T) {
		handler, _ := newTestHandler(testMarket())

		report, err := handler.Attribute(ctx, AttributionInput{
			Snapshots: testSnapshots(),
			Nav: map[string]map[string]float64{
				"AAPL": {
					util.DateKey(jan): 10,
					util.DateKey(feb): 12,
					util.DateKey(mar): 12,
				},
			},
		})
		require.NoError(t, err)
		require.InDelta(t, 0.06, findPeriod(t, report.Periods, "AAPL", jan).Contribution, 1e-9)
	})

	t.Run("benchmarks", func(t *testing.T) {
		prices := testMarket()
		prices = append(prices, seriesPrices("^GSPC", 5000, 5100, 5202)...)
		handler, _ := newTestHandler(prices)

		report, err := handler.Attribute(ctx, AttributionInput{
			Snapshots:         testSnapshots(),
			IncludeBenchmarks: true,
		})
		require.NoError(t, err)
		require.Len(t, report.Benchmarks, 2*len(domain.DefaultBenchmarks()))

		got := map[string][]*float64{}
		for _, b := range report.Benchmarks {
			got[b.Name] = append(got[b.Name], b.Return)
		}
		require.Equal(
			t,
			"",
			cmp.Diff(
				[]*float64{util.FloatPointer(0.02), util.FloatPointer(0.02)},
				got["S&P 500"],
				approx,
			),
		)
		require.Equal(
			t,
			"",
			cmp.Diff(
				[]*float64{util.FloatPointer(0), util.FloatPointer(0)},
				got["USD/CAD"],
				approx,
			),
		)
		require.Nil(t, got["Nasdaq"][0])
		require.NotEmpty(t, report.Warnings)
	})
}

func TestAttributionReport_AnalysisRows(t *testing.T) {
	handler, _ := newTestHandler(testMarket())

	report, err := handler.Attribute(context.Background(), AttributionInput{Snapshots: testSnapshots()})
	require.NoError(t, err)

	rows := report.AnalysisRows()
	require.Len(t, rows, 6)
	for i := 1; i < len(rows); i++ {
		require.False(t, rows[i].Date.Before(rows[i-1].Date))
	}
	require.Equal(t, jan, rows[0].Date)
	require.Equal(t, feb, rows[5].Date)

	require.Nil(t, report.Granularity(domain.Granularity(42)))
}

func TestAttributionHandler_prefetchRequests(t *testing.T) {
	handler, _ := newTestHandler(nil)
	opts := handler.Options
	opts.Nav = map[string]map[string]float64{"FUND": {}}

	requests := handler.prefetchRequests([]string{"A.TO", "$CASH$", "FUND"}, opts, nil)
	require.Equal(t, []service.PrefetchRequest{service.PricePrefetch("A.TO")}, requests)

	requests = handler.prefetchRequests([]string{"A.TO", "AAPL"}, opts, nil)
	require.Equal(t, []service.PrefetchRequest{
		service.PricePrefetch("A.TO"),
		service.PricePrefetch("AAPL"),
		service.FxPrefetch("CAD", "USD"),
	}, requests)
}
