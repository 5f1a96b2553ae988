package calculator

import (
	"attribution/internal/domain"
	"math"

	"github.com/montanaflynn/stats"
)

// CalculateRiskMetrics computes per-bucket contribution statistics for the
// portfolio and each ticker. The portfolio series is the sum of every ticker's
// contribution in the bucket, and a ticker without data in a bucket counts as
// 0 so all series share the same length. Every statistic degrades to 0 on
// empty or degenerate input.
func CalculateRiskMetrics(results []domain.BucketResult) domain.RiskMetricsResult {
	buckets, byBucket := GroupByBucket(results)

	out := domain.RiskMetricsResult{
		Buckets:      buckets,
		Tickers:      []domain.TickerRiskMetrics{},
		Observations: len(buckets),
	}
	if len(buckets) == 0 {
		return out
	}
	out.Granularity = buckets[0].Granularity
	periodsPerYear := out.Granularity.PeriodsPerYear()

	tickers := []string{}
	seen := map[string]bool{}
	for _, r := range results {
		if !seen[r.Ticker] {
			seen[r.Ticker] = true
			tickers = append(tickers, r.Ticker)
		}
	}

	portfolio := make([]float64, len(buckets))
	tickerSeries := map[string][]float64{}
	for _, ticker := range tickers {
		tickerSeries[ticker] = make([]float64, len(buckets))
	}
	for i, b := range buckets {
		for _, r := range byBucket[b] {
			c := r.ContributionValue()
			portfolio[i] += c
			tickerSeries[r.Ticker][i] = c
		}
	}

	out.Portfolio = seriesMetrics(portfolio, portfolio, periodsPerYear)
	for _, ticker := range tickers {
		out.Tickers = append(out.Tickers, domain.TickerRiskMetrics{
			Ticker:        ticker,
			SeriesMetrics: seriesMetrics(tickerSeries[ticker], portfolio, periodsPerYear),
		})
	}

	return out
}

func seriesMetrics(series, benchmark []float64, periodsPerYear float64) domain.SeriesMetrics {
	return domain.SeriesMetrics{
		Mean:     Mean(series),
		Variance: Variance(series),
		StdDev:   StdDev(series),
		Sharpe:   Sharpe(series, periodsPerYear),
		Beta:     Beta(series, benchmark),
	}
}

func Mean(series []float64) float64 {
	m, err := stats.Mean(series)
	if err != nil {
		return 0
	}
	return m
}

// Variance is the population variance
func Variance(series []float64) float64 {
	v, err := stats.PopulationVariance(series)
	if err != nil {
		return 0
	}
	return v
}

// StdDev is the population standard deviation
func StdDev(series []float64) float64 {
	s, err := stats.StandardDeviationPopulation(series)
	if err != nil {
		return 0
	}
	return s
}

// Sharpe is mean / stddev annualized by sqrt(periodsPerYear), with a zero
// risk-free rate. It is 0 with fewer than 2 observations or no dispersion.
func Sharpe(series []float64, periodsPerYear float64) float64 {
	if len(series) < 2 {
		return 0
	}
	std := StdDev(series)
	if std < weightEpsilon {
		return 0
	}
	return Mean(series) / std * math.Sqrt(periodsPerYear)
}

// Beta is Cov(series, benchmark) / Var(benchmark) using population moments.
// Mismatched lengths, empty input and a flat benchmark all resolve to 0.
func Beta(series, benchmark []float64) float64 {
	if len(series) == 0 || len(series) != len(benchmark) {
		return 0
	}
	variance := Variance(benchmark)
	if variance < weightEpsilon*weightEpsilon {
		return 0
	}
	cov, err := stats.CovariancePopulation(series, benchmark)
	if err != nil {
		return 0
	}
	return cov / variance
}
