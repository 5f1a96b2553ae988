package calculator

import (
	"attribution/internal/domain"
	"attribution/internal/util"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestContribution(t *testing.T) {
	require.InDelta(t, 0.05, Contribution(0.5, 0.1), 1e-12)
	require.InDelta(t, -0.02, Contribution(0.5, -0.04), 1e-12)
	require.Equal(t, 0.0, Contribution(0, 0.3))
}

func TestSafeDivide(t *testing.T) {
	require.Equal(t, 2.0, SafeDivide(1, 0.5))
	require.Equal(t, 0.0, SafeDivide(1, 0))
	require.Equal(t, 0.0, SafeDivide(1, 1e-12))
	require.Equal(t, -4.0, SafeDivide(2, -0.5))
}

func TestCumulativeContributions(t *testing.T) {
	results := monthlyResults(map[string]float64{"A": 0.001, "B": -0.002}, []string{"A", "B"})
	rng := domain.Period{Start: monthEnd(2024, 3), End: monthEnd(2024, 6)}

	out := CumulativeContributions(results, rng)

	require.Equal(
		t,
		"",
		cmp.Diff(
			[]domain.RangeResult{
				{
					Ticker:       "A",
					Range:        rng,
					Contribution: 0.003 + 0.004 + 0.005 + 0.006,
					EndWeight:    0.5,
					Return:       (0.003 + 0.004 + 0.005 + 0.006) / 0.5,
				},
				{
					Ticker:       "B",
					Range:        rng,
					Contribution: -0.006 - 0.008 - 0.010 - 0.012,
					EndWeight:    0.5,
					Return:       (-0.006 - 0.008 - 0.010 - 0.012) / 0.5,
				},
			},
			out,
			approx,
		),
	)

	require.InDelta(t, out[0].Contribution, RangeContribution(results, "A", rng), 1e-12)
}

func TestRangeReturn(t *testing.T) {
	require.InDelta(t, 0.1, RangeReturn(0.02, 0.2), 1e-12)
	// fully sold by the end of the range
	require.Equal(t, 0.0, RangeReturn(0.02, 0))
}

func TestPeriodTotals(t *testing.T) {
	jan := util.NewDate(2024, 1, 31)
	feb := util.NewDate(2024, 2, 29)
	mar := util.NewDate(2024, 3, 29)
	p1 := domain.Period{Start: jan, End: feb}
	p2 := domain.Period{Start: feb, End: mar}

	totals, warnings := PeriodTotals([]domain.PeriodResult{
		{Ticker: "A", Period: p2, BeginWeight: 0.6, Contribution: 0.01},
		{Ticker: "A", Period: p1, BeginWeight: 0.5, Contribution: 0.02},
		{Ticker: "B", Period: p1, BeginWeight: 0.5, Contribution: -0.01},
		{Ticker: "B", Period: p2, BeginWeight: 0.3, Contribution: 0.005},
	})

	require.Equal(
		t,
		"",
		cmp.Diff(
			[]domain.PeriodTotal{
				{Period: p1, WeightSum: 1, Contribution: 0.01},
				{Period: p2, WeightSum: 0.9, Contribution: 0.015},
			},
			totals,
			approx,
		),
	)
	require.Len(t, warnings, 1)
	require.Equal(t, domain.WarningAggregationMismatch, warnings[0].Kind)
}
