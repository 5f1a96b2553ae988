package domain

const (
	OtherHoldingsLabel  = "Other Holdings"
	TotalPortfolioLabel = "Total Portfolio"
)

type RankedRow struct {
	Ticker       string
	Weight       float64
	Return       float64
	Contribution float64
}

// RankingOutput is the top contributors / disruptors table for one bucket.
// Other.Weight is the residual that makes the rows add up to exactly 100%,
// and Total.Weight is 1 by construction.
type RankingOutput struct {
	Bucket          Bucket
	TopContributors []RankedRow
	TopDisruptors   []RankedRow
	Other           RankedRow
	Total           RankedRow
	Warnings        []Warning
}

type SeriesMetrics struct {
	Mean     float64
	Variance float64
	StdDev   float64
	Sharpe   float64
	Beta     float64
}

type TickerRiskMetrics struct {
	Ticker string
	SeriesMetrics
}

type RiskMetricsResult struct {
	Granularity  Granularity
	Buckets      []Bucket
	Portfolio    SeriesMetrics
	Tickers      []TickerRiskMetrics
	Observations int
}
