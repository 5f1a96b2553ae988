package main

import (
	"attribution/cmd"
	"attribution/internal/app"
	"attribution/internal/domain"
	"attribution/internal/ingest"
	"attribution/internal/logger"
	"attribution/internal/repository"
	"attribution/internal/util"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/gocarina/gocsv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath        string
	weightsPath       string
	navPath           string
	pricesPath        string
	granularities     []string
	bucketGranularity []string
	topN              int
	includeBenchmarks bool
	startDate         string
	endDate           string
)

var rootCmd = &cobra.Command{
	Use:   "attribution",
	Short: "Portfolio performance attribution",
	Long:  `Computes per-holding returns and contributions from dated weight snapshots, grouped into calendar buckets.`,
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print ranked contributors and risk metrics per bucket",
	RunE:  runReport,
}

var bucketsCmd = &cobra.Command{
	Use:   "buckets",
	Short: "Write every ticker's per-bucket aggregate as csv, gaps left blank",
	RunE:  runBuckets,
}

var periodsCmd = &cobra.Command{
	Use:   "periods",
	Short: "Write per-period rows as csv",
	RunE:  runPeriods,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file, defaults to the ATTRIBUTION_ENV file")
	rootCmd.PersistentFlags().StringVarP(&weightsPath, "weights", "w", "", "weights csv (long or wide layout)")
	rootCmd.PersistentFlags().StringVar(&navPath, "nav", "", "optional NAV csv for mutual funds")
	rootCmd.PersistentFlags().StringVar(&pricesPath, "prices", "", "optional date,symbol,price csv used instead of Yahoo Finance")
	rootCmd.PersistentFlags().StringVar(&startDate, "start", "", "range start, defaults to the first snapshot")
	rootCmd.PersistentFlags().StringVar(&endDate, "end", "", "range end, defaults to the last snapshot")
	_ = rootCmd.MarkPersistentFlagRequired("weights")

	reportCmd.Flags().StringSliceVarP(&granularities, "granularity", "g", []string{"month", "quarter", "ytd"}, "month, quarter or ytd")
	reportCmd.Flags().IntVarP(&topN, "top", "n", 0, "rows per side, defaults to the config value")
	reportCmd.Flags().BoolVar(&includeBenchmarks, "benchmarks", false, "include benchmark returns")
	bucketsCmd.Flags().StringSliceVarP(&bucketGranularity, "granularity", "g", []string{"month"}, "month, quarter or ytd")

	rootCmd.AddCommand(reportCmd, bucketsCmd, periodsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func attribute(ctx context.Context, in app.AttributionInput) (*app.AttributionReport, error) {
	cfg, err := cmd.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	var marketDataRepository repository.MarketDataRepository
	if pricesPath != "" {
		prices, err := ingest.ReadPricesFile(pricesPath)
		if err != nil {
			return nil, err
		}
		marketDataRepository = repository.NewStaticMarketDataRepository(prices)
	}

	deps, err := cmd.InitializeDependencies(cfg, marketDataRepository)
	if err != nil {
		return nil, err
	}
	defer cmd.CloseDependencies(deps)

	snapshots, warnings, err := ingest.ReadSnapshotsFile(weightsPath)
	if err != nil {
		return nil, err
	}
	in.Snapshots = snapshots
	if navPath != "" {
		in.Nav, err = ingest.ReadNavFile(navPath)
		if err != nil {
			return nil, err
		}
	}
	if startDate != "" {
		d, err := util.ParseDate(startDate)
		if err != nil {
			return nil, fmt.Errorf("invalid --start: %w", err)
		}
		in.Start = &d
	}
	if endDate != "" {
		d, err := util.ParseDate(endDate)
		if err != nil {
			return nil, fmt.Errorf("invalid --end: %w", err)
		}
		in.End = &d
	}

	report, err := deps.AttributionHandler.Attribute(ctx, in)
	if err != nil {
		return nil, err
	}
	report.Warnings = append(warnings, report.Warnings...)
	return report, nil
}

func parseGranularities(values []string) ([]domain.Granularity, error) {
	out := []domain.Granularity{}
	for _, g := range values {
		parsed, err := domain.ParseGranularity(g)
		if err != nil {
			return nil, err
		}
		out = append(out, parsed)
	}
	return out, nil
}

func runReport(c *cobra.Command, args []string) error {
	in := app.AttributionInput{
		TopN:              topN,
		IncludeBenchmarks: includeBenchmarks,
	}
	var err error
	in.Granularities, err = parseGranularities(granularities)
	if err != nil {
		return err
	}

	ctx := logger.WithContext(context.Background(), zap.S())
	report, err := attribute(ctx, in)
	if err != nil {
		return err
	}

	printReport(c.OutOrStdout(), *report)
	return nil
}

func printReport(out io.Writer, report app.AttributionReport) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	defer w.Flush()

	fmt.Fprintf(w, "range %s\n\n", report.Range)
	for _, g := range report.Granularities {
		for _, r := range g.Rankings {
			fmt.Fprintf(w, "%s\tweight\treturn\tcontribution\t\n", r.Bucket.Label())
			rows := append(append([]domain.RankedRow{}, r.TopContributors...), r.TopDisruptors...)
			rows = append(rows, r.Other, r.Total)
			for _, row := range rows {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n",
					row.Ticker,
					domain.FormatPercent(row.Weight),
					domain.FormatPercent(row.Return),
					domain.FormatPercent(row.Contribution),
				)
			}
			fmt.Fprintln(w, "\t\t\t\t")
		}

		p := g.Risk.Portfolio
		fmt.Fprintf(w, "%s risk (%d obs)\tmean %s\tstd %s\tsharpe %.2f\t\n\n",
			g.Granularity,
			g.Risk.Observations,
			domain.FormatPercent(p.Mean),
			domain.FormatPercent(p.StdDev),
			p.Sharpe,
		)
	}

	if len(report.Benchmarks) > 0 {
		fmt.Fprintln(w, "benchmark\tstart\tend\treturn\t")
		for _, b := range report.Benchmarks {
			ret := "n/a"
			if b.Return != nil {
				ret = domain.FormatPercent(*b.Return)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n", b.Name, util.DateKey(b.Period.Start), util.DateKey(b.Period.End), ret)
		}
		fmt.Fprintln(w, "\t\t\t\t")
	}

	for _, warning := range report.Warnings {
		fmt.Fprintf(w, "warning: [%s] %s\n", warning.Kind, warning.Message)
	}
}

type bucketRow struct {
	Granularity  string `csv:"granularity"`
	Bucket       string `csv:"bucket"`
	Ticker       string `csv:"ticker"`
	Contribution string `csv:"contribution"`
	Weight       string `csv:"weight"`
	Return       string `csv:"return_pct"`
	Presence     string `csv:"presence"`
}

func percentCell(f *float64) string {
	if f == nil {
		return ""
	}
	return domain.PercentPoints(*f).StringFixed(2)
}

func newBucketRows(report app.AttributionReport) []bucketRow {
	rows := []bucketRow{}
	for _, g := range report.Granularities {
		for _, b := range g.Buckets {
			rows = append(rows, bucketRow{
				Granularity:  g.Granularity.String(),
				Bucket:       b.Bucket.Label(),
				Ticker:       b.Ticker,
				Contribution: percentCell(b.Contribution),
				Weight:       percentCell(b.Weight),
				Return:       percentCell(b.Return),
				Presence:     string(b.Presence),
			})
		}
	}
	return rows
}

func runBuckets(c *cobra.Command, args []string) error {
	parsed, err := parseGranularities(bucketGranularity)
	if err != nil {
		return err
	}

	ctx := logger.WithContext(context.Background(), zap.S())
	report, err := attribute(ctx, app.AttributionInput{Granularities: parsed})
	if err != nil {
		return err
	}

	return gocsv.Marshal(newBucketRows(*report), c.OutOrStdout())
}

// periodRow is a percentage point rendering of app.AnalysisRow
type periodRow struct {
	Date         string `csv:"date"`
	Ticker       string `csv:"ticker"`
	Sector       string `csv:"sector"`
	Weight       string `csv:"weight"`
	Return       string `csv:"return_pct"`
	Contribution string `csv:"contribution"`
}

func runPeriods(c *cobra.Command, args []string) error {
	ctx := logger.WithContext(context.Background(), zap.S())
	report, err := attribute(ctx, app.AttributionInput{Granularities: []domain.Granularity{domain.Month}})
	if err != nil {
		return err
	}

	rows := []periodRow{}
	for _, r := range report.AnalysisRows() {
		sector := ""
		if r.Sector != nil {
			sector = *r.Sector
		}
		rows = append(rows, periodRow{
			Date:         util.DateKey(r.Date),
			Ticker:       r.Ticker,
			Sector:       strings.TrimSpace(sector),
			Weight:       domain.PercentPoints(r.Weight).StringFixed(2),
			Return:       domain.PercentPoints(r.Return).StringFixed(2),
			Contribution: domain.PercentPoints(r.Contribution).StringFixed(2),
		})
	}

	return gocsv.Marshal(rows, c.OutOrStdout())
}
