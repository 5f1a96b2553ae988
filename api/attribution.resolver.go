package api

import (
	"attribution/internal/app"
	"attribution/internal/domain"
	"attribution/internal/ingest"
	"attribution/internal/util"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type SnapshotInput struct {
	Ticker string  `json:"ticker"`
	Date   string  `json:"date"`
	Weight float64 `json:"weight"`
	// fractions, like weight
	ReturnPct    *float64 `json:"returnPct"`
	Contribution *float64 `json:"contribution"`
	Sector       *string  `json:"sector"`
}

type AttributionRequest struct {
	Snapshots []SnapshotInput `json:"snapshots"`
	// alternative to Snapshots: a weights file in the long or wide layout
	WeightsCsv        string                        `json:"weightsCsv"`
	Nav               map[string]map[string]float64 `json:"nav"`
	Granularities     []string                      `json:"granularities"`
	Start             string                        `json:"start"`
	End               string                        `json:"end"`
	TopN              int                           `json:"topN"`
	IncludeBenchmarks bool                          `json:"includeBenchmarks"`
}

// all numbers in responses are percentage points

type rankedRowResponse struct {
	Ticker       string          `json:"ticker"`
	Weight       decimal.Decimal `json:"weight"`
	Return       decimal.Decimal `json:"return"`
	Contribution decimal.Decimal `json:"contribution"`
}

type rankingResponse struct {
	Bucket          string              `json:"bucket"`
	Start           string              `json:"start"`
	End             string              `json:"end"`
	TopContributors []rankedRowResponse `json:"topContributors"`
	TopDisruptors   []rankedRowResponse `json:"topDisruptors"`
	Other           rankedRowResponse   `json:"other"`
	Total           rankedRowResponse   `json:"total"`
}

type metricsResponse struct {
	Mean   decimal.Decimal `json:"mean"`
	StdDev decimal.Decimal `json:"stdDev"`
	Sharpe float64         `json:"sharpe"`
	Beta   float64         `json:"beta"`
}

type riskResponse struct {
	Observations int                        `json:"observations"`
	Portfolio    metricsResponse            `json:"portfolio"`
	Tickers      map[string]metricsResponse `json:"tickers"`
}

// values are null when the ticker has no period ending in the bucket;
// presence tells why
type bucketResponse struct {
	Bucket       string           `json:"bucket"`
	Ticker       string           `json:"ticker"`
	Contribution *decimal.Decimal `json:"contribution"`
	Weight       *decimal.Decimal `json:"weight"`
	Return       *decimal.Decimal `json:"return"`
	Presence     domain.Presence  `json:"presence"`
	Sector       *string          `json:"sector,omitempty"`
}

type granularityResponse struct {
	Granularity domain.Granularity `json:"granularity"`
	Buckets     []bucketResponse   `json:"buckets"`
	Rankings    []rankingResponse  `json:"rankings"`
	Risk        riskResponse       `json:"risk"`
}

type periodResponse struct {
	Ticker       string          `json:"ticker"`
	Start        string          `json:"start"`
	End          string          `json:"end"`
	Weight       decimal.Decimal `json:"weight"`
	RawReturn    decimal.Decimal `json:"rawReturn"`
	Return       decimal.Decimal `json:"return"`
	Contribution decimal.Decimal `json:"contribution"`
	Sector       *string         `json:"sector,omitempty"`
}

type cumulativeResponse struct {
	Ticker       string           `json:"ticker"`
	Contribution decimal.Decimal  `json:"contribution"`
	Weight       decimal.Decimal  `json:"weight"`
	Return       decimal.Decimal  `json:"return"`
	PriceReturn  *decimal.Decimal `json:"priceReturn"`
}

type benchmarkResponse struct {
	Name   string           `json:"name"`
	Start  string           `json:"start"`
	End    string           `json:"end"`
	Return *decimal.Decimal `json:"return"`
}

type AttributionResponse struct {
	ReportID      string                `json:"reportID"`
	Start         string                `json:"start"`
	End           string                `json:"end"`
	Periods       []periodResponse      `json:"periods"`
	Granularities []granularityResponse `json:"granularities"`
	Cumulative    []cumulativeResponse  `json:"cumulative"`
	Benchmarks    []benchmarkResponse   `json:"benchmarks"`
	Warnings      []domain.Warning      `json:"warnings"`
	Profile       *domain.Profile       `json:"profile,omitempty"`
}

func (h ApiHandler) attribution(c *gin.Context) {
	var requestBody AttributionRequest
	if err := c.ShouldBindJSON(&requestBody); err != nil {
		returnErrorJsonCode(fmt.Errorf("failed to read request body: %w", err), c, 400)
		return
	}

	in, warnings, err := requestBody.toInput()
	if err != nil {
		returnErrorJsonCode(err, c, 400)
		return
	}

	report, err := h.AttributionHandler.Attribute(c.Request.Context(), *in)
	if errors.Is(err, domain.ErrNoAttributionData) {
		returnErrorJsonCode(err, c, 422)
		return
	}
	if err != nil {
		returnErrorJson(err, c)
		return
	}
	report.Warnings = append(warnings, report.Warnings...)

	c.JSON(200, newAttributionResponse(*report))
}

func (r AttributionRequest) toInput() (*app.AttributionInput, []domain.Warning, error) {
	in := &app.AttributionInput{
		Nav:               r.Nav,
		TopN:              r.TopN,
		IncludeBenchmarks: r.IncludeBenchmarks,
	}
	warnings := []domain.Warning{}

	switch {
	case len(r.Snapshots) > 0:
		for _, s := range r.Snapshots {
			date, err := util.ParseDate(s.Date)
			if err != nil {
				return nil, nil, fmt.Errorf("snapshot %s: %w", s.Ticker, err)
			}
			in.Snapshots = append(in.Snapshots, domain.PositionSnapshot{
				Ticker:       s.Ticker,
				Date:         date,
				Weight:       s.Weight,
				ReturnPct:    s.ReturnPct,
				Contribution: s.Contribution,
				Sector:       s.Sector,
			})
		}
	case r.WeightsCsv != "":
		snapshots, csvWarnings, err := ingest.ReadSnapshots(strings.NewReader(r.WeightsCsv))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read weightsCsv: %w", err)
		}
		in.Snapshots = snapshots
		warnings = append(warnings, csvWarnings...)
	default:
		return nil, nil, fmt.Errorf("snapshots or weightsCsv is required")
	}

	for _, g := range r.Granularities {
		parsed, err := domain.ParseGranularity(g)
		if err != nil {
			return nil, nil, err
		}
		in.Granularities = append(in.Granularities, parsed)
	}

	if r.Start != "" {
		start, err := util.ParseDate(r.Start)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid start: %w", err)
		}
		in.Start = &start
	}
	if r.End != "" {
		end, err := util.ParseDate(r.End)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid end: %w", err)
		}
		in.End = &end
	}
	if in.Start != nil && in.End != nil && in.End.Before(*in.Start) {
		return nil, nil, fmt.Errorf("end date cannot be before start date")
	}

	return in, warnings, nil
}

func dateStr(t time.Time) string {
	return util.DateKey(t)
}

func pp(f float64) decimal.Decimal {
	return domain.PercentPoints(f)
}

func ppPointer(f *float64) *decimal.Decimal {
	if f == nil {
		return nil
	}
	d := pp(*f)
	return &d
}

func newRankedRowResponse(r domain.RankedRow) rankedRowResponse {
	return rankedRowResponse{
		Ticker:       r.Ticker,
		Weight:       pp(r.Weight),
		Return:       pp(r.Return),
		Contribution: pp(r.Contribution),
	}
}

func newMetricsResponse(m domain.SeriesMetrics) metricsResponse {
	return metricsResponse{
		Mean:   pp(m.Mean),
		StdDev: pp(m.StdDev),
		Sharpe: m.Sharpe,
		Beta:   m.Beta,
	}
}

func newAttributionResponse(report app.AttributionReport) AttributionResponse {
	out := AttributionResponse{
		ReportID:      report.ReportID.String(),
		Start:         dateStr(report.Range.Start),
		End:           dateStr(report.Range.End),
		Periods:       []periodResponse{},
		Granularities: []granularityResponse{},
		Cumulative:    []cumulativeResponse{},
		Benchmarks:    []benchmarkResponse{},
		Warnings:      report.Warnings,
		Profile:       report.Profile,
	}
	if out.Warnings == nil {
		out.Warnings = []domain.Warning{}
	}

	for _, p := range report.Periods {
		out.Periods = append(out.Periods, periodResponse{
			Ticker:       p.Ticker,
			Start:        dateStr(p.Period.Start),
			End:          dateStr(p.Period.End),
			Weight:       pp(p.BeginWeight),
			RawReturn:    pp(p.RawReturn),
			Return:       pp(p.Return()),
			Contribution: pp(p.Contribution),
			Sector:       p.Sector,
		})
	}

	for _, g := range report.Granularities {
		gr := granularityResponse{
			Granularity: g.Granularity,
			Buckets:     []bucketResponse{},
			Rankings:    []rankingResponse{},
			Risk: riskResponse{
				Observations: g.Risk.Observations,
				Portfolio:    newMetricsResponse(g.Risk.Portfolio),
				Tickers:      map[string]metricsResponse{},
			},
		}
		for _, b := range g.Buckets {
			gr.Buckets = append(gr.Buckets, bucketResponse{
				Bucket:       b.Bucket.Label(),
				Ticker:       b.Ticker,
				Contribution: ppPointer(b.Contribution),
				Weight:       ppPointer(b.Weight),
				Return:       ppPointer(b.Return),
				Presence:     b.Presence,
				Sector:       b.Sector,
			})
		}
		windows := map[domain.Bucket]domain.BucketWindow{}
		for _, w := range g.Windows {
			windows[w.Bucket] = w
		}
		for _, r := range g.Rankings {
			rr := rankingResponse{
				Bucket:          r.Bucket.Label(),
				Start:           dateStr(r.Bucket.Start()),
				End:             dateStr(r.Bucket.End()),
				TopContributors: []rankedRowResponse{},
				TopDisruptors:   []rankedRowResponse{},
				Other:           newRankedRowResponse(r.Other),
				Total:           newRankedRowResponse(r.Total),
			}
			if w, ok := windows[r.Bucket]; ok {
				rr.Start = dateStr(w.Start)
				rr.End = dateStr(w.End)
			}
			for _, row := range r.TopContributors {
				rr.TopContributors = append(rr.TopContributors, newRankedRowResponse(row))
			}
			for _, row := range r.TopDisruptors {
				rr.TopDisruptors = append(rr.TopDisruptors, newRankedRowResponse(row))
			}
			gr.Rankings = append(gr.Rankings, rr)
		}
		for _, t := range g.Risk.Tickers {
			gr.Risk.Tickers[t.Ticker] = newMetricsResponse(t.SeriesMetrics)
		}
		out.Granularities = append(out.Granularities, gr)
	}

	for _, r := range report.Cumulative {
		out.Cumulative = append(out.Cumulative, cumulativeResponse{
			Ticker:       r.Ticker,
			Contribution: pp(r.Contribution),
			Weight:       pp(r.EndWeight),
			Return:       pp(r.Return),
			PriceReturn:  ppPointer(r.PriceReturn),
		})
	}

	for _, b := range report.Benchmarks {
		out.Benchmarks = append(out.Benchmarks, benchmarkResponse{
			Name:   b.Name,
			Start:  dateStr(b.Period.Start),
			End:    dateStr(b.Period.End),
			Return: ppPointer(b.Return),
		})
	}

	return out
}
