package api

import (
	"attribution/internal/app"
	"attribution/internal/domain"
	"attribution/internal/ingest"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// portfolioItem is one row of the dashboard feed, dated by the period start
type portfolioItem struct {
	Ticker       string          `json:"ticker"`
	Weight       decimal.Decimal `json:"weight"`
	Date         string          `json:"date"`
	Sector       *string         `json:"sector"`
	ReturnPct    decimal.Decimal `json:"returnPct"`
	Contribution decimal.Decimal `json:"contribution"`
}

// analyze takes a multipart upload with weights_file and an optional nav_file
func (h ApiHandler) analyze(c *gin.Context) {
	weightsFile, err := c.FormFile("weights_file")
	if err != nil {
		returnErrorJsonCode(fmt.Errorf("weights_file is required: %w", err), c, 400)
		return
	}
	weights, err := weightsFile.Open()
	if err != nil {
		returnErrorJson(err, c)
		return
	}
	defer weights.Close()

	snapshots, _, err := ingest.ReadSnapshots(weights)
	if err != nil {
		returnErrorJsonCode(err, c, 400)
		return
	}

	in := app.AttributionInput{Snapshots: snapshots}

	navFile, err := c.FormFile("nav_file")
	if err != nil && !errors.Is(err, http.ErrMissingFile) {
		returnErrorJsonCode(err, c, 400)
		return
	}
	if navFile != nil {
		nav, err := navFile.Open()
		if err != nil {
			returnErrorJson(err, c)
			return
		}
		defer nav.Close()

		in.Nav, err = ingest.ReadNav(nav)
		if err != nil {
			returnErrorJsonCode(err, c, 400)
			return
		}
	}

	report, err := h.AttributionHandler.Attribute(c.Request.Context(), in)
	if errors.Is(err, domain.ErrNoAttributionData) {
		c.JSON(200, []portfolioItem{})
		return
	}
	if err != nil {
		returnErrorJson(err, c)
		return
	}

	out := []portfolioItem{}
	for _, row := range report.AnalysisRows() {
		out = append(out, portfolioItem{
			Ticker:       row.Ticker,
			Weight:       pp(row.Weight),
			Date:         dateStr(row.Date),
			Sector:       row.Sector,
			ReturnPct:    pp(row.Return),
			Contribution: pp(row.Contribution),
		})
	}

	c.JSON(200, out)
}

type referenceResponse struct {
	Ticker string   `json:"ticker"`
	Sector *string  `json:"sector"`
	Beta   *float64 `json:"beta"`
}

// reference returns what earlier runs remembered about a ticker
func (h ApiHandler) reference(c *gin.Context) {
	ticker := c.Param("ticker")
	out := referenceResponse{Ticker: ticker}

	ctx := c.Request.Context()
	if sector, ok := h.MarketDataService.GetSector(ctx, ticker); ok {
		out.Sector = &sector
	}
	if beta, ok := h.MarketDataService.GetBeta(ctx, ticker); ok {
		out.Beta = &beta
	}
	if out.Sector == nil && out.Beta == nil {
		returnErrorJsonCode(fmt.Errorf("nothing known about %s", ticker), c, 404)
		return
	}

	c.JSON(200, out)
}
