package api

import (
	"attribution/internal/app"
	"attribution/internal/domain"
	"attribution/internal/repository"
	"attribution/internal/service"
	"attribution/internal/util"
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func newTestApi() ApiHandler {
	gin.SetMode(gin.TestMode)

	prices := []domain.AssetPrice{}
	add := func(symbol string, values ...float64) {
		dates := []time.Time{util.NewDate(2024, 1, 31), util.NewDate(2024, 2, 29), util.NewDate(2024, 3, 28)}
		for i, v := range values {
			prices = append(prices, domain.AssetPrice{Symbol: symbol, Date: dates[i], Price: v})
		}
	}
	add("RY.TO", 100, 110, 99)
	add("AAPL", 100, 105, 105)
	add("USDCAD=X", 1.3, 1.3, 1.3)

	cfg := util.DefaultConfig()
	svc := service.NewMarketDataService(repository.NewStaticMarketDataRepository(prices), nil, service.MarketDataServiceConfig{})
	return ApiHandler{
		AttributionHandler: app.NewAttributionHandler(svc, cfg),
		MarketDataService:  svc,
	}
}

const longCsv = `ticker,date,weight,sector
RY.TO,2024-01-31,50,Financials
AAPL,2024-01-31,30,Tech
$CASH$,2024-01-31,20,
RY.TO,2024-02-29,50,Financials
AAPL,2024-02-29,30,Tech
$CASH$,2024-02-29,20,
RY.TO,2024-03-28,40,Financials
AAPL,2024-03-28,40,Tech
$CASH$,2024-03-28,20,
`

func doJson(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestApiHandler_attribution(t *testing.T) {
	t.Run("snapshots as json", func(t *testing.T) {
		router := newTestApi().InitializeRouterEngine()
		snapshots := []SnapshotInput{}
		for _, d := range []string{"2024-01-31", "2024-02-29"} {
			snapshots = append(snapshots,
				SnapshotInput{Ticker: "RY.TO", Date: d, Weight: 0.6},
				SnapshotInput{Ticker: "$CASH$", Date: d, Weight: 0.4},
			)
		}

		w := doJson(t, router, "POST", "/attribution", AttributionRequest{
			Snapshots:     snapshots,
			Granularities: []string{"quarterly"},
		})
		require.Equal(t, 200, w.Code, w.Body.String())
		require.NotEmpty(t, w.Header().Get("X-Request-ID"))

		response := AttributionResponse{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		require.Equal(t, "2024-01-31", response.Start)
		require.Equal(t, "2024-02-29", response.End)
		require.Len(t, response.Periods, 2)
		require.Len(t, response.Granularities, 1)
		require.Equal(t, domain.Quarter, response.Granularities[0].Granularity)

		ranking := response.Granularities[0].Rankings[0]
		require.Equal(t, "Q1 2024", ranking.Bucket)
		require.Equal(t, "RY.TO", ranking.TopContributors[0].Ticker)
		require.Equal(t, "6", ranking.TopContributors[0].Contribution.String())
		require.Equal(t, "100", ranking.Total.Weight.String())
	})

	t.Run("bucket rows keep gaps apart from zeros", func(t *testing.T) {
		router := newTestApi().InitializeRouterEngine()

		w := doJson(t, router, "POST", "/attribution", AttributionRequest{
			Snapshots: []SnapshotInput{
				{Ticker: "RY.TO", Date: "2024-01-31", Weight: 1},
				{Ticker: "RY.TO", Date: "2024-02-29", Weight: 0.7},
				{Ticker: "AAPL", Date: "2024-02-29", Weight: 0.3},
				{Ticker: "RY.TO", Date: "2024-03-28", Weight: 0.7},
				{Ticker: "AAPL", Date: "2024-03-28", Weight: 0.3},
			},
			Granularities: []string{"monthly"},
		})
		require.Equal(t, 200, w.Code, w.Body.String())

		response := AttributionResponse{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		require.Len(t, response.Granularities, 1)

		buckets := response.Granularities[0].Buckets
		// two month buckets, a row per ticker in each
		require.Len(t, buckets, 4)

		rows := map[string][]bucketResponse{}
		for _, b := range buckets {
			rows[b.Ticker] = append(rows[b.Ticker], b)
		}

		ry := rows["RY.TO"]
		require.Len(t, ry, 2)
		require.Equal(t, domain.PresenceHeld, ry[0].Presence)
		require.Equal(t, "10", ry[0].Contribution.String())
		require.Equal(t, "70", ry[0].Weight.String())
		require.Equal(t, "10", ry[0].Return.String())

		aapl := rows["AAPL"]
		require.Len(t, aapl, 2)
		// bought at the end of february, so nothing ends in that bucket
		require.Equal(t, domain.PresenceNoPositionThisBucket, aapl[0].Presence)
		require.Nil(t, aapl[0].Contribution)
		require.Nil(t, aapl[0].Weight)
		require.Nil(t, aapl[0].Return)

		require.Equal(t, domain.PresenceHeld, aapl[1].Presence)
		require.Equal(t, "0", aapl[1].Contribution.String())
		require.Equal(t, "30", aapl[1].Weight.String())
		require.Equal(t, "0", aapl[1].Return.String())
	})

	t.Run("weights csv", func(t *testing.T) {
		router := newTestApi().InitializeRouterEngine()

		w := doJson(t, router, "POST", "/attribution", AttributionRequest{
			WeightsCsv: longCsv,
			Start:      "2024-02-01",
		})
		require.Equal(t, 200, w.Code, w.Body.String())

		response := AttributionResponse{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		// only the Feb -> Mar periods
		require.Len(t, response.Periods, 3)
		require.Len(t, response.Granularities, 3)
		for _, p := range response.Periods {
			if p.Ticker == "RY.TO" {
				require.Equal(t, "-5", p.Contribution.String())
				require.Equal(t, "Financials", *p.Sector)
			}
		}
	})

	t.Run("bad requests", func(t *testing.T) {
		router := newTestApi().InitializeRouterEngine()

		w := doJson(t, router, "POST", "/attribution", AttributionRequest{})
		require.Equal(t, 400, w.Code)

		w = doJson(t, router, "POST", "/attribution", AttributionRequest{WeightsCsv: longCsv, Granularities: []string{"weekly"}})
		require.Equal(t, 400, w.Code)

		w = doJson(t, router, "POST", "/attribution", AttributionRequest{WeightsCsv: longCsv, Start: "2024-03-01", End: "2024-02-01"})
		require.Equal(t, 400, w.Code)
	})

	t.Run("nothing to attribute", func(t *testing.T) {
		router := newTestApi().InitializeRouterEngine()

		w := doJson(t, router, "POST", "/attribution", AttributionRequest{WeightsCsv: longCsv, Start: "2024-04-01", End: "2024-04-30"})
		require.Equal(t, 422, w.Code, w.Body.String())
	})
}

func TestApiHandler_analyze(t *testing.T) {
	newUpload := func(t *testing.T, files map[string]string) *http.Request {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		for field, content := range files {
			fw, err := mw.CreateFormFile(field, field+".csv")
			require.NoError(t, err)
			_, err = fw.Write([]byte(content))
			require.NoError(t, err)
		}
		require.NoError(t, mw.Close())

		req := httptest.NewRequest("POST", "/analyze", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		return req
	}

	t.Run("weights only", func(t *testing.T) {
		router := newTestApi().InitializeRouterEngine()
		w := httptest.NewRecorder()
		router.ServeHTTP(w, newUpload(t, map[string]string{"weights_file": longCsv}))
		require.Equal(t, 200, w.Code, w.Body.String())

		items := []portfolioItem{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
		require.Len(t, items, 6)
		require.Equal(t, "2024-01-31", items[0].Date)
		require.Equal(t, "2024-02-29", items[5].Date)
		for _, item := range items {
			if item.Ticker == "AAPL" && item.Date == "2024-01-31" {
				require.Equal(t, "30", item.Weight.String())
				require.Equal(t, "5", item.ReturnPct.String())
				require.Equal(t, "1.5", item.Contribution.String())
			}
		}
	})

	t.Run("with nav", func(t *testing.T) {
		router := newTestApi().InitializeRouterEngine()
		nav := "date,ticker,nav\n2024-01-31,AAPL,10\n2024-02-29,AAPL,12\n2024-03-28,AAPL,12\n"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, newUpload(t, map[string]string{"weights_file": longCsv, "nav_file": nav}))
		require.Equal(t, 200, w.Code, w.Body.String())

		items := []portfolioItem{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
		for _, item := range items {
			if item.Ticker == "AAPL" && item.Date == "2024-01-31" {
				require.Equal(t, "20", item.ReturnPct.String())
			}
		}
	})

	t.Run("missing weights file", func(t *testing.T) {
		router := newTestApi().InitializeRouterEngine()
		w := httptest.NewRecorder()
		router.ServeHTTP(w, newUpload(t, map[string]string{"nav_file": "date,ticker,nav\n"}))
		require.Equal(t, 400, w.Code)
	})
}

func TestApiHandler_reference(t *testing.T) {
	h := newTestApi()
	router := h.InitializeRouterEngine()

	w := doJson(t, router, "GET", "/reference/RY.TO", nil)
	require.Equal(t, 404, w.Code)

	h.MarketDataService.SetSector(context.Background(), "RY.TO", "Financials")
	w = doJson(t, router, "GET", "/reference/RY.TO", nil)
	require.Equal(t, 200, w.Code)

	response := referenceResponse{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Equal(t, "Financials", *response.Sector)
	require.Nil(t, response.Beta)
}

func TestApiHandler_health(t *testing.T) {
	router := newTestApi().InitializeRouterEngine()
	w := doJson(t, router, "GET", "/health", nil)
	require.Equal(t, 200, w.Code)
	require.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
