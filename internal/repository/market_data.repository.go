package repository

import (
	"attribution/internal/domain"
	"attribution/internal/util"
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
)

// MarketDataRepository is the market data provider. A missing value is
// reported with an error wrapping domain.ErrPriceNotFound.
type MarketDataRepository interface {
	GetPrice(ctx context.Context, ticker string, date time.Time) (float64, error)
	// GetFxRate returns how many units of base one unit of quote buys
	GetFxRate(ctx context.Context, base, quote string, date time.Time) (float64, error)
	ListPrices(ctx context.Context, symbol string, start, end time.Time) ([]domain.AssetPrice, error)
}

// FxSymbol is the Yahoo pair symbol quoting base per unit of quote, e.g.
// FxSymbol("CAD", "USD") == "USDCAD=X"
func FxSymbol(base, quote string) string {
	return strings.ToUpper(quote+base) + "=X"
}

type barFetcher func(symbol string, start, end time.Time) ([]domain.AssetPrice, error)

type yahooMarketDataRepositoryHandler struct {
	// calendar days fetched before the requested date, so a weekend or
	// holiday resolves to the previous close
	LookbackDays int
	fetchBars    barFetcher
}

func NewYahooMarketDataRepository(lookbackDays int) MarketDataRepository {
	if lookbackDays <= 0 {
		lookbackDays = util.DefaultCarryForwardDays
	}
	return yahooMarketDataRepositoryHandler{
		LookbackDays: lookbackDays,
		fetchBars:    fetchChartBars,
	}
}

func (h yahooMarketDataRepositoryHandler) GetPrice(ctx context.Context, ticker string, date time.Time) (float64, error) {
	return h.closeOnOrBefore(ctx, ticker, date)
}

func (h yahooMarketDataRepositoryHandler) GetFxRate(ctx context.Context, base, quote string, date time.Time) (float64, error) {
	if strings.EqualFold(base, quote) {
		return 1, nil
	}
	return h.closeOnOrBefore(ctx, FxSymbol(base, quote), date)
}

func (h yahooMarketDataRepositoryHandler) ListPrices(ctx context.Context, symbol string, start, end time.Time) ([]domain.AssetPrice, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// chart end is exclusive
	return h.fetchBars(symbol, util.DateOnly(start), util.DateOnly(end).AddDate(0, 0, 1))
}

func (h yahooMarketDataRepositoryHandler) closeOnOrBefore(ctx context.Context, symbol string, date time.Time) (float64, error) {
	date = util.DateOnly(date)
	prices, err := h.ListPrices(ctx, symbol, date.AddDate(0, 0, -h.LookbackDays), date)
	if err != nil {
		return 0, err
	}

	var latest *domain.AssetPrice
	for i := range prices {
		if prices[i].Date.After(date) {
			continue
		}
		if latest == nil || prices[i].Date.After(latest.Date) {
			latest = &prices[i]
		}
	}
	if latest == nil {
		return 0, fmt.Errorf("%s on %s: %w", symbol, date.Format(time.DateOnly), domain.ErrPriceNotFound)
	}

	return latest.Price, nil
}

func fetchChartBars(symbol string, start, end time.Time) ([]domain.AssetPrice, error) {
	params := &chart.Params{
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Symbol:   symbol,
		Interval: datetime.OneDay,
	}
	iter := chart.Get(params)

	out := []domain.AssetPrice{}
	for iter.Next() {
		if price, ok := barToAssetPrice(symbol, iter.Bar()); ok {
			out = append(out, price)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to get prices for %s: %w", symbol, err)
	}

	return out, nil
}

// barToAssetPrice reads the split and dividend adjusted close of a daily bar.
// Bars without a usable price are skipped.
func barToAssetPrice(symbol string, bar *finance.ChartBar) (domain.AssetPrice, bool) {
	if bar == nil {
		return domain.AssetPrice{}, false
	}
	price := bar.AdjClose.InexactFloat64()
	if price <= 0 {
		return domain.AssetPrice{}, false
	}
	return domain.AssetPrice{
		Symbol: symbol,
		Date:   util.DateOnly(time.Unix(int64(bar.Timestamp), 0).UTC()),
		Price:  price,
	}, true
}

// staticMarketDataRepositoryHandler serves prices loaded up front, e.g. from
// a prices CSV. Lookups are exact-date; carry-forward happens upstream.
type staticMarketDataRepositoryHandler struct {
	// symbol -> date key -> price
	Prices map[string]map[string]float64
}

func NewStaticMarketDataRepository(prices []domain.AssetPrice) MarketDataRepository {
	h := staticMarketDataRepositoryHandler{
		Prices: map[string]map[string]float64{},
	}
	for _, p := range prices {
		if _, ok := h.Prices[p.Symbol]; !ok {
			h.Prices[p.Symbol] = map[string]float64{}
		}
		h.Prices[p.Symbol][util.DateKey(p.Date)] = p.Price
	}
	return h
}

func (h staticMarketDataRepositoryHandler) GetPrice(ctx context.Context, ticker string, date time.Time) (float64, error) {
	if series, ok := h.Prices[ticker]; ok {
		if p, ok := series[util.DateKey(date)]; ok {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%s on %s: %w", ticker, util.DateKey(date), domain.ErrPriceNotFound)
}

func (h staticMarketDataRepositoryHandler) GetFxRate(ctx context.Context, base, quote string, date time.Time) (float64, error) {
	if strings.EqualFold(base, quote) {
		return 1, nil
	}
	return h.GetPrice(ctx, FxSymbol(base, quote), date)
}

func (h staticMarketDataRepositoryHandler) ListPrices(ctx context.Context, symbol string, start, end time.Time) ([]domain.AssetPrice, error) {
	out := []domain.AssetPrice{}
	for k, p := range h.Prices[symbol] {
		d, err := util.ParseDate(k)
		if err != nil {
			continue
		}
		if d.Before(util.DateOnly(start)) || d.After(util.DateOnly(end)) {
			continue
		}
		out = append(out, domain.AssetPrice{Symbol: symbol, Date: d, Price: p})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}
