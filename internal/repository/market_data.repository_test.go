package repository

import (
	"attribution/internal/domain"
	"attribution/internal/util"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	finance "github.com/piquette/finance-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestFxSymbol(t *testing.T) {
	require.Equal(t, "USDCAD=X", FxSymbol("CAD", "USD"))
	require.Equal(t, "EURUSD=X", FxSymbol("usd", "eur"))
}

func Test_yahooMarketDataRepositoryHandler(t *testing.T) {
	ctx := context.Background()
	calls := []string{}
	h := yahooMarketDataRepositoryHandler{
		LookbackDays: 5,
		fetchBars: func(symbol string, start, end time.Time) ([]domain.AssetPrice, error) {
			calls = append(calls, symbol+" "+util.DateKey(start)+" "+util.DateKey(end))
			switch symbol {
			case "AAPL":
				return []domain.AssetPrice{
					{Symbol: symbol, Date: util.NewDate(2024, 3, 27), Price: 173},
					{Symbol: symbol, Date: util.NewDate(2024, 3, 28), Price: 171.48},
				}, nil
			case "USDCAD=X":
				return []domain.AssetPrice{
					{Symbol: symbol, Date: util.NewDate(2024, 3, 28), Price: 1.3541},
				}, nil
			case "BROKEN":
				return nil, errors.New("yahoo is down")
			}
			return []domain.AssetPrice{}, nil
		},
	}

	t.Run("weekend resolves to previous close", func(t *testing.T) {
		calls = calls[:0]
		price, err := h.GetPrice(ctx, "AAPL", util.NewDate(2024, 3, 30))
		require.NoError(t, err)
		require.Equal(t, 171.48, price)
		require.Equal(t, []string{"AAPL 2024-03-25 2024-03-31"}, calls)
	})

	t.Run("bars after the date are ignored", func(t *testing.T) {
		price, err := h.GetPrice(ctx, "AAPL", util.NewDate(2024, 3, 27))
		require.NoError(t, err)
		require.Equal(t, 173.0, price)
	})

	t.Run("fx pair", func(t *testing.T) {
		rate, err := h.GetFxRate(ctx, "CAD", "USD", util.NewDate(2024, 3, 29))
		require.NoError(t, err)
		require.Equal(t, 1.3541, rate)

		rate, err = h.GetFxRate(ctx, "CAD", "CAD", util.NewDate(2024, 3, 29))
		require.NoError(t, err)
		require.Equal(t, 1.0, rate)
	})

	t.Run("no bars is a miss", func(t *testing.T) {
		_, err := h.GetPrice(ctx, "NOPE", util.NewDate(2024, 3, 29))
		require.ErrorIs(t, err, domain.ErrPriceNotFound)
	})

	t.Run("provider failure is not a miss", func(t *testing.T) {
		_, err := h.GetPrice(ctx, "BROKEN", util.NewDate(2024, 3, 29))
		require.Error(t, err)
		require.False(t, errors.Is(err, domain.ErrPriceNotFound))
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := h.GetPrice(cctx, "AAPL", util.NewDate(2024, 3, 29))
		require.ErrorIs(t, err, context.Canceled)
	})
}

func Test_staticMarketDataRepositoryHandler(t *testing.T) {
	ctx := context.Background()
	repo := NewStaticMarketDataRepository([]domain.AssetPrice{
		{Symbol: "RY.TO", Date: util.NewDate(2024, 1, 31), Price: 120},
		{Symbol: "RY.TO", Date: util.NewDate(2024, 2, 29), Price: 126},
		{Symbol: "RY.TO", Date: util.NewDate(2024, 3, 28), Price: 130},
		{Symbol: "USDCAD=X", Date: util.NewDate(2024, 1, 31), Price: 1.34},
	})

	price, err := repo.GetPrice(ctx, "RY.TO", util.NewDate(2024, 2, 29))
	require.NoError(t, err)
	require.Equal(t, 126.0, price)

	_, err = repo.GetPrice(ctx, "RY.TO", util.NewDate(2024, 3, 1))
	require.ErrorIs(t, err, domain.ErrPriceNotFound)

	rate, err := repo.GetFxRate(ctx, "CAD", "USD", util.NewDate(2024, 1, 31))
	require.NoError(t, err)
	require.Equal(t, 1.34, rate)

	prices, err := repo.ListPrices(ctx, "RY.TO", util.NewDate(2024, 2, 1), util.NewDate(2024, 3, 31))
	require.NoError(t, err)
	require.Equal(
		t,
		"",
		cmp.Diff(
			[]domain.AssetPrice{
				{Symbol: "RY.TO", Date: util.NewDate(2024, 2, 29), Price: 126},
				{Symbol: "RY.TO", Date: util.NewDate(2024, 3, 28), Price: 130},
			},
			prices,
		),
	)
}

func Test_barToAssetPrice(t *testing.T) {
	ts := time.Date(2024, 3, 28, 13, 30, 0, 0, time.UTC)

	t.Run("uses the adjusted close", func(t *testing.T) {
		price, ok := barToAssetPrice("AAPL", &finance.ChartBar{
			Close:     decimal.NewFromFloat(171.48),
			AdjClose:  decimal.NewFromFloat(170.85),
			Timestamp: int(ts.Unix()),
		})
		require.True(t, ok)
		require.Equal(
			t,
			"",
			cmp.Diff(
				domain.AssetPrice{Symbol: "AAPL", Date: util.NewDate(2024, 3, 28), Price: 170.85},
				price,
			),
		)
	})

	t.Run("bar without a price is skipped", func(t *testing.T) {
		_, ok := barToAssetPrice("AAPL", &finance.ChartBar{
			Close:     decimal.NewFromFloat(171.48),
			Timestamp: int(ts.Unix()),
		})
		require.False(t, ok)

		_, ok = barToAssetPrice("AAPL", nil)
		require.False(t, ok)
	})
}

func Test_referenceEntryToModel(t *testing.T) {
	fetchedAt := time.Date(2024, 3, 29, 12, 0, 0, 0, time.UTC)

	sector := referenceEntryToModel(domain.ReferenceEntry{
		Kind:      domain.ReferenceSector,
		Symbol:    "RY.TO",
		Text:      "Financials",
		Found:     true,
		FetchedAt: fetchedAt,
	})
	require.Nil(t, sector.Value)
	require.Equal(t, "Financials", *sector.TextValue)
	require.Equal(t, "sector", sector.Kind)

	miss := referenceEntryToModel(domain.ReferenceEntry{
		Kind:   domain.ReferencePrice,
		Symbol: "NOPE",
		Date:   util.NewDate(2024, 3, 29),
		Value:  42,
	})
	require.Nil(t, miss.Value)
	require.Nil(t, miss.TextValue)
	require.False(t, miss.Found)

	price := modelToReferenceEntry(referenceEntryToModel(domain.ReferenceEntry{
		Kind:      domain.ReferencePrice,
		Symbol:    "AAPL",
		Date:      util.NewDate(2024, 3, 28),
		Value:     171.48,
		Found:     true,
		FetchedAt: fetchedAt,
	}))
	require.Equal(t, 171.48, price.Value)
	require.Equal(t, domain.ReferencePrice, price.Kind)
	require.True(t, price.Found)
}
