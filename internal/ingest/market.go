package ingest

import (
	"attribution/internal/domain"
	"attribution/internal/util"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gocarina/gocsv"
)

type NavRow struct {
	Ticker string  `csv:"ticker"`
	Date   string  `csv:"date"`
	Nav    float64 `csv:"nav"`
}

type PriceRow struct {
	Date   string  `csv:"date"`
	Symbol string  `csv:"symbol"`
	Price  float64 `csv:"price"`
}

// ReadNav parses mutual fund NAVs into ticker -> date key -> NAV. Both the
// long (ticker,date,nav) and the wide (Ticker + one column per date) layouts
// are accepted.
func ReadNav(r io.Reader) (map[string]map[string]float64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read nav file: %w", err)
	}
	data = trimBOM(data)

	out := map[string]map[string]float64{}
	add := func(ticker string, date string, nav float64) error {
		d, err := util.ParseDate(strings.TrimSpace(date))
		if err != nil {
			return fmt.Errorf("invalid nav date %q for %s", date, ticker)
		}
		if nav <= 0 {
			return fmt.Errorf("invalid nav %v for %s on %s", nav, ticker, util.DateKey(d))
		}
		if _, ok := out[ticker]; !ok {
			out[ticker] = map[string]float64{}
		}
		out[ticker][util.DateKey(d)] = nav
		return nil
	}

	if headerColumns(data)["nav"] {
		rows := []NavRow{}
		if err := gocsv.UnmarshalBytes(normalizeHeader(data), &rows); err != nil {
			return nil, fmt.Errorf("failed to parse nav csv: %w", err)
		}
		for _, row := range rows {
			if err := add(strings.TrimSpace(row.Ticker), row.Date, row.Nav); err != nil {
				return nil, err
			}
		}
		return out, nil
	}

	cells, _, err := readWide(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse nav csv: %w", err)
	}
	for _, c := range cells {
		n, err := parseNumber(c.value)
		if err != nil {
			return nil, fmt.Errorf("invalid nav %q for %s", c.value, c.ticker)
		}
		if err := add(c.ticker, util.DateKey(c.date), n.value); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func ReadNavFile(path string) (map[string]map[string]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ReadNav(f)
}

// ReadPrices parses date,symbol,price rows. FX pairs use their Yahoo symbol,
// e.g. USDCAD=X.
func ReadPrices(r io.Reader) ([]domain.AssetPrice, error) {
	rows := []PriceRow{}
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse prices csv: %w", err)
	}

	out := make([]domain.AssetPrice, 0, len(rows))
	for _, row := range rows {
		date, err := util.ParseDate(strings.TrimSpace(row.Date))
		if err != nil {
			return nil, fmt.Errorf("invalid price date %q for %s", row.Date, row.Symbol)
		}
		out = append(out, domain.AssetPrice{
			Symbol: strings.TrimSpace(row.Symbol),
			Date:   date,
			Price:  row.Price,
		})
	}
	return out, nil
}

func ReadPricesFile(path string) ([]domain.AssetPrice, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ReadPrices(f)
}
