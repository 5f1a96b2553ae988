package domain

import "strings"

const (
	DefaultCashTicker      = "$CASH$"
	DefaultBaseCurrency    = "CAD"
	DefaultForeignCurrency = "USD"
)

// CurrencyRules decides which tickers are already denominated in the base
// currency and therefore skip the FX adjustment
type CurrencyRules struct {
	BaseCurrency string
	// currency every non-domestic ticker is assumed to trade in
	ForeignCurrency  string
	CashTicker       string
	DomesticSuffixes []string
	DomesticTickers  []string
}

func DefaultCurrencyRules() CurrencyRules {
	return CurrencyRules{
		BaseCurrency:     DefaultBaseCurrency,
		ForeignCurrency:  DefaultForeignCurrency,
		CashTicker:       DefaultCashTicker,
		DomesticSuffixes: []string{".TO", ".V", ".NE", ".CN"},
		DomesticTickers:  []string{"^GSPTSE"},
	}
}

func (c CurrencyRules) IsCash(ticker string) bool {
	return c.CashTicker != "" && ticker == c.CashTicker
}

func (c CurrencyRules) IsDomestic(ticker string) bool {
	if c.IsCash(ticker) {
		return true
	}
	upper := strings.ToUpper(ticker)
	for _, s := range c.DomesticSuffixes {
		if strings.HasSuffix(upper, strings.ToUpper(s)) {
			return true
		}
	}
	for _, t := range c.DomesticTickers {
		if strings.EqualFold(t, ticker) {
			return true
		}
	}
	return false
}

// QuoteCurrency is the currency the ticker's prices are quoted in
func (c CurrencyRules) QuoteCurrency(ticker string) string {
	if c.IsDomestic(ticker) {
		return c.BaseCurrency
	}
	return c.ForeignCurrency
}

// Benchmark is a reference series reported alongside the portfolio. When IsFx
// is set Ticker is ignored and the base/foreign FX return is used.
type Benchmark struct {
	Name   string
	Ticker string
	IsFx   bool
}

func DefaultBenchmarks() []Benchmark {
	return []Benchmark{
		{Name: "USD/CAD", IsFx: true},
		{Name: "S&P 500", Ticker: "^GSPC"},
		{Name: "Dow Jones", Ticker: "^DJI"},
		{Name: "Nasdaq", Ticker: "^IXIC"},
		{Name: "ACWI", Ticker: "ACWI"},
		{Name: "TSX60", Ticker: "^GSPTSE"},
	}
}

type BenchmarkReturn struct {
	Name   string
	Ticker string
	Period Period
	Return *float64
}
