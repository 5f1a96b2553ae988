package ingest

import (
	"attribution/internal/domain"
	"attribution/internal/util"
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
)

type wideCell struct {
	ticker string
	date   time.Time
	value  string
}

// readWide reads the spreadsheet export layout: a Ticker column followed by
// one column per dd/mm/yyyy date. Empty cells are skipped.
func readWide(data []byte) ([]wideCell, []domain.Warning, error) {
	rows, err := gocsv.CSVToMaps(bytes.NewReader(data))
	if err != nil {
		return nil, nil, err
	}

	warnings := []domain.Warning{}
	out := []wideCell{}
	dates := map[string]time.Time{}
	for _, row := range rows {
		ticker := ""
		for k, v := range row {
			if isTickerColumn(k) {
				ticker = strings.TrimSpace(v)
			}
		}
		if ticker == "" {
			warnings = append(warnings, domain.NewWarning(domain.MalformedSnapshotError{Reason: "row without ticker"}))
			continue
		}

		cells := []wideCell{}
		for k, v := range row {
			if isTickerColumn(k) || strings.TrimSpace(v) == "" {
				continue
			}
			d, ok := dates[k]
			if !ok {
				d, err = util.ParseDate(strings.TrimSpace(k))
				if err != nil {
					return nil, nil, fmt.Errorf("column %q is not a date", k)
				}
				dates[k] = d
			}
			cells = append(cells, wideCell{ticker: ticker, date: d, value: v})
		}
		sort.Slice(cells, func(i, j int) bool {
			return cells[i].date.Before(cells[j].date)
		})
		out = append(out, cells...)
	}

	return out, warnings, nil
}

func isTickerColumn(name string) bool {
	return strings.EqualFold(strings.TrimSpace(name), tickerColumn)
}
