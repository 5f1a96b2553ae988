package ingest

import (
	"attribution/internal/domain"
	"attribution/internal/util"
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
)

// SnapshotRow is the long layout: one row per ticker and date
type SnapshotRow struct {
	Ticker       string `csv:"ticker"`
	Date         string `csv:"date"`
	Weight       string `csv:"weight"`
	ReturnPct    string `csv:"return_pct"`
	Contribution string `csv:"contribution"`
	Sector       string `csv:"sector"`
}

const tickerColumn = "ticker"

// ReadSnapshots parses a weights CSV in either layout:
//   - long: ticker,date,weight[,return_pct,contribution,sector]
//   - wide: Ticker,31/01/2024,29/02/2024,... with one weight per cell
//
// Values may carry a % sign. Plain numbers are fractions unless any weight in
// the file is above 1, in which case every plain number in the file is read
// as a percentage. Rows that cannot be parsed are skipped with a warning.
func ReadSnapshots(r io.Reader) ([]domain.PositionSnapshot, []domain.Warning, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read snapshots: %w", err)
	}
	data = trimBOM(data)

	header := headerColumns(data)
	switch {
	case header["weight"]:
		return readLongSnapshots(data)
	case header[tickerColumn]:
		return readWideSnapshots(data)
	default:
		return nil, nil, fmt.Errorf("snapshots file needs a ticker column")
	}
}

func ReadSnapshotsFile(path string) ([]domain.PositionSnapshot, []domain.Warning, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	return ReadSnapshots(f)
}

// pendingSnapshot holds raw numbers until the file's unit is known
type pendingSnapshot struct {
	snapshot     domain.PositionSnapshot
	weight       number
	returnPct    *number
	contribution *number
}

func readLongSnapshots(data []byte) ([]domain.PositionSnapshot, []domain.Warning, error) {
	rows := []SnapshotRow{}
	if err := gocsv.UnmarshalBytes(normalizeHeader(data), &rows); err != nil {
		return nil, nil, fmt.Errorf("failed to parse snapshots csv: %w", err)
	}

	warnings := []domain.Warning{}
	pending := []pendingSnapshot{}
	for i, row := range rows {
		p, err := parseSnapshotRow(row)
		if err != nil {
			warnings = append(warnings, domain.NewWarning(domain.MalformedSnapshotError{
				Ticker: strings.TrimSpace(row.Ticker),
				Reason: fmt.Sprintf("row %d: %s", i+2, err.Error()),
			}))
			continue
		}
		pending = append(pending, *p)
	}

	return resolveUnits(pending), warnings, nil
}

func parseSnapshotRow(row SnapshotRow) (*pendingSnapshot, error) {
	date, err := util.ParseDate(strings.TrimSpace(row.Date))
	if err != nil {
		return nil, fmt.Errorf("invalid date %q", row.Date)
	}
	weight, err := parseNumber(row.Weight)
	if err != nil {
		return nil, fmt.Errorf("invalid weight %q", row.Weight)
	}

	p := &pendingSnapshot{
		snapshot: domain.PositionSnapshot{
			Ticker: strings.TrimSpace(row.Ticker),
			Date:   date,
		},
		weight: weight,
	}
	if strings.TrimSpace(row.ReturnPct) != "" {
		n, err := parseNumber(row.ReturnPct)
		if err != nil {
			return nil, fmt.Errorf("invalid return %q", row.ReturnPct)
		}
		p.returnPct = &n
	}
	if strings.TrimSpace(row.Contribution) != "" {
		n, err := parseNumber(row.Contribution)
		if err != nil {
			return nil, fmt.Errorf("invalid contribution %q", row.Contribution)
		}
		p.contribution = &n
	}
	if sector := strings.TrimSpace(row.Sector); sector != "" {
		p.snapshot.Sector = &sector
	}
	return p, nil
}

func readWideSnapshots(data []byte) ([]domain.PositionSnapshot, []domain.Warning, error) {
	cells, warnings, err := readWide(data)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse snapshots csv: %w", err)
	}

	pending := []pendingSnapshot{}
	for _, c := range cells {
		n, err := parseNumber(c.value)
		if err != nil {
			warnings = append(warnings, domain.NewWarning(domain.MalformedSnapshotError{
				Ticker: c.ticker,
				Date:   c.date,
				Reason: fmt.Sprintf("invalid weight %q", c.value),
			}))
			continue
		}
		pending = append(pending, pendingSnapshot{
			snapshot: domain.PositionSnapshot{Ticker: c.ticker, Date: c.date},
			weight:   n,
		})
	}

	return resolveUnits(pending), warnings, nil
}

func resolveUnits(pending []pendingSnapshot) []domain.PositionSnapshot {
	percentFile := false
	for _, p := range pending {
		if !p.weight.percent && p.weight.value > 1 {
			percentFile = true
			break
		}
	}

	out := make([]domain.PositionSnapshot, 0, len(pending))
	for _, p := range pending {
		s := p.snapshot
		s.Weight = p.weight.fraction(percentFile)
		if p.returnPct != nil {
			s.ReturnPct = util.FloatPointer(p.returnPct.fraction(percentFile))
		}
		if p.contribution != nil {
			s.Contribution = util.FloatPointer(p.contribution.fraction(percentFile))
		}
		out = append(out, s)
	}
	return out
}

type number struct {
	value float64
	// written with a % sign
	percent bool
}

func (n number) fraction(percentFile bool) float64 {
	if n.percent || percentFile {
		return n.value / 100
	}
	return n.value
}

// parseNumber accepts 12.5, 12.5%, 1,234.5 and accounting negatives (1.5%)
func parseNumber(s string) (number, error) {
	s = strings.TrimSpace(s)
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	n := number{}
	if strings.HasSuffix(s, "%") {
		n.percent = true
		s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	}
	s = strings.ReplaceAll(s, ",", "")

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return number{}, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return number{}, fmt.Errorf("not a finite number")
	}
	if negative {
		v = -v
	}
	n.value = v
	return n, nil
}

// headerColumns returns the lowercased names of the first CSV line
func headerColumns(data []byte) map[string]bool {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	out := map[string]bool{}
	for _, col := range strings.Split(string(line), ",") {
		out[strings.ToLower(strings.Trim(strings.TrimSpace(col), "\""))] = true
	}
	return out
}

// normalizeHeader lowercases the header line so Ticker,Date,Weight binds to
// the csv tags
func normalizeHeader(data []byte) []byte {
	i := bytes.IndexByte(data, '\n')
	if i < 0 {
		return bytes.ToLower(data)
	}
	out := append([]byte{}, bytes.ToLower(data[:i])...)
	return append(out, data[i:]...)
}

var utf8BOM = []byte("\xef\xbb\xbf")

func trimBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, utf8BOM)
}
