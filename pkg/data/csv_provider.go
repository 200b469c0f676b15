package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	bterrors "github.com/ducminhle1904/eod-backtester/internal/errors"
	"github.com/ducminhle1904/eod-backtester/pkg/types"
)

const component = "data"

// CSVProvider implements DataProvider for CSV files. The column layout comes
// from the header unless a fixed format is set.
type CSVProvider struct {
	format *CSVColumnMapping
}

// NewCSVProvider creates a CSV provider that detects the layout from the header
func NewCSVProvider() *CSVProvider {
	return &CSVProvider{}
}

// NewCSVProviderWithFormat creates a CSV provider with a fixed layout
func NewCSVProviderWithFormat(format CSVColumnMapping) *CSVProvider {
	return &CSVProvider{format: &format}
}

// GetName returns the name of the data provider
func (p *CSVProvider) GetName() string {
	return "CSV Provider"
}

// LoadData loads and validates bars from a CSV file
func (p *CSVProvider) LoadData(source string) ([]types.Bar, error) {
	file, err := os.Open(source)
	if err != nil {
		return nil, bterrors.Wrap(err, bterrors.KindData, component, "load", "cannot open "+source)
	}
	defer file.Close()

	bars, err := p.Parse(file)
	if err != nil {
		return nil, err
	}
	if err := p.ValidateData(bars); err != nil {
		return nil, err
	}
	return bars, nil
}

// Parse reads bars from r. Rows where Yahoo reports "null" prices are
// market holidays and are dropped; any other malformed row is an error.
func (p *CSVProvider) Parse(r io.Reader) ([]types.Bar, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, bterrors.NewDataError(component, "parse", "empty csv")
		}
		return nil, bterrors.Wrap(err, bterrors.KindData, component, "parse", "cannot read header")
	}

	format, err := p.resolveFormat(header)
	if err != nil {
		return nil, err
	}

	var bars []types.Bar
	lineNum := 1
	for {
		record, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, bterrors.Wrap(err, bterrors.KindData, component, "parse", fmt.Sprintf("line %d", lineNum+1))
		}
		lineNum++

		if isBlank(record) {
			continue
		}
		if len(record) < format.MinColumns {
			return nil, bterrors.DataErrorf(component, "parse", "line %d: expected at least %d columns, got %d",
				lineNum, format.MinColumns, len(record))
		}
		if isMissingRow(record, format) {
			continue
		}

		bar, err := parseRecord(record, format)
		if err != nil {
			return nil, bterrors.Wrap(err, bterrors.KindData, component, "parse", fmt.Sprintf("line %d", lineNum))
		}
		bars = append(bars, bar)
	}

	return bars, nil
}

func (p *CSVProvider) resolveFormat(header []string) (CSVColumnMapping, error) {
	if p.format != nil {
		return *p.format, nil
	}
	return DetectFormat(header)
}

// DetectFormat maps header names to column positions. Adj Close is ignored
// so raw index closes are used.
func DetectFormat(header []string) (CSVColumnMapping, error) {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF")))
		cols[key] = i
	}

	find := func(names ...string) int {
		for _, n := range names {
			if i, ok := cols[n]; ok {
				return i
			}
		}
		return -1
	}

	f := CSVColumnMapping{
		Name:      "detected",
		DateCol:   find("date", "datetime", "timestamp"),
		OpenCol:   find("open"),
		HighCol:   find("high"),
		LowCol:    find("low"),
		CloseCol:  find("close", "price"),
		VolumeCol: find("volume", "shares traded"),
	}
	if _, ok := cols["adj close"]; ok {
		f.Name = YahooCSVFormat.Name
	}

	required := map[string]int{"date": f.DateCol, "open": f.OpenCol, "high": f.HighCol, "low": f.LowCol, "close": f.CloseCol}
	for _, name := range []string{"date", "open", "high", "low", "close"} {
		if required[name] < 0 {
			return CSVColumnMapping{}, bterrors.DataErrorf(component, "parse", "header has no %s column", name)
		}
	}
	f.MinColumns = max(f.DateCol, f.OpenCol, f.HighCol, f.LowCol, f.CloseCol) + 1
	return f, nil
}

func parseRecord(record []string, format CSVColumnMapping) (types.Bar, error) {
	date, err := parseDate(record[format.DateCol], format.DateFormat)
	if err != nil {
		return types.Bar{}, err
	}

	var bar types.Bar
	bar.Date = date
	fields := []struct {
		name string
		col  int
		dst  *float64
	}{
		{"open", format.OpenCol, &bar.Open},
		{"high", format.HighCol, &bar.High},
		{"low", format.LowCol, &bar.Low},
		{"close", format.CloseCol, &bar.Close},
	}
	for _, f := range fields {
		v, err := parseNumber(record[f.col])
		if err != nil {
			return types.Bar{}, fmt.Errorf("invalid %s %q: %w", f.name, record[f.col], err)
		}
		*f.dst = v
	}

	if format.VolumeCol >= 0 && format.VolumeCol < len(record) {
		raw := strings.TrimSpace(record[format.VolumeCol])
		if raw != "" && !strings.EqualFold(raw, "null") {
			v, err := parseNumber(raw)
			if err != nil {
				return types.Bar{}, fmt.Errorf("invalid volume %q: %w", raw, err)
			}
			bar.Volume = v
		}
	}
	return bar, nil
}

func parseDate(raw, layout string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if layout != "" {
		t, err := time.Parse(layout, raw)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date %q: %w", raw, err)
		}
		return truncateDay(t), nil
	}
	for _, l := range DateLayouts {
		if t, err := time.Parse(l, raw); err == nil {
			return truncateDay(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", raw)
}

// truncateDay keeps the calendar date of t in UTC.
func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func parseNumber(raw string) (float64, error) {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not a finite number")
	}
	return v, nil
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func isMissingRow(record []string, format CSVColumnMapping) bool {
	for _, col := range []int{format.OpenCol, format.HighCol, format.LowCol, format.CloseCol} {
		v := strings.TrimSpace(record[col])
		if strings.EqualFold(v, "null") || v == "" {
			return true
		}
	}
	return false
}

// ValidateData checks the invariants every bar sequence must satisfy before
// a run: at least one bar, strictly increasing dates, positive prices and a
// consistent high/low range.
func (p *CSVProvider) ValidateData(bars []types.Bar) error {
	return ValidateBars(bars)
}

// ValidateBars is the provider independent form of ValidateData.
func ValidateBars(bars []types.Bar) error {
	if len(bars) == 0 {
		return bterrors.NewDataError(component, "validate", "no bars")
	}

	for i, b := range bars {
		day := b.Date.Format("2006-01-02")
		if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
			return bterrors.DataErrorf(component, "validate", "bar %d (%s): prices must be positive", i, day)
		}
		if b.Volume < 0 {
			return bterrors.DataErrorf(component, "validate", "bar %d (%s): negative volume", i, day)
		}
		if b.High < b.Low {
			return bterrors.DataErrorf(component, "validate", "bar %d (%s): high %.2f below low %.2f", i, day, b.High, b.Low)
		}
		if b.High < math.Max(b.Open, b.Close) || b.Low > math.Min(b.Open, b.Close) {
			return bterrors.DataErrorf(component, "validate", "bar %d (%s): open/close outside high/low range", i, day)
		}
	}

	if err := NewDefaultDataFilter().ValidateTimeSequence(bars); err != nil {
		return bterrors.Wrap(err, bterrors.KindData, component, "validate", "bad date sequence")
	}
	return nil
}
