package data

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bterrors "github.com/ducminhle1904/eod-backtester/internal/errors"
	"github.com/ducminhle1904/eod-backtester/pkg/types"
)

const yahooCSV = `Date,Open,High,Low,Close,Adj Close,Volume
2024-01-01,21727.75,21834.35,21680.70,21741.90,21741.90,154000
2024-01-02,21751.35,21755.60,21555.65,21665.80,21665.80,246400
2024-01-03,null,null,null,null,null,null
2024-01-04,21605.80,21685.65,21564.55,21658.60,21658.60,339700
`

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCSVProvider_ParseYahoo(t *testing.T) {
	bars, err := NewCSVProvider().Parse(strings.NewReader(yahooCSV))
	require.NoError(t, err)
	require.Len(t, bars, 3, "null row is a holiday and must be dropped")

	assert.Equal(t, day("2024-01-01"), bars[0].Date)
	assert.Equal(t, 21727.75, bars[0].Open)
	assert.Equal(t, 21741.90, bars[0].Close)
	assert.Equal(t, 154000.0, bars[0].Volume, "volume comes from the column after Adj Close")
	assert.Equal(t, day("2024-01-04"), bars[2].Date)
}

func TestCSVProvider_HeaderWithByteOrderMark(t *testing.T) {
	header := []string{"\uFEFFDate", "Open", "High", "Low", "Close", "Volume"}
	mapping, err := DetectFormat(header)
	require.NoError(t, err)
	assert.Equal(t, 0, mapping.DateCol)
	assert.Equal(t, 5, mapping.VolumeCol)

	csv := "\uFEFFDate,Open,High,Low,Close,Volume\n2024-03-01,100,110,95,105,5000\n"
	bars, err := NewCSVProvider().Parse(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, day("2024-03-01"), bars[0].Date)
	assert.Equal(t, 105.0, bars[0].Close)
	assert.Equal(t, 5000.0, bars[0].Volume)
}

func TestCSVProvider_ParseDefaultWithoutVolume(t *testing.T) {
	csv := "date,open,high,low,close\n2024-02-01,10,12,9,11\n2024-02-02,11,13,10,12\n"
	bars, err := NewCSVProvider().Parse(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Zero(t, bars[1].Volume)
	assert.Equal(t, 12.0, bars[1].Close)
}

func TestCSVProvider_FixedFormat(t *testing.T) {
	csv := "d,o,h,l,c,v\n2024-02-01,10,12,9,11,5\n"
	bars, err := NewCSVProviderWithFormat(DefaultCSVFormat).Parse(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, 5.0, bars[0].Volume)
}

func TestCSVProvider_ParseErrors(t *testing.T) {
	tests := []struct {
		name string
		csv  string
		want string
	}{
		{"empty", "", "empty csv"},
		{"missing close", "Date,Open,High,Low\n", "no close column"},
		{"bad number", "Date,Open,High,Low,Close\n2024-01-01,1,2,x,1\n", "line 2"},
		{"bad date", "Date,Open,High,Low,Close\n01/01/2024,1,2,1,1\n", "invalid date"},
		{"short row", "Date,Open,High,Low,Close\n2024-01-01,1,2\n", "expected at least 5 columns"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCSVProvider().Parse(strings.NewReader(tt.csv))
			require.Error(t, err)
			assert.True(t, bterrors.IsKind(err, bterrors.KindData))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateBars(t *testing.T) {
	good := types.Bar{Date: day("2024-01-01"), Open: 10, High: 12, Low: 9, Close: 11}
	next := good
	next.Date = day("2024-01-02")

	tests := []struct {
		name string
		bars []types.Bar
		want string
	}{
		{"empty", nil, "no bars"},
		{"zero close", []types.Bar{{Date: good.Date, Open: 10, High: 12, Low: 9, Close: 0}}, "positive"},
		{"high below low", []types.Bar{{Date: good.Date, Open: 10, High: 8, Low: 9, Close: 9}}, "below low"},
		{"close above high", []types.Bar{{Date: good.Date, Open: 10, High: 12, Low: 9, Close: 13}}, "outside high/low"},
		{"duplicate date", []types.Bar{good, good}, "duplicate date"},
		{"decreasing dates", []types.Bar{next, good}, "not increasing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBars(tt.bars)
			require.Error(t, err)
			assert.True(t, bterrors.IsKind(err, bterrors.KindData))
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	assert.NoError(t, ValidateBars([]types.Bar{good, next}))
}

func TestDefaultDataFilter(t *testing.T) {
	f := NewDefaultDataFilter()
	bars := []types.Bar{
		{Date: day("2024-01-01"), Close: 1},
		{Date: day("2024-01-02"), Close: 2},
		{Date: day("2024-01-03"), Close: 3},
		{Date: day("2024-01-10"), Close: 4},
	}

	t.Run("date range is inclusive", func(t *testing.T) {
		got := f.FilterByDateRange(bars, day("2024-01-02"), day("2024-01-03"))
		require.Len(t, got, 2)
		assert.Equal(t, 2.0, got[0].Close)
		assert.Equal(t, 3.0, got[1].Close)
	})

	t.Run("zero bounds are open", func(t *testing.T) {
		assert.Len(t, f.FilterByDateRange(bars, time.Time{}, day("2024-01-02")), 2)
		assert.Len(t, f.FilterByDateRange(bars, day("2024-01-03"), time.Time{}), 2)
		assert.Len(t, f.FilterByDateRange(bars, time.Time{}, time.Time{}), 4)
	})

	t.Run("trailing period", func(t *testing.T) {
		got := f.FilterByPeriod(bars, 7*24*time.Hour)
		require.Len(t, got, 2)
		assert.Equal(t, day("2024-01-03"), got[0].Date)
	})

	t.Run("sort and dedupe", func(t *testing.T) {
		shuffled := []types.Bar{bars[2], bars[0], bars[2], bars[1]}
		sorted := f.RemoveDuplicates(f.SortByDate(shuffled))
		require.Len(t, sorted, 3)
		assert.NoError(t, f.ValidateTimeSequence(sorted))
		assert.Equal(t, bars[2], shuffled[0], "SortByDate must not modify its input")
	})
}

func TestFileLocator_FindDataFile(t *testing.T) {
	dir := t.TempDir()
	locator := NewDefaultFileLocator(nil)

	assert.Empty(t, locator.FindDataFile(dir, "NIFTY"))

	path := writeFile(t, dir, "nsebank.csv", yahooCSV)
	assert.Equal(t, path, locator.FindDataFile(dir, "BANKNIFTY"))
	assert.Equal(t, path, locator.FindDataFile(dir, "^NSEBANK"))

	nested := writeFile(t, dir, filepath.Join("NIFTY", "daily.csv"), yahooCSV)
	assert.Equal(t, nested, locator.FindDataFile(dir, "nifty 50"))
}

type countingProvider struct {
	*CSVProvider
	loads int
}

func (c *countingProvider) LoadData(source string) ([]types.Bar, error) {
	c.loads++
	return c.CSVProvider.LoadData(source)
}

func TestCachedProvider_LoadsOnce(t *testing.T) {
	path := writeFile(t, t.TempDir(), "NIFTY.csv", yahooCSV)
	inner := &countingProvider{CSVProvider: NewCSVProvider()}
	cached := NewCachedProvider(inner, nil)

	first, err := cached.LoadData(path)
	require.NoError(t, err)
	first[0].Close = -1

	second, err := cached.LoadData(path)
	require.NoError(t, err)
	assert.Equal(t, 1, inner.loads)
	assert.Equal(t, 21741.90, second[0].Close, "cache hands out copies")
	assert.Equal(t, 1, cached.GetCacheSize())
	assert.Equal(t, "Cached CSV Provider", cached.GetName())
}

func TestDataManager_LoadSymbol(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "NIFTY.csv", yahooCSV)
	dm := NewDataManager(nil)

	bars, err := dm.LoadSymbol(dir, "NIFTY", Range{From: day("2024-01-02")})
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, day("2024-01-02"), bars[0].Date)

	_, err = dm.LoadSymbol(dir, "NIFTY", Range{From: day("2025-01-01")})
	assert.True(t, bterrors.IsKind(err, bterrors.KindData))

	_, err = dm.LoadSymbol(dir, "BANKNIFTY", Range{})
	assert.True(t, bterrors.IsKind(err, bterrors.KindData))

	_, err = dm.LoadSymbol(dir, "SENSEX", Range{})
	assert.True(t, bterrors.IsKind(err, bterrors.KindConfig))
}

func TestParseTrailingPeriod(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"90d", 90 * 24 * time.Hour, true},
		{"30days", 30 * 24 * time.Hour, true},
		{"10DAYS", 10 * 24 * time.Hour, true},
		{"1day", 24 * time.Hour, true},
		{"2w", 14 * 24 * time.Hour, true},
		{"6m", 180 * 24 * time.Hour, true},
		{"5y", 5 * 365 * 24 * time.Hour, true},
		{"720h", 720 * time.Hour, true},
		{"", 0, false},
		{"-3d", 0, false},
		{"0d", 0, false},
		{"xdays", 0, false},
		{"abc", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseTrailingPeriod(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
