package reporting

import (
	"encoding/json"
	"os"

	"github.com/moznion/go-optional"

	bterrors "github.com/ducminhle1904/eod-backtester/internal/errors"
	"github.com/ducminhle1904/eod-backtester/internal/performance"
)

// DefaultJSONFormatter implements JSON output functionality
type DefaultJSONFormatter struct{}

// NewDefaultJSONFormatter creates a new JSON formatter
func NewDefaultJSONFormatter() *DefaultJSONFormatter {
	return &DefaultJSONFormatter{}
}

type jsonConfig struct {
	CapitalPerTrade   float64 `json:"capital_per_trade"`
	SlippageBps       float64 `json:"slippage_bps"`
	BrokeragePerOrder float64 `json:"brokerage_per_order"`
	EndOfData         string  `json:"end_of_data"`
}

type jsonPosition struct {
	EntryDate  string  `json:"entry_date"`
	EntryPrice float64 `json:"entry_price"`
	Quantity   int     `json:"quantity"`
}

type jsonMonth struct {
	Year       int                        `json:"year"`
	Months     []optional.Option[float64] `json:"months"`
	YearReturn optional.Option[float64]   `json:"year_return"`
}

type jsonReport struct {
	RunID          string              `json:"run_id"`
	Symbol         string              `json:"symbol"`
	Strategy       string              `json:"strategy"`
	Start          string              `json:"start"`
	End            string              `json:"end"`
	Bars           int                 `json:"bars"`
	WarmUp         int                 `json:"warm_up"`
	Config         jsonConfig          `json:"config"`
	Summary        performance.Summary `json:"summary"`
	SkippedEntries int                 `json:"skipped_entries"`
	OpenPosition   *jsonPosition       `json:"open_position,omitempty"`
	Monthly        []jsonMonth         `json:"monthly"`
}

// FormatSummary renders the run header, summary and monthly table as JSON.
// Undefined statistics are null.
func (f *DefaultJSONFormatter) FormatSummary(rep *Report) ([]byte, error) {
	res := rep.Result
	doc := jsonReport{
		RunID:    res.RunID,
		Symbol:   res.Symbol,
		Strategy: res.Strategy,
		Start:    res.StartDate.Format(dateLayout),
		End:      res.EndDate.Format(dateLayout),
		Bars:     res.Bars,
		WarmUp:   res.WarmUp,
		Config: jsonConfig{
			CapitalPerTrade:   res.Config.CapitalPerTrade,
			SlippageBps:       res.Config.SlippageBps,
			BrokeragePerOrder: res.Config.BrokeragePerOrder,
			EndOfData:         string(res.Config.EndOfData),
		},
		Summary:        rep.Summary,
		SkippedEntries: len(res.Skipped),
		Monthly:        make([]jsonMonth, 0, len(rep.Monthly.Rows)),
	}
	if p := res.OpenPosition; p != nil {
		doc.OpenPosition = &jsonPosition{
			EntryDate:  p.EntryDate.Format(dateLayout),
			EntryPrice: p.EntryPrice,
			Quantity:   p.Quantity,
		}
	}
	for _, row := range rep.Monthly.Rows {
		doc.Monthly = append(doc.Monthly, jsonMonth{
			Year:       row.Year,
			Months:     row.Months[:],
			YearReturn: row.YearReturn,
		})
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, bterrors.Wrap(err, bterrors.KindData, "reporting", "json", "cannot encode summary")
	}
	return data, nil
}

// WriteSummaryJSON writes FormatSummary output to path
func (f *DefaultJSONFormatter) WriteSummaryJSON(rep *Report, path string) error {
	data, err := f.FormatSummary(rep)
	if err != nil {
		return err
	}
	if err := ensureDir(path); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return bterrors.Wrap(err, bterrors.KindData, "reporting", "json", "cannot write "+path)
	}
	return nil
}
