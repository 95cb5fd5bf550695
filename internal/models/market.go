package models

import (
	"math"
	"time"
)

// PriceTable is a date-indexed, symbol-columned table of daily close
// prices. Dates are ascending with no duplicates. Close is indexed
// [dateRow][symbolColumn]. An empty table is the providers' failure
// signal, never an error object.
type PriceTable struct {
	Dates   []time.Time `json:"dates"`
	Symbols []string    `json:"symbols"`
	Close   [][]float64 `json:"close"`
}

// Empty reports whether the table holds no usable rows.
func (t *PriceTable) Empty() bool {
	return t == nil || len(t.Dates) == 0 || len(t.Symbols) == 0
}

// ColumnIndex returns the column for a symbol, or -1.
func (t *PriceTable) ColumnIndex(symbol string) int {
	for i, s := range t.Symbols {
		if s == symbol {
			return i
		}
	}
	return -1
}

// Column returns the close series for one symbol, or nil if absent.
func (t *PriceTable) Column(symbol string) []float64 {
	col := t.ColumnIndex(symbol)
	if col < 0 {
		return nil
	}
	series := make([]float64, len(t.Dates))
	for row := range t.Dates {
		series[row] = t.Close[row][col]
	}
	return series
}

// LastRow returns the most recent row of close prices, or nil if empty.
func (t *PriceTable) LastRow() []float64 {
	if t.Empty() {
		return nil
	}
	return t.Close[len(t.Close)-1]
}

// DropIncompleteRows removes rows containing NaN or infinite prices.
// Mirrors the provider-side dropna: missing trading days on one exchange
// would otherwise poison the blended series.
func (t *PriceTable) DropIncompleteRows() {
	if t.Empty() {
		return
	}
	dates := t.Dates[:0]
	rows := t.Close[:0]
	for i, row := range t.Close {
		complete := true
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				complete = false
				break
			}
		}
		if complete {
			dates = append(dates, t.Dates[i])
			rows = append(rows, row)
		}
	}
	t.Dates = dates
	t.Close = rows
}

// ReturnSeries is a date-indexed table of fractional day-over-day
// changes, one row shorter than its source PriceTable.
type ReturnSeries struct {
	Dates   []time.Time `json:"dates"`
	Symbols []string    `json:"symbols"`
	Values  [][]float64 `json:"values"`
}

// Len returns the number of periods in the series.
func (r *ReturnSeries) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Dates)
}

// Column returns the return series for one symbol column index.
func (r *ReturnSeries) Column(col int) []float64 {
	series := make([]float64, len(r.Values))
	for row := range r.Values {
		series[row] = r.Values[row][col]
	}
	return series
}

// TimeSeriesPoint is a single (date, value) pair in an output series
// such as cumulative portfolio returns.
type TimeSeriesPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}
