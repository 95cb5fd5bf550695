package portfolio

import (
	"context"
	"math"
	"time"

	"github.com/foliokit/folio/internal/models"
)

// isolateClosePrices validates a fetched price table and drops rows
// with missing prices. Returns models.ErrMissingData if nothing usable
// remains: at least two rows are needed to diff a return.
func isolateClosePrices(table *models.PriceTable) (*models.PriceTable, error) {
	if table.Empty() {
		return nil, models.ErrMissingData
	}
	table.DropIncompleteRows()
	if len(table.Dates) < 2 {
		return nil, models.ErrMissingData
	}
	return table, nil
}

// dailyReturns computes the fractional day-over-day change per symbol.
// The first row has no prior value to diff against and is dropped, so
// the result is one row shorter than the input.
func dailyReturns(closes *models.PriceTable) *models.ReturnSeries {
	n := len(closes.Dates)
	series := &models.ReturnSeries{
		Dates:   make([]time.Time, 0, n-1),
		Symbols: append([]string(nil), closes.Symbols...),
		Values:  make([][]float64, 0, n-1),
	}

	for row := 1; row < n; row++ {
		returns := make([]float64, len(closes.Symbols))
		for col := range closes.Symbols {
			prev := closes.Close[row-1][col]
			curr := closes.Close[row][col]
			if prev == 0 {
				returns[col] = 0
				continue
			}
			returns[col] = curr/prev - 1
		}
		series.Dates = append(series.Dates, closes.Dates[row])
		series.Values = append(series.Values, returns)
	}

	return series
}

// blendReturns collapses per-asset returns into a single portfolio
// series: on each day the weight-dot-product of that day's returns.
// A linear blend, not per-asset compounding; compounding first and
// blending after would misstate the portfolio return.
func blendReturns(returns *models.ReturnSeries, weights []float64) []float64 {
	blended := make([]float64, len(returns.Values))

	// Single-asset portfolios pass through without the dot product.
	if len(weights) == 1 {
		for i, row := range returns.Values {
			blended[i] = row[0]
		}
		return blended
	}

	for i, row := range returns.Values {
		var v float64
		for col, w := range weights {
			v += w * row[col]
		}
		blended[i] = v
	}
	return blended
}

// normalizeToUSD converts non-USD columns in place by dividing each
// price by the currency's USD rate, fetched for the whole currency set
// in one provider call. A missing rate leaves that column untouched
// (multiplier 1) and the currency is reported in missing so callers can
// observe the gap.
func (s *Service) normalizeToUSD(ctx context.Context, closes *models.PriceTable, assets []models.Asset) (missing []string, err error) {
	currencySet := make(map[string]struct{})
	for _, a := range assets {
		if a.Currency != "" && a.Currency != "USD" {
			currencySet[a.Currency] = struct{}{}
		}
	}
	if len(currencySet) == 0 {
		return nil, nil
	}

	currencies := make([]string, 0, len(currencySet))
	for c := range currencySet {
		currencies = append(currencies, c)
	}

	rates, err := s.fx.FetchRates(ctx, currencies)
	if err != nil {
		return nil, err
	}

	seenMissing := make(map[string]struct{})
	for _, a := range assets {
		if a.Currency == "" || a.Currency == "USD" {
			continue
		}

		rate := rates[a.Currency]
		if rate == nil || *rate == 0 || math.IsNaN(*rate) {
			if _, ok := seenMissing[a.Currency]; !ok {
				seenMissing[a.Currency] = struct{}{}
				missing = append(missing, a.Currency)
			}
			continue
		}

		col := closes.ColumnIndex(a.Symbol)
		if col < 0 {
			continue
		}
		for row := range closes.Close {
			closes.Close[row][col] /= *rate
		}
	}

	if len(missing) > 0 {
		s.logger.Warn().Strs("currencies", missing).Msg("Exchange rates unavailable, prices passed through unconverted")
	}
	return missing, nil
}
