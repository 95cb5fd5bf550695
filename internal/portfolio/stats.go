package portfolio

import (
	"context"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/foliokit/folio/internal/models"
)

const tradingDaysPerYear = 252

// Statistics computes total value, total return, annualized volatility,
// Sharpe ratio and CAGR over the trailing history window.
func (s *Service) Statistics(ctx context.Context) (*models.Statistics, error) {
	assets := s.snapshotAssets()
	if len(assets) == 0 {
		return nil, models.ErrEmptyPortfolio
	}

	start, end := s.historyWindow()
	table, err := s.market.FetchDailyCloses(ctx, symbolsOf(assets), start, end)
	if err != nil {
		return nil, err
	}
	if table.Empty() {
		return nil, models.ErrNoHistoricalData
	}

	closes, err := isolateClosePrices(table)
	if err != nil {
		return nil, err
	}
	if _, err := s.normalizeToUSD(ctx, closes, assets); err != nil {
		return nil, err
	}

	weights := weightsOf(assets)
	portfolioReturns := blendReturns(dailyReturns(closes), weights)

	// Total portfolio value series: USD closes dotted with weights.
	initialValue := dot(closes.Close[0], weights)
	finalValue := dot(closes.Close[len(closes.Close)-1], weights)

	totalReturn := 1.0
	for _, r := range portfolioReturns {
		totalReturn *= 1 + r
	}
	totalReturn -= 1

	volatility := stat.StdDev(portfolioReturns, nil) * math.Sqrt(tradingDaysPerYear)

	sharpe := 0.0
	if volatility > 0 {
		annualMean := stat.Mean(portfolioReturns, nil) * tradingDaysPerYear
		sharpe = (annualMean - s.cfg.RiskFreeRate) / volatility
	}

	// CAGR exponent from the actual elapsed span of the series, not a
	// constant tied to the requested window length.
	first, last := closes.Dates[0], closes.Dates[len(closes.Dates)-1]
	years := last.Sub(first).Hours() / 24 / 365.25
	cagr := 0.0
	if years > 0 && initialValue > 0 && finalValue > 0 {
		cagr = math.Pow(finalValue/initialValue, 1/years) - 1
	}

	return &models.Statistics{
		TotalValue:       finalValue,
		TotalReturnPct:   totalReturn * 100,
		AnnualVolatility: volatility,
		SharpeRatio:      sharpe,
		CAGRPct:          cagr * 100,
		WindowStart:      first,
		WindowEnd:        last,
	}, nil
}

// CumulativeReturns computes the compounded portfolio return series
// from start to now. Currency conversion is skipped: dividing a price
// series by a constant rate leaves its fractional changes unchanged.
func (s *Service) CumulativeReturns(ctx context.Context, start time.Time) ([]models.TimeSeriesPoint, error) {
	assets := s.snapshotAssets()
	if len(assets) == 0 {
		return nil, models.ErrEmptyPortfolio
	}

	table, err := s.market.FetchDailyCloses(ctx, symbolsOf(assets), start, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if table.Empty() {
		return nil, models.ErrNoHistoricalData
	}

	closes, err := isolateClosePrices(table)
	if err != nil {
		return nil, err
	}

	returns := dailyReturns(closes)
	blended := blendReturns(returns, weightsOf(assets))

	points := make([]models.TimeSeriesPoint, len(blended))
	cumulative := 1.0
	for i, r := range blended {
		cumulative *= 1 + r
		points[i] = models.TimeSeriesPoint{
			Date:  returns.Dates[i],
			Value: cumulative - 1,
		}
	}
	return points, nil
}

func dot(values, weights []float64) float64 {
	var v float64
	for i := range values {
		v += values[i] * weights[i]
	}
	return v
}
