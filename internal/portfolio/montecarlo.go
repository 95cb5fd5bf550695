package portfolio

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distmv"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/foliokit/folio/internal/models"
)

// Simulate projects nSimulations independent paths of portfolio value
// over nDays trading days. The return-generating process is estimated
// from the trailing history window: a univariate normal for a single
// asset, a multivariate normal over the full covariance matrix for
// several (independent draws would discard cross-asset correlation).
// An empty portfolio yields an empty result rather than an error.
func (s *Service) Simulate(ctx context.Context, nSimulations, nDays int) (*models.SimulationResult, error) {
	if nSimulations <= 0 || nDays <= 0 {
		return nil, fmt.Errorf("simulations and days must be positive")
	}
	if s.cfg.MaxSimulations > 0 && nSimulations > s.cfg.MaxSimulations {
		return nil, fmt.Errorf("simulations %d exceeds the configured maximum %d", nSimulations, s.cfg.MaxSimulations)
	}
	if s.cfg.MaxDays > 0 && nDays > s.cfg.MaxDays {
		return nil, fmt.Errorf("days %d exceeds the configured maximum %d", nDays, s.cfg.MaxDays)
	}

	assets := s.snapshotAssets()
	if len(assets) == 0 {
		return &models.SimulationResult{Values: [][]float64{}}, nil
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

	returns := dailyReturns(closes)
	lastPrices := closes.LastRow()
	weights := weightsOf(assets)

	grid := make([][]float64, nDays)
	for day := range grid {
		grid[day] = make([]float64, nSimulations)
	}

	src := s.simulationSource()
	if len(assets) == 1 {
		s.simulateSingle(grid, returns.Column(0), lastPrices[0], weights[0], src)
	} else if err := s.simulateCorrelated(grid, returns, lastPrices, weights, src); err != nil {
		return nil, err
	}

	result := &models.SimulationResult{
		Days:        nDays,
		Simulations: nSimulations,
		Values:      grid,
	}
	result.Percentiles = percentileBands(grid)
	return result, nil
}

// simulationSource derives an independent source per call so that
// concurrent simulations do not race on the shared generator.
func (s *Service) simulationSource() rand.Source {
	s.rngMu.Lock()
	seed := s.rng.Uint64()
	s.rngMu.Unlock()
	return rand.NewSource(seed)
}

// simulateSingle draws each day's return from a univariate normal and
// compounds the last known USD price along each path.
func (s *Service) simulateSingle(grid [][]float64, history []float64, lastPrice, weight float64, src rand.Source) {
	dist := distuv.Normal{
		Mu:    stat.Mean(history, nil),
		Sigma: stat.StdDev(history, nil),
		Src:   src,
	}

	for sim := 0; sim < len(grid[0]); sim++ {
		price := lastPrice
		for day := range grid {
			price *= 1 + dist.Rand()
			grid[day][sim] = price * weight
		}
	}
}

// simulateCorrelated draws each day's per-asset return vector from a
// multivariate normal over the historical covariance matrix, compounds
// prices elementwise, and values the portfolio as prices dot weights.
func (s *Service) simulateCorrelated(grid [][]float64, returns *models.ReturnSeries, lastPrices, weights []float64, src rand.Source) error {
	n := len(weights)
	mu := make([]float64, n)
	for col := 0; col < n; col++ {
		mu[col] = stat.Mean(returns.Column(col), nil)
	}
	sigma := covarianceMatrix(returns)

	normal, ok := distmv.NewNormal(mu, sigma, src)
	if !ok {
		// Sample covariance can be numerically semi-definite; nudge the
		// diagonal before giving up.
		for i := 0; i < n; i++ {
			sigma.SetSym(i, i, sigma.At(i, i)+1e-10)
		}
		if normal, ok = distmv.NewNormal(mu, sigma, src); !ok {
			return fmt.Errorf("covariance matrix is not positive definite")
		}
	}

	prices := make([]float64, n)
	draw := make([]float64, n)
	for sim := 0; sim < len(grid[0]); sim++ {
		copy(prices, lastPrices)
		for day := range grid {
			normal.Rand(draw)
			for i := range prices {
				prices[i] *= 1 + draw[i]
			}
			grid[day][sim] = dot(prices, weights)
		}
	}
	return nil
}

// percentileBands derives per-day p5/median/p95 series for fan charts.
func percentileBands(grid [][]float64) *models.SimulationBands {
	if len(grid) == 0 || len(grid[0]) == 0 {
		return nil
	}

	bands := &models.SimulationBands{
		P5:     make([]float64, len(grid)),
		Median: make([]float64, len(grid)),
		P95:    make([]float64, len(grid)),
	}

	sorted := make([]float64, len(grid[0]))
	for day, row := range grid {
		copy(sorted, row)
		sort.Float64s(sorted)
		bands.P5[day] = stat.Quantile(0.05, stat.Empirical, sorted, nil)
		bands.Median[day] = stat.Quantile(0.5, stat.Empirical, sorted, nil)
		bands.P95[day] = stat.Quantile(0.95, stat.Empirical, sorted, nil)
	}
	return bands
}
