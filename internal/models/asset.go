// Package models defines data structures for Folio
package models

import (
	"strings"
	"time"
)

// Asset represents a single portfolio holding.
// Weight is a fraction in [0,1]; within a portfolio all weights sum to 1.
type Asset struct {
	Symbol   string  `json:"symbol"`
	Name     string  `json:"name"`
	Weight   float64 `json:"weight"`
	Sector   string  `json:"sector,omitempty"`
	Industry string  `json:"industry,omitempty"`
	Currency string  `json:"currency"` // ISO-4217, defaults to "USD"
}

// Normalize uppercases the symbol and defaults the currency to USD.
// Called once at the registry boundary before the asset is admitted.
func (a *Asset) Normalize() {
	a.Symbol = strings.ToUpper(strings.TrimSpace(a.Symbol))
	a.Currency = strings.ToUpper(strings.TrimSpace(a.Currency))
	if a.Currency == "" {
		a.Currency = "USD"
	}
}

// AssetProfile holds descriptive metadata for a symbol, used to enrich
// assets as they are added to the portfolio.
type AssetProfile struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Sector   string `json:"sector,omitempty"`
	Industry string `json:"industry,omitempty"`
	Currency string `json:"currency"`
}

// WeightUpdate is a single (symbol, weight) pair for a weight update request.
type WeightUpdate struct {
	Symbol string  `json:"symbol"`
	Weight float64 `json:"weight"`
}

// Statistics holds risk/return statistics for the portfolio over a
// trailing window. Percentages are expressed as percentages (5.0 = 5%),
// volatility and Sharpe are plain ratios.
type Statistics struct {
	TotalValue       float64   `json:"total_value"`
	TotalReturnPct   float64   `json:"total_return_pct"`
	AnnualVolatility float64   `json:"annual_volatility"`
	SharpeRatio      float64   `json:"sharpe_ratio"`
	CAGRPct          float64   `json:"cagr_pct"`
	WindowStart      time.Time `json:"window_start"`
	WindowEnd        time.Time `json:"window_end"`
}

// SimulationResult is the fully materialized Monte Carlo ensemble.
// Values is indexed [day][simulation].
type SimulationResult struct {
	Days        int         `json:"days"`
	Simulations int         `json:"simulations"`
	Values      [][]float64 `json:"values"`

	// Per-day percentile bands for fan-chart displays, derived from Values.
	Percentiles *SimulationBands `json:"percentiles,omitempty"`
}

// SimulationBands holds per-day percentile series of the simulated
// portfolio value.
type SimulationBands struct {
	P5     []float64 `json:"p5"`
	Median []float64 `json:"median"`
	P95    []float64 `json:"p95"`
}

// PortfolioSnapshot is the persisted form of the portfolio: the asset
// list and when it was saved. Everything else is recomputed from it.
type PortfolioSnapshot struct {
	Name    string    `json:"name" badgerhold:"key"`
	Assets  []Asset   `json:"assets"`
	SavedAt time.Time `json:"saved_at"`
}
