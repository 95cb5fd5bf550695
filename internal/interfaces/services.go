package interfaces

import (
	"context"
	"time"

	"github.com/foliokit/folio/internal/models"
)

// PortfolioService is the analytics surface consumed by the HTTP layer.
type PortfolioService interface {
	// Assets returns a copy of the current holdings in insertion order.
	Assets() []models.Asset

	// AddAsset admits a new holding, enriching it with profile metadata
	// and recalculating equal weights. Returns *models.DuplicateAssetError
	// if the symbol is already held.
	AddAsset(ctx context.Context, asset models.Asset) (models.Asset, error)

	// RemoveAsset removes a holding and recalculates equal weights.
	// Absence is an expected outcome, reported via the boolean.
	RemoveAsset(ctx context.Context, symbol string) (bool, error)

	// SetWeights overwrites weights for matching symbols. Unmatched
	// symbols are skipped and reported, not failed.
	SetWeights(ctx context.Context, updates []models.WeightUpdate) (skipped []string, err error)

	// HistoricalPrices fetches a close-price table for one symbol.
	HistoricalPrices(ctx context.Context, symbol string, start, end time.Time) (*models.PriceTable, error)

	// Statistics computes risk/return statistics over the trailing window.
	Statistics(ctx context.Context) (*models.Statistics, error)

	// CumulativeReturns computes the compounded portfolio return series
	// from start to now.
	CumulativeReturns(ctx context.Context, start time.Time) ([]models.TimeSeriesPoint, error)

	// Optimize solves for mean-variance optimal weights and commits them.
	Optimize(ctx context.Context, start time.Time, targetReturn *float64) ([]models.Asset, error)

	// Simulate projects portfolio value over nDays trading days across
	// nSimulations independent paths.
	Simulate(ctx context.Context, nSimulations, nDays int) (*models.SimulationResult, error)
}

// SnapshotStore is the persistence boundary for portfolio composition.
// The analytics core never touches storage directly.
type SnapshotStore interface {
	Save(ctx context.Context, snapshot *models.PortfolioSnapshot) error
	Load(ctx context.Context, name string) (*models.PortfolioSnapshot, error)
	Close() error
}
