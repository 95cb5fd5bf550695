// Package portfolio implements the portfolio analytics engine: asset
// registry, returns computation, statistics, mean-variance optimization
// and Monte Carlo simulation.
package portfolio

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"golang.org/x/exp/rand"

	"github.com/foliokit/folio/internal/common"
	"github.com/foliokit/folio/internal/interfaces"
	"github.com/foliokit/folio/internal/models"
)

// SnapshotName keys the single process-wide portfolio in the snapshot store.
const SnapshotName = "default"

// weightTolerance is how far a weight vector may drift from summing to
// exactly 1 and still count as normalized.
const weightTolerance = 1e-6

// Service owns the portfolio composition and implements the analytics
// surface. One exclusive lock guards all mutation (add, remove,
// set-weights, optimize); read-only analytics copy the asset list under
// the read lock and compute without it.
type Service struct {
	mu     sync.RWMutex
	assets []models.Asset

	market interfaces.MarketDataClient
	fx     interfaces.ExchangeRateClient
	store  interfaces.SnapshotStore // nil disables persistence

	cfg    common.AnalyticsConfig
	logger *common.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

// Option configures the service
type Option func(*Service)

// WithSnapshotStore enables snapshot persistence
func WithSnapshotStore(store interfaces.SnapshotStore) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithSeed makes simulation draws deterministic
func WithSeed(seed uint64) Option {
	return func(s *Service) {
		s.rng = rand.New(rand.NewSource(seed))
	}
}

// NewService creates the portfolio analytics service
func NewService(market interfaces.MarketDataClient, fx interfaces.ExchangeRateClient, cfg common.AnalyticsConfig, logger *common.Logger, opts ...Option) *Service {
	if cfg.HistoryYears <= 0 {
		cfg.HistoryYears = 3
	}
	s := &Service{
		market: market,
		fx:     fx,
		cfg:    cfg,
		logger: logger,
		rng:    rand.New(rand.NewSource(uint64(time.Now().UnixNano()))),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Restore loads the persisted asset list, if a store is configured and
// a snapshot exists. Called once at startup before serving requests.
func (s *Service) Restore(ctx context.Context) error {
	if s.store == nil {
		return nil
	}

	snapshot, err := s.store.Load(ctx, SnapshotName)
	if err != nil {
		return fmt.Errorf("failed to load portfolio snapshot: %w", err)
	}
	if snapshot == nil {
		return nil
	}

	s.mu.Lock()
	s.assets = snapshot.Assets
	s.mu.Unlock()

	s.logger.Info().Int("assets", len(snapshot.Assets)).Msg("Portfolio restored from snapshot")
	return nil
}

// Assets returns a copy of the current holdings in insertion order.
func (s *Service) Assets() []models.Asset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Asset(nil), s.assets...)
}

// AddAsset admits a new holding. The asset is enriched with profile
// metadata from the market data provider, then every weight is reset to
// 1/count. Prior custom weights are deliberately discarded; callers
// re-apply them via SetWeights.
func (s *Service) AddAsset(ctx context.Context, asset models.Asset) (models.Asset, error) {
	asset.Normalize()
	if asset.Symbol == "" {
		return models.Asset{}, fmt.Errorf("asset symbol is required")
	}

	// Duplicate check before the enrichment call: no provider round
	// trip for an asset that will be rejected anyway.
	s.mu.RLock()
	dup := s.indexOf(asset.Symbol) >= 0
	s.mu.RUnlock()
	if dup {
		return models.Asset{}, &models.DuplicateAssetError{Symbol: asset.Symbol}
	}

	// Enrichment happens outside the lock; it is a network call.
	if profile, err := s.market.FetchProfile(ctx, asset.Symbol); err != nil {
		s.logger.Warn().Err(err).Str("symbol", asset.Symbol).Msg("Profile enrichment failed, using submitted fields")
	} else if profile != nil {
		if asset.Name == "" {
			asset.Name = profile.Name
		}
		if asset.Sector == "" {
			asset.Sector = profile.Sector
		}
		if asset.Industry == "" {
			asset.Industry = profile.Industry
		}
		if profile.Currency != "" {
			asset.Currency = profile.Currency
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Re-check under the write lock; a concurrent add may have won.
	if s.indexOf(asset.Symbol) >= 0 {
		return models.Asset{}, &models.DuplicateAssetError{Symbol: asset.Symbol}
	}

	s.assets = append(s.assets, asset)
	s.recalculateWeights()
	s.persistLocked(ctx)

	s.logger.Info().Str("symbol", asset.Symbol).Int("assets", len(s.assets)).Msg("Asset added")
	return s.assets[len(s.assets)-1], nil
}

// RemoveAsset removes a holding and recalculates equal weights.
// Absence is an expected outcome, not a failure.
func (s *Service) RemoveAsset(ctx context.Context, symbol string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(symbol)
	if idx < 0 {
		return false, nil
	}

	s.assets = append(s.assets[:idx], s.assets[idx+1:]...)
	s.recalculateWeights()
	s.persistLocked(ctx)

	s.logger.Info().Str("symbol", symbol).Int("assets", len(s.assets)).Msg("Asset removed")
	return true, nil
}

// SetWeights overwrites weights for matching symbols. Unmatched symbols
// are skipped and reported rather than failed. Weights are not
// renormalized; callers own supplying a consistent set.
func (s *Service) SetWeights(ctx context.Context, updates []models.WeightUpdate) ([]string, error) {
	for _, u := range updates {
		if math.IsNaN(u.Weight) || u.Weight < 0 || u.Weight > 1 {
			return nil, fmt.Errorf("invalid weight %v for symbol %s", u.Weight, u.Symbol)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var skipped []string
	for _, u := range updates {
		idx := s.indexOf(u.Symbol)
		if idx < 0 {
			skipped = append(skipped, u.Symbol)
			continue
		}
		s.assets[idx].Weight = u.Weight
	}
	s.persistLocked(ctx)

	if len(skipped) > 0 {
		s.logger.Warn().Strs("symbols", skipped).Msg("Weight updates skipped for unknown symbols")
	}
	return skipped, nil
}

// HistoricalPrices fetches the close-price table for one symbol.
func (s *Service) HistoricalPrices(ctx context.Context, symbol string, start, end time.Time) (*models.PriceTable, error) {
	table, err := s.market.FetchDailyCloses(ctx, []string{symbol}, start, end)
	if err != nil {
		return nil, err
	}
	if table.Empty() {
		return nil, models.ErrNoHistoricalData
	}
	table.DropIncompleteRows()
	return table, nil
}

// indexOf returns the position of a symbol, or -1. Callers hold s.mu.
func (s *Service) indexOf(symbol string) int {
	for i, a := range s.assets {
		if a.Symbol == symbol {
			return i
		}
	}
	return -1
}

// recalculateWeights resets every asset to 1/count. Callers hold s.mu
// for writing.
func (s *Service) recalculateWeights() {
	if len(s.assets) == 0 {
		return
	}
	equal := 1.0 / float64(len(s.assets))
	for i := range s.assets {
		s.assets[i].Weight = equal
	}
}

// persistLocked saves the current composition if a store is configured.
// Persistence failures are logged, never surfaced: the in-memory state
// is already committed. Callers hold s.mu for writing.
func (s *Service) persistLocked(ctx context.Context) {
	if s.store == nil {
		return
	}
	snapshot := &models.PortfolioSnapshot{
		Name:    SnapshotName,
		Assets:  append([]models.Asset(nil), s.assets...),
		SavedAt: time.Now().UTC(),
	}
	if err := s.store.Save(ctx, snapshot); err != nil {
		s.logger.Error().Err(err).Msg("Failed to persist portfolio snapshot")
	}
}

// snapshotAssets copies the asset list for read-only analytics.
func (s *Service) snapshotAssets() []models.Asset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Asset(nil), s.assets...)
}

// historyWindow returns the trailing [start, end] used by statistics
// and simulation parameter estimation.
func (s *Service) historyWindow() (time.Time, time.Time) {
	end := time.Now().UTC()
	return end.AddDate(-s.cfg.HistoryYears, 0, 0), end
}

func symbolsOf(assets []models.Asset) []string {
	symbols := make([]string, len(assets))
	for i, a := range assets {
		symbols[i] = a.Symbol
	}
	return symbols
}

func weightsOf(assets []models.Asset) []float64 {
	weights := make([]float64, len(assets))
	for i, a := range assets {
		weights[i] = a.Weight
	}
	return weights
}

func weightsSumToOne(weights []float64) bool {
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	return math.Abs(sum-1.0) < weightTolerance
}
