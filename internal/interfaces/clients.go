// Package interfaces defines service contracts for Folio
package interfaces

import (
	"context"
	"time"

	"github.com/foliokit/folio/internal/models"
)

// MarketDataClient provides historical prices and symbol metadata.
// An empty PriceTable (never an error) is the total-failure signal for
// FetchDailyCloses; callers treat "empty" as no data.
type MarketDataClient interface {
	// FetchDailyCloses retrieves a close-price table for the symbols
	// over [start, end], dates ascending.
	FetchDailyCloses(ctx context.Context, symbols []string, start, end time.Time) (*models.PriceTable, error)

	// FetchProfile retrieves descriptive metadata (name, sector,
	// industry, currency) for a single symbol.
	FetchProfile(ctx context.Context, symbol string) (*models.AssetProfile, error)
}

// ExchangeRateClient provides USD-base exchange rates.
// USD always maps to 1.0; unresolvable currencies map to nil, meaning
// "rate unknown", never zero.
type ExchangeRateClient interface {
	FetchRates(ctx context.Context, currencies []string) (map[string]*float64, error)
}

// SymbolSearchClient looks up tradable symbols matching a query.
// The HTTP layer proxies this directly to the UI.
type SymbolSearchClient interface {
	Search(ctx context.Context, query string) ([]models.SymbolMatch, error)
}
