// Package app wires configuration, logging, storage, API clients and
// the portfolio service into a single application object.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/foliokit/folio/internal/clients/finnhub"
	"github.com/foliokit/folio/internal/clients/openrates"
	"github.com/foliokit/folio/internal/clients/yahoo"
	"github.com/foliokit/folio/internal/common"
	"github.com/foliokit/folio/internal/interfaces"
	"github.com/foliokit/folio/internal/portfolio"
	"github.com/foliokit/folio/internal/storage"
)

// App holds all initialized clients, the analytics service and the
// snapshot store. It is the shared core behind cmd/folio-server.
type App struct {
	Config       *common.Config
	Logger       *common.Logger
	Portfolio    interfaces.PortfolioService
	SymbolSearch interfaces.SymbolSearchClient
	Store        interfaces.SnapshotStore
	StartupTime  time.Time
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes configuration, clients, storage and the portfolio
// service. configPath may be empty, in which case FOLIO_CONFIG and then
// the binary directory are consulted.
func NewApp(configPath string) (*App, error) {
	binDir := getBinaryDir()

	if configPath == "" {
		configPath = os.Getenv("FOLIO_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "folio.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/folio.toml" // fallback for development
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Resolve relative storage path to binary directory
	if config.Storage.Path != "" && !filepath.IsAbs(config.Storage.Path) {
		config.Storage.Path = filepath.Join(binDir, config.Storage.Path)
	}

	logger := common.NewLogger(config.Logging.Level)

	marketClient := yahoo.NewClient(
		yahoo.WithBaseURL(config.Clients.Yahoo.BaseURL),
		yahoo.WithLogger(logger),
		yahoo.WithRateLimit(config.Clients.Yahoo.RateLimit),
		yahoo.WithTimeout(config.Clients.Yahoo.GetTimeout()),
	)

	fxClient := openrates.NewClient(config.Clients.OpenRates.APIKey,
		openrates.WithBaseURL(config.Clients.OpenRates.BaseURL),
		openrates.WithLogger(logger),
		openrates.WithTimeout(config.Clients.OpenRates.GetTimeout()),
	)
	if config.Clients.OpenRates.APIKey == "" {
		logger.Warn().Msg("Open Exchange Rates API key not configured, non-USD assets will not be converted")
	}

	var searchClient interfaces.SymbolSearchClient
	if config.Clients.Finnhub.APIKey != "" {
		searchClient = finnhub.NewClient(config.Clients.Finnhub.APIKey,
			finnhub.WithBaseURL(config.Clients.Finnhub.BaseURL),
			finnhub.WithLogger(logger),
			finnhub.WithTimeout(config.Clients.Finnhub.GetTimeout()),
		)
	} else {
		logger.Warn().Msg("Finnhub API key not configured, symbol search disabled")
	}

	var opts []portfolio.Option
	var store interfaces.SnapshotStore
	if config.Storage.Path != "" {
		store, err = storage.NewSnapshotStore(logger, config.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open snapshot store: %w", err)
		}
		opts = append(opts, portfolio.WithSnapshotStore(store))
	}

	service := portfolio.NewService(marketClient, fxClient, config.Analytics, logger, opts...)
	if err := service.Restore(context.Background()); err != nil {
		logger.Warn().Err(err).Msg("Portfolio snapshot restore failed, starting empty")
	}

	return &App{
		Config:       config,
		Logger:       logger,
		Portfolio:    service,
		SymbolSearch: searchClient,
		Store:        store,
		StartupTime:  time.Now(),
	}, nil
}

// Close releases resources held by the application.
func (a *App) Close() {
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("Failed to close snapshot store")
		}
	}
}
