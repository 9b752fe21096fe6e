package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bobmcallan/cartera/internal/clients/dolarapi"
	"github.com/bobmcallan/cartera/internal/clients/yahoo"
	"github.com/bobmcallan/cartera/internal/common"
	"github.com/bobmcallan/cartera/internal/interfaces"
	"github.com/bobmcallan/cartera/internal/services/portfolio"
	"github.com/bobmcallan/cartera/internal/services/quote"
	"github.com/bobmcallan/cartera/internal/services/refresh"
	"github.com/bobmcallan/cartera/internal/services/valuation"
	"github.com/bobmcallan/cartera/internal/storage"
)

// App holds the initialized clients, services and store.
// It is the shared core behind every cmd/cartera command.
type App struct {
	Config           *common.Config
	Logger           *common.Logger
	Store            interfaces.KeyValueStore
	Snapshots        *storage.SnapshotStore
	QuoteClient      interfaces.QuoteClient
	RateClient       interfaces.RateClient
	QuoteService     *quote.Service
	PortfolioService *portfolio.Service
	Scheduler        *refresh.Scheduler
	StartupTime      time.Time

	schedulerCancel context.CancelFunc
	unsubscribe     func()
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// resolveConfigPath checks the provided path, CARTERA_CONFIG, then the
// binary dir, then the development fallback.
func resolveConfigPath(configPath, binDir string) string {
	if configPath == "" {
		configPath = os.Getenv("CARTERA_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "cartera.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/cartera.toml"
		}
	}
	return configPath
}

// NewApp loads configuration, opens storage, wires every service and loads
// the stored portfolio. configPath may be empty.
func NewApp(configPath string) (*App, error) {
	startupStart := time.Now()
	binDir := getBinaryDir()

	config, err := common.LoadConfig(resolveConfigPath(configPath, binDir))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Resolve relative paths to binary directory
	if config.Storage.Path != "" && !filepath.IsAbs(config.Storage.Path) {
		config.Storage.Path = filepath.Join(binDir, config.Storage.Path)
	}
	if config.Logging.FilePath != "" && !filepath.IsAbs(config.Logging.FilePath) {
		config.Logging.FilePath = filepath.Join(binDir, config.Logging.FilePath)
	}

	logger := common.NewLoggerFromConfig(config.Logging)

	if config.IsProduction() && config.Storage.Backend == storage.BackendMemory {
		logger.Close()
		return nil, fmt.Errorf("storage backend %q does not persist and is not allowed in production", config.Storage.Backend)
	}

	kv, err := storage.NewKeyValueStore(logger, config.Storage)
	if err != nil {
		logger.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	quoteClient := yahoo.NewClient(
		yahoo.WithBaseURL(config.Clients.Quote.BaseURL),
		yahoo.WithLogger(logger),
		yahoo.WithRateLimit(config.Clients.Quote.RateLimit),
		yahoo.WithTimeout(config.Clients.Quote.GetTimeout()),
	)
	rateClient := dolarapi.NewClient(
		dolarapi.WithBaseURL(config.Clients.Rate.BaseURL),
		dolarapi.WithLogger(logger),
		dolarapi.WithRateLimit(config.Clients.Rate.RateLimit),
		dolarapi.WithTimeout(config.Clients.Rate.GetTimeout()),
	)

	quoteService := quote.NewService(quoteClient, rateClient, logger)
	if config.Refresh.ReferenceRate > 0 {
		quoteService.SetReferenceRate(config.Refresh.ReferenceRate)
	}

	snapshots := storage.NewSnapshotStore(kv, logger, storage.WithKey(config.Storage.Key))
	portfolioService := portfolio.NewService(snapshots, logger)
	unsubscribe := portfolio.InvalidatePurchasePriceOnMarketChange(portfolioService, logger)

	scheduler := refresh.NewScheduler(portfolioService, quoteService, logger,
		refresh.WithDebounce(config.Refresh.GetDebounce()),
		refresh.WithPollInterval(config.Refresh.GetPollInterval()),
		refresh.WithFetchTimeout(config.Refresh.GetFetchTimeout()),
		refresh.WithAutoPrice(config.Refresh.AutoPrice),
	)

	a := &App{
		Config:           config,
		Logger:           logger,
		Store:            kv,
		Snapshots:        snapshots,
		QuoteClient:      quoteClient,
		RateClient:       rateClient,
		QuoteService:     quoteService,
		PortfolioService: portfolioService,
		Scheduler:        scheduler,
		StartupTime:      startupStart,
		unsubscribe:      unsubscribe,
	}

	if err := portfolioService.Load(context.Background()); err != nil {
		a.Close()
		return nil, err
	}

	logger.Info().
		Str("backend", config.Storage.Backend).
		Dur("startup", time.Since(startupStart)).
		Msg("App initialized")

	return a, nil
}

// Close releases all resources held by the App.
// Shutdown order: stop schedulers, drop subscriptions, close storage, close
// the log file.
func (a *App) Close() {
	if a.schedulerCancel != nil {
		a.schedulerCancel()
		a.schedulerCancel = nil
	}
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	if a.unsubscribe != nil {
		a.unsubscribe()
		a.unsubscribe = nil
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close storage")
		}
		a.Store = nil
	}
	if err := a.Logger.Close(); err != nil {
		fmt.Fprintln(os.Stderr, "failed to close log file:", err)
	}
}

// Reset deletes the stored snapshot and reloads, leaving an empty portfolio.
func (a *App) Reset(ctx context.Context) error {
	if err := a.Snapshots.Clear(ctx); err != nil {
		return err
	}
	return a.PortfolioService.Load(ctx)
}

// StartRefresh launches the price scheduler and the reference-rate ticker.
func (a *App) StartRefresh(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	a.schedulerCancel = cancel
	a.Scheduler.Start(ctx)
	go startRateScheduler(ctx, a.QuoteService, a.Logger, a.Config.Refresh.GetRateInterval())
}

// RefreshAll fetches the reference rate and every price once.
func (a *App) RefreshAll(ctx context.Context) (updated, skipped int) {
	refreshRate(ctx, a.QuoteService, a.Logger)
	return a.Scheduler.RefreshNow(ctx)
}

// Summary values the current portfolio with the last known reference rate.
func (a *App) Summary() *valuation.Summary {
	rate, _, ok := a.QuoteService.ReferenceRate()
	return valuation.Summarize(a.PortfolioService.Snapshot(), rate, ok)
}
