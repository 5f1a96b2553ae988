package cmd

import (
	"attribution/api"
	"attribution/internal/app"
	"attribution/internal/repository"
	"attribution/internal/service"
	"attribution/internal/util"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	_ "github.com/lib/pq"
)

type Dependencies struct {
	Config *util.Config
	// nil when no db is configured
	Db                 *sql.DB
	MarketDataService  service.MarketDataService
	AttributionHandler app.AttributionHandler
	ApiHandler         *api.ApiHandler
}

// LoadConfig reads the config for the current environment, or falls back to
// the defaults when no file exists
func LoadConfig(path string) (*util.Config, error) {
	if path == "" {
		path = util.ConfigPath()
	}
	cfg, err := util.LoadConfigFile(path)
	if err != nil {
		zap.S().Infof("no usable config at %s, using defaults: %s", path, err.Error())
		return util.DefaultConfig(), nil
	}
	return cfg, nil
}

func CloseDependencies(deps *Dependencies) {
	if deps.Db == nil {
		return
	}
	if err := deps.Db.Close(); err != nil {
		zap.S().Errorf("failed to close db: %s", err.Error())
	}
}

// InitializeDependencies wires the market data stack. marketDataRepository
// overrides the Yahoo provider, e.g. with prices read from a file.
func InitializeDependencies(cfg *util.Config, marketDataRepository repository.MarketDataRepository) (*Dependencies, error) {
	deps := &Dependencies{Config: cfg}

	var cacheRepository repository.MarketDataCacheRepository
	if cfg.Db.Enabled() {
		dbConn, err := sql.Open("postgres", cfg.Db.ToConnectionStr())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to db: %w", err)
		}
		deps.Db = dbConn
		cacheRepository = repository.NewMarketDataCacheRepository(dbConn)
	}

	if marketDataRepository == nil {
		marketDataRepository = repository.NewYahooMarketDataRepository(cfg.MarketData.LookbackDays)
	}

	deps.MarketDataService = service.NewMarketDataService(
		marketDataRepository,
		cacheRepository,
		service.MarketDataServiceConfig{
			RefreshAfter:        cfg.MarketData.RefreshAfter,
			PrefetchConcurrency: cfg.MarketData.PrefetchConcurrency,
			LookbackDays:        cfg.MarketData.LookbackDays,
		},
	)
	deps.AttributionHandler = app.NewAttributionHandler(deps.MarketDataService, cfg)
	deps.ApiHandler = &api.ApiHandler{
		AttributionHandler: deps.AttributionHandler,
		MarketDataService:  deps.MarketDataService,
	}

	return deps, nil
}
