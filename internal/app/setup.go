package app

import (
	"context"
	"fmt"

	"github.com/optionhouse/optionhouse/internal/agent"
	"github.com/optionhouse/optionhouse/internal/ledger"
	"github.com/optionhouse/optionhouse/internal/market"
	"github.com/optionhouse/optionhouse/internal/registry"
	"github.com/optionhouse/optionhouse/pkg/cache"
	"github.com/optionhouse/optionhouse/pkg/config"
	"github.com/optionhouse/optionhouse/pkg/eventbus"
	"github.com/optionhouse/optionhouse/pkg/healthprobe"
	"github.com/optionhouse/optionhouse/pkg/httpserver"
	"go.uber.org/zap"
)

// New creates a fully wired application instance.
func New(cfg *config.Config, logger *zap.Logger, opts *Options) (*App, error) {
	if opts == nil {
		opts = &Options{}
	}
	seed := cfg.RandomSeed
	if opts.Seed != 0 {
		seed = opts.Seed
	}

	ctx, cancel := context.WithCancel(context.Background())

	bus := eventbus.New(&eventbus.Config{Logger: logger})
	healthChecker := healthprobe.New()

	appraisals, err := setupAppraisalCache(logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup appraisal cache: %w", err)
	}

	reg, err := registry.New(&registry.Config{
		DecisionWindow: cfg.DecisionWindow,
		Logger:         logger,
		Bus:            bus,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup registry: %w", err)
	}

	storage, err := setupStorage(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup ledger storage: %w", err)
	}
	recorder := ledger.NewRecorder(bus, storage, logger)

	buyers, sellers, err := setupAgents(cfg, logger, reg, bus, appraisals, seed)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup agents: %w", err)
	}

	httpServer := httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: healthChecker,
		Registry:      reg,
		Bus:           bus,
	})

	return &App{
		cfg:           cfg,
		logger:        logger,
		healthChecker: healthChecker,
		httpServer:    httpServer,
		bus:           bus,
		registry:      reg,
		recorder:      recorder,
		storage:       storage,
		appraisals:    appraisals,
		buyers:        buyers,
		sellers:       sellers,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

func setupAppraisalCache(logger *zap.Logger) (cache.Cache, error) {
	return cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: 10000,
		MaxCost:     1000,
		BufferItems: 64,
		Logger:      logger,
	})
}

func setupStorage(cfg *config.Config, logger *zap.Logger) (ledger.Storage, error) {
	if cfg.StorageMode == "postgres" {
		return ledger.NewPostgresStorage(&ledger.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
	}
	return ledger.NewConsoleStorage(logger), nil
}

// setupAgents builds the simulation population. Participants are spread
// over a small grid so that some buyer/seller pairs are within
// interaction range and others have to fail deal closes.
func setupAgents(
	cfg *config.Config,
	logger *zap.Logger,
	reg *registry.Registry,
	bus *eventbus.Bus,
	appraisals cache.Cache,
	seed int64,
) ([]*agent.Buyer, []*agent.Seller, error) {
	buyers := make([]*agent.Buyer, 0, cfg.Buyers)
	for i := 0; i < cfg.Buyers; i++ {
		b, err := agent.NewBuyer(&agent.BuyerConfig{
			ID:            fmt.Sprintf("buyer-%d", i+1),
			Funds:         cfg.BuyerFunds,
			Appetite:      cfg.BuyerAppetite,
			Position:      market.Position{X: float64(i % 4), Y: float64(i / 4)},
			InteractRange: cfg.InteractRange,
			Seed:          seed + int64(i),
			Registry:      reg,
			Bus:           bus,
			Cache:         appraisals,
			Logger:        logger,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("create buyer %d: %w", i+1, err)
		}
		buyers = append(buyers, b)
	}

	sellers := make([]*agent.Seller, 0, cfg.Sellers)
	for i := 0; i < cfg.Sellers; i++ {
		s, err := agent.NewSeller(&agent.SellerConfig{
			ID:             fmt.Sprintf("seller-%d", i+1),
			Position:       market.Position{X: float64(i % 4), Y: float64(i / 4)},
			MinPrice:       cfg.SellerMinPrice,
			Expected:       cfg.SellerExpected,
			Heartbeat:      cfg.SellerHeartbeat,
			Impatience:     cfg.SellerImpatience,
			BiddingWindow:  cfg.BiddingWindow,
			OptionDuration: cfg.OptionDuration,
			Seed:           seed + int64(1000+i),
			Registry:       reg,
			Logger:         logger,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("create seller %d: %w", i+1, err)
		}
		sellers = append(sellers, s)
	}

	return buyers, sellers, nil
}
