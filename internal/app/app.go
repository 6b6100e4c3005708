package app

import (
	"context"
	"sync"

	"github.com/optionhouse/optionhouse/internal/agent"
	"github.com/optionhouse/optionhouse/internal/ledger"
	"github.com/optionhouse/optionhouse/internal/registry"
	"github.com/optionhouse/optionhouse/pkg/cache"
	"github.com/optionhouse/optionhouse/pkg/config"
	"github.com/optionhouse/optionhouse/pkg/eventbus"
	"github.com/optionhouse/optionhouse/pkg/healthprobe"
	"github.com/optionhouse/optionhouse/pkg/httpserver"
	"go.uber.org/zap"
)

// App is the main application orchestrator: it owns the registry, the
// agent population, the ledger, and the operational HTTP surface.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server
	bus           *eventbus.Bus
	registry      *registry.Registry
	recorder      *ledger.Recorder
	storage       ledger.Storage
	appraisals    cache.Cache
	buyers        []*agent.Buyer
	sellers       []*agent.Seller
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

// Options holds application options.
type Options struct {
	// Seed overrides the configured random seed; zero keeps the config.
	Seed int64
}
