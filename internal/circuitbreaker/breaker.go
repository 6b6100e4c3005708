package circuitbreaker

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// tradeWindow is the number of recent premiums kept for threshold
// calculation.
const tradeWindow = 20

// FundsCircuitBreaker keeps a buyer agent from bidding itself broke. It
// watches the agent's funds against a threshold derived from its recent
// premiums and disables bidding when the buffer gets thin; hysteresis
// prevents flapping around the threshold.
type FundsCircuitBreaker struct {
	enabled atomic.Bool // lock-free read on the bidding hot path

	ownerID         string
	logger          *zap.Logger
	tradeMultiplier float64
	minAbsolute     float64
	hysteresisRatio float64

	mu               sync.RWMutex
	lastFunds        float64
	recentPremiums   []float64
	disableThreshold float64
	enableThreshold  float64
}

// Config holds circuit breaker configuration.
type Config struct {
	// OwnerID labels metrics and logs with the owning agent.
	OwnerID string
	// TradeMultiplier sizes the funds buffer as a multiple of the
	// average recent premium.
	TradeMultiplier float64
	// MinAbsolute is the funds floor regardless of trade history.
	MinAbsolute float64
	// HysteresisRatio places the re-enable threshold above the disable
	// threshold.
	HysteresisRatio float64
	Logger          *zap.Logger
}

// Status is a snapshot of the breaker for debugging.
type Status struct {
	Enabled          bool
	LastFunds        float64
	DisableThreshold float64
	EnableThreshold  float64
	AvgPremium       float64
	RecentTradeCount int
}

// New creates a circuit breaker, initially closed (bidding allowed).
func New(cfg *Config) (*FundsCircuitBreaker, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.OwnerID == "" {
		return nil, fmt.Errorf("owner id cannot be empty")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.TradeMultiplier <= 0 {
		return nil, fmt.Errorf("trade multiplier must be positive")
	}
	if cfg.MinAbsolute <= 0 {
		return nil, fmt.Errorf("min absolute must be positive")
	}
	if cfg.HysteresisRatio < 1.0 {
		return nil, fmt.Errorf("hysteresis ratio must be >= 1.0")
	}

	b := &FundsCircuitBreaker{
		ownerID:          cfg.OwnerID,
		logger:           cfg.Logger,
		tradeMultiplier:  cfg.TradeMultiplier,
		minAbsolute:      cfg.MinAbsolute,
		hysteresisRatio:  cfg.HysteresisRatio,
		recentPremiums:   make([]float64, 0, tradeWindow),
		disableThreshold: cfg.MinAbsolute,
		enableThreshold:  cfg.MinAbsolute * cfg.HysteresisRatio,
	}
	b.enabled.Store(true)
	BreakerEnabled.WithLabelValues(b.ownerID).Set(1)

	return b, nil
}

// IsEnabled reports whether bidding is allowed. Lock-free; safe on hot
// paths.
func (b *FundsCircuitBreaker) IsEnabled() bool {
	return b.enabled.Load()
}

// RecordTrade adds a settled premium to the rolling window and
// recalculates the thresholds.
func (b *FundsCircuitBreaker) RecordTrade(premium float64) {
	if premium <= 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.recentPremiums = append(b.recentPremiums, premium)
	if len(b.recentPremiums) > tradeWindow {
		b.recentPremiums = b.recentPremiums[1:]
	}

	sum := 0.0
	for _, p := range b.recentPremiums {
		sum += p
	}
	avg := sum / float64(len(b.recentPremiums))

	b.disableThreshold = math.Max(avg*b.tradeMultiplier, b.minAbsolute)
	b.enableThreshold = b.disableThreshold * b.hysteresisRatio

	b.logger.Debug("breaker-thresholds-updated",
		zap.String("owner", b.ownerID),
		zap.Float64("avg-premium", avg),
		zap.Float64("disable-threshold", b.disableThreshold),
		zap.Float64("enable-threshold", b.enableThreshold))
}

// Observe evaluates the agent's current funds against the thresholds,
// tripping or resetting the breaker as needed.
func (b *FundsCircuitBreaker) Observe(funds float64) {
	b.mu.Lock()
	b.lastFunds = funds
	disable := b.disableThreshold
	enable := b.enableThreshold
	b.mu.Unlock()

	currentlyEnabled := b.enabled.Load()

	switch {
	case currentlyEnabled && funds < disable:
		b.enabled.Store(false)
		BreakerEnabled.WithLabelValues(b.ownerID).Set(0)
		BreakerTripsTotal.WithLabelValues(b.ownerID).Inc()
		b.logger.Warn("funds-breaker-tripped",
			zap.String("owner", b.ownerID),
			zap.Float64("funds", funds),
			zap.Float64("disable-threshold", disable))

	case !currentlyEnabled && funds >= enable:
		b.enabled.Store(true)
		BreakerEnabled.WithLabelValues(b.ownerID).Set(1)
		b.logger.Info("funds-breaker-reset",
			zap.String("owner", b.ownerID),
			zap.Float64("funds", funds),
			zap.Float64("enable-threshold", enable))
	}
}

// GetStatus returns the breaker's current state.
func (b *FundsCircuitBreaker) GetStatus() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()

	avg := 0.0
	if len(b.recentPremiums) > 0 {
		sum := 0.0
		for _, p := range b.recentPremiums {
			sum += p
		}
		avg = sum / float64(len(b.recentPremiums))
	}

	return Status{
		Enabled:          b.enabled.Load(),
		LastFunds:        b.lastFunds,
		DisableThreshold: b.disableThreshold,
		EnableThreshold:  b.enableThreshold,
		AvgPremium:       avg,
		RecentTradeCount: len(b.recentPremiums),
	}
}
