package agent

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/optionhouse/optionhouse/internal/market"
	"github.com/optionhouse/optionhouse/internal/registry"
	"go.uber.org/zap"
)

// Seller is a deal-originating agent. On every heartbeat it mints a new
// Deal when its book is empty (subject to a cooldown) and lists every
// unauctioned deal by wrapping it in a fresh Option and opening an
// auction through the registry.
type Seller struct {
	id       string
	logger   *zap.Logger
	registry *registry.Registry
	rng      *rand.Rand

	pos            market.Position
	heartbeat      time.Duration
	mintCooldown   time.Duration
	impatience     time.Duration
	biddingWindow  time.Duration
	optionDuration time.Duration

	mu       sync.Mutex
	funds    float64
	deals    []*market.Deal
	minPrice float64
	expected float64
	lastMint time.Time
	lastSale time.Time
}

// SellerConfig holds seller agent configuration.
type SellerConfig struct {
	ID             string
	Position       market.Position
	MinPrice       float64
	Expected       float64
	Heartbeat      time.Duration
	MintCooldown   time.Duration
	Impatience     time.Duration // idle time before expectations drop
	BiddingWindow  time.Duration
	OptionDuration time.Duration
	Seed           int64
	Registry       *registry.Registry
	Logger         *zap.Logger
}

// NewSeller creates a seller agent and registers it with the registry.
func NewSeller(cfg *SellerConfig) (*Seller, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.ID == "" {
		return nil, fmt.Errorf("id cannot be empty")
	}
	if cfg.Registry == nil || cfg.Logger == nil {
		return nil, fmt.Errorf("registry and logger are required")
	}
	if cfg.Expected <= 0 || cfg.MinPrice <= 0 || cfg.Expected < cfg.MinPrice {
		return nil, fmt.Errorf("price expectations must satisfy 0 < min <= expected")
	}

	heartbeat := cfg.Heartbeat
	if heartbeat <= 0 {
		heartbeat = 2 * time.Second
	}
	cooldown := cfg.MintCooldown
	if cooldown <= 0 {
		cooldown = time.Second
	}
	impatience := cfg.Impatience
	if impatience <= 0 {
		impatience = 10 * time.Second
	}
	biddingWindow := cfg.BiddingWindow
	if biddingWindow <= 0 {
		biddingWindow = 3 * time.Second
	}
	optionDuration := cfg.OptionDuration
	if optionDuration <= 0 {
		optionDuration = 10 * time.Second
	}

	s := &Seller{
		id:             cfg.ID,
		logger:         cfg.Logger.With(zap.String("seller-id", cfg.ID)),
		registry:       cfg.Registry,
		rng:            rand.New(rand.NewSource(cfg.Seed)),
		pos:            cfg.Position,
		heartbeat:      heartbeat,
		mintCooldown:   cooldown,
		impatience:     impatience,
		biddingWindow:  biddingWindow,
		optionDuration: optionDuration,
		minPrice:       cfg.MinPrice,
		expected:       cfg.Expected,
		lastSale:       time.Now(),
	}

	cfg.Registry.RegisterSeller(s)
	return s, nil
}

// ID implements market.Seller.
func (s *Seller) ID() string { return s.id }

// Position implements market.Seller.
func (s *Seller) Position() market.Position { return s.pos }

// Funds returns the agent's current balance.
func (s *Seller) Funds() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.funds
}

// Deals returns a snapshot of the agent's open deal book.
func (s *Seller) Deals() []*market.Deal {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*market.Deal, len(s.deals))
	copy(out, s.deals)
	return out
}

// SubtractDeal removes a deal from the open book; it fails when the deal
// is no longer held.
func (s *Seller) SubtractDeal(deal *market.Deal) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, held := range s.deals {
		if held == deal {
			s.deals = append(s.deals[:i], s.deals[i+1:]...)
			return true
		}
	}
	return false
}

// ReceiveMoney credits the premium from a settled auction.
func (s *Seller) ReceiveMoney(amount float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.funds += amount
	s.lastSale = time.Now()
}

// Run is the agent's long-lived task: a heartbeat loop that mints and
// lists deals until the context ends.
func (s *Seller) Run(ctx context.Context) error {
	s.logger.Info("seller-agent-started",
		zap.Duration("heartbeat", s.heartbeat),
		zap.Float64("expected", s.expectedNow()))

	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("seller-agent-stopped")
			return ctx.Err()
		case <-ticker.C:
			s.onHeartbeat(ctx)
		}
	}
}

// onHeartbeat mints a deal if the book is empty and lists every deal not
// currently under auction.
func (s *Seller) onHeartbeat(ctx context.Context) {
	s.mintIfIdle()
	s.adjustExpectations()

	for _, deal := range s.Deals() {
		if deal.State() != market.DealUnassigned || deal.InAuction() {
			continue
		}

		strike := s.expectedNow() * (0.5 + s.rng.Float64()*0.5)
		option := market.NewOption(deal, strike, s.optionDuration)

		_, err := s.registry.CreateAuction(ctx, s, option, s.biddingWindow)
		if err != nil {
			s.logger.Warn("auction-listing-failed",
				zap.String("deal-id", deal.ID.String()),
				zap.Error(err))
			continue
		}
		DealsListedTotal.Inc()
	}
}

// mintIfIdle creates a new unassigned deal out of thin air when the book
// is empty, at most once per cooldown.
func (s *Seller) mintIfIdle() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.deals) > 0 || time.Since(s.lastMint) < s.mintCooldown {
		return
	}

	deal := market.NewDeal(s.id, s.expected)
	s.deals = append(s.deals, deal)
	s.lastMint = time.Now()
	DealsMintedTotal.Inc()
	s.logger.Debug("deal-minted", zap.String("deal-id", deal.ID.String()))
}

// adjustExpectations lowers the expected price after a long dry spell,
// bounded below by the minimum price.
func (s *Seller) adjustExpectations() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if time.Since(s.lastSale) < s.impatience {
		return
	}
	s.expected /= 1.0 + s.rng.Float64()*0.1
	if s.expected < s.minPrice {
		s.expected = s.minPrice
	}
}

func (s *Seller) expectedNow() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expected
}
