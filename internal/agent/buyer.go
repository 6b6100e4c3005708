package agent

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/optionhouse/optionhouse/internal/circuitbreaker"
	"github.com/optionhouse/optionhouse/internal/market"
	"github.com/optionhouse/optionhouse/internal/registry"
	"github.com/optionhouse/optionhouse/pkg/cache"
	"github.com/optionhouse/optionhouse/pkg/eventbus"
	"go.uber.org/zap"
)

const (
	// outbidBuffer bounds queued outbid notifications per agent.
	outbidBuffer = 128
	// offerBuffer bounds queued incoming offers per agent.
	offerBuffer = 16
	// appraisalTTL bounds staleness of cached option appraisals.
	appraisalTTL = 5 * time.Second
)

// Buyer is an autonomous bidding agent. It enters auctions it values,
// reacts to outbid notifications with the damped velocity/volatility
// heuristic, juggles simultaneous resolution offers through a pending
// queue, exercises options it wins, and closes deals when in range of
// the seller. A funds circuit breaker suspends bidding when the agent
// runs low on money.
type Buyer struct {
	id       string
	logger   *zap.Logger
	registry *registry.Registry
	bus      *eventbus.Bus
	cache    cache.Cache
	breaker  *circuitbreaker.FundsCircuitBreaker
	rng      *rand.Rand

	pos           market.Position
	interactRange float64
	evalInterval  time.Duration
	exerciseEvery time.Duration

	mu       sync.Mutex
	funds    float64
	options  []*market.Option
	deals    []*market.Deal
	appetite float64 // agent's base valuation of a deal
	minAppetite,
	maxAppetite float64

	outbidCh chan market.OutbidDetails
	offerCh  chan *pendingOffer
}

// BuyerConfig holds buyer agent configuration.
type BuyerConfig struct {
	ID            string
	Funds         float64
	Appetite      float64 // base deal valuation; drifts within +/-50%
	Position      market.Position
	InteractRange float64
	EvalInterval  time.Duration // pending-work poll cadence
	ExerciseEvery time.Duration // option exercise cadence
	Seed          int64
	Registry      *registry.Registry
	Bus           *eventbus.Bus
	Cache         cache.Cache
	Logger        *zap.Logger
}

// NewBuyer creates a buyer agent and registers it with the registry.
func NewBuyer(cfg *BuyerConfig) (*Buyer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.ID == "" {
		return nil, fmt.Errorf("id cannot be empty")
	}
	if cfg.Registry == nil || cfg.Bus == nil || cfg.Logger == nil {
		return nil, fmt.Errorf("registry, bus and logger are required")
	}
	if cfg.Appetite <= 0 {
		return nil, fmt.Errorf("appetite must be positive")
	}

	evalInterval := cfg.EvalInterval
	if evalInterval <= 0 {
		evalInterval = 20 * time.Millisecond
	}
	exerciseEvery := cfg.ExerciseEvery
	if exerciseEvery <= 0 {
		exerciseEvery = 500 * time.Millisecond
	}
	interact := cfg.InteractRange
	if interact <= 0 {
		interact = 2.0
	}

	floor := cfg.Funds * 0.05
	if floor <= 0 {
		floor = 1.0
	}
	breaker, err := circuitbreaker.New(&circuitbreaker.Config{
		OwnerID:         cfg.ID,
		TradeMultiplier: 2.0,
		MinAbsolute:     floor,
		HysteresisRatio: 1.5,
		Logger:          cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create funds breaker: %w", err)
	}

	b := &Buyer{
		id:            cfg.ID,
		logger:        cfg.Logger.With(zap.String("buyer-id", cfg.ID)),
		registry:      cfg.Registry,
		bus:           cfg.Bus,
		cache:         cfg.Cache,
		breaker:       breaker,
		rng:           rand.New(rand.NewSource(cfg.Seed)),
		pos:           cfg.Position,
		interactRange: interact,
		evalInterval:  evalInterval,
		exerciseEvery: exerciseEvery,
		funds:         cfg.Funds,
		appetite:      cfg.Appetite,
		minAppetite:   cfg.Appetite * 0.5,
		maxAppetite:   cfg.Appetite * 1.5,
		outbidCh:      make(chan market.OutbidDetails, outbidBuffer),
		offerCh:       make(chan *pendingOffer, offerBuffer),
	}

	cfg.Registry.RegisterBuyer(b)
	return b, nil
}

// ID implements market.Buyer.
func (b *Buyer) ID() string { return b.id }

// Position implements market.Buyer.
func (b *Buyer) Position() market.Position { return b.pos }

// Funds returns the agent's current balance.
func (b *Buyer) Funds() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.funds
}

// SubtractMoney debits the agent's funds; it fails without mutation when
// the balance is insufficient.
func (b *Buyer) SubtractMoney(amount float64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.funds < amount {
		return false
	}
	b.funds -= amount
	return true
}

// ReceiveMoney credits the agent's funds.
func (b *Buyer) ReceiveMoney(amount float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.funds += amount
}

// SubtractOption removes an option from the agent's inventory.
func (b *Buyer) SubtractOption(opt *market.Option) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, held := range b.options {
		if held == opt {
			b.options = append(b.options[:i], b.options[i+1:]...)
			return true
		}
	}
	return false
}

// ReceiveOption adds an option to the agent's inventory.
func (b *Buyer) ReceiveOption(opt *market.Option) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.options = append(b.options, opt)
}

// ReceiveDeal adds a deal to the agent's inventory.
func (b *Buyer) ReceiveDeal(deal *market.Deal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deals = append(b.deals, deal)
}

// Options returns a snapshot of held options.
func (b *Buyer) Options() []*market.Option {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*market.Option, len(b.options))
	copy(out, b.options)
	return out
}

// Deals returns a snapshot of held deals.
func (b *Buyer) Deals() []*market.Deal {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*market.Deal, len(b.deals))
	copy(out, b.deals)
	return out
}

// NotifyOutbid implements market.Buyer. Called under the auction's bid
// lock; it must not block, so an agent drowning in notifications loses
// the excess.
func (b *Buyer) NotifyOutbid(details market.OutbidDetails) {
	select {
	case b.outbidCh <- details:
	default:
		OutbidDropsTotal.Inc()
	}
}

// ReceiveOffer implements market.Buyer. The offer joins the pending
// queue; the verdict arrives on the returned channel before the offer
// deadline, or not at all.
func (b *Buyer) ReceiveOffer(ctx context.Context, offer *market.Offer) <-chan bool {
	p := newPendingOffer(offer)
	select {
	case b.offerCh <- p:
	default:
		// Queue full counts as an immediate decline.
		p.decide(false)
	}
	return p.decision
}

// Run is the agent's long-lived task. It suspends only on timers and
// channel receives; every wait is time-bounded.
func (b *Buyer) Run(ctx context.Context) error {
	b.logger.Info("buyer-agent-started",
		zap.Float64("funds", b.Funds()),
		zap.Float64("appetite", b.appetiteNow()))

	observations := make(map[uuid.UUID]*observation)
	var pending []*pendingOffer

	evalTicker := time.NewTicker(b.evalInterval)
	defer evalTicker.Stop()
	exerciseTicker := time.NewTicker(b.exerciseEvery)
	defer exerciseTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("buyer-agent-stopped")
			return ctx.Err()

		case details := <-b.outbidCh:
			b.observe(observations, details)

		case p := <-b.offerCh:
			pending = append(pending, p)

		case <-evalTicker.C:
			now := time.Now()
			b.breaker.Observe(b.Funds())
			b.enterAuctions()
			b.actOnObservations(observations, now)
			pending = b.actOnOffers(pending, now)

		case <-exerciseTicker.C:
			b.exerciseOptions()
			b.closeDeals()
		}
	}
}

// enterAuctions places an opening bid in every bidding auction the agent
// has not joined yet and values positively. Joining behind the current
// leader is fine; subsequent escalation is left to the outbid heuristic.
func (b *Buyer) enterAuctions() {
	if !b.breaker.IsEnabled() {
		return
	}
	for _, a := range b.registry.ActiveAuctions() {
		if a.State() != registry.StateBidding {
			continue
		}
		if _, ok := a.BidOf(b.id); ok {
			continue
		}

		valuation := b.appraise(a.Option)
		if valuation <= 0 {
			continue
		}

		opening := a.Option.Strike * (0.5 + b.rng.Float64()*0.5)
		if leading, ok := a.Leading(); ok {
			opening = leading.Amount * (1.01 + b.rng.Float64()*0.04)
		}
		if opening > valuation || opening > b.Funds() {
			continue
		}

		if b.registry.PlaceBid(b, opening, a) {
			OpeningBidsTotal.Inc()
			b.logger.Debug("auction-entered",
				zap.String("auction-id", a.ID.String()),
				zap.Float64("opening-bid", opening))
		}
	}
}

// observe buffers an outbid event, opening an observation window on the
// first event for an auction.
func (b *Buyer) observe(observations map[uuid.UUID]*observation, details market.OutbidDetails) {
	obs := observations[details.AuctionID]
	if obs == nil {
		window := observationWindow(details.Remaining)
		obs = &observation{
			auctionID: details.AuctionID,
			window:    window,
			due:       time.Now().Add(window),
		}
		observations[details.AuctionID] = obs
	}
	obs.events = append(obs.events, details)
}

// actOnObservations closes out every due observation window: estimate
// velocity and volatility, propose a damped rebid, and submit it only if
// it stays within the agent's own valuation. The buffered events are
// discarded either way.
func (b *Buyer) actOnObservations(observations map[uuid.UUID]*observation, now time.Time) {
	for id, obs := range observations {
		if now.Before(obs.due) {
			continue
		}
		delete(observations, id)

		est, ok := estimateRebid(obs.events, obs.window)
		if !ok {
			continue
		}
		if !b.breaker.IsEnabled() {
			continue
		}

		a := b.registry.Auction(obs.auctionID)
		if a == nil {
			continue
		}

		bid := est.proposed()
		valuation := b.appraise(a.Option)
		if bid > valuation {
			RebidsSuppressedTotal.Inc()
			b.raiseAppetite()
			b.logger.Debug("rebid-priced-out",
				zap.String("auction-id", id.String()),
				zap.Float64("proposed", bid),
				zap.Float64("valuation", valuation))
			continue
		}

		if b.registry.PlaceBid(b, bid, a) {
			RebidsSubmittedTotal.Inc()
			b.logger.Debug("rebid-submitted",
				zap.String("auction-id", id.String()),
				zap.Float64("bid", bid),
				zap.Float64("velocity", est.velocity),
				zap.Float64("volatility", est.volatility))
		}
	}
}

// appraise values an option against the agent's current appetite,
// consulting the cache first. The appetite is part of the key so that an
// appetite nudge is visible immediately rather than after the TTL.
func (b *Buyer) appraise(opt *market.Option) float64 {
	appetite := b.appetiteNow()
	key := b.id + ":" + opt.ID.String() + ":" + strconv.FormatFloat(appetite, 'g', -1, 64)
	if b.cache != nil {
		if v, ok := b.cache.Get(key); ok {
			return v
		}
	}
	v := opt.Appraise(appetite)
	if b.cache != nil {
		b.cache.Set(key, v, appraisalTTL)
	}
	return v
}

func (b *Buyer) appetiteNow() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.appetite
}

// raiseAppetite nudges the agent's valuation upward after being priced
// out, bounded above.
func (b *Buyer) raiseAppetite() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.appetite *= 1.0 + b.rng.Float64()*0.1
	if b.appetite > b.maxAppetite {
		b.appetite = b.maxAppetite
	}
}

// relaxAppetite lowers the agent's valuation after a win, bounded below.
func (b *Buyer) relaxAppetite() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.appetite /= 1.0 + b.rng.Float64()*0.1
	if b.appetite < b.minAppetite {
		b.appetite = b.minAppetite
	}
}

// exerciseOptions exchanges held options that are exchangeable and still
// positively valued.
func (b *Buyer) exerciseOptions() {
	now := time.Now()
	for _, opt := range b.Options() {
		if !opt.Exchangeable(now) {
			continue
		}
		if b.appraise(opt) <= 0 {
			continue
		}

		seller := b.registry.Seller(opt.Deal.SellerID)
		err := opt.TryExchange(b, seller, now)
		if err != nil {
			b.logger.Warn("option-exercise-failed",
				zap.String("option-id", opt.ID.String()),
				zap.Error(err))
			continue
		}

		OptionsExercisedTotal.Inc()
		b.logger.Info("option-exercised",
			zap.String("option-id", opt.ID.String()),
			zap.Float64("strike", opt.Strike))
		b.bus.Publish(eventbus.Event{
			Type:     eventbus.OptionExercised,
			OptionID: opt.ID,
			DealID:   opt.Deal.ID,
			BuyerID:  b.id,
			Amount:   opt.Strike,
		})
	}
}

// closeDeals attempts to close active deals whose seller is within
// interaction range. Out-of-range attempts fail harmlessly and are
// retried next cycle.
func (b *Buyer) closeDeals() {
	for _, deal := range b.Deals() {
		if deal.State() != market.DealActive {
			continue
		}
		seller := b.registry.Seller(deal.SellerID)
		if seller == nil {
			continue
		}

		distance := b.pos.Distance(seller.Position())
		if !deal.TryClose(distance, b.interactRange) {
			continue
		}

		b.removeDeal(deal)
		DealsClosedTotal.Inc()
		b.logger.Info("deal-closed", zap.String("deal-id", deal.ID.String()))
		b.bus.Publish(eventbus.Event{
			Type:     eventbus.DealClosed,
			DealID:   deal.ID,
			BuyerID:  b.id,
			SellerID: deal.SellerID,
		})
	}
}

func (b *Buyer) removeDeal(deal *market.Deal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, held := range b.deals {
		if held == deal {
			b.deals = append(b.deals[:i], b.deals[i+1:]...)
			return
		}
	}
}
