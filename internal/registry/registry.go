package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/optionhouse/optionhouse/internal/market"
	"github.com/optionhouse/optionhouse/pkg/eventbus"
	"go.uber.org/zap"
)

// Auction creation failure conditions.
var (
	ErrSellerUnknown    = errors.New("seller is not registered")
	ErrOptionSpent      = errors.New("option has already been settled")
	ErrAlreadyInAuction = errors.New("option or deal is already under auction")
)

// Registry is the single process-wide transaction authority. It owns the
// set of active auctions and the in-auction flags on Options and Deals,
// and is the only component allowed to create, mutate, or retire an
// Auction.
type Registry struct {
	logger         *zap.Logger
	bus            *eventbus.Bus
	decisionWindow time.Duration

	mu       sync.RWMutex
	auctions map[uuid.UUID]*Auction
	byOption map[uuid.UUID]*Auction
	byDeal   map[uuid.UUID]*Auction
	buyers   map[string]market.Buyer
	sellers  map[string]market.Seller

	wg sync.WaitGroup
}

// Config holds registry configuration.
type Config struct {
	// DecisionWindow bounds how long each waterfall candidate gets to
	// accept or decline its offer.
	DecisionWindow time.Duration
	Logger         *zap.Logger
	Bus            *eventbus.Bus
}

// DefaultDecisionWindow is used when Config.DecisionWindow is unset.
const DefaultDecisionWindow = 150 * time.Millisecond

// New creates a Registry.
func New(cfg *Config) (*Registry, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.Bus == nil {
		return nil, fmt.Errorf("event bus cannot be nil")
	}

	window := cfg.DecisionWindow
	if window <= 0 {
		window = DefaultDecisionWindow
	}

	return &Registry{
		logger:         cfg.Logger,
		bus:            cfg.Bus,
		decisionWindow: window,
		auctions:       make(map[uuid.UUID]*Auction),
		byOption:       make(map[uuid.UUID]*Auction),
		byDeal:         make(map[uuid.UUID]*Auction),
		buyers:         make(map[string]market.Buyer),
		sellers:        make(map[string]market.Seller),
	}, nil
}

// RegisterBuyer adds a buyer to the participant directory.
func (r *Registry) RegisterBuyer(b market.Buyer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buyers[b.ID()] = b
}

// RegisterSeller adds a seller to the participant directory.
func (r *Registry) RegisterSeller(s market.Seller) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sellers[s.ID()] = s
}

// Buyer looks up a registered buyer by ID.
func (r *Registry) Buyer(id string) market.Buyer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.buyers[id]
}

// Seller looks up a registered seller by ID.
func (r *Registry) Seller(id string) market.Seller {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sellers[id]
}

// CreateAuction opens a bidding-phase auction for the option. The option
// and its deal are marked in-auction immediately, so a second auction for
// either cannot be opened until this one reaches a terminal outcome. The
// bidding window closes after biddingWindow, at which point the auction
// resolves (or expires) on its own goroutine.
func (r *Registry) CreateAuction(ctx context.Context, seller market.Seller, option *market.Option, biddingWindow time.Duration) (*Auction, error) {
	if seller == nil || option == nil {
		return nil, fmt.Errorf("seller and option are required")
	}
	if option.Activated() {
		return nil, ErrOptionSpent
	}

	r.mu.Lock()
	if _, ok := r.sellers[seller.ID()]; !ok {
		r.mu.Unlock()
		return nil, ErrSellerUnknown
	}
	if option.InAuction() || option.Deal.InAuction() {
		r.mu.Unlock()
		return nil, ErrAlreadyInAuction
	}

	a := newAuction(seller.ID(), option)
	now := time.Now()

	r.auctions[a.ID] = a
	r.byOption[option.ID] = a
	r.byDeal[option.Deal.ID] = a
	option.SetInAuction(true)
	option.Deal.SetInAuction(true)
	r.mu.Unlock()

	a.mu.Lock()
	a.state = StateBidding
	a.openedAt = now
	a.deadline = now.Add(biddingWindow)
	a.mu.Unlock()

	AuctionsOpenedTotal.Inc()
	r.logger.Info("auction-opened",
		zap.String("auction-id", a.ID.String()),
		zap.String("seller-id", seller.ID()),
		zap.String("option-id", option.ID.String()),
		zap.Float64("strike", option.Strike),
		zap.Duration("bidding-window", biddingWindow))
	r.bus.Publish(eventbus.Event{
		Type:      eventbus.AuctionOpened,
		AuctionID: a.ID,
		OptionID:  option.ID,
		DealID:    option.Deal.ID,
		SellerID:  seller.ID(),
		Amount:    option.Strike,
	})

	r.wg.Add(1)
	go r.run(ctx, a)

	return a, nil
}

// PlaceBid records a bid. It is accepted only while the auction is
// bidding and only if it strictly exceeds the bidder's own previous bid.
// On acceptance every bidder now ranked below the new bid is notified,
// highest first, while the bid book lock is held, so all bidders observe
// outbid events in the auction's global bid order.
func (r *Registry) PlaceBid(bidder market.Buyer, amount float64, a *Auction) bool {
	if bidder == nil || a == nil {
		return false
	}
	if !r.active(a.ID) {
		BidsRejectedTotal.WithLabelValues("not_active").Inc()
		return false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != StateBidding {
		BidsRejectedTotal.WithLabelValues("not_bidding").Inc()
		return false
	}
	if prev, ok := a.bids[bidder.ID()]; ok && amount <= prev {
		BidsRejectedTotal.WithLabelValues("below_own_bid").Inc()
		return false
	}

	a.placeLocked(bidder.ID(), amount)

	remaining := time.Until(a.deadline)
	outbid := a.outbidLocked(bidder.ID(), amount)
	for _, b := range outbid {
		target := r.Buyer(b.BuyerID)
		if target == nil {
			continue
		}
		target.NotifyOutbid(market.OutbidDetails{
			AuctionID:  a.ID,
			LeadingBid: amount,
			Gap:        amount - b.Amount,
			Remaining:  remaining,
		})
		r.bus.Publish(eventbus.Event{
			Type:      eventbus.BidderOutbid,
			AuctionID: a.ID,
			OptionID:  a.Option.ID,
			BuyerID:   b.BuyerID,
			Amount:    amount,
		})
	}

	BidsPlacedTotal.Inc()
	OutbidNotificationsTotal.Add(float64(len(outbid)))
	r.logger.Debug("bid-placed",
		zap.String("auction-id", a.ID.String()),
		zap.String("buyer-id", bidder.ID()),
		zap.Float64("amount", amount),
		zap.Int("outbid-notified", len(outbid)))
	r.bus.Publish(eventbus.Event{
		Type:      eventbus.BidPlaced,
		AuctionID: a.ID,
		OptionID:  a.Option.ID,
		BuyerID:   bidder.ID(),
		Amount:    amount,
	})

	return true
}

// CancelAuction cancels a bidding-phase auction identified by deal,
// option, or direct handle, recording the requestor. Resolving auctions
// cannot be cancelled.
func (r *Registry) CancelAuction(deal *market.Deal, option *market.Option, a *Auction, requestor string) bool {
	if a == nil {
		switch {
		case option != nil:
			a = r.FindActiveAuctionByOption(option)
		case deal != nil:
			a = r.FindActiveAuctionByDeal(deal)
		}
	}
	if a == nil {
		r.logger.Error("cancel-auction-not-found", zap.String("requestor", requestor))
		return false
	}

	a.mu.Lock()
	if a.state != StateBidding {
		a.mu.Unlock()
		return false
	}
	a.state = StateCancelled
	a.cancelledBy = requestor
	liveBids := len(a.bids)
	a.mu.Unlock()

	r.deregister(a)

	AuctionsResolvedTotal.WithLabelValues("cancelled").Inc()
	r.logger.Info("auction-cancelled",
		zap.String("auction-id", a.ID.String()),
		zap.String("requestor", requestor),
		zap.Int("live-bids", liveBids))
	r.bus.Publish(eventbus.Event{
		Type:      eventbus.AuctionCancelled,
		AuctionID: a.ID,
		OptionID:  a.Option.ID,
		DealID:    a.Option.Deal.ID,
		SellerID:  a.SellerID,
		Detail:    requestor,
	})

	return true
}

// ActiveAuctions returns a snapshot of currently registered auctions.
func (r *Registry) ActiveAuctions() []*Auction {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Auction, 0, len(r.auctions))
	for _, a := range r.auctions {
		out = append(out, a)
	}
	return out
}

// Auction returns a registered auction by ID, or nil once it has been
// retired.
func (r *Registry) Auction(id uuid.UUID) *Auction {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.auctions[id]
}

// FindActiveAuctionByOption returns the active auction for the option, if
// any. The in-auction flag makes the negative case an O(1) check.
func (r *Registry) FindActiveAuctionByOption(option *market.Option) *Auction {
	if option == nil || !option.InAuction() {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byOption[option.ID]
}

// FindActiveAuctionByDeal returns the active auction for the deal, if any.
func (r *Registry) FindActiveAuctionByDeal(deal *market.Deal) *Auction {
	if deal == nil || !deal.InAuction() {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byDeal[deal.ID]
}

// active reports whether the auction is still registered.
func (r *Registry) active(id uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.auctions[id]
	return ok
}

// deregister retires an auction: it leaves the active set and the
// in-auction flags on its Option and Deal are cleared. Leaking a flag
// would permanently block re-auctioning the Deal, so this runs for every
// terminal outcome and is idempotent.
func (r *Registry) deregister(a *Auction) {
	r.mu.Lock()
	delete(r.auctions, a.ID)
	delete(r.byOption, a.Option.ID)
	delete(r.byDeal, a.Option.Deal.ID)
	r.mu.Unlock()

	a.Option.SetInAuction(false)
	a.Option.Deal.SetInAuction(false)
}

// Close waits for all auction goroutines to finish.
func (r *Registry) Close() error {
	r.logger.Info("closing-registry")
	r.wg.Wait()
	r.logger.Info("registry-closed")
	return nil
}
