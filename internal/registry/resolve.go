package registry

import (
	"context"
	"time"

	"github.com/optionhouse/optionhouse/internal/market"
	"github.com/optionhouse/optionhouse/pkg/eventbus"
	"go.uber.org/zap"
)

// run owns the auction's bidding window. It waits for the window to
// close, then resolves the auction. Context cancellation retires the
// auction without resolution.
func (r *Registry) run(ctx context.Context, a *Auction) {
	defer r.wg.Done()

	timer := time.NewTimer(time.Until(a.Deadline()))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		r.deregister(a)
		return
	case <-timer.C:
	}

	r.resolve(ctx, a)
}

// resolve drives the auction from window close to a terminal outcome.
func (r *Registry) resolve(ctx context.Context, a *Auction) {
	start := time.Now()
	defer func() {
		ResolutionDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	a.mu.Lock()
	if a.state == StateCancelled {
		// Cancellation already deregistered the auction; bids placed
		// before the cancel are simply dropped.
		if len(a.bids) > 0 {
			r.logger.Warn("auction-cancelled-with-live-bids",
				zap.String("auction-id", a.ID.String()),
				zap.Int("bids", len(a.bids)))
		}
		a.mu.Unlock()
		r.deregister(a)
		return
	}
	if len(a.bids) == 0 {
		a.mu.Unlock()
		r.deregister(a)
		AuctionsResolvedTotal.WithLabelValues("expired").Inc()
		r.logger.Info("auction-expired-no-bids", zap.String("auction-id", a.ID.String()))
		r.bus.Publish(eventbus.Event{
			Type:      eventbus.AuctionExpired,
			AuctionID: a.ID,
			OptionID:  a.Option.ID,
			DealID:    a.Option.Deal.ID,
			SellerID:  a.SellerID,
		})
		return
	}

	a.state = StateResolving
	ranked := a.rankedLocked()
	a.mu.Unlock()

	sold := r.waterfall(ctx, a, ranked)

	r.deregister(a)

	if sold {
		AuctionsResolvedTotal.WithLabelValues("sold").Inc()
		return
	}
	AuctionsResolvedTotal.WithLabelValues("no_sale").Inc()
	r.logger.Info("auction-no-sale",
		zap.String("auction-id", a.ID.String()),
		zap.Int("candidates", len(ranked)))
	r.bus.Publish(eventbus.Event{
		Type:      eventbus.AuctionNoSale,
		AuctionID: a.ID,
		OptionID:  a.Option.ID,
		DealID:    a.Option.Deal.ID,
		SellerID:  a.SellerID,
	})
}

// waterfall offers the option to each candidate in rank order, one at a
// time. Candidate k+1 is never offered before candidate k's decision
// window has elapsed or it has definitively declined. The first accepted
// and successfully settled offer wins.
func (r *Registry) waterfall(ctx context.Context, a *Auction, ranked []Bid) bool {
	for _, bid := range ranked {
		buyer := r.Buyer(bid.BuyerID)
		if buyer == nil {
			r.logger.Warn("waterfall-candidate-unknown",
				zap.String("auction-id", a.ID.String()),
				zap.String("buyer-id", bid.BuyerID))
			continue
		}

		offer := &market.Offer{
			AuctionID:   a.ID,
			Option:      a.Option,
			RecipientID: bid.BuyerID,
			Premium:     bid.Amount,
			Deadline:    time.Now().Add(r.decisionWindow),
		}

		OffersExtendedTotal.Inc()
		r.bus.Publish(eventbus.Event{
			Type:      eventbus.OfferExtended,
			AuctionID: a.ID,
			OptionID:  a.Option.ID,
			BuyerID:   bid.BuyerID,
			Amount:    bid.Amount,
		})

		if r.awaitDecision(ctx, buyer, offer) && r.settle(a, offer, buyer) {
			return true
		}

		r.bus.Publish(eventbus.Event{
			Type:      eventbus.OfferDeclined,
			AuctionID: a.ID,
			OptionID:  a.Option.ID,
			BuyerID:   bid.BuyerID,
			Amount:    bid.Amount,
		})
	}
	return false
}

// awaitDecision waits for the candidate's verdict up to the offer
// deadline. Timeout and context cancellation both decline.
func (r *Registry) awaitDecision(ctx context.Context, buyer market.Buyer, offer *market.Offer) bool {
	decision := buyer.ReceiveOffer(ctx, offer)

	timer := time.NewTimer(time.Until(offer.Deadline))
	defer timer.Stop()

	select {
	case accepted := <-decision:
		return accepted
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}

// settle performs the atomic ownership transfer for an accepted offer:
// the buyer pays the premium and receives the Option, the seller gives up
// the Deal and receives the premium, and the option's exchangeability
// clock starts. The transfer is all-or-nothing; the premium is refunded
// if the seller no longer holds the Deal.
func (r *Registry) settle(a *Auction, offer *market.Offer, buyer market.Buyer) bool {
	seller := r.Seller(a.SellerID)
	if seller == nil {
		SettlementFailuresTotal.WithLabelValues("seller_unknown").Inc()
		r.logger.Error("settlement-seller-unknown",
			zap.String("auction-id", a.ID.String()),
			zap.String("seller-id", a.SellerID))
		return false
	}

	if !buyer.SubtractMoney(offer.Premium) {
		SettlementFailuresTotal.WithLabelValues("insufficient_funds").Inc()
		r.logger.Warn("settlement-insufficient-funds",
			zap.String("auction-id", a.ID.String()),
			zap.String("buyer-id", buyer.ID()),
			zap.Float64("premium", offer.Premium))
		return false
	}

	if !seller.SubtractDeal(a.Option.Deal) {
		buyer.ReceiveMoney(offer.Premium)
		SettlementFailuresTotal.WithLabelValues("deal_missing").Inc()
		r.logger.Error("settlement-seller-missing-deal",
			zap.String("auction-id", a.ID.String()),
			zap.String("seller-id", a.SellerID),
			zap.String("deal-id", a.Option.Deal.ID.String()))
		return false
	}

	buyer.ReceiveOption(a.Option)
	seller.ReceiveMoney(offer.Premium)
	a.Option.Activate(buyer.ID(), time.Now())

	TradesSettledTotal.Inc()
	WinningPremium.Observe(offer.Premium)
	r.logger.Info("trade-settled",
		zap.String("auction-id", a.ID.String()),
		zap.String("buyer-id", buyer.ID()),
		zap.String("seller-id", a.SellerID),
		zap.Float64("premium", offer.Premium),
		zap.Float64("strike", a.Option.Strike))
	r.bus.Publish(eventbus.Event{
		Type:      eventbus.TradeSettled,
		AuctionID: a.ID,
		OptionID:  a.Option.ID,
		DealID:    a.Option.Deal.ID,
		SellerID:  a.SellerID,
		BuyerID:   buyer.ID(),
		Amount:    offer.Premium,
	})

	return true
}
