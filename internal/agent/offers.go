package agent

import (
	"time"

	"github.com/optionhouse/optionhouse/internal/market"
	"go.uber.org/zap"
)

// pendingOffer is a resolution offer waiting in the agent's queue, with
// the one-shot channel carrying the verdict back to the registry.
type pendingOffer struct {
	offer    *market.Offer
	decision chan bool
	evalAt   time.Time
	decided  bool
}

// newPendingOffer schedules the offer's evaluation shortly before its
// deadline, leaving a third of the decision window for the verdict to
// travel.
func newPendingOffer(offer *market.Offer) *pendingOffer {
	window := time.Until(offer.Deadline)
	return &pendingOffer{
		offer:    offer,
		decision: make(chan bool, 1),
		evalAt:   offer.Deadline.Add(-window / 3),
	}
}

func (p *pendingOffer) decide(accept bool) {
	if p.decided {
		return
	}
	p.decided = true
	p.decision <- accept
}

// actOnOffers re-evaluates the pending queue. An offer reaching its
// evaluation point is accepted only if it is the best-valued offer
// currently pending and that value is positive; otherwise it is
// declined. Holding every offer until just before its deadline lets the
// agent juggle simultaneous offers and act on its best one rather than
// the first one received.
func (b *Buyer) actOnOffers(pending []*pendingOffer, now time.Time) []*pendingOffer {
	live := pending[:0]
	for _, p := range pending {
		if p.decided || now.After(p.offer.Deadline) {
			continue
		}
		live = append(live, p)
	}

	remaining := live[:0]
	for _, p := range live {
		if now.Before(p.evalAt) {
			remaining = append(remaining, p)
			continue
		}

		value := p.offer.Appraise(b.appetiteNow())
		if value > 0 && value >= b.bestPendingValue(live) {
			p.decide(true)
			OffersAcceptedTotal.Inc()
			b.relaxAppetite()
			b.breaker.RecordTrade(p.offer.Premium)
			b.logger.Info("offer-accepted",
				zap.String("auction-id", p.offer.AuctionID.String()),
				zap.Float64("premium", p.offer.Premium),
				zap.Float64("value", value))
			continue
		}

		p.decide(false)
		OffersDeclinedTotal.Inc()
		b.logger.Debug("offer-declined",
			zap.String("auction-id", p.offer.AuctionID.String()),
			zap.Float64("premium", p.offer.Premium),
			zap.Float64("value", value))
	}

	return remaining
}

// bestPendingValue is the highest appraisal among live pending offers.
func (b *Buyer) bestPendingValue(live []*pendingOffer) float64 {
	appetite := b.appetiteNow()
	best := 0.0
	for _, p := range live {
		if p.decided {
			continue
		}
		if v := p.offer.Appraise(appetite); v > best {
			best = v
		}
	}
	return best
}
