package agent

import (
	"time"

	"github.com/google/uuid"
	"github.com/optionhouse/optionhouse/internal/market"
)

// observationEpsilon keeps the observation window clear of the bidding
// deadline so a rebid computed at window end can still land.
const observationEpsilon = 100 * time.Millisecond

// minObservation is the floor on how long an agent watches before
// reacting to being outbid.
const minObservation = time.Second

// rebidCap limits rebid aggressiveness to this fraction of the current
// leading bid.
const rebidCap = 0.05

// observation buffers the outbid events seen for one auction between the
// first notification and the end of the observation window.
type observation struct {
	auctionID uuid.UUID
	events    []market.OutbidDetails
	window    time.Duration
	due       time.Time
}

// observationWindow sizes the watch period: at least a second (batching
// bursts of outbid events instead of reacting to each), but never more
// than half the remaining bidding time.
func observationWindow(remaining time.Duration) time.Duration {
	w := remaining - observationEpsilon
	if w < minObservation {
		w = minObservation
	}
	if half := remaining / 2; half < w {
		w = half
	}
	return w
}

// rebidEstimate is the outcome of one observation window.
type rebidEstimate struct {
	velocity   float64 // outbid events per second
	volatility float64 // largest jump between consecutive leading bids
	leading    float64 // last observed leading bid
	increment  float64 // capped proposed raise over the leading bid
}

// estimateRebid turns a window of outbid events into a damped rebid
// proposal: increment = min(volatility x velocity, 5% of the leading
// bid). The first event's gap counts as the initial jump, later jumps
// are the increases between consecutive leading bids.
func estimateRebid(events []market.OutbidDetails, window time.Duration) (rebidEstimate, bool) {
	if len(events) == 0 || window <= 0 {
		return rebidEstimate{}, false
	}

	est := rebidEstimate{
		velocity: float64(len(events)) / window.Seconds(),
		leading:  events[len(events)-1].LeadingBid,
	}

	est.volatility = events[0].Gap
	for i := 1; i < len(events); i++ {
		jump := events[i].LeadingBid - events[i-1].LeadingBid
		if jump > est.volatility {
			est.volatility = jump
		}
	}

	est.increment = est.volatility * est.velocity
	if limit := est.leading * rebidCap; est.increment > limit {
		est.increment = limit
	}

	return est, true
}

// proposed is the bid the agent would submit, valuation permitting.
func (e rebidEstimate) proposed() float64 {
	return e.leading + e.increment
}
