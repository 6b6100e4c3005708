package market

import (
	"context"
	"math"
)

// Position is a participant's location in the world. Movement itself is
// out of scope for the engine; positions exist only so deal closing can
// check interaction proximity.
type Position struct {
	X, Y float64
}

// Distance returns the euclidean distance to another position.
func (p Position) Distance(other Position) float64 {
	return math.Hypot(p.X-other.X, p.Y-other.Y)
}

// Buyer is the collaborator surface the Registry needs from a bidder.
//
// SubtractMoney, SubtractOption, ReceiveMoney, ReceiveOption and
// ReceiveDeal are the only mutators of a buyer's private funds and
// inventory; the Registry calls them exclusively inside an atomic
// transfer (settlement, exercise, or their compensations).
//
// NotifyOutbid is invoked synchronously under the auction's bid lock so
// that every bidder observes outbid events in the auction's global bid
// order; implementations must not block.
type Buyer interface {
	ID() string
	Position() Position

	SubtractMoney(amount float64) bool
	ReceiveMoney(amount float64)
	SubtractOption(opt *Option) bool
	ReceiveOption(opt *Option)
	ReceiveDeal(deal *Deal)

	NotifyOutbid(details OutbidDetails)

	// ReceiveOffer hands the buyer a time-limited offer and returns a
	// channel on which the buyer sends its verdict. The Registry waits on
	// the channel no longer than the offer's deadline; silence declines.
	ReceiveOffer(ctx context.Context, offer *Offer) <-chan bool
}

// Seller is the collaborator surface the Registry needs from a deal
// originator.
type Seller interface {
	ID() string
	Position() Position

	SubtractDeal(deal *Deal) bool
	ReceiveMoney(amount float64)
}
