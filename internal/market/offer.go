package market

import (
	"time"

	"github.com/google/uuid"
)

// Offer is a single-recipient, time-limited presentation of an Option
// during auction resolution. Offers are ephemeral: one is synthesized per
// waterfall candidate and discarded once decided.
type Offer struct {
	AuctionID   uuid.UUID
	Option      *Option
	RecipientID string
	Premium     float64
	Deadline    time.Time
}

// Appraise values the offer for the recipient: option value minus the
// premium being asked.
func (of *Offer) Appraise(dealValue float64) float64 {
	return of.Option.Appraise(dealValue) - of.Premium
}

// OutbidDetails describes an outbid event delivered to a bidder whose bid
// was surpassed in an auction.
type OutbidDetails struct {
	AuctionID  uuid.UUID
	LeadingBid float64
	Gap        float64
	Remaining  time.Duration
}
