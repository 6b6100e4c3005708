package eventbus

import (
	"time"

	"github.com/google/uuid"
)

// Type identifies an engine event.
type Type string

const (
	AuctionOpened    Type = "auction_opened"
	BidPlaced        Type = "bid_placed"
	BidderOutbid     Type = "bidder_outbid"
	OfferExtended    Type = "offer_extended"
	OfferDeclined    Type = "offer_declined"
	TradeSettled     Type = "trade_settled"
	AuctionNoSale    Type = "auction_no_sale"
	AuctionExpired   Type = "auction_expired"
	AuctionCancelled Type = "auction_cancelled"
	OptionExercised  Type = "option_exercised"
	DealClosed       Type = "deal_closed"
)

// Event is a read-only record of something that happened inside the
// engine. Subscribers (ledger, visualization) must never be required for
// correctness, so delivery is best-effort.
type Event struct {
	Type      Type      `json:"type"`
	At        time.Time `json:"at"`
	AuctionID uuid.UUID `json:"auction_id,omitempty"`
	OptionID  uuid.UUID `json:"option_id,omitempty"`
	DealID    uuid.UUID `json:"deal_id,omitempty"`
	SellerID  string    `json:"seller_id,omitempty"`
	BuyerID   string    `json:"buyer_id,omitempty"`
	Amount    float64   `json:"amount,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}
