package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TradeRecord is the persisted form of a settled trade.
type TradeRecord struct {
	ID        uuid.UUID
	AuctionID uuid.UUID
	OptionID  uuid.UUID
	DealID    uuid.UUID
	SellerID  string
	BuyerID   string
	Premium   float64
	SettledAt time.Time
}

// Storage persists settled trades. Implementations must be safe for use
// from a single recorder goroutine.
type Storage interface {
	// StoreTrade stores a settled trade.
	StoreTrade(ctx context.Context, trade *TradeRecord) error

	// Close closes the storage connection.
	Close() error
}
