package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/optionhouse/optionhouse/internal/market"
)

// State is the lifecycle state of an Auction.
type State int

const (
	StateUnassigned State = iota
	StateBidding
	StateResolving
	StateCancelled
)

// String returns the human-readable state name.
func (s State) String() string {
	switch s {
	case StateUnassigned:
		return "unassigned"
	case StateBidding:
		return "bidding"
	case StateResolving:
		return "resolving"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Bid is one bidder's current bid in an auction. A bidder has at most one
// bid; raising replaces it in place.
type Bid struct {
	BuyerID string
	Amount  float64
}

// Auction is the bidding state machine for one Option. All mutation goes
// through the Registry; the Auction itself only guards its bid book.
type Auction struct {
	ID       uuid.UUID
	SellerID string
	Option   *market.Option

	mu          sync.Mutex
	state       State
	bids        map[string]float64
	order       []Bid // ranked descending, ties broken by first submission
	openedAt    time.Time
	deadline    time.Time
	cancelledBy string
}

func newAuction(sellerID string, option *market.Option) *Auction {
	return &Auction{
		ID:       uuid.New(),
		SellerID: sellerID,
		Option:   option,
		state:    StateUnassigned,
		bids:     make(map[string]float64),
	}
}

// State returns the auction's current state.
func (a *Auction) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Deadline returns the end of the bidding window.
func (a *Auction) Deadline() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.deadline
}

// CancelledBy returns who cancelled the auction, or "" if it wasn't.
func (a *Auction) CancelledBy() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cancelledBy
}

// BidOf returns the bidder's current bid, if any.
func (a *Auction) BidOf(buyerID string) (float64, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	amount, ok := a.bids[buyerID]
	return amount, ok
}

// Leading returns the current highest bid.
func (a *Auction) Leading() (Bid, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.order) == 0 {
		return Bid{}, false
	}
	return a.order[0], true
}

// Ranked returns a snapshot of the bid book, highest first.
func (a *Auction) Ranked() []Bid {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rankedLocked()
}

func (a *Auction) rankedLocked() []Bid {
	out := make([]Bid, len(a.order))
	copy(out, a.order)
	return out
}

// placeLocked records or raises a bid and restores the descending order.
// The stable sort breaks ties by submission order of the amounts: a
// raiser who merely matches the leader does not displace them. Caller
// holds a.mu.
func (a *Auction) placeLocked(buyerID string, amount float64) {
	if _, ok := a.bids[buyerID]; ok {
		for i := range a.order {
			if a.order[i].BuyerID == buyerID {
				a.order[i].Amount = amount
				break
			}
		}
	} else {
		a.order = append(a.order, Bid{BuyerID: buyerID, Amount: amount})
	}
	a.bids[buyerID] = amount

	sort.SliceStable(a.order, func(i, j int) bool {
		return a.order[i].Amount > a.order[j].Amount
	})
}

// outbidLocked collects the bidders ranked below the given bid, in
// descending rank order. Caller holds a.mu.
func (a *Auction) outbidLocked(buyerID string, amount float64) []Bid {
	var below []Bid
	for _, b := range a.order {
		if b.BuyerID == buyerID {
			continue
		}
		if b.Amount < amount {
			below = append(below, b)
		}
	}
	return below
}

// Snapshot is a read-only view of an auction for the HTTP API.
type Snapshot struct {
	ID          uuid.UUID `json:"id"`
	SellerID    string    `json:"seller_id"`
	OptionID    uuid.UUID `json:"option_id"`
	DealID      uuid.UUID `json:"deal_id"`
	Strike      float64   `json:"strike"`
	State       string    `json:"state"`
	OpenedAt    time.Time `json:"opened_at"`
	Deadline    time.Time `json:"deadline"`
	Bids        []Bid     `json:"bids"`
	CancelledBy string    `json:"cancelled_by,omitempty"`
}

// Snapshot returns a consistent copy of the auction's observable state.
func (a *Auction) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Snapshot{
		ID:          a.ID,
		SellerID:    a.SellerID,
		OptionID:    a.Option.ID,
		DealID:      a.Option.Deal.ID,
		Strike:      a.Option.Strike,
		State:       a.state.String(),
		OpenedAt:    a.openedAt,
		Deadline:    a.deadline,
		Bids:        a.rankedLocked(),
		CancelledBy: a.cancelledBy,
	}
}
