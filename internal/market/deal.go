package market

import (
	"sync"

	"github.com/google/uuid"
)

// DealState is the lifecycle state of a Deal.
// Transitions only move forward: Unassigned -> Active -> Closed.
type DealState int

const (
	DealUnassigned DealState = iota
	DealActive
	DealClosed
)

// String returns the human-readable state name.
func (s DealState) String() string {
	switch s {
	case DealUnassigned:
		return "unassigned"
	case DealActive:
		return "active"
	case DealClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Deal is a direct exchange agreement from a seller to (eventually) one
// buyer. A Deal has at most one seller and, once active, exactly one buyer.
type Deal struct {
	ID       uuid.UUID
	SellerID string

	// Price expectations of either side, used by agents when appraising.
	SellerExpected float64
	BuyerExpected  float64

	mu        sync.Mutex
	state     DealState
	buyerID   string
	inAuction bool
}

// NewDeal creates an unassigned Deal owned by the given seller.
func NewDeal(sellerID string, sellerExpected float64) *Deal {
	return &Deal{
		ID:             uuid.New(),
		SellerID:       sellerID,
		SellerExpected: sellerExpected,
		state:          DealUnassigned,
	}
}

// State returns the current lifecycle state.
func (d *Deal) State() DealState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// BuyerID returns the assigned buyer, or "" while unassigned.
func (d *Deal) BuyerID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.buyerID
}

// activate assigns the buyer and moves the Deal to Active. Called only
// from Option.Activate while holding the option's settlement path.
func (d *Deal) activate(buyerID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != DealUnassigned {
		return
	}
	d.state = DealActive
	d.buyerID = buyerID
}

// TryClose attempts to close an active Deal. Closing requires the buyer
// to be within interactRange of the seller; out of range the call fails
// without mutating state, and the caller is expected to retry.
func (d *Deal) TryClose(distance, interactRange float64) bool {
	if distance > interactRange {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != DealActive {
		return false
	}
	d.state = DealClosed
	return true
}

// InAuction reports whether the Deal is currently under an active auction.
func (d *Deal) InAuction() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inAuction
}

// SetInAuction flips the in-auction flag. Only the Registry's
// register/deregister paths may call this.
func (d *Deal) SetInAuction(v bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.inAuction = v
}
