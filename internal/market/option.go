package market

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Option is the right, not the obligation, to acquire a Deal for a fixed
// strike price within a set duration. The duration clock starts when the
// option is activated, which happens exactly once: at auction settlement.
type Option struct {
	ID       uuid.UUID
	Deal     *Deal
	Strike   float64
	Duration time.Duration

	mu          sync.Mutex
	activatedAt time.Time
	exchanged   bool
	inAuction   bool
}

// NewOption wraps a Deal in a fresh, not-yet-activated Option.
func NewOption(deal *Deal, strike float64, duration time.Duration) *Option {
	return &Option{
		ID:       uuid.New(),
		Deal:     deal,
		Strike:   strike,
		Duration: duration,
	}
}

// Activate starts the exchangeability clock and moves the underlying Deal
// to Active with the given buyer assigned. Called by the Registry as part
// of the settlement step; activation is idempotent after the first call.
func (o *Option) Activate(buyerID string, now time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.activatedAt.IsZero() {
		return
	}
	o.activatedAt = now
	o.Deal.activate(buyerID)
}

// Activated reports whether the option has been settled to a buyer.
func (o *Option) Activated() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return !o.activatedAt.IsZero()
}

// Exchangeable reports whether the option can still be exercised: it must
// be activated, unspent, and inside its duration window.
func (o *Option) Exchangeable(now time.Time) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.exchangeableLocked(now)
}

func (o *Option) exchangeableLocked(now time.Time) bool {
	if o.exchanged || o.activatedAt.IsZero() {
		return false
	}
	return now.Sub(o.activatedAt) < o.Duration
}

// TryExchange exercises the option: the buyer gives up the option and the
// strike price and receives the underlying Deal; the seller is credited
// with the strike. The exchange is one-shot and all-or-nothing; if the
// funds debit fails after the option has been taken from the buyer's
// inventory, the option is returned.
func (o *Option) TryExchange(buyer Buyer, seller Seller, now time.Time) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.exchanged {
		return ErrAlreadyExchanged
	}
	if !o.exchangeableLocked(now) {
		return ErrNotExchangeable
	}
	if seller == nil {
		return ErrSellerUnavailable
	}
	if !buyer.SubtractOption(o) {
		return ErrOptionNotHeld
	}
	if !buyer.SubtractMoney(o.Strike) {
		buyer.ReceiveOption(o)
		return ErrInsufficientFunds
	}

	buyer.ReceiveDeal(o.Deal)
	seller.ReceiveMoney(o.Strike)
	o.exchanged = true
	return nil
}

// Appraise values the option given a buyer's assessment of the underlying
// Deal: intrinsic margin over the strike, scaled by how long the right
// lasts (in seconds).
func (o *Option) Appraise(dealValue float64) float64 {
	return (dealValue - o.Strike) * o.Duration.Seconds()
}

// InAuction reports whether the Option is currently under an active auction.
func (o *Option) InAuction() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.inAuction
}

// SetInAuction flips the in-auction flag. Only the Registry's
// register/deregister paths may call this.
func (o *Option) SetInAuction(v bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.inAuction = v
}
