package testutil

import (
	"context"
	"sync"

	"github.com/optionhouse/optionhouse/internal/market"
)

// MockBuyer is a scriptable market.Buyer for registry and market tests.
// Offer verdicts come from DecideOffer; when nil the buyer stays silent
// and lets the offer time out.
type MockBuyer struct {
	BuyerID  string
	Pos      market.Position
	Funds    float64
	Interact float64

	// DecideOffer, when set, is invoked once per received offer and its
	// result sent on the decision channel.
	DecideOffer func(offer *market.Offer) bool

	mu       sync.Mutex
	options  []*market.Option
	deals    []*market.Deal
	outbids  []market.OutbidDetails
	offers   []*market.Offer
	received float64
}

// NewMockBuyer creates a mock buyer with the given ID and funds.
func NewMockBuyer(id string, funds float64) *MockBuyer {
	return &MockBuyer{BuyerID: id, Funds: funds}
}

func (m *MockBuyer) ID() string                { return m.BuyerID }
func (m *MockBuyer) Position() market.Position { return m.Pos }

func (m *MockBuyer) SubtractMoney(amount float64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if amount > m.Funds {
		return false
	}
	m.Funds -= amount
	return true
}

func (m *MockBuyer) ReceiveMoney(amount float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Funds += amount
	m.received += amount
}

func (m *MockBuyer) SubtractOption(opt *market.Option) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, held := range m.options {
		if held == opt {
			m.options = append(m.options[:i], m.options[i+1:]...)
			return true
		}
	}
	return false
}

func (m *MockBuyer) ReceiveOption(opt *market.Option) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.options = append(m.options, opt)
}

func (m *MockBuyer) ReceiveDeal(deal *market.Deal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deals = append(m.deals, deal)
}

func (m *MockBuyer) NotifyOutbid(details market.OutbidDetails) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outbids = append(m.outbids, details)
}

func (m *MockBuyer) ReceiveOffer(ctx context.Context, offer *market.Offer) <-chan bool {
	m.mu.Lock()
	m.offers = append(m.offers, offer)
	decide := m.DecideOffer
	m.mu.Unlock()

	decision := make(chan bool, 1)
	if decide != nil {
		decision <- decide(offer)
	}
	return decision
}

// Options returns a snapshot of the buyer's option inventory.
func (m *MockBuyer) Options() []*market.Option {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*market.Option, len(m.options))
	copy(out, m.options)
	return out
}

// Deals returns a snapshot of the buyer's deal inventory.
func (m *MockBuyer) Deals() []*market.Deal {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*market.Deal, len(m.deals))
	copy(out, m.deals)
	return out
}

// Outbids returns the outbid notifications received, in delivery order.
func (m *MockBuyer) Outbids() []market.OutbidDetails {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]market.OutbidDetails, len(m.outbids))
	copy(out, m.outbids)
	return out
}

// Offers returns the offers received, in delivery order.
func (m *MockBuyer) Offers() []*market.Offer {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*market.Offer, len(m.offers))
	copy(out, m.offers)
	return out
}

// Balance returns the buyer's current funds.
func (m *MockBuyer) Balance() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Funds
}

// Refunded returns the total credited back through ReceiveMoney.
func (m *MockBuyer) Refunded() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.received
}

// MockSeller is a scriptable market.Seller. It owns whatever deals are
// handed to it via AddDeal and relinquishes them through SubtractDeal.
type MockSeller struct {
	SellerID string
	Pos      market.Position

	// FailSubtractDeal forces SubtractDeal to report a missing deal,
	// exercising the settlement compensation path.
	FailSubtractDeal bool

	mu      sync.Mutex
	deals   map[*market.Deal]struct{}
	revenue float64
}

// NewMockSeller creates a mock seller with an empty book.
func NewMockSeller(id string) *MockSeller {
	return &MockSeller{SellerID: id, deals: make(map[*market.Deal]struct{})}
}

func (m *MockSeller) ID() string                { return m.SellerID }
func (m *MockSeller) Position() market.Position { return m.Pos }

// AddDeal puts a deal on the seller's book.
func (m *MockSeller) AddDeal(deal *market.Deal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deals[deal] = struct{}{}
}

func (m *MockSeller) SubtractDeal(deal *market.Deal) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSubtractDeal {
		return false
	}
	if _, ok := m.deals[deal]; !ok {
		return false
	}
	delete(m.deals, deal)
	return true
}

func (m *MockSeller) ReceiveMoney(amount float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revenue += amount
}

// Revenue returns the total premiums collected.
func (m *MockSeller) Revenue() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.revenue
}
