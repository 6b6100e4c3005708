package testutil

import (
	"time"

	"github.com/optionhouse/optionhouse/internal/market"
)

// CreateTestDeal creates an unassigned deal owned by the seller and
// placed on its book.
func CreateTestDeal(seller *MockSeller, expected float64) *market.Deal {
	deal := market.NewDeal(seller.ID(), expected)
	seller.AddDeal(deal)
	return deal
}

// CreateTestOption wraps a fresh deal from the seller in an option.
func CreateTestOption(seller *MockSeller, strike float64, duration time.Duration) *market.Option {
	deal := CreateTestDeal(seller, strike*2)
	return market.NewOption(deal, strike, duration)
}
