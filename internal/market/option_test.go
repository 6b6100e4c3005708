package market_test

import (
	"testing"
	"time"

	"github.com/optionhouse/optionhouse/internal/market"
	"github.com/optionhouse/optionhouse/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionExchangeability(t *testing.T) {
	t.Parallel()

	now := time.Now()
	deal := market.NewDeal("seller-1", 1.5)
	opt := market.NewOption(deal, 1.0, 10*time.Second)

	// Before activation the duration clock has not started.
	assert.False(t, opt.Activated())
	assert.False(t, opt.Exchangeable(now))

	opt.Activate("buyer-1", now)
	assert.True(t, opt.Activated())
	assert.True(t, opt.Exchangeable(now))
	assert.True(t, opt.Exchangeable(now.Add(9*time.Second)))

	// The window is half-open: exactly at the duration the option is spent.
	assert.False(t, opt.Exchangeable(now.Add(10*time.Second)))
	assert.False(t, opt.Exchangeable(now.Add(time.Minute)))
}

func TestOptionTryExchange(t *testing.T) {
	t.Parallel()

	now := time.Now()

	t.Run("happy-path", func(t *testing.T) {
		t.Parallel()

		deal := market.NewDeal("seller-1", 1.5)
		opt := market.NewOption(deal, 1.0, 10*time.Second)
		opt.Activate("buyer-1", now)

		buyer := testutil.NewMockBuyer("buyer-1", 5.0)
		buyer.ReceiveOption(opt)
		seller := testutil.NewMockSeller("seller-1")

		require.NoError(t, opt.TryExchange(buyer, seller, now))
		assert.InDelta(t, 4.0, buyer.Balance(), 1e-9)
		// The strike moves, never vanishes.
		assert.InDelta(t, 1.0, seller.Revenue(), 1e-9)
		assert.Empty(t, buyer.Options())
		require.Len(t, buyer.Deals(), 1)
		assert.Same(t, deal, buyer.Deals()[0])
	})

	t.Run("second-exchange-fails", func(t *testing.T) {
		t.Parallel()

		deal := market.NewDeal("seller-1", 1.5)
		opt := market.NewOption(deal, 1.0, 10*time.Second)
		opt.Activate("buyer-1", now)

		buyer := testutil.NewMockBuyer("buyer-1", 5.0)
		buyer.ReceiveOption(opt)
		seller := testutil.NewMockSeller("seller-1")

		require.NoError(t, opt.TryExchange(buyer, seller, now))
		assert.ErrorIs(t, opt.TryExchange(buyer, seller, now), market.ErrAlreadyExchanged)
		// Funds debited, and the seller credited, exactly once.
		assert.InDelta(t, 4.0, buyer.Balance(), 1e-9)
		assert.InDelta(t, 1.0, seller.Revenue(), 1e-9)
	})

	t.Run("expired-window", func(t *testing.T) {
		t.Parallel()

		deal := market.NewDeal("seller-1", 1.5)
		opt := market.NewOption(deal, 1.0, 10*time.Second)
		opt.Activate("buyer-1", now)

		buyer := testutil.NewMockBuyer("buyer-1", 5.0)
		buyer.ReceiveOption(opt)

		err := opt.TryExchange(buyer, testutil.NewMockSeller("seller-1"), now.Add(11*time.Second))
		assert.ErrorIs(t, err, market.ErrNotExchangeable)
		assert.InDelta(t, 5.0, buyer.Balance(), 1e-9)
		assert.Len(t, buyer.Options(), 1)
	})

	t.Run("not-activated", func(t *testing.T) {
		t.Parallel()

		deal := market.NewDeal("seller-1", 1.5)
		opt := market.NewOption(deal, 1.0, 10*time.Second)

		buyer := testutil.NewMockBuyer("buyer-1", 5.0)
		buyer.ReceiveOption(opt)

		assert.ErrorIs(t, opt.TryExchange(buyer, testutil.NewMockSeller("seller-1"), now), market.ErrNotExchangeable)
	})

	t.Run("no-seller", func(t *testing.T) {
		t.Parallel()

		deal := market.NewDeal("seller-1", 1.5)
		opt := market.NewOption(deal, 1.0, 10*time.Second)
		opt.Activate("buyer-1", now)

		buyer := testutil.NewMockBuyer("buyer-1", 5.0)
		buyer.ReceiveOption(opt)

		assert.ErrorIs(t, opt.TryExchange(buyer, nil, now), market.ErrSellerUnavailable)
		assert.InDelta(t, 5.0, buyer.Balance(), 1e-9)
		assert.Len(t, buyer.Options(), 1)
	})

	t.Run("option-not-held", func(t *testing.T) {
		t.Parallel()

		deal := market.NewDeal("seller-1", 1.5)
		opt := market.NewOption(deal, 1.0, 10*time.Second)
		opt.Activate("buyer-1", now)

		buyer := testutil.NewMockBuyer("buyer-1", 5.0)

		assert.ErrorIs(t, opt.TryExchange(buyer, testutil.NewMockSeller("seller-1"), now), market.ErrOptionNotHeld)
		assert.InDelta(t, 5.0, buyer.Balance(), 1e-9)
	})

	t.Run("insufficient-funds-returns-option", func(t *testing.T) {
		t.Parallel()

		deal := market.NewDeal("seller-1", 1.5)
		opt := market.NewOption(deal, 1.0, 10*time.Second)
		opt.Activate("buyer-1", now)

		buyer := testutil.NewMockBuyer("buyer-1", 0.5)
		buyer.ReceiveOption(opt)
		seller := testutil.NewMockSeller("seller-1")

		assert.ErrorIs(t, opt.TryExchange(buyer, seller, now), market.ErrInsufficientFunds)
		// Compensation puts the option back; the exchange remains open.
		assert.Len(t, buyer.Options(), 1)
		assert.InDelta(t, 0.5, buyer.Balance(), 1e-9)
		assert.InDelta(t, 0.0, seller.Revenue(), 1e-9)
		assert.True(t, opt.Exchangeable(now))
	})
}

func TestOptionAppraise(t *testing.T) {
	t.Parallel()

	deal := market.NewDeal("seller-1", 1.5)
	opt := market.NewOption(deal, 1.0, 10*time.Second)

	// (value - strike) scaled by seconds of exchangeability.
	assert.InDelta(t, 5.0, opt.Appraise(1.5), 1e-9)
	assert.InDelta(t, -10.0, opt.Appraise(0.0), 1e-9)
	assert.Zero(t, opt.Appraise(1.0))
}

func TestOfferAppraise(t *testing.T) {
	t.Parallel()

	deal := market.NewDeal("seller-1", 1.5)
	opt := market.NewOption(deal, 1.0, 10*time.Second)
	offer := &market.Offer{Option: opt, RecipientID: "buyer-1", Premium: 3.0}

	assert.InDelta(t, 2.0, offer.Appraise(1.5), 1e-9)
	assert.InDelta(t, -3.0, offer.Appraise(1.0), 1e-9)
}
