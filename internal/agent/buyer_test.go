package agent

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/optionhouse/optionhouse/internal/market"
	"github.com/optionhouse/optionhouse/internal/registry"
	"github.com/optionhouse/optionhouse/internal/testutil"
	"github.com/optionhouse/optionhouse/pkg/cache"
	"github.com/optionhouse/optionhouse/pkg/eventbus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNewBuyer(t *testing.T) {
	t.Parallel()

	logger := zaptest.NewLogger(t)
	bus := eventbus.New(&eventbus.Config{Logger: logger})
	defer bus.Close()
	reg, err := registry.New(&registry.Config{Logger: logger, Bus: bus})
	require.NoError(t, err)

	tests := []struct {
		name    string
		config  *BuyerConfig
		wantErr bool
	}{
		{
			name: "valid-config",
			config: &BuyerConfig{
				ID: "buyer-1", Funds: 100, Appetite: 2.0,
				Registry: reg, Bus: bus, Logger: logger,
			},
			wantErr: false,
		},
		{name: "nil-config", config: nil, wantErr: true},
		{
			name: "empty-id",
			config: &BuyerConfig{
				Funds: 100, Appetite: 2.0,
				Registry: reg, Bus: bus, Logger: logger,
			},
			wantErr: true,
		},
		{
			name: "missing-registry",
			config: &BuyerConfig{
				ID: "buyer-1", Funds: 100, Appetite: 2.0,
				Bus: bus, Logger: logger,
			},
			wantErr: true,
		},
		{
			name: "non-positive-appetite",
			config: &BuyerConfig{
				ID: "buyer-1", Funds: 100,
				Registry: reg, Bus: bus, Logger: logger,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := NewBuyer(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Same(t, b, reg.Buyer(b.ID()).(*Buyer),
				"creation must register the agent")
		})
	}
}

func TestBuyerFundsAndInventory(t *testing.T) {
	t.Parallel()

	b := newTestBuyer(t, 10, 2.0)

	assert.False(t, b.SubtractMoney(11))
	assert.InDelta(t, 10.0, b.Funds(), 1e-9)
	assert.True(t, b.SubtractMoney(4))
	assert.InDelta(t, 6.0, b.Funds(), 1e-9)
	b.ReceiveMoney(1)
	assert.InDelta(t, 7.0, b.Funds(), 1e-9)

	deal := market.NewDeal("seller-1", 2.0)
	opt := market.NewOption(deal, 1.0, 10*time.Second)

	assert.False(t, b.SubtractOption(opt))
	b.ReceiveOption(opt)
	assert.Len(t, b.Options(), 1)
	assert.True(t, b.SubtractOption(opt))
	assert.Empty(t, b.Options())

	b.ReceiveDeal(deal)
	assert.Len(t, b.Deals(), 1)
}

func TestNotifyOutbidNeverBlocks(t *testing.T) {
	t.Parallel()

	b := newTestBuyer(t, 100, 2.0)

	// Nothing drains the channel; the overflow must be dropped, not
	// block the auction's bid lock.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < outbidBuffer+10; i++ {
			b.NotifyOutbid(market.OutbidDetails{AuctionID: uuid.New(), LeadingBid: 1})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("NotifyOutbid blocked")
	}
}

func TestObserveBatchesPerAuction(t *testing.T) {
	t.Parallel()

	b := newTestBuyer(t, 100, 2.0)
	observations := make(map[uuid.UUID]*observation)

	first := uuid.New()
	second := uuid.New()

	b.observe(observations, market.OutbidDetails{AuctionID: first, LeadingBid: 5, Gap: 1, Remaining: 3 * time.Second})
	b.observe(observations, market.OutbidDetails{AuctionID: first, LeadingBid: 6, Gap: 2, Remaining: 3 * time.Second})
	b.observe(observations, market.OutbidDetails{AuctionID: second, LeadingBid: 2, Gap: 1, Remaining: 3 * time.Second})

	require.Len(t, observations, 2)
	assert.Len(t, observations[first].events, 2)
	assert.Len(t, observations[second].events, 1)
	// The window was sized from the first event and not re-opened.
	assert.Equal(t, 1500*time.Millisecond, observations[first].window)
}

func TestActOnObservationsRebids(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := zaptest.NewLogger(t)
	bus := eventbus.New(&eventbus.Config{Logger: logger})
	defer bus.Close()
	reg, err := registry.New(&registry.Config{Logger: logger, Bus: bus})
	require.NoError(t, err)

	seller := testutil.NewMockSeller("seller-1")
	reg.RegisterSeller(seller)
	rival := testutil.NewMockBuyer("rival", 100)
	reg.RegisterBuyer(rival)

	b, err := NewBuyer(&BuyerConfig{
		ID: "buyer-1", Funds: 100, Appetite: 10.0,
		Registry: reg, Bus: bus, Logger: logger,
	})
	require.NoError(t, err)

	opt := testutil.CreateTestOption(seller, 1.0, 10*time.Second)
	a, err := reg.CreateAuction(ctx, seller, opt, time.Hour)
	require.NoError(t, err)
	require.True(t, reg.PlaceBid(b, 4.0, a))
	require.True(t, reg.PlaceBid(rival, 5.0, a))

	// Close out an observation window holding the rival's outbid.
	observations := map[uuid.UUID]*observation{
		a.ID: {
			auctionID: a.ID,
			events:    []market.OutbidDetails{{AuctionID: a.ID, LeadingBid: 5, Gap: 1, Remaining: time.Hour}},
			window:    time.Second,
			due:       time.Now().Add(-time.Millisecond),
		},
	}
	b.actOnObservations(observations, time.Now())

	assert.Empty(t, observations, "a closed window is discarded")
	leading, ok := a.Leading()
	require.True(t, ok)
	assert.Equal(t, "buyer-1", leading.BuyerID)
	assert.Greater(t, leading.Amount, 5.0)
	// Damping keeps the raise within 5% of the leading bid.
	assert.LessOrEqual(t, leading.Amount, 5.0*1.05+1e-9)
}

func TestActOnObservationsSuppressedWhenPricedOut(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := zaptest.NewLogger(t)
	bus := eventbus.New(&eventbus.Config{Logger: logger})
	defer bus.Close()
	reg, err := registry.New(&registry.Config{Logger: logger, Bus: bus})
	require.NoError(t, err)

	seller := testutil.NewMockSeller("seller-1")
	reg.RegisterSeller(seller)
	rival := testutil.NewMockBuyer("rival", 1000)
	reg.RegisterBuyer(rival)

	// Low appetite: the option appraises well below any plausible rebid.
	b, err := NewBuyer(&BuyerConfig{
		ID: "buyer-1", Funds: 100, Appetite: 1.0,
		Registry: reg, Bus: bus, Logger: logger,
	})
	require.NoError(t, err)

	opt := testutil.CreateTestOption(seller, 1.0, 10*time.Second)
	a, err := reg.CreateAuction(ctx, seller, opt, time.Hour)
	require.NoError(t, err)
	require.True(t, reg.PlaceBid(rival, 50.0, a))

	before := b.appetiteNow()
	observations := map[uuid.UUID]*observation{
		a.ID: {
			auctionID: a.ID,
			events:    []market.OutbidDetails{{AuctionID: a.ID, LeadingBid: 50, Gap: 10, Remaining: time.Hour}},
			window:    time.Second,
			due:       time.Now().Add(-time.Millisecond),
		},
	}
	b.actOnObservations(observations, time.Now())

	// No bid was submitted, and the miss nudged the appetite upward.
	leading, ok := a.Leading()
	require.True(t, ok)
	assert.Equal(t, "rival", leading.BuyerID)
	assert.Greater(t, b.appetiteNow(), before)
}

func TestEnterAuctions(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := zaptest.NewLogger(t)
	bus := eventbus.New(&eventbus.Config{Logger: logger})
	defer bus.Close()
	reg, err := registry.New(&registry.Config{Logger: logger, Bus: bus})
	require.NoError(t, err)

	seller := testutil.NewMockSeller("seller-1")
	reg.RegisterSeller(seller)

	b, err := NewBuyer(&BuyerConfig{
		ID: "buyer-1", Funds: 100, Appetite: 10.0,
		Registry: reg, Bus: bus, Logger: logger,
	})
	require.NoError(t, err)

	cheap := testutil.CreateTestOption(seller, 1.0, 10*time.Second)
	a, err := reg.CreateAuction(ctx, seller, cheap, time.Hour)
	require.NoError(t, err)

	// Appraising above the strike, the agent opens the bidding.
	b.enterAuctions()
	opening, ok := a.BidOf("buyer-1")
	require.True(t, ok)
	assert.Positive(t, opening)
	assert.LessOrEqual(t, opening, cheap.Strike)

	// A second pass does not touch the standing bid.
	b.enterAuctions()
	again, ok := a.BidOf("buyer-1")
	require.True(t, ok)
	assert.InDelta(t, opening, again, 1e-9)

	// A worthless option is left alone.
	dear := testutil.CreateTestOption(seller, 50.0, 10*time.Second)
	worthless, err := reg.CreateAuction(ctx, seller, dear, time.Hour)
	require.NoError(t, err)

	b.enterAuctions()
	_, ok = worthless.BidOf("buyer-1")
	assert.False(t, ok)
}

func TestEnterAuctionsOvertakesLeader(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := zaptest.NewLogger(t)
	bus := eventbus.New(&eventbus.Config{Logger: logger})
	defer bus.Close()
	reg, err := registry.New(&registry.Config{Logger: logger, Bus: bus})
	require.NoError(t, err)

	seller := testutil.NewMockSeller("seller-1")
	reg.RegisterSeller(seller)
	rival := testutil.NewMockBuyer("rival", 100)
	reg.RegisterBuyer(rival)

	b, err := NewBuyer(&BuyerConfig{
		ID: "buyer-1", Funds: 100, Appetite: 10.0,
		Registry: reg, Bus: bus, Logger: logger,
	})
	require.NoError(t, err)

	opt := testutil.CreateTestOption(seller, 1.0, 10*time.Second)
	a, err := reg.CreateAuction(ctx, seller, opt, time.Hour)
	require.NoError(t, err)
	require.True(t, reg.PlaceBid(rival, 2.0, a))

	b.enterAuctions()

	leading, ok := a.Leading()
	require.True(t, ok)
	assert.Equal(t, "buyer-1", leading.BuyerID)
	assert.Greater(t, leading.Amount, 2.0)
	assert.LessOrEqual(t, leading.Amount, 2.0*1.05+1e-9)
	require.Len(t, rival.Outbids(), 1)
}

func TestEnterAuctionsSuspendedByBreaker(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := zaptest.NewLogger(t)
	bus := eventbus.New(&eventbus.Config{Logger: logger})
	defer bus.Close()
	reg, err := registry.New(&registry.Config{Logger: logger, Bus: bus})
	require.NoError(t, err)

	seller := testutil.NewMockSeller("seller-1")
	reg.RegisterSeller(seller)

	b, err := NewBuyer(&BuyerConfig{
		ID: "buyer-1", Funds: 100, Appetite: 10.0,
		Registry: reg, Bus: bus, Logger: logger,
	})
	require.NoError(t, err)

	opt := testutil.CreateTestOption(seller, 1.0, 10*time.Second)
	a, err := reg.CreateAuction(ctx, seller, opt, time.Hour)
	require.NoError(t, err)

	// Drain the funds under the breaker floor (5% of 100).
	require.True(t, b.SubtractMoney(98))
	b.breaker.Observe(b.Funds())
	require.False(t, b.breaker.IsEnabled())

	b.enterAuctions()
	_, ok := a.BidOf("buyer-1")
	assert.False(t, ok, "a tripped breaker blocks auction entry")

	// Money comes back; the breaker resets and bidding resumes.
	b.ReceiveMoney(50)
	b.breaker.Observe(b.Funds())
	require.True(t, b.breaker.IsEnabled())

	b.enterAuctions()
	_, ok = a.BidOf("buyer-1")
	assert.True(t, ok)
}

func TestAppraiseSeesAppetiteChangeImmediately(t *testing.T) {
	t.Parallel()

	logger := zaptest.NewLogger(t)
	bus := eventbus.New(&eventbus.Config{Logger: logger})
	defer bus.Close()
	reg, err := registry.New(&registry.Config{Logger: logger, Bus: bus})
	require.NoError(t, err)

	c, err := cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: 1000,
		MaxCost:     100,
		BufferItems: 64,
		Logger:      logger,
	})
	require.NoError(t, err)
	defer c.Close()

	b, err := NewBuyer(&BuyerConfig{
		ID: "buyer-1", Funds: 100, Appetite: 2.0,
		Registry: reg, Bus: bus, Logger: logger, Cache: c,
	})
	require.NoError(t, err)

	deal := market.NewDeal("seller-1", 2.0)
	opt := market.NewOption(deal, 1.0, 10*time.Second)

	// Prime the cache at the current appetite and make the write visible.
	assert.InDelta(t, 10.0, b.appraise(opt), 1e-9)
	c.(*cache.RistrettoCache).Wait()

	b.mu.Lock()
	b.appetite = 3.0
	b.mu.Unlock()

	// The new appetite is reflected right away, not after the TTL.
	assert.InDelta(t, 20.0, b.appraise(opt), 1e-9)
}

func TestExerciseOptions(t *testing.T) {
	t.Parallel()

	b := newTestBuyer(t, 100, 5.0)
	seller := testutil.NewMockSeller("seller-1")
	b.registry.RegisterSeller(seller)

	deal := market.NewDeal("seller-1", 2.0)
	opt := market.NewOption(deal, 1.0, 10*time.Second)
	opt.Activate(b.ID(), time.Now())
	b.ReceiveOption(opt)

	b.exerciseOptions()

	assert.Empty(t, b.Options())
	require.Len(t, b.Deals(), 1)
	assert.InDelta(t, 99.0, b.Funds(), 1e-9)
	assert.InDelta(t, 1.0, seller.Revenue(), 1e-9)
}

func TestExerciseSkipsWorthlessOptions(t *testing.T) {
	t.Parallel()

	// Appetite below the strike: exercising would lose money.
	b := newTestBuyer(t, 100, 1.0)

	deal := market.NewDeal("seller-1", 2.0)
	opt := market.NewOption(deal, 3.0, 10*time.Second)
	opt.Activate(b.ID(), time.Now())
	b.ReceiveOption(opt)

	b.exerciseOptions()

	assert.Len(t, b.Options(), 1)
	assert.InDelta(t, 100.0, b.Funds(), 1e-9)
}

func TestCloseDealsRequiresProximity(t *testing.T) {
	t.Parallel()

	logger := zaptest.NewLogger(t)
	bus := eventbus.New(&eventbus.Config{Logger: logger})
	defer bus.Close()
	reg, err := registry.New(&registry.Config{Logger: logger, Bus: bus})
	require.NoError(t, err)

	seller := testutil.NewMockSeller("seller-1")
	seller.Pos = market.Position{X: 10, Y: 0}
	reg.RegisterSeller(seller)

	b, err := NewBuyer(&BuyerConfig{
		ID: "buyer-1", Funds: 100, Appetite: 2.0,
		InteractRange: 2.0,
		Registry:      reg, Bus: bus, Logger: logger,
	})
	require.NoError(t, err)

	deal := market.NewDeal("seller-1", 2.0)
	opt := market.NewOption(deal, 1.0, 10*time.Second)
	opt.Activate(b.ID(), time.Now())
	b.ReceiveDeal(deal)

	// Ten units away with a range of two: the close fails and the deal
	// stays on the book for a retry.
	b.closeDeals()
	assert.Equal(t, market.DealActive, deal.State())
	assert.Len(t, b.Deals(), 1)

	// Seller moves into range.
	seller.Pos = market.Position{X: 1, Y: 0}
	b.closeDeals()
	assert.Equal(t, market.DealClosed, deal.State())
	assert.Empty(t, b.Deals())
}

func TestBuyerRunStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	b := newTestBuyer(t, 100, 2.0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("agent did not stop")
	}
}
