package ledger

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/optionhouse/optionhouse/pkg/eventbus"
	"go.uber.org/zap"
)

// Recorder subscribes to the event bus and persists every settled trade.
// It is a read-only collaborator: a storage failure is logged and the
// engine never notices.
type Recorder struct {
	storage Storage
	logger  *zap.Logger
	events  <-chan eventbus.Event
	done    chan struct{}
	started atomic.Bool
}

// NewRecorder creates a recorder consuming the given bus.
func NewRecorder(bus *eventbus.Bus, storage Storage, logger *zap.Logger) *Recorder {
	return &Recorder{
		storage: storage,
		logger:  logger,
		events:  bus.Subscribe(),
		done:    make(chan struct{}),
	}
}

// Start launches the recording loop. Subsequent calls are no-ops.
func (r *Recorder) Start(ctx context.Context) {
	if !r.started.CompareAndSwap(false, true) {
		return
	}
	go r.loop(ctx)
}

func (r *Recorder) loop(ctx context.Context) {
	defer close(r.done)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-r.events:
			if !ok {
				return
			}
			if ev.Type != eventbus.TradeSettled {
				continue
			}
			r.record(ctx, ev)
		}
	}
}

func (r *Recorder) record(ctx context.Context, ev eventbus.Event) {
	trade := &TradeRecord{
		ID:        uuid.New(),
		AuctionID: ev.AuctionID,
		OptionID:  ev.OptionID,
		DealID:    ev.DealID,
		SellerID:  ev.SellerID,
		BuyerID:   ev.BuyerID,
		Premium:   ev.Amount,
		SettledAt: ev.At,
	}

	err := r.storage.StoreTrade(ctx, trade)
	if err != nil {
		r.logger.Error("failed-to-store-trade",
			zap.String("auction-id", ev.AuctionID.String()),
			zap.Error(err))
	}
}

// Wait blocks until the recording loop has drained and exited. A
// recorder that was never started returns immediately.
func (r *Recorder) Wait() {
	if !r.started.Load() {
		return
	}
	<-r.done
}
