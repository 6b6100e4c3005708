package registry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuctionsOpenedTotal tracks auctions opened for bidding.
	AuctionsOpenedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "optionhouse_auctions_opened_total",
		Help: "Total number of auctions opened",
	})

	// AuctionsResolvedTotal tracks terminal auction outcomes by kind.
	AuctionsResolvedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "optionhouse_auctions_resolved_total",
			Help: "Total number of auctions reaching a terminal outcome",
		},
		[]string{"outcome"},
	)

	// BidsPlacedTotal tracks accepted bids.
	BidsPlacedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "optionhouse_bids_placed_total",
		Help: "Total number of accepted bids",
	})

	// BidsRejectedTotal tracks rejected bids by reason.
	BidsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "optionhouse_bids_rejected_total",
			Help: "Total number of rejected bids",
		},
		[]string{"reason"},
	)

	// OutbidNotificationsTotal tracks outbid notifications fanned out.
	OutbidNotificationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "optionhouse_outbid_notifications_total",
		Help: "Total number of outbid notifications delivered",
	})

	// OffersExtendedTotal tracks waterfall offers presented to candidates.
	OffersExtendedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "optionhouse_offers_extended_total",
		Help: "Total number of resolution offers extended",
	})

	// TradesSettledTotal tracks completed ownership transfers.
	TradesSettledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "optionhouse_trades_settled_total",
		Help: "Total number of settled trades",
	})

	// SettlementFailuresTotal tracks aborted transfers by reason.
	SettlementFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "optionhouse_settlement_failures_total",
			Help: "Total number of settlement attempts aborted",
		},
		[]string{"reason"},
	)

	// WinningPremium tracks settled premiums.
	WinningPremium = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "optionhouse_winning_premium",
		Help:    "Premium of settled trades",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})

	// ResolutionDurationSeconds tracks window-close to terminal-outcome latency.
	ResolutionDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "optionhouse_resolution_duration_seconds",
		Help:    "Duration of auction resolution",
		Buckets: prometheus.DefBuckets,
	})
)
