package agent

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OpeningBidsTotal tracks first bids placed when entering an auction.
	OpeningBidsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "optionhouse_agent_opening_bids_total",
		Help: "Total number of opening bids placed by buyer agents",
	})

	// RebidsSubmittedTotal tracks rebids placed after an observation window.
	RebidsSubmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "optionhouse_agent_rebids_submitted_total",
		Help: "Total number of rebids submitted by buyer agents",
	})

	// RebidsSuppressedTotal tracks rebids abandoned because the proposed
	// bid exceeded the agent's valuation.
	RebidsSuppressedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "optionhouse_agent_rebids_suppressed_total",
		Help: "Total number of rebids suppressed by valuation",
	})

	// OutbidDropsTotal tracks outbid notifications dropped by full queues.
	OutbidDropsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "optionhouse_agent_outbid_drops_total",
		Help: "Total number of outbid notifications dropped",
	})

	// OffersAcceptedTotal tracks resolution offers accepted.
	OffersAcceptedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "optionhouse_agent_offers_accepted_total",
		Help: "Total number of resolution offers accepted",
	})

	// OffersDeclinedTotal tracks resolution offers declined.
	OffersDeclinedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "optionhouse_agent_offers_declined_total",
		Help: "Total number of resolution offers declined",
	})

	// OptionsExercisedTotal tracks options exchanged for their deals.
	OptionsExercisedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "optionhouse_agent_options_exercised_total",
		Help: "Total number of options exercised",
	})

	// DealsClosedTotal tracks deals closed in person.
	DealsClosedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "optionhouse_agent_deals_closed_total",
		Help: "Total number of deals closed",
	})

	// DealsMintedTotal tracks deals minted by seller heartbeats.
	DealsMintedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "optionhouse_agent_deals_minted_total",
		Help: "Total number of deals minted by sellers",
	})

	// DealsListedTotal tracks deals put up for auction.
	DealsListedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "optionhouse_agent_deals_listed_total",
		Help: "Total number of deals listed for auction",
	})
)
