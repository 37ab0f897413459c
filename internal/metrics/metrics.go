package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OrdersTotal counts accepted orders by pair and kind.
	OrdersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_orders_total",
			Help: "Total number of orders accepted by pair and kind",
		},
		[]string{"pair", "kind"},
	)

	// OrdersRejectedTotal counts orders refused before reaching a book.
	OrdersRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_orders_rejected_total",
			Help: "Total number of rejected orders by reason",
		},
		[]string{"reason"},
	)

	// CancelsTotal counts successful cancellations.
	CancelsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_cancels_total",
			Help: "Total number of cancelled orders by pair",
		},
		[]string{"pair"},
	)

	// FillsTotal counts executed fills.
	FillsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_fills_total",
			Help: "Total number of fills by pair",
		},
		[]string{"pair"},
	)

	// FilledVolume accumulates matched quantity. Approximate: decimal
	// quantities are converted to float64.
	FilledVolume = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_filled_volume",
			Help: "Total matched quantity by pair",
		},
		[]string{"pair"},
	)

	// BookLevels tracks the number of distinct resting prices.
	BookLevels = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "matching_book_levels",
			Help: "Current number of price levels by pair and side",
		},
		[]string{"pair", "side"},
	)

	// SequencerQueueDepth tracks commands waiting per market lane.
	SequencerQueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "matching_sequencer_queue_depth",
			Help: "Commands waiting in a market's sequencer lane",
		},
		[]string{"pair"},
	)

	// PlacementDuration tracks time spent inside a book per placement.
	PlacementDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "matching_placement_duration_seconds",
			Help:    "Order placement latency in seconds",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		},
		[]string{"pair", "kind"},
	)
)
