package application

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	offersCreatedCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "swapd",
		Name:      "offers_created_total",
		Help:      "Number of swap offers created.",
	})
	offersCanceledCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "swapd",
		Name:      "offers_canceled_total",
		Help:      "Number of swap offers canceled.",
	})
	fillsExecutedCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "swapd",
		Name:      "fills_executed_total",
		Help:      "Number of fills settled.",
	})
	settlementFailuresCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "swapd",
		Name:      "settlement_failures_total",
		Help:      "Number of takes aborted by a ledger transfer failure.",
	})
)
