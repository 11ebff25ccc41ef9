package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var itemsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ingest_items_total",
		Help: "Total number of review items ingested by source and outcome",
	},
	[]string{"source", "outcome"},
)

const (
	outcomePersisted = "persisted"
	outcomeFailed    = "failed"
)
