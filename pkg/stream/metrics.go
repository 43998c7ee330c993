package stream

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ElementsDelivered tracks elements handed to stream readers
	ElementsDelivered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pagestream_elements_delivered_total",
			Help: "Total number of elements returned by streams",
		},
	)

	// BatchesEmitted tracks folded batches handed to readers
	BatchesEmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pagestream_batches_total",
			Help: "Total number of batches returned by batch iterators",
		},
	)
)
