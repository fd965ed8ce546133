package media

import "github.com/prometheus/client_golang/prometheus"

// Collectors are registered with the default registry, so serving
// promhttp.Handler() is enough to expose them.
var (
	batchesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "niabis_photo_batches_total",
		Help: "Photo ingestion batches started.",
	})

	itemsResolvedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "niabis_photo_items_resolved_total",
		Help: "Picked photos resolved into embedded payloads.",
	})

	itemsFailedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "niabis_photo_items_failed_total",
		Help: "Picked photos skipped, by failure reason.",
	}, []string{"reason"})

	batchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "niabis_photo_batch_duration_seconds",
		Help:    "Wall time from batch start until every item finished.",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(
		batchesTotal,
		itemsResolvedTotal,
		itemsFailedTotal,
		batchDuration,
	)
}

// ItemsFailed returns the failure counter for reason. Exposed for tests and
// dashboards that want a single series.
func ItemsFailed(reason string) prometheus.Counter {
	return itemsFailedTotal.WithLabelValues(reason)
}
