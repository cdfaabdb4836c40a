package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PredictionsClassified = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "student_performance_predictions_classified_total",
		Help: "Total number of classifications, by result.",
	}, []string{"result"})
	PredictionsStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "student_performance_predictions_stored_total",
		Help: "Total number of predictions persisted.",
	})
	PredictionsNotStored = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "student_performance_predictions_not_stored_total",
		Help: "Classifications that were not persisted, by reason.",
	}, []string{"reason"})
	HistoryCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "student_performance_history_cache_hits_total",
		Help: "Recent history reads served from cache.",
	})
	HistoryCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "student_performance_history_cache_misses_total",
		Help: "Recent history reads that went to the store.",
	})
)

// Handler exposes the default registry in the Prometheus text format.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
