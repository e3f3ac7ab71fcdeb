package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	SessionsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "training_sessions_created_total",
			Help: "Training sessions created, by initial status",
		},
		[]string{"status"},
	)

	SessionsCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "training_sessions_completed_total",
			Help: "Completion calls that persisted session metrics",
		},
	)

	// stage: strict | relaxed_difficulty | starved | assistant_fallback
	SelectionOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "training_question_selection_total",
			Help: "Question selection outcomes by widening stage",
		},
		[]string{"stage"},
	)

	LearnerModelDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "learner_model_request_duration_seconds",
			Help:    "Latency of adaptive learner model lookups",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"result"},
	)

	JobsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "training_jobs_processed_total",
			Help: "Background jobs processed by the worker",
		},
		[]string{"job", "result"},
	)

	NotificationConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "notification_ws_connections",
			Help: "Open notification websocket connections",
		},
	)
)

var initOnce sync.Once

func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			SessionsCreated,
			SessionsCompleted,
			SelectionOutcomes,
			LearnerModelDuration,
			JobsProcessed,
			NotificationConnections,
		)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
