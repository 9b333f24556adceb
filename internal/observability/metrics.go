package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "animechat_http_requests_total",
			Help: "Total number of HTTP requests processed by the service.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "animechat_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	wsActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "animechat_ws_active_connections",
			Help: "Number of active websocket connections.",
		},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "animechat_ws_events_total",
			Help: "Total number of inbound websocket events.",
		},
		[]string{"event"},
	)
	matchesFormedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "animechat_matches_formed_total",
			Help: "Total number of 1:1 matches formed, by compatibility band.",
		},
		[]string{"band"},
	)
	matchingQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "animechat_matching_queue_depth",
			Help: "Number of users currently waiting in the matching queue.",
		},
	)
	roomMembersGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "animechat_room_members",
			Help: "Live member count per episode room.",
		},
		[]string{"room_id"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "animechat_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		wsActiveConnections,
		wsEventsTotal,
		matchesFormedTotal,
		matchingQueueDepth,
		roomMembersGauge,
		amqpPublishErrorsTotal,
	)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func IncWSActive() {
	wsActiveConnections.Inc()
}

func DecWSActive() {
	wsActiveConnections.Dec()
}

func IncWSEvent(event string) {
	wsEventsTotal.WithLabelValues(event).Inc()
}

func IncMatchFormed(band string) {
	matchesFormedTotal.WithLabelValues(band).Inc()
}

func SetQueueDepth(depth int) {
	matchingQueueDepth.Set(float64(depth))
}

// SetRoomMembers keeps the per-room gauge in sync with the live member
// count. Empty rooms drop their label so the series set stays bounded.
func SetRoomMembers(roomID string, count int) {
	if count <= 0 {
		roomMembersGauge.DeleteLabelValues(roomID)
		return
	}
	roomMembersGauge.WithLabelValues(roomID).Set(float64(count))
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
