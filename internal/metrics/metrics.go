package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	WsConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_ws_connections",
		Help: "Current number of active websocket connections",
	})
	MessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_messages_total",
		Help: "Total number of chat messages persisted, by type",
	}, []string{"type"})
	BroadcastDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_broadcast_dropped_total",
		Help: "Subscribers dropped from a room because their send queue was full",
	})
	PollVotesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_poll_votes_total",
		Help: "Total number of accepted poll votes",
	})
	ProtocolErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_protocol_errors_total",
		Help: "Errors reported to clients, by kind",
	}, []string{"kind"})
	HttpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
	HttpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
)

func init() {
	prometheus.MustRegister(
		WsConnections,
		MessagesTotal,
		BroadcastDropped,
		PollVotesTotal,
		ProtocolErrors,
		HttpRequestsTotal,
		HttpRequestDuration,
	)
}

// GinMiddleware 统计基础请求指标，供 Prometheus 拉取。
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		labels := prometheus.Labels{"method": c.Request.Method, "path": path, "status": status}
		HttpRequestsTotal.With(labels).Inc()
		HttpRequestDuration.With(labels).Observe(time.Since(start).Seconds())
	}
}

// Handler 暴露 /metrics。
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
