package main

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leafwise_http_requests_total",
			Help: "Requests handled, by method, route and status.",
		},
		[]string{"method", "path", "status"},
	)
	requestLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leafwise_http_request_duration_seconds",
			Help:    "Request latency, by method and route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
	trainingActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "leafwise_training_active",
			Help: "1 while a training job is in progress.",
		},
	)
)

// measureRequests records count and latency per route. Route patterns,
// not raw URLs, keep the cardinality bounded.
func measureRequests(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		begin := time.Now()
		err := next(c)

		status := c.Response().Status
		if err != nil {
			if httpErr, ok := err.(*echo.HTTPError); ok {
				status = httpErr.Code
			}
		}
		path := c.Path()
		requestCount.WithLabelValues(c.Request().Method, path, strconv.Itoa(status)).Inc()
		requestLatency.WithLabelValues(c.Request().Method, path).Observe(time.Since(begin).Seconds())
		return err
	}
}
