package echoapi

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	requestsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jamii",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Number of HTTP requests, labeled by method, route and status code.",
	}, []string{"method", "route", "code"})

	requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "jamii",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Time spent serving HTTP requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
)

func init() {
	prometheus.MustRegister(requestsCounter, requestDuration)
}

func metricsMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		start := time.Now()
		err := next(ctx)
		if err != nil {
			ctx.Error(err) // commit the response so that its status is known
		}

		route := ctx.Path()
		if route == "" {
			route = "unmatched"
		}
		method := ctx.Request().Method
		requestsCounter.WithLabelValues(method, route, strconv.Itoa(ctx.Response().Status)).Inc()
		requestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		return nil
	}
}
