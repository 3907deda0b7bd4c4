package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/open-builders/guild-bot/internal/common/logger"
	"github.com/open-builders/guild-bot/internal/metrics"
)

// Logger writes one structured line per request. Probe endpoints in skip are
// not logged.
func Logger(skip ...string) gin.HandlerFunc {
	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipped[p] = struct{}{}
	}

	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery
		if raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		if _, ok := skipped[c.Request.URL.Path]; ok {
			return
		}
		logger.Info().
			Str("request_id", getRequestID(c)).
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Str("user_agent", c.Request.UserAgent()).
			Int("body_size", c.Writer.Size()).
			Msg("Request processed")
	}
}

// Metrics records request counts and latencies labelled by route template.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		metrics.Inc(metrics.HTTPRequestTotal, route, status)
		metrics.Observe(metrics.HTTPRequestDurationSeconds, time.Since(start).Seconds(), route, status)
	}
}
