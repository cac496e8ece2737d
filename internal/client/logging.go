package client

import (
	"errors"
	"time"
)

// maxBodyLogLen is the maximum length for logged response bodies before truncation.
const maxBodyLogLen = 200

// slowRequestThreshold is the duration above which requests are logged at WARN level.
const slowRequestThreshold = time.Second

// observe logs a finished request with timing and records it in the collector.
// Slow requests (>1s) are logged at WARN level.
func (c *Client) observe(op, method, path, reqID string, duration time.Duration, err error) {
	c.metrics.RecordTiming(op, duration, err)

	attrs := []any{
		"op", op,
		"method", method,
		"path", path,
		"request_id", reqID,
		"duration_ms", duration.Milliseconds(),
	}

	switch {
	case errors.Is(err, ErrNotFound):
		c.logger.Debug("request found nothing", attrs...)
	case err != nil:
		attrs = append(attrs, "error", err.Error())
		c.logger.Error("request failed", attrs...)
	case duration > slowRequestThreshold:
		c.logger.Warn("slow request", attrs...)
	default:
		c.logger.Debug("request completed", attrs...)
	}
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen < 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
