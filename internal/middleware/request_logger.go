package middleware

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mantonx/shelfsync/internal/logger"
)

// maxLoggedBody caps how much of a request body is echoed into debug logs.
const maxLoggedBody = 2048

// routeOf returns the matched route template, so /api/media/12 and
// /api/media/13 log the same route.
func routeOf(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unmatched"
}

// peekJSONBody returns up to maxLoggedBody bytes of a JSON body and leaves
// the full body readable for handlers.
func peekJSONBody(c *gin.Context) string {
	if c.Request.Body == nil || !strings.HasPrefix(c.ContentType(), "application/json") {
		return ""
	}
	head, _ := io.ReadAll(io.LimitReader(c.Request.Body, maxLoggedBody))
	c.Request.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(head), c.Request.Body), c.Request.Body}
	return string(head)
}

// RequestLogger logs each request with its route template. Server errors
// are logged at warn, everything else at debug.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/api/health" {
			c.Next()
			return
		}

		start := time.Now()
		body := peekJSONBody(c)

		c.Next()

		args := []interface{}{
			"request_id", GetRequestID(c),
			"method", c.Request.Method,
			"route", routeOf(c),
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).String(),
			"size", c.Writer.Size(),
		}
		if c.Request.URL.RawQuery != "" {
			args = append(args, "query", c.Request.URL.RawQuery)
		}
		if body != "" {
			args = append(args, "body", body)
		}

		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Warn("request failed", args...)
			return
		}
		logger.Debug("request handled", args...)
	}
}

// ErrorLogger logs errors attached to the gin context
func ErrorLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		for _, err := range c.Errors {
			logger.Error("request error",
				"request_id", GetRequestID(c),
				"route", routeOf(c),
				"method", c.Request.Method,
				"error", err.Error(),
				"type", err.Type,
			)
		}
	}
}
