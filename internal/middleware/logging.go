package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	headerRequestID  = "X-Request-ID"
	ContextRequestID = "request_id"
	contextLogger    = "logger"
)

// RequestID propagates or assigns a request id.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set(ContextRequestID, id)
		c.Header(headerRequestID, id)
		c.Next()
	}
}

// RequestLogger logs one line per request and exposes a request-scoped logger.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqLog := log.With().Str("request_id", c.GetString(ContextRequestID)).Logger()
		c.Set(contextLogger, reqLog)

		c.Next()

		status := c.Writer.Status()
		evt := reqLog.Info()
		switch {
		case status >= 500:
			evt = reqLog.Error()
		case status >= 400:
			evt = reqLog.Warn()
		}
		if uid := UserID(c); uid != "" {
			evt = evt.Str("user_id", uid)
		}
		evt.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("request")
	}
}

// Logger returns the request-scoped logger, or fallback outside RequestLogger.
func Logger(c *gin.Context, fallback zerolog.Logger) zerolog.Logger {
	if v, ok := c.Get(contextLogger); ok {
		if l, ok := v.(zerolog.Logger); ok {
			return l
		}
	}
	return fallback
}
