package middleware

import (
	"time"

	"github.com/annel0/voxel-editor/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// TraceIDKey ключ gin.Context, под которым лежит trace-ID запроса
const TraceIDKey = "trace_id"

// RequestLogger снабжает каждый HTTP-запрос trace-ID и пишет краткие логи.
type RequestLogger struct {
	logger *logging.Logger
}

// NewRequestLogger: nil logger пишет в глобальный logging
func NewRequestLogger(logger *logging.Logger) *RequestLogger {
	return &RequestLogger{logger: logger}
}

func (rl *RequestLogger) logf(level logging.LogLevel, format string, args ...interface{}) {
	if rl.logger == nil {
		switch level {
		case logging.DEBUG:
			logging.Debug(format, args...)
		case logging.WARN:
			logging.Warn(format, args...)
		default:
			logging.Info(format, args...)
		}
		return
	}
	switch level {
	case logging.DEBUG:
		rl.logger.Debug(format, args...)
	case logging.WARN:
		rl.logger.Warn(format, args...)
	default:
		rl.logger.Info(format, args...)
	}
}

func (rl *RequestLogger) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Пытаемся извлечь trace-id из OpenTelemetry, если уже создан.
		span := trace.SpanFromContext(c.Request.Context())
		var traceID string
		if span.SpanContext().IsValid() {
			traceID = span.SpanContext().TraceID().String()
		} else {
			traceID = uuid.NewString()
		}
		c.Set(TraceIDKey, traceID)
		c.Header("X-Trace-Id", traceID)

		start := time.Now()
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		rl.logf(logging.DEBUG, "[HTTP] ▶ %s %s ip=%s trace=%s", method, path, c.ClientIP(), traceID)

		c.Next()

		status := c.Writer.Status()
		level := logging.INFO
		if status >= 500 {
			level = logging.WARN
		}
		rl.logf(level, "[HTTP] ◀ %s %s %d %s trace=%s", method, path, status, time.Since(start), traceID)
	}
}
