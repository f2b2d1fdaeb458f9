package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// quietRoutes are polled by supervisors and UIs; they log at debug.
var quietRoutes = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
	"/state":   {},
}

// ZapLogger logs one line per control request. Long-lived /events streams
// are logged when they end.
func ZapLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", RequestIDFrom(c)),
		}
		if id := c.Param("id"); id != "" {
			fields = append(fields, zap.String("notification_id", id))
		}
		if errs := c.Errors.ByType(gin.ErrorTypePrivate); len(errs) > 0 {
			fields = append(fields, zap.String("errors", errs.String()))
		}

		logger.Check(levelFor(route, status), "request completed").Write(fields...)
	}
}

func levelFor(route string, status int) zapcore.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case status >= http.StatusBadRequest:
		return zapcore.WarnLevel
	}
	if _, ok := quietRoutes[route]; ok {
		return zapcore.DebugLevel
	}
	return zapcore.InfoLevel
}
