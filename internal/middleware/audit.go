package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-records-api/pkg/middleware/requestid"
)

// AdminAudit logs every admin request once it completes. Rejected requests are
// logged at warn level so key guessing shows up in the access trail.
func AdminAudit(logger *zap.Logger, action string) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("action", action),
			zap.String("collection", c.Param("code")),
			zap.String("route", c.FullPath()),
			zap.String("method", c.Request.Method),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("request_id", requestid.Value(c)),
		}
		if id := c.Param("id"); id != "" {
			fields = append(fields, zap.String("target_id", id))
		}
		if status >= 400 {
			logger.Warn("admin action rejected", fields...)
			return
		}
		logger.Info("admin action", fields...)
	}
}
