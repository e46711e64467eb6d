package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/codewithmide/token-creator/internal/services"
	"github.com/codewithmide/token-creator/utils"
)

// RequestLogger 记录每个请求的耗时和状态码，并计入 Prometheus 指标
func RequestLogger(log *utils.Logger) gin.HandlerFunc {
	if log == nil {
		log = utils.DefaultLogger
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := c.Writer.Status()
		elapsed := time.Since(start)
		services.RecordHTTPRequest(c.Request.Method, path, status, elapsed)

		zl := log.Zerolog()
		evt := zl.Info()
		if status >= 500 {
			evt = zl.Warn()
		}
		evt.Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("latency", elapsed).
			Str("ip", c.ClientIP()).
			Msg("http request")
	}
}
