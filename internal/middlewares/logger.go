// Package middlewares holds the gin middleware shared by every API
// route.
package middlewares

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Logger logs every request start and end on the "http" logger. Start
// lines go out at debug level, completion lines at info with the
// status code and latency attached.
func Logger() gin.HandlerFunc {
	log := zap.S().Named("http")

	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		log.Debugw("request started",
			"method", c.Request.Method,
			"path", path,
			"query", query,
			"ip", c.ClientIP(),
			"user-agent", c.Request.UserAgent(),
		)

		c.Next()

		log.Infow("request completed",
			"method", c.Request.Method,
			"path", path,
			"query", query,
			"ip", c.ClientIP(),
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)

		for _, err := range c.Errors.Errors() {
			log.Errorw("request error", "path", path, "error", err)
		}
	}
}
