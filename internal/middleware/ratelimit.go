package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/guanago/guanago/internal/store"
	"github.com/guanago/guanago/pkg/errors"
	"github.com/guanago/guanago/pkg/logger"
	"github.com/guanago/guanago/pkg/response"
)

// RateLimit limits requests per (clientIP, path) within a fixed window,
// counting on the shared store so limits hold across replicas sharing a
// backend. Store failures degrade open.
func RateLimit(kv store.Store, maxRequests int, window time.Duration) gin.HandlerFunc {
	log := logger.WithModule("http")

	return func(c *gin.Context) {
		if kv == nil || maxRequests <= 0 || window <= 0 {
			c.Next()
			return
		}

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		key := "ratelimit:" + c.ClientIP() + "|" + path

		count, resetIn, err := kv.IncrementWithTTL(c.Request.Context(), key, window)
		if err != nil {
			log.Warn("rate limit counter failed", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}

		remaining := int64(maxRequests) - count
		if remaining < 0 {
			remaining = 0
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(maxRequests))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.Itoa(int(resetIn.Seconds())))

		if count > int64(maxRequests) {
			response.Error(c, errors.ErrRateLimit)
			c.Abort()
			return
		}

		c.Next()
	}
}
