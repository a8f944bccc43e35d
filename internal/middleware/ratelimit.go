package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"collaborative-classroom/internal/repository"
)

// RateLimit caps requests per client IP per window using the shared Redis
// counter. Redis failures let the request through: availability over
// strictness for a limiter.
func RateLimit(stateRepo repository.StateRepository, maxRequests int, window time.Duration) gin.HandlerFunc {
	if stateRepo == nil {
		panic("StateRepository cannot be nil for RateLimit middleware")
	}
	if window <= 0 {
		window = time.Second
	}
	return func(c *gin.Context) {
		key := "ratelimit:" + c.ClientIP()
		limited, err := stateRepo.CheckRateLimit(c.Request.Context(), key, maxRequests, window)
		if err != nil {
			logrus.WithField("client_ip", c.ClientIP()).WithError(err).Warn("Rate limit check failed")
			c.Next()
			return
		}
		if limited {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			c.Abort()
			return
		}
		c.Next()
	}
}
