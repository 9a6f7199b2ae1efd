package middlewares

import (
	"net/http"
	"time"

	"civictrack-be/config"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// IssueRateLimiter caps issue creation per principal per 24h window. Without
// a Redis client it lets every request through.
func IssueRateLimiter(rdb *redis.Client, keyPrefix string, limit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil || limit <= 0 {
			c.Next()
			return
		}

		// Anonymous reporters share one bucket per client address.
		subject := c.GetString(ContextUserID)
		if subject == "" {
			subject = "anon:" + c.ClientIP()
		}
		userKey := keyPrefix + ":" + subject
		ctx := c.Request.Context()

		// Increment user's count with TTL
		count, err := rdb.Incr(ctx, userKey).Result()
		if err != nil {
			config.Logger.Error().Err(err).Str("key", userKey).Msg("redis error incrementing count")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "redis error incrementing count"})
			c.Abort()
			return
		}

		// Set TTL only for the first increment (when count = 1)
		if count == 1 {
			if err := rdb.Expire(ctx, userKey, 24*time.Hour).Err(); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "redis error setting TTL"})
				c.Abort()
				return
			}
		}

		if count > int64(limit) {
			retryAfter, _ := rdb.TTL(ctx, userKey).Result()
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": retryAfter.Seconds(),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
