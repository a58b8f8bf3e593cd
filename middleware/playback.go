package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/recbox/utils"
)

// PlaybackRecorder counts successful streams per recording. Counters live in
// redis and are best-effort: a missing or unreachable redis never fails the
// stream itself.
func PlaybackRecorder() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Request.Method != http.MethodGet {
			return
		}
		// Both full (200) and partial (206) deliveries count as one play.
		status := c.Writer.Status()
		if status != http.StatusOK && status != http.StatusPartialContent {
			return
		}
		id := c.Param("id")
		if id == "" {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		pipe := utils.GetRedis().Pipeline()
		pipe.Incr(ctx, utils.PlaysKeyPrefix+id)
		pipe.Incr(ctx, utils.PlaysTotalKey)
		_, _ = pipe.Exec(ctx)
	}
}
