package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hrms-realtime/pkg/discord"
	"hrms-realtime/pkg/log"
)

// Recovery returns a middleware that recovers from handler panics, logs
// them and reports them to Discord when a webhook is configured.
func Recovery(logger log.Logger, discordClient discord.IDiscord) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				ctx := c.Request.Context()
				logger.Errorf(ctx, "Panic recovered: %v | Method: %s | Path: %s",
					err, c.Request.Method, c.Request.URL.Path)

				if discordClient != nil {
					discordClient.SendError(ctx, "Gateway panic",
						c.Request.Method+" "+c.Request.URL.Path, nil)
				}

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "internal server error",
				})
			}
		}()
		c.Next()
	}
}
