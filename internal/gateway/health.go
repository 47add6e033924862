package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"hrms-realtime/pkg/redis"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Redis      *RedisHealth      `json:"redis"`
	Gateway    *GatewayInfo      `json:"gateway"`
	Subscriber *SubscriberHealth `json:"subscriber,omitempty"`
	Uptime     int64             `json:"uptime_seconds"`
}

// RedisHealth represents Redis health status
type RedisHealth struct {
	Status string  `json:"status"`
	PingMs float64 `json:"ping_ms,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// GatewayInfo represents delivery stats
type GatewayInfo struct {
	ActiveClients       int `json:"active_clients"`
	TotalUniqueAccounts int `json:"total_unique_accounts"`
	PollSessions        int `json:"poll_sessions"`
}

// SubscriberHealth represents Redis subscriber health status
type SubscriberHealth struct {
	Active        bool      `json:"active"`
	LastMessageAt time.Time `json:"last_message_at,omitempty"`
	Pattern       string    `json:"pattern"`
}

var startTime = time.Now()

// SubscriberHealthProvider interface for getting subscriber health
type SubscriberHealthProvider interface {
	GetHealthInfo() (active bool, lastMessageAt time.Time, pattern string)
}

// HealthHandler returns a gin handler reporting gateway health.
func (h *Handler) HealthHandler(redisClient *redis.Client, subscriber SubscriberHealthProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.Background()

		response := HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now(),
			Uptime:    int64(time.Since(startTime).Seconds()),
		}

		redisHealth := &RedisHealth{
			Status: "connected",
		}
		if redisClient != nil {
			pingDuration, err := redisClient.Ping(ctx)
			if err != nil {
				redisHealth.Status = "disconnected"
				redisHealth.Error = err.Error()
				response.Status = "degraded"
				h.logger.Errorf(ctx, "Redis health check failed: %v", err)
			} else {
				redisHealth.PingMs = float64(pingDuration.Microseconds()) / 1000.0
			}
		} else {
			redisHealth.Status = "not configured"
		}
		response.Redis = redisHealth

		stats := h.hub.GetStats()
		response.Gateway = &GatewayInfo{
			ActiveClients:       stats.ActiveClients,
			TotalUniqueAccounts: stats.TotalUniqueAccounts,
			PollSessions:        h.sessions.count(),
		}

		if subscriber != nil {
			active, lastMessageAt, pattern := subscriber.GetHealthInfo()
			response.Subscriber = &SubscriberHealth{
				Active:        active,
				LastMessageAt: lastMessageAt,
				Pattern:       pattern,
			}
		}

		statusCode := http.StatusOK
		if response.Status == "degraded" {
			statusCode = http.StatusServiceUnavailable
		}

		c.JSON(statusCode, response)
	}
}
