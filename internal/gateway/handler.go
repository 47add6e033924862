package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"hrms-realtime/internal/notification/repository"
	"hrms-realtime/pkg/jwt"
	"hrms-realtime/pkg/log"
)

// WSConfig holds WebSocket configuration
type WSConfig struct {
	PongWait        time.Duration
	PingPeriod      time.Duration
	WriteWait       time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
}

// PollConfig holds long-poll fallback configuration
type PollConfig struct {
	Wait       time.Duration
	SessionTTL time.Duration
}

// Handler handles websocket upgrades, the long-poll fallback and the
// notification history API
type Handler struct {
	hub          *Hub
	sessions     *pollRegistry
	repo         repository.Repository
	jwtValidator *jwt.Validator
	logger       log.Logger
	upgrader     websocket.Upgrader
	wsConfig     WSConfig
	pollConfig   PollConfig
}

// NewHandler creates a new gateway handler
func NewHandler(
	hub *Hub,
	repo repository.Repository,
	jwtValidator *jwt.Validator,
	logger log.Logger,
	wsConfig WSConfig,
	pollConfig PollConfig,
) *Handler {
	return &Handler{
		hub:          hub,
		sessions:     newPollRegistry(hub, logger, pollConfig.SessionTTL),
		repo:         repo,
		jwtValidator: jwtValidator,
		logger:       logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  wsConfig.ReadBufferSize,
			WriteBufferSize: wsConfig.WriteBufferSize,
			// Allow all origins for now (configure in production)
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		wsConfig:   wsConfig,
		pollConfig: pollConfig,
	}
}

// Start launches the poll session expiry loop.
func (h *Handler) Start() {
	go h.sessions.Run()
}

// Shutdown stops the poll session registry.
func (h *Handler) Shutdown(ctx context.Context) error {
	return h.sessions.Shutdown(ctx)
}

// tokenFromRequest extracts the auth token from the query string or the
// Authorization header.
func tokenFromRequest(c *gin.Context) string {
	if token := c.Query("token"); token != "" {
		return token
	}

	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}

	return ""
}

// authenticate resolves the account id from the request token.
func (h *Handler) authenticate(c *gin.Context) (string, error) {
	token := tokenFromRequest(c)
	if token == "" {
		return "", ErrMissingToken
	}

	accountID, err := h.jwtValidator.ExtractAccountID(token)
	if err != nil {
		return "", ErrInvalidToken
	}

	return accountID, nil
}

// HandleWebSocket handles WebSocket connection requests
func (h *Handler) HandleWebSocket(c *gin.Context) {
	accountID, err := h.authenticate(c)
	if err != nil {
		h.logger.Warnf(context.Background(), "WebSocket connection rejected: %v", err)
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": err.Error(),
		})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Errorf(context.Background(), "Failed to upgrade connection: %v", err)
		return
	}

	client := newWSClient(h.hub, conn, uuid.NewString(), accountID, h.wsConfig, h.logger)
	h.hub.Register(client)
	client.Start()

	h.logger.Infof(context.Background(), "WebSocket connection established for account: %s", accountID)
}

// pollResponse is the body of a long-poll round-trip
type pollResponse struct {
	SessionID string            `json:"session_id,omitempty"`
	Messages  []json.RawMessage `json:"messages"`
}

// HandlePoll serves the long-poll fallback. The first request of a session
// carries no session parameter and receives the assigned session id;
// subsequent requests drain the session's queue.
func (h *Handler) HandlePoll(c *gin.Context) {
	accountID, err := h.authenticate(c)
	if err != nil {
		h.logger.Warnf(context.Background(), "Poll request rejected: %v", err)
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": err.Error(),
		})
		return
	}

	sessionID := c.Query("session")
	if sessionID == "" {
		session := h.sessions.create(uuid.NewString(), accountID)
		h.logger.Infof(context.Background(), "Poll session established for account: %s", accountID)

		c.JSON(http.StatusOK, pollResponse{
			SessionID: session.ID(),
			Messages:  []json.RawMessage{},
		})
		return
	}

	session, ok := h.sessions.get(sessionID)
	if !ok || session.AccountID() != accountID {
		c.JSON(http.StatusNotFound, gin.H{
			"error": ErrSessionNotFound.Error(),
		})
		return
	}

	msgs := session.drain(c.Request.Context(), h.pollConfig.Wait)
	c.JSON(http.StatusOK, pollResponse{
		Messages: msgs,
	})
}

// SetupRoutes sets up gateway routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.GET("/ws", h.HandleWebSocket)
	router.GET("/poll", h.HandlePoll)

	api := router.Group("/api/v1/notifications")
	api.GET("", h.ListNotifications)
	api.GET("/unread-count", h.UnreadCount)
	api.PATCH("/:id/read", h.MarkRead)
	api.PATCH("/read-all", h.MarkAllRead)
}
