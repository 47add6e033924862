package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	redis_client "github.com/redis/go-redis/v9"

	"hrms-realtime/internal/gateway"
	"hrms-realtime/internal/notification"
	"hrms-realtime/internal/notification/repository"
	"hrms-realtime/pkg/discord"
	"hrms-realtime/pkg/log"
	"hrms-realtime/pkg/redis"
)

// Subscriber ingests notifications published by backend services over
// Redis Pub/Sub, persists them and routes them to connected clients
type Subscriber struct {
	client  *redis.Client
	hub     *gateway.Hub
	repo    repository.Repository
	discord discord.IDiscord
	logger  log.Logger

	// Subscription management
	pubsub         *redis_client.PubSub
	mu             sync.RWMutex
	patternChannel string

	// Context for shutdown
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	// Reconnection settings
	maxRetries int
	retryDelay time.Duration

	// Health tracking
	lastMessageAt time.Time
	isActive      atomic.Bool
}

// NewSubscriber creates a new Redis subscriber
func NewSubscriber(
	client *redis.Client,
	hub *gateway.Hub,
	repo repository.Repository,
	d discord.IDiscord,
	logger log.Logger,
) *Subscriber {
	ctx, cancel := context.WithCancel(context.Background())

	return &Subscriber{
		client:         client,
		hub:            hub,
		repo:           repo,
		discord:        d,
		logger:         logger,
		patternChannel: "hrms_noti:*",
		ctx:            ctx,
		cancel:         cancel,
		done:           make(chan struct{}),
		maxRetries:     10,
		retryDelay:     5 * time.Second,
	}
}

// IngestMessage is the payload backend services publish on
// hrms_noti:{account_id}
type IngestMessage struct {
	Type         string `json:"type"`
	Title        string `json:"title"`
	Content      string `json:"content"`
	RelatedID    string `json:"relatedId"`
	RelatedModel string `json:"relatedModel"`
}

// outboundPayload is the notification body pushed to clients after
// persistence, carrying the store-assigned id.
type outboundPayload struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	RelatedID    string    `json:"relatedId,omitempty"`
	RelatedModel string    `json:"relatedModel,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Start starts the Redis subscriber
func (s *Subscriber) Start() error {
	s.pubsub = s.client.PSubscribe(s.ctx, s.patternChannel)
	s.isActive.Store(true)

	s.logger.Infof(s.ctx, "Redis subscriber started, listening on pattern: %s", s.patternChannel)

	go s.listen()

	return nil
}

// listen listens for messages from Redis and routes them to the Hub
func (s *Subscriber) listen() {
	defer close(s.done)

	ch := s.pubsub.Channel()

	for {
		select {
		case <-s.ctx.Done():
			s.logger.Info(context.Background(), "Redis subscriber shutting down...")
			return

		case msg, ok := <-ch:
			if !ok {
				s.logger.Error(s.ctx, "Redis pub/sub channel closed, attempting to reconnect...")
				if err := s.reconnect(); err != nil {
					s.logger.Errorf(s.ctx, "Failed to reconnect to Redis: %v", err)
					if s.discord != nil {
						s.discord.SendError(s.ctx, "Notification ingest down",
							"Redis pub/sub reconnection exhausted, notifications are no longer delivered in real time", err)
					}
					return
				}
				ch = s.pubsub.Channel()
				continue
			}

			s.handleMessage(msg.Channel, msg.Payload)
		}
	}
}

// handleMessage persists one published notification and fans it out
func (s *Subscriber) handleMessage(channel string, payload string) {
	s.mu.Lock()
	s.lastMessageAt = time.Now()
	s.mu.Unlock()

	// Channel name: hrms_noti:{account_id}
	parts := strings.Split(channel, ":")
	if len(parts) != 2 {
		s.logger.Warnf(s.ctx, "Invalid channel format: %s", channel)
		return
	}
	accountID := parts[1]

	var in IngestMessage
	if err := json.Unmarshal([]byte(payload), &in); err != nil {
		s.logger.Errorf(s.ctx, "Failed to unmarshal ingest message: %v", err)
		return
	}

	title := in.Title
	if title == "" {
		title = notification.DefaultTitle
	}

	rec, err := s.repo.Create(s.ctx, repository.CreateOptions{
		Record: repository.Record{
			AccountID:    accountID,
			Type:         in.Type,
			Title:        title,
			Content:      in.Content,
			RelatedID:    in.RelatedID,
			RelatedModel: in.RelatedModel,
		},
	})
	if err != nil {
		s.logger.Errorf(s.ctx, "internal.gateway.redis.Subscriber.handleMessage.Create: %v", err)
		return
	}

	out, err := json.Marshal(outboundPayload{
		ID:           rec.ID,
		Type:         rec.Type,
		Title:        rec.Title,
		Content:      rec.Content,
		RelatedID:    rec.RelatedID,
		RelatedModel: rec.RelatedModel,
		CreatedAt:    rec.CreatedAt,
	})
	if err != nil {
		s.logger.Errorf(s.ctx, "internal.gateway.redis.Subscriber.handleMessage.Marshal: %v", err)
		return
	}

	s.hub.SendNotification(accountID, out)

	s.logger.Debugf(s.ctx, "Routed notification %s to account %s (type: %s)", rec.ID, accountID, rec.Type)
}

// reconnect attempts to reconnect to Redis
func (s *Subscriber) reconnect() error {
	for i := 0; i < s.maxRetries; i++ {
		s.logger.Infof(s.ctx, "Reconnecting to Redis (attempt %d/%d)...", i+1, s.maxRetries)

		if s.pubsub != nil {
			s.pubsub.Close()
		}

		s.pubsub = s.client.PSubscribe(s.ctx, s.patternChannel)

		if _, err := s.pubsub.Receive(s.ctx); err == nil {
			s.logger.Info(s.ctx, "Successfully reconnected to Redis")
			return nil
		}

		time.Sleep(s.retryDelay)
	}

	return fmt.Errorf("failed to reconnect to Redis after %d attempts", s.maxRetries)
}

// GetHealthInfo returns the current health info of the subscriber
func (s *Subscriber) GetHealthInfo() (active bool, lastMessageAt time.Time, pattern string) {
	s.mu.RLock()
	lastMsg := s.lastMessageAt
	s.mu.RUnlock()

	return s.isActive.Load(), lastMsg, s.patternChannel
}

// Shutdown gracefully shuts down the subscriber
func (s *Subscriber) Shutdown(ctx context.Context) error {
	s.isActive.Store(false)

	s.cancel()

	if s.pubsub != nil {
		if err := s.pubsub.Close(); err != nil {
			s.logger.Errorf(context.Background(), "Error closing pub/sub: %v", err)
		}
	}

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
