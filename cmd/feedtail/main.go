package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"hrms-realtime/config"
	"hrms-realtime/internal/credential"
	"hrms-realtime/internal/feed"
	"hrms-realtime/internal/notification"
	"hrms-realtime/pkg/log"
)

// feedtail connects to the notification gateway with the locally stored
// session and prints every notification as it arrives.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Failed to load config:", err)
		return
	}

	logger := log.Init(log.ZapConfig{
		Level:    cfg.Logger.Level,
		Mode:     cfg.Logger.Mode,
		Encoding: cfg.Logger.Encoding,
	})

	ctx := context.Background()

	store := credential.Open(credential.Options{})
	if store.AuthToken() == "" {
		logger.Warn(ctx, "No stored session token, connecting unauthenticated")
	}

	manager := feed.New(feed.Config{
		Endpoint:         cfg.Feed.URL,
		MaxRetries:       cfg.Feed.MaxRetries,
		RetryDelay:       cfg.Feed.RetryDelay,
		HandshakeTimeout: cfg.Feed.HandshakeTimeout,
		PollWait:         cfg.Poll.Wait,
	}, store.AuthToken, logger)
	defer manager.Teardown()

	delivered := notification.NewDeliveredSet()

	sub, conn := manager.Subscribe(func(raw json.RawMessage) {
		n := notification.Normalize(raw)
		if !delivered.ShouldPresent(n.ID) {
			return
		}
		delivered.Mark(n.ID)

		style := notification.StyleFor(n.Type)
		fmt.Printf("%s  %-10s  %s: %s\n",
			n.CreatedAt.Format("15:04:05"),
			style.Icon,
			n.Title,
			n.Content,
		)
	})
	defer sub.Cancel()

	logger.Infof(ctx, "Tailing notifications from %s", conn.Endpoint())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "Shutting down")
}
