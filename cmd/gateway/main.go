package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"hrms-realtime/config"
	configPostgre "hrms-realtime/config/postgre"
	"hrms-realtime/internal/gateway"
	gatewayRedis "hrms-realtime/internal/gateway/redis"
	"hrms-realtime/internal/middleware"
	notificationRepo "hrms-realtime/internal/notification/repository/postgre"
	"hrms-realtime/pkg/discord"
	"hrms-realtime/pkg/jwt"
	"hrms-realtime/pkg/log"
	"hrms-realtime/pkg/redis"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Failed to load config:", err)
		return
	}

	// Initialize logger
	logger := log.Init(log.ZapConfig{
		Level:    cfg.Logger.Level,
		Mode:     cfg.Logger.Mode,
		Encoding: cfg.Logger.Encoding,
	})

	ctx := context.Background()
	logger.Infof(ctx, "Starting notification gateway (env: %s)...", cfg.Environment.Name)

	// Initialize Discord webhook (optional)
	var discordClient *discord.Discord
	if cfg.Discord.WebhookID != "" && cfg.Discord.WebhookToken != "" {
		discordClient, err = discord.New(logger, &discord.DiscordWebhook{
			ID:    cfg.Discord.WebhookID,
			Token: cfg.Discord.WebhookToken,
		})
		if err != nil {
			logger.Warnf(ctx, "Failed to initialize Discord webhook: %v", err)
		} else {
			logger.Info(ctx, "Discord webhook initialized")
		}
	}

	// Initialize Redis client
	redisClient, err := redis.NewClient(redis.Config{
		Host:            cfg.Redis.Host,
		Password:        cfg.Redis.Password,
		DB:              cfg.Redis.DB,
		UseTLS:          cfg.Redis.UseTLS,
		MaxRetries:      cfg.Redis.MaxRetries,
		MinIdleConns:    cfg.Redis.MinIdleConns,
		PoolSize:        cfg.Redis.PoolSize,
		PoolTimeout:     cfg.Redis.PoolTimeout,
		ConnMaxIdleTime: cfg.Redis.ConnMaxIdleTime,
		ConnMaxLifetime: cfg.Redis.ConnMaxLifetime,
	})
	if err != nil {
		logger.Errorf(ctx, "Failed to connect to Redis: %v", err)
		return
	}
	defer redisClient.Close()
	logger.Infof(ctx, "Redis connected successfully to %s", cfg.Redis.Host)

	// Initialize notification store
	db, err := configPostgre.Connect(ctx, cfg.Postgres)
	if err != nil {
		logger.Errorf(ctx, "Failed to connect to PostgreSQL: %v", err)
		return
	}
	defer db.Close()
	logger.Infof(ctx, "PostgreSQL connected successfully to %s:%d", cfg.Postgres.Host, cfg.Postgres.Port)

	repo := notificationRepo.New(logger, db)

	// Initialize JWT validator
	jwtValidator := jwt.NewValidator(jwt.Config{
		SecretKey: cfg.JWT.SecretKey,
	})

	// Initialize delivery hub
	hub := gateway.NewHub(logger, cfg.WebSocket.MaxConnections)
	go hub.Run()
	logger.Info(ctx, "Delivery hub started")

	// Initialize Redis subscriber
	var monitor discord.IDiscord
	if discordClient != nil {
		monitor = discordClient
	}
	subscriber := gatewayRedis.NewSubscriber(redisClient, hub, repo, monitor, logger)
	if err := subscriber.Start(); err != nil {
		logger.Errorf(ctx, "Failed to start Redis subscriber: %v", err)
		return
	}
	logger.Info(ctx, "Redis Pub/Sub subscriber started")

	// Initialize gateway handler
	handler := gateway.NewHandler(
		hub,
		repo,
		jwtValidator,
		logger,
		gateway.WSConfig{
			PongWait:        cfg.WebSocket.PongWait,
			PingPeriod:      cfg.WebSocket.PingInterval,
			WriteWait:       cfg.WebSocket.WriteWait,
			MaxMessageSize:  cfg.WebSocket.MaxMessageSize,
			ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
			WriteBufferSize: cfg.WebSocket.WriteBufferSize,
		},
		gateway.PollConfig{
			Wait:       cfg.Poll.Wait,
			SessionTTL: cfg.Poll.SessionTTL,
		},
	)
	handler.Start()

	// Setup Gin router
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.Recovery(logger, monitor))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))

	handler.SetupRoutes(router)
	router.GET("/health", handler.HealthHandler(redisClient, subscriber))

	srv := &http.Server{
		Addr:           fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}

	// Start server in a goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf(ctx, "Server error: %v", err)
		}
	}()

	logger.Infof(ctx, "Gateway listening on %s:%d", cfg.Server.Host, cfg.Server.Port)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown components in order
	if err := subscriber.Shutdown(shutdownCtx); err != nil {
		logger.Errorf(ctx, "Error shutting down Redis subscriber: %v", err)
	}

	if err := handler.Shutdown(shutdownCtx); err != nil {
		logger.Errorf(ctx, "Error shutting down poll sessions: %v", err)
	}

	if err := hub.Shutdown(shutdownCtx); err != nil {
		logger.Errorf(ctx, "Error shutting down hub: %v", err)
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf(ctx, "Error shutting down server: %v", err)
	}

	logger.Info(ctx, "Gateway shutdown complete")
}
