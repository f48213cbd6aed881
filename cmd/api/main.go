package main

import (
	"context"
	"log"
	"time"

	"murmur-chat/config"
	"murmur-chat/internal/events"
	"murmur-chat/internal/handler"
	"murmur-chat/internal/policy"
	"murmur-chat/internal/presence"
	"murmur-chat/internal/redis"
	"murmur-chat/internal/repository"
	"murmur-chat/internal/server"
	"murmur-chat/internal/services"
	"murmur-chat/internal/storage"
	"murmur-chat/internal/websocket"
	"murmur-chat/pkg/database"
	"murmur-chat/pkg/logger"
)

func main() {
	cfg := config.LoadConfig()

	logMode := logger.DevelopmentMode
	if cfg.AppMode == server.ReleaseMode {
		logMode = logger.ProductionMode
	}
	l := logger.New(logMode)
	logger.SetGlobalLogger(l)

	database.Connect(cfg)
	defer database.Close()

	if err := database.ApplyRawMigrations("migrations"); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}

	redisClient := redis.NewClient(redis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	presenceStore := redis.NewPresenceStore(redisClient, 0)
	limiter := redis.NewRateLimiter(redisClient, cfg.MsgRateLimit, time.Minute)

	messageRepo := repository.NewMessageRepository(database.DB)
	userRepo := repository.NewUserRepository(database.DB)
	guard := policy.NewGuard(userRepo)

	hub := websocket.NewHub()

	// Status transitions fan out to every open socket and are mirrored into
	// redis so other instances and services can read them.
	tracker := presence.NewTracker(func(c presence.Change) {
		payload := events.StatusPayload{UserID: c.UserID, Status: string(c.Status)}
		if c.Status == presence.StatusOffline && !c.LastSeen.IsZero() {
			seen := c.LastSeen
			payload.LastSeen = &seen
		}
		if frame, err := events.Marshal(events.KindUserStatusUpdate, payload); err == nil {
			hub.BroadcastAll(frame)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := presenceStore.SetStatus(ctx, c.UserID, string(c.Status), payload.LastSeen); err != nil {
			l.Warnf("presence mirror failed for %s: %s", c.UserID, err)
		}
	})

	hub.SetOnDead(func(c *websocket.Client) {
		if c.UserID != "" {
			tracker.Disconnect(c.UserID, c.ID)
		}
	})

	messageService := services.NewMessageService(messageRepo, userRepo, guard, hub, l)
	chatService := services.NewChatService(messageRepo, userRepo, presenceStore, l)

	socketHandler := websocket.NewHandler(hub, tracker, messageService, presenceStore, l)

	// Relay externally published user events (friend requests etc.) onto
	// the sockets of whichever instance holds the target's connections.
	bridge := websocket.NewRedisBridge(redis.NewSubscriber(redisClient), hub)
	go func() {
		if err := bridge.Run(context.Background()); err != nil {
			l.Errorf("redis bridge stopped: %s", err)
		}
	}()

	var store *storage.Client
	if cfg.S3Bucket != "" {
		var err error
		store, err = storage.NewClient(context.Background(), storage.S3Config{
			Region:     cfg.S3Region,
			Bucket:     cfg.S3Bucket,
			AccessKey:  cfg.S3AccessKey,
			SecretKey:  cfg.S3SecretKey,
			Endpoint:   cfg.S3Endpoint,
			PublicBase: cfg.S3PublicBase,
			PresignTTL: 15 * time.Minute,
		})
		if err != nil {
			log.Fatalf("Failed to initialize storage: %v", err)
		}
	} else {
		l.Warnf("S3 not configured, uploads disabled")
	}

	handlers := &server.Handlers{
		Message: handler.NewMessageHandler(messageService, chatService),
		User:    handler.NewUserHandler(presenceStore),
		Upload:  handler.NewUploadHandler(store),
		Socket:  socketHandler,
	}

	srv := server.New(cfg, l)
	srv.SetupRoutes(handlers, limiter)

	if err := srv.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
