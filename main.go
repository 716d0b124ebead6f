package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"social-service/internal/auth"
	"social-service/internal/config"
	"social-service/internal/db"
	"social-service/internal/handlers"
	"social-service/internal/live"
	"social-service/internal/middleware"
	"social-service/internal/notifier"
	"social-service/internal/observability"
	"social-service/internal/rabbitmq"
	"social-service/internal/repositories"
	"social-service/internal/storage"
	"social-service/internal/telemetry"
	"social-service/internal/ws"
)

func main() {
	cfg := config.Load()

	shutdownTracing, err := observability.SetupTracing(context.Background(), "social-service", cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to set up tracing: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(ctx)
	}()

	database, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	store, err := storage.NewDiskStore(cfg.MediaDir, cfg.BaseURL)
	if err != nil {
		log.Fatalf("failed to init media store: %v", err)
	}

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	log.Printf("event publisher mode=%s", rabbitmq.PublisherMode(publisher))
	auditEmitter := telemetry.NewAuditEmitter(publisher, telemetry.AuditRoutingKey, "social-service", cfg.Environment)

	if cfg.AMQPURL != "" {
		if eventPublisher, err := observability.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange); err != nil {
			log.Printf("event publishing disabled: %v", err)
		} else {
			observability.SetPublisher(eventPublisher)
			defer eventPublisher.Close()
		}
	}

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	bus := live.NewBus()
	hub := ws.NewHub()

	userRepo := repositories.NewUserRepo(database)
	friendRepo := repositories.NewFriendRepo(database)
	chatRepo := repositories.NewChatRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	postRepo := repositories.NewPostRepo(database)
	storyRepo := repositories.NewStoryRepo(database)
	notificationRepo := repositories.NewNotificationRepo(database)

	fanout := notifier.NewFanout(notificationRepo, userRepo, bus)

	authHandler := handlers.NewAuthHandler(userRepo, tokens, store, auditEmitter)
	friendHandler := handlers.NewFriendHandler(userRepo, friendRepo, fanout, bus)
	chatHandler := handlers.NewChatHandler(chatRepo, messageRepo, store, fanout, bus)
	postHandler := handlers.NewPostHandler(postRepo, userRepo, store, fanout, bus)
	storyHandler := handlers.NewStoryHandler(storyRepo, userRepo, store, bus)
	notificationHandler := handlers.NewNotificationHandler(notificationRepo, bus)

	liveWS := ws.NewLiveHandler(hub, bus, tokens, userRepo, friendRepo, chatRepo, messageRepo, postRepo, storyRepo, notificationRepo)

	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("social-service"))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.Static("/media", cfg.MediaDir)

	router.POST("/auth/register", authHandler.Register)
	router.POST("/auth/login", authHandler.Login)

	authMiddleware := middleware.AuthMiddleware(tokens)

	router.GET("/me", authMiddleware, authHandler.Me)
	router.PATCH("/me", authMiddleware, authHandler.UpdateProfile)
	router.POST("/me/avatar", authMiddleware, authHandler.UploadAvatar)

	router.GET("/users/search", authMiddleware, friendHandler.SearchUsers)
	router.GET("/friends/requests", authMiddleware, friendHandler.ListRequests)
	router.POST("/friends/requests", authMiddleware, friendHandler.SendRequest)
	router.POST("/friends/requests/:request_id/accept", authMiddleware, friendHandler.AcceptRequest)
	router.POST("/friends/requests/:request_id/reject", authMiddleware, friendHandler.RejectRequest)

	router.GET("/chats", authMiddleware, chatHandler.ListChats)
	router.DELETE("/chats/:chat_id", authMiddleware, chatHandler.DeleteChat)
	router.GET("/chats/:chat_id/messages", authMiddleware, chatHandler.ListMessages)
	router.POST("/chats/:chat_id/messages", authMiddleware, chatHandler.SendMessage)
	router.DELETE("/chats/:chat_id/messages/:message_id", authMiddleware, chatHandler.DeleteMessage)
	router.POST("/chats/:chat_id/messages/:message_id/reactions", authMiddleware, chatHandler.ToggleReaction)

	router.GET("/feed", authMiddleware, postHandler.Feed)
	router.GET("/posts/mine", authMiddleware, postHandler.OwnPosts)
	router.POST("/posts", authMiddleware, postHandler.CreatePost)
	router.DELETE("/posts/:post_id", authMiddleware, postHandler.DeletePost)
	router.POST("/posts/:post_id/like", authMiddleware, postHandler.ToggleLike)
	router.POST("/posts/:post_id/comments", authMiddleware, postHandler.AddComment)

	router.GET("/stories/mine", authMiddleware, storyHandler.OwnStories)
	router.GET("/stories/friends", authMiddleware, storyHandler.FriendsStories)
	router.POST("/stories", authMiddleware, storyHandler.CreateStory)
	router.DELETE("/stories/:story_id", authMiddleware, storyHandler.DeleteStory)
	router.POST("/stories/:story_id/view", authMiddleware, storyHandler.MarkViewed)

	router.GET("/notifications", authMiddleware, notificationHandler.List)
	router.POST("/notifications/read-all", authMiddleware, notificationHandler.MarkAllRead)
	router.POST("/notifications/:notification_id/read", authMiddleware, notificationHandler.MarkRead)

	router.GET("/ws/chats", liveWS.Chats)
	router.GET("/ws/chats/:chat_id/messages", liveWS.Messages)
	router.GET("/ws/friends/requests", liveWS.FriendRequests)
	router.GET("/ws/feed", liveWS.Feed)
	router.GET("/ws/posts/mine", liveWS.OwnPosts)
	router.GET("/ws/stories/mine", liveWS.OwnStories)
	router.GET("/ws/stories/friends", liveWS.FriendsStories)
	router.GET("/ws/notifications", liveWS.Notifications)

	handlers.RegisterDebugRoutes(router, auditEmitter, cfg.DebugRoutes)

	go sweepExpiredStories(storyRepo, bus, cfg.StorySweepInterval)

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// sweepExpiredStories hard-deletes rows past expiry on a fixed interval.
// Listing already filters expired stories; the sweep only reclaims rows.
func sweepExpiredStories(stories repositories.StoryRepository, bus *live.Bus, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		deleted, err := stories.SweepExpired(ctx)
		cancel()
		if err != nil {
			log.Printf("story sweep failed: %v", err)
			continue
		}
		if deleted > 0 {
			log.Printf("story sweep removed %d expired stories", deleted)
			observability.AddStorySweepDeleted(deleted)
			bus.Publish("stories")
		}
	}
}
