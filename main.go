package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"animechat-service/internal/core"
	"animechat-service/internal/db"
	"animechat-service/internal/handlers"
	"animechat-service/internal/matching"
	"animechat-service/internal/middleware"
	"animechat-service/internal/observability"
	"animechat-service/internal/presence"
	"animechat-service/internal/rabbitmq"
	"animechat-service/internal/repositories"
	"animechat-service/internal/rooms"
	"animechat-service/internal/telemetry"
	"animechat-service/internal/ws"
)

const serviceName = "animechat-service"

func main() {
	ctx := context.Background()

	environment := getEnv("ENVIRONMENT", "development")

	shutdownTracing, err := telemetry.SetupTracing(ctx, serviceName, environment, getEnv("OTLP_ENDPOINT", ""))
	if err != nil {
		log.Fatalf("failed to set up tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	database, err := db.Connect()
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer database.Close()

	amqpURL := getEnv("AMQP_URL", "")
	exchange := getEnv("AMQP_EXCHANGE", "animechat.events")
	publisher := rabbitmq.NewPublisher(amqpURL, exchange)
	defer publisher.Close()
	log.Printf("event publisher mode=%s", rabbitmq.PublisherMode(publisher))

	if amqpURL != "" {
		eventPublisher, err := observability.NewAMQPPublisher(amqpURL, exchange)
		if err != nil {
			log.Printf("observability publisher unavailable: %v", err)
		} else {
			observability.SetPublisher(eventPublisher)
			defer eventPublisher.Close()
		}
	}

	auditEmitter := telemetry.NewAuditEmitter(publisher, getEnv("AUDIT_ROUTING_KEY", "audit.animechat"), serviceName, environment)

	userRepo := repositories.NewUserRepo(database)
	roomRepo := repositories.NewRoomRepo(database)
	progressRepo := repositories.NewProgressRepo(database)
	sessionRepo := repositories.NewSessionRepo(database)
	statsRepo := repositories.NewStatsRepo(database)

	registry := presence.NewRegistry()
	matcher := matching.NewService()
	engine := rooms.NewEngine(roomRepo, progressRepo)
	hub := ws.NewHub()
	sink := observability.NewGamificationSink(statsRepo)

	coordinator := core.NewCoordinator(registry, matcher, engine, hub, sink, userRepo)

	sweepInterval := 10 * time.Minute
	sweeper := rooms.NewSweeper(engine, roomRepo, hub, sweepInterval)
	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	go sweeper.Run(sweepCtx)

	wsHandler := ws.NewHandler(hub, coordinator, sessionRepo)
	profileHandler := handlers.NewProfileHandler(userRepo, statsRepo)
	friendsHandler := handlers.NewFriendsHandler(userRepo, registry)
	roomsHandler := handlers.NewRoomsHandler(roomRepo, progressRepo)
	progressHandler := handlers.NewProgressHandler(progressRepo)
	sessionHandler := handlers.NewSessionHandler(sessionRepo)

	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authMiddleware := middleware.AuthMiddleware(sessionRepo)

	router.GET("/api/me", authMiddleware, profileHandler.GetMe)
	router.PUT("/api/profile", authMiddleware, profileHandler.UpdateProfile)
	router.GET("/api/friends", authMiddleware, friendsHandler.ListFriends)
	router.GET("/api/friends/check/:user_id", authMiddleware, friendsHandler.CheckFriendship)
	router.POST("/api/logout", authMiddleware, sessionHandler.Logout)

	router.POST("/api/rooms", authMiddleware, roomsHandler.CreateRoom)
	router.GET("/api/rooms/trending", authMiddleware, roomsHandler.TrendingRooms)
	router.GET("/api/rooms/:room_id", authMiddleware, roomsHandler.GetRoom)
	router.GET("/api/rooms/:room_id/messages", authMiddleware, roomsHandler.GetRoomMessages)

	router.POST("/api/progress/:anime_id/:episode", authMiddleware, progressHandler.MarkWatched)
	router.GET("/api/progress/:anime_id", authMiddleware, progressHandler.GetProgress)

	router.GET("/ws", wsHandler.Handle)

	handlers.RegisterDebugRoutes(router, auditEmitter, matcher, sessionRepo, getEnv("DEBUG_ROUTES", "false") == "true")

	port := getEnv("PORT", "8086")
	log.Printf("animechat service listening on :%s (env=%s)", port, environment)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}
