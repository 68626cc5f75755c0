package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"friend-service/internal/cache"
	"friend-service/internal/config"
	"friend-service/internal/db"
	"friend-service/internal/directory"
	grpcserver "friend-service/internal/grpc"
	"friend-service/internal/handlers"
	"friend-service/internal/logger"
	"friend-service/internal/middleware"
	"friend-service/internal/observability"
	"friend-service/internal/rabbitmq"
	"friend-service/internal/ratelimit"
	"friend-service/internal/repositories"
	"friend-service/internal/services"
	"friend-service/internal/telemetry"
)

const serviceName = "friend-service"

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.InitTracer(ctx, serviceName, cfg.Environment, cfg.OTLPEndpoint)
	if err != nil {
		logrus.WithError(err).Fatal("failed to init tracer")
	}

	database, err := db.Connect(cfg.DBDSN)
	if err != nil {
		logrus.WithError(err).Fatal("failed to connect to db")
	}
	defer database.Close()

	requests := newFriendRequestRepository(cfg, database)

	var dir directory.Directory = directory.NewSQLDirectory(database)
	if cfg.RedisURL != "" {
		redisCache, err := cache.NewRedisCache(ctx, cfg.RedisURL)
		if err != nil {
			logrus.WithError(err).Warn("redis unavailable, directory cache disabled")
		} else {
			defer redisCache.Close()
			dir = directory.NewCachedDirectory(dir, redisCache, cfg.DirectoryCacheTTL)
		}
	}

	limiter := ratelimit.NewSlidingWindow(requests, cfg.RateLimitWindow, cfg.RateLimitMax)
	friendService := services.NewFriendService(requests, dir, limiter)

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AuditExchange)
	defer publisher.Close()
	logrus.WithFields(logrus.Fields{
		"mode":   rabbitmq.PublisherMode(publisher),
		"reason": rabbitmq.PublisherNoopReason(publisher),
	}).Info("audit publisher ready")
	audit := telemetry.NewAuditEmitter(publisher, cfg.AuditRoutingKey, serviceName, cfg.Environment)

	friendHandler := handlers.NewFriendHandler(friendService, dir, audit)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// middlewares
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(logger.RequestLogger())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/metrics", gin.WrapH(observability.Handler()))
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authMiddleware := middleware.AuthMiddleware(middleware.NewJWTValidator(cfg.JWTSecret))

	router.POST("/friend-request/send", authMiddleware, friendHandler.SendRequest)
	router.POST("/friend-request/manage", authMiddleware, friendHandler.ManageRequest)
	router.GET("/friends", authMiddleware, friendHandler.ListFriends)
	router.GET("/friend-requests/pending", authMiddleware, friendHandler.ListPending)

	handlers.RegisterDebugRoutes(router, audit, cfg.DebugRoutes)

	grpcSrv := grpcserver.NewServer()
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		logrus.WithError(err).Fatal("failed to listen for grpc")
	}
	go func() {
		if err := grpcSrv.Serve(lis); err != nil {
			logrus.WithError(err).Error("grpc server stopped")
		}
	}()

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: router}
	go func() {
		logrus.WithField("port", cfg.Port).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("server error")
		}
	}()

	<-ctx.Done()
	logrus.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("http shutdown")
	}
	grpcSrv.Stop()
	if err := shutdownTracer(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("tracer shutdown")
	}
}

// The memory backend only replaces the relationship store. Accounts are
// always read from the shared users table.
func newFriendRequestRepository(cfg config.Config, database *sqlx.DB) repositories.FriendRequestRepository {
	switch cfg.StoreBackend {
	case config.StoreMemory:
		logrus.Warn("friend requests kept in memory, state is lost on restart")
		return repositories.NewMemoryFriendRequestRepo()
	case config.StorePostgres:
		return repositories.NewFriendRequestRepo(database)
	default:
		logrus.WithField("backend", cfg.StoreBackend).Fatal("unknown store backend")
		return nil
	}
}
