package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"delivery-dashboard/internal/aggregate"
	"delivery-dashboard/internal/config"
	"delivery-dashboard/internal/controller"
	"delivery-dashboard/internal/middleware"
	"delivery-dashboard/internal/orderview"
	"delivery-dashboard/internal/promotion"
	"delivery-dashboard/internal/rabbit"
	"delivery-dashboard/internal/repository"
	"delivery-dashboard/internal/resolver"
	"delivery-dashboard/internal/service"
	"delivery-dashboard/pkg/cache"
)

func init() {
	_ = godotenv.Load()
	// los importes salen como números en el JSON
	decimal.MarshalJSONWithoutQuotes = true
}

func main() {
	cfg := config.Load()
	logger := newLogger(cfg.Env)
	if err := cfg.Validate(); err != nil {
		fatal(logger, "invalid config", err)
	}
	loc, _ := cfg.Location()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Conexión a MongoDB
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
	cancel()
	if err != nil {
		fatal(logger, "failed to connect to mongo", err)
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(disconnectCtx)
	}()
	logger.Info("mongo connected", slog.String("db", cfg.MongoDBName))

	// Repositorio y servicios
	store := repository.NewMongoStore(client.Database(cfg.MongoDBName))

	docCache := cache.NewLRU[string, bson.Raw](cfg.CacheCapacity, cfg.CacheTTL)
	docCache.StartJanitor(ctx)
	res := resolver.New(logger, store,
		resolver.WithCache(docCache),
		resolver.WithConcurrency(cfg.ResolveConcurrency),
		resolver.WithTimeout(cfg.ResolveTimeout),
	)

	revenueCache := cache.NewLRU[aggregate.Granularity, []aggregate.Bucket](8, cfg.CacheTTL)
	revenueCache.StartJanitor(ctx)

	// Conexión a RabbitMQ
	conn, err := amqp091.Dial(cfg.RabbitURL)
	if err != nil {
		fatal(logger, "failed to connect to rabbitmq", err)
	}
	defer conn.Close()
	ch, err := conn.Channel()
	if err != nil {
		fatal(logger, "failed to open rabbitmq channel", err)
	}
	defer ch.Close()

	publisher, err := rabbit.NewPublisher(ch)
	if err != nil {
		fatal(logger, "failed to set up publisher", err)
	}

	dashboard := service.NewDashboardService(logger, service.Deps{
		Store:           store,
		Resolver:        res,
		Hydrator:        orderview.NewHydrator(logger, res),
		Aggregator:      aggregate.New(logger, loc),
		Lifecycle:       promotion.NewLifecycle(logger, store, promotion.NewGenerator(cfg.PromoCodeMaxAttempts, nil)),
		Events:          publisher,
		RevenueCache:    revenueCache,
		LeaderboardSize: cfg.LeaderboardSize,
	})
	authService := service.NewAuthService(cfg.AuthURL, 5*time.Second)

	if err := rabbit.SetupConsumers(ctx, logger, ch, rabbit.NewPlaceOrderConsumer(logger, dashboard)); err != nil {
		fatal(logger, "failed to set up consumers", err)
	}

	// Router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logger(logger), middleware.Metrics())

	// Rutas públicas
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Rutas protegidas (requieren token); las de escritura además admin
	auth := r.Group("/")
	auth.Use(middleware.AuthMiddleware(logger, authService))
	admin := auth.Group("/admin")
	admin.Use(middleware.AdminOnly())

	controller.NewDashboardController(logger, dashboard).RegisterRoutes(auth, admin)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("delivery dashboard listening", slog.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
	}
}

func newLogger(env string) *slog.Logger {
	switch env {
	case "production":
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, slog.Any("error", err))
	os.Exit(1)
}
