package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"marketplace/internal/cache"
	"marketplace/internal/config"
	"marketplace/internal/database"
	"marketplace/internal/events"
	"marketplace/internal/images"
	custommiddleware "marketplace/internal/middleware"
	"marketplace/internal/repository"
	"marketplace/internal/service"
	"marketplace/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config    *config.Config
	logger    *zap.Logger
	db        database.Service
	redis     *redis.Client
	publisher events.Publisher
}

func NewServer(ctx context.Context, cfg *config.Config, logger *zap.Logger, db database.Service) (*Server, error) {
	redisClient := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Product images are copied to S3 only when a bucket is configured
	var imageStore images.Store
	if cfg.S3.Enabled() {
		s3Store, err := images.NewS3Store(ctx, cfg.S3)
		if err != nil {
			_ = redisClient.Close()
			return nil, fmt.Errorf("failed to create image store: %w", err)
		}
		imageStore = s3Store
	}
	imageResolver := images.NewResolver(images.NewFetcher(cfg.Images.FetchTimeout, cfg.Images.MaxBytes), imageStore, logger)

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Kafka.Enabled() {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.OrderTopic)
	}

	// Initialize repositories
	repos := repository.NewRepositories(db.DB())
	txm := repository.NewTxManager(db.DB(), repository.DefaultRetryPolicy)
	productCache := cache.NewProductCache(redisClient, cfg.Cache.ProductTTL)

	// Initialize services
	tokens := service.TokenConfig{
		Secret:        cfg.JWT.Secret,
		AccessExpiry:  time.Duration(cfg.JWT.AccessExpiry) * time.Minute,
		RefreshExpiry: time.Duration(cfg.JWT.RefreshExpiry) * 24 * time.Hour,
	}
	userService := service.NewUserService(txm, repos.Users, repos.RefreshTokens, tokens, logger)
	catalogService := service.NewCatalogService(repos, txm, productCache, imageResolver, logger)
	cartService := service.NewCartService(repos, txm, logger)
	checkoutService := service.NewCheckoutService(repos, txm, productCache, publisher, logger)
	orderService := service.NewOrderService(repos, txm, logger)
	favoriteService := service.NewFavoriteService(repos, logger)

	s := &Server{
		config:    cfg,
		logger:    logger,
		db:        db,
		redis:     redisClient,
		publisher: publisher,
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.StripSlashes)
	router.Use(middleware.Compress(5))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.AllowedOrigins, cfg.Server.IsDevelopment()))
	router.Use(custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
		RequestsPerWindow: cfg.RateLimit.Requests,
		Window:            cfg.RateLimit.Window,
		KeyPrefix:         "rate_limit",
	}, logger))
	router.Use(middleware.Timeout(30 * time.Second))

	router.Get("/health", s.health)

	authMiddleware := custommiddleware.AuthMiddleware(userService, logger)

	// Register routes
	transport.NewUserHandler(userService, tokens, !cfg.Server.IsDevelopment(), logger).RegisterRoutes(router, authMiddleware)
	transport.NewCatalogHandler(catalogService, logger).RegisterRoutes(router, authMiddleware)
	transport.NewCartHandler(cartService, logger).RegisterRoutes(router, authMiddleware)
	transport.NewOrderHandler(checkoutService, orderService, logger).RegisterRoutes(router, authMiddleware)
	transport.NewFavoriteHandler(favoriteService, logger).RegisterRoutes(router, authMiddleware)

	s.Server = &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s, nil
}

// health reports 503 only when the database is down; a missing redis
// degrades caching and rate limiting but not correctness.
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{
		"database": s.db.Health()["status"],
		"redis":    "up",
	}
	if err := s.redis.Ping(r.Context()).Err(); err != nil {
		checks["redis"] = "down"
	}

	status, code := "ok", http.StatusOK
	switch {
	case checks["database"] != "up":
		status, code = "unavailable", http.StatusServiceUnavailable
	case checks["redis"] != "up":
		status = "degraded"
	}

	custommiddleware.RespondWithJSON(w, code, map[string]interface{}{
		"status": status,
		"checks": checks,
	})
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if err := s.publisher.Close(); err != nil {
		s.logger.Error("Failed to close event publisher", zap.Error(err))
	}

	if err := s.redis.Close(); err != nil {
		s.logger.Error("Failed to close redis client", zap.Error(err))
	}

	// Close database connection
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	_ = s.logger.Sync()
	return nil
}
