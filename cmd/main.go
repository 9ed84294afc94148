package main

import (
	"context"
	"errors"
	"expvar"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-users-api/config"
	"github.com/oksasatya/go-ddd-users-api/internal/container"
	"github.com/oksasatya/go-ddd-users-api/internal/infrastructure/storage"
	"github.com/oksasatya/go-ddd-users-api/internal/interface/middleware"
	"github.com/oksasatya/go-ddd-users-api/internal/router"
	"github.com/oksasatya/go-ddd-users-api/pkg/helpers"
	"github.com/oksasatya/go-ddd-users-api/pkg/validation"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName, cfg.Env)
	gin.SetMode(cfg.GinMode)
	validation.Init(cfg.IDRule())
	expvar.NewString("storage_driver").Set(cfg.StorageDriver)

	ctx := context.Background()

	// User storage
	repo, closeStore, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("failed to open storage: %v", err)
	}
	defer closeStore()

	// Redis (rate limiting); optional
	rdb, err := helpers.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		helpers.LogError(logger, "redis unavailable, rate limiting disabled", err, logrus.Fields{"addr": cfg.RedisAddr})
	}
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	// Elasticsearch (search index); optional
	es, err := helpers.NewESClient(cfg.ESAddrs(), cfg.ElasticsearchUser, cfg.ElasticsearchPass)
	if err != nil {
		helpers.LogError(logger, "elasticsearch client init failed, search disabled", err, nil)
		es = nil
	}

	// RabbitMQ (user events); optional
	var pub *helpers.RabbitPublisher
	if cfg.RabbitMQURL != "" {
		pub, err = helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQUserQueue)
		if err != nil {
			helpers.LogError(logger, "rabbitmq unavailable, user events disabled", err, logrus.Fields{"queue": cfg.RabbitMQUserQueue})
		}
		defer pub.Close()
	}

	metrics := middleware.NewMetrics("users_api")

	// Provide infra singletons to container for registry auto-wiring
	container.SetConfig(cfg)
	container.SetLogger(logger)
	container.SetUserRepository(repo)
	container.SetRedis(rdb)
	container.SetES(es)
	container.SetRabbitPub(pub)
	container.SetMetrics(metrics)

	// Gin engine and global middleware
	r := gin.New()
	if err := middleware.TrustProxies(r, cfg.TrustedProxyList(), cfg.TrustedPlatform); err != nil {
		logger.Fatalf("invalid TRUSTED_PROXIES: %v", err)
	}
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.RealIP())
	r.Use(metrics.Middleware())
	// CORS
	corsCfg := cors.Config{
		AllowOrigins:     cfg.CORSOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", middleware.HeaderRequestID},
		ExposeHeaders:    []string{"Content-Length", middleware.HeaderRequestID, "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(corsCfg.AllowOrigins) == 0 {
		corsCfg.AllowOrigins = nil
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	}
	r.Use(cors.New(corsCfg))
	if cfg.HTTPLogEnabled || cfg.Env == "development" {
		r.Use(gin.Logger())
	}

	// Registry: auto-register modules using container
	reg := router.NewRegistry(r)
	router.InitModules(reg)
	reg.RegisterAll()

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.WithFields(logrus.Fields{"port": cfg.Port, "driver": cfg.StorageDriver}).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("listen: %s\n", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Errorf("server forced to shutdown: %v", err)
	}
	logger.Info("server exited properly")
}
