package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/mbocharov/tinylink/internal/cache"
	"github.com/mbocharov/tinylink/internal/config"
	"github.com/mbocharov/tinylink/internal/database"
	"github.com/mbocharov/tinylink/internal/handler"
	"github.com/mbocharov/tinylink/internal/logger"
	"github.com/mbocharov/tinylink/internal/repository"
	"github.com/mbocharov/tinylink/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.App.LogLevel)

	db, err := database.Connect(
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.DBName)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}
	defer db.Close()

	log.Info().Msg("successfully connected to database")

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate schema")
	}

	// Подключаемся к Redis; без него работаем через NullCache
	var cacheManager cache.CacheManager = cache.NewNullCache()
	redisClient, err := cache.NewRedisClient(cache.RedisConfig{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		MaxRetries:   cfg.Redis.MaxRetries,
		CacheTTL:     cfg.Redis.CacheTTL,
		Namespace:    cfg.Redis.Namespace,
	})
	if err != nil {
		log.Warn().Err(err).Msg("failed to connect to Redis, running without cache")
		redisClient = nil
	} else {
		defer redisClient.Close()
		cacheManager = redisClient
		log.Info().Msg("successfully connected to Redis")
	}

	pgRepo := repository.NewPostgresLinkRepository(db)
	linkRepo := repository.NewCachedLinkRepository(pgRepo, cacheManager, log)

	if redisClient != nil {
		// Прогреваем кэш популярными ссылками
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if err := linkRepo.WarmupCache(ctx, 100); err != nil {
				log.Warn().Err(err).Msg("failed to warmup cache")
			}
		}()
	}

	linkService := service.NewLinkService(linkRepo, cfg.GetBaseURL(), log).
		WithCodeLength(cfg.App.ShortCodeLength).
		WithMaxRetries(cfg.App.MaxRetries)
	linkHandler := handler.NewLinkHandler(linkService)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logger.RequestLogger(log))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.GetAllowedOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	// Health checks
	router.GET("/health", func(c *gin.Context) {
		response := gin.H{
			"status": "healthy",
			"services": gin.H{
				"database": "checking",
				"cache":    "checking",
			},
		}

		if err := database.HealthCheck(db); err != nil {
			response["services"].(gin.H)["database"] = "unhealthy"
			response["status"] = "degraded"
		} else {
			response["services"].(gin.H)["database"] = "healthy"
		}

		if redisClient != nil {
			if err := redisClient.HealthCheck(c.Request.Context()); err != nil {
				response["services"].(gin.H)["cache"] = "unhealthy"
				response["status"] = "degraded"
			} else {
				response["services"].(gin.H)["cache"] = "healthy"
			}
		} else {
			response["services"].(gin.H)["cache"] = "disabled"
		}

		statusCode := http.StatusOK
		if response["status"] == "degraded" {
			statusCode = http.StatusServiceUnavailable
		}

		c.JSON(statusCode, response)
	})

	router.GET("/info", func(c *gin.Context) {
		version, _ := database.GetVersion(db)
		c.JSON(http.StatusOK, gin.H{
			"service":          "TinyLink",
			"version":          "1.0.0",
			"database_driver":  "pgx",
			"database_version": version,
			"cache_enabled":    redisClient != nil,
		})
	})

	// API routes
	api := router.Group("/api")
	{
		api.GET("/links", linkHandler.ListLinks)
		api.POST("/links", linkHandler.CreateLink)
		api.GET("/links/:code", linkHandler.GetLink)
		api.PUT("/links/:id", linkHandler.UpdateLink)
		api.DELETE("/links/:id", linkHandler.DeleteLink)
	}

	// Редирект по короткому коду
	router.GET("/:code", linkHandler.Redirect)

	srv := &http.Server{
		Addr:           cfg.GetServerAddress(),
		Handler:        router,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		log.Info().
			Str("address", cfg.GetServerAddress()).
			Bool("cache", redisClient != nil).
			Msg("server starting")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server gracefully stopped")
}
