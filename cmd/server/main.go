package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"orderdoc-server/internal/config"
	"orderdoc-server/internal/handler"
	"orderdoc-server/internal/interfaces"
	"orderdoc-server/internal/messaging"
	"orderdoc-server/internal/pipeline"
	"orderdoc-server/internal/repository"
	"orderdoc-server/internal/service"
	"orderdoc-server/pkg/ai"
	"orderdoc-server/pkg/database"
	"orderdoc-server/pkg/logger"
	"orderdoc-server/pkg/middleware"
	"orderdoc-server/pkg/migration"
	"orderdoc-server/pkg/taskmanager"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// --- Configuration ---
	cfg, err := config.LoadConfig(".env")
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger Setup ---
	log, err := logger.New(logger.Config{
		Level:    cfg.LogLevel,
		Encoding: cfg.LogFormat,
	})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)
	zap.L().Info("Configuration loaded", zap.String("env", cfg.Env), zap.String("logLevel", cfg.LogLevel))

	// --- External Connections ---
	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancelStartup()

	pgPool, err := database.ConnectPostgres(startupCtx, database.PostgresConfig{
		DSN:         cfg.GetDSN(),
		MaxConns:    int32(cfg.DBMaxConns),
		IdleTimeout: cfg.DBIdleTimeout,
	}, log)
	if err != nil {
		zap.L().Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer pgPool.Close()

	migrator := migration.NewMigrator(migration.Config{
		MigrationsFS:   repository.MigrationsFS,
		MigrationsPath: repository.MigrationsPath,
	}, pgPool, log)
	if err := migrator.Up(); err != nil {
		zap.L().Fatal("Failed to apply database migrations", zap.Error(err))
	}

	redisClient, err := database.ConnectRedis(startupCtx, database.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, log)
	if err != nil {
		zap.L().Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	var publisher interfaces.DocumentationEventPublisher = messaging.NewNoopPublisher(log)
	if cfg.RabbitMQURL != "" {
		mqConn, err := messaging.ConnectRabbitMQ(startupCtx, cfg.RabbitMQURL, 10, 3*time.Second, log)
		if err != nil {
			zap.L().Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		}
		defer mqConn.Close()

		mqPublisher, err := messaging.NewRabbitMQDocumentationPublisher(mqConn, log)
		if err != nil {
			zap.L().Fatal("Failed to create documentation event publisher", zap.Error(err))
		}
		defer mqPublisher.Close()
		publisher = mqPublisher
	} else {
		zap.L().Info("RABBITMQ_URL not set, documentation events are disabled")
	}

	// --- AI Gateway ---
	gateway, err := setupGateway(startupCtx, cfg, redisClient, log)
	if err != nil {
		zap.L().Fatal("Failed to initialize AI gateway", zap.Error(err))
	}

	// --- Dependency Injection ---
	projectRepo := repository.NewPgProjectRepository(pgPool, log)
	parser := ai.NewParser(log)
	docPipeline := pipeline.New(gateway, parser, cfg.GetStackPolicy(), log)
	taskManager := taskmanager.New(taskmanager.Config{MaxTasks: cfg.TasksMaxActive}, log)

	orderService := service.NewOrderService(service.Dependencies{
		Repo:               projectRepo,
		Completer:          gateway,
		Parser:             parser,
		Generator:          docPipeline,
		Cache:              gateway,
		Publisher:          publisher,
		Tasks:              taskManager,
		StackPolicy:        cfg.GetStackPolicy(),
		ProviderConfigured: cfg.HasAIProvider(),
	}, log)

	rateLimit := middleware.RateLimiter(redisClient, middleware.RateLimitConfig{
		Window: cfg.RateLimitWindow,
		Limit:  cfg.RateLimitRequests,
	}, log)
	orderHandler := handler.NewOrderHandler(orderService, handler.Options{
		Production: cfg.IsProduction(),
		JWTSecret:  cfg.JWTSecret,
		RateLimit:  rateLimit,
	}, log)

	// --- HTTP Server Setup (Gin) ---
	gin.SetMode(gin.ReleaseMode)
	if cfg.Env == "development" {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.RedirectTrailingSlash = true
	router.Use(middleware.GinZapLogger(log))
	router.Use(gin.Recovery())

	p := ginprometheus.NewPrometheus("orderdoc")
	p.Use(router)

	corsConfig := cors.DefaultConfig()
	if origins := cfg.GetAllowedOrigins(); len(origins) > 0 {
		corsConfig.AllowOrigins = origins
	} else {
		corsConfig.AllowOrigins = []string{"http://localhost:3000"}
		zap.L().Info("CORSAllowedOrigins not set, allowing default", zap.String("origin", "http://localhost:3000"))
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "HEAD", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", middleware.RequestIDHeader}
	corsConfig.AllowCredentials = true
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	orderHandler.RegisterRoutes(router)

	// --- Background Workers ---
	workersCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	go runTaskCleanup(workersCtx, taskManager, cfg.TasksRetention)

	// --- Start HTTP Server ---
	// WriteTimeout покрывает синхронный прогон пайплайна: пять последовательных вызовов модели.
	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 6 * cfg.AITimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zap.L().Info("Starting HTTP server", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("HTTP Server listen error", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.L().Info("Shutting down server...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("HTTP Server forced to shutdown", zap.Error(err))
	}
	stopWorkers()
	if err := taskManager.Shutdown(shutdownCtx); err != nil {
		zap.L().Warn("Background tasks cancelled on shutdown", zap.Error(err))
	}

	zap.L().Info("Server exiting")
}

// setupGateway собирает шлюз: основной бэкенд (OpenAI-совместимый или Ollama),
// резервный Gemini, redis-кэш и подсчет токенов.
func setupGateway(ctx context.Context, cfg *config.Config, redisClient redis.UniversalClient, log *zap.Logger) (*ai.Gateway, error) {
	var primary ai.Provider
	switch strings.ToLower(cfg.PrimaryProvider) {
	case "ollama":
		p, err := ai.NewOllamaProvider(ai.OllamaConfig{
			BaseURL: cfg.OllamaBaseURL,
			Model:   cfg.OllamaModel,
			Timeout: cfg.AITimeout,
		}, log)
		if err != nil {
			return nil, err
		}
		primary = p
	default:
		primary = ai.NewOpenAICompatibleProvider(ai.OpenAICompatibleConfig{
			Name:    "sarvam",
			APIKey:  cfg.SarvamAPIKey,
			BaseURL: cfg.SarvamBaseURL,
			Model:   cfg.SarvamModel,
			Timeout: cfg.AITimeout,
		}, log)
	}
	if primary == nil {
		zap.L().Warn("Primary AI provider is not configured", zap.String("provider", cfg.PrimaryProvider))
	}

	fallback, err := ai.NewGeminiProvider(ctx, ai.GeminiConfig{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		BaseURL: cfg.GeminiBaseURL,
		Timeout: cfg.AITimeout,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("gemini provider: %w", err)
	}

	gwCfg := ai.GatewayConfig{
		Primary:      primary,
		Fallback:     fallback,
		CacheTTL:     cfg.CacheTTL,
		TokenCounter: ai.NewTiktokenCounter(log),
	}
	if cfg.CacheEnabled {
		gwCfg.Cache = repository.NewRedisCompletionCache(redisClient, log)
	}
	return ai.NewGateway(gwCfg, log), nil
}

// runTaskCleanup периодически удаляет завершенные фоновые задачи старше retention.
func runTaskCleanup(ctx context.Context, tm *taskmanager.TaskManager, retention time.Duration) {
	interval := retention / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := tm.Cleanup(retention); removed > 0 {
				zap.L().Debug("Finished tasks cleaned up", zap.Int("removed", removed))
			}
		}
	}
}
