package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/nlq-agent/backend/internal/api/handlers"
	rediscache "github.com/nlq-agent/backend/internal/cache/redis"
	"github.com/nlq-agent/backend/internal/dataset"
	"github.com/nlq-agent/backend/internal/evaluation"
	"github.com/nlq-agent/backend/internal/generator"
	"github.com/nlq-agent/backend/internal/llm"
	"github.com/nlq-agent/backend/internal/metrics"
	"github.com/nlq-agent/backend/internal/middleware/ratelimit"
	"github.com/nlq-agent/backend/internal/middleware/security"
	"github.com/nlq-agent/backend/internal/middleware/validation"
	"github.com/nlq-agent/backend/internal/query"
	"github.com/nlq-agent/backend/internal/sandbox"
	"github.com/nlq-agent/backend/internal/storage/sqlite"
	"github.com/nlq-agent/backend/pkg/config"
	appLogger "github.com/nlq-agent/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting NLQ Agent API Server")

	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	err = sqliteClient.InitSchema()
	if err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	redisClient, err := rediscache.NewClient(
		cfg.Redis.Host,
		cfg.Redis.Port,
		cfg.Redis.Password,
		cfg.Redis.DB,
	)
	if err != nil {
		appLogger.Fatal("Failed to create Redis client", zap.Error(err))
	}
	defer redisClient.Close()

	var llmClient *llm.Client
	if cfg.LLM.Configured() {
		llmClient, err = llm.NewClient(llm.Config{
			Provider:    cfg.LLM.Provider,
			Model:       cfg.LLM.Model,
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
			Timeout:     time.Duration(cfg.LLM.TimeoutSec) * time.Second,
		})
		if err != nil {
			appLogger.Fatal("Failed to create LLM client", zap.Error(err))
		}
	} else {
		appLogger.Warn("No LLM API key configured; query generation disabled")
	}

	sb := sandbox.New(
		time.Duration(cfg.Evaluation.ExecTimeoutSec)*time.Second,
		cfg.Evaluation.PreviewRows,
	)

	llmGen := generator.NewLLMGenerator(llmClient)
	queryEngine := query.NewEngine(llmGen, sb, redisClient, sqliteClient)

	evaluator := evaluation.NewEvaluator(evaluation.Config{
		Store:           dataset.NewStore(cfg.Evaluation.DatasetsDir),
		Sandbox:         sb,
		Generators:      []generator.Generator{llmGen, generator.NewBaseline()},
		GroundTruthPath: cfg.Evaluation.GroundTruthPath,
		ResultsDir:      cfg.Evaluation.ResultsDir,
		TargetAccuracy:  cfg.Evaluation.TargetAccuracy,
	})
	analyzer := evaluation.NewAnalyzer(cfg.Evaluation.ResultsDir)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Session-ID",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{
		IsDevelopment: cfg.Logging.Level == "debug",
	}))

	limiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: 60,
		Logger:               appLogger.GetLogger(),
	})
	defer limiter.Stop()

	uploadHandler := handlers.NewUploadHandler(redisClient, sqliteClient, llmClient)
	queryHandler := handlers.NewQueryHandler(queryEngine)
	exportHandler := handlers.NewExportHandler(redisClient)
	evalHandler := handlers.NewEvaluationHandler(evaluator, analyzer, sqliteClient)
	wsHandler := handlers.NewWebSocketHandler(evaluator, evalHandler)

	api := app.Group("/api/v1")
	api.Use(limiter.Middleware())
	api.Use(validation.Middleware(validation.Config{
		Logger: appLogger.GetLogger(),
	}))

	api.Post("/upload", uploadHandler.HandleUpload)
	api.Post("/query", queryHandler.HandleQuery)
	api.Get("/query/history", queryHandler.GetQueryHistory)
	api.Get("/download", exportHandler.HandleDownload)

	api.Post("/evaluation/run", evalHandler.HandleRun)
	api.Get("/evaluation/runs", evalHandler.HandleRunHistory)
	api.Get("/evaluation/results/:model", evalHandler.HandleResults)
	api.Get("/evaluation/comparison", evalHandler.HandleComparison)
	api.Get("/evaluation/ws", websocket.New(wsHandler.HandleConnection))

	api.Get("/health", func(c *fiber.Ctx) error {
		llmState := "not_configured"
		if llmClient != nil {
			llmState = llmClient.BreakerState().String()
		}
		return c.JSON(fiber.Map{
			"status":      "healthy",
			"llm_breaker": llmState,
			"time":        time.Now().Unix(),
		})
	})

	app.Get("/metrics", metrics.MetricsHandler())

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}
