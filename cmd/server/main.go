package main

import (
	"context"
	"log"
	"net/http"
	"os"
	osignal "os/signal"
	"syscall"
	"time"

	"github.com/WENHA0ZHANG/poor-trader-dashboard/internal/advisor"
	"github.com/WENHA0ZHANG/poor-trader-dashboard/internal/bot"
	"github.com/WENHA0ZHANG/poor-trader-dashboard/internal/cache"
	"github.com/WENHA0ZHANG/poor-trader-dashboard/internal/config"
	"github.com/WENHA0ZHANG/poor-trader-dashboard/internal/db"
	"github.com/WENHA0ZHANG/poor-trader-dashboard/internal/domain"
	"github.com/WENHA0ZHANG/poor-trader-dashboard/internal/handler"
	"github.com/WENHA0ZHANG/poor-trader-dashboard/internal/ingest"
	"github.com/WENHA0ZHANG/poor-trader-dashboard/internal/provider"
	"github.com/WENHA0ZHANG/poor-trader-dashboard/internal/repository"
	"github.com/WENHA0ZHANG/poor-trader-dashboard/internal/scheduler"
	"github.com/WENHA0ZHANG/poor-trader-dashboard/internal/signal"
	"github.com/WENHA0ZHANG/poor-trader-dashboard/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	_ "github.com/WENHA0ZHANG/poor-trader-dashboard/docs"
)

var (
	loadEnvFunc            = godotenv.Load
	loadConfigFunc         = config.Load
	initPostgresFunc       = db.InitPostgres
	initRedisFunc          = cache.InitRedis
	initTracerFunc         = tracing.InitTracer
	newObservationRepoFunc = repository.NewObservationRepository
	buildRegistryFunc      = provider.BuildRegistry
	newPipelineFunc        = ingest.NewPipeline
	newIngestServiceFunc   = ingest.NewService
	newSignalServiceFunc   = signal.NewService
	newSchedulerFunc       = scheduler.New
	startSchedulerFunc     = func(s *scheduler.Scheduler, ctx context.Context) { go s.Start(ctx) }
	newAdvisorFunc         = advisor.NewService
	startTelegramBotFunc   = bot.StartTelegramBot
	newHandlerFunc         = handler.New
	newRouterFunc          = gin.Default
	setupSignalNotify      = osignal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

// @title           Poor Trader Dashboard API
// @version         1.0
// @description     Market sentiment indicator engine with threshold signals.

// @host      localhost:8080
// @BasePath  /
func main() {
	loadEnvFunc()

	cfg := loadConfigFunc()

	if err := domain.ValidateCatalog(); err != nil {
		log.Fatalf("invalid indicator catalog: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init Postgres and Redis
	os.Setenv("DATABASE_URL", cfg.DatabaseURL)
	os.Setenv("REDIS_URL", cfg.RedisURL)
	initPostgresFunc(ctx)
	initRedisFunc(ctx)

	// Init tracing
	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	// Create repository and run migrations
	repo := newObservationRepoFunc(db.Pool, tracer)
	if db.Pool != nil {
		if err := repo.RunMigrations(ctx); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
	}

	// Build the provider registry; resolution of the configured names
	// happens inside the ingest service and is fatal on a bad name.
	registry, err := buildRegistryFunc(tracer, provider.BuildOptions{
		FredAPIKey:      cfg.FredAPIKey,
		HTTPConfigPath:  cfg.HTTPConfigPath,
		ManualInputPath: cfg.ManualInputPath,
	})
	if err != nil {
		log.Fatalf("failed to build provider registry: %v", err)
	}

	signalService := newSignalServiceFunc(tracer, repo, cache.Client)

	pipeline := newPipelineFunc(repo, tracer)
	ingestService, err := newIngestServiceFunc(
		tracer, pipeline, registry, cfg.Providers, repo,
		func(ctx context.Context) { signalService.Invalidate(ctx) },
		time.Duration(cfg.FetchTimeoutSecs)*time.Second,
	)
	if err != nil {
		log.Fatalf("failed to configure ingestion: %v", err)
	}
	log.Printf("Providers enabled: %v", ingestService.Providers())

	// Start the auto-fetch scheduler (stopped by ctx cancel or the API)
	sched := newSchedulerFunc(tracer, ingestService, time.Duration(cfg.FetchIntervalSecs)*time.Second)
	startSchedulerFunc(sched, ctx)

	// LLM briefing advisor, disabled without a key
	var llm advisor.LLMClient
	if cfg.OpenAIAPIKey != "" {
		llm = advisor.NewOpenAIClient(cfg.OpenAIAPIKey)
	}
	advisorService := newAdvisorFunc(tracer, llm, signalService, cfg.OpenAIModel)

	// Start Telegram bot
	os.Setenv("TELEGRAM_BOT_TOKEN", cfg.TelegramBotToken)
	startTelegramBotFunc(signalService, sched)

	// Create handlers and routes
	h := newHandlerFunc(tracer, signalService, repo, sched, ingestService, advisorService)

	r := newRouterFunc()
	r.Use(otelgin.Middleware("poor-trader-dashboard"))

	h.RegisterRoutes(r, cfg.APIKey)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    ":8080",
		Handler: r,
	}

	go func() {
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Println("Shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
