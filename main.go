package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"feedback360/access"
	"feedback360/batches"
	"feedback360/config"
	"feedback360/controllers"
	"feedback360/db"
	"feedback360/logging"
	"feedback360/responses"
	"feedback360/router"
	"feedback360/schema"
	"feedback360/summaries"
	"feedback360/tools"
	"feedback360/workers"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.json"
	}
	cfg := config.Get(path)

	logger, err := logging.Init(cfg.LogPath, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	conn, err := db.Connect(cfg, logger)
	if err != nil {
		logger.Fatal("database connect", zap.Error(err))
	}
	defer conn.Close()
	db.UseLogger(conn, logging.NewGormLogger(logger))
	if err := db.Migrate(conn); err != nil {
		logger.Fatal("database migrate", zap.Error(err))
	}

	gate := access.NewGate(conn, logger, cfg.Security.TokenBytes)
	library := schema.NewGormLibrary(conn)
	resolver := schema.NewResolver(library, logger)
	store := responses.NewStore(conn, resolver, logger)
	tracker := batches.NewTracker(conn, gate, logger)
	jobs := summaries.NewJobs(conn, tracker, newSummarizer(cfg, logger), logger, summaries.Options{
		SampleSize:    cfg.Summary.SampleSize,
		Timeout:       cfg.SummaryTimeout(),
		DefaultModel:  cfg.Summary.DefaultModel,
		PromptVersion: cfg.Summary.PromptVersion,
	})
	store.SetNotifier(jobs)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var workerDone <-chan struct{}
	if cfg.Summary.WorkerEnabled {
		workerDone = workers.SummaryProcessor{
			Jobs:        jobs,
			Log:         logger,
			Interval:    cfg.WorkerInterval(),
			Concurrency: cfg.Summary.WorkerConcurrency,
		}.Start(ctx)
	}

	if lvl, _ := logging.ParseLevel(cfg.LogLevel); lvl == zapcore.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	router.Initialize(r, cfg, conn, &controllers.Handler{
		Log:       logger,
		Gate:      gate,
		Resolver:  resolver,
		Library:   library,
		Responses: store,
		Tracker:   tracker,
		Jobs:      jobs,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ApiPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("feedback360 listening", zap.String("port", cfg.ApiPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
	if workerDone != nil {
		<-workerDone
	}
}

func newSummarizer(cfg config.Configuration, logger *zap.Logger) summaries.Summarizer {
	if cfg.Summary.Provider != "openai" {
		return summaries.CorpusSummarizer{}
	}
	if cfg.OpenAI.ApiKey == "" {
		logger.Warn("summary provider is openai but openai.api_key is empty; using corpus summarizer")
		return summaries.CorpusSummarizer{}
	}
	return summaries.OpenAISummarizer{Client: tools.OpenAIClient{
		ApiKey:       cfg.OpenAI.ApiKey,
		BaseURL:      cfg.OpenAI.BaseURL,
		Model:        cfg.OpenAI.Model,
		SystemPrompt: cfg.OpenAI.SystemPrompt,
	}}
}
