package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"autoapply/internal/aggregator"
	"autoapply/internal/api/routes"
	"autoapply/internal/applicator"
	"autoapply/internal/background"
	"autoapply/internal/config"
	"autoapply/internal/email"
	"autoapply/internal/enrich"
	"autoapply/internal/locks"
	"autoapply/internal/logging"
	"autoapply/internal/matcher"
	"autoapply/internal/orchestrator"
	"autoapply/internal/parser"
	"autoapply/internal/sources"
	"autoapply/internal/storage"
	"autoapply/pkg/models"
	"autoapply/pkg/utils"

	"github.com/labstack/echo/v4"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("configs/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logging
	if err := logging.InitializeLogging(cfg); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logging.CloseLogging()

	logger := logging.GetGlobalLogger()
	logger.Info("Starting AutoApply job pipeline", map[string]interface{}{})

	ctx := context.Background()

	// Repository: Postgres when configured, in-memory otherwise
	var repo storage.Repository
	if cfg.Database.URL != "" {
		pg, err := storage.NewPostgresRepository(ctx, cfg.Database.URL)
		if err != nil {
			logger.Fatal("Failed to connect to Postgres", map[string]interface{}{"error": err.Error()})
		}
		repo = pg
		logger.Info("Using Postgres repository", map[string]interface{}{})
	} else {
		repo = storage.NewMemoryRepository()
		logger.Info("Using in-memory repository", map[string]interface{}{})
	}
	defer repo.Close()

	// Job board source adapters
	registry := sources.NewRegistry()
	for _, s := range buildSources(cfg) {
		if err := registry.Register(s); err != nil {
			logger.Fatal("Failed to register source", map[string]interface{}{
				"source": s.Name(),
				"error":  err.Error(),
			})
		}
	}

	// Company enrichment (optional)
	var enricher *enrich.Client
	if cfg.Enrich.Enabled {
		enricher = enrich.NewClient(cfg.Enrich.BaseURL, cfg.Enrich.Timeout)
	}

	agg := aggregator.New(registry, enricher, cfg.Sources.RequestTimeout, cfg.Enrich.MaxCompanies)

	// Embedding-based matcher: Gemini when configured, local hashing otherwise
	var embedder matcher.Embedder
	if cfg.Matcher.Provider == "gemini" && cfg.Matcher.APIKey != "" {
		gemini, err := matcher.NewGeminiEmbedder(ctx, cfg.Matcher.APIKey, cfg.Matcher.Model)
		if err != nil {
			logger.Fatal("Failed to initialize Gemini embedder", map[string]interface{}{"error": err.Error()})
		}
		embedder = gemini
		logger.Info("Using Gemini embeddings", map[string]interface{}{"model": cfg.Matcher.Model})
	} else {
		embedder = matcher.NewLocalEmbedder()
		logger.Info("Using local embeddings", map[string]interface{}{})
	}
	m := matcher.New(embedder, cfg.Matcher.KeywordBonusCap)

	// Advisory locks: Redis when configured, in-memory otherwise
	var lockManager locks.Manager
	if cfg.Redis.URL != "" {
		redisLocks, err := locks.NewRedisManager(cfg)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", map[string]interface{}{"error": err.Error()})
		}
		defer redisLocks.Close()
		lockManager = redisLocks
		logger.Info("Using Redis locks", map[string]interface{}{})
	} else {
		lockManager = locks.NewMemoryManager()
		logger.Info("Using in-memory locks", map[string]interface{}{})
	}

	// Browser automation for boards with direct form-fill support
	applicators := applicator.NewRegistry()
	if len(cfg.Automation.Sources) > 0 {
		browser := applicator.NewBrowserApplicator(cfg)
		for _, source := range cfg.Automation.Sources {
			applicators.Register(source, browser)
		}
		logger.Info("Browser automation enabled", map[string]interface{}{
			"sources": cfg.Automation.Sources,
		})
	}

	emails := email.NewGenerator()

	orch := orchestrator.New(repo, lockManager, applicators, emails, orchestrator.Config{
		PoolSize:       cfg.Workers.PoolSize,
		AttemptTimeout: cfg.Workers.Timeout,
		MaxRetries:     cfg.Workers.MaxRetries,
	})

	// Resume parsing: Claude extraction with heuristic fallback
	var llmExtractor parser.Extractor
	if cfg.LLM.APIKey != "" {
		llmExtractor = parser.NewClaudeExtractor(cfg)
		logger.Info("Claude resume extraction enabled", map[string]interface{}{"model": cfg.LLM.Model})
	}
	resumeParser := parser.New(llmExtractor)

	// Background task manager for async bulk-apply
	logger.Info("Initializing background task manager", map[string]interface{}{})
	taskManager := background.NewTaskManager(cfg)
	if err := taskManager.Start(ctx); err != nil {
		logger.Fatal("Failed to start task manager", map[string]interface{}{"error": err.Error()})
	}

	// Initialize Echo
	e := echo.New()
	e.HideBanner = true

	routes.SetupRoutes(e, routes.Dependencies{
		Config:       cfg,
		Repo:         repo,
		Aggregator:   agg,
		Matcher:      m,
		Orchestrator: orch,
		Parser:       resumeParser,
		Emails:       emails,
		TaskManager:  taskManager,
	})

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down server...", map[string]interface{}{})

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		// Stop task manager first so in-flight bulk applies settle
		logger.Info("Stopping background task manager...", map[string]interface{}{})
		if err := taskManager.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping task manager", map[string]interface{}{"error": err.Error()})
		}

		logger.Info("Stopping HTTP server...", map[string]interface{}{})
		if err := e.Shutdown(shutdownCtx); err != nil {
			logger.Error("Error shutting down server", map[string]interface{}{"error": err.Error()})
		}

		logger.Info("Server shutdown complete", map[string]interface{}{})
	}()

	// Start server
	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("Server starting", map[string]interface{}{"address": address})

	if err := e.Start(address); err != nil {
		logger.Error("Server stopped", map[string]interface{}{"error": err.Error()})
	}
}

// buildSources constructs the source adapters enabled in configuration. An
// empty enabled list means all of them.
func buildSources(cfg *config.Config) []sources.Source {
	opts := func(source models.JobSource) sources.Options {
		return sources.Options{
			BaseURL:     cfg.SourceBaseURL(string(source)),
			UserAgent:   cfg.Sources.UserAgent,
			Timeout:     cfg.Sources.RequestTimeout,
			MinInterval: cfg.Sources.MinRequestInterval,
			MaxResults:  cfg.Sources.MaxPerSource,
		}
	}

	all := []sources.Source{
		sources.NewRemoteOK(opts(models.SourceRemoteOK)),
		sources.NewArbeitnow(opts(models.SourceArbeitnow)),
		sources.NewRemotive(opts(models.SourceRemotive)),
		sources.NewWeWorkRemotely(opts(models.SourceWeWorkRemotely)),
	}

	if len(cfg.Sources.Enabled) == 0 {
		return all
	}

	var selected []sources.Source
	for _, s := range all {
		if utils.ContainsFold(cfg.Sources.Enabled, s.Name()) {
			selected = append(selected, s)
		}
	}
	return selected
}
