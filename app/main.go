package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/driftfeed/driftfeed/app/api"
	"github.com/driftfeed/driftfeed/app/cfg"
	"github.com/driftfeed/driftfeed/app/classify"
	"github.com/driftfeed/driftfeed/app/crawler"
	"github.com/driftfeed/driftfeed/app/database"
	"github.com/driftfeed/driftfeed/app/policy"
	"github.com/driftfeed/driftfeed/app/reputation"
	"github.com/driftfeed/driftfeed/app/scoring"
	"github.com/driftfeed/driftfeed/app/sources"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was requested
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting Driftfeed server", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBHost, appCfg.DBPort,
		appCfg.DBUser, appCfg.DBPassword, appCfg.DBName)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "schema_version", version, "dirty", dirty)

	sourceRepo := database.NewSourceRepository(db)
	jobRepo := database.NewCrawlJobRepository(db)
	contentRepo := database.NewContentRepository(db)
	topicRepo := database.NewTopicRepository(db)
	reputationRepo := database.NewReputationRepository(db)

	seeded, err := crawler.LoadSeedSources(appCfg.SourcesDir, sourceRepo)
	if err != nil {
		slog.Error("Failed to load seed sources", "dir", appCfg.SourcesDir, "error", err)
		os.Exit(1)
	}
	slog.Info("Seed sources registered", "count", seeded, "dir", appCfg.SourcesDir)

	vocabulary := classify.NewVocabulary(topicRepo)
	vocabulary.Init()

	httpClient := &http.Client{Timeout: 30 * time.Second}
	policyClient := policy.NewClient(httpClient, appCfg.UserAgent,
		time.Duration(appCfg.DefaultCrawlDelay)*time.Millisecond)

	feedReader := sources.NewFeedReader(httpClient, appCfg.UserAgent)
	sitemapReader := sources.NewSitemapReader(httpClient, appCfg.UserAgent)
	discoverer := sources.NewDiscoverer(httpClient, appCfg.UserAgent)
	classifier := classify.NewClassifier(vocabulary)

	enricher := crawler.NewEnricher(contentRepo, policyClient, httpClient, appCfg.UserAgent)
	reputationManager := reputation.NewManager(contentRepo, reputationRepo)

	crawlEngine := crawler.NewEngine(sourceRepo, jobRepo, contentRepo, topicRepo,
		policyClient, feedReader, sitemapReader, discoverer, classifier, enricher,
		appCfg.MaxConcurrentCrawls, appCfg.SitemapRecencyDays)

	scheduler := crawler.NewScheduler(crawlEngine, sourceRepo, jobRepo, contentRepo,
		reputationManager, time.Duration(appCfg.SchedulerInterval)*time.Minute)
	scheduler.Start()
	defer scheduler.Stop()

	recommender := api.NewRecommender(contentRepo, reputationRepo,
		scoring.NewEngine(), scoring.NewSelector())
	handler := api.NewHandler(sourceRepo, jobRepo, contentRepo, recommender,
		crawlEngine, enricher, reputationManager)
	server := api.NewServer(handler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received shutdown signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Scheduler is stopped via defer; wait for in-flight enrichment so we do
	// not abandon half-written metadata on the way down.
	crawlEngine.WaitForEnrichment()

	slog.Info("Driftfeed shutdown complete")
}
