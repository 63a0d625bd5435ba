package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stockfolio/internal/config"
	"stockfolio/internal/database"
	"stockfolio/internal/feed"
	"stockfolio/internal/handlers"
	"stockfolio/internal/logger"
	"stockfolio/internal/quotes"
	"stockfolio/internal/reference"
	"stockfolio/internal/server"
	"stockfolio/internal/services"
	"stockfolio/internal/validator"

	_ "stockfolio/internal/docs" // Import swagger docs
)

// @title           Stockfolio API
// @version         1.0
// @description     Stockfolio tracks a Brazilian equity portfolio: broker file imports, dividend and interest-on-equity entitlements, and live quotes.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"), os.Getenv("LOG_LEVEL"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	dbConfig, err := database.NewConfig(appConfig)
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() {
		if err := dbManager.Close(); err != nil {
			log.Warnw("failed to close database", "error", err)
		}
	}()

	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	validator.Register()

	// External adapters
	catalog := reference.NewDefaultCatalog()
	feedClient := feed.NewStatusInvest(
		&http.Client{Timeout: appConfig.FeedTimeout},
		catalog,
		feed.WithBaseURL(appConfig.FeedBaseURL),
		feed.WithTimeout(appConfig.FeedTimeout),
		feed.WithCacheTTL(appConfig.FeedCacheTTL),
	)
	sources, err := quotes.BuildSources(&http.Client{Timeout: appConfig.QuoteTimeout}, quotes.SourcesConfig{
		Names:        appConfig.QuoteSources,
		BrapiBaseURL: appConfig.BrapiBaseURL,
		BrapiToken:   appConfig.BrapiToken,
	})
	if err != nil {
		return fmt.Errorf("failed to configure quote sources: %w", err)
	}
	resolver := quotes.NewResolver(sources, catalog,
		quotes.WithTimeout(appConfig.QuoteTimeout),
		quotes.WithCacheTTL(appConfig.QuoteCacheTTL),
	)

	// Initialize services
	db := dbManager.DB()
	auditService := services.NewAuditService(db)
	distributionService := services.NewDistributionService(db, feedClient)
	holdingService := services.NewHoldingService(db, catalog, distributionService)
	quoteService := services.NewQuoteService(db, resolver, catalog, appConfig.QuoteRefreshDelay)

	router := server.NewRouter(server.Handlers{
		Holding:      handlers.NewHoldingHandler(holdingService, auditService, appConfig.MaxUploadSize),
		Distribution: handlers.NewDistributionHandler(distributionService, auditService),
		Quote:        handlers.NewQuoteHandler(quoteService, auditService),
	}, appConfig.PipelineAPIKey)

	srv := &http.Server{
		Addr:              ":" + appConfig.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Infow("starting stockfolio server",
			"port", appConfig.Port,
			"quote_sources", resolver.Sources(),
		)
		log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
