package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"stockquote/internal/catalog"
	"stockquote/internal/config"
	"stockquote/internal/httpx"
	"stockquote/internal/logging"
	"stockquote/internal/quote"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.Fetch.Debug)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	cat, err := catalog.Load(cfg.Catalog.Path, cfg.DefaultExchange)
	if err != nil {
		// Search and popular-stocks degrade to the built-in list; direct
		// price lookups keep working without the catalog.
		logger.Error("catalog load failed, falling back to built-in list", zap.Error(err))
		cat = catalog.Fallback(cfg.DefaultExchange)
	} else {
		logger.Info("catalog loaded",
			zap.String("path", cfg.Catalog.Path),
			zap.Int("tickers", cat.Len()))
	}

	client := httpx.New(time.Duration(cfg.Server.RequestTimeoutSec) * time.Second)
	client.UserAgent = cfg.Fetch.UserAgent
	fetcher := quote.NewFetcher(quote.Config{
		BaseURL:   cfg.Fetch.BaseURL,
		UserAgent: cfg.Fetch.UserAgent,
		Timeout:   time.Duration(cfg.Fetch.TimeoutSec) * time.Second,
		Retries:   cfg.Fetch.Retries,
	}, client, logger)
	resolver := &quote.Resolver{
		Fetcher:         fetcher,
		DefaultExchange: cfg.DefaultExchange,
		MaxConcurrency:  cfg.Fetch.MaxConcurrency,
		Debug:           cfg.Fetch.Debug,
		Log:             logger,
	}

	s := &server{
		log:             logger,
		cat:             cat,
		fetcher:         fetcher,
		resolver:        resolver,
		defaultExchange: cfg.DefaultExchange,
		requestTimeout:  time.Duration(cfg.Server.RequestTimeoutSec) * time.Second,
	}

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           requestLogger(logger)(corsHandler.Handler(withGzip(recoverPanic(limitBody(s.routes()))))),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
