package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"stockquote/internal/config"
	"stockquote/internal/httpx"
	"stockquote/internal/logging"
	"stockquote/internal/quote"
)

// One-shot resolver for ad-hoc lookups and smoke testing the upstream
// extraction without running the server.
func main() {
	var (
		symbolsCSV string
		configPath string
		debug      bool
		timeoutSec int
	)
	flag.StringVar(&symbolsCSV, "symbols", getenv("SYMBOLS", "RELIANCE:NSE"), "comma-separated symbols, e.g. RELIANCE:NSE,TCS")
	flag.StringVar(&configPath, "config", getenv("CONFIG_FILE", ""), "path to config.yaml (optional)")
	flag.BoolVar(&debug, "debug", false, "attach raw upstream bodies to quotes")
	flag.IntVar(&timeoutSec, "timeout", 0, "per-fetch timeout seconds (overrides config)")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if timeoutSec > 0 {
		cfg.Fetch.TimeoutSec = timeoutSec
	}
	if debug {
		cfg.Fetch.Debug = true
	}

	logger, err := logging.New(cfg.Fetch.Debug)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	symbols := splitCSV(symbolsCSV)
	if len(symbols) == 0 {
		log.Fatal("no symbols provided")
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

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.RequestTimeoutSec)*time.Second)
	defer cancel()

	outcomes := resolver.ResolveAll(ctx, symbols)
	b, _ := json.MarshalIndent(struct {
		Outcomes []quote.Outcome `json:"outcomes"`
	}{outcomes}, "", "  ")
	fmt.Println(string(b))
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
