// Command worker runs the extraction worker: it polls the API server's
// internal job queue, extracts structured line items from each receipt's
// OCR text, and reports the result back (spec §4.1 "Worker protocol").
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/antigravity-dev/home-inventory/internal/config"
	"github.com/antigravity-dev/home-inventory/internal/worker"
)

func configureLogger(logLevel string, useDev bool) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(strings.TrimSpace(logLevel)) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if useDev {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

func apiKeyFor(provider config.LLMProvider, p config.Planner) string {
	switch provider {
	case config.ProviderOpenAI, config.ProviderOpenAICompatible, config.ProviderLMStudio:
		return p.OpenAIAPIKey
	case config.ProviderOpenRouter:
		return p.OpenRouterAPIKey
	case config.ProviderGemini:
		return p.GeminiAPIKey
	default:
		return ""
	}
}

func buildExtractor(cfg *config.Config) worker.Extractor {
	heuristic := worker.NewHeuristicExtractor()
	if cfg.Planner.BaseURL == "" {
		return heuristic
	}

	timeout := time.Duration(cfg.Planner.TimeoutSeconds) * time.Second
	return worker.NewLLMExtractor(worker.LLMExtractorConfig{
		Provider:          string(cfg.Planner.Provider),
		BaseURL:           cfg.Planner.BaseURL,
		Model:             cfg.Planner.ExtractorModel,
		APIKey:            apiKeyFor(cfg.Planner.Provider, cfg.Planner),
		OpenRouterSiteURL: cfg.Planner.OpenRouterSiteURL,
		OpenRouterAppName: cfg.Planner.OpenRouterAppName,
		Timeout:           timeout,
	}, heuristic)
}

func main() {
	configPath := flag.String("config", "home-inventory.toml", "path to config file")
	dev := flag.Bool("dev", false, "use text log format (default is JSON)")
	flag.Parse()

	bootLogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	bootLogger.Info("home-inventory worker starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLogger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := configureLogger(cfg.LogLevel, *dev)
	slog.SetDefault(logger)

	if cfg.API.WorkerToken == "" {
		logger.Warn("api.worker_token is empty; the server will reject every internal request")
	}

	client := worker.NewClient(cfg.API.BaseURL, cfg.API.WorkerToken, 30*time.Second)
	extractor := buildExtractor(cfg)

	poller := worker.NewPoller(client, extractor, worker.Config{
		PollInterval:      time.Duration(cfg.Worker.PollIntervalMs) * time.Millisecond,
		BackoffBase:       time.Duration(cfg.Worker.BackoffBaseMs) * time.Millisecond,
		MaxSubmitAttempts: cfg.Worker.MaxSubmitAttempts,
	}, logger.With("component", "worker"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := poller.Run(ctx); err != nil {
			logger.Error("poller stopped with error", "error", err)
		}
	}()

	logger.Info("home-inventory worker running",
		"baseUrl", cfg.API.BaseURL,
		"pollInterval", cfg.Worker.PollIntervalMs,
		"extractorProvider", cfg.Planner.Provider,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received signal, shutting down", "signal", sig)
	cancel()
}
