// Command server runs the home-inventory API server: receipt intake,
// inventory, recommendations, check-ins, shopping drafts, and pantry health
// (spec §4), plus the internal job-queue surface the worker polls (spec
// §4.1).
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/antigravity-dev/home-inventory/internal/api"
	"github.com/antigravity-dev/home-inventory/internal/config"
	"github.com/antigravity-dev/home-inventory/internal/core"
	"github.com/antigravity-dev/home-inventory/internal/planner"
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

func buildPlanner(cfg *config.Config, logger *slog.Logger) planner.Planner {
	heuristic := planner.NewHeuristic()
	if cfg.Planner.BaseURL == "" {
		return heuristic
	}

	apiKey := apiKeyFor(cfg.Planner.Provider, cfg.Planner)
	return planner.NewLLM(planner.LLMConfig{
		Provider:          string(cfg.Planner.Provider),
		BaseURL:           cfg.Planner.BaseURL,
		Model:             cfg.Planner.PlannerModel,
		RequestMode:       string(cfg.Planner.RequestMode),
		APIKey:            apiKey,
		OpenRouterSiteURL: cfg.Planner.OpenRouterSiteURL,
		OpenRouterAppName: cfg.Planner.OpenRouterAppName,
	}, heuristic, logger.With("component", "planner"))
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

func main() {
	configPath := flag.String("config", "home-inventory.toml", "path to config file")
	dev := flag.Bool("dev", false, "use text log format (default is JSON)")
	flag.Parse()

	bootLogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	bootLogger.Info("home-inventory server starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLogger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfgManager := config.NewManager(cfg)

	logger := configureLogger(cfg.LogLevel, *dev)
	slog.SetDefault(logger)

	coreInstance := core.New(core.Options{
		Planner:        buildPlanner(cfg, logger),
		MaxJobAttempts: cfg.Queue.MaxAttempts,
		UploadOrigin:   cfg.API.UploadOrigin,
		Logger:         logger.With("component", "core"),
	})
	defer coreInstance.Destroy()

	apiSrv := api.NewServer(cfg, coreInstance, logger.With("component", "api"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := apiSrv.Start(ctx); err != nil {
			logger.Error("api server error", "error", err)
		}
	}()

	logger.Info("home-inventory server running", "port", cfg.API.Port, "planner", cfg.Planner.Provider)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)

	for {
		sig := <-sigCh
		switch sig {
		case syscall.SIGHUP:
			if err := cfgManager.Reload(*configPath); err != nil {
				logger.Error("config reload failed", "error", err)
				continue
			}
			logger.Info("config reloaded")
		default:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
			return
		}
	}
}
