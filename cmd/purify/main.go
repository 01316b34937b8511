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

	"github.com/use-agent/iwsa/api"
	"github.com/use-agent/iwsa/browser"
	"github.com/use-agent/iwsa/circuitbreaker"
	"github.com/use-agent/iwsa/config"
	"github.com/use-agent/iwsa/executor"
	"github.com/use-agent/iwsa/llm"
	"github.com/use-agent/iwsa/orchestrator"
	"github.com/use-agent/iwsa/pipeline"
	"github.com/use-agent/iwsa/pipeline/export"
	"github.com/use-agent/iwsa/ratelimit"
	"github.com/use-agent/iwsa/session"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("iwsa starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"maxInstances", cfg.BrowserPool.MaxInstances,
	)

	// ── 3. Shared rate limiter, keyed per-caller ("llm:<backend>", "scrape:<site>") ──
	limiter := ratelimit.NewRegistry(cfg.RateLimit.Burst)

	// ── 4. Initialise the LLM backend pool (C1) ─────────────────────
	orch := buildOrchestrator(cfg, limiter)

	// ── 5. Initialise the browser pool, sessions, and executor (C2) ──
	pool := browser.NewPool(cfg.BrowserPool, cfg.Browser, nil)
	sessions := session.NewManager(session.DefaultConfig())
	exec := executor.New(pool, sessions, orch, limiter, cfg.AdaptivePool.HardMax)

	// ── 6. Initialise the export pipeline (C3) ──────────────────────
	pipe := buildPipeline(cfg.Storage)

	// ── 7. Setup router ──────────────────────────────────────────────
	startTime := time.Now()
	router := api.NewRouter(pool, orch, exec, pipe, cfg, startTime)

	// ── 8. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 9. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// Give in-flight requests 5 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	pool.Shutdown()
	sessions.Shutdown()

	slog.Info("iwsa stopped")
}

// buildOrchestrator wires every configured LLM backend into C1's priority
// pool. A backend with no credentials/path configured is still constructed —
// its own IsAvailable() reports false and the orchestrator skips it — so the
// pool composition never depends on which env vars happen to be set.
func buildOrchestrator(cfg *config.Config, limiter *ratelimit.Registry) *orchestrator.Orchestrator {
	llmCfg := cfg.LLM

	backends := []llm.Backend{
		llm.NewAnthropicBackend(llmCfg.AnthropicAPIKey, llmCfg.AnthropicModel, llmCfg.AnthropicPriority, llmCfg.RetryAttempts, time.Second),
		llm.NewHostedBackend(nil, llm.ExtractParams{
			APIKey:  llmCfg.HostedAPIKey,
			Model:   llmCfg.HostedModel,
			BaseURL: llmCfg.HostedBaseURL,
		}, llmCfg.HostedPriority, llmCfg.RetryAttempts, time.Second),
		llm.NewLocalBackend(llmCfg.LocalModelPath, llmCfg.LocalThreads, llmCfg.LocalPriority),
	}

	// Move the configured primary backend to the front; orchestrator.New's
	// stable sort then tries it first among backends of equal priority.
	for i, b := range backends {
		if i > 0 && b.Name() == llmCfg.PrimaryBackend {
			backends = append([]llm.Backend{b}, append(backends[:i:i], backends[i+1:]...)...)
			break
		}
	}

	breakerCfg := circuitbreaker.DefaultConfig()
	return orchestrator.New(backends, breakerCfg, limiter, 2)
}

// buildPipeline registers every exporter format C3 can fan out to. CSV/JSON/
// Excel always write under Storage.ExportDir; the spreadsheet exporter only
// activates (IsAvailable is implicit: Export fails fast) when service-account
// credentials are configured.
func buildPipeline(storageCfg config.StorageConfig) *pipeline.Pipeline {
	exporters := []pipeline.Exporter{
		&export.CSVExporter{Dir: storageCfg.ExportDir},
		&export.JSONExporter{Dir: storageCfg.ExportDir},
		&export.ExcelExporter{Dir: storageCfg.ExportDir},
	}
	if storageCfg.SpreadsheetCredentialsB64 != "" {
		exporters = append(exporters, &export.SpreadsheetExporter{
			CredentialsB64: storageCfg.SpreadsheetCredentialsB64,
			ShareEmail:     storageCfg.SpreadsheetShareEmail,
		})
	}
	return pipeline.New(exporters...)
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
