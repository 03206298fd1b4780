package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"helpnow/internal/api"
	"helpnow/pkg/config"
	"helpnow/pkg/guide"
	"helpnow/pkg/llm/prompts"
	"helpnow/pkg/logging"
	"helpnow/pkg/probe"
	"helpnow/pkg/request"
	"helpnow/pkg/tracker"
	"helpnow/pkg/version"
	"helpnow/pkg/visual"
)

var (
	configPath = flag.String("config", "configs/helpnow.yaml", "Path to the config file")
	envPath    = flag.String("env", ".env", "Path to a .env file with API keys")
	initConfig = flag.Bool("init-config", false, "Generate default config file and exit")
)

func main() {
	flag.Parse()

	if *initConfig {
		if err := config.GenerateDefault(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Config file generated: %s\n", *configPath)
		return
	}

	if err := run(context.Background(), *configPath, *envPath); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, envPath string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := config.LoadDotEnv(envPath); err != nil {
		return err
	}

	appCfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cleanupLogs, err := logging.Init(&appCfg.Log, &appCfg.History)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	slog.Info("HelpNow Guide Service Started", "version", version.Version, "llm", appCfg.LLM.Type)

	tr := tracker.New()
	svc, err := initGuideService(appCfg, tr)
	if err != nil {
		return err
	}

	probes := []probe.Probe{
		probe.LLMProvider(svc.LLMProvider(), guide.Profile),
		probe.LLMModels(svc.LLMProvider()),
		probe.WritableDir("Log Directory", appCfg.Log.Server.Path, false),
	}
	if err := probe.AnalyzeResults(probe.Run(ctx, probes)); err != nil {
		return fmt.Errorf("startup checks failed: %w", err)
	}

	limiter := api.NewRateLimiter(appCfg.RateLimit, tr)
	srv := api.NewServer(appCfg.Server,
		api.NewGuideHandler(svc),
		limiter,
		api.NewStatsHandler(tr, limiter, appCfg.LLM.Type),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	return runServerLifecycle(ctx, srv, quit)
}

func initGuideService(cfg *config.Config, tr *tracker.Tracker) (*guide.Service, error) {
	promptMgr, err := prompts.Load(cfg.LLM.PromptsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load prompts: %w", err)
	}

	// The gateway makes exactly one attempt per guide request.
	rc := request.New(tr, request.Options{Timeout: cfg.Request.Timeout.Std()})

	llmProv, err := guide.NewLLMProvider(cfg.LLM, cfg.History.LLM, rc)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM provider: %w", err)
	}

	return guide.NewService(llmProv, promptMgr, visual.New(cfg.Visual)), nil
}

func runServerLifecycle(ctx context.Context, srv *http.Server, quit <-chan os.Signal) error {
	slog.Info("Starting server", "addr", srv.Addr)
	serverErrors := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	select {
	case <-quit:
		slog.Info("Shutting down server...")
	case <-ctx.Done():
		slog.Info("Context cancelled, shutting down...")
	case err := <-serverErrors:
		return fmt.Errorf("server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
