package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"helpnow/internal/term"
	"helpnow/pkg/audio"
	"helpnow/pkg/config"
	"helpnow/pkg/db"
	"helpnow/pkg/guide"
	"helpnow/pkg/logging"
	"helpnow/pkg/narration"
	"helpnow/pkg/orchestrator"
	"helpnow/pkg/preferences"
	"helpnow/pkg/probe"
	"helpnow/pkg/request"
	"helpnow/pkg/store"
	"helpnow/pkg/tracker"
	"helpnow/pkg/tts"
	"helpnow/pkg/version"
	"helpnow/pkg/visual"
)

const imageProbeTimeout = 10 * time.Second

var (
	configPath = flag.String("config", "configs/helpnow.yaml", "Path to the config file")
	envPath    = flag.String("env", ".env", "Path to a .env file with TTS settings")
)

func main() {
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath, *envPath, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, envPath string, in io.Reader, out io.Writer) error {
	if err := config.LoadDotEnv(envPath); err != nil {
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cleanupLogs, err := logging.InitClient(cfg.Log.Client)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	if cfg.History.TTS.Enabled {
		tts.SetLogPath(cfg.History.TTS.Path)
	} else {
		tts.SetLogPath("")
	}

	slog.Info("HelpNow Terminal Client Started", "version", version.Version, "server", cfg.Client.ServerURL)

	tr := tracker.New()
	guideClient := guide.NewClient(request.New(tr, request.Options{}), cfg.Client.ServerURL)

	probes := []probe.Probe{
		probe.HTTPReachable("Guide Service", request.New(nil, request.Options{}), cfg.Client.ServerURL+"/health"),
		probe.WritableDir("Client DB", cfg.Client.DBPath, true),
	}
	if err := probe.AnalyzeResults(probe.Run(ctx, probes)); err != nil {
		return fmt.Errorf("startup checks failed: %w", err)
	}

	d, err := db.Init(cfg.Client.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open client db: %w", err)
	}
	st := store.NewSQLiteStore(d)
	defer st.Close()

	if n, err := d.PruneCache(config.Week); err != nil {
		slog.Warn("Failed to prune image cache", "error", err)
	} else if n > 0 {
		slog.Debug("Pruned image cache", "removed", n)
	}

	prefs := preferences.Load(ctx, st, nil)

	audioDir, err := os.MkdirTemp("", "helpnow-audio-")
	if err != nil {
		return fmt.Errorf("failed to create audio dir: %w", err)
	}
	defer os.RemoveAll(audioDir)

	player := audio.New()
	player.SetVolume(cfg.TTS.Volume)
	engine, err := narration.NewEngine(ctx, cfg.TTS, tr, player, audioDir)
	if err != nil {
		slog.Warn("Narration unavailable, continuing without audio", "error", err)
		engine = nil
	}
	if c, ok := engine.(interface{ Close() }); ok {
		defer c.Close()
	}
	driver := narration.NewDriver(engine, cfg.TTS.VoicePreferences)

	rec := term.NewLineRecognizer()
	opts := orchestrator.Options{
		NarrationDelay:  cfg.Client.NarrationDelay.Std(),
		NavigationDelay: cfg.Client.NavigationDelay.Std(),
		RequestTimeout:  cfg.Client.RequestTimeout.Std(),
		AudioEnabled:    prefs.Get().AudioEnabled,
	}
	orch := orchestrator.New(guideClient, rec, driver, opts)
	driver.Subscribe(func(narration.AudioState) { orch.Notify() })

	var images term.Resolver
	if cfg.Client.CheckImages {
		rc := request.New(tr, request.Options{Retries: cfg.Request.Retries, Timeout: cfg.Request.Timeout.Std()})
		images = visual.NewProber(rc, imageProbeTimeout).WithCache(st)
	}

	renderer := term.NewRenderer(out, prefs.ResolvedTheme())
	return term.NewApp(orch, prefs, rec, renderer, images).Run(ctx, in)
}
