package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"gigfeed/internal/config"
	"gigfeed/internal/feed"
	"gigfeed/internal/geocode"
	appLog "gigfeed/internal/log"
	"gigfeed/internal/pipeline"
	"gigfeed/internal/secrets"
	"gigfeed/internal/web"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	once       bool
}

func main() {
	// Load .env first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	appLog.Info("gigfeed starting", "version", "0.1.0")

	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	conf.ApplyEnv()

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	appLog.SetLevelFromString(conf.LogLevel)

	appLog.Info("effective config",
		"listen", conf.Listen,
		"page_id", conf.PageID,
		"secret_provider", conf.SecretProvider,
		"display_timezone", conf.Timezone,
		"refresh", conf.RefreshCron,
		"postcode_lookup", conf.PostcodeLookupEnabled(),
		"once", flags.once,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	provider, err := secrets.FromName(ctx, conf.SecretProvider)
	if err != nil {
		appLog.Error("failed to initialize secret provider", err, "provider", conf.SecretProvider)
		os.Exit(1)
	}

	p, err := pipeline.New(
		conf,
		secrets.NewTokenCache(provider, conf.TokenParameter),
		feed.NewClient(conf.FeedBaseURL),
		geocode.NewResolver(conf.GeocodeBaseURL),
	)
	if err != nil {
		appLog.Error("failed to build pipeline", err)
		os.Exit(1)
	}

	if flags.once {
		runOnce(ctx, p)
		return
	}

	server, err := web.NewServer(conf, p)
	if err != nil {
		appLog.Error("failed to build server", err)
		os.Exit(1)
	}

	// Periodic refresh keeps the served schedule warm so interactive
	// requests rarely pay for a full pipeline run.
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(conf.RefreshCron, func() {
		if _, err := server.Refresh(ctx); err != nil {
			appLog.Error("scheduled refresh failed", err)
		}
	}); err != nil {
		appLog.Error("invalid refresh schedule", err, "refresh", conf.RefreshCron)
		os.Exit(1)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Warm the cache in the background; the first HTTP request does not
	// have to wait for it.
	go func() {
		if _, err := server.Refresh(ctx); err != nil {
			appLog.Error("initial refresh failed", err)
		}
	}()

	if err := server.StartServer(ctx); err != nil {
		appLog.Error("HTTP server failed", err)
		os.Exit(1)
	}

	// Give in-flight shutdown hooks a moment.
	time.Sleep(100 * time.Millisecond)
	appLog.Info("gigfeed exiting")
}

// runOnce executes a single pipeline pass and prints the schedule as JSON
// to stdout.
func runOnce(ctx context.Context, p *pipeline.Pipeline) {
	gigs, err := p.Run(ctx)
	if err != nil {
		appLog.Error("pipeline run failed", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(gigs); err != nil {
		appLog.Error("failed to encode schedule", err)
		os.Exit(1)
	}
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/gigfeed/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Run one pipeline pass, print JSON and exit")

	flag.Parse()

	return cfg
}
