package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/vctrpage/vctr/internal/build"
	"github.com/vctrpage/vctr/internal/config"
	"github.com/vctrpage/vctr/internal/deliver"
	"github.com/vctrpage/vctr/internal/email"
	"github.com/vctrpage/vctr/internal/newsletter"
	"github.com/vctrpage/vctr/internal/server"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"config.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Build struct {
		Prod    bool `help:"Production build: clean dist, minify, CDN image URLs"`
		Watch   bool `short:"w" help:"Rebuild on source changes"`
		FromGit bool `help:"Sync the content repository before building"`
	} `cmd:"" help:"Build the static site incrementally"`

	Serve struct {
	} `cmd:"" help:"Run the newsletter subscription API"`

	Cleanup struct {
		Once bool `help:"Run a single cleanup pass and exit"`
	} `cmd:"" help:"Purge pending subscribers whose confirmation window lapsed"`

	Deliver struct {
	} `cmd:"" help:"Send the latest article to confirmed subscribers"`
}

func main() {
	ctx := kong.Parse(&CLI)

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	switch ctx.Command() {
	case "build":
		if err := runBuild(cfg, logger); err != nil {
			slog.Error("Build failed", "error", err)
			os.Exit(1)
		}
	case "serve":
		if err := runServe(cfg, logger); err != nil {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	case "cleanup":
		if err := runCleanup(cfg, logger); err != nil {
			slog.Error("Cleanup failed", "error", err)
			os.Exit(1)
		}
	case "deliver":
		if err := runDeliver(cfg, logger); err != nil {
			slog.Error("Delivery failed", "error", err)
			os.Exit(1)
		}
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runBuild(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signalContext()
	defer stop()

	b := build.New(cfg, CLI.Build.Prod, logger)

	if CLI.Build.FromGit {
		if err := b.SyncContentRepo(); err != nil {
			return err
		}
	}

	if CLI.Build.Watch {
		return b.Watch(ctx)
	}
	return b.Run(ctx)
}

func newService(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*newsletter.Service, error) {
	store, err := newsletter.OpenStore(cfg.Newsletter.DBPath)
	if err != nil {
		return nil, err
	}

	sender, err := email.NewSES(ctx, cfg.Newsletter.SESFrom, cfg.Newsletter.SESReplyTo, cfg.Newsletter.SESConfigSet)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &newsletter.Service{
		Store:  store,
		Sender: sender,
		Signer: &newsletter.Signer{
			Secret:     cfg.Newsletter.UnsubSecret,
			PrevSecret: cfg.Newsletter.UnsubSecretPrev,
			TTL:        cfg.Newsletter.UnsubscribeTTL,
		},
		BaseURL:        cfg.Newsletter.BaseURL,
		OwnerName:      cfg.Site.OwnerName,
		ResendCooldown: cfg.Newsletter.ResendCooldown,
		ConfirmTTL:     cfg.Newsletter.ConfirmTTL,
		Logger:         logger,
	}, nil
}

func runServe(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signalContext()
	defer stop()

	if cfg.Newsletter.TurnstileSecret == "" {
		return fmt.Errorf("TURNSTILE_SECRET_KEY is required for serve")
	}

	svc, err := newService(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer svc.Store.Close()

	srv := server.NewServer(
		cfg.Newsletter.ListenAddr,
		cfg.Site.Origin,
		cfg.Site.OwnerName,
		svc,
		server.NewTurnstile(cfg.Newsletter.TurnstileSecret),
		nil,
		logger,
	)

	sched, err := server.NewCleanupScheduler(svc, cfg.Newsletter.CleanupInterval, srv.Metrics(), logger)
	if err != nil {
		return err
	}
	sched.Start()
	defer func() { _ = sched.Stop() }()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runCleanup(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signalContext()
	defer stop()

	store, err := newsletter.OpenStore(cfg.Newsletter.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	// Cleanup never sends mail, so no SES wiring here.
	svc := &newsletter.Service{
		Store:      store,
		ConfirmTTL: cfg.Newsletter.ConfirmTTL,
		Logger:     logger,
	}

	if CLI.Cleanup.Once {
		removed, err := svc.CleanupStale(ctx)
		if err != nil {
			return err
		}
		logger.Info("cleanup finished", "removed", removed)
		return nil
	}

	sched, err := server.NewCleanupScheduler(svc, cfg.Newsletter.CleanupInterval, nil, logger)
	if err != nil {
		return err
	}
	sched.Start()
	defer func() { _ = sched.Stop() }()

	<-ctx.Done()
	return nil
}

func runDeliver(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signalContext()
	defer stop()

	store, err := newsletter.OpenStore(cfg.Newsletter.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	sender, err := email.NewSES(ctx, cfg.Newsletter.SESFrom, cfg.Newsletter.SESReplyTo, cfg.Newsletter.SESConfigSet)
	if err != nil {
		return err
	}

	d := &deliver.Deliverer{
		Config: cfg,
		Store:  store,
		Sender: sender,
		Signer: &newsletter.Signer{
			Secret: cfg.Newsletter.UnsubSecret,
			TTL:    cfg.Newsletter.UnsubscribeTTL,
		},
		Logger: logger,
	}

	// The announcement step only activates with full X credentials.
	apiKey, apiSecret := os.Getenv("X_API_KEY"), os.Getenv("X_API_SECRET")
	accessToken, accessSecret := os.Getenv("X_ACCESS_TOKEN"), os.Getenv("X_ACCESS_SECRET")
	if apiKey != "" && apiSecret != "" && accessToken != "" && accessSecret != "" {
		tweeter, err := deliver.NewXClient(apiKey, apiSecret, accessToken, accessSecret)
		if err != nil {
			return err
		}
		d.Tweeter = tweeter
	} else {
		logger.Warn("X credentials not set, skipping announcement step")
	}

	return d.Run(ctx)
}
