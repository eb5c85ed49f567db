// Repovaultd is the repovault archive daemon.
//
// It serves the HTTP API used by local clients to search GitHub, save
// repositories into the on-disk archive, and manage saved entries.
//
// Configuration is loaded from an optional YAML file plus REPOVAULT_*
// environment variables. See internal/config for details.
//
// Usage:
//
//	# Start with defaults (archives under ~/.local/share/repovault)
//	repovaultd
//
//	# Explicit config file
//	repovaultd --config /etc/repovault/config.yaml
//
//	# Configure via environment
//	REPOVAULT_SERVER_PORT=9191 REPOVAULT_GITHUB_TOKEN=ghp_xxx repovaultd
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/repovault/internal/archive"
	"github.com/fyrsmithlabs/repovault/internal/config"
	"github.com/fyrsmithlabs/repovault/internal/github"
	httpserver "github.com/fyrsmithlabs/repovault/internal/http"
	"github.com/fyrsmithlabs/repovault/internal/logging"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to YAML configuration file")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("repovaultd\n")
		fmt.Printf("Version:    %s\n", version)
		fmt.Printf("Commit:     %s\n", gitCommit)
		fmt.Printf("Build Date: %s\n", buildDate)
		os.Exit(0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server shutdown complete")
}

// run starts the daemon and blocks until the context is cancelled.
func run(ctx context.Context, configPath string) error {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	zl := logger.Underlying()

	zl.Info("starting repovaultd",
		zap.String("version", version),
		zap.String("archive_root", cfg.Archive.Root),
		zap.Int("port", cfg.Server.Port),
		zap.Duration("shutdown_timeout", cfg.Server.ShutdownTimeout.Duration()))

	svc, source, err := buildService(ctx, cfg, zl)
	if err != nil {
		return fmt.Errorf("failed to initialize archive service: %w", err)
	}
	defer func() {
		_ = svc.Close()
	}()

	srv, err := httpserver.NewServer(svc, source, zl, &httpserver.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// buildService wires the GitHub source, path policy, metadata index, fetchers,
// and writer into the archive service.
func buildService(ctx context.Context, cfg *config.Config, logger *zap.Logger) (archive.Service, github.Source, error) {
	source := github.NewClient(ctx, github.ClientConfig{
		Token:             cfg.GitHub.Token,
		RequestsPerSecond: cfg.GitHub.RequestsPerSecond,
		Burst:             cfg.GitHub.Burst,
	}, logger)

	policy, err := archive.NewPathPolicy(cfg.Archive.Root)
	if err != nil {
		return nil, nil, err
	}

	index, err := archive.NewMetadataIndex(cfg.Archive.IndexPath, policy, logger)
	if err != nil {
		return nil, nil, err
	}

	fetcher, err := archive.NewTreeFetcher(source, logger)
	if err != nil {
		return nil, nil, err
	}

	svc, err := archive.NewService(
		policy,
		index,
		fetcher,
		archive.NewCloneFetcher(logger),
		archive.NewArchiveWriter(logger),
		logger,
	)
	if err != nil {
		return nil, nil, err
	}
	return svc, source, nil
}

// initLogger builds the structured logger from the logging config section.
func initLogger(cfg *config.Config) (*logging.Logger, error) {
	logCfg := logging.NewDefaultConfig()
	logCfg.Format = cfg.Logging.Format

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	logCfg.Level = level

	return logging.NewLogger(logCfg)
}
