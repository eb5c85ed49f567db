// Package main implements the repovault CLI for managing the local
// repository archive.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/repovault/internal/archive"
	"github.com/fyrsmithlabs/repovault/internal/config"
	"github.com/fyrsmithlabs/repovault/internal/github"
	"github.com/fyrsmithlabs/repovault/internal/logging"
)

var (
	// configPath is the optional YAML configuration file
	configPath string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "repovault",
	Short: "Manage a local archive of GitHub repositories",
	Long: `repovault searches GitHub, saves repository file trees into a local
archive organized by category, and manages the saved entries.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML configuration file")
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(saveCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(categoriesCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(filesCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(usageCmd)
}

// app bundles the wired components a command needs. Close releases them.
type app struct {
	cfg     *config.Config
	logger  *logging.Logger
	source  github.Source
	service archive.Service
}

func (a *app) Close() {
	if a.service != nil {
		_ = a.service.Close()
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// newApp loads configuration and wires the archive service for CLI use.
// CLI commands log at warn and above so normal output stays clean.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logCfg := logging.NewDefaultConfig()
	logCfg.Format = "console"
	logCfg.Level = zap.WarnLevel
	logger, err := logging.NewLogger(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	zl := logger.Underlying()

	source := github.NewClient(ctx, github.ClientConfig{
		Token:             cfg.GitHub.Token,
		RequestsPerSecond: cfg.GitHub.RequestsPerSecond,
		Burst:             cfg.GitHub.Burst,
	}, zl)

	policy, err := archive.NewPathPolicy(cfg.Archive.Root)
	if err != nil {
		return nil, err
	}

	index, err := archive.NewMetadataIndex(cfg.Archive.IndexPath, policy, zl)
	if err != nil {
		return nil, err
	}

	fetcher, err := archive.NewTreeFetcher(source, zl)
	if err != nil {
		return nil, err
	}

	service, err := archive.NewService(
		policy,
		index,
		fetcher,
		archive.NewCloneFetcher(zl),
		archive.NewArchiveWriter(zl),
		zl,
	)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:     cfg,
		logger:  logger,
		source:  source,
		service: service,
	}, nil
}
