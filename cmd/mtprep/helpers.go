package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kingrea/mtprep/internal/command"
	"github.com/kingrea/mtprep/internal/config"
	"github.com/kingrea/mtprep/internal/dataset"
	"github.com/kingrea/mtprep/internal/logging"
	"github.com/kingrea/mtprep/internal/orchestrator"
	"github.com/kingrea/mtprep/internal/stage"
)

func addGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("root", "", "preparation root (default: current directory)")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "show debug output")
}

// runtime bundles what every subcommand needs. Building it never writes to
// the root.
type runtime struct {
	cfg        *config.Config
	logger     *logging.Logger
	registry   *dataset.Registry
	dispatcher *orchestrator.Dispatcher
}

func newRuntime(cmd *cobra.Command, opts config.Options) (*runtime, error) {
	root, err := rootDir(cmd)
	if err != nil {
		return nil, err
	}
	opts.Verbose, _ = cmd.Flags().GetBool("verbose")
	cfg, err := config.New(root, opts)
	if err != nil {
		return nil, err
	}
	logger := logging.New(cmd.ErrOrStderr(), cfg.Verbose)
	registry := dataset.Default()
	runner := command.NewLocalRunner(cfg.Project.CommandTimeout, logger)
	d, err := orchestrator.New(stage.NewContext(cfg, logger, runner), registry)
	if err != nil {
		return nil, err
	}
	return &runtime{cfg: cfg, logger: logger, registry: registry, dispatcher: d}, nil
}

func rootDir(cmd *cobra.Command) (string, error) {
	root, _ := cmd.Flags().GetString("root")
	if root != "" {
		return filepath.Abs(root)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("resolve working directory: %w", err)
	}
	return cwd, nil
}

func categoryFlags(cmd *cobra.Command) (single, multi bool) {
	single, _ = cmd.Flags().GetBool("single-mic-only")
	multi, _ = cmd.Flags().GetBool("multi-mic-only")
	return single, multi
}
