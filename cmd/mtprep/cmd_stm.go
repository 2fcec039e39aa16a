package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kingrea/mtprep/internal/config"
	"github.com/kingrea/mtprep/internal/export"
)

func newSTMCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "stm",
		Short: "Convert every supervision manifest under the root to STM",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd, config.Options{})
			if err != nil {
				return err
			}
			out := rt.cfg.STMDir()
			if output != "" {
				if out, err = filepath.Abs(output); err != nil {
					return err
				}
			}
			written, err := export.ConvertAll(cmd.Context(), rt.cfg.ManifestsDir(), out, rt.cfg.Project.NumJobs, rt.logger)
			if err != nil {
				return err
			}
			rt.logger.Info("wrote %d STM files to %s", len(written), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output directory (default: <root>/stms)")
	return cmd
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a commented " + config.FileName + " into the root",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := rootDir(cmd)
			if err != nil {
				return err
			}
			path, err := config.WriteDefault(root)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), path)
			return err
		},
	}
}
