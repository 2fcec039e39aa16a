package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kingrea/mtprep/internal/lhotse"
	"github.com/kingrea/mtprep/internal/logging"
)

func newFilterCmd() *cobra.Command {
	var (
		input, output string
		maxLen        float64
	)
	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Drop cuts that are not shorter than --max-len seconds",
		RunE: func(cmd *cobra.Command, args []string) error {
			if maxLen <= 0 {
				return fmt.Errorf("--max-len must be positive")
			}
			cuts, err := lhotse.ReadCuts(input)
			if err != nil {
				return err
			}
			kept := lhotse.FilterByDuration(cuts, maxLen)
			if err := lhotse.WriteCuts(output, kept); err != nil {
				return err
			}
			manifestLogger(cmd).Info("kept %d of %d cuts shorter than %gs in %s", len(kept), len(cuts), maxLen, output)
			return nil
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "input cut-set manifest")
	cmd.Flags().StringVar(&output, "output", "", "output cut-set manifest")
	cmd.Flags().Float64Var(&maxLen, "max-len", 30, "maximum cut length in seconds (exclusive)")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func newRelocateCmd() *cobra.Command {
	var input, output, from, to string
	cmd := &cobra.Command{
		Use:   "relocate",
		Short: "Rewrite recording source paths after moving the audio",
		RunE: func(cmd *cobra.Command, args []string) error {
			if from == "" {
				return fmt.Errorf("--from must not be empty")
			}
			cuts, err := lhotse.ReadCuts(input)
			if err != nil {
				return err
			}
			moved, changed := lhotse.RelocateSources(cuts, from, to)
			if err := lhotse.WriteCuts(output, moved); err != nil {
				return err
			}
			manifestLogger(cmd).Info("rewrote %d sources in %s", changed, output)
			return nil
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "input cut-set manifest")
	cmd.Flags().StringVar(&output, "output", "", "output cut-set manifest")
	cmd.Flags().StringVar(&from, "from", "", "source path prefix to replace")
	cmd.Flags().StringVar(&to, "to", "", "replacement prefix")
	for _, name := range []string{"input", "output", "from", "to"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func manifestLogger(cmd *cobra.Command) *logging.Logger {
	verbose, _ := cmd.Flags().GetBool("verbose")
	return logging.New(cmd.ErrOrStderr(), verbose)
}
