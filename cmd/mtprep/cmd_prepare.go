package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/kingrea/mtprep/internal/config"
	"github.com/kingrea/mtprep/internal/metrics"
	"github.com/kingrea/mtprep/internal/orchestrator"
)

type prepareOptions struct {
	datasets string
	extract  bool
}

func addPrepareFlags(cmd *cobra.Command, opts *prepareOptions) {
	cmd.Flags().StringVar(&opts.datasets, "datasets", "all", "comma separated dataset identifiers, or all")
	cmd.Flags().BoolVar(&opts.extract, "extract-supervisions", false, "export benchmark supervisions and STM files after preparation")
	addCategoryFlags(cmd)
}

func addCategoryFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("single-mic-only", false, "only process single-microphone datasets")
	cmd.Flags().Bool("multi-mic-only", false, "only process multi-microphone datasets")
	cmd.MarkFlagsMutuallyExclusive("single-mic-only", "multi-mic-only")
}

func newPrepareCmd() *cobra.Command {
	opts := &prepareOptions{}
	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Prepare datasets (the default command)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrepare(cmd, opts)
		},
	}
	addPrepareFlags(cmd, opts)
	return cmd
}

func runPrepare(cmd *cobra.Command, opts *prepareOptions) error {
	rt, err := newRuntime(cmd, config.Options{ExtractSupervisions: opts.extract})
	if err != nil {
		return err
	}
	defer rt.logger.Close()

	single, multi := categoryFlags(cmd)
	req := orchestrator.Request{
		Datasets:      orchestrator.ParseDatasets(opts.datasets),
		SingleMicOnly: single,
		MultiMicOnly:  multi,
	}
	summary, err := rt.dispatcher.Dispatch(cmd.Context(), req)
	if len(summary.Categories) > 0 {
		if werr := metrics.WriteTextfile(rt.cfg.MetricsPath()); werr != nil {
			rt.logger.Warn("metrics: %v", werr)
		}
	}
	if err != nil {
		return err
	}
	rt.logger.Info("all requested datasets are prepared (%s)", summary.Duration.Round(time.Millisecond))
	return nil
}
