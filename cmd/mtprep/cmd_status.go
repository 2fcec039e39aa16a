package main

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/kingrea/mtprep/internal/config"
	"github.com/kingrea/mtprep/internal/logging"
	"github.com/kingrea/mtprep/internal/orchestrator"
	"github.com/kingrea/mtprep/internal/tui"
)

func newStatusCmd() *cobra.Command {
	var (
		datasets string
		watch    bool
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show which stages are complete for each dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd, config.Options{})
			if err != nil {
				return err
			}
			single, multi := categoryFlags(cmd)
			req := orchestrator.Request{
				Datasets:      orchestrator.ParseDatasets(datasets),
				SingleMicOnly: single,
				MultiMicOnly:  multi,
			}
			if !watch {
				statuses, err := rt.dispatcher.Statuses(req)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), tui.RenderTable(statuses))
				return err
			}
			poll := func() tui.Snapshot {
				statuses, err := rt.dispatcher.Statuses(req)
				lines, _ := logging.Tail(rt.cfg.LogPath(), tui.LogLines)
				return tui.Snapshot{Statuses: statuses, Log: lines, Err: err, Taken: time.Now()}
			}
			p := tea.NewProgram(tui.NewApp(poll, tui.WithRefreshInterval(interval)), tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			_, err = p.Run()
			return err
		},
	}
	cmd.Flags().StringVar(&datasets, "datasets", "all", "comma separated dataset identifiers, or all")
	cmd.Flags().BoolVar(&watch, "watch", false, "keep refreshing in an interactive view")
	cmd.Flags().DurationVar(&interval, "interval", 3*time.Second, "refresh interval with --watch")
	addCategoryFlags(cmd)
	return cmd
}
