package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/kingrea/mtprep/internal/dataset"
)

func newListCmd() *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the supported datasets",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := dataset.Default()
			descs := reg.All()
			if category != "" {
				c, err := dataset.ParseCategory(category)
				if err != nil {
					return err
				}
				descs = reg.List(c)
			}
			t := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("DATASET", "CATEGORY", "VARIANT", "SPLITS", "DEPENDS ON")
			for _, desc := range descs {
				dep := desc.DependsOn
				if dep == "" {
					dep = "-"
				}
				t.Row(desc.Name, string(desc.Category), desc.Tag(), strings.Join(desc.Splits, ","), dep)
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return err
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "only list datasets of this category (single-mic or multi-mic)")
	return cmd
}
