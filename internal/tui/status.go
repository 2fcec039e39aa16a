package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/kingrea/mtprep/internal/workflow/engine"
)

var (
	labelStyleReady   = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	labelStylePending = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801")).Bold(true)
	labelStyleBlocked = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	labelStyleDefault = lipgloss.NewStyle().Foreground(lipgloss.Color("#CCCCCC"))
	headerStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF")).Padding(0, 1)
	cellStyle         = lipgloss.NewStyle().Padding(0, 1)
	detailTextStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0AEC0"))
)

// StatusLabel renders the completion of one dataset.
func StatusLabel(status engine.DatasetStatus) string {
	for _, st := range status.Stages {
		if st.Error != "" {
			return labelStyleBlocked.Render("error")
		}
	}
	switch {
	case status.Complete():
		return labelStyleReady.Render("ready")
	case status.Done() == 0:
		return labelStyleDefault.Render("not started")
	default:
		return labelStylePending.Render("partial")
	}
}

// PendingStages lists the labels of the incomplete stages.
func PendingStages(status engine.DatasetStatus) []string {
	var out []string
	for _, st := range status.Stages {
		if st.Complete {
			continue
		}
		label := st.ID
		if st.Split != "" {
			label += "[" + st.Split + "]"
		}
		out = append(out, label)
	}
	return out
}

// RenderTable renders one row per dataset with its stage completion.
func RenderTable(statuses []engine.DatasetStatus) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(detailTextStyle).
		Headers("DATASET", "CATEGORY", "STAGES", "STATE", "NEXT").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, st := range statuses {
		next := "-"
		if pending := PendingStages(st); len(pending) > 0 {
			next = pending[0]
			if len(pending) > 1 {
				next += fmt.Sprintf(" (+%d)", len(pending)-1)
			}
		}
		t.Row(st.Dataset, st.Category, fmt.Sprintf("%d/%d", st.Done(), len(st.Stages)), StatusLabel(st), next)
	}
	return t.Render()
}

// Progress returns the fraction of complete stages across statuses.
func Progress(statuses []engine.DatasetStatus) float64 {
	var done, total int
	for _, st := range statuses {
		done += st.Done()
		total += len(st.Stages)
	}
	if total == 0 {
		return 0
	}
	return float64(done) / float64(total)
}

func renderLog(lines []string, width int) string {
	if len(lines) == 0 {
		return detailTextStyle.Render("no log output yet")
	}
	var b strings.Builder
	for i, line := range lines {
		if width > 4 && len(line) > width {
			line = line[:width-3] + "..."
		}
		b.WriteString(detailTextStyle.Render(line))
		if i < len(lines)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
