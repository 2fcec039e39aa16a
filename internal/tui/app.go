// internal/tui/app.go
//
// The watch view for `mtprep status --watch`. It follows the Elm
// architecture bubbletea uses: a model holding the last snapshot, an Update
// reacting to ticks and keys, and a View rendering the snapshot.

package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/mtprep/internal/workflow/engine"
)

const (
	defaultRefreshInterval = 3 * time.Second

	// LogLines is how many trailing run log lines the view shows.
	LogLines = 8
)

// Snapshot is one poll of the root.
type Snapshot struct {
	Statuses []engine.DatasetStatus
	Log      []string
	Err      error
	Taken    time.Time
}

// SnapshotFunc polls the root. It must not write anything.
type SnapshotFunc func() Snapshot

// AppOption customizes App construction.
type AppOption func(*App)

// WithRefreshInterval overrides how often the root is polled.
func WithRefreshInterval(d time.Duration) AppOption {
	return func(a *App) {
		if d > 0 {
			a.interval = d
		}
	}
}

type snapshotMsg Snapshot

type tickMsg time.Time

// App is the bubbletea model of the watch view.
type App struct {
	poll     SnapshotFunc
	interval time.Duration
	spinner  spinner.Model
	progress progress.Model
	snapshot Snapshot
	loaded   bool
	width    int
	quitting bool
}

// NewApp returns a watch view polling poll.
func NewApp(poll SnapshotFunc, opts ...AppOption) *App {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = labelStylePending
	a := &App{
		poll:     poll,
		interval: defaultRefreshInterval,
		spinner:  s,
		progress: progress.New(progress.WithDefaultGradient()),
		width:    80,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.spinner.Tick, a.fetch())
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			a.quitting = true
			return a, tea.Quit
		case "r":
			return a, a.fetch()
		}
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.progress.Width = max(10, msg.Width-20)
	case snapshotMsg:
		a.snapshot = Snapshot(msg)
		a.loaded = true
		return a, a.schedule()
	case tickMsg:
		return a, a.fetch()
	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}
	return a, nil
}

// View implements tea.Model.
func (a *App) View() string {
	if a.quitting {
		return ""
	}
	title := headerStyle.Render("mtprep status")
	if !a.loaded {
		return lipgloss.JoinVertical(lipgloss.Left, title, a.spinner.View()+" reading manifests...")
	}
	sections := []string{title}
	if a.snapshot.Err != nil {
		sections = append(sections, labelStyleBlocked.Render(a.snapshot.Err.Error()))
	} else {
		sections = append(sections,
			RenderTable(a.snapshot.Statuses),
			a.progress.ViewAs(Progress(a.snapshot.Statuses)),
		)
	}
	sections = append(sections,
		headerStyle.Render("recent log"),
		renderLog(a.snapshot.Log, a.width),
		detailTextStyle.Render(a.spinner.View()+" updated "+a.snapshot.Taken.Format(time.TimeOnly)+" · r refresh · q quit"),
	)
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (a *App) fetch() tea.Cmd {
	poll := a.poll
	return func() tea.Msg {
		return snapshotMsg(poll())
	}
}

func (a *App) schedule() tea.Cmd {
	return tea.Tick(a.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
