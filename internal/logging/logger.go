package logging

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Level represents the severity of a log entry.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Rotation configures the rotating log file.
type Rotation struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Logger writes level-prefixed lines to a diagnostic stream and, once a file
// is attached, timestamped lines tagged with the run ID to the run log so
// users can inspect failures after the terminal is gone.
type Logger struct {
	mu      sync.Mutex
	console io.Writer
	file    io.WriteCloser
	verbose bool
	runID   string
	styles  map[Level]lipgloss.Style
	now     func() time.Time
}

// New creates a logger writing to console. Debug lines are dropped unless
// verbose is set.
func New(console io.Writer, verbose bool) *Logger {
	if console == nil {
		console = io.Discard
	}
	r := lipgloss.NewRenderer(console)
	return &Logger{
		console: console,
		verbose: verbose,
		runID:   uuid.NewString(),
		styles: map[Level]lipgloss.Style{
			LevelDebug: r.NewStyle().Foreground(lipgloss.Color("8")),
			LevelInfo:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
			LevelWarn:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("11")),
			LevelError: r.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		},
		now: time.Now,
	}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return New(io.Discard, false)
}

// AttachFile starts mirroring every line, debug included, to a rotating file.
func (l *Logger) AttachFile(path string, rot Rotation) error {
	if l == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("logging: ensure log dir: %w", err)
	}
	writer := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    rot.MaxSizeMB,
		MaxBackups: rot.MaxBackups,
		MaxAge:     rot.MaxAgeDays,
		Compress:   rot.Compress,
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		_ = l.file.Close()
	}
	l.file = writer
	return nil
}

// Close releases the file handle.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// RunID identifies this invocation in the log file.
func (l *Logger) RunID() string {
	if l == nil {
		return ""
	}
	return l.runID
}

// Verbose reports whether debug lines are shown.
func (l *Logger) Verbose() bool {
	return l != nil && l.verbose
}

// Debug logs a diagnostic line shown only in verbose mode.
func (l *Logger) Debug(format string, args ...any) {
	l.log(LevelDebug, format, args...)
}

// Info logs progress.
func (l *Logger) Info(format string, args ...any) {
	l.log(LevelInfo, format, args...)
}

// Warn logs a recoverable problem.
func (l *Logger) Warn(format string, args ...any) {
	l.log(LevelWarn, format, args...)
}

// Error logs a failure.
func (l *Logger) Error(format string, args ...any) {
	l.log(LevelError, format, args...)
}

// Printf writes an informational line.
func (l *Logger) Printf(format string, args ...any) {
	l.log(LevelInfo, format, args...)
}

func (l *Logger) log(level Level, format string, args ...any) {
	if l == nil {
		return
	}
	line := strings.TrimRight(fmt.Sprintf(format, args...), "\n")
	l.mu.Lock()
	defer l.mu.Unlock()
	if level != LevelDebug || l.verbose {
		prefix := l.styles[level].Render(string(level)) + strings.Repeat(" ", 5-len(level))
		fmt.Fprintf(l.console, "%s %s\n", prefix, line)
	}
	if l.file != nil {
		timestamp := l.now().UTC().Format(time.RFC3339)
		fmt.Fprintf(l.file, "[%s] %s %-5s %s\n", timestamp, l.runID, level, line)
	}
}

// Tail returns up to maxLines of the most recent lines of a log file.
func Tail(path string, maxLines int) ([]string, error) {
	if maxLines <= 0 {
		return nil, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if len(lines) > maxLines {
			lines = lines[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}
