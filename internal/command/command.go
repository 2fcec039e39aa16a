// Package command runs the external corpus and windowing tools.
package command

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Request describes one external command invocation.
type Request struct {
	// Command is the binary name or path.
	Command string
	Args    []string
	// Env holds extra variables layered over the current environment.
	Env        map[string]string
	WorkingDir string
	// Timeout overrides the runner default; zero uses the default.
	Timeout time.Duration
}

// String renders the command line for logs.
func (r Request) String() string {
	return strings.TrimSpace(r.Command + " " + strings.Join(r.Args, " "))
}

// Response captures the outcome of a command.
type Response struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Runner executes external commands. Stages depend on this interface so tests
// can substitute a fake.
type Runner interface {
	Run(ctx context.Context, req Request) (Response, error)
}

// ExitError reports a command that ran but failed.
type ExitError struct {
	Command  string
	ExitCode int
	// Stderr holds the tail of the command's error output.
	Stderr string
	// Timeout is set when the command was killed after its deadline.
	Timeout time.Duration
}

func (e *ExitError) Error() string {
	var b strings.Builder
	if e.Timeout > 0 {
		fmt.Fprintf(&b, "command: %s timed out after %s", e.Command, e.Timeout)
	} else {
		fmt.Fprintf(&b, "command: %s exited with code %d", e.Command, e.ExitCode)
	}
	if e.Stderr != "" {
		b.WriteString(": ")
		b.WriteString(e.Stderr)
	}
	return b.String()
}

const stderrTailLines = 20

// tail keeps the last n non-empty lines of output.
func tail(output string, n int) string {
	lines := strings.Split(strings.TrimRight(output, "\n"), "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			kept = append(kept, line)
		}
	}
	if len(kept) > n {
		kept = kept[len(kept)-n:]
	}
	return strings.Join(kept, "\n")
}
