package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/kingrea/mtprep/internal/logging"
	"github.com/kingrea/mtprep/internal/metrics"
)

// LocalRunner executes commands on the host with exec.CommandContext.
type LocalRunner struct {
	defaultTimeout time.Duration
	logger         *logging.Logger
}

// NewLocalRunner creates a runner. A zero timeout means commands run until
// they finish or the context is cancelled.
func NewLocalRunner(defaultTimeout time.Duration, logger *logging.Logger) *LocalRunner {
	return &LocalRunner{defaultTimeout: defaultTimeout, logger: logger}
}

// Run executes req and returns its captured output. A non-zero exit status is
// returned as *ExitError.
func (r *LocalRunner) Run(ctx context.Context, req Request) (Response, error) {
	binaryPath, err := exec.LookPath(req.Command)
	if err != nil {
		metrics.RecordCommand(commandLabel(req.Command), "failed")
		return Response{}, fmt.Errorf("command: resolve %s: %w", req.Command, err)
	}

	timeout := req.Timeout
	if timeout == 0 {
		timeout = r.defaultTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, binaryPath, req.Args...)
	cmd.Env = append(os.Environ(), envSlice(req.Env)...)
	if req.WorkingDir != "" {
		cmd.Dir = req.WorkingDir
	}
	// Own process group so cancellation reaches worker processes the tool forks.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Debug("exec %s", req)
	start := time.Now()
	err = cmd.Run()
	resp := Response{
		ExitCode: exitCode(err),
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}
	label := commandLabel(req.Command)

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		metrics.RecordCommand(label, "timeout")
		return resp, &ExitError{Command: req.String(), ExitCode: resp.ExitCode, Stderr: tail(resp.Stderr, stderrTailLines), Timeout: timeout}
	}
	if err != nil {
		metrics.RecordCommand(label, "failed")
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return resp, &ExitError{Command: req.String(), ExitCode: resp.ExitCode, Stderr: tail(resp.Stderr, stderrTailLines)}
		}
		return resp, fmt.Errorf("command: run %s: %w", req, err)
	}
	metrics.RecordCommand(label, "success")
	r.logger.Debug("exec %s finished in %s", label, resp.Duration.Round(time.Millisecond))
	return resp, nil
}

func envSlice(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

func commandLabel(command string) string {
	return filepath.Base(command)
}
