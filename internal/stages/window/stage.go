// Package window splits a long-form split into segments of bounded length
// with the external alignment-aware windowing script.
package window

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/kingrea/mtprep/internal/artifact"
	"github.com/kingrea/mtprep/internal/command"
	"github.com/kingrea/mtprep/internal/dataset"
	"github.com/kingrea/mtprep/internal/stage"
)

const (
	stageID = "window"

	// Script is the windowing helper looked up in the scripts directory.
	Script = "pre_segment_using_alignments.py"
)

// Stage writes <dataset>_cutset_<N>s_<split>.
type Stage struct {
	*stage.Base
	maxSeconds int
}

// New constructs the windowing stage for one split.
func New(desc dataset.Descriptor, split string, maxSeconds int) *Stage {
	base := stage.NewBase(stage.Info{
		ID:          stageID,
		Name:        "Window long recordings",
		Description: fmt.Sprintf("Splits recordings into segments of at most %ds.", maxSeconds),
		Split:       split,
	})
	base.SetInputs(desc.Manifest(artifact.KindCutSet, split))
	base.SetOutputs(desc.Manifest(artifact.WindowedKind(maxSeconds), split))
	return &Stage{Base: &base, maxSeconds: maxSeconds}
}

// Run invokes the script against a temporary output and renames it into place
// once the script succeeds.
func (s *Stage) Run(ctx context.Context, sc *stage.Context) (stage.Result, error) {
	if err := sc.Validate(stageID); err != nil {
		return stage.Result{Status: stage.StatusFailed}, err
	}
	if sc.Runner == nil {
		return stage.Result{Status: stage.StatusFailed}, fmt.Errorf("%s: command runner is required", stageID)
	}
	in := sc.Store.Path(s.Inputs()[0])
	out := sc.Store.Path(s.Outputs()[0])
	partial := filepath.Join(filepath.Dir(out), ".partial-"+filepath.Base(out))
	defer os.Remove(partial)

	req := command.Request{
		Command: sc.Config.Project.PythonBin,
		Args: []string{
			sc.Config.ScriptPath(Script),
			"--input", in,
			"--output", partial,
			"--max_len", strconv.Itoa(s.maxSeconds),
			"--num_jobs", strconv.Itoa(sc.Config.Project.NumJobs),
		},
	}
	sc.Logger.Info("%s: %s", stageID, req)
	if _, err := sc.Runner.Run(ctx, req); err != nil {
		return stage.Result{Status: stage.StatusFailed}, fmt.Errorf("%s: %w", stageID, err)
	}
	if err := os.Rename(partial, out); err != nil {
		return stage.Result{Status: stage.StatusFailed}, fmt.Errorf("%s: publish %s: %w", stageID, out, err)
	}
	return stage.Result{Status: stage.StatusCompleted}, nil
}
