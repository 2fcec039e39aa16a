// Package cutset pairs the raw recordings and supervisions of one split into
// the temporary, not yet namespaced cut-set.
package cutset

import (
	"context"
	"fmt"

	"github.com/kingrea/mtprep/internal/artifact"
	"github.com/kingrea/mtprep/internal/dataset"
	"github.com/kingrea/mtprep/internal/lhotse"
	"github.com/kingrea/mtprep/internal/stage"
)

const stageID = "cutset"

// Stage builds <dataset>_cutset_unprefixed_<split>.
type Stage struct {
	*stage.Base
	desc  dataset.Descriptor
	split string
}

// New constructs the cut-set stage for one split.
func New(desc dataset.Descriptor, split string) *Stage {
	base := stage.NewBase(stage.Info{
		ID:          stageID,
		Name:        "Build cut-set",
		Description: "Combines recordings and supervisions into a cut-set.",
		Split:       split,
	})
	base.SetInputs(
		desc.Manifest(artifact.KindRecordings, split),
		desc.Manifest(artifact.KindSupervisions, split),
	)
	base.SetOutputs(desc.Manifest(artifact.KindCutSetUnprefixed, split))
	return &Stage{Base: &base, desc: desc, split: split}
}

// IsComplete also accepts the namespaced cut-set, since namespacing consumes
// the temporary output.
func (s *Stage) IsComplete(sc *stage.Context) (bool, error) {
	for _, kind := range []artifact.Kind{artifact.KindCutSetUnprefixed, artifact.KindCutSet} {
		ok, err := sc.Store.Exists(s.desc.Manifest(kind, s.split))
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

// Run writes the cut-set.
func (s *Stage) Run(ctx context.Context, sc *stage.Context) (stage.Result, error) {
	if err := sc.Validate(stageID); err != nil {
		return stage.Result{Status: stage.StatusFailed}, err
	}
	inputs := s.Inputs()
	recordings, err := lhotse.ReadRecordings(sc.Store.Path(inputs[0]))
	if err != nil {
		return stage.Result{Status: stage.StatusFailed}, fmt.Errorf("%s: %w", stageID, err)
	}
	supervisions, err := lhotse.ReadSupervisions(sc.Store.Path(inputs[1]))
	if err != nil {
		return stage.Result{Status: stage.StatusFailed}, fmt.Errorf("%s: %w", stageID, err)
	}
	if err := ctx.Err(); err != nil {
		return stage.Result{Status: stage.StatusFailed}, err
	}
	cuts := lhotse.BuildCutSet(recordings, supervisions)
	if len(cuts) == 0 {
		return stage.Result{Status: stage.StatusFailed}, fmt.Errorf("%s: %s has no supervised recordings", stageID, inputs[0])
	}
	out := s.Outputs()[0]
	if err := lhotse.WriteCuts(sc.Store.Path(out), cuts); err != nil {
		return stage.Result{Status: stage.StatusFailed}, fmt.Errorf("%s: %w", stageID, err)
	}
	return stage.Result{Status: stage.StatusCompleted, Message: fmt.Sprintf("%d cuts", len(cuts))}, nil
}
