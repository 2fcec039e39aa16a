// Package namespace prefixes every identifier of a split's cut-set with the
// dataset's microphone-variant tag and cleans up the inputs it supersedes.
package namespace

import (
	"context"
	"fmt"

	"github.com/kingrea/mtprep/internal/artifact"
	"github.com/kingrea/mtprep/internal/dataset"
	"github.com/kingrea/mtprep/internal/lhotse"
	"github.com/kingrea/mtprep/internal/stage"
)

const stageID = "namespace"

// Stage turns cutset_unprefixed into the canonical cutset.
type Stage struct {
	*stage.Base
	desc  dataset.Descriptor
	split string
}

// New constructs the namespacing stage for one split.
func New(desc dataset.Descriptor, split string) *Stage {
	base := stage.NewBase(stage.Info{
		ID:          stageID,
		Name:        "Namespace identifiers",
		Description: "Prefixes identifiers with the microphone-variant tag.",
		Split:       split,
	})
	base.SetInputs(desc.Manifest(artifact.KindCutSetUnprefixed, split))
	base.SetOutputs(desc.Manifest(artifact.KindCutSet, split))
	return &Stage{Base: &base, desc: desc, split: split}
}

// IsComplete requires the canonical cut-set and a finished cleanup. A leftover
// temporary means a previous run stopped mid-cleanup.
func (s *Stage) IsComplete(sc *stage.Context) (bool, error) {
	done, err := sc.Store.Exists(s.Outputs()[0])
	if err != nil || !done {
		return false, err
	}
	leftover, err := sc.Store.Exists(s.Inputs()[0])
	if err != nil {
		return false, err
	}
	return !leftover, nil
}

// Run prefixes the cut-set unless an earlier run already wrote it, then
// deletes the raw supervisions and finally the temporary cut-set. The order
// guarantees the supervisions path never holds raw labels once the temporary
// is gone.
func (s *Stage) Run(ctx context.Context, sc *stage.Context) (stage.Result, error) {
	if err := sc.Validate(stageID); err != nil {
		return stage.Result{Status: stage.StatusFailed}, err
	}
	in, out := s.Inputs()[0], s.Outputs()[0]
	written, err := sc.Store.Exists(out)
	if err != nil {
		return stage.Result{Status: stage.StatusFailed}, fmt.Errorf("%s: %w", stageID, err)
	}
	msg := "cleanup only"
	if !written {
		cuts, err := lhotse.ReadCuts(sc.Store.Path(in))
		if err != nil {
			return stage.Result{Status: stage.StatusFailed}, fmt.Errorf("%s: %w", stageID, err)
		}
		if err := ctx.Err(); err != nil {
			return stage.Result{Status: stage.StatusFailed}, err
		}
		prefixed := lhotse.Prefix(cuts, s.desc.Tag())
		if err := lhotse.WriteCuts(sc.Store.Path(out), prefixed); err != nil {
			return stage.Result{Status: stage.StatusFailed}, fmt.Errorf("%s: %w", stageID, err)
		}
		msg = fmt.Sprintf("%d cuts tagged %s", len(prefixed), s.desc.Tag())
	}
	if err := sc.Store.Remove(s.desc.Manifest(artifact.KindSupervisions, s.split)); err != nil {
		return stage.Result{Status: stage.StatusFailed}, fmt.Errorf("%s: %w", stageID, err)
	}
	if err := sc.Store.Remove(in); err != nil {
		return stage.Result{Status: stage.StatusFailed}, fmt.Errorf("%s: %w", stageID, err)
	}
	return stage.Result{Status: stage.StatusCompleted, Message: msg}, nil
}
