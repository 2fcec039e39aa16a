// Package supervisions re-extracts a split's supervision manifest from its
// namespaced cut-set so the labels carry the prefixed identifiers.
package supervisions

import (
	"context"
	"fmt"

	"github.com/kingrea/mtprep/internal/artifact"
	"github.com/kingrea/mtprep/internal/dataset"
	"github.com/kingrea/mtprep/internal/lhotse"
	"github.com/kingrea/mtprep/internal/stage"
)

const stageID = "supervisions"

// Stage writes <dataset>_supervisions_<split> from the namespaced cut-set.
type Stage struct {
	*stage.Base
}

// New constructs the re-extraction stage for one split.
func New(desc dataset.Descriptor, split string) *Stage {
	base := stage.NewBase(stage.Info{
		ID:          stageID,
		Name:        "Re-extract supervisions",
		Description: "Decomposes the namespaced cut-set into a supervision manifest.",
		Split:       split,
	})
	base.SetInputs(desc.Manifest(artifact.KindCutSet, split))
	base.SetOutputs(desc.Manifest(artifact.KindSupervisions, split))
	return &Stage{Base: &base}
}

// Run decomposes the cut-set.
func (s *Stage) Run(ctx context.Context, sc *stage.Context) (stage.Result, error) {
	if err := sc.Validate(stageID); err != nil {
		return stage.Result{Status: stage.StatusFailed}, err
	}
	cuts, err := lhotse.ReadCuts(sc.Store.Path(s.Inputs()[0]))
	if err != nil {
		return stage.Result{Status: stage.StatusFailed}, fmt.Errorf("%s: %w", stageID, err)
	}
	if err := ctx.Err(); err != nil {
		return stage.Result{Status: stage.StatusFailed}, err
	}
	sups := lhotse.Decompose(cuts)
	if err := lhotse.WriteSupervisions(sc.Store.Path(s.Outputs()[0]), sups); err != nil {
		return stage.Result{Status: stage.StatusFailed}, fmt.Errorf("%s: %w", stageID, err)
	}
	return stage.Result{Status: stage.StatusCompleted, Message: fmt.Sprintf("%d supervisions", len(sups))}, nil
}
