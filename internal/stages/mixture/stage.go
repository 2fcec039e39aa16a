// Package mixture synthesises overlapped multi-speaker mixtures from the
// namespaced single-speaker cut-sets of the dependency dataset.
package mixture

import (
	"context"
	"fmt"

	"github.com/kingrea/mtprep/internal/artifact"
	"github.com/kingrea/mtprep/internal/config"
	"github.com/kingrea/mtprep/internal/dataset"
	"github.com/kingrea/mtprep/internal/lhotse"
	"github.com/kingrea/mtprep/internal/stage"
)

const stageID = "mixture"

// Stage writes the unprefixed mixture cut-set of one split.
type Stage struct {
	*stage.Base
	desc  dataset.Descriptor
	split string
	opts  lhotse.MixOptions
}

// New constructs the mixture stage. source is the dependency dataset and
// sourceSplit the split mixtures are drawn from.
func New(desc, source dataset.Descriptor, split, sourceSplit string, opts lhotse.MixOptions) *Stage {
	base := stage.NewBase(stage.Info{
		ID:          stageID,
		Name:        "Synthesise mixtures",
		Description: fmt.Sprintf("Mixes %d-speaker overlaps from %s %s.", opts.NumSpeakers, source.Name, sourceSplit),
		Split:       split,
	})
	base.SetInputs(source.Manifest(artifact.KindCutSet, sourceSplit))
	base.SetOutputs(desc.Manifest(artifact.KindCutSetUnprefixed, split))
	return &Stage{Base: &base, desc: desc, split: split, opts: opts}
}

// Options derives mixture options from the run configuration.
func Options(cfg *config.Config) lhotse.MixOptions {
	opts := lhotse.DefaultMixOptions()
	m := cfg.Project.Mixtures
	opts.NumMixtures = m.PerSplit
	opts.NumSpeakers = m.Speakers
	opts.AllowedPause = m.AllowedPause
	opts.Seed = m.Seed
	opts.MaxLen = float64(cfg.Project.MaxSegmentDuration)
	return opts
}

// IsComplete accepts the namespaced cut-set as well, like cut-set building.
func (s *Stage) IsComplete(sc *stage.Context) (bool, error) {
	for _, kind := range []artifact.Kind{artifact.KindCutSetUnprefixed, artifact.KindCutSet} {
		ok, err := sc.Store.Exists(s.desc.Manifest(kind, s.split))
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

// Run generates the mixtures.
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
	mixtures, err := lhotse.Mix(cuts, s.opts)
	if err != nil {
		return stage.Result{Status: stage.StatusFailed}, fmt.Errorf("%s: %w", stageID, err)
	}
	if err := lhotse.WriteCuts(sc.Store.Path(s.Outputs()[0]), mixtures); err != nil {
		return stage.Result{Status: stage.StatusFailed}, fmt.Errorf("%s: %w", stageID, err)
	}
	return stage.Result{Status: stage.StatusCompleted, Message: fmt.Sprintf("%d mixtures", len(mixtures))}, nil
}
