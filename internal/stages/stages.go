// Package stages binds each dataset family to its ordered stage chain.
package stages

import (
	"fmt"

	"github.com/kingrea/mtprep/internal/config"
	"github.com/kingrea/mtprep/internal/dataset"
	"github.com/kingrea/mtprep/internal/stage"
	"github.com/kingrea/mtprep/internal/stages/acquire"
	"github.com/kingrea/mtprep/internal/stages/cutset"
	"github.com/kingrea/mtprep/internal/stages/mixture"
	"github.com/kingrea/mtprep/internal/stages/namespace"
	"github.com/kingrea/mtprep/internal/stages/supervisions"
	"github.com/kingrea/mtprep/internal/stages/window"
)

// Binding builds the stage chain of one family.
type Binding func(reg *dataset.Registry, desc dataset.Descriptor, cfg *config.Config) ([]stage.Stage, error)

var bindings = map[dataset.Family]Binding{
	dataset.FamilyAMI:         corpusChain,
	dataset.FamilyNotsofar:    corpusChain,
	dataset.FamilyLibriSpeech: corpusChain,
	dataset.FamilyLibriMix:    mixtureChain,
}

// Build returns the ordered stages of desc. Stages run stage-major: every
// split finishes one step before any split starts the next.
func Build(reg *dataset.Registry, desc dataset.Descriptor, cfg *config.Config) ([]stage.Stage, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	bind, ok := bindings[desc.Family]
	if !ok {
		return nil, fmt.Errorf("stages: no binding for family %s", desc.Family)
	}
	return bind(reg, desc, cfg)
}

// corpusChain is acquire, cut-set, namespace, re-extraction and windowing.
func corpusChain(_ *dataset.Registry, desc dataset.Descriptor, cfg *config.Config) ([]stage.Stage, error) {
	chain := []stage.Stage{acquire.New(desc)}
	for _, split := range desc.Splits {
		chain = append(chain, cutset.New(desc, split))
	}
	chain = append(chain, tail(desc, cfg)...)
	return chain, nil
}

// mixtureChain replaces acquisition and cut-set building with synthetic
// mixing over the dependency's namespaced cut-sets.
func mixtureChain(reg *dataset.Registry, desc dataset.Descriptor, cfg *config.Config) ([]stage.Stage, error) {
	if reg == nil {
		return nil, fmt.Errorf("stages: registry is required for %s", desc.Name)
	}
	source, ok, err := reg.DependencyOf(desc.Name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("stages: %s has no source dataset to mix", desc.Name)
	}
	opts := mixture.Options(cfg)
	var chain []stage.Stage
	for _, split := range desc.Splits {
		sourceSplit, ok := desc.SourceSplits[split]
		if !ok {
			return nil, fmt.Errorf("stages: %s split %s has no source split", desc.Name, split)
		}
		chain = append(chain, mixture.New(desc, source, split, sourceSplit, opts))
	}
	chain = append(chain, tail(desc, cfg)...)
	return chain, nil
}

func tail(desc dataset.Descriptor, cfg *config.Config) []stage.Stage {
	var chain []stage.Stage
	for _, split := range desc.Splits {
		chain = append(chain, namespace.New(desc, split))
	}
	for _, split := range desc.Splits {
		chain = append(chain, supervisions.New(desc, split))
	}
	for _, split := range desc.Splits {
		if desc.Windowed(split) {
			chain = append(chain, window.New(desc, split, cfg.Project.MaxSegmentDuration))
		}
	}
	return chain
}
