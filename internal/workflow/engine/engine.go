package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kingrea/mtprep/internal/artifact"
	"github.com/kingrea/mtprep/internal/config"
	"github.com/kingrea/mtprep/internal/dataset"
	"github.com/kingrea/mtprep/internal/metrics"
	"github.com/kingrea/mtprep/internal/stage"
	"github.com/kingrea/mtprep/internal/stages"
)

// StageError wraps the failure of one stage.
type StageError struct {
	Dataset string
	Stage   string
	Split   string
	Err     error
}

func (e *StageError) Error() string {
	label := e.Stage
	if e.Split != "" {
		label += "[" + e.Split + "]"
	}
	return fmt.Sprintf("engine: %s: stage %s failed: %v", e.Dataset, label, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// DependencyError reports a dependency whose terminal manifests are missing.
type DependencyError struct {
	Dataset    string
	Dependency string
	Missing    []artifact.ManifestRef
}

func (e *DependencyError) Error() string {
	names := make([]string, len(e.Missing))
	for i, ref := range e.Missing {
		names[i] = ref.String()
	}
	return fmt.Sprintf("engine: %s requires %s, missing %s", e.Dataset, e.Dependency, strings.Join(names, ", "))
}

// Builder produces the stage chain of a dataset.
type Builder func(reg *dataset.Registry, desc dataset.Descriptor, cfg *config.Config) ([]stage.Stage, error)

// Executor runs dataset pipelines against a shared stage context.
type Executor struct {
	sc       *stage.Context
	registry *dataset.Registry
	build    Builder
	clock    func() time.Time
}

// Option customizes the executor instance.
type Option func(*Executor)

// WithClock injects a deterministic clock (primarily for tests).
func WithClock(clock func() time.Time) Option {
	return func(e *Executor) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithBuilder replaces the family stage bindings (primarily for tests).
func WithBuilder(build Builder) Option {
	return func(e *Executor) {
		if build != nil {
			e.build = build
		}
	}
}

// New wires an executor to the stage context and dataset registry.
func New(sc *stage.Context, registry *dataset.Registry, opts ...Option) (*Executor, error) {
	if err := sc.Validate("engine"); err != nil {
		return nil, err
	}
	if registry == nil {
		return nil, fmt.Errorf("engine: dataset registry is required")
	}
	e := &Executor{
		sc:       sc,
		registry: registry,
		build:    stages.Build,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Outcome records what happened to one stage.
type Outcome struct {
	Info     stage.Info
	Skipped  bool
	Result   stage.Result
	Duration time.Duration
}

// Report summarises one dataset run.
type Report struct {
	Dataset  string
	Outcomes []Outcome
}

// Executed counts the stages that actually ran.
func (r Report) Executed() int {
	n := 0
	for _, o := range r.Outcomes {
		if !o.Skipped {
			n++
		}
	}
	return n
}

// RunDataset checks the dependency of desc, builds its stage chain and runs
// it.
func (e *Executor) RunDataset(ctx context.Context, desc dataset.Descriptor) (Report, error) {
	if err := desc.Validate(); err != nil {
		return Report{Dataset: desc.Name}, err
	}
	if err := e.checkDependency(desc); err != nil {
		return Report{Dataset: desc.Name}, err
	}
	chain, err := e.build(e.registry, desc, e.sc.Config)
	if err != nil {
		return Report{Dataset: desc.Name}, fmt.Errorf("engine: %s: %w", desc.Name, err)
	}
	return e.Run(ctx, desc, chain)
}

// Run executes chain in order. Complete stages are skipped; a stage that
// fails, or leaves a declared output missing, ends the run with *StageError.
func (e *Executor) Run(ctx context.Context, desc dataset.Descriptor, chain []stage.Stage) (Report, error) {
	report := Report{Dataset: desc.Name}
	log := e.sc.Logger
	for _, st := range chain {
		info := st.Info()
		fail := func(err error) (Report, error) {
			metrics.RecordStage(desc.Name, info.ID, metrics.StatusFailed)
			log.Error("%s: %s failed: %v", desc.Name, info.Label(), err)
			return report, &StageError{Dataset: desc.Name, Stage: info.ID, Split: info.Split, Err: err}
		}
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		if err := info.Validate(); err != nil {
			return fail(err)
		}
		complete, err := st.IsComplete(e.sc)
		if err != nil {
			return fail(err)
		}
		if complete {
			log.Info("%s: %s already complete, skipping", desc.Name, info.Label())
			metrics.RecordStage(desc.Name, info.ID, metrics.StatusSkipped)
			report.Outcomes = append(report.Outcomes, Outcome{Info: info, Skipped: true})
			continue
		}
		if missing, err := e.sc.Store.Missing(st.Inputs()...); err != nil {
			return fail(err)
		} else if len(missing) > 0 {
			return fail(fmt.Errorf("missing input %s", missing[0]))
		}

		log.Info("%s: running %s", desc.Name, info.Label())
		start := e.clock()
		result, err := st.Run(ctx, e.sc)
		elapsed := e.clock().Sub(start)
		if err != nil {
			return fail(err)
		}
		if result.Status == stage.StatusFailed {
			return fail(fmt.Errorf("%s", firstNonEmpty(result.Message, "stage reported failure")))
		}
		if err := e.verify(st); err != nil {
			return fail(err)
		}
		metrics.RecordStage(desc.Name, info.ID, metrics.StatusSucceeded)
		metrics.RecordStageDuration(desc.Name, info.ID, elapsed.Seconds())
		if result.Message != "" {
			log.Debug("%s: %s: %s", desc.Name, info.Label(), result.Message)
		}
		report.Outcomes = append(report.Outcomes, Outcome{Info: info, Result: result, Duration: elapsed})
	}
	return report, nil
}

func (e *Executor) verify(st stage.Stage) error {
	outputs := st.Outputs()
	if v, ok := st.(stage.Verifier); ok {
		refs, err := v.Verify(e.sc)
		if err != nil {
			return err
		}
		outputs = refs
	}
	for _, ref := range outputs {
		result, err := e.sc.Store.Check(ref)
		if err != nil {
			return err
		}
		switch result.State {
		case artifact.StateReady:
		case artifact.StateMissing:
			return fmt.Errorf("output %s was not produced", ref)
		default:
			return fmt.Errorf("output %s is %s: %v", ref, result.State, result.Err)
		}
	}
	return nil
}

func (e *Executor) checkDependency(desc dataset.Descriptor) error {
	dep, ok, err := e.registry.DependencyOf(desc.Name)
	if err != nil || !ok {
		return err
	}
	missing, err := e.sc.Store.Missing(dep.Terminal()...)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return &DependencyError{Dataset: desc.Name, Dependency: dep.Name, Missing: missing}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
