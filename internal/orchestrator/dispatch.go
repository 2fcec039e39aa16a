package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kingrea/mtprep/internal/dataset"
	"github.com/kingrea/mtprep/internal/export"
	"github.com/kingrea/mtprep/internal/lock"
	"github.com/kingrea/mtprep/internal/logging"
	"github.com/kingrea/mtprep/internal/metrics"
	"github.com/kingrea/mtprep/internal/stage"
	"github.com/kingrea/mtprep/internal/workflow/engine"
	"github.com/kingrea/mtprep/internal/workflow/resolver"
)

// Dispatcher runs requests against one preparation root.
type Dispatcher struct {
	sc       *stage.Context
	registry *dataset.Registry
	opts     []engine.Option
	now      func() time.Time
}

// Option customizes the dispatcher.
type Option func(*Dispatcher)

// WithEngineOptions forwards options to every executor the dispatcher
// creates.
func WithEngineOptions(opts ...engine.Option) Option {
	return func(d *Dispatcher) {
		d.opts = append(d.opts, opts...)
	}
}

// New creates a dispatcher. Nothing is written to the root until Dispatch
// has validated a request.
func New(sc *stage.Context, registry *dataset.Registry, opts ...Option) (*Dispatcher, error) {
	if err := sc.Validate("orchestrator"); err != nil {
		return nil, err
	}
	if registry == nil {
		return nil, fmt.Errorf("orchestrator: dataset registry is required")
	}
	d := &Dispatcher{sc: sc, registry: registry, now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// CategoryReport summarises one category run.
type CategoryReport struct {
	Category dataset.Category
	Plan     []string
	Reports  []engine.Report
	Export   *export.Result
	Err      error
}

// Summary collects the category reports of a dispatch.
type Summary struct {
	Categories []CategoryReport
	Duration   time.Duration
}

// Dispatch validates req, prepares the root layout, takes the root lock,
// attaches the run log and runs every non-empty category in dispatch order.
// A failing category does not stop the next one; the errors are joined.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (Summary, error) {
	var summary Summary
	parts, err := req.Partition(d.registry)
	if err != nil {
		return summary, err
	}
	cfg := d.sc.Config
	if err := cfg.EnsureLayout(); err != nil {
		return summary, fmt.Errorf("orchestrator: %w", err)
	}
	lk, err := lock.Acquire(cfg.LockPath())
	if err != nil {
		return summary, err
	}
	defer lk.Release()

	log := d.sc.Logger
	rot := cfg.Project.Log
	if err := log.AttachFile(cfg.LogPath(), logging.Rotation{
		MaxSizeMB:  rot.MaxSizeMB,
		MaxBackups: rot.MaxBackups,
		MaxAgeDays: rot.MaxAgeDays,
		Compress:   rot.Compress,
	}); err != nil {
		return summary, err
	}
	log.Debug("run %s: root %s", log.RunID(), cfg.Root)

	start := d.now()
	var errs []error
	for _, category := range dataset.Categories() {
		names := parts[category]
		if len(names) == 0 {
			continue
		}
		report := d.RunCategory(ctx, category, names)
		summary.Categories = append(summary.Categories, report)
		if report.Err != nil {
			log.Error("%s: %v", category, report.Err)
			errs = append(errs, report.Err)
		}
	}
	summary.Duration = d.now().Sub(start)
	return summary, errors.Join(errs...)
}

// RunCategory resolves names within category, prepares each dataset of the
// plan in order and stops at the first failure. When supervision extraction
// is enabled and every dataset succeeded, the category's exports are
// aggregated.
func (d *Dispatcher) RunCategory(ctx context.Context, category dataset.Category, names []string) CategoryReport {
	report := CategoryReport{Category: category}
	log := d.sc.Logger

	plan, err := resolver.Resolve(d.registry, names, category)
	if err != nil {
		report.Err = err
		return report
	}
	report.Plan = plan.Names()
	log.Info("%s: plan %v", category, report.Plan)

	exec, err := engine.New(d.sc, d.registry, d.opts...)
	if err != nil {
		report.Err = err
		return report
	}
	for _, desc := range plan {
		log.Info("%s: preparing %s", category, desc.Name)
		run, err := exec.RunDataset(ctx, desc)
		report.Reports = append(report.Reports, run)
		if err != nil {
			metrics.RecordDataset(string(category), desc.Name, metrics.StatusFailed)
			report.Err = err
			return report
		}
		status := metrics.StatusSucceeded
		if run.Executed() == 0 {
			status = metrics.StatusSkipped
		}
		metrics.RecordDataset(string(category), desc.Name, status)
		log.Info("%s: %s ready (%d of %d stages ran)", category, desc.Name, run.Executed(), len(run.Outcomes))
	}

	if !d.sc.Config.ExtractSupervisions {
		return report
	}
	m, err := export.MapFor(d.registry, d.sc.Config, category)
	if err != nil {
		report.Err = err
		return report
	}
	res, err := export.NewAggregator(d.sc.Config, log).Run(ctx, string(category), m)
	if err != nil {
		report.Err = err
		return report
	}
	report.Export = &res
	log.Info("%s: exported %d supervision sets, skipped %d", category, len(res.Staged), len(res.Skipped))
	return report
}

// Statuses reports the on-disk completion of every dataset req resolves to,
// without running anything or writing to the root.
func (d *Dispatcher) Statuses(req Request) ([]engine.DatasetStatus, error) {
	parts, err := req.Partition(d.registry)
	if err != nil {
		return nil, err
	}
	exec, err := engine.New(d.sc, d.registry, d.opts...)
	if err != nil {
		return nil, err
	}
	var out []engine.DatasetStatus
	for _, category := range dataset.Categories() {
		if len(parts[category]) == 0 {
			continue
		}
		plan, err := resolver.Resolve(d.registry, parts[category], category)
		if err != nil {
			return nil, err
		}
		for _, desc := range plan {
			status, err := exec.Status(desc)
			if err != nil {
				return nil, err
			}
			out = append(out, status)
		}
	}
	return out, nil
}
