package export

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kingrea/mtprep/internal/artifact"
	"github.com/kingrea/mtprep/internal/config"
	"github.com/kingrea/mtprep/internal/lhotse"
	"github.com/kingrea/mtprep/internal/logging"
	"github.com/kingrea/mtprep/internal/metrics"
)

const (
	formatManifest = "manifest"
	formatSTM      = "stm"
)

// Aggregator copies a category's export sources into its staging directory
// and writes the matching STM files. Sources are never modified.
type Aggregator struct {
	cfg    *config.Config
	store  *artifact.Store
	logger *logging.Logger
}

// NewAggregator binds an aggregator to the run configuration.
func NewAggregator(cfg *config.Config, logger *logging.Logger) *Aggregator {
	return &Aggregator{
		cfg:    cfg,
		store:  artifact.NewStore(cfg.ManifestsDir()),
		logger: logger,
	}
}

// Result lists what one aggregation produced.
type Result struct {
	Staged  []string
	STM     []string
	Skipped []artifact.ManifestRef
}

// Run stages every entry of m whose source exists and converts the staged
// copies to STM. Missing sources are skipped; rerunning overwrites the
// destinations.
func (a *Aggregator) Run(ctx context.Context, category string, m Map) (Result, error) {
	var res Result
	supDir := filepath.Join(a.cfg.ExportsDir(category), "supervisions")
	stmDir := filepath.Join(a.cfg.ExportsDir(category), "stm")

	for _, entry := range m {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		ok, err := a.store.Exists(entry.Source)
		if err != nil {
			return res, fmt.Errorf("export: %w", err)
		}
		if !ok {
			a.logger.Debug("export: %s not prepared, skipping %s", entry.Source, entry.Dest)
			res.Skipped = append(res.Skipped, entry.Source)
			continue
		}
		dst := filepath.Join(supDir, entry.Dest+artifact.ManifestExt)
		if err := artifact.CopyFile(a.store.Path(entry.Source), dst); err != nil {
			return res, fmt.Errorf("export: stage %s: %w", entry.Source, err)
		}
		metrics.RecordExport(category, formatManifest)
		a.logger.Info("export: %s -> %s", entry.Source, dst)
		res.Staged = append(res.Staged, dst)
	}

	jobs := make([]job, len(res.Staged))
	for i, src := range res.Staged {
		name := strings.TrimSuffix(filepath.Base(src), artifact.ManifestExt)
		jobs[i] = job{src: src, dst: filepath.Join(stmDir, name+".stm")}
	}
	written, err := convert(ctx, jobs, a.cfg.Project.NumJobs, a.logger)
	if err != nil {
		return res, err
	}
	for range written {
		metrics.RecordExport(category, formatSTM)
	}
	res.STM = written
	return res, nil
}

type job struct {
	src, dst string
}

var supervisionName = regexp.MustCompile(`^(.+?)_supervisions(?:_(.+))?\.jsonl\.gz$`)

// ConvertAll writes an STM file for every <family>/*supervisions*.jsonl.gz
// below manifestsDir into outDir/<family>/<prefix>_<split>.stm and returns
// the written paths in sorted order.
func ConvertAll(ctx context.Context, manifestsDir, outDir string, numJobs int, logger *logging.Logger) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(manifestsDir, "*", "*supervisions*"+artifact.ManifestExt))
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	sort.Strings(matches)
	if len(matches) == 0 {
		return nil, fmt.Errorf("export: no supervision manifests under %s", manifestsDir)
	}
	var jobs []job
	for _, path := range matches {
		m := supervisionName.FindStringSubmatch(filepath.Base(path))
		if m == nil {
			logger.Warn("export: skipping file with unexpected name %s", filepath.Base(path))
			continue
		}
		name := m[1]
		if m[2] != "" {
			name += "_" + m[2]
		}
		family := filepath.Base(filepath.Dir(path))
		jobs = append(jobs, job{src: path, dst: filepath.Join(outDir, family, name+".stm")})
	}
	written, err := convert(ctx, jobs, numJobs, logger)
	if err != nil {
		return nil, err
	}
	for range written {
		metrics.RecordExport("all", formatSTM)
	}
	return written, nil
}

// convert runs the STM conversions with at most numJobs in flight.
func convert(ctx context.Context, jobs []job, numJobs int, logger *logging.Logger) ([]string, error) {
	if numJobs < 1 {
		numJobs = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(numJobs)
	var mu sync.Mutex
	var written []string
	for _, j := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			n, err := writeSTM(j.src, j.dst)
			if err != nil {
				return fmt.Errorf("export: convert %s: %w", j.src, err)
			}
			logger.Info("export: wrote %d lines to %s", n, j.dst)
			mu.Lock()
			written = append(written, j.dst)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Strings(written)
	return written, nil
}

func writeSTM(src, dst string) (int, error) {
	sups, err := lhotse.ReadSupervisions(src)
	if err != nil {
		return 0, err
	}
	var n int
	err = artifact.WriteAtomic(dst, func(w io.Writer) error {
		var werr error
		n, werr = lhotse.WriteSTM(w, sups)
		return werr
	})
	return n, err
}
