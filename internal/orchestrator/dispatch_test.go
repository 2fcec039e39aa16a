package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/kingrea/mtprep/internal/artifact"
	"github.com/kingrea/mtprep/internal/command/commandtest"
	"github.com/kingrea/mtprep/internal/config"
	"github.com/kingrea/mtprep/internal/dataset"
	"github.com/kingrea/mtprep/internal/lock"
	"github.com/kingrea/mtprep/internal/logging"
	"github.com/kingrea/mtprep/internal/stage"
	"github.com/kingrea/mtprep/internal/workflow/engine"
)

func TestPartitionSplitsByCategory(t *testing.T) {
	reg := dataset.Default()
	parts, err := Request{Datasets: []string{"ami-mdm", "ami-sdm", "librimix"}}.Partition(reg)
	if err != nil {
		t.Fatalf("Partition: %v", err)
	}
	if got := parts[dataset.SingleMic]; !reflect.DeepEqual(got, []string{"ami-sdm", "librimix"}) {
		t.Fatalf("unexpected single-mic subset %v", got)
	}
	if got := parts[dataset.MultiMic]; !reflect.DeepEqual(got, []string{"ami-mdm"}) {
		t.Fatalf("unexpected multi-mic subset %v", got)
	}
}

func TestPartitionHonoursCategoryFilter(t *testing.T) {
	reg := dataset.Default()

	parts, err := Request{Datasets: []string{"all"}, MultiMicOnly: true}.Partition(reg)
	if err != nil {
		t.Fatalf("Partition: %v", err)
	}
	if _, ok := parts[dataset.SingleMic]; ok {
		t.Fatalf("all must not expand into a filtered-out category: %v", parts)
	}
	if got := parts[dataset.MultiMic]; !reflect.DeepEqual(got, []string{"all"}) {
		t.Fatalf("unexpected multi-mic subset %v", got)
	}

	_, err = Request{Datasets: []string{"ami-sdm", "ami-mdm"}, SingleMicOnly: true}.Partition(reg)
	var cfgErr *config.Error
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected config error for out-of-category dataset, got %v", err)
	}
}

func TestRequestValidation(t *testing.T) {
	reg := dataset.Default()
	cases := map[string]Request{
		"empty":       {},
		"blank":       {Datasets: []string{" ", ""}},
		"conflicting": {Datasets: []string{"all"}, SingleMicOnly: true, MultiMicOnly: true},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := req.Partition(reg)
			var cfgErr *config.Error
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected config error, got %v", err)
			}
		})
	}

	_, err := Request{Datasets: []string{"ami-sdm", "nope"}}.Partition(reg)
	var unknown *dataset.UnknownError
	if !errors.As(err, &unknown) || unknown.Name != "nope" {
		t.Fatalf("expected unknown dataset error, got %v", err)
	}
}

func TestParseDatasets(t *testing.T) {
	got := ParseDatasets(" ami-sdm, ,librimix,")
	if !reflect.DeepEqual(got, []string{"ami-sdm", "librimix"}) {
		t.Fatalf("unexpected parse %v", got)
	}
}

func TestDispatchRejectsUnknownBeforeTouchingRoot(t *testing.T) {
	d, _, root := newDispatcher(t, config.Options{})
	_, err := d.Dispatch(context.Background(), Request{Datasets: []string{"ami-sdm", "does-not-exist"}})
	var unknown *dataset.UnknownError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected unknown dataset error, got %v", err)
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("root must stay untouched, found %d entries", len(entries))
	}
}

func TestDispatchRunsBothCategoriesAndJoinsErrors(t *testing.T) {
	d, corpus, _ := newDispatcher(t, config.Options{})
	corpus.FailOn = "--mic sdm"

	summary, err := d.Dispatch(context.Background(), Request{Datasets: []string{"ami-sdm", "ami-mdm"}})
	var stageErr *engine.StageError
	if !errors.As(err, &stageErr) || stageErr.Dataset != "ami-sdm" {
		t.Fatalf("expected ami-sdm stage failure, got %v", err)
	}
	if len(summary.Categories) != 2 {
		t.Fatalf("expected both categories to run, got %d", len(summary.Categories))
	}
	multi := summary.Categories[1]
	if multi.Category != dataset.MultiMic || multi.Err != nil {
		t.Fatalf("multi-mic run should succeed: %+v", multi)
	}
	if len(multi.Reports) != 1 || multi.Reports[0].Executed() == 0 {
		t.Fatalf("expected ami-mdm to be prepared: %+v", multi.Reports)
	}
}

func TestDispatchStopsCategoryAtFirstFailure(t *testing.T) {
	d, corpus, _ := newDispatcher(t, config.Options{})
	corpus.FailOn = "--mic sdm"

	summary, err := d.Dispatch(context.Background(), Request{Datasets: []string{"ami-sdm", "ami-ihm-mix"}})
	if err == nil {
		t.Fatalf("expected failure")
	}
	single := summary.Categories[0]
	if len(single.Reports) != 1 {
		t.Fatalf("ami-ihm-mix must not run after ami-sdm failed, got %d reports", len(single.Reports))
	}
}

func TestDispatchSkipsDependentWhenDependencyNamespaceFails(t *testing.T) {
	d, corpus, root := newDispatcher(t, config.Options{})
	corpus.Splits = []string{"train-clean-100", "train-clean-360", "train-other-500", "dev-clean", "test-clean"}

	speech, err := dataset.Default().Lookup("librispeech")
	if err != nil {
		t.Fatal(err)
	}
	store := artifact.NewStore(filepath.Join(root, "manifests"))
	corrupt := store.Path(speech.Manifest(artifact.KindCutSetUnprefixed, "dev-clean"))
	if err := os.MkdirAll(filepath.Dir(corrupt), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(corrupt, []byte("not a cut-set"), 0o644); err != nil {
		t.Fatal(err)
	}

	summary, err := d.Dispatch(context.Background(), Request{Datasets: []string{"librimix"}})
	var stageErr *engine.StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("expected stage error, got %v", err)
	}
	if stageErr.Dataset != "librispeech" || stageErr.Stage != "namespace" || stageErr.Split != "dev-clean" {
		t.Fatalf("expected librispeech namespace[dev-clean] failure, got %+v", stageErr)
	}

	single := summary.Categories[0]
	if len(single.Reports) != 1 || single.Reports[0].Dataset != "librispeech" {
		t.Fatalf("librimix must not be reported after its dependency failed: %+v", single.Reports)
	}
	for _, call := range corpus.Calls() {
		if strings.Contains(call.String(), "librimix") {
			t.Fatalf("unexpected librimix command %s", call)
		}
	}
	if _, err := os.Stat(filepath.Join(root, "manifests", "librimix")); !os.IsNotExist(err) {
		t.Fatalf("librimix must not write manifests, stat err = %v", err)
	}
}

func TestDispatchExtractsSupervisions(t *testing.T) {
	d, _, root := newDispatcher(t, config.Options{ExtractSupervisions: true})

	summary, err := d.Dispatch(context.Background(), Request{Datasets: []string{"ami-sdm"}, SingleMicOnly: true})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	res := summary.Categories[0].Export
	if res == nil {
		t.Fatalf("expected export result")
	}
	if len(res.Staged) != 2 || len(res.STM) != 2 {
		t.Fatalf("expected dev and test exports, got %+v", res)
	}
	for _, name := range []string{"ami_sdm_dev.stm", "ami_sdm_test.stm"} {
		if _, err := os.Stat(filepath.Join(root, "exports", "single-mic", "stm", name)); err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(root, "logs", "mtprep.log")); err != nil {
		t.Fatalf("expected run log: %v", err)
	}
}

func TestDispatchRefusesLockedRoot(t *testing.T) {
	d, _, root := newDispatcher(t, config.Options{})
	lk, err := lock.Acquire(filepath.Join(root, config.LockFileName))
	if err != nil {
		t.Fatal(err)
	}
	defer lk.Release()

	_, err = d.Dispatch(context.Background(), Request{Datasets: []string{"ami-sdm"}})
	var held *lock.HeldError
	if !errors.As(err, &held) {
		t.Fatalf("expected held lock error, got %v", err)
	}
}

func TestStatusesDoNotWrite(t *testing.T) {
	d, corpus, root := newDispatcher(t, config.Options{})
	statuses, err := d.Statuses(Request{Datasets: []string{"librimix"}})
	if err != nil {
		t.Fatalf("Statuses: %v", err)
	}
	if len(statuses) != 2 || statuses[0].Dataset != "librispeech" {
		t.Fatalf("expected dependency first, got %+v", statuses)
	}
	if len(corpus.Calls()) != 0 {
		t.Fatalf("status must not run commands")
	}
	entries, _ := os.ReadDir(root)
	if len(entries) != 0 {
		t.Fatalf("status must not write to the root")
	}
}

func newDispatcher(t *testing.T, opts config.Options) (*Dispatcher, *commandtest.Corpus, string) {
	t.Helper()
	root := t.TempDir()
	cfg, err := config.New(root, opts)
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	logger := logging.Discard()
	t.Cleanup(func() { _ = logger.Close() })
	corpus := &commandtest.Corpus{Splits: []string{"train", "dev", "test"}}
	d, err := New(stage.NewContext(cfg, logger, corpus), dataset.Default())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d, corpus, root
}
