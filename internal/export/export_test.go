package export

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/mtprep/internal/artifact"
	"github.com/kingrea/mtprep/internal/command/commandtest"
	"github.com/kingrea/mtprep/internal/config"
	"github.com/kingrea/mtprep/internal/dataset"
	"github.com/kingrea/mtprep/internal/lhotse"
	"github.com/kingrea/mtprep/internal/logging"
)

func newConfig(t *testing.T, yaml string) *config.Config {
	t.Helper()
	root := t.TempDir()
	if yaml != "" {
		require.NoError(t, os.WriteFile(filepath.Join(root, config.FileName), []byte(yaml), 0o644))
	}
	cfg, err := config.New(root, config.Options{})
	require.NoError(t, err)
	return cfg
}

func writeSupervisions(t *testing.T, cfg *config.Config, ref artifact.ManifestRef) {
	t.Helper()
	_, sups := commandtest.Manifests(ref.Split)
	store := artifact.NewStore(cfg.ManifestsDir())
	require.NoError(t, lhotse.WriteSupervisions(store.Path(ref), sups))
}

func TestRunSkipsMissingSources(t *testing.T) {
	cfg := newConfig(t, "")
	reg := dataset.Default()
	sdm, err := reg.Lookup("ami-sdm")
	require.NoError(t, err)

	m := Map{
		{Source: sdm.Manifest(artifact.KindSupervisions, "dev"), Dest: "ami_dev"},
		{Source: sdm.Manifest(artifact.KindSupervisions, "test"), Dest: "ami_test"},
		{Source: sdm.Manifest(artifact.KindSupervisions, "train"), Dest: "ami_train"},
	}
	writeSupervisions(t, cfg, m[0].Source)
	writeSupervisions(t, cfg, m[2].Source)

	res, err := NewAggregator(cfg, logging.Discard()).Run(context.Background(), "single-mic", m)
	require.NoError(t, err)
	assert.Len(t, res.Staged, 2)
	assert.Equal(t, []artifact.ManifestRef{m[1].Source}, res.Skipped)

	stmDir := filepath.Join(cfg.ExportsDir("single-mic"), "stm")
	entries, err := os.ReadDir(stmDir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"ami_dev.stm", "ami_train.stm"}, names)

	staged, err := os.ReadDir(filepath.Join(cfg.ExportsDir("single-mic"), "supervisions"))
	require.NoError(t, err)
	assert.Len(t, staged, 2)

	data, err := os.ReadFile(filepath.Join(stmDir, "ami_dev.stm"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "dev-rec0 0 spk0 0.000 5.000 utterance 0", lines[0])
}

func TestRunIsRepeatable(t *testing.T) {
	cfg := newConfig(t, "")
	sdm, err := dataset.Default().Lookup("ami-sdm")
	require.NoError(t, err)
	m := Map{{Source: sdm.Manifest(artifact.KindSupervisions, "test"), Dest: "ami_test"}}
	writeSupervisions(t, cfg, m[0].Source)
	source, err := os.ReadFile(artifact.NewStore(cfg.ManifestsDir()).Path(m[0].Source))
	require.NoError(t, err)

	agg := NewAggregator(cfg, logging.Discard())
	first, err := agg.Run(context.Background(), "single-mic", m)
	require.NoError(t, err)
	second, err := agg.Run(context.Background(), "single-mic", m)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	after, err := os.ReadFile(artifact.NewStore(cfg.ManifestsDir()).Path(m[0].Source))
	require.NoError(t, err)
	assert.Equal(t, source, after)
}

func TestMapForUsesBuiltinAndOverride(t *testing.T) {
	reg := dataset.Default()

	m, err := MapFor(reg, newConfig(t, ""), dataset.MultiMic)
	require.NoError(t, err)
	require.NotEmpty(t, m)
	for _, e := range m {
		assert.Contains(t, []string{"ami-mdm", "notsofar-mdm"}, e.Source.Prefix)
		assert.Equal(t, artifact.KindSupervisions, e.Source.Kind)
	}

	cfg := newConfig(t, "exports:\n  single-mic:\n    - {dataset: librimix, split: test, dest: mix_eval}\n")
	m, err = MapFor(reg, cfg, dataset.SingleMic)
	require.NoError(t, err)
	require.Len(t, m, 1)
	assert.Equal(t, "librimix/librimix_supervisions_test", m[0].Source.String())
	assert.Equal(t, "mix_eval", m[0].Dest)

	cfg = newConfig(t, "exports:\n  single-mic:\n    - {dataset: ami-mdm, split: test, dest: wrong}\n")
	_, err = MapFor(reg, cfg, dataset.SingleMic)
	assert.Error(t, err)

	cfg = newConfig(t, "exports:\n  single-mic:\n    - {dataset: nope, split: test, dest: x}\n")
	_, err = MapFor(reg, cfg, dataset.SingleMic)
	var unknown *dataset.UnknownError
	assert.ErrorAs(t, err, &unknown)
}

func TestBuiltinMapIsConsistentWithRegistry(t *testing.T) {
	reg := dataset.Default()
	for _, category := range dataset.Categories() {
		m, err := MapFor(reg, newConfig(t, ""), category)
		require.NoError(t, err)
		for _, e := range m {
			desc, err := reg.Lookup(e.Source.Prefix)
			require.NoError(t, err)
			assert.Contains(t, desc.Splits, e.Source.Split, e.Dest)
		}
	}
}

func TestConvertAll(t *testing.T) {
	cfg := newConfig(t, "")
	reg := dataset.Default()
	sdm, _ := reg.Lookup("ami-sdm")
	speech, _ := reg.Lookup("librispeech")
	writeSupervisions(t, cfg, sdm.Manifest(artifact.KindSupervisions, "dev"))
	writeSupervisions(t, cfg, speech.Manifest(artifact.KindSupervisions, "dev-clean"))
	require.NoError(t, lhotse.WriteCuts(artifact.NewStore(cfg.ManifestsDir()).Path(sdm.Manifest(artifact.KindCutSet, "dev")), nil))

	written, err := ConvertAll(context.Background(), cfg.ManifestsDir(), cfg.STMDir(), 2, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(cfg.STMDir(), "ami", "ami-sdm_dev.stm"),
		filepath.Join(cfg.STMDir(), "librispeech", "librispeech_dev-clean.stm"),
	}, written)

	_, err = ConvertAll(context.Background(), t.TempDir(), cfg.STMDir(), 2, logging.Discard())
	assert.Error(t, err)
}
