package lhotse

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecordings() []Recording {
	return []Recording{
		{ID: "ES2002a", Sources: []AudioSource{{Type: "file", Channels: []int{0}, Source: "/data/ami/ES2002a.wav"}}, SamplingRate: 16000, NumSamples: 160000, Duration: 10, ChannelIDs: []int{0}},
		{ID: "ES2002b", Sources: []AudioSource{{Type: "file", Channels: []int{0, 1}, Source: "/data/ami/ES2002b.wav"}}, SamplingRate: 16000, NumSamples: 320000, Duration: 20, ChannelIDs: []int{0, 1}},
		{ID: "orphan", SamplingRate: 16000, Duration: 5, ChannelIDs: []int{0}},
	}
}

func sampleSupervisions() []Supervision {
	return []Supervision{
		{ID: "ES2002a-0002", RecordingID: "ES2002a", Start: 4, Duration: 1.5, Channel: json.RawMessage("0"), Text: "okay  then", Speaker: "FEE005"},
		{ID: "ES2002a-0001", RecordingID: "ES2002a", Start: 1, Duration: 2, Channel: json.RawMessage("0"), Text: "hello", Speaker: "MEE006"},
		{ID: "ES2002b-0001", RecordingID: "ES2002b", Start: 3, Duration: 1, Channel: json.RawMessage("[0,1]"), Text: "yeah", Speaker: "FEE005"},
		{ID: "dangling", RecordingID: "missing", Start: 0, Duration: 1},
	}
}

func TestBuildCutSetPairsRecordingsAndSupervisions(t *testing.T) {
	cuts := BuildCutSet(sampleRecordings(), sampleSupervisions())

	require.Len(t, cuts, 2, "recordings without supervisions are dropped")
	assert.Equal(t, "ES2002a", cuts[0].ID)
	assert.Equal(t, TypeMonoCut, cuts[0].Type)
	assert.Equal(t, TypeMultiCut, cuts[1].Type)
	assert.JSONEq(t, "[0,1]", string(cuts[1].Channel))
	require.Len(t, cuts[0].Supervisions, 2)
	assert.Equal(t, "ES2002a-0001", cuts[0].Supervisions[0].ID, "supervisions are ordered by start")
}

func TestPrefixRewritesEveryIdentifier(t *testing.T) {
	cuts := BuildCutSet(sampleRecordings(), sampleSupervisions())
	prefixed := Prefix(cuts, "sdm")

	require.Len(t, prefixed, len(cuts))
	for i, cut := range prefixed {
		orig := cuts[i]
		assert.Equal(t, "sdm-"+orig.ID, cut.ID)
		assert.Equal(t, "sdm-"+orig.Recording.ID, cut.Recording.ID)
		for j, sup := range cut.Supervisions {
			assert.Equal(t, "sdm-"+orig.Supervisions[j].ID, sup.ID)
			assert.Equal(t, "sdm-"+orig.Supervisions[j].RecordingID, sup.RecordingID)
		}
	}
	assert.Equal(t, "ES2002a", cuts[0].ID, "input cuts must not be mutated")
	assert.Equal(t, "ES2002a", cuts[0].Recording.ID)
}

func TestPrefixRewritesMixtureTracks(t *testing.T) {
	source := BuildCutSet(sampleRecordings(), sampleSupervisions())
	mixture := Cut{ID: "mix", Type: TypeMixedCut, Tracks: []Track{{Cut: source[0]}, {Cut: source[1], Offset: 2}}}
	out := Prefix([]Cut{mixture}, "librimix")[0]

	assert.Equal(t, "librimix-mix", out.ID)
	for _, track := range out.Tracks {
		assert.True(t, strings.HasPrefix(track.Cut.ID, "librimix-"))
		assert.True(t, strings.HasPrefix(track.Cut.Recording.ID, "librimix-"))
	}
}

func TestDecomposeMatchesSupervisionCount(t *testing.T) {
	cuts := BuildCutSet(sampleRecordings(), sampleSupervisions())
	total := 0
	for _, cut := range cuts {
		total += len(cut.Supervisions)
	}

	sups := Decompose(Prefix(cuts, "sdm"))
	require.Len(t, sups, total)
	for _, sup := range sups {
		assert.True(t, strings.HasPrefix(sup.ID, "sdm-"), sup.ID)
	}
}

func TestDecomposeShiftsMixtureSupervisions(t *testing.T) {
	source := BuildCutSet(sampleRecordings(), sampleSupervisions())
	mixture := Cut{ID: "mix", Type: TypeMixedCut, Tracks: []Track{{Cut: source[1], Offset: 2.5}}}

	sups := Decompose([]Cut{mixture})
	require.Len(t, sups, 1)
	assert.Equal(t, "mix-ES2002b-0001", sups[0].ID)
	assert.Equal(t, "mix", sups[0].RecordingID)
	assert.InDelta(t, 5.5, sups[0].Start, 1e-9)
}

func TestDecomposeKeepsSourcesReusedAcrossMixtures(t *testing.T) {
	opts := MixOptions{NumMixtures: 20, NumSpeakers: 3, MaxLen: 30, AllowedPause: 2, Seed: 5}
	mixtures, err := Mix(speakerCuts(3, 2), opts)
	require.NoError(t, err)
	cuts := Prefix(mixtures, "librimix")

	total := 0
	for _, cut := range cuts {
		total += len(cut.AllSupervisions())
	}
	require.Equal(t, 60, total)

	sups := Decompose(cuts)
	require.Len(t, sups, total, "a source drawn into several mixtures keeps one label per mixture")
	ids := map[string]struct{}{}
	for _, sup := range sups {
		ids[sup.ID] = struct{}{}
		assert.True(t, strings.HasPrefix(sup.ID, sup.RecordingID+"-"), sup.ID)
	}
	assert.Len(t, ids, total)
}

func TestDecomposeDropsDuplicatesWithinOneCut(t *testing.T) {
	sup := Supervision{ID: "s1", RecordingID: "r1", Duration: 1}
	cut := Cut{ID: "r1", Type: TypeMonoCut, Supervisions: []Supervision{sup, sup}}
	assert.Len(t, Decompose([]Cut{cut}), 1)
}

func TestFilterByDuration(t *testing.T) {
	cuts := []Cut{{ID: "a", Duration: 12}, {ID: "b", Duration: 30}, {ID: "c", Duration: 45}}
	kept := FilterByDuration(cuts, 30)
	require.Len(t, kept, 1)
	assert.Equal(t, "a", kept[0].ID)
}

func TestRelocateSourcesRewritesPlainAndMixedCuts(t *testing.T) {
	source := BuildCutSet(sampleRecordings(), sampleSupervisions())
	mixture := Cut{ID: "mix", Type: TypeMixedCut, Tracks: []Track{{Cut: source[0]}, {Cut: source[1], Offset: 2}}}
	cuts := []Cut{source[0], mixture}

	moved, changed := RelocateSources(cuts, "/data/ami", "/scratch/ami")
	assert.Equal(t, 3, changed)
	assert.Equal(t, "/scratch/ami/ES2002a.wav", moved[0].Recording.Sources[0].Source)
	assert.Equal(t, "/scratch/ami/ES2002a.wav", moved[1].Tracks[0].Cut.Recording.Sources[0].Source)
	assert.Equal(t, "/scratch/ami/ES2002b.wav", moved[1].Tracks[1].Cut.Recording.Sources[0].Source)
	assert.Equal(t, "/data/ami/ES2002a.wav", cuts[0].Recording.Sources[0].Source, "input cuts must not be mutated")
	assert.Equal(t, "/data/ami/ES2002b.wav", mixture.Tracks[1].Cut.Recording.Sources[0].Source)

	_, changed = RelocateSources(cuts, "/elsewhere", "/scratch")
	assert.Zero(t, changed)
}

func TestWriteCutsIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	cuts := Prefix(BuildCutSet(sampleRecordings(), sampleSupervisions()), "sdm")
	first := filepath.Join(dir, "first.jsonl.gz")
	second := filepath.Join(dir, "second.jsonl.gz")
	require.NoError(t, WriteCuts(first, cuts))
	require.NoError(t, WriteCuts(second, cuts))

	a, err := os.ReadFile(first)
	require.NoError(t, err)
	b, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(a, b), "identical cut-sets must serialize to identical bytes")

	loaded, err := ReadCuts(first)
	require.NoError(t, err)
	require.Len(t, loaded, len(cuts))
	assert.Equal(t, cuts[1].ID, loaded[1].ID)
	assert.Equal(t, cuts[1].Type, loaded[1].Type)
}

func TestMixedCutSerializesWithoutMonoFields(t *testing.T) {
	mixture := Cut{ID: "mix", Type: TypeMixedCut, Tracks: []Track{{Cut: Cut{ID: "a", Duration: 3}, Offset: 1}}}
	data, err := json.Marshal(mixture)
	require.NoError(t, err)

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Contains(t, fields, "tracks")
	assert.NotContains(t, fields, "start")
	assert.NotContains(t, fields, "supervisions")
}
