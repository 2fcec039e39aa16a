package lhotse

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func speakerCuts(speakers, perSpeaker int) []Cut {
	var cuts []Cut
	for s := 0; s < speakers; s++ {
		spk := fmt.Sprintf("spk%02d", s)
		for i := 0; i < perSpeaker; i++ {
			id := fmt.Sprintf("%s-utt%02d", spk, i)
			cuts = append(cuts, Cut{
				ID:       id,
				Type:     TypeMonoCut,
				Duration: float64(4 + i),
				Supervisions: []Supervision{
					{ID: id, RecordingID: id, Duration: float64(4 + i), Speaker: spk, Text: "word"},
				},
			})
		}
	}
	return cuts
}

func TestMixProducesBoundedMultiSpeakerMixtures(t *testing.T) {
	opts := MixOptions{NumMixtures: 25, NumSpeakers: 3, MaxLen: 30, AllowedPause: 2, Seed: 7}
	mixtures, err := Mix(speakerCuts(6, 3), opts)
	require.NoError(t, err)
	require.Len(t, mixtures, 25)

	for _, mix := range mixtures {
		assert.Equal(t, TypeMixedCut, mix.Type)
		require.Len(t, mix.Tracks, 3)
		assert.Len(t, mix.Speakers(), 3, "every track comes from a distinct speaker")
		for _, track := range mix.Tracks {
			assert.GreaterOrEqual(t, track.Offset, 0.0)
			assert.LessOrEqual(t, track.Offset+track.Cut.Duration, opts.MaxLen+1e-9)
		}
	}
}

func TestMixIsReproducibleForSeed(t *testing.T) {
	opts := MixOptions{NumMixtures: 10, NumSpeakers: 2, MaxLen: 30, AllowedPause: 2, Seed: 42}
	first, err := Mix(speakerCuts(4, 2), opts)
	require.NoError(t, err)
	second, err := Mix(speakerCuts(4, 2), opts)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}
}

func TestMixRejectsTooFewSpeakers(t *testing.T) {
	_, err := Mix(speakerCuts(2, 2), MixOptions{NumMixtures: 1, NumSpeakers: 3, MaxLen: 30})
	require.Error(t, err)
}

func TestSampleOffsetsRespectsMaxLen(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	durations := []float64{20, 25, 18}
	for i := 0; i < 100; i++ {
		offsets := sampleOffsets(rng, durations, 2, 30)
		for j, off := range offsets {
			assert.LessOrEqual(t, off+durations[j], 30.0+1e-9)
		}
	}
}
