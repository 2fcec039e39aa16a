package lhotse

import (
	"fmt"
	"math/rand"
	"strings"
)

// MixOptions controls synthetic mixture generation.
type MixOptions struct {
	// NumMixtures is how many mixtures to generate.
	NumMixtures int
	// NumSpeakers is how many distinct speakers each mixture contains.
	NumSpeakers int
	// MaxLen bounds the source cut length and the mixture end, in seconds.
	MaxLen float64
	// AllowedPause is the longest silence inserted between two sources.
	AllowedPause float64
	// Seed makes generation reproducible so reruns write identical manifests.
	Seed int64
}

// DefaultMixOptions mirrors the defaults used for LibriSpeech mixtures.
func DefaultMixOptions() MixOptions {
	return MixOptions{
		NumMixtures:  10000,
		NumSpeakers:  3,
		MaxLen:       30,
		AllowedPause: 2,
		Seed:         1,
	}
}

// Mix builds overlapped multi-speaker MixedCuts by sampling one cut per
// speaker and placing them at random offsets.
func Mix(cuts []Cut, opts MixOptions) ([]Cut, error) {
	if opts.NumSpeakers <= 0 {
		return nil, fmt.Errorf("lhotse: num speakers must be positive")
	}
	if opts.NumMixtures < 0 {
		return nil, fmt.Errorf("lhotse: num mixtures must be >= 0")
	}
	perSpeaker := map[string][]Cut{}
	for _, cut := range cuts {
		if cut.Duration > opts.MaxLen {
			continue
		}
		for _, spk := range cut.Speakers() {
			perSpeaker[spk] = append(perSpeaker[spk], cut)
		}
	}
	speakerSet := make(map[string]struct{}, len(perSpeaker))
	for spk := range perSpeaker {
		speakerSet[spk] = struct{}{}
	}
	speakers := sortedKeys(speakerSet)
	if len(speakers) < opts.NumSpeakers {
		return nil, fmt.Errorf("lhotse: need %d speakers to mix, found %d", opts.NumSpeakers, len(speakers))
	}
	rng := rand.New(rand.NewSource(opts.Seed))
	mixtures := make([]Cut, 0, opts.NumMixtures)
	for i := 0; i < opts.NumMixtures; i++ {
		picked := rng.Perm(len(speakers))[:opts.NumSpeakers]
		sources := make([]Cut, len(picked))
		for j, idx := range picked {
			pool := perSpeaker[speakers[idx]]
			sources[j] = pool[rng.Intn(len(pool))]
		}
		mixtures = append(mixtures, mixCuts(rng, sources, opts.MaxLen, opts.AllowedPause))
	}
	return mixtures, nil
}

func mixCuts(rng *rand.Rand, sources []Cut, maxLen, allowedPause float64) Cut {
	durations := make([]float64, len(sources))
	for i, cut := range sources {
		durations[i] = cut.Duration
	}
	offsets := sampleOffsets(rng, durations, allowedPause, maxLen)
	tracks := make([]Track, len(sources))
	ids := make([]string, len(sources))
	for i, cut := range sources {
		tracks[i] = Track{Cut: cut, Offset: offsets[i]}
		ids[i] = fmt.Sprintf("%s_%.2f_", cut.ID, offsets[i])
	}
	mixture := Cut{ID: strings.Join(ids, "-"), Type: TypeMixedCut, Tracks: tracks}
	mixture.Duration = mixture.mixedDuration()
	return mixture
}

// sampleOffsets places each source relative to the running mixture. A
// positive pair offset inserts a pause after the first source, a negative one
// overlaps the sources. Sources that would end past maxLen are pulled back.
func sampleOffsets(rng *rand.Rand, durations []float64, allowedPause, maxLen float64) []float64 {
	offsets := make([]float64, len(durations))
	if len(durations) == 0 {
		return offsets
	}
	prev := durations[0]
	for i := 1; i < len(durations); i++ {
		other := durations[i]
		first, second := mixTwo(rng, prev, other, allowedPause)
		for j := range offsets {
			offsets[j] += first
		}
		offsets[i] = second
		prev = max(first+prev, second+other)
	}
	for i := range offsets {
		if offsets[i]+durations[i] > maxLen {
			offsets[i] = maxLen - durations[i]
		}
	}
	return offsets
}

func mixTwo(rng *rand.Rand, len1, len2, allowedPause float64) (float64, float64) {
	low := -len1 - len2 - allowedPause
	offset := low + rng.Float64()*(allowedPause-low)
	if -offset <= len1 {
		return 0, len1 + offset
	}
	return -(len1 + offset), 0
}
