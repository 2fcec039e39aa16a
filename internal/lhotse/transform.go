package lhotse

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// PrefixSeparator joins a namespace tag and the original identifier.
const PrefixSeparator = "-"

// BuildCutSet pairs recordings with their supervisions, one cut per recording.
// Supervisions without a recording and recordings without supervisions are
// dropped, mirroring lhotse's fix_manifests.
func BuildCutSet(recordings []Recording, supervisions []Supervision) []Cut {
	byRecording := make(map[string][]Supervision, len(recordings))
	for _, sup := range supervisions {
		byRecording[sup.RecordingID] = append(byRecording[sup.RecordingID], sup)
	}
	cuts := make([]Cut, 0, len(recordings))
	for _, rec := range recordings {
		sups := byRecording[rec.ID]
		if len(sups) == 0 {
			continue
		}
		sorted := make([]Supervision, len(sups))
		copy(sorted, sups)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })
		recording := rec
		cuts = append(cuts, Cut{
			ID:           rec.ID,
			Type:         cutTypeFor(rec),
			Start:        0,
			Duration:     rec.Duration,
			Channel:      channelFor(rec),
			Supervisions: sorted,
			Recording:    &recording,
		})
	}
	return cuts
}

func cutTypeFor(rec Recording) string {
	if len(rec.ChannelIDs) > 1 {
		return TypeMultiCut
	}
	return TypeMonoCut
}

func channelFor(rec Recording) json.RawMessage {
	switch len(rec.ChannelIDs) {
	case 0:
		return json.RawMessage("0")
	case 1:
		return json.RawMessage(strconv.Itoa(rec.ChannelIDs[0]))
	default:
		encoded, _ := json.Marshal(rec.ChannelIDs)
		return encoded
	}
}

// Prefix returns a copy of cuts in which every entity identifier (cut,
// recording, supervision, supervision recording reference, and the same fields
// of mixture tracks) is rewritten to tag + "-" + id. The input is not modified.
func Prefix(cuts []Cut, tag string) []Cut {
	out := make([]Cut, len(cuts))
	for i, cut := range cuts {
		out[i] = prefixCut(cut, tag)
	}
	return out
}

func prefixCut(cut Cut, tag string) Cut {
	clone := cut
	clone.ID = prefixID(tag, cut.ID)
	if cut.Recording != nil {
		rec := *cut.Recording
		rec.ID = prefixID(tag, rec.ID)
		clone.Recording = &rec
	}
	if len(cut.Supervisions) > 0 {
		clone.Supervisions = make([]Supervision, len(cut.Supervisions))
		for i, sup := range cut.Supervisions {
			sup.ID = prefixID(tag, sup.ID)
			sup.RecordingID = prefixID(tag, sup.RecordingID)
			clone.Supervisions[i] = sup
		}
	}
	if len(cut.Tracks) > 0 {
		clone.Tracks = make([]Track, len(cut.Tracks))
		for i, track := range cut.Tracks {
			clone.Tracks[i] = Track{Cut: prefixCut(track.Cut, tag), Offset: track.Offset}
		}
	}
	return clone
}

func prefixID(tag, id string) string {
	if id == "" {
		return id
	}
	return tag + PrefixSeparator + id
}

// Decompose extracts the supervision set carried by a cut-set. Identifiers
// are unique in the output; when one cut repeats an identifier the first
// occurrence wins.
func Decompose(cuts []Cut) []Supervision {
	seen := map[string]struct{}{}
	var out []Supervision
	for _, cut := range cuts {
		for _, sup := range cut.AllSupervisions() {
			if _, dup := seen[sup.ID]; dup {
				continue
			}
			seen[sup.ID] = struct{}{}
			out = append(out, sup)
		}
	}
	return out
}

// FilterByDuration keeps cuts strictly shorter than maxSeconds.
func FilterByDuration(cuts []Cut, maxSeconds float64) []Cut {
	out := make([]Cut, 0, len(cuts))
	for _, cut := range cuts {
		if cut.Duration < maxSeconds {
			out = append(out, cut)
		}
	}
	return out
}

// RelocateSources returns a copy of cuts in which every occurrence of from in
// a recording source path is replaced by to, including the recordings of
// mixture tracks. It also reports how many sources changed.
func RelocateSources(cuts []Cut, from, to string) ([]Cut, int) {
	out := make([]Cut, len(cuts))
	changed := 0
	for i, cut := range cuts {
		out[i] = relocateCut(cut, from, to, &changed)
	}
	return out, changed
}

func relocateCut(cut Cut, from, to string, changed *int) Cut {
	clone := cut
	if cut.Recording != nil {
		rec := *cut.Recording
		rec.Sources = make([]AudioSource, len(cut.Recording.Sources))
		for i, src := range cut.Recording.Sources {
			if moved := strings.ReplaceAll(src.Source, from, to); moved != src.Source {
				src.Source = moved
				*changed++
			}
			rec.Sources[i] = src
		}
		clone.Recording = &rec
	}
	if len(cut.Tracks) > 0 {
		clone.Tracks = make([]Track, len(cut.Tracks))
		for i, track := range cut.Tracks {
			clone.Tracks[i] = Track{Cut: relocateCut(track.Cut, from, to, changed), Offset: track.Offset}
		}
	}
	return clone
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
