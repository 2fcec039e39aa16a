// Package lhotse reads and writes lhotse-compatible JSONL manifests and
// implements the small, pure manifest transformations the pipeline needs:
// cut-set construction, identifier prefixing, supervision decomposition,
// length filtering, synthetic mixtures and STM export.
package lhotse

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Cut types as serialized by lhotse.
const (
	TypeMonoCut  = "MonoCut"
	TypeMultiCut = "MultiCut"
	TypeMixedCut = "MixedCut"
)

// AudioSource points at the audio backing a recording.
type AudioSource struct {
	Type     string `json:"type"`
	Channels []int  `json:"channels"`
	Source   string `json:"source"`
}

// Recording is one entry of a recording set.
type Recording struct {
	ID           string          `json:"id"`
	Sources      []AudioSource   `json:"sources"`
	SamplingRate int             `json:"sampling_rate"`
	NumSamples   int64           `json:"num_samples"`
	Duration     float64         `json:"duration"`
	ChannelIDs   []int           `json:"channel_ids"`
	Transforms   json.RawMessage `json:"transforms,omitempty"`
}

// Supervision is a time-aligned label over a recording.
type Supervision struct {
	ID          string          `json:"id"`
	RecordingID string          `json:"recording_id"`
	Start       float64         `json:"start"`
	Duration    float64         `json:"duration"`
	Channel     json.RawMessage `json:"channel,omitempty"`
	Text        string          `json:"text,omitempty"`
	Language    string          `json:"language,omitempty"`
	Speaker     string          `json:"speaker,omitempty"`
	Gender      string          `json:"gender,omitempty"`
	Custom      map[string]any  `json:"custom,omitempty"`
	Alignment   json.RawMessage `json:"alignment,omitempty"`
}

// End returns the supervision end time in seconds.
func (s Supervision) End() float64 {
	return s.Start + s.Duration
}

// Channels decodes the channel field, which lhotse stores either as a single
// integer or as a list. Absent or empty values map to channel 1.
func (s Supervision) Channels() ([]int, error) {
	raw := bytes.TrimSpace(s.Channel)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []int{1}, nil
	}
	if raw[0] == '[' {
		var list []int
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("lhotse: supervision %s channel: %w", s.ID, err)
		}
		if len(list) == 0 {
			return []int{1}, nil
		}
		return list, nil
	}
	var single int
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, fmt.Errorf("lhotse: supervision %s channel: %w", s.ID, err)
	}
	return []int{single}, nil
}

// Track places a cut inside a MixedCut.
type Track struct {
	Cut    Cut     `json:"cut"`
	Offset float64 `json:"offset"`
}

// Cut is a recording segment with its supervisions, or a mixture of tracks.
type Cut struct {
	ID           string
	Type         string
	Start        float64
	Duration     float64
	Channel      json.RawMessage
	Supervisions []Supervision
	Recording    *Recording
	Tracks       []Track
	Custom       map[string]any
}

type monoCutJSON struct {
	ID           string          `json:"id"`
	Start        float64         `json:"start"`
	Duration     float64         `json:"duration"`
	Channel      json.RawMessage `json:"channel"`
	Supervisions []Supervision   `json:"supervisions"`
	Recording    *Recording      `json:"recording,omitempty"`
	Custom       map[string]any  `json:"custom,omitempty"`
	Type         string          `json:"type"`
}

type mixedCutJSON struct {
	ID     string  `json:"id"`
	Tracks []Track `json:"tracks"`
	Type   string  `json:"type"`
}

// MarshalJSON writes the lhotse shape matching the cut type.
func (c Cut) MarshalJSON() ([]byte, error) {
	if c.Type == TypeMixedCut {
		return json.Marshal(mixedCutJSON{ID: c.ID, Tracks: c.Tracks, Type: c.Type})
	}
	cutType := c.Type
	if cutType == "" {
		cutType = TypeMonoCut
	}
	sups := c.Supervisions
	if sups == nil {
		sups = []Supervision{}
	}
	channel := c.Channel
	if len(channel) == 0 {
		channel = json.RawMessage("0")
	}
	return json.Marshal(monoCutJSON{
		ID:           c.ID,
		Start:        c.Start,
		Duration:     c.Duration,
		Channel:      channel,
		Supervisions: sups,
		Recording:    c.Recording,
		Custom:       c.Custom,
		Type:         cutType,
	})
}

// UnmarshalJSON accepts both single-recording cuts and MixedCuts.
func (c *Cut) UnmarshalJSON(data []byte) error {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if probe.Type == TypeMixedCut {
		var mixed mixedCutJSON
		if err := json.Unmarshal(data, &mixed); err != nil {
			return err
		}
		*c = Cut{ID: mixed.ID, Type: TypeMixedCut, Tracks: mixed.Tracks}
		c.Duration = c.mixedDuration()
		return nil
	}
	var mono monoCutJSON
	if err := json.Unmarshal(data, &mono); err != nil {
		return err
	}
	cutType := mono.Type
	if cutType == "" {
		cutType = TypeMonoCut
	}
	*c = Cut{
		ID:           mono.ID,
		Type:         cutType,
		Start:        mono.Start,
		Duration:     mono.Duration,
		Channel:      mono.Channel,
		Supervisions: mono.Supervisions,
		Recording:    mono.Recording,
		Custom:       mono.Custom,
	}
	return nil
}

func (c Cut) mixedDuration() float64 {
	var end float64
	for _, track := range c.Tracks {
		if e := track.Offset + track.Cut.Duration; e > end {
			end = e
		}
	}
	return end
}

// Speakers returns the sorted, unique speakers labelled in the cut.
func (c Cut) Speakers() []string {
	seen := map[string]struct{}{}
	for _, sup := range c.AllSupervisions() {
		seen[sup.Speaker] = struct{}{}
	}
	return sortedKeys(seen)
}

// AllSupervisions returns the cut's supervisions. For a MixedCut the track
// supervisions are shifted by the track offset and attributed to the mixture;
// their identifiers gain the mixture ID so a source reused across mixtures
// stays distinct.
func (c Cut) AllSupervisions() []Supervision {
	if c.Type != TypeMixedCut {
		return c.Supervisions
	}
	var out []Supervision
	for _, track := range c.Tracks {
		for _, sup := range track.Cut.AllSupervisions() {
			shifted := sup
			shifted.ID = c.ID + PrefixSeparator + sup.ID
			shifted.Start = sup.Start + track.Offset
			shifted.RecordingID = c.ID
			out = append(out, shifted)
		}
	}
	return out
}
