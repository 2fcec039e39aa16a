package orchestrator

import (
	"slices"
	"strings"

	"github.com/kingrea/mtprep/internal/config"
	"github.com/kingrea/mtprep/internal/dataset"
	"github.com/kingrea/mtprep/internal/workflow/resolver"
)

// Request is one invocation: the requested identifiers and an optional
// category filter.
type Request struct {
	Datasets      []string
	SingleMicOnly bool
	MultiMicOnly  bool
}

// ParseDatasets splits a comma separated --datasets value.
func ParseDatasets(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if name := strings.TrimSpace(part); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// Validate rejects empty requests and conflicting category flags.
func (r Request) Validate() error {
	if r.SingleMicOnly && r.MultiMicOnly {
		return &config.Error{Field: "category", Reason: "--single-mic-only and --multi-mic-only are mutually exclusive"}
	}
	for _, name := range r.Datasets {
		if strings.TrimSpace(name) != "" {
			return nil
		}
	}
	return &config.Error{Field: "datasets", Reason: "no datasets requested"}
}

// Categories returns the categories the request may touch, in dispatch order.
func (r Request) Categories() []dataset.Category {
	switch {
	case r.SingleMicOnly:
		return []dataset.Category{dataset.SingleMic}
	case r.MultiMicOnly:
		return []dataset.Category{dataset.MultiMic}
	default:
		return dataset.Categories()
	}
}

// Partition is the request split by category. Each list keeps request order
// and may contain resolver.All.
type Partition map[dataset.Category][]string

// Partition validates r against reg and splits it by category. Unknown
// identifiers fail the whole request, as does an explicit identifier outside
// the selected category; All expands only to the selected categories.
func (r Request) Partition(reg *dataset.Registry) (Partition, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	allowed := r.Categories()
	parts := Partition{}
	for _, raw := range r.Datasets {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		if name == resolver.All {
			for _, category := range allowed {
				if len(reg.List(category)) > 0 {
					parts[category] = append(parts[category], resolver.All)
				}
			}
			continue
		}
		category, err := reg.CategoryOf(name)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(allowed, category) {
			return nil, &config.Error{
				Field:  "datasets",
				Reason: name + " is " + string(category) + " but only " + string(allowed[0]) + " was selected",
			}
		}
		parts[category] = append(parts[category], name)
	}
	return parts, nil
}
