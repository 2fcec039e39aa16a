package dataset

import (
	"fmt"
	"maps"
	"slices"
)

// Registry holds the immutable set of preparable datasets in declaration
// order. It is built once and only read afterwards.
type Registry struct {
	byName map[string]Descriptor
	order  []string
}

// NewRegistry validates the descriptors and indexes them by name. Every
// declared dependency must itself be registered.
func NewRegistry(descriptors ...Descriptor) (*Registry, error) {
	r := &Registry{byName: make(map[string]Descriptor, len(descriptors))}
	for _, desc := range descriptors {
		if err := desc.Validate(); err != nil {
			return nil, err
		}
		if _, exists := r.byName[desc.Name]; exists {
			return nil, fmt.Errorf("dataset: %s already registered", desc.Name)
		}
		desc.Splits = slices.Clone(desc.Splits)
		desc.WindowSplits = slices.Clone(desc.WindowSplits)
		desc.SourceSplits = maps.Clone(desc.SourceSplits)
		r.byName[desc.Name] = desc
		r.order = append(r.order, desc.Name)
	}
	for _, name := range r.order {
		desc := r.byName[name]
		if desc.DependsOn == "" {
			continue
		}
		dep, ok := r.byName[desc.DependsOn]
		if !ok {
			return nil, fmt.Errorf("dataset: %s depends on unregistered dataset %s", name, desc.DependsOn)
		}
		for split, source := range desc.SourceSplits {
			if !slices.Contains(dep.Splits, source) {
				return nil, fmt.Errorf("dataset: %s split %s maps to unknown %s split %s", name, split, dep.Name, source)
			}
		}
	}
	return r, nil
}

// MustNewRegistry panics if the descriptors are inconsistent.
func MustNewRegistry(descriptors ...Descriptor) *Registry {
	r, err := NewRegistry(descriptors...)
	if err != nil {
		panic(err)
	}
	return r
}

// Default returns the registry of every supported dataset.
func Default() *Registry {
	return MustNewRegistry(Builtin()...)
}

// Builtin returns the descriptors of the supported datasets.
func Builtin() []Descriptor {
	amiSplits := []string{"train", "dev", "test"}
	notsofarSplits := []string{"train", "dev", "eval"}
	return []Descriptor{
		newDescriptor("ami-sdm", FamilyAMI, SingleMic, amiSplits, "train"),
		newDescriptor("ami-ihm-mix", FamilyAMI, SingleMic, amiSplits, "train"),
		withToken(newDescriptor("notsofar-sdm", FamilyNotsofar, SingleMic, notsofarSplits, "train"), "HF_TOKEN"),
		newDescriptor("librispeech", FamilyLibriSpeech, SingleMic,
			[]string{"train-clean-100", "train-clean-360", "train-other-500", "dev-clean", "test-clean"}),
		withDependency(newDescriptor("librimix", FamilyLibriMix, SingleMic, amiSplits), "librispeech", map[string]string{
			"train": "train-clean-100",
			"dev":   "dev-clean",
			"test":  "test-clean",
		}),
		newDescriptor("ami-mdm", FamilyAMI, MultiMic, amiSplits, "train"),
		withToken(newDescriptor("notsofar-mdm", FamilyNotsofar, MultiMic, notsofarSplits, "train"), "HF_TOKEN"),
	}
}

func newDescriptor(name string, family Family, category Category, splits []string, windowed ...string) Descriptor {
	return Descriptor{
		Name:         name,
		Family:       family,
		Category:     category,
		Variant:      deriveVariant(name, family),
		Splits:       splits,
		WindowSplits: windowed,
	}
}

func withToken(d Descriptor, env string) Descriptor {
	d.TokenEnv = env
	return d
}

func withDependency(d Descriptor, dep string, sources map[string]string) Descriptor {
	d.DependsOn = dep
	d.SourceSplits = sources
	return d
}

// Lookup returns the descriptor for name.
func (r *Registry) Lookup(name string) (Descriptor, error) {
	desc, ok := r.byName[name]
	if !ok {
		return Descriptor{}, &UnknownError{Name: name, Valid: r.Names()}
	}
	return desc, nil
}

// IsKnown reports whether name is registered.
func (r *Registry) IsKnown(name string) bool {
	_, ok := r.byName[name]
	return ok
}

// CategoryOf returns the category of name.
func (r *Registry) CategoryOf(name string) (Category, error) {
	desc, err := r.Lookup(name)
	if err != nil {
		return "", err
	}
	return desc.Category, nil
}

// DependencyOf returns the descriptor name depends on. The boolean is false
// when the dataset has no dependency.
func (r *Registry) DependencyOf(name string) (Descriptor, bool, error) {
	desc, err := r.Lookup(name)
	if err != nil {
		return Descriptor{}, false, err
	}
	if desc.DependsOn == "" {
		return Descriptor{}, false, nil
	}
	dep, err := r.Lookup(desc.DependsOn)
	if err != nil {
		return Descriptor{}, false, err
	}
	return dep, true, nil
}

// List returns the datasets of category in registry order.
func (r *Registry) List(category Category) []Descriptor {
	var out []Descriptor
	for _, name := range r.order {
		if desc := r.byName[name]; desc.Category == category {
			out = append(out, desc)
		}
	}
	return out
}

// All returns every dataset in registry order.
func (r *Registry) All() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// Names returns every registered identifier in registry order.
func (r *Registry) Names() []string {
	return slices.Clone(r.order)
}
