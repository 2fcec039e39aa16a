package dataset

import (
	"fmt"
	"slices"
	"strings"

	"github.com/kingrea/mtprep/internal/artifact"
)

// Category partitions datasets by microphone setup.
type Category string

const (
	SingleMic Category = "single-mic"
	MultiMic  Category = "multi-mic"
)

// Categories lists every category in dispatch order.
func Categories() []Category {
	return []Category{SingleMic, MultiMic}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	return c == SingleMic || c == MultiMic
}

// ParseCategory converts a user supplied string into a Category.
func ParseCategory(value string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(value)))
	if !c.Valid() {
		return "", fmt.Errorf("dataset: unknown category %q (expected %s or %s)", value, SingleMic, MultiMic)
	}
	return c, nil
}

// Family identifies the corpus a dataset is prepared from. Each family binds
// its own stage chain; see package stages.
type Family string

const (
	FamilyAMI         Family = "ami"
	FamilyNotsofar    Family = "notsofar"
	FamilyLibriSpeech Family = "librispeech"
	FamilyLibriMix    Family = "librimix"
)

var familyVariants = map[Family][]string{
	FamilyAMI:         {"sdm", "mdm", "ihm-mix"},
	FamilyNotsofar:    {"sdm", "mdm"},
	FamilyLibriSpeech: nil,
	FamilyLibriMix:    nil,
}

// Known reports whether f is one of the supported families.
func (f Family) Known() bool {
	_, ok := familyVariants[f]
	return ok
}

// Variants returns the microphone variants the family distributes. Families
// without variants return nil.
func (f Family) Variants() []string {
	return slices.Clone(familyVariants[f])
}

// HasVariants reports whether datasets of this family carry a mic variant.
func (f Family) HasVariants() bool {
	return len(familyVariants[f]) > 0
}

// Descriptor is the immutable description of one preparable dataset.
type Descriptor struct {
	Name     string
	Family   Family
	Category Category
	// Variant is the microphone-variant tag used to namespace identifiers.
	Variant string
	// Splits lists the required splits in preparation order.
	Splits []string
	// WindowSplits lists the long-form splits that get a windowed cut-set.
	WindowSplits []string
	// DependsOn names the dataset whose terminal manifests this one consumes.
	DependsOn string
	// SourceSplits maps each split to the dependency split it is derived from.
	SourceSplits map[string]string
	// TokenEnv names an environment variable that must hold an access token
	// for acquisition to succeed.
	TokenEnv string
}

// Tag returns the namespace tag prepended to every identifier.
func (d Descriptor) Tag() string {
	if d.Variant != "" {
		return d.Variant
	}
	return d.Name
}

// Windowed reports whether split gets a windowed cut-set.
func (d Descriptor) Windowed(split string) bool {
	return slices.Contains(d.WindowSplits, split)
}

// Manifest addresses one of the dataset's manifests.
func (d Descriptor) Manifest(kind artifact.Kind, split string) artifact.ManifestRef {
	return artifact.Ref(string(d.Family), d.Name, kind, split)
}

// Terminal lists the manifests whose presence marks the dataset as prepared:
// the namespaced cut-set and re-extracted supervisions of every split.
func (d Descriptor) Terminal() []artifact.ManifestRef {
	refs := make([]artifact.ManifestRef, 0, 2*len(d.Splits))
	for _, split := range d.Splits {
		refs = append(refs, d.Manifest(artifact.KindCutSet, split), d.Manifest(artifact.KindSupervisions, split))
	}
	return refs
}

// Validate ensures the descriptor is self-consistent, including that its
// microphone variant is one the family actually distributes.
func (d Descriptor) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("dataset: name is required")
	}
	if !d.Family.Known() {
		return fmt.Errorf("dataset: %s has unknown family %q", d.Name, d.Family)
	}
	if !d.Category.Valid() {
		return fmt.Errorf("dataset: %s has unknown category %q", d.Name, d.Category)
	}
	if len(d.Splits) == 0 {
		return fmt.Errorf("dataset: %s declares no splits", d.Name)
	}
	for _, split := range d.WindowSplits {
		if !slices.Contains(d.Splits, split) {
			return fmt.Errorf("dataset: %s windows undeclared split %s", d.Name, split)
		}
	}
	for split := range d.SourceSplits {
		if !slices.Contains(d.Splits, split) {
			return fmt.Errorf("dataset: %s maps undeclared split %s", d.Name, split)
		}
	}
	if len(d.SourceSplits) > 0 && d.DependsOn == "" {
		return fmt.Errorf("dataset: %s maps source splits without a dependency", d.Name)
	}
	if d.DependsOn == d.Name {
		return fmt.Errorf("dataset: %s depends on itself", d.Name)
	}
	if d.Family.HasVariants() {
		if !slices.Contains(d.Family.Variants(), d.Variant) {
			return &VariantError{Dataset: d.Name, Family: d.Family, Variant: d.Variant, Valid: d.Family.Variants()}
		}
	} else if d.Variant != "" && d.Variant != d.Name {
		return &VariantError{Dataset: d.Name, Family: d.Family, Variant: d.Variant}
	}
	return nil
}

// deriveVariant strips the family prefix from a dataset name: "ami-sdm"
// yields "sdm", "librispeech" yields "librispeech".
func deriveVariant(name string, family Family) string {
	if rest, ok := strings.CutPrefix(name, string(family)+"-"); ok && rest != "" {
		return rest
	}
	return name
}
