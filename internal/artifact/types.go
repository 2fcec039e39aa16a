// Package artifact defines the filesystem-level contracts (manifests) that
// pipeline stages exchange. Every manifest is addressed by a
// (family, prefix, kind, split) tuple that maps to exactly one path under the
// manifests directory.

package artifact

import (
	"fmt"
	"strings"
)

// ManifestExt is the extension shared by every manifest file.
const ManifestExt = ".jsonl.gz"

// Kind captures what a manifest describes.
type Kind string

const (
	// KindRecordings is a raw recording set produced by corpus preparation.
	KindRecordings Kind = "recordings"
	// KindSupervisions is a supervision set. Before namespacing it holds the raw
	// corpus labels, afterwards the labels re-extracted from the cut-set.
	KindSupervisions Kind = "supervisions"
	// KindCutSet is the canonical, namespaced cut-set of a split.
	KindCutSet Kind = "cutset"
	// KindCutSetUnprefixed is the temporary cut-set written before namespacing.
	KindCutSetUnprefixed Kind = "cutset_unprefixed"
	// KindWindowed is the windowed cut-set built with the default 30s limit.
	KindWindowed Kind = "cutset_30s"
)

// WindowedKind returns the windowed cut-set kind for a maximum segment length.
func WindowedKind(maxSeconds int) Kind {
	if maxSeconds <= 0 {
		return KindWindowed
	}
	return Kind(fmt.Sprintf("cutset_%ds", maxSeconds))
}

// ManifestRef addresses one manifest on disk.
type ManifestRef struct {
	// Family selects the manifests/<family> directory (e.g. "ami").
	Family string
	// Prefix is the dataset name used as the file name prefix (e.g. "ami-sdm").
	Prefix string
	Kind   Kind
	Split  string
}

// Ref builds a manifest reference.
func Ref(family, prefix string, kind Kind, split string) ManifestRef {
	return ManifestRef{Family: family, Prefix: prefix, Kind: kind, Split: split}
}

// Name returns the fully-qualified manifest name without extension, e.g.
// "ami-sdm_cutset_train".
func (r ManifestRef) Name() string {
	if r.Split == "" {
		return r.Prefix + "_" + string(r.Kind)
	}
	return r.Prefix + "_" + string(r.Kind) + "_" + r.Split
}

// FileName returns the manifest file name.
func (r ManifestRef) FileName() string {
	return r.Name() + ManifestExt
}

// String implements fmt.Stringer.
func (r ManifestRef) String() string {
	return r.Family + "/" + r.Name()
}

// WithKind returns a copy of the reference pointing at another kind.
func (r ManifestRef) WithKind(kind Kind) ManifestRef {
	r.Kind = kind
	return r
}

// Validate ensures the reference is well-formed.
func (r ManifestRef) Validate() error {
	if strings.TrimSpace(r.Family) == "" {
		return fmt.Errorf("artifact: family is required")
	}
	if strings.TrimSpace(r.Prefix) == "" {
		return fmt.Errorf("artifact: prefix is required for %s", r.Family)
	}
	if r.Kind == "" {
		return fmt.Errorf("artifact: kind is required for %s", r.Prefix)
	}
	if strings.ContainsAny(r.Family+r.Prefix+r.Split, `/\`) {
		return fmt.Errorf("artifact: %s contains a path separator", r.Name())
	}
	return nil
}

// State captures the readiness of an artifact on disk.
type State string

const (
	StateMissing State = "missing"
	StateReady   State = "ready"
	StateInvalid State = "invalid"
	StateError   State = "error"
)

// CheckResult captures Store.Check results.
type CheckResult struct {
	Ref   ManifestRef
	Path  string
	State State
	Err   error
}
