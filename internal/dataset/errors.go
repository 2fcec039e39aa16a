package dataset

import (
	"fmt"
	"strings"
)

// UnknownError reports a dataset identifier missing from the registry.
type UnknownError struct {
	Name  string
	Valid []string
}

func (e *UnknownError) Error() string {
	return fmt.Sprintf("dataset: unknown dataset %q (valid: %s)", e.Name, strings.Join(e.Valid, ", "))
}

// VariantError reports a microphone variant the corpus does not provide.
type VariantError struct {
	Dataset string
	Family  Family
	Variant string
	Valid   []string
}

func (e *VariantError) Error() string {
	if len(e.Valid) == 0 {
		return fmt.Sprintf("dataset: %s: corpus %s has no microphone variants, got %q", e.Dataset, e.Family, e.Variant)
	}
	return fmt.Sprintf("dataset: %s: invalid microphone variant %q for corpus %s (valid: %s)",
		e.Dataset, e.Variant, e.Family, strings.Join(e.Valid, ", "))
}
