package resolver

import (
	"fmt"
	"strings"

	"github.com/kingrea/mtprep/internal/dataset"
)

// All is the sentinel that expands to every dataset of the category.
const All = "all"

// Plan is the ordered list of datasets to prepare. Each dataset appears once
// and after its dependency.
type Plan []dataset.Descriptor

// Names returns the dataset identifiers in plan order.
func (p Plan) Names() []string {
	names := make([]string, len(p))
	for i, desc := range p {
		names[i] = desc.Name
	}
	return names
}

// CategoryError reports a dataset that does not belong to the category being
// resolved, either requested directly or reached as a dependency.
type CategoryError struct {
	Dataset  string
	Category dataset.Category
	Want     dataset.Category
	// Via names the dependent that pulled Dataset in; empty when requested.
	Via string
}

func (e *CategoryError) Error() string {
	if e.Via != "" {
		return fmt.Sprintf("resolver: %s depends on %s dataset %s, expected %s", e.Via, e.Category, e.Dataset, e.Want)
	}
	return fmt.Sprintf("resolver: %s is a %s dataset, expected %s", e.Dataset, e.Category, e.Want)
}

// CycleError reports a dependency loop.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("resolver: dependency cycle %s", strings.Join(e.Path, " -> "))
}

// Resolve produces the plan for requested within category. The sentinel All
// expands to every dataset of category in registry order. Dependencies are
// inserted depth-first before their dependents; the first occurrence of an
// identifier wins and later duplicates are dropped.
func Resolve(reg *dataset.Registry, requested []string, category dataset.Category) (Plan, error) {
	if reg == nil {
		return nil, fmt.Errorf("resolver: registry is required")
	}
	if !category.Valid() {
		return nil, fmt.Errorf("resolver: unknown category %q", category)
	}
	names := expand(reg, requested, category)

	placed := make(map[string]bool, len(names))
	visiting := make(map[string]bool)
	var stack []string
	plan := make(Plan, 0, len(names))

	var visit func(name, via string) error
	visit = func(name, via string) error {
		if placed[name] {
			return nil
		}
		if visiting[name] {
			return &CycleError{Path: append(cyclePath(stack, name), name)}
		}
		desc, err := reg.Lookup(name)
		if err != nil {
			return err
		}
		if desc.Category != category {
			return &CategoryError{Dataset: name, Category: desc.Category, Want: category, Via: via}
		}
		visiting[name] = true
		stack = append(stack, name)
		if desc.DependsOn != "" {
			if err := visit(desc.DependsOn, name); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		delete(visiting, name)
		placed[name] = true
		plan = append(plan, desc)
		return nil
	}
	for _, name := range names {
		if err := visit(name, ""); err != nil {
			return nil, err
		}
	}
	return plan, nil
}

func expand(reg *dataset.Registry, requested []string, category dataset.Category) []string {
	out := make([]string, 0, len(requested))
	for _, raw := range requested {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		if name == All {
			for _, desc := range reg.List(category) {
				out = append(out, desc.Name)
			}
			continue
		}
		out = append(out, name)
	}
	return out
}

func cyclePath(stack []string, name string) []string {
	for i, entry := range stack {
		if entry == name {
			return append([]string(nil), stack[i:]...)
		}
	}
	return append([]string(nil), stack...)
}
