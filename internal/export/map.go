// Package export stages the benchmark supervision manifests of a category
// and converts them to STM reference files for scoring.
package export

import (
	"fmt"

	"github.com/kingrea/mtprep/internal/artifact"
	"github.com/kingrea/mtprep/internal/config"
	"github.com/kingrea/mtprep/internal/dataset"
)

// Entry maps one source supervision manifest to its destination name.
type Entry struct {
	Source artifact.ManifestRef
	Dest   string
}

// Map is the ordered export map of a category.
type Map []Entry

type row struct {
	dataset, split, dest string
}

// builtin is the fixed benchmark export per category.
var builtin = map[dataset.Category][]row{
	dataset.SingleMic: {
		{"ami-sdm", "dev", "ami_sdm_dev"},
		{"ami-sdm", "test", "ami_sdm_test"},
		{"ami-ihm-mix", "dev", "ami_ihm_mix_dev"},
		{"ami-ihm-mix", "test", "ami_ihm_mix_test"},
		{"notsofar-sdm", "dev", "notsofar_sdm_dev"},
		{"notsofar-sdm", "eval", "notsofar_sdm_eval"},
		{"librimix", "dev", "librimix_dev"},
		{"librimix", "test", "librimix_test"},
	},
	dataset.MultiMic: {
		{"ami-mdm", "dev", "ami_mdm_dev"},
		{"ami-mdm", "test", "ami_mdm_test"},
		{"notsofar-mdm", "dev", "notsofar_mdm_dev"},
		{"notsofar-mdm", "eval", "notsofar_mdm_eval"},
	},
}

// MapFor returns the export map of category: the exports block of the
// project config when present, the built-in benchmark map otherwise.
func MapFor(reg *dataset.Registry, cfg *config.Config, category dataset.Category) (Map, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("export: unknown category %q", category)
	}
	var rows []row
	if entries, ok := cfg.Exports(string(category)); ok {
		for _, e := range entries {
			rows = append(rows, row{e.Dataset, e.Split, e.Dest})
		}
	} else {
		rows = builtin[category]
	}
	m := make(Map, 0, len(rows))
	for _, r := range rows {
		desc, err := reg.Lookup(r.dataset)
		if err != nil {
			return nil, err
		}
		if desc.Category != category {
			return nil, fmt.Errorf("export: %s is %s, not %s", desc.Name, desc.Category, category)
		}
		m = append(m, Entry{Source: desc.Manifest(artifact.KindSupervisions, r.split), Dest: r.dest})
	}
	return m, nil
}
