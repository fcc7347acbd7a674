// Package manifest writes the metadata file that accompanies an output
// table: its columns and how the platform should load it.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"

	"kbcomponent/internal/datadir"
	"kbcomponent/internal/table"
)

type Manifest struct {
	Columns     []string `json:"columns"`
	Incremental bool     `json:"incremental"`
	PrimaryKey  []string `json:"primary_key"`
	Delimiter   string   `json:"delimiter"`
	Enclosure   string   `json:"enclosure"`
}

func For(def datadir.TableDef, cols table.Header) Manifest {
	pk := def.PrimaryKey
	if pk == nil {
		pk = []string{}
	}
	return Manifest{
		Columns:     cols.Names(),
		Incremental: def.Incremental,
		PrimaryKey:  pk,
		Delimiter:   ",",
		Enclosure:   `"`,
	}
}

// Write stores the manifest next to the table as <table>.manifest.
func Write(def datadir.TableDef, cols table.Header) error {
	b, err := json.MarshalIndent(For(def, cols), "", "  ")
	if err != nil {
		return fmt.Errorf("manifest: encode: %w", err)
	}
	if err := os.WriteFile(def.ManifestPath(), b, 0o644); err != nil {
		return fmt.Errorf("manifest: write %s: %w", def.ManifestPath(), err)
	}
	return nil
}
