// Package datadir resolves the platform's data directory conventions:
// config.json, in/ and out/ tables, and the state files.
package datadir

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const ManifestSuffix = ".manifest"

type Layout struct {
	Root      string
	Config    string
	InTables  string
	OutTables string
	InState   string
	OutState  string
}

func Resolve(root string) (Layout, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return Layout{}, err
	}
	return Layout{
		Root:      abs,
		Config:    filepath.Join(abs, "config.json"),
		InTables:  filepath.Join(abs, "in", "tables"),
		OutTables: filepath.Join(abs, "out", "tables"),
		InState:   filepath.Join(abs, "in", "state.json"),
		OutState:  filepath.Join(abs, "out", "state.json"),
	}, nil
}

// TableDef describes one table file and its load semantics.
type TableDef struct {
	Name        string
	FullPath    string
	Incremental bool
	PrimaryKey  []string
}

func (t TableDef) ManifestPath() string { return t.FullPath + ManifestSuffix }

// InputTables lists regular table files in in/tables sorted by name,
// skipping manifests. A missing directory yields no tables.
func (l Layout) InputTables() ([]TableDef, error) {
	entries, err := os.ReadDir(l.InTables)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []TableDef
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasSuffix(e.Name(), ManifestSuffix) {
			continue
		}
		out = append(out, TableDef{Name: e.Name(), FullPath: filepath.Join(l.InTables, e.Name())})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// OutputTable defines a table under out/tables; nothing is written yet.
func (l Layout) OutputTable(name string, incremental bool, primaryKey ...string) TableDef {
	return TableDef{
		Name:        name,
		FullPath:    filepath.Join(l.OutTables, name),
		Incremental: incremental,
		PrimaryKey:  primaryKey,
	}
}
