package source

import (
	"context"
	"fmt"

	"kbcomponent/internal/table"
)

// EmitFunc receives each record read by a source, in input order.
type EmitFunc func(table.Record) error

type Adapter interface {
	Configure(any) error
	Schema() table.Header
	Run(context.Context, EmitFunc) error
	Close() error
}

// Factory builds an Adapter (e.g., the csvtable driver).
type Factory func() Adapter

var registry = map[string]Factory{}

// Register is called from each driver's init().
func Register(name string, f Factory) {
	registry[name] = f
}

// NewAdapter returns a driver by name ("csv", ...).
func NewAdapter(name string) (Adapter, error) {
	if f, ok := registry[name]; ok {
		return f(), nil
	}
	return nil, fmt.Errorf("source: unsupported driver %q", name)
}
