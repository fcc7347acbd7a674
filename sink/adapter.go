package sink

import (
	"fmt"

	"kbcomponent/internal/table"
)

// Adapter is the common behaviour every sink exposes.
type Adapter interface {
	Configure(any) error     // driver-specific config struct
	Push(table.Record) error // consume one fully transformed row
	Flush() error            // commit after the last row of a successful run
	Close() error            // idempotent; drops anything not flushed
}

/*──────── registry ───────*/

type factory = func() Adapter

var reg = map[string]factory{}

func Register(name string, f factory) { reg[name] = f }

func NewAdapter(name string) (Adapter, error) {
	if f, ok := reg[name]; ok {
		return f(), nil
	}
	return nil, fmt.Errorf("unknown sink %q", name)
}
