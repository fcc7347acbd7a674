// Package rowlog is the print_rows sink: one info log entry per pushed row.
package rowlog

import (
	"context"
	"fmt"
	"log/slog"

	"kbcomponent/internal/table"
	"kbcomponent/sink"
)

// Message is the log message every per-row entry carries.
const Message = "Printing line"

type Config struct {
	Logger *slog.Logger
}

type driver struct {
	log *slog.Logger
	seq int
}

func (d *driver) Configure(raw any) error {
	c, ok := raw.(Config)
	if !ok {
		return fmt.Errorf("rowlog-sink: expected Config, got %T", raw)
	}
	if c.Logger == nil {
		return fmt.Errorf("rowlog-sink: logger is required")
	}
	d.log = c.Logger
	return nil
}

func (d *driver) Push(r table.Record) error {
	d.log.LogAttrs(context.Background(), slog.LevelInfo,
		fmt.Sprintf("%s %d: %s", Message, d.seq, r),
		slog.Int("index", d.seq),
		slog.String("row", r.String()),
	)
	d.seq++
	return nil
}

func (d *driver) Flush() error { return nil }
func (d *driver) Close() error { return nil }

func init() {
	sink.Register("rowlog", func() sink.Adapter { return &driver{} })
}
