package csvtable

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"kbcomponent/internal/table"
	"kbcomponent/sink"
)

/* ────────── config ────────── */
type Config struct {
	Path      string
	Columns   table.Header
	Delimiter rune // 0 = ','
}

/* ────────── driver ────────── */

// driver writes to <Path>.tmp and renames it onto Path on Flush, so the
// final file only appears after a complete pass.
type driver struct {
	cfg Config
	tmp string
	f   *os.File
	buf *bufio.Writer
	w   *csv.Writer

	committed bool
}

func (d *driver) Configure(raw any) error {
	c, ok := raw.(Config)
	if !ok {
		return fmt.Errorf("csv-sink: expected Config, got %T", raw)
	}
	if c.Delimiter == 0 {
		c.Delimiter = ','
	}
	d.cfg = c

	if err := os.MkdirAll(filepath.Dir(c.Path), 0o755); err != nil {
		return fmt.Errorf("csv-sink: create output dir: %w", err)
	}
	d.tmp = c.Path + ".tmp"
	f, err := os.Create(d.tmp)
	if err != nil {
		return fmt.Errorf("csv-sink: open output: %w", err)
	}
	d.f = f
	d.buf = bufio.NewWriter(f)
	d.w = csv.NewWriter(d.buf)
	d.w.Comma = c.Delimiter
	d.w.UseCRLF = false

	if err := d.w.Write(c.Columns.Names()); err != nil {
		return fmt.Errorf("csv-sink: write header: %w", err)
	}
	return nil
}

func (d *driver) Push(r table.Record) error {
	if d.w == nil {
		return errors.New("csv-sink: not configured")
	}
	if r.Len() != d.cfg.Columns.Len() {
		return fmt.Errorf("csv-sink: record has %d fields, table has %d", r.Len(), d.cfg.Columns.Len())
	}
	if err := d.w.Write(r.Values()); err != nil {
		return fmt.Errorf("csv-sink: write row: %w", err)
	}
	return nil
}

func (d *driver) Flush() error {
	if d.w == nil {
		return errors.New("csv-sink: not configured")
	}
	d.w.Flush()
	if err := d.w.Error(); err != nil {
		return fmt.Errorf("csv-sink: flush: %w", err)
	}
	if err := d.buf.Flush(); err != nil {
		return fmt.Errorf("csv-sink: flush: %w", err)
	}
	if err := d.f.Close(); err != nil {
		return fmt.Errorf("csv-sink: close output: %w", err)
	}
	d.f = nil
	if err := os.Rename(d.tmp, d.cfg.Path); err != nil {
		return fmt.Errorf("csv-sink: commit output: %w", err)
	}
	d.committed = true
	return nil
}

func (d *driver) Close() error {
	if d.f != nil {
		_ = d.f.Close()
		d.f = nil
	}
	if !d.committed && d.tmp != "" {
		if err := os.Remove(d.tmp); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	d.w = nil
	return nil
}

/* ────────── auto-register ────────── */
func init() {
	sink.Register("csv", func() sink.Adapter { return &driver{} })
}
