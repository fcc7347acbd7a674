package csvtable

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"kbcomponent/internal/table"
	"kbcomponent/source"
)

type Config struct {
	Path      string
	Delimiter rune // 0 = ','
}

type driver struct {
	cfg    Config
	f      *os.File
	r      *csv.Reader
	header table.Header
}

func (d *driver) Configure(raw any) error {
	c, ok := raw.(Config)
	if !ok {
		return fmt.Errorf("csv-source: expected Config, got %T", raw)
	}
	if c.Delimiter == 0 {
		c.Delimiter = ','
	}
	d.cfg = c

	f, err := os.Open(c.Path)
	if err != nil {
		return fmt.Errorf("csv-source: open input: %w", err)
	}
	r := csv.NewReader(f)
	r.Comma = c.Delimiter
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.ReuseRecord = true

	names, err := r.Read()
	if err != nil {
		_ = f.Close()
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("csv-source: %s has no header row", c.Path)
		}
		return fmt.Errorf("csv-source: read header: %w", err)
	}
	d.f, d.r = f, r
	d.header = table.NewHeader(names...)
	return nil
}

func (d *driver) Schema() table.Header { return d.header }

func (d *driver) Run(ctx context.Context, emit source.EmitFunc) error {
	if d.r == nil {
		return errors.New("csv-source: not configured")
	}
	for line := 0; ; line++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		vals, err := d.r.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("csv-source: read row %d: %w", line, err)
		}
		rec, err := table.NewRecord(d.header, vals)
		if err != nil {
			return fmt.Errorf("csv-source: row %d: %w", line, err)
		}
		if err := emit(rec); err != nil {
			return err
		}
	}
}

func (d *driver) Close() error {
	if d.f == nil {
		return nil
	}
	err := d.f.Close()
	d.f, d.r = nil, nil
	return err
}

func init() {
	source.Register("csv", func() source.Adapter { return &driver{} })
}
