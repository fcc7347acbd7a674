package pipeline

import (
	"context"
	"errors"
	"fmt"

	"kbcomponent/internal/table"
	"kbcomponent/internal/transform"
	"kbcomponent/sink"
	"kbcomponent/source"
)

// Stats summarises one run.
type Stats struct {
	RowsRead    int
	RowsWritten int
}

// Runner moves rows from one source through ordered stages into every sink,
// one row at a time on the caller's goroutine.
type Runner struct {
	source source.Adapter
	stages []transform.Stage
	sinks  []sink.Adapter

	closed bool
}

func NewRunner() *Runner { return &Runner{} }

func (r *Runner) SetSource(s source.Adapter) { r.source = s }
func (r *Runner) AddStage(s transform.Stage) { r.stages = append(r.stages, s) }
func (r *Runner) AddSink(s sink.Adapter)     { r.sinks = append(r.sinks, s) }
func (r *Runner) Sinks() []sink.Adapter      { return append([]sink.Adapter(nil), r.sinks...) }

// OutputSchema folds every stage's schema over the source header.
func (r *Runner) OutputSchema() (table.Header, error) {
	if r.source == nil {
		return table.Header{}, errors.New("runner: no source configured")
	}
	h := r.source.Schema()
	for _, st := range r.stages {
		h = st.Schema(h)
	}
	return h, nil
}

/*──────── row routing ───────*/
func (r *Runner) pushRecord(ctx context.Context, rec table.Record, stats *Stats) error {
	stats.RowsRead++
	var err error
	for _, st := range r.stages {
		if rec, err = st.Apply(ctx, rec); err != nil {
			return fmt.Errorf("stage: row %d: %w", stats.RowsRead-1, err)
		}
	}
	for _, s := range r.sinks {
		if err := s.Push(rec); err != nil {
			return err
		}
	}
	stats.RowsWritten++
	return nil
}

// Run reads the source to exhaustion, flushes every sink once, and closes
// all adapters whatever the outcome. Sinks are not flushed after a failure.
func (r *Runner) Run(ctx context.Context) (stats Stats, err error) {
	if r.source == nil {
		return stats, errors.New("runner: no source configured")
	}
	defer func() {
		if cerr := r.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	err = r.source.Run(ctx, func(rec table.Record) error {
		return r.pushRecord(ctx, rec, &stats)
	})
	if err != nil {
		return stats, err
	}
	for _, s := range r.sinks {
		if err := s.Flush(); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

// Close releases the source and every sink. Safe to call more than once.
func (r *Runner) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	var errs []error
	if r.source != nil {
		errs = append(errs, r.source.Close())
	}
	for _, s := range r.sinks {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}
