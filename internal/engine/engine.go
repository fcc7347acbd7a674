package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"kbcomponent/internal/config"
	"kbcomponent/internal/datadir"
	"kbcomponent/internal/manifest"
	"kbcomponent/internal/pipeline"
	"kbcomponent/internal/state"
	"kbcomponent/internal/telemetry"
	"kbcomponent/internal/transform"
)

// OutputTableName is the file the component writes under out/tables.
const OutputTableName = "output.csv"

type Engine struct {
	cfg     Config
	log     *slog.Logger
	layout  datadir.Layout
	comp    config.Component
	metrics *telemetry.Metrics
}

// Run numbers the rows of the input table into out/tables/output.csv,
// writes its manifest and then the new state. The state is only written
// after everything else succeeded.
func (e *Engine) Run(ctx context.Context) (err error) {
	started := e.cfg.Now()
	defer func() {
		if err != nil {
			kind := "internal"
			if IsUserError(err) {
				kind = "user"
			}
			e.metrics.ObserveFailure(kind)
		}
		if werr := e.metrics.WriteTextfile(e.cfg.MetricsTextfile); werr != nil {
			e.log.Warn("metrics textfile not written", "path", e.cfg.MetricsTextfile, "err", werr)
		}
	}()

	in, err := e.inputTable()
	if err != nil {
		return err
	}
	e.log.Info("input table", "path", in.FullPath)

	prev, err := state.Load(e.layout.InState)
	if err != nil {
		return err
	}
	e.log.Info("previous state", "last_update", prev.LastUpdate())

	out := e.layout.OutputTable(OutputTableName, true, transform.RowNumberField)
	e.log.Info("output table", "path", out.FullPath)

	runner, err := pipeline.Compile(pipeline.Plan{
		InputPath:  in.FullPath,
		OutputPath: out.FullPath,
		PrintRows:  e.comp.Parameters.PrintRows,
		Kafka:      e.comp.Parameters.Kafka,
		Logger:     e.log,
	})
	if err != nil {
		if errors.Is(err, pipeline.ErrSchemaConflict) {
			return &UserError{Err: err}
		}
		return fmt.Errorf("pipeline: %w", err)
	}
	schema, err := runner.OutputSchema()
	if err != nil {
		_ = runner.Close()
		return fmt.Errorf("pipeline: %w", err)
	}

	stats, err := runner.Run(ctx)
	if err != nil {
		return fmt.Errorf("transform %s: %w", in.Name, err)
	}

	if err := manifest.Write(out, schema); err != nil {
		return err
	}

	finished := e.cfg.Now()
	if err := state.Save(e.layout.OutState, state.New(finished)); err != nil {
		return err
	}

	e.metrics.ObserveRun(stats.RowsRead, stats.RowsWritten, started, finished)
	e.log.Info("run finished",
		"rows", stats.RowsWritten,
		"output", out.FullPath,
		"duration", finished.Sub(started).String(),
	)
	return nil
}

// inputTable picks the table named by the first input mapping when present,
// otherwise the first table file by name.
func (e *Engine) inputTable() (datadir.TableDef, error) {
	tables, err := e.layout.InputTables()
	if err != nil {
		return datadir.TableDef{}, fmt.Errorf("list input tables: %w", err)
	}
	if len(tables) == 0 {
		return datadir.TableDef{}, userErrorf("no input table found in %s", e.layout.InTables)
	}
	if m := e.comp.Storage.Input.Tables; len(m) > 0 && m[0].Destination != "" {
		for _, t := range tables {
			if t.Name == m[0].Destination {
				e.log.Debug("input table mapped", "source", m[0].Source, "destination", m[0].Destination)
				return t, nil
			}
		}
		return datadir.TableDef{}, userErrorf("input table %q from storage mapping not found in %s", m[0].Destination, e.layout.InTables)
	}
	return tables[0], nil
}
