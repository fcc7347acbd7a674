package pipeline

import (
	"errors"
	"fmt"
	"log/slog"

	"kbcomponent/internal/transform"
	"kbcomponent/sink"
	"kbcomponent/sink/csvtable"
	"kbcomponent/sink/kafka"
	"kbcomponent/sink/rowlog"
	"kbcomponent/source"
	srccsv "kbcomponent/source/csvtable"
)

// ErrSchemaConflict means the input table cannot take the appended column.
var ErrSchemaConflict = errors.New("schema conflict")

// Plan is everything Compile needs to wire one run.
type Plan struct {
	InputPath  string
	OutputPath string
	PrintRows  bool
	Kafka      kafka.Config
	Logger     *slog.Logger
}

// Compile opens the input, derives the output schema and configures every
// sink. On error nothing opened so far is left open.
func Compile(p Plan) (*Runner, error) {
	if p.Logger == nil {
		return nil, errors.New("pipeline: logger is required")
	}
	r := NewRunner()
	if err := wire(p, r); err != nil {
		_ = r.Close()
		return nil, err
	}
	return r, nil
}

func wire(p Plan, r *Runner) error {
	/*──────── source ───────*/
	src, err := source.NewAdapter("csv")
	if err != nil {
		return err
	}
	if err := src.Configure(srccsv.Config{Path: p.InputPath}); err != nil {
		return err
	}
	r.SetSource(src)
	if src.Schema().Index(transform.RowNumberField) >= 0 {
		return fmt.Errorf("%w: input table already has a %q column", ErrSchemaConflict, transform.RowNumberField)
	}

	/*──────── stages ───────*/
	r.AddStage(transform.NewRowNumber())
	out, err := r.OutputSchema()
	if err != nil {
		return err
	}

	/*──────── sinks ───────*/
	names := []string{}
	if p.PrintRows {
		names = append(names, "rowlog")
	}
	names = append(names, "csv")
	if p.Kafka.Enabled() {
		names = append(names, "kafka")
	}

	for _, name := range names {
		sDrv, err := sink.NewAdapter(name)
		if err != nil {
			return err
		}

		switch name {
		case "rowlog":
			err = sDrv.Configure(rowlog.Config{Logger: p.Logger})
		case "csv":
			err = sDrv.Configure(csvtable.Config{Path: p.OutputPath, Columns: out})
		case "kafka":
			kc := p.Kafka
			if kc.KeyField == "" {
				kc.KeyField = transform.RowNumberField
			}
			err = sDrv.Configure(kc)
		default:
			err = fmt.Errorf("no config block for sink %q", name)
		}
		if err != nil {
			_ = sDrv.Close()
			return err
		}
		r.AddSink(sDrv)
	}
	return nil
}
