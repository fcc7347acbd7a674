package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/spf13/cobra"

	"kbcomponent/internal/config"
	"kbcomponent/internal/engine"
	"kbcomponent/internal/logging"
)

const (
	exitOK       = 0
	exitUser     = 1
	exitInternal = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}

func execute(ctx context.Context, args []string, stderr io.Writer) int {
	rt, err := config.LoadRuntime()
	if err != nil {
		fmt.Fprintf(stderr, "runtime settings: %v\n", err)
		return exitInternal
	}
	log, lvl := logging.New(logging.Options{Level: rt.Log.Level, JSON: rt.Log.JSON, Writer: stderr})

	cmd := newRootCmd(rt, log, lvl)
	cmd.SetArgs(args)
	cmd.SetOut(stderr)
	cmd.SetErr(stderr)

	return report(log, guard(func() error { return cmd.ExecuteContext(ctx) }))
}

func newRootCmd(rt config.Runtime, log *slog.Logger, lvl *slog.LevelVar) *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "component",
		Short: "Append a row_number column to the input table",
		Long: `component reads the first input table of the data directory, appends a
zero-based row_number column, and writes out/tables/output.csv with an
incremental manifest keyed on row_number, then records last_update in
out/state.json.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.NoArgs(cmd, args); err != nil {
				return &engine.UserError{Err: err}
			}
			return nil
		},
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := engine.Bootstrap(engine.Config{
				DataDir:         rt.DataDir,
				ConfigPath:      configPath,
				RunID:           rt.RunID,
				MetricsTextfile: rt.Metrics.Textfile,
				Logger:          log,
				Level:           lvl,
			})
			if err != nil {
				return err
			}
			return e.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&rt.DataDir, "data-dir", rt.DataDir, "platform data directory (env KBC_DATADIR)")
	cmd.Flags().StringVar(&configPath, "config", "", "component config file (default <data-dir>/config.json)")
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &engine.UserError{Err: err}
	})
	return cmd
}

// panicError carries a recovered panic and the stack it unwound from.
type panicError struct {
	value any
	stack []byte
}

func (p *panicError) Error() string { return fmt.Sprintf("panic: %v", p.value) }

func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r, stack: debug.Stack()}
		}
	}()
	return fn()
}

// report logs err at the tier it belongs to and returns the exit code.
func report(log *slog.Logger, err error) int {
	if err == nil {
		return exitOK
	}
	if engine.IsUserError(err) {
		log.Error(err.Error())
		return exitUser
	}
	attrs := []any{"err", err, "chain", chain(err)}
	var pe *panicError
	if errors.As(err, &pe) {
		attrs = append(attrs, "stack", string(pe.stack))
	}
	log.Error("unhandled error", attrs...)
	return exitInternal
}

func chain(err error) []string {
	var out []string
	for err != nil {
		out = append(out, fmt.Sprintf("%T: %v", err, err))
		err = errors.Unwrap(err)
	}
	return out
}
