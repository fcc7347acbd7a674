package engine

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"kbcomponent/internal/datadir"
	"kbcomponent/internal/manifest"
	"kbcomponent/internal/state"
)

type fixture struct {
	root   string
	layout datadir.Layout
	logs   bytes.Buffer
	level  *slog.LevelVar
}

func newFixture(t *testing.T, configJSON string, tables map[string]string) *fixture {
	t.Helper()
	f := &fixture{root: t.TempDir(), level: new(slog.LevelVar)}
	f.layout, _ = datadir.Resolve(f.root)
	if configJSON != "" {
		if err := os.WriteFile(f.layout.Config, []byte(configJSON), 0o644); err != nil {
			t.Fatalf("write config: %v", err)
		}
	}
	if err := os.MkdirAll(f.layout.InTables, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for name, body := range tables {
		if err := os.WriteFile(filepath.Join(f.layout.InTables, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write table: %v", err)
		}
	}
	return f
}

func (f *fixture) engine(t *testing.T) (*Engine, error) {
	t.Helper()
	return Bootstrap(Config{
		DataDir: f.root,
		RunID:   "test-run",
		Logger:  slog.New(slog.NewJSONHandler(&f.logs, &slog.HandlerOptions{Level: f.level})),
		Level:   f.level,
	})
}

func (f *fixture) run(t *testing.T) error {
	t.Helper()
	e, err := f.engine(t)
	if err != nil {
		return err
	}
	return e.Run(context.Background())
}

func (f *fixture) output(t *testing.T) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(f.layout.OutTables, OutputTableName))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	return string(b)
}

func (f *fixture) rowLogIndexes(t *testing.T) []int {
	t.Helper()
	var idx []int
	sc := bufio.NewScanner(bytes.NewReader(f.logs.Bytes()))
	for sc.Scan() {
		var m map[string]any
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("decode log: %v", err)
		}
		if msg, _ := m["msg"].(string); strings.HasPrefix(msg, "Printing line") {
			idx = append(idx, int(m["index"].(float64)))
		}
	}
	return idx
}

func TestRun_AppendsRowNumber(t *testing.T) {
	f := newFixture(t, `{"parameters": {"print_rows": false}}`, map[string]string{
		"input.csv": "name,age\nAlice,30\nBob,25\n",
	})
	start := time.Now().Truncate(time.Microsecond)

	if err := f.run(t); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got, want := f.output(t), "name,age,row_number\nAlice,30,0\nBob,25,1\n"; got != want {
		t.Fatalf("want %q, got %q", want, got)
	}
	if n := len(f.rowLogIndexes(t)); n != 0 {
		t.Fatalf("print_rows=false logged %d rows", n)
	}

	st, err := state.Load(f.layout.OutState)
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	ts, err := time.Parse(state.TimeLayout, st.LastUpdate())
	if err != nil {
		t.Fatalf("last_update %q is not ISO-8601: %v", st.LastUpdate(), err)
	}
	if ts.Before(start) {
		t.Fatalf("last_update %v earlier than run start %v", ts, start)
	}

	raw, err := os.ReadFile(filepath.Join(f.layout.OutTables, OutputTableName+".manifest"))
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	var m manifest.Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("decode manifest: %v", err)
	}
	if !m.Incremental || strings.Join(m.PrimaryKey, ",") != "row_number" || strings.Join(m.Columns, ",") != "name,age,row_number" {
		t.Fatalf("unexpected manifest %+v", m)
	}
}

func TestRun_PrintRowsLogsEveryRowInOrder(t *testing.T) {
	f := newFixture(t, `{"parameters": {"print_rows": true}}`, map[string]string{
		"input.csv": "id\na\nb\nc\nd\n",
	})

	if err := f.run(t); err != nil {
		t.Fatalf("Run: %v", err)
	}
	got := f.rowLogIndexes(t)
	if len(got) != 4 {
		t.Fatalf("want 4 row entries, got %v", got)
	}
	for i, idx := range got {
		if idx != i {
			t.Fatalf("entries out of order: %v", got)
		}
	}
}

func TestRun_HeaderOnlyInputStillUpdatesState(t *testing.T) {
	f := newFixture(t, `{"parameters": {"print_rows": true}}`, map[string]string{
		"input.csv": "name,age\n",
	})
	if err := os.WriteFile(f.layout.InState, []byte(`{"last_update": "2020-01-01T00:00:00"}`), 0o644); err != nil {
		t.Fatalf("write state: %v", err)
	}

	if err := f.run(t); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := f.output(t); got != "name,age,row_number\n" {
		t.Fatalf("unexpected output %q", got)
	}
	st, _ := state.Load(f.layout.OutState)
	if st.LastUpdate() == "" || st.LastUpdate() == "2020-01-01T00:00:00" {
		t.Fatalf("state not refreshed: %v", st)
	}
	if !strings.Contains(f.logs.String(), `"last_update":"2020-01-01T00:00:00"`) {
		t.Fatalf("previous state not logged:\n%s", f.logs.String())
	}
}

func TestBootstrap_MissingPrintRowsIsUserError(t *testing.T) {
	f := newFixture(t, `{"parameters": {}}`, map[string]string{"input.csv": "a\n1\n"})

	err := f.run(t)
	if !IsUserError(err) {
		t.Fatalf("want user error, got %v", err)
	}
	for _, p := range []string{filepath.Join(f.layout.OutTables, OutputTableName), f.layout.OutState} {
		if _, err := os.Stat(p); !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("%s should not exist: %v", p, err)
		}
	}
}

func TestBootstrap_DebugRaisesLevel(t *testing.T) {
	f := newFixture(t, `{"parameters": {"print_rows": false, "debug": true}}`, nil)

	if _, err := f.engine(t); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if f.level.Level() != slog.LevelDebug {
		t.Fatalf("want debug level, got %v", f.level.Level())
	}
}

func TestRun_NoInputTableIsUserError(t *testing.T) {
	f := newFixture(t, `{"parameters": {"print_rows": false}}`, nil)

	if err := f.run(t); !IsUserError(err) {
		t.Fatalf("want user error, got %v", err)
	}
	if _, err := os.Stat(f.layout.OutState); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("state written after failed run")
	}
}

func TestRun_BareQuoteIsReadLeniently(t *testing.T) {
	f := newFixture(t, `{"parameters": {"print_rows": false}}`, map[string]string{
		"input.csv": "name,note\nO\"Brien,x\n",
	})

	if err := f.run(t); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got, want := f.output(t), "name,note,row_number\n\"O\"\"Brien\",x,0\n"; got != want {
		t.Fatalf("want %q, got %q", want, got)
	}
}

func TestRun_InputWithRowNumberColumnIsUserError(t *testing.T) {
	f := newFixture(t, `{"parameters": {"print_rows": false}}`, map[string]string{
		"input.csv": "name,row_number\nAlice,7\n",
	})

	if err := f.run(t); !IsUserError(err) {
		t.Fatalf("want user error, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(f.layout.OutTables, OutputTableName)); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("output written for rejected input")
	}
	if _, err := os.Stat(f.layout.OutState); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("state written after failed run")
	}
}

func TestRun_StorageMappingSelectsTable(t *testing.T) {
	f := newFixture(t, `{
  "parameters": {"print_rows": false, "debug": true},
  "storage": {"input": {"tables": [{"source": "in.c-main.second", "destination": "second.csv"}]}}
}`, map[string]string{
		"first.csv":  "x\n1\n",
		"second.csv": "y\n2\n",
	})

	if err := f.run(t); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := f.output(t); got != "y,row_number\n2,0\n" {
		t.Fatalf("wrong table used: %q", got)
	}
	if !strings.Contains(f.logs.String(), `"source":"in.c-main.second"`) {
		t.Fatalf("mapping source not logged: %s", f.logs.String())
	}
}

func TestRun_MalformedRowIsInternalErrorAndLeavesNoOutput(t *testing.T) {
	f := newFixture(t, `{"parameters": {"print_rows": false}}`, map[string]string{
		"input.csv": "a\n1\n2,3\n",
	})

	err := f.run(t)
	if err == nil || IsUserError(err) {
		t.Fatalf("want internal error, got %v", err)
	}
	entries, _ := os.ReadDir(f.layout.OutTables)
	if len(entries) != 0 {
		t.Fatalf("output left behind: %v", entries)
	}
	if _, err := os.Stat(f.layout.OutState); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("state written after failed run")
	}
}

func TestRun_CancelledContext(t *testing.T) {
	f := newFixture(t, `{"parameters": {"print_rows": false}}`, map[string]string{"input.csv": "a\n1\n"})
	e, err := f.engine(t)
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := e.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}

func TestRun_WritesMetricsTextfile(t *testing.T) {
	f := newFixture(t, `{"parameters": {"print_rows": false}}`, map[string]string{"input.csv": "a\n1\n2\n"})
	prom := filepath.Join(t.TempDir(), "component.prom")
	e, err := Bootstrap(Config{
		DataDir:         f.root,
		RunID:           "r1",
		MetricsTextfile: prom,
		Logger:          slog.New(slog.NewTextHandler(&f.logs, nil)),
	})
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	raw, err := os.ReadFile(prom)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	if !strings.Contains(string(raw), `component_rows_written_total{run_id="r1"} 2`) {
		t.Fatalf("rows_written missing:\n%s", raw)
	}
}
