package csvtable

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"kbcomponent/internal/table"
	"kbcomponent/sink"
)

func newSink(t *testing.T, path string, cols table.Header) sink.Adapter {
	t.Helper()
	s, err := sink.NewAdapter("csv")
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}
	if err := s.Configure(Config{Path: path, Columns: cols}); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestDriver_WritesHeaderAndRowsWithLF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "output.csv")
	cols := table.NewHeader("name", "age", "row_number")
	s := newSink(t, path, cols)

	for _, vals := range [][]string{{"Alice", "30", "0"}, {"Bob, Jr.", "25", "1"}} {
		r, _ := table.NewRecord(cols, vals)
		if err := s.Push(r); err != nil {
			t.Fatalf("Push: %v", err)
		}
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("output visible before Flush: %v", err)
	}
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	want := "name,age,row_number\nAlice,30,0\n\"Bob, Jr.\",25,1\n"
	if string(got) != want {
		t.Fatalf("want %q, got %q", want, got)
	}
	if _, err := os.Stat(path + ".tmp"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("temp file left behind: %v", err)
	}
}

func TestDriver_CloseWithoutFlushDiscards(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output.csv")
	cols := table.NewHeader("a")
	s := newSink(t, path, cols)

	r, _ := table.NewRecord(cols, []string{"1"})
	_ = s.Push(r)
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	for _, p := range []string{path, path + ".tmp"} {
		if _, err := os.Stat(p); !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("%s should not exist: %v", p, err)
		}
	}
}

func TestDriver_RejectsMismatchedRecord(t *testing.T) {
	s := newSink(t, filepath.Join(t.TempDir(), "output.csv"), table.NewHeader("a", "b"))

	r, _ := table.NewRecord(table.NewHeader("a"), []string{"1"})
	if err := s.Push(r); err == nil {
		t.Fatal("expected error for record with wrong field count")
	}
}
