package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	kjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const KeyLastUpdate = "last_update"

// TimeLayout is ISO-8601 with microseconds and UTC offset.
const TimeLayout = "2006-01-02T15:04:05.000000-07:00"

// Record is the state carried between runs.
type Record map[string]any

// LastUpdate returns the stored timestamp string, or "".
func (r Record) LastUpdate() string {
	s, _ := r[KeyLastUpdate].(string)
	return s
}

// New returns a fresh record stamped with t.
func New(t time.Time) Record {
	return Record{KeyLastUpdate: t.Format(TimeLayout)}
}

// Load reads the previous state. A missing file is an empty record.
func Load(path string) (Record, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), kjson.Parser()); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Record{}, nil
		}
		return nil, fmt.Errorf("state: load %s: %w", path, err)
	}
	return Record(k.Raw()), nil
}

// Save overwrites path with r.
func Save(path string, r Record) error {
	if r == nil {
		r = Record{}
	}
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("state: encode: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("state: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("state: write %s: %w", path, err)
	}
	return nil
}
