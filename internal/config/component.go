package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"kbcomponent/sink/kafka"
)

// ErrInvalid marks configuration problems the user can fix.
var ErrInvalid = errors.New("invalid configuration")

const (
	KeyPrintRows = "print_rows"
	KeyDebug     = "debug"

	ActionRun = "run"
)

// RequiredParameters must exist under "parameters"; the component refuses
// to start without them.
var RequiredParameters = []string{KeyPrintRows}

// RequiredImageParameters must exist under "image_parameters".
var RequiredImageParameters []string

type TableMapping struct {
	Source      string `koanf:"source"`
	Destination string `koanf:"destination"`
}

type Storage struct {
	Input struct {
		Tables []TableMapping `koanf:"tables"`
	} `koanf:"input"`
}

type Parameters struct {
	PrintRows bool         `koanf:"print_rows"`
	Debug     bool         `koanf:"debug"`
	Kafka     kafka.Config `koanf:"kafka"`
}

// Component is the parsed config.json.
type Component struct {
	Action          string         `koanf:"action"`
	Parameters      Parameters     `koanf:"parameters"`
	ImageParameters map[string]any `koanf:"image_parameters"`
	Storage         Storage        `koanf:"storage"`
}

// LoadComponent parses the component configuration at path and checks the
// required parameters. JSON is the platform format; .yml/.yaml files are
// accepted for local runs.
func LoadComponent(path string) (Component, error) {
	var cfg Component
	k := koanf.New(".")

	var parser koanf.Parser = json.Parser()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		parser = yaml.Parser()
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("%w: config file %s not found", ErrInvalid, path)
		}
		return cfg, fmt.Errorf("%w: parse %s: %v", ErrInvalid, path, err)
	}

	if err := checkRequired(k); err != nil {
		return cfg, err
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	applyDefaults(k, &cfg)
	if cfg.Action != ActionRun {
		return cfg, fmt.Errorf("%w: unsupported action %q", ErrInvalid, cfg.Action)
	}
	return cfg, nil
}

func checkRequired(k *koanf.Koanf) error {
	var missing []string
	for _, p := range RequiredParameters {
		if !k.Exists("parameters." + p) {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required parameters: %v", ErrInvalid, missing)
	}
	for _, p := range RequiredImageParameters {
		if !k.Exists("image_parameters." + p) {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required image parameters: %v", ErrInvalid, missing)
	}
	return nil
}

// ---------------------------------------------------------------------------
// defaults
// ---------------------------------------------------------------------------

func applyDefaults(k *koanf.Koanf, c *Component) {
	if c.Action == "" {
		c.Action = ActionRun
	}
	// 0 is a valid setting (no acks), so only an absent key gets the default.
	if !k.Exists("parameters.kafka.required_acks") {
		c.Parameters.Kafka.Acks = 1 // leader ack
	}
}
