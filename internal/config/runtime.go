package config

import (
	"strings"

	"github.com/google/uuid"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of every runtime environment variable.
const EnvPrefix = "KBC_"

const DefaultDataDir = "/data"

// Runtime holds the host-provided settings that are not part of config.json.
type Runtime struct {
	DataDir string `koanf:"datadir"`
	RunID   string `koanf:"runid"`
	Log     struct {
		Level string `koanf:"level"`
		JSON  bool   `koanf:"json"`
	} `koanf:"log"`
	Metrics struct {
		Textfile string `koanf:"textfile"`
	} `koanf:"metrics"`
}

// LoadRuntime reads KBC_* variables: KBC_DATADIR, KBC_RUNID, KBC_LOG_LEVEL,
// KBC_LOG_JSON, KBC_METRICS_TEXTFILE.
func LoadRuntime() (Runtime, error) {
	k := koanf.New(".")
	_ = k.Load(env.Provider(EnvPrefix, ".", envKey), nil)

	var rt Runtime
	if err := k.Unmarshal("", &rt); err != nil {
		return rt, err
	}
	if rt.DataDir == "" {
		rt.DataDir = DefaultDataDir
	}
	if rt.RunID == "" {
		rt.RunID = uuid.NewString()
	}
	return rt, nil
}

// envKey maps KBC_LOG_LEVEL to log.level.
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".")
}
