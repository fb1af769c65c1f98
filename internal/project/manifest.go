// Package project loads funlog.toml, the per-project generation settings.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Mode selects whether annotated functions are rewritten.
type Mode string

const (
	ModeDebug Mode = "debug"
	// ModeRelease copies every declaration through unchanged.
	ModeRelease Mode = "release"
)

// EnvMode overrides [gen].mode when set.
const EnvMode = "FUNLOG_MODE"

type Config struct {
	Gen  GenConfig  `toml:"gen"`
	Diag DiagConfig `toml:"diag"`
}

type GenConfig struct {
	Mode     Mode   `toml:"mode"`
	Tag      string `toml:"tag"`
	Suffix   string `toml:"suffix"`
	Sink     string `toml:"sink"`
	SinkName string `toml:"sink_name"`
	Verb     string `toml:"verb"`
	Jobs     int    `toml:"jobs"`
}

type DiagConfig struct {
	Max    int    `toml:"max"`
	Format string `toml:"format"`
}

// Manifest is a loaded funlog.toml.
type Manifest struct {
	Path   string
	Root   string
	Config Config
}

// Default returns the settings used when no funlog.toml exists.
func Default() Config {
	return Config{
		Gen: GenConfig{
			Mode:     ModeDebug,
			Tag:      "funlog",
			Suffix:   "_funlog.go",
			Sink:     "github.com/koory1st/funlog",
			SinkName: "funlog",
			Verb:     "%+v",
		},
		Diag: DiagConfig{
			Max:    100,
			Format: "pretty",
		},
	}
}

// LoadManifest finds funlog.toml above startDir and loads it. ok is false
// when there is none; the defaults apply then.
func LoadManifest(startDir string) (*Manifest, bool, error) {
	path, ok, err := FindManifest(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, true, err
	}
	return &Manifest{
		Path:   path,
		Root:   filepath.Dir(path),
		Config: cfg,
	}, true, nil
}

// LoadConfig decodes path over the defaults and validates the result.
func LoadConfig(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return Config{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if meta.IsDefined("gen", "suffix") && strings.TrimSpace(cfg.Gen.Suffix) == "" {
		return Config{}, fmt.Errorf("%s: [gen].suffix must not be empty", path)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values that the decoder cannot.
func (c Config) Validate() error {
	switch c.Gen.Mode {
	case ModeDebug, ModeRelease:
	default:
		return fmt.Errorf("[gen].mode must be %q or %q, got %q", ModeDebug, ModeRelease, c.Gen.Mode)
	}
	if !strings.HasSuffix(c.Gen.Suffix, ".go") || strings.HasSuffix(c.Gen.Suffix, "_test.go") {
		return fmt.Errorf("[gen].suffix %q must end in .go and must not name a test file", c.Gen.Suffix)
	}
	if c.Gen.Jobs < 0 {
		return errors.New("[gen].jobs must not be negative")
	}
	if c.Diag.Max < 0 {
		return errors.New("[diag].max must not be negative")
	}
	switch c.Diag.Format {
	case "pretty", "json", "short":
	default:
		return fmt.Errorf("[diag].format must be pretty, json or short, got %q", c.Diag.Format)
	}
	return nil
}

// ApplyEnv applies environment overrides.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := strings.TrimSpace(getenv(EnvMode)); v != "" {
		mode := Mode(strings.ToLower(v))
		if mode != ModeDebug && mode != ModeRelease {
			return fmt.Errorf("%s must be %q or %q, got %q", EnvMode, ModeDebug, ModeRelease, v)
		}
		c.Gen.Mode = mode
	}
	return nil
}

// Template is the funlog.toml written by `funlog init`.
const Template = `# funlog configuration

[gen]
# "debug" rewrites annotated functions, "release" copies them unchanged.
mode = "debug"
# build tag that selects generated files
tag = "funlog"
suffix = "_funlog.go"
# runtime sink imported by generated code
sink = "github.com/koory1st/funlog"
sink_name = "funlog"
# fmt verb for logged values
verb = "%+v"
# parallel files, 0 means one per CPU
jobs = 0

[diag]
max = 100
# pretty, json or short
format = "pretty"
`

// ErrManifestExists is returned by WriteTemplate when funlog.toml exists and
// force is not set.
var ErrManifestExists = errors.New(ManifestName + " already exists")

// WriteTemplate writes Template into dir.
func WriteTemplate(dir string, force bool) (string, error) {
	path := filepath.Join(dir, ManifestName)
	if _, err := os.Stat(path); err == nil && !force {
		return path, ErrManifestExists
	}
	if err := os.WriteFile(path, []byte(Template), 0o600); err != nil {
		return path, fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
