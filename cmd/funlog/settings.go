package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/koory1st/funlog/internal/driver"
	"github.com/koory1st/funlog/internal/logging"
	"github.com/koory1st/funlog/internal/project"
)

// settings is the resolved configuration of one command invocation.
type settings struct {
	opts     driver.Options
	format   string
	manifest string
}

// manifestStart returns the directory funlog.toml is searched from.
func manifestStart(paths []string) (string, error) {
	if len(paths) == 0 {
		return os.Getwd()
	}
	info, err := os.Stat(paths[0])
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return paths[0], nil
	}
	return filepath.Dir(paths[0]), nil
}

// loadSettings merges defaults, funlog.toml, FUNLOG_MODE and flags, in that
// order of precedence.
func loadSettings(cmd *cobra.Command, paths []string) (settings, error) {
	start, err := manifestStart(paths)
	if err != nil {
		return settings{}, err
	}
	cfg := project.Default()
	var s settings
	m, ok, err := project.LoadManifest(start)
	if err != nil {
		return settings{}, err
	}
	if ok {
		cfg = m.Config
		s.manifest = m.Path
		logging.Debug().Str("manifest", m.Path).Msg("loaded manifest")
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return settings{}, err
	}

	flags := cmd.Flags()
	if flags.Lookup("release") != nil {
		release, err := flags.GetBool("release")
		if err != nil {
			return settings{}, err
		}
		if release {
			cfg.Gen.Mode = project.ModeRelease
		}
	}
	if flags.Lookup("jobs") != nil && flags.Changed("jobs") {
		if cfg.Gen.Jobs, err = flags.GetInt("jobs"); err != nil {
			return settings{}, err
		}
	}
	if flags.Lookup("format") != nil && flags.Changed("format") {
		if cfg.Diag.Format, err = flags.GetString("format"); err != nil {
			return settings{}, err
		}
		cfg.Diag.Format = strings.ToLower(cfg.Diag.Format)
	}
	if root := cmd.Root().PersistentFlags(); root.Changed("max-diagnostics") {
		if cfg.Diag.Max, err = root.GetInt("max-diagnostics"); err != nil {
			return settings{}, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return settings{}, fmt.Errorf("invalid settings: %w", err)
	}

	s.opts = driver.OptionsFromConfig(cfg)
	s.format = cfg.Diag.Format
	if wd, err := os.Getwd(); err == nil {
		s.opts.BaseDir = wd
	}
	return s, nil
}

// targetPaths defaults to the current directory.
func targetPaths(args []string) []string {
	if len(args) == 0 {
		return []string{"."}
	}
	return args
}
