package driver

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/koory1st/funlog/internal/buildpipeline"
	"github.com/koory1st/funlog/internal/directive"
	"github.com/koory1st/funlog/internal/emit"
	"github.com/koory1st/funlog/internal/observ"
	"github.com/koory1st/funlog/internal/project"
	"github.com/koory1st/funlog/internal/version"
)

// DefaultSuffix is appended to the base name of a source file to name its
// generated companion.
const DefaultSuffix = "_funlog.go"

// Options controls one generation run.
type Options struct {
	Mode project.Mode
	Emit emit.Options
	// Suffix names output files: calc.go becomes calc<Suffix>.
	Suffix         string
	MaxDiagnostics int
	Jobs           int
	// Check diagnoses without writing anything.
	Check bool
	// Stdout receives generated files instead of the file system.
	Stdout io.Writer
	// BaseDir is used for display paths.
	BaseDir string

	Cache    *DiskCache
	Progress buildpipeline.ProgressSink
	Registry *directive.Registry
	Timer    *observ.Timer
}

// OptionsFromConfig maps funlog.toml settings onto Options.
func OptionsFromConfig(cfg project.Config) Options {
	return Options{
		Mode: cfg.Gen.Mode,
		Emit: emit.Options{
			SinkPath: cfg.Gen.Sink,
			SinkName: cfg.Gen.SinkName,
			Verb:     cfg.Gen.Verb,
			Tag:      cfg.Gen.Tag,
		},
		Suffix:         cfg.Gen.Suffix,
		MaxDiagnostics: cfg.Diag.Max,
		Jobs:           cfg.Gen.Jobs,
	}
}

func (o Options) withDefaults() Options {
	if o.Mode == "" {
		o.Mode = project.ModeDebug
	}
	if o.Suffix == "" {
		o.Suffix = DefaultSuffix
	}
	if o.MaxDiagnostics <= 0 {
		o.MaxDiagnostics = 100
	}
	o.Emit = o.Emit.WithDefaults()
	return o
}

// writes reports whether generated files go to disk.
func (o Options) writes() bool {
	return !o.Check && o.Stdout == nil
}

// fingerprint identifies every option that changes generated bytes.
func (o Options) fingerprint(absPath string) []byte {
	return fmt.Appendf(nil, "v%d|%s|%s|%s|%s|%s|%s|%s|%s",
		diskCacheSchemaVersion, version.Version, o.Mode,
		o.Emit.SinkPath, o.Emit.SinkName, o.Emit.Verb, o.Emit.Tag,
		o.Suffix, absPath)
}

// OutputPath returns the generated companion of path. A GOOS/GOARCH part at
// the end of the file name stays last, so the companion is built for the same
// platforms as path: open_windows.go becomes open_funlog_windows.go.
func OutputPath(path, suffix string) string {
	if suffix == "" {
		suffix = DefaultSuffix
	}
	stem := strings.TrimSuffix(path, ".go")
	if !strings.HasSuffix(suffix, ".go") {
		return stem + suffix
	}
	dir, name := filepath.Split(stem)
	base, platform := splitPlatform(name)
	return dir + base + strings.TrimSuffix(suffix, ".go") + platform + ".go"
}

// isOutputName reports whether name is a companion file name for suffix.
func isOutputName(name, suffix string) bool {
	if strings.HasSuffix(name, suffix) {
		return true
	}
	if !strings.HasSuffix(suffix, ".go") || !strings.HasSuffix(name, ".go") {
		return false
	}
	base, platform := splitPlatform(strings.TrimSuffix(name, ".go"))
	return platform != "" && strings.HasSuffix(base+".go", suffix)
}

// splitPlatform splits a file name without extension into its base and the
// trailing _GOOS, _GOARCH or _GOOS_GOARCH part that go/build matches. The
// part before the first underscore never counts.
func splitPlatform(name string) (base, platform string) {
	i := strings.Index(name, "_")
	if i < 0 {
		return name, ""
	}
	l := strings.Split(name[i:], "_")
	n := len(l)
	switch {
	case n >= 2 && knownOS[l[n-2]] && knownArch[l[n-1]]:
		platform = "_" + l[n-2] + "_" + l[n-1]
	case knownOS[l[n-1]] || knownArch[l[n-1]]:
		platform = "_" + l[n-1]
	}
	return strings.TrimSuffix(name, platform), platform
}

// Mirrors the GOOS and GOARCH lists go/build uses for file name matching.
var knownOS = setOf(
	"aix", "android", "darwin", "dragonfly", "freebsd", "hurd", "illumos",
	"ios", "js", "linux", "nacl", "netbsd", "openbsd", "plan9", "solaris",
	"wasip1", "windows", "zos",
)

var knownArch = setOf(
	"386", "amd64", "amd64p32", "arm", "armbe", "arm64", "arm64be", "loong64",
	"mips", "mipsle", "mips64", "mips64le", "mips64p32", "mips64p32le", "ppc",
	"ppc64", "ppc64le", "riscv", "riscv64", "s390", "s390x", "sparc",
	"sparc64", "wasm",
)

func setOf(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

func displayPath(path, baseDir string) string {
	if baseDir == "" {
		return filepath.ToSlash(path)
	}
	if rel, err := filepath.Rel(baseDir, path); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel)
	}
	return filepath.ToSlash(path)
}
