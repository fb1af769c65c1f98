package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/koory1st/funlog/internal/logging"
	"github.com/koory1st/funlog/internal/prof"
	"github.com/koory1st/funlog/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "funlog",
	Short: "Generate entry and exit logging for annotated Go functions",
	Long: `funlog reads Go sources, finds functions marked with a //funlog directive
and writes companion files in which those functions log their arguments and
results. Generated files are selected with a build tag.`,
	SilenceUsage:       true,
	PersistentPreRunE:  setupGlobals,
	PersistentPostRunE: func(*cobra.Command, []string) error { return stopProfiling() },
}

// profiling is the session started by the profiling flags.
var profiling *prof.Session

func init() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(genCmd)
	rootCmd.AddCommand(diagCmd)
	rootCmd.AddCommand(fixCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-essential output")
	rootCmd.PersistentFlags().Bool("timings", false, "show timing information")
	rootCmd.PersistentFlags().Int("max-diagnostics", 100, "maximum number of diagnostics per file")
	rootCmd.PersistentFlags().String("log-level", "warn", "internal log level (trace|debug|info|warn|error|off)")
	rootCmd.PersistentFlags().String("cpu-profile", "", "write a CPU profile to file")
	rootCmd.PersistentFlags().String("mem-profile", "", "write a heap profile to file")
	rootCmd.PersistentFlags().String("runtime-trace", "", "write a runtime trace to file")
}

func main() {
	err := rootCmd.Execute()
	// PersistentPostRunE is skipped when a command fails
	if stopErr := stopProfiling(); stopErr != nil {
		fmt.Fprintf(os.Stderr, "failed to write profiles: %v\n", stopErr)
	}
	if err != nil {
		os.Exit(1)
	}
}

// setupGlobals applies the persistent flags that affect every command.
func setupGlobals(cmd *cobra.Command, _ []string) error {
	colorFlag, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return err
	}
	useColor, err := colorEnabled(colorFlag, isTerminal(os.Stdout))
	if err != nil {
		return err
	}
	color.NoColor = !useColor

	level, err := cmd.Root().PersistentFlags().GetString("log-level")
	if err != nil {
		return err
	}
	cfg := logging.DefaultConfig()
	cfg.Level = level
	if err := logging.Init(cfg); err != nil {
		return fmt.Errorf("--log-level: %w", err)
	}

	var opts prof.Options
	flags := cmd.Root().PersistentFlags()
	if opts.CPU, err = flags.GetString("cpu-profile"); err != nil {
		return err
	}
	if opts.Mem, err = flags.GetString("mem-profile"); err != nil {
		return err
	}
	if opts.Trace, err = flags.GetString("runtime-trace"); err != nil {
		return err
	}
	if profiling, err = prof.Start(opts); err != nil {
		return fmt.Errorf("failed to start profiling: %w", err)
	}
	return nil
}

func stopProfiling() error {
	s := profiling
	profiling = nil
	return s.Stop()
}

func colorEnabled(flag string, tty bool) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(flag)) {
	case "", "auto":
		return tty, nil
	case "on":
		return true, nil
	case "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid --color value %q (expected auto|on|off)", flag)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
