package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/koory1st/funlog/internal/directive"
	"github.com/koory1st/funlog/internal/driver"
	"github.com/koory1st/funlog/internal/logging"
	"github.com/koory1st/funlog/internal/observ"
)

var genCmd = &cobra.Command{
	Use:   "gen [flags] [file.go|directory]...",
	Short: "Generate logging companions for annotated functions",
	Long: `Generate reads every Go source under the given paths (the current directory
by default) and writes <name>_funlog.go next to each file that carries
//funlog directives. Build with -tags funlog to compile the generated files
instead of the originals.`,
	RunE: runGen,
}

func init() {
	genCmd.Flags().Bool("release", false, "copy annotated functions unchanged")
	genCmd.Flags().Bool("check", false, "report diagnostics without writing files")
	genCmd.Flags().Bool("stdout", false, "print generated files instead of writing them")
	genCmd.Flags().Int("jobs", 0, "files generated in parallel (0 = GOMAXPROCS)")
	genCmd.Flags().String("ui", "auto", "progress UI (auto|on|off)")
	genCmd.Flags().BoolP("verbose", "v", false, "list every annotated function")
	genCmd.Flags().String("format", "pretty", "diagnostics format (pretty|json|short)")
	genCmd.Flags().Bool("no-cache", false, "do not read or write the generation cache")
	genCmd.Flags().Bool("rebuild", false, "drop the generation cache first")
}

func runGen(cmd *cobra.Command, args []string) error {
	paths := targetPaths(args)
	s, err := loadSettings(cmd, paths)
	if err != nil {
		return err
	}

	check, err := cmd.Flags().GetBool("check")
	if err != nil {
		return err
	}
	toStdout, err := cmd.Flags().GetBool("stdout")
	if err != nil {
		return err
	}
	if check && toStdout {
		return fmt.Errorf("--check and --stdout are mutually exclusive")
	}
	uiFlag, err := cmd.Flags().GetString("ui")
	if err != nil {
		return err
	}
	mode, err := readUIMode(uiFlag)
	if err != nil {
		return err
	}
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return err
	}
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return err
	}
	showTimings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return err
	}

	opts := s.opts
	opts.Check = check
	if toStdout {
		opts.Stdout = cmd.OutOrStdout()
	}
	opts.Registry = directive.NewRegistry()
	if showTimings {
		opts.Timer = observ.NewTimer()
	}
	if opts.Cache, err = openCache(cmd, check || toStdout); err != nil {
		return err
	}

	var results []*driver.FileResult
	if shouldUseTUI(mode, toStdout) && !quiet {
		results, err = runGenWithUI(cmd.Context(), "funlog gen", paths, opts)
	} else {
		results, err = driver.GeneratePaths(cmd.Context(), paths, opts)
	}
	if err != nil {
		return fmt.Errorf("gen: %w", err)
	}

	// generated code owns stdout in --stdout mode
	info := cmd.OutOrStdout()
	if toStdout {
		info = cmd.ErrOrStderr()
	}
	if err := renderDiagnostics(cmd.ErrOrStderr(), results, s.format); err != nil {
		return err
	}
	if !quiet {
		if verbose && s.manifest != "" {
			fmt.Fprintf(info, "config: %s\n", s.manifest)
		}
		directive.Report(info, opts.Registry, verbose)
		printSummary(info, driver.Summarize(results), check)
	}
	if showTimings {
		fmt.Fprint(info, opts.Timer.Summary())
	}

	if hasErrors(results) {
		return fmt.Errorf("gen: generation failed")
	}
	return nil
}

// openCache returns nil when caching is disabled or pointless for the run.
func openCache(cmd *cobra.Command, noWrites bool) (*driver.DiskCache, error) {
	noCache, err := cmd.Flags().GetBool("no-cache")
	if err != nil {
		return nil, err
	}
	rebuild, err := cmd.Flags().GetBool("rebuild")
	if err != nil {
		return nil, err
	}
	if noCache || noWrites {
		return nil, nil
	}
	cache, err := driver.OpenDiskCache("funlog")
	if err != nil {
		logging.Warn().Err(err).Msg("generation cache disabled")
		return nil, nil
	}
	if rebuild {
		if err := cache.DropAll(); err != nil {
			return nil, fmt.Errorf("gen: drop cache: %w", err)
		}
	}
	return cache, nil
}

func printSummary(w io.Writer, sum driver.Summary, check bool) {
	verb := "written"
	if check {
		verb = "checked"
		sum.Written = sum.Files - sum.Skipped - sum.Failed - sum.Cached
	}
	fmt.Fprintf(w, "%d files: %d %s, %d up to date, %d skipped, %d failed\n",
		sum.Files, sum.Written, verb, sum.Cached, sum.Skipped, sum.Failed)
}
