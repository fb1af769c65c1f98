package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/koory1st/funlog/internal/driver"
)

var diagCmd = &cobra.Command{
	Use:   "diag [flags] [file.go|directory]...",
	Short: "Report funlog diagnostics without generating files",
	RunE:  runDiag,
}

func init() {
	diagCmd.Flags().String("format", "pretty", "output format (pretty|json|short)")
	diagCmd.Flags().Bool("release", false, "diagnose as in release mode")
	diagCmd.Flags().Int("jobs", 0, "files diagnosed in parallel (0 = GOMAXPROCS)")
	diagCmd.Flags().Bool("no-warnings", false, "hide warnings")
}

func runDiag(cmd *cobra.Command, args []string) error {
	paths := targetPaths(args)
	s, err := loadSettings(cmd, paths)
	if err != nil {
		return err
	}
	noWarnings, err := cmd.Flags().GetBool("no-warnings")
	if err != nil {
		return err
	}

	opts := s.opts
	opts.Check = true
	results, err := driver.GeneratePaths(cmd.Context(), paths, opts)
	if err != nil {
		return fmt.Errorf("diag: %w", err)
	}
	if noWarnings {
		dropWarnings(results)
	}
	if err := renderDiagnostics(cmd.OutOrStdout(), results, s.format); err != nil {
		return err
	}
	if hasErrors(results) {
		return fmt.Errorf("diag: errors found")
	}
	return nil
}
