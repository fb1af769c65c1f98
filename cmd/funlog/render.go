package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/koory1st/funlog/internal/diag"
	"github.com/koory1st/funlog/internal/diagfmt"
	"github.com/koory1st/funlog/internal/driver"
)

// renderDiagnostics prints the diagnostics of every result in format.
// Each bag is sorted and deduplicated first. JSON output is a single
// document keyed by file path.
func renderDiagnostics(w io.Writer, results []*driver.FileResult, format string) error {
	for _, r := range results {
		r.Bag.Sort()
		r.Bag.Dedup()
	}
	switch format {
	case "pretty":
		opts := diagfmt.PrettyOpts{
			Color:     !color.NoColor,
			PathMode:  diagfmt.PathModeRelative,
			ShowNotes: true,
			ShowFixes: true,
		}
		for _, r := range results {
			if r.Bag.Len() == 0 {
				continue
			}
			diagfmt.Pretty(w, r.Bag, r.FileSet, opts)
		}
		return nil
	case "short":
		for _, r := range results {
			if r.Bag.Len() == 0 {
				continue
			}
			if _, err := fmt.Fprintln(w, diag.FormatShortDiagnostics(r.Bag.Items(), r.FileSet, true)); err != nil {
				return err
			}
		}
		return nil
	case "json":
		opts := diagfmt.JSONOpts{
			IncludePositions: true,
			PathMode:         diagfmt.PathModeRelative,
			IncludeNotes:     true,
			IncludeFixes:     true,
		}
		output := make(map[string]diagfmt.DiagnosticsOutput, len(results))
		for _, r := range results {
			if r.Bag.Len() == 0 {
				continue
			}
			data, err := diagfmt.BuildDiagnosticsOutput(r.Bag, r.FileSet, opts)
			if err != nil {
				return fmt.Errorf("failed to format diagnostics: %w", err)
			}
			output[r.Path] = data
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(output)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func hasErrors(results []*driver.FileResult) bool {
	for _, r := range results {
		if r.Failed() {
			return true
		}
	}
	return false
}

func dropWarnings(results []*driver.FileResult) {
	for _, r := range results {
		r.Bag.Filter(func(d diag.Diagnostic) bool {
			return d.Severity >= diag.SevError
		})
	}
}
