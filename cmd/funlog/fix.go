package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/koory1st/funlog/internal/driver"
	"github.com/koory1st/funlog/internal/fix"
)

var fixCmd = &cobra.Command{
	Use:   "fix [flags] [file.go|directory]...",
	Short: "Apply suggested fixes to annotated sources",
	Long:  "Diagnose the sources, then apply the fixes attached to the diagnostics according to the chosen strategy.",
	RunE:  runFix,
}

func init() {
	fixCmd.Flags().Bool("all", false, "apply all fixes that need no manual review")
	fixCmd.Flags().Bool("once", false, "apply the first available fix (default)")
	fixCmd.Flags().String("id", "", "apply fixes with a specific identifier")
}

func runFix(cmd *cobra.Command, args []string) error {
	applyAll, err := cmd.Flags().GetBool("all")
	if err != nil {
		return err
	}
	applyOnce, err := cmd.Flags().GetBool("once")
	if err != nil {
		return err
	}
	targetID, err := cmd.Flags().GetString("id")
	if err != nil {
		return err
	}
	applyOpts, err := fixOptions(applyAll, applyOnce, targetID)
	if err != nil {
		return err
	}

	paths := targetPaths(args)
	s, err := loadSettings(cmd, paths)
	if err != nil {
		return err
	}
	opts := s.opts
	opts.Check = true
	results, err := driver.GeneratePaths(cmd.Context(), paths, opts)
	if err != nil {
		return fmt.Errorf("fix: diagnose failed: %w", err)
	}

	res, applyErr := applyFixes(results, applyOpts)
	return handleApplyResult(cmd.OutOrStdout(), res, applyErr)
}

func fixOptions(all, once bool, id string) (fix.ApplyOptions, error) {
	if id != "" && (all || once) {
		return fix.ApplyOptions{}, fmt.Errorf("--id cannot be combined with --all or --once")
	}
	if all && once {
		return fix.ApplyOptions{}, fmt.Errorf("--all and --once are mutually exclusive")
	}
	switch {
	case id != "":
		return fix.ApplyOptions{Mode: fix.ApplyModeID, TargetID: id}, nil
	case all:
		return fix.ApplyOptions{Mode: fix.ApplyModeAll}, nil
	default:
		return fix.ApplyOptions{Mode: fix.ApplyModeOnce}, nil
	}
}

// applyFixes applies fixes file by file, each against its own file set. In
// once mode it stops after the first file that changed.
func applyFixes(results []*driver.FileResult, opts fix.ApplyOptions) (*fix.ApplyResult, error) {
	total := &fix.ApplyResult{}
	for _, r := range results {
		if r.Bag.Len() == 0 {
			continue
		}
		r.Bag.Sort()
		res, err := fix.Apply(r.FileSet, r.Bag.Items(), opts)
		if res != nil {
			total.Applied = append(total.Applied, res.Applied...)
			total.Skipped = append(total.Skipped, res.Skipped...)
			total.FileChanges = append(total.FileChanges, res.FileChanges...)
		}
		if err != nil && !errors.Is(err, fix.ErrNoFixes) {
			return total, err
		}
		if opts.Mode == fix.ApplyModeOnce && len(total.Applied) > 0 {
			break
		}
	}
	if len(total.Applied) == 0 {
		return total, fix.ErrNoFixes
	}
	return total, nil
}

func handleApplyResult(w io.Writer, res *fix.ApplyResult, applyErr error) error {
	if res == nil {
		return applyErr
	}

	if len(res.Applied) > 0 {
		fmt.Fprintf(w, "Applied %d fix(es):\n", len(res.Applied))
		for _, item := range res.Applied {
			location := item.PrimaryPath
			if location == "" {
				location = "(unknown location)"
			}
			fmt.Fprintf(w, "  %s [%s] %s (%d edits, %s)\n",
				item.Title, item.ID, location, item.EditCount, item.Applicability.String())
		}
	}
	if len(res.FileChanges) > 0 {
		fmt.Fprintln(w, "Updated files:")
		for _, change := range res.FileChanges {
			fmt.Fprintf(w, "  %s (%d edits)\n", change.Path, change.EditCount)
		}
	}
	if len(res.Skipped) > 0 {
		fmt.Fprintln(w, "Skipped fixes:")
		for _, skip := range res.Skipped {
			id := skip.ID
			if id == "" {
				id = "(unnamed)"
			}
			if skip.Title != "" {
				fmt.Fprintf(w, "  %s [%s]: %s\n", skip.Title, id, skip.Reason)
			} else {
				fmt.Fprintf(w, "  [%s]: %s\n", id, skip.Reason)
			}
		}
	}

	if applyErr != nil {
		if errors.Is(applyErr, fix.ErrNoFixes) && len(res.Applied) == 0 {
			_, err := fmt.Fprintln(w, "No applicable fixes found.")
			return err
		}
		return applyErr
	}
	return nil
}
