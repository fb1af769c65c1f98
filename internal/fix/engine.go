// Package fix applies the edits attached to diagnostics back to the source
// files they came from.
package fix

import (
	"cmp"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/koory1st/funlog/internal/diag"
	"github.com/koory1st/funlog/internal/source"
)

// ErrNoFixes is returned when no fixes were applied.
var ErrNoFixes = errors.New("no applicable fixes found")

// ApplyMode determines selection strategy for fixes.
type ApplyMode uint8

const (
	// ApplyModeOnce applies the first fix, preferring always-safe ones.
	ApplyModeOnce ApplyMode = iota
	// ApplyModeAll applies every fix that does not need manual review.
	ApplyModeAll
	// ApplyModeID applies every fix with the given ID.
	ApplyModeID
)

// ApplyOptions configures how fixes are selected.
type ApplyOptions struct {
	Mode     ApplyMode
	TargetID string
}

// AppliedFix records a successfully applied fix.
type AppliedFix struct {
	ID            string
	Title         string
	Code          diag.Code
	Message       string
	Applicability diag.FixApplicability
	PrimaryPath   string
	EditCount     int
}

// SkippedFix captures a skipped or failed fix with a reason.
type SkippedFix struct {
	ID     string
	Title  string
	Reason string
}

// FileChange summarises modifications performed on a file.
type FileChange struct {
	Path      string
	EditCount int
}

// ApplyResult aggregates applied fixes, skipped ones, and file changes.
type ApplyResult struct {
	Applied     []AppliedFix
	Skipped     []SkippedFix
	FileChanges []FileChange
}

type candidate struct {
	diag  diag.Diagnostic
	fix   diag.Fix
	order int
}

// Apply collects fixes from diagnostics, selects a subset according to opts,
// applies them and writes the touched files.
func Apply(fs *source.FileSet, diagnostics []diag.Diagnostic, opts ApplyOptions) (*ApplyResult, error) {
	result := &ApplyResult{}
	if fs == nil {
		return result, fmt.Errorf("fix: FileSet is nil")
	}

	candidates, buildSkips := gatherCandidates(diagnostics)
	result.Skipped = append(result.Skipped, buildSkips...)
	if len(candidates) == 0 {
		return result, ErrNoFixes
	}
	sortCandidates(candidates)

	selected, selectionSkips := selectCandidates(candidates, opts)
	result.Skipped = append(result.Skipped, selectionSkips...)
	if len(selected) == 0 {
		return result, ErrNoFixes
	}

	applied, skippedDuringApply, changes, err := applyCandidates(fs, selected)
	result.Applied = append(result.Applied, applied...)
	result.Skipped = append(result.Skipped, skippedDuringApply...)
	result.FileChanges = append(result.FileChanges, changes...)
	if err != nil {
		return result, err
	}
	if len(result.Applied) == 0 {
		return result, ErrNoFixes
	}
	return result, nil
}

// gatherCandidates flattens the fixes of every diagnostic. Fixes without an
// ID get one derived from the diagnostic code and position; a fix repeating
// an ID at the same position is skipped.
func gatherCandidates(diagnostics []diag.Diagnostic) ([]candidate, []SkippedFix) {
	var cands []candidate
	var skips []SkippedFix
	type key struct {
		id    string
		start uint32
		file  source.FileID
	}
	seen := make(map[key]bool)

	order := 0
	for _, d := range diagnostics {
		for idx, f := range d.Fixes {
			if len(f.Edits) == 0 {
				skips = append(skips, SkippedFix{ID: f.ID, Title: f.Title, Reason: "fix has no edits"})
				continue
			}
			if f.ID == "" {
				f.ID = fmt.Sprintf("%s-%d-%d-%d", d.Code.ID(), d.Primary.File, d.Primary.Start, idx)
			}
			k := key{id: f.ID, start: d.Primary.Start, file: d.Primary.File}
			if seen[k] {
				skips = append(skips, SkippedFix{ID: f.ID, Title: f.Title, Reason: "duplicate fix id"})
				continue
			}
			seen[k] = true
			cands = append(cands, candidate{diag: d, fix: f, order: order})
			order++
		}
	}
	return cands, skips
}

// sortCandidates orders candidates by file, position, then insertion order.
func sortCandidates(candidates []candidate) {
	slices.SortStableFunc(candidates, func(a, b candidate) int {
		pa, pb := a.diag.Primary, b.diag.Primary
		return cmp.Or(
			cmp.Compare(pa.File, pb.File),
			cmp.Compare(pa.Start, pb.Start),
			cmp.Compare(pa.End, pb.End),
			cmp.Compare(a.order, b.order),
		)
	})
}

func selectCandidates(candidates []candidate, opts ApplyOptions) ([]candidate, []SkippedFix) {
	switch opts.Mode {
	case ApplyModeID:
		var selected []candidate
		for _, cand := range candidates {
			if cand.fix.ID == opts.TargetID {
				selected = append(selected, cand)
			}
		}
		if len(selected) == 0 {
			return nil, []SkippedFix{{ID: opts.TargetID, Reason: "fix id not found"}}
		}
		return selected, nil
	case ApplyModeAll:
		selected := make([]candidate, 0, len(candidates))
		var skipped []SkippedFix
		for _, cand := range candidates {
			if cand.fix.Applicability != diag.FixApplicabilityManualReview {
				selected = append(selected, cand)
				continue
			}
			skipped = append(skipped, SkippedFix{
				ID:     cand.fix.ID,
				Title:  cand.fix.Title,
				Reason: fmt.Sprintf("applicability is %s", cand.fix.Applicability),
			})
		}
		return selected, skipped
	case ApplyModeOnce:
		for _, cand := range candidates {
			if cand.fix.Applicability == diag.FixApplicabilityAlwaysSafe {
				return []candidate{cand}, nil
			}
		}
		return []candidate{candidates[0]}, nil
	default:
		return nil, nil
	}
}

// fileState is the pending content of one file and the edits already
// applied to it, sorted by position in original coordinates.
type fileState struct {
	file    *source.File
	buf     []byte
	applied []diag.TextEdit
	edits   int
}

// workspace applies fixes in memory; nothing reaches disk before flush.
type workspace struct {
	fs    *source.FileSet
	files map[source.FileID]*fileState
}

func newWorkspace(fs *source.FileSet) *workspace {
	return &workspace{fs: fs, files: make(map[source.FileID]*fileState)}
}

// stage applies the edits of one fix to copies of the file states. The
// returned states replace the current ones on commit; reason is set when the
// fix cannot be applied.
func (w *workspace) stage(f diag.Fix) (map[source.FileID]*fileState, string) {
	staged := make(map[source.FileID]*fileState)
	for fileID, edits := range groupEditsByFile(f.Edits) {
		cur := w.files[fileID]
		if cur == nil {
			file := w.fs.Get(fileID)
			switch {
			case file == nil:
				return nil, "target file is unknown"
			case file.Flags&source.FileVirtual != 0:
				return nil, "target file is virtual"
			}
			cur = &fileState{file: file, buf: file.Content}
		}
		if conflictsWithExisting(cur.applied, edits) {
			return nil, "conflicts with previously applied edits in " + cur.file.FormatPath("auto", w.fs.BaseDir())
		}

		next := &fileState{
			file:    cur.file,
			buf:     append([]byte(nil), cur.buf...),
			applied: append([]diag.TextEdit(nil), cur.applied...),
			edits:   cur.edits + len(edits),
		}
		// back to front keeps the offsets of earlier edits valid
		slices.SortStableFunc(edits, func(a, b diag.TextEdit) int {
			if a.Span.Start != b.Span.Start {
				return cmp.Compare(b.Span.Start, a.Span.Start)
			}
			return cmp.Compare(b.Span.End, a.Span.End)
		})
		for _, edit := range edits {
			if reason := next.splice(cur.applied, edit); reason != "" {
				return nil, reason
			}
		}
		for _, edit := range edits {
			next.record(edit)
		}
		staged[fileID] = next
	}
	return staged, ""
}

// splice replaces the span of edit, shifted past the edits in prior.
func (st *fileState) splice(prior []diag.TextEdit, edit diag.TextEdit) string {
	start := int(edit.Span.Start) + shiftBefore(prior, int(edit.Span.Start))
	end := int(edit.Span.End) + shiftBefore(prior, int(edit.Span.End))
	if start < 0 || end < start || end > len(st.buf) {
		return "edit span out of range"
	}
	if edit.OldText != "" && string(st.buf[start:end]) != edit.OldText {
		return "existing text does not match expected content"
	}
	st.buf = slices.Concat(st.buf[:start], []byte(edit.NewText), st.buf[end:])
	return ""
}

func (st *fileState) record(edit diag.TextEdit) {
	i, _ := slices.BinarySearchFunc(st.applied, edit, func(e, target diag.TextEdit) int {
		if e.Span.Start != target.Span.Start {
			return cmp.Compare(e.Span.Start, target.Span.Start)
		}
		return cmp.Compare(e.Span.End, target.Span.End)
	})
	st.applied = slices.Insert(st.applied, i, edit)
}

func (w *workspace) commit(staged map[source.FileID]*fileState) {
	maps.Copy(w.files, staged)
}

// flush writes every touched file, keeping its permissions.
func (w *workspace) flush() ([]FileChange, error) {
	changes := make([]FileChange, 0, len(w.files))
	for _, st := range w.files {
		path := st.file.Path
		mode := os.FileMode(0o644)
		if info, err := os.Stat(path); err == nil {
			mode = info.Mode()
		}
		if err := os.WriteFile(path, st.buf, mode); err != nil {
			return changes, fmt.Errorf("write %s: %w", path, err)
		}
		changes = append(changes, FileChange{
			Path:      st.file.FormatPath("relative", w.fs.BaseDir()),
			EditCount: st.edits,
		})
	}
	slices.SortFunc(changes, func(a, b FileChange) int {
		return cmp.Compare(a.Path, b.Path)
	})
	return changes, nil
}

func applyCandidates(fs *source.FileSet, selected []candidate) ([]AppliedFix, []SkippedFix, []FileChange, error) {
	ws := newWorkspace(fs)
	var applied []AppliedFix
	var skipped []SkippedFix
	for _, cand := range selected {
		staged, reason := ws.stage(cand.fix)
		if reason != "" {
			skipped = append(skipped, SkippedFix{ID: cand.fix.ID, Title: cand.fix.Title, Reason: reason})
			continue
		}
		ws.commit(staged)
		applied = append(applied, AppliedFix{
			ID:            cand.fix.ID,
			Title:         cand.fix.Title,
			Code:          cand.diag.Code,
			Message:       cand.diag.Message,
			Applicability: cand.fix.Applicability,
			PrimaryPath:   formatFilePath(fs, cand.diag.Primary.File),
			EditCount:     len(cand.fix.Edits),
		})
	}
	if len(applied) == 0 {
		return nil, skipped, nil, nil
	}
	changes, err := ws.flush()
	return applied, skipped, changes, err
}

func conflictsWithExisting(existing, edits []diag.TextEdit) bool {
	for _, prev := range existing {
		if slices.ContainsFunc(edits, func(e diag.TextEdit) bool { return spansConflict(prev, e) }) {
			return true
		}
	}
	return false
}

// spansConflict reports whether two edits overlap as half-open intervals.
// Two insertions never conflict; an insertion conflicts with a replacement
// whose span holds its position.
func spansConflict(a, b diag.TextEdit) bool {
	aStart, aEnd := a.Span.Start, a.Span.End
	bStart, bEnd := b.Span.Start, b.Span.End
	switch {
	case aStart == aEnd && bStart == bEnd:
		return false
	case aStart == aEnd:
		return bStart <= aStart && aStart < bEnd
	case bStart == bEnd:
		return aStart <= bStart && bStart < aEnd
	default:
		return aStart < bEnd && bStart < aEnd
	}
}

func groupEditsByFile(edits []diag.TextEdit) map[source.FileID][]diag.TextEdit {
	buckets := make(map[source.FileID][]diag.TextEdit)
	for _, edit := range edits {
		buckets[edit.Span.File] = append(buckets[edit.Span.File], edit)
	}
	return buckets
}

// shiftBefore is how far applied edits ending at or before pos have moved it.
func shiftBefore(applied []diag.TextEdit, pos int) int {
	delta := 0
	for _, e := range applied {
		if int(e.Span.Start) > pos {
			break
		}
		if end := int(e.Span.End); end <= pos {
			delta += len(e.NewText) - (end - int(e.Span.Start))
		}
	}
	return delta
}

func formatFilePath(fs *source.FileSet, fileID source.FileID) string {
	if file := fs.Get(fileID); file != nil {
		return file.FormatPath("auto", fs.BaseDir())
	}
	return ""
}
