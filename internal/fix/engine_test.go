package fix

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/koory1st/funlog/internal/diag"
	"github.com/koory1st/funlog/internal/source"
)

const calcSrc = "package calc\n\n//funlog:debgu\nfunc f() {}\n"

func load(t *testing.T, content string) (*source.FileSet, source.FileID, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "calc.go")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	fs := source.NewFileSetWithBase(dir)
	id, err := fs.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return fs, id, path
}

func spelling(id source.FileID) diag.Diagnostic {
	span := source.Span{File: id, Start: 23, End: 28}
	d := diag.NewError(diag.CfgUnknownOption, span, "unknown option 'debgu'")
	d.Fixes = append(d.Fixes, ReplaceSpan("replace 'debgu' with 'debug'", span, "debug", "debgu",
		WithID("funlog.suggest-option"),
		WithApplicability(diag.FixApplicabilitySafeWithHeuristics)))
	return d
}

func buildTag(id source.FileID) diag.Diagnostic {
	d := diag.NewWarning(diag.GenMissingBuildTag, source.Span{File: id, Start: 0, End: 12}, "missing build tag")
	d.Fixes = append(d.Fixes, InsertText("add build tag", source.Span{File: id, Start: 0, End: 12}, "//go:build !funlog\n\n",
		WithID("funlog.add-build-tag")))
	return d
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return string(b)
}

func TestApplyAll(t *testing.T) {
	fs, id, path := load(t, calcSrc)

	res, err := Apply(fs, []diag.Diagnostic{spelling(id), buildTag(id)}, ApplyOptions{Mode: ApplyModeAll})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(res.Applied) != 2 {
		t.Fatalf("want 2 applied fixes, got %+v (skipped %+v)", res.Applied, res.Skipped)
	}
	want := "//go:build !funlog\n\npackage calc\n\n//funlog:debug\nfunc f() {}\n"
	if diff := cmp.Diff(want, readFile(t, path)); diff != "" {
		t.Fatalf("file mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]FileChange{{Path: "calc.go", EditCount: 2}}, res.FileChanges); diff != "" {
		t.Fatalf("changes mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyOncePrefersAlwaysSafe(t *testing.T) {
	fs, id, path := load(t, calcSrc)

	res, err := Apply(fs, []diag.Diagnostic{spelling(id), buildTag(id)}, ApplyOptions{Mode: ApplyModeOnce})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(res.Applied) != 1 || res.Applied[0].ID != "funlog.add-build-tag" {
		t.Fatalf("want the always-safe fix, got %+v", res.Applied)
	}
	if got := readFile(t, path); got != "//go:build !funlog\n\n"+calcSrc {
		t.Fatalf("unexpected content %q", got)
	}
}

func TestApplyByID(t *testing.T) {
	fs, id, path := load(t, calcSrc)

	res, err := Apply(fs, []diag.Diagnostic{spelling(id), buildTag(id)}, ApplyOptions{Mode: ApplyModeID, TargetID: "funlog.suggest-option"})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(res.Applied) != 1 || res.Applied[0].Code != diag.CfgUnknownOption {
		t.Fatalf("unexpected applied %+v", res.Applied)
	}
	if got := readFile(t, path); got != "package calc\n\n//funlog:debug\nfunc f() {}\n" {
		t.Fatalf("unexpected content %q", got)
	}

	_, err = Apply(fs, []diag.Diagnostic{spelling(id)}, ApplyOptions{Mode: ApplyModeID, TargetID: "nope"})
	if !errors.Is(err, ErrNoFixes) {
		t.Fatalf("want ErrNoFixes, got %v", err)
	}
}

func TestApplyGuardMismatch(t *testing.T) {
	fs, id, path := load(t, "package calc\n\n//funlog:debug\nfunc f() {}\n")

	res, err := Apply(fs, []diag.Diagnostic{spelling(id)}, ApplyOptions{Mode: ApplyModeAll})
	if !errors.Is(err, ErrNoFixes) {
		t.Fatalf("want ErrNoFixes, got %v", err)
	}
	if len(res.Skipped) != 1 || res.Skipped[0].Reason != "existing text does not match expected content" {
		t.Fatalf("unexpected skips %+v", res.Skipped)
	}
	if got := readFile(t, path); got != "package calc\n\n//funlog:debug\nfunc f() {}\n" {
		t.Fatalf("file must be untouched, got %q", got)
	}
}

func TestApplyAllSkipsManualReview(t *testing.T) {
	fs, id, _ := load(t, calcSrc)
	d := spelling(id)
	d.Fixes[0].Applicability = diag.FixApplicabilityManualReview

	res, err := Apply(fs, []diag.Diagnostic{d}, ApplyOptions{Mode: ApplyModeAll})
	if !errors.Is(err, ErrNoFixes) {
		t.Fatalf("want ErrNoFixes, got %v", err)
	}
	if len(res.Skipped) != 1 || res.Skipped[0].Reason != "applicability is manual-review" {
		t.Fatalf("unexpected skips %+v", res.Skipped)
	}
}

func TestApplyVirtualFile(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("calc.go", []byte(calcSrc))

	res, err := Apply(fs, []diag.Diagnostic{spelling(id)}, ApplyOptions{Mode: ApplyModeAll})
	if !errors.Is(err, ErrNoFixes) {
		t.Fatalf("want ErrNoFixes, got %v", err)
	}
	if len(res.Skipped) != 1 || res.Skipped[0].Reason != "target file is virtual" {
		t.Fatalf("unexpected skips %+v", res.Skipped)
	}
}

func TestGatherCandidatesSkipsDuplicates(t *testing.T) {
	d := spelling(0)
	d.Fixes = append(d.Fixes, d.Fixes[0], diag.Fix{Title: "empty"})

	cands, skips := gatherCandidates([]diag.Diagnostic{d})
	if len(cands) != 1 {
		t.Fatalf("want 1 candidate, got %d", len(cands))
	}
	reasons := []string{skips[0].Reason, skips[1].Reason}
	if diff := cmp.Diff([]string{"duplicate fix id", "fix has no edits"}, reasons); diff != "" {
		t.Fatalf("reasons mismatch (-want +got):\n%s", diff)
	}
}

func TestGatherCandidatesSynthesizesIDs(t *testing.T) {
	d := diag.NewError(diag.CfgUnknownOption, source.Span{Start: 5, End: 6}, "x")
	d.Fixes = []diag.Fix{{Title: "t", Edits: []diag.TextEdit{{NewText: "y"}}}}

	cands, _ := gatherCandidates([]diag.Diagnostic{d})
	if len(cands) != 1 || cands[0].fix.ID != "CFG3003-0-5-0" {
		t.Fatalf("unexpected candidates %+v", cands)
	}
}

func TestSpansConflict(t *testing.T) {
	edit := func(s, e uint32) diag.TextEdit { return diag.TextEdit{Span: source.Span{Start: s, End: e}} }
	tests := []struct {
		a, b diag.TextEdit
		want bool
	}{
		{edit(0, 0), edit(0, 0), false},
		{edit(0, 0), edit(0, 5), true},
		{edit(5, 5), edit(0, 5), false},
		{edit(0, 5), edit(3, 8), true},
		{edit(0, 5), edit(5, 8), false},
	}
	for _, tt := range tests {
		if got := spansConflict(tt.a, tt.b); got != tt.want {
			t.Errorf("spansConflict(%v, %v) = %v, want %v", tt.a.Span, tt.b.Span, got, tt.want)
		}
	}
}
