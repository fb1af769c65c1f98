package driver

import (
	"go/ast"
	"go/build/constraint"
	"go/token"

	"fortio.org/safecast"

	"github.com/koory1st/funlog/internal/diag"
	"github.com/koory1st/funlog/internal/fix"
	"github.com/koory1st/funlog/internal/source"
)

// FixAddBuildTag identifies fixes that add an excluding build constraint.
const FixAddBuildTag = "funlog.add-build-tag"

// beyond this many other tags the constraint is evaluated with all of them set
const maxEnumeratedTags = 10

// hasConstraint reports whether file carries any build constraint and
// whether some constraint excludes the file whenever tag is set.
func hasConstraint(file *ast.File, tag string) (found, excludes bool) {
	for _, cg := range file.Comments {
		if cg.Pos() >= file.Package {
			break
		}
		for _, c := range cg.List {
			if !constraint.IsGoBuild(c.Text) && !constraint.IsPlusBuild(c.Text) {
				continue
			}
			expr, err := constraint.Parse(c.Text)
			if err != nil {
				continue
			}
			found = true
			if excludedBy(expr, tag) {
				excludes = true
			}
		}
	}
	return found, excludes
}

// excludedBy reports whether expr is false for every assignment of the other
// tags once tag is set.
func excludedBy(expr constraint.Expr, tag string) bool {
	seen := map[string]bool{tag: true}
	var others []string
	expr.Eval(func(t string) bool {
		if !seen[t] {
			seen[t] = true
			others = append(others, t)
		}
		return false
	})
	if len(others) > maxEnumeratedTags {
		return !expr.Eval(func(string) bool { return true })
	}
	for mask := 0; mask < 1<<len(others); mask++ {
		set := map[string]bool{tag: true}
		for i, t := range others {
			set[t] = mask&(1<<i) != 0
		}
		if expr.Eval(func(t string) bool { return set[t] }) {
			return false
		}
	}
	return true
}

// buildTagDiagnostic returns the GEN5001 warning for a source file that is
// still compiled when tag is set, or false when the file is excluded.
func buildTagDiagnostic(fset *token.FileSet, file *ast.File, id source.FileID, tag string) (diag.Diagnostic, bool) {
	found, excludes := hasConstraint(file, tag)
	if excludes {
		return diag.Diagnostic{}, false
	}
	tf := fset.File(file.Pos())
	start, err1 := safecast.Conv[uint32](tf.Offset(file.Package))
	end, err2 := safecast.Conv[uint32](tf.Offset(file.Name.End()))
	if err1 != nil || err2 != nil {
		start, end = 0, 0
	}
	span := source.Span{File: id, Start: start, End: end}

	d := diag.NewWarning(diag.GenMissingBuildTag, span,
		"source file is not excluded by the '"+tag+"' build tag; the package will contain duplicate definitions when building with -tags "+tag)
	if found {
		return d.WithNote(source.Span{}, "add '!"+tag+"' to the existing build constraint"), true
	}
	d.Fixes = append(d.Fixes, fix.InsertText(
		"add '//go:build !"+tag+"'",
		source.Span{File: id},
		"//go:build !"+tag+"\n\n",
		fix.WithID(FixAddBuildTag),
		fix.WithApplicability(diag.FixApplicabilitySafeWithHeuristics),
	))
	return d, true
}
