package emit

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/build/constraint"
	"go/format"
	"go/parser"
	"go/token"
	"path"
	"sort"

	"golang.org/x/tools/go/ast/astutil"

	"github.com/koory1st/funlog/internal/source"
)

// Header is the first line of every generated file.
const Header = "// Code generated by funlog. DO NOT EDIT."

// Replacement swaps the bytes under Span for Text.
type Replacement struct {
	Span source.Span
	Text string
	// NeedsFmt is set when Text calls fmt.Sprintf.
	NeedsFmt bool
}

// IsGenerated reports whether src starts like a file written by File.
func IsGenerated(src []byte) bool {
	return bytes.HasPrefix(src, []byte(Header))
}

// File assembles a generated file from src, the original file parsed into
// fset and file. The original build constraint is rewritten to require the
// generation tag (see BuildLine), replacements are spliced in, imports are
// added and the result is gofmt-formatted. With no replacements the
// declarations pass through unchanged.
func File(src []byte, fset *token.FileSet, file *ast.File, repls []Replacement, opts Options) ([]byte, error) {
	opts = opts.WithDefaults()
	tf := fset.File(file.Pos())
	if tf == nil {
		return nil, fmt.Errorf("file position not found in FileSet")
	}

	var goBuild constraint.Expr
	var plusBuild []constraint.Expr
	edits := append([]Replacement(nil), repls...)
	for _, cg := range file.Comments {
		if cg.Pos() >= file.Package {
			break
		}
		for _, c := range cg.List {
			isGo, isPlus := constraint.IsGoBuild(c.Text), constraint.IsPlusBuild(c.Text)
			if !isGo && !isPlus {
				continue
			}
			expr, err := constraint.Parse(c.Text)
			if err != nil {
				return nil, fmt.Errorf("invalid build constraint %q: %w", c.Text, err)
			}
			if isGo {
				goBuild = expr
			} else {
				plusBuild = append(plusBuild, expr)
			}
			edits = append(edits, Replacement{Span: source.Span{
				Start: uint32(tf.Offset(c.Pos())),
				End:   uint32(tf.Offset(c.End())),
			}})
		}
	}
	// The +build lines are ignored when a //go:build line is present
	orig := goBuild
	if orig == nil {
		for _, x := range plusBuild {
			if orig == nil {
				orig = x
			} else {
				orig = &constraint.AndExpr{X: orig, Y: x}
			}
		}
	}
	buildLine, err := BuildLine(orig, opts.Tag)
	if err != nil {
		return nil, err
	}

	spliced, err := splice(src, edits)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	out.WriteString(Header + "\n\n")
	out.WriteString(buildLine + "\n\n")
	out.Write(bytes.TrimLeft(spliced, "\n"))

	if len(repls) == 0 {
		return formatSource(out.Bytes(), nil)
	}
	imports := []importSpec{{path: opts.SinkPath, name: opts.SinkName}}
	for _, r := range repls {
		if r.NeedsFmt {
			imports = append(imports, importSpec{path: "fmt", name: "fmt"})
			break
		}
	}
	return formatSource(out.Bytes(), imports)
}

type importSpec struct {
	path string
	name string
}

// BuildLine returns the //go:build line of a generated file whose source
// carries orig (nil when it has none). The generated file requires tag and
// keeps every other condition of orig, evaluated as if tag were unset, so
// platform and feature constraints still apply. A source that is only built
// with tag cannot be generated.
func BuildLine(orig constraint.Expr, tag string) (string, error) {
	var out constraint.Expr = &constraint.TagExpr{Tag: tag}
	if orig != nil {
		rest, known, value := withoutTag(orig, tag)
		switch {
		case known && !value:
			return "", fmt.Errorf("build constraint %q only holds with the %q tag set", orig.String(), tag)
		case !known:
			out = &constraint.AndExpr{X: out, Y: rest}
		}
	}
	return "//go:build " + out.String(), nil
}

// withoutTag simplifies x under the assumption that tag is false. known is
// set when the result is a constant, reported in value.
func withoutTag(x constraint.Expr, tag string) (rest constraint.Expr, known, value bool) {
	switch x := x.(type) {
	case *constraint.TagExpr:
		if x.Tag == tag {
			return nil, true, false
		}
		return x, false, false
	case *constraint.NotExpr:
		inner, k, v := withoutTag(x.X, tag)
		if k {
			return nil, true, !v
		}
		return &constraint.NotExpr{X: inner}, false, false
	case *constraint.AndExpr:
		l, kl, vl := withoutTag(x.X, tag)
		r, kr, vr := withoutTag(x.Y, tag)
		switch {
		case kl && !vl, kr && !vr:
			return nil, true, false
		case kl:
			return r, kr, vr
		case kr:
			return l, false, false
		}
		return &constraint.AndExpr{X: l, Y: r}, false, false
	case *constraint.OrExpr:
		l, kl, vl := withoutTag(x.X, tag)
		r, kr, vr := withoutTag(x.Y, tag)
		switch {
		case kl && vl, kr && vr:
			return nil, true, true
		case kl:
			return r, kr, vr
		case kr:
			return l, false, false
		}
		return &constraint.OrExpr{X: l, Y: r}, false, false
	}
	return x, false, false
}

func splice(src []byte, edits []Replacement) ([]byte, error) {
	sort.SliceStable(edits, func(i, j int) bool {
		return edits[i].Span.Start < edits[j].Span.Start
	})
	var out bytes.Buffer
	var prev uint32
	for _, e := range edits {
		if e.Span.Start < prev || int(e.Span.End) > len(src) || e.Span.End < e.Span.Start {
			return nil, fmt.Errorf("overlapping or out of range edit at %s", e.Span)
		}
		out.Write(src[prev:e.Span.Start])
		out.WriteString(e.Text)
		prev = e.Span.End
	}
	out.Write(src[prev:])
	return out.Bytes(), nil
}

func formatSource(src []byte, imports []importSpec) ([]byte, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "", src, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("generated code does not parse: %w", err)
	}
	for _, imp := range imports {
		if path.Base(imp.path) == imp.name {
			astutil.AddImport(fset, f, imp.path)
		} else {
			astutil.AddNamedImport(fset, f, imp.name, imp.path)
		}
	}
	var buf bytes.Buffer
	if err := format.Node(&buf, fset, f); err != nil {
		return nil, fmt.Errorf("format generated code: %w", err)
	}
	return buf.Bytes(), nil
}
