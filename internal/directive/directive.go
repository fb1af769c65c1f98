// Package directive finds funlog directives in Go comments and records which
// declaration each one is attached to.
package directive

import (
	"go/ast"
	"go/token"
	"strings"

	"fortio.org/safecast"

	"github.com/koory1st/funlog/internal/source"
)

const (
	prefix = "//funlog"
	// gofmt rewrites a lone //funlog doc line to "// funlog"
	spacedPrefix = "// funlog"
)

// Directive is one //funlog comment line.
type Directive struct {
	// Text is the option list after "//funlog:", empty for a bare directive.
	Text     string
	TextSpan source.Span
	// Span covers the whole comment line.
	Span source.Span
	// Func is the declaration the directive documents, if it is a function.
	Func *ast.FuncDecl
	// Owner names what the directive is attached to when it is not a
	// function: "type", "var", "const", "import", or "" when it is attached
	// to nothing.
	Owner string
}

// Attached reports whether the directive documents a function.
func (d Directive) Attached() bool {
	return d.Func != nil
}

// Match splits a comment into directive option text. ok is false for
// comments that are not funlog directives.
func Match(comment string) (text string, offset int, ok bool) {
	switch {
	case comment == prefix || comment == spacedPrefix:
		return "", len(comment), true
	case strings.HasPrefix(comment, prefix+":"):
		return comment[len(prefix)+1:], len(prefix) + 1, true
	case strings.HasPrefix(comment, spacedPrefix+":"):
		return comment[len(spacedPrefix)+1:], len(spacedPrefix) + 1, true
	}
	return "", 0, false
}

type owner struct {
	fn   *ast.FuncDecl
	kind string
}

// Collect returns every directive in file in source order.
func Collect(fset *token.FileSet, file *ast.File, id source.FileID) ([]Directive, error) {
	owners := make(map[*ast.CommentGroup]owner)
	for _, d := range file.Decls {
		switch decl := d.(type) {
		case *ast.FuncDecl:
			if decl.Doc != nil {
				owners[decl.Doc] = owner{fn: decl}
			}
		case *ast.GenDecl:
			kind := decl.Tok.String()
			if decl.Doc != nil {
				owners[decl.Doc] = owner{kind: kind}
			}
			for _, spec := range decl.Specs {
				for _, cg := range specComments(spec) {
					if cg != nil {
						owners[cg] = owner{kind: kind}
					}
				}
			}
		}
	}

	tf := fset.File(file.Pos())
	var out []Directive
	for _, cg := range file.Comments {
		own := owners[cg]
		for _, c := range cg.List {
			text, off, ok := Match(c.Text)
			if !ok {
				continue
			}
			start, err := safecast.Conv[uint32](tf.Offset(c.Pos()))
			if err != nil {
				return nil, err
			}
			end, err := safecast.Conv[uint32](tf.Offset(c.End()))
			if err != nil {
				return nil, err
			}
			span := source.Span{File: id, Start: start, End: end}
			shift, err := safecast.Conv[uint32](off)
			if err != nil {
				return nil, err
			}
			out = append(out, Directive{
				Text:     text,
				TextSpan: source.Span{File: id, Start: start + shift, End: end},
				Span:     span,
				Func:     own.fn,
				Owner:    own.kind,
			})
		}
	}
	return out, nil
}

func specComments(spec ast.Spec) []*ast.CommentGroup {
	switch s := spec.(type) {
	case *ast.TypeSpec:
		return []*ast.CommentGroup{s.Doc, s.Comment}
	case *ast.ValueSpec:
		return []*ast.CommentGroup{s.Doc, s.Comment}
	case *ast.ImportSpec:
		return []*ast.CommentGroup{s.Doc, s.Comment}
	}
	return nil
}
