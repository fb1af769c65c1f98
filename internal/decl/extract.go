package decl

import (
	"errors"
	"fmt"
	"go/ast"
	"go/token"

	"fortio.org/safecast"

	"github.com/koory1st/funlog/internal/source"
)

// ErrNoBody is returned for declarations without a body, such as functions
// implemented in assembly.
var ErrNoBody = errors.New("function has no body")

// Extract builds a Func from fn. src must be the exact bytes fset parsed; type
// expressions and the body are copied from it verbatim.
func Extract(fset *token.FileSet, src []byte, file source.FileID, fn *ast.FuncDecl) (*Func, error) {
	if fn == nil || fn.Name == nil {
		return nil, errors.New("nil function declaration")
	}
	if fn.Body == nil {
		return nil, ErrNoBody
	}
	x := extractor{fset: fset, src: src, file: file}

	out := &Func{
		Name:     fn.Name.Name,
		Exported: fn.Name.IsExported(),
	}

	if fn.Recv != nil && len(fn.Recv.List) > 0 {
		field := fn.Recv.List[0]
		recv := &Receiver{Type: x.text(field.Type)}
		if len(field.Names) > 0 && field.Names[0].Name != "_" {
			recv.Name = field.Names[0].Name
		} else {
			recv.Name = SyntheticPrefix + "recv"
			recv.Synthetic = true
		}
		out.Recv = recv
	}

	if fn.Type.TypeParams != nil {
		for _, field := range fn.Type.TypeParams.List {
			tp := TypeParam{Constraint: x.text(field.Type)}
			for _, n := range field.Names {
				tp.Names = append(tp.Names, n.Name)
			}
			out.TypeParams = append(out.TypeParams, tp)
		}
	}

	if fn.Type.Params != nil {
		for _, field := range fn.Type.Params.List {
			typ := x.text(field.Type)
			_, variadic := field.Type.(*ast.Ellipsis)
			if len(field.Names) == 0 {
				out.Params = append(out.Params, x.synthetic(len(out.Params), typ, variadic))
				continue
			}
			for _, n := range field.Names {
				if n.Name == "_" {
					out.Params = append(out.Params, x.synthetic(len(out.Params), typ, variadic))
					continue
				}
				out.Params = append(out.Params, Param{Name: n.Name, Type: typ, Variadic: variadic})
			}
		}
	}

	if fn.Type.Results != nil {
		for _, field := range fn.Type.Results.List {
			typ := x.text(field.Type)
			if len(field.Names) == 0 {
				out.Results.Types = append(out.Results.Types, typ)
				continue
			}
			for _, n := range field.Names {
				out.Results.Types = append(out.Results.Types, typ)
				out.Results.Names = append(out.Results.Names, n.Name)
			}
		}
	}

	var err error
	if out.Span, err = x.span(fn.Pos(), fn.End()); err != nil {
		return nil, err
	}
	if out.BodySpan, err = x.span(fn.Body.Lbrace, fn.Body.Rbrace+1); err != nil {
		return nil, err
	}
	out.Body = string(src[out.BodySpan.Start:out.BodySpan.End])
	return out, nil
}

type extractor struct {
	fset *token.FileSet
	src  []byte
	file source.FileID
}

func (x extractor) synthetic(idx int, typ string, variadic bool) Param {
	return Param{
		Name:      fmt.Sprintf("%sarg%d", SyntheticPrefix, idx),
		Type:      typ,
		Variadic:  variadic,
		Synthetic: true,
	}
}

func (x extractor) text(n ast.Node) string {
	start := x.fset.Position(n.Pos()).Offset
	end := x.fset.Position(n.End()).Offset
	if start < 0 || end > len(x.src) || start > end {
		return ""
	}
	return string(x.src[start:end])
}

func (x extractor) span(from, to token.Pos) (source.Span, error) {
	start, err := safecast.Conv[uint32](x.fset.Position(from).Offset)
	if err != nil {
		return source.Span{}, fmt.Errorf("declaration offset: %w", err)
	}
	end, err := safecast.Conv[uint32](x.fset.Position(to).Offset)
	if err != nil {
		return source.Span{}, fmt.Errorf("declaration offset: %w", err)
	}
	if int(end) > len(x.src) || start > end {
		return source.Span{}, fmt.Errorf("declaration span %d-%d outside source", start, end)
	}
	return source.Span{File: x.file, Start: start, End: end}, nil
}
