package decl

import (
	"errors"
	"go/ast"
	"go/parser"
	"go/token"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func extractNamed(t *testing.T, src, name string) (*Func, error) {
	t.Helper()
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "x.go", src, parser.ParseComments)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	for _, d := range file.Decls {
		if fn, ok := d.(*ast.FuncDecl); ok && fn.Name.Name == name {
			return Extract(fset, []byte(src), 7, fn)
		}
	}
	t.Fatalf("function %s not found", name)
	return nil, nil
}

func TestExtractPlainFunction(t *testing.T) {
	src := "package p\n\nfunc add(a, b int) int {\n\treturn a + b\n}\n"
	fn, err := extractNamed(t, src, "add")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	want := &Func{
		Name: "add",
		Params: []Param{
			{Name: "a", Type: "int"},
			{Name: "b", Type: "int"},
		},
		Results: Results{Types: []string{"int"}},
		Body:    "{\n\treturn a + b\n}",
	}
	opts := cmpopts.IgnoreFields(Func{}, "Span", "BodySpan")
	if diff := cmp.Diff(want, fn, opts); diff != "" {
		t.Fatalf("Func mismatch (-want +got):\n%s", diff)
	}
	if got := src[fn.Span.Start:fn.Span.End]; got[:8] != "func add" {
		t.Fatalf("span does not start at func keyword: %q", got)
	}
	if fn.Span.File != 7 || fn.BodySpan.File != 7 {
		t.Fatalf("file id not propagated")
	}
	if diff := cmp.Diff([]string{"a", "b"}, fn.ParamNames()); diff != "" {
		t.Fatalf("ParamNames mismatch (-want +got):\n%s", diff)
	}
	if !fn.Results.HasValue() || fn.Results.String() != "int" {
		t.Fatalf("unexpected results %+v", fn.Results)
	}
}

func TestExtractMethodShapes(t *testing.T) {
	src := `package p

type Stack[T any] struct{ items []T }

func (*Stack[T]) Push(_ T, rest ...T) {}

func (s *Stack[T]) Pop() (v T, ok bool) { return }

func Map[K comparable, V any](m map[K]V, fn func(V) V, _ string) (out map[K]V, err error) { return m, nil }
`
	push, err := extractNamed(t, src, "Push")
	if err != nil {
		t.Fatalf("Extract Push: %v", err)
	}
	if push.Recv == nil || !push.Recv.Synthetic || push.Recv.Name != "_funlog_recv" || push.Recv.Type != "*Stack[T]" {
		t.Fatalf("unexpected receiver %+v", push.Recv)
	}
	wantParams := []Param{
		{Name: "_funlog_arg0", Type: "T", Synthetic: true},
		{Name: "rest", Type: "...T", Variadic: true},
	}
	if diff := cmp.Diff(wantParams, push.Params); diff != "" {
		t.Fatalf("Push params mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"rest"}, push.ParamNames()); diff != "" {
		t.Fatalf("Push loggable params mismatch (-want +got):\n%s", diff)
	}
	if push.Results.HasValue() {
		t.Fatalf("Push must not produce a value")
	}

	pop, err := extractNamed(t, src, "Pop")
	if err != nil {
		t.Fatalf("Extract Pop: %v", err)
	}
	if pop.Recv.Name != "s" || pop.Recv.Synthetic {
		t.Fatalf("unexpected receiver %+v", pop.Recv)
	}
	if got := pop.Results.String(); got != "(v T, ok bool)" {
		t.Fatalf("unexpected results %q", got)
	}

	m, err := extractNamed(t, src, "Map")
	if err != nil {
		t.Fatalf("Extract Map: %v", err)
	}
	wantTP := []TypeParam{
		{Names: []string{"K"}, Constraint: "comparable"},
		{Names: []string{"V"}, Constraint: "any"},
	}
	if diff := cmp.Diff(wantTP, m.TypeParams); diff != "" {
		t.Fatalf("type params mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"K", "V"}, m.TypeParamNames()); diff != "" {
		t.Fatalf("type param names mismatch (-want +got):\n%s", diff)
	}
	if !m.Exported || m.Params[1].Type != "func(V) V" || m.Params[2].Name != "_funlog_arg2" {
		t.Fatalf("unexpected params %+v", m.Params)
	}
	if m.Results.Len() != 2 {
		t.Fatalf("want 2 results, got %d", m.Results.Len())
	}
}

func TestExtractNoBody(t *testing.T) {
	src := "package p\n\nfunc asm(x int) int\n"
	_, err := extractNamed(t, src, "asm")
	if !errors.Is(err, ErrNoBody) {
		t.Fatalf("want ErrNoBody, got %v", err)
	}
}

func TestInnerName(t *testing.T) {
	tests := []struct {
		fn   Func
		want string
	}{
		{Func{Name: "add"}, "_funlog_add"},
		{Func{Name: "init"}, "_funlog_init"},
		{Func{Name: "init", Ordinal: 2}, "_funlog_init_2"},
		{Func{Name: "init", Recv: &Receiver{Name: "s", Type: "*S"}, Ordinal: 1}, "_funlog_init"},
	}
	for _, tt := range tests {
		if got := tt.fn.InnerName(); got != tt.want {
			t.Fatalf("InnerName(%s, ordinal %d): want %q, got %q", tt.fn.Name, tt.fn.Ordinal, tt.want, got)
		}
	}
}
