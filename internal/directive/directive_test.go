package directive

import (
	"go/parser"
	"go/token"
	"testing"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		comment string
		text    string
		offset  int
		ok      bool
	}{
		{"//funlog", "", 8, true},
		{"// funlog", "", 9, true},
		{"//funlog:debug,all", "debug,all", 9, true},
		{"//funlog:", "", 9, true},
		{"// funlog:debug,retVal", "debug,retVal", 10, true},
		{"// funlog is a logger", "", 0, false},
		{"//funlogx", "", 0, false},
		{"//go:generate funlog gen", "", 0, false},
	}
	for _, tt := range tests {
		text, offset, ok := Match(tt.comment)
		if ok != tt.ok || text != tt.text || offset != tt.offset {
			t.Errorf("Match(%q) = %q, %d, %v; want %q, %d, %v", tt.comment, text, offset, ok, tt.text, tt.offset, tt.ok)
		}
	}
}

func TestCollect(t *testing.T) {
	src := `package calc

//funlog:debug, params(a)
func add(a, b int) int { return a + b }

// Sub subtracts.
//
//funlog
func Sub(a, b int) int { return a - b }

//funlog:info
type T struct{}

var (
	//funlog
	x = 1
)

func body() {
	//funlog:warn
}
`
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "calc.go", src, parser.ParseComments)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	dirs, err := Collect(fset, f, 2)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(dirs) != 5 {
		t.Fatalf("want 5 directives, got %d", len(dirs))
	}

	first := dirs[0]
	if !first.Attached() || first.Func.Name.Name != "add" {
		t.Fatalf("first directive not attached to add: %+v", first)
	}
	if got := src[first.TextSpan.Start:first.TextSpan.End]; got != "debug, params(a)" {
		t.Fatalf("unexpected text span %q", got)
	}
	if got := src[first.Span.Start:first.Span.End]; got != "//funlog:debug, params(a)" {
		t.Fatalf("unexpected span %q", got)
	}
	if first.Span.File != 2 {
		t.Fatalf("file id not propagated")
	}

	if !dirs[1].Attached() || dirs[1].Func.Name.Name != "Sub" || dirs[1].Text != "" {
		t.Fatalf("bare directive not attached to Sub: %+v", dirs[1])
	}

	wantOwners := []string{"type", "var", ""}
	for i, want := range wantOwners {
		d := dirs[2+i]
		if d.Attached() || d.Owner != want {
			t.Errorf("directive %d: want owner %q, got %q (attached=%v)", 2+i, want, d.Owner, d.Attached())
		}
	}
}
