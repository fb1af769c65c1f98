package diag

import (
	"testing"

	"github.com/koory1st/funlog/internal/source"
)

func TestFormatShortDiagnostics(t *testing.T) {
	fs := source.NewFileSet()
	fs.SetBaseDir("/workspace")

	file := fs.Add("/workspace/calc/calc.go", []byte("package calc\n//funlog:debgu\nfunc A() {}\n"), 0)

	diags := []Diagnostic{
		NewWarning(GenMissingBuildTag, source.Span{File: file, Start: 0, End: 7}, "missing build tag"),
		NewError(CfgUnknownOption, source.Span{File: file, Start: 20, End: 25}, "unknown configuration option 'debgu'").
			WithNote(source.Span{}, "Did you mean 'debug'?"),
	}

	want := "warning GEN5001 calc/calc.go:1:1 missing build tag\n" +
		"error CFG3003 calc/calc.go:2:8 unknown configuration option 'debgu'\n" +
		"note CFG3003 calc/calc.go:2:8 Did you mean 'debug'?"

	if got := FormatShortDiagnostics(diags, fs, true); got != want {
		t.Fatalf("unexpected short diagnostics:\nwant:\n%s\n\ngot:\n%s", want, got)
	}
}

func TestCodeID(t *testing.T) {
	cases := []struct {
		code Code
		want string
	}{
		{SynMalformedDirective, "SYN2001"},
		{CfgConflictingOptions, "CFG3004"},
		{IOParseError, "IO4002"},
		{GenNoBody, "GEN5002"},
		{UnknownCode, "E0000"},
	}
	for _, tc := range cases {
		if got := tc.code.ID(); got != tc.want {
			t.Errorf("%d: want %s, got %s", tc.code, tc.want, got)
		}
	}
	if got := CfgAlreadySet.String(); got != "[CFG3001]: Option already set" {
		t.Fatalf("unexpected String(): %q", got)
	}
}

func TestBagLimitSortDedup(t *testing.T) {
	b := NewBag(3)
	sp := func(start uint32) source.Span { return source.Span{File: 0, Start: start, End: start + 1} }

	b.Add(NewError(CfgUnknownOption, sp(10), "b"))
	b.Add(NewWarning(GenMissingBuildTag, sp(0), "a"))
	b.Add(NewError(CfgUnknownOption, sp(10), "b again"))
	if b.Add(NewError(CfgAlreadySet, sp(20), "dropped")) {
		t.Fatalf("expected bag to be full")
	}

	b.Sort()
	b.Dedup()
	items := b.Items()
	if len(items) != 2 {
		t.Fatalf("want 2 items after dedup, got %d", len(items))
	}
	if items[0].Code != GenMissingBuildTag || items[1].Code != CfgUnknownOption {
		t.Fatalf("unexpected order: %v, %v", items[0].Code, items[1].Code)
	}
	if !b.HasErrors() {
		t.Fatalf("expected errors")
	}
}

func TestReportBuilderEmitsOnce(t *testing.T) {
	bag := NewBag(10)
	rb := ReportError(BagReporter{Bag: bag}, CfgConflictingOptions, source.Span{}, "'debug' and 'info' cannot be used together").
		WithNote(source.Span{}, "Please choose one of the options")
	rb.Emit()
	rb.Emit()
	if bag.Len() != 1 {
		t.Fatalf("want 1 diagnostic, got %d", bag.Len())
	}
	if got := bag.Items()[0].Notes[0].Msg; got != "Please choose one of the options" {
		t.Fatalf("unexpected note %q", got)
	}
}

func TestDedupReporter(t *testing.T) {
	bag := NewBag(10)
	r := NewDedupReporter(BagReporter{Bag: bag})
	d := NewError(SynMalformedDirective, source.Span{Start: 1, End: 2}, "x")
	r.Report(d)
	r.Report(d)
	if bag.Len() != 1 {
		t.Fatalf("want 1 diagnostic, got %d", bag.Len())
	}
}
