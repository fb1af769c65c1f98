package directive

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/koory1st/funlog/internal/source"
)

func TestRegistryOrderAndFilter(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for _, e := range []Entry{
		{File: "b.go", Func: "B", Status: Instrumented, Span: source.Span{Start: 5}},
		{File: "a.go", Func: "A2", Status: Failed, Span: source.Span{Start: 50}},
		{File: "a.go", Func: "A1", Status: Instrumented, Span: source.Span{Start: 10}},
		{File: "c.go", Func: "C", Status: PassedThrough},
	} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Add(e)
		}()
	}
	wg.Wait()

	if r.Len() != 4 {
		t.Fatalf("expected 4 entries, got %d", r.Len())
	}
	var names []string
	for _, e := range r.All() {
		names = append(names, e.Func)
	}
	if got := strings.Join(names, ","); got != "A1,A2,B,C" {
		t.Fatalf("unexpected order %s", got)
	}
	if got := r.Filter(Instrumented); len(got) != 2 {
		t.Fatalf("expected 2 instrumented, got %d", len(got))
	}
	if got := r.Filter(); len(got) != 4 {
		t.Fatalf("empty filter must return all, got %d", len(got))
	}
}

func TestReport(t *testing.T) {
	r := NewRegistry()
	r.Add(Entry{File: "/src/calc/calc.go", Func: "add", Config: "debug,all,onStartEnd", Status: Instrumented})
	r.Add(Entry{File: "/src/calc/calc.go", Func: "sub", Config: "print,all,onStartEnd", Status: Failed, Span: source.Span{Start: 9}})

	var buf bytes.Buffer
	sum := Report(&buf, r, true)
	if sum.Files != 1 || sum.Total != 2 || sum.Instrumented != 1 || sum.Failed != 1 {
		t.Fatalf("unexpected summary %+v", sum)
	}
	out := buf.String()
	if !strings.Contains(out, "calc.go#add (debug,all,onStartEnd) ... instrumented\n") {
		t.Fatalf("missing entry line:\n%s", out)
	}
	if !strings.HasSuffix(out, "funlog: 2 functions in 1 files: 1 instrumented, 0 passed through, 1 failed\n") {
		t.Fatalf("missing summary:\n%s", out)
	}

	buf.Reset()
	Report(&buf, r, false)
	if strings.Contains(buf.String(), "#add") {
		t.Fatalf("entry lines printed without verbose:\n%s", buf.String())
	}
}
