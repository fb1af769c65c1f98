package driver

import (
	"bytes"
	"context"
	"go/build"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/koory1st/funlog/internal/buildpipeline"
	"github.com/koory1st/funlog/internal/diag"
	"github.com/koory1st/funlog/internal/directive"
	"github.com/koory1st/funlog/internal/emit"
	"github.com/koory1st/funlog/internal/project"
)

const calcSrc = `//go:build !funlog

package calc

//funlog:debug,onEnd,params(a)
func add(a, b int) int {
	return a + b
}

func sub(a, b int) int { return a - b }
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func codes(bag *diag.Bag) []diag.Code {
	var out []diag.Code
	for _, d := range bag.Items() {
		out = append(out, d.Code)
	}
	return out
}

func statuses(entries []directive.Entry) map[string]directive.Status {
	out := make(map[string]directive.Status, len(entries))
	for _, e := range entries {
		out[e.Func] = e.Status
	}
	return out
}

func TestGenerateFileWritesOutput(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "calc.go", calcSrc)

	res, err := GenerateFile(context.Background(), path, Options{})
	if err != nil {
		t.Fatalf("GenerateFile: %v", err)
	}
	if res.Bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", codes(res.Bag))
	}
	if !res.Written || res.OutPath != filepath.Join(dir, "calc_funlog.go") {
		t.Fatalf("want output written to calc_funlog.go, got written=%v path=%s", res.Written, res.OutPath)
	}
	out, err := os.ReadFile(res.OutPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !bytes.Equal(out, res.Output) {
		t.Fatalf("written bytes differ from result output")
	}
	got := string(out)
	for _, want := range []string{
		emit.Header,
		"//go:build funlog",
		"func _funlog_add(a int, b int) int {",
		`_funlog_cap_a := fmt.Sprintf("%+v", a)`,
		`funlog.Debugf("add [out]: a:%s", _funlog_cap_a)`,
		"func sub(a, b int) int { return a - b }",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output lacks %q:\n%s", want, got)
		}
	}

	if diff := cmp.Diff(map[string]directive.Status{"add": directive.Instrumented}, statuses(res.Entries)); diff != "" {
		t.Fatalf("entries mismatch (-want +got):\n%s", diff)
	}
	for _, stage := range buildpipeline.Stages {
		if !res.Timings.Has(stage) {
			t.Errorf("missing timing for %s", stage)
		}
	}
}

func TestGenerateFileCheckWritesNothing(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "calc.go", calcSrc)

	res, err := GenerateFile(context.Background(), path, Options{Check: true})
	if err != nil {
		t.Fatalf("GenerateFile: %v", err)
	}
	if res.Written || res.Output == nil {
		t.Fatalf("check mode should generate in memory only")
	}
	if _, err := os.Stat(res.OutPath); !os.IsNotExist(err) {
		t.Fatalf("check mode wrote %s", res.OutPath)
	}
}

func TestGenerateFileStdout(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "calc.go", calcSrc)

	var buf bytes.Buffer
	res, err := GenerateFile(context.Background(), path, Options{Stdout: &buf})
	if err != nil {
		t.Fatalf("GenerateFile: %v", err)
	}
	if res.Written {
		t.Fatalf("stdout mode must not write files")
	}
	if !bytes.Equal(buf.Bytes(), res.Output) {
		t.Fatalf("stdout received %q", buf.String())
	}
}

func TestGenerateFileReportsEveryFailingFunction(t *testing.T) {
	src := `//go:build !funlog

package calc

//funlog:debgu
func one(a int) int { return a }

//funlog:params(zz)
func two(a int) int { return a }

//funlog:info
func three(a int) int { return a }
`
	dir := t.TempDir()
	path := writeFile(t, dir, "calc.go", src)

	res, err := GenerateFile(context.Background(), path, Options{})
	if err != nil {
		t.Fatalf("GenerateFile: %v", err)
	}
	if diff := cmp.Diff([]diag.Code{diag.CfgUnknownOption, diag.CfgInvalidParameter}, codes(res.Bag)); diff != "" {
		t.Fatalf("codes mismatch (-want +got):\n%s", diff)
	}
	if res.Written || res.Output != nil {
		t.Fatalf("a failing function must block the file output")
	}
	if _, err := os.Stat(res.OutPath); !os.IsNotExist(err) {
		t.Fatalf("output written despite errors")
	}
	want := map[string]directive.Status{
		"one":   directive.Failed,
		"two":   directive.Failed,
		"three": directive.Instrumented,
	}
	if diff := cmp.Diff(want, statuses(res.Entries)); diff != "" {
		t.Fatalf("entries mismatch (-want +got):\n%s", diff)
	}

	fix := res.Bag.Items()[0].Fixes
	if len(fix) != 1 || fix[0].Edits[0].NewText != "debug" {
		t.Fatalf("want spelling fix to 'debug', got %+v", fix)
	}
}

func TestGenerateFileDirectiveErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want diag.Code
	}{
		{
			name: "not a function",
			body: "//funlog:debug\ntype T struct{}\n",
			want: diag.CfgNotAFunction,
		},
		{
			name: "floating",
			body: "func f() {}\n\n//funlog:debug\n\nvar x = 1\n",
			want: diag.CfgNotAFunction,
		},
		{
			name: "duplicate",
			body: "//funlog\n//funlog:debug\nfunc f() {}\n",
			want: diag.SynDuplicateDirective,
		},
		{
			name: "no body",
			body: "//funlog:debug\nfunc asm(x int) int\n",
			want: diag.GenNoBody,
		},
		{
			name: "malformed",
			body: "//funlog:params(a\nfunc f(a int) {}\n",
			want: diag.SynMalformedDirective,
		},
		{
			name: "conflict",
			body: "//funlog:onStart,onEnd\nfunc f() {}\n",
			want: diag.CfgConflictingOptions,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := writeFile(t, dir, "x.go", "//go:build !funlog\n\npackage x\n\n"+tt.body)

			res, err := GenerateFile(context.Background(), path, Options{Check: true})
			if err != nil {
				t.Fatalf("GenerateFile: %v", err)
			}
			got := codes(res.Bag)
			if len(got) != 1 || got[0] != tt.want {
				t.Fatalf("want [%v], got %v", tt.want, got)
			}
		})
	}
}

func TestGenerateFileMissingBuildTag(t *testing.T) {
	src := strings.TrimPrefix(calcSrc, "//go:build !funlog\n\n")
	dir := t.TempDir()
	path := writeFile(t, dir, "calc.go", src)

	res, err := GenerateFile(context.Background(), path, Options{})
	if err != nil {
		t.Fatalf("GenerateFile: %v", err)
	}
	items := res.Bag.Items()
	if len(items) != 1 || items[0].Code != diag.GenMissingBuildTag || items[0].Severity != diag.SevWarning {
		t.Fatalf("want one GEN5001 warning, got %+v", items)
	}
	if len(items[0].Fixes) != 1 || items[0].Fixes[0].Edits[0].NewText != "//go:build !funlog\n\n" {
		t.Fatalf("want build tag fix, got %+v", items[0].Fixes)
	}
	if !res.Written {
		t.Fatalf("warnings must not block the output")
	}
}

func TestGenerateFileRelease(t *testing.T) {
	src := "//go:build !funlog\n\npackage calc\n\n//funlog:debgu\nfunc add(a, b int) int { return a + b }\n"
	dir := t.TempDir()
	path := writeFile(t, dir, "calc.go", src)

	res, err := GenerateFile(context.Background(), path, Options{Mode: project.ModeRelease, Check: true})
	if err != nil {
		t.Fatalf("GenerateFile: %v", err)
	}
	if res.Bag.Len() != 0 {
		t.Fatalf("release mode must not validate options: %v", codes(res.Bag))
	}
	want := emit.Header + "\n\n//go:build funlog\n\npackage calc\n\n//funlog:debgu\nfunc add(a, b int) int { return a + b }\n"
	if diff := cmp.Diff(want, string(res.Output)); diff != "" {
		t.Fatalf("release output mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]directive.Status{"add": directive.PassedThrough}, statuses(res.Entries)); diff != "" {
		t.Fatalf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerateFileLoadAndParseErrors(t *testing.T) {
	dir := t.TempDir()

	res, err := GenerateFile(context.Background(), filepath.Join(dir, "missing.go"), Options{})
	if err != nil {
		t.Fatalf("GenerateFile: %v", err)
	}
	if got := codes(res.Bag); len(got) != 1 || got[0] != diag.IOLoadFileError {
		t.Fatalf("want IO4001, got %v", got)
	}

	path := writeFile(t, dir, "bad.go", "package bad\n\n//funlog\nfunc f( {\n")
	res, err = GenerateFile(context.Background(), path, Options{})
	if err != nil {
		t.Fatalf("GenerateFile: %v", err)
	}
	got := codes(res.Bag)
	if len(got) == 0 || got[0] != diag.IOParseError {
		t.Fatalf("want IO4002, got %v", got)
	}
	if res.Bag.Items()[0].Primary.Empty() {
		t.Fatalf("parse errors should point into the file")
	}
}

func TestGenerateFileSkips(t *testing.T) {
	dir := t.TempDir()
	plain := writeFile(t, dir, "plain.go", "package p\n\nfunc f() {}\n")
	mention := writeFile(t, dir, "mention.go", "package p\n\n// funlog is mentioned here\n\nfunc f() {}\n")
	generated := writeFile(t, dir, "gen.go", emit.Header+"\n\npackage p\n\n//funlog\nfunc f() {}\n")

	for _, path := range []string{plain, mention, generated} {
		res, err := GenerateFile(context.Background(), path, Options{})
		if err != nil {
			t.Fatalf("GenerateFile(%s): %v", path, err)
		}
		if !res.Skipped || res.Output != nil || res.Bag.Len() != 0 {
			t.Fatalf("%s: want skipped, got skipped=%v diags=%v", path, res.Skipped, codes(res.Bag))
		}
	}
}

func TestGenerateFileCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := GenerateFile(ctx, "x.go", Options{}); err == nil {
		t.Fatalf("want context error")
	}
}

func TestGenerateFileCache(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "calc.go", calcSrc)
	cache, err := OpenDiskCacheAt(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatalf("OpenDiskCacheAt: %v", err)
	}
	opts := Options{Cache: cache}

	first, err := GenerateFile(context.Background(), path, opts)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.Cached || !first.Written {
		t.Fatalf("first run should generate")
	}

	second, err := GenerateFile(context.Background(), path, opts)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !second.Cached || second.Written {
		t.Fatalf("second run should hit the cache")
	}
	if diff := cmp.Diff(statuses(first.Entries), statuses(second.Entries)); diff != "" {
		t.Fatalf("cached entries differ (-first +second):\n%s", diff)
	}

	if err := os.WriteFile(first.OutPath, []byte("tampered"), 0o600); err != nil {
		t.Fatalf("tamper: %v", err)
	}
	third, err := GenerateFile(context.Background(), path, opts)
	if err != nil {
		t.Fatalf("third run: %v", err)
	}
	if third.Cached || !third.Written {
		t.Fatalf("a changed output must be regenerated")
	}

	other := opts
	other.Emit.Verb = "%v"
	fourth, err := GenerateFile(context.Background(), path, other)
	if err != nil {
		t.Fatalf("fourth run: %v", err)
	}
	if fourth.Cached {
		t.Fatalf("different options must miss the cache")
	}

	if err := cache.DropAll(); err != nil {
		t.Fatalf("DropAll: %v", err)
	}
	fifth, err := GenerateFile(context.Background(), path, other)
	if err != nil {
		t.Fatalf("fifth run: %v", err)
	}
	if fifth.Cached {
		t.Fatalf("dropped cache must miss")
	}
}

func TestGenerateFileProgressAndRegistry(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "calc.go", calcSrc)
	sink := &buildpipeline.RecordingSink{}
	reg := directive.NewRegistry()

	_, err := GenerateFile(context.Background(), path, Options{Check: true, Progress: sink, Registry: reg, BaseDir: dir})
	if err != nil {
		t.Fatalf("GenerateFile: %v", err)
	}
	events := sink.Events()
	if len(events) != 2*len(buildpipeline.Stages) {
		t.Fatalf("want a working and a done event per stage, got %d", len(events))
	}
	last := events[len(events)-1]
	if last.File != "calc.go" || last.Stage != buildpipeline.StageWrite || last.Status != buildpipeline.StatusDone {
		t.Fatalf("unexpected last event %+v", last)
	}
	if reg.Len() != 1 || reg.All()[0].File != "calc.go" {
		t.Fatalf("registry not filled: %+v", reg.All())
	}
}

func TestFuncNameIncludesReceiver(t *testing.T) {
	src := `//go:build !funlog

package s

type Stack[T any] struct{ items []T }

//funlog:info
func (s *Stack[T]) Len() int { return len(s.items) }
`
	dir := t.TempDir()
	path := writeFile(t, dir, "s.go", src)
	res, err := GenerateFile(context.Background(), path, Options{Check: true})
	if err != nil {
		t.Fatalf("GenerateFile: %v", err)
	}
	if diff := cmp.Diff(map[string]directive.Status{"Stack.Len": directive.Instrumented}, statuses(res.Entries)); diff != "" {
		t.Fatalf("entries mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(string(res.Output), "func (s *Stack[T]) _funlog_Len() int") {
		t.Fatalf("helper missing:\n%s", res.Output)
	}
}

func matches(t *testing.T, path, goos string) bool {
	t.Helper()
	ctx := build.Context{GOOS: goos, GOARCH: "amd64", Compiler: "gc", BuildTags: []string{"funlog"}}
	ok, err := ctx.MatchFile(filepath.Dir(path), filepath.Base(path))
	if err != nil {
		t.Fatalf("MatchFile(%s): %v", path, err)
	}
	return ok
}

func TestGenerateFileKeepsPlatformConstraint(t *testing.T) {
	src := "//go:build linux && !funlog\n\npackage calc\n\n//funlog:debug\nfunc add(a, b int) int { return a + b }\n"
	dir := t.TempDir()
	path := writeFile(t, dir, "calc.go", src)

	res, err := GenerateFile(context.Background(), path, Options{})
	if err != nil {
		t.Fatalf("GenerateFile: %v", err)
	}
	if res.Failed() || !res.Written {
		t.Fatalf("want output written, got diagnostics %v", codes(res.Bag))
	}
	if !strings.Contains(string(res.Output), "\n//go:build funlog && linux\n") {
		t.Fatalf("output must keep the linux constraint:\n%s", res.Output)
	}
	if matches(t, res.OutPath, "darwin") {
		t.Fatalf("%s must not build on darwin", res.OutPath)
	}
	if !matches(t, res.OutPath, "linux") {
		t.Fatalf("%s must build on linux with -tags funlog", res.OutPath)
	}
}

func TestGenerateFilePlatformFileName(t *testing.T) {
	src := "//go:build !funlog\n\npackage calc\n\n//funlog:debug\nfunc open(name string) error { return nil }\n"
	dir := t.TempDir()
	path := writeFile(t, dir, "open_windows.go", src)

	res, err := GenerateFile(context.Background(), path, Options{})
	if err != nil {
		t.Fatalf("GenerateFile: %v", err)
	}
	if want := filepath.Join(dir, "open_funlog_windows.go"); res.OutPath != want || !res.Written {
		t.Fatalf("want output written to %s, got written=%v path=%s", want, res.Written, res.OutPath)
	}
	if matches(t, res.OutPath, "linux") {
		t.Fatalf("%s must not build on linux", res.OutPath)
	}
	if !matches(t, res.OutPath, "windows") {
		t.Fatalf("%s must build on windows with -tags funlog", res.OutPath)
	}
}

func TestGenerateFileSpacedDirective(t *testing.T) {
	src := "//go:build !funlog\n\npackage calc\n\n// funlog:debug\nfunc add(a, b int) int { return a + b }\n"
	dir := t.TempDir()
	path := writeFile(t, dir, "calc.go", src)

	res, err := GenerateFile(context.Background(), path, Options{Check: true})
	if err != nil {
		t.Fatalf("GenerateFile: %v", err)
	}
	if res.Skipped || res.Failed() {
		t.Fatalf("want the spaced directive honoured, got skipped=%v diags=%v", res.Skipped, codes(res.Bag))
	}
	if diff := cmp.Diff(map[string]directive.Status{"add": directive.Instrumented}, statuses(res.Entries)); diff != "" {
		t.Fatalf("entries mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(string(res.Output), "func _funlog_add(a int, b int) int {") {
		t.Fatalf("output lacks the inner function:\n%s", res.Output)
	}
}

func TestGenerateFileMultipleInits(t *testing.T) {
	src := `//go:build !funlog

package calc

var n int

//funlog:debug
func init() { n++ }

//funlog:info
func init() { n += 2 }
`
	dir := t.TempDir()
	path := writeFile(t, dir, "calc.go", src)

	res, err := GenerateFile(context.Background(), path, Options{Check: true})
	if err != nil {
		t.Fatalf("GenerateFile: %v", err)
	}
	if res.Failed() {
		t.Fatalf("unexpected diagnostics: %v", codes(res.Bag))
	}
	got := string(res.Output)
	for _, want := range []string{
		"func _funlog_init() { n++ }",
		"func _funlog_init_1() { n += 2 }",
		"_funlog_init()\n",
		"_funlog_init_1()\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output lacks %q:\n%s", want, got)
		}
	}
}
