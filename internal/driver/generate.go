package driver

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/scanner"
	"go/token"
	"os"
	"path/filepath"
	"time"

	"fortio.org/safecast"

	"github.com/koory1st/funlog/internal/attr"
	"github.com/koory1st/funlog/internal/buildpipeline"
	"github.com/koory1st/funlog/internal/config"
	"github.com/koory1st/funlog/internal/decl"
	"github.com/koory1st/funlog/internal/diag"
	"github.com/koory1st/funlog/internal/directive"
	"github.com/koory1st/funlog/internal/emit"
	"github.com/koory1st/funlog/internal/logging"
	"github.com/koory1st/funlog/internal/logtmpl"
	"github.com/koory1st/funlog/internal/project"
	"github.com/koory1st/funlog/internal/source"
)

// FileResult is the outcome of generating one source file.
type FileResult struct {
	Path    string
	OutPath string
	FileSet *source.FileSet
	FileID  source.FileID
	Bag     *diag.Bag
	// Output is the generated file; nil when nothing was generated.
	Output []byte
	// Written is set when Output reached OutPath.
	Written bool
	// Cached is set when an up-to-date output was reused.
	Cached bool
	// Skipped is set for files that carry no directives or are themselves
	// generated.
	Skipped bool
	Entries []directive.Entry
	Timings buildpipeline.Timings
}

// Failed reports whether the file produced error diagnostics.
func (r *FileResult) Failed() bool {
	return r.Bag.HasErrors()
}

// GenerateFile runs the whole pipeline for one source file. Problems with the
// file itself are reported as diagnostics in the result; the error is only
// set when ctx is cancelled or the Stdout writer fails.
func GenerateFile(ctx context.Context, path string, opts Options) (*FileResult, error) {
	res, err := generate(ctx, path, opts)
	if err != nil {
		return nil, err
	}
	if opts.Stdout != nil && res.Output != nil && !res.Failed() {
		if _, err := opts.Stdout.Write(res.Output); err != nil {
			return res, fmt.Errorf("write %s: %w", res.OutPath, err)
		}
	}
	return res, nil
}

// compiled is a directive that made it through the configuration compiler.
type compiled struct {
	cfg  *config.Config
	span source.Span
}

type fileGen struct {
	opts Options
	res  *FileResult
	disp string
	rep  diag.Reporter

	file    *source.File
	tfset   *token.FileSet
	syntax  *ast.File
	dirs    []directive.Directive
	funcs   []compiled
	repls   []emit.Replacement
	key     project.Digest
	entries []directive.Entry
	// annotated init functions seen so far
	inits int
}

func generate(ctx context.Context, path string, opts Options) (*FileResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()
	g := &fileGen{
		opts: opts,
		disp: displayPath(path, opts.BaseDir),
		res: &FileResult{
			Path:    path,
			OutPath: OutputPath(path, opts.Suffix),
			FileSet: source.NewFileSetWithBase(opts.BaseDir),
			Bag:     diag.NewBag(opts.MaxDiagnostics),
		},
	}
	g.rep = diag.NewDedupReporter(diag.BagReporter{Bag: g.res.Bag})
	log := logging.With().Str("file", g.disp).Logger()

	steps := []struct {
		stage buildpipeline.Stage
		run   func() bool
	}{
		{buildpipeline.StageLoad, g.load},
		{buildpipeline.StageParse, g.parse},
		{buildpipeline.StageCompile, g.compile},
		{buildpipeline.StageEmit, g.emit},
		{buildpipeline.StageWrite, g.write},
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !g.stage(step.stage, step.run) {
			break
		}
	}

	for _, e := range g.entries {
		if opts.Registry != nil {
			opts.Registry.Add(e)
		}
	}
	g.res.Entries = g.entries

	switch {
	case g.res.Skipped:
		log.Debug().Msg("skipped")
	case g.res.Cached:
		log.Debug().Str("output", g.res.OutPath).Msg("cache hit")
	case g.res.Failed():
		log.Debug().Int("diagnostics", g.res.Bag.Len()).Msg("generation failed")
	default:
		log.Debug().Dur("elapsed", g.res.Timings.Sum()).Bool("written", g.res.Written).Msg("generated")
	}
	return g.res, nil
}

// stage runs one pipeline step, reporting progress and timing. It returns
// false when the pipeline should stop for this file.
func (g *fileGen) stage(stage buildpipeline.Stage, run func() bool) bool {
	buildpipeline.Emit(g.opts.Progress, buildpipeline.Event{File: g.disp, Stage: stage, Status: buildpipeline.StatusWorking})
	start := time.Now()
	cont := run()
	elapsed := time.Since(start)
	g.res.Timings.Set(stage, elapsed)
	g.opts.Timer.Add(string(stage), elapsed)

	status := buildpipeline.StatusDone
	switch {
	case g.res.Failed():
		status = buildpipeline.StatusError
	case g.res.Cached || g.res.Skipped:
		status = buildpipeline.StatusSkipped
	}
	buildpipeline.Emit(g.opts.Progress, buildpipeline.Event{File: g.disp, Stage: stage, Status: status, Elapsed: elapsed})
	return cont && status == buildpipeline.StatusDone
}

func (g *fileGen) report(d diag.Diagnostic) {
	g.rep.Report(d)
}

func (g *fileGen) load() bool {
	id, err := g.res.FileSet.Load(g.res.Path)
	if err != nil {
		diag.ReportError(g.rep, diag.IOLoadFileError, source.Span{}, "failed to load file: "+err.Error()).Emit()
		return false
	}
	g.res.FileID = id
	g.file = g.res.FileSet.Get(id)

	if emit.IsGenerated(g.file.Content) || !bytes.Contains(g.file.Content, []byte("funlog")) {
		g.res.Skipped = true
		return false
	}
	return !g.cacheHit()
}

func (g *fileGen) cacheHit() bool {
	if g.opts.Cache == nil || !g.opts.writes() {
		return false
	}
	abs, err := filepath.Abs(g.res.Path)
	if err != nil {
		return false
	}
	g.key = project.Combine(project.Digest(g.file.Hash), g.opts.fingerprint(abs))

	var payload CachePayload
	ok, err := g.opts.Cache.Get(g.key, &payload)
	if err != nil {
		logging.Debug().Err(err).Str("file", g.disp).Msg("cache read failed")
		return false
	}
	if !ok {
		return false
	}
	// #nosec G304 -- output path derives from a source path given by the caller
	out, err := os.ReadFile(g.res.OutPath)
	if err != nil || project.Digest(sha256.Sum256(out)) != payload.OutputHash {
		return false
	}
	for _, d := range payload.Warnings {
		d.Primary.File = g.res.FileID
		g.report(d)
	}
	g.entries = payload.Entries
	g.res.Output = out
	g.res.Cached = true
	return true
}

func (g *fileGen) parse() bool {
	g.tfset = token.NewFileSet()
	f, err := parser.ParseFile(g.tfset, g.res.Path, g.file.Content, parser.ParseComments|parser.SkipObjectResolution)
	if err != nil {
		g.reportParseError(err)
		return false
	}
	g.syntax = f

	dirs, err := directive.Collect(g.tfset, f, g.res.FileID)
	if err != nil {
		diag.ReportError(g.rep, diag.IOParseError, source.Span{File: g.res.FileID}, err.Error()).Emit()
		return false
	}
	if len(dirs) == 0 {
		g.res.Skipped = true
		return false
	}
	g.dirs = dirs

	if d, ok := buildTagDiagnostic(g.tfset, f, g.res.FileID, g.opts.Emit.Tag); ok {
		g.report(d)
	}
	return true
}

func (g *fileGen) reportParseError(err error) {
	var list scanner.ErrorList
	if !errors.As(err, &list) {
		diag.ReportError(g.rep, diag.IOParseError, source.Span{File: g.res.FileID}, err.Error()).Emit()
		return
	}
	size := len(g.file.Content)
	for _, e := range list {
		off := min(max(e.Pos.Offset, 0), size)
		end := min(off+1, size)
		start, err1 := safecast.Conv[uint32](off)
		stop, err2 := safecast.Conv[uint32](end)
		if err1 != nil || err2 != nil {
			start, stop = 0, 0
		}
		diag.ReportError(g.rep, diag.IOParseError, source.Span{File: g.res.FileID, Start: start, End: stop}, e.Msg).Emit()
	}
}

func (g *fileGen) span(from, to token.Pos) source.Span {
	tf := g.tfset.File(from)
	start, err1 := safecast.Conv[uint32](tf.Offset(from))
	end, err2 := safecast.Conv[uint32](tf.Offset(to))
	if err1 != nil || err2 != nil {
		return source.Span{File: g.res.FileID}
	}
	return source.Span{File: g.res.FileID, Start: start, End: end}
}

func (g *fileGen) entry(name string, span source.Span, status directive.Status, cfg string) {
	g.entries = append(g.entries, directive.Entry{
		File:   g.disp,
		Func:   name,
		Config: cfg,
		Status: status,
		Span:   span,
	})
}

// compile validates every directive. Each function contributes at most one
// diagnostic; all of them are checked before the file is given up on.
func (g *fileGen) compile() bool {
	seen := make(map[*ast.FuncDecl]source.Span)
	release := g.opts.Mode == project.ModeRelease

	for _, d := range g.dirs {
		if !d.Attached() {
			g.report(config.ToDiagnostic(config.ErrNotAFunction, d.Span))
			continue
		}
		name := funcName(d.Func)
		fnSpan := g.span(d.Func.Pos(), d.Func.End())
		if first, dup := seen[d.Func]; dup {
			diag.ReportError(g.rep, diag.SynDuplicateDirective, d.Span, "duplicate funlog directive on '"+name+"'").
				WithNote(first, "first directive is here").
				Emit()
			g.markFailed(fnSpan)
			continue
		}
		seen[d.Func] = d.Span

		if release {
			g.entry(name, fnSpan, directive.PassedThrough, "")
			continue
		}

		cfg, ok := g.compileOne(d)
		if !ok {
			g.entry(name, fnSpan, directive.Failed, "")
			continue
		}
		g.funcs = append(g.funcs, compiled{cfg: cfg, span: fnSpan})
		g.entry(name, fnSpan, directive.Instrumented, cfg.String())
	}
	return !g.res.Failed()
}

// markFailed downgrades what was recorded for the function at span.
func (g *fileGen) markFailed(span source.Span) {
	for i := range g.entries {
		if g.entries[i].Span == span {
			g.entries[i].Status = directive.Failed
			g.entries[i].Config = ""
		}
	}
	for i, c := range g.funcs {
		if c.span == span {
			g.funcs = append(g.funcs[:i], g.funcs[i+1:]...)
			break
		}
	}
}

// compileOne reports the diagnostic of a failing directive itself.
func (g *fileGen) compileOne(d directive.Directive) (*config.Config, bool) {
	fn, err := decl.Extract(g.tfset, g.file.Content, g.res.FileID, d.Func)
	if err != nil {
		nameSpan := g.span(d.Func.Name.Pos(), d.Func.Name.End())
		if errors.Is(err, decl.ErrNoBody) {
			diag.ReportError(g.rep, diag.GenNoBody, nameSpan,
				"function '"+d.Func.Name.Name+"' has no body and cannot be instrumented").
				WithNote(d.Span, "remove the funlog directive or give the function a body").
				Emit()
			return nil, false
		}
		diag.ReportError(g.rep, diag.GenEmitFailed, nameSpan, err.Error()).Emit()
		return nil, false
	}
	if fn.IsInit() {
		fn.Ordinal = g.inits
		g.inits++
	}
	tokens, err := attr.Parse(d.Text, d.TextSpan)
	if err != nil {
		g.report(config.ToDiagnostic(err, d.Span))
		return nil, false
	}
	cfg, err := config.Compile(fn, tokens)
	if err != nil {
		g.report(config.ToDiagnostic(err, d.Span))
		return nil, false
	}
	return cfg, true
}

// funcName is the registry name of fn: "Name" or "Recv.Name".
func funcName(fn *ast.FuncDecl) string {
	if fn.Recv == nil || len(fn.Recv.List) == 0 {
		return fn.Name.Name
	}
	t := fn.Recv.List[0].Type
	if star, ok := t.(*ast.StarExpr); ok {
		t = star.X
	}
	switch x := t.(type) {
	case *ast.IndexExpr:
		t = x.X
	case *ast.IndexListExpr:
		t = x.X
	}
	if id, ok := t.(*ast.Ident); ok {
		return id.Name + "." + fn.Name.Name
	}
	return fn.Name.Name
}

func (g *fileGen) emit() bool {
	for _, c := range g.funcs {
		plan := logtmpl.Build(c.cfg)
		text, err := emit.Function(c.cfg, plan, g.opts.Emit)
		if err != nil {
			diag.ReportError(g.rep, diag.GenEmitFailed, c.span, err.Error()).Emit()
			g.markFailed(c.span)
			continue
		}
		g.repls = append(g.repls, emit.Replacement{
			Span:     c.span,
			Text:     text,
			NeedsFmt: len(plan.Captures) > 0,
		})
	}
	if g.res.Failed() {
		return false
	}

	out, err := emit.File(g.file.Content, g.tfset, g.syntax, g.repls, g.opts.Emit)
	if err != nil {
		diag.ReportError(g.rep, diag.GenEmitFailed, source.Span{File: g.res.FileID}, err.Error()).Emit()
		return false
	}
	g.res.Output = out
	return true
}

func (g *fileGen) write() bool {
	if !g.opts.writes() {
		return true
	}
	if err := writeAtomic(g.res.OutPath, g.res.Output); err != nil {
		diag.ReportError(g.rep, diag.IOWriteError, source.Span{File: g.res.FileID}, "failed to write "+g.res.OutPath+": "+err.Error()).Emit()
		return false
	}
	g.res.Written = true

	if g.opts.Cache != nil && g.key != (project.Digest{}) {
		var warnings []diag.Diagnostic
		for _, d := range g.res.Bag.Items() {
			if d.Severity == diag.SevWarning {
				warnings = append(warnings, d)
			}
		}
		payload := &CachePayload{
			Source:     g.res.Path,
			Output:     g.res.OutPath,
			OutputHash: project.Digest(sha256.Sum256(g.res.Output)),
			Entries:    g.entries,
			Warnings:   warnings,
		}
		if err := g.opts.Cache.Put(g.key, payload); err != nil {
			logging.Warn().Err(err).Str("file", g.disp).Msg("cache write failed")
		}
	}
	return true
}

func writeAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, ".funlog-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
		}
	}()
	if _, err = f.Write(data); err != nil {
		return err
	}
	if err = f.Chmod(0o644); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}
