package driver

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/koory1st/funlog/internal/buildpipeline"
	"github.com/koory1st/funlog/internal/logging"
)

// CollectFiles expands paths into the Go source files generation should look
// at. Directories are walked recursively, skipping hidden directories,
// vendor and testdata. Tests and files ending in suffix are never returned.
// Files named explicitly are kept even when they would be filtered by
// directory rules.
func CollectFiles(paths []string, suffix string) ([]string, error) {
	if suffix == "" {
		suffix = DefaultSuffix
	}
	keep := func(name string) bool {
		return strings.HasSuffix(name, ".go") &&
			!strings.HasSuffix(name, "_test.go") &&
			!isOutputName(name, suffix)
	}

	set := make(map[string]struct{})
	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			if !keep(info.Name()) {
				return nil, fmt.Errorf("%s: not a Go source file", root)
			}
			set[filepath.Clean(root)] = struct{}{}
			continue
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				name := d.Name()
				if path != root && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || name == "vendor" || name == "testdata") {
					return filepath.SkipDir
				}
				return nil
			}
			if keep(d.Name()) {
				set[filepath.Clean(path)] = struct{}{}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	files := make([]string, 0, len(set))
	for f := range set {
		files = append(files, f)
	}
	sort.Strings(files)
	return files, nil
}

// GeneratePaths collects the files under paths and generates them in
// parallel. Results are in file order. With opts.Stdout set, outputs are
// written in that order once every file is done.
func GeneratePaths(ctx context.Context, paths []string, opts Options) ([]*FileResult, error) {
	opts = opts.withDefaults()

	span := opts.Timer.Begin("collect")
	files, err := CollectFiles(paths, opts.Suffix)
	span.End()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, nil
	}
	for _, f := range files {
		buildpipeline.Emit(opts.Progress, buildpipeline.Event{
			File:   displayPath(f, opts.BaseDir),
			Stage:  buildpipeline.StageLoad,
			Status: buildpipeline.StatusQueued,
		})
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	stdout := opts.Stdout
	perFile := opts
	perFile.Stdout = nil
	if stdout != nil {
		perFile.Check = true
	}

	results := make([]*FileResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(files)))
	for i, path := range files {
		g.Go(func() error {
			res, err := generate(gctx, path, perFile)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	logging.Debug().Int("files", len(files)).Int("jobs", jobs).Msg("generation finished")

	if stdout != nil {
		for _, res := range results {
			if res.Output == nil || res.Failed() {
				continue
			}
			if _, err := stdout.Write(res.Output); err != nil {
				return results, fmt.Errorf("write %s: %w", res.OutPath, err)
			}
		}
	}
	return results, nil
}

// Summary counts results by outcome.
type Summary struct {
	Files   int
	Written int
	Cached  int
	Skipped int
	Failed  int
}

// Summarize counts results by outcome.
func Summarize(results []*FileResult) Summary {
	var s Summary
	for _, r := range results {
		s.Files++
		switch {
		case r.Failed():
			s.Failed++
		case r.Skipped:
			s.Skipped++
		case r.Cached:
			s.Cached++
		case r.Written:
			s.Written++
		}
	}
	return s
}
