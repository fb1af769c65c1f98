package directive

import (
	"fmt"
	"io"
	"path/filepath"
)

// Summary counts entries by status.
type Summary struct {
	Files         int
	Total         int
	Instrumented  int
	PassedThrough int
	Failed        int
}

// Report writes one line per entry when verbose, then a summary line.
func Report(w io.Writer, r *Registry, verbose bool) Summary {
	entries := r.All()
	var sum Summary
	files := make(map[string]bool)
	for _, e := range entries {
		files[e.File] = true
		sum.Total++
		switch e.Status {
		case Instrumented:
			sum.Instrumented++
		case PassedThrough:
			sum.PassedThrough++
		case Failed:
			sum.Failed++
		}
		if verbose {
			fmt.Fprintf(w, "%s#%s (%s) ... %s\n", filepath.Base(e.File), e.Func, e.Config, e.Status)
		}
	}
	sum.Files = len(files)

	fmt.Fprintf(w, "funlog: %d functions in %d files: %d instrumented, %d passed through, %d failed\n",
		sum.Total, sum.Files, sum.Instrumented, sum.PassedThrough, sum.Failed)
	return sum
}
