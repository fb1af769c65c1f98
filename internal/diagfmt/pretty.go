package diagfmt

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"github.com/koory1st/funlog/internal/diag"
	"github.com/koory1st/funlog/internal/source"
)

const tabWidth = 4

type palette struct {
	err, warn, info, note, fix, gutter, caret, bold *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:    color.New(color.FgRed, color.Bold),
		warn:   color.New(color.FgYellow, color.Bold),
		info:   color.New(color.FgBlue, color.Bold),
		note:   color.New(color.FgCyan),
		fix:    color.New(color.FgGreen),
		gutter: color.New(color.FgBlue),
		caret:  color.New(color.FgRed, color.Bold),
		bold:   color.New(color.Bold),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.note, p.fix, p.gutter, p.caret, p.bold} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(sev diag.Severity) *color.Color {
	switch sev {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	default:
		return p.info
	}
}

// Pretty renders diagnostics for humans. The bag is expected to be sorted.
//
//	calc/calc.go:3:10: error CFG3003: unknown configuration option 'debgu'
//	  3 | //funlog:debgu
//	    |          ^~~~~
//	    = hint: Did you mean 'debug'?
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	p := newPalette(opts.Color)
	for i, d := range bag.Items() {
		if i > 0 {
			fmt.Fprintln(w)
		}
		prettyOne(w, p, d, fs, opts)
	}
}

func prettyOne(w io.Writer, p palette, d diag.Diagnostic, fs *source.FileSet, opts PrettyOpts) {
	f := fs.Get(d.Primary.File)
	if f == nil {
		fmt.Fprintf(w, "%s %s: %s\n",
			p.severity(d.Severity).Sprint(strings.ToLower(d.Severity.String())),
			d.Code.ID(), p.bold.Sprint(d.Message))
		return
	}

	start, end := fs.Resolve(d.Primary)
	fmt.Fprintf(w, "%s:%d:%d: %s %s: %s\n",
		formatPath(f, fs, opts.PathMode), start.Line, start.Col,
		p.severity(d.Severity).Sprint(strings.ToLower(d.Severity.String())),
		d.Code.ID(), p.bold.Sprint(d.Message))

	gutterWidth := len(strconv.FormatUint(uint64(start.Line), 10))
	pad := strings.Repeat(" ", gutterWidth)
	line := f.GetLine(start.Line)
	shown := expandTabs(line)
	if opts.Width > 0 {
		shown = runewidth.Truncate(shown, int(opts.Width), "…")
	}
	fmt.Fprintf(w, "  %s %s\n", p.gutter.Sprintf("%d |", start.Line), shown)

	caretCol := displayWidth(line, start.Col)
	caretLen := 1
	if end.Line == start.Line && end.Col > start.Col {
		caretLen = max(displayWidth(line, end.Col)-caretCol, 1)
	}
	fmt.Fprintf(w, "  %s %s%s\n",
		p.gutter.Sprintf("%s |", pad),
		strings.Repeat(" ", caretCol),
		p.caret.Sprint("^"+strings.Repeat("~", caretLen-1)))

	if opts.ShowNotes {
		for _, note := range d.Notes {
			label, msg := "hint", note.Msg
			if !note.Span.Empty() {
				if nf := fs.Get(note.Span.File); nf != nil {
					ns, _ := fs.Resolve(note.Span)
					label = "note"
					msg = fmt.Sprintf("%s:%d:%d: %s", formatPath(nf, fs, opts.PathMode), ns.Line, ns.Col, note.Msg)
				}
			}
			writeIndented(w, fmt.Sprintf("  %s = %s: ", pad, p.note.Sprint(label)), msg)
		}
	}

	if opts.ShowFixes {
		for _, fix := range d.Fixes {
			fmt.Fprintf(w, "  %s = %s: %s\n", pad, p.fix.Sprint("fix"), fix.Title)
			if !opts.ShowPreview {
				continue
			}
			for _, edit := range fix.Edits {
				preview, err := buildFixEditPreview(fs, edit)
				if err != nil {
					continue
				}
				for _, l := range preview.before {
					fmt.Fprintf(w, "  %s   %s\n", pad, p.err.Sprint("- "+expandTabs(l)))
				}
				for _, l := range preview.after {
					fmt.Fprintf(w, "  %s   %s\n", pad, p.fix.Sprint("+ "+expandTabs(l)))
				}
			}
		}
	}
}

// writeIndented prints a possibly multi-line message, aligning continuation
// lines under the first character of the message.
func writeIndented(w io.Writer, prefix, msg string) {
	lines := strings.Split(msg, "\n")
	indent := strings.Repeat(" ", runewidth.StringWidth(stripANSI(prefix)))
	fmt.Fprintf(w, "%s%s\n", prefix, lines[0])
	for _, l := range lines[1:] {
		if l == "" {
			fmt.Fprintln(w)
			continue
		}
		fmt.Fprintf(w, "%s%s\n", indent, l)
	}
}

func expandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", strings.Repeat(" ", tabWidth))
}

// displayWidth returns the terminal width of line up to the 1-based byte column col.
func displayWidth(line string, col uint32) int {
	n := min(int(col)-1, len(line))
	if n <= 0 {
		return 0
	}
	return runewidth.StringWidth(expandTabs(line[:n]))
}

func stripANSI(s string) string {
	var b strings.Builder
	inEsc := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inEsc:
			if c == 'm' {
				inEsc = false
			}
		case c == 0x1b:
			inEsc = true
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
