package attr

import (
	"unicode"
	"unicode/utf8"

	"fortio.org/safecast"

	"github.com/koory1st/funlog/internal/source"
)

type lexer struct {
	src  string
	off  int
	base source.Span
}

func (lx *lexer) span(start, end int) source.Span {
	s, err := safecast.Conv[uint32](start)
	if err != nil {
		s = 0
	}
	e, err := safecast.Conv[uint32](end)
	if err != nil {
		e = s
	}
	return lx.base.Sub(s, e)
}

func (lx *lexer) skipSpace() {
	for lx.off < len(lx.src) {
		r, size := utf8.DecodeRuneInString(lx.src[lx.off:])
		if !unicode.IsSpace(r) {
			return
		}
		lx.off += size
	}
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r)
}

func (lx *lexer) next() Lexeme {
	lx.skipSpace()
	start := lx.off
	if start >= len(lx.src) {
		return Lexeme{Kind: LexEOF, Span: lx.span(start, start)}
	}

	r, size := utf8.DecodeRuneInString(lx.src[start:])
	kind := LexInvalid
	unterminated := false
	switch {
	case r == '(':
		kind, lx.off = LexLParen, start+1
	case r == ')':
		kind, lx.off = LexRParen, start+1
	case r == ',':
		kind, lx.off = LexComma, start+1
	case r == '=':
		kind, lx.off = LexAssign, start+1
	case r == '"' || r == '`':
		kind = LexString
		unterminated = !lx.scanString(r)
	case unicode.IsDigit(r) || r == '-' || r == '.':
		kind = LexNumber
		lx.off = start + size
		lx.scanWhile(func(r rune) bool { return isIdentPart(r) || r == '.' })
	case isIdentStart(r):
		kind = LexIdent
		lx.off = start + size
		lx.scanWhile(isIdentPart)
	default:
		lx.off = start + size
	}
	return Lexeme{Kind: kind, Text: lx.src[start:lx.off], Span: lx.span(start, lx.off), Unterminated: unterminated}
}

func (lx *lexer) scanWhile(pred func(rune) bool) {
	for lx.off < len(lx.src) {
		r, size := utf8.DecodeRuneInString(lx.src[lx.off:])
		if !pred(r) {
			return
		}
		lx.off += size
	}
}

// scanString consumes a quoted literal and reports whether the closing quote
// was found. An unterminated literal runs to the end of the directive and is
// rejected by the parser.
func (lx *lexer) scanString(quote rune) bool {
	lx.off++
	for lx.off < len(lx.src) {
		c := lx.src[lx.off]
		switch {
		case c == '\\' && quote == '"':
			lx.off += 2
		case rune(c) == quote:
			lx.off++
			return true
		default:
			lx.off++
		}
	}
	lx.off = len(lx.src)
	return false
}
