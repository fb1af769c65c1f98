package attr

import (
	"fmt"
	"strings"

	"github.com/koory1st/funlog/internal/source"
)

// LexKind classifies a lexeme of directive text.
type LexKind uint8

const (
	LexEOF LexKind = iota
	LexIdent
	LexLParen
	LexRParen
	LexComma
	LexAssign
	LexString
	LexNumber
	LexInvalid
)

func (k LexKind) String() string {
	switch k {
	case LexEOF:
		return "end of directive"
	case LexIdent:
		return "identifier"
	case LexLParen:
		return "'('"
	case LexRParen:
		return "')'"
	case LexComma:
		return "','"
	case LexAssign:
		return "'='"
	case LexString:
		return "string literal"
	case LexNumber:
		return "number"
	default:
		return "invalid character"
	}
}

// Lexeme is a single lexical unit with its location in the source file.
type Lexeme struct {
	Kind LexKind
	Text string
	Span source.Span
	// Unterminated is set on a string literal missing its closing quote.
	Unterminated bool
}

func (l Lexeme) describe() string {
	switch l.Kind {
	case LexEOF:
		return l.Kind.String()
	case LexIdent, LexString, LexNumber, LexInvalid:
		return fmt.Sprintf("%s %q", l.Kind, l.Text)
	default:
		return l.Kind.String()
	}
}

// Kind is the shape of an option token.
type Kind uint8

const (
	// Word is a bare identifier: debug
	Word Kind = iota
	// List is an identifier with a parenthesised list: params(a, b)
	List
	// NameValue is an assignment: level = "debug"
	NameValue
)

func (k Kind) String() string {
	switch k {
	case Word:
		return "word"
	case List:
		return "list"
	case NameValue:
		return "name-value"
	}
	return "unknown"
}

// Token is one comma-separated entry of a directive.
type Token struct {
	Kind Kind
	Name string
	// Inner holds the lexemes between the parentheses of a List.
	Inner []Lexeme
	// Value is the right-hand side of a NameValue.
	Value Lexeme
	// NameSpan covers the leading identifier, Span the whole entry.
	NameSpan source.Span
	Span     source.Span
}

// Text reconstructs a normalised rendering of the token.
func (t Token) Text() string {
	switch t.Kind {
	case List:
		var b strings.Builder
		b.WriteString(t.Name)
		b.WriteByte('(')
		for i, l := range t.Inner {
			if i > 0 && l.Kind != LexComma && l.Kind != LexRParen && l.Kind != LexLParen && t.Inner[i-1].Kind != LexLParen {
				b.WriteByte(' ')
			}
			b.WriteString(l.Text)
		}
		b.WriteByte(')')
		return b.String()
	case NameValue:
		return t.Name + " = " + t.Value.Text
	default:
		return t.Name
	}
}

// SyntaxError reports directive text that does not have a recognised shape.
type SyntaxError struct {
	Msg  string
	Span source.Span
}

func (e *SyntaxError) Error() string {
	return e.Msg
}
