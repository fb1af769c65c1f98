package attr

import (
	"fmt"

	"github.com/koory1st/funlog/internal/source"
)

type parser struct {
	lx  lexer
	tok Lexeme
}

func (p *parser) advance() Lexeme {
	prev := p.tok
	p.tok = p.lx.next()
	return prev
}

// Parse splits directive option text into tokens. base is the span of text
// inside the source file; token spans are derived from it. Empty text yields
// no tokens.
func Parse(text string, base source.Span) ([]Token, error) {
	p := &parser{lx: lexer{src: text, base: base}}
	p.advance()

	var tokens []Token
	for p.tok.Kind != LexEOF {
		if p.tok.Kind == LexComma {
			return nil, &SyntaxError{Msg: "empty option entry", Span: p.tok.Span}
		}
		tok, err := p.parseItem()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)

		switch p.tok.Kind {
		case LexEOF:
		case LexComma:
			p.advance()
		default:
			return nil, &SyntaxError{
				Msg:  fmt.Sprintf("expected ',' between options, found %s", p.tok.describe()),
				Span: p.tok.Span,
			}
		}
	}
	return tokens, nil
}

func (p *parser) parseItem() (Token, error) {
	if p.tok.Kind != LexIdent {
		return Token{}, p.unexpected("expected option name, found %s")
	}
	name := p.advance()
	tok := Token{Kind: Word, Name: name.Text, NameSpan: name.Span, Span: name.Span}

	switch p.tok.Kind {
	case LexLParen:
		open := p.advance()
		depth := 1
		for {
			switch p.tok.Kind {
			case LexEOF:
				return Token{}, &SyntaxError{
					Msg:  fmt.Sprintf("unbalanced parentheses in '%s('", name.Text),
					Span: name.Span.Cover(open.Span),
				}
			case LexLParen:
				depth++
			case LexRParen:
				depth--
			case LexString:
				if p.tok.Unterminated {
					return Token{}, p.unexpected("unterminated %s")
				}
			}
			if depth == 0 {
				closing := p.advance()
				tok.Kind = List
				tok.Span = name.Span.Cover(closing.Span)
				return tok, nil
			}
			tok.Inner = append(tok.Inner, p.advance())
		}
	case LexAssign:
		p.advance()
		switch p.tok.Kind {
		case LexIdent, LexNumber:
		case LexString:
			if p.tok.Unterminated {
				return Token{}, p.unexpected("unterminated %s")
			}
		default:
			return Token{}, p.unexpected("expected value after '=', found %s")
		}
		value := p.advance()
		tok.Kind = NameValue
		tok.Value = value
		tok.Span = name.Span.Cover(value.Span)
	case LexRParen:
		return Token{}, &SyntaxError{Msg: "unbalanced parentheses: unexpected ')'", Span: p.tok.Span}
	}
	return tok, nil
}

func (p *parser) unexpected(format string) error {
	return &SyntaxError{Msg: fmt.Sprintf(format, p.tok.describe()), Span: p.tok.Span}
}
