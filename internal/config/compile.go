// Package config compiles the tokens of a funlog directive into a validated
// Config for one function declaration.
package config

import (
	"github.com/koory1st/funlog/internal/attr"
	"github.com/koory1st/funlog/internal/decl"
	"github.com/koory1st/funlog/internal/source"
)

type category uint8

const (
	catParams category = iota
	catLevel
	catPosition
	catRetVal
)

// intent is a classified token: which category it sets and to what.
type intent struct {
	cat      category
	evidence string
	span     source.Span
	level    Level
	position Position
	params   ParamPolicy
}

var words = map[string]intent{
	"all":        {cat: catParams, params: ParamPolicy{Kind: ParamsAll}},
	"none":       {cat: catParams, params: ParamPolicy{Kind: ParamsNone}},
	"print":      {cat: catLevel, level: LevelPrint},
	"trace":      {cat: catLevel, level: LevelTrace},
	"debug":      {cat: catLevel, level: LevelDebug},
	"info":       {cat: catLevel, level: LevelInfo},
	"warn":       {cat: catLevel, level: LevelWarn},
	"error":      {cat: catLevel, level: LevelError},
	"onStart":    {cat: catPosition, position: OnStart},
	"onEnd":      {cat: catPosition, position: OnEnd},
	"onStartEnd": {cat: catPosition, position: OnStartAndEnd},
	"retVal":     {cat: catRetVal},
}

// Compile validates tokens against fn and folds them into a Config.
//
// Tokens are classified left to right and the first unrecognised one fails
// immediately. Conflicts between recognised tokens of one category are
// detected afterwards, in encounter order. Absent categories take the
// defaults onStartEnd, print, all and no return value.
func Compile(fn *decl.Func, tokens []attr.Token) (*Config, error) {
	if fn == nil {
		return nil, ErrNotAFunction
	}

	intents := make([]intent, 0, len(tokens))
	var retValSeen bool
	for _, tok := range tokens {
		in, err := classify(fn, tok)
		if err != nil {
			return nil, err
		}
		if in.cat == catRetVal {
			if retValSeen {
				return nil, &AlreadySetError{Option: "retVal", Span: tok.Span}
			}
			retValSeen = true
		}
		intents = append(intents, in)
	}

	var evidence [catRetVal][]intent
	for _, in := range intents {
		if in.cat != catRetVal {
			evidence[in.cat] = append(evidence[in.cat], in)
		}
	}
	for _, seen := range evidence {
		if len(seen) > 1 {
			return nil, &ConflictError{
				First:      seen[0].evidence,
				Second:     seen[1].evidence,
				FirstSpan:  seen[0].span,
				SecondSpan: seen[1].span,
			}
		}
	}

	cfg := &Config{
		Position: OnStartAndEnd,
		Level:    LevelPrint,
		Params:   ParamPolicy{Kind: ParamsAll},
		RetVal:   retValSeen,
		Func:     fn,
	}
	if seen := evidence[catParams]; len(seen) == 1 {
		cfg.Params = seen[0].params
	}
	if seen := evidence[catLevel]; len(seen) == 1 {
		cfg.Level = seen[0].level
	}
	if seen := evidence[catPosition]; len(seen) == 1 {
		cfg.Position = seen[0].position
	}
	return cfg, nil
}

func classify(fn *decl.Func, tok attr.Token) (intent, error) {
	switch tok.Kind {
	case attr.Word:
		if in, ok := words[tok.Name]; ok {
			in.evidence = tok.Name
			in.span = tok.Span
			return in, nil
		}
		if tok.Name == "params" {
			return intent{}, &MalformedSyntaxError{
				Msg:  "params requires a parenthesised parameter list",
				Span: tok.Span,
			}
		}
		return intent{}, &UnknownOptionError{Token: tok.Name, Suggestion: Suggest(tok.Name), Span: tok.NameSpan}

	case attr.List:
		if tok.Name != "params" {
			var suggestion string
			if tok.Name == "param" {
				suggestion = "params"
			}
			return intent{}, &UnknownOptionError{Token: tok.Name, Suggestion: suggestion, Span: tok.NameSpan}
		}
		names, err := paramList(fn, tok)
		if err != nil {
			return intent{}, err
		}
		return intent{
			cat:      catParams,
			evidence: "params",
			span:     tok.Span,
			params:   ParamPolicy{Kind: ParamsSpecified, Names: names},
		}, nil
	}

	return intent{}, &MalformedSyntaxError{
		Msg:  "unsupported option form '" + tok.Text() + "'",
		Span: tok.Span,
	}
}

// paramList decodes the identifiers of params(...). A trailing comma is
// accepted, repeated names are kept once.
func paramList(fn *decl.Func, tok attr.Token) ([]string, error) {
	var (
		names     []string
		seen      = make(map[string]bool)
		wantIdent = true
	)
	for _, lx := range tok.Inner {
		switch {
		case wantIdent && lx.Kind == attr.LexIdent:
			if !fn.HasParam(lx.Text) {
				return nil, &InvalidParameterError{Name: lx.Text, Available: fn.ParamNames(), Span: lx.Span}
			}
			if !seen[lx.Text] {
				seen[lx.Text] = true
				names = append(names, lx.Text)
			}
			wantIdent = false
		case !wantIdent && lx.Kind == attr.LexComma:
			wantIdent = true
		default:
			return nil, &MalformedSyntaxError{
				Msg:  "params expects a comma-separated list of parameter names, found '" + lx.Text + "'",
				Span: lx.Span,
			}
		}
	}
	return names, nil
}
