package config

import (
	"errors"
	"fmt"

	"github.com/koory1st/funlog/internal/attr"
	"github.com/koory1st/funlog/internal/diag"
	"github.com/koory1st/funlog/internal/fix"
	"github.com/koory1st/funlog/internal/source"
)

// FixSuggestOption identifies fixes that replace a misspelt option.
const FixSuggestOption = "funlog.suggest-option"

// ToDiagnostic converts an error from attr.Parse or Compile into a
// diagnostic. fallback is used when the error carries no span of its own.
func ToDiagnostic(err error, fallback source.Span) diag.Diagnostic {
	code, span := diag.UnknownCode, fallback

	var (
		already  *AlreadySetError
		invalid  *InvalidParameterError
		unknown  *UnknownOptionError
		malform  *MalformedSyntaxError
		conflict *ConflictError
		syntax   *attr.SyntaxError
	)
	switch {
	case errors.Is(err, ErrNotAFunction):
		code = diag.CfgNotAFunction
	case errors.As(err, &already):
		code, span = diag.CfgAlreadySet, already.Span
	case errors.As(err, &invalid):
		code, span = diag.CfgInvalidParameter, invalid.Span
	case errors.As(err, &unknown):
		code, span = diag.CfgUnknownOption, unknown.Span
	case errors.As(err, &malform):
		code, span = diag.SynMalformedDirective, malform.Span
	case errors.As(err, &conflict):
		code, span = diag.CfgConflictingOptions, conflict.SecondSpan
	case errors.As(err, &syntax):
		// shape errors from the token parser render like any other
		// malformed directive
		malform = &MalformedSyntaxError{Msg: syntax.Msg, Span: syntax.Span}
		err = malform
		code, span = diag.SynMalformedDirective, syntax.Span
	}
	if span == (source.Span{}) {
		span = fallback
	}

	d := diag.NewError(code, span, err.Error())
	if conflict != nil {
		d = d.WithNote(conflict.FirstSpan, fmt.Sprintf("'%s' is set here", conflict.First))
	}
	for _, h := range Hints(err) {
		d = d.WithNote(source.Span{}, h)
	}
	if unknown != nil && unknown.Suggestion != "" {
		d.Fixes = append(d.Fixes, fix.ReplaceSpan(
			fmt.Sprintf("replace '%s' with '%s'", unknown.Token, unknown.Suggestion),
			unknown.Span, unknown.Suggestion, unknown.Token,
			fix.WithID(FixSuggestOption),
			fix.WithApplicability(diag.FixApplicabilitySafeWithHeuristics),
		))
	}
	return d
}
