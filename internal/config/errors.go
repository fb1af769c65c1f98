package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/koory1st/funlog/internal/source"
)

// ErrNotAFunction is returned when a directive is attached to something other
// than a function declaration.
var ErrNotAFunction = errors.New("can only be used on functions")

// AlreadySetError reports a flag option given twice.
type AlreadySetError struct {
	Option string
	Span   source.Span
}

func (e *AlreadySetError) Error() string {
	return fmt.Sprintf("'%s' option has already been set", e.Option)
}

func (e *AlreadySetError) Hints() []string {
	return []string{"Each configuration option can only be set once, please check for duplicate configurations"}
}

// InvalidParameterError reports a params() entry that names no parameter.
type InvalidParameterError struct {
	Name      string
	Available []string
	Span      source.Span
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("parameter '%s' does not exist", e.Name)
}

func (e *InvalidParameterError) Hints() []string {
	if len(e.Available) == 0 {
		return []string{"This function has no parameters, please use 'none' or remove the params() configuration"}
	}
	names := strings.Join(e.Available, ", ")
	return []string{
		"Available parameters are: " + names,
		"Correct usage: //funlog:params(" + names + ")",
	}
}

// UnknownOptionError reports an option outside the vocabulary.
type UnknownOptionError struct {
	Token      string
	Suggestion string
	Span       source.Span
}

func (e *UnknownOptionError) Error() string {
	return fmt.Sprintf("unknown configuration option '%s'", e.Token)
}

func (e *UnknownOptionError) Hints() []string {
	var hints []string
	if e.Suggestion != "" {
		hints = append(hints, fmt.Sprintf("Did you mean '%s'?", e.Suggestion))
	}
	return append(hints, OptionsReference)
}

// OptionsReference enumerates every accepted option.
const OptionsReference = "Available configuration options:\n" +
	"  Log levels: print, trace, debug, info, warn, error\n" +
	"  Parameter control: all, none, params(parameter_names...)\n" +
	"  Position control: onStart, onEnd, onStartEnd\n" +
	"  Return value: retVal"

// MalformedSyntaxError reports directive text with an unrecognised shape.
type MalformedSyntaxError struct {
	Msg  string
	Span source.Span
}

func (e *MalformedSyntaxError) Error() string {
	return e.Msg
}

func (e *MalformedSyntaxError) Hints() []string {
	return []string{"Please check the directive syntax, example: //funlog:debug,params(a, b)"}
}

// ConflictError reports two options of the same category.
type ConflictError struct {
	First, Second         string
	FirstSpan, SecondSpan source.Span
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("'%s' and '%s' cannot be used together", e.First, e.Second)
}

func (e *ConflictError) Hints() []string {
	return []string{"Please choose one of the options"}
}

type hinter interface {
	Hints() []string
}

// Hints returns the follow-up hints for an error returned by Compile.
func Hints(err error) []string {
	if errors.Is(err, ErrNotAFunction) {
		return []string{"funlog directives can only be applied to function declarations, not other items"}
	}
	var h hinter
	if errors.As(err, &h) {
		return h.Hints()
	}
	return nil
}

// Render formats err and its hints as a multi-line message.
func Render(err error) string {
	var b strings.Builder
	b.WriteString("funlog: ")
	b.WriteString(err.Error())
	for _, h := range Hints(err) {
		b.WriteString("\nhint: ")
		b.WriteString(h)
	}
	return b.String()
}
