// Package decl extracts the facts about a Go function declaration that the
// configuration compiler and the code emitter need.
package decl

import (
	"strconv"
	"strings"

	"github.com/koory1st/funlog/internal/source"
)

// SyntheticPrefix starts every identifier invented by the generator.
const SyntheticPrefix = "_funlog_"

// Param is one parameter in declaration order. Grouped parameters such as
// (a, b int) become one Param each.
type Param struct {
	Name     string
	Type     string
	Variadic bool
	// Synthetic is set for unnamed and blank parameters, which get an
	// invented name so they can be forwarded but are never logged.
	Synthetic bool
}

// Receiver describes the receiver of a method.
type Receiver struct {
	Name      string
	Type      string
	Synthetic bool
}

// TypeParam is one group of type parameters sharing a constraint.
type TypeParam struct {
	Names      []string
	Constraint string
}

// Results is the return-type descriptor: either nothing or one or more
// result types.
type Results struct {
	Types []string
	// Names holds result names when the declaration names them.
	Names []string
}

// HasValue reports whether the function produces a value.
func (r Results) HasValue() bool {
	return len(r.Types) > 0
}

func (r Results) Len() int {
	return len(r.Types)
}

// String renders the result list as it appears in a signature.
func (r Results) String() string {
	switch len(r.Types) {
	case 0:
		return ""
	case 1:
		if len(r.Names) == 0 {
			return r.Types[0]
		}
	}
	parts := make([]string, len(r.Types))
	for i, t := range r.Types {
		if i < len(r.Names) {
			parts[i] = r.Names[i] + " " + t
		} else {
			parts[i] = t
		}
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Func is an immutable description of one function declaration.
type Func struct {
	Name       string
	Exported   bool
	Recv       *Receiver
	TypeParams []TypeParam
	Params     []Param
	Results    Results
	// Body is the original body text including braces, copied verbatim.
	Body string
	// Span covers the declaration from the func keyword to the closing brace.
	Span source.Span
	// BodySpan covers the body including braces.
	BodySpan source.Span
	// Ordinal numbers the annotated init functions of one file from 0. A
	// package may declare several init functions, their helpers may not
	// share a name.
	Ordinal int
}

// ParamNames returns the names of loggable parameters in declaration order.
func (f *Func) ParamNames() []string {
	names := make([]string, 0, len(f.Params))
	for _, p := range f.Params {
		if !p.Synthetic {
			names = append(names, p.Name)
		}
	}
	return names
}

// HasParam reports whether name is a loggable parameter.
func (f *Func) HasParam(name string) bool {
	for _, p := range f.Params {
		if !p.Synthetic && p.Name == name {
			return true
		}
	}
	return false
}

// TypeParamNames returns all type parameter names in order.
func (f *Func) TypeParamNames() []string {
	var names []string
	for _, tp := range f.TypeParams {
		names = append(names, tp.Names...)
	}
	return names
}

// IsMethod reports whether the function has a receiver.
func (f *Func) IsMethod() bool {
	return f.Recv != nil
}

// IsInit reports whether f is a package init function.
func (f *Func) IsInit() bool {
	return f.Recv == nil && f.Name == "init"
}

// InnerName is the name of the helper that receives the original body.
func (f *Func) InnerName() string {
	if f.IsInit() && f.Ordinal > 0 {
		return SyntheticPrefix + "init_" + strconv.Itoa(f.Ordinal)
	}
	return SyntheticPrefix + f.Name
}
