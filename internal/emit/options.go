package emit

import (
	"fmt"
	"path"
	"strings"
)

const (
	DefaultSinkPath = "github.com/koory1st/funlog"
	DefaultSinkName = "funlog"
	DefaultVerb     = "%+v"
	DefaultTag      = "funlog"
)

// Options controls the shape of generated code.
type Options struct {
	// SinkPath is the import path of the runtime sink package.
	SinkPath string
	// SinkName is the identifier generated code uses for the sink package.
	SinkName string
	// Verb formats live values and captured parameters.
	Verb string
	// Tag is the build tag that selects generated files.
	Tag string
}

// WithDefaults fills unset fields.
func (o Options) WithDefaults() Options {
	if o.SinkPath == "" {
		o.SinkPath = DefaultSinkPath
	}
	if o.SinkName == "" {
		o.SinkName = path.Base(o.SinkPath)
	}
	if o.Verb == "" {
		o.Verb = DefaultVerb
	}
	if o.Tag == "" {
		o.Tag = DefaultTag
	}
	return o
}

// Validate reports options that would produce code that does not compile.
func (o Options) Validate() error {
	o = o.WithDefaults()
	if !strings.HasPrefix(o.Verb, "%") || strings.Count(o.Verb, "%") != 1 || strings.HasSuffix(o.Verb, "%") {
		return fmt.Errorf("verb %q must be a single fmt verb such as %%v", o.Verb)
	}
	if !isIdent(o.SinkName) {
		return fmt.Errorf("sink name %q is not a Go identifier", o.SinkName)
	}
	if strings.ContainsAny(o.Tag, " \t\n") {
		return fmt.Errorf("build tag %q must not contain whitespace", o.Tag)
	}
	return nil
}

func isIdent(s string) bool {
	if s == "" || s == "_" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
