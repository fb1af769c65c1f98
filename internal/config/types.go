package config

import (
	"strings"

	"github.com/koory1st/funlog/internal/decl"
)

// Position says where log statements are emitted around a call.
type Position uint8

const (
	OnStartAndEnd Position = iota
	OnStart
	OnEnd
)

func (p Position) String() string {
	switch p {
	case OnStart:
		return "onStart"
	case OnEnd:
		return "onEnd"
	default:
		return "onStartEnd"
	}
}

// HasEntry reports whether an entry statement is emitted.
func (p Position) HasEntry() bool {
	return p == OnStart || p == OnStartAndEnd
}

// HasExit reports whether an exit statement is emitted.
func (p Position) HasExit() bool {
	return p == OnEnd || p == OnStartAndEnd
}

// Level is the severity of the emitted statements. LevelPrint routes to the
// unleveled console sink.
type Level uint8

const (
	LevelPrint Level = iota
	LevelTrace
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "trace"
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "print"
	}
}

// Leveled reports whether the level goes through the leveled sink.
func (l Level) Leveled() bool {
	return l != LevelPrint
}

// ParamKind is the kind of parameter policy.
type ParamKind uint8

const (
	ParamsAll ParamKind = iota
	ParamsNone
	ParamsSpecified
)

// ParamPolicy selects which parameters are logged.
type ParamPolicy struct {
	Kind ParamKind
	// Names is set for ParamsSpecified. Every name is a parameter of the
	// function the policy was compiled against.
	Names []string
}

func (p ParamPolicy) String() string {
	switch p.Kind {
	case ParamsNone:
		return "none"
	case ParamsSpecified:
		return "params(" + strings.Join(p.Names, ", ") + ")"
	default:
		return "all"
	}
}

// Config is the validated result of compiling one directive.
type Config struct {
	Position Position
	Level    Level
	Params   ParamPolicy
	RetVal   bool
	Func     *decl.Func
}

// LoggedParams resolves the parameter policy against the declaration and
// returns the names to log in declaration order.
func (c *Config) LoggedParams() []string {
	if c.Func == nil {
		return nil
	}
	switch c.Params.Kind {
	case ParamsNone:
		return nil
	case ParamsSpecified:
		want := make(map[string]bool, len(c.Params.Names))
		for _, n := range c.Params.Names {
			want[n] = true
		}
		var out []string
		for _, n := range c.Func.ParamNames() {
			if want[n] {
				out = append(out, n)
			}
		}
		return out
	default:
		return c.Func.ParamNames()
	}
}

// LogsReturn reports whether the return value appears in the exit statement.
func (c *Config) LogsReturn() bool {
	return c.RetVal && c.Func != nil && c.Func.Results.HasValue()
}

func (c *Config) String() string {
	parts := []string{c.Level.String(), c.Params.String(), c.Position.String()}
	if c.RetVal {
		parts = append(parts, "retVal")
	}
	return strings.Join(parts, ",")
}
