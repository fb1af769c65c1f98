// Package logtmpl decides the text and arguments of the entry and exit log
// statements for a compiled configuration.
package logtmpl

import (
	"strings"

	"github.com/koory1st/funlog/internal/config"
)

// Placeholder marks where an argument is substituted in a Format.
const Placeholder = "{}"

// Sink selects the runtime destination of a statement.
type Sink uint8

const (
	// Console is the unleveled sink used by the print level.
	Console Sink = iota
	Leveled
)

func (s Sink) String() string {
	if s == Leveled {
		return "leveled"
	}
	return "console"
}

// ArgKind says where the value of an Arg comes from.
type ArgKind uint8

const (
	// ArgParam is the live value of a parameter.
	ArgParam ArgKind = iota
	// ArgCaptured is the text of a parameter captured before the call.
	ArgCaptured
	// ArgReturn is the value returned by the call.
	ArgReturn
)

// Arg is one value passed to a log call.
type Arg struct {
	Kind ArgKind
	Name string
}

// Statement is one log call: a format with one Placeholder per Arg.
type Statement struct {
	Format string
	Args   []Arg
}

// Plan is everything the emitter needs to instrument one function.
type Plan struct {
	Name  string
	Level config.Level
	Sink  Sink
	Entry *Statement
	Exit  *Statement
	// Captures lists the parameters whose text is taken before the call.
	Captures []string
}

// Build applies the decision table to cfg. It is deterministic and does no I/O.
func Build(cfg *config.Config) Plan {
	name := cfg.Func.Name
	params := cfg.LoggedParams()

	plan := Plan{Name: name, Level: cfg.Level, Sink: Console}
	if cfg.Level.Leveled() {
		plan.Sink = Leveled
	}

	if cfg.Position.HasEntry() {
		plan.Entry = statement(name+" [in ]", paramBlock(params, ArgParam))
	}

	if cfg.Position.HasExit() {
		var blocks []block
		if cfg.Position == config.OnEnd && len(params) > 0 {
			blocks = append(blocks, paramBlock(params, ArgCaptured)...)
			plan.Captures = params
		}
		if cfg.LogsReturn() {
			blocks = append(blocks, block{label: "return", arg: Arg{Kind: ArgReturn}})
		}
		plan.Exit = statement(name+" [out]", blocks)
	}
	return plan
}

type block struct {
	label string
	arg   Arg
}

func paramBlock(params []string, kind ArgKind) []block {
	blocks := make([]block, 0, len(params))
	for _, p := range params {
		blocks = append(blocks, block{label: p, arg: Arg{Kind: kind, Name: p}})
	}
	return blocks
}

func statement(head string, blocks []block) *Statement {
	if len(blocks) == 0 {
		return &Statement{Format: head}
	}
	parts := make([]string, 0, len(blocks))
	args := make([]Arg, 0, len(blocks))
	for _, b := range blocks {
		parts = append(parts, b.label+":"+Placeholder)
		args = append(args, b.arg)
	}
	return &Statement{
		Format: head + ": " + strings.Join(parts, ", "),
		Args:   args,
	}
}
