// Package emit turns a compiled configuration and its log plan into Go
// source: the instrumented wrapper, the helper holding the original body, and
// the whole generated file.
package emit

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/koory1st/funlog/internal/config"
	"github.com/koory1st/funlog/internal/decl"
	"github.com/koory1st/funlog/internal/logtmpl"
)

const (
	capturePrefix = decl.SyntheticPrefix + "cap_"
	resultPrefix  = decl.SyntheticPrefix + "ret"
)

// Function renders the wrapper followed by the helper that keeps the original
// body. The wrapper has the original name, receiver and signature.
func Function(cfg *config.Config, plan logtmpl.Plan, opts Options) (string, error) {
	opts = opts.WithDefaults()
	fn := cfg.Func
	if fn == nil {
		return "", config.ErrNotAFunction
	}
	if err := checkShadowing(fn, plan, opts); err != nil {
		return "", err
	}

	var b strings.Builder
	sig := signature(fn)

	// wrapper
	fmt.Fprintf(&b, "func %s%s%s%s {\n", recvClause(fn), fn.Name, typeParamClause(fn), sig)
	for _, name := range plan.Captures {
		fmt.Fprintf(&b, "\t%s%s := fmt.Sprintf(%q, %s)\n", capturePrefix, name, opts.Verb, name)
	}
	if plan.Entry != nil {
		b.WriteString("\t" + logCall(plan, plan.Entry, fn, opts) + "\n")
	}

	call := callExpr(fn)
	results := resultVars(fn)
	if len(results) > 0 {
		fmt.Fprintf(&b, "\t%s := %s\n", strings.Join(results, ", "), call)
	} else {
		fmt.Fprintf(&b, "\t%s\n", call)
	}
	if plan.Exit != nil {
		b.WriteString("\t" + logCall(plan, plan.Exit, fn, opts) + "\n")
	}
	if len(results) > 0 {
		fmt.Fprintf(&b, "\treturn %s\n", strings.Join(results, ", "))
	}
	b.WriteString("}\n\n")

	// helper with the original body
	fmt.Fprintf(&b, "func %s%s%s%s %s", recvClause(fn), fn.InnerName(), typeParamClause(fn), sig, fn.Body)
	return b.String(), nil
}

// checkShadowing rejects declarations whose names would hide the packages the
// wrapper refers to.
func checkShadowing(fn *decl.Func, plan logtmpl.Plan, opts Options) error {
	reserved := map[string]bool{opts.SinkName: true}
	if len(plan.Captures) > 0 {
		reserved["fmt"] = true
	}
	names := make([]string, 0, len(fn.Params)+len(fn.Results.Names)+1)
	if fn.Recv != nil {
		names = append(names, fn.Recv.Name)
	}
	for _, p := range fn.Params {
		names = append(names, p.Name)
	}
	names = append(names, fn.Results.Names...)
	names = append(names, fn.TypeParamNames()...)
	for _, n := range names {
		if reserved[n] {
			return fmt.Errorf("%s: %q shadows the %q package used by generated code", fn.Name, n, n)
		}
	}
	return nil
}

func recvClause(fn *decl.Func) string {
	if fn.Recv == nil {
		return ""
	}
	return "(" + fn.Recv.Name + " " + fn.Recv.Type + ") "
}

func typeParamClause(fn *decl.Func) string {
	if len(fn.TypeParams) == 0 {
		return ""
	}
	parts := make([]string, 0, len(fn.TypeParams))
	for _, tp := range fn.TypeParams {
		parts = append(parts, strings.Join(tp.Names, ", ")+" "+tp.Constraint)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func signature(fn *decl.Func) string {
	params := make([]string, 0, len(fn.Params))
	for _, p := range fn.Params {
		params = append(params, p.Name+" "+p.Type)
	}
	sig := "(" + strings.Join(params, ", ") + ")"
	if res := fn.Results.String(); res != "" {
		sig += " " + res
	}
	return sig
}

func callExpr(fn *decl.Func) string {
	var b strings.Builder
	if fn.Recv != nil {
		b.WriteString(fn.Recv.Name + ".")
	}
	b.WriteString(fn.InnerName())
	if tps := fn.TypeParamNames(); len(tps) > 0 {
		b.WriteString("[" + strings.Join(tps, ", ") + "]")
	}
	args := make([]string, 0, len(fn.Params))
	for _, p := range fn.Params {
		if p.Variadic {
			args = append(args, p.Name+"...")
		} else {
			args = append(args, p.Name)
		}
	}
	b.WriteString("(" + strings.Join(args, ", ") + ")")
	return b.String()
}

func resultVars(fn *decl.Func) []string {
	vars := make([]string, fn.Results.Len())
	for i := range vars {
		vars[i] = resultPrefix + strconv.Itoa(i)
	}
	return vars
}

func returnExpr(fn *decl.Func) string {
	vars := resultVars(fn)
	if len(vars) == 1 {
		return vars[0]
	}
	return "[]any{" + strings.Join(vars, ", ") + "}"
}

var levelMethods = map[config.Level]string{
	config.LevelTrace: "Tracef",
	config.LevelDebug: "Debugf",
	config.LevelInfo:  "Infof",
	config.LevelWarn:  "Warnf",
	config.LevelError: "Errorf",
}

func logCall(plan logtmpl.Plan, st *logtmpl.Statement, fn *decl.Func, opts Options) string {
	method := "Printf"
	if plan.Sink == logtmpl.Leveled {
		method = levelMethods[plan.Level]
	}

	chunks := strings.Split(st.Format, logtmpl.Placeholder)
	var format strings.Builder
	args := make([]string, 0, len(st.Args))
	for i, chunk := range chunks {
		format.WriteString(strings.ReplaceAll(chunk, "%", "%%"))
		if i >= len(st.Args) {
			continue
		}
		switch arg := st.Args[i]; arg.Kind {
		case logtmpl.ArgCaptured:
			format.WriteString("%s")
			args = append(args, capturePrefix+arg.Name)
		case logtmpl.ArgReturn:
			format.WriteString(opts.Verb)
			args = append(args, returnExpr(fn))
		default:
			format.WriteString(opts.Verb)
			args = append(args, arg.Name)
		}
	}

	call := opts.SinkName + "." + method + "(" + strconv.Quote(format.String())
	for _, a := range args {
		call += ", " + a
	}
	return call + ")"
}
