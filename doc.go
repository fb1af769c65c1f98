// Package funlog is the runtime sink for code generated by the funlog tool.
//
// Annotate a function with a directive comment:
//
//	//funlog:debug,onEnd,params(a),retVal
//	func add(a, b int) int {
//		return a + b
//	}
//
// and run "funlog gen". The tool writes calc_funlog.go next to calc.go with
// add split into a logging wrapper and a helper holding the original body.
// Building with -tags funlog selects the generated file; the source file
// should carry "//go:build !funlog" so the two never compile together.
//
// Generated code calls the leveled functions (Tracef through Errorf), which
// write through a zerolog.Logger, or Printf for the default console output.
// Both destinations can be replaced with SetLogger and SetConsole.
//
// The leveled logger starts at the level named by the FUNLOG_LEVEL
// environment variable (trace, debug, info, warn, error), or trace when it
// is unset.
package funlog
