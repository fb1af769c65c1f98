// Package diag defines the diagnostic model shared by every generation phase.
//
// A Diagnostic carries a Severity, a stable Code (SYN, CFG, IO and GEN
// families), a one-line Message, the primary source.Span of the offending
// directive or declaration, optional Notes (hints) and optional Fixes.
//
// Producers emit through a Reporter; BagReporter stores the results in a Bag,
// which supports limits, sorting and deduplication. Rendering lives in
// internal/diagfmt and fix application in internal/fix.
//
// Fixes are data only: a Fix is a list of TextEdits in source coordinates.
// OldText acts as a guard that the fix engine checks before touching a file.
package diag
