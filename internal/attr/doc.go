// Package attr splits the option text of a funlog directive into tokens.
//
// It recognises shape only: a bare word, a word followed by a parenthesised
// list, or name = value. Whether a word means anything is decided by
// internal/config.
package attr
