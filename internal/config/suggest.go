package config

import (
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"golang.org/x/text/cases"
)

// Vocabulary lists every option keyword in suggestion order.
var Vocabulary = []string{
	"all", "none",
	"print", "trace", "debug", "info", "warn", "error",
	"onStart", "onEnd", "onStartEnd",
	"retVal", "params",
}

const maxSuggestDistance = 2

// Suggest returns the first vocabulary word that contains token, is contained
// in it, or is within edit distance 2, ignoring case. It returns "" when
// nothing qualifies.
func Suggest(token string) string {
	if token == "" {
		return ""
	}
	fold := cases.Fold()
	t := fold.String(token)
	for _, cand := range Vocabulary {
		c := fold.String(cand)
		if strings.Contains(t, c) || strings.Contains(c, t) {
			return cand
		}
		if fuzzy.LevenshteinDistance(t, c) <= maxSuggestDistance {
			return cand
		}
	}
	return ""
}
