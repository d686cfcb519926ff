package smt

import "regexp"

// modelLine matches one Z3-style model entry: `(define-fun SYMBOL () String "VALUE")`.
var modelLine = regexp.MustCompile(`\(define-fun\s+(\w+)\s+\(\)\s+String\s+"([^"]*)"\)`)

// ParseModel extracts symbol -> value bindings from a solver's (get-model)
// output. Keys are the raw SMT symbol names (in_<var> for inputs, v<id>
// for everything else); the caller resolves in_-tagged entries back to
// plain variable names itself.
func ParseModel(raw string) map[string]string {
	matches := modelLine.FindAllStringSubmatch(raw, -1)
	result := make(map[string]string, len(matches))
	for _, m := range matches {
		result[m[1]] = m[2]
	}
	return result
}
