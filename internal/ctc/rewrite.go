package ctc

import (
	"strconv"

	"github.com/funvibe/testgen/internal/ir"
)

// rewriteATC consumes L front-to-back, replacing each Input statement with
// a concrete Assign binding its variable to the next value in L. An empty
// L leaves the program untouched so genCTC's first iteration runs with
// every input still symbolic.
func rewriteATC(t *ir.Program, L []string) (*ir.Program, error) {
	if len(L) == 0 {
		return ir.CloneProgram(t), nil
	}

	remaining := append([]string{}, L...)
	out := make([]ir.Statement, 0, len(t.Statements))
	for _, s := range t.Statements {
		in, ok := s.(*ir.Input)
		if !ok {
			out = append(out, ir.CloneStmt(s))
			continue
		}
		if len(remaining) == 0 {
			out = append(out, ir.CloneStmt(s))
			continue
		}
		val := remaining[0]
		remaining = remaining[1:]
		out = append(out, ir.AssignVar(in.Var.Name, concreteFromString(val)))
	}

	if len(remaining) > 0 {
		log.Printf("rewriteATC: %d leftover values in L", len(remaining))
	}
	return &ir.Program{Statements: out}, nil
}

func concreteFromString(val string) ir.Expression {
	if n, err := strconv.ParseInt(val, 10, 64); err == nil {
		return &ir.Num{Value: n}
	}
	return &ir.Str{Value: val}
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
