package ctc

import (
	"fmt"

	"github.com/funvibe/testgen/internal/ir"
	"github.com/funvibe/testgen/internal/spec"
)

// Dependency declares what one API block reads and writes in terms of
// global names it Produces/Requires, letting a test string be rejected
// before any SEE/SMT round-trip when it calls a block whose precondition
// no earlier block in the string could have established.
type Dependency struct {
	Produces []string
	Requires []string
}

// PreCheck walks testString in order, tracking which globals have been
// produced so far, and fails fast the first time a block requires a
// global nothing earlier produced — e.g. a login block whose pre reads U
// when no earlier block in the string writes U.
func PreCheck(deps map[string]Dependency, testString []string) error {
	produced := map[string]bool{}
	for _, name := range testString {
		dep := deps[name]
		for _, req := range dep.Requires {
			if !produced[req] {
				return fmt.Errorf("ctc: block %q requires global %q, which no earlier block in the test string produces", name, req)
			}
		}
		for _, p := range dep.Produces {
			produced[p] = true
		}
	}
	return nil
}

// InferDependencies derives a Dependency entry per block by walking its
// raw pre/post expressions (before genATC's suffixing) for references to
// s's declared globals: a global whose prior *contents* a condition reads
// is a Requires; a global whose post mentions a primed reference, '(G),
// is a Produces — the same signal rewriteGlobals itself uses to recognize
// a write. Every global exists as an empty map from the start, so only a
// read whose direction demands a produced entry counts: `email ∉ dom(U)`
// holds against the initial empty U and must not bar a block from running
// first — that contradiction, if any, is the solver's to find.
func InferDependencies(s *spec.Spec) map[string]Dependency {
	g := s.Globals()
	out := make(map[string]Dependency, len(s.Blocks))
	for _, api := range s.Blocks {
		var dep Dependency
		requires := map[string]bool{}
		produces := map[string]bool{}

		collectRequiredGlobals(api.Pre, g, true, requires)
		collectRequiredGlobals(api.Call, g, true, requires)
		collectPrimedGlobals(api.Response.Post, g, produces)
		// A global read unprimed in post gates the relational
		// postcondition, so treat it as required too unless it's the
		// primed write target itself.
		collectRequiredGlobals(api.Response.Post, g, true, requires)
		for name := range produces {
			delete(requires, name)
		}

		dep.Requires = sortedSet(requires)
		dep.Produces = sortedSet(produces)
		out[api.Name] = dep
	}
	return out
}

// collectRequiredGlobals records the globals a condition can only satisfy
// through a previously produced entry: positive membership tests, value
// lookups under an equality, bare positive reads. positive tracks which
// side of a negation the walk is on — a negated membership (not_in, or in
// under Not) is satisfiable against the always-present initial empty map
// and demands nothing from earlier blocks. The flip errs toward
// under-requiring: a miss here just hands the sequence to the solver,
// while over-requiring would reject a feasible one outright.
func collectRequiredGlobals(e ir.Expression, globals map[string]bool, positive bool, out map[string]bool) {
	if e == nil {
		return
	}
	switch v := e.(type) {
	case *ir.Var:
		if positive && globals[v.Name] {
			out[v.Name] = true
		}
	case *ir.UnaryOp:
		if v.Op == ir.NOT {
			collectRequiredGlobals(v.Operand, globals, !positive, out)
			return
		}
		collectRequiredGlobals(v.Operand, globals, positive, out)
	case *ir.BinaryOp:
		switch v.Op {
		case ir.NOT_IN:
			collectRequiredGlobals(v.Left, globals, positive, out)
			collectRequiredGlobals(v.Right, globals, !positive, out)
		case ir.NEQ:
			collectRequiredGlobals(v.Left, globals, !positive, out)
			collectRequiredGlobals(v.Right, globals, !positive, out)
		default:
			collectRequiredGlobals(v.Left, globals, positive, out)
			collectRequiredGlobals(v.Right, globals, positive, out)
		}
	case *ir.FuncCall:
		switch v.Name {
		case "'":
			// Primed references are writes; collectPrimedGlobals owns them.
			return
		case "not_in":
			if len(v.Args) == 2 {
				collectRequiredGlobals(v.Args[0], globals, positive, out)
				collectRequiredGlobals(v.Args[1], globals, !positive, out)
				return
			}
		case "Neq":
			if len(v.Args) == 2 {
				collectRequiredGlobals(v.Args[0], globals, !positive, out)
				collectRequiredGlobals(v.Args[1], globals, !positive, out)
				return
			}
		case "Not":
			if len(v.Args) == 1 {
				collectRequiredGlobals(v.Args[0], globals, !positive, out)
				return
			}
		}
		for _, a := range v.Args {
			collectRequiredGlobals(a, globals, positive, out)
		}
	case *ir.Set:
		for _, el := range v.Elements {
			collectRequiredGlobals(el, globals, positive, out)
		}
	case *ir.Tuple:
		for _, el := range v.Elements {
			collectRequiredGlobals(el, globals, positive, out)
		}
	case *ir.Map:
		for _, kv := range v.Entries {
			collectRequiredGlobals(kv.Value, globals, positive, out)
		}
	}
}

func collectPrimedGlobals(e ir.Expression, globals map[string]bool, out map[string]bool) {
	if e == nil {
		return
	}
	if fc, ok := e.(*ir.FuncCall); ok {
		if fc.Name == "'" && len(fc.Args) == 1 {
			if v, ok := fc.Args[0].(*ir.Var); ok && globals[v.Name] {
				out[v.Name] = true
			}
			return
		}
		for _, a := range fc.Args {
			collectPrimedGlobals(a, globals, out)
		}
		return
	}
	switch v := e.(type) {
	case *ir.BinaryOp:
		collectPrimedGlobals(v.Left, globals, out)
		collectPrimedGlobals(v.Right, globals, out)
	case *ir.UnaryOp:
		collectPrimedGlobals(v.Operand, globals, out)
	case *ir.Set:
		for _, el := range v.Elements {
			collectPrimedGlobals(el, globals, out)
		}
	case *ir.Tuple:
		for _, el := range v.Elements {
			collectPrimedGlobals(el, globals, out)
		}
	}
}

func sortedSet(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
