// Package atc lowers a spec.Spec plus an ordered test string into a
// straight-line ir.Program: one input-declaration/assume/call/assert
// sequence per block in the string, each keyed to its position so repeated
// blocks don't collide.
package atc

import (
	"fmt"

	"github.com/funvibe/testgen/internal/ir"
	"github.com/funvibe/testgen/internal/spec"
	"github.com/funvibe/testgen/internal/symbols"
	"github.com/funvibe/testgen/internal/txerr"
)

// GenATC compiles spec s and the ordered block names in testString into a
// Program. It fails with a *txerr.BlockNotFoundError if any name in
// testString is absent from s.
func GenATC(s *spec.Spec, testString []string) (*ir.Program, error) {
	blocks := make([]*spec.API, 0, len(testString))
	for _, name := range testString {
		b, ok := s.FindBlock(name)
		if !ok {
			return nil, txerr.NewBlockNotFoundError(name)
		}
		blocks = append(blocks, b)
	}

	var stmts []ir.Statement
	stmts = append(stmts, genInit(s)...)

	body, err := buildFromBlockSequence(s, blocks)
	if err != nil {
		return nil, err
	}
	stmts = append(stmts, body.Statements...)

	return &ir.Program{Statements: stmts}, nil
}

// genInit emits `name := expr` for every declared init, preserving
// empty-map inits unchanged — the globals rewriter depends on that shape
// to detect which names are globals.
func genInit(s *spec.Spec) []ir.Statement {
	stmts := make([]ir.Statement, 0, len(s.Inits))
	for _, in := range s.Inits {
		stmts = append(stmts, ir.AssignVar(in.Name, ir.CloneExpr(in.Expr)))
	}
	return stmts
}

// buildFromBlockSequence lowers one resolved API per position i (suffixed
// "i") into: input statements, an assume, the call, and an assert — in
// that order.
//
// Every name declared at the top level by s.Inits — not just the
// empty-map globals — is bound in the outermost scope before any block is
// processed, so a reference to it in a pre/call/post expression is left
// unsuffixed rather than mistaken for a fresh per-block input. Globals
// specifically must survive unsuffixed: the globals rewriter that runs
// next matches them by their exact declared name.
func buildFromBlockSequence(s *spec.Spec, blocks []*spec.API) (*ir.Program, error) {
	var stmts []ir.Statement
	global := symbols.NewGlobalScope()
	for _, in := range s.Inits {
		global.Define(in.Name)
	}

	for i, api := range blocks {
		suffix := fmt.Sprintf("%d", i)
		block := symbols.NewChildScope(global)

		pre := cloneOrNil(api.Pre)
		call := ir.CloneExpr(api.Call).(*ir.FuncCall)
		post := cloneOrNil(api.Response.Post)

		// Input discovery: walk the cloned pre, call and post for free
		// variables, in that order, so each gets exactly one input
		// declaration before its first use.
		var inputs []string
		seen := map[string]bool{}
		collectInputVars(pre, block, &inputs, seen)
		for _, arg := range call.Args {
			collectInputVars(arg, block, &inputs, seen)
		}
		collectInputVars(post, block, &inputs, seen)
		for _, name := range inputs {
			stmts = append(stmts, &ir.Input{Var: &ir.Var{Name: name + suffix}})
		}

		// Renaming: free variables get their suffixed form everywhere.
		pre1 := rename(pre, block, suffix)
		call1 := rename(call, block, suffix)
		post1 := rename(post, block, suffix)

		// Primed snapshot.
		primed := map[string]bool{}
		if post1 != nil {
			collectPrimed(post1, primed)
		}
		for _, v := range sortedKeys(primed) {
			stmts = append(stmts, ir.AssignVar(v+"_old", &ir.Var{Name: v}))
		}

		if pre1 != nil {
			stmts = append(stmts, &ir.Assume{Cond: pre1})
		}

		callFC, ok := call1.(*ir.FuncCall)
		if !ok {
			return nil, txerr.NewMalformedASTError("API call must lower to a FuncCall")
		}
		stmts = append(stmts, ir.DiscardAssign(callFC))

		if post1 != nil {
			post2 := removePrimes(post1, primed, false)
			stmts = append(stmts, &ir.Assert{Cond: post2})
		}
	}

	return &ir.Program{Statements: stmts}, nil
}

func cloneOrNil(e ir.Expression) ir.Expression {
	if e == nil {
		return nil
	}
	return ir.CloneExpr(e)
}

// collectInputVars walks expr, recording every free variable name (one
// not bound in st) as an input candidate, in first-occurrence order.
// Multiple occurrences of the same base name collapse to one entry.
func collectInputVars(expr ir.Expression, st *symbols.SymbolTable, out *[]string, seen map[string]bool) {
	if expr == nil {
		return
	}
	switch e := expr.(type) {
	case *ir.Var:
		if !st.HasKey(e.Name) && !seen[e.Name] {
			seen[e.Name] = true
			*out = append(*out, e.Name)
		}
	case *ir.FuncCall:
		for _, a := range e.Args {
			collectInputVars(a, st, out, seen)
		}
	case *ir.Set:
		for _, el := range e.Elements {
			collectInputVars(el, st, out, seen)
		}
	case *ir.Tuple:
		for _, el := range e.Elements {
			collectInputVars(el, st, out, seen)
		}
	case *ir.Map:
		for _, kv := range e.Entries {
			if !st.HasKey(kv.Key.Name) && !seen[kv.Key.Name] {
				seen[kv.Key.Name] = true
				*out = append(*out, kv.Key.Name)
			}
			collectInputVars(kv.Value, st, out, seen)
		}
	case *ir.BinaryOp:
		collectInputVars(e.Left, st, out, seen)
		collectInputVars(e.Right, st, out, seen)
	case *ir.UnaryOp:
		collectInputVars(e.Operand, st, out, seen)
	}
}

// rename rewrites every free variable occurrence (one not bound in st) to
// its suffixed form name+suffix; bound names pass through unchanged. An
// input that also happens to be bound in st is left alone.
func rename(expr ir.Expression, st *symbols.SymbolTable, suffix string) ir.Expression {
	if expr == nil {
		return nil
	}
	switch e := expr.(type) {
	case *ir.Var:
		if st.HasKey(e.Name) {
			return &ir.Var{Name: e.Name}
		}
		return &ir.Var{Name: e.Name + suffix}
	case *ir.FuncCall:
		args := make([]ir.Expression, len(e.Args))
		for i, a := range e.Args {
			args[i] = rename(a, st, suffix)
		}
		return &ir.FuncCall{Name: e.Name, Args: args}
	case *ir.Num:
		return &ir.Num{Value: e.Value}
	case *ir.Str:
		return &ir.Str{Value: e.Value}
	case *ir.Bool:
		return &ir.Bool{Value: e.Value}
	case *ir.Set:
		elems := make([]ir.Expression, len(e.Elements))
		for i, el := range e.Elements {
			elems[i] = rename(el, st, suffix)
		}
		return &ir.Set{Elements: elems}
	case *ir.Tuple:
		elems := make([]ir.Expression, len(e.Elements))
		for i, el := range e.Elements {
			elems[i] = rename(el, st, suffix)
		}
		return &ir.Tuple{Elements: elems}
	case *ir.Map:
		entries := make([]ir.MapEntry, len(e.Entries))
		for i, kv := range e.Entries {
			keyExpr := rename(kv.Key, st, suffix)
			entries[i] = ir.MapEntry{Key: keyExpr.(*ir.Var), Value: rename(kv.Value, st, suffix)}
		}
		return &ir.Map{Entries: entries}
	case *ir.BinaryOp:
		return &ir.BinaryOp{Op: e.Op, Left: rename(e.Left, st, suffix), Right: rename(e.Right, st, suffix)}
	case *ir.UnaryOp:
		return &ir.UnaryOp{Op: e.Op, Operand: rename(e.Operand, st, suffix)}
	default:
		return nil
	}
}

// primeFuncName is how a postcondition marks the post-state reference to a
// variable: '(x). It lowers to FuncCall("'", [Var x]) in this IR.
const primeFuncName = "'"

// collectPrimed records the distinct variable names referenced as '(x)
// anywhere in expr.
func collectPrimed(expr ir.Expression, res map[string]bool) {
	fc, ok := expr.(*ir.FuncCall)
	if !ok {
		walkChildren(expr, func(c ir.Expression) { collectPrimed(c, res) })
		return
	}
	if fc.Name == primeFuncName {
		if v, ok := fc.Args[0].(*ir.Var); ok {
			res[v.Name] = true
		}
		return
	}
	for _, a := range fc.Args {
		collectPrimed(a, res)
	}
}

// removePrimes rewrites post so every '(x) becomes the plain name x (the
// post-state value, already current after the call) and every bare
// reference to a name in primed becomes its "_old" snapshot — unless flag
// is set, meaning we're already inside a former '(...) and should not
// re-snapshot.
func removePrimes(expr ir.Expression, primed map[string]bool, flag bool) ir.Expression {
	if expr == nil {
		return nil
	}
	if v, ok := expr.(*ir.Var); ok {
		if flag {
			return &ir.Var{Name: v.Name}
		}
		if primed[v.Name] {
			return &ir.Var{Name: v.Name + "_old"}
		}
		return &ir.Var{Name: v.Name}
	}
	if fc, ok := expr.(*ir.FuncCall); ok {
		if fc.Name == primeFuncName {
			return removePrimes(fc.Args[0], primed, true)
		}
		args := make([]ir.Expression, len(fc.Args))
		for i, a := range fc.Args {
			args[i] = removePrimes(a, primed, false)
		}
		return &ir.FuncCall{Name: fc.Name, Args: args}
	}
	switch e := expr.(type) {
	case *ir.BinaryOp:
		return &ir.BinaryOp{Op: e.Op, Left: removePrimes(e.Left, primed, false), Right: removePrimes(e.Right, primed, false)}
	case *ir.UnaryOp:
		return &ir.UnaryOp{Op: e.Op, Operand: removePrimes(e.Operand, primed, false)}
	case *ir.Set:
		elems := make([]ir.Expression, len(e.Elements))
		for i, el := range e.Elements {
			elems[i] = removePrimes(el, primed, false)
		}
		return &ir.Set{Elements: elems}
	case *ir.Tuple:
		elems := make([]ir.Expression, len(e.Elements))
		for i, el := range e.Elements {
			elems[i] = removePrimes(el, primed, false)
		}
		return &ir.Tuple{Elements: elems}
	default:
		return ir.CloneExpr(expr)
	}
}

func walkChildren(expr ir.Expression, visit func(ir.Expression)) {
	switch e := expr.(type) {
	case *ir.BinaryOp:
		visit(e.Left)
		visit(e.Right)
	case *ir.UnaryOp:
		visit(e.Operand)
	case *ir.Set:
		for _, el := range e.Elements {
			visit(el)
		}
	case *ir.Tuple:
		for _, el := range e.Elements {
			visit(el)
		}
	case *ir.Map:
		for _, kv := range e.Entries {
			visit(kv.Value)
		}
	}
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	// Deterministic order keeps the emitted statements, and the SMT output
	// downstream stages derive from them, reproducible across runs.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
