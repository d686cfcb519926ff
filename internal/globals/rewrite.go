// Package globals hoists direct reads/writes of specification-level
// global maps into calls against backend test APIs (get_G/set_G), so the
// symbolic engine never has to reason about shared mutable state directly
// — only about the request/response pair of a test-API call.
package globals

import (
	"fmt"

	"github.com/funvibe/testgen/internal/ir"
	"github.com/funvibe/testgen/internal/logx"
)

var log = logx.Stage("RewriteGlobals")

// rewriter holds the per-invocation state: the detected global names and a
// fresh-temp-name counter per global, so each global gets its own
// independent tmp_G_N sequence.
type rewriter struct {
	globalNames map[string]bool
	tmpCounters map[string]int
	out         []ir.Statement
}

func (r *rewriter) freshTemp(global string) string {
	n := r.tmpCounters[global]
	r.tmpCounters[global] = n + 1
	return fmt.Sprintf("tmp_%s_%d", global, n)
}

// Rewrite transforms Program p into a Test-API Program: every global read
// becomes a hoisted get_G() call, every global write becomes a
// get_G/mutate/set_G sequence, and a leading reset() call is inserted.
// Init statements (empty-map assignments, and any other top-level
// assignment whose RHS is an empty Map) are detected and dropped.
func Rewrite(p *ir.Program) *ir.Program {
	r := &rewriter{globalNames: map[string]bool{}, tmpCounters: map[string]int{}}

	for _, s := range p.Statements {
		if name, ok := isInitAssign(s); ok {
			r.globalNames[name] = true
			r.tmpCounters[name] = 0
		}
	}
	log.Printf("detected %d globals: %v", len(r.globalNames), sortedNames(r.globalNames))

	r.out = append(r.out, ir.DiscardAssign(&ir.FuncCall{Name: "reset"}))

	for _, s := range p.Statements {
		if _, ok := isInitAssign(s); ok {
			continue
		}
		r.visitStmt(s)
	}

	log.Printf("generated %d statements", len(r.out))
	return &ir.Program{Statements: r.out}
}

// isInitAssign reports whether s is `name := {}` (an empty Map literal) —
// the global-declaration shape genInit preserves for exactly this purpose.
func isInitAssign(s ir.Statement) (string, bool) {
	as, ok := s.(*ir.Assign)
	if !ok {
		return "", false
	}
	v, ok := as.LHS.(*ir.Var)
	if !ok {
		return "", false
	}
	m, ok := as.RHS.(*ir.Map)
	if !ok || len(m.Entries) != 0 {
		return "", false
	}
	return v.Name, true
}

func (r *rewriter) visitStmt(s ir.Statement) {
	switch st := s.(type) {
	case *ir.Assign:
		r.rewriteAssign(st)
	case *ir.Assume:
		res := r.rewriteExpr(st.Cond)
		r.out = append(r.out, res.hoisted...)
		r.out = append(r.out, &ir.Assume{Cond: res.expr})
	case *ir.Assert:
		res := r.rewriteExpr(st.Cond)
		r.out = append(r.out, res.hoisted...)
		r.out = append(r.out, &ir.Assert{Cond: res.expr})
	default:
		r.out = append(r.out, ir.CloneStmt(s))
	}
}

func (r *rewriter) rewriteAssign(s *ir.Assign) {
	// Case: G[k] := v
	if fc, ok := s.LHS.(*ir.FuncCall); ok && fc.Name == "[]" && len(fc.Args) == 2 {
		if base, ok := fc.Args[0].(*ir.Var); ok && r.globalNames[base.Name] {
			keyRes := r.rewriteExpr(fc.Args[1])
			r.out = append(r.out, keyRes.hoisted...)
			r.emitMapUpdate(base.Name, keyRes.expr, ir.CloneExpr(s.RHS))
			return
		}
	}

	// Case: G := expr
	if v, ok := s.LHS.(*ir.Var); ok && r.globalNames[v.Name] {
		r.emitMapReplace(v.Name, s.RHS)
		return
	}

	// Regular assignment.
	res := r.rewriteExpr(s.RHS)
	r.out = append(r.out, res.hoisted...)
	r.out = append(r.out, &ir.Assign{LHS: ir.CloneExpr(s.LHS), RHS: res.expr})
}

func (r *rewriter) emitMapUpdate(global string, key, value ir.Expression) {
	tmp := r.freshTemp(global)
	r.out = append(r.out, ir.AssignVar(tmp, &ir.FuncCall{Name: "get_" + global}))
	r.out = append(r.out, &ir.Assign{
		LHS: &ir.FuncCall{Name: "[]", Args: []ir.Expression{&ir.Var{Name: tmp}, key}},
		RHS: value,
	})
	r.out = append(r.out, ir.DiscardAssign(&ir.FuncCall{Name: "set_" + global, Args: []ir.Expression{&ir.Var{Name: tmp}}}))
	log.Printf("emitted map update for %s", global)
}

func (r *rewriter) emitMapReplace(global string, expr ir.Expression) {
	res := r.rewriteExpr(expr)
	r.out = append(r.out, res.hoisted...)
	r.out = append(r.out, ir.DiscardAssign(&ir.FuncCall{Name: "set_" + global, Args: []ir.Expression{res.expr}}))
	log.Printf("emitted map replace for %s", global)
}

// rewriteResult is an expression rewritten to remove direct global
// references, plus any statements that must be hoisted immediately before
// the statement using the result.
type rewriteResult struct {
	expr    ir.Expression
	hoisted []ir.Statement
}

func (r *rewriter) rewriteExpr(e ir.Expression) rewriteResult {
	if e == nil {
		return rewriteResult{}
	}
	switch v := e.(type) {
	case *ir.Var:
		return r.rewriteVar(v)
	case *ir.FuncCall:
		return r.rewriteFuncCall(v)
	case *ir.Num, *ir.Str, *ir.Bool, *ir.SymVar:
		return rewriteResult{expr: ir.CloneExpr(e)}
	case *ir.Tuple:
		elems := make([]ir.Expression, len(v.Elements))
		var hoisted []ir.Statement
		for i, el := range v.Elements {
			res := r.rewriteExpr(el)
			hoisted = append(hoisted, res.hoisted...)
			elems[i] = res.expr
		}
		return rewriteResult{expr: &ir.Tuple{Elements: elems}, hoisted: hoisted}
	case *ir.Set:
		elems := make([]ir.Expression, len(v.Elements))
		var hoisted []ir.Statement
		for i, el := range v.Elements {
			res := r.rewriteExpr(el)
			hoisted = append(hoisted, res.hoisted...)
			elems[i] = res.expr
		}
		return rewriteResult{expr: &ir.Set{Elements: elems}, hoisted: hoisted}
	case *ir.Map:
		return r.rewriteMap(v)
	case *ir.BinaryOp:
		l := r.rewriteExpr(v.Left)
		rr := r.rewriteExpr(v.Right)
		hoisted := append(append([]ir.Statement{}, l.hoisted...), rr.hoisted...)
		return rewriteResult{expr: &ir.BinaryOp{Op: v.Op, Left: l.expr, Right: rr.expr}, hoisted: hoisted}
	case *ir.UnaryOp:
		o := r.rewriteExpr(v.Operand)
		return rewriteResult{expr: &ir.UnaryOp{Op: v.Op, Operand: o.expr}, hoisted: o.hoisted}
	default:
		return rewriteResult{expr: ir.CloneExpr(e)}
	}
}

func (r *rewriter) rewriteVar(v *ir.Var) rewriteResult {
	if !r.globalNames[v.Name] {
		return rewriteResult{expr: &ir.Var{Name: v.Name}}
	}
	tmp := r.freshTemp(v.Name)
	return rewriteResult{
		expr:    &ir.Var{Name: tmp},
		hoisted: []ir.Statement{ir.AssignVar(tmp, &ir.FuncCall{Name: "get_" + v.Name})},
	}
}

func (r *rewriter) rewriteFuncCall(f *ir.FuncCall) rewriteResult {
	switch f.Name {
	case "[]":
		return r.rewriteMapAccess(f)
	case "dom":
		return r.rewriteDom(f)
	}

	var hoisted []ir.Statement
	args := make([]ir.Expression, len(f.Args))
	for i, a := range f.Args {
		res := r.rewriteExpr(a)
		hoisted = append(hoisted, res.hoisted...)
		args[i] = res.expr
	}
	return rewriteResult{expr: &ir.FuncCall{Name: f.Name, Args: args}, hoisted: hoisted}
}

func (r *rewriter) rewriteMapAccess(f *ir.FuncCall) rewriteResult {
	if len(f.Args) != 2 {
		return rewriteResult{expr: ir.CloneExpr(f)}
	}
	base, key := f.Args[0], f.Args[1]

	if baseVar, ok := base.(*ir.Var); ok && r.globalNames[baseVar.Name] {
		tmp := r.freshTemp(baseVar.Name)
		hoisted := []ir.Statement{ir.AssignVar(tmp, &ir.FuncCall{Name: "get_" + baseVar.Name})}
		keyRes := r.rewriteExpr(key)
		hoisted = append(hoisted, keyRes.hoisted...)
		return rewriteResult{
			expr:    &ir.FuncCall{Name: "[]", Args: []ir.Expression{&ir.Var{Name: tmp}, keyRes.expr}},
			hoisted: hoisted,
		}
	}

	baseRes := r.rewriteExpr(base)
	keyRes := r.rewriteExpr(key)
	hoisted := append(append([]ir.Statement{}, baseRes.hoisted...), keyRes.hoisted...)
	return rewriteResult{
		expr:    &ir.FuncCall{Name: "[]", Args: []ir.Expression{baseRes.expr, keyRes.expr}},
		hoisted: hoisted,
	}
}

func (r *rewriter) rewriteDom(f *ir.FuncCall) rewriteResult {
	if len(f.Args) != 1 {
		return rewriteResult{expr: ir.CloneExpr(f)}
	}
	base := f.Args[0]

	if baseVar, ok := base.(*ir.Var); ok && r.globalNames[baseVar.Name] {
		tmp := r.freshTemp(baseVar.Name)
		hoisted := []ir.Statement{ir.AssignVar(tmp, &ir.FuncCall{Name: "get_" + baseVar.Name})}
		return rewriteResult{
			expr:    &ir.FuncCall{Name: "dom", Args: []ir.Expression{&ir.Var{Name: tmp}}},
			hoisted: hoisted,
		}
	}

	res := r.rewriteExpr(base)
	return rewriteResult{expr: &ir.FuncCall{Name: "dom", Args: []ir.Expression{res.expr}}, hoisted: res.hoisted}
}

func (r *rewriter) rewriteMap(m *ir.Map) rewriteResult {
	entries := make([]ir.MapEntry, len(m.Entries))
	var hoisted []ir.Statement
	for i, kv := range m.Entries {
		keyRes := r.rewriteExpr(kv.Key)
		hoisted = append(hoisted, keyRes.hoisted...)
		valRes := r.rewriteExpr(kv.Value)
		hoisted = append(hoisted, valRes.hoisted...)
		keyVar, ok := keyRes.expr.(*ir.Var)
		if !ok {
			// A global map key can only rewrite to Var (the temp or the
			// original); anything else means the IR is malformed.
			keyVar = kv.Key
		}
		entries[i] = ir.MapEntry{Key: keyVar, Value: valRes.expr}
	}
	return rewriteResult{expr: &ir.Map{Entries: entries}, hoisted: hoisted}
}

func sortedNames(m map[string]bool) []string {
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
