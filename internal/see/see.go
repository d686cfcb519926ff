package see

import (
	"fmt"

	"github.com/funvibe/testgen/internal/factory"
	"github.com/funvibe/testgen/internal/ir"
	"github.com/funvibe/testgen/internal/logx"
	"github.com/funvibe/testgen/internal/txerr"
)

var log = logx.Stage("SEE")

// Engine executes a Program statement by statement, stopping at the first
// not-ready one, and owns σ, the path constraint C, the set of input
// variables discovered along the way, and a log of API failures that did
// not halt execution.
type Engine struct {
	sigma          *Sigma
	alloc          *ir.Allocator
	factory        factory.Factory
	pathConstraint []ir.Expression
	inputs         []string
	seenInputs     map[string]bool
	execLog        []error
	unsatCandidate bool
}

// NewEngine builds an Engine sharing alloc with whatever ATC/globals stage
// minted SymVars before it, so ids stay globally unique across one genCTC
// iteration. A nil f defaults to factory.Noop.
func NewEngine(alloc *ir.Allocator, f factory.Factory) *Engine {
	if f == nil {
		f = factory.Noop{}
	}
	return &Engine{
		sigma:      NewSigma(),
		alloc:      alloc,
		factory:    f,
		seenInputs: map[string]bool{},
	}
}

func (eng *Engine) Sigma() *Sigma { return eng.sigma }

// Result is everything one Execute pass produced: the updated
// store, the accumulated path constraint, the statements execution
// stopped before (empty if the whole program ran), the input variables
// discovered in first-occurrence order, and any non-fatal API failures.
type Result struct {
	Sigma     *Sigma
	C         []ir.Expression
	Remaining []ir.Statement
	Inputs    []string
	ExecLog   []error

	// UnsatCandidate is set when C picked up a concretely-false literal:
	// the path cannot be satisfiable, and the driver may report unsat
	// without consulting the solver at all.
	UnsatCandidate bool
}

// Execute runs p against σ until the first not-ready statement: for each
// statement, run it if ready, else stop and return the constraints
// collected so far.
func (eng *Engine) Execute(p *ir.Program) (*Result, error) {
	for i, s := range p.Statements {
		if !isReady(s, eng.sigma) {
			log.Printf("stalled at statement %d (%s): not ready", i, s.Kind())
			return eng.result(p.Statements[i:]), nil
		}
		if err := eng.execStmt(s); err != nil {
			return nil, err
		}
	}
	return eng.result(nil), nil
}

func (eng *Engine) result(remaining []ir.Statement) *Result {
	return &Result{
		Sigma:          eng.sigma,
		C:              eng.pathConstraint,
		Remaining:      remaining,
		Inputs:         eng.inputs,
		ExecLog:        eng.execLog,
		UnsatCandidate: eng.unsatCandidate,
	}
}

func (eng *Engine) execStmt(s ir.Statement) error {
	switch st := s.(type) {
	case *ir.Decl:
		eng.sigma.Set(st.Name, eng.alloc.Fresh())
		return nil
	case *ir.Input:
		eng.sigma.Set(st.Var.Name, eng.alloc.Fresh())
		eng.recordInput(st.Var.Name)
		registerBaseName(eng.sigma, st.Var.Name)
		return nil
	case *ir.Assign:
		return eng.execAssign(st)
	case *ir.Assume:
		eng.appendConstraint(eng.evalExpr(st.Cond))
		return nil
	case *ir.Assert:
		eng.appendConstraint(eng.evalExpr(st.Cond))
		return nil
	default:
		return txerr.NewMalformedASTError(fmt.Sprintf("SEE cannot execute statement kind %s", s.Kind()))
	}
}

func (eng *Engine) appendConstraint(cond ir.Expression) {
	cond = ir.NormalizeBool(cond)
	if b, ok := cond.(*ir.Bool); ok && !b.Value {
		eng.unsatCandidate = true
	}
	eng.pathConstraint = append(eng.pathConstraint, cond)
}

// ComputePathConstraint collapses C into a single boolean expression:
// true when empty, the sole element when there is one, otherwise a
// right-associative conjunction.
func ComputePathConstraint(C []ir.Expression) ir.Expression {
	if len(C) == 0 {
		return &ir.Bool{Value: true}
	}
	out := ir.CloneExpr(C[len(C)-1])
	for i := len(C) - 2; i >= 0; i-- {
		out = &ir.BinaryOp{Op: ir.AND, Left: ir.CloneExpr(C[i]), Right: out}
	}
	return out
}

func (eng *Engine) recordInput(name string) {
	if eng.seenInputs[name] {
		return
	}
	eng.seenInputs[name] = true
	eng.inputs = append(eng.inputs, name)
}

func (eng *Engine) execAssign(s *ir.Assign) error {
	if fc, ok := s.RHS.(*ir.FuncCall); ok && !ir.IsBuiltin(fc.Name) {
		return eng.execAPIAssign(s, fc)
	}
	value := eng.evalExpr(s.RHS)
	return eng.bindAssignResult(s, value)
}

// execAPIAssign dispatches a ready backend call (all arguments concrete,
// per isReady) through the Function Factory and binds its result. On
// failure the target is left unbound rather than bound to a placeholder
// value: a later reference to it must still fall through to evalExpr's
// normal free-variable path (a fresh input SymVar) instead of resolving
// to a concrete empty string that could silently satisfy an assert that
// should stay open for the solver.
func (eng *Engine) execAPIAssign(s *ir.Assign, fc *ir.FuncCall) error {
	args := make([]ir.Expression, len(fc.Args))
	for i, a := range fc.Args {
		args[i] = eng.evalExpr(a)
	}

	callable, err := eng.factory.GetFunction(fc.Name, args)
	if err != nil {
		eng.execLog = append(eng.execLog, txerr.NewAPIExecutionFailedError(fc.Name, err.Error()))
		return nil
	}

	result, err := callable.Execute()
	if err != nil {
		eng.execLog = append(eng.execLog, txerr.NewAPIExecutionFailedError(fc.Name, err.Error()))
		return nil
	}
	return eng.bindAssignResult(s, result)
}

func (eng *Engine) bindAssignResult(s *ir.Assign, value ir.Expression) error {
	switch lhs := s.LHS.(type) {
	case *ir.Var:
		if lhs.Name != "_" {
			eng.sigma.Set(lhs.Name, value)
			registerBaseName(eng.sigma, lhs.Name)
		}
		return nil
	case *ir.FuncCall:
		if lhs.Name != "[]" || len(lhs.Args) != 2 {
			return txerr.NewMalformedASTError("Assign LHS FuncCall must be a \"[]\" map index")
		}
		baseVar, ok := lhs.Args[0].(*ir.Var)
		if !ok {
			return txerr.NewMalformedASTError("map index assignment base must be a Var")
		}
		key := eng.evalExpr(lhs.Args[1])
		current, ok := eng.sigma.Get(baseVar.Name)
		m, ok2 := current.(*ir.Map)
		if !ok || !ok2 {
			m = &ir.Map{}
		}
		eng.sigma.Set(baseVar.Name, mapPut(m, key, value))
		return nil
	default:
		return txerr.NewMalformedASTError("Assign LHS must be a Var or map index")
	}
}

// evalExpr performs structural evaluation with built-in semantics. A Var
// with no σ binding becomes a fresh input SymVar, tagged so the SMT
// encoder and the concretization driver's next-input-list construction
// can find it again.
func (eng *Engine) evalExpr(e ir.Expression) ir.Expression {
	switch v := e.(type) {
	case *ir.Num:
		return &ir.Num{Value: v.Value}
	case *ir.Str:
		return &ir.Str{Value: v.Value}
	case *ir.Bool:
		return &ir.Bool{Value: v.Value}
	case *ir.SymVar:
		return &ir.SymVar{ID: v.ID}
	case *ir.Var:
		if bound, ok := eng.sigma.Get(v.Name); ok {
			return ir.CloneExpr(bound)
		}
		sym := eng.alloc.Fresh()
		eng.sigma.Set(v.Name, sym)
		eng.recordInput(v.Name)
		return sym
	case *ir.Set:
		elems := make([]ir.Expression, len(v.Elements))
		for i, el := range v.Elements {
			elems[i] = eng.evalExpr(el)
		}
		return &ir.Set{Elements: elems}
	case *ir.Tuple:
		elems := make([]ir.Expression, len(v.Elements))
		for i, el := range v.Elements {
			elems[i] = eng.evalExpr(el)
		}
		return &ir.Tuple{Elements: elems}
	case *ir.Map:
		entries := make([]ir.MapEntry, len(v.Entries))
		for i, kv := range v.Entries {
			entries[i] = ir.MapEntry{Key: kv.Key, Value: eng.evalExpr(kv.Value)}
		}
		return &ir.Map{Entries: entries}
	case *ir.BinaryOp:
		l := eng.evalExpr(v.Left)
		r := eng.evalExpr(v.Right)
		return evalBuiltin(binOpBuiltinName(v.Op), []ir.Expression{l, r})
	case *ir.UnaryOp:
		o := eng.evalExpr(v.Operand)
		return evalBuiltin(unOpBuiltinName(v.Op), []ir.Expression{o})
	case *ir.FuncCall:
		return eng.evalFuncCall(v)
	default:
		return ir.CloneExpr(e)
	}
}

func (eng *Engine) evalFuncCall(fc *ir.FuncCall) ir.Expression {
	if fc.Name == "input" && len(fc.Args) == 0 {
		sym := eng.alloc.Fresh()
		return sym
	}

	args := make([]ir.Expression, len(fc.Args))
	for i, a := range fc.Args {
		args[i] = eng.evalExpr(a)
	}

	if !ir.IsBuiltin(fc.Name) {
		// Reached an API call outside an Assign (e.g. nested in an Assume).
		// isReady never stalls on these since only Assign RHS is checked;
		// leave it uninterpreted rather than silently execute it twice.
		return &ir.FuncCall{Name: fc.Name, Args: args}
	}
	return evalBuiltin(fc.Name, args)
}

func binOpBuiltinName(op ir.BinOp) string {
	switch op {
	case ir.EQ:
		return "Eq"
	case ir.NEQ:
		return "Neq"
	case ir.LT:
		return "Lt"
	case ir.LE:
		return "Le"
	case ir.GT:
		return "Gt"
	case ir.GE:
		return "Ge"
	case ir.AND:
		return "And"
	case ir.OR:
		return "Or"
	case ir.IMPLIES:
		return "Implies"
	case ir.IN:
		return "in"
	case ir.NOT_IN:
		return "not_in"
	default:
		return string(op)
	}
}

func unOpBuiltinName(op ir.UnOp) string {
	switch op {
	case ir.NOT:
		return "Not"
	default:
		return string(op)
	}
}
