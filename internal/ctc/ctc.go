// Package ctc implements genCTC, the outer fixed-point loop that turns an
// abstract test case into a concrete one: rewriteATC against an
// accumulating input list L, SEE execution, SMT encoding and solving, model
// parsing, and σ rebinding.
package ctc

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/funvibe/testgen/internal/config"
	"github.com/funvibe/testgen/internal/factory"
	"github.com/funvibe/testgen/internal/ir"
	"github.com/funvibe/testgen/internal/logx"
	"github.com/funvibe/testgen/internal/see"
	"github.com/funvibe/testgen/internal/smt"
)

var log = logx.Stage("CTC")

// RealismTransform maps a raw solver value for a variable to a more
// plausible concrete one (turning an opaque solver string into an email
// address or a name). A nil transform passes values through unchanged.
type RealismTransform func(varName, rawValue string) string

// Result is genCTC's outcome for one abstract test case: whether the final
// query was satisfiable, the concrete bindings discovered for each input,
// the SMT text and solver output of the deciding iteration, and a
// human-readable message when unsatisfiable or stalled. Solver outcomes
// are data here, never errors — only a structural failure (a malformed
// AST, a solver that could not be spawned at all) returns a Go error.
type Result struct {
	Satisfiable    bool
	ConcreteValues map[string]string
	SMTContent     string
	SolverOutput   string
	ErrorMessage   string
	ExecutionLog   []error
	Iterations     int
}

// Driver runs genCTC for one abstract test case program.
type Driver struct {
	Factory factory.Factory
	Solver  *smt.Solver
	Globals smt.Globals
	Realism RealismTransform
	Cap     int

	// Deferred maps an input's unsuffixed base name (e.g. "restaurantId")
	// to the global whose backend-assigned ids it refers to (e.g. "R").
	// Such inputs cannot be chosen by the solver — the entity they name
	// only exists after a preceding API call creates it — so the driver
	// holds them at a placeholder until a tmp_<global>_* binding shows up
	// in σ, then substitutes the first key of the newest such map.
	Deferred map[string]string

	identities map[string]*DeferredIdentity
}

// NewDriver builds a Driver from cfg, wiring its solver invocation and
// iteration cap.
func NewDriver(cfg config.Config, f factory.Factory, globals smt.Globals) *Driver {
	if f == nil {
		f = factory.Noop{}
	}
	return &Driver{
		Factory: f,
		Solver:  smt.NewSolver(cfg.SolverPath, cfg.SMTDir, cfg.SolverTimeout),
		Globals: globals,
		Cap:     cfg.IterationCap,
	}
}

// Run executes the fixed-point loop starting from t with an empty input
// list, returning once L stops growing, a model fails to advance the
// search, the constraints go unsatisfiable, or the iteration cap is hit.
//
// Every iteration rewrites from the original t, so L's positions always
// line up with t's Input statements in program order. L only ever grows
// at the end of a round (each round's newL is the previous L plus the new
// in_<name> bindings that round's model supplied) — except when a
// deferred identity resolves, which overwrites its placeholder slot in
// place and restarts the round without solving.
func (d *Driver) Run(t *ir.Program) (*Result, error) {
	cap := d.Cap
	if cap <= 0 {
		cap = config.DefaultIterationCap
	}

	order := inputDeclarationOrder(t)
	pos := map[string]int{}
	for i, name := range order {
		pos[name] = i
	}
	var L []string
	var execLog []error

	for iter := 0; iter < cap; iter++ {
		log.Printf("iteration %d, |L|=%d", iter, len(L))

		tprime, err := rewriteATC(t, L)
		if err != nil {
			return nil, err
		}

		alloc := ir.NewAllocator()
		engine := see.NewEngine(alloc, d.Factory)
		seeResult, err := engine.Execute(tprime)
		if err != nil {
			return nil, err
		}
		execLog = append(execLog, seeResult.ExecLog...)

		if d.resolveDeferred(seeResult.Sigma, pos, L) {
			// A placeholder just became a real id; re-run with it before
			// spending a solver round on constraints that mention the
			// placeholder string.
			continue
		}

		if seeResult.UnsatCandidate {
			return &Result{
				ErrorMessage: "path constraint contains a concrete false",
				ExecutionLog: execLog,
				Iterations:   iter + 1,
			}, nil
		}

		ctx := smt.Context{
			Constraints:   seeResult.C,
			InputNames:    inputSymbolNames(seeResult),
			Globals:       d.Globals,
			GlobalAliases: globalAliases(seeResult, d.Globals),
		}
		query := smt.NewEncoder(ctx).Encode()

		resp, err := d.Solver.Solve(query, queryName(iter))
		if err != nil {
			return nil, err
		}

		switch resp.Outcome {
		case smt.Unsat:
			return &Result{
				SMTContent:   query,
				SolverOutput: resp.Raw,
				ErrorMessage: "constraints unsatisfiable",
				ExecutionLog: execLog,
				Iterations:   iter + 1,
			}, nil
		case smt.Unknown:
			return &Result{
				SMTContent:   query,
				SolverOutput: resp.Raw,
				ErrorMessage: "solver returned unknown",
				ExecutionLog: execLog,
				Iterations:   iter + 1,
			}, nil
		}

		model := smt.ParseModel(resp.Raw)
		discovered := d.discoverValues(seeResult, model)
		if len(discovered) == 0 {
			return d.finalize(query, resp, order, pos, L, execLog, iter), nil
		}

		newL := append(append([]string{}, L...), discovered...)
		if stringsEqual(newL, L) {
			return d.finalize(query, resp, order, pos, L, execLog, iter), nil
		}

		L = newL
	}

	log.Printf("reached iteration cap %d without converging", cap)
	d.applyFallbacks(pos, L)
	return &Result{
		ErrorMessage: fmt.Sprintf("reached iteration cap (%d) without converging", cap),
		ExecutionLog: execLog,
		Iterations:   cap,
	}, nil
}

// discoverValues pulls the model value for every input SEE still reported
// as unresolved this round, in the order SEE discovered them, applying the
// realism transform when the driver carries one. An input registered as
// deferred never takes a solver value: it holds its placeholder (or its
// already-resolved id) regardless of what the model says about it.
func (d *Driver) discoverValues(res *see.Result, model map[string]string) []string {
	var out []string
	for _, name := range res.Inputs {
		if _, ok := d.deferredGlobal(name); ok {
			out = append(out, d.identity(name).Value())
			continue
		}
		raw, ok := model["in_"+name]
		if !ok {
			continue
		}
		if d.Realism != nil {
			raw = d.Realism(name, raw)
		}
		out = append(out, raw)
	}
	return out
}

// finalize zips the program's original Input declaration order against the
// final accepted L to report each input variable's concrete binding — L's
// positions correspond to that order since rewriteATC always consumes it
// front-to-back against Input statements in program order. Deferred
// identities still pending at this point fall back to their named
// constant first.
func (d *Driver) finalize(query string, resp *smt.Response, order []string, pos map[string]int, L []string, execLog []error, iter int) *Result {
	d.applyFallbacks(pos, L)
	values := map[string]string{}
	for i, name := range order {
		if i >= len(L) {
			break
		}
		values[name] = L[i]
	}
	return &Result{
		Satisfiable:    true,
		ConcreteValues: values,
		SMTContent:     query,
		SolverOutput:   resp.Raw,
		ExecutionLog:   execLog,
		Iterations:     iter + 1,
	}
}

// identity returns the state machine tracking name's deferred resolution,
// minting a Pending one with a fresh placeholder token on first sight.
func (d *Driver) identity(name string) *DeferredIdentity {
	if d.identities == nil {
		d.identities = map[string]*DeferredIdentity{}
	}
	id, ok := d.identities[name]
	if !ok {
		id = NewPlaceholder()
		d.identities[name] = id
	}
	return id
}

// deferredGlobal reports which global the (suffixed) input name defers to,
// matching on its unsuffixed base.
func (d *Driver) deferredGlobal(name string) (string, bool) {
	if len(d.Deferred) == 0 {
		return "", false
	}
	g, ok := d.Deferred[baseName(name)]
	return g, ok
}

// resolveDeferred advances every Pending identity whose producing API has
// since run — σ now holds a tmp_<global>_* map carrying the
// backend-assigned id — and overwrites the placeholder occupying that
// input's slot in L with the real id. Reports whether anything changed.
func (d *Driver) resolveDeferred(sigma *see.Sigma, pos map[string]int, L []string) bool {
	changed := false
	for name, id := range d.identities {
		if id.State != Pending {
			continue
		}
		global, ok := d.deferredGlobal(name)
		if !ok {
			continue
		}
		observed, ok := ResolveFromSigma(sigma, global)
		if !ok {
			continue
		}
		id.Resolve(observed.Value())
		if i, ok := pos[name]; ok && i < len(L) {
			L[i] = id.Value()
			changed = true
		}
	}
	return changed
}

// applyFallbacks pins every still-Pending identity to its named fallback
// (no_<global>_available) so the final program carries a stable literal
// instead of an opaque placeholder token.
func (d *Driver) applyFallbacks(pos map[string]int, L []string) {
	for name, id := range d.identities {
		if id.State != Pending {
			continue
		}
		global, ok := d.deferredGlobal(name)
		if !ok {
			continue
		}
		id.FallbackTo("no_" + strings.ToLower(global) + "_available")
		if i, ok := pos[name]; ok && i < len(L) {
			L[i] = id.Value()
		}
	}
}

// baseName strips the numeric position suffix genATC appends to an input
// name; a name with no trailing digits comes back unchanged.
func baseName(name string) string {
	i := len(name)
	for i > 0 && name[i-1] >= '0' && name[i-1] <= '9' {
		i--
	}
	if i == 0 || i == len(name) {
		return name
	}
	return name[:i]
}

// inputDeclarationOrder returns the variable names of t's Input statements
// in program order, fixed for the whole run regardless of how many of
// them later rounds turn into concrete Assigns.
func inputDeclarationOrder(t *ir.Program) []string {
	var out []string
	for _, s := range t.Statements {
		if in, ok := s.(*ir.Input); ok {
			out = append(out, in.Var.Name)
		}
	}
	return out
}

func inputSymbolNames(res *see.Result) map[int64]string {
	out := map[int64]string{}
	for _, name := range res.Inputs {
		val, ok := res.Sigma.Get(name)
		if !ok {
			continue
		}
		sv, ok := val.(*ir.SymVar)
		if !ok {
			continue
		}
		out[sv.ID] = name
	}
	return out
}

// globalAliases finds every SEE-discovered input whose name is a
// tmp_<global>_<n> alias (the name the globals rewrite hoists a global
// read into) and maps its SymVar id to the global it stands in for. SEE
// only ever records such a name as an input when the backend call meant to
// resolve it failed and left it unbound, so without this the leftover
// symbolic reference would reach the encoder as an anonymous SymVar with
// no trace of which global it came from.
func globalAliases(res *see.Result, globals smt.Globals) map[int64]string {
	out := map[int64]string{}
	for _, name := range res.Inputs {
		base, ok := smt.ResolveGlobalAlias(name, globals)
		if !ok {
			continue
		}
		val, ok := res.Sigma.Get(name)
		if !ok {
			continue
		}
		sv, ok := val.(*ir.SymVar)
		if !ok {
			continue
		}
		out[sv.ID] = base
	}
	return out
}

func queryName(iter int) string {
	return fmt.Sprintf("ctc_%d_%s", iter, uuid.NewString())
}
