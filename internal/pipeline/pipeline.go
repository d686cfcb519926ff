// Package pipeline wires the leaf stages — atc, globals, ctc — into the
// single entry point external callers use: GenerateConcreteTestCase. It
// never throws: structural failures (an unknown block name, a malformed
// AST) come back as a Go error, while every solver outcome — sat, unsat,
// unknown, stalled — is reported as data on the returned Report.
package pipeline

import (
	"github.com/funvibe/testgen/internal/atc"
	"github.com/funvibe/testgen/internal/config"
	"github.com/funvibe/testgen/internal/ctc"
	"github.com/funvibe/testgen/internal/factory"
	"github.com/funvibe/testgen/internal/globals"
	"github.com/funvibe/testgen/internal/ir"
	"github.com/funvibe/testgen/internal/logx"
	"github.com/funvibe/testgen/internal/smt"
	"github.com/funvibe/testgen/internal/spec"
)

var log = logx.Stage("Pipeline")

// Report is the user-visible result of one pipeline invocation: whether
// the path was satisfiable, the concrete value discovered for each input,
// the SMT-LIB text and raw solver transcript of the deciding iteration,
// and an error message when the run did not reach a concrete program.
type Report struct {
	Satisfiable    bool
	ConcreteValues map[string]string
	SMTContent     string
	SolverOutput   string
	ErrorMessage   string
	ExecutionLog   []error
	Iterations     int

	// ATC is the abstract test case genATC produced, before the globals
	// rewrite — useful for callers that want to inspect or print it.
	ATC *ir.Program
	// TestAPIATC is ATC after the globals rewrite: every direct global
	// reference replaced by a get_G/set_G call.
	TestAPIATC *ir.Program
}

// Options configures one GenerateConcreteTestCase call. A zero Options
// uses config.Default() and factory.Noop{}, matching a dry run that only
// exercises constraint collection.
type Options struct {
	Config  config.Config
	Factory factory.Factory
	Realism ctc.RealismTransform

	// Deferred maps an input's base name to the global whose
	// backend-assigned ids it refers to; see ctc.Driver.Deferred.
	Deferred map[string]string
}

// GenerateConcreteTestCase runs the full abstract-to-concrete pipeline for
// one Spec and test string: genATC, the globals rewrite, then the
// concretization driver's symbolic-execution/SMT fixed point. Structural
// errors (an unknown block name, a malformed AST) are returned as a Go
// error and stop the pipeline; every other outcome — sat, unsat, unknown,
// stall — comes back on Report, never as an error.
func GenerateConcreteTestCase(s *spec.Spec, testString []string, opts Options) (*Report, error) {
	cfg := opts.Config
	if cfg.IterationCap == 0 {
		cfg = config.Default()
	}

	deps := ctc.InferDependencies(s)
	if err := ctc.PreCheck(deps, testString); err != nil {
		log.Printf("dependency pre-check failed: %v", err)
		return &Report{ErrorMessage: err.Error()}, nil
	}

	log.Printf("genATC: %d blocks", len(testString))
	program, err := atc.GenATC(s, testString)
	if err != nil {
		return nil, err
	}

	testAPIProgram := globals.Rewrite(program)

	f := opts.Factory
	if !cfg.ExecuteAPIs {
		f = factory.Noop{}
	}
	driver := ctc.NewDriver(cfg, f, smt.Globals(s.Globals()))
	driver.Realism = opts.Realism
	driver.Deferred = opts.Deferred

	result, err := driver.Run(testAPIProgram)
	if err != nil {
		return nil, err
	}

	return &Report{
		Satisfiable:    result.Satisfiable,
		ConcreteValues: result.ConcreteValues,
		SMTContent:     result.SMTContent,
		SolverOutput:   result.SolverOutput,
		ErrorMessage:   result.ErrorMessage,
		ExecutionLog:   result.ExecutionLog,
		Iterations:     result.Iterations,
		ATC:            program,
		TestAPIATC:     testAPIProgram,
	}, nil
}
