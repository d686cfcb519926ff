// Package config holds the pipeline's runtime knobs: solver invocation,
// the CTC fixed-point's iteration cap, and file layout for generated
// SMT-LIB queries.
package config

import "time"

// Version is the current testgen release.
var Version = "0.1.0"

// DefaultIterationCap bounds the concretization fixed-point loop. Progress
// is measured by newL != L; this guards against oscillation.
const DefaultIterationCap = 50

// DefaultSMTLogic is the logic declared at the top of every generated
// SMT-LIB query.
const DefaultSMTLogic = "ALL"

// Config collects the knobs genCTC and the SMT encoder consult.
type Config struct {
	// SolverPath is the external SMT solver executable to invoke.
	SolverPath string
	// SolverTimeout bounds a single solver invocation.
	SolverTimeout time.Duration
	// IterationCap bounds the genCTC fixed-point loop.
	IterationCap int
	// SMTDir is the directory generated .smt2 query files are written to.
	SMTDir string
	// Debug records whether the caller asked for stage-by-stage tracing.
	// No stage reads it: logx writes its stage trace unconditionally.
	Debug bool
	// ExecuteAPIs toggles whether ready API calls are actually dispatched
	// through a Function Factory, or treated as no-ops that return the
	// concrete string "noop:<name>" (useful for dry runs).
	ExecuteAPIs bool
}

// Default returns the configuration used when the caller supplies none.
func Default() Config {
	return Config{
		SolverPath:    "z3",
		SolverTimeout: 10 * time.Second,
		IterationCap:  DefaultIterationCap,
		SMTDir:        "",
		Debug:         false,
		ExecuteAPIs:   true,
	}
}
