// Package txerr defines the typed error taxonomy the pipeline raises.
// Structural errors stop the pipeline; solver outcomes and per-API
// failures are data carried on the result record, not panics.
package txerr

import "fmt"

// BlockNotFoundError is raised when a test string names a block the spec
// does not declare. Fatal to the pipeline.
type BlockNotFoundError struct{ Name string }

func (e *BlockNotFoundError) Error() string {
	return fmt.Sprintf("block not found: %s", e.Name)
}

func NewBlockNotFoundError(name string) *BlockNotFoundError {
	return &BlockNotFoundError{Name: name}
}

// MalformedASTError is raised when the IR violates a structural invariant
// the builder relies on (e.g. an API call that is not a FuncCall, an
// assignment to an unsupported left-hand side, or a statement kind the
// symbolic engine does not know).
type MalformedASTError struct{ Detail string }

func (e *MalformedASTError) Error() string {
	return fmt.Sprintf("malformed AST: %s", e.Detail)
}

func NewMalformedASTError(detail string) *MalformedASTError {
	return &MalformedASTError{Detail: detail}
}

// SolverUnavailableError is raised when the external SMT solver process
// cannot be spawned or its output cannot be read. Fatal to this
// invocation; the caller may retry.
type SolverUnavailableError struct{ Reason string }

func (e *SolverUnavailableError) Error() string {
	return fmt.Sprintf("solver unavailable: %s", e.Reason)
}

func NewSolverUnavailableError(reason string) *SolverUnavailableError {
	return &SolverUnavailableError{Reason: reason}
}

// APIExecutionFailedError records a single backend Function Factory call
// that threw. Execution of that statement is skipped; the pipeline
// continues — this is confined to one entry in a Report's ExecutionLog,
// never surfaced as a top-level error.
type APIExecutionFailedError struct {
	Name   string
	Reason string
}

func (e *APIExecutionFailedError) Error() string {
	return fmt.Sprintf("API %q execution failed: %s", e.Name, e.Reason)
}

func NewAPIExecutionFailedError(name, reason string) *APIExecutionFailedError {
	return &APIExecutionFailedError{Name: name, Reason: reason}
}
