// Package factory defines the Function Factory capability interface the
// symbolic engine dispatches ready backend API calls to. Transport and
// per-application call mapping live outside this package; it owns only
// the interface shape plus one reference implementation (grpcfactory.go)
// that demonstrates a concrete way to satisfy it.
package factory

import "github.com/funvibe/testgen/internal/ir"

// Callable performs one backend call and returns its result as an
// Expression — typically ir.Num (a status code) or ir.Str (a response
// body). Implementations may return an error instead of panicking; SEE
// records it as an APIExecutionFailedError and moves on.
type Callable interface {
	Execute() (ir.Expression, error)
}

// Factory maps an API name plus concrete arguments to a Callable.
type Factory interface {
	GetFunction(name string, args []ir.Expression) (Callable, error)
}

// CallableFunc adapts a plain function to the Callable interface.
type CallableFunc func() (ir.Expression, error)

func (f CallableFunc) Execute() (ir.Expression, error) { return f() }

// Noop is the default Factory used when the caller configures no real
// backend (config.ExecuteAPIs == false, or tests that only care about
// constraint collection). Every call succeeds and returns a placeholder
// string encoding the call shape, so repeated runs are deterministic.
type Noop struct{}

func (Noop) GetFunction(name string, args []ir.Expression) (Callable, error) {
	return CallableFunc(func() (ir.Expression, error) {
		return &ir.Str{Value: "noop:" + name}, nil
	}), nil
}
