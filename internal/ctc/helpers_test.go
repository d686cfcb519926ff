package ctc

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/funvibe/testgen/internal/config"
	"github.com/funvibe/testgen/internal/factory"
	"github.com/funvibe/testgen/internal/ir"
	"github.com/funvibe/testgen/internal/smt"
)

// failingFactory rejects every call, standing in for a backend that is
// unreachable or errors on every request.
type failingFactory struct{}

func (failingFactory) GetFunction(name string, args []ir.Expression) (factory.Callable, error) {
	return nil, errors.New("backend unavailable")
}

// cannedFactory replies with a fixed Expression per call name, defaulting
// to a plain "ok" string for anything not listed.
type cannedFactory map[string]ir.Expression

func (c cannedFactory) GetFunction(name string, args []ir.Expression) (factory.Callable, error) {
	return factory.CallableFunc(func() (ir.Expression, error) {
		if reply, ok := c[name]; ok {
			return ir.CloneExpr(reply), nil
		}
		return &ir.Str{Value: "ok"}, nil
	}), nil
}

func testConfig() config.Config {
	return config.Config{
		IterationCap: 5,
	}
}

// scriptSolver writes an executable shell script that prints output
// regardless of its .smt2 argument, and wraps it in a Solver pointed at
// that script — standing in for a real z3 binary in tests.
func scriptSolver(t *testing.T, output string) *smt.Solver {
	t.Helper()
	dir := t.TempDir()
	script := filepath.Join(dir, "fakez3.sh")
	body := fmt.Sprintf("#!/bin/sh\ncat <<'EOF'\n%s\nEOF\n", output)
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatalf("write fake solver script: %v", err)
	}
	return smt.NewSolver(script, dir, 5*time.Second)
}

func stubSolverOutcome(t *testing.T, output string) *smt.Solver {
	t.Helper()
	return scriptSolver(t, output)
}

// stubSolver fabricates a sat response whose model binds each in_<name>
// symbol to the given value.
func stubSolver(t *testing.T, bindings map[string]string) *smt.Solver {
	t.Helper()
	out := "sat\n"
	for name, val := range bindings {
		out += fmt.Sprintf("(define-fun %s () String %q)\n", name, val)
	}
	return scriptSolver(t, out)
}
