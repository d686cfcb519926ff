package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/funvibe/testgen/internal/config"
	"github.com/funvibe/testgen/internal/factory"
	"github.com/funvibe/testgen/internal/ir"
	"github.com/funvibe/testgen/internal/spec"
)

func fakeSolverConfig(t *testing.T, output string) config.Config {
	t.Helper()
	dir := t.TempDir()
	script := filepath.Join(dir, "fakez3.sh")
	body := "#!/bin/sh\ncat <<'EOF'\n" + output + "\nEOF\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatalf("write fake solver: %v", err)
	}
	cfg := config.Default()
	cfg.SolverPath = script
	cfg.SMTDir = dir
	cfg.SolverTimeout = 5 * time.Second
	return cfg
}

func orderSpec() *spec.Spec {
	return &spec.Spec{
		Blocks: []spec.API{
			{
				Name: "order",
				Call: &ir.FuncCall{Name: "placeOrder", Args: []ir.Expression{&ir.Var{Name: "amount"}}},
				Response: spec.Response{
					Code: 200,
					Post: &ir.BinaryOp{Op: ir.NEQ, Left: &ir.Var{Name: "resp"}, Right: &ir.Str{Value: ""}},
				},
			},
		},
	}
}

func TestGenerateConcreteTestCase_SatisfiablePathReturnsConcreteValues(t *testing.T) {
	cfg := fakeSolverConfig(t, `sat
(model (define-fun in_amount0 () String "7"))`)

	report, err := GenerateConcreteTestCase(orderSpec(), []string{"order"}, Options{
		Config:  cfg,
		Factory: factory.Noop{},
	})
	if err != nil {
		t.Fatalf("GenerateConcreteTestCase: %v", err)
	}
	if !report.Satisfiable {
		t.Fatalf("expected satisfiable, got ErrorMessage=%q", report.ErrorMessage)
	}
	if report.ConcreteValues["amount0"] != "7" {
		t.Fatalf("expected amount0 bound to 7, got %q", report.ConcreteValues["amount0"])
	}
	if report.ATC == nil || report.TestAPIATC == nil {
		t.Fatal("expected both the raw ATC and the test-API ATC to be reported")
	}
}

func TestGenerateConcreteTestCase_UnknownBlockNameIsAStructuralError(t *testing.T) {
	cfg := fakeSolverConfig(t, "sat\n")
	_, err := GenerateConcreteTestCase(orderSpec(), []string{"bogus"}, Options{
		Config:  cfg,
		Factory: factory.Noop{},
	})
	if err == nil {
		t.Fatal("expected a Go error for a test string naming an unknown block")
	}
}

// TestGenerateConcreteTestCase_DoubleRegisterContradictionReachesSolver
// runs register twice: block 1's post adds the email to U, contradicting
// block 2's `email ∉ dom(U)` pre. The contradiction spans two blocks, so
// the dependency pre-check must let the sequence through — register's own
// pre holds against the initial empty U — and the unsat verdict has to
// come from the solver.
func TestGenerateConcreteTestCase_DoubleRegisterContradictionReachesSolver(t *testing.T) {
	s := &spec.Spec{
		Inits: []spec.Init{{Name: "U", Expr: &ir.Map{}}},
		Blocks: []spec.API{
			{
				Name: "register",
				Pre: &ir.BinaryOp{
					Op:   ir.NOT_IN,
					Left: &ir.Var{Name: "email"},
					Right: &ir.FuncCall{Name: "dom", Args: []ir.Expression{&ir.Var{Name: "U"}}},
				},
				Call: &ir.FuncCall{Name: "register", Args: []ir.Expression{&ir.Var{Name: "email"}, &ir.Var{Name: "pw"}}},
				Response: spec.Response{
					Code: 201,
					Post: &ir.BinaryOp{
						Op:   ir.EQ,
						Left: &ir.FuncCall{Name: "'", Args: []ir.Expression{&ir.Var{Name: "U"}}},
						Right: &ir.FuncCall{Name: "put", Args: []ir.Expression{
							&ir.Var{Name: "U"}, &ir.Var{Name: "email"}, &ir.Var{Name: "pw"},
						}},
					},
				},
			},
		},
	}

	cfg := fakeSolverConfig(t, "unsat\n")
	report, err := GenerateConcreteTestCase(s, []string{"register", "register"}, Options{
		Config:  cfg,
		Factory: factory.Noop{},
	})
	if err != nil {
		t.Fatalf("GenerateConcreteTestCase: %v", err)
	}
	if report.Satisfiable {
		t.Fatal("expected the double registration to be unsatisfiable")
	}
	if !strings.Contains(report.SolverOutput, "unsat") {
		t.Fatalf("expected the contradiction to be decided by the solver, not the pre-check; solver output: %q (error: %q)", report.SolverOutput, report.ErrorMessage)
	}
}

func TestGenerateConcreteTestCase_DependencyPreCheckRejectsWithoutCallingSolver(t *testing.T) {
	s := &spec.Spec{
		Inits: []spec.Init{{Name: "U", Expr: &ir.Map{}}},
		Blocks: []spec.API{
			{
				Name: "login",
				Pre: &ir.BinaryOp{
					Op:   ir.EQ,
					Left: &ir.FuncCall{Name: "lookup", Args: []ir.Expression{&ir.Var{Name: "U"}, &ir.Var{Name: "email"}}},
					Right: &ir.Var{Name: "pw"},
				},
				Call:     &ir.FuncCall{Name: "login", Args: []ir.Expression{&ir.Var{Name: "email"}, &ir.Var{Name: "pw"}}},
				Response: spec.Response{Code: 200},
			},
			{
				Name: "register",
				Call: &ir.FuncCall{Name: "register", Args: []ir.Expression{&ir.Var{Name: "email"}, &ir.Var{Name: "pw"}}},
				Response: spec.Response{
					Code: 200,
					Post: &ir.BinaryOp{
						Op:   ir.EQ,
						Left: &ir.FuncCall{Name: "'", Args: []ir.Expression{&ir.Var{Name: "U"}}},
						Right: &ir.FuncCall{Name: "put", Args: []ir.Expression{
							&ir.Var{Name: "U"}, &ir.Var{Name: "email"}, &ir.Var{Name: "pw"},
						}},
					},
				},
			},
		},
	}

	cfg := config.Default()
	cfg.SolverPath = "/bin/should-not-be-invoked"

	report, err := GenerateConcreteTestCase(s, []string{"login"}, Options{
		Config:  cfg,
		Factory: factory.Noop{},
	})
	if err != nil {
		t.Fatalf("GenerateConcreteTestCase: %v", err)
	}
	if report.Satisfiable {
		t.Fatal("expected the dependency pre-check to reject login before register")
	}
	if report.ErrorMessage == "" {
		t.Fatal("expected an ErrorMessage explaining the missing dependency")
	}
}
