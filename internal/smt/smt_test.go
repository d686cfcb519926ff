package smt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/funvibe/testgen/internal/ir"
)

func TestEncode_DeclaresInputSymbolsAndNonEmptyGuard(t *testing.T) {
	ctx := Context{
		Constraints: []ir.Expression{
			&ir.BinaryOp{Op: ir.EQ, Left: &ir.SymVar{ID: 0}, Right: &ir.Str{Value: "x"}},
		},
		InputNames: map[int64]string{0: "email"},
	}
	out := NewEncoder(ctx).Encode()

	if !strings.Contains(out, "(declare-const in_email String)") {
		t.Errorf("expected a declare-const for in_email, got:\n%s", out)
	}
	if !strings.Contains(out, "(set-option :produce-models true)") {
		t.Errorf("expected the produce-models option to be set, got:\n%s", out)
	}
	if !strings.Contains(out, "(assert (> (str.len in_email) 0))") {
		t.Errorf("expected a non-empty guard for the declared input, got:\n%s", out)
	}
	if !strings.Contains(out, `(assert (! (= in_email "x") :named c1))`) {
		t.Errorf("expected the path constraint to be a named assertion, got:\n%s", out)
	}
	if !strings.Contains(out, "(check-sat)") || !strings.Contains(out, "(get-model)") {
		t.Errorf("expected the query to end with check-sat/get-model, got:\n%s", out)
	}
}

func TestEncode_GlobalMapAccessUsesDomValArray(t *testing.T) {
	ctx := Context{
		Constraints: []ir.Expression{
			&ir.FuncCall{Name: "in", Args: []ir.Expression{
				&ir.Str{Value: "alice"},
				&ir.FuncCall{Name: "dom", Args: []ir.Expression{&ir.Var{Name: "U"}}},
			}},
		},
		Globals: Globals{"U": true},
	}
	out := NewEncoder(ctx).Encode()

	if !strings.Contains(out, "(declare-const Dom_U (Array String Bool))") {
		t.Errorf("expected a Dom_U array declaration, got:\n%s", out)
	}
	if !strings.Contains(out, `(select Dom_U "alice")`) {
		t.Errorf("expected the membership test to select into Dom_U rather than a generic SetIn, got:\n%s", out)
	}
}

func TestEncode_LookupOnGlobalUsesValArray(t *testing.T) {
	ctx := Context{
		Constraints: []ir.Expression{
			&ir.BinaryOp{
				Op:   ir.EQ,
				Left: &ir.FuncCall{Name: "[]", Args: []ir.Expression{&ir.Var{Name: "U"}, &ir.Str{Value: "alice"}}},
				Right: &ir.Str{Value: "hunter2"},
			},
		},
		Globals: Globals{"U": true},
	}
	out := NewEncoder(ctx).Encode()

	if !strings.Contains(out, "(declare-const Val_U (Array String String))") {
		t.Errorf("expected a Val_U array declaration, got:\n%s", out)
	}
	if !strings.Contains(out, `(and (select Dom_U "alice") (= (select Val_U "alice") "hunter2"))`) {
		t.Errorf("expected the lookup equality to carry a domain guard alongside the Val_U select, got:\n%s", out)
	}
}

func TestEncode_GlobalAliasSymVarUsesDomValArray(t *testing.T) {
	// Mirrors what SEE actually hands the encoder once a get_U call fails
	// to resolve: the tmp_U_0 alias has already turned into a bare SymVar
	// by the time it reaches a constraint, and GlobalAliases is how the
	// encoder still recognizes it as a reference to U.
	ctx := Context{
		Constraints: []ir.Expression{
			&ir.FuncCall{Name: "in", Args: []ir.Expression{
				&ir.Str{Value: "alice"},
				&ir.FuncCall{Name: "dom", Args: []ir.Expression{&ir.SymVar{ID: 5}}},
			}},
		},
		Globals:       Globals{"U": true},
		GlobalAliases: map[int64]string{5: "U"},
	}
	out := NewEncoder(ctx).Encode()

	if !strings.Contains(out, "(declare-const Dom_U (Array String Bool))") {
		t.Errorf("expected a Dom_U array declaration, got:\n%s", out)
	}
	if !strings.Contains(out, `(select Dom_U "alice")`) {
		t.Errorf("expected the membership test to select into Dom_U via the alias, got:\n%s", out)
	}
}

func TestEncode_BarePredicateConditionDeclaresBoolSort(t *testing.T) {
	// A spec condition can apply an application-state predicate directly —
	// assert(authenticated(email)) — with no equality wrapped around it.
	// Both the fixed prelude names and a previously unseen predicate used
	// in a boolean position must come out Bool-sorted, or the assert is a
	// sort error.
	ctx := Context{
		Constraints: []ir.Expression{
			&ir.FuncCall{Name: "authenticated", Args: []ir.Expression{&ir.SymVar{ID: 0}}},
			&ir.FuncCall{Name: "has_items", Args: []ir.Expression{&ir.SymVar{ID: 0}}},
		},
		InputNames: map[int64]string{0: "email"},
	}
	out := NewEncoder(ctx).Encode()

	if !strings.Contains(out, "(declare-fun authenticated (String) Bool)") {
		t.Errorf("expected authenticated declared as a Bool predicate, got:\n%s", out)
	}
	if !strings.Contains(out, "(declare-fun token_present (String) Bool)") {
		t.Errorf("expected the fixed prelude declared even when unused, got:\n%s", out)
	}
	if !strings.Contains(out, "(declare-fun has_items (String) Bool)") {
		t.Errorf("expected an unknown predicate asserted directly to be declared Bool, got:\n%s", out)
	}
	if !strings.Contains(out, "(assert (! (authenticated in_email) :named c1))") {
		t.Errorf("expected the bare predicate asserted as-is, got:\n%s", out)
	}
}

func TestEncode_OutputIsDeterministicAcrossRuns(t *testing.T) {
	ctx := Context{
		Constraints: []ir.Expression{
			&ir.BinaryOp{Op: ir.LT, Left: &ir.SymVar{ID: 1}, Right: &ir.SymVar{ID: 0}},
		},
		InputNames: map[int64]string{0: "b", 1: "a"},
	}
	first := NewEncoder(ctx).Encode()
	second := NewEncoder(ctx).Encode()
	if first != second {
		t.Fatalf("Encode() must be deterministic for the same Context:\n%s\nvs\n%s", first, second)
	}
}

func TestParseModel_ExtractsDefineFunBindings(t *testing.T) {
	raw := "sat\n(model\n  (define-fun in_email () String \"a@b.com\")\n  (define-fun v3 () String \"7\")\n)\n"
	got := ParseModel(raw)
	if got["in_email"] != "a@b.com" {
		t.Errorf("expected in_email = a@b.com, got %q", got["in_email"])
	}
	if got["v3"] != "7" {
		t.Errorf("expected v3 = 7, got %q", got["v3"])
	}
}

func TestParseModel_EmptyOnUnsat(t *testing.T) {
	got := ParseModel("unsat\n")
	if len(got) != 0 {
		t.Fatalf("expected no bindings for an unsat response, got %v", got)
	}
}

func TestSolver_ClassifiesSatUnsatUnknown(t *testing.T) {
	for _, tc := range []struct {
		output string
		want   Outcome
	}{
		{"sat\n(model)\n", Sat},
		{"unsat\n", Unsat},
		{"unknown\n", Unknown},
	} {
		dir := t.TempDir()
		script := filepath.Join(dir, "fakesolver.sh")
		body := "#!/bin/sh\ncat <<'EOF'\n" + tc.output + "\nEOF\n"
		if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
			t.Fatalf("write fake solver: %v", err)
		}

		solver := NewSolver(script, dir, 5*time.Second)
		resp, err := solver.Solve("(check-sat)\n", "q")
		if err != nil {
			t.Fatalf("Solve: %v", err)
		}
		if resp.Outcome != tc.want {
			t.Errorf("output %q: got outcome %s, want %s", tc.output, resp.Outcome, tc.want)
		}
	}
}

func TestSolver_WritesQueryToNamedFile(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "fakesolver.sh")
	if err := os.WriteFile(script, []byte("#!/bin/sh\necho sat\n"), 0o755); err != nil {
		t.Fatalf("write fake solver: %v", err)
	}

	solver := NewSolver(script, dir, 5*time.Second)
	if _, err := solver.Solve("(check-sat)\n", "myquery"); err != nil {
		t.Fatalf("Solve: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "myquery.smt2")); err != nil {
		t.Fatalf("expected the query to be written to myquery.smt2: %v", err)
	}
}
