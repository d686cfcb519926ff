package smt

import (
	"testing"

	"golang.org/x/tools/txtar"

	"github.com/funvibe/testgen/internal/ir"
)

// scenarios builds the same Context each named golden fixture encodes, kept
// in lock step with testdata/golden.txtar below: this is the exact-output
// counterpart to the substring checks in smt_test.go, in the vein of the
// SMT-LIB/solver-transcript golden fixtures DESIGN.md calls out as
// golang.org/x/tools/txtar's natural home in this repo.
func scenarios() map[string]Context {
	return map[string]Context{
		"email-equality.smt2": {
			Constraints: []ir.Expression{
				&ir.BinaryOp{Op: ir.EQ, Left: &ir.SymVar{ID: 0}, Right: &ir.Str{Value: "alice"}},
			},
			InputNames: map[int64]string{0: "email"},
		},
		"global-membership.smt2": {
			Constraints: []ir.Expression{
				&ir.FuncCall{Name: "in", Args: []ir.Expression{
					&ir.Str{Value: "alice"},
					&ir.FuncCall{Name: "dom", Args: []ir.Expression{&ir.Var{Name: "U"}}},
				}},
			},
			Globals: Globals{"U": true},
		},
	}
}

func TestEncode_MatchesGoldenTranscripts(t *testing.T) {
	arc, err := txtar.ParseFile("testdata/golden.txtar")
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	want := scenarios()

	seen := map[string]bool{}
	for _, f := range arc.Files {
		ctx, ok := want[f.Name]
		if !ok {
			t.Errorf("golden.txtar has fixture %q with no matching scenario", f.Name)
			continue
		}
		seen[f.Name] = true

		got := NewEncoder(ctx).Encode()
		if got != string(f.Data) {
			t.Errorf("%s: encoder output does not match golden fixture\ngot:\n%s\nwant:\n%s", f.Name, got, f.Data)
		}
	}
	for name := range want {
		if !seen[name] {
			t.Errorf("scenario %q has no fixture in golden.txtar", name)
		}
	}
}
