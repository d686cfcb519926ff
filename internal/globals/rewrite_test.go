package globals

import (
	"testing"

	"github.com/funvibe/testgen/internal/ir"
)

func findCall(p *ir.Program, name string) *ir.FuncCall {
	for _, s := range p.Statements {
		if as, ok := s.(*ir.Assign); ok {
			if fc, ok := as.RHS.(*ir.FuncCall); ok && fc.Name == name {
				return fc
			}
		}
	}
	return nil
}

func TestRewrite_InsertsLeadingReset(t *testing.T) {
	p := &ir.Program{Statements: []ir.Statement{
		ir.AssignVar("U", &ir.Map{}),
	}}
	out := Rewrite(p)

	if len(out.Statements) == 0 {
		t.Fatal("expected at least the reset() call")
	}
	first, ok := out.Statements[0].(*ir.Assign)
	if !ok {
		t.Fatalf("expected the first statement to be an Assign, got %T", out.Statements[0])
	}
	fc, ok := first.RHS.(*ir.FuncCall)
	if !ok || fc.Name != "reset" {
		t.Fatalf("expected the first statement to call reset(), got %v", first)
	}
}

func TestRewrite_DropsInitAssignments(t *testing.T) {
	p := &ir.Program{Statements: []ir.Statement{
		ir.AssignVar("U", &ir.Map{}),
		ir.DiscardAssign(&ir.FuncCall{Name: "register", Args: []ir.Expression{&ir.Str{Value: "x"}}}),
	}}
	out := Rewrite(p)

	for _, s := range out.Statements {
		if as, ok := s.(*ir.Assign); ok {
			if v, ok := as.LHS.(*ir.Var); ok && v.Name == "U" {
				if m, ok := as.RHS.(*ir.Map); ok && len(m.Entries) == 0 {
					t.Fatal("init assignment for global U should have been dropped, not preserved")
				}
			}
		}
	}
}

func TestRewrite_ReadOfGlobalBecomesGetCall(t *testing.T) {
	p := &ir.Program{Statements: []ir.Statement{
		ir.AssignVar("U", &ir.Map{}),
		&ir.Assert{Cond: &ir.BinaryOp{
			Op:    ir.EQ,
			Left:  &ir.FuncCall{Name: "dom", Args: []ir.Expression{&ir.Var{Name: "U"}}},
			Right: &ir.Set{},
		}},
	}}
	out := Rewrite(p)

	if findCall(out, "get_U") == nil {
		t.Fatal("expected a hoisted get_U() call for the dom(U) reference")
	}
}

func TestRewrite_WriteToGlobalEmitsGetMutateSetSequence(t *testing.T) {
	p := &ir.Program{Statements: []ir.Statement{
		ir.AssignVar("U", &ir.Map{}),
		&ir.Assign{
			LHS: &ir.FuncCall{Name: "[]", Args: []ir.Expression{&ir.Var{Name: "U"}, &ir.Var{Name: "email"}}},
			RHS: &ir.Str{Value: "pw"},
		},
	}}
	out := Rewrite(p)

	if findCall(out, "get_U") == nil {
		t.Fatal("expected the map-index write to hoist a get_U() read first")
	}
	if findCall(out, "set_U") == nil {
		t.Fatal("expected the map-index write to end with a set_U() call")
	}
}

func TestRewrite_NonGlobalAssignmentsPassThroughUnchanged(t *testing.T) {
	p := &ir.Program{Statements: []ir.Statement{
		ir.AssignVar("tmp", &ir.Str{Value: "hi"}),
	}}
	out := Rewrite(p)

	var found bool
	for _, s := range out.Statements {
		if as, ok := s.(*ir.Assign); ok {
			if v, ok := as.LHS.(*ir.Var); ok && v.Name == "tmp" {
				if str, ok := as.RHS.(*ir.Str); ok && str.Value == "hi" {
					found = true
				}
			}
		}
	}
	if !found {
		t.Fatal("expected a non-global assignment to survive the rewrite unchanged")
	}
}
