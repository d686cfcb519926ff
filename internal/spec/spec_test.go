package spec

import (
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/funvibe/testgen/internal/ir"
)

const registerLoginYAML = `
inits:
  - name: U
    expr: { map: [] }
blocks:
  - name: register
    call:
      name: register
      args:
        - { var: email }
        - { var: pw }
    response:
      code: 200
      post:
        binop:
          op: EQ
          left: { call: { name: "'", args: [ { var: U } ] } }
          right:
            call:
              name: put
              args:
                - { var: U }
                - { var: email }
                - { var: pw }
  - name: login
    pre:
      binop:
        op: EQ
        left: { call: { name: lookup, args: [ { var: U }, { var: email } ] } }
        right: { var: pw }
    call:
      name: login
      args:
        - { var: email }
        - { var: pw }
    response:
      code: 200
`

func TestLoadYAML_ParsesGlobalsAndBlocks(t *testing.T) {
	s, err := LoadYAML([]byte(registerLoginYAML))
	if err != nil {
		t.Fatalf("LoadYAML: %v", err)
	}

	if len(s.Blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(s.Blocks))
	}

	globals := s.Globals()
	if !globals["U"] || len(globals) != 1 {
		t.Fatalf("expected {U} as the only declared global, got %v", globals)
	}

	register, ok := s.FindBlock("register")
	if !ok {
		t.Fatal("FindBlock(register) not found")
	}
	if register.Call.Name != "register" || len(register.Call.Args) != 2 {
		t.Fatalf("unexpected register call shape: %#v", register.Call)
	}
	if register.Response.Code != 200 || register.Response.Post == nil {
		t.Fatalf("expected a postcondition on register, got %#v", register.Response)
	}

	login, ok := s.FindBlock("login")
	if !ok {
		t.Fatal("FindBlock(login) not found")
	}
	if login.Pre == nil {
		t.Fatal("expected login to carry a precondition")
	}
}

func TestMarshalYAML_RoundTripsThroughLoadYAML(t *testing.T) {
	first, err := LoadYAML([]byte(registerLoginYAML))
	if err != nil {
		t.Fatalf("LoadYAML: %v", err)
	}

	data, err := yaml.Marshal(first)
	if err != nil {
		t.Fatalf("yaml.Marshal: %v", err)
	}

	second, err := LoadYAML(data)
	if err != nil {
		t.Fatalf("LoadYAML of marshalled spec: %v\nmarshalled:\n%s", err, data)
	}

	g := second.Globals()
	if len(g) != 1 || !g["U"] {
		t.Fatalf("expected the empty-map init to survive the round trip as a declared global, got %v (marshalled:\n%s)", g, data)
	}

	if len(second.Inits) != len(first.Inits) || len(second.Blocks) != len(first.Blocks) {
		t.Fatalf("round trip changed the spec's shape: %d/%d inits, %d/%d blocks", len(second.Inits), len(first.Inits), len(second.Blocks), len(first.Blocks))
	}
	for i := range first.Inits {
		if second.Inits[i].Name != first.Inits[i].Name || second.Inits[i].Expr.String() != first.Inits[i].Expr.String() {
			t.Errorf("init %d changed: %s := %s vs %s := %s", i, second.Inits[i].Name, second.Inits[i].Expr, first.Inits[i].Name, first.Inits[i].Expr)
		}
	}
	for i := range first.Blocks {
		fb, sb := first.Blocks[i], second.Blocks[i]
		if sb.Name != fb.Name || sb.Call.String() != fb.Call.String() || sb.Response.Code != fb.Response.Code {
			t.Errorf("block %d changed: %#v vs %#v", i, sb, fb)
		}
		if exprText(sb.Pre) != exprText(fb.Pre) {
			t.Errorf("block %s pre changed: %s vs %s", fb.Name, exprText(sb.Pre), exprText(fb.Pre))
		}
		if exprText(sb.Response.Post) != exprText(fb.Response.Post) {
			t.Errorf("block %s post changed: %s vs %s", fb.Name, exprText(sb.Response.Post), exprText(fb.Response.Post))
		}
	}
}

func exprText(e ir.Expression) string {
	if e == nil {
		return "<nil>"
	}
	return e.String()
}

func TestLoadYAML_RejectsEmptyExpressionNode(t *testing.T) {
	const badYAML = `
inits:
  - name: U
    expr: {}
blocks: []
`
	if _, err := LoadYAML([]byte(badYAML)); err == nil {
		t.Fatal("expected an error for an expression node with no variant set")
	}
}

func TestSpec_GlobalsIgnoresNonEmptyInits(t *testing.T) {
	s := &Spec{Inits: []Init{
		{Name: "U", Expr: &ir.Map{}},
		{Name: "count", Expr: &ir.Num{Value: 0}},
		{Name: "seed", Expr: &ir.Map{Entries: []ir.MapEntry{{Key: &ir.Var{Name: "k"}, Value: &ir.Num{Value: 1}}}}},
	}}
	g := s.Globals()
	if len(g) != 1 || !g["U"] {
		t.Fatalf("expected only the empty-map init to count as a declared global, got %v", g)
	}
}

func TestSpec_FindBlockMissingReturnsFalse(t *testing.T) {
	s := &Spec{}
	if _, ok := s.FindBlock("nope"); ok {
		t.Fatal("expected ok=false for a missing block")
	}
}
