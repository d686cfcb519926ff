package ir

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// String renders e deterministically: Set elements are sorted by their own
// printed form before joining, since Set order carries no semantic meaning
// but output must still be reproducible run to run.
func (n *Num) String() string  { return strconv.FormatInt(n.Value, 10) }
func (s *Str) String() string  { return strconv.Quote(s.Value) }
func (b *Bool) String() string { return strconv.FormatBool(b.Value) }
func (v *Var) String() string  { return v.Name }
func (sv *SymVar) String() string {
	return "X" + strconv.FormatInt(sv.ID, 10)
}

func (s *Set) String() string {
	parts := make([]string, len(s.Elements))
	for i, e := range s.Elements {
		parts[i] = e.String()
	}
	sort.Strings(parts)
	return "{" + strings.Join(parts, ", ") + "}"
}

func (m *Map) String() string {
	parts := make([]string, len(m.Entries))
	for i, kv := range m.Entries {
		parts[i] = kv.Key.String() + " -> " + kv.Value.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (t *Tuple) String() string {
	parts := make([]string, len(t.Elements))
	for i, e := range t.Elements {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func (f *FuncCall) String() string {
	parts := make([]string, len(f.Args))
	for i, a := range f.Args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", f.Name, strings.Join(parts, ", "))
}

var binOpText = map[BinOp]string{
	EQ: "=", NEQ: "!=", LT: "<", LE: "<=", GT: ">", GE: ">=",
	AND: "And", OR: "Or", IMPLIES: "Implies", IN: "In", NOT_IN: "NotIn",
}

func (b *BinaryOp) String() string {
	return fmt.Sprintf("(%s %s %s)", binOpText[b.Op], b.Left.String(), b.Right.String())
}

var unOpText = map[UnOp]string{NOT: "Not"}

func (u *UnaryOp) String() string {
	return fmt.Sprintf("(%s %s)", unOpText[u.Op], u.Operand.String())
}

func (a *Assign) String() string { return a.LHS.String() + " := " + a.RHS.String() }
func (a *Assume) String() string { return "assume(" + a.Cond.String() + ")" }
func (a *Assert) String() string { return "assert(" + a.Cond.String() + ")" }
func (i *Input) String() string  { return i.Var.String() + " := input()" }
func (d *Decl) String() string   { return "decl " + d.Name }

// PrintProgram renders a full program, one statement per line.
func PrintProgram(p *Program) string {
	var b strings.Builder
	for _, s := range p.Statements {
		b.WriteString(s.String())
		b.WriteByte('\n')
	}
	return b.String()
}
