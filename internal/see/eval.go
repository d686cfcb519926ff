package see

import "github.com/funvibe/testgen/internal/ir"

// registerBaseName records suffixed (e.g. "email7") under its unsuffixed
// base ("email") in sigma, so a postcondition written against the base
// name resolves to whatever suffixed binding currently holds its value.
// A name with no trailing digits has no suffix to strip and is left
// alone.
func registerBaseName(sigma *Sigma, suffixed string) {
	i := len(suffixed)
	for i > 0 && suffixed[i-1] >= '0' && suffixed[i-1] <= '9' {
		i--
	}
	if i == len(suffixed) || i == 0 {
		return
	}
	sigma.RegisterBaseName(suffixed[:i], suffixed)
}

// isSymbolic reports whether e still carries an unresolved unknown,
// following sigma through Var references. An unbound Var is symbolic: it
// is a free input nobody has evaluated yet.
func isSymbolic(e ir.Expression, sigma *Sigma) bool {
	switch v := e.(type) {
	case *ir.SymVar:
		return true
	case *ir.Num, *ir.Str, *ir.Bool:
		return false
	case *ir.Var:
		bound, ok := sigma.Get(v.Name)
		if !ok {
			return true
		}
		return isSymbolic(bound, sigma)
	case *ir.BinaryOp:
		return isSymbolic(v.Left, sigma) || isSymbolic(v.Right, sigma)
	case *ir.UnaryOp:
		return isSymbolic(v.Operand, sigma)
	case *ir.FuncCall:
		for _, a := range v.Args {
			if isSymbolic(a, sigma) {
				return true
			}
		}
		return false
	case *ir.Set:
		for _, el := range v.Elements {
			if isSymbolic(el, sigma) {
				return true
			}
		}
		return false
	case *ir.Tuple:
		for _, el := range v.Elements {
			if isSymbolic(el, sigma) {
				return true
			}
		}
		return false
	case *ir.Map:
		for _, kv := range v.Entries {
			if isSymbolic(kv.Value, sigma) {
				return true
			}
		}
		return false
	default:
		return true
	}
}

// isReady reports whether s can run against the current store: every
// statement is ready except an Assign whose right-hand side is a
// non-builtin (backend API) FuncCall carrying at least one still-symbolic
// argument.
func isReady(s ir.Statement, sigma *Sigma) bool {
	as, ok := s.(*ir.Assign)
	if !ok {
		return true
	}
	fc, ok := as.RHS.(*ir.FuncCall)
	if !ok || ir.IsBuiltin(fc.Name) {
		return true
	}
	for _, a := range fc.Args {
		if isSymbolic(a, sigma) {
			return false
		}
	}
	return true
}

// isConcreteVal reports whether e is fully ground: no SymVar or unbound
// Var reachable from it. evalBuiltin uses this to decide between constant
// folding and leaving a structural FuncCall for the SMT encoder.
func isConcreteVal(e ir.Expression) bool {
	switch v := e.(type) {
	case *ir.Num, *ir.Str, *ir.Bool:
		return true
	case *ir.Set:
		for _, el := range v.Elements {
			if !isConcreteVal(el) {
				return false
			}
		}
		return true
	case *ir.Tuple:
		for _, el := range v.Elements {
			if !isConcreteVal(el) {
				return false
			}
		}
		return true
	case *ir.Map:
		for _, kv := range v.Entries {
			if !isConcreteVal(kv.Value) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func exprEqual(a, b ir.Expression) bool {
	return a.String() == b.String()
}

func mustNum(e ir.Expression) int64 {
	if n, ok := e.(*ir.Num); ok {
		return n.Value
	}
	return 0
}

func mustBool(e ir.Expression) bool {
	if b, ok := e.(*ir.Bool); ok {
		return b.Value
	}
	if n, ok := e.(*ir.Num); ok {
		return n.Value != 0
	}
	return false
}

func mustStr(e ir.Expression) string {
	if s, ok := e.(*ir.Str); ok {
		return s.Value
	}
	return e.String()
}

// canonicalKey derives the string a Map lookup keys on. Map keys are
// always Var nodes per the IR invariant, but the value being indexed with
// at runtime (post rewriteGlobals) may be any concrete literal, so lookups
// compare on each side's printed form.
func canonicalKey(e ir.Expression) string {
	if s, ok := e.(*ir.Str); ok {
		return s.Value
	}
	return e.String()
}

func mapPut(m *ir.Map, key, value ir.Expression) *ir.Map {
	k := canonicalKey(key)
	entries := make([]ir.MapEntry, 0, len(m.Entries)+1)
	replaced := false
	for _, kv := range m.Entries {
		if kv.Key.Name == k {
			entries = append(entries, ir.MapEntry{Key: kv.Key, Value: value})
			replaced = true
			continue
		}
		entries = append(entries, kv)
	}
	if !replaced {
		entries = append(entries, ir.MapEntry{Key: &ir.Var{Name: k}, Value: value})
	}
	return &ir.Map{Entries: entries}
}

func mapGet(m *ir.Map, key ir.Expression) (ir.Expression, bool) {
	k := canonicalKey(key)
	for _, kv := range m.Entries {
		if kv.Key.Name == k {
			return kv.Value, true
		}
	}
	return nil, false
}

// evalBuiltin applies the built-in's semantics to already-evaluated args.
// If every arg is concrete it constant-folds to a literal; otherwise it
// returns a structural FuncCall carrying the (partially) evaluated args,
// deferring full interpretation to the SMT encoder.
func evalBuiltin(name string, args []ir.Expression) ir.Expression {
	concrete := true
	for _, a := range args {
		if !isConcreteVal(a) {
			concrete = false
			break
		}
	}
	if !concrete {
		return &ir.FuncCall{Name: name, Args: args}
	}

	switch name {
	case "Add":
		return &ir.Num{Value: mustNum(args[0]) + mustNum(args[1])}
	case "Sub":
		return &ir.Num{Value: mustNum(args[0]) - mustNum(args[1])}
	case "Mul":
		return &ir.Num{Value: mustNum(args[0]) * mustNum(args[1])}
	case "Div":
		denom := mustNum(args[1])
		if denom == 0 {
			return &ir.FuncCall{Name: name, Args: args}
		}
		return &ir.Num{Value: mustNum(args[0]) / denom}
	case "Eq":
		return &ir.Bool{Value: exprEqual(args[0], args[1])}
	case "Neq":
		return &ir.Bool{Value: !exprEqual(args[0], args[1])}
	case "Lt":
		return &ir.Bool{Value: mustNum(args[0]) < mustNum(args[1])}
	case "Le":
		return &ir.Bool{Value: mustNum(args[0]) <= mustNum(args[1])}
	case "Gt":
		return &ir.Bool{Value: mustNum(args[0]) > mustNum(args[1])}
	case "Ge":
		return &ir.Bool{Value: mustNum(args[0]) >= mustNum(args[1])}
	case "And":
		return &ir.Bool{Value: mustBool(args[0]) && mustBool(args[1])}
	case "Or":
		return &ir.Bool{Value: mustBool(args[0]) || mustBool(args[1])}
	case "Implies":
		return &ir.Bool{Value: !mustBool(args[0]) || mustBool(args[1])}
	case "Not":
		return &ir.Bool{Value: !mustBool(args[0])}
	case "in":
		return &ir.Bool{Value: setContains(args[1], args[0])}
	case "not_in":
		return &ir.Bool{Value: !setContains(args[1], args[0])}
	case "contains":
		return &ir.Bool{Value: setContains(args[0], args[1])}
	case "union":
		return setUnion(args[0], args[1])
	case "intersection":
		return setIntersect(args[0], args[1])
	case "difference":
		return setDiff(args[0], args[1])
	case "subset":
		return &ir.Bool{Value: setSubset(args[0], args[1])}
	case "dom":
		m, ok := args[0].(*ir.Map)
		if !ok {
			return &ir.FuncCall{Name: name, Args: args}
		}
		elems := make([]ir.Expression, len(m.Entries))
		for i, kv := range m.Entries {
			elems[i] = &ir.Str{Value: kv.Key.Name}
		}
		return &ir.Set{Elements: elems}
	case "[]", "lookup":
		m, ok := args[0].(*ir.Map)
		if !ok {
			return &ir.FuncCall{Name: name, Args: args}
		}
		if v, ok := mapGet(m, args[1]); ok {
			return v
		}
		return &ir.FuncCall{Name: name, Args: args}
	case "put":
		m, ok := args[0].(*ir.Map)
		if !ok {
			m = &ir.Map{}
		}
		return mapPut(m, args[1], args[2])
	case "len":
		switch v := args[0].(type) {
		case *ir.Set:
			return &ir.Num{Value: int64(len(v.Elements))}
		case *ir.Tuple:
			return &ir.Num{Value: int64(len(v.Elements))}
		case *ir.Map:
			return &ir.Num{Value: int64(len(v.Entries))}
		case *ir.Str:
			return &ir.Num{Value: int64(len(v.Value))}
		default:
			return &ir.FuncCall{Name: name, Args: args}
		}
	case "at":
		idx := mustNum(args[1])
		if tup, ok := args[0].(*ir.Tuple); ok && idx >= 0 && int(idx) < len(tup.Elements) {
			return tup.Elements[idx]
		}
		return &ir.FuncCall{Name: name, Args: args}
	default:
		return &ir.FuncCall{Name: name, Args: args}
	}
}

func setElements(e ir.Expression) ([]ir.Expression, bool) {
	s, ok := e.(*ir.Set)
	if !ok {
		return nil, false
	}
	return s.Elements, true
}

func setContains(set, elem ir.Expression) bool {
	elems, ok := setElements(set)
	if !ok {
		return false
	}
	for _, e := range elems {
		if exprEqual(e, elem) {
			return true
		}
	}
	return false
}

func setUnion(a, b ir.Expression) ir.Expression {
	ae, _ := setElements(a)
	be, _ := setElements(b)
	out := append([]ir.Expression{}, ae...)
	for _, e := range be {
		if !setContains(&ir.Set{Elements: out}, e) {
			out = append(out, e)
		}
	}
	return &ir.Set{Elements: out}
}

func setIntersect(a, b ir.Expression) ir.Expression {
	ae, _ := setElements(a)
	var out []ir.Expression
	for _, e := range ae {
		if setContains(b, e) {
			out = append(out, e)
		}
	}
	return &ir.Set{Elements: out}
}

func setDiff(a, b ir.Expression) ir.Expression {
	ae, _ := setElements(a)
	var out []ir.Expression
	for _, e := range ae {
		if !setContains(b, e) {
			out = append(out, e)
		}
	}
	return &ir.Set{Elements: out}
}

func setSubset(a, b ir.Expression) bool {
	ae, _ := setElements(a)
	for _, e := range ae {
		if !setContains(b, e) {
			return false
		}
	}
	return true
}
