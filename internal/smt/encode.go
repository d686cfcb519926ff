// Package smt turns a collected path constraint into an SMT-LIB v2 query,
// invokes an external solver process, and parses its model back into
// concrete values.
package smt

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/funvibe/testgen/internal/ir"
)

// Every program symbol this encoder declares is String-sorted: the IR
// carries no static types, so rather than guess a sort per SymVar this
// encoder keeps one uniform sort and models every operator — arithmetic,
// comparison, set and map access — as an uninterpreted function or
// predicate over strings, parsing the model's quoted literals back on the
// way out rather than declaring a distinct sort per variable. The
// exceptions are the Dom_<G>/Val_<G> arrays declared for global maps and
// the Bool-valued predicates.
// Subexpressions that SEE's structural evaluator could already fold to a
// literal never reach this encoder in symbolic form; only what's still
// unresolved does.
const symbolSort = "String"

// Globals names the declared global maps, letting the encoder recognize
// `[]`/`dom` calls whose base is a global and emit a paired
// Dom_<name>/Val_<name> array instead of a single opaque uninterpreted
// call.
type Globals map[string]bool

// Context is everything the encoder needs beyond the constraint list
// itself: which SymVar ids are named program inputs (so they get the
// in_<name> declaration the model parser keys on), which base names are
// global maps, and which SymVar ids stand in for a global that SEE could
// not resolve concretely. A still-symbolic global reference never reaches
// the encoder as a bare Var — evalExpr replaces every Var with either a
// concrete value or a fresh SymVar before a constraint is ever recorded —
// so GlobalAliases is how the encoder recovers which global a given
// SymVar came from.
type Context struct {
	Constraints   []ir.Expression
	InputNames    map[int64]string // SymVar.ID -> input variable name
	Globals       Globals
	GlobalAliases map[int64]string // SymVar.ID -> global base name
}

type Encoder struct {
	ctx          Context
	symvarNames  map[int64]string
	preludeFuncs map[string]arity
	domVals      map[string]bool // base names that got a Dom_/Val_ pair
}

type arity struct {
	args int
	bool bool // true if the function returns Bool, else String
}

// Prelude are the fixed uninterpreted Bool predicates declared
// in every query's prelude (name -> argument count): application-level
// state tests that spec pre/post conditions apply directly as conditions,
// with no IR-level definition of their own.
var Prelude = map[string]int{
	"authenticated": 1,
	"token_present": 1,
	"cart_contains": 2,
}

func NewEncoder(ctx Context) *Encoder {
	enc := &Encoder{
		ctx:          ctx,
		symvarNames:  map[int64]string{},
		preludeFuncs: map[string]arity{},
		domVals:      map[string]bool{},
	}
	for name, argc := range Prelude {
		enc.preludeFuncs[name] = arity{args: argc, bool: true}
	}
	return enc
}

// Encode produces a complete SMT-LIB script: declarations, the uninterpreted
// prelude, one assert per constraint, and (check-sat)/(get-model).
func (enc *Encoder) Encode() string {
	for id, name := range enc.ctx.InputNames {
		enc.symvarNames[id] = "in_" + name
	}

	var body []string
	for _, c := range enc.ctx.Constraints {
		body = append(body, enc.toSMT(c, true))
	}

	var sb strings.Builder
	sb.WriteString("(set-logic ALL)\n")
	sb.WriteString("(set-option :produce-models true)\n")

	for _, name := range enc.sortedSymbolNames() {
		sb.WriteString(fmt.Sprintf("(declare-const %s %s)\n", name, symbolSort))
	}
	for _, base := range enc.sortedDomValBases() {
		sb.WriteString(fmt.Sprintf("(declare-const Dom_%s (Array %s Bool))\n", base, symbolSort))
		sb.WriteString(fmt.Sprintf("(declare-const Val_%s (Array %s %s))\n", base, symbolSort, symbolSort))
	}
	for _, sig := range enc.sortedPreludeNames() {
		a := enc.preludeFuncs[sig]
		ret := symbolSort
		if a.bool {
			ret = "Bool"
		}
		args := strings.Repeat(symbolSort+" ", a.args)
		sb.WriteString(fmt.Sprintf("(declare-fun %s (%s) %s)\n", sig, strings.TrimSpace(args), ret))
	}

	guards := make([]string, 0, len(enc.ctx.InputNames))
	for _, name := range enc.ctx.InputNames {
		guards = append(guards, name)
	}
	sort.Strings(guards)
	for _, name := range guards {
		sb.WriteString(fmt.Sprintf("(assert (> (str.len in_%s) 0))\n", name))
	}

	for i, expr := range body {
		sb.WriteString(fmt.Sprintf("(assert (! %s :named c%d))\n", expr, i+1))
	}

	sb.WriteString("(check-sat)\n(get-model)\n")
	return sb.String()
}

func (enc *Encoder) sortedDomValBases() []string {
	out := make([]string, 0, len(enc.domVals))
	for base := range enc.domVals {
		out = append(out, base)
	}
	sort.Strings(out)
	return out
}

func (enc *Encoder) sortedSymbolNames() []string {
	out := make([]string, 0, len(enc.symvarNames))
	for _, n := range enc.symvarNames {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (enc *Encoder) sortedPreludeNames() []string {
	out := make([]string, 0, len(enc.preludeFuncs))
	for n := range enc.preludeFuncs {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (enc *Encoder) symvarName(v *ir.SymVar) string {
	if name, ok := enc.symvarNames[v.ID]; ok {
		return name
	}
	name := "v" + strconv.FormatInt(v.ID, 10)
	enc.symvarNames[v.ID] = name
	return name
}

func quoteString(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// registerPrelude records that name must be declared as an uninterpreted
// function of the given arity and return sort, then returns its SMT text.
func (enc *Encoder) registerPrelude(name string, boolResult bool, args ...string) string {
	enc.preludeFuncs[name] = arity{args: len(args), bool: boolResult}
	return fmt.Sprintf("(%s %s)", name, strings.Join(args, " "))
}

// toSMT encodes e, with boolCtx reporting whether the surrounding
// position demands a Bool-sorted term (the top of an assert, an operand
// of a logical connective) — that is what decides the declared return
// sort of an otherwise-unknown uninterpreted call.
func (enc *Encoder) toSMT(e ir.Expression, boolCtx bool) string {
	switch v := e.(type) {
	case *ir.Num:
		return quoteString(strconv.FormatInt(v.Value, 10))
	case *ir.Str:
		return quoteString(v.Value)
	case *ir.Bool:
		if v.Value {
			return "true"
		}
		return "false"
	case *ir.SymVar:
		return enc.symvarName(v)
	case *ir.Var:
		// A Var reaching the encoder means SEE never bound it — treat its
		// name as the symbol directly, matching an input declared but
		// never evaluated.
		return v.Name
	case *ir.BinaryOp:
		return enc.binaryOp(v)
	case *ir.UnaryOp:
		return fmt.Sprintf("(not %s)", enc.toSMT(v.Operand, true))
	case *ir.FuncCall:
		return enc.funcCall(v, boolCtx)
	case *ir.Set:
		return quoteString(v.String())
	case *ir.Tuple:
		return quoteString(v.String())
	case *ir.Map:
		return quoteString(v.String())
	default:
		return quoteString(e.String())
	}
}

func (enc *Encoder) binaryOp(v *ir.BinaryOp) string {
	if v.Op == ir.EQ {
		if g := enc.globalLookupGuard(v.Left, v.Right); g != "" {
			return g
		}
		if g := enc.globalLookupGuard(v.Right, v.Left); g != "" {
			return g
		}
	}
	switch v.Op {
	case ir.AND:
		return fmt.Sprintf("(and %s %s)", enc.toSMT(v.Left, true), enc.toSMT(v.Right, true))
	case ir.OR:
		return fmt.Sprintf("(or %s %s)", enc.toSMT(v.Left, true), enc.toSMT(v.Right, true))
	case ir.IMPLIES:
		return fmt.Sprintf("(=> %s %s)", enc.toSMT(v.Left, true), enc.toSMT(v.Right, true))
	}
	l, r := enc.toSMT(v.Left, false), enc.toSMT(v.Right, false)
	switch v.Op {
	case ir.EQ:
		return fmt.Sprintf("(= %s %s)", l, r)
	case ir.NEQ:
		return fmt.Sprintf("(not (= %s %s))", l, r)
	case ir.LT:
		return enc.registerPrelude("Lt", true, l, r)
	case ir.LE:
		return enc.registerPrelude("Le", true, l, r)
	case ir.GT:
		return enc.registerPrelude("Gt", true, l, r)
	case ir.GE:
		return enc.registerPrelude("Ge", true, l, r)
	case ir.IN:
		return enc.registerPrelude("SetIn", true, l, r)
	case ir.NOT_IN:
		return fmt.Sprintf("(not %s)", enc.registerPrelude("SetIn", true, l, r))
	default:
		return enc.registerPrelude(string(v.Op), true, l, r)
	}
}

// funcCall dispatches built-in FuncCall names to either a native SMT-LIB
// form, the Dom_/Val_ array pair for a recognized global map, or a generic
// uninterpreted prelude declaration for everything else. A call with no
// special case that sits in a boolean position — a bare application-state
// predicate asserted directly, the way spec conditions apply
// authenticated(...) or cart_contains(...) — is declared Bool, never
// String: an assert on a String-sorted term is a sort error.
func (enc *Encoder) funcCall(fc *ir.FuncCall, boolCtx bool) string {
	switch fc.Name {
	case "Eq":
		if g := enc.globalLookupGuard(fc.Args[0], fc.Args[1]); g != "" {
			return g
		}
		if g := enc.globalLookupGuard(fc.Args[1], fc.Args[0]); g != "" {
			return g
		}
		args := enc.encodeArgs(fc.Args, false)
		return fmt.Sprintf("(= %s %s)", args[0], args[1])
	case "Neq":
		args := enc.encodeArgs(fc.Args, false)
		return fmt.Sprintf("(not (= %s %s))", args[0], args[1])
	case "And":
		args := enc.encodeArgs(fc.Args, true)
		return fmt.Sprintf("(and %s %s)", args[0], args[1])
	case "Or":
		args := enc.encodeArgs(fc.Args, true)
		return fmt.Sprintf("(or %s %s)", args[0], args[1])
	case "Not":
		args := enc.encodeArgs(fc.Args, true)
		return fmt.Sprintf("(not %s)", args[0])
	case "Implies":
		args := enc.encodeArgs(fc.Args, true)
		return fmt.Sprintf("(=> %s %s)", args[0], args[1])
	case "Lt", "Le", "Gt", "Ge":
		return enc.registerPrelude(fc.Name, true, enc.encodeArgs(fc.Args, false)...)
	case "in":
		return enc.membership(fc.Args, enc.encodeArgs(fc.Args, false))
	case "not_in":
		return fmt.Sprintf("(not %s)", enc.membership(fc.Args, enc.encodeArgs(fc.Args, false)))
	case "[]", "lookup":
		args := enc.encodeArgs(fc.Args, false)
		if base, ok := enc.globalBase(fc.Args, 0); ok {
			return fmt.Sprintf("(select Val_%s %s)", base, args[1])
		}
		return enc.registerPrelude("MapAccess", false, args...)
	case "dom":
		if base, ok := enc.globalBase(fc.Args, 0); ok {
			return "Dom_" + base
		}
		return enc.registerPrelude("Dom", false, enc.encodeArgs(fc.Args, false)...)
	default:
		args := enc.encodeArgs(fc.Args, false)
		_, fixed := Prelude[fc.Name]
		return enc.registerPrelude(fc.Name, fixed || boolCtx, args...)
	}
}

func (enc *Encoder) encodeArgs(args []ir.Expression, boolCtx bool) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = enc.toSMT(a, boolCtx)
	}
	return out
}

// globalLookupGuard encodes `G[k] = v` for a recognized global G as a
// combined domain-membership and value equality over the Dom_G/Val_G
// pair, so a model cannot satisfy the value equation through a key the
// map never contained. Returns "" when lookup is not a global-map index.
func (enc *Encoder) globalLookupGuard(lookup, value ir.Expression) string {
	fc, ok := lookup.(*ir.FuncCall)
	if !ok || (fc.Name != "[]" && fc.Name != "lookup") || len(fc.Args) != 2 {
		return ""
	}
	base, ok := enc.globalBase(fc.Args, 0)
	if !ok {
		return ""
	}
	key := enc.toSMT(fc.Args[1], false)
	return fmt.Sprintf("(and (select Dom_%s %s) (= (select Val_%s %s) %s))",
		base, key, base, key, enc.toSMT(value, false))
}

// membership encodes `in(elem, set)`, special-casing `in(elem, dom(G))` for
// a recognized global G into a (select Dom_G elem) array lookup rather than
// the generic opaque SetIn prelude.
func (enc *Encoder) membership(rawArgs []ir.Expression, encodedArgs []string) string {
	if len(rawArgs) == 2 {
		if domCall, ok := rawArgs[1].(*ir.FuncCall); ok && domCall.Name == "dom" && len(domCall.Args) == 1 {
			if base, ok := enc.globalBase(domCall.Args, 0); ok {
				return fmt.Sprintf("(select Dom_%s %s)", base, encodedArgs[0])
			}
		}
	}
	return enc.registerPrelude("SetIn", true, encodedArgs...)
}

// globalBase reports whether fc.Args[idx] names a declared global map, so
// [](G, k) can be encoded through the Dom_G/Val_G arrays rather than a
// fully opaque uninterpreted call. It recognizes the bare global name (the
// shape a hand-built Context can still use directly) and, for a SymVar
// that SEE minted in place of an unresolved tmp_<G>_<n> alias, whatever
// global ctx.GlobalAliases says that SymVar stands in for.
func (enc *Encoder) globalBase(args []ir.Expression, idx int) (string, bool) {
	if idx >= len(args) {
		return "", false
	}
	var base string
	var ok bool
	switch v := args[idx].(type) {
	case *ir.Var:
		base, ok = ResolveGlobalAlias(v.Name, enc.ctx.Globals)
	case *ir.SymVar:
		base, ok = enc.ctx.GlobalAliases[v.ID]
	}
	if !ok {
		return "", false
	}
	enc.registerDomVal(base)
	return base, true
}

// ResolveGlobalAlias maps name to the declared global it refers to, either
// directly or through a tmp_<global>_<n> hoisted alias, so a caller
// building a Context can populate GlobalAliases by name before any SymVar
// ids exist.
func ResolveGlobalAlias(name string, globals Globals) (string, bool) {
	if globals[name] {
		return name, true
	}
	rest := strings.TrimPrefix(name, "tmp_")
	if rest == name {
		return "", false
	}
	sep := strings.LastIndex(rest, "_")
	if sep <= 0 {
		return "", false
	}
	base, suffix := rest[:sep], rest[sep+1:]
	if _, err := strconv.Atoi(suffix); err != nil {
		return "", false
	}
	if !globals[base] {
		return "", false
	}
	return base, true
}

func (enc *Encoder) registerDomVal(base string) {
	enc.domVals[base] = true
}
