package spec

import (
	"fmt"

	"github.com/funvibe/testgen/internal/ir"
	"gopkg.in/yaml.v3"
)

// yamlExpr is the wire shape of an ir.Expression: exactly one field set.
// Decoding happens in two stages — parse into this plain struct, then
// build the real in-memory value from whichever field is non-nil.
type yamlExpr struct {
	Num    *int64      `yaml:"num,omitempty"`
	Str    *string     `yaml:"str,omitempty"`
	Bool   *bool       `yaml:"bool,omitempty"`
	Var    *string     `yaml:"var,omitempty"`
	Set    []yamlExpr  `yaml:"set,omitempty"`
	Map    []yamlEntry `yaml:"map,omitempty"`
	Tuple  []yamlExpr  `yaml:"tuple,omitempty"`
	Call   *yamlCall   `yaml:"call,omitempty"`
	BinOp  *yamlBinOp  `yaml:"binop,omitempty"`
	UnOp   *yamlUnOp   `yaml:"unop,omitempty"`
	// IsMap distinguishes an explicit empty map ("map: []") from an
	// unset field, so a declared-global Init of `{}` round-trips.
	IsMap bool `yaml:"-"`
}

func (e *yamlExpr) UnmarshalYAML(value *yaml.Node) error {
	type plain yamlExpr
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*e = yamlExpr(p)
	for i := range value.Content {
		if i%2 == 0 && value.Content[i].Value == "map" {
			e.IsMap = true
		}
	}
	return nil
}

// MarshalYAML emits exactly one field per node, so the wire shape stays
// the one-variant-set form UnmarshalYAML expects. An empty Map still
// emits `map: []` — the omitempty on the struct tag would drop it, and a
// declared-global Init of `{}` has to survive a round trip.
func (e yamlExpr) MarshalYAML() (interface{}, error) {
	switch {
	case e.Num != nil:
		return map[string]int64{"num": *e.Num}, nil
	case e.Str != nil:
		return map[string]string{"str": *e.Str}, nil
	case e.Bool != nil:
		return map[string]bool{"bool": *e.Bool}, nil
	case e.Var != nil:
		return map[string]string{"var": *e.Var}, nil
	case e.Set != nil:
		return map[string][]yamlExpr{"set": e.Set}, nil
	case e.IsMap:
		entries := e.Map
		if entries == nil {
			entries = []yamlEntry{}
		}
		return map[string][]yamlEntry{"map": entries}, nil
	case e.Tuple != nil:
		return map[string][]yamlExpr{"tuple": e.Tuple}, nil
	case e.Call != nil:
		return map[string]*yamlCall{"call": e.Call}, nil
	case e.BinOp != nil:
		return map[string]*yamlBinOp{"binop": e.BinOp}, nil
	case e.UnOp != nil:
		return map[string]*yamlUnOp{"unop": e.UnOp}, nil
	default:
		return nil, fmt.Errorf("spec: empty expression node")
	}
}

type yamlEntry struct {
	Key   string   `yaml:"key"`
	Value yamlExpr `yaml:"value"`
}

type yamlCall struct {
	Name string     `yaml:"name"`
	Args []yamlExpr `yaml:"args"`
}

type yamlBinOp struct {
	Op    string   `yaml:"op"`
	Left  yamlExpr `yaml:"left"`
	Right yamlExpr `yaml:"right"`
}

type yamlUnOp struct {
	Op      string   `yaml:"op"`
	Operand yamlExpr `yaml:"operand"`
}

func (e yamlExpr) toIR() (ir.Expression, error) {
	switch {
	case e.Num != nil:
		return &ir.Num{Value: *e.Num}, nil
	case e.Str != nil:
		return &ir.Str{Value: *e.Str}, nil
	case e.Bool != nil:
		return &ir.Bool{Value: *e.Bool}, nil
	case e.Var != nil:
		return &ir.Var{Name: *e.Var}, nil
	case e.Set != nil:
		elems := make([]ir.Expression, len(e.Set))
		for i, el := range e.Set {
			conv, err := el.toIR()
			if err != nil {
				return nil, err
			}
			elems[i] = conv
		}
		return &ir.Set{Elements: elems}, nil
	case e.IsMap:
		entries := make([]ir.MapEntry, len(e.Map))
		for i, kv := range e.Map {
			val, err := kv.Value.toIR()
			if err != nil {
				return nil, err
			}
			entries[i] = ir.MapEntry{Key: &ir.Var{Name: kv.Key}, Value: val}
		}
		return &ir.Map{Entries: entries}, nil
	case e.Tuple != nil:
		elems := make([]ir.Expression, len(e.Tuple))
		for i, el := range e.Tuple {
			conv, err := el.toIR()
			if err != nil {
				return nil, err
			}
			elems[i] = conv
		}
		return &ir.Tuple{Elements: elems}, nil
	case e.Call != nil:
		args := make([]ir.Expression, len(e.Call.Args))
		for i, a := range e.Call.Args {
			conv, err := a.toIR()
			if err != nil {
				return nil, err
			}
			args[i] = conv
		}
		return &ir.FuncCall{Name: e.Call.Name, Args: args}, nil
	case e.BinOp != nil:
		l, err := e.BinOp.Left.toIR()
		if err != nil {
			return nil, err
		}
		r, err := e.BinOp.Right.toIR()
		if err != nil {
			return nil, err
		}
		return &ir.BinaryOp{Op: ir.BinOp(e.BinOp.Op), Left: l, Right: r}, nil
	case e.UnOp != nil:
		o, err := e.UnOp.Operand.toIR()
		if err != nil {
			return nil, err
		}
		return &ir.UnaryOp{Op: ir.UnOp(e.UnOp.Op), Operand: o}, nil
	default:
		return nil, fmt.Errorf("spec: empty expression node")
	}
}

// exprFromIR is toIR's inverse: build the wire shape back from an
// in-memory expression.
func exprFromIR(e ir.Expression) (yamlExpr, error) {
	switch v := e.(type) {
	case *ir.Num:
		n := v.Value
		return yamlExpr{Num: &n}, nil
	case *ir.Str:
		s := v.Value
		return yamlExpr{Str: &s}, nil
	case *ir.Bool:
		b := v.Value
		return yamlExpr{Bool: &b}, nil
	case *ir.Var:
		n := v.Name
		return yamlExpr{Var: &n}, nil
	case *ir.Set:
		elems := make([]yamlExpr, len(v.Elements))
		for i, el := range v.Elements {
			conv, err := exprFromIR(el)
			if err != nil {
				return yamlExpr{}, err
			}
			elems[i] = conv
		}
		return yamlExpr{Set: elems}, nil
	case *ir.Map:
		entries := make([]yamlEntry, len(v.Entries))
		for i, kv := range v.Entries {
			val, err := exprFromIR(kv.Value)
			if err != nil {
				return yamlExpr{}, err
			}
			entries[i] = yamlEntry{Key: kv.Key.Name, Value: val}
		}
		return yamlExpr{Map: entries, IsMap: true}, nil
	case *ir.Tuple:
		elems := make([]yamlExpr, len(v.Elements))
		for i, el := range v.Elements {
			conv, err := exprFromIR(el)
			if err != nil {
				return yamlExpr{}, err
			}
			elems[i] = conv
		}
		return yamlExpr{Tuple: elems}, nil
	case *ir.FuncCall:
		call, err := callFromIR(v)
		if err != nil {
			return yamlExpr{}, err
		}
		return yamlExpr{Call: call}, nil
	case *ir.BinaryOp:
		l, err := exprFromIR(v.Left)
		if err != nil {
			return yamlExpr{}, err
		}
		r, err := exprFromIR(v.Right)
		if err != nil {
			return yamlExpr{}, err
		}
		return yamlExpr{BinOp: &yamlBinOp{Op: string(v.Op), Left: l, Right: r}}, nil
	case *ir.UnaryOp:
		o, err := exprFromIR(v.Operand)
		if err != nil {
			return yamlExpr{}, err
		}
		return yamlExpr{UnOp: &yamlUnOp{Op: string(v.Op), Operand: o}}, nil
	default:
		return yamlExpr{}, fmt.Errorf("spec: cannot marshal expression kind %s", e.Kind())
	}
}

func callFromIR(fc *ir.FuncCall) (*yamlCall, error) {
	args := make([]yamlExpr, len(fc.Args))
	for i, a := range fc.Args {
		conv, err := exprFromIR(a)
		if err != nil {
			return nil, err
		}
		args[i] = conv
	}
	return &yamlCall{Name: fc.Name, Args: args}, nil
}

type yamlInit struct {
	Name string   `yaml:"name"`
	Expr yamlExpr `yaml:"expr"`
}

type yamlResponse struct {
	Code int       `yaml:"code"`
	Post *yamlExpr `yaml:"post,omitempty"`
}

type yamlAPI struct {
	Name     string       `yaml:"name"`
	Pre      *yamlExpr    `yaml:"pre,omitempty"`
	Call     yamlCall     `yaml:"call"`
	Response yamlResponse `yaml:"response"`
}

type yamlSpec struct {
	Inits  []yamlInit `yaml:"inits"`
	Blocks []yamlAPI  `yaml:"blocks"`
}

// MarshalYAML implements yaml.Marshaler, so yaml.Marshal on a Spec emits
// the same wire shape LoadYAML reads back.
func (s *Spec) MarshalYAML() (interface{}, error) {
	raw := yamlSpec{}
	for _, in := range s.Inits {
		e, err := exprFromIR(in.Expr)
		if err != nil {
			return nil, fmt.Errorf("spec: marshal init %s: %w", in.Name, err)
		}
		raw.Inits = append(raw.Inits, yamlInit{Name: in.Name, Expr: e})
	}
	for _, b := range s.Blocks {
		var pre *yamlExpr
		if b.Pre != nil {
			p, err := exprFromIR(b.Pre)
			if err != nil {
				return nil, fmt.Errorf("spec: marshal block %s pre: %w", b.Name, err)
			}
			pre = &p
		}
		call, err := callFromIR(b.Call)
		if err != nil {
			return nil, fmt.Errorf("spec: marshal block %s call: %w", b.Name, err)
		}
		var post *yamlExpr
		if b.Response.Post != nil {
			p, err := exprFromIR(b.Response.Post)
			if err != nil {
				return nil, fmt.Errorf("spec: marshal block %s post: %w", b.Name, err)
			}
			post = &p
		}
		raw.Blocks = append(raw.Blocks, yamlAPI{
			Name:     b.Name,
			Pre:      pre,
			Call:     *call,
			Response: yamlResponse{Code: b.Response.Code, Post: post},
		})
	}
	return raw, nil
}

// LoadYAML parses a YAML document into a Spec, matching the shape
// internal/ext/config.go uses for funxy.yaml: decode into a plain struct,
// then build the real (here, IR-bearing) value from it.
func LoadYAML(data []byte) (*Spec, error) {
	var raw yamlSpec
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("spec: parse yaml: %w", err)
	}

	s := &Spec{}
	for _, in := range raw.Inits {
		e, err := in.Expr.toIR()
		if err != nil {
			return nil, fmt.Errorf("spec: init %s: %w", in.Name, err)
		}
		s.Inits = append(s.Inits, Init{Name: in.Name, Expr: e})
	}

	for _, b := range raw.Blocks {
		var pre ir.Expression
		if b.Pre != nil {
			p, err := b.Pre.toIR()
			if err != nil {
				return nil, fmt.Errorf("spec: block %s pre: %w", b.Name, err)
			}
			pre = p
		}

		args := make([]ir.Expression, len(b.Call.Args))
		for i, a := range b.Call.Args {
			conv, err := a.toIR()
			if err != nil {
				return nil, fmt.Errorf("spec: block %s call arg: %w", b.Name, err)
			}
			args[i] = conv
		}
		call := &ir.FuncCall{Name: b.Call.Name, Args: args}

		var post ir.Expression
		if b.Response.Post != nil {
			p, err := b.Response.Post.toIR()
			if err != nil {
				return nil, fmt.Errorf("spec: block %s post: %w", b.Name, err)
			}
			post = p
		}

		s.Blocks = append(s.Blocks, API{
			Name: b.Name,
			Pre:  pre,
			Call: call,
			Response: Response{
				Code: b.Response.Code,
				Post: post,
			},
		})
	}

	return s, nil
}
