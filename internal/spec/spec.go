// Package spec is the declarative input model: global initializers and
// API blocks with pre/call/post triples.
package spec

import "github.com/funvibe/testgen/internal/ir"

// Init is one `name := expr` global initializer. An Init whose Expr is an
// empty Map marks name as a declared global.
type Init struct {
	Name string
	Expr ir.Expression
}

// Response is an API block's HTTP outcome: the status code and an
// optional post-condition asserted after the call.
type Response struct {
	Code int
	Post ir.Expression // nil if the block has no postcondition
}

// API is one named operation: an optional precondition, the call itself,
// and the response triple.
type API struct {
	Name     string
	Pre      ir.Expression // nil if the block has no precondition
	Call     *ir.FuncCall
	Response Response
}

// Spec is the full declarative service specification.
type Spec struct {
	Inits  []Init
	Blocks []API
}

// FindBlock returns the API named name, or ok=false if none matches.
func (s *Spec) FindBlock(name string) (*API, bool) {
	for i := range s.Blocks {
		if s.Blocks[i].Name == name {
			return &s.Blocks[i], true
		}
	}
	return nil, false
}

// Globals returns the set of names G whose Init is an empty-map literal.
func (s *Spec) Globals() map[string]bool {
	g := make(map[string]bool)
	for _, init := range s.Inits {
		if m, ok := init.Expr.(*ir.Map); ok && len(m.Entries) == 0 {
			g[init.Name] = true
		}
	}
	return g
}
