package ir

// Builtins is the set of FuncCall names the engine interprets itself
// (arithmetic, comparisons, logic, set/map operations, length/at, input).
// Any FuncCall name not in this set is a backend API — its readiness
// depends on its arguments being fully concrete.
var Builtins = map[string]bool{
	"Add": true, "Sub": true, "Mul": true, "Div": true,
	"Eq": true, "Neq": true, "Lt": true, "Le": true, "Gt": true, "Ge": true,
	"And": true, "Or": true, "Not": true, "Implies": true,
	"in": true, "not_in": true, "contains": true,
	"union": true, "intersection": true, "difference": true,
	"dom": true, "subset": true, "[]": true, "put": true, "lookup": true,
	"len": true, "at": true, "input": true,
}

// IsBuiltin reports whether name is interpreted directly by SEE rather
// than dispatched to a backend Function Factory.
func IsBuiltin(name string) bool {
	return Builtins[name]
}
