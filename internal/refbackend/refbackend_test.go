package refbackend

import (
	"testing"

	"github.com/funvibe/testgen/internal/ir"
)

func mustCall(t *testing.T, s *Store, name string, args ...ir.Expression) ir.Expression {
	t.Helper()
	callable, err := s.GetFunction(name, args)
	if err != nil {
		t.Fatalf("GetFunction(%s): %v", name, err)
	}
	result, err := callable.Execute()
	if err != nil {
		t.Fatalf("Execute(%s): %v", name, err)
	}
	return result
}

func TestStore_GetOnEmptyGlobalReturnsEmptyMap(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	got := mustCall(t, s, "get_U")
	m, ok := got.(*ir.Map)
	if !ok || len(m.Entries) != 0 {
		t.Fatalf("expected empty Map, got %#v", got)
	}
}

func TestStore_SetThenGetRoundTrips(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	m := &ir.Map{Entries: []ir.MapEntry{
		{Key: &ir.Var{Name: "alice@example.com"}, Value: &ir.Str{Value: "hunter2"}},
	}}
	mustCall(t, s, "set_U", m)

	got := mustCall(t, s, "get_U").(*ir.Map)
	if len(got.Entries) != 1 || got.Entries[0].Key.Name != "alice@example.com" || got.Entries[0].Value.(*ir.Str).Value != "hunter2" {
		t.Fatalf("unexpected roundtrip result: %#v", got)
	}
}

func TestStore_SetReplacesPriorEntries(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	mustCall(t, s, "set_U", &ir.Map{Entries: []ir.MapEntry{
		{Key: &ir.Var{Name: "a"}, Value: &ir.Str{Value: "1"}},
	}})
	mustCall(t, s, "set_U", &ir.Map{Entries: []ir.MapEntry{
		{Key: &ir.Var{Name: "b"}, Value: &ir.Str{Value: "2"}},
	}})

	got := mustCall(t, s, "get_U").(*ir.Map)
	if len(got.Entries) != 1 || got.Entries[0].Key.Name != "b" {
		t.Fatalf("expected only the latest set to survive, got %#v", got)
	}
}

func TestStore_ResetClearsAllGlobals(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	mustCall(t, s, "set_U", &ir.Map{Entries: []ir.MapEntry{
		{Key: &ir.Var{Name: "a"}, Value: &ir.Str{Value: "1"}},
	}})
	mustCall(t, s, "reset")

	got := mustCall(t, s, "get_U").(*ir.Map)
	if len(got.Entries) != 0 {
		t.Fatalf("expected reset to clear globals, got %#v", got)
	}
}

func TestStore_UnrecognizedAPIErrors(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if _, err := s.GetFunction("createOrder", nil); err == nil {
		t.Fatal("expected an error for an unrecognized test API name")
	}
}
