package factory

import (
	"errors"
	"testing"

	"github.com/funvibe/testgen/internal/ir"
)

func TestNoop_ReturnsDeterministicPlaceholderPerCallName(t *testing.T) {
	f := Noop{}

	callable, err := f.GetFunction("register", []ir.Expression{&ir.Str{Value: "a@b.com"}})
	if err != nil {
		t.Fatalf("GetFunction: %v", err)
	}
	result, err := callable.Execute()
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	str, ok := result.(*ir.Str)
	if !ok || str.Value != "noop:register" {
		t.Fatalf("expected noop:register, got %v", result)
	}
}

func TestNoop_PlaceholderVariesByCallName(t *testing.T) {
	f := Noop{}

	a, _ := f.GetFunction("register", nil)
	b, _ := f.GetFunction("login", nil)
	aResult, _ := a.Execute()
	bResult, _ := b.Execute()

	if aResult.(*ir.Str).Value == bResult.(*ir.Str).Value {
		t.Fatal("expected distinct call names to produce distinct placeholder replies")
	}
}

func TestCallableFunc_AdaptsPlainFunctionToCallable(t *testing.T) {
	var c Callable = CallableFunc(func() (ir.Expression, error) {
		return nil, errors.New("boom")
	})
	_, err := c.Execute()
	if err == nil {
		t.Fatal("expected the adapted function's error to propagate through Execute")
	}
}
