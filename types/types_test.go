package types

import (
	"testing"
	"unsafe"

	"codegen/ir"
)

func TestNewSignatureAndNewFunction(t *testing.T) {
	r := NewRegistry()
	i64 := r.Primitive("i64")

	sig := NewSignature("add", []ir.DataType{i64, i64}, i64, nil)
	if len(sig.Args()) != 2 {
		t.Fatalf("Args() = %d, want 2", len(sig.Args()))
	}
	if sig.ReturnType() != i64 {
		t.Errorf("ReturnType() = %v, want i64", sig.ReturnType())
	}
	if sig.ThisType() != nil {
		t.Errorf("ThisType() = %v, want nil for a free function", sig.ThisType())
	}

	fn := NewFunction("add", "add", sig)
	if fn.Name() != "add" || fn.FullName() != "add" {
		t.Errorf("Name/FullName mismatch: got %q/%q", fn.Name(), fn.FullName())
	}
	if fn.Signature() != sig {
		t.Errorf("Signature() did not return the constructed Signature")
	}
	if fn.CallHandler() != nil {
		t.Errorf("a freshly built Function should have no CallHandler yet")
	}
}

type fakeCallHandler struct{ called bool }

func (h *fakeCallHandler) Call(retDest uintptr, argPtrs []uintptr) { h.called = true }

func TestFunctionSetCallHandler(t *testing.T) {
	sig := NewSignature("noop", nil, nil, nil)
	fn := NewFunction("noop", "noop", sig)

	h := &fakeCallHandler{}
	fn.SetCallHandler(h)

	if fn.CallHandler() != ir.CallHandler(h) {
		t.Fatalf("CallHandler() did not return the installed handler")
	}
	fn.CallHandler().Call(0, nil)
	if !h.called {
		t.Errorf("expected Call to reach the installed handler")
	}
}

func TestTwoFunctionsGetDistinctSymbolIDs(t *testing.T) {
	sig := NewSignature("f", nil, nil, nil)
	a := NewFunction("f", "f", sig)
	b := NewFunction("f", "f", sig)

	if a.SymbolID() == b.SymbolID() {
		t.Errorf("distinct Function values should get distinct symbol ids")
	}
}

func TestNewValuePointer(t *testing.T) {
	r := NewRegistry()
	i64 := r.Primitive("i64")

	var backing int64 = 42
	vp := NewValuePointer("counter", i64, uintptr(unsafe.Pointer(&backing)))

	if vp.Name() != "counter" {
		t.Errorf("Name() = %q, want %q", vp.Name(), "counter")
	}
	if vp.Type() != i64 {
		t.Errorf("Type() did not round-trip")
	}
	if vp.Address() == 0 {
		t.Errorf("Address() should be non-zero for a bound variable")
	}
}
