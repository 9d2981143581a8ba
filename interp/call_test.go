package interp

import (
	"unsafe"

	"testing"

	"codegen/analysis"
	"codegen/ir"
	"codegen/types"
)

type fakeCallHandler struct {
	called  bool
	gotArgs []uint64
}

func (h *fakeCallHandler) Call(retDest uintptr, argPtrs []uintptr) {
	h.called = true
	for _, p := range argPtrs {
		h.gotArgs = append(h.gotArgs, *(*uint64)(unsafe.Pointer(p)))
	}
	sum := uint64(0)
	for _, a := range h.gotArgs {
		sum += a
	}
	*(*uint64)(unsafe.Pointer(retDest)) = sum
}

type fakeResolver struct {
	handler *fakeCallHandler
	symbol  uint64
}

func (r *fakeResolver) Resolve(symbolID uint64) (ir.Function, bool) {
	if symbolID != r.symbol {
		return nil, false
	}
	return &fakeFunction{handler: r.handler}, true
}

type fakeFunction struct{ handler *fakeCallHandler }

func (f *fakeFunction) SymbolID() uint64                  { return 1 }
func (f *fakeFunction) Name() string                      { return "callee" }
func (f *fakeFunction) FullName() string                  { return "callee" }
func (f *fakeFunction) Signature() ir.FunctionType         { return nil }
func (f *fakeFunction) CallHandler() ir.CallHandler        { return f.handler }
func (f *fakeFunction) SetCallHandler(h ir.CallHandler)    {}

func TestVMCallMarshalsParamsAndResult(t *testing.T) {
	reg := types.NewRegistry()
	i64 := reg.Primitive("i64")
	a := ir.RegisterValue(1, i64)
	b := ir.RegisterValue(2, i64)
	dest := ir.RegisterValue(3, i64)

	ch := ir.NewCodeHolder([]ir.Instruction{
		{Op: ir.Assign, Operands: [3]ir.Value{a, ir.ImmediateValue(10, i64)}},
		{Op: ir.Assign, Operands: [3]ir.Value{b, ir.ImmediateValue(20, i64)}},
		{Op: ir.Param, Operands: [3]ir.Value{a}},
		{Op: ir.Param, Operands: [3]ir.Value{b}},
		{Op: ir.Call, Operands: [3]ir.Value{ir.ImmediateValue(1, nil), dest}},
		{Op: ir.Ret, Operands: [3]ir.Value{dest}},
	})
	analysis.RebuildLabels(ch)
	vm := NewVM(ch)

	handler := &fakeCallHandler{}
	vm.SetFunctionResolver(&fakeResolver{handler: handler, symbol: 1})
	vm.Execute()

	if !handler.called {
		t.Fatal("expected the call handler to be invoked")
	}
	bits, _ := vm.ReturnValue()
	if bits != 30 {
		t.Errorf("call result = %d, want 30 (10+20 marshaled through the handler)", bits)
	}
}

func TestVMCallWithUnresolvedSymbolDoesNotPanic(t *testing.T) {
	ch := ir.NewCodeHolder([]ir.Instruction{
		{Op: ir.Call, Operands: [3]ir.Value{ir.ImmediateValue(999, nil)}},
		{Op: ir.Ret},
	})
	analysis.RebuildLabels(ch)
	vm := NewVM(ch)
	vm.SetFunctionResolver(&fakeResolver{handler: &fakeCallHandler{}, symbol: 1})
	vm.Execute()
}
