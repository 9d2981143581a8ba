package builder

import (
	"testing"

	"codegen/ir"
	"codegen/logging"
	"codegen/types"
)

func TestValidationOffByDefaultAllowsStructuralViolations(t *testing.T) {
	reg := types.NewRegistry()
	fn := newTestFunc(reg, "f", nil, nil)
	b := New(fn, logging.Nop())

	l := b.Label()
	if ref := b.PlaceLabel(l); ref.Get().Op != ir.Label {
		t.Fatalf("expected PlaceLabel to emit a Label instruction")
	}
	if ref := b.PlaceLabel(l); ref.Get().Op != ir.Label {
		t.Errorf("with validation disabled, redefining a label should still emit")
	}
}

func TestValidationRejectsLabelReuse(t *testing.T) {
	reg := types.NewRegistry()
	fn := newTestFunc(reg, "f", nil, nil)
	b := New(fn, logging.Nop())
	b.EnableValidation()

	l := b.Label()
	if ref := b.PlaceLabel(l); ref.Get().Op != ir.Label {
		t.Fatalf("first PlaceLabel should succeed")
	}
	before := len(b.Code())
	b.PlaceLabel(l)
	if len(b.Code()) != before {
		t.Errorf("redefining an already-placed label should not emit a second Label instruction")
	}
}

func TestValidationRejectsUnknownLabel(t *testing.T) {
	reg := types.NewRegistry()
	fn := newTestFunc(reg, "f", nil, nil)
	b := New(fn, logging.Nop())
	b.EnableValidation()

	before := len(b.Code())
	b.PlaceLabel(ir.LabelID(99))
	if len(b.Code()) != before {
		t.Errorf("placing a label id never returned by Label() should not emit")
	}
}

func TestValidationRejectsStackIDNotAllocated(t *testing.T) {
	reg := types.NewRegistry()
	i64 := reg.Primitive("i64")
	fn := newTestFunc(reg, "f", nil, nil)
	b := New(fn, logging.Nop())
	b.EnableValidation()

	before := len(b.Code())
	b.StackPtr(i64.PointerTo(), ir.StackID(7))
	if len(b.Code()) != before {
		t.Errorf("stack_ptr referencing an unallocated id should not emit")
	}
}

func TestValidationRejectsDoubleStackFree(t *testing.T) {
	reg := types.NewRegistry()
	fn := newTestFunc(reg, "f", nil, nil)
	b := New(fn, logging.Nop())
	b.EnableValidation()

	id, _ := b.StackAlloc(8)
	b.StackFree(id)
	before := len(b.Code())
	b.StackFree(id)
	if len(b.Code()) != before {
		t.Errorf("freeing an already-freed stack allocation should not emit a second stack_free")
	}
}

func TestValidationRejectsSecondThisPtr(t *testing.T) {
	reg := types.NewRegistry()
	i64 := reg.Primitive("i64")
	sig := types.NewSignature("method", nil, nil, i64)
	fn := types.NewFunction("method", "method", sig)
	b := New(fn, logging.Nop())
	b.EnableValidation()

	before := len(b.Code())
	other := b.Val(i64.PointerTo())
	b.ThisPtr(other)
	if len(b.Code()) != before {
		t.Errorf("a second this_ptr for the same function should not emit")
	}
}

func TestValidationRejectsArgumentOutOfRange(t *testing.T) {
	reg := types.NewRegistry()
	i64 := reg.Primitive("i64")
	fn := newTestFunc(reg, "f", []ir.DataType{i64}, nil)
	b := New(fn, logging.Nop())
	b.EnableValidation()

	before := len(b.Code())
	b.Argument(b.Val(i64), 5)
	if len(b.Code()) != before {
		t.Errorf("binding an out-of-range argument index should not emit")
	}
}

func TestValidationRejectsArgumentIndexReuse(t *testing.T) {
	reg := types.NewRegistry()
	i64 := reg.Primitive("i64")
	fn := newTestFunc(reg, "f", []ir.DataType{i64}, nil)
	b := New(fn, logging.Nop())
	b.EnableValidation()

	before := len(b.Code())
	b.Argument(b.Val(i64), 0)
	if len(b.Code()) != before {
		t.Errorf("rebinding an already-bound argument index should not emit")
	}
}

func TestValidationRejectsRetValueOnVoidFunction(t *testing.T) {
	reg := types.NewRegistry()
	i64 := reg.Primitive("i64")
	fn := newTestFunc(reg, "f", nil, nil)
	b := New(fn, logging.Nop())
	b.EnableValidation()

	before := len(b.Code())
	b.Ret(b.ImmI64(1, i64))
	if len(b.Code()) != before {
		t.Errorf("returning a value from a void function should not emit")
	}
}

func TestValidationRejectsMissingRetValueOnPrimitiveReturn(t *testing.T) {
	reg := types.NewRegistry()
	i64 := reg.Primitive("i64")
	fn := newTestFunc(reg, "f", nil, i64)
	b := New(fn, logging.Nop())
	b.EnableValidation()

	before := len(b.Code())
	b.Ret(ir.Value{})
	if len(b.Code()) != before {
		t.Errorf("a primitive-returning function must supply a ret value")
	}
}

func TestValidationAcceptsWellFormedPrimitiveRet(t *testing.T) {
	reg := types.NewRegistry()
	i64 := reg.Primitive("i64")
	fn := newTestFunc(reg, "f", nil, i64)
	b := New(fn, logging.Nop())
	b.EnableValidation()

	before := len(b.Code())
	b.Ret(b.ImmI64(1, i64))
	if len(b.Code()) != before+1 {
		t.Errorf("a well-formed ret should still emit with validation enabled")
	}
}

func TestValidationRejectsCallArityMismatchThroughTypedFunctionValue(t *testing.T) {
	reg := types.NewRegistry()
	i64 := reg.Primitive("i64")
	calleeSig := types.NewSignature("add", []ir.DataType{i64, i64}, i64, nil)

	fn := newTestFunc(reg, "caller", nil, nil)
	b := New(fn, logging.Nop())
	b.EnableValidation()

	fnVal := ir.RegisterValue(b.Val(i64).Register(), calleeSig)
	b.Param(b.ImmI64(1, i64))

	before := len(b.Code())
	b.Call(fnVal, b.Val(i64), ir.Value{})
	if len(b.Code()) != before {
		t.Errorf("calling a 2-argument callee with only 1 staged param should not emit")
	}
}
