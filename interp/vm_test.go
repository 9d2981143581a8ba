package interp

import (
	"testing"

	"codegen/analysis"
	"codegen/ir"
	"codegen/types"
)

func newExecutedVM(t *testing.T, code []ir.Instruction) *VM {
	t.Helper()
	ch := ir.NewCodeHolder(code)
	analysis.RebuildLabels(ch)
	vm := NewVM(ch)
	vm.Execute()
	return vm
}

func TestVMAssignAndRet(t *testing.T) {
	reg := types.NewRegistry()
	i64 := reg.Primitive("i64")
	r1 := ir.RegisterValue(1, i64)

	vm := newExecutedVM(t, []ir.Instruction{
		{Op: ir.Assign, Operands: [3]ir.Value{r1, ir.ImmediateValue(42, i64)}},
		{Op: ir.Ret, Operands: [3]ir.Value{r1}},
	})

	bits, typ := vm.ReturnValue()
	if bits != 42 {
		t.Errorf("return value = %d, want 42", bits)
	}
	if typ != i64 {
		t.Errorf("return type = %v, want i64", typ)
	}
}

func TestVMBranchTakesLabelWhenConditionFalse(t *testing.T) {
	reg := types.NewRegistry()
	i64 := reg.Primitive("i64")
	cond := ir.RegisterValue(1, i64)
	result := ir.RegisterValue(2, i64)
	const skip = ir.LabelID(1)

	vm := newExecutedVM(t, []ir.Instruction{
		{Op: ir.Assign, Operands: [3]ir.Value{cond, ir.ImmediateValue(0, i64)}},
		{Op: ir.Assign, Operands: [3]ir.Value{result, ir.ImmediateValue(7, i64)}},
		{Op: ir.Branch, Operands: [3]ir.Value{cond, ir.LabelValue(skip)}},
		{Op: ir.Assign, Operands: [3]ir.Value{result, ir.ImmediateValue(999, i64)}},
		{Op: ir.Label, Operands: [3]ir.Value{ir.ImmediateValue(uint64(skip), nil)}},
		{Op: ir.Ret, Operands: [3]ir.Value{result}},
	})

	bits, _ := vm.ReturnValue()
	if bits != 7 {
		t.Errorf("branch on a false condition should have skipped the 999 assignment; got %d", bits)
	}
}

func TestVMJumpEndsExecutionWhenLabelUnresolved(t *testing.T) {
	vm := newExecutedVM(t, []ir.Instruction{
		{Op: ir.Jump, Operands: [3]ir.Value{ir.LabelValue(ir.LabelID(99))}},
	})
	if !vm.halted {
		t.Errorf("jumping to an unresolved label should halt the VM rather than panic")
	}
}

func TestVMArgumentReadsSetArg(t *testing.T) {
	reg := types.NewRegistry()
	i64 := reg.Primitive("i64")
	dest := ir.RegisterValue(1, i64)

	ch := ir.NewCodeHolder([]ir.Instruction{
		{Op: ir.Argument, Operands: [3]ir.Value{dest, ir.ImmediateValue(0, nil)}},
		{Op: ir.Ret, Operands: [3]ir.Value{dest}},
	})
	analysis.RebuildLabels(ch)
	vm := NewVM(ch)
	vm.SetArg(0, 55, i64)
	vm.Execute()

	bits, _ := vm.ReturnValue()
	if bits != 55 {
		t.Errorf("argument 0 = %d, want 55", bits)
	}
}

func TestVMResetClearsState(t *testing.T) {
	reg := types.NewRegistry()
	i64 := reg.Primitive("i64")
	r1 := ir.RegisterValue(1, i64)

	ch := ir.NewCodeHolder([]ir.Instruction{
		{Op: ir.Assign, Operands: [3]ir.Value{r1, ir.ImmediateValue(42, i64)}},
		{Op: ir.Ret, Operands: [3]ir.Value{r1}},
	})
	analysis.RebuildLabels(ch)
	vm := NewVM(ch)
	vm.Execute()

	vm.Reset()
	if GetRegister[int64](vm, 1) != 0 {
		t.Errorf("Reset should clear the register file")
	}

	vm.Execute()
	bits, _ := vm.ReturnValue()
	if bits != 42 {
		t.Errorf("re-executing after Reset should reproduce the same result, got %d", bits)
	}
}

func TestGetSetRegisterRoundTripFloat64(t *testing.T) {
	reg := types.NewRegistry()
	f64 := reg.Primitive("f64")
	ch := ir.NewCodeHolder(nil)
	_ = f64
	vm := NewVM(ch)

	SetRegister[float64](vm, 3, 3.5)
	if got := GetRegister[float64](vm, 3); got != 3.5 {
		t.Errorf("GetRegister[float64] = %v, want 3.5", got)
	}
}
