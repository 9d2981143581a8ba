package interp

import (
	"testing"

	"codegen/analysis"
	"codegen/ir"
	"codegen/types"
)

func TestVMIntegerArithmetic(t *testing.T) {
	reg := types.NewRegistry()
	i64 := reg.Primitive("i64")
	dest := ir.RegisterValue(1, i64)

	tests := []struct {
		name string
		op   ir.OpCode
		a, b int64
		want int64
	}{
		{"add", ir.IAdd, 3, 4, 7},
		{"sub", ir.ISub, 10, 4, 6},
		{"mul", ir.IMul, 6, 7, 42},
		{"div", ir.IDiv, 20, 4, 5},
		{"mod", ir.IMod, 20, 6, 2},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ch := ir.NewCodeHolder([]ir.Instruction{
				{Op: tc.op, Operands: [3]ir.Value{dest, ir.ImmediateValue(uint64(tc.a), i64), ir.ImmediateValue(uint64(tc.b), i64)}},
				{Op: ir.Ret, Operands: [3]ir.Value{dest}},
			})
			analysis.RebuildLabels(ch)
			vm := NewVM(ch)
			vm.Execute()

			bits, _ := vm.ReturnValue()
			if int64(bits) != tc.want {
				t.Errorf("%s(%d,%d) = %d, want %d", tc.name, tc.a, tc.b, int64(bits), tc.want)
			}
		})
	}
}

func TestVMFloatArithmeticUsesFloat32Width(t *testing.T) {
	reg := types.NewRegistry()
	f32 := reg.Primitive("f32")
	dest := ir.RegisterValue(1, f32)

	ch := ir.NewCodeHolder([]ir.Instruction{
		{Op: ir.FAdd, Operands: [3]ir.Value{dest, ir.ImmediateValue(bitsOf(float32(1.5)), f32), ir.ImmediateValue(bitsOf(float32(2.25)), f32)}},
		{Op: ir.Ret, Operands: [3]ir.Value{dest}},
	})
	analysis.RebuildLabels(ch)
	vm := NewVM(ch)
	vm.Execute()

	bits, _ := vm.ReturnValue()
	if got := bitsAs[float32](bits); got != 3.75 {
		t.Errorf("1.5+2.25 (f32) = %v, want 3.75", got)
	}
}

func TestVMDoubleArithmeticUsesFloat64Width(t *testing.T) {
	reg := types.NewRegistry()
	f64 := reg.Primitive("f64")
	dest := ir.RegisterValue(1, f64)

	ch := ir.NewCodeHolder([]ir.Instruction{
		{Op: ir.DMul, Operands: [3]ir.Value{dest, ir.ImmediateValue(bitsOf(float64(2)), f64), ir.ImmediateValue(bitsOf(float64(3.5)), f64)}},
		{Op: ir.Ret, Operands: [3]ir.Value{dest}},
	})
	analysis.RebuildLabels(ch)
	vm := NewVM(ch)
	vm.Execute()

	bits, _ := vm.ReturnValue()
	if got := bitsAs[float64](bits); got != 7 {
		t.Errorf("2*3.5 (f64) = %v, want 7", got)
	}
}

func TestVMComparisonProducesBoolean(t *testing.T) {
	reg := types.NewRegistry()
	i64 := reg.Primitive("i64")
	dest := ir.RegisterValue(1, i64)

	ch := ir.NewCodeHolder([]ir.Instruction{
		{Op: ir.ILt, Operands: [3]ir.Value{dest, ir.ImmediateValue(3, i64), ir.ImmediateValue(5, i64)}},
		{Op: ir.Ret, Operands: [3]ir.Value{dest}},
	})
	analysis.RebuildLabels(ch)
	vm := NewVM(ch)
	vm.Execute()

	bits, _ := vm.ReturnValue()
	if bits != 1 {
		t.Errorf("3 < 5 should evaluate to 1, got %d", bits)
	}
}

func TestVMIncDecMutateInPlace(t *testing.T) {
	reg := types.NewRegistry()
	i64 := reg.Primitive("i64")
	r1 := ir.RegisterValue(1, i64)

	ch := ir.NewCodeHolder([]ir.Instruction{
		{Op: ir.Assign, Operands: [3]ir.Value{r1, ir.ImmediateValue(9, i64)}},
		{Op: ir.IInc, Operands: [3]ir.Value{r1}},
		{Op: ir.Ret, Operands: [3]ir.Value{r1}},
	})
	analysis.RebuildLabels(ch)
	vm := NewVM(ch)
	vm.Execute()

	bits, _ := vm.ReturnValue()
	if int64(bits) != 10 {
		t.Errorf("IInc(9) = %d, want 10", int64(bits))
	}
}
