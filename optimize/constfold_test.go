package optimize

import (
	"testing"

	"codegen/analysis"
	"codegen/ir"
	"codegen/types"
)

func TestConstantFoldingFoldsIntegerAdd(t *testing.T) {
	reg := types.NewRegistry()
	i64 := reg.Primitive("i64")

	dest := ir.RegisterValue(1, i64)
	ch := ir.NewCodeHolder([]ir.Instruction{
		{Op: ir.IAdd, Operands: [3]ir.Value{dest, ir.ImmediateValue(2, i64), ir.ImmediateValue(3, i64)}},
	})
	analysis.RebuildAll(ch)

	s := NewConstantFolding()
	s.Execute(ch, 0xFFFFFFFF)

	if ch.Code[0].Op != ir.Assign {
		t.Fatalf("expected the folded instruction to become an Assign, got %v", ch.Code[0].Op)
	}
	if got := ch.Code[0].Operands[1].ImmBits(); got != 5 {
		t.Errorf("folded 2+3 = %d, want 5", got)
	}
}

func TestConstantFoldingLeavesRegisterOperandsAlone(t *testing.T) {
	reg := types.NewRegistry()
	i64 := reg.Primitive("i64")

	dest := ir.RegisterValue(2, i64)
	src := ir.RegisterValue(1, i64)
	ch := ir.NewCodeHolder([]ir.Instruction{
		{Op: ir.IAdd, Operands: [3]ir.Value{dest, src, ir.ImmediateValue(3, i64)}},
	})
	analysis.RebuildAll(ch)

	s := NewConstantFolding()
	s.Execute(ch, 0xFFFFFFFF)

	if ch.Code[0].Op != ir.IAdd {
		t.Errorf("an add with a register operand must not be folded, got %v", ch.Code[0].Op)
	}
}

func TestConstantFoldingSkipsDivisionByZero(t *testing.T) {
	reg := types.NewRegistry()
	i64 := reg.Primitive("i64")

	dest := ir.RegisterValue(1, i64)
	ch := ir.NewCodeHolder([]ir.Instruction{
		{Op: ir.IDiv, Operands: [3]ir.Value{dest, ir.ImmediateValue(10, i64), ir.ImmediateValue(0, i64)}},
	})
	analysis.RebuildAll(ch)

	s := NewConstantFolding()
	s.Execute(ch, 0xFFFFFFFF)

	if ch.Code[0].Op != ir.IDiv {
		t.Errorf("division by zero must not be folded away, got %v", ch.Code[0].Op)
	}
}
