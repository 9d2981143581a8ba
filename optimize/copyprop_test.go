package optimize

import (
	"testing"

	"codegen/analysis"
	"codegen/ir"
	"codegen/types"
)

func TestCopyPropagationChasesAssignChain(t *testing.T) {
	reg := types.NewRegistry()
	i64 := reg.Primitive("i64")

	r1 := ir.RegisterValue(1, i64)
	r2 := ir.RegisterValue(2, i64)
	r3 := ir.RegisterValue(3, i64)
	code := []ir.Instruction{
		{Op: ir.Assign, Operands: [3]ir.Value{r1, ir.ImmediateValue(7, i64)}},
		{Op: ir.Assign, Operands: [3]ir.Value{r2, r1}},
		{Op: ir.IAdd, Operands: [3]ir.Value{r3, r2, ir.ImmediateValue(1, i64)}},
	}
	ch := ir.NewCodeHolder(code)
	labels := analysis.RebuildLabels(ch)
	cfg := analysis.NewControlFlowGraph(ch.Code, labels)

	s := NewCopyPropagation()
	for s.ExecuteBlock(ch, &cfg.Blocks[0], 0xFFFFFFFF) {
	}

	last := ch.Code[2]
	if !last.Operands[1].IsImmediate() {
		t.Fatalf("expected r2's use to be chased back to the immediate 7, got %v", last.Operands[1])
	}
	if last.Operands[1].ImmBits() != 7 {
		t.Errorf("chased value = %d, want 7", last.Operands[1].ImmBits())
	}
}

func TestCopyPropagationStopsAtReassignment(t *testing.T) {
	reg := types.NewRegistry()
	i64 := reg.Primitive("i64")

	r1 := ir.RegisterValue(1, i64)
	r2 := ir.RegisterValue(2, i64)
	code := []ir.Instruction{
		{Op: ir.Assign, Operands: [3]ir.Value{r1, ir.ImmediateValue(7, i64)}},
		{Op: ir.Assign, Operands: [3]ir.Value{r1, ir.ImmediateValue(9, i64)}},
		{Op: ir.Assign, Operands: [3]ir.Value{r2, r1}},
	}
	ch := ir.NewCodeHolder(code)
	labels := analysis.RebuildLabels(ch)
	cfg := analysis.NewControlFlowGraph(ch.Code, labels)

	s := NewCopyPropagation()
	for s.ExecuteBlock(ch, &cfg.Blocks[0], 0xFFFFFFFF) {
	}

	last := ch.Code[2]
	if !last.Operands[1].IsImmediate() || last.Operands[1].ImmBits() != 9 {
		t.Errorf("expected r2's use chased to the most recent assignment (9), got %v", last.Operands[1])
	}
}

func TestCopyPropagationPreservesTypeOnNonVectorSubstitution(t *testing.T) {
	reg := types.NewRegistry()
	i32 := reg.Primitive("i32")
	f32 := reg.Primitive("f32")

	r1 := ir.RegisterValue(1, f32)
	r2 := ir.RegisterValue(2, i32)
	r3 := ir.RegisterValue(3, i32)
	code := []ir.Instruction{
		{Op: ir.Assign, Operands: [3]ir.Value{r1, ir.ImmediateValue(0, f32)}},
		{Op: ir.Assign, Operands: [3]ir.Value{r2, r1}},
		{Op: ir.IAdd, Operands: [3]ir.Value{r3, r2, ir.ImmediateValue(1, i32)}},
	}
	ch := ir.NewCodeHolder(code)
	labels := analysis.RebuildLabels(ch)
	cfg := analysis.NewControlFlowGraph(ch.Code, labels)

	s := NewCopyPropagation()
	for s.ExecuteBlock(ch, &cfg.Blocks[0], 0xFFFFFFFF) {
	}

	last := ch.Code[2]
	if last.Operands[1].Type() != i32 {
		t.Errorf("substituted operand should keep the pre-pass type i32 at that slot, got %v", last.Operands[1].Type())
	}
}
