package analysis

import (
	"testing"

	"codegen/ir"
)

func TestLabelMapResolvesLabel(t *testing.T) {
	code := []ir.Instruction{
		{Op: ir.Noop},
		{Op: ir.Label, Operands: [3]ir.Value{ir.ImmediateValue(1, nil)}},
		{Op: ir.Noop},
	}
	lm := NewLabelMap(code)

	addr, ok := lm.Get(ir.LabelID(1))
	if !ok {
		t.Fatalf("expected label 1 to resolve")
	}
	if addr != 1 {
		t.Errorf("label 1 address = %d, want 1", addr)
	}

	if _, ok := lm.Get(ir.LabelID(99)); ok {
		t.Errorf("an unplaced label should not resolve")
	}
}

func TestLabelMapMustGetPanicsOnUnresolved(t *testing.T) {
	lm := NewLabelMap(nil)
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("MustGet should panic for an unresolved label")
		}
	}()
	lm.MustGet(ir.LabelID(5))
}

func TestRebuildLabelsInstallsOnCodeHolder(t *testing.T) {
	ch := ir.NewCodeHolder([]ir.Instruction{
		{Op: ir.Label, Operands: [3]ir.Value{ir.ImmediateValue(3, nil)}},
	})
	lm := RebuildLabels(ch)

	if ch.Labels() == nil {
		t.Fatalf("RebuildLabels should install the label index onto the CodeHolder")
	}
	if _, ok := ch.Labels().Get(ir.LabelID(3)); !ok {
		t.Errorf("installed label index should resolve label 3")
	}
	_ = lm
}
