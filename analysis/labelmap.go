// Package analysis computes the derived structures (label resolution,
// control-flow graph, liveness ranges) that the optimizer and interpreter
// both depend on, and installs them onto an ir.CodeHolder.
package analysis

import (
	"fmt"

	"codegen/ir"
)

// LabelMap resolves a label id to the address of its `label` pseudo
// instruction. It implements ir.LabelIndex.
type LabelMap struct {
	m map[ir.LabelID]ir.Address
}

// NewLabelMap builds a LabelMap from code.
func NewLabelMap(code []ir.Instruction) *LabelMap {
	lm := &LabelMap{m: make(map[ir.LabelID]ir.Address)}
	lm.rebuild(code)
	return lm
}

func (lm *LabelMap) rebuild(code []ir.Instruction) {
	for i, inst := range code {
		if inst.Op != ir.Label {
			continue
		}
		id := ir.LabelID(inst.Operands[0].ImmBits())
		lm.m[id] = ir.Address(i)
	}
}

// Get returns the address of label's `label` instruction.
func (lm *LabelMap) Get(label ir.LabelID) (ir.Address, bool) {
	addr, ok := lm.m[label]
	return addr, ok
}

// MustGet panics with a descriptive error for unresolved labels. Only used
// by internal callers that have already validated the label exists (the
// builder never emits a jump to a label it didn't allocate).
func (lm *LabelMap) MustGet(label ir.LabelID) ir.Address {
	addr, ok := lm.Get(label)
	if !ok {
		panic(fmt.Sprintf("analysis: unresolved label %d", label))
	}
	return addr
}

// RebuildLabels computes a fresh LabelMap for ch.Code and installs it.
func RebuildLabels(ch *ir.CodeHolder) *LabelMap {
	lm := NewLabelMap(ch.Code)
	ch.SetLabels(lm)
	return lm
}
