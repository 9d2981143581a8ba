package optimize

import (
	"codegen/analysis"
	"codegen/ir"
)

// CopyPropagation replaces register operands with the value they were most
// recently copied from, within one basic block at a time. A register
// becomes a tracked copy source via `assign` or a zero-addend `uadd`/`iadd`;
// it stops being one the moment it's reassigned to anything else.
type CopyPropagation struct {
	group *Group
}

// NewCopyPropagation constructs an unattached CopyPropagation step; AddStep
// wires it to its owning Group.
func NewCopyPropagation() *CopyPropagation { return &CopyPropagation{} }

func (s *CopyPropagation) Name() string      { return "copy-propagation" }
func (s *CopyPropagation) setGroup(g *Group) { s.group = g }

// ExecuteBlock runs one propagation pass over block, returning true if it
// changed anything (the driving Group calls this repeatedly until false).
func (s *CopyPropagation) ExecuteBlock(ch *ir.CodeHolder, block *analysis.BasicBlock, mask uint32) bool {
	assignMap := make(map[ir.VRegID]ir.Value)
	hasChanges := false

	for c := block.Begin; c < block.End; c++ {
		inst := ch.Code[c]

		if isCopySource(inst) {
			dest := inst.Operands[0].Register()
			src := inst.Operands[1]

			if src.IsRegister() {
				if chased, ok := assignMap[src.Register()]; ok {
					replaced := chased.WithType(src.Type())
					inst.Operands[1] = replaced
					ch.Code[c] = inst
					hasChanges = true
					src = replaced
				}
			}

			assignMap[dest] = src
			continue
		}

		assigned, hasAssign := inst.Assigns()
		info := inst.Info()
		changed := false
		for idx := 0; idx < int(info.OperandCount); idx++ {
			op := inst.Operands[idx]
			if op.IsEmpty() {
				break
			}
			if op.IsImmediate() || (hasAssign && op.IsRegister() && op.Register() == assigned) {
				continue
			}
			if !op.IsRegister() {
				continue
			}
			src, ok := assignMap[op.Register()]
			if !ok {
				continue
			}
			replacement := src.WithType(op.Type())
			inst.Operands[idx] = replacement
			changed = true
		}
		if changed {
			ch.Code[c] = inst
			hasChanges = true
		}

		if hasAssign {
			delete(assignMap, assigned)
		}
	}

	if hasChanges {
		ch.InvalidateAnalyses()
		analysis.RebuildAll(ch)
		if s.group != nil {
			s.group.SetShouldRepeat(true)
		}
	}

	return hasChanges
}

// isCopySource reports whether inst records a pure copy of its destination
// register: `assign dst, src` always qualifies; `uadd`/`iadd dst, src, 0`
// qualifies because adding zero doesn't change src's value.
func isCopySource(inst ir.Instruction) bool {
	switch inst.Op {
	case ir.Assign:
		return true
	case ir.UAdd, ir.IAdd:
		return inst.Operands[2].IsImmediate() && inst.Operands[2].ImmBits() == 0
	}
	return false
}
