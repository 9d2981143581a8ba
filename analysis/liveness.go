package analysis

import "codegen/ir"

// RegisterLifetime is one contiguous (possibly re-extended) live range for
// a register: [Begin, End], inclusive of both the defining and last using
// instruction.
type RegisterLifetime struct {
	Reg        ir.VRegID
	Begin, End ir.Address
	UsageCount uint16
	IsFP       bool
}

// IsConcurrent reports whether l and o overlap in address range, which a
// register allocator would use to decide two lifetimes conflict.
func (l RegisterLifetime) IsConcurrent(o RegisterLifetime) bool {
	return !(l.End < o.Begin || o.End < l.Begin)
}

// LivenessData computes, per register, the disjoint set of instruction
// ranges across which its value is live. It implements ir.LivenessIndex.
type LivenessData struct {
	Lifetimes []RegisterLifetime
	byReg     map[ir.VRegID][]int
}

// NewLivenessData computes liveness for code, using labels to resolve
// backward-branch range extension.
func NewLivenessData(code []ir.Instruction, labels ir.LabelIndex) *LivenessData {
	ld := &LivenessData{byReg: make(map[ir.VRegID][]int)}
	ld.rebuild(code, labels)
	return ld
}

func (ld *LivenessData) rebuild(code []ir.Instruction, labels ir.LabelIndex) {
	ld.Lifetimes = nil
	ld.byReg = make(map[ir.VRegID][]int)
	if len(code) == 0 {
		return
	}

	for i := range code {
		reg, ok := code[i].Assigns()
		if !ok {
			continue
		}
		if ld.isLiveReg(reg, ir.Address(i)) {
			continue
		}

		assignedType := code[i].Operands[code[i].Info().AssignsOperandIdx].Type()
		isFP := assignedType != nil && assignedType.Info().IsFloatingPoint

		l := RegisterLifetime{Reg: reg, Begin: ir.Address(i), End: ir.Address(i), IsFP: isFP}

		again := true
		for again {
			for i1 := int(l.End) + 1; i1 < len(code); i1++ {
				assigned, hasAssign := code[i1].Assigns()
				if hasAssign && assigned == l.Reg {
					if code[i1].Involves(l.Reg) && instructionUsesBeyondAssign(code[i1], l.Reg) {
						l.UsageCount++
						l.End = ir.Address(i1)
						continue
					}
					break
				}
				if code[i1].Involves(l.Reg) {
					l.End = ir.Address(i1)
					l.UsageCount++
				}
			}

			again = false
			for i1 := int(l.End) + 1; i1 < len(code); i1++ {
				instr := code[i1]
				var targetLabel ir.LabelID
				switch instr.Op {
				case ir.Jump:
					targetLabel = instr.Operands[0].Label()
				case ir.Branch:
					targetLabel = instr.Operands[1].Label()
				default:
					continue
				}
				jaddr, ok := labels.Get(targetLabel)
				if !ok || int(jaddr) > i1 {
					continue
				}
				if l.Begin < jaddr && l.End >= jaddr && int(l.End) < i1 {
					l.End = ir.Address(i1)
					again = true
				}
			}
		}

		idx := len(ld.Lifetimes)
		ld.Lifetimes = append(ld.Lifetimes, l)
		ld.byReg[l.Reg] = append(ld.byReg[l.Reg], idx)
	}
}

// instructionUsesBeyondAssign reports whether inst reads reg's value in
// addition to assigning it (e.g. `iinc r1` both reads and writes r1, while
// a plain `assign r1, v` only writes it).
func instructionUsesBeyondAssign(inst ir.Instruction, reg ir.VRegID) bool {
	info := inst.Info()
	for idx := 0; idx < int(info.OperandCount); idx++ {
		if uint8(idx) == info.AssignsOperandIdx {
			continue
		}
		op := inst.Operands[idx]
		if op.IsRegister() && op.Register() == reg {
			return true
		}
	}
	return false
}

func (ld *LivenessData) isLiveReg(reg ir.VRegID, at ir.Address) bool {
	for _, idx := range ld.byReg[reg] {
		r := ld.Lifetimes[idx]
		if r.Begin <= at && at <= r.End {
			return true
		}
	}
	return false
}

// RangesOf returns every disjoint lifetime recorded for reg.
func (ld *LivenessData) RangesOf(reg ir.VRegID) []RegisterLifetime {
	idxs := ld.byReg[reg]
	out := make([]RegisterLifetime, len(idxs))
	for i, idx := range idxs {
		out[i] = ld.Lifetimes[idx]
	}
	return out
}

// IsLiveAt reports whether reg holds a live value at address at. Implements
// ir.LivenessIndex.
func (ld *LivenessData) IsLiveAt(reg ir.VRegID, at ir.Address) bool {
	return ld.isLiveReg(reg, at)
}

// UsageCount sums the usage counts across every disjoint lifetime recorded
// for reg; zero means the defining instruction is dead. Implements
// ir.LivenessIndex.
func (ld *LivenessData) UsageCount(reg ir.VRegID) int {
	total := 0
	for _, idx := range ld.byReg[reg] {
		total += int(ld.Lifetimes[idx].UsageCount)
	}
	return total
}

// RebuildLiveness computes fresh liveness data for ch.Code using its
// already-rebuilt label index, and installs it.
func RebuildLiveness(ch *ir.CodeHolder) *LivenessData {
	ld := NewLivenessData(ch.Code, ch.Labels())
	ch.SetLiveness(ld)
	return ld
}

// RebuildAll recomputes labels, CFG and liveness in dependency order and
// installs all three onto ch.
func RebuildAll(ch *ir.CodeHolder) {
	RebuildLabels(ch)
	RebuildCFG(ch)
	RebuildLiveness(ch)
}
