package optimize

import (
	"codegen/analysis"
	"codegen/ir"
)

// CSE eliminates redundant recomputation within one basic block: if a later
// instruction has the identical opcode and identical non-assigned operands
// as an earlier one, and none of those operands were reassigned in
// between, it's rewritten into `assign dst, earlier_dst`.
type CSE struct {
	group *Group
}

// NewCSE constructs an unattached CSE step; AddStep wires it to its owning
// Group.
func NewCSE() *CSE { return &CSE{} }

func (s *CSE) Name() string      { return "common-subexpression-elimination" }
func (s *CSE) setGroup(g *Group) { s.group = g }

// ExecuteBlock runs one CSE pass over block, returning true if it changed
// anything.
func (s *CSE) ExecuteBlock(ch *ir.CodeHolder, block *analysis.BasicBlock, mask uint32) bool {
	var candidates []ir.Address
	hasChanges := false

	for c := block.Begin; c < block.End; c++ {
		inst := ch.Code[c]

		if !eligibleForCSE(inst) {
			continue
		}
		if _, hasAssign := inst.Assigns(); !hasAssign {
			continue
		}

		if match, ok := findMatch(ch.Code, candidates, inst, c); ok {
			matchedDest, _ := ch.Code[match].Assigns()
			newInst := ir.Instruction{
				Op: ir.Assign,
				Operands: [3]ir.Value{
					inst.Operands[inst.Info().AssignsOperandIdx],
					ir.RegisterValue(matchedDest, ch.Code[match].Operands[ch.Code[match].Info().AssignsOperandIdx].Type()),
				},
				Src: inst.Src,
			}
			ch.Code[c] = newInst
			hasChanges = true
			continue
		}

		candidates = append(candidates, c)
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

// eligibleForCSE excludes instructions CSE never considers as a candidate
// or a match target: `load` (side-effect-free load elision is handled by
// ReduceMemoryAccess instead, not here), `assign` (already the rewrite
// target form) and `reserve` (never produces an expression worth reusing).
func eligibleForCSE(inst ir.Instruction) bool {
	switch inst.Op {
	case ir.Load, ir.Assign, ir.Reserve:
		return false
	}
	return true
}

// findMatch scans candidates (earlier same-block instructions, in order)
// for one with the same opcode and equivalent non-assigned operands as
// inst, where none of those operands were reassigned between the candidate
// and c.
func findMatch(code []ir.Instruction, candidates []ir.Address, inst ir.Instruction, c ir.Address) (ir.Address, bool) {
	aidx := inst.Info().AssignsOperandIdx

	for _, cand := range candidates {
		expr := code[cand]
		if expr.Op != inst.Op {
			continue
		}
		if !operandsEquivalent(expr, inst, aidx) {
			continue
		}
		if reassignedBetween(code, expr, cand, c) {
			continue
		}
		return cand, true
	}
	return 0, false
}

func operandsEquivalent(a, b ir.Instruction, assignIdx uint8) bool {
	count := int(a.Info().OperandCount)
	for idx := 0; idx < count; idx++ {
		if uint8(idx) == assignIdx {
			continue
		}
		if !a.Operands[idx].Equivalent(b.Operands[idx]) {
			return false
		}
	}
	return true
}

// reassignedBetween reports whether any non-assigned operand register of
// expr (at address exprAddr) is reassigned anywhere in (exprAddr, upTo).
func reassignedBetween(code []ir.Instruction, expr ir.Instruction, exprAddr, upTo ir.Address) bool {
	info := expr.Info()
	for i := exprAddr + 1; i < upTo; i++ {
		assigned, ok := code[i].Assigns()
		if !ok {
			continue
		}
		for idx := 0; idx < int(info.OperandCount); idx++ {
			if uint8(idx) == info.AssignsOperandIdx {
				continue
			}
			op := expr.Operands[idx]
			if op.IsRegister() && op.Register() == assigned {
				return true
			}
		}
	}
	return false
}
