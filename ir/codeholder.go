package ir

import "github.com/google/uuid"

// LabelIndex resolves a label to the address of its label instruction.
// Satisfied by analysis.LabelMap without ir importing analysis.
type LabelIndex interface {
	Get(LabelID) (Address, bool)
}

// BlockGraph exposes the basic-block partition of a function's code.
// Satisfied by analysis.ControlFlowGraph.
type BlockGraph interface {
	BlockContaining(Address) (int, bool)
	IsLoopHeader(Address) bool
}

// LivenessIndex exposes per-register lifetime data.
// Satisfied by analysis.LivenessData.
type LivenessIndex interface {
	UsageCount(VRegID) int
	IsLiveAt(VRegID, Address) bool
}

// CodeHolder binds one function's instruction stream to its derived
// analyses. The analyses are cached and explicitly invalidated/rebuilt —
// nothing recomputes them implicitly on every read, mirroring the upstream
// CodeHolder's explicit rebuild() calls.
type CodeHolder struct {
	BuildID uuid.UUID
	Code    []Instruction

	labels   LabelIndex
	cfg      BlockGraph
	liveness LivenessIndex
}

// NewCodeHolder wraps code with a fresh build id. The analyses start nil;
// callers must Rebuild* (or RebuildAll via the analysis package) before
// relying on Labels/CFG/Liveness.
func NewCodeHolder(code []Instruction) *CodeHolder {
	return &CodeHolder{
		BuildID: uuid.New(),
		Code:    code,
	}
}

func (ch *CodeHolder) Labels() LabelIndex     { return ch.labels }
func (ch *CodeHolder) CFG() BlockGraph        { return ch.cfg }
func (ch *CodeHolder) Liveness() LivenessIndex { return ch.liveness }

// SetLabels installs a freshly computed label index. Called by
// analysis.RebuildLabels.
func (ch *CodeHolder) SetLabels(l LabelIndex) { ch.labels = l }

// SetCFG installs a freshly computed block graph. Called by
// analysis.RebuildCFG.
func (ch *CodeHolder) SetCFG(g BlockGraph) { ch.cfg = g }

// SetLiveness installs freshly computed liveness data. Called by
// analysis.RebuildLiveness.
func (ch *CodeHolder) SetLiveness(l LivenessIndex) { ch.liveness = l }

// InvalidateAnalyses drops all cached analyses, forcing the next consumer
// to rebuild. Optimizer passes that mutate Code call this after every
// change that could stale the label/CFG/liveness data.
func (ch *CodeHolder) InvalidateAnalyses() {
	ch.labels = nil
	ch.cfg = nil
	ch.liveness = nil
}

// StackBytes sums the sizes of all stack_alloc instructions still present
// in Code, for diagnostic reporting (backend formats this with
// humanize.Bytes).
func (ch *CodeHolder) StackBytes() uint64 {
	var total uint64
	for _, inst := range ch.Code {
		if inst.Op != StackAlloc {
			continue
		}
		total += inst.Operands[1].ImmBits()
	}
	return total
}
