// Package optimize implements the post-process pipeline: a small set of
// passes over an ir.CodeHolder's instruction stream, composed into groups
// that repeat to a local fixed point.
package optimize

import (
	"codegen/analysis"
	"codegen/config"
	"codegen/ir"
)

// Step is an optimization pass. A step implements BlockStep, WholeStep, or
// both; a Group runs whichever it finds, block variant first, matching the
// order a backend expects (basic-block passes settle before whole-function
// ones see their result).
type Step interface {
	Name() string
}

// BlockStep is a pass that operates on one basic block at a time. It is run
// once per block, repeatedly, until it reports no further change for that
// block.
type BlockStep interface {
	Step
	ExecuteBlock(ch *ir.CodeHolder, block *analysis.BasicBlock, mask uint32) bool
}

// WholeStep is a pass that operates on the whole function at once. It is
// run repeatedly until it reports no further change.
type WholeStep interface {
	Step
	Execute(ch *ir.CodeHolder, mask uint32) bool
}

type groupAware interface {
	setGroup(*Group)
}

// Group is an ordered list of steps, optionally mask-gated, that a parent
// Group (or the driver) runs to a local fixed point. A Group is itself a
// Step usable as an entry in an outer Group, matching PostProcessGroup's
// upstream ability to nest.
type Group struct {
	name     string
	steps    []groupEntry
	doRepeat bool
}

type groupEntry struct {
	step Step
	mask uint32
}

// NewGroup creates an empty, named group.
func NewGroup(name string) *Group {
	return &Group{name: name}
}

func (g *Group) Name() string { return g.name }

// AddStep appends step to the group, gated by mask: the step runs when mask
// shares a bit with the caller-supplied mask, and a zero mask runs it
// regardless of the caller-supplied mask.
func (g *Group) AddStep(step Step, mask uint32) {
	if ga, ok := step.(groupAware); ok {
		ga.setGroup(g)
	}
	g.steps = append(g.steps, groupEntry{step: step, mask: mask})
}

// SetShouldRepeat is called by a member step after it makes a change, to
// tell the group (and transitively its parent, if the group itself is
// nested as a step) that another full pass is worthwhile.
func (g *Group) SetShouldRepeat(doRepeat bool) { g.doRepeat = doRepeat }

// WillRepeat reports whether the most recent Execute requested another
// pass.
func (g *Group) WillRepeat() bool { return g.doRepeat }

func (g *Group) setGroup(parent *Group) {
	// A nested group reports its own repeat request upward by having its
	// Execute return true, which the parent's repeat-until-false loop
	// already honors; no direct parent link is needed.
	_ = parent
}

// Execute runs every member step once: block-variant steps are driven to a
// local fixed point across every basic block (in block order) before the
// group moves to the next step; whole-function steps are driven to a local
// fixed point directly. Implements WholeStep, so a Group nests inside
// another Group.
func (g *Group) Execute(ch *ir.CodeHolder, mask uint32) bool {
	g.doRepeat = false

	for _, e := range g.steps {
		if e.mask != 0 && e.mask&mask == 0 {
			continue
		}

		if bs, ok := e.step.(BlockStep); ok {
			cfg, _ := ch.CFG().(*analysis.ControlFlowGraph)
			if cfg != nil {
				for b := range cfg.Blocks {
					for bs.ExecuteBlock(ch, &cfg.Blocks[b], mask) {
					}
				}
			}
		}

		if ws, ok := e.step.(WholeStep); ok {
			for ws.Execute(ch, mask) {
			}
		}
	}

	return g.doRepeat
}

// DefaultPipeline builds the standard outer/inner nesting:
//
//	outer:
//	  inner:
//	    CopyPropagation (per-block)
//	    CommonSubexpressionElimination (per-block)
//	    ReduceMemoryAccess (whole-function)
//	  ConstantFolding (whole-function)
//	  DeadCodeElimination (whole-function)
func DefaultPipeline() *Group {
	outer := NewGroup("optimize")
	inner := NewGroup("optimize.inner")

	inner.AddStep(NewCopyPropagation(), 0xFFFFFFFF)
	inner.AddStep(NewCSE(), 0xFFFFFFFF)
	inner.AddStep(NewReduceMemoryAccess(), 0xFFFFFFFF)

	outer.AddStep(inner, 0xFFFFFFFF)
	outer.AddStep(NewConstantFolding(), 0xFFFFFFFF)
	outer.AddStep(NewDeadCodeElimination(), 0xFFFFFFFF)

	return outer
}

// Run drives pipeline to a fixed point against ch per cfg, rebuilding
// analyses before the first pass sees the code. A zero MaxIterations means
// unbounded; otherwise Run stops after that many outer-group passes even
// if a pass still wants to repeat.
func Run(ch *ir.CodeHolder, pipeline *Group, cfg *config.PipelineConfig) {
	if cfg == nil {
		cfg = config.NewPipelineConfig()
	}

	analysis.RebuildAll(ch)

	iterations := 0
	for pipeline.Execute(ch, cfg.Mask) {
		iterations++
		if cfg.MaxIterations > 0 && iterations >= cfg.MaxIterations {
			break
		}
	}
}
