// Package backend orchestrates turning a FunctionBuilder's emitted code into
// something callable: it builds a CodeHolder, runs the optimization
// pipeline, and hands the processed CodeHolder to a subclass-style
// transform hook. TestBackend, the one concrete backend here, wires that
// hook to the reference interpreter so a compiled Function becomes directly
// invocable from Go for tests.
package backend

import (
	"github.com/dustin/go-humanize"

	"codegen/analysis"
	"codegen/builder"
	"codegen/config"
	"codegen/ir"
	"codegen/logging"
	"codegen/optimize"
)

// Transformer is implemented by a concrete backend to turn a fully
// post-processed CodeHolder into whatever form that backend produces
// (native code, a call handler, a disassembly listing, ...). fn is the
// Function the processed code belongs to, since CodeHolder itself carries
// no back-reference to it.
type Transformer interface {
	Transform(fn ir.Function, ch *ir.CodeHolder) error
}

// Hooks lets a caller observe a Backend's process pipeline without
// subclassing, mirroring IBackend's virtual onBeforePostProcessing/
// onAfterPostProcessing.
type Hooks struct {
	BeforePostProcessing func(ch *ir.CodeHolder)
	AfterPostProcessing  func(ch *ir.CodeHolder)
}

// Backend drives one FunctionBuilder through the optimization pipeline and
// a Transformer. It is not re-entrant (§5): one Backend processes one
// function at a time, though independent Backends (or ProcessMany's
// errgroup-driven goroutines) may run concurrently.
type Backend struct {
	pipeline *optimize.Group
	hooks    Hooks
	log      logging.Handler
}

// New constructs a Backend running pipeline (optimize.DefaultPipeline() if
// nil) with the given hooks and log sink.
func New(pipeline *optimize.Group, hooks Hooks, log logging.Handler) *Backend {
	if pipeline == nil {
		pipeline = optimize.DefaultPipeline()
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Backend{pipeline: pipeline, hooks: hooks, log: log}
}

// Process builds a CodeHolder over b's emitted code, runs the
// before-hook, the optimization pipeline (gated by mask), the after-hook,
// and finally xform.Transform. Matches IBackend::process's fixed sequence.
func (be *Backend) Process(b *builder.FunctionBuilder, mask uint32, xform Transformer) error {
	ch := ir.NewCodeHolder(b.Code())
	analysis.RebuildAll(ch)

	if be.hooks.BeforePostProcessing != nil {
		be.hooks.BeforePostProcessing(ch)
	}

	optimize.Run(ch, be.pipeline, config.NewPipelineConfig(config.WithMask(mask)))

	if be.hooks.AfterPostProcessing != nil {
		be.hooks.AfterPostProcessing(ch)
	}

	be.log.Debugf("processed function %q: %d instructions, %s of stack", b.Function.FullName(), len(ch.Code), humanize.Bytes(ch.StackBytes()))

	return xform.Transform(b.Function, ch)
}
