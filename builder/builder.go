// Package builder implements FunctionBuilder, the single entry point a
// front end uses to emit typed three-address IR instructions for one
// function body.
package builder

import (
	"fmt"
	"math"

	"codegen/ir"
	"codegen/logging"
)

// InstructionRef is a lightweight handle to an instruction just emitted,
// returned so callers can patch it later (e.g. backpatch a branch target
// once the destination label is known).
type InstructionRef struct {
	owner *FunctionBuilder
	index int
}

// Set overwrites the referenced instruction in place.
func (r InstructionRef) Set(i ir.Instruction) {
	r.owner.code[r.index] = i
}

// Get returns the referenced instruction.
func (r InstructionRef) Get() ir.Instruction {
	return r.owner.code[r.index]
}

// Index returns the instruction's address.
func (r InstructionRef) Index() ir.Address {
	return ir.Address(r.index)
}

// FunctionBuilder accumulates one function's instruction stream. Register,
// label and stack ids are allocated monotonically starting at 1 (0 is the
// "null"/unset sentinel per ir.NullRegister etc).
type FunctionBuilder struct {
	Function ir.Function
	parent   *FunctionBuilder

	code []ir.Instruction

	nextLabel ir.LabelID
	nextReg   ir.VRegID
	nextAlloc ir.StackID

	currentSrc    ir.SourceLoc
	srcMap        *SourceMap
	validation    bool

	thisPtr        ir.Value
	thisPtrEmitted bool
	args           []ir.Value
	argSeen        map[uint32]bool
	retPtr         ir.Value

	placedLabels   map[ir.LabelID]bool
	stackAllocated map[ir.StackID]bool
	stackFreed     map[ir.StackID]bool
	pendingParams  []ir.DataType

	ownScope    *Scope
	currentScope *Scope

	log logging.Handler
}

// SourceMap coalesces a run of instructions sharing one source location
// into a single entry, so a backend doesn't pay one map entry per
// instruction for straight-line code.
type SourceMap struct {
	entries []sourceMapEntry
}

type sourceMapEntry struct {
	from ir.Address
	loc  ir.SourceLoc
}

func (m *SourceMap) add(addr ir.Address, loc ir.SourceLoc) {
	if n := len(m.entries); n > 0 && m.entries[n-1].loc == loc {
		return
	}
	m.entries = append(m.entries, sourceMapEntry{from: addr, loc: loc})
}

// SourceMapEntry is one coalesced span: every instruction from Code starting
// at addr through (exclusive) the next entry's addr shares Loc.
type SourceMapEntry struct {
	Code ir.Address
	Loc  ir.SourceLoc
}

// Entries returns the coalesced source map in address order, for a backend
// to persist (e.g. backend.SourceMapStore).
func (m *SourceMap) Entries() []SourceMapEntry {
	out := make([]SourceMapEntry, len(m.entries))
	for i, e := range m.entries {
		out[i] = SourceMapEntry{Code: e.from, Loc: e.loc}
	}
	return out
}

// At returns the source location attributed to addr.
func (m *SourceMap) At(addr ir.Address) (ir.SourceLoc, bool) {
	var found ir.SourceLoc
	ok := false
	for _, e := range m.entries {
		if e.from > addr {
			break
		}
		found, ok = e.loc, true
	}
	return found, ok
}

// New creates a root FunctionBuilder for fn with no parent scope.
func New(fn ir.Function, log logging.Handler) *FunctionBuilder {
	if log == nil {
		log = logging.Nop()
	}
	b := &FunctionBuilder{
		Function:       fn,
		nextLabel:      1,
		nextReg:        1,
		nextAlloc:      1,
		srcMap:         &SourceMap{},
		log:            log,
		argSeen:        make(map[uint32]bool),
		placedLabels:   make(map[ir.LabelID]bool),
		stackAllocated: make(map[ir.StackID]bool),
		stackFreed:     make(map[ir.StackID]bool),
	}
	b.ownScope = newScope(b, nil)
	b.currentScope = b.ownScope
	b.emitPrologue()
	return b
}

// NewNested creates a FunctionBuilder for a closure/inline function body
// that shares its parent's logging handler and diagnostics but has its own
// register/label/stack namespace.
func NewNested(fn ir.Function, parent *FunctionBuilder) *FunctionBuilder {
	b := &FunctionBuilder{
		Function:       fn,
		parent:         parent,
		nextLabel:      1,
		nextReg:        1,
		nextAlloc:      1,
		srcMap:         &SourceMap{},
		log:            parent.log,
		argSeen:        make(map[uint32]bool),
		placedLabels:   make(map[ir.LabelID]bool),
		stackAllocated: make(map[ir.StackID]bool),
		stackFreed:     make(map[ir.StackID]bool),
	}
	b.ownScope = newScope(b, nil)
	b.currentScope = b.ownScope
	b.emitPrologue()
	return b
}

// EnableValidation turns on the structural checks of the label, stack,
// frame (this_ptr, ret_ptr, argument), load/store, call and ret emit
// methods; the other emit methods do no checks.
// Off by default so a trusted front end can skip the overhead; front ends
// under development should turn it on.
func (b *FunctionBuilder) EnableValidation() { b.validation = true }

// SetCurrentSourceLocation moves the coalescing source cursor; every
// instruction emitted after this call is attributed to loc until the next
// call.
func (b *FunctionBuilder) SetCurrentSourceLocation(loc ir.SourceLoc) {
	b.currentSrc = loc
}

// SourceMapOf returns the builder's coalesced source map.
func (b *FunctionBuilder) SourceMapOf() *SourceMap { return b.srcMap }

// Code returns the accumulated instruction stream. The returned slice
// aliases the builder's internal storage; callers that hand it to an
// ir.CodeHolder must not mutate it outside of the optimizer.
func (b *FunctionBuilder) Code() []ir.Instruction { return b.code }

func (b *FunctionBuilder) add(i ir.Instruction) InstructionRef {
	i.Src = b.currentSrc
	b.code = append(b.code, i)
	idx := len(b.code) - 1
	b.srcMap.add(ir.Address(idx), b.currentSrc)
	return InstructionRef{owner: b, index: idx}
}

// AddRaw appends a pre-built instruction verbatim, for callers (the
// optimizer, generators) that construct an ir.Instruction directly rather
// than going through a per-opcode method.
func (b *FunctionBuilder) AddRaw(i ir.Instruction) InstructionRef { return b.add(i) }

func (b *FunctionBuilder) nextRegister() ir.VRegID {
	r := b.nextReg
	b.nextReg++
	return r
}

// Label allocates a new, as-yet-unplaced label id.
func (b *FunctionBuilder) Label() ir.LabelID {
	l := b.nextLabel
	b.nextLabel++
	return l
}

// PlaceLabel emits the `label` pseudo-instruction marking l's address.
func (b *FunctionBuilder) PlaceLabel(l ir.LabelID) InstructionRef {
	if err := b.validate(l != ir.NullLabel && l < b.nextLabel, "label %d was never allocated by Label()", l); err != nil {
		return InstructionRef{}
	}
	if err := b.validate(!b.placedLabels[l], "label %d is already defined", l); err != nil {
		return InstructionRef{}
	}
	b.placedLabels[l] = true
	return b.add(ir.Instruction{Op: ir.Label, Operands: [3]ir.Value{ir.ImmediateValue(uint64(l), nil)}})
}

// GetNextAllocId previews the stack id the next StackAlloc call will
// return, without consuming it.
func (b *FunctionBuilder) GetNextAllocId() ir.StackID { return b.nextAlloc }

// ReserveAllocId consumes and returns the next stack id without emitting a
// stack_alloc instruction, for callers that need to know the id ahead of
// emitting the allocation itself.
func (b *FunctionBuilder) ReserveAllocId() ir.StackID {
	id := b.nextAlloc
	b.nextAlloc++
	return id
}

// GetThis returns the implicit `this` pointer value, if the function has
// one (thisPtr must have been emitted via ThisPtr first).
func (b *FunctionBuilder) GetThis() ir.Value { return b.thisPtr }

// GetArg returns the value bound to parameter index idx (Argument must
// have been emitted for it first).
func (b *FunctionBuilder) GetArg(idx int) (ir.Value, bool) {
	if idx < 0 || idx >= len(b.args) {
		return ir.Value{}, false
	}
	return b.args[idx], true
}

// GetRetPtr returns the implicit return-destination pointer (RetPtr must
// have been emitted first).
func (b *FunctionBuilder) GetRetPtr() ir.Value { return b.retPtr }

func (b *FunctionBuilder) validate(cond bool, format string, args ...any) error {
	if !b.validation || cond {
		return nil
	}
	err := fmt.Errorf("builder: "+format, args...)
	b.log.Errorf("%v", err)
	return err
}

// onlyPrologueEmittedSoFar reports whether the code stream so far contains
// nothing but ThisPtr/Argument instructions, the shape required before a
// this_ptr or argument instruction is allowed to follow.
func (b *FunctionBuilder) onlyPrologueEmittedSoFar() bool {
	for _, inst := range b.code {
		if inst.Op != ir.ThisPtr && inst.Op != ir.Argument {
			return false
		}
	}
	return true
}

// CurrentScope returns the innermost active scope.
func (b *FunctionBuilder) CurrentScope() *Scope { return b.currentScope }

func (b *FunctionBuilder) enterScope(s *Scope) { b.currentScope = s }

func (b *FunctionBuilder) exitScope(s *Scope) {
	if b.currentScope == s {
		b.currentScope = s.parent
	}
}

// emitPrologue emits the frame-setup instructions every function body
// needs: a this pointer (if the signature has one), bound arguments, and
// the return-value pointer (if the signature returns a non-primitive type).
func (b *FunctionBuilder) emitPrologue() {
	sig := b.Function.Signature()
	if sig == nil {
		return
	}
	if sig.ThisType() != nil {
		v := b.Val(sig.ThisType().PointerTo())
		b.add(ir.Instruction{Op: ir.ThisPtr, Operands: [3]ir.Value{v}})
		b.thisPtr = v
		b.thisPtrEmitted = true
	}
	for i, argT := range sig.Args() {
		v := b.Val(argT)
		b.add(ir.Instruction{
			Op:       ir.Argument,
			Operands: [3]ir.Value{v, ir.ImmediateValue(uint64(i), nil)},
		})
		b.args = append(b.args, v)
		b.argSeen[uint32(i)] = true
	}
	if ret := sig.ReturnType(); ret != nil && !ret.Info().IsPrimitive {
		v := b.Val(ret.PointerTo())
		b.add(ir.Instruction{Op: ir.RetPtr, Operands: [3]ir.Value{v}})
		b.retPtr = v
	}
}

// Val allocates a fresh register of type t and returns it as an operand
// value, without emitting any instruction (the caller typically passes it
// as the destination of the next emit call).
func (b *FunctionBuilder) Val(t ir.DataType) ir.Value {
	return ir.RegisterValue(b.nextRegister(), t)
}

// ImmI64 builds a signed 64-bit immediate operand typed t.
func (b *FunctionBuilder) ImmI64(v int64, t ir.DataType) ir.Value {
	return ir.ImmediateValue(uint64(v), t)
}

// ImmU64 builds an unsigned 64-bit immediate operand typed t.
func (b *FunctionBuilder) ImmU64(v uint64, t ir.DataType) ir.Value {
	return ir.ImmediateValue(v, t)
}

// ImmF32 builds a 32-bit float immediate operand typed t.
func (b *FunctionBuilder) ImmF32(v float32, t ir.DataType) ir.Value {
	return ir.ImmediateValue(uint64(math.Float32bits(v)), t)
}

// ImmF64 builds a 64-bit float immediate operand typed t.
func (b *FunctionBuilder) ImmF64(v float64, t ir.DataType) ir.Value {
	return ir.ImmediateValue(math.Float64bits(v), t)
}
