package builder

import (
	"fmt"

	"codegen/ir"
)

const noLabel = ir.LabelID(0)

// Scope tracks the stack allocations made since its construction and
// emits their destruction/free instructions when it escapes. It also
// threads loop continue/break targets down through nested scopes. A Scope
// can only escape once.
type Scope struct {
	owner  *FunctionBuilder
	parent *Scope

	didEscape bool

	continueLbl ir.LabelID
	breakLbl    ir.LabelID

	stackIDs     map[ir.StackID]struct{}
	stackPointers []ir.Value
}

func newScope(owner *FunctionBuilder, parent *Scope) *Scope {
	return &Scope{
		owner:    owner,
		parent:   parent,
		stackIDs: make(map[ir.StackID]struct{}),
	}
}

// NewScope opens a child scope of b's current scope and makes it current.
// Callers are responsible for calling Escape before the scope's enclosing
// Go function returns (there is no destructor to fall back on in Go).
func NewScope(b *FunctionBuilder) *Scope {
	s := newScope(b, b.currentScope)
	b.enterScope(s)
	return s
}

// DidEscape reports whether Escape has already run for s.
func (s *Scope) DidEscape() bool { return s.didEscape }

// Escape destructs and frees every stack allocation made within s and
// returns control to the parent scope. It is an error to call Escape
// twice.
func (s *Scope) Escape() error {
	if s.didEscape {
		return fmt.Errorf("builder: scope already escaped")
	}
	s.emitEscapeInstructions()
	s.didEscape = true
	s.owner.exitScope(s)
	return nil
}

// EscapeWithValue escapes s like Escape, except the stack allocation
// backing withValue is spared destruction/free and transferred to the
// parent scope instead — used when a scope's result value lives on the
// stack and must survive past the scope's own cleanup.
func (s *Scope) EscapeWithValue(withValue ir.Value) error {
	if s.didEscape {
		return fmt.Errorf("builder: scope already escaped")
	}
	if s.parent == nil {
		return fmt.Errorf("builder: cannot escape root scope with a value, it would never be freed")
	}

	stackRef := withValue.StackID()
	if stackRef == ir.NullStack {
		return s.Escape()
	}
	if _, ok := s.stackIDs[stackRef]; !ok {
		return s.Escape()
	}

	s.parent.addStackID(stackRef)
	for _, ptr := range s.stackPointers {
		if ptr.StackID() == stackRef {
			s.parent.addStackPointer(ptr)
			break
		}
	}
	s.removeStackID(stackRef)
	return s.Escape()
}

// SetLoopContinueLabel marks s as the scope a `continue` in this loop
// should jump to.
func (s *Scope) SetLoopContinueLabel(l ir.LabelID) { s.continueLbl = l }

// LoopContinueLabel returns the nearest enclosing loop's continue label.
func (s *Scope) LoopContinueLabel() ir.LabelID {
	if s.parent != nil && s.continueLbl == noLabel {
		return s.parent.LoopContinueLabel()
	}
	return s.continueLbl
}

// LoopContinue emits the scope-cleanup instructions for every scope
// between the current one and the nearest enclosing loop, then jumps to
// that loop's continue label.
func (s *Scope) LoopContinue() error {
	if s.parent != nil && s.continueLbl == noLabel {
		s.emitEscapeInstructions()
		return s.parent.LoopContinue()
	}
	if s.continueLbl == noLabel {
		return fmt.Errorf("builder: continue used outside of a loop")
	}
	s.emitEscapeInstructions()
	s.owner.add(ir.Instruction{Op: ir.Jump, Operands: [3]ir.Value{ir.LabelValue(s.continueLbl)}})
	return nil
}

// SetLoopBreakLabel marks s as the scope a `break` in this loop should
// jump to.
func (s *Scope) SetLoopBreakLabel(l ir.LabelID) { s.breakLbl = l }

// LoopBreakLabel returns the nearest enclosing loop's break label.
func (s *Scope) LoopBreakLabel() ir.LabelID {
	if s.parent != nil && s.breakLbl == noLabel {
		return s.parent.LoopBreakLabel()
	}
	return s.breakLbl
}

// LoopBreak emits the scope-cleanup instructions for every scope between
// the current one and the nearest enclosing loop, then jumps to that
// loop's break label.
func (s *Scope) LoopBreak() error {
	if s.parent != nil && s.breakLbl == noLabel {
		s.emitEscapeInstructions()
		return s.parent.LoopBreak()
	}
	if s.breakLbl == noLabel {
		return fmt.Errorf("builder: break used outside of a loop")
	}
	s.emitEscapeInstructions()
	s.owner.add(ir.Instruction{Op: ir.Jump, Operands: [3]ir.Value{ir.LabelValue(s.breakLbl)}})
	return nil
}

func (s *Scope) addStackID(id ir.StackID) { s.stackIDs[id] = struct{}{} }

func (s *Scope) addStackPointer(v ir.Value) {
	for _, existing := range s.stackPointers {
		if existing.StackID() == v.StackID() {
			return
		}
	}
	s.stackPointers = append(s.stackPointers, v)
}

func (s *Scope) removeStackID(id ir.StackID) {
	delete(s.stackIDs, id)
	for i, v := range s.stackPointers {
		if v.StackID() == id {
			s.stackPointers = append(s.stackPointers[:i], s.stackPointers[i+1:]...)
			break
		}
	}
}

func (s *Scope) emitEscapeInstructions() {
	freed := make(map[ir.StackID]struct{})

	for i := len(s.stackPointers) - 1; i >= 0; i-- {
		ptr := s.stackPointers[i]
		s.owner.generateDestruction(ptr)
		ref := ptr.StackID()
		s.owner.stackFreeRaw(ref)
		freed[ref] = struct{}{}
	}

	for id := range s.stackIDs {
		if _, done := freed[id]; done {
			continue
		}
		s.owner.stackFreeRaw(id)
	}
}

// emitPreReturnInstructions walks up through every enclosing scope and
// emits cleanup for all of them, used by GenerateReturn so a `return`
// from inside nested scopes still frees every stack allocation made along
// the way.
func (s *Scope) emitPreReturnInstructions() {
	s.emitEscapeInstructions()
	if s.parent != nil {
		s.parent.emitPreReturnInstructions()
	}
}
