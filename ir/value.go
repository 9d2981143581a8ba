package ir

import "fmt"

// ValueKind discriminates the tagged union an Instruction operand holds.
type ValueKind uint8

const (
	// KindEmpty marks an unused operand slot.
	KindEmpty ValueKind = iota
	KindImmediate
	KindRegister
	KindLabel
)

// Value is a tagged-union IR operand: it is exactly one of empty, an
// immediate constant, a virtual register reference, or a label reference.
// Register and immediate values additionally carry the DataType the builder
// resolved them to, which the optimizer and interpreter both rely on.
type Value struct {
	kind ValueKind

	reg   VRegID
	label LabelID

	// imm holds the raw bit pattern of an immediate constant. Interpretation
	// (signed/unsigned/float/double) is driven by typ.
	imm uint64

	typ     DataType
	stackID StackID

	// nameID is an opaque debug-name token set by the builder (e.g. a
	// source identifier's symbol id); purely cosmetic for disassembly.
	nameID uint64
}

// Empty returns the empty operand value.
func Empty() Value { return Value{kind: KindEmpty} }

// RegisterValue builds an operand referencing vreg, typed as t.
func RegisterValue(vreg VRegID, t DataType) Value {
	return Value{kind: KindRegister, reg: vreg, typ: t}
}

// LabelValue builds an operand referencing a label.
func LabelValue(l LabelID) Value {
	return Value{kind: KindLabel, label: l}
}

// ImmediateValue builds a typed immediate operand from a raw bit pattern.
// Callers use ImmediateI64/ImmediateU64/ImmediateF32/ImmediateF64 to avoid
// manual bit-casting at call sites.
func ImmediateValue(bits uint64, t DataType) Value {
	return Value{kind: KindImmediate, imm: bits, typ: t}
}

func (v Value) Kind() ValueKind { return v.kind }
func (v Value) IsEmpty() bool   { return v.kind == KindEmpty }
func (v Value) IsRegister() bool { return v.kind == KindRegister }
func (v Value) IsImmediate() bool { return v.kind == KindImmediate }
func (v Value) IsLabel() bool   { return v.kind == KindLabel }

func (v Value) Register() VRegID { return v.reg }
func (v Value) Label() LabelID   { return v.label }
func (v Value) ImmBits() uint64  { return v.imm }
func (v Value) Type() DataType   { return v.typ }

// WithStackID attaches the stack allocation id this value's register was
// bound to (set by stack_ptr / value_ptr emission), returning the updated
// value. Used by Scope to know which stack_free to emit on escape.
func (v Value) WithStackID(id StackID) Value {
	v.stackID = id
	return v
}

func (v Value) StackID() StackID { return v.stackID }

// WithType returns v with its declared type replaced by t. Used by
// copy-propagation to re-tag a vector-family destination operand with the
// type the replaced source operand carried, since vset..vcross's component
// count is driven by the operand's declared type rather than an immediate.
func (v Value) WithType(t DataType) Value {
	v.typ = t
	return v
}

// WithNameID attaches a cosmetic debug-name token, returning the updated
// value.
func (v Value) WithNameID(id uint64) Value {
	v.nameID = id
	return v
}

func (v Value) NameID() uint64 { return v.nameID }

// Equivalent reports whether v and o refer to the same operand for the
// purposes of copy-propagation/CSE matching: same kind, same register or
// label id or immediate bit pattern, and (when both are typed) equal types.
func (v Value) Equivalent(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindEmpty:
		return true
	case KindRegister:
		if v.reg != o.reg {
			return false
		}
	case KindLabel:
		return v.label == o.label
	case KindImmediate:
		if v.imm != o.imm {
			return false
		}
	}
	if v.typ == nil || o.typ == nil {
		return v.typ == o.typ
	}
	return v.typ.IsEquivalentTo(o.typ)
}

func (v Value) String() string {
	switch v.kind {
	case KindEmpty:
		return "-"
	case KindRegister:
		return fmt.Sprintf("r%d", v.reg)
	case KindLabel:
		return fmt.Sprintf("L%d", v.label)
	case KindImmediate:
		if v.typ != nil {
			return fmt.Sprintf("%#x:%s", v.imm, v.typ.Name())
		}
		return fmt.Sprintf("%#x", v.imm)
	default:
		return "<bad value>"
	}
}
