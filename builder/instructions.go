package builder

import (
	"fmt"

	"codegen/ir"
)

// StackAlloc reserves size bytes of stack space and returns the id used to
// reference it from StackPtr/StackFree, plus the instruction reference.
func (b *FunctionBuilder) StackAlloc(size uint32) (ir.StackID, InstructionRef) {
	id := b.ReserveAllocId()
	b.stackAllocated[id] = true
	ref := b.add(ir.Instruction{
		Op:       ir.StackAlloc,
		Operands: [3]ir.Value{ir.ImmediateValue(uint64(id), nil), ir.ImmediateValue(uint64(size), nil)},
	})
	return id, ref
}

// StackPtr emits a register holding the address of stack allocation alloc,
// registers it with the current scope for automatic cleanup, and returns
// the value.
func (b *FunctionBuilder) StackPtr(t ir.DataType, alloc ir.StackID) (ir.Value, InstructionRef) {
	if err := b.validate(b.stackAllocated[alloc] && !b.stackFreed[alloc], "stack_ptr: id %d does not reference a live stack allocation", alloc); err != nil {
		return ir.Value{}, InstructionRef{}
	}
	dest := b.Val(t).WithStackID(alloc)
	ref := b.add(ir.Instruction{
		Op:       ir.StackPtr,
		Operands: [3]ir.Value{dest, ir.ImmediateValue(uint64(alloc), nil)},
	})
	b.currentScope.addStackID(alloc)
	b.currentScope.addStackPointer(dest)
	return dest, ref
}

// StackFree emits a stack_free for alloc directly, bypassing scope
// bookkeeping. Front ends normally rely on Scope.Escape instead, whose
// cleanup emits its frees through the unvalidated stackFreeRaw.
func (b *FunctionBuilder) StackFree(alloc ir.StackID) InstructionRef {
	if err := b.validate(b.stackAllocated[alloc] && !b.stackFreed[alloc], "stack_free: id %d does not reference a live stack allocation", alloc); err != nil {
		return InstructionRef{}
	}
	return b.stackFreeRaw(alloc)
}

func (b *FunctionBuilder) stackFreeRaw(alloc ir.StackID) InstructionRef {
	b.stackFreed[alloc] = true
	return b.add(ir.Instruction{Op: ir.StackFree, Operands: [3]ir.Value{ir.ImmediateValue(uint64(alloc), nil)}})
}

// ValuePtr emits a register holding the address of a resolved external
// value (a global/static), identified by symbolID.
func (b *FunctionBuilder) ValuePtr(t ir.DataType, symbolID uint64) (ir.Value, InstructionRef) {
	dest := b.Val(t)
	ref := b.add(ir.Instruction{Op: ir.ValuePtr, Operands: [3]ir.Value{dest, ir.ImmediateValue(symbolID, nil)}})
	return dest, ref
}

// ThisPtr emits the instruction binding reg as the function's implicit
// `this` pointer. Only valid once, before any other instruction.
func (b *FunctionBuilder) ThisPtr(reg ir.Value) InstructionRef {
	if err := b.validate(!b.thisPtrEmitted, "this_ptr already emitted for this function"); err != nil {
		return InstructionRef{}
	}
	if err := b.validate(b.onlyPrologueEmittedSoFar(), "this_ptr must be emitted before any non-prologue instruction"); err != nil {
		return InstructionRef{}
	}
	b.thisPtrEmitted = true
	b.thisPtr = reg
	return b.add(ir.Instruction{Op: ir.ThisPtr, Operands: [3]ir.Value{reg}})
}

// RetPtr emits the instruction binding reg as the function's implicit
// return-value pointer.
func (b *FunctionBuilder) RetPtr(reg ir.Value) InstructionRef {
	if err := b.validate(!b.retPtr.IsRegister(), "ret_ptr already emitted for this function"); err != nil {
		return InstructionRef{}
	}
	b.retPtr = reg
	return b.add(ir.Instruction{Op: ir.RetPtr, Operands: [3]ir.Value{reg}})
}

// Argument emits the instruction binding reg to parameter index idx.
func (b *FunctionBuilder) Argument(reg ir.Value, idx uint32) InstructionRef {
	if sig := b.Function.Signature(); sig != nil {
		if err := b.validate(int(idx) < len(sig.Args()), "argument index %d is out of range for a %d-parameter signature", idx, len(sig.Args())); err != nil {
			return InstructionRef{}
		}
	}
	if err := b.validate(!b.argSeen[idx], "argument index %d already bound", idx); err != nil {
		return InstructionRef{}
	}
	if err := b.validate(b.onlyPrologueEmittedSoFar(), "argument must be emitted before any non-prologue instruction"); err != nil {
		return InstructionRef{}
	}
	b.argSeen[idx] = true
	b.args = append(b.args, reg)
	return b.add(ir.Instruction{Op: ir.Argument, Operands: [3]ir.Value{reg, ir.ImmediateValue(uint64(idx), nil)}})
}

// Reserve allocates a register and emits a `reserve` instruction declaring
// it before its first real value, for forward references (e.g. a loop accumulator whose first
// write happens inside the loop body).
func (b *FunctionBuilder) Reserve(t ir.DataType) (ir.Value, InstructionRef) {
	v := b.Val(t)
	ref := b.add(ir.Instruction{Op: ir.Reserve, Operands: [3]ir.Value{v}})
	return v, ref
}

// Resolve assigns a previously Reserve'd register its first real value.
func (b *FunctionBuilder) Resolve(reg, value ir.Value) InstructionRef {
	return b.add(ir.Instruction{Op: ir.Resolve, Operands: [3]ir.Value{reg, value}})
}

// Load reads sizeof(dest.Type) bytes from src+offset into dest.
func (b *FunctionBuilder) Load(dest, src ir.Value, offset uint32) InstructionRef {
	if err := b.validate(src.Type() != nil && src.Type().Info().IsPointer, "load: src must be a pointer"); err != nil {
		return InstructionRef{}
	}
	return b.add(ir.Instruction{
		Op:       ir.Load,
		Operands: [3]ir.Value{dest, src, ir.ImmediateValue(uint64(offset), nil)},
	})
}

// Store writes src into dest+offset.
func (b *FunctionBuilder) Store(src, dest ir.Value, offset uint32) InstructionRef {
	if err := b.validate(dest.Type() != nil && dest.Type().Info().IsPointer, "store: dest must be a pointer"); err != nil {
		return InstructionRef{}
	}
	return b.add(ir.Instruction{
		Op:       ir.Store,
		Operands: [3]ir.Value{src, dest, ir.ImmediateValue(uint64(offset), nil)},
	})
}

// Jump unconditionally transfers control to label.
func (b *FunctionBuilder) Jump(label ir.LabelID) InstructionRef {
	return b.add(ir.Instruction{Op: ir.Jump, Operands: [3]ir.Value{ir.LabelValue(label)}})
}

// Branch falls through to the next instruction when cond is truthy (non-
// zero), and jumps to destOnFalse otherwise.
func (b *FunctionBuilder) Branch(cond ir.Value, destOnFalse ir.LabelID) InstructionRef {
	return b.add(ir.Instruction{Op: ir.Branch, Operands: [3]ir.Value{cond, ir.LabelValue(destOnFalse)}})
}

// Cvt converts src to destType, writing the result into dest.
func (b *FunctionBuilder) Cvt(dest, src ir.Value, destType ir.DataType) InstructionRef {
	return b.add(ir.Instruction{
		Op:       ir.Cvt,
		Operands: [3]ir.Value{dest, src, ir.ImmediateValue(destType.SymbolID(), destType)},
	})
}

// Param stages val as the next argument of the call this precedes.
func (b *FunctionBuilder) Param(val ir.Value) InstructionRef {
	b.pendingParams = append(b.pendingParams, val.Type())
	return b.add(ir.Instruction{Op: ir.Param, Operands: [3]ir.Value{val}})
}

// Call invokes fn (an immediate function symbol or a register holding a
// function-value pointer), placing its return value in retDest if it is
// non-empty and passing selfPtr as the implicit `this` for a method call
// (empty for a free function).
func (b *FunctionBuilder) Call(fn ir.Value, retDest ir.Value, selfPtr ir.Value) InstructionRef {
	if err := b.validate(!fn.IsEmpty() && !fn.IsLabel(), "call: fn operand must be an immediate symbol or a register, not a label"); err != nil {
		return InstructionRef{}
	}
	if err := b.validate(retDest.IsEmpty() || retDest.IsRegister(), "call: retDest must be empty or a register"); err != nil {
		return InstructionRef{}
	}
	if err := b.validate(selfPtr.IsEmpty() || (selfPtr.Type() != nil && selfPtr.Type().Info().IsPointer), "call: selfPtr must be empty or pointer-typed"); err != nil {
		return InstructionRef{}
	}
	if ft, ok := resolveFunctionType(fn); ok {
		want := ft.Args()
		if err := b.validate(len(b.pendingParams) == len(want), "call: expected %d param instruction(s) for this callee, got %d", len(want), len(b.pendingParams)); err != nil {
			b.pendingParams = nil
			return InstructionRef{}
		}
		for i, t := range want {
			got := b.pendingParams[i]
			if err := b.validate(got == nil || t == nil || got.IsConvertibleTo(t), "call: param %d has type %q, callee expects %q", i, typeName(got), typeName(t)); err != nil {
				b.pendingParams = nil
				return InstructionRef{}
			}
		}
		if err := b.validate((ft.ReturnType() != nil) == retDest.IsRegister(), "call: return-destination presence must match the callee's return type being non-void"); err != nil {
			b.pendingParams = nil
			return InstructionRef{}
		}
	}
	b.pendingParams = nil
	return b.add(ir.Instruction{Op: ir.Call, Operands: [3]ir.Value{fn, retDest, selfPtr}})
}

// resolveFunctionType extracts the callee's FunctionType from fn's operand
// type, if statically known (an indirect call through a typed function
// pointer register). Direct calls built from an immediate symbol id carry
// no static type and are skipped.
func resolveFunctionType(fn ir.Value) (ir.FunctionType, bool) {
	t := fn.Type()
	if t == nil {
		return nil, false
	}
	if pt, ok := t.(ir.PointerType); ok {
		t = pt.DestinationType()
	}
	ft, ok := t.(ir.FunctionType)
	return ft, ok
}

func typeName(t ir.DataType) string {
	if t == nil {
		return "<untyped>"
	}
	return t.Name()
}

// Ret returns from the function, optionally carrying val. A primitive (or
// void) return either has no value or passes one directly; a non-primitive
// return always flows through the ret pointer and must leave val empty.
func (b *FunctionBuilder) Ret(val ir.Value) InstructionRef {
	if sig := b.Function.Signature(); sig != nil {
		ret := sig.ReturnType()
		switch {
		case ret == nil:
			if err := b.validate(val.IsEmpty(), "ret: a void function must return no value"); err != nil {
				return InstructionRef{}
			}
		case ret.Info().IsPrimitive:
			if err := b.validate(!val.IsEmpty(), "ret: a primitive-returning function must return a value"); err != nil {
				return InstructionRef{}
			}
		default:
			if err := b.validate(val.IsEmpty(), "ret: a non-primitive return flows through ret_ptr, not a ret value"); err != nil {
				return InstructionRef{}
			}
		}
	}
	return b.add(ir.Instruction{Op: ir.Ret, Operands: [3]ir.Value{val}})
}

// --- untyped bitwise / logical / assign ---

func (b *FunctionBuilder) emitUnary(op ir.OpCode, result, val ir.Value) InstructionRef {
	return b.add(ir.Instruction{Op: op, Operands: [3]ir.Value{result, val}})
}

func (b *FunctionBuilder) emitBinary(op ir.OpCode, result, a, c ir.Value) InstructionRef {
	return b.add(ir.Instruction{Op: op, Operands: [3]ir.Value{result, a, c}})
}

func (b *FunctionBuilder) Not(result, val ir.Value) InstructionRef  { return b.emitUnary(ir.Not, result, val) }
func (b *FunctionBuilder) Inv(result, val ir.Value) InstructionRef  { return b.emitUnary(ir.Inv, result, val) }
func (b *FunctionBuilder) Shl(result, val, bits ir.Value) InstructionRef {
	return b.emitBinary(ir.Shl, result, val, bits)
}
func (b *FunctionBuilder) Shr(result, val, bits ir.Value) InstructionRef {
	return b.emitBinary(ir.Shr, result, val, bits)
}
func (b *FunctionBuilder) Land(result, a, c ir.Value) InstructionRef { return b.emitBinary(ir.Land, result, a, c) }
func (b *FunctionBuilder) Band(result, a, c ir.Value) InstructionRef { return b.emitBinary(ir.Band, result, a, c) }
func (b *FunctionBuilder) Lor(result, a, c ir.Value) InstructionRef  { return b.emitBinary(ir.Lor, result, a, c) }
func (b *FunctionBuilder) Bor(result, a, c ir.Value) InstructionRef  { return b.emitBinary(ir.Bor, result, a, c) }
func (b *FunctionBuilder) Xor(result, a, c ir.Value) InstructionRef  { return b.emitBinary(ir.Xor, result, a, c) }

// Assign copies src's value into dest (same register-width reinterpret, no
// conversion — use Cvt for that).
func (b *FunctionBuilder) Assign(dest, src ir.Value) InstructionRef {
	return b.add(ir.Instruction{Op: ir.Assign, Operands: [3]ir.Value{dest, src}})
}

// --- vector family ---

func (b *FunctionBuilder) vecBinary(op ir.OpCode, dest, val ir.Value, components uint8) InstructionRef {
	return b.add(ir.Instruction{Op: op, Operands: [3]ir.Value{dest, val}, Components: components})
}

func (b *FunctionBuilder) VSet(dest, src ir.Value, components uint8) InstructionRef {
	return b.vecBinary(ir.VSet, dest, src, components)
}
func (b *FunctionBuilder) VAdd(dest, val ir.Value, components uint8) InstructionRef {
	return b.vecBinary(ir.VAdd, dest, val, components)
}
func (b *FunctionBuilder) VSub(dest, val ir.Value, components uint8) InstructionRef {
	return b.vecBinary(ir.VSub, dest, val, components)
}
func (b *FunctionBuilder) VMul(dest, val ir.Value, components uint8) InstructionRef {
	return b.vecBinary(ir.VMul, dest, val, components)
}
func (b *FunctionBuilder) VDiv(dest, val ir.Value, components uint8) InstructionRef {
	return b.vecBinary(ir.VDiv, dest, val, components)
}
func (b *FunctionBuilder) VMod(dest, val ir.Value, components uint8) InstructionRef {
	return b.vecBinary(ir.VMod, dest, val, components)
}
func (b *FunctionBuilder) VNeg(val ir.Value, components uint8) InstructionRef {
	return b.add(ir.Instruction{Op: ir.VNeg, Operands: [3]ir.Value{val}, Components: components})
}
func (b *FunctionBuilder) VDot(result, a, c ir.Value, components uint8) InstructionRef {
	return b.add(ir.Instruction{Op: ir.VDot, Operands: [3]ir.Value{result, a, c}, Components: components})
}
func (b *FunctionBuilder) VMag(result, val ir.Value, components uint8) InstructionRef {
	return b.vecBinary(ir.VMag, result, val, components)
}
func (b *FunctionBuilder) VMagSq(result, val ir.Value, components uint8) InstructionRef {
	return b.vecBinary(ir.VMagSq, result, val, components)
}
func (b *FunctionBuilder) VNorm(val ir.Value, components uint8) InstructionRef {
	return b.add(ir.Instruction{Op: ir.VNorm, Operands: [3]ir.Value{val}, Components: components})
}

// VCross is always a 3-component operation; components is fixed at 3
// regardless of the vector's declared width.
func (b *FunctionBuilder) VCross(result, a, c ir.Value) InstructionRef {
	return b.add(ir.Instruction{Op: ir.VCross, Operands: [3]ir.Value{result, a, c}, Components: 3})
}

// --- typed scalar arithmetic/comparison families ---

// Arith emits the {i,u,f,d} family member of name selected by result's
// type, e.g. Arith("add", r, a, c) emits iadd/uadd/fadd/dadd.
func (b *FunctionBuilder) Arith(name string, result, a, c ir.Value) (InstructionRef, error) {
	op, ok := ir.FamilyOp(name, result.Type().Info())
	if !ok {
		return InstructionRef{}, errUnknownFamily(name)
	}
	return b.emitBinary(op, result, a, c), nil
}

// Compare emits the {i,u,f,d} family member of name (lt/lte/gt/gte/eq/neq)
// selected by operand a's type; the result is always boolean-typed by the
// caller's own choice of result's Value type.
func (b *FunctionBuilder) Compare(name string, result, a, c ir.Value) (InstructionRef, error) {
	op, ok := ir.FamilyOp(name, a.Type().Info())
	if !ok {
		return InstructionRef{}, errUnknownFamily(name)
	}
	return b.emitBinary(op, result, a, c), nil
}

// IncDec emits the {i,u,f,d} inc/dec family member selected by val's type.
func (b *FunctionBuilder) IncDec(name string, val ir.Value) (InstructionRef, error) {
	op, ok := ir.FamilyOp(name, val.Type().Info())
	if !ok {
		return InstructionRef{}, errUnknownFamily(name)
	}
	return b.add(ir.Instruction{Op: op, Operands: [3]ir.Value{val}}), nil
}

// Neg emits ineg/fneg/dneg selected by val's type (there is no uneg —
// unsigned negation is not representable).
func (b *FunctionBuilder) Neg(result, val ir.Value) (InstructionRef, error) {
	info := val.Type().Info()
	var op ir.OpCode
	switch {
	case info.IsFloatingPoint && info.Size == 4:
		op = ir.FNeg
	case info.IsFloatingPoint:
		op = ir.DNeg
	case !info.IsUnsigned:
		op = ir.INeg
	default:
		return InstructionRef{}, errUnknownFamily("neg (unsigned has no negation)")
	}
	return b.emitUnary(op, result, val), nil
}

func errUnknownFamily(name string) error {
	return fmt.Errorf("builder: no typed opcode family %q for this operand type", name)
}
