// Package interp is the reference interpreter: a flat register file and a
// flat byte stack that execute a CodeHolder's instruction stream directly,
// used both to validate the optimizer's semantics-preservation and as the
// call handler a TestBackend installs for `call` instructions.
package interp

import (
	"codegen/ir"
)

// maxArgRegisters bounds the fixed argument-accumulator slice SetArg writes
// into before Execute marshals them into the callee's `argument` slots.
const maxArgRegisters = 16

// stackSlot is one stack_alloc allocation: a byte range inside VM.stack.
type stackSlot struct {
	offset uint32
	size   uint32
}

// VM executes one function's instruction stream against a flat uint64
// register file and a flat byte stack. Registers, not a typed union, hold
// every value: interpretation is driven by the operand's declared
// ir.DataType at each use site, exactly as the builder's typed IR intends.
type VM struct {
	ch   *ir.CodeHolder
	code []ir.Instruction

	registers map[ir.VRegID]uint64
	stack     []byte
	allocs    []stackSlot

	args     [maxArgRegisters]uint64
	argTypes [maxArgRegisters]ir.DataType
	argCount int

	thisPtr uint64
	retPtr  uint64

	functions FunctionResolver
	params    []pendingParam

	pc      ir.Address
	halted  bool
	retVal  uint64
	retType ir.DataType
}

// NewVM constructs a VM ready to execute ch's instruction stream. ch's
// analyses (labels at minimum) must already be built.
func NewVM(ch *ir.CodeHolder) *VM {
	return &VM{
		ch:        ch,
		code:      ch.Code,
		registers: make(map[ir.VRegID]uint64),
	}
}

// SetArg records argument i's raw value and declared type, consumed by the
// `argument` opcode when the function reads its own parameters.
func (vm *VM) SetArg(i int, bits uint64, t ir.DataType) {
	if i < 0 || i >= maxArgRegisters {
		return
	}
	vm.args[i] = bits
	vm.argTypes[i] = t
	if i+1 > vm.argCount {
		vm.argCount = i + 1
	}
}

// SetThisPtr installs the implicit receiver pointer a method body reads via
// `this_ptr`.
func (vm *VM) SetThisPtr(addr uint64) { vm.thisPtr = addr }

// SetReturnValuePointer installs the caller-supplied output address a
// function with a non-register return (e.g. a composite return value)
// writes through via `ret_ptr`.
func (vm *VM) SetReturnValuePointer(addr uint64) { vm.retPtr = addr }

// ReturnValue returns the bits and type `ret` was last executed with.
func (vm *VM) ReturnValue() (uint64, ir.DataType) { return vm.retVal, vm.retType }

// GetRegister reads register reg's raw value reinterpreted as T. T must be
// one of the register-file's representable domains.
func GetRegister[T int64 | uint64 | float32 | float64 | uintptr](vm *VM, reg ir.VRegID) T {
	return bitsAs[T](vm.registers[reg])
}

// SetRegister writes val into register reg, encoded to the register file's
// raw uint64 representation.
func SetRegister[T int64 | uint64 | float32 | float64 | uintptr](vm *VM, reg ir.VRegID, val T) {
	vm.registers[reg] = bitsOf(val)
}

// Execute runs from the current pc until a `ret` instruction or the end of
// the stream. It returns normally; a trapping condition (divide by zero,
// out-of-bounds memory access) is left to panic, matching a reference
// interpreter that is meant to crash loudly on a miscompiled program.
func (vm *VM) Execute() {
	vm.halted = false
	for !vm.halted && int(vm.pc) < len(vm.code) {
		vm.step()
	}
}

// Reset rewinds the VM to address zero and clears its register file and
// stack, ready to execute the same code again with fresh arguments.
func (vm *VM) Reset() {
	vm.pc = 0
	vm.halted = false
	vm.registers = make(map[ir.VRegID]uint64)
	vm.stack = vm.stack[:0]
	vm.allocs = vm.allocs[:0]
	vm.argCount = 0
	vm.params = vm.params[:0]
}

func (vm *VM) step() {
	inst := vm.code[vm.pc]

	switch inst.Op {
	case ir.Noop, ir.Label:
		vm.pc++

	case ir.Jump:
		vm.jumpTo(inst.Operands[0].Label())

	case ir.Branch:
		if vm.registers[inst.Operands[0].Register()] == 0 {
			vm.jumpTo(inst.Operands[1].Label())
		} else {
			vm.pc++
		}

	case ir.Ret:
		vm.execRet(inst)
		vm.halted = true

	case ir.Call:
		vm.execCall(inst)
		vm.pc++

	case ir.Param:
		vm.execParam(inst)
		vm.pc++

	case ir.Assign:
		vm.registers[inst.Operands[0].Register()] = vm.readOperand(inst.Operands[1])
		vm.pc++

	case ir.Load:
		vm.execLoad(inst)
		vm.pc++

	case ir.Store:
		vm.execStore(inst)
		vm.pc++

	case ir.Cvt:
		vm.execCvt(inst)
		vm.pc++

	case ir.StackAlloc:
		vm.allocs = append(vm.allocs, vm.pushStack(uint32(inst.Operands[1].ImmBits())))
		vm.pc++

	case ir.StackPtr:
		id := int(inst.Operands[1].ImmBits())
		if id >= 1 && id <= len(vm.allocs) {
			vm.registers[inst.Operands[0].Register()] = uint64(vm.allocs[id-1].offset)
		}
		vm.pc++

	case ir.StackFree:
		vm.pc++ // no reclamation modeled; the stack buffer outlives the call

	case ir.ThisPtr:
		vm.registers[inst.Operands[0].Register()] = vm.thisPtr
		vm.pc++

	case ir.RetPtr:
		vm.registers[inst.Operands[0].Register()] = vm.retPtr
		vm.pc++

	case ir.Argument:
		idx := int(inst.Operands[1].ImmBits())
		if idx >= 0 && idx < vm.argCount {
			vm.registers[inst.Operands[0].Register()] = vm.args[idx]
		}
		vm.pc++

	case ir.Reserve:
		vm.pc++ // reserving a register slot is implicit in the map-backed file

	case ir.Not:
		vm.registers[inst.Operands[0].Register()] = boolBits(vm.readOperand(inst.Operands[1]) == 0)
		vm.pc++

	case ir.Inv:
		vm.registers[inst.Operands[0].Register()] = ^vm.readOperand(inst.Operands[1])
		vm.pc++

	case ir.Shl:
		vm.registers[inst.Operands[0].Register()] = vm.readOperand(inst.Operands[1]) << vm.readOperand(inst.Operands[2])
		vm.pc++
	case ir.Shr:
		vm.registers[inst.Operands[0].Register()] = vm.readOperand(inst.Operands[1]) >> vm.readOperand(inst.Operands[2])
		vm.pc++
	case ir.Land:
		a := vm.readOperand(inst.Operands[1]) != 0
		b := vm.readOperand(inst.Operands[2]) != 0
		vm.registers[inst.Operands[0].Register()] = boolBits(a && b)
		vm.pc++
	case ir.Lor:
		a := vm.readOperand(inst.Operands[1]) != 0
		b := vm.readOperand(inst.Operands[2]) != 0
		vm.registers[inst.Operands[0].Register()] = boolBits(a || b)
		vm.pc++
	case ir.Band:
		vm.registers[inst.Operands[0].Register()] = vm.readOperand(inst.Operands[1]) & vm.readOperand(inst.Operands[2])
		vm.pc++
	case ir.Bor:
		vm.registers[inst.Operands[0].Register()] = vm.readOperand(inst.Operands[1]) | vm.readOperand(inst.Operands[2])
		vm.pc++
	case ir.Xor:
		vm.registers[inst.Operands[0].Register()] = vm.readOperand(inst.Operands[1]) ^ vm.readOperand(inst.Operands[2])
		vm.pc++

	case ir.IInc, ir.UInc, ir.FInc, ir.DInc, ir.IDec, ir.UDec, ir.FDec, ir.DDec:
		vm.execIncDec(inst)
		vm.pc++

	case ir.VSet, ir.VAdd, ir.VSub, ir.VMul, ir.VDiv, ir.VMod, ir.VNeg,
		ir.VDot, ir.VMag, ir.VMagSq, ir.VNorm, ir.VCross:
		vm.execVector(inst)
		vm.pc++

	default:
		if isArithmeticOrCompare(inst.Op) {
			vm.execArithOrCompare(inst)
		}
		vm.pc++
	}
}

func (vm *VM) jumpTo(label ir.LabelID) {
	if addr, ok := vm.ch.Labels().Get(label); ok {
		vm.pc = addr
		return
	}
	vm.halted = true
}

// execRet records the returned value and, when a caller installed a return
// pointer (SetReturnValuePointer), writes it through that address sized to
// the return type — matching a call handler boundary where the return
// value must land in caller-owned memory, not just the VM's own state.
func (vm *VM) execRet(inst ir.Instruction) {
	op := inst.Operands[0]
	if op.IsEmpty() {
		return
	}
	vm.retVal = vm.readOperand(op)
	vm.retType = op.Type()

	if vm.retPtr != 0 {
		writeMemory(vm, vm.retPtr, vm.retVal, typeSize(vm.retType))
	}
}

// readOperand resolves a (register or immediate) operand to its raw bits.
func (vm *VM) readOperand(v ir.Value) uint64 {
	if v.IsRegister() {
		return vm.registers[v.Register()]
	}
	return v.ImmBits()
}

func boolBits(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
