package interp

import (
	"unsafe"

	"codegen/ir"
)

// pendingParam is one `param` instruction's staged argument, accumulated
// until the following `call` consumes the run.
type pendingParam struct {
	bits uint64
	typ  ir.DataType
}

// FunctionResolver maps a `call` instruction's function operand (carrying
// the callee's symbol id as an immediate) to the resolved ir.Function whose
// CallHandler actually performs the call — installed by whichever backend
// owns the symbol table (e.g. TestBackend).
type FunctionResolver interface {
	Resolve(symbolID uint64) (ir.Function, bool)
}

// SetFunctionResolver installs the lookup `call` instructions use to find
// their callee's CallHandler.
func (vm *VM) SetFunctionResolver(r FunctionResolver) { vm.functions = r }

func (vm *VM) execParam(inst ir.Instruction) {
	op := inst.Operands[0]
	vm.params = append(vm.params, pendingParam{bits: vm.readOperand(op), typ: op.Type()})
}

func (vm *VM) execCall(inst ir.Instruction) {
	defer func() { vm.params = vm.params[:0] }()

	if vm.functions == nil {
		return
	}
	fn, ok := vm.functions.Resolve(inst.Operands[0].ImmBits())
	if !ok {
		return
	}
	handler := fn.CallHandler()
	if handler == nil {
		return
	}

	selfOp := inst.Operands[2]
	argPtrs := make([]uintptr, 0, len(vm.params)+1)
	scratch := make([][]byte, 0, len(vm.params))

	if !selfOp.IsEmpty() {
		argPtrs = append(argPtrs, vm.resolveAddr(vm.readOperand(selfOp)))
	}
	for _, p := range vm.params {
		size := typeSize(p.typ)
		buf := make([]byte, size)
		encodeLE(buf, p.bits, size)
		scratch = append(scratch, buf)
		argPtrs = append(argPtrs, uintptr(unsafe.Pointer(&buf[0])))
	}

	destOp := inst.Operands[1]
	retSize := uint32(8)
	if destOp.IsRegister() && destOp.Type() != nil {
		retSize = typeSize(destOp.Type())
	}
	retBuf := make([]byte, retSize)

	handler.Call(uintptr(unsafe.Pointer(&retBuf[0])), argPtrs)

	if destOp.IsRegister() {
		vm.registers[destOp.Register()] = decodeLE(retBuf, retSize)
	}
}

func typeSize(t ir.DataType) uint32 {
	if t == nil {
		return 8
	}
	size := t.Info().Size
	if size == 0 {
		return 8
	}
	return size
}

// resolveAddr turns a register's raw bits into a real, dereferenceable
// uintptr: a host-tagged address is already one; a stack-buffer offset is
// resolved against the VM's current (temporarily pinned) stack slice.
func (vm *VM) resolveAddr(bits uint64) uintptr {
	if bits&addrTagHost != 0 {
		return uintptr(bits &^ addrTagHost)
	}
	if bits >= uint64(len(vm.stack)) {
		return 0
	}
	return uintptr(unsafe.Pointer(&vm.stack[bits]))
}
