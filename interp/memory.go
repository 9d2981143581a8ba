package interp

import (
	"encoding/binary"
	"math"
	"unsafe"

	"codegen/ir"
)

// addrTagHost marks an address as a real host pointer (this_ptr, ret_ptr,
// value_ptr, or a call argument address) rather than an offset into the
// VM's own stack buffer. The two address spaces never collide in practice
// since the stack buffer is bounded well under 2^63 bytes.
const addrTagHost = uint64(1) << 63

// HostAddress tags ptr as a real host pointer so VM's memory ops route to
// readHost/writeHost instead of indexing into its own stack buffer. Callers
// (typically a backend's call handler) use this to hand the VM a
// this-pointer, a return-value slot, or an argument's address.
func HostAddress(ptr unsafe.Pointer) uint64 {
	return uint64(uintptr(ptr)) | addrTagHost
}

func (vm *VM) pushStack(size uint32) stackSlot {
	offset := uint32(len(vm.stack))
	vm.stack = append(vm.stack, make([]byte, size)...)
	return stackSlot{offset: offset, size: size}
}

// readMemory reads size bytes at addr (host pointer or stack offset) as a
// little-endian unsigned integer.
func readMemory(vm *VM, addr uint64, size uint32) uint64 {
	if addr&addrTagHost != 0 {
		return readHost(uintptr(addr&^addrTagHost), size)
	}
	buf := vm.stack[addr : addr+uint64(size)]
	return decodeLE(buf, size)
}

func writeMemory(vm *VM, addr uint64, bits uint64, size uint32) {
	if addr&addrTagHost != 0 {
		writeHost(uintptr(addr&^addrTagHost), bits, size)
		return
	}
	encodeLE(vm.stack[addr:addr+uint64(size)], bits, size)
}

func decodeLE(buf []byte, size uint32) uint64 {
	switch size {
	case 1:
		return uint64(buf[0])
	case 2:
		return uint64(binary.LittleEndian.Uint16(buf))
	case 4:
		return uint64(binary.LittleEndian.Uint32(buf))
	default:
		return binary.LittleEndian.Uint64(buf)
	}
}

func encodeLE(buf []byte, bits uint64, size uint32) {
	switch size {
	case 1:
		buf[0] = byte(bits)
	case 2:
		binary.LittleEndian.PutUint16(buf, uint16(bits))
	case 4:
		binary.LittleEndian.PutUint32(buf, uint32(bits))
	default:
		binary.LittleEndian.PutUint64(buf, bits)
	}
}

// readHost/writeHost cross into real process memory for pointers the host
// (TestBackend's caller) supplied — this_ptr, ret_ptr, value_ptr, and call
// argument addresses all live outside the VM's own stack buffer.
func readHost(addr uintptr, size uint32) uint64 {
	switch size {
	case 1:
		return uint64(*(*uint8)(unsafe.Pointer(addr)))
	case 2:
		return uint64(*(*uint16)(unsafe.Pointer(addr)))
	case 4:
		return uint64(*(*uint32)(unsafe.Pointer(addr)))
	default:
		return *(*uint64)(unsafe.Pointer(addr))
	}
}

func writeHost(addr uintptr, bits uint64, size uint32) {
	switch size {
	case 1:
		*(*uint8)(unsafe.Pointer(addr)) = uint8(bits)
	case 2:
		*(*uint16)(unsafe.Pointer(addr)) = uint16(bits)
	case 4:
		*(*uint32)(unsafe.Pointer(addr)) = uint32(bits)
	default:
		*(*uint64)(unsafe.Pointer(addr)) = bits
	}
}

func (vm *VM) execLoad(inst ir.Instruction) {
	dest := inst.Operands[0]
	addr := vm.registers[inst.Operands[1].Register()] + inst.Operands[2].ImmBits()
	size := dest.Type().Info().Size
	vm.registers[dest.Register()] = readMemory(vm, addr, size)
}

func (vm *VM) execStore(inst ir.Instruction) {
	src := inst.Operands[0]
	addr := vm.registers[inst.Operands[1].Register()] + inst.Operands[2].ImmBits()
	size := src.Type().Info().Size
	writeMemory(vm, addr, vm.readOperand(src), size)
}

// execCvt converts the source operand's bits from its declared type's
// numeric domain into the destination register's declared type, mirroring
// the {i64,u64,f32,f64} conversion matrix the builder's `cvt` opcode
// dispatches across.
func (vm *VM) execCvt(inst ir.Instruction) {
	dstType := inst.Operands[0].Type()
	src := inst.Operands[1]
	di := dstType.Info()
	si := src.Type().Info()
	bits := vm.readOperand(src)

	var result uint64
	switch {
	case si.IsFloatingPoint && di.IsFloatingPoint:
		f64 := floatBitsToF64(bits, si.Size)
		result = f64ToFloatBits(f64, di.Size)

	case si.IsFloatingPoint && !di.IsFloatingPoint:
		f64 := floatBitsToF64(bits, si.Size)
		if di.IsUnsigned {
			result = maskToSize(uint64(f64), di.Size)
		} else {
			result = signExtendToSize(uint64(int64(f64)), di.Size)
		}

	case !si.IsFloatingPoint && di.IsFloatingPoint:
		var numeric float64
		if si.IsUnsigned {
			numeric = float64(bits)
		} else {
			numeric = float64(int64(bits))
		}
		result = f64ToFloatBits(numeric, di.Size)

	default:
		if di.IsUnsigned {
			result = maskToSize(bits, di.Size)
		} else {
			result = signExtendToSize(bits, di.Size)
		}
	}

	vm.registers[inst.Operands[0].Register()] = result
}

func floatBitsToF64(bits uint64, size uint32) float64 {
	if size == 4 {
		return float64(math.Float32frombits(uint32(bits)))
	}
	return math.Float64frombits(bits)
}

func f64ToFloatBits(f float64, size uint32) uint64 {
	if size == 4 {
		return uint64(math.Float32bits(float32(f)))
	}
	return math.Float64bits(f)
}

func maskToSize(bits uint64, size uint32) uint64 {
	if size == 0 || size >= 8 {
		return bits
	}
	mask := (uint64(1) << (size * 8)) - 1
	return bits & mask
}

func signExtendToSize(bits uint64, size uint32) uint64 {
	if size == 0 || size >= 8 {
		return bits
	}
	shift := 64 - size*8
	return uint64(int64(bits<<shift) >> shift)
}
