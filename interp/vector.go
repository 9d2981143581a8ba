package interp

import (
	"math"

	"codegen/ir"
)

// execVector executes one vset..vcross instruction. Vector operands are
// pointers (register-held addresses) to Components contiguous float32
// elements; vset/vadd/vsub/vmul/vdiv/vmod's second operand may instead be a
// single scalar, broadcast across every element (vdot, vmag and vcross take
// vector operands only).
func (vm *VM) execVector(inst ir.Instruction) {
	n := int(inst.Components)

	switch inst.Op {
	case ir.VNeg, ir.VNorm:
		dst := vm.vecLoad(inst.Operands[0].Register(), n)
		switch inst.Op {
		case ir.VNeg:
			for i := range dst {
				dst[i] = -dst[i]
			}
		case ir.VNorm:
			mag := vecMagnitude(dst)
			if mag != 0 {
				for i := range dst {
					dst[i] /= mag
				}
			}
		}
		vm.vecStore(inst.Operands[0].Register(), dst)
		return

	case ir.VMag, ir.VMagSq:
		src := vm.vecLoad(inst.Operands[1].Register(), n)
		magSq := float32(0)
		for _, c := range src {
			magSq += c * c
		}
		result := magSq
		if inst.Op == ir.VMag {
			result = float32(math.Sqrt(float64(magSq)))
		}
		vm.registers[inst.Operands[0].Register()] = bitsOf(result)
		return

	case ir.VDot:
		a := vm.vecLoad(inst.Operands[1].Register(), n)
		b := vm.vecLoad(inst.Operands[2].Register(), n)
		sum := float32(0)
		for i := range a {
			sum += a[i] * b[i]
		}
		vm.registers[inst.Operands[0].Register()] = bitsOf(sum)
		return

	case ir.VCross:
		a := vm.vecLoad(inst.Operands[1].Register(), 3)
		b := vm.vecLoad(inst.Operands[2].Register(), 3)
		result := []float32{
			a[1]*b[2] - a[2]*b[1],
			a[2]*b[0] - a[0]*b[2],
			a[0]*b[1] - a[1]*b[0],
		}
		vm.vecStore(inst.Operands[0].Register(), result)
		return
	}

	// vset/vadd/vsub/vmul/vdiv/vmod: binary, in place on operand 0's
	// pointee, with operand 1 either a matching-width vector or a scalar
	// broadcast.
	dst := vm.vecLoad(inst.Operands[0].Register(), n)
	rhs := vm.vecOperand(inst.Operands[1], n)

	for i := range dst {
		switch inst.Op {
		case ir.VSet:
			dst[i] = rhs[i]
		case ir.VAdd:
			dst[i] += rhs[i]
		case ir.VSub:
			dst[i] -= rhs[i]
		case ir.VMul:
			dst[i] *= rhs[i]
		case ir.VDiv:
			dst[i] /= rhs[i]
		case ir.VMod:
			dst[i] = float32(math.Mod(float64(dst[i]), float64(rhs[i])))
		}
	}
	vm.vecStore(inst.Operands[0].Register(), dst)
}

func vecMagnitude(v []float32) float32 {
	sum := float32(0)
	for _, c := range v {
		sum += c * c
	}
	return float32(math.Sqrt(float64(sum)))
}

// vecOperand reads a vector operand that may be a pointer to n elements
// or a single scalar register broadcast to n elements.
func (vm *VM) vecOperand(v ir.Value, n int) []float32 {
	if v.Type() != nil && v.Type().Info().IsPointer {
		return vm.vecLoad(v.Register(), n)
	}
	scalar := bitsAs[float32](vm.readOperand(v))
	out := make([]float32, n)
	for i := range out {
		out[i] = scalar
	}
	return out
}

func (vm *VM) vecLoad(reg ir.VRegID, n int) []float32 {
	addr := vm.registers[reg]
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		bits := readMemory(vm, addr+uint64(i*4), 4)
		out[i] = math.Float32frombits(uint32(bits))
	}
	return out
}

func (vm *VM) vecStore(reg ir.VRegID, v []float32) {
	addr := vm.registers[reg]
	for i, c := range v {
		writeMemory(vm, addr+uint64(i*4), uint64(math.Float32bits(c)), 4)
	}
}
