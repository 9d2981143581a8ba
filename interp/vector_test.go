package interp

import (
	"math"
	"testing"

	"codegen/analysis"
	"codegen/ir"
	"codegen/types"
)

// setupVec3 writes three float32 components at a fresh stack allocation and
// returns the register holding its address.
func setupVec3(vm *VM, reg ir.VRegID, values [3]float32) {
	slot := vm.pushStack(12)
	vm.allocs = append(vm.allocs, slot)
	vm.registers[reg] = uint64(slot.offset)
	for i, v := range values {
		writeMemory(vm, uint64(slot.offset)+uint64(i*4), uint64(math.Float32bits(v)), 4)
	}
}

func readVec3(vm *VM, reg ir.VRegID) [3]float32 {
	addr := vm.registers[reg]
	var out [3]float32
	for i := range out {
		bits := readMemory(vm, addr+uint64(i*4), 4)
		out[i] = math.Float32frombits(uint32(bits))
	}
	return out
}

func TestVMVectorAddInPlace(t *testing.T) {
	reg := types.NewRegistry()
	f32 := reg.Primitive("f32")
	dstReg := ir.VRegID(1)
	rhsReg := ir.VRegID(2)

	ch := ir.NewCodeHolder(nil)
	vm := NewVM(ch)
	setupVec3(vm, dstReg, [3]float32{1, 2, 3})
	setupVec3(vm, rhsReg, [3]float32{10, 20, 30})

	inst := ir.Instruction{
		Op:         ir.VAdd,
		Components: 3,
		Operands:   [3]ir.Value{ir.RegisterValue(dstReg, f32.PointerTo()), ir.RegisterValue(rhsReg, f32.PointerTo())},
	}
	vm.execVector(inst)

	got := readVec3(vm, dstReg)
	want := [3]float32{11, 22, 33}
	if got != want {
		t.Errorf("VAdd result = %v, want %v", got, want)
	}
}

func TestVMVectorDotProduct(t *testing.T) {
	reg := types.NewRegistry()
	f32 := reg.Primitive("f32")
	aReg := ir.VRegID(1)
	bReg := ir.VRegID(2)
	destReg := ir.VRegID(3)

	ch := ir.NewCodeHolder(nil)
	vm := NewVM(ch)
	setupVec3(vm, aReg, [3]float32{1, 2, 3})
	setupVec3(vm, bReg, [3]float32{4, 5, 6})

	inst := ir.Instruction{
		Op:         ir.VDot,
		Components: 3,
		Operands: [3]ir.Value{
			ir.RegisterValue(destReg, f32),
			ir.RegisterValue(aReg, f32.PointerTo()),
			ir.RegisterValue(bReg, f32.PointerTo()),
		},
	}
	vm.execVector(inst)

	got := bitsAs[float32](vm.registers[destReg])
	if got != 32 { // 1*4 + 2*5 + 3*6
		t.Errorf("VDot = %v, want 32", got)
	}
}

func TestVMVectorMagnitude(t *testing.T) {
	reg := types.NewRegistry()
	f32 := reg.Primitive("f32")
	srcReg := ir.VRegID(1)
	destReg := ir.VRegID(2)

	ch := ir.NewCodeHolder(nil)
	vm := NewVM(ch)
	setupVec3(vm, srcReg, [3]float32{3, 4, 0})

	inst := ir.Instruction{
		Op:         ir.VMag,
		Components: 3,
		Operands: [3]ir.Value{
			ir.RegisterValue(destReg, f32),
			ir.RegisterValue(srcReg, f32.PointerTo()),
		},
	}
	vm.execVector(inst)

	got := bitsAs[float32](vm.registers[destReg])
	if got != 5 {
		t.Errorf("VMag([3,4,0]) = %v, want 5", got)
	}
}

func TestVMVectorCrossProduct(t *testing.T) {
	reg := types.NewRegistry()
	f32 := reg.Primitive("f32")
	aReg := ir.VRegID(1)
	bReg := ir.VRegID(2)
	destReg := ir.VRegID(3)

	ch := ir.NewCodeHolder(nil)
	vm := NewVM(ch)
	setupVec3(vm, aReg, [3]float32{1, 0, 0})
	setupVec3(vm, bReg, [3]float32{0, 1, 0})
	setupVec3(vm, destReg, [3]float32{0, 0, 0})

	inst := ir.Instruction{
		Op:         ir.VCross,
		Components: 3,
		Operands: [3]ir.Value{
			ir.RegisterValue(destReg, f32.PointerTo()),
			ir.RegisterValue(aReg, f32.PointerTo()),
			ir.RegisterValue(bReg, f32.PointerTo()),
		},
	}
	vm.execVector(inst)

	got := readVec3(vm, destReg)
	want := [3]float32{0, 0, 1}
	if got != want {
		t.Errorf("cross([1,0,0],[0,1,0]) = %v, want %v", got, want)
	}
}

func TestVMVectorScalarBroadcast(t *testing.T) {
	reg := types.NewRegistry()
	f32 := reg.Primitive("f32")
	dstReg := ir.VRegID(1)

	ch := ir.NewCodeHolder(nil)
	vm := NewVM(ch)
	setupVec3(vm, dstReg, [3]float32{1, 2, 3})

	inst := ir.Instruction{
		Op:         ir.VMul,
		Components: 3,
		Operands: [3]ir.Value{
			ir.RegisterValue(dstReg, f32.PointerTo()),
			ir.ImmediateValue(uint64(math.Float32bits(2)), f32),
		},
	}
	vm.execVector(inst)

	got := readVec3(vm, dstReg)
	want := [3]float32{2, 4, 6}
	if got != want {
		t.Errorf("scalar-broadcast VMul result = %v, want %v", got, want)
	}
}
