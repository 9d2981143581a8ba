package interp

import (
	"math"

	"codegen/ir"
)

func isArithmeticOrCompare(op ir.OpCode) bool {
	switch op {
	case ir.IAdd, ir.UAdd, ir.FAdd, ir.DAdd,
		ir.ISub, ir.USub, ir.FSub, ir.DSub,
		ir.IMul, ir.UMul, ir.FMul, ir.DMul,
		ir.IDiv, ir.UDiv, ir.FDiv, ir.DDiv,
		ir.IMod, ir.UMod, ir.FMod, ir.DMod,
		ir.INeg, ir.FNeg, ir.DNeg,
		ir.ILt, ir.ULt, ir.FLt, ir.DLt,
		ir.ILte, ir.ULte, ir.FLte, ir.DLte,
		ir.IGt, ir.UGt, ir.FGt, ir.DGt,
		ir.IGte, ir.UGte, ir.FGte, ir.DGte,
		ir.IEq, ir.UEq, ir.FEq, ir.DEq,
		ir.INeq, ir.UNeq, ir.FNeq, ir.DNeq:
		return true
	}
	return false
}

// execArithOrCompare executes a 3-operand arithmetic op or a 2-operand
// negate, reading operand bits from registers/immediates and writing the
// result register. Comparisons write a 0/1 boolean.
func (vm *VM) execArithOrCompare(inst ir.Instruction) {
	switch inst.Op {
	case ir.INeg:
		vm.registers[inst.Operands[0].Register()] = uint64(-int64(vm.readOperand(inst.Operands[1])))
		return
	case ir.FNeg:
		f := bitsAs[float32](vm.readOperand(inst.Operands[1]))
		vm.registers[inst.Operands[0].Register()] = bitsOf(-f)
		return
	case ir.DNeg:
		d := bitsAs[float64](vm.readOperand(inst.Operands[1]))
		vm.registers[inst.Operands[0].Register()] = bitsOf(-d)
		return
	}

	a := vm.readOperand(inst.Operands[1])
	b := vm.readOperand(inst.Operands[2])
	dest := inst.Operands[0].Register()

	switch inst.Op {
	case ir.IAdd:
		vm.registers[dest] = uint64(int64(a) + int64(b))
	case ir.ISub:
		vm.registers[dest] = uint64(int64(a) - int64(b))
	case ir.IMul:
		vm.registers[dest] = uint64(int64(a) * int64(b))
	case ir.IDiv:
		vm.registers[dest] = uint64(int64(a) / int64(b))
	case ir.IMod:
		vm.registers[dest] = uint64(int64(a) % int64(b))

	case ir.UAdd:
		vm.registers[dest] = a + b
	case ir.USub:
		vm.registers[dest] = a - b
	case ir.UMul:
		vm.registers[dest] = a * b
	case ir.UDiv:
		vm.registers[dest] = a / b
	case ir.UMod:
		vm.registers[dest] = a % b

	case ir.FAdd:
		vm.registers[dest] = bitsOf(bitsAs[float32](a) + bitsAs[float32](b))
	case ir.FSub:
		vm.registers[dest] = bitsOf(bitsAs[float32](a) - bitsAs[float32](b))
	case ir.FMul:
		vm.registers[dest] = bitsOf(bitsAs[float32](a) * bitsAs[float32](b))
	case ir.FDiv:
		vm.registers[dest] = bitsOf(bitsAs[float32](a) / bitsAs[float32](b))
	case ir.FMod:
		vm.registers[dest] = bitsOf(float32(math.Mod(float64(bitsAs[float32](a)), float64(bitsAs[float32](b)))))

	case ir.DAdd:
		vm.registers[dest] = bitsOf(bitsAs[float64](a) + bitsAs[float64](b))
	case ir.DSub:
		vm.registers[dest] = bitsOf(bitsAs[float64](a) - bitsAs[float64](b))
	case ir.DMul:
		vm.registers[dest] = bitsOf(bitsAs[float64](a) * bitsAs[float64](b))
	case ir.DDiv:
		vm.registers[dest] = bitsOf(bitsAs[float64](a) / bitsAs[float64](b))
	case ir.DMod:
		vm.registers[dest] = bitsOf(math.Mod(bitsAs[float64](a), bitsAs[float64](b)))

	case ir.ILt:
		vm.registers[dest] = boolBits(int64(a) < int64(b))
	case ir.ILte:
		vm.registers[dest] = boolBits(int64(a) <= int64(b))
	case ir.IGt:
		vm.registers[dest] = boolBits(int64(a) > int64(b))
	case ir.IGte:
		vm.registers[dest] = boolBits(int64(a) >= int64(b))
	case ir.IEq:
		vm.registers[dest] = boolBits(int64(a) == int64(b))
	case ir.INeq:
		vm.registers[dest] = boolBits(int64(a) != int64(b))

	case ir.ULt:
		vm.registers[dest] = boolBits(a < b)
	case ir.ULte:
		vm.registers[dest] = boolBits(a <= b)
	case ir.UGt:
		vm.registers[dest] = boolBits(a > b)
	case ir.UGte:
		vm.registers[dest] = boolBits(a >= b)
	case ir.UEq:
		vm.registers[dest] = boolBits(a == b)
	case ir.UNeq:
		vm.registers[dest] = boolBits(a != b)

	case ir.FLt:
		vm.registers[dest] = boolBits(bitsAs[float32](a) < bitsAs[float32](b))
	case ir.FLte:
		vm.registers[dest] = boolBits(bitsAs[float32](a) <= bitsAs[float32](b))
	case ir.FGt:
		vm.registers[dest] = boolBits(bitsAs[float32](a) > bitsAs[float32](b))
	case ir.FGte:
		vm.registers[dest] = boolBits(bitsAs[float32](a) >= bitsAs[float32](b))
	case ir.FEq:
		vm.registers[dest] = boolBits(bitsAs[float32](a) == bitsAs[float32](b))
	case ir.FNeq:
		vm.registers[dest] = boolBits(bitsAs[float32](a) != bitsAs[float32](b))

	case ir.DLt:
		vm.registers[dest] = boolBits(bitsAs[float64](a) < bitsAs[float64](b))
	case ir.DLte:
		vm.registers[dest] = boolBits(bitsAs[float64](a) <= bitsAs[float64](b))
	case ir.DGt:
		vm.registers[dest] = boolBits(bitsAs[float64](a) > bitsAs[float64](b))
	case ir.DGte:
		vm.registers[dest] = boolBits(bitsAs[float64](a) >= bitsAs[float64](b))
	case ir.DEq:
		vm.registers[dest] = boolBits(bitsAs[float64](a) == bitsAs[float64](b))
	case ir.DNeq:
		vm.registers[dest] = boolBits(bitsAs[float64](a) != bitsAs[float64](b))
	}
}

// execIncDec executes the single-operand, read-and-write inc/dec family:
// the sole operand is both the value read and the register written.
func (vm *VM) execIncDec(inst ir.Instruction) {
	reg := inst.Operands[0].Register()
	v := vm.registers[reg]

	switch inst.Op {
	case ir.IInc:
		vm.registers[reg] = uint64(int64(v) + 1)
	case ir.IDec:
		vm.registers[reg] = uint64(int64(v) - 1)
	case ir.UInc:
		vm.registers[reg] = v + 1
	case ir.UDec:
		vm.registers[reg] = v - 1
	case ir.FInc:
		vm.registers[reg] = bitsOf(bitsAs[float32](v) + 1)
	case ir.FDec:
		vm.registers[reg] = bitsOf(bitsAs[float32](v) - 1)
	case ir.DInc:
		vm.registers[reg] = bitsOf(bitsAs[float64](v) + 1)
	case ir.DDec:
		vm.registers[reg] = bitsOf(bitsAs[float64](v) - 1)
	}
}
