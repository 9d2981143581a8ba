package optimize

import (
	"math"

	"codegen/analysis"
	"codegen/ir"
)

// ConstantFolding rewrites instructions whose operands are all immediates
// into a plain `assign` of the computed result: arithmetic, comparison and
// unary (negate/not/invert) families, plus `cvt`. It never touches
// `iinc`/`idec` and friends, since those opcodes only ever take a register
// operand, never an immediate, so there's nothing to fold.
type ConstantFolding struct {
	group *Group
}

func NewConstantFolding() *ConstantFolding { return &ConstantFolding{} }

func (s *ConstantFolding) Name() string      { return "constant-folding" }
func (s *ConstantFolding) setGroup(g *Group) { s.group = g }

// Execute runs one whole-function pass. Implements WholeStep.
func (s *ConstantFolding) Execute(ch *ir.CodeHolder, mask uint32) bool {
	hasChanges := false

	for c := range ch.Code {
		inst := ch.Code[c]
		folded, ok := tryFold(inst)
		if !ok {
			continue
		}
		ch.Code[c] = ir.Instruction{
			Op:       ir.Assign,
			Operands: [3]ir.Value{inst.Operands[0], folded},
			Src:      inst.Src,
		}
		hasChanges = true
	}

	if hasChanges {
		ch.InvalidateAnalyses()
		analysis.RebuildAll(ch)
		if s.group != nil {
			s.group.SetShouldRepeat(true)
		}
	}

	return false
}

func tryFold(inst ir.Instruction) (ir.Value, bool) {
	switch inst.Op {
	case ir.IAdd, ir.UAdd, ir.FAdd, ir.DAdd,
		ir.ISub, ir.USub, ir.FSub, ir.DSub,
		ir.IMul, ir.UMul, ir.FMul, ir.DMul,
		ir.IDiv, ir.UDiv, ir.FDiv, ir.DDiv,
		ir.IMod, ir.UMod, ir.FMod, ir.DMod:
		if !inst.Operands[1].IsImmediate() || !inst.Operands[2].IsImmediate() {
			return ir.Value{}, false
		}
		return foldBinaryArith(inst.Op, inst.Operands[1], inst.Operands[2])

	case ir.ILt, ir.ULt, ir.FLt, ir.DLt,
		ir.ILte, ir.ULte, ir.FLte, ir.DLte,
		ir.IGt, ir.UGt, ir.FGt, ir.DGt,
		ir.IGte, ir.UGte, ir.FGte, ir.DGte,
		ir.IEq, ir.UEq, ir.FEq, ir.DEq,
		ir.INeq, ir.UNeq, ir.FNeq, ir.DNeq:
		if !inst.Operands[1].IsImmediate() || !inst.Operands[2].IsImmediate() {
			return ir.Value{}, false
		}
		return foldComparison(inst.Op, inst.Operands[1], inst.Operands[2], inst.Operands[0].Type())

	case ir.INeg, ir.FNeg, ir.DNeg:
		if !inst.Operands[1].IsImmediate() {
			return ir.Value{}, false
		}
		return foldNeg(inst.Op, inst.Operands[1])

	case ir.Not:
		if !inst.Operands[1].IsImmediate() {
			return ir.Value{}, false
		}
		return foldNot(inst.Operands[1])

	case ir.Inv:
		if !inst.Operands[1].IsImmediate() {
			return ir.Value{}, false
		}
		return foldInv(inst.Operands[1])

	case ir.Cvt:
		if !inst.Operands[1].IsImmediate() {
			return ir.Value{}, false
		}
		return foldCvt(inst)
	}
	return ir.Value{}, false
}

func foldBinaryArith(op ir.OpCode, a, b ir.Value) (ir.Value, bool) {
	info := a.Type().Info()

	switch {
	case info.IsFloatingPoint && info.Size == 4:
		x := math.Float32frombits(uint32(a.ImmBits()))
		y := math.Float32frombits(uint32(b.ImmBits()))
		var r float32
		switch op {
		case ir.FAdd:
			r = x + y
		case ir.FSub:
			r = x - y
		case ir.FMul:
			r = x * y
		case ir.FDiv:
			if y == 0 {
				return ir.Value{}, false
			}
			r = x / y
		case ir.FMod:
			if y == 0 {
				return ir.Value{}, false
			}
			r = float32(math.Mod(float64(x), float64(y)))
		default:
			return ir.Value{}, false
		}
		return ir.ImmediateValue(uint64(math.Float32bits(r)), a.Type()), true

	case info.IsFloatingPoint:
		x := math.Float64frombits(a.ImmBits())
		y := math.Float64frombits(b.ImmBits())
		var r float64
		switch op {
		case ir.DAdd:
			r = x + y
		case ir.DSub:
			r = x - y
		case ir.DMul:
			r = x * y
		case ir.DDiv:
			if y == 0 {
				return ir.Value{}, false
			}
			r = x / y
		case ir.DMod:
			if y == 0 {
				return ir.Value{}, false
			}
			r = math.Mod(x, y)
		default:
			return ir.Value{}, false
		}
		return ir.ImmediateValue(math.Float64bits(r), a.Type()), true

	case info.IsUnsigned:
		x, y := a.ImmBits(), b.ImmBits()
		var r uint64
		switch op {
		case ir.UAdd:
			r = x + y
		case ir.USub:
			r = x - y
		case ir.UMul:
			r = x * y
		case ir.UDiv:
			if y == 0 {
				return ir.Value{}, false
			}
			r = x / y
		case ir.UMod:
			if y == 0 {
				return ir.Value{}, false
			}
			r = x % y
		default:
			return ir.Value{}, false
		}
		return ir.ImmediateValue(r, a.Type()), true

	default:
		x, y := int64(a.ImmBits()), int64(b.ImmBits())
		var r int64
		switch op {
		case ir.IAdd:
			r = x + y
		case ir.ISub:
			r = x - y
		case ir.IMul:
			r = x * y
		case ir.IDiv:
			if y == 0 {
				return ir.Value{}, false
			}
			r = x / y
		case ir.IMod:
			if y == 0 {
				return ir.Value{}, false
			}
			r = x % y
		default:
			return ir.Value{}, false
		}
		return ir.ImmediateValue(uint64(r), a.Type()), true
	}
}

func foldComparison(op ir.OpCode, a, b ir.Value, destType ir.DataType) (ir.Value, bool) {
	info := a.Type().Info()
	var res bool

	switch {
	case info.IsFloatingPoint && info.Size == 4:
		x := math.Float32frombits(uint32(a.ImmBits()))
		y := math.Float32frombits(uint32(b.ImmBits()))
		switch op {
		case ir.FLt:
			res = x < y
		case ir.FLte:
			res = x <= y
		case ir.FGt:
			res = x > y
		case ir.FGte:
			res = x >= y
		case ir.FEq:
			res = x == y
		case ir.FNeq:
			res = x != y
		default:
			return ir.Value{}, false
		}

	case info.IsFloatingPoint:
		x := math.Float64frombits(a.ImmBits())
		y := math.Float64frombits(b.ImmBits())
		switch op {
		case ir.DLt:
			res = x < y
		case ir.DLte:
			res = x <= y
		case ir.DGt:
			res = x > y
		case ir.DGte:
			res = x >= y
		case ir.DEq:
			res = x == y
		case ir.DNeq:
			res = x != y
		default:
			return ir.Value{}, false
		}

	case info.IsUnsigned:
		x, y := a.ImmBits(), b.ImmBits()
		switch op {
		case ir.ULt:
			res = x < y
		case ir.ULte:
			res = x <= y
		case ir.UGt:
			res = x > y
		case ir.UGte:
			res = x >= y
		case ir.UEq:
			res = x == y
		case ir.UNeq:
			res = x != y
		default:
			return ir.Value{}, false
		}

	default:
		x, y := int64(a.ImmBits()), int64(b.ImmBits())
		switch op {
		case ir.ILt:
			res = x < y
		case ir.ILte:
			res = x <= y
		case ir.IGt:
			res = x > y
		case ir.IGte:
			res = x >= y
		case ir.IEq:
			res = x == y
		case ir.INeq:
			res = x != y
		default:
			return ir.Value{}, false
		}
	}

	bits := uint64(0)
	if res {
		bits = 1
	}
	return ir.ImmediateValue(bits, destType), true
}

func foldNeg(op ir.OpCode, a ir.Value) (ir.Value, bool) {
	switch op {
	case ir.INeg:
		return ir.ImmediateValue(uint64(-int64(a.ImmBits())), a.Type()), true
	case ir.FNeg:
		f := math.Float32frombits(uint32(a.ImmBits()))
		return ir.ImmediateValue(uint64(math.Float32bits(-f)), a.Type()), true
	case ir.DNeg:
		d := math.Float64frombits(a.ImmBits())
		return ir.ImmediateValue(math.Float64bits(-d), a.Type()), true
	}
	return ir.Value{}, false
}

func foldNot(a ir.Value) (ir.Value, bool) {
	bits := uint64(0)
	if a.ImmBits() == 0 {
		bits = 1
	}
	return ir.ImmediateValue(bits, a.Type()), true
}

func foldInv(a ir.Value) (ir.Value, bool) {
	return ir.ImmediateValue(^a.ImmBits(), a.Type()), true
}

// foldCvt converts an immediate from its source type's domain into the
// destination register's declared type, choosing the {i64,u64,f32,f64}
// conversion path by each side's TypeInfo. Integral results are masked or
// sign-extended to the destination's byte width.
func foldCvt(inst ir.Instruction) (ir.Value, bool) {
	dstType := inst.Operands[0].Type()
	src := inst.Operands[1]
	di := dstType.Info()
	si := src.Type().Info()
	bits := src.ImmBits()

	var result uint64

	switch {
	case si.IsFloatingPoint && di.IsFloatingPoint:
		var f64 float64
		if si.Size == 4 {
			f64 = float64(math.Float32frombits(uint32(bits)))
		} else {
			f64 = math.Float64frombits(bits)
		}
		if di.Size == 4 {
			result = uint64(math.Float32bits(float32(f64)))
		} else {
			result = math.Float64bits(f64)
		}

	case si.IsFloatingPoint && !di.IsFloatingPoint:
		var f64 float64
		if si.Size == 4 {
			f64 = float64(math.Float32frombits(uint32(bits)))
		} else {
			f64 = math.Float64frombits(bits)
		}
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
		if di.Size == 4 {
			result = uint64(math.Float32bits(float32(numeric)))
		} else {
			result = math.Float64bits(numeric)
		}

	default:
		if di.IsUnsigned {
			result = maskToSize(bits, di.Size)
		} else {
			result = signExtendToSize(bits, di.Size)
		}
	}

	return ir.ImmediateValue(result, dstType), true
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
