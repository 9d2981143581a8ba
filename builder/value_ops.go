package builder

import (
	"fmt"

	"codegen/ir"
)

// opFamily is the four opcodes a binary/unary operator lowers to, selected
// by the receiver's primitive type family ({i,u,f,d}). A noop entry means
// the operator is not defined for that family (e.g. bitwise ops have no
// floating-point form).
type opFamily struct {
	i, u, f, d ir.OpCode
	name       string
}

func (fam opFamily) selectFor(info ir.TypeInfo) (ir.OpCode, bool) {
	switch {
	case info.IsIntegral && info.IsUnsigned:
		return fam.u, fam.u != ir.Noop
	case info.IsIntegral:
		return fam.i, fam.i != ir.Noop
	case info.IsFloatingPoint && info.Size == 4:
		return fam.f, fam.f != ir.Noop
	case info.IsFloatingPoint:
		return fam.d, fam.d != ir.Noop
	default:
		return ir.Noop, false
	}
}

// GenBinaryOp lowers lhs <op> rhs per §4.3: primitive receivers emit the
// typed opcode directly; composite receivers resolve an operator method
// (strict match preferred, ambiguity/absence logged and reported as an
// error). assignmentOp routes the result back into lhs's own register
// instead of allocating a fresh one (the fam.name == "=" case additionally
// skips the read of lhs entirely, since plain assignment never reads the
// destination).
func (b *FunctionBuilder) GenBinaryOp(lhs, rhs ir.Value, fam opFamily, assignmentOp bool) (ir.Value, error) {
	if lhs.IsEmpty() || rhs.IsEmpty() {
		return ir.Value{}, nil
	}
	if lhs.IsLabel() || rhs.IsLabel() {
		b.log.Errorf("invalid use of label as a value")
		return ir.Value{}, fmt.Errorf("builder: invalid use of label as a value")
	}

	lt := lhs.Type()
	if lt != nil && lt.Info().IsPrimitive {
		op, ok := fam.selectFor(lt.Info())
		if !ok {
			b.log.Errorf("arithmetic involving >64-bit wide floating point values is unsupported")
			return ir.Value{}, fmt.Errorf("builder: unsupported operand width for %q", fam.name)
		}

		convertedRHS, err := b.ConvertedTo(rhs, lt)
		if err != nil {
			return ir.Value{}, err
		}

		if op == ir.Assign {
			b.add(ir.Instruction{Op: ir.Assign, Operands: [3]ir.Value{lhs, convertedRHS}})
			return lhs, nil
		}
		if assignmentOp {
			b.add(ir.Instruction{Op: op, Operands: [3]ir.Value{lhs, lhs, convertedRHS}})
			return lhs, nil
		}

		result := b.Val(lt)
		b.add(ir.Instruction{Op: op, Operands: [3]ir.Value{result, lhs, convertedRHS}})
		return result, nil
	}

	return b.resolveAndCallBinaryOperator(lhs, rhs, fam.name)
}

func (b *FunctionBuilder) resolveAndCallBinaryOperator(lhs, rhs ir.Value, opName string) (ir.Value, error) {
	lt := lhs.Type()
	candidates, strict := lt.FindMethods(opName, []ir.DataType{rhs.Type()}, ir.AccessAll)
	if strict {
		return b.GenerateCall(candidates[0], []ir.Value{rhs}, lhs)
	}
	if len(candidates) > 1 {
		b.log.Errorf("reference to operator %q of type %q with arguments (%s) is ambiguous", opName, lt.Name(), rhs.Type().Name())
		for _, c := range candidates {
			b.log.Infof("^ could be: %s", c.FullName())
		}
		return ir.Value{}, fmt.Errorf("builder: ambiguous operator %q on type %q", opName, lt.Name())
	}
	if len(candidates) == 0 {
		b.log.Errorf("type %q has no operator %q with arguments matching (%s)", lt.Name(), opName, rhs.Type().Name())
		return ir.Value{}, fmt.Errorf("builder: type %q has no operator %q", lt.Name(), opName)
	}
	return b.GenerateCall(candidates[0], []ir.Value{rhs}, lhs)
}

// unaryFamily mirrors opFamily for unary operators.
type unaryFamily struct {
	i, u, f, d ir.OpCode
	name       string
}

func (fam unaryFamily) selectFor(info ir.TypeInfo) (ir.OpCode, bool) {
	switch {
	case info.IsIntegral && info.IsUnsigned:
		return fam.u, fam.u != ir.Noop
	case info.IsIntegral:
		return fam.i, fam.i != ir.Noop
	case info.IsFloatingPoint && info.Size == 4:
		return fam.f, fam.f != ir.Noop
	case info.IsFloatingPoint:
		return fam.d, fam.d != ir.Noop
	default:
		return ir.Noop, false
	}
}

// GenUnaryOp lowers a unary operator on val. noResultReg applies the op to
// val in place; otherwise the op writes a separate result register.
// resultIsPreOp copies val into the result before the op, so the result
// holds the pre-op value (post-increment style, x++); with noResultReg and
// !resultIsPreOp the result is copied from val after the in-place op
// (pre-increment style, ++x).
func (b *FunctionBuilder) GenUnaryOp(val ir.Value, fam unaryFamily, resultIsPreOp, noResultReg bool) (ir.Value, error) {
	if val.IsEmpty() {
		return ir.Value{}, nil
	}
	if val.IsLabel() {
		b.log.Errorf("invalid use of label as a value")
		return ir.Value{}, fmt.Errorf("builder: invalid use of label as a value")
	}

	t := val.Type()
	if t != nil && t.Info().IsPrimitive {
		op, ok := fam.selectFor(t.Info())
		if !ok {
			b.log.Errorf("arithmetic involving >64-bit wide floating point values is unsupported")
			return ir.Value{}, fmt.Errorf("builder: unsupported operand width for %q", fam.name)
		}

		result := b.Val(t)
		if resultIsPreOp {
			b.add(ir.Instruction{Op: ir.Assign, Operands: [3]ir.Value{result, val}})
		}

		if noResultReg {
			b.add(ir.Instruction{Op: op, Operands: [3]ir.Value{val}})
		} else {
			b.add(ir.Instruction{Op: op, Operands: [3]ir.Value{result, val}})
		}

		if noResultReg && !resultIsPreOp {
			b.add(ir.Instruction{Op: ir.Assign, Operands: [3]ir.Value{result, val}})
		}

		return result, nil
	}

	candidates, strict := t.FindMethods(fam.name, nil, ir.AccessAll)
	if strict {
		return b.GenerateCall(candidates[0], nil, val)
	}
	if len(candidates) > 1 {
		b.log.Errorf("reference to operator %q of type %q with arguments () is ambiguous", fam.name, t.Name())
		for _, c := range candidates {
			b.log.Infof("^ could be: %s", c.FullName())
		}
		return ir.Value{}, fmt.Errorf("builder: ambiguous operator %q on type %q", fam.name, t.Name())
	}
	if len(candidates) == 0 {
		b.log.Errorf("type %q has no operator %q with arguments matching ()", t.Name(), fam.name)
		return ir.Value{}, fmt.Errorf("builder: type %q has no operator %q", t.Name(), fam.name)
	}
	return b.GenerateCall(candidates[0], nil, val)
}

// Named operator families, mirroring Value::operator overloads.
var (
	opAdd    = opFamily{ir.IAdd, ir.UAdd, ir.FAdd, ir.DAdd, "+"}
	opAddAsn = opFamily{ir.IAdd, ir.UAdd, ir.FAdd, ir.DAdd, "+="}
	opSub    = opFamily{ir.ISub, ir.USub, ir.FSub, ir.DSub, "-"}
	opSubAsn = opFamily{ir.ISub, ir.USub, ir.FSub, ir.DSub, "-="}
	opMul    = opFamily{ir.IMul, ir.UMul, ir.FMul, ir.DMul, "*"}
	opMulAsn = opFamily{ir.IMul, ir.UMul, ir.FMul, ir.DMul, "*="}
	opDiv    = opFamily{ir.IDiv, ir.UDiv, ir.FDiv, ir.DDiv, "/"}
	opDivAsn = opFamily{ir.IDiv, ir.UDiv, ir.FDiv, ir.DDiv, "/="}
	opMod    = opFamily{ir.IMod, ir.UMod, ir.FMod, ir.DMod, "%"}
	opModAsn = opFamily{ir.IMod, ir.UMod, ir.FMod, ir.DMod, "%="}
	opXor    = opFamily{ir.Xor, ir.Xor, ir.Noop, ir.Noop, "^"}
	opXorAsn = opFamily{ir.Xor, ir.Xor, ir.Noop, ir.Noop, "^="}
	opBAnd   = opFamily{ir.Band, ir.Band, ir.Noop, ir.Noop, "&"}
	opBAndAsn = opFamily{ir.Band, ir.Band, ir.Noop, ir.Noop, "&="}
	opBOr    = opFamily{ir.Bor, ir.Bor, ir.Noop, ir.Noop, "|"}
	opBOrAsn = opFamily{ir.Bor, ir.Bor, ir.Noop, ir.Noop, "|="}
	opShl    = opFamily{ir.Shl, ir.Shl, ir.Noop, ir.Noop, "<<"}
	opShr    = opFamily{ir.Shr, ir.Shr, ir.Noop, ir.Noop, ">>"}
	opNeq    = opFamily{ir.INeq, ir.UNeq, ir.FNeq, ir.DNeq, "!="}
	opEq     = opFamily{ir.IEq, ir.UEq, ir.FEq, ir.DEq, "=="}
	opLt     = opFamily{ir.ILt, ir.ULt, ir.FLt, ir.DLt, "<"}
	opLte    = opFamily{ir.ILte, ir.ULte, ir.FLte, ir.DLte, "<="}
	opGt     = opFamily{ir.IGt, ir.UGt, ir.FGt, ir.DGt, ">"}
	opGte    = opFamily{ir.IGte, ir.UGte, ir.FGte, ir.DGte, ">="}
	opLAnd   = opFamily{ir.Land, ir.Land, ir.Land, ir.Land, "&&"}
	opLOr    = opFamily{ir.Lor, ir.Lor, ir.Lor, ir.Lor, "||"}
	opAssign = opFamily{ir.Assign, ir.Assign, ir.Assign, ir.Assign, "="}

	opNeg = unaryFamily{ir.INeg, ir.Noop, ir.FNeg, ir.DNeg, "-"}
	opDec        = unaryFamily{ir.IDec, ir.UDec, ir.FDec, ir.DDec, "--"}
	opInc        = unaryFamily{ir.IInc, ir.UInc, ir.FInc, ir.DInc, "++"}
	opNot = unaryFamily{ir.Not, ir.Not, ir.Not, ir.Not, "!"}
	opBNot = unaryFamily{ir.Inv, ir.Inv, ir.Noop, ir.Noop, "~"}
)

func (b *FunctionBuilder) Add(lhs, rhs ir.Value) (ir.Value, error) { return b.GenBinaryOp(lhs, rhs, opAdd, false) }
func (b *FunctionBuilder) AddAssign(lhs, rhs ir.Value) (ir.Value, error) { return b.GenBinaryOp(lhs, rhs, opAddAsn, true) }
func (b *FunctionBuilder) Sub(lhs, rhs ir.Value) (ir.Value, error) { return b.GenBinaryOp(lhs, rhs, opSub, false) }
func (b *FunctionBuilder) SubAssign(lhs, rhs ir.Value) (ir.Value, error) { return b.GenBinaryOp(lhs, rhs, opSubAsn, true) }
func (b *FunctionBuilder) Mul(lhs, rhs ir.Value) (ir.Value, error) { return b.GenBinaryOp(lhs, rhs, opMul, false) }
func (b *FunctionBuilder) MulAssign(lhs, rhs ir.Value) (ir.Value, error) { return b.GenBinaryOp(lhs, rhs, opMulAsn, true) }
func (b *FunctionBuilder) Div(lhs, rhs ir.Value) (ir.Value, error) { return b.GenBinaryOp(lhs, rhs, opDiv, false) }
func (b *FunctionBuilder) DivAssign(lhs, rhs ir.Value) (ir.Value, error) { return b.GenBinaryOp(lhs, rhs, opDivAsn, true) }
func (b *FunctionBuilder) Mod(lhs, rhs ir.Value) (ir.Value, error) { return b.GenBinaryOp(lhs, rhs, opMod, false) }
func (b *FunctionBuilder) ModAssign(lhs, rhs ir.Value) (ir.Value, error) { return b.GenBinaryOp(lhs, rhs, opModAsn, true) }
func (b *FunctionBuilder) BitXor(lhs, rhs ir.Value) (ir.Value, error) { return b.GenBinaryOp(lhs, rhs, opXor, false) }
func (b *FunctionBuilder) BitXorAssign(lhs, rhs ir.Value) (ir.Value, error) { return b.GenBinaryOp(lhs, rhs, opXorAsn, true) }
func (b *FunctionBuilder) BitAnd(lhs, rhs ir.Value) (ir.Value, error) { return b.GenBinaryOp(lhs, rhs, opBAnd, false) }
func (b *FunctionBuilder) BitAndAssign(lhs, rhs ir.Value) (ir.Value, error) { return b.GenBinaryOp(lhs, rhs, opBAndAsn, true) }
func (b *FunctionBuilder) BitOr(lhs, rhs ir.Value) (ir.Value, error) { return b.GenBinaryOp(lhs, rhs, opBOr, false) }
func (b *FunctionBuilder) BitOrAssign(lhs, rhs ir.Value) (ir.Value, error) { return b.GenBinaryOp(lhs, rhs, opBOrAsn, true) }
func (b *FunctionBuilder) ShiftLeft(lhs, rhs ir.Value) (ir.Value, error) { return b.GenBinaryOp(lhs, rhs, opShl, false) }
func (b *FunctionBuilder) ShiftRight(lhs, rhs ir.Value) (ir.Value, error) { return b.GenBinaryOp(lhs, rhs, opShr, false) }
func (b *FunctionBuilder) NotEqual(lhs, rhs ir.Value) (ir.Value, error) { return b.GenBinaryOp(lhs, rhs, opNeq, false) }
func (b *FunctionBuilder) Equal(lhs, rhs ir.Value) (ir.Value, error) { return b.GenBinaryOp(lhs, rhs, opEq, false) }
func (b *FunctionBuilder) LessThan(lhs, rhs ir.Value) (ir.Value, error) { return b.GenBinaryOp(lhs, rhs, opLt, false) }
func (b *FunctionBuilder) LessEqual(lhs, rhs ir.Value) (ir.Value, error) { return b.GenBinaryOp(lhs, rhs, opLte, false) }
func (b *FunctionBuilder) GreaterThan(lhs, rhs ir.Value) (ir.Value, error) { return b.GenBinaryOp(lhs, rhs, opGt, false) }
func (b *FunctionBuilder) GreaterEqual(lhs, rhs ir.Value) (ir.Value, error) { return b.GenBinaryOp(lhs, rhs, opGte, false) }
func (b *FunctionBuilder) LogicalAnd(lhs, rhs ir.Value) (ir.Value, error) { return b.GenBinaryOp(lhs, rhs, opLAnd, false) }
func (b *FunctionBuilder) LogicalOr(lhs, rhs ir.Value) (ir.Value, error) { return b.GenBinaryOp(lhs, rhs, opLOr, false) }
func (b *FunctionBuilder) AssignValue(lhs, rhs ir.Value) (ir.Value, error) { return b.GenBinaryOp(lhs, rhs, opAssign, true) }

func (b *FunctionBuilder) Negate(val ir.Value) (ir.Value, error) { return b.GenUnaryOp(val, opNeg, false, false) }
func (b *FunctionBuilder) PreDec(val ir.Value) (ir.Value, error) { return b.GenUnaryOp(val, opDec, false, true) }
func (b *FunctionBuilder) PostDec(val ir.Value) (ir.Value, error) { return b.GenUnaryOp(val, opDec, true, true) }
func (b *FunctionBuilder) PreInc(val ir.Value) (ir.Value, error) { return b.GenUnaryOp(val, opInc, false, true) }
func (b *FunctionBuilder) PostInc(val ir.Value) (ir.Value, error) { return b.GenUnaryOp(val, opInc, true, true) }
func (b *FunctionBuilder) LogicalNot(val ir.Value) (ir.Value, error) { return b.GenUnaryOp(val, opNot, false, false) }
func (b *FunctionBuilder) BitNot(val ir.Value) (ir.Value, error) { return b.GenUnaryOp(val, opBNot, false, false) }

// ConvertedTo converts v to type t, emitting a `cvt` when a conversion is
// actually required. Primitive-to-primitive conversions are always
// allowed; composite types resolve a conversion operator method.
func (b *FunctionBuilder) ConvertedTo(v ir.Value, t ir.DataType) (ir.Value, error) {
	if v.Type() == nil || t == nil || v.Type().IsEqualTo(t) {
		return v, nil
	}

	if v.Type().Info().IsPrimitive && t.Info().IsPrimitive {
		dest := b.Val(t)
		b.add(ir.Instruction{
			Op:       ir.Cvt,
			Operands: [3]ir.Value{dest, v, ir.ImmediateValue(t.SymbolID(), t)},
		})
		return dest, nil
	}

	conv := v.Type().FindConversionOperator(t, ir.AccessAll)
	if conv == nil {
		return ir.Value{}, fmt.Errorf("builder: no conversion from %q to %q", v.Type().Name(), t.Name())
	}
	return b.GenerateCall(conv, nil, v)
}
