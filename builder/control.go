package builder

import "codegen/ir"

// PtrOffset computes ptr+offset, producing a value of destType (or ptr's
// own type if destType is nil). Immediate offsets fold their sign into a
// uadd/usub choice at build time; register offsets emit a runtime branch
// on sign for non-unsigned offset types.
func (b *FunctionBuilder) PtrOffset(ptr, offset ir.Value, destType ir.DataType) (ir.Value, error) {
	if err := b.validate(ptr.Type() != nil && ptr.Type().Info().IsPointer, "ptrOffset: ptr should have a pointer type"); err != nil {
		return ir.Value{}, err
	}
	oi := offset.Type().Info()

	t := destType
	if t == nil {
		t = ptr.Type()
	}
	result := b.Val(t)

	if offset.IsImmediate() {
		if oi.IsUnsigned {
			b.emitBinary(ir.UAdd, result, ptr, offset)
			return result, nil
		}
		ioff := int64(offset.ImmBits())
		if ioff >= 0 {
			b.emitBinary(ir.UAdd, result, ptr, offset)
		} else {
			b.emitBinary(ir.USub, result, ptr, ir.ImmediateValue(uint64(-ioff), offset.Type()))
		}
		return result, nil
	}

	if oi.IsUnsigned {
		b.emitBinary(ir.UAdd, result, ptr, offset)
		return result, nil
	}

	zero := ir.ImmediateValue(0, offset.Type())
	cond, err := b.GreaterThan(offset, zero)
	if err != nil {
		return ir.Value{}, err
	}
	err = b.GenerateIf(cond, func() error {
		b.emitBinary(ir.UAdd, result, ptr, offset)
		return nil
	}, func() error {
		negated, err := b.Negate(offset)
		if err != nil {
			return err
		}
		b.emitBinary(ir.USub, result, ptr, negated)
		return nil
	})
	return result, err
}

// GenerateIf emits `branch(cond, elseLabel)` / then / (optional) jump past
// the else block / elseLabel / else / end label. els may be nil for a
// bodyless else. Each branch runs inside its own Scope so stack
// allocations made within it are cleaned up before control leaves.
func (b *FunctionBuilder) GenerateIf(cond ir.Value, then func() error, els func() error) error {
	elseLbl := b.Label()
	b.Branch(cond, elseLbl)

	thenScope := NewScope(b)
	if err := then(); err != nil {
		return err
	}

	if err := thenScope.Escape(); err != nil {
		return err
	}
	var endLbl ir.LabelID
	if els != nil {
		endLbl = b.Label()
		b.Jump(endLbl)
	}

	b.PlaceLabel(elseLbl)
	if els != nil {
		elseScope := NewScope(b)
		if err := els(); err != nil {
			return err
		}
		if err := elseScope.Escape(); err != nil {
			return err
		}
		b.PlaceLabel(endLbl)
	}
	return nil
}

// GenerateFor emits a C-style for loop: init runs once outside the loop
// scope; cond is evaluated at the top of each iteration (loop exits when
// it's falsy); body runs inside a Scope whose break/continue labels are
// wired to the loop's exit/step labels; step runs after body, before the
// next cond check.
func (b *FunctionBuilder) GenerateFor(
	init func() error,
	cond func() (ir.Value, error),
	step func() error,
	body func() error,
) error {
	if init != nil {
		if err := init(); err != nil {
			return err
		}
	}

	topLbl := b.Label()
	stepLbl := b.Label()
	endLbl := b.Label()

	b.PlaceLabel(topLbl)

	if cond != nil {
		c, err := cond()
		if err != nil {
			return err
		}
		b.Branch(c, endLbl)
	}

	loopScope := NewScope(b)
	loopScope.SetLoopContinueLabel(stepLbl)
	loopScope.SetLoopBreakLabel(endLbl)

	if err := body(); err != nil {
		return err
	}
	if err := loopScope.Escape(); err != nil {
		return err
	}

	b.PlaceLabel(stepLbl)
	if step != nil {
		if err := step(); err != nil {
			return err
		}
	}
	b.Jump(topLbl)
	b.PlaceLabel(endLbl)
	return nil
}
