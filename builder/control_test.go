package builder

import (
	"testing"

	"codegen/ir"
	"codegen/logging"
	"codegen/types"
)

func TestGenerateIfEmitsBranchAndLabel(t *testing.T) {
	reg := types.NewRegistry()
	i64 := reg.Primitive("i64")
	fn := newTestFunc(reg, "f", []ir.DataType{i64}, i64)
	b := New(fn, logging.Nop())

	n, _ := b.GetArg(0)
	two := b.ImmI64(2, i64)
	cond, err := b.LessThan(n, two)
	if err != nil {
		t.Fatalf("LessThan: %v", err)
	}

	ranThen := false
	if err := b.GenerateIf(cond, func() error {
		ranThen = true
		return nil
	}, nil); err != nil {
		t.Fatalf("GenerateIf: %v", err)
	}
	if !ranThen {
		t.Errorf("GenerateIf should invoke the then callback during emission")
	}

	var sawBranch, sawLabel bool
	for _, inst := range b.Code() {
		if inst.Op == ir.Branch {
			sawBranch = true
		}
		if inst.Op == ir.Label {
			sawLabel = true
		}
	}
	if !sawBranch || !sawLabel {
		t.Errorf("expected GenerateIf to emit both a Branch and a Label instruction")
	}
}

func TestGenerateIfWithElseRunsBothBranches(t *testing.T) {
	reg := types.NewRegistry()
	i64 := reg.Primitive("i64")
	fn := newTestFunc(reg, "f", []ir.DataType{i64}, nil)
	b := New(fn, logging.Nop())

	n, _ := b.GetArg(0)
	cond, _ := b.LessThan(n, b.ImmI64(0, i64))

	var ranThen, ranElse bool
	err := b.GenerateIf(cond, func() error {
		ranThen = true
		return nil
	}, func() error {
		ranElse = true
		return nil
	})
	if err != nil {
		t.Fatalf("GenerateIf: %v", err)
	}
	if !ranThen || !ranElse {
		t.Errorf("GenerateIf with an else branch should run both callbacks while emitting")
	}

	var jumps int
	for _, inst := range b.Code() {
		if inst.Op == ir.Jump {
			jumps++
		}
	}
	if jumps == 0 {
		t.Errorf("expected at least one Jump instruction to skip over the else branch")
	}
}

func TestGenerateForEmitsLoopStructure(t *testing.T) {
	reg := types.NewRegistry()
	i64 := reg.Primitive("i64")
	fn := newTestFunc(reg, "f", []ir.DataType{i64}, i64)
	b := New(fn, logging.Nop())

	n, _ := b.GetArg(0)
	i := b.Val(i64)

	var initRan, stepRan, bodyRan bool
	err := b.GenerateFor(
		func() error { initRan = true; b.Assign(i, b.ImmI64(0, i64)); return nil },
		func() (ir.Value, error) { return b.LessThan(i, n) },
		func() error { stepRan = true; _, err := b.PreInc(i); return err },
		func() error { bodyRan = true; return nil },
	)
	if err != nil {
		t.Fatalf("GenerateFor: %v", err)
	}
	if !initRan || !stepRan || !bodyRan {
		t.Errorf("GenerateFor should invoke init, step and body while emitting")
	}

	var labels, branches, jumps int
	for _, inst := range b.Code() {
		switch inst.Op {
		case ir.Label:
			labels++
		case ir.Branch:
			branches++
		case ir.Jump:
			jumps++
		}
	}
	if labels < 3 {
		t.Errorf("expected at least 3 labels (top/step/end), got %d", labels)
	}
	if branches == 0 {
		t.Errorf("expected at least one Branch instruction for the loop condition")
	}
	if jumps == 0 {
		t.Errorf("expected at least one Jump instruction closing the loop back to top")
	}
}

func TestGenerateReturnPrimitiveEmitsRetDirectly(t *testing.T) {
	reg := types.NewRegistry()
	i64 := reg.Primitive("i64")
	fn := newTestFunc(reg, "f", []ir.DataType{i64}, i64)
	b := New(fn, logging.Nop())

	a, _ := b.GetArg(0)
	if err := b.GenerateReturn(a); err != nil {
		t.Fatalf("GenerateReturn: %v", err)
	}

	last := b.Code()[len(b.Code())-1]
	if last.Op != ir.Ret {
		t.Fatalf("expected the final instruction to be Ret, got %v", last.Op)
	}
	if last.Operands[0].Register() != a.Register() {
		t.Errorf("primitive return should pass the value straight through to Ret")
	}

	for _, inst := range b.Code() {
		if inst.Op == ir.RetPtr {
			t.Errorf("a primitive return should never allocate a ret_ptr register")
		}
	}
}

func TestGenerateCallArityMismatchErrors(t *testing.T) {
	reg := types.NewRegistry()
	i64 := reg.Primitive("i64")
	callee := newTestFunc(reg, "add", []ir.DataType{i64, i64}, i64)

	fn := newTestFunc(reg, "caller", nil, nil)
	b := New(fn, logging.Nop())

	_, err := b.GenerateCall(callee, []ir.Value{b.ImmI64(1, i64)}, ir.Value{})
	if err == nil {
		t.Errorf("expected an error calling a two-argument function with one argument")
	}
}

func TestGenerateCallEmitsParamsAndCall(t *testing.T) {
	reg := types.NewRegistry()
	i64 := reg.Primitive("i64")
	callee := newTestFunc(reg, "add", []ir.DataType{i64, i64}, i64)

	fn := newTestFunc(reg, "caller", nil, nil)
	b := New(fn, logging.Nop())

	result, err := b.GenerateCall(callee, []ir.Value{b.ImmI64(1, i64), b.ImmI64(2, i64)}, ir.Value{})
	if err != nil {
		t.Fatalf("GenerateCall: %v", err)
	}
	if !result.IsRegister() {
		t.Errorf("a non-void call should return a register-bound result")
	}

	var params, calls int
	for _, inst := range b.Code() {
		switch inst.Op {
		case ir.Param:
			params++
		case ir.Call:
			calls++
		}
	}
	if params != 2 {
		t.Errorf("expected 2 Param instructions, got %d", params)
	}
	if calls != 1 {
		t.Errorf("expected exactly 1 Call instruction, got %d", calls)
	}
}
