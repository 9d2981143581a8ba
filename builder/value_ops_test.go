package builder

import (
	"testing"

	"codegen/ir"
	"codegen/logging"
	"codegen/types"
)

func TestAddSelectsIntegralOpcode(t *testing.T) {
	reg := types.NewRegistry()
	i64 := reg.Primitive("i64")
	fn := newTestFunc(reg, "f", []ir.DataType{i64, i64}, nil)
	b := New(fn, logging.Nop())

	a, _ := b.GetArg(0)
	c, _ := b.GetArg(1)

	result, err := b.Add(a, c)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	last := b.Code()[len(b.Code())-1]
	if last.Op != ir.IAdd {
		t.Errorf("expected IAdd for two signed i64 operands, got %v", last.Op)
	}
	if result.Register() == a.Register() {
		t.Errorf("non-assignment Add should allocate a fresh destination register")
	}
}

func TestAddSelectsUnsignedOpcode(t *testing.T) {
	reg := types.NewRegistry()
	u64 := reg.Primitive("u64")
	fn := newTestFunc(reg, "f", []ir.DataType{u64, u64}, nil)
	b := New(fn, logging.Nop())

	a, _ := b.GetArg(0)
	c, _ := b.GetArg(1)
	if _, err := b.Add(a, c); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if last := b.Code()[len(b.Code())-1]; last.Op != ir.UAdd {
		t.Errorf("expected UAdd for two unsigned operands, got %v", last.Op)
	}
}

func TestAddSelectsFloatOpcodeByWidth(t *testing.T) {
	reg := types.NewRegistry()
	f32 := reg.Primitive("f32")
	f64 := reg.Primitive("f64")

	fnF32 := newTestFunc(reg, "f32fn", []ir.DataType{f32, f32}, nil)
	b32 := New(fnF32, logging.Nop())
	a, _ := b32.GetArg(0)
	c, _ := b32.GetArg(1)
	if _, err := b32.Add(a, c); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if last := b32.Code()[len(b32.Code())-1]; last.Op != ir.FAdd {
		t.Errorf("expected FAdd for f32 operands, got %v", last.Op)
	}

	fnF64 := newTestFunc(reg, "f64fn", []ir.DataType{f64, f64}, nil)
	b64 := New(fnF64, logging.Nop())
	a2, _ := b64.GetArg(0)
	c2, _ := b64.GetArg(1)
	if _, err := b64.Add(a2, c2); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if last := b64.Code()[len(b64.Code())-1]; last.Op != ir.DAdd {
		t.Errorf("expected DAdd for f64 operands, got %v", last.Op)
	}
}

func TestBitXorUnsupportedOnFloat(t *testing.T) {
	reg := types.NewRegistry()
	f64 := reg.Primitive("f64")
	fn := newTestFunc(reg, "f", []ir.DataType{f64, f64}, nil)
	b := New(fn, logging.Nop())

	a, _ := b.GetArg(0)
	c, _ := b.GetArg(1)
	if _, err := b.BitXor(a, c); err == nil {
		t.Errorf("expected an error XOR-ing two floating point operands")
	}
}

func TestAddAssignReusesDestinationRegister(t *testing.T) {
	reg := types.NewRegistry()
	i64 := reg.Primitive("i64")
	fn := newTestFunc(reg, "f", []ir.DataType{i64, i64}, nil)
	b := New(fn, logging.Nop())

	a, _ := b.GetArg(0)
	c, _ := b.GetArg(1)

	result, err := b.AddAssign(a, c)
	if err != nil {
		t.Fatalf("AddAssign: %v", err)
	}
	if result.Register() != a.Register() {
		t.Errorf("AddAssign should return lhs's own register, not a fresh one")
	}
	last := b.Code()[len(b.Code())-1]
	if last.Operands[0].Register() != a.Register() || last.Operands[1].Register() != a.Register() {
		t.Errorf("AddAssign's instruction should read and write lhs's register in place")
	}
}

func TestPreIncAndPostIncDiffer(t *testing.T) {
	reg := types.NewRegistry()
	i64 := reg.Primitive("i64")
	fn := newTestFunc(reg, "f", []ir.DataType{i64}, nil)
	b := New(fn, logging.Nop())

	a, _ := b.GetArg(0)

	beforePre := len(b.Code())
	if _, err := b.PreInc(a); err != nil {
		t.Fatalf("PreInc: %v", err)
	}
	preInstrs := b.Code()[beforePre:]
	// pre-increment: mutate val in place first, then capture the post-mutation value
	if preInstrs[0].Op != ir.IInc {
		t.Errorf("PreInc should mutate in place first, got %v", preInstrs[0].Op)
	}
	if preInstrs[len(preInstrs)-1].Op != ir.Assign {
		t.Errorf("PreInc should capture the post-mutation value via a trailing Assign, got %v", preInstrs[len(preInstrs)-1].Op)
	}

	beforePost := len(b.Code())
	if _, err := b.PostInc(a); err != nil {
		t.Fatalf("PostInc: %v", err)
	}
	postInstrs := b.Code()[beforePost:]
	if postInstrs[0].Op != ir.Assign {
		t.Errorf("PostInc should capture the pre-mutation value first via Assign, got %v", postInstrs[0].Op)
	}
}

func TestConvertedToNoopWhenTypesEqual(t *testing.T) {
	reg := types.NewRegistry()
	i64 := reg.Primitive("i64")
	fn := newTestFunc(reg, "f", []ir.DataType{i64}, nil)
	b := New(fn, logging.Nop())

	a, _ := b.GetArg(0)
	before := len(b.Code())
	result, err := b.ConvertedTo(a, i64)
	if err != nil {
		t.Fatalf("ConvertedTo: %v", err)
	}
	if len(b.Code()) != before {
		t.Errorf("ConvertedTo to the same type should not emit any instruction")
	}
	if result.Register() != a.Register() {
		t.Errorf("ConvertedTo to the same type should return v unchanged")
	}
}

func TestConvertedToEmitsCvtAcrossPrimitives(t *testing.T) {
	reg := types.NewRegistry()
	i64 := reg.Primitive("i64")
	f64 := reg.Primitive("f64")
	fn := newTestFunc(reg, "f", []ir.DataType{i64}, nil)
	b := New(fn, logging.Nop())

	a, _ := b.GetArg(0)
	result, err := b.ConvertedTo(a, f64)
	if err != nil {
		t.Fatalf("ConvertedTo: %v", err)
	}
	last := b.Code()[len(b.Code())-1]
	if last.Op != ir.Cvt {
		t.Fatalf("expected a Cvt instruction, got %v", last.Op)
	}
	if result.Type() != f64 {
		t.Errorf("ConvertedTo result should be typed as the destination type")
	}
}

func TestConvertedToCompositeWithoutOperatorErrors(t *testing.T) {
	reg := types.NewRegistry()
	i64 := reg.Primitive("i64")
	vec := reg.DeclareComposite("Vec2", nil)
	fn := newTestFunc(reg, "f", []ir.DataType{i64}, nil)
	b := New(fn, logging.Nop())

	a, _ := b.GetArg(0)
	if _, err := b.ConvertedTo(a, vec); err == nil {
		t.Errorf("expected an error converting a primitive to a composite with no constructor/conversion path wired")
	}
}
