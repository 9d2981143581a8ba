package main

import (
	"codegen/builder"
	"codegen/ir"
	"codegen/logging"
	"codegen/types"
)

// demoFunc builds one sample function body and returns a runner that
// invokes it (through its now-installed CallHandler) with the CLI's -a/-b
// arguments.
type demoFunc func(reg *types.Registry, log logging.Handler) (fb *builder.FunctionBuilder, fn ir.Function, run func(fn ir.Function, a, b int64) any, err error)

var demos = map[string]demoFunc{
	"add": buildAdd,
	"fib": buildFib,
	"cvt": buildCvt,
}

// buildAdd builds fn(a:i64, b:i64) -> i64 { return a + b; }.
func buildAdd(reg *types.Registry, log logging.Handler) (*builder.FunctionBuilder, ir.Function, func(ir.Function, int64, int64) any, error) {
	i64 := reg.Primitive("i64")
	sig := types.NewSignature("add", []ir.DataType{i64, i64}, i64, nil)
	fn := types.NewFunction("add", "add", sig)
	b := builder.New(fn, log)

	a, _ := b.GetArg(0)
	bArg, _ := b.GetArg(1)

	sum, err := b.Add(a, bArg)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := b.GenerateReturn(sum); err != nil {
		return nil, nil, nil, err
	}

	run := func(fn ir.Function, a, b int64) any { return callInt64Int64(fn, a, b) }
	return b, fn, run, nil
}

// buildFib builds fn(n:i64) -> i64, the n-th Fibonacci number, computed
// iteratively with a for loop rather than recursively, so the demo doesn't
// need to resolve a self-call before Process has returned.
func buildFib(reg *types.Registry, log logging.Handler) (*builder.FunctionBuilder, ir.Function, func(ir.Function, int64, int64) any, error) {
	i64 := reg.Primitive("i64")
	sig := types.NewSignature("fib", []ir.DataType{i64}, i64, nil)
	fn := types.NewFunction("fib", "fib", sig)
	b := builder.New(fn, log)

	n, _ := b.GetArg(0)

	two := b.ImmI64(2, i64)
	cond, err := b.LessThan(n, two)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := b.GenerateIf(cond, func() error {
		return b.GenerateReturn(n)
	}, nil); err != nil {
		return nil, nil, nil, err
	}

	a := b.Val(i64)
	b.Assign(a, b.ImmI64(0, i64))
	bb := b.Val(i64)
	b.Assign(bb, b.ImmI64(1, i64))
	i := b.Val(i64)
	b.Assign(i, two)

	err = b.GenerateFor(
		nil,
		func() (ir.Value, error) { return b.LessEqual(i, n) },
		func() error {
			_, err := b.PreInc(i)
			return err
		},
		func() error {
			t, err := b.Add(a, bb)
			if err != nil {
				return err
			}
			b.Assign(a, bb)
			b.Assign(bb, t)
			return nil
		},
	)
	if err != nil {
		return nil, nil, nil, err
	}

	if err := b.GenerateReturn(bb); err != nil {
		return nil, nil, nil, err
	}

	run := func(fn ir.Function, a, _ int64) any { return callInt64(fn, a) }
	return b, fn, run, nil
}

// buildCvt builds fn(a:i64) -> f64 { return cvt(a, f64); }, a minimal
// exercise of the integer-to-floating-point conversion matrix.
func buildCvt(reg *types.Registry, log logging.Handler) (*builder.FunctionBuilder, ir.Function, func(ir.Function, int64, int64) any, error) {
	i64 := reg.Primitive("i64")
	f64 := reg.Primitive("f64")
	sig := types.NewSignature("cvt", []ir.DataType{i64}, f64, nil)
	fn := types.NewFunction("cvt", "cvt", sig)
	b := builder.New(fn, log)

	a, _ := b.GetArg(0)
	converted, err := b.ConvertedTo(a, f64)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := b.GenerateReturn(converted); err != nil {
		return nil, nil, nil, err
	}

	run := func(fn ir.Function, a, _ int64) any { return callFloat64(fn, a) }
	return b, fn, run, nil
}
