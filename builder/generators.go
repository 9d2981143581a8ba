package builder

import (
	"fmt"
	"strings"

	"codegen/ir"
)

// GenerateCall emits a full call sequence: param instructions converting
// each argument to the callee's declared parameter type, then the call
// itself, returning a fresh register bound to the return value (empty if
// the function returns void).
func (b *FunctionBuilder) GenerateCall(fn ir.Function, args []ir.Value, selfPtr ir.Value) (ir.Value, error) {
	sig := fn.Signature()
	params := sig.Args()
	if len(params) != len(args) {
		b.log.Errorf("incorrect number of arguments provided to function %q: expected %d, got %d", fn.FullName(), len(params), len(args))
		return ir.Value{}, fmt.Errorf("builder: argument count mismatch calling %q", fn.FullName())
	}

	for i, arg := range args {
		converted, err := b.ConvertedTo(arg, params[i])
		if err != nil {
			return ir.Value{}, err
		}
		b.Param(converted)
	}

	var result ir.Value
	if ret := sig.ReturnType(); ret != nil {
		result = b.Val(ret)
	}
	b.Call(ir.ImmediateValue(fn.SymbolID(), nil), result, selfPtr)
	return result, nil
}

// generateDestruction emits a destructor call for ptr if its pointee type
// declares one, and is a no-op for types without one (primitives, structs
// whose destructor was never bound). Grounded on Scope::emitEscapeInstructions'
// call into FunctionBuilder::generateDestruction.
func (b *FunctionBuilder) generateDestruction(ptr ir.Value) {
	pt, ok := ptr.Type().(ir.PointerType)
	if !ok {
		return
	}
	dtor := pt.DestinationType().FindConversionOperator(nil, ir.AccessAll)
	if dtor == nil {
		return
	}
	b.Call(ir.ImmediateValue(dtor.SymbolID(), nil), ir.Value{}, ptr)
}

// GenerateConstruction initializes *destPtr from args: primitive/pointer
// types with no argument emit nothing, and with exactly one convertible
// argument get a direct store; every other case resolves a constructor by
// argument types (strict match preferred, ambiguity logged as an error).
func (b *FunctionBuilder) GenerateConstruction(destPtr ir.Value, args []ir.Value) error {
	pt, ok := destPtr.Type().(ir.PointerType)
	if !ok {
		return fmt.Errorf("builder: generateConstruction destPtr must have pointer type")
	}
	tp := pt.DestinationType()
	info := tp.Info()

	if (info.IsPrimitive || info.IsPointer) && len(args) <= 1 {
		if len(args) == 0 {
			return nil
		}
		if args[0].Type() != nil && args[0].Type().IsConvertibleTo(tp) {
			converted, err := b.ConvertedTo(args[0], tp)
			if err != nil {
				return err
			}
			b.Store(converted, destPtr, 0)
			return nil
		}
		return b.resolveConstructor(tp, destPtr, args)
	}

	return b.resolveConstructor(tp, destPtr, args)
}

func (b *FunctionBuilder) resolveConstructor(tp ir.DataType, destPtr ir.Value, args []ir.Value) error {
	argTypes := make([]ir.DataType, len(args))
	for i, a := range args {
		argTypes[i] = a.Type()
	}

	candidates, strict := tp.FindConstructors(argTypes, false, ir.AccessAll)
	switch {
	case len(candidates) == 0:
		b.log.Errorf("no constructor for type %q with arguments (%s) is accessible", tp.Name(), describeTypes(argTypes))
		return fmt.Errorf("builder: no accessible constructor for %q", tp.Name())
	case len(candidates) == 1:
		_, err := b.GenerateCall(candidates[0], args, destPtr)
		return err
	case strict != nil:
		_, err := b.GenerateCall(strict, args, destPtr)
		return err
	default:
		b.log.Errorf("constructor for type %q with arguments (%s) is ambiguous", tp.Name(), describeTypes(argTypes))
		for _, c := range candidates {
			b.log.Infof("^ could be %q", c.FullName())
		}
		return fmt.Errorf("builder: ambiguous constructor for %q", tp.Name())
	}
}

func describeTypes(types []ir.DataType) string {
	names := make([]string, len(types))
	for i, t := range types {
		if t == nil {
			names[i] = "<untyped>"
			continue
		}
		names[i] = t.Name()
	}
	return strings.Join(names, ", ")
}

// GenerateReturn emits the cleanup + return sequence for val: primitive
// (or void) returns go through the ret-pointer-less path directly; any
// other type is constructed in place at the function's ret pointer first.
func (b *FunctionBuilder) GenerateReturn(val ir.Value) error {
	sig := b.Function.Signature()
	retType := sig.ReturnType()

	if retType == nil || retType.Info().IsPrimitive {
		b.currentScope.emitPreReturnInstructions()
		b.Ret(val)
		return nil
	}

	ptr := b.GetRetPtr()
	if err := b.GenerateConstruction(ptr, []ir.Value{val}); err != nil {
		return err
	}
	b.currentScope.emitPreReturnInstructions()
	b.Ret(ir.Value{})
	return nil
}
