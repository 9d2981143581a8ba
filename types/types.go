// Package types is a concrete, minimal implementation of the external
// type/symbol registry ir.DataType et al. describe as a front-end-supplied
// interface. It exists so the builder, analyses, optimizer and interpreter
// can be exercised against real types and real constructor/method
// resolution instead of mocks.
package types

import (
	"sync/atomic"

	"codegen/ir"
)

var nextSymbolID uint64

func allocSymbolID() uint64 {
	return atomic.AddUint64(&nextSymbolID, 1)
}

// Primitive is a scalar DataType: one of the integral/float/bool/void
// kinds a builder emits register operands for.
type Primitive struct {
	name     string
	info     ir.TypeInfo
	symbolID uint64
	registry *Registry
	ptr      *Pointer
}

func (p *Primitive) Info() ir.TypeInfo { return p.info }
func (p *Primitive) Name() string      { return p.name }
func (p *Primitive) SymbolID() uint64  { return p.symbolID }

func (p *Primitive) PointerTo() ir.PointerType {
	if p.ptr == nil {
		p.ptr = &Pointer{name: p.name + "*", symbolID: allocSymbolID(), dest: p}
	}
	return p.ptr
}

func (p *Primitive) FindConstructors(argTypes []ir.DataType, allowConvertible bool, access ir.AccessMask) ([]ir.Function, ir.Function) {
	return p.registry.findConstructors(p, argTypes, allowConvertible, access)
}

func (p *Primitive) FindConversionOperator(dest ir.DataType, access ir.AccessMask) ir.Function {
	return p.registry.findConversionOperator(p, dest, access)
}

func (p *Primitive) FindMethods(name string, argTypes []ir.DataType, access ir.AccessMask) ([]ir.Function, bool) {
	return p.registry.findMethods(p, name, argTypes, access)
}

func (p *Primitive) IsEqualTo(o ir.DataType) bool { return o == ir.DataType(p) }

func (p *Primitive) IsEquivalentTo(o ir.DataType) bool {
	op, ok := o.(*Primitive)
	if !ok {
		return false
	}
	return p.info == op.info
}

func (p *Primitive) IsConvertibleTo(o ir.DataType) bool {
	op, ok := o.(*Primitive)
	if !ok {
		return false
	}
	if p.info.IsPrimitive && op.info.IsPrimitive {
		return true
	}
	return p.IsEquivalentTo(o)
}

// Pointer is a DataType pointing at another DataType, produced lazily by
// Primitive.PointerTo/Composite.PointerTo and cached on the pointee.
type Pointer struct {
	name     string
	symbolID uint64
	dest     ir.DataType
	registry *Registry
	ptr      *Pointer
}

func (p *Pointer) Info() ir.TypeInfo {
	return ir.TypeInfo{Size: 8, IsPrimitive: true, IsPointer: true}
}
func (p *Pointer) Name() string               { return p.name }
func (p *Pointer) SymbolID() uint64           { return p.symbolID }
func (p *Pointer) DestinationType() ir.DataType { return p.dest }

func (p *Pointer) PointerTo() ir.PointerType {
	if p.ptr == nil {
		p.ptr = &Pointer{name: p.name + "*", symbolID: allocSymbolID(), dest: p, registry: p.registry}
	}
	return p.ptr
}

func (p *Pointer) FindConstructors(argTypes []ir.DataType, allowConvertible bool, access ir.AccessMask) ([]ir.Function, ir.Function) {
	return nil, nil
}
func (p *Pointer) FindConversionOperator(dest ir.DataType, access ir.AccessMask) ir.Function {
	return nil
}
func (p *Pointer) FindMethods(name string, argTypes []ir.DataType, access ir.AccessMask) ([]ir.Function, bool) {
	return nil, false
}
func (p *Pointer) IsEqualTo(o ir.DataType) bool { return o == ir.DataType(p) }
func (p *Pointer) IsEquivalentTo(o ir.DataType) bool {
	op, ok := o.(*Pointer)
	if !ok {
		return false
	}
	return p.dest.IsEquivalentTo(op.dest)
}
func (p *Pointer) IsConvertibleTo(o ir.DataType) bool { return p.IsEquivalentTo(o) }

// Function is a resolved callable symbol: a constructor, operator method,
// or free function registered against a Registry.
type Function struct {
	symbolID uint64
	name     string
	fullName string
	sig      *Signature
	handler  ir.CallHandler
}

func (f *Function) SymbolID() uint64          { return f.symbolID }
func (f *Function) Name() string              { return f.name }
func (f *Function) FullName() string          { return f.fullName }
func (f *Function) Signature() ir.FunctionType { return f.sig }
func (f *Function) CallHandler() ir.CallHandler { return f.handler }
func (f *Function) SetCallHandler(h ir.CallHandler) { f.handler = h }

// Signature describes a callable's shape: argument types, return type, and
// (for methods) the implicit this-pointer type.
type Signature struct {
	name       string
	symbolID   uint64
	returnType ir.DataType
	args       []ir.DataType
	thisType   ir.DataType
}

func (s *Signature) Info() ir.TypeInfo {
	return ir.TypeInfo{Size: 8, IsPrimitive: true, IsFunction: true}
}
func (s *Signature) Name() string             { return s.name }
func (s *Signature) SymbolID() uint64         { return s.symbolID }
func (s *Signature) ReturnType() ir.DataType  { return s.returnType }
func (s *Signature) Args() []ir.DataType      { return s.args }
func (s *Signature) ThisType() ir.DataType    { return s.thisType }
func (s *Signature) PointerTo() ir.PointerType { return nil }
func (s *Signature) FindConstructors(argTypes []ir.DataType, allowConvertible bool, access ir.AccessMask) ([]ir.Function, ir.Function) {
	return nil, nil
}
func (s *Signature) FindConversionOperator(dest ir.DataType, access ir.AccessMask) ir.Function {
	return nil
}
func (s *Signature) FindMethods(name string, argTypes []ir.DataType, access ir.AccessMask) ([]ir.Function, bool) {
	return nil, false
}
func (s *Signature) IsEqualTo(o ir.DataType) bool      { return o == ir.DataType(s) }
func (s *Signature) IsEquivalentTo(o ir.DataType) bool { return s.IsEqualTo(o) }
func (s *Signature) IsConvertibleTo(o ir.DataType) bool { return false }

// NewSignature builds a callable shape: argTypes in declared parameter
// order, returnType (nil for void), and thisType (nil for a free function).
func NewSignature(name string, argTypes []ir.DataType, returnType ir.DataType, thisType ir.DataType) *Signature {
	return &Signature{name: name, symbolID: allocSymbolID(), args: argTypes, returnType: returnType, thisType: thisType}
}

// NewFunction registers a callable symbol under sig. fullName is typically
// a qualified name (e.g. "MyStruct::method"); pass name for both if there
// is no enclosing scope.
func NewFunction(name, fullName string, sig *Signature) *Function {
	return &Function{symbolID: allocSymbolID(), name: name, fullName: fullName, sig: sig}
}

// ValuePointer is a resolved reference to a global/static value (e.g. a
// constant pool entry or a module-level variable).
type ValuePointer struct {
	typ      ir.DataType
	addr     uintptr
	symbolID uint64
	name     string
}

func (v *ValuePointer) Type() ir.DataType { return v.typ }
func (v *ValuePointer) Address() uintptr  { return v.addr }
func (v *ValuePointer) SymbolID() uint64  { return v.symbolID }
func (v *ValuePointer) Name() string      { return v.name }

// NewValuePointer constructs a ValuePointer bound to a concrete address
// (e.g. the address of a package-level Go variable backing a constant
// pool slot).
func NewValuePointer(name string, typ ir.DataType, addr uintptr) *ValuePointer {
	return &ValuePointer{typ: typ, addr: addr, symbolID: allocSymbolID(), name: name}
}
