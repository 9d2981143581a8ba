package types

import "codegen/ir"

// Registry is the external symbol table a front end hands to the builder:
// it owns every Primitive/Composite/Pointer/Function this compilation unit
// references, and backs the constructor/method resolution DataType
// delegates to it.
type Registry struct {
	primitives map[string]*Primitive
	composites map[string]*Composite
}

// NewRegistry builds a Registry preloaded with the standard scalar types.
func NewRegistry() *Registry {
	r := &Registry{
		primitives: make(map[string]*Primitive),
		composites: make(map[string]*Composite),
	}
	for _, p := range []struct {
		name string
		info ir.TypeInfo
	}{
		{"i64", ir.TypeInfo{Size: 8, IsPrimitive: true, IsIntegral: true}},
		{"u64", ir.TypeInfo{Size: 8, IsPrimitive: true, IsIntegral: true, IsUnsigned: true}},
		{"i32", ir.TypeInfo{Size: 4, IsPrimitive: true, IsIntegral: true}},
		{"u32", ir.TypeInfo{Size: 4, IsPrimitive: true, IsIntegral: true, IsUnsigned: true}},
		{"i16", ir.TypeInfo{Size: 2, IsPrimitive: true, IsIntegral: true}},
		{"u16", ir.TypeInfo{Size: 2, IsPrimitive: true, IsIntegral: true, IsUnsigned: true}},
		{"i8", ir.TypeInfo{Size: 1, IsPrimitive: true, IsIntegral: true}},
		{"u8", ir.TypeInfo{Size: 1, IsPrimitive: true, IsIntegral: true, IsUnsigned: true}},
		{"f32", ir.TypeInfo{Size: 4, IsPrimitive: true, IsFloatingPoint: true}},
		{"f64", ir.TypeInfo{Size: 8, IsPrimitive: true, IsFloatingPoint: true}},
		{"bool", ir.TypeInfo{Size: 1, IsPrimitive: true, IsIntegral: true, IsUnsigned: true}},
		{"void", ir.TypeInfo{Size: 0}},
	} {
		r.primitives[p.name] = &Primitive{name: p.name, info: p.info, symbolID: allocSymbolID(), registry: r}
	}
	return r
}

// Primitive looks up one of the registry's preloaded scalar types by name
// ("i64", "u64", "i32", "f32", "f64", "bool", "void", ...).
func (r *Registry) Primitive(name string) ir.DataType {
	p, ok := r.primitives[name]
	if !ok {
		return nil
	}
	return p
}

// DeclareComposite registers a new named struct-like type with the given
// fields, ready to have constructors/methods added via Composite's own
// AddConstructor/AddMethod.
func (r *Registry) DeclareComposite(name string, fields []Field) *Composite {
	c := &Composite{name: name, symbolID: allocSymbolID(), fields: fields, registry: r}
	r.composites[name] = c
	return c
}

// Composite looks up a previously declared composite type by name.
func (r *Registry) Composite(name string) *Composite {
	return r.composites[name]
}

func (r *Registry) findConstructors(t ir.DataType, argTypes []ir.DataType, allowConvertible bool, access ir.AccessMask) ([]ir.Function, ir.Function) {
	if c, ok := t.(*Composite); ok {
		return c.FindConstructors(argTypes, allowConvertible, access)
	}
	return nil, nil
}

func (r *Registry) findConversionOperator(t ir.DataType, dest ir.DataType, access ir.AccessMask) ir.Function {
	if c, ok := t.(*Composite); ok {
		return c.FindConversionOperator(dest, access)
	}
	return nil
}

func (r *Registry) findMethods(t ir.DataType, name string, argTypes []ir.DataType, access ir.AccessMask) ([]ir.Function, bool) {
	if c, ok := t.(*Composite); ok {
		return c.FindMethods(name, argTypes, access)
	}
	return nil, false
}
