package types

import "codegen/ir"

// Field is one named, typed member of a Composite.
type Field struct {
	Name   string
	Type   ir.DataType
	Access ir.AccessMask
}

// Composite is a struct-like aggregate type with constructors and methods,
// resolved through the Registry the way a front end would resolve a
// user-defined class or record type.
type Composite struct {
	name     string
	symbolID uint64
	fields   []Field
	registry *Registry
	ptr      *Pointer

	constructors []*Function
	methods      map[string][]*Function
}

func (c *Composite) Info() ir.TypeInfo {
	size := uint32(0)
	for _, f := range c.fields {
		size += f.Type.Info().Size
	}
	return ir.TypeInfo{Size: size}
}

func (c *Composite) Name() string     { return c.name }
func (c *Composite) SymbolID() uint64 { return c.symbolID }
func (c *Composite) Fields() []Field  { return c.fields }

func (c *Composite) PointerTo() ir.PointerType {
	if c.ptr == nil {
		c.ptr = &Pointer{name: c.name + "*", symbolID: allocSymbolID(), dest: c, registry: c.registry}
	}
	return c.ptr
}

func (c *Composite) FindConstructors(argTypes []ir.DataType, allowConvertible bool, access ir.AccessMask) ([]ir.Function, ir.Function) {
	var candidates []ir.Function
	var strictMatches []ir.Function

	for _, ctor := range c.constructors {
		strict, convertible := matchArgs(ctor.sig.args, argTypes, allowConvertible)
		if strict {
			strictMatches = append(strictMatches, ctor)
			candidates = append(candidates, ctor)
		} else if convertible {
			candidates = append(candidates, ctor)
		}
	}

	if len(strictMatches) == 1 {
		return candidates, strictMatches[0]
	}
	return candidates, nil
}

func (c *Composite) FindConversionOperator(dest ir.DataType, access ir.AccessMask) ir.Function {
	if dest == nil {
		return nil
	}
	fns, strict := c.FindMethods("operator "+dest.Name(), nil, access)
	if strict && len(fns) == 1 {
		return fns[0]
	}
	if len(fns) > 0 {
		return fns[0]
	}
	return nil
}

func (c *Composite) FindMethods(name string, argTypes []ir.DataType, access ir.AccessMask) ([]ir.Function, bool) {
	group := c.methods[name]
	if len(group) == 0 {
		return nil, false
	}

	var candidates []ir.Function
	var strictMatches []ir.Function
	for _, m := range group {
		if argTypes == nil {
			strictMatches = append(strictMatches, m)
			candidates = append(candidates, m)
			continue
		}
		strict, convertible := matchArgs(m.sig.args, argTypes, true)
		if strict {
			strictMatches = append(strictMatches, m)
			candidates = append(candidates, m)
		} else if convertible {
			candidates = append(candidates, m)
		}
	}

	return candidates, len(strictMatches) == 1 && len(candidates) == 1
}

func (c *Composite) IsEqualTo(o ir.DataType) bool      { return o == ir.DataType(c) }
func (c *Composite) IsEquivalentTo(o ir.DataType) bool { return c.IsEqualTo(o) }
func (c *Composite) IsConvertibleTo(o ir.DataType) bool {
	return c.FindConversionOperator(o, ir.AccessAll) != nil
}

// AddConstructor registers a constructor callable with argTypes.
func (c *Composite) AddConstructor(argTypes []ir.DataType) *Function {
	fn := &Function{
		symbolID: allocSymbolID(),
		name:     c.name,
		fullName: c.name + "::" + c.name,
		sig:      &Signature{name: c.name, symbolID: allocSymbolID(), returnType: c, args: argTypes, thisType: c},
	}
	c.constructors = append(c.constructors, fn)
	return fn
}

// AddMethod registers a method named name, callable with argTypes,
// returning returnType.
func (c *Composite) AddMethod(name string, argTypes []ir.DataType, returnType ir.DataType) *Function {
	fn := &Function{
		symbolID: allocSymbolID(),
		name:     name,
		fullName: c.name + "::" + name,
		sig:      &Signature{name: name, symbolID: allocSymbolID(), returnType: returnType, args: argTypes, thisType: c},
	}
	if c.methods == nil {
		c.methods = make(map[string][]*Function)
	}
	c.methods[name] = append(c.methods[name], fn)
	return fn
}

// matchArgs reports whether candidate's parameter types match argTypes
// exactly (strict) or, when allowConvertible, via IsConvertibleTo.
func matchArgs(params, argTypes []ir.DataType, allowConvertible bool) (strict, convertible bool) {
	if len(params) != len(argTypes) {
		return false, false
	}
	strict = true
	convertible = true
	for i, p := range params {
		switch {
		case p.IsEquivalentTo(argTypes[i]):
			// both strict and convertible hold
		case allowConvertible && argTypes[i].IsConvertibleTo(p):
			strict = false
		default:
			return false, false
		}
	}
	return strict, convertible
}
