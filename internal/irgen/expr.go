package irgen

import (
	"slate/internal/ast"
	"slate/internal/diag"
	"slate/internal/ir"
	"slate/internal/layout"
	"slate/internal/source"
	"slate/internal/types"
)

// generateExpression lowers an expression inside a function body. It mirrors
// the constant evaluator, emitting instructions whenever an operand is not
// constant.
func (fs *funcState) generateExpression(scope *types.Scope, expr ast.Expr) (rvalue, error) {
	g := fs.g
	switch e := expr.(type) {
	case *ast.IntegerLiteral, *ast.FloatLiteral, *ast.StringLiteral,
		*ast.ArrayType, *ast.FunctionType:
		tv, err := g.evaluateConstant(scope, expr)
		if err != nil {
			return rvalue{}, err
		}
		return constantRValue(tv), nil

	case *ast.NamedReference:
		if v, ok := fs.lookupVariable(e.Name); ok {
			return addressRValue(v.typ, v.address), nil
		}
		tv, err := g.resolveName(scope, e.Name, e.Range)
		if err != nil {
			return rvalue{}, err
		}
		return constantRValue(tv), nil

	case *ast.ArrayLiteral:
		return fs.generateArrayLiteral(scope, e)

	case *ast.StructLiteral:
		return fs.generateStructLiteral(scope, e)

	case *ast.MemberReference:
		return fs.generateMember(scope, e)

	case *ast.IndexReference:
		return fs.generateIndex(scope, e)

	case *ast.BinaryOperation:
		return fs.generateBinary(scope, e)

	case *ast.UnaryOperation:
		return fs.generateUnary(scope, e)

	case *ast.Cast:
		return fs.generateCast(scope, e)

	case *ast.FunctionCall:
		return fs.generateCall(scope, e)

	case *ast.PolymorphicDeterminer:
		tv, err := g.resolveName(scope, e.Name, e.Range)
		if err != nil {
			return rvalue{}, err
		}
		return constantRValue(tv), nil
	}
	return rvalue{}, g.errorf(expr.Span(), diag.EvalNotConstant, "cannot generate this expression")
}

// generateArrayLiteral folds fully constant literals; otherwise it fills a
// local, element by element.
func (fs *funcState) generateArrayLiteral(scope *types.Scope, e *ast.ArrayLiteral) (rvalue, error) {
	g := fs.g
	if len(e.Elements) == 0 {
		return rvalue{}, g.errorf(e.Range, diag.EvalEmptyArrayLiteral,
			"cannot infer the element type of an empty array literal")
	}

	elements := make([]rvalue, len(e.Elements))
	allConstant := true
	for i, elementExpr := range e.Elements {
		element, err := fs.generateExpression(scope, elementExpr)
		if err != nil {
			return rvalue{}, err
		}
		elements[i] = element
		if !element.isConstant() {
			allConstant = false
		}
	}

	elementType, err := g.defaultType(elements[0].typ, e.Elements[0].Span())
	if err != nil {
		return rvalue{}, err
	}
	arrayType := &types.StaticArray{Length: uint64(len(elements)), Element: elementType}

	if allConstant {
		values := make([]types.Value, len(elements))
		for i, element := range elements {
			coerced, err := g.coerceConstant(element.typedConstant(), elementType, e.Elements[i].Span(), false)
			if err != nil {
				return rvalue{}, err
			}
			values[i] = coerced
		}
		return constantRValue(types.TypedValue{Type: arrayType, Value: &types.StaticArrayValue{Elements: values}}), nil
	}

	local := fs.emitAllocateLocal(arrayType)
	stride := layout.SizeOf(g.Target, elementType)
	for i, element := range elements {
		coerced, err := fs.coerceRuntime(e.Elements[i].Span(), element, elementType, false)
		if err != nil {
			return rvalue{}, err
		}
		if err := fs.storeAt(e.Elements[i].Span(), coerced, elementType, local, uint64(i)*stride); err != nil {
			return rvalue{}, err
		}
	}
	return addressRValue(arrayType, local), nil
}

// generateStructLiteral keeps the literal undetermined until a coercion
// targets it; fully constant literals collapse to a constant value.
func (fs *funcState) generateStructLiteral(scope *types.Scope, e *ast.StructLiteral) (rvalue, error) {
	g := fs.g
	members := make([]types.StructMember, len(e.Members))
	values := make([]rvalue, len(e.Members))
	allConstant := true
	for i, member := range e.Members {
		for j := 0; j < i; j++ {
			if e.Members[j].Name == member.Name {
				return rvalue{}, g.errorf(member.NameRange, diag.EvalDuplicateName,
					"duplicate member name %s", member.Name)
			}
		}
		value, err := fs.generateExpression(scope, member.Value)
		if err != nil {
			return rvalue{}, err
		}
		values[i] = value
		members[i] = types.StructMember{Name: member.Name, Type: value.typ}
		if !value.isConstant() {
			allConstant = false
		}
	}

	structType := &types.UndeterminedStruct{Members: members}
	if allConstant {
		constants := make([]types.Value, len(values))
		for i, value := range values {
			constants[i] = value.constant
		}
		return constantRValue(types.TypedValue{Type: structType, Value: &types.StructValue{Members: constants}}), nil
	}
	return rvalue{kind: rvUndetermined, typ: structType, members: values}, nil
}

func (fs *funcState) generateMember(scope *types.Scope, e *ast.MemberReference) (rvalue, error) {
	g := fs.g
	object, err := fs.generateExpression(scope, e.Object)
	if err != nil {
		return rvalue{}, err
	}

	// A constant static array exposes its data pointer at run time even
	// though the constant context cannot take an address.
	if object.kind == rvConstant {
		if at, ok := object.typ.(*types.StaticArray); ok && e.Name == "pointer" {
			address, err := fs.valueAddress(e.Range, object)
			if err != nil {
				return rvalue{}, err
			}
			return registerRValue(&types.Pointer{Pointee: at.Element}, address), nil
		}
		tv, err := g.constantMember(object.typedConstant(), e.Name, e.NameRange)
		if err != nil {
			return rvalue{}, err
		}
		return constantRValue(tv), nil
	}

	switch t := object.typ.(type) {
	case *types.ArraySlice:
		word := g.Target.AddressSize.Bytes()
		switch e.Name {
		case "pointer":
			return fs.memberAt(object, &types.Pointer{Pointee: t.Element}, 0)
		case "length":
			return fs.memberAt(object, g.Target.Usize(), word)
		}

	case *types.StaticArray:
		switch e.Name {
		case "length":
			return constantRValue(types.TypedValue{
				Type:  g.Target.Usize(),
				Value: &types.IntegerValue{Bits: t.Length},
			}), nil
		case "pointer":
			return registerRValue(&types.Pointer{Pointee: t.Element}, object.register), nil
		}

	case *types.Struct:
		for i, member := range t.Members {
			if member.Name == e.Name {
				return fs.memberAt(object, member.Type, layout.MemberOffset(g.Target, t, i))
			}
		}

	case *types.UndeterminedStruct:
		for i, member := range t.Members {
			if member.Name == e.Name {
				return object.members[i], nil
			}
		}
	}
	return rvalue{}, g.errorf(e.NameRange, diag.ResUnknownMember,
		"%s has no member %s", types.Describe(object.typ), e.Name)
}

// memberAt projects a member out of an addressed aggregate. An l-value
// object keeps the member assignable; a plain register aggregate loads
// scalar members instead.
func (fs *funcState) memberAt(object rvalue, memberType types.Type, offset uint64) (rvalue, error) {
	address := fs.addOffset(object.register, offset)
	if object.kind == rvAddress {
		return addressRValue(memberType, address), nil
	}
	if types.FitsInRegister(memberType) {
		return registerRValue(memberType, fs.emitLoadScalar(memberType, address)), nil
	}
	return registerRValue(memberType, address), nil
}

func (fs *funcState) generateIndex(scope *types.Scope, e *ast.IndexReference) (rvalue, error) {
	g := fs.g
	object, err := fs.generateExpression(scope, e.Object)
	if err != nil {
		return rvalue{}, err
	}
	index, err := fs.generateExpression(scope, e.Index)
	if err != nil {
		return rvalue{}, err
	}

	if object.isConstant() && index.isConstant() {
		indexValue, err := g.coerceConstant(index.typedConstant(), g.Target.Usize(), e.Index.Span(), false)
		if err != nil {
			return rvalue{}, err
		}
		idx := indexValue.(*types.IntegerValue).Bits
		if at, ok := object.typ.(*types.StaticArray); ok {
			if idx >= at.Length {
				return rvalue{}, g.errorf(e.Index.Span(), diag.EvalIndexOutOfRange,
					"index %d out of range for %s", idx, types.Describe(object.typ))
			}
			value := object.constant.(*types.StaticArrayValue)
			return constantRValue(types.TypedValue{Type: at.Element, Value: value.Elements[idx]}), nil
		}
	}

	coercedIndex, err := fs.coerceRuntime(e.Index.Span(), index, g.Target.Usize(), false)
	if err != nil {
		return rvalue{}, err
	}
	indexReg, err := fs.scalarToRegister(e.Index.Span(), coercedIndex)
	if err != nil {
		return rvalue{}, err
	}

	var elementType types.Type
	var base ir.Reg
	switch t := object.typ.(type) {
	case *types.StaticArray:
		elementType = t.Element
		base, err = fs.valueAddress(e.Object.Span(), object)
		if err != nil {
			return rvalue{}, err
		}
	case *types.ArraySlice:
		elementType = t.Element
		sliceAddress, addrErr := fs.valueAddress(e.Object.Span(), object)
		if addrErr != nil {
			return rvalue{}, addrErr
		}
		base = fs.emitLoadScalar(&types.Pointer{Pointee: t.Element}, sliceAddress)
	default:
		return rvalue{}, g.errorf(e.Range, diag.TypeCannotIndex,
			"cannot index %s", types.Describe(object.typ))
	}

	// address = base + index * elementSize, in address-size integers.
	strideReg := fs.emitIntegerConstant(fs.addressSize(), layout.SizeOf(g.Target, elementType))
	scaled := fs.reg()
	fs.emit(ir.Instr{Kind: ir.InstrIntegerArithmetic, IntegerArithmetic: ir.IntegerArithmeticInstr{
		Op: ir.ArithMultiply, Size: fs.addressSize(), SourceA: indexReg, SourceB: strideReg, Destination: scaled,
	}})
	address := fs.reg()
	fs.emit(ir.Instr{Kind: ir.InstrIntegerArithmetic, IntegerArithmetic: ir.IntegerArithmeticInstr{
		Op: ir.ArithAdd, Size: fs.addressSize(), SourceA: base, SourceB: scaled, Destination: address,
	}})
	return addressRValue(elementType, address), nil
}

func (fs *funcState) generateUnary(scope *types.Scope, e *ast.UnaryOperation) (rvalue, error) {
	g := fs.g
	switch e.Op {
	case ast.UnaryAddressOf:
		operand, err := fs.generateExpression(scope, e.Operand)
		if err != nil {
			return rvalue{}, err
		}
		if operand.kind != rvAddress {
			return rvalue{}, g.errorf(e.Range, diag.EvalBadAddressOf,
				"cannot take the address of this expression")
		}
		return registerRValue(&types.Pointer{Pointee: operand.typ}, operand.register), nil

	case ast.UnaryPointer:
		operand, err := fs.generateExpression(scope, e.Operand)
		if err != nil {
			return rvalue{}, err
		}
		if operand.isConstant() {
			if _, ok := operand.constant.(*types.TypeValue); ok {
				tv, err := g.evaluateConstantUnary(scope, e)
				if err != nil {
					return rvalue{}, err
				}
				return constantRValue(tv), nil
			}
		}
		pointer, ok := operand.typ.(*types.Pointer)
		if !ok {
			return rvalue{}, g.errorf(e.Range, diag.TypeBadOperation,
				"cannot dereference %s", types.Describe(operand.typ))
		}
		address, err := fs.scalarToRegister(e.Operand.Span(), operand)
		if err != nil {
			return rvalue{}, err
		}
		return addressRValue(pointer.Pointee, address), nil

	case ast.UnaryInvert:
		operand, err := fs.generateExpression(scope, e.Operand)
		if err != nil {
			return rvalue{}, err
		}
		if operand.isConstant() {
			tv, err := g.evaluateConstantUnary(scope, e)
			if err != nil {
				return rvalue{}, err
			}
			return constantRValue(tv), nil
		}
		if !isBool(operand.typ) {
			return rvalue{}, g.errorf(e.Range, diag.TypeBadOperation,
				"cannot perform that operation on %s", types.Describe(operand.typ))
		}
		src, err := fs.scalarToRegister(e.Operand.Span(), operand)
		if err != nil {
			return rvalue{}, err
		}
		dst := fs.reg()
		fs.emit(ir.Instr{Kind: ir.InstrBooleanInvert, BooleanInvert: ir.BooleanInvertInstr{
			Source: src, Destination: dst,
		}})
		return registerRValue(&types.Boolean{}, dst), nil

	case ast.UnaryNegate:
		operand, err := fs.generateExpression(scope, e.Operand)
		if err != nil {
			return rvalue{}, err
		}
		if operand.isConstant() {
			tv, err := g.evaluateConstantUnary(scope, e)
			if err != nil {
				return rvalue{}, err
			}
			return constantRValue(tv), nil
		}
		src, err := fs.scalarToRegister(e.Operand.Span(), operand)
		if err != nil {
			return rvalue{}, err
		}
		switch t := operand.typ.(type) {
		case *types.Integer:
			zero := fs.emitIntegerConstant(ir.Size(t.Size), 0)
			dst := fs.reg()
			fs.emit(ir.Instr{Kind: ir.InstrIntegerArithmetic, IntegerArithmetic: ir.IntegerArithmeticInstr{
				Op: ir.ArithSubtract, Size: ir.Size(t.Size), SourceA: zero, SourceB: src, Destination: dst,
			}})
			return registerRValue(t, dst), nil
		case *types.Float:
			zero := fs.emitFloatConstant(ir.Size(t.Size), 0)
			dst := fs.reg()
			fs.emit(ir.Instr{Kind: ir.InstrFloatArithmetic, FloatArithmetic: ir.FloatArithmeticInstr{
				Op: ir.FloatSubtract, Size: ir.Size(t.Size), SourceA: zero, SourceB: src, Destination: dst,
			}})
			return registerRValue(t, dst), nil
		}
		return rvalue{}, g.errorf(e.Range, diag.TypeBadOperation,
			"cannot perform that operation on %s", types.Describe(operand.typ))
	}
	return rvalue{}, g.errorf(e.Range, diag.TypeBadOperation, "unknown unary operator")
}

func (fs *funcState) generateCast(scope *types.Scope, e *ast.Cast) (rvalue, error) {
	g := fs.g
	value, err := fs.generateExpression(scope, e.Value)
	if err != nil {
		return rvalue{}, err
	}
	target, err := g.evaluateType(scope, e.Target)
	if err != nil {
		return rvalue{}, err
	}

	if value.isConstant() {
		tv, err := g.constantCast(value.typedConstant(), target, e.Range)
		if err != nil {
			return rvalue{}, err
		}
		return constantRValue(tv), nil
	}

	// First try the implicit rules as a speculative predicate.
	if out, err := fs.coerceRuntime(e.Range, value, target, true); err == nil {
		return out, nil
	}

	switch t := target.(type) {
	case *types.Integer:
		switch ft := value.typ.(type) {
		case *types.Integer:
			return fs.castIntegerResize(e.Range, value, ft, t)
		case *types.Float:
			src, err := fs.scalarToRegister(e.Value.Span(), value)
			if err != nil {
				return rvalue{}, err
			}
			dst := fs.reg()
			fs.emit(ir.Instr{Kind: ir.InstrIntegerFromFloat, IntegerFromFloat: ir.IntegerFromFloatInstr{
				FloatSize: ir.Size(ft.Size), Source: src, DestinationSize: ir.Size(t.Size), Destination: dst,
			}})
			return registerRValue(t, dst), nil
		case *types.Pointer:
			if t.Size == g.Target.AddressSize && !t.Signed {
				src, err := fs.scalarToRegister(e.Value.Span(), value)
				if err != nil {
					return rvalue{}, err
				}
				return registerRValue(t, src), nil
			}
		}

	case *types.Float:
		switch ft := value.typ.(type) {
		case *types.Integer:
			src, err := fs.scalarToRegister(e.Value.Span(), value)
			if err != nil {
				return rvalue{}, err
			}
			dst := fs.reg()
			fs.emit(ir.Instr{Kind: ir.InstrFloatFromInteger, FloatFromInteger: ir.FloatFromIntegerInstr{
				Signed: ft.Signed, IntegerSize: ir.Size(ft.Size), Source: src,
				DestinationSize: ir.Size(t.Size), Destination: dst,
			}})
			return registerRValue(t, dst), nil
		case *types.Float:
			src, err := fs.scalarToRegister(e.Value.Span(), value)
			if err != nil {
				return rvalue{}, err
			}
			dst := fs.reg()
			fs.emit(ir.Instr{Kind: ir.InstrFloatConversion, FloatConversion: ir.FloatConversionInstr{
				SourceSize: ir.Size(ft.Size), Source: src, DestinationSize: ir.Size(t.Size), Destination: dst,
			}})
			return registerRValue(t, dst), nil
		}

	case *types.Pointer:
		if ft, ok := value.typ.(*types.Integer); ok && ft.Size == g.Target.AddressSize && !ft.Signed {
			src, err := fs.scalarToRegister(e.Value.Span(), value)
			if err != nil {
				return rvalue{}, err
			}
			return registerRValue(t, src), nil
		}
	}
	return rvalue{}, g.errorf(e.Range, diag.EvalBadCast, "cannot cast from '%s' to '%s'",
		types.Describe(value.typ), types.Describe(target))
}

// castIntegerResize widens with an explicit upcast; narrowing reinterprets
// the low bits in place.
func (fs *funcState) castIntegerResize(span source.Span, value rvalue, from *types.Integer, target *types.Integer) (rvalue, error) {
	src, err := fs.scalarToRegister(span, value)
	if err != nil {
		return rvalue{}, err
	}
	if target.Size <= from.Size {
		return registerRValue(target, src), nil
	}
	dst := fs.reg()
	fs.emit(ir.Instr{Kind: ir.InstrIntegerUpcast, IntegerUpcast: ir.IntegerUpcastInstr{
		Signed: from.Signed, SourceSize: ir.Size(from.Size), Source: src,
		DestinationSize: ir.Size(target.Size), Destination: dst,
	}})
	return registerRValue(target, dst), nil
}
