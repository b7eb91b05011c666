package irgen

import (
	"slate/internal/ast"
	"slate/internal/diag"
	"slate/internal/layout"
	"slate/internal/source"
	"slate/internal/types"
)

// evaluateConstant is the pure compile-time evaluator: no IR, no side
// effects beyond lazily parsing imported files.
func (g *Generator) evaluateConstant(scope *types.Scope, expr ast.Expr) (types.TypedValue, error) {
	switch e := expr.(type) {
	case *ast.IntegerLiteral:
		return types.TypedValue{Type: &types.UndeterminedInteger{}, Value: &types.IntegerValue{Bits: e.Value}}, nil

	case *ast.FloatLiteral:
		return types.TypedValue{Type: &types.UndeterminedFloat{}, Value: &types.FloatValue{Value: e.Value}}, nil

	case *ast.StringLiteral:
		return stringConstant(e.Value), nil

	case *ast.ArrayLiteral:
		return g.evaluateArrayLiteral(scope, e)

	case *ast.StructLiteral:
		return g.evaluateStructLiteral(scope, e)

	case *ast.NamedReference:
		return g.resolveName(scope, e.Name, e.Range)

	case *ast.MemberReference:
		object, err := g.evaluateConstant(scope, e.Object)
		if err != nil {
			return types.TypedValue{}, err
		}
		return g.constantMember(object, e.Name, e.NameRange)

	case *ast.IndexReference:
		return g.evaluateConstantIndex(scope, e)

	case *ast.BinaryOperation:
		left, err := g.evaluateConstant(scope, e.Left)
		if err != nil {
			return types.TypedValue{}, err
		}
		right, err := g.evaluateConstant(scope, e.Right)
		if err != nil {
			return types.TypedValue{}, err
		}
		return g.foldBinary(e.Op, left, right, e.Range)

	case *ast.UnaryOperation:
		return g.evaluateConstantUnary(scope, e)

	case *ast.Cast:
		value, err := g.evaluateConstant(scope, e.Value)
		if err != nil {
			return types.TypedValue{}, err
		}
		target, err := g.evaluateType(scope, e.Target)
		if err != nil {
			return types.TypedValue{}, err
		}
		return g.constantCast(value, target, e.Range)

	case *ast.FunctionCall:
		return g.evaluateConstantCall(scope, e)

	case *ast.ArrayType:
		return g.evaluateArrayType(scope, e)

	case *ast.FunctionType:
		return g.evaluateFunctionType(scope, e)

	case *ast.PolymorphicDeterminer:
		// Inside an instantiated declaration the determiner is bound as a
		// constant parameter; anywhere else the lookup fails.
		return g.resolveName(scope, e.Name, e.Range)
	}
	return types.TypedValue{}, g.errorf(expr.Span(), diag.EvalNotConstant, "expression is not constant")
}

func stringConstant(s string) types.TypedValue {
	elements := make([]types.Value, len(s))
	for i := 0; i < len(s); i++ {
		elements[i] = &types.IntegerValue{Bits: uint64(s[i])}
	}
	return types.TypedValue{
		Type:  &types.StaticArray{Length: uint64(len(s)), Element: &types.Integer{Size: types.Size8}},
		Value: &types.StaticArrayValue{Elements: elements},
	}
}

// evaluateArrayLiteral defaults the first element's type and coerces the
// rest to it.
func (g *Generator) evaluateArrayLiteral(scope *types.Scope, e *ast.ArrayLiteral) (types.TypedValue, error) {
	if len(e.Elements) == 0 {
		return types.TypedValue{}, g.errorf(e.Range, diag.EvalEmptyArrayLiteral,
			"cannot infer the element type of an empty array literal")
	}
	first, err := g.evaluateConstant(scope, e.Elements[0])
	if err != nil {
		return types.TypedValue{}, err
	}
	elementType, err := g.defaultType(first.Type, e.Elements[0].Span())
	if err != nil {
		return types.TypedValue{}, err
	}

	elements := make([]types.Value, len(e.Elements))
	for i, elementExpr := range e.Elements {
		element, err := g.evaluateConstant(scope, elementExpr)
		if err != nil {
			return types.TypedValue{}, err
		}
		coerced, err := g.coerceConstant(element, elementType, elementExpr.Span(), false)
		if err != nil {
			return types.TypedValue{}, err
		}
		elements[i] = coerced
	}
	return types.TypedValue{
		Type:  &types.StaticArray{Length: uint64(len(elements)), Element: elementType},
		Value: &types.StaticArrayValue{Elements: elements},
	}, nil
}

func (g *Generator) evaluateStructLiteral(scope *types.Scope, e *ast.StructLiteral) (types.TypedValue, error) {
	members := make([]types.StructMember, len(e.Members))
	values := make([]types.Value, len(e.Members))
	for i, member := range e.Members {
		for j := 0; j < i; j++ {
			if e.Members[j].Name == member.Name {
				return types.TypedValue{}, g.errorf(member.NameRange, diag.EvalDuplicateName,
					"duplicate member name %s", member.Name)
			}
		}
		value, err := g.evaluateConstant(scope, member.Value)
		if err != nil {
			return types.TypedValue{}, err
		}
		members[i] = types.StructMember{Name: member.Name, Type: value.Type}
		values[i] = value.Value
	}
	return types.TypedValue{
		Type:  &types.UndeterminedStruct{Members: members},
		Value: &types.StructValue{Members: values},
	}, nil
}

// constantMember dispatches member access on a constant object.
func (g *Generator) constantMember(object types.TypedValue, name string, span source.Span) (types.TypedValue, error) {
	switch t := object.Type.(type) {
	case *types.ArraySlice:
		value := object.Value.(*types.ArrayValue)
		switch name {
		case "length":
			return types.TypedValue{Type: g.Target.Usize(), Value: &types.IntegerValue{Bits: value.Length}}, nil
		case "pointer":
			return types.TypedValue{Type: &types.Pointer{Pointee: t.Element}, Value: &types.PointerValue{Address: value.Pointer}}, nil
		}

	case *types.StaticArray:
		switch name {
		case "length":
			return types.TypedValue{Type: g.Target.Usize(), Value: &types.IntegerValue{Bits: t.Length}}, nil
		case "pointer":
			return types.TypedValue{}, g.errorf(span, diag.EvalBadAddressOf,
				"cannot take an address in a constant context")
		}

	case *types.Struct:
		value := object.Value.(*types.StructValue)
		if t.IsUnion {
			if len(value.Members) == 1 && value.UnionMemberIndex < len(t.Members) &&
				t.Members[value.UnionMemberIndex].Name == name {
				return types.TypedValue{Type: t.Members[value.UnionMemberIndex].Type, Value: value.Members[0]}, nil
			}
			return types.TypedValue{}, g.errorf(span, diag.ResUnknownMember,
				"cannot read union member %s of a constant", name)
		}
		for i, member := range t.Members {
			if member.Name == name {
				return types.TypedValue{Type: member.Type, Value: value.Members[i]}, nil
			}
		}

	case *types.UndeterminedStruct:
		value := object.Value.(*types.StructValue)
		for i, member := range t.Members {
			if member.Name == name {
				return types.TypedValue{Type: member.Type, Value: value.Members[i]}, nil
			}
		}

	case *types.FileModule:
		module := object.Value.(*types.FileModuleValue)
		moduleScope := types.NewFileScope(module.Path, module.Statements)
		tv, found, err := g.searchStatements(moduleScope, module.Statements, name, true)
		if err != nil {
			return types.TypedValue{}, err
		}
		if found {
			return tv, nil
		}
	}
	return types.TypedValue{}, g.errorf(span, diag.ResUnknownMember,
		"%s has no member %s", types.Describe(object.Type), name)
}

func (g *Generator) evaluateConstantIndex(scope *types.Scope, e *ast.IndexReference) (types.TypedValue, error) {
	object, err := g.evaluateConstant(scope, e.Object)
	if err != nil {
		return types.TypedValue{}, err
	}
	index, err := g.evaluateConstant(scope, e.Index)
	if err != nil {
		return types.TypedValue{}, err
	}
	indexValue, err := g.coerceConstant(index, g.Target.Usize(), e.Index.Span(), false)
	if err != nil {
		return types.TypedValue{}, err
	}
	idx := indexValue.(*types.IntegerValue).Bits

	arrayType, ok := object.Type.(*types.StaticArray)
	if !ok {
		return types.TypedValue{}, g.errorf(e.Range, diag.TypeCannotIndex,
			"cannot index %s", types.Describe(object.Type))
	}
	if idx >= arrayType.Length {
		return types.TypedValue{}, g.errorf(e.Index.Span(), diag.EvalIndexOutOfRange,
			"index %d out of range for %s", idx, types.Describe(object.Type))
	}
	value := object.Value.(*types.StaticArrayValue)
	return types.TypedValue{Type: arrayType.Element, Value: value.Elements[idx]}, nil
}

func (g *Generator) evaluateConstantUnary(scope *types.Scope, e *ast.UnaryOperation) (types.TypedValue, error) {
	switch e.Op {
	case ast.UnaryAddressOf:
		return types.TypedValue{}, g.errorf(e.Range, diag.EvalBadAddressOf,
			"cannot take an address in a constant context")

	case ast.UnaryPointer:
		operand, err := g.evaluateConstant(scope, e.Operand)
		if err != nil {
			return types.TypedValue{}, err
		}
		tv, ok := operand.Value.(*types.TypeValue)
		if !ok {
			return types.TypedValue{}, g.errorf(e.Operand.Span(), diag.TypeExpectType,
				"expected a type, got %s", types.Describe(operand.Type))
		}
		return types.TypedValue{
			Type:  &types.TypeOfType{},
			Value: &types.TypeValue{Type: &types.Pointer{Pointee: tv.Type}},
		}, nil

	case ast.UnaryInvert:
		operand, err := g.evaluateConstant(scope, e.Operand)
		if err != nil {
			return types.TypedValue{}, err
		}
		bv, ok := operand.Value.(*types.BooleanValue)
		if !ok {
			return types.TypedValue{}, g.errorf(e.Range, diag.TypeBadOperation,
				"cannot perform that operation on %s", types.Describe(operand.Type))
		}
		return types.TypedValue{Type: &types.Boolean{}, Value: &types.BooleanValue{Value: !bv.Value}}, nil

	case ast.UnaryNegate:
		operand, err := g.evaluateConstant(scope, e.Operand)
		if err != nil {
			return types.TypedValue{}, err
		}
		switch operand.Type.(type) {
		case *types.UndeterminedInteger, *types.Integer:
			bits := operand.Value.(*types.IntegerValue).Bits
			negated := -bits
			if it, ok := operand.Type.(*types.Integer); ok {
				negated = maskToSize(negated, it.Size)
			}
			return types.TypedValue{Type: operand.Type, Value: &types.IntegerValue{Bits: negated}}, nil
		case *types.UndeterminedFloat, *types.Float:
			value := operand.Value.(*types.FloatValue).Value
			return types.TypedValue{Type: operand.Type, Value: &types.FloatValue{Value: -value}}, nil
		}
		return types.TypedValue{}, g.errorf(e.Range, diag.TypeBadOperation,
			"cannot perform that operation on %s", types.Describe(operand.Type))
	}
	return types.TypedValue{}, g.errorf(e.Range, diag.TypeBadOperation, "unknown unary operator")
}

func (g *Generator) evaluateArrayType(scope *types.Scope, e *ast.ArrayType) (types.TypedValue, error) {
	elementType, err := g.evaluateType(scope, e.Element)
	if err != nil {
		return types.TypedValue{}, err
	}
	if !types.IsRuntime(elementType) {
		return types.TypedValue{}, g.errorf(e.Element.Span(), diag.TypeNotRuntime,
			"%s is not a runtime type", types.Describe(elementType))
	}
	if e.Length == nil {
		return types.TypedValue{
			Type:  &types.TypeOfType{},
			Value: &types.TypeValue{Type: &types.ArraySlice{Element: elementType}},
		}, nil
	}
	length, err := g.evaluateConstant(scope, e.Length)
	if err != nil {
		return types.TypedValue{}, err
	}
	lengthValue, err := g.coerceConstant(length, g.Target.Usize(), e.Length.Span(), false)
	if err != nil {
		return types.TypedValue{}, err
	}
	return types.TypedValue{
		Type: &types.TypeOfType{},
		Value: &types.TypeValue{Type: &types.StaticArray{
			Length:  lengthValue.(*types.IntegerValue).Bits,
			Element: elementType,
		}},
	}, nil
}

func (g *Generator) evaluateFunctionType(scope *types.Scope, e *ast.FunctionType) (types.TypedValue, error) {
	parameters := make([]types.Type, len(e.Parameters))
	for i, paramExpr := range e.Parameters {
		if exprHasDeterminer(paramExpr) {
			return types.TypedValue{}, g.errorf(paramExpr.Span(), diag.PolyFunctionType,
				"function types cannot have polymorphic parameters")
		}
		paramType, err := g.evaluateRuntimeType(scope, paramExpr)
		if err != nil {
			return types.TypedValue{}, err
		}
		parameters[i] = paramType
	}
	returnType, err := g.evaluateReturnType(scope, e.ReturnType)
	if err != nil {
		return types.TypedValue{}, err
	}
	return types.TypedValue{
		Type:  &types.TypeOfType{},
		Value: &types.TypeValue{Type: &types.FunctionType{Parameters: parameters, ReturnType: returnType}},
	}, nil
}

// evaluateType evaluates an expression that must denote a type.
func (g *Generator) evaluateType(scope *types.Scope, expr ast.Expr) (types.Type, error) {
	tv, err := g.evaluateConstant(scope, expr)
	if err != nil {
		return nil, err
	}
	typeValue, ok := tv.Value.(*types.TypeValue)
	if !ok {
		return nil, g.errorf(expr.Span(), diag.TypeExpectType,
			"expected a type, got %s", types.Describe(tv.Type))
	}
	return typeValue.Type, nil
}

// evaluateRuntimeType evaluates a type expression and requires the result to
// be representable at run time.
func (g *Generator) evaluateRuntimeType(scope *types.Scope, expr ast.Expr) (types.Type, error) {
	t, err := g.evaluateType(scope, expr)
	if err != nil {
		return nil, err
	}
	if !types.IsRuntime(t) {
		return nil, g.errorf(expr.Span(), diag.TypeNotRuntime,
			"%s is not a runtime type", types.Describe(t))
	}
	return t, nil
}

// defaultType collapses undetermined numeric types to the target's default
// sizes. Undetermined struct literals have no default and must be targeted.
func (g *Generator) defaultType(t types.Type, span source.Span) (types.Type, error) {
	switch t.(type) {
	case *types.UndeterminedInteger:
		return g.Target.DefaultInteger(), nil
	case *types.UndeterminedFloat:
		return g.Target.DefaultFloat(), nil
	case *types.UndeterminedStruct:
		return nil, g.errorf(span, diag.TypeUndeterminedStruct,
			"a struct literal cannot exist at runtime without a target type")
	}
	return t, nil
}

// sizeOfType is the size_of builtin.
func (g *Generator) sizeOfType(t types.Type, span source.Span) (types.TypedValue, error) {
	if !types.IsRuntime(t) {
		return types.TypedValue{}, g.errorf(span, diag.TypeNotRuntime,
			"%s is not a runtime type", types.Describe(t))
	}
	return types.TypedValue{
		Type:  g.Target.Usize(),
		Value: &types.IntegerValue{Bits: layout.SizeOf(g.Target, t)},
	}, nil
}
