package irgen

import (
	"fmt"

	"slate/internal/ast"
	"slate/internal/diag"
	"slate/internal/ir"
	"slate/internal/source"
	"slate/internal/types"
)

// evaluateConstantCall handles calls in a constant context: the builtins,
// and polymorphic struct instantiation. Runtime-typed functions cannot be
// called at compile time.
func (g *Generator) evaluateConstantCall(scope *types.Scope, e *ast.FunctionCall) (types.TypedValue, error) {
	callee, err := g.evaluateConstant(scope, e.Callee)
	if err != nil {
		return types.TypedValue{}, err
	}

	switch value := callee.Value.(type) {
	case *types.BuiltinValue:
		if len(e.Arguments) != 1 {
			return types.TypedValue{}, g.errorf(e.Range, diag.PolyWrongArgumentCount,
				"%s expects 1 argument, got %d", value.Name, len(e.Arguments))
		}
		argument, err := g.evaluateConstant(scope, e.Arguments[0])
		if err != nil {
			return types.TypedValue{}, err
		}
		return g.applyBuiltin(value.Name, argument, e.Range)

	case *types.TypeValue:
		if ps, ok := value.Type.(*types.PolymorphicStruct); ok {
			return g.instantiatePolymorphicStruct(scope, ps, e)
		}

	case *types.FunctionValue, *types.PolymorphicFunctionValue:
		return types.TypedValue{}, g.errorf(e.Range, diag.EvalNotConstant,
			"cannot call a runtime function in a constant context")
	}
	return types.TypedValue{}, g.errorf(e.Callee.Span(), diag.TypeCannotCall,
		"cannot call %s", types.Describe(callee.Type))
}

// applyBuiltin evaluates size_of/type_of on an already-evaluated argument.
func (g *Generator) applyBuiltin(name string, argument types.TypedValue, span source.Span) (types.TypedValue, error) {
	argumentType := argument.Type
	if tv, ok := argument.Value.(*types.TypeValue); ok {
		argumentType = tv.Type
	} else {
		defaulted, err := g.defaultType(argumentType, span)
		if err != nil {
			return types.TypedValue{}, err
		}
		argumentType = defaulted
	}

	switch name {
	case "size_of":
		return g.sizeOfType(argumentType, span)
	case "type_of":
		return types.TypedValue{Type: &types.TypeOfType{}, Value: &types.TypeValue{Type: argumentType}}, nil
	}
	return types.TypedValue{}, g.errorf(span, diag.TypeCannotCall, "unknown builtin %s", name)
}

// instantiatePolymorphicStruct binds the definition's constant parameters to
// the call's arguments and evaluates the member list under them.
func (g *Generator) instantiatePolymorphicStruct(scope *types.Scope, ps *types.PolymorphicStruct, e *ast.FunctionCall) (types.TypedValue, error) {
	def := ps.Definition
	if len(e.Arguments) != len(def.Parameters) {
		return types.TypedValue{}, g.errorf(e.Range, diag.PolyWrongArgumentCount,
			"%s expects %d parameters, got %d", def.Name, len(def.Parameters), len(e.Arguments))
	}

	parameters := make([]types.ConstantParameter, len(def.Parameters))
	for i, param := range def.Parameters {
		argument, err := g.evaluateConstant(scope, e.Arguments[i])
		if err != nil {
			return types.TypedValue{}, err
		}
		coerced, err := g.coerceConstant(argument, ps.ParameterTypes[i], e.Arguments[i].Span(), false)
		if err != nil {
			return types.TypedValue{}, err
		}
		parameters[i] = types.ConstantParameter{
			Name:  param.Name,
			Type:  ps.ParameterTypes[i],
			Value: coerced,
		}
	}

	defScope := types.NewDeclarationScope(def, parameters, ps.Scope)
	members, err := g.evaluateStructMembers(defScope, def)
	if err != nil {
		return types.TypedValue{}, err
	}
	return types.TypedValue{
		Type: &types.TypeOfType{},
		Value: &types.TypeValue{Type: &types.Struct{
			Definition: def,
			IsUnion:    def.IsUnion,
			Members:    members,
		}},
	}, nil
}

// generateCall lowers a call expression inside a function body.
func (fs *funcState) generateCall(scope *types.Scope, e *ast.FunctionCall) (rvalue, error) {
	g := fs.g
	callee, err := fs.generateExpression(scope, e.Callee)
	if err != nil {
		return rvalue{}, err
	}
	if !callee.isConstant() {
		return rvalue{}, g.errorf(e.Callee.Span(), diag.TypeCannotCall,
			"cannot call %s", types.Describe(callee.typ))
	}

	switch value := callee.constant.(type) {
	case *types.BuiltinValue:
		return fs.generateBuiltinCall(scope, value.Name, e)

	case *types.TypeValue:
		if ps, ok := value.Type.(*types.PolymorphicStruct); ok {
			tv, err := g.instantiatePolymorphicStruct(scope, ps, e)
			if err != nil {
				return rvalue{}, err
			}
			return constantRValue(tv), nil
		}

	case *types.FunctionValue:
		fnType, ok := callee.typ.(*types.FunctionType)
		if !ok {
			break
		}
		if len(e.Arguments) != len(fnType.Parameters) {
			return rvalue{}, g.errorf(e.Range, diag.PolyWrongArgumentCount,
				"%s expects %d arguments, got %d", value.Declaration.Name, len(fnType.Parameters), len(e.Arguments))
		}
		arguments := make([]rvalue, len(e.Arguments))
		for i, argumentExpr := range e.Arguments {
			argument, err := fs.generateExpression(scope, argumentExpr)
			if err != nil {
				return rvalue{}, err
			}
			arguments[i] = argument
		}
		if _, err := g.registerRuntimeFunction(value, fnType); err != nil {
			return rvalue{}, err
		}
		return fs.emitCall(argumentSpans(e.Arguments), value.MangledName, fnType.Parameters, fnType.ReturnType, arguments)

	case *types.PolymorphicFunctionValue:
		return fs.generatePolymorphicCall(scope, value, e)
	}
	return rvalue{}, g.errorf(e.Callee.Span(), diag.TypeCannotCall,
		"cannot call %s", types.Describe(callee.typ))
}

// generateBuiltinCall evaluates size_of/type_of without leaving the argument
// expression's instructions in the stream.
func (fs *funcState) generateBuiltinCall(scope *types.Scope, name string, e *ast.FunctionCall) (rvalue, error) {
	g := fs.g
	if len(e.Arguments) != 1 {
		return rvalue{}, g.errorf(e.Range, diag.PolyWrongArgumentCount,
			"%s expects 1 argument, got %d", name, len(e.Arguments))
	}
	mark := fs.save()
	argument, err := fs.generateExpression(scope, e.Arguments[0])
	fs.rollback(mark)
	if err != nil {
		return rvalue{}, err
	}

	argumentTyped := types.TypedValue{Type: argument.typ}
	if argument.isConstant() {
		argumentTyped.Value = argument.constant
	}
	tv, err := g.applyBuiltin(name, argumentTyped, e.Range)
	if err != nil {
		return rvalue{}, err
	}
	return constantRValue(tv), nil
}

// generatePolymorphicCall monomorphises the callee for this call site's
// constant arguments, reusing a cached instantiation when the constant
// argument tuple matches a previous call.
func (fs *funcState) generatePolymorphicCall(scope *types.Scope, pf *types.PolymorphicFunctionValue, e *ast.FunctionCall) (rvalue, error) {
	g := fs.g
	decl := pf.Declaration
	if len(e.Arguments) != len(decl.Parameters) {
		return rvalue{}, g.errorf(e.Range, diag.PolyWrongArgumentCount,
			"%s expects %d arguments, got %d", decl.Name, len(decl.Parameters), len(e.Arguments))
	}

	arguments := make([]rvalue, len(e.Arguments))
	for i, argumentExpr := range e.Arguments {
		argument, err := fs.generateExpression(scope, argumentExpr)
		if err != nil {
			return rvalue{}, err
		}
		arguments[i] = argument
	}

	// Bind constant parameters and type determiners left to right; later
	// parameter types may reference earlier bindings.
	var bound []types.ConstantParameter
	var runtimeParameters []int
	for i, param := range decl.Parameters {
		paramScope := types.NewDeclarationScope(decl, bound, pf.Scope)
		if param.IsConstant {
			if !arguments[i].isConstant() {
				return rvalue{}, g.errorf(e.Arguments[i].Span(), diag.PolyConstantRequired,
					"argument for constant parameter %s must be constant", param.Name)
			}
			paramType, err := g.evaluateType(paramScope, param.Type)
			if err != nil {
				return rvalue{}, err
			}
			coerced, err := g.coerceConstant(arguments[i].typedConstant(), paramType, e.Arguments[i].Span(), false)
			if err != nil {
				return rvalue{}, err
			}
			bound = append(bound, types.ConstantParameter{Name: param.Name, Type: paramType, Value: coerced})
			continue
		}
		if exprHasDeterminer(param.Type) {
			argumentType, err := g.defaultType(arguments[i].typ, e.Arguments[i].Span())
			if err != nil {
				return rvalue{}, err
			}
			determined, err := g.bindDeterminers(param.Type, argumentType, bound, e.Arguments[i].Span())
			if err != nil {
				return rvalue{}, err
			}
			bound = determined
		}
		runtimeParameters = append(runtimeParameters, i)
	}

	fn, err := g.instantiatePolymorphicFunction(pf, bound, runtimeParameters, e.Range)
	if err != nil {
		return rvalue{}, err
	}

	runtimeArguments := make([]rvalue, len(runtimeParameters))
	runtimeSpans := make([]source.Span, len(runtimeParameters))
	for j, i := range runtimeParameters {
		runtimeArguments[j] = arguments[i]
		runtimeSpans[j] = e.Arguments[i].Span()
	}
	return fs.emitCall(runtimeSpans, fn.MangledName, fn.ParameterTypes, fn.ReturnType, runtimeArguments)
}

// bindDeterminers unifies a parameter's type expression against the
// argument's type, binding every $Name it contains.
func (g *Generator) bindDeterminers(paramType ast.Expr, argumentType types.Type, bound []types.ConstantParameter, span source.Span) ([]types.ConstantParameter, error) {
	bindOne := func(name string, t types.Type) []types.ConstantParameter {
		for _, p := range bound {
			if p.Name == name {
				return bound // first binding wins
			}
		}
		return append(bound, types.ConstantParameter{
			Name:  name,
			Type:  &types.TypeOfType{},
			Value: &types.TypeValue{Type: t},
		})
	}

	switch pt := paramType.(type) {
	case *ast.PolymorphicDeterminer:
		return bindOne(pt.Name, argumentType), nil
	case *ast.UnaryOperation:
		if pt.Op == ast.UnaryPointer {
			if pointer, ok := argumentType.(*types.Pointer); ok {
				return g.bindDeterminers(pt.Operand, pointer.Pointee, bound, span)
			}
		}
	case *ast.ArrayType:
		switch at := argumentType.(type) {
		case *types.ArraySlice:
			if pt.Length == nil {
				return g.bindDeterminers(pt.Element, at.Element, bound, span)
			}
		case *types.StaticArray:
			return g.bindDeterminers(pt.Element, at.Element, bound, span)
		}
	}
	return nil, g.errorf(span, diag.TypeCannotConvert,
		"cannot infer polymorphic parameter from %s", types.Describe(argumentType))
}

// instantiatePolymorphicFunction registers (or reuses) the monomorphised
// copy of a polymorphic function for one constant-parameter tuple.
func (g *Generator) instantiatePolymorphicFunction(pf *types.PolymorphicFunctionValue, bound []types.ConstantParameter, runtimeParameters []int, span source.Span) (*RuntimeFunction, error) {
	decl := pf.Declaration
	for _, cached := range g.instantiations[decl] {
		if constantParametersEqual(cached.parameters, bound) {
			return cached.fn, nil
		}
	}

	mangled := fmt.Sprintf("function_%d", len(g.runtimeFns))
	declScope := types.NewDeclarationScope(decl, bound, pf.Scope)

	parameterTypes := make([]types.Type, 0, len(runtimeParameters))
	parameterNames := make([]string, 0, len(runtimeParameters))
	for _, i := range runtimeParameters {
		paramType, err := g.evaluateRuntimeType(declScope, decl.Parameters[i].Type)
		if err != nil {
			return nil, err
		}
		parameterTypes = append(parameterTypes, paramType)
		parameterNames = append(parameterNames, decl.Parameters[i].Name)
	}
	returnType, err := g.evaluateReturnType(declScope, decl.ReturnType)
	if err != nil {
		return nil, err
	}

	fn := &RuntimeFunction{
		MangledName:    mangled,
		Declaration:    decl,
		Scope:          declScope,
		ParameterNames: parameterNames,
		ParameterTypes: parameterTypes,
		ReturnType:     returnType,
		IsExternal:     decl.IsExternal,
	}
	if g.fnsByName[mangled] != nil {
		return nil, g.errorf(span, diag.StructDuplicateName, "duplicate mangled name '%s'", mangled)
	}
	g.runtimeFns = append(g.runtimeFns, fn)
	g.fnsByName[mangled] = fn
	g.instantiations[decl] = append(g.instantiations[decl], &instantiation{parameters: bound, fn: fn})
	return fn, nil
}

func constantParametersEqual(a, b []types.ConstantParameter) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name || !types.Equal(a[i].Type, b[i].Type) || !valueEqual(a[i].Value, b[i].Value) {
			return false
		}
	}
	return true
}

// valueEqual compares constant values structurally; it keys the
// instantiation cache.
func valueEqual(a, b types.Value) bool {
	switch av := a.(type) {
	case *types.IntegerValue:
		bv, ok := b.(*types.IntegerValue)
		return ok && av.Bits == bv.Bits
	case *types.FloatValue:
		bv, ok := b.(*types.FloatValue)
		return ok && av.Value == bv.Value
	case *types.BooleanValue:
		bv, ok := b.(*types.BooleanValue)
		return ok && av.Value == bv.Value
	case *types.PointerValue:
		bv, ok := b.(*types.PointerValue)
		return ok && av.Address == bv.Address
	case *types.VoidValue:
		_, ok := b.(*types.VoidValue)
		return ok
	case *types.TypeValue:
		bv, ok := b.(*types.TypeValue)
		return ok && types.Equal(av.Type, bv.Type)
	case *types.StaticArrayValue:
		bv, ok := b.(*types.StaticArrayValue)
		if !ok || len(av.Elements) != len(bv.Elements) {
			return false
		}
		for i := range av.Elements {
			if !valueEqual(av.Elements[i], bv.Elements[i]) {
				return false
			}
		}
		return true
	case *types.StructValue:
		bv, ok := b.(*types.StructValue)
		if !ok || len(av.Members) != len(bv.Members) || av.UnionMemberIndex != bv.UnionMemberIndex {
			return false
		}
		for i := range av.Members {
			if !valueEqual(av.Members[i], bv.Members[i]) {
				return false
			}
		}
		return true
	case *types.FunctionValue:
		bv, ok := b.(*types.FunctionValue)
		return ok && av.Declaration == bv.Declaration && av.MangledName == bv.MangledName
	case *types.ArrayValue:
		bv, ok := b.(*types.ArrayValue)
		return ok && av.Pointer == bv.Pointer && av.Length == bv.Length
	}
	return false
}

// emitCall lowers the actual transfer: coerced arguments in registers (or
// addresses for aggregates) and an optional trailing return address for
// by-reference returns. Callers register the callee before calling it.
func (fs *funcState) emitCall(spans []source.Span, name string, parameterTypes []types.Type, returnType types.Type, arguments []rvalue) (rvalue, error) {
	argumentRegisters := make([]ir.Reg, 0, len(arguments)+1)
	for i, argument := range arguments {
		coerced, err := fs.coerceRuntime(spans[i], argument, parameterTypes[i], false)
		if err != nil {
			return rvalue{}, err
		}
		var reg ir.Reg
		if types.FitsInRegister(parameterTypes[i]) {
			reg, err = fs.scalarToRegister(spans[i], coerced)
		} else {
			reg, err = fs.valueAddress(spans[i], coerced)
		}
		if err != nil {
			return rvalue{}, err
		}
		argumentRegisters = append(argumentRegisters, reg)
	}

	switch {
	case isVoid(returnType):
		fs.emit(ir.Instr{Kind: ir.InstrCall, Call: ir.CallInstr{
			FunctionName: name, Arguments: argumentRegisters,
		}})
		return rvalue{kind: rvConstant, typ: &types.Void{}, constant: &types.VoidValue{}}, nil

	case types.FitsInRegister(returnType):
		dst := fs.reg()
		fs.emit(ir.Instr{Kind: ir.InstrCall, Call: ir.CallInstr{
			FunctionName: name, Arguments: argumentRegisters, HasReturn: true, Return: dst,
		}})
		return registerRValue(returnType, dst), nil

	default:
		// Aggregate returns are written through a caller-provided address,
		// passed as a trailing argument.
		local := fs.emitAllocateLocal(returnType)
		argumentRegisters = append(argumentRegisters, local)
		fs.emit(ir.Instr{Kind: ir.InstrCall, Call: ir.CallInstr{
			FunctionName: name, Arguments: argumentRegisters,
		}})
		return addressRValue(returnType, local), nil
	}
}

func isVoid(t types.Type) bool {
	_, ok := t.(*types.Void)
	return ok
}

func argumentSpans(arguments []ast.Expr) []source.Span {
	spans := make([]source.Span, len(arguments))
	for i, argument := range arguments {
		spans[i] = argument.Span()
	}
	return spans
}
