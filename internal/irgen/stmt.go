package irgen

import (
	"slate/internal/ast"
	"slate/internal/diag"
	"slate/internal/ir"
	"slate/internal/types"
)

// generateFunction lowers one worklist entry into a backend static. The
// register counter starts fresh for every function.
func (g *Generator) generateFunction(fn *RuntimeFunction) error {
	fn.Generated = true

	declSpan := fn.Declaration.NameRange
	if fn.IsExternal {
		return g.addStatic(declSpan, g.buildFunctionStatic(fn, nil))
	}

	fs := &funcState{
		g:          g,
		fn:         fn,
		scope:      fn.Scope,
		returnType: fn.ReturnType,
	}
	fs.returnsByReference = !isVoid(fn.ReturnType) && !types.FitsInRegister(fn.ReturnType)

	// Parameters arrive in registers 0..n-1; a by-reference return address
	// trails them.
	fs.nextRegister = ir.Reg(len(fn.ParameterTypes))
	if fs.returnsByReference {
		fs.returnAddressRegister = fs.nextRegister
		fs.nextRegister++
	}

	fs.pushVariables()
	for i, paramType := range fn.ParameterTypes {
		paramReg := ir.Reg(i)
		address := paramReg
		if types.FitsInRegister(paramType) {
			// Spill scalars so parameters are assignable like any local.
			address = fs.emitAllocateLocal(paramType)
			fs.emitStoreScalar(paramType, paramReg, address)
		}
		if err := fs.addVariable(variable{
			name:      fn.ParameterNames[i],
			typ:       paramType,
			nameRange: declSpan,
			address:   address,
		}); err != nil {
			return err
		}
	}

	for _, stmt := range fn.Declaration.Body {
		if err := fs.generateStatement(fs.scope, stmt); err != nil {
			return err
		}
	}

	if isVoid(fn.ReturnType) {
		if !fs.endsWithReturn() {
			fs.emit(ir.Instr{Kind: ir.InstrReturn})
		}
	} else if !fs.endsWithReturn() {
		return g.errorf(declSpan, diag.StructMissingReturn,
			"function %s must end with a return", fn.Declaration.Name)
	}
	fs.popVariables()

	return g.addStatic(declSpan, g.buildFunctionStatic(fn, fs.instructions))
}

func (fs *funcState) endsWithReturn() bool {
	if len(fs.instructions) == 0 {
		return false
	}
	return fs.instructions[len(fs.instructions)-1].Kind == ir.InstrReturn
}

func (g *Generator) buildFunctionStatic(fn *RuntimeFunction, instructions []ir.Instr) *ir.Function {
	parameters := make([]ir.Param, len(fn.ParameterTypes))
	for i, t := range fn.ParameterTypes {
		parameters[i] = g.paramSlot(t)
	}
	static := &ir.Function{
		Name:         fn.MangledName,
		IsExternal:   fn.IsExternal,
		Parameters:   parameters,
		Path:         fn.Scope.File(),
		Instructions: instructions,
	}
	pos := g.Files.Position(fn.Declaration.NameRange)
	static.Line = pos.Line

	switch {
	case isVoid(fn.ReturnType):
	case types.FitsInRegister(fn.ReturnType):
		static.HasReturn = true
		static.Return = g.paramSlot(fn.ReturnType)
	default:
		static.ReturnsByReference = true
	}
	return static
}

func (g *Generator) paramSlot(t types.Type) ir.Param {
	if !types.FitsInRegister(t) {
		return ir.Param{Size: ir.Size(g.Target.AddressSize)}
	}
	switch tt := t.(type) {
	case *types.Integer:
		return ir.Param{Size: ir.Size(tt.Size)}
	case *types.Boolean:
		return ir.Param{Size: ir.Size(g.Target.DefaultIntegerSize)}
	case *types.Float:
		return ir.Param{Size: ir.Size(tt.Size), IsFloat: true}
	case *types.Pointer:
		return ir.Param{Size: ir.Size(g.Target.AddressSize)}
	}
	return ir.Param{Size: ir.Size(g.Target.AddressSize)}
}

// generateStatement lowers one statement. Declarations are resolved on
// demand by name resolution and emit nothing here.
func (fs *funcState) generateStatement(scope *types.Scope, stmt ast.Stmt) error {
	g := fs.g
	switch s := stmt.(type) {
	case *ast.VariableDeclaration:
		return fs.generateVariableDeclaration(scope, s)

	case *ast.Assignment:
		target, err := fs.generateExpression(scope, s.Target)
		if err != nil {
			return err
		}
		if target.kind != rvAddress {
			return g.errorf(s.Target.Span(), diag.TypeBadOperation, "cannot assign to this expression")
		}
		value, err := fs.generateExpression(scope, s.Value)
		if err != nil {
			return err
		}
		coerced, err := fs.coerceRuntime(s.Value.Span(), value, target.typ, false)
		if err != nil {
			return err
		}
		return fs.storeAt(s.Range, coerced, target.typ, target.register, 0)

	case *ast.If:
		return fs.generateIf(scope, s)

	case *ast.While:
		return fs.generateWhile(scope, s)

	case *ast.Return:
		return fs.generateReturn(scope, s)

	case *ast.ExpressionStatement:
		_, err := fs.generateExpression(scope, s.Expression)
		return err

	case *ast.FunctionDeclaration, *ast.ConstantDefinition, *ast.StructDefinition,
		*ast.Import, *ast.Using:
		return nil
	}
	return g.errorf(stmt.Span(), diag.SynBadDeclaration, "cannot generate this statement")
}

func (fs *funcState) generateVariableDeclaration(scope *types.Scope, s *ast.VariableDeclaration) error {
	g := fs.g

	var declaredType types.Type
	if s.Type != nil {
		t, err := g.evaluateRuntimeType(scope, s.Type)
		if err != nil {
			return err
		}
		declaredType = t
	}

	var initializer rvalue
	if s.Initializer != nil {
		v, err := fs.generateExpression(scope, s.Initializer)
		if err != nil {
			return err
		}
		initializer = v
		if declaredType == nil {
			t, err := g.defaultType(v.typ, s.Initializer.Span())
			if err != nil {
				return err
			}
			if !types.IsRuntime(t) {
				return g.errorf(s.Initializer.Span(), diag.TypeNotRuntime,
					"%s is not a runtime type", types.Describe(t))
			}
			declaredType = t
		}
	}

	local := fs.emitAllocateLocal(declaredType)
	if s.Initializer != nil {
		coerced, err := fs.coerceRuntime(s.Initializer.Span(), initializer, declaredType, false)
		if err != nil {
			return err
		}
		if err := fs.storeAt(s.Initializer.Span(), coerced, declaredType, local, 0); err != nil {
			return err
		}
	}
	return fs.addVariable(variable{
		name:      s.Name,
		typ:       declaredType,
		nameRange: s.NameRange,
		address:   local,
	})
}

// generateCondition lowers a boolean condition into a register.
func (fs *funcState) generateCondition(scope *types.Scope, expr ast.Expr) (ir.Reg, error) {
	condition, err := fs.generateExpression(scope, expr)
	if err != nil {
		return 0, err
	}
	if !isBool(condition.typ) {
		return 0, fs.g.errorf(expr.Span(), diag.TypeExpectBool,
			"expected bool, got %s", types.Describe(condition.typ))
	}
	return fs.scalarToRegister(expr.Span(), condition)
}

// generateIf emits branch+jump pairs with forward-patched targets. Each arm
// gets its own variable list.
func (fs *funcState) generateIf(scope *types.Scope, s *ast.If) error {
	var endJumps []int

	emitArm := func(condition ast.Expr, body []ast.Stmt) error {
		conditionReg, err := fs.generateCondition(scope, condition)
		if err != nil {
			return err
		}
		branchIdx := fs.emit(ir.Instr{Kind: ir.InstrBranch, Branch: ir.BranchInstr{Condition: conditionReg}})
		skipIdx := fs.emit(ir.Instr{Kind: ir.InstrJump})
		fs.instructions[branchIdx].Branch.Destination = uint64(skipIdx + 1)

		fs.pushVariables()
		for _, stmt := range body {
			if err := fs.generateStatement(scope, stmt); err != nil {
				return err
			}
		}
		fs.popVariables()

		endJumps = append(endJumps, fs.emit(ir.Instr{Kind: ir.InstrJump}))
		fs.instructions[skipIdx].Jump.Destination = uint64(len(fs.instructions))
		return nil
	}

	if err := emitArm(s.Condition, s.Body); err != nil {
		return err
	}
	for _, elseIf := range s.ElseIfs {
		if err := emitArm(elseIf.Condition, elseIf.Body); err != nil {
			return err
		}
	}
	if s.Else != nil {
		fs.pushVariables()
		for _, stmt := range s.Else {
			if err := fs.generateStatement(scope, stmt); err != nil {
				return err
			}
		}
		fs.popVariables()
	}

	end := uint64(len(fs.instructions))
	for _, idx := range endJumps {
		fs.instructions[idx].Jump.Destination = end
	}
	return nil
}

// generateWhile back-patches the loop head.
func (fs *funcState) generateWhile(scope *types.Scope, s *ast.While) error {
	head := uint64(len(fs.instructions))
	conditionReg, err := fs.generateCondition(scope, s.Condition)
	if err != nil {
		return err
	}
	branchIdx := fs.emit(ir.Instr{Kind: ir.InstrBranch, Branch: ir.BranchInstr{Condition: conditionReg}})
	exitIdx := fs.emit(ir.Instr{Kind: ir.InstrJump})
	fs.instructions[branchIdx].Branch.Destination = uint64(exitIdx + 1)

	fs.pushVariables()
	for _, stmt := range s.Body {
		if err := fs.generateStatement(scope, stmt); err != nil {
			return err
		}
	}
	fs.popVariables()

	fs.emit(ir.Instr{Kind: ir.InstrJump, Jump: ir.JumpInstr{Destination: head}})
	fs.instructions[exitIdx].Jump.Destination = uint64(len(fs.instructions))
	return nil
}

func (fs *funcState) generateReturn(scope *types.Scope, s *ast.Return) error {
	g := fs.g
	if s.Value == nil {
		if !isVoid(fs.returnType) {
			return g.errorf(s.Range, diag.TypeCannotConvert,
				"cannot implicitly convert 'void' to '%s'", types.Describe(fs.returnType))
		}
		fs.emit(ir.Instr{Kind: ir.InstrReturn})
		return nil
	}

	if isVoid(fs.returnType) {
		return g.errorf(s.Value.Span(), diag.TypeCannotConvert,
			"cannot return a value from a void function")
	}

	value, err := fs.generateExpression(scope, s.Value)
	if err != nil {
		return err
	}
	coerced, err := fs.coerceRuntime(s.Value.Span(), value, fs.returnType, false)
	if err != nil {
		return err
	}

	if fs.returnsByReference {
		if err := fs.storeAt(s.Value.Span(), coerced, fs.returnType, fs.returnAddressRegister, 0); err != nil {
			return err
		}
		fs.emit(ir.Instr{Kind: ir.InstrReturn})
		return nil
	}

	valueReg, err := fs.scalarToRegister(s.Value.Span(), coerced)
	if err != nil {
		return err
	}
	fs.emit(ir.Instr{Kind: ir.InstrReturn, Return: ir.ReturnInstr{HasValue: true, Value: valueReg}})
	return nil
}
