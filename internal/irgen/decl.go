package irgen

import (
	"path/filepath"

	"slate/internal/ast"
	"slate/internal/diag"
	"slate/internal/source"
	"slate/internal/types"
)

// resolveDeclaration produces the typed constant value a declaration binds,
// evaluating whatever it needs on demand.
func (g *Generator) resolveDeclaration(scope *types.Scope, stmt ast.Stmt) (types.TypedValue, error) {
	switch decl := stmt.(type) {
	case *ast.FunctionDeclaration:
		return g.resolveFunctionDeclaration(scope, decl)
	case *ast.ConstantDefinition:
		return g.evaluateConstant(scope, decl.Value)
	case *ast.StructDefinition:
		return g.resolveStructDefinition(scope, decl)
	case *ast.Import:
		module, err := g.importModule(scope, decl.Path, decl.PathRange)
		if err != nil {
			return types.TypedValue{}, err
		}
		return types.TypedValue{Type: &types.FileModule{}, Value: module}, nil
	}
	return types.TypedValue{}, g.errorf(stmt.Span(), diag.ResUnknownName, "statement is not a declaration")
}

func (g *Generator) resolveFunctionDeclaration(scope *types.Scope, decl *ast.FunctionDeclaration) (types.TypedValue, error) {
	if functionIsPolymorphic(decl) {
		return types.TypedValue{
			Type:  &types.PolymorphicFunction{},
			Value: &types.PolymorphicFunctionValue{Declaration: decl, Scope: scope},
		}, nil
	}

	declScope := types.NewDeclarationScope(decl, nil, scope)
	parameters := make([]types.Type, len(decl.Parameters))
	for i, param := range decl.Parameters {
		paramType, err := g.evaluateRuntimeType(declScope, param.Type)
		if err != nil {
			return types.TypedValue{}, err
		}
		parameters[i] = paramType
	}

	returnType, err := g.evaluateReturnType(declScope, decl.ReturnType)
	if err != nil {
		return types.TypedValue{}, err
	}

	mangled := decl.Name
	if !decl.IsExternal {
		mangled = mangleName(scope, decl.Name)
	}
	return types.TypedValue{
		Type:  &types.FunctionType{Parameters: parameters, ReturnType: returnType},
		Value: &types.FunctionValue{MangledName: mangled, Declaration: decl, Scope: scope},
	}, nil
}

func (g *Generator) evaluateReturnType(scope *types.Scope, expr ast.Expr) (types.Type, error) {
	if expr == nil {
		return &types.Void{}, nil
	}
	return g.evaluateRuntimeType(scope, expr)
}

// functionIsPolymorphic reports whether any parameter is constant or names a
// polymorphic determiner in its type.
func functionIsPolymorphic(decl *ast.FunctionDeclaration) bool {
	for _, param := range decl.Parameters {
		if param.IsConstant || exprHasDeterminer(param.Type) {
			return true
		}
	}
	return false
}

func exprHasDeterminer(expr ast.Expr) bool {
	switch e := expr.(type) {
	case *ast.PolymorphicDeterminer:
		return true
	case *ast.UnaryOperation:
		return exprHasDeterminer(e.Operand)
	case *ast.ArrayType:
		if e.Length != nil && exprHasDeterminer(e.Length) {
			return true
		}
		return exprHasDeterminer(e.Element)
	case *ast.FunctionType:
		for _, p := range e.Parameters {
			if exprHasDeterminer(p) {
				return true
			}
		}
		return e.ReturnType != nil && exprHasDeterminer(e.ReturnType)
	case *ast.FunctionCall:
		if exprHasDeterminer(e.Callee) {
			return true
		}
		for _, arg := range e.Arguments {
			if exprHasDeterminer(arg) {
				return true
			}
		}
	case *ast.MemberReference:
		return exprHasDeterminer(e.Object)
	case *ast.IndexReference:
		return exprHasDeterminer(e.Object) || exprHasDeterminer(e.Index)
	}
	return false
}

func (g *Generator) resolveStructDefinition(scope *types.Scope, decl *ast.StructDefinition) (types.TypedValue, error) {
	if len(decl.Parameters) > 0 {
		declScope := types.NewDeclarationScope(decl, nil, scope)
		parameterTypes := make([]types.Type, len(decl.Parameters))
		for i, param := range decl.Parameters {
			paramType, err := g.evaluateType(declScope, param.Type)
			if err != nil {
				return types.TypedValue{}, err
			}
			parameterTypes[i] = paramType
		}
		return types.TypedValue{
			Type: &types.TypeOfType{},
			Value: &types.TypeValue{Type: &types.PolymorphicStruct{
				Definition:     decl,
				ParameterTypes: parameterTypes,
				Scope:          scope,
			}},
		}, nil
	}

	declScope := types.NewDeclarationScope(decl, nil, scope)
	members, err := g.evaluateStructMembers(declScope, decl)
	if err != nil {
		return types.TypedValue{}, err
	}
	return types.TypedValue{
		Type: &types.TypeOfType{},
		Value: &types.TypeValue{Type: &types.Struct{
			Definition: decl,
			IsUnion:    decl.IsUnion,
			Members:    members,
		}},
	}, nil
}

// evaluateStructMembers types a definition's member list under the given
// scope (which carries bound parameters for instantiations).
func (g *Generator) evaluateStructMembers(scope *types.Scope, decl *ast.StructDefinition) ([]types.StructMember, error) {
	members := make([]types.StructMember, len(decl.Members))
	for i, member := range decl.Members {
		for j := 0; j < i; j++ {
			if decl.Members[j].Name == member.Name {
				return nil, g.errorf(member.NameRange, diag.EvalDuplicateName,
					"duplicate member name %s", member.Name)
			}
		}
		memberType, err := g.evaluateRuntimeType(scope, member.Type)
		if err != nil {
			return nil, err
		}
		members[i] = types.StructMember{Name: member.Name, Type: memberType}
	}
	return members, nil
}

// importModule resolves an import path relative to the importing file and
// parses the target at most once.
func (g *Generator) importModule(scope *types.Scope, path string, span source.Span) (*types.FileModuleValue, error) {
	base := filepath.Dir(scope.File())
	target := path
	if !filepath.IsAbs(target) {
		target = filepath.Join(base, target)
	}
	abs := source.NormalizePath(target)
	stmts, err := g.loadFile(abs, span)
	if err != nil {
		return nil, err
	}
	return &types.FileModuleValue{Path: abs, Statements: stmts}, nil
}
