package irgen

import (
	"slate/internal/ast"
	"slate/internal/diag"
	"slate/internal/source"
	"slate/internal/types"
)

// resolveName binds a bare identifier in the given scope, searching:
// constant parameters from the innermost declaration outward, each level's
// declarations (including 'using' imports), the root file's top level, and
// finally the ambient global constants.
func (g *Generator) resolveName(scope *types.Scope, name string, span source.Span) (types.TypedValue, error) {
	for s := scope; s != nil; s = s.Parent {
		for _, p := range s.ConstantParameters {
			if p.Name == name {
				return types.TypedValue{Type: p.Type, Value: p.Value}, nil
			}
		}
		tv, found, err := g.searchStatements(s, s.DeclarationStatements(), name, false)
		if err != nil {
			return types.TypedValue{}, err
		}
		if found {
			return tv, nil
		}
	}

	// The root file's top level is visible from every module.
	if g.rootScope != nil && scope.File() != g.rootScope.FilePath {
		tv, found, err := g.searchStatements(g.rootScope, g.rootScope.Statements, name, false)
		if err != nil {
			return types.TypedValue{}, err
		}
		if found {
			return tv, nil
		}
	}

	if tv, ok := g.globalConstant(name); ok {
		return tv, nil
	}
	return types.TypedValue{}, g.errorf(span, diag.ResUnknownName, "cannot find named reference %s", name)
}

// searchStatements looks for a declaration binding name inside one statement
// list, following 'using' imports. publicOnly restricts the match to a
// module's public declarations (everything except imports).
func (g *Generator) searchStatements(scope *types.Scope, stmts []ast.Stmt, name string, publicOnly bool) (types.TypedValue, bool, error) {
	for _, stmt := range stmts {
		declName, ok := ast.DeclarationName(stmt)
		if !ok {
			continue
		}
		if publicOnly {
			if _, isImport := stmt.(*ast.Import); isImport {
				continue
			}
		}
		if declName != name {
			continue
		}
		tv, err := g.resolveDeclaration(scope, stmt)
		if err != nil {
			return types.TypedValue{}, false, err
		}
		return tv, true, nil
	}

	// 'using M;' splices M's public declarations into this scope.
	for _, stmt := range stmts {
		using, ok := stmt.(*ast.Using)
		if !ok {
			continue
		}
		module, err := g.evaluateUsing(scope, using)
		if err != nil {
			return types.TypedValue{}, false, err
		}
		moduleScope := types.NewFileScope(module.Path, module.Statements)
		tv, found, err := g.searchStatements(moduleScope, module.Statements, name, true)
		if err != nil {
			return types.TypedValue{}, false, err
		}
		if found {
			return tv, true, nil
		}
	}
	return types.TypedValue{}, false, nil
}

// evaluateUsing produces the module a 'using' statement splices in. A string
// literal operand is an inline import of that path; anything else must
// evaluate to a module constant.
func (g *Generator) evaluateUsing(scope *types.Scope, using *ast.Using) (*types.FileModuleValue, error) {
	if lit, ok := using.Module.(*ast.StringLiteral); ok {
		return g.importModule(scope, lit.Value, lit.Range)
	}
	tv, err := g.evaluateConstant(scope, using.Module)
	if err != nil {
		return nil, err
	}
	module, ok := tv.Value.(*types.FileModuleValue)
	if !ok {
		return nil, g.errorf(using.Module.Span(), diag.ResExpectModule,
			"expected a module, got %s", types.Describe(tv.Type))
	}
	return module, nil
}
