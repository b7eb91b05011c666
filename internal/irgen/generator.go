package irgen

import (
	"errors"
	"fmt"
	"path/filepath"

	"slate/internal/ast"
	"slate/internal/diag"
	"slate/internal/ir"
	"slate/internal/layout"
	"slate/internal/parser"
	"slate/internal/source"
	"slate/internal/types"
)

// ErrGenerate is returned for any semantic error; the diagnostic has been
// reported before the core unwinds. Generation stops at the first error.
var ErrGenerate = errors.New("generation failed")

// RuntimeFunction is one entry of the runtime-function worklist: a function
// that has been referenced and must be lowered to IR. Registration is
// idempotent on the mangled name.
type RuntimeFunction struct {
	MangledName    string
	Declaration    *ast.FunctionDeclaration
	Scope          *types.Scope // scope the body is typed under
	ParameterNames []string
	ParameterTypes []types.Type
	ReturnType     types.Type
	IsExternal     bool
	Generated      bool
}

// instantiation is one monomorphised copy of a polymorphic function,
// cached per constant-argument tuple so repeated calls with identical
// constant arguments share a registration.
type instantiation struct {
	parameters []types.ConstantParameter
	fn         *RuntimeFunction
}

// Generator owns the state of one compilation: the parsed-file table, the
// runtime-function worklist, and the static-data list. It is single-threaded;
// scope context travels down the recursion as a parameter.
type Generator struct {
	Target   layout.Target
	Files    *source.FileSet
	Reporter diag.Reporter

	rootScope *types.Scope

	parsedFiles     map[string][]ast.Stmt
	runtimeFns      []*RuntimeFunction
	fnsByName       map[string]*RuntimeFunction
	instantiations  map[*ast.FunctionDeclaration][]*instantiation
	statics         []ir.Static
	staticNames     map[string]bool
	constantCounter int
}

// New creates a generator for one compilation.
func New(target layout.Target, files *source.FileSet, reporter diag.Reporter) *Generator {
	return &Generator{
		Target:         target,
		Files:          files,
		Reporter:       reporter,
		parsedFiles:    make(map[string][]ast.Stmt),
		fnsByName:      make(map[string]*RuntimeFunction),
		instantiations: make(map[*ast.FunctionDeclaration][]*instantiation),
		staticNames:    make(map[string]bool),
	}
}

func (g *Generator) errorf(span source.Span, code diag.Code, format string, args ...any) error {
	if g.Reporter != nil {
		g.Reporter.Report(code, diag.SevError, span, fmt.Sprintf(format, args...), nil)
	}
	return ErrGenerate
}

// Generate resolves everything reachable from the root file's main function
// and returns the backend statics.
func (g *Generator) Generate(rootPath string) ([]ir.Static, error) {
	stmts, err := g.loadFile(rootPath, source.Span{})
	if err != nil {
		return nil, err
	}
	absPath := source.NormalizePath(rootPath)
	g.rootScope = types.NewFileScope(absPath, stmts)

	mainDecl, err := g.findMain(stmts)
	if err != nil {
		return nil, err
	}
	mainValue, err := g.resolveDeclaration(g.rootScope, mainDecl)
	if err != nil {
		return nil, err
	}
	fnValue, ok := mainValue.Value.(*types.FunctionValue)
	if !ok {
		return nil, g.errorf(mainDecl.NameRange, diag.StructBadMain, "'main' must be a non-polymorphic function")
	}
	fnType := mainValue.Type.(*types.FunctionType)
	if _, err := g.registerRuntimeFunction(fnValue, fnType); err != nil {
		return nil, err
	}

	// Close the worklist: generating a function may register more.
	for {
		var pending *RuntimeFunction
		for _, fn := range g.runtimeFns {
			if !fn.Generated {
				pending = fn
				break
			}
		}
		if pending == nil {
			break
		}
		if err := g.generateFunction(pending); err != nil {
			return nil, err
		}
	}
	return g.statics, nil
}

func (g *Generator) findMain(stmts []ast.Stmt) (*ast.FunctionDeclaration, error) {
	for _, stmt := range stmts {
		if fn, ok := stmt.(*ast.FunctionDeclaration); ok && fn.Name == "main" {
			return fn, nil
		}
		if name, ok := ast.DeclarationName(stmt); ok && name == "main" {
			return nil, g.errorf(stmt.Span(), diag.StructBadMain, "'main' must be a function")
		}
	}
	return nil, g.errorf(source.Span{}, diag.StructMissingMain, "cannot find 'main'")
}

// loadFile reads, lexes, and parses a file, consulting the parsed-file table
// first so every file is parsed at most once.
func (g *Generator) loadFile(path string, importSpan source.Span) ([]ast.Stmt, error) {
	abs := source.NormalizePath(path)
	if stmts, ok := g.parsedFiles[abs]; ok {
		return stmts, nil
	}
	id, err := g.Files.Load(abs)
	if err != nil {
		return nil, g.errorf(importSpan, diag.ResModuleIO, "cannot read '%s'", path)
	}
	content := g.Files.Get(id).Content
	stmts, err := parser.ParseFile(id, abs, content, g.Reporter)
	if err != nil {
		return nil, ErrGenerate
	}
	g.parsedFiles[abs] = stmts
	return stmts, nil
}

// ParsedFileCount reports how many files the compilation has parsed.
func (g *Generator) ParsedFileCount() int {
	return len(g.parsedFiles)
}

// registerRuntimeFunction appends a function to the worklist unless one with
// the same mangled name is already registered.
func (g *Generator) registerRuntimeFunction(fn *types.FunctionValue, fnType *types.FunctionType) (*RuntimeFunction, error) {
	if existing, ok := g.fnsByName[fn.MangledName]; ok {
		return existing, nil
	}
	names := make([]string, len(fn.Declaration.Parameters))
	for i, param := range fn.Declaration.Parameters {
		names[i] = param.Name
	}
	entry := &RuntimeFunction{
		MangledName:    fn.MangledName,
		Declaration:    fn.Declaration,
		Scope:          types.NewDeclarationScope(fn.Declaration, nil, fn.Scope),
		ParameterNames: names,
		ParameterTypes: fnType.Parameters,
		ReturnType:     fnType.ReturnType,
		IsExternal:     fn.Declaration.IsExternal,
	}
	g.runtimeFns = append(g.runtimeFns, entry)
	g.fnsByName[fn.MangledName] = entry
	return entry, nil
}

// addStatic records a backend artefact, enforcing name uniqueness across the
// whole build.
func (g *Generator) addStatic(span source.Span, static ir.Static) error {
	name := static.StaticName()
	if g.staticNames[name] {
		return g.errorf(span, diag.StructDuplicateName, "duplicate mangled name '%s'", name)
	}
	g.staticNames[name] = true
	g.statics = append(g.statics, static)
	return nil
}

// addConstantStatic serialises a constant aggregate into the static-data
// list and returns the generated name.
func (g *Generator) addConstantStatic(span source.Span, t types.Type, v types.Value) (string, error) {
	data, err := layout.EncodeConstant(g.Target, t, v)
	if err != nil {
		return "", g.errorf(span, diag.TypeNotRuntime, "cannot serialise a constant of type %s", types.Describe(t))
	}
	name := fmt.Sprintf("constant_%d", g.constantCounter)
	g.constantCounter++
	static := &ir.StaticConstant{
		Name:      name,
		Data:      data,
		Alignment: layout.AlignOf(g.Target, t),
	}
	if err := g.addStatic(span, static); err != nil {
		return "", err
	}
	return name, nil
}

func fileBaseName(path string) string {
	base := filepath.Base(path)
	if ext := filepath.Ext(base); ext != "" {
		base = base[:len(base)-len(ext)]
	}
	return base
}
