package irgen

import (
	"testing"

	"slate/internal/diag"
	"slate/internal/ir"
	"slate/internal/source"
	"slate/internal/types"
)

func TestResolveGlobalConstants(t *testing.T) {
	gen, scope, _, bag := evalSetup(t, "x :: 1;")

	tv, err := gen.resolveName(scope, "i32", source.Span{})
	if err != nil {
		t.Fatalf("i32: %+v", bag.Items())
	}
	it := tv.Value.(*types.TypeValue).Type.(*types.Integer)
	if it.Size != types.Size32 || !it.Signed {
		t.Fatalf("i32 resolved to %s", types.Describe(it))
	}

	tv, err = gen.resolveName(scope, "true", source.Span{})
	if err != nil {
		t.Fatal(err)
	}
	if !tv.Value.(*types.BooleanValue).Value {
		t.Fatalf("true must be true")
	}

	tv, err = gen.resolveName(scope, "size_of", source.Span{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := tv.Type.(*types.BuiltinFunction); !ok {
		t.Fatalf("size_of type: %s", types.Describe(tv.Type))
	}
}

func TestConstantParameterShadowsGlobal(t *testing.T) {
	gen, scope, _, _ := evalSetup(t, "x :: 1;")
	decl := types.NewDeclarationScope(nil, []types.ConstantParameter{{
		Name:  "i32",
		Type:  &types.TypeOfType{},
		Value: &types.TypeValue{Type: &types.Boolean{}},
	}}, scope)

	tv, err := gen.resolveName(decl, "i32", source.Span{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := tv.Value.(*types.TypeValue).Type.(*types.Boolean); !ok {
		t.Fatalf("constant parameter must shadow the global")
	}
}

func TestDeclarationResolvesFromEnclosingScope(t *testing.T) {
	gen, scope, _, bag := evalSetup(t, "width :: 8;\nheight :: width * 2;")

	tv, err := gen.resolveName(scope, "height", source.Span{})
	if err != nil {
		t.Fatalf("height: %+v", bag.Items())
	}
	if bits := tv.Value.(*types.IntegerValue).Bits; bits != 16 {
		t.Fatalf("height: %d", bits)
	}
}

func TestUnknownNameReported(t *testing.T) {
	gen, scope, _, bag := evalSetup(t, "x :: 1;")
	if _, err := gen.resolveName(scope, "nope", source.Span{}); err == nil {
		t.Fatalf("expected failure")
	}
	if bag.Items()[0].Code != diag.ResUnknownName {
		t.Fatalf("diagnostic: %+v", bag.Items())
	}
}

func TestUsingRequiresModule(t *testing.T) {
	_, _, bag, err := compile(t, map[string]string{
		"main.sl": "using 42;\nmain :: () { v := pi; }",
	}, "main.sl")
	if err == nil {
		t.Fatalf("expected failure")
	}
	found := false
	for _, d := range bag.Items() {
		if d.Code == diag.ResExpectModule {
			found = true
		}
	}
	if !found {
		t.Fatalf("diagnostics: %+v", bag.Items())
	}
}

func TestModuleMemberAccess(t *testing.T) {
	statics, _ := mustCompile(t, map[string]string{
		"lib.sl":  "answer :: 42;",
		"main.sl": "import \"lib.sl\";\nmain :: () { x: i64 = lib.answer; }",
	}, "main.sl")

	fn := mainFunction(t, statics)
	found := false
	for _, instr := range fn.Instructions {
		if instr.Kind == ir.InstrIntegerConstant && instr.IntegerConstant.Value == 42 {
			found = true
		}
	}
	if !found {
		t.Fatalf("42 never materialised:\n%s", ir.Print(statics))
	}
}
