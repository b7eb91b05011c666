package parser

import (
	"testing"

	"slate/internal/ast"
	"slate/internal/diag"
	"slate/internal/source"
)

func parse(t *testing.T, src string) []ast.Stmt {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("/test.sl", []byte(src))
	bag := diag.NewBag()
	stmts, err := ParseFile(id, "/test.sl", []byte(src), diag.BagReporter{Bag: bag})
	if err != nil {
		t.Fatalf("parse error: %+v", bag.Items())
	}
	return stmts
}

func TestConstantDefinition(t *testing.T) {
	stmts := parse(t, "x :: 2 + 3 * 4;")
	if len(stmts) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(stmts))
	}
	def, ok := stmts[0].(*ast.ConstantDefinition)
	if !ok {
		t.Fatalf("expected constant definition, got %T", stmts[0])
	}
	if def.Name != "x" {
		t.Fatalf("name: %s", def.Name)
	}
	// Precedence: 2 + (3 * 4)
	if ast.ExprString(def.Value) != "(2 + (3 * 4))" {
		t.Fatalf("value: %s", ast.ExprString(def.Value))
	}
}

func TestFunctionDeclaration(t *testing.T) {
	stmts := parse(t, "main :: () -> i32 { return 0; }")
	fn, ok := stmts[0].(*ast.FunctionDeclaration)
	if !ok {
		t.Fatalf("expected function, got %T", stmts[0])
	}
	if fn.Name != "main" || len(fn.Parameters) != 0 || fn.ReturnType == nil || len(fn.Body) != 1 {
		t.Fatalf("bad function: %+v", fn)
	}
}

func TestExternalFunction(t *testing.T) {
	stmts := parse(t, "putchar :: (c: i32) -> i32 extern;")
	fn := stmts[0].(*ast.FunctionDeclaration)
	if !fn.IsExternal || len(fn.Parameters) != 1 || fn.Body != nil {
		t.Fatalf("bad extern function: %+v", fn)
	}
}

func TestPolymorphicFunction(t *testing.T) {
	stmts := parse(t, "id :: ($T: type, x: T) -> T { return x; }")
	fn := stmts[0].(*ast.FunctionDeclaration)
	if len(fn.Parameters) != 2 {
		t.Fatalf("params: %d", len(fn.Parameters))
	}
	if !fn.Parameters[0].IsConstant || fn.Parameters[1].IsConstant {
		t.Fatalf("constant flags wrong: %+v", fn.Parameters)
	}
}

func TestConstantFunctionTypeBacktrack(t *testing.T) {
	stmts := parse(t, "Callback :: (i32, i32) -> i32;")
	def, ok := stmts[0].(*ast.ConstantDefinition)
	if !ok {
		t.Fatalf("expected constant, got %T", stmts[0])
	}
	if _, ok := def.Value.(*ast.FunctionType); !ok {
		t.Fatalf("expected function type, got %T", def.Value)
	}
}

func TestStructAndUnion(t *testing.T) {
	stmts := parse(t, `
Point :: struct { x: i32; y: i32; }
U :: union { i: i32; f: f32; }
Vec :: struct (T: type) { data: *T; len: usize; }
`)
	point := stmts[0].(*ast.StructDefinition)
	if point.IsUnion || len(point.Members) != 2 {
		t.Fatalf("bad struct: %+v", point)
	}
	u := stmts[1].(*ast.StructDefinition)
	if !u.IsUnion {
		t.Fatalf("expected union")
	}
	vec := stmts[2].(*ast.StructDefinition)
	if len(vec.Parameters) != 1 || vec.Parameters[0].Name != "T" {
		t.Fatalf("bad polymorphic struct: %+v", vec)
	}
}

func TestVariableForms(t *testing.T) {
	stmts := parse(t, `
main :: () {
    a: i32;
    b: i32 = 1;
    c := 2;
    c = b;
}
`)
	body := stmts[0].(*ast.FunctionDeclaration).Body
	if len(body) != 4 {
		t.Fatalf("body: %d statements", len(body))
	}
	a := body[0].(*ast.VariableDeclaration)
	if a.Type == nil || a.Initializer != nil {
		t.Fatalf("a: %+v", a)
	}
	c := body[2].(*ast.VariableDeclaration)
	if c.Type != nil || c.Initializer == nil {
		t.Fatalf("c: %+v", c)
	}
	if _, ok := body[3].(*ast.Assignment); !ok {
		t.Fatalf("expected assignment, got %T", body[3])
	}
}

func TestAggregateLiterals(t *testing.T) {
	stmts := parse(t, `
main :: () {
    a: [3]i32 = .[1, 2, 3];
    u: U = .{ f = 1.5 };
}
`)
	body := stmts[0].(*ast.FunctionDeclaration).Body
	a := body[0].(*ast.VariableDeclaration)
	arr, ok := a.Initializer.(*ast.ArrayLiteral)
	if !ok || len(arr.Elements) != 3 {
		t.Fatalf("array literal: %T", a.Initializer)
	}
	at, ok := a.Type.(*ast.ArrayType)
	if !ok || at.Length == nil {
		t.Fatalf("array type: %T", a.Type)
	}
	u := body[1].(*ast.VariableDeclaration)
	lit, ok := u.Initializer.(*ast.StructLiteral)
	if !ok || len(lit.Members) != 1 || lit.Members[0].Name != "f" {
		t.Fatalf("struct literal: %+v", u.Initializer)
	}
}

func TestImportAndUsing(t *testing.T) {
	stmts := parse(t, "import \"lib/math.sl\";\nusing \"a.sl\";\nusing math;")
	imp := stmts[0].(*ast.Import)
	if imp.Path != "lib/math.sl" || imp.Name != "math" {
		t.Fatalf("import: %+v", imp)
	}
	use := stmts[1].(*ast.Using)
	if _, ok := use.Module.(*ast.StringLiteral); !ok {
		t.Fatalf("using string: %T", use.Module)
	}
	use2 := stmts[2].(*ast.Using)
	if _, ok := use2.Module.(*ast.NamedReference); !ok {
		t.Fatalf("using name: %T", use2.Module)
	}
}

func TestControlFlow(t *testing.T) {
	stmts := parse(t, `
main :: () {
    if a == 1 {
        x := 1;
    } else if a == 2 {
        x := 2;
    } else {
        x := 3;
    }
    while a < 10 {
        a = a + 1;
    }
}
`)
	body := stmts[0].(*ast.FunctionDeclaration).Body
	ifStmt := body[0].(*ast.If)
	if len(ifStmt.ElseIfs) != 1 || ifStmt.Else == nil {
		t.Fatalf("if: %+v", ifStmt)
	}
	if _, ok := body[1].(*ast.While); !ok {
		t.Fatalf("expected while, got %T", body[1])
	}
}

func TestCastAndUnary(t *testing.T) {
	stmts := parse(t, "x :: 1 as f64; y :: -2; p :: *i32;")
	cast := stmts[0].(*ast.ConstantDefinition).Value
	if _, ok := cast.(*ast.Cast); !ok {
		t.Fatalf("cast: %T", cast)
	}
	neg := stmts[1].(*ast.ConstantDefinition).Value.(*ast.UnaryOperation)
	if neg.Op != ast.UnaryNegate {
		t.Fatalf("negate: %v", neg.Op)
	}
	ptr := stmts[2].(*ast.ConstantDefinition).Value.(*ast.UnaryOperation)
	if ptr.Op != ast.UnaryPointer {
		t.Fatalf("pointer: %v", ptr.Op)
	}
}

func TestPostfixChain(t *testing.T) {
	stmts := parse(t, "main :: () { v := a.items[i + 1].length; }")
	body := stmts[0].(*ast.FunctionDeclaration).Body
	v := body[0].(*ast.VariableDeclaration)
	if ast.ExprString(v.Initializer) != "a.items[(i + 1)].length" {
		t.Fatalf("chain: %s", ast.ExprString(v.Initializer))
	}
}
