package irgen

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"slate/internal/diag"
	"slate/internal/ir"
	"slate/internal/layout"
	"slate/internal/source"
	"slate/internal/types"
)

// compile writes the given files into a temp dir and runs the core on root.
func compile(t *testing.T, files map[string]string, root string) ([]ir.Static, *Generator, *diag.Bag, error) {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	fileSet := source.NewFileSet()
	bag := diag.NewBag()
	gen := New(layout.X86_64(), fileSet, diag.BagReporter{Bag: bag})
	statics, err := gen.Generate(filepath.Join(dir, root))
	return statics, gen, bag, err
}

func mustCompile(t *testing.T, files map[string]string, root string) ([]ir.Static, *Generator) {
	t.Helper()
	statics, gen, bag, err := compile(t, files, root)
	if err != nil {
		t.Fatalf("compile failed: %+v", bag.Items())
	}
	return statics, gen
}

func mainFunction(t *testing.T, statics []ir.Static) *ir.Function {
	t.Helper()
	for _, static := range statics {
		if fn, ok := static.(*ir.Function); ok && fn.Line > 0 && !fn.IsExternal {
			if len(fn.Parameters) == 0 && fn.Name[:4] == "main" {
				return fn
			}
		}
	}
	t.Fatalf("no main function in statics")
	return nil
}

// Integer coercion: a local of 4 bytes, a 32-bit store of the folded
// constant 3, and a void return.
func TestScenarioIntegerCoercion(t *testing.T) {
	statics, _ := mustCompile(t, map[string]string{
		"main.sl": "main :: () { x: i32 = 1 + 2; }",
	}, "main.sl")

	fn := mainFunction(t, statics)
	if len(fn.Instructions) != 4 {
		t.Fatalf("instructions:\n%s", ir.Print(statics))
	}
	alloc := fn.Instructions[0]
	if alloc.Kind != ir.InstrAllocateLocal || alloc.AllocateLocal.Size != 4 || alloc.AllocateLocal.Alignment != 4 {
		t.Fatalf("alloc: %s", ir.InstrString(alloc))
	}
	constInstr := fn.Instructions[1]
	if constInstr.Kind != ir.InstrIntegerConstant || constInstr.IntegerConstant.Value != 3 || constInstr.IntegerConstant.Size != ir.Size32 {
		t.Fatalf("const: %s", ir.InstrString(constInstr))
	}
	store := fn.Instructions[2]
	if store.Kind != ir.InstrStoreInteger || store.StoreInteger.Size != ir.Size32 {
		t.Fatalf("store: %s", ir.InstrString(store))
	}
	if fn.Instructions[3].Kind != ir.InstrReturn {
		t.Fatalf("missing void return")
	}
}

// Polymorphism: two calls with the same constant arguments share one
// instantiation named function_1 with runtime signature (i32) -> i32.
func TestScenarioPolymorphicDedup(t *testing.T) {
	statics, gen := mustCompile(t, map[string]string{
		"main.sl": `
id :: ($T: type, x: T) -> T { return x; }
main :: () { id(i32, 7); id(i32, 8); }
`,
	}, "main.sl")

	var instantiated []*RuntimeFunction
	for _, fn := range gen.runtimeFns {
		if fn.Declaration.Name == "id" {
			instantiated = append(instantiated, fn)
		}
	}
	if len(instantiated) != 1 {
		t.Fatalf("expected exactly one instantiation, got %d", len(instantiated))
	}
	fn := instantiated[0]
	if fn.MangledName != "function_1" {
		t.Fatalf("mangled name: %s", fn.MangledName)
	}
	if len(fn.ParameterTypes) != 1 {
		t.Fatalf("parameter count: %d", len(fn.ParameterTypes))
	}

	var static *ir.Function
	for _, s := range statics {
		if f, ok := s.(*ir.Function); ok && f.Name == "function_1" {
			static = f
		}
	}
	if static == nil {
		t.Fatalf("function_1 not generated:\n%s", ir.Print(statics))
	}
	if len(static.Parameters) != 1 || static.Parameters[0].Size != ir.Size32 || static.Parameters[0].IsFloat {
		t.Fatalf("parameters: %+v", static.Parameters)
	}
	if !static.HasReturn || static.Return.Size != ir.Size32 {
		t.Fatalf("return: %+v", static.Return)
	}
}

// Slice auto-wrap: the generator lays down a 16-byte two-word local, the
// data pointer into word 0 and the length 3 into word 1.
func TestScenarioSliceAutoWrap(t *testing.T) {
	statics, _ := mustCompile(t, map[string]string{
		"main.sl": "main :: () { a: [3]i32 = .[1, 2, 3]; b: []i32 = a; }",
	}, "main.sl")

	fn := mainFunction(t, statics)

	var wrapLocal, arrayLocal ir.Reg
	foundWrap := false
	for _, instr := range fn.Instructions {
		if instr.Kind == ir.InstrAllocateLocal {
			switch instr.AllocateLocal.Size {
			case 12:
				arrayLocal = instr.AllocateLocal.Destination
			case 16:
				if !foundWrap {
					// first 16-byte local is b itself, second is the wrap
					foundWrap = true
					wrapLocal = instr.AllocateLocal.Destination
				} else {
					wrapLocal = instr.AllocateLocal.Destination
				}
			}
		}
	}
	if !foundWrap {
		t.Fatalf("no two-word local:\n%s", ir.Print(statics))
	}

	// Word 0 of the wrap local receives the array's address.
	pointerStored := false
	lengthConst := false
	for _, instr := range fn.Instructions {
		if instr.Kind == ir.InstrStoreInteger &&
			instr.StoreInteger.Address == wrapLocal &&
			instr.StoreInteger.Source == arrayLocal &&
			instr.StoreInteger.Size == ir.Size64 {
			pointerStored = true
		}
		if instr.Kind == ir.InstrIntegerConstant &&
			instr.IntegerConstant.Value == 3 && instr.IntegerConstant.Size == ir.Size64 {
			lengthConst = true
		}
	}
	if !pointerStored {
		t.Fatalf("pointer not written into word 0:\n%s", ir.Print(statics))
	}
	if !lengthConst {
		t.Fatalf("length 3 never materialised:\n%s", ir.Print(statics))
	}
}

// Union literal: 1.5 lands as a 4-byte float at offset 0, and the union's
// size is max(size(i32), size(f32)).
func TestScenarioUnionLiteral(t *testing.T) {
	statics, _ := mustCompile(t, map[string]string{
		"main.sl": `
U :: union { i: i32; f: f32; }
main :: () { u: U = .{ f = 1.5 }; }
`,
	}, "main.sl")

	var blob *ir.StaticConstant
	for _, static := range statics {
		if c, ok := static.(*ir.StaticConstant); ok {
			blob = c
		}
	}
	if blob == nil {
		t.Fatalf("no static constant:\n%s", ir.Print(statics))
	}
	// 1.5 as f32 at offset 0; union size is 4.
	if !bytes.Equal(blob.Data, []byte{0x00, 0x00, 0xC0, 0x3F}) {
		t.Fatalf("union bytes: %x", blob.Data)
	}

	fn := mainFunction(t, statics)
	for _, instr := range fn.Instructions {
		if instr.Kind == ir.InstrAllocateLocal && instr.AllocateLocal.Size != 4 {
			t.Fatalf("union local size %d", instr.AllocateLocal.Size)
		}
		if instr.Kind == ir.InstrCopyMemory && instr.CopyMemory.Length != 4 {
			t.Fatalf("union copy length %d", instr.CopyMemory.Length)
		}
	}
}

// Import: the parsed-file table has two entries, pi resolves from the
// imported module, and the undetermined float coerces to f64.
func TestScenarioImport(t *testing.T) {
	statics, gen := mustCompile(t, map[string]string{
		"a.sl":    "pi :: 3.14;",
		"main.sl": "using \"a.sl\";\nmain :: () -> f64 { return pi; }",
	}, "main.sl")

	if gen.ParsedFileCount() != 2 {
		t.Fatalf("parsed files: %d", gen.ParsedFileCount())
	}

	fn := mainFunction(t, statics)
	if len(fn.Instructions) != 2 {
		t.Fatalf("instructions:\n%s", ir.Print(statics))
	}
	fconst := fn.Instructions[0]
	if fconst.Kind != ir.InstrFloatConstant || fconst.FloatConstant.Value != 3.14 || fconst.FloatConstant.Size != ir.Size64 {
		t.Fatalf("float constant: %s", ir.InstrString(fconst))
	}
	ret := fn.Instructions[1]
	if ret.Kind != ir.InstrReturn || !ret.Return.HasValue {
		t.Fatalf("return: %s", ir.InstrString(ret))
	}
	if !fn.HasReturn || !fn.Return.IsFloat || fn.Return.Size != ir.Size64 {
		t.Fatalf("signature: %+v", fn.Return)
	}
}

func TestExternalFunctionKeepsSourceName(t *testing.T) {
	statics, _ := mustCompile(t, map[string]string{
		"main.sl": `
putchar :: (c: i32) -> i32 extern;
main :: () { putchar(65); }
`,
	}, "main.sl")

	var ext *ir.Function
	for _, static := range statics {
		if fn, ok := static.(*ir.Function); ok && fn.IsExternal {
			ext = fn
		}
	}
	if ext == nil || ext.Name != "putchar" {
		t.Fatalf("external not found:\n%s", ir.Print(statics))
	}

	fn := mainFunction(t, statics)
	called := false
	for _, instr := range fn.Instructions {
		if instr.Kind == ir.InstrCall && instr.Call.FunctionName == "putchar" && instr.Call.HasReturn {
			called = true
		}
	}
	if !called {
		t.Fatalf("call to putchar missing:\n%s", ir.Print(statics))
	}
}

func TestMangledNamesAreDeterministic(t *testing.T) {
	files := map[string]string{
		"main.sl": `
id :: ($T: type, x: T) -> T { return x; }
main :: () { id(i32, 1); id(i64, 2); }
`,
	}
	names := func() []string {
		statics, _ := mustCompile(t, files, "main.sl")
		var out []string
		for _, static := range statics {
			out = append(out, static.StaticName())
		}
		return out
	}
	first := names()
	second := names()
	if len(first) != len(second) {
		t.Fatalf("different static counts: %v vs %v", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("non-deterministic names: %v vs %v", first, second)
		}
	}
}

func TestDistinctConstantArgumentsInstantiateTwice(t *testing.T) {
	_, gen := mustCompile(t, map[string]string{
		"main.sl": `
id :: ($T: type, x: T) -> T { return x; }
main :: () { id(i32, 1); id(i64, 2); }
`,
	}, "main.sl")

	count := 0
	for _, fn := range gen.runtimeFns {
		if fn.Declaration.Name == "id" {
			count++
		}
	}
	if count != 2 {
		t.Fatalf("expected two instantiations, got %d", count)
	}
}

// A $T inside a parameter's type expression binds from the argument's type.
func TestTypeDeterminerInference(t *testing.T) {
	_, gen := mustCompile(t, map[string]string{
		"main.sl": `
first :: (xs: []$T) -> T { return xs[0]; }
main :: () { a: [2]i32 = .[1, 2]; first(a); }
`,
	}, "main.sl")

	var inst *RuntimeFunction
	for _, fn := range gen.runtimeFns {
		if fn.Declaration.Name == "first" {
			inst = fn
		}
	}
	if inst == nil {
		t.Fatalf("no instantiation of first")
	}
	slice, ok := inst.ParameterTypes[0].(*types.ArraySlice)
	if !ok {
		t.Fatalf("parameter: %s", types.Describe(inst.ParameterTypes[0]))
	}
	elem, ok := slice.Element.(*types.Integer)
	if !ok || elem.Size != types.Size32 || !elem.Signed {
		t.Fatalf("element: %s", types.Describe(slice.Element))
	}
	ret, ok := inst.ReturnType.(*types.Integer)
	if !ok || ret.Size != types.Size32 {
		t.Fatalf("return: %s", types.Describe(inst.ReturnType))
	}
}

func TestMissingMainDiagnosed(t *testing.T) {
	_, _, bag, err := compile(t, map[string]string{
		"main.sl": "x :: 1;",
	}, "main.sl")
	if err == nil {
		t.Fatalf("expected failure")
	}
	found := false
	for _, d := range bag.Items() {
		if d.Code == diag.StructMissingMain {
			found = true
		}
	}
	if !found {
		t.Fatalf("diagnostics: %+v", bag.Items())
	}
}

func TestPolymorphicMainRejected(t *testing.T) {
	_, _, bag, err := compile(t, map[string]string{
		"main.sl": "main :: ($T: type) { }",
	}, "main.sl")
	if err == nil {
		t.Fatalf("expected failure")
	}
	found := false
	for _, d := range bag.Items() {
		if d.Code == diag.StructBadMain {
			found = true
		}
	}
	if !found {
		t.Fatalf("diagnostics: %+v", bag.Items())
	}
}

func TestControlFlowTargets(t *testing.T) {
	statics, _ := mustCompile(t, map[string]string{
		"main.sl": `
main :: () {
    x: i64 = 0;
    while x < 10 {
        x = x + 1;
    }
}
`,
	}, "main.sl")

	fn := mainFunction(t, statics)
	var loopJump *ir.JumpInstr
	for i := range fn.Instructions {
		instr := &fn.Instructions[i]
		if instr.Kind == ir.InstrBranch {
			if instr.Branch.Destination >= uint64(len(fn.Instructions)) {
				t.Fatalf("branch target out of range: %s", ir.InstrString(*instr))
			}
		}
		if instr.Kind == ir.InstrJump {
			if instr.Jump.Destination > uint64(len(fn.Instructions)) {
				t.Fatalf("jump target out of range: %s", ir.InstrString(*instr))
			}
			loopJump = &instr.Jump
		}
	}
	if loopJump == nil {
		t.Fatalf("no jumps in loop:\n%s", ir.Print(statics))
	}
}

func TestDuplicateVariableDiagnosed(t *testing.T) {
	_, _, bag, err := compile(t, map[string]string{
		"main.sl": "main :: () { x: i32; x: i64; }",
	}, "main.sl")
	if err == nil {
		t.Fatalf("expected failure")
	}
	found := false
	for _, d := range bag.Items() {
		if d.Code == diag.StructDuplicateLocal {
			found = true
		}
	}
	if !found {
		t.Fatalf("diagnostics: %+v", bag.Items())
	}
}

func TestNonVoidFunctionMustReturn(t *testing.T) {
	_, _, bag, err := compile(t, map[string]string{
		"main.sl": "f :: () -> i32 { }\nmain :: () { f(); }",
	}, "main.sl")
	if err == nil {
		t.Fatalf("expected failure")
	}
	found := false
	for _, d := range bag.Items() {
		if d.Code == diag.StructMissingReturn {
			found = true
		}
	}
	if !found {
		t.Fatalf("diagnostics: %+v", bag.Items())
	}
}

func TestAggregateReturnByReference(t *testing.T) {
	statics, _ := mustCompile(t, map[string]string{
		"main.sl": `
Pair :: struct { a: i64; b: i64; }
make :: () -> Pair { return .{ a = 1, b = 2 }; }
main :: () { p: Pair = make(); }
`,
	}, "main.sl")

	var makeFn *ir.Function
	for _, static := range statics {
		if fn, ok := static.(*ir.Function); ok && len(fn.Name) > 4 && fn.Name[:4] == "make" {
			makeFn = fn
		}
	}
	if makeFn == nil {
		t.Fatalf("make not generated:\n%s", ir.Print(statics))
	}
	if !makeFn.ReturnsByReference || makeFn.HasReturn {
		t.Fatalf("make should return by reference: %+v", makeFn)
	}
}
