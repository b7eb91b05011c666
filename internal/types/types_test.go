package types

import (
	"testing"

	"slate/internal/ast"
)

func TestIntegerEquality(t *testing.T) {
	if !Equal(&Integer{Size: Size32, Signed: true}, &Integer{Size: Size32, Signed: true}) {
		t.Fatalf("i32 == i32")
	}
	if Equal(&Integer{Size: Size32, Signed: true}, &Integer{Size: Size32, Signed: false}) {
		t.Fatalf("i32 != u32")
	}
	if Equal(&Integer{Size: Size32, Signed: true}, &Integer{Size: Size64, Signed: true}) {
		t.Fatalf("i32 != i64")
	}
}

func TestPointerPreservesPointeeIdentity(t *testing.T) {
	a := &Pointer{Pointee: &Integer{Size: Size8, Signed: false}}
	b := &Pointer{Pointee: &Integer{Size: Size8, Signed: false}}
	c := &Pointer{Pointee: &Integer{Size: Size16, Signed: false}}
	if !Equal(a, b) {
		t.Fatalf("*u8 == *u8")
	}
	if Equal(a, c) {
		t.Fatalf("*u8 != *u16")
	}
}

func TestNominalStructEquality(t *testing.T) {
	members := []StructMember{
		{Name: "x", Type: &Integer{Size: Size32, Signed: true}},
		{Name: "y", Type: &Integer{Size: Size32, Signed: true}},
	}
	defA := &ast.StructDefinition{Name: "A"}
	defB := &ast.StructDefinition{Name: "B"}

	a1 := &Struct{Definition: defA, Members: members}
	a2 := &Struct{Definition: defA, Members: members}
	b := &Struct{Definition: defB, Members: members}

	if !Equal(a1, a2) {
		t.Fatalf("same definition with same members must be equal")
	}
	// Two distinct declarations with identical layout are distinct types.
	if Equal(a1, b) {
		t.Fatalf("nominal equality must require the definition handle")
	}
}

func TestInstantiationsWithDifferentMembersDiffer(t *testing.T) {
	def := &ast.StructDefinition{Name: "Vec"}
	ofI32 := &Struct{Definition: def, Members: []StructMember{
		{Name: "data", Type: &Pointer{Pointee: &Integer{Size: Size32, Signed: true}}},
	}}
	ofI64 := &Struct{Definition: def, Members: []StructMember{
		{Name: "data", Type: &Pointer{Pointee: &Integer{Size: Size64, Signed: true}}},
	}}
	if Equal(ofI32, ofI64) {
		t.Fatalf("instantiations with different member types must differ")
	}
}

func TestRuntimePredicate(t *testing.T) {
	runtime := []Type{
		&Integer{Size: Size8, Signed: false},
		&Boolean{},
		&Float{Size: Size64},
		&Pointer{Pointee: &Void{}},
		&ArraySlice{Element: &Integer{Size: Size8, Signed: false}},
		&StaticArray{Length: 3, Element: &Integer{Size: Size32, Signed: true}},
		&Struct{Definition: &ast.StructDefinition{}},
	}
	for _, tt := range runtime {
		if !IsRuntime(tt) {
			t.Errorf("%s should be a runtime type", Describe(tt))
		}
	}
	notRuntime := []Type{
		&UndeterminedInteger{}, &UndeterminedFloat{}, &UndeterminedStruct{},
		&TypeOfType{}, &Void{}, &FileModule{}, &PolymorphicFunction{},
	}
	for _, tt := range notRuntime {
		if IsRuntime(tt) {
			t.Errorf("%s should not be a runtime type", Describe(tt))
		}
	}
}

func TestRepresentation(t *testing.T) {
	if !FitsInRegister(&Pointer{Pointee: &Void{}}) || !FitsInRegister(&Boolean{}) {
		t.Fatalf("scalars live in registers")
	}
	if FitsInRegister(&ArraySlice{Element: &Boolean{}}) || FitsInRegister(&Struct{}) {
		t.Fatalf("aggregates are addressed")
	}
}

func TestDescribe(t *testing.T) {
	cases := map[string]Type{
		"i32":     &Integer{Size: Size32, Signed: true},
		"u8":      &Integer{Size: Size8, Signed: false},
		"f64":     &Float{Size: Size64},
		"*u8":     &Pointer{Pointee: &Integer{Size: Size8, Signed: false}},
		"[]i32":   &ArraySlice{Element: &Integer{Size: Size32, Signed: true}},
		"[4]bool": &StaticArray{Length: 4, Element: &Boolean{}},
	}
	for want, tt := range cases {
		if got := Describe(tt); got != want {
			t.Errorf("describe: got %q want %q", got, want)
		}
	}
}

func TestScopeChain(t *testing.T) {
	file := NewFileScope("/src/main.sl", nil)
	decl := &ast.FunctionDeclaration{Name: "main"}
	inner := NewDeclarationScope(decl, nil, file)

	if inner.File() != "/src/main.sl" {
		t.Fatalf("file: %s", inner.File())
	}
	name, ok := inner.DeclarationName()
	if !ok || name != "main" {
		t.Fatalf("declaration name: %s %v", name, ok)
	}
	if _, ok := file.DeclarationName(); ok {
		t.Fatalf("top level has no declaration name")
	}
}
