package irgen

import (
	"testing"

	"slate/internal/ast"
	"slate/internal/diag"
	"slate/internal/source"
	"slate/internal/types"
)

func coerceSetup(t *testing.T) (*Generator, *diag.Bag) {
	t.Helper()
	gen, _, _, bag := evalSetup(t, "x :: 1;")
	return gen, bag
}

func undetInt(bits uint64) types.TypedValue {
	return types.TypedValue{Type: &types.UndeterminedInteger{}, Value: &types.IntegerValue{Bits: bits}}
}

func TestCoerceUndeterminedIntegerTruncates(t *testing.T) {
	gen, _ := coerceSetup(t)
	value, err := gen.coerceConstant(undetInt(0x1FF), &types.Integer{Size: types.Size8}, source.Span{}, false)
	if err != nil {
		t.Fatal(err)
	}
	if bits := value.(*types.IntegerValue).Bits; bits != 0xFF {
		t.Fatalf("truncation: %x", bits)
	}
}

func TestCoerceIntegerRequiresExactShape(t *testing.T) {
	gen, bag := coerceSetup(t)
	i32 := types.TypedValue{Type: &types.Integer{Size: types.Size32, Signed: true}, Value: &types.IntegerValue{Bits: 1}}
	if _, err := gen.coerceConstant(i32, &types.Integer{Size: types.Size64, Signed: true}, source.Span{}, false); err == nil {
		t.Fatalf("i32 must not implicitly widen to i64")
	}
	if !bag.HasErrors() {
		t.Fatalf("failure must be diagnosed")
	}
	if bag.Items()[0].Message != "cannot implicitly convert 'i32' to 'i64'" {
		t.Fatalf("message: %s", bag.Items()[0].Message)
	}
}

func TestProbingSuppressesDiagnostics(t *testing.T) {
	gen, bag := coerceSetup(t)
	i32 := types.TypedValue{Type: &types.Integer{Size: types.Size32, Signed: true}, Value: &types.IntegerValue{Bits: 1}}
	if _, err := gen.coerceConstant(i32, &types.Boolean{}, source.Span{}, true); err == nil {
		t.Fatalf("expected failure")
	}
	if bag.Len() != 0 {
		t.Fatalf("probing must stay silent: %+v", bag.Items())
	}
}

func TestCoerceUndeterminedIntegerToFloat(t *testing.T) {
	gen, _ := coerceSetup(t)
	value, err := gen.coerceConstant(undetInt(3), &types.Float{Size: types.Size64}, source.Span{}, false)
	if err != nil {
		t.Fatal(err)
	}
	if v := value.(*types.FloatValue).Value; v != 3.0 {
		t.Fatalf("promotion: %g", v)
	}
}

func TestCoerceFloat32Rounds(t *testing.T) {
	gen, _ := coerceSetup(t)
	from := types.TypedValue{Type: &types.UndeterminedFloat{}, Value: &types.FloatValue{Value: 1.1}}
	value, err := gen.coerceConstant(from, &types.Float{Size: types.Size32}, source.Span{}, false)
	if err != nil {
		t.Fatal(err)
	}
	if v := value.(*types.FloatValue).Value; v != float64(float32(1.1)) {
		t.Fatalf("rounding: %g", v)
	}
}

func TestCoerceAddressLiteralToPointer(t *testing.T) {
	gen, _ := coerceSetup(t)
	target := &types.Pointer{Pointee: &types.Integer{Size: types.Size8}}
	value, err := gen.coerceConstant(undetInt(0xDEAD), target, source.Span{}, false)
	if err != nil {
		t.Fatal(err)
	}
	if addr := value.(*types.PointerValue).Address; addr != 0xDEAD {
		t.Fatalf("address: %x", addr)
	}
}

func TestCoercePointerPointeeMustMatch(t *testing.T) {
	gen, _ := coerceSetup(t)
	from := types.TypedValue{
		Type:  &types.Pointer{Pointee: &types.Integer{Size: types.Size8}},
		Value: &types.PointerValue{Address: 1},
	}
	target := &types.Pointer{Pointee: &types.Integer{Size: types.Size16}}
	if _, err := gen.coerceConstant(from, target, source.Span{}, true); err == nil {
		t.Fatalf("*u8 must not coerce to *u16")
	}
}

func TestCoerceStructuralSlice(t *testing.T) {
	gen, _ := coerceSetup(t)
	usize := gen.Target.Usize()
	from := types.TypedValue{
		Type: &types.UndeterminedStruct{Members: []types.StructMember{
			{Name: "pointer", Type: &types.UndeterminedInteger{}},
			{Name: "length", Type: usize},
		}},
		Value: &types.StructValue{Members: []types.Value{
			&types.IntegerValue{Bits: 0x1000},
			&types.IntegerValue{Bits: 5},
		}},
	}
	target := &types.ArraySlice{Element: &types.Integer{Size: types.Size8}}
	value, err := gen.coerceConstant(from, target, source.Span{}, false)
	if err != nil {
		t.Fatal(err)
	}
	av := value.(*types.ArrayValue)
	if av.Pointer != 0x1000 || av.Length != 5 {
		t.Fatalf("slice: %+v", av)
	}
}

func TestCoerceStructuralStructFieldwise(t *testing.T) {
	gen, _ := coerceSetup(t)
	target := &types.Struct{
		Definition: &ast.StructDefinition{Name: "P"},
		Members: []types.StructMember{
			{Name: "x", Type: &types.Integer{Size: types.Size32, Signed: true}},
			{Name: "y", Type: &types.Float{Size: types.Size64}},
		},
	}
	from := types.TypedValue{
		Type: &types.UndeterminedStruct{Members: []types.StructMember{
			{Name: "x", Type: &types.UndeterminedInteger{}},
			{Name: "y", Type: &types.UndeterminedFloat{}},
		}},
		Value: &types.StructValue{Members: []types.Value{
			&types.IntegerValue{Bits: 7},
			&types.FloatValue{Value: 2.5},
		}},
	}
	value, err := gen.coerceConstant(from, target, source.Span{}, false)
	if err != nil {
		t.Fatal(err)
	}
	sv := value.(*types.StructValue)
	if sv.Members[0].(*types.IntegerValue).Bits != 7 {
		t.Fatalf("x: %+v", sv.Members[0])
	}
	if sv.Members[1].(*types.FloatValue).Value != 2.5 {
		t.Fatalf("y: %+v", sv.Members[1])
	}
}

func TestCoerceStructuralStructNameOrderMatters(t *testing.T) {
	gen, _ := coerceSetup(t)
	target := &types.Struct{
		Definition: &ast.StructDefinition{Name: "P"},
		Members: []types.StructMember{
			{Name: "x", Type: &types.Integer{Size: types.Size32, Signed: true}},
			{Name: "y", Type: &types.Integer{Size: types.Size32, Signed: true}},
		},
	}
	from := types.TypedValue{
		Type: &types.UndeterminedStruct{Members: []types.StructMember{
			{Name: "y", Type: &types.UndeterminedInteger{}},
			{Name: "x", Type: &types.UndeterminedInteger{}},
		}},
		Value: &types.StructValue{Members: []types.Value{
			&types.IntegerValue{Bits: 1},
			&types.IntegerValue{Bits: 2},
		}},
	}
	if _, err := gen.coerceConstant(from, target, source.Span{}, true); err == nil {
		t.Fatalf("member order must match")
	}
}

func TestCoerceUnionSingleMember(t *testing.T) {
	gen, _ := coerceSetup(t)
	target := &types.Struct{
		Definition: &ast.StructDefinition{Name: "U", IsUnion: true},
		IsUnion:    true,
		Members: []types.StructMember{
			{Name: "i", Type: &types.Integer{Size: types.Size32, Signed: true}},
			{Name: "f", Type: &types.Float{Size: types.Size32}},
		},
	}
	from := types.TypedValue{
		Type: &types.UndeterminedStruct{Members: []types.StructMember{
			{Name: "f", Type: &types.UndeterminedFloat{}},
		}},
		Value: &types.StructValue{Members: []types.Value{&types.FloatValue{Value: 1.5}}},
	}
	value, err := gen.coerceConstant(from, target, source.Span{}, false)
	if err != nil {
		t.Fatal(err)
	}
	sv := value.(*types.StructValue)
	if sv.UnionMemberIndex != 1 || len(sv.Members) != 1 {
		t.Fatalf("union coercion: %+v", sv)
	}

	// A member name no union member declares is rejected.
	bad := types.TypedValue{
		Type: &types.UndeterminedStruct{Members: []types.StructMember{
			{Name: "q", Type: &types.UndeterminedFloat{}},
		}},
		Value: &types.StructValue{Members: []types.Value{&types.FloatValue{Value: 1}}},
	}
	if _, err := gen.coerceConstant(bad, target, source.Span{}, true); err == nil {
		t.Fatalf("unknown union member must fail")
	}
}

func TestCoerceIdentity(t *testing.T) {
	gen, _ := coerceSetup(t)
	slice := &types.ArraySlice{Element: &types.Integer{Size: types.Size8}}
	from := types.TypedValue{Type: slice, Value: &types.ArrayValue{Pointer: 1, Length: 2}}
	value, err := gen.coerceConstant(from, &types.ArraySlice{Element: &types.Integer{Size: types.Size8}}, source.Span{}, false)
	if err != nil {
		t.Fatal(err)
	}
	if value != from.Value {
		t.Fatalf("identity must preserve the value")
	}
}
