package irgen

import (
	"slate/internal/types"
)

// globalConstant resolves the ambient table searched after every scope is
// exhausted: primitive type names, true/false, and the builtin functions.
func (g *Generator) globalConstant(name string) (types.TypedValue, bool) {
	typeConstant := func(t types.Type) (types.TypedValue, bool) {
		return types.TypedValue{Type: &types.TypeOfType{}, Value: &types.TypeValue{Type: t}}, true
	}

	switch name {
	case "u8":
		return typeConstant(&types.Integer{Size: types.Size8})
	case "u16":
		return typeConstant(&types.Integer{Size: types.Size16})
	case "u32":
		return typeConstant(&types.Integer{Size: types.Size32})
	case "u64":
		return typeConstant(&types.Integer{Size: types.Size64})
	case "i8":
		return typeConstant(&types.Integer{Size: types.Size8, Signed: true})
	case "i16":
		return typeConstant(&types.Integer{Size: types.Size16, Signed: true})
	case "i32":
		return typeConstant(&types.Integer{Size: types.Size32, Signed: true})
	case "i64":
		return typeConstant(&types.Integer{Size: types.Size64, Signed: true})
	case "usize":
		return typeConstant(g.Target.Usize())
	case "isize":
		return typeConstant(g.Target.Isize())
	case "bool":
		return typeConstant(&types.Boolean{})
	case "void":
		return typeConstant(&types.Void{})
	case "f32":
		return typeConstant(&types.Float{Size: types.Size32})
	case "f64":
		return typeConstant(&types.Float{Size: types.Size64})
	case "type":
		return typeConstant(&types.TypeOfType{})
	case "true":
		return types.TypedValue{Type: &types.Boolean{}, Value: &types.BooleanValue{Value: true}}, true
	case "false":
		return types.TypedValue{Type: &types.Boolean{}, Value: &types.BooleanValue{Value: false}}, true
	case "size_of", "type_of":
		return types.TypedValue{Type: &types.BuiltinFunction{}, Value: &types.BuiltinValue{Name: name}}, true
	}
	return types.TypedValue{}, false
}
