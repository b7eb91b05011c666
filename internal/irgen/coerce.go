package irgen

import (
	"slate/internal/diag"
	"slate/internal/source"
	"slate/internal/types"
)

// coerceConstant implicitly converts a constant value to the target type,
// returning the converted value. With probing set, failure stays silent so
// the engine can be used as a speculative predicate.
func (g *Generator) coerceConstant(from types.TypedValue, target types.Type, span source.Span, probing bool) (types.Value, error) {
	switch t := target.(type) {
	case *types.Integer:
		switch ft := from.Type.(type) {
		case *types.Integer:
			if ft.Size == t.Size && ft.Signed == t.Signed {
				return from.Value, nil
			}
		case *types.UndeterminedInteger:
			// Width truncation is silent; literals out of range wrap.
			bits := from.Value.(*types.IntegerValue).Bits
			return &types.IntegerValue{Bits: maskToSize(bits, t.Size)}, nil
		}

	case *types.UndeterminedInteger:
		switch from.Type.(type) {
		case *types.Integer, *types.UndeterminedInteger:
			return from.Value, nil
		}

	case *types.Float:
		switch ft := from.Type.(type) {
		case *types.Float:
			if ft.Size == t.Size {
				return from.Value, nil
			}
		case *types.UndeterminedFloat:
			value := from.Value.(*types.FloatValue).Value
			if t.Size == types.Size32 {
				value = float64(float32(value))
			}
			return &types.FloatValue{Value: value}, nil
		case *types.UndeterminedInteger:
			bits := from.Value.(*types.IntegerValue).Bits
			value := float64(int64(bits))
			if t.Size == types.Size32 {
				value = float64(float32(value))
			}
			return &types.FloatValue{Value: value}, nil
		}

	case *types.UndeterminedFloat:
		switch from.Type.(type) {
		case *types.UndeterminedFloat:
			return from.Value, nil
		case *types.UndeterminedInteger:
			bits := from.Value.(*types.IntegerValue).Bits
			return &types.FloatValue{Value: float64(int64(bits))}, nil
		}

	case *types.Pointer:
		switch ft := from.Type.(type) {
		case *types.UndeterminedInteger:
			return &types.PointerValue{Address: from.Value.(*types.IntegerValue).Bits}, nil
		case *types.Pointer:
			if types.Equal(ft.Pointee, t.Pointee) {
				return from.Value, nil
			}
		}

	case *types.ArraySlice:
		switch ft := from.Type.(type) {
		case *types.ArraySlice:
			if types.Equal(ft.Element, t.Element) {
				return from.Value, nil
			}
		case *types.UndeterminedStruct:
			if value, ok := g.coerceStructuralSlice(from, ft, t, span); ok {
				return value, nil
			}
		}

	case *types.StaticArray:
		if ft, ok := from.Type.(*types.StaticArray); ok {
			if ft.Length == t.Length && types.Equal(ft.Element, t.Element) {
				return from.Value, nil
			}
		}

	case *types.Struct:
		switch ft := from.Type.(type) {
		case *types.Struct:
			if types.Equal(ft, t) {
				return from.Value, nil
			}
		case *types.UndeterminedStruct:
			value, err := g.coerceStructuralStruct(from, ft, t, span, probing)
			if err == nil {
				return value, nil
			}
			if !probing {
				return nil, err
			}
		}

	default:
		if types.Equal(from.Type, target) {
			return from.Value, nil
		}
	}

	if types.Equal(from.Type, target) {
		return from.Value, nil
	}
	if probing {
		return nil, ErrGenerate
	}
	return nil, g.errorf(span, diag.TypeCannotConvert, "cannot implicitly convert '%s' to '%s'",
		types.Describe(from.Type), types.Describe(target))
}

// coerceStructuralSlice accepts an undetermined struct with exactly the two
// members 'pointer' and 'length' as a slice constant.
func (g *Generator) coerceStructuralSlice(from types.TypedValue, ft *types.UndeterminedStruct, t *types.ArraySlice, span source.Span) (types.Value, bool) {
	if len(ft.Members) != 2 || ft.Members[0].Name != "pointer" || ft.Members[1].Name != "length" {
		return nil, false
	}
	value := from.Value.(*types.StructValue)
	pointer, err := g.coerceConstant(
		types.TypedValue{Type: ft.Members[0].Type, Value: value.Members[0]},
		&types.Pointer{Pointee: t.Element}, span, true)
	if err != nil {
		return nil, false
	}
	length, err := g.coerceConstant(
		types.TypedValue{Type: ft.Members[1].Type, Value: value.Members[1]},
		g.Target.Usize(), span, true)
	if err != nil {
		return nil, false
	}
	return &types.ArrayValue{
		Pointer: pointer.(*types.PointerValue).Address,
		Length:  length.(*types.IntegerValue).Bits,
	}, true
}

// coerceStructuralStruct performs field-wise coercion from a struct literal
// into a nominal struct, or the single-member form into a union.
func (g *Generator) coerceStructuralStruct(from types.TypedValue, ft *types.UndeterminedStruct, t *types.Struct, span source.Span, probing bool) (types.Value, error) {
	value := from.Value.(*types.StructValue)

	if t.IsUnion {
		if len(ft.Members) != 1 {
			return nil, g.coercionFailure(from.Type, t, span, probing)
		}
		for i, member := range t.Members {
			if member.Name != ft.Members[0].Name {
				continue
			}
			coerced, err := g.coerceConstant(
				types.TypedValue{Type: ft.Members[0].Type, Value: value.Members[0]},
				member.Type, span, probing)
			if err != nil {
				return nil, err
			}
			return &types.StructValue{Members: []types.Value{coerced}, UnionMemberIndex: i}, nil
		}
		return nil, g.coercionFailure(from.Type, t, span, probing)
	}

	if len(ft.Members) != len(t.Members) {
		return nil, g.coercionFailure(from.Type, t, span, probing)
	}
	members := make([]types.Value, len(t.Members))
	for i, member := range t.Members {
		if ft.Members[i].Name != member.Name {
			return nil, g.coercionFailure(from.Type, t, span, probing)
		}
		coerced, err := g.coerceConstant(
			types.TypedValue{Type: ft.Members[i].Type, Value: value.Members[i]},
			member.Type, span, probing)
		if err != nil {
			return nil, err
		}
		members[i] = coerced
	}
	return &types.StructValue{Members: members}, nil
}

func (g *Generator) coercionFailure(from, target types.Type, span source.Span, probing bool) error {
	if probing {
		return ErrGenerate
	}
	return g.errorf(span, diag.TypeCannotConvert, "cannot implicitly convert '%s' to '%s'",
		types.Describe(from), types.Describe(target))
}

// constantCast implements the explicit cast operator on constants: first a
// probing implicit coercion, then the explicit conversions.
func (g *Generator) constantCast(from types.TypedValue, target types.Type, span source.Span) (types.TypedValue, error) {
	if value, err := g.coerceConstant(from, target, span, true); err == nil {
		return types.TypedValue{Type: target, Value: value}, nil
	}

	switch t := target.(type) {
	case *types.Integer:
		switch ft := from.Type.(type) {
		case *types.Integer:
			bits := from.Value.(*types.IntegerValue).Bits
			if ft.Signed && t.Size > ft.Size {
				bits = uint64(signExtend(bits, ft.Size))
			}
			return types.TypedValue{Type: t, Value: &types.IntegerValue{Bits: maskToSize(bits, t.Size)}}, nil
		case *types.Float, *types.UndeterminedFloat:
			value := from.Value.(*types.FloatValue).Value
			return types.TypedValue{Type: t, Value: &types.IntegerValue{Bits: maskToSize(uint64(int64(value)), t.Size)}}, nil
		case *types.Pointer:
			if t.Size == g.Target.AddressSize && !t.Signed {
				address := from.Value.(*types.PointerValue).Address
				return types.TypedValue{Type: t, Value: &types.IntegerValue{Bits: address}}, nil
			}
		}

	case *types.Float:
		switch ft := from.Type.(type) {
		case *types.Integer:
			bits := from.Value.(*types.IntegerValue).Bits
			var value float64
			if ft.Signed {
				value = float64(signExtend(bits, ft.Size))
			} else {
				value = float64(bits)
			}
			if t.Size == types.Size32 {
				value = float64(float32(value))
			}
			return types.TypedValue{Type: t, Value: &types.FloatValue{Value: value}}, nil
		case *types.Float:
			value := from.Value.(*types.FloatValue).Value
			if t.Size == types.Size32 {
				value = float64(float32(value))
			}
			return types.TypedValue{Type: t, Value: &types.FloatValue{Value: value}}, nil
		}

	case *types.Pointer:
		if ft, ok := from.Type.(*types.Integer); ok {
			if ft.Size == g.Target.AddressSize && !ft.Signed {
				bits := from.Value.(*types.IntegerValue).Bits
				return types.TypedValue{Type: t, Value: &types.PointerValue{Address: bits}}, nil
			}
		}
	}

	return types.TypedValue{}, g.errorf(span, diag.EvalBadCast, "cannot cast from '%s' to '%s'",
		types.Describe(from.Type), types.Describe(target))
}
