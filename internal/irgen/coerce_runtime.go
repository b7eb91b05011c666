package irgen

import (
	"slate/internal/diag"
	"slate/internal/layout"
	"slate/internal/source"
	"slate/internal/types"
)

// coerceRuntime applies the implicit-conversion rules in IR-emitting mode.
// Constant sources stay deferred whenever the constant engine can convert
// them; aggregate conversions materialise locals and emit stores.
func (fs *funcState) coerceRuntime(span source.Span, v rvalue, target types.Type, probing bool) (rvalue, error) {
	if v.kind == rvConstant {
		// The slice auto-wrap needs an address even for constant arrays, so
		// it is handled below; everything else defers to the constant rules.
		if _, isSlice := target.(*types.ArraySlice); !isSlice {
			value, err := fs.g.coerceConstant(v.typedConstant(), target, span, true)
			if err == nil {
				return rvalue{kind: rvConstant, typ: target, constant: value}, nil
			}
			return rvalue{}, fs.g.coercionFailure(v.typ, target, span, probing)
		}
	}

	switch t := target.(type) {
	case *types.ArraySlice:
		switch ft := v.typ.(type) {
		case *types.ArraySlice:
			if types.Equal(ft.Element, t.Element) {
				return v, nil
			}
		case *types.StaticArray:
			if types.Equal(ft.Element, t.Element) {
				return fs.wrapStaticArray(span, v, ft, t)
			}
		case *types.UndeterminedStruct:
			if out, ok, err := fs.materialiseSliceLiteral(span, v, ft, t); ok || err != nil {
				return out, err
			}
		}
		if v.kind == rvConstant {
			value, err := fs.g.coerceConstant(v.typedConstant(), target, span, true)
			if err == nil {
				return rvalue{kind: rvConstant, typ: target, constant: value}, nil
			}
		}

	case *types.Struct:
		switch ft := v.typ.(type) {
		case *types.Struct:
			if types.Equal(ft, t) {
				return v, nil
			}
		case *types.UndeterminedStruct:
			if v.kind == rvUndetermined {
				return fs.materialiseStructLiteral(span, v, ft, t, probing)
			}
		}

	default:
		if types.Equal(v.typ, target) {
			return v, nil
		}
	}

	if types.Equal(v.typ, target) {
		return v, nil
	}
	return rvalue{}, fs.g.coercionFailure(v.typ, target, span, probing)
}

// wrapStaticArray lays down the two-word {pointer, length} local for a
// static array coerced to a slice. The data pointer goes into word 0 and the
// length into word 1.
func (fs *funcState) wrapStaticArray(span source.Span, v rvalue, from *types.StaticArray, target *types.ArraySlice) (rvalue, error) {
	dataAddress, err := fs.valueAddress(span, v)
	if err != nil {
		return rvalue{}, err
	}
	local := fs.emitAllocateLocal(target)
	word := fs.g.Target.AddressSize.Bytes()

	fs.emitStoreScalar(&types.Pointer{Pointee: from.Element}, dataAddress, local)
	lengthReg := fs.emitIntegerConstant(fs.addressSize(), from.Length)
	fs.emitStoreScalar(fs.g.Target.Usize(), lengthReg, fs.addOffset(local, word))

	return addressRValue(target, local), nil
}

// materialiseSliceLiteral accepts an undetermined struct with exactly the
// members 'pointer' and 'length'.
func (fs *funcState) materialiseSliceLiteral(span source.Span, v rvalue, from *types.UndeterminedStruct, target *types.ArraySlice) (rvalue, bool, error) {
	if len(from.Members) != 2 || from.Members[0].Name != "pointer" || from.Members[1].Name != "length" {
		return rvalue{}, false, nil
	}
	memberValues, err := fs.literalMembers(v, from)
	if err != nil {
		return rvalue{}, false, err
	}

	pointer, err := fs.coerceRuntime(span, memberValues[0], &types.Pointer{Pointee: target.Element}, true)
	if err != nil {
		return rvalue{}, false, nil
	}
	length, err := fs.coerceRuntime(span, memberValues[1], fs.g.Target.Usize(), true)
	if err != nil {
		return rvalue{}, false, nil
	}

	local := fs.emitAllocateLocal(target)
	word := fs.g.Target.AddressSize.Bytes()
	if err := fs.storeAt(span, pointer, &types.Pointer{Pointee: target.Element}, local, 0); err != nil {
		return rvalue{}, false, err
	}
	if err := fs.storeAt(span, length, fs.g.Target.Usize(), local, word); err != nil {
		return rvalue{}, false, err
	}
	return addressRValue(target, local), true, nil
}

// materialiseStructLiteral allocates a local of the nominal struct type and
// writes each literal member at its computed offset. Unions take the
// single-member form into offset zero.
func (fs *funcState) materialiseStructLiteral(span source.Span, v rvalue, from *types.UndeterminedStruct, target *types.Struct, probing bool) (rvalue, error) {
	memberValues, err := fs.literalMembers(v, from)
	if err != nil {
		return rvalue{}, err
	}

	if target.IsUnion {
		if len(from.Members) != 1 {
			return rvalue{}, fs.g.coercionFailure(v.typ, target, span, probing)
		}
		for _, member := range target.Members {
			if member.Name != from.Members[0].Name {
				continue
			}
			coerced, err := fs.coerceRuntime(span, memberValues[0], member.Type, probing)
			if err != nil {
				return rvalue{}, err
			}
			local := fs.emitAllocateLocal(target)
			if err := fs.storeAt(span, coerced, member.Type, local, 0); err != nil {
				return rvalue{}, err
			}
			return addressRValue(target, local), nil
		}
		return rvalue{}, fs.g.coercionFailure(v.typ, target, span, probing)
	}

	if len(from.Members) != len(target.Members) {
		return rvalue{}, fs.g.coercionFailure(v.typ, target, span, probing)
	}
	for i := range from.Members {
		if from.Members[i].Name != target.Members[i].Name {
			return rvalue{}, fs.g.coercionFailure(v.typ, target, span, probing)
		}
	}

	local := fs.emitAllocateLocal(target)
	for i, member := range target.Members {
		coerced, err := fs.coerceRuntime(span, memberValues[i], member.Type, probing)
		if err != nil {
			return rvalue{}, err
		}
		offset := layout.MemberOffset(fs.g.Target, target, i)
		if err := fs.storeAt(span, coerced, member.Type, local, offset); err != nil {
			return rvalue{}, err
		}
	}
	return addressRValue(target, local), nil
}

// literalMembers views an undetermined struct value as per-member rvalues,
// whichever holding it is in.
func (fs *funcState) literalMembers(v rvalue, from *types.UndeterminedStruct) ([]rvalue, error) {
	switch v.kind {
	case rvUndetermined:
		return v.members, nil
	case rvConstant:
		value := v.constant.(*types.StructValue)
		out := make([]rvalue, len(from.Members))
		for i, member := range from.Members {
			out[i] = constantRValue(types.TypedValue{Type: member.Type, Value: value.Members[i]})
		}
		return out, nil
	}
	return nil, fs.g.errorf(source.Span{}, diag.TypeUndeterminedStruct, "malformed struct literal value")
}
