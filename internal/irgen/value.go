package irgen

import (
	"slate/internal/ir"
	"slate/internal/types"
)

// rvalueKind says how a runtime value is held.
type rvalueKind uint8

const (
	// rvConstant defers a compile-time constant; instructions materialise it
	// on demand.
	rvConstant rvalueKind = iota
	// rvRegister is a scalar in a register, or an aggregate whose address is
	// in a register without being assignable.
	rvRegister
	// rvAddress is a register holding the address of the value: the l-value
	// form.
	rvAddress
	// rvUndetermined is a struct literal that has not been materialised.
	rvUndetermined
)

// rvalue is a runtime expression result: a type plus one of the four value
// holdings.
type rvalue struct {
	kind     rvalueKind
	typ      types.Type
	constant types.Value // rvConstant
	register ir.Reg      // rvRegister / rvAddress
	members  []rvalue    // rvUndetermined, parallel to the type's members
}

func constantRValue(tv types.TypedValue) rvalue {
	return rvalue{kind: rvConstant, typ: tv.Type, constant: tv.Value}
}

func registerRValue(t types.Type, reg ir.Reg) rvalue {
	return rvalue{kind: rvRegister, typ: t, register: reg}
}

func addressRValue(t types.Type, reg ir.Reg) rvalue {
	return rvalue{kind: rvAddress, typ: t, register: reg}
}

func (v rvalue) isConstant() bool {
	return v.kind == rvConstant
}

func (v rvalue) typedConstant() types.TypedValue {
	return types.TypedValue{Type: v.typ, Value: v.constant}
}
