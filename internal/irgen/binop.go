package irgen

import (
	"slate/internal/ast"
	"slate/internal/diag"
	"slate/internal/source"
	"slate/internal/types"
)

// determineOperationType picks the type both operands are coerced to before
// a binary operator applies. The ladder: bool wins, then pointers, then the
// larger concrete integer (signedness ORed), then the larger concrete float,
// then the one concrete float, then undetermined float when either side is
// one, then the one concrete integer, and finally undetermined integer when
// both sides are.
func determineOperationType(a, b types.Type) (types.Type, bool) {
	if isBool(a) || isBool(b) {
		return &types.Boolean{}, true
	}
	if p, ok := a.(*types.Pointer); ok {
		return p, true
	}
	if p, ok := b.(*types.Pointer); ok {
		return p, true
	}

	aInt, aIsInt := a.(*types.Integer)
	bInt, bIsInt := b.(*types.Integer)
	aFloat, aIsFloat := a.(*types.Float)
	bFloat, bIsFloat := b.(*types.Float)
	_, aIsUndetInt := a.(*types.UndeterminedInteger)
	_, bIsUndetInt := b.(*types.UndeterminedInteger)
	_, aIsUndetFloat := a.(*types.UndeterminedFloat)
	_, bIsUndetFloat := b.(*types.UndeterminedFloat)

	switch {
	case aIsInt && bIsInt:
		size := aInt.Size
		if bInt.Size > size {
			size = bInt.Size
		}
		return &types.Integer{Size: size, Signed: aInt.Signed || bInt.Signed}, true
	case aIsFloat && bIsFloat:
		size := aFloat.Size
		if bFloat.Size > size {
			size = bFloat.Size
		}
		return &types.Float{Size: size}, true
	case aIsFloat:
		return aFloat, true
	case bIsFloat:
		return bFloat, true
	case aIsUndetFloat || bIsUndetFloat:
		return &types.UndeterminedFloat{}, true
	case aIsInt:
		return aInt, true
	case bIsInt:
		return bInt, true
	case aIsUndetInt && bIsUndetInt:
		return &types.UndeterminedInteger{}, true
	}
	return nil, false
}

func isBool(t types.Type) bool {
	_, ok := t.(*types.Boolean)
	return ok
}

// maskToSize truncates a bit pattern to the given register width.
func maskToSize(bits uint64, size types.RegisterSize) uint64 {
	if size >= types.Size64 {
		return bits
	}
	return bits & ((uint64(1) << uint(size)) - 1)
}

// signExtend widens the low `size` bits of a pattern to a signed 64-bit
// value.
func signExtend(bits uint64, size types.RegisterSize) int64 {
	shift := 64 - uint(size)
	return int64(bits<<shift) >> shift
}

// foldBinary applies a binary operator to two constant operands.
func (g *Generator) foldBinary(op ast.BinaryOp, left, right types.TypedValue, span source.Span) (types.TypedValue, error) {
	operationType, ok := determineOperationType(left.Type, right.Type)
	if !ok {
		return types.TypedValue{}, g.errorf(span, diag.TypeBadOperation,
			"cannot perform that operation on %s and %s",
			types.Describe(left.Type), types.Describe(right.Type))
	}

	leftValue, err := g.coerceConstant(left, operationType, span, false)
	if err != nil {
		return types.TypedValue{}, err
	}
	rightValue, err := g.coerceConstant(right, operationType, span, false)
	if err != nil {
		return types.TypedValue{}, err
	}

	switch t := operationType.(type) {
	case *types.Boolean:
		return g.foldBooleanBinary(op, leftValue, rightValue, span)
	case *types.Pointer:
		return g.foldPointerBinary(op, leftValue, rightValue, span, t)
	case *types.Integer:
		return g.foldIntegerBinary(op, leftValue, rightValue, span, t.Size, t.Signed, t)
	case *types.UndeterminedInteger:
		return g.foldIntegerBinary(op, leftValue, rightValue, span, types.Size64, true, t)
	case *types.Float:
		return g.foldFloatBinary(op, leftValue, rightValue, span, t)
	case *types.UndeterminedFloat:
		return g.foldFloatBinary(op, leftValue, rightValue, span, t)
	}
	return types.TypedValue{}, g.errorf(span, diag.TypeBadOperation,
		"cannot perform that operation on %s", types.Describe(operationType))
}

func (g *Generator) foldBooleanBinary(op ast.BinaryOp, left, right types.Value, span source.Span) (types.TypedValue, error) {
	a := left.(*types.BooleanValue).Value
	b := right.(*types.BooleanValue).Value
	var result bool
	switch op {
	case ast.BinBoolAnd:
		result = a && b
	case ast.BinBoolOr:
		result = a || b
	case ast.BinEqual:
		result = a == b
	case ast.BinNotEqual:
		result = a != b
	default:
		return types.TypedValue{}, g.errorf(span, diag.TypeBadOperation,
			"cannot perform that operation on bool")
	}
	return types.TypedValue{Type: &types.Boolean{}, Value: &types.BooleanValue{Value: result}}, nil
}

func (g *Generator) foldPointerBinary(op ast.BinaryOp, left, right types.Value, span source.Span, t *types.Pointer) (types.TypedValue, error) {
	a := left.(*types.PointerValue).Address
	b := right.(*types.PointerValue).Address
	switch op {
	case ast.BinEqual:
		return types.TypedValue{Type: &types.Boolean{}, Value: &types.BooleanValue{Value: a == b}}, nil
	case ast.BinNotEqual:
		return types.TypedValue{Type: &types.Boolean{}, Value: &types.BooleanValue{Value: a != b}}, nil
	}
	return types.TypedValue{}, g.errorf(span, diag.TypeBadOperation,
		"cannot perform that operation on %s", types.Describe(t))
}

func (g *Generator) foldIntegerBinary(op ast.BinaryOp, left, right types.Value, span source.Span, size types.RegisterSize, signed bool, resultType types.Type) (types.TypedValue, error) {
	a := left.(*types.IntegerValue).Bits
	b := right.(*types.IntegerValue).Bits

	integer := func(bits uint64) (types.TypedValue, error) {
		return types.TypedValue{Type: resultType, Value: &types.IntegerValue{Bits: maskToSize(bits, size)}}, nil
	}
	boolean := func(v bool) (types.TypedValue, error) {
		return types.TypedValue{Type: &types.Boolean{}, Value: &types.BooleanValue{Value: v}}, nil
	}

	switch op {
	case ast.BinAdd:
		return integer(a + b)
	case ast.BinSubtract:
		return integer(a - b)
	case ast.BinMultiply:
		return integer(a * b)
	case ast.BinDivide:
		if b == 0 {
			return types.TypedValue{}, g.errorf(span, diag.TypeBadOperation, "division by zero")
		}
		if signed {
			return integer(uint64(signExtend(a, size) / signExtend(b, size)))
		}
		return integer(a / b)
	case ast.BinModulo:
		if b == 0 {
			return types.TypedValue{}, g.errorf(span, diag.TypeBadOperation, "division by zero")
		}
		if signed {
			return integer(uint64(signExtend(a, size) % signExtend(b, size)))
		}
		return integer(a % b)
	case ast.BinBitAnd:
		return integer(a & b)
	case ast.BinBitOr:
		return integer(a | b)
	case ast.BinEqual:
		return boolean(maskToSize(a, size) == maskToSize(b, size))
	case ast.BinNotEqual:
		return boolean(maskToSize(a, size) != maskToSize(b, size))
	case ast.BinLess:
		if signed {
			return boolean(signExtend(a, size) < signExtend(b, size))
		}
		return boolean(maskToSize(a, size) < maskToSize(b, size))
	case ast.BinGreater:
		if signed {
			return boolean(signExtend(a, size) > signExtend(b, size))
		}
		return boolean(maskToSize(a, size) > maskToSize(b, size))
	}
	return types.TypedValue{}, g.errorf(span, diag.TypeBadOperation,
		"cannot perform that operation on %s", types.Describe(resultType))
}

func (g *Generator) foldFloatBinary(op ast.BinaryOp, left, right types.Value, span source.Span, resultType types.Type) (types.TypedValue, error) {
	a := left.(*types.FloatValue).Value
	b := right.(*types.FloatValue).Value

	float := func(v float64) (types.TypedValue, error) {
		if ft, ok := resultType.(*types.Float); ok && ft.Size == types.Size32 {
			v = float64(float32(v))
		}
		return types.TypedValue{Type: resultType, Value: &types.FloatValue{Value: v}}, nil
	}
	boolean := func(v bool) (types.TypedValue, error) {
		return types.TypedValue{Type: &types.Boolean{}, Value: &types.BooleanValue{Value: v}}, nil
	}

	switch op {
	case ast.BinAdd:
		return float(a + b)
	case ast.BinSubtract:
		return float(a - b)
	case ast.BinMultiply:
		return float(a * b)
	case ast.BinDivide:
		return float(a / b)
	case ast.BinEqual:
		return boolean(a == b)
	case ast.BinNotEqual:
		return boolean(a != b)
	case ast.BinLess:
		return boolean(a < b)
	case ast.BinGreater:
		return boolean(a > b)
	}
	return types.TypedValue{}, g.errorf(span, diag.TypeBadOperation,
		"cannot perform that operation on %s", types.Describe(resultType))
}
