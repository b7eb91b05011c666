package irgen

import (
	"slate/internal/ast"
	"slate/internal/diag"
	"slate/internal/ir"
	"slate/internal/source"
	"slate/internal/types"
)

// generateBinary lowers a binary operation, constant-folding when both
// operands are constant.
func (fs *funcState) generateBinary(scope *types.Scope, e *ast.BinaryOperation) (rvalue, error) {
	g := fs.g
	left, err := fs.generateExpression(scope, e.Left)
	if err != nil {
		return rvalue{}, err
	}
	right, err := fs.generateExpression(scope, e.Right)
	if err != nil {
		return rvalue{}, err
	}

	if left.isConstant() && right.isConstant() {
		tv, err := g.foldBinary(e.Op, left.typedConstant(), right.typedConstant(), e.Range)
		if err != nil {
			return rvalue{}, err
		}
		return constantRValue(tv), nil
	}

	operationType, ok := determineOperationType(left.typ, right.typ)
	if !ok {
		return rvalue{}, g.errorf(e.Range, diag.TypeBadOperation,
			"cannot perform that operation on %s and %s",
			types.Describe(left.typ), types.Describe(right.typ))
	}

	leftCoerced, err := fs.coerceRuntime(e.Left.Span(), left, operationType, false)
	if err != nil {
		return rvalue{}, err
	}
	rightCoerced, err := fs.coerceRuntime(e.Right.Span(), right, operationType, false)
	if err != nil {
		return rvalue{}, err
	}

	a, err := fs.scalarToRegister(e.Left.Span(), leftCoerced)
	if err != nil {
		return rvalue{}, err
	}
	b, err := fs.scalarToRegister(e.Right.Span(), rightCoerced)
	if err != nil {
		return rvalue{}, err
	}

	switch t := operationType.(type) {
	case *types.Boolean:
		return fs.emitBooleanBinary(e.Op, a, b, e.Range)
	case *types.Pointer:
		return fs.emitPointerBinary(e.Op, a, b, e.Range, t)
	case *types.Integer:
		return fs.emitIntegerBinary(e.Op, a, b, e.Range, t)
	case *types.Float:
		return fs.emitFloatBinary(e.Op, a, b, e.Range, t)
	}
	return rvalue{}, g.errorf(e.Range, diag.TypeBadOperation,
		"cannot perform that operation on %s", types.Describe(operationType))
}

func (fs *funcState) emitBooleanBinary(op ast.BinaryOp, a, b ir.Reg, span source.Span) (rvalue, error) {
	size := ir.Size(fs.g.Target.DefaultIntegerSize)
	switch op {
	case ast.BinBoolAnd, ast.BinBoolOr:
		arith := ir.ArithBitAnd
		if op == ast.BinBoolOr {
			arith = ir.ArithBitOr
		}
		dst := fs.reg()
		fs.emit(ir.Instr{Kind: ir.InstrIntegerArithmetic, IntegerArithmetic: ir.IntegerArithmeticInstr{
			Op: arith, Size: size, SourceA: a, SourceB: b, Destination: dst,
		}})
		return registerRValue(&types.Boolean{}, dst), nil
	case ast.BinEqual, ast.BinNotEqual:
		dst := fs.reg()
		fs.emit(ir.Instr{Kind: ir.InstrIntegerComparison, IntegerComparison: ir.IntegerComparisonInstr{
			Op: ir.CmpEqual, Size: size, SourceA: a, SourceB: b, Destination: dst,
		}})
		if op == ast.BinNotEqual {
			return registerRValue(&types.Boolean{}, fs.emitInvert(dst)), nil
		}
		return registerRValue(&types.Boolean{}, dst), nil
	}
	return rvalue{}, fs.g.errorf(span, diag.TypeBadOperation, "cannot perform that operation on bool")
}

func (fs *funcState) emitPointerBinary(op ast.BinaryOp, a, b ir.Reg, span source.Span, t *types.Pointer) (rvalue, error) {
	switch op {
	case ast.BinEqual, ast.BinNotEqual:
		dst := fs.reg()
		fs.emit(ir.Instr{Kind: ir.InstrIntegerComparison, IntegerComparison: ir.IntegerComparisonInstr{
			Op: ir.CmpEqual, Size: fs.addressSize(), SourceA: a, SourceB: b, Destination: dst,
		}})
		if op == ast.BinNotEqual {
			return registerRValue(&types.Boolean{}, fs.emitInvert(dst)), nil
		}
		return registerRValue(&types.Boolean{}, dst), nil
	}
	return rvalue{}, fs.g.errorf(span, diag.TypeBadOperation,
		"cannot perform that operation on %s", types.Describe(t))
}

func (fs *funcState) emitIntegerBinary(op ast.BinaryOp, a, b ir.Reg, span source.Span, t *types.Integer) (rvalue, error) {
	size := ir.Size(t.Size)

	arith := func(arithOp ir.ArithmeticOp) (rvalue, error) {
		dst := fs.reg()
		fs.emit(ir.Instr{Kind: ir.InstrIntegerArithmetic, IntegerArithmetic: ir.IntegerArithmeticInstr{
			Op: arithOp, Size: size, SourceA: a, SourceB: b, Destination: dst,
		}})
		return registerRValue(t, dst), nil
	}
	compare := func(cmpOp ir.ComparisonOp, invert bool) (rvalue, error) {
		dst := fs.reg()
		fs.emit(ir.Instr{Kind: ir.InstrIntegerComparison, IntegerComparison: ir.IntegerComparisonInstr{
			Op: cmpOp, Size: size, SourceA: a, SourceB: b, Destination: dst,
		}})
		if invert {
			dst = fs.emitInvert(dst)
		}
		return registerRValue(&types.Boolean{}, dst), nil
	}

	switch op {
	case ast.BinAdd:
		return arith(ir.ArithAdd)
	case ast.BinSubtract:
		return arith(ir.ArithSubtract)
	case ast.BinMultiply:
		return arith(ir.ArithMultiply)
	case ast.BinDivide:
		if t.Signed {
			return arith(ir.ArithSignedDivide)
		}
		return arith(ir.ArithUnsignedDivide)
	case ast.BinModulo:
		if t.Signed {
			return arith(ir.ArithSignedModulus)
		}
		return arith(ir.ArithUnsignedModulus)
	case ast.BinBitAnd:
		return arith(ir.ArithBitAnd)
	case ast.BinBitOr:
		return arith(ir.ArithBitOr)
	case ast.BinEqual:
		return compare(ir.CmpEqual, false)
	case ast.BinNotEqual:
		return compare(ir.CmpEqual, true)
	case ast.BinLess:
		if t.Signed {
			return compare(ir.CmpSignedLess, false)
		}
		return compare(ir.CmpUnsignedLess, false)
	case ast.BinGreater:
		if t.Signed {
			return compare(ir.CmpSignedGreater, false)
		}
		return compare(ir.CmpUnsignedGreater, false)
	}
	return rvalue{}, fs.g.errorf(span, diag.TypeBadOperation,
		"cannot perform that operation on %s", types.Describe(t))
}

func (fs *funcState) emitFloatBinary(op ast.BinaryOp, a, b ir.Reg, span source.Span, t *types.Float) (rvalue, error) {
	size := ir.Size(t.Size)

	arith := func(arithOp ir.FloatArithmeticOp) (rvalue, error) {
		dst := fs.reg()
		fs.emit(ir.Instr{Kind: ir.InstrFloatArithmetic, FloatArithmetic: ir.FloatArithmeticInstr{
			Op: arithOp, Size: size, SourceA: a, SourceB: b, Destination: dst,
		}})
		return registerRValue(t, dst), nil
	}
	compare := func(cmpOp ir.FloatComparisonOp, invert bool) (rvalue, error) {
		dst := fs.reg()
		fs.emit(ir.Instr{Kind: ir.InstrFloatComparison, FloatComparison: ir.FloatComparisonInstr{
			Op: cmpOp, Size: size, SourceA: a, SourceB: b, Destination: dst,
		}})
		if invert {
			dst = fs.emitInvert(dst)
		}
		return registerRValue(&types.Boolean{}, dst), nil
	}

	switch op {
	case ast.BinAdd:
		return arith(ir.FloatAdd)
	case ast.BinSubtract:
		return arith(ir.FloatSubtract)
	case ast.BinMultiply:
		return arith(ir.FloatMultiply)
	case ast.BinDivide:
		return arith(ir.FloatDivide)
	case ast.BinEqual:
		return compare(ir.FloatCmpEqual, false)
	case ast.BinNotEqual:
		return compare(ir.FloatCmpEqual, true)
	case ast.BinLess:
		return compare(ir.FloatCmpLess, false)
	case ast.BinGreater:
		return compare(ir.FloatCmpGreater, false)
	}
	return rvalue{}, fs.g.errorf(span, diag.TypeBadOperation,
		"cannot perform that operation on %s", types.Describe(t))
}

func (fs *funcState) emitInvert(src ir.Reg) ir.Reg {
	dst := fs.reg()
	fs.emit(ir.Instr{Kind: ir.InstrBooleanInvert, BooleanInvert: ir.BooleanInvertInstr{
		Source: src, Destination: dst,
	}})
	return dst
}
