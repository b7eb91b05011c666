package irgen

import (
	"slate/internal/diag"
	"slate/internal/ir"
	"slate/internal/layout"
	"slate/internal/source"
	"slate/internal/types"
)

// variable is one runtime local: its name, type, and the register holding
// its address.
type variable struct {
	name      string
	typ       types.Type
	nameRange source.Span
	address   ir.Reg
}

// funcState is the per-function emission state: the instruction list being
// built, the monotonically allocated register counter, and the stack of
// variable lists (one per lexical block).
type funcState struct {
	g     *Generator
	fn    *RuntimeFunction
	scope *types.Scope

	instructions []ir.Instr
	nextRegister ir.Reg
	variables    [][]variable

	returnType            types.Type
	returnsByReference    bool
	returnAddressRegister ir.Reg
}

func (fs *funcState) reg() ir.Reg {
	r := fs.nextRegister
	fs.nextRegister++
	return r
}

// emit appends an instruction and returns its index.
func (fs *funcState) emit(instr ir.Instr) int {
	fs.instructions = append(fs.instructions, instr)
	return len(fs.instructions) - 1
}

// checkpoint/rollback bracket speculative generation (used by type_of).
type checkpoint struct {
	instructions int
	register     ir.Reg
}

func (fs *funcState) save() checkpoint {
	return checkpoint{instructions: len(fs.instructions), register: fs.nextRegister}
}

func (fs *funcState) rollback(c checkpoint) {
	fs.instructions = fs.instructions[:c.instructions]
	fs.nextRegister = c.register
}

// Block-scoped variable lists ------------------------------------------------

func (fs *funcState) pushVariables() {
	fs.variables = append(fs.variables, nil)
}

func (fs *funcState) popVariables() {
	fs.variables = fs.variables[:len(fs.variables)-1]
}

func (fs *funcState) addVariable(v variable) error {
	top := len(fs.variables) - 1
	for _, existing := range fs.variables[top] {
		if existing.name == v.name {
			return fs.g.errorf(v.nameRange, diag.StructDuplicateLocal,
				"duplicate variable name %s", v.name)
		}
	}
	fs.variables[top] = append(fs.variables[top], v)
	return nil
}

func (fs *funcState) lookupVariable(name string) (variable, bool) {
	for i := len(fs.variables) - 1; i >= 0; i-- {
		for _, v := range fs.variables[i] {
			if v.name == name {
				return v, true
			}
		}
	}
	return variable{}, false
}

// Scalar representation ------------------------------------------------------

// scalarSize maps a register-representable type to its bit width.
func (fs *funcState) scalarSize(t types.Type) ir.Size {
	switch tt := t.(type) {
	case *types.Integer:
		return ir.Size(tt.Size)
	case *types.Boolean:
		return ir.Size(fs.g.Target.DefaultIntegerSize)
	case *types.Float:
		return ir.Size(tt.Size)
	case *types.Pointer:
		return ir.Size(fs.g.Target.AddressSize)
	}
	return ir.Size(fs.g.Target.AddressSize)
}

func isFloatType(t types.Type) bool {
	_, ok := t.(*types.Float)
	return ok
}

func (fs *funcState) addressSize() ir.Size {
	return ir.Size(fs.g.Target.AddressSize)
}

// Emission helpers -----------------------------------------------------------

func (fs *funcState) emitIntegerConstant(size ir.Size, value uint64) ir.Reg {
	dst := fs.reg()
	fs.emit(ir.Instr{Kind: ir.InstrIntegerConstant, IntegerConstant: ir.IntegerConstantInstr{
		Size: size, Value: value, Destination: dst,
	}})
	return dst
}

func (fs *funcState) emitFloatConstant(size ir.Size, value float64) ir.Reg {
	dst := fs.reg()
	fs.emit(ir.Instr{Kind: ir.InstrFloatConstant, FloatConstant: ir.FloatConstantInstr{
		Size: size, Value: value, Destination: dst,
	}})
	return dst
}

func (fs *funcState) emitAllocateLocal(t types.Type) ir.Reg {
	dst := fs.reg()
	fs.emit(ir.Instr{Kind: ir.InstrAllocateLocal, AllocateLocal: ir.AllocateLocalInstr{
		Size:        layout.SizeOf(fs.g.Target, t),
		Alignment:   layout.AlignOf(fs.g.Target, t),
		Destination: dst,
	}})
	return dst
}

func (fs *funcState) emitReferenceStatic(name string) ir.Reg {
	dst := fs.reg()
	fs.emit(ir.Instr{Kind: ir.InstrReferenceStatic, ReferenceStatic: ir.ReferenceStaticInstr{
		Name: name, Destination: dst,
	}})
	return dst
}

func (fs *funcState) emitLoadScalar(t types.Type, address ir.Reg) ir.Reg {
	dst := fs.reg()
	if isFloatType(t) {
		fs.emit(ir.Instr{Kind: ir.InstrLoadFloat, LoadFloat: ir.LoadFloatInstr{
			Size: fs.scalarSize(t), Address: address, Destination: dst,
		}})
	} else {
		fs.emit(ir.Instr{Kind: ir.InstrLoadInteger, LoadInteger: ir.LoadIntegerInstr{
			Size: fs.scalarSize(t), Address: address, Destination: dst,
		}})
	}
	return dst
}

func (fs *funcState) emitStoreScalar(t types.Type, src, address ir.Reg) {
	if isFloatType(t) {
		fs.emit(ir.Instr{Kind: ir.InstrStoreFloat, StoreFloat: ir.StoreFloatInstr{
			Size: fs.scalarSize(t), Source: src, Address: address,
		}})
	} else {
		fs.emit(ir.Instr{Kind: ir.InstrStoreInteger, StoreInteger: ir.StoreIntegerInstr{
			Size: fs.scalarSize(t), Source: src, Address: address,
		}})
	}
}

// addOffset yields base+offset in a fresh register, or base itself for a
// zero offset.
func (fs *funcState) addOffset(base ir.Reg, offset uint64) ir.Reg {
	if offset == 0 {
		return base
	}
	offsetReg := fs.emitIntegerConstant(fs.addressSize(), offset)
	dst := fs.reg()
	fs.emit(ir.Instr{Kind: ir.InstrIntegerArithmetic, IntegerArithmetic: ir.IntegerArithmeticInstr{
		Op: ir.ArithAdd, Size: fs.addressSize(), SourceA: base, SourceB: offsetReg, Destination: dst,
	}})
	return dst
}

// scalarToRegister materialises a register-representable value.
func (fs *funcState) scalarToRegister(span source.Span, v rvalue) (ir.Reg, error) {
	switch v.kind {
	case rvRegister:
		return v.register, nil
	case rvAddress:
		return fs.emitLoadScalar(v.typ, v.register), nil
	case rvConstant:
		switch t := v.typ.(type) {
		case *types.Integer:
			bits := v.constant.(*types.IntegerValue).Bits
			return fs.emitIntegerConstant(ir.Size(t.Size), maskToSize(bits, t.Size)), nil
		case *types.Boolean:
			bits := uint64(0)
			if v.constant.(*types.BooleanValue).Value {
				bits = 1
			}
			return fs.emitIntegerConstant(ir.Size(fs.g.Target.DefaultIntegerSize), bits), nil
		case *types.Float:
			value := v.constant.(*types.FloatValue).Value
			if t.Size == types.Size32 {
				value = float64(float32(value))
			}
			return fs.emitFloatConstant(ir.Size(t.Size), value), nil
		case *types.Pointer:
			return fs.emitIntegerConstant(fs.addressSize(), v.constant.(*types.PointerValue).Address), nil
		}
	}
	return 0, fs.g.errorf(span, diag.TypeNotRuntime,
		"%s has no register representation", types.Describe(v.typ))
}

// valueAddress materialises the address of an aggregate value, writing
// constant aggregates into the static-data list.
func (fs *funcState) valueAddress(span source.Span, v rvalue) (ir.Reg, error) {
	switch v.kind {
	case rvAddress, rvRegister:
		return v.register, nil
	case rvConstant:
		name, err := fs.g.addConstantStatic(span, v.typ, v.constant)
		if err != nil {
			return 0, err
		}
		return fs.emitReferenceStatic(name), nil
	}
	return 0, fs.g.errorf(span, diag.TypeUndeterminedStruct,
		"a struct literal cannot exist at runtime without a target type")
}

// storeAt writes an already-coerced value of type t at base+offset.
func (fs *funcState) storeAt(span source.Span, v rvalue, t types.Type, base ir.Reg, offset uint64) error {
	address := fs.addOffset(base, offset)
	if types.FitsInRegister(t) {
		src, err := fs.scalarToRegister(span, v)
		if err != nil {
			return err
		}
		fs.emitStoreScalar(t, src, address)
		return nil
	}
	srcAddress, err := fs.valueAddress(span, v)
	if err != nil {
		return err
	}
	fs.emit(ir.Instr{Kind: ir.InstrCopyMemory, CopyMemory: ir.CopyMemoryInstr{
		Length: layout.SizeOf(fs.g.Target, t), Source: srcAddress, Destination: address,
	}})
	return nil
}
