package ir

import (
	"fmt"
	"strings"
)

// Print renders statics as a stable human-readable dump for the ir command
// and for golden tests.
func Print(statics []Static) string {
	var sb strings.Builder
	for _, static := range statics {
		switch s := static.(type) {
		case *Function:
			printFunction(&sb, s)
		case *StaticConstant:
			fmt.Fprintf(&sb, "constant %s align %d, %d bytes\n", s.Name, s.Alignment, len(s.Data))
		}
	}
	return sb.String()
}

func printFunction(sb *strings.Builder, f *Function) {
	params := make([]string, len(f.Parameters))
	for i, p := range f.Parameters {
		params[i] = paramString(p)
	}
	fmt.Fprintf(sb, "function %s(%s)", f.Name, strings.Join(params, ", "))
	if f.HasReturn {
		fmt.Fprintf(sb, " -> %s", paramString(f.Return))
	} else if f.ReturnsByReference {
		sb.WriteString(" -> by-ref")
	}
	if f.IsExternal {
		sb.WriteString(" extern\n")
		return
	}
	sb.WriteString("\n")
	for i, instr := range f.Instructions {
		fmt.Fprintf(sb, "  %3d: %s\n", i, InstrString(instr))
	}
}

func paramString(p Param) string {
	if p.IsFloat {
		return fmt.Sprintf("f%d", p.Size)
	}
	return fmt.Sprintf("i%d", p.Size)
}

// InstrString renders one instruction.
func InstrString(instr Instr) string {
	switch instr.Kind {
	case InstrIntegerArithmetic:
		p := instr.IntegerArithmetic
		return fmt.Sprintf("%s.%d r%d, r%d -> r%d", p.Op, p.Size, p.SourceA, p.SourceB, p.Destination)
	case InstrIntegerComparison:
		p := instr.IntegerComparison
		return fmt.Sprintf("%s.%d r%d, r%d -> r%d", p.Op, p.Size, p.SourceA, p.SourceB, p.Destination)
	case InstrIntegerUpcast:
		p := instr.IntegerUpcast
		kind := "zext"
		if p.Signed {
			kind = "sext"
		}
		return fmt.Sprintf("%s.%d->%d r%d -> r%d", kind, p.SourceSize, p.DestinationSize, p.Source, p.Destination)
	case InstrIntegerConstant:
		p := instr.IntegerConstant
		return fmt.Sprintf("const.%d %d -> r%d", p.Size, p.Value, p.Destination)
	case InstrFloatArithmetic:
		p := instr.FloatArithmetic
		return fmt.Sprintf("%s.%d r%d, r%d -> r%d", p.Op, p.Size, p.SourceA, p.SourceB, p.Destination)
	case InstrFloatComparison:
		p := instr.FloatComparison
		return fmt.Sprintf("%s.%d r%d, r%d -> r%d", p.Op, p.Size, p.SourceA, p.SourceB, p.Destination)
	case InstrFloatConversion:
		p := instr.FloatConversion
		return fmt.Sprintf("fconv.%d->%d r%d -> r%d", p.SourceSize, p.DestinationSize, p.Source, p.Destination)
	case InstrIntegerFromFloat:
		p := instr.IntegerFromFloat
		return fmt.Sprintf("ftoi.%d->%d r%d -> r%d", p.FloatSize, p.DestinationSize, p.Source, p.Destination)
	case InstrFloatFromInteger:
		p := instr.FloatFromInteger
		return fmt.Sprintf("itof.%d->%d r%d -> r%d", p.IntegerSize, p.DestinationSize, p.Source, p.Destination)
	case InstrFloatConstant:
		p := instr.FloatConstant
		return fmt.Sprintf("fconst.%d %g -> r%d", p.Size, p.Value, p.Destination)
	case InstrBooleanInvert:
		p := instr.BooleanInvert
		return fmt.Sprintf("not r%d -> r%d", p.Source, p.Destination)
	case InstrLoadInteger:
		p := instr.LoadInteger
		return fmt.Sprintf("load.%d [r%d] -> r%d", p.Size, p.Address, p.Destination)
	case InstrStoreInteger:
		p := instr.StoreInteger
		return fmt.Sprintf("store.%d r%d -> [r%d]", p.Size, p.Source, p.Address)
	case InstrLoadFloat:
		p := instr.LoadFloat
		return fmt.Sprintf("fload.%d [r%d] -> r%d", p.Size, p.Address, p.Destination)
	case InstrStoreFloat:
		p := instr.StoreFloat
		return fmt.Sprintf("fstore.%d r%d -> [r%d]", p.Size, p.Source, p.Address)
	case InstrAllocateLocal:
		p := instr.AllocateLocal
		return fmt.Sprintf("local size %d align %d -> r%d", p.Size, p.Alignment, p.Destination)
	case InstrCopyMemory:
		p := instr.CopyMemory
		return fmt.Sprintf("copy %d bytes [r%d] -> [r%d]", p.Length, p.Source, p.Destination)
	case InstrBranch:
		p := instr.Branch
		return fmt.Sprintf("branch r%d -> %d", p.Condition, p.Destination)
	case InstrJump:
		p := instr.Jump
		return fmt.Sprintf("jump -> %d", p.Destination)
	case InstrCall:
		p := instr.Call
		args := make([]string, len(p.Arguments))
		for i, a := range p.Arguments {
			args[i] = fmt.Sprintf("r%d", a)
		}
		out := fmt.Sprintf("call %s(%s)", p.FunctionName, strings.Join(args, ", "))
		if p.HasReturn {
			out += fmt.Sprintf(" -> r%d", p.Return)
		}
		return out
	case InstrReturn:
		p := instr.Return
		if p.HasValue {
			return fmt.Sprintf("return r%d", p.Value)
		}
		return "return"
	case InstrReferenceStatic:
		p := instr.ReferenceStatic
		return fmt.Sprintf("static %s -> r%d", p.Name, p.Destination)
	}
	return "?"
}
