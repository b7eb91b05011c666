package types

import (
	"fmt"
	"strings"
)

// Describe renders a type the way diagnostics spell it.
func Describe(t Type) string {
	switch tt := t.(type) {
	case *FunctionType:
		params := make([]string, len(tt.Parameters))
		for i, p := range tt.Parameters {
			params[i] = Describe(p)
		}
		out := "(" + strings.Join(params, ", ") + ")"
		if _, ok := tt.ReturnType.(*Void); !ok {
			out += " -> " + Describe(tt.ReturnType)
		}
		return out
	case *PolymorphicFunction:
		return "{polymorphic function}"
	case *BuiltinFunction:
		return "{builtin}"
	case *Integer:
		if tt.Signed {
			return fmt.Sprintf("i%d", tt.Size)
		}
		return fmt.Sprintf("u%d", tt.Size)
	case *UndeterminedInteger:
		return "{integer}"
	case *Boolean:
		return "bool"
	case *Float:
		return fmt.Sprintf("f%d", tt.Size)
	case *UndeterminedFloat:
		return "{float}"
	case *TypeOfType:
		return "type"
	case *Void:
		return "void"
	case *Pointer:
		return "*" + Describe(tt.Pointee)
	case *ArraySlice:
		return "[]" + Describe(tt.Element)
	case *StaticArray:
		return fmt.Sprintf("[%d]%s", tt.Length, Describe(tt.Element))
	case *Struct:
		return tt.Definition.Name
	case *PolymorphicStruct:
		return tt.Definition.Name
	case *UndeterminedStruct:
		members := make([]string, len(tt.Members))
		for i, m := range tt.Members {
			members[i] = m.Name + ": " + Describe(m.Type)
		}
		return "{ " + strings.Join(members, ", ") + " }"
	case *FileModule:
		return "{module}"
	}
	return "{unknown}"
}
