package ast

import (
	"fmt"
	"strings"
)

// Dump renders statements as an indented tree for the parse command and
// parser tests.
func Dump(stmts []Stmt) string {
	var sb strings.Builder
	for _, stmt := range stmts {
		dumpStmt(&sb, stmt, 0)
	}
	return sb.String()
}

func indent(sb *strings.Builder, depth int) {
	sb.WriteString(strings.Repeat("  ", depth))
}

func dumpStmt(sb *strings.Builder, stmt Stmt, depth int) {
	indent(sb, depth)
	switch s := stmt.(type) {
	case *FunctionDeclaration:
		fmt.Fprintf(sb, "func %s (%d params", s.Name, len(s.Parameters))
		if s.IsExternal {
			sb.WriteString(", extern")
		}
		sb.WriteString(")\n")
		for _, body := range s.Body {
			dumpStmt(sb, body, depth+1)
		}
	case *ConstantDefinition:
		fmt.Fprintf(sb, "const %s = %s\n", s.Name, ExprString(s.Value))
	case *StructDefinition:
		kind := "struct"
		if s.IsUnion {
			kind = "union"
		}
		fmt.Fprintf(sb, "%s %s (%d params, %d members)\n", kind, s.Name, len(s.Parameters), len(s.Members))
	case *Import:
		fmt.Fprintf(sb, "import %q as %s\n", s.Path, s.Name)
	case *Using:
		fmt.Fprintf(sb, "using %s\n", ExprString(s.Module))
	case *VariableDeclaration:
		fmt.Fprintf(sb, "var %s", s.Name)
		if s.Type != nil {
			fmt.Fprintf(sb, ": %s", ExprString(s.Type))
		}
		if s.Initializer != nil {
			fmt.Fprintf(sb, " = %s", ExprString(s.Initializer))
		}
		sb.WriteString("\n")
	case *Assignment:
		fmt.Fprintf(sb, "assign %s = %s\n", ExprString(s.Target), ExprString(s.Value))
	case *If:
		fmt.Fprintf(sb, "if %s\n", ExprString(s.Condition))
		for _, body := range s.Body {
			dumpStmt(sb, body, depth+1)
		}
		for _, elseIf := range s.ElseIfs {
			indent(sb, depth)
			fmt.Fprintf(sb, "else if %s\n", ExprString(elseIf.Condition))
			for _, body := range elseIf.Body {
				dumpStmt(sb, body, depth+1)
			}
		}
		if s.Else != nil {
			indent(sb, depth)
			sb.WriteString("else\n")
			for _, body := range s.Else {
				dumpStmt(sb, body, depth+1)
			}
		}
	case *While:
		fmt.Fprintf(sb, "while %s\n", ExprString(s.Condition))
		for _, body := range s.Body {
			dumpStmt(sb, body, depth+1)
		}
	case *Return:
		if s.Value != nil {
			fmt.Fprintf(sb, "return %s\n", ExprString(s.Value))
		} else {
			sb.WriteString("return\n")
		}
	case *ExpressionStatement:
		fmt.Fprintf(sb, "expr %s\n", ExprString(s.Expression))
	default:
		fmt.Fprintf(sb, "?stmt %T\n", stmt)
	}
}

// ExprString renders an expression in source-ish form for dumps and error
// messages about expressions.
func ExprString(expr Expr) string {
	switch e := expr.(type) {
	case *IntegerLiteral:
		return fmt.Sprintf("%d", e.Value)
	case *FloatLiteral:
		return fmt.Sprintf("%g", e.Value)
	case *StringLiteral:
		return fmt.Sprintf("%q", e.Value)
	case *NamedReference:
		return e.Name
	case *MemberReference:
		return ExprString(e.Object) + "." + e.Name
	case *IndexReference:
		return ExprString(e.Object) + "[" + ExprString(e.Index) + "]"
	case *FunctionCall:
		args := make([]string, len(e.Arguments))
		for i, a := range e.Arguments {
			args[i] = ExprString(a)
		}
		return ExprString(e.Callee) + "(" + strings.Join(args, ", ") + ")"
	case *BinaryOperation:
		return "(" + ExprString(e.Left) + " " + e.Op.String() + " " + ExprString(e.Right) + ")"
	case *UnaryOperation:
		return e.Op.String() + ExprString(e.Operand)
	case *Cast:
		return "(" + ExprString(e.Value) + " as " + ExprString(e.Target) + ")"
	case *ArrayType:
		if e.Length != nil {
			return "[" + ExprString(e.Length) + "]" + ExprString(e.Element)
		}
		return "[]" + ExprString(e.Element)
	case *FunctionType:
		params := make([]string, len(e.Parameters))
		for i, p := range e.Parameters {
			params[i] = ExprString(p)
		}
		out := "(" + strings.Join(params, ", ") + ")"
		if e.ReturnType != nil {
			out += " -> " + ExprString(e.ReturnType)
		}
		return out
	case *ArrayLiteral:
		elems := make([]string, len(e.Elements))
		for i, el := range e.Elements {
			elems[i] = ExprString(el)
		}
		return ".[" + strings.Join(elems, ", ") + "]"
	case *StructLiteral:
		members := make([]string, len(e.Members))
		for i, m := range e.Members {
			members[i] = m.Name + " = " + ExprString(m.Value)
		}
		return ".{ " + strings.Join(members, ", ") + " }"
	case *PolymorphicDeterminer:
		return "$" + e.Name
	}
	return fmt.Sprintf("?expr %T", expr)
}
