package diag

import "fmt"

// Code is a stable identifier for a diagnostic kind. Ranges are grouped by
// the phase that produces them so golden files survive renumbering within
// a phase.
type Code uint16

const (
	UnknownCode Code = 0

	// Лексические
	LexUnknownChar        Code = 1001
	LexUnterminatedString Code = 1002
	LexBadNumber          Code = 1003
	LexBadEscape          Code = 1004

	// Парсерные
	SynUnexpectedToken   Code = 2001
	SynExpectSemicolon   Code = 2002
	SynExpectIdentifier  Code = 2003
	SynUnclosedDelimiter Code = 2004
	SynBadDeclaration    Code = 2005

	// Resolution
	ResUnknownName   Code = 3001
	ResUnknownMember Code = 3002
	ResExpectModule  Code = 3003
	ResModuleIO      Code = 3004

	// Types
	TypeCannotConvert      Code = 4001
	TypeBadOperation       Code = 4002
	TypeNotRuntime         Code = 4003
	TypeExpectType         Code = 4004
	TypeExpectBool         Code = 4005
	TypeCannotIndex        Code = 4006
	TypeCannotCall         Code = 4007
	TypeUndeterminedStruct Code = 4008

	// Polymorphism
	PolyWrongArgumentCount Code = 5001
	PolyConstantRequired   Code = 5002
	PolyFunctionType       Code = 5003
	PolyDeterminerContext  Code = 5004

	// Evaluation
	EvalIndexOutOfRange Code = 6001
	EvalBadCast         Code = 6002
	EvalDuplicateName   Code = 6003
	EvalNotConstant       Code = 6004
	EvalBadAddressOf      Code = 6005
	EvalEmptyArrayLiteral Code = 6006

	// Structural
	StructMissingReturn  Code = 7001
	StructBadMain        Code = 7002
	StructMissingMain    Code = 7003
	StructDuplicateName  Code = 7004
	StructDuplicateLocal Code = 7005
)

func (c Code) String() string {
	return fmt.Sprintf("SL%04d", uint16(c))
}
