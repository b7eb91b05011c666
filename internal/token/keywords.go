package token

// keywords maps reserved words to their kinds. Capitalized variants are
// plain identifiers. Note that true/false and the primitive type names are
// not keywords; they resolve through the global constant table.
var keywords = map[string]Kind{
	"struct": KwStruct,
	"union":  KwUnion,
	"extern": KwExtern,
	"import": KwImport,
	"using":  KwUsing,
	"if":     KwIf,
	"else":   KwElse,
	"while":  KwWhile,
	"return": KwReturn,
	"as":     KwAs,
}

// LookupKeyword returns the keyword kind for an identifier, or Ident.
func LookupKeyword(text string) Kind {
	if k, ok := keywords[text]; ok {
		return k
	}
	return Ident
}
