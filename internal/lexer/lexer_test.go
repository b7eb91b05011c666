package lexer

import (
	"testing"

	"slate/internal/diag"
	"slate/internal/source"
	"slate/internal/token"
)

func lex(t *testing.T, src string) []token.Token {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("/test.sl", []byte(src))
	bag := diag.NewBag()
	tokens, ok := Tokenize(id, []byte(src), diag.BagReporter{Bag: bag})
	if !ok {
		t.Fatalf("lex error: %+v", bag.Items())
	}
	return tokens
}

func kinds(tokens []token.Token) []token.Kind {
	out := make([]token.Kind, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Kind
	}
	return out
}

func TestDeclarationTokens(t *testing.T) {
	tokens := lex(t, "x :: 2 + 3 * 4;")
	want := []token.Kind{
		token.Ident, token.ColonColon, token.Int, token.Plus,
		token.Int, token.Star, token.Int, token.Semicolon, token.EOF,
	}
	got := kinds(tokens)
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d: got %v want %v", i, got[i], want[i])
		}
	}
}

func TestCompoundPunctuation(t *testing.T) {
	tokens := lex(t, ":: := -> == != && || < >")
	want := []token.Kind{
		token.ColonColon, token.ColonEq, token.Arrow, token.Eq, token.NotEq,
		token.AmpAmp, token.PipePipe, token.Lt, token.Gt, token.EOF,
	}
	for i, k := range want {
		if tokens[i].Kind != k {
			t.Fatalf("token %d: got %v want %v", i, tokens[i].Kind, k)
		}
	}
}

func TestNumberLiterals(t *testing.T) {
	tokens := lex(t, "42 3.14 0xff")
	if tokens[0].Kind != token.Int || tokens[0].Text != "42" {
		t.Fatalf("int: %v", tokens[0])
	}
	if tokens[1].Kind != token.Float || tokens[1].Text != "3.14" {
		t.Fatalf("float: %v", tokens[1])
	}
	if tokens[2].Kind != token.Int || tokens[2].Text != "0xff" {
		t.Fatalf("hex: %v", tokens[2])
	}
}

func TestMemberOnIntegerIsNotFloat(t *testing.T) {
	tokens := lex(t, "3.length")
	want := []token.Kind{token.Int, token.Dot, token.Ident, token.EOF}
	for i, k := range want {
		if tokens[i].Kind != k {
			t.Fatalf("token %d: got %v want %v", i, tokens[i].Kind, k)
		}
	}
}

func TestStringEscapes(t *testing.T) {
	tokens := lex(t, `"a\n\t\"b"`)
	if tokens[0].Kind != token.String || tokens[0].Text != "a\n\t\"b" {
		t.Fatalf("string: %q", tokens[0].Text)
	}
}

func TestComments(t *testing.T) {
	tokens := lex(t, "a // line\n/* block /* nested */ */ b")
	want := []token.Kind{token.Ident, token.Ident, token.EOF}
	got := kinds(tokens)
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
}

func TestKeywordsVsGlobalNames(t *testing.T) {
	tokens := lex(t, "struct true u32 using")
	want := []token.Kind{token.KwStruct, token.Ident, token.Ident, token.KwUsing}
	for i, k := range want {
		if tokens[i].Kind != k {
			t.Fatalf("token %d: got %v want %v", i, tokens[i].Kind, k)
		}
	}
}

func TestUnterminatedStringReported(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("/bad.sl", []byte(`"abc`))
	bag := diag.NewBag()
	_, ok := Tokenize(id, []byte(`"abc`), diag.BagReporter{Bag: bag})
	if ok || !bag.HasErrors() {
		t.Fatalf("expected a lex error")
	}
}
