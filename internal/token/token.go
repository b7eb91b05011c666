package token

import (
	"fmt"

	"slate/internal/source"
)

// Token is one lexeme with its source span. Text carries the literal or
// identifier spelling; for punctuation it is empty.
type Token struct {
	Kind Kind
	Span source.Span
	Text string
}

func (t Token) String() string {
	if t.Text != "" {
		return fmt.Sprintf("%s(%q)", t.Kind, t.Text)
	}
	return t.Kind.String()
}

// Is reports whether the token has the given kind.
func (t Token) Is(k Kind) bool {
	return t.Kind == k
}
