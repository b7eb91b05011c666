package irgen

import (
	"strings"

	"slate/internal/types"
)

// mangleName builds the unique backend name for a declaration: the
// declaration name, the names of its enclosing declarations from innermost
// out, and the basename of the owning file, joined with underscores.
// External functions keep their source name verbatim; callers skip mangling
// for those.
func mangleName(scope *types.Scope, name string) string {
	parts := []string{name}
	for s := scope; s != nil; s = s.Parent {
		if declName, ok := s.DeclarationName(); ok {
			parts = append(parts, declName)
		}
	}
	parts = append(parts, fileBaseName(scope.File()))
	return strings.Join(parts, "_")
}
