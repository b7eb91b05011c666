package diag

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"slate/internal/source"
)

// Renderer prints diagnostics in the backend-facing format:
//
//	Error: path(line,col): message
//	    offending source line
//	        ^~~~
//
// The excerpt is read from the FileSet on demand; when the file content is
// unavailable the excerpt is silently omitted.
type Renderer struct {
	Out     io.Writer
	Files   *source.FileSet
	Colored bool
}

var severityColors = map[Severity]*color.Color{
	SevInfo:    color.New(color.FgCyan),
	SevWarning: color.New(color.FgYellow),
	SevError:   color.New(color.FgRed, color.Bold),
}

// Render prints a single diagnostic with its excerpt.
func (r *Renderer) Render(d Diagnostic) {
	head := d.Severity.String()
	if r.Colored {
		if c, ok := severityColors[d.Severity]; ok {
			head = c.Sprint(head)
		}
	}

	pos := source.LineCol{Line: 1, Col: 1}
	path := "<unknown>"
	if r.Files != nil {
		pos = r.Files.Position(d.Primary)
		if f := r.Files.Get(d.Primary.File); f != nil {
			path = f.Path
		}
	}

	fmt.Fprintf(r.Out, "%s: %s(%d,%d): %s\n", head, path, pos.Line, pos.Col, d.Message)
	r.renderExcerpt(d.Primary, pos)
	if r.Files != nil {
		for _, note := range d.Notes {
			npos := r.Files.Position(note.Span)
			npath := path
			if f := r.Files.Get(note.Span.File); f != nil {
				npath = f.Path
			}
			fmt.Fprintf(r.Out, "Note: %s(%d,%d): %s\n", npath, npos.Line, npos.Col, note.Msg)
		}
	}
	fmt.Fprintln(r.Out)
}

func (r *Renderer) renderExcerpt(sp source.Span, pos source.LineCol) {
	if r.Files == nil {
		return
	}
	line, ok := r.Files.Line(sp.File, pos.Line)
	if !ok {
		return
	}

	fmt.Fprintf(r.Out, "    %s\n", line)

	// Column math in display cells so tabs and wide runes keep the marker
	// under the offending text.
	prefix := line
	if int(pos.Col-1) < len(line) {
		prefix = line[:pos.Col-1]
	}
	pad := displayWidth(prefix)

	marked := sp.Len()
	if marked == 0 {
		marked = 1
	}
	end := int(pos.Col-1) + int(marked)
	if end > len(line) {
		end = len(line)
	}
	markerText := ""
	if int(pos.Col-1) < end {
		markerText = string(line[pos.Col-1 : end])
	}
	width := displayWidth(markerText)
	if width < 1 {
		width = 1
	}

	marker := "^"
	if width > 1 {
		marker += strings.Repeat("~", width-1)
	}
	if r.Colored {
		marker = severityColors[SevError].Sprint(marker)
	}
	fmt.Fprintf(r.Out, "    %s%s\n", strings.Repeat(" ", pad), marker)
}

// displayWidth counts terminal cells, expanding tabs to four cells.
func displayWidth[T ~string | ~[]byte](s T) int {
	w := 0
	for _, r := range string(s) {
		if r == '\t' {
			w += 4
		} else {
			w += runewidth.RuneWidth(r)
		}
	}
	return w
}
