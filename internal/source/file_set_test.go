package source

import "testing"

func TestAddIsIdempotentPerPath(t *testing.T) {
	fs := NewFileSet()
	a := fs.AddVirtual("/tmp/a.sl", []byte("x :: 1;\n"))
	b := fs.AddVirtual("/tmp/a.sl", []byte("ignored"))
	if a != b {
		t.Fatalf("same path must reuse the entry: %d vs %d", a, b)
	}
	if fs.Len() != 1 {
		t.Fatalf("expected 1 file, got %d", fs.Len())
	}
}

func TestPositionResolution(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("/tmp/pos.sl", []byte("abc\ndef\nghi"))

	cases := []struct {
		off  uint32
		line uint32
		col  uint32
	}{
		{0, 1, 1},
		{2, 1, 3},
		{4, 2, 1},
		{6, 2, 3},
		{8, 3, 1},
	}
	for _, c := range cases {
		pos := fs.Position(Span{File: id, Start: c.off, End: c.off + 1})
		if pos.Line != c.line || pos.Col != c.col {
			t.Errorf("offset %d: got %d:%d, want %d:%d", c.off, pos.Line, pos.Col, c.line, c.col)
		}
	}
}

func TestLineExtraction(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("/tmp/line.sl", []byte("first\nsecond\nthird"))

	line, ok := fs.Line(id, 2)
	if !ok || string(line) != "second" {
		t.Fatalf("line 2: got %q ok=%v", line, ok)
	}
	line, ok = fs.Line(id, 3)
	if !ok || string(line) != "third" {
		t.Fatalf("line 3: got %q ok=%v", line, ok)
	}
	if _, ok := fs.Line(id, 9); ok {
		t.Fatalf("line 9 should not exist")
	}
}

func TestSpanCover(t *testing.T) {
	a := Span{File: 0, Start: 4, End: 8}
	b := Span{File: 0, Start: 2, End: 6}
	c := a.Cover(b)
	if c.Start != 2 || c.End != 8 {
		t.Fatalf("cover got %v", c)
	}
}
