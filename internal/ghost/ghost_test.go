package ghost

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type insert struct {
	pos  Position
	text string
}

type fakeBuffer struct {
	inserts []insert
}

func (b *fakeBuffer) InsertAt(pos Position, text string) {
	b.inserts = append(b.inserts, insert{pos, text})
}

type fakeSurface struct {
	visible bool
	pos     Position
	inline  string
	block   []string
	clears  int
}

func (s *fakeSurface) Render(pos Position, inline string, block []string) {
	s.visible = true
	s.pos = pos
	s.inline = inline
	s.block = block
}

func (s *fakeSurface) Clear() {
	s.visible = false
	s.clears++
}

func TestShowAndClear(t *testing.T) {
	t.Parallel()
	surface := &fakeSurface{}
	buf := &fakeBuffer{}
	r := NewRenderer(surface)

	r.Show(buf, Position{Line: 3, Col: 7}, "foo()\nbar()")
	assert.True(t, r.Visible())
	assert.Equal(t, "foo()\nbar()", r.Text())
	assert.Equal(t, Position{Line: 3, Col: 7}, r.Anchor())
	assert.Equal(t, "foo()", surface.inline)
	assert.Equal(t, []string{"bar()"}, surface.block)

	r.Clear()
	assert.False(t, r.Visible())
	assert.Empty(t, r.Text())
	assert.False(t, surface.visible)

	// Clearing again is safe.
	r.Clear()
	assert.False(t, r.Visible())
}

func TestShowReplacesPriorSuggestion(t *testing.T) {
	t.Parallel()
	surface := &fakeSurface{}
	buf := &fakeBuffer{}
	r := NewRenderer(surface)

	r.Show(buf, Position{Line: 1}, "first")
	clears := surface.clears
	r.Show(buf, Position{Line: 2}, "second")

	assert.Greater(t, surface.clears, clears, "showing must clear the prior render first")
	assert.Equal(t, "second", r.Text())
	assert.Equal(t, Position{Line: 2}, r.Anchor())
}

func TestShowEmptyTextRendersNothing(t *testing.T) {
	t.Parallel()
	surface := &fakeSurface{}
	r := NewRenderer(surface)

	r.Show(&fakeBuffer{}, Position{}, "")
	assert.False(t, r.Visible())
	assert.False(t, surface.visible)
}

func TestAccept(t *testing.T) {
	t.Parallel()
	surface := &fakeSurface{}
	buf := &fakeBuffer{}
	r := NewRenderer(surface)

	anchor := Position{Line: 5, Col: 2}
	r.Show(buf, anchor, "foo()")

	assert.True(t, r.Accept())
	assert.False(t, r.Visible())
	require.Len(t, buf.inserts, 1)
	assert.Equal(t, insert{anchor, "foo()"}, buf.inserts[0])

	// Nothing shown: no-op, no mutation.
	assert.False(t, r.Accept())
	assert.Len(t, buf.inserts, 1)
}

func TestAcceptWord(t *testing.T) {
	t.Parallel()
	surface := &fakeSurface{}
	buf := &fakeBuffer{}
	r := NewRenderer(surface)

	anchor := Position{Line: 0, Col: 4}
	r.Show(buf, anchor, "hello world")

	residual, ok := r.AcceptWord()
	require.True(t, ok)
	assert.Equal(t, " world", residual)
	require.Len(t, buf.inserts, 1)
	assert.Equal(t, insert{anchor, "hello"}, buf.inserts[0])

	// Residual is re-shown at the advanced cursor position.
	assert.True(t, r.Visible())
	assert.Equal(t, " world", r.Text())
	assert.Equal(t, Position{Line: 0, Col: 9}, r.Anchor())

	// Leading whitespace is consumed as its own token.
	residual, ok = r.AcceptWord()
	require.True(t, ok)
	assert.Equal(t, "world", residual)
	assert.Equal(t, insert{Position{Line: 0, Col: 9}, " "}, buf.inserts[1])

	residual, ok = r.AcceptWord()
	require.True(t, ok)
	assert.Empty(t, residual)
	assert.False(t, r.Visible(), "exhausted text fully clears the render")

	_, ok = r.AcceptWord()
	assert.False(t, ok)
}

func TestAcceptWordTerminates(t *testing.T) {
	t.Parallel()
	surface := &fakeSurface{}
	buf := &fakeBuffer{}
	r := NewRenderer(surface)

	r.Show(buf, Position{}, "one two\tthree   four\nfive")

	prev := len(r.Text())
	for i := 0; r.Visible(); i++ {
		require.Less(t, i, 100, "partial accepts must terminate")
		_, ok := r.AcceptWord()
		require.True(t, ok)
		if r.Visible() {
			require.Less(t, len(r.Text()), prev, "residual must be strictly shorter")
			prev = len(r.Text())
		}
	}

	var joined string
	for _, in := range buf.inserts {
		joined += in.text
	}
	assert.Equal(t, "one two\tthree   four\nfive", joined)
}

func TestAcceptLine(t *testing.T) {
	t.Parallel()
	surface := &fakeSurface{}
	buf := &fakeBuffer{}
	r := NewRenderer(surface)

	anchor := Position{Line: 10, Col: 0}
	r.Show(buf, anchor, "line1\nline2\nline3")

	residual, ok := r.AcceptLine()
	require.True(t, ok)
	assert.Equal(t, "line2\nline3", residual)
	require.Len(t, buf.inserts, 1)
	assert.Equal(t, insert{anchor, "line1"}, buf.inserts[0])
	assert.Equal(t, Position{Line: 11, Col: 0}, r.Anchor())
	assert.Equal(t, "line2\nline3", r.Text())
}

func TestAcceptLineWithoutNewlineIsFullAccept(t *testing.T) {
	t.Parallel()
	surface := &fakeSurface{}
	buf := &fakeBuffer{}
	r := NewRenderer(surface)

	r.Show(buf, Position{Line: 2, Col: 1}, "only line")

	residual, ok := r.AcceptLine()
	require.True(t, ok)
	assert.Empty(t, residual)
	assert.False(t, r.Visible())
	require.Len(t, buf.inserts, 1)
	assert.Equal(t, insert{Position{Line: 2, Col: 1}, "only line"}, buf.inserts[0])

	_, ok = r.AcceptLine()
	assert.False(t, ok)
}

func TestLeadingToken(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"hello world": "hello",
		"  indented":  "  ",
		"\t\n mixed":  "\t\n ",
		"single":      "single",
		"":            "",
	}
	for input, want := range cases {
		assert.Equal(t, want, leadingToken(input), "input %q", input)
	}
}

func TestAdvance(t *testing.T) {
	t.Parallel()
	assert.Equal(t, Position{Line: 1, Col: 8}, advance(Position{Line: 1, Col: 3}, "hello"))
	assert.Equal(t, Position{Line: 3, Col: 2}, advance(Position{Line: 1, Col: 3}, "a\nbc\nde"))
	assert.Equal(t, Position{Line: 2, Col: 0}, advance(Position{Line: 1, Col: 3}, "end\n"))
}
