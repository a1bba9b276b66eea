package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glint-nvim/glint/internal/ghost"
)

func TestBufferInsertSingleLine(t *testing.T) {
	t.Parallel()
	buf := NewBuffer("main.go", "go", []string{"func main() {}", "// end"})

	buf.InsertAt(ghost.Position{Line: 0, Col: 13}, "fmt.Println()")

	assert.Equal(t, "func main() {fmt.Println()}", buf.Line(0))
	assert.Equal(t, ghost.Position{Line: 0, Col: 26}, buf.Cursor())
}

func TestBufferInsertMultiline(t *testing.T) {
	t.Parallel()
	buf := NewBuffer("main.go", "go", []string{"AB", "rest"})

	buf.InsertAt(ghost.Position{Line: 0, Col: 1}, "one\ntwo\nthree")

	assert.Equal(t, []string{"Aone", "two", "threeB", "rest"}, buf.Lines())
	assert.Equal(t, ghost.Position{Line: 2, Col: 5}, buf.Cursor())
}

func TestBufferInsertClampsPosition(t *testing.T) {
	t.Parallel()
	buf := NewBuffer("x", "text", []string{"short"})

	buf.InsertAt(ghost.Position{Line: 99, Col: 99}, "!")
	assert.Equal(t, "short!", buf.Line(0))

	buf.InsertAt(ghost.Position{Line: -1, Col: -1}, "?")
	assert.Equal(t, "?short!", buf.Line(0))
}

func TestBufferPrefixSuffix(t *testing.T) {
	t.Parallel()
	buf := NewBuffer("main.go", "go", []string{"line one", "line two", "line three"})
	buf.SetCursor(ghost.Position{Line: 1, Col: 5})

	prefix, suffix := buf.PrefixSuffix()
	assert.Equal(t, "line one\nline ", prefix)
	assert.Equal(t, "two\nline three", suffix)
}

func TestBufferSetLinesResetsEmpty(t *testing.T) {
	t.Parallel()
	buf := NewBuffer("x", "text", nil)
	assert.Equal(t, []string{""}, buf.Lines())

	buf.SetLines([]string{"a", "b"})
	buf.SetCursor(ghost.Position{Line: 1, Col: 1})
	buf.SetLines(nil)
	assert.Equal(t, []string{""}, buf.Lines())
	assert.Equal(t, ghost.Position{}, buf.Cursor(), "cursor is clamped into the new content")
}

func TestStateSnapshot(t *testing.T) {
	t.Parallel()
	buf := NewBuffer("pkg/util.go", "go", []string{"package util", "", "func Add("})
	buf.SetCursor(ghost.Position{Line: 2, Col: 9})
	state := NewState(buf)

	snap := state.Snapshot()
	assert.Equal(t, "pkg/util.go", snap.Filename)
	assert.Equal(t, "go", snap.Filetype)
	assert.Equal(t, "package util\n\nfunc Add(", snap.Prefix)
	assert.Empty(t, snap.Suffix)
	assert.Equal(t, "func Add(", snap.CurrentLine)
	assert.Equal(t, ghost.Position{Line: 2, Col: 9}, snap.Cursor)
	require.NotNil(t, snap.Buffer)

	assert.True(t, state.IsMutable())
	buf.SetMutable(false)
	assert.False(t, state.IsMutable())

	assert.False(t, state.CompletionMenuVisible())
	state.SetCompletionMenuVisible(true)
	assert.True(t, state.CompletionMenuVisible())
}
