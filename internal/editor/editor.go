// Package editor mirrors the state of the editing surface the plugin client
// reports: buffer content, cursor, and the mode flags the trigger policy
// inspects.
package editor

import (
	"strings"
	"sync"

	"github.com/glint-nvim/glint/internal/ghost"
)

// Buffer is a line-based mirror of one editor buffer. It implements
// ghost.Buffer so accepted suggestions land in the mirror the same way the
// client applies them on its side.
type Buffer struct {
	mu       sync.Mutex
	name     string
	filetype string
	lines    []string
	cursor   ghost.Position
	mutable  bool
}

func NewBuffer(name, filetype string, lines []string) *Buffer {
	if len(lines) == 0 {
		lines = []string{""}
	}
	return &Buffer{
		name:     name,
		filetype: filetype,
		lines:    lines,
		mutable:  true,
	}
}

func (b *Buffer) Name() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.name
}

func (b *Buffer) Filetype() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.filetype
}

func (b *Buffer) SetFiletype(ft string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.filetype = ft
}

func (b *Buffer) Mutable() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mutable
}

func (b *Buffer) SetMutable(mutable bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.mutable = mutable
}

func (b *Buffer) Cursor() ghost.Position {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cursor
}

func (b *Buffer) SetCursor(pos ghost.Position) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cursor = b.clampLocked(pos)
}

// SetLines replaces the buffer content wholesale, as on a full client sync.
func (b *Buffer) SetLines(lines []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(lines) == 0 {
		lines = []string{""}
	}
	b.lines = lines
	b.cursor = b.clampLocked(b.cursor)
}

func (b *Buffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.lines))
	copy(out, b.lines)
	return out
}

func (b *Buffer) Line(i int) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i < 0 || i >= len(b.lines) {
		return ""
	}
	return b.lines[i]
}

// InsertAt splices text, possibly multiline, into the buffer and moves the
// cursor to the end of the insertion.
func (b *Buffer) InsertAt(pos ghost.Position, text string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	pos = b.clampLocked(pos)
	head := b.lines[pos.Line][:pos.Col]
	tail := b.lines[pos.Line][pos.Col:]

	parts := strings.Split(text, "\n")
	if len(parts) == 1 {
		b.lines[pos.Line] = head + text + tail
		b.cursor = ghost.Position{Line: pos.Line, Col: pos.Col + len(text)}
		return
	}

	spliced := make([]string, 0, len(b.lines)+len(parts)-1)
	spliced = append(spliced, b.lines[:pos.Line]...)
	spliced = append(spliced, head+parts[0])
	spliced = append(spliced, parts[1:len(parts)-1]...)
	last := parts[len(parts)-1]
	spliced = append(spliced, last+tail)
	spliced = append(spliced, b.lines[pos.Line+1:]...)
	b.lines = spliced
	b.cursor = ghost.Position{Line: pos.Line + len(parts) - 1, Col: len(last)}
}

// Text returns the whole buffer joined with newlines.
func (b *Buffer) Text() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Join(b.lines, "\n")
}

func (b *Buffer) clampLocked(pos ghost.Position) ghost.Position {
	if pos.Line < 0 {
		pos.Line = 0
	}
	if pos.Line >= len(b.lines) {
		pos.Line = len(b.lines) - 1
	}
	if pos.Col < 0 {
		pos.Col = 0
	}
	if pos.Col > len(b.lines[pos.Line]) {
		pos.Col = len(b.lines[pos.Line])
	}
	return pos
}

// PrefixSuffix splits the buffer text around the cursor.
func (b *Buffer) PrefixSuffix() (prefix, suffix string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	pos := b.clampLocked(b.cursor)
	var sb strings.Builder
	for i := range pos.Line {
		sb.WriteString(b.lines[i])
		sb.WriteByte('\n')
	}
	sb.WriteString(b.lines[pos.Line][:pos.Col])
	prefix = sb.String()

	sb.Reset()
	sb.WriteString(b.lines[pos.Line][pos.Col:])
	for _, line := range b.lines[pos.Line+1:] {
		sb.WriteByte('\n')
		sb.WriteString(line)
	}
	return prefix, sb.String()
}

// State is the live editing surface the suggestion controller queries. It
// wraps the active buffer plus the transient UI flags the client reports.
type State struct {
	mu          sync.Mutex
	buffer      *Buffer
	menuVisible bool
}

func NewState(buffer *Buffer) *State {
	return &State{buffer: buffer}
}

func (s *State) Buffer() *Buffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer
}

func (s *State) SetBuffer(buffer *Buffer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffer = buffer
}

func (s *State) IsMutable() bool {
	return s.Buffer().Mutable()
}

func (s *State) Filetype() string {
	return s.Buffer().Filetype()
}

func (s *State) CompletionMenuVisible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.menuVisible
}

func (s *State) SetCompletionMenuVisible(visible bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.menuVisible = visible
}
