package editor

import (
	"github.com/glint-nvim/glint/internal/suggest"
)

// Snapshot captures the active buffer for a completion request. Together
// with IsMutable, Filetype and CompletionMenuVisible this makes State a
// suggest.Editor.
func (s *State) Snapshot() suggest.Context {
	buf := s.Buffer()
	prefix, suffix := buf.PrefixSuffix()
	cursor := buf.Cursor()
	return suggest.Context{
		Filename:    buf.Name(),
		Filetype:    buf.Filetype(),
		Prefix:      prefix,
		Suffix:      suffix,
		CurrentLine: buf.Line(cursor.Line),
		Cursor:      cursor,
		Buffer:      buf,
	}
}
