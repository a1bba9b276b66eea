// Package ghost owns the single rendered completion preview: what text is
// shown, where it is anchored, and how accepting it mutates the buffer.
package ghost

import (
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

// Position addresses a point in a buffer. Line is 0-based, Col is a 0-based
// byte offset into the line.
type Position struct {
	Line int `json:"line"`
	Col  int `json:"col"`
}

// Buffer receives accepted suggestion text.
type Buffer interface {
	InsertAt(pos Position, text string)
}

// Surface displays preview text without mutating the buffer. The first line
// renders inline at the anchor, the rest as a block below it.
type Surface interface {
	Render(pos Position, inline string, block []string)
	Clear()
}

// Renderer tracks at most one visible suggestion at a time. Showing a new
// suggestion always clears the previous one first.
type Renderer struct {
	mu      sync.Mutex
	surface Surface
	buf     Buffer
	text    string
	anchor  Position
	visible bool
}

func NewRenderer(surface Surface) *Renderer {
	return &Renderer{surface: surface}
}

// Show renders text anchored at pos in buf, replacing any prior suggestion.
func (r *Renderer) Show(buf Buffer, pos Position, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.showLocked(buf, pos, text)
}

func (r *Renderer) showLocked(buf Buffer, pos Position, text string) {
	r.clearLocked()
	if text == "" {
		return
	}
	r.buf = buf
	r.anchor = pos
	r.text = text
	r.visible = true

	lines := strings.Split(text, "\n")
	r.surface.Render(pos, lines[0], lines[1:])
}

// Clear removes any rendered suggestion. Safe when nothing is shown.
func (r *Renderer) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearLocked()
}

func (r *Renderer) clearLocked() {
	r.surface.Clear()
	r.buf = nil
	r.text = ""
	r.anchor = Position{}
	r.visible = false
}

// Accept inserts the full suggestion at its anchor and clears the render.
// Returns false, with no buffer mutation, when nothing is shown.
func (r *Renderer) Accept() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.visible {
		return false
	}
	text, buf, anchor := r.text, r.buf, r.anchor
	r.clearLocked()
	buf.InsertAt(anchor, text)
	return true
}

// AcceptWord inserts the leading token of the suggestion and re-shows the
// remainder, if any, at the advanced anchor. The residual is returned; it is
// always strictly shorter than the text it came from, so repeated calls
// terminate. Returns ok=false when nothing is shown.
func (r *Renderer) AcceptWord() (residual string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.visible {
		return "", false
	}
	word := leadingToken(r.text)
	residual = r.text[len(word):]
	buf, anchor := r.buf, r.anchor
	r.clearLocked()
	buf.InsertAt(anchor, word)
	if residual != "" {
		r.showLocked(buf, advance(anchor, word), residual)
	}
	return residual, true
}

// AcceptLine inserts everything up to the first newline and re-shows the
// remainder. The newline itself is consumed but not inserted; the residual
// anchors at the start of the next line. Without a newline this is a full
// accept. Returns ok=false when nothing is shown.
func (r *Renderer) AcceptLine() (residual string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.visible {
		return "", false
	}
	first := r.text
	if idx := strings.IndexByte(r.text, '\n'); idx >= 0 {
		first = r.text[:idx]
		residual = r.text[idx+1:]
	}
	buf, anchor := r.buf, r.anchor
	r.clearLocked()
	buf.InsertAt(anchor, first)
	if residual != "" {
		r.showLocked(buf, Position{Line: anchor.Line + 1}, residual)
	}
	return residual, true
}

// Visible reports whether a suggestion is currently rendered.
func (r *Renderer) Visible() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.visible
}

// Text returns the currently rendered suggestion text, if any.
func (r *Renderer) Text() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.text
}

// Anchor returns the position of the rendered suggestion.
func (r *Renderer) Anchor() Position {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.anchor
}

// leadingToken returns the leading run of characters of uniform class:
// non-whitespace if the text starts with non-whitespace, otherwise the
// leading whitespace run. It consumes at least one rune of non-empty input.
func leadingToken(text string) string {
	if text == "" {
		return ""
	}
	first, _ := utf8.DecodeRuneInString(text)
	space := unicode.IsSpace(first)
	for i, r := range text {
		if unicode.IsSpace(r) != space {
			return text[:i]
		}
	}
	return text
}

// advance returns the position of the cursor after inserting text at pos.
func advance(pos Position, inserted string) Position {
	idx := strings.LastIndexByte(inserted, '\n')
	if idx < 0 {
		return Position{Line: pos.Line, Col: pos.Col + len(inserted)}
	}
	return Position{
		Line: pos.Line + strings.Count(inserted, "\n"),
		Col:  len(inserted) - idx - 1,
	}
}
