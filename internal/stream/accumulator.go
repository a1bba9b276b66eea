package stream

import "strings"

// Accumulator folds an ordered sequence of chunks into cumulative text.
// One accumulator belongs to exactly one in-flight stream; it is not
// safe for concurrent use.
type Accumulator struct {
	chunks []Chunk
	text   strings.Builder
}

func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Add appends the chunk's text to the running total. Nil chunks and chunks
// without text (e.g. the finish-reason-only terminal chunk) are ignored.
func (a *Accumulator) Add(chunk *Chunk) {
	if chunk == nil || chunk.Text == "" {
		return
	}
	a.text.WriteString(chunk.Text)
	a.chunks = append(a.chunks, *chunk)
}

// Text returns the concatenation of every added chunk, in arrival order.
func (a *Accumulator) Text() string {
	return a.text.String()
}

// Chunks returns the ordered history of added chunks.
func (a *Accumulator) Chunks() []Chunk {
	return a.chunks
}

// Clear resets the accumulator for reuse. Safe on a fresh or already
// cleared accumulator.
func (a *Accumulator) Clear() {
	a.chunks = nil
	a.text.Reset()
}
