// Package suggest drives the inline suggestion lifecycle: trigger policy,
// debounced dispatch, candidate cycling, and acceptance.
package suggest

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/glint-nvim/glint/internal/config"
	"github.com/glint-nvim/glint/internal/ghost"
	"github.com/glint-nvim/glint/internal/llm/provider"
	"github.com/glint-nvim/glint/internal/pubsub"
	"github.com/glint-nvim/glint/internal/status"
	"github.com/glint-nvim/glint/internal/stream"
	"github.com/glint-nvim/glint/internal/timing"
)

// Context is a snapshot of the editing surface at the moment a completion
// is requested.
type Context struct {
	Filename    string
	Filetype    string
	Prefix      string
	Suffix      string
	CurrentLine string
	Cursor      ghost.Position
	Buffer      ghost.Buffer
}

// Editor is the capability-query surface the controller consults. All
// methods are synchronous and side-effect free.
type Editor interface {
	Snapshot() Context
	IsMutable() bool
	CompletionMenuVisible() bool
	Filetype() string
}

// Suggestion is the event payload published on lifecycle transitions.
type Suggestion struct {
	ID     string         `json:"id"`
	Text   string         `json:"text"`
	Anchor ghost.Position `json:"anchor"`
	Index  int            `json:"index"`
	Count  int            `json:"count"`
}

const (
	EventSuggestionShown     pubsub.EventType = "suggestion_shown"
	EventSuggestionDismissed pubsub.EventType = "suggestion_dismissed"
	EventSuggestionAccepted  pubsub.EventType = "suggestion_accepted"
)

// Inserting accepted text fires change events; the guard must outlive the
// debounce window those events are coalesced into.
const acceptGuardMargin = 100 * time.Millisecond

// Controller is the suggestion state machine. One instance owns the whole
// process's suggestion state.
type Controller struct {
	mu  sync.Mutex
	cfg *config.Config

	editor   Editor
	client   provider.Client
	renderer *ghost.Renderer
	broker   *pubsub.Broker[Suggestion]

	enabled    bool
	accepting  bool
	guardTimer *time.Timer

	// generation tags each dispatched request; responses carrying a stale
	// generation are discarded.
	generation     uint64
	cancelInflight context.CancelFunc

	candidates []string
	index      int
	current    string
	currentID  string
	anchor     ghost.Position
	buffer     ghost.Buffer

	debounced      func(string)
	cancelDebounce func()
}

type Options struct {
	Config   *config.Config
	Editor   Editor
	Client   provider.Client
	Renderer *ghost.Renderer
}

func NewController(opts Options) *Controller {
	c := &Controller{
		cfg:      opts.Config,
		editor:   opts.Editor,
		client:   opts.Client,
		renderer: opts.Renderer,
		broker:   pubsub.NewBroker[Suggestion](),
		enabled:  opts.Config.Suggestion.Enabled,
	}
	c.debounced, c.cancelDebounce = timing.Debounce(c.autoFire, c.cfg.Debounce())
	return c
}

// Subscribe delivers suggestion lifecycle events until ctx is cancelled.
func (c *Controller) Subscribe(ctx context.Context) <-chan pubsub.Event[Suggestion] {
	return c.broker.Subscribe(ctx)
}

func (c *Controller) IsEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// IsVisible reports whether the controller holds a current suggestion. After
// a partial accept this is false even though the renderer still shows the
// residual; the residual is a renderer concern, not a controller one.
func (c *Controller) IsVisible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != ""
}

// Toggle flips the enabled gate, dismissing any visible suggestion when
// turning off, and notifies the user.
func (c *Controller) Toggle() {
	c.mu.Lock()
	c.enabled = !c.enabled
	enabled := c.enabled
	if !enabled {
		c.cancelDebounce()
		c.dismissLocked()
	}
	c.mu.Unlock()

	if enabled {
		status.Info("Suggestions enabled")
	} else {
		status.Info("Suggestions disabled")
	}
}

// OnTextChanged handles a buffer edit event from the client.
func (c *Controller) OnTextChanged() {
	c.autoTrigger("text_changed")
}

// OnCursorMoved handles a cursor movement event from the client.
func (c *Controller) OnCursorMoved() {
	c.autoTrigger("cursor_moved")
}

// OnFocusLost cancels pending work and dismisses immediately. Also used
// when the client leaves insert mode.
func (c *Controller) OnFocusLost() {
	c.cancelDebounce()
	c.Dismiss()
}

func (c *Controller) autoTrigger(source string) {
	c.mu.Lock()
	if !c.enabled || !c.cfg.Suggestion.AutoTrigger {
		c.mu.Unlock()
		return
	}
	if c.accepting {
		// The event came from inserting accepted text; dismissing here would
		// wipe the residual of a partial accept.
		c.mu.Unlock()
		return
	}
	c.dismissLocked()
	c.mu.Unlock()

	c.cancelDebounce()
	c.debounced(source)
}

func (c *Controller) autoFire(source string) {
	slog.Debug("debounce elapsed", "source", source)
	c.Trigger()
}

// ShouldTrigger evaluates the trigger policy against the current editor
// state.
func (c *Controller) ShouldTrigger() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shouldTriggerLocked(c.editor.Snapshot())
}

func (c *Controller) shouldTriggerLocked(snap Context) bool {
	s := &c.cfg.Suggestion
	if c.accepting {
		return false
	}
	if !c.editor.IsMutable() {
		return false
	}
	if enabled, ok := s.Filetypes[snap.Filetype]; ok {
		if !enabled {
			return false
		}
	} else if !s.Filetypes["*"] {
		return false
	}
	if s.HideDuringCompletion && c.editor.CompletionMenuVisible() {
		return false
	}
	if pathIgnored(snap.Filename, s.IgnoreGlobs) {
		return false
	}
	return true
}

// Trigger snapshots the editor and dispatches a completion request. It is
// the manual entry point and the target of the debounced auto path; the
// enabled gate applies only to the latter.
func (c *Controller) Trigger() {
	c.mu.Lock()
	snap := c.editor.Snapshot()
	if !c.shouldTriggerLocked(snap) {
		c.mu.Unlock()
		return
	}

	c.generation++
	gen := c.generation
	if c.cancelInflight != nil {
		c.cancelInflight()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancelInflight = cancel
	streaming := c.cfg.Suggestion.Streaming
	maxTokens := c.cfg.Suggestion.MaxTokens
	c.mu.Unlock()

	slog.Debug("dispatching completion request", "generation", gen, "file", snap.Filename, "streaming", streaming)
	go c.request(ctx, gen, snap, streaming, maxTokens)
}

func (c *Controller) request(ctx context.Context, gen uint64, snap Context, streaming bool, maxTokens int64) {
	req := provider.Request{
		Filename:    snap.Filename,
		Filetype:    snap.Filetype,
		Prefix:      snap.Prefix,
		Suffix:      snap.Suffix,
		CurrentLine: snap.CurrentLine,
		MaxTokens:   maxTokens,
	}

	var resp *provider.Response
	var err error
	if streaming {
		resp, err = consumeStream(ctx, c.client, req)
	} else {
		resp, err = c.client.Complete(ctx, req)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		slog.Debug("discarding stale completion response", "generation", gen, "current", c.generation)
		return
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		slog.Error("completion request failed", "error", err)
		return
	}
	if resp == nil || resp.Text == "" {
		slog.Debug("empty completion, nothing to show")
		return
	}

	candidates := make([]string, 0, len(resp.Candidates))
	for _, cand := range resp.Candidates {
		if cand != "" {
			candidates = append(candidates, cand)
		}
	}
	if len(candidates) == 0 {
		candidates = []string{resp.Text}
	}

	c.candidates = candidates
	c.index = 0
	c.showLocked(snap.Buffer, snap.Cursor, candidates[0])
}

// consumeStream folds a streaming response into a single batch-shaped one.
// A fresh accumulator is used per call; chunks apply in arrival order.
func consumeStream(ctx context.Context, client provider.Client, req provider.Request) (*provider.Response, error) {
	acc := stream.NewAccumulator()
	for ev := range client.Stream(ctx, req) {
		switch ev.Type {
		case provider.EventContentDelta:
			acc.Add(&ev.Chunk)
		case provider.EventError:
			return nil, ev.Error
		case provider.EventComplete:
			if ev.Response != nil && ev.Response.Text != "" {
				return ev.Response, nil
			}
			text := acc.Text()
			return &provider.Response{Text: text, Candidates: []string{text}}, nil
		}
	}
	return nil, errors.New("stream closed without a completion")
}

func (c *Controller) showLocked(buf ghost.Buffer, pos ghost.Position, text string) {
	c.renderer.Show(buf, pos, text)
	c.current = text
	c.currentID = uuid.New().String()
	c.anchor = pos
	c.buffer = buf
	c.broker.Publish(EventSuggestionShown, c.suggestionLocked())
}

func (c *Controller) suggestionLocked() Suggestion {
	return Suggestion{
		ID:     c.currentID,
		Text:   c.current,
		Anchor: c.anchor,
		Index:  c.index + 1,
		Count:  len(c.candidates),
	}
}

// Next re-renders the following candidate, wrapping past the last back to
// the first. No request is issued; only fetched candidates cycle.
func (c *Controller) Next() {
	c.cycle(1)
}

// Prev re-renders the preceding candidate, wrapping before the first back
// to the last.
func (c *Controller) Prev() {
	c.cycle(-1)
}

func (c *Controller) cycle(delta int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.candidates)
	if n == 0 {
		return
	}
	c.index = ((c.index+delta)%n + n) % n
	c.showLocked(c.buffer, c.anchor, c.candidates[c.index])
}

// Index returns the 1-based position of the shown candidate and the
// candidate count. Both are zero when the set is empty.
func (c *Controller) Index() (index, count int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.candidates) == 0 {
		return 0, 0
	}
	return c.index + 1, len(c.candidates)
}

// Accept inserts the whole rendered text into the buffer. After a partial
// accept this is the residual, which the controller no longer tracks; the
// published event then carries the render state under a fresh ID.
func (c *Controller) Accept() {
	c.mu.Lock()
	defer c.mu.Unlock()
	shown := c.renderer.Text()
	anchor := c.renderer.Anchor()
	if !c.renderer.Accept() {
		return
	}
	accepted := c.suggestionLocked()
	if accepted.ID == "" {
		accepted = Suggestion{ID: uuid.New().String(), Text: shown, Anchor: anchor}
	}
	c.guardLocked()
	c.clearCurrentLocked()
	c.broker.Publish(EventSuggestionAccepted, accepted)
}

// AcceptWord inserts the leading token; the renderer re-shows any residual
// on its own. The controller's current-suggestion reference is cleared
// either way: the top-level accept ends the suggestion the controller was
// tracking.
func (c *Controller) AcceptWord() {
	c.partialAccept((*ghost.Renderer).AcceptWord)
}

// AcceptLine inserts through the first newline; see AcceptWord for how the
// residual is treated.
func (c *Controller) AcceptLine() {
	c.partialAccept((*ghost.Renderer).AcceptLine)
}

func (c *Controller) partialAccept(accept func(*ghost.Renderer) (string, bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	shown := c.renderer.Text()
	anchor := c.renderer.Anchor()
	residual, ok := accept(c.renderer)
	if !ok {
		return
	}
	accepted := c.suggestionLocked()
	if accepted.ID == "" {
		accepted = Suggestion{ID: uuid.New().String(), Anchor: anchor}
	}
	accepted.Text = strings.TrimSuffix(shown, residual)
	c.guardLocked()
	c.clearCurrentLocked()
	c.broker.Publish(EventSuggestionAccepted, accepted)
}

// Dismiss clears the render and the current-suggestion reference, and
// stale-proofs any in-flight request.
func (c *Controller) Dismiss() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dismissLocked()
}

func (c *Controller) dismissLocked() {
	c.generation++
	if c.cancelInflight != nil {
		c.cancelInflight()
		c.cancelInflight = nil
	}
	if c.current == "" && !c.renderer.Visible() {
		return
	}
	dismissed := c.suggestionLocked()
	c.renderer.Clear()
	c.clearCurrentLocked()
	c.broker.Publish(EventSuggestionDismissed, dismissed)
}

func (c *Controller) clearCurrentLocked() {
	c.current = ""
	c.currentID = ""
	c.candidates = nil
	c.index = 0
}

// guardLocked raises the accept flag and arms its expiry. The flag always
// clears on its own, even with no further input.
func (c *Controller) guardLocked() {
	c.accepting = true
	if c.guardTimer != nil {
		c.guardTimer.Stop()
	}
	c.guardTimer = time.AfterFunc(c.cfg.Debounce()+acceptGuardMargin, func() {
		c.mu.Lock()
		c.accepting = false
		c.guardTimer = nil
		c.mu.Unlock()
	})
}

// Reconfigure rebuilds the debouncer after a config change so a new
// debounce window takes effect.
func (c *Controller) Reconfigure() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelDebounce()
	c.debounced, c.cancelDebounce = timing.Debounce(c.autoFire, c.cfg.Debounce())
}

// Shutdown cancels pending work and closes the event broker.
func (c *Controller) Shutdown() {
	c.mu.Lock()
	c.cancelDebounce()
	if c.cancelInflight != nil {
		c.cancelInflight()
		c.cancelInflight = nil
	}
	if c.guardTimer != nil {
		c.guardTimer.Stop()
		c.guardTimer = nil
	}
	c.mu.Unlock()
	c.broker.Shutdown()
}
