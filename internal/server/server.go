// Package server speaks a line-delimited JSON protocol over stdio: the
// editor plugin sends state syncs and commands, the engine pushes render,
// insert, and status events back.
package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/glint-nvim/glint/internal/config"
	"github.com/glint-nvim/glint/internal/editor"
	"github.com/glint-nvim/glint/internal/ghost"
	"github.com/glint-nvim/glint/internal/llm/provider"
	"github.com/glint-nvim/glint/internal/logging"
	"github.com/glint-nvim/glint/internal/pubsub"
	"github.com/glint-nvim/glint/internal/status"
	"github.com/glint-nvim/glint/internal/suggest"
)

const maxRequestBytes = 4 << 20

// Request is one inbound message from the editor client.
type Request struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// SyncParams mirrors the client's editing surface into the engine.
type SyncParams struct {
	Filename    string         `json:"filename"`
	Filetype    string         `json:"filetype"`
	Lines       []string       `json:"lines"`
	Cursor      ghost.Position `json:"cursor"`
	Mutable     bool           `json:"mutable"`
	MenuVisible bool           `json:"menuVisible"`
}

// Notification is one outbound message to the editor client.
type Notification struct {
	Event  string `json:"event"`
	Params any    `json:"params,omitempty"`
}

type renderParams struct {
	Pos    ghost.Position `json:"pos"`
	Inline string         `json:"inline"`
	Block  []string       `json:"block,omitempty"`
}

type insertParams struct {
	Pos  ghost.Position `json:"pos"`
	Text string         `json:"text"`
}

type suggestionParams struct {
	State      string             `json:"state"`
	Suggestion suggest.Suggestion `json:"suggestion"`
}

// Server owns one client connection and the engine instances behind it.
type Server struct {
	cfg        *config.Config
	in         io.Reader
	out        io.Writer
	writeMu    sync.Mutex
	state      *editor.State
	controller *suggest.Controller
}

type Options struct {
	Config *config.Config
	Client provider.Client
	In     io.Reader
	Out    io.Writer
}

func New(opts Options) *Server {
	s := &Server{
		cfg:   opts.Config,
		in:    opts.In,
		out:   opts.Out,
		state: editor.NewState(editor.NewBuffer("", "", nil)),
	}
	renderer := ghost.NewRenderer((*serverSurface)(s))
	s.controller = suggest.NewController(suggest.Options{
		Config:   opts.Config,
		Editor:   &serverEditor{State: s.state, srv: s},
		Client:   opts.Client,
		Renderer: renderer,
	})
	return s
}

// Controller exposes the suggestion controller, e.g. for config reload
// hooks.
func (s *Server) Controller() *suggest.Controller {
	return s.controller
}

// Run pumps engine events out and processes client requests until the
// input closes or ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer s.controller.Shutdown()

	// Subscriptions are taken here rather than inside the pump goroutines so
	// no event published after Run starts can slip past them.
	go s.pumpSuggestions(s.controller.Subscribe(ctx))
	go s.pumpStatus(status.GetService().Subscribe(ctx))
	go s.pumpLogs(logging.GetService().Subscribe(ctx))

	// The read loop lives in its own goroutine: scanner.Scan blocks with no
	// way to interrupt it, and cancellation (a signal, typically) must still
	// get Run to return even while stdin stays open.
	lines := make(chan []byte)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(s.in)
		scanner.Buffer(make([]byte, 0, 64*1024), maxRequestBytes)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			readErr <- err
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					return fmt.Errorf("reading client input: %w", err)
				default:
					return nil
				}
			}
			if len(line) == 0 {
				continue
			}
			var req Request
			if err := json.Unmarshal(line, &req); err != nil {
				slog.Warn("malformed request", "error", err)
				continue
			}
			if req.Method == "shutdown" {
				return nil
			}
			s.dispatch(req)
		}
	}
}

func (s *Server) dispatch(req Request) {
	switch req.Method {
	case "sync":
		var params SyncParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			slog.Warn("malformed sync params", "error", err)
			return
		}
		s.applySync(params)
	case "text_changed":
		s.controller.OnTextChanged()
	case "cursor_moved":
		s.controller.OnCursorMoved()
	case "focus_lost", "insert_leave":
		s.controller.OnFocusLost()
	case "trigger":
		s.controller.Trigger()
	case "dismiss":
		s.controller.Dismiss()
	case "accept":
		s.controller.Accept()
	case "accept_word":
		s.controller.AcceptWord()
	case "accept_line":
		s.controller.AcceptLine()
	case "next":
		s.controller.Next()
	case "prev":
		s.controller.Prev()
	case "toggle":
		s.controller.Toggle()
		if err := config.UpdateEnabled(s.controller.IsEnabled()); err != nil {
			slog.Debug("could not persist toggle", "error", err)
		}
	default:
		slog.Warn("unknown method", "method", req.Method)
	}
}

func (s *Server) applySync(params SyncParams) {
	buf := s.state.Buffer()
	if buf.Name() != params.Filename {
		buf = editor.NewBuffer(params.Filename, params.Filetype, params.Lines)
		s.state.SetBuffer(buf)
	} else {
		buf.SetFiletype(params.Filetype)
		buf.SetLines(params.Lines)
	}
	buf.SetCursor(params.Cursor)
	buf.SetMutable(params.Mutable)
	s.state.SetCompletionMenuVisible(params.MenuVisible)
}

func (s *Server) pumpSuggestions(ch <-chan pubsub.Event[suggest.Suggestion]) {
	for ev := range ch {
		state := "shown"
		switch ev.Type {
		case suggest.EventSuggestionDismissed:
			state = "dismissed"
		case suggest.EventSuggestionAccepted:
			state = "accepted"
		}
		s.emit("suggestion", suggestionParams{State: state, Suggestion: ev.Payload})
	}
}

func (s *Server) pumpStatus(ch <-chan pubsub.Event[status.StatusMessage]) {
	for ev := range ch {
		s.emit("status", ev.Payload)
	}
}

func (s *Server) pumpLogs(ch <-chan pubsub.Event[logging.Log]) {
	for ev := range ch {
		s.emit("log", ev.Payload)
	}
}

func (s *Server) emit(event string, params any) {
	payload, err := json.Marshal(Notification{Event: event, Params: params})
	if err != nil {
		slog.Error("encoding notification", "event", event, "error", err)
		return
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.out.Write(append(payload, '\n')); err != nil {
		slog.Warn("writing notification", "event", event, "error", err)
	}
}

// serverSurface pushes ghost text renders to the client.
type serverSurface Server

func (s *serverSurface) Render(pos ghost.Position, inline string, block []string) {
	(*Server)(s).emit("render", renderParams{Pos: pos, Inline: inline, Block: block})
}

func (s *serverSurface) Clear() {
	(*Server)(s).emit("clear", nil)
}

// serverEditor wraps the mirrored state so accepted text both updates the
// mirror and reaches the client as an insert event.
type serverEditor struct {
	*editor.State
	srv *Server
}

func (e *serverEditor) Snapshot() suggest.Context {
	snap := e.State.Snapshot()
	snap.Buffer = &clientBuffer{buf: snap.Buffer, srv: e.srv}
	return snap
}

type clientBuffer struct {
	buf ghost.Buffer
	srv *Server
}

func (b *clientBuffer) InsertAt(pos ghost.Position, text string) {
	b.buf.InsertAt(pos, text)
	b.srv.emit("insert", insertParams{Pos: pos, Text: text})
}
