// Package logging collects structured log records in memory and republishes
// them for the client log view, alongside the standard slog output.
package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/glint-nvim/glint/internal/pubsub"
)

type Log struct {
	ID         string            `json:"id"`
	Timestamp  time.Time         `json:"timestamp"`
	Level      string            `json:"level"`
	Message    string            `json:"message"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

const (
	EventLogCreated pubsub.EventType = "log_created"

	// Records kept for ListRecent before old ones are dropped.
	historySize = 1000
)

type Service interface {
	pubsub.Subscriber[Log]

	Create(ctx context.Context, log Log) error
	ListRecent(limit int) []Log
	Shutdown()
}

type service struct {
	mu      sync.Mutex
	history []Log
	broker  *pubsub.Broker[Log]
}

var (
	globalService *service
	globalMu      sync.Mutex
)

func InitService() error {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalService != nil {
		return fmt.Errorf("logging service already initialized")
	}
	globalService = &service{
		broker: pubsub.NewBroker[Log](),
	}
	return nil
}

func GetService() Service {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalService == nil {
		slog.Warn("Logging service not initialized, initializing with default service")
		globalService = &service{
			broker: pubsub.NewBroker[Log](),
		}
	}
	return globalService
}

func (s *service) Create(ctx context.Context, log Log) error {
	if log.Level == "" {
		log.Level = "info"
	}
	if log.ID == "" {
		log.ID = uuid.New().String()
	}
	if log.Timestamp.IsZero() {
		log.Timestamp = time.Now()
	}

	s.mu.Lock()
	s.history = append(s.history, log)
	if len(s.history) > historySize {
		s.history = s.history[len(s.history)-historySize:]
	}
	s.mu.Unlock()

	s.broker.Publish(EventLogCreated, log)
	return nil
}

func (s *service) ListRecent(limit int) []Log {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 || limit > len(s.history) {
		limit = len(s.history)
	}
	out := make([]Log, limit)
	copy(out, s.history[len(s.history)-limit:])
	return out
}

func (s *service) Subscribe(ctx context.Context) <-chan pubsub.Event[Log] {
	return s.broker.Subscribe(ctx)
}

func (s *service) Shutdown() {
	s.broker.Shutdown()
}

func Create(ctx context.Context, log Log) error {
	globalMu.Lock()
	s := globalService
	globalMu.Unlock()
	if s == nil {
		return nil
	}
	return s.Create(ctx, log)
}

// RecoverPanic is a common function to handle panics gracefully.
// It logs the error, creates a panic log file with stack trace,
// and executes an optional cleanup function.
func RecoverPanic(name string, cleanup func()) {
	if r := recover(); r != nil {
		errorMsg := fmt.Sprintf("Panic in %s: %v", name, r)
		// Use slog directly here, as our service might be the one panicking.
		slog.Error(errorMsg)

		timestamp := time.Now().Format("20060102-150405")
		filename := fmt.Sprintf("glint-panic-%s-%s.log", name, timestamp)

		file, err := os.Create(filename)
		if err != nil {
			slog.Error(fmt.Sprintf("Failed to create panic log file '%s': %v", filename, err))
		} else {
			defer file.Close()
			fmt.Fprintf(file, "Panic in %s: %v\n\n", name, r)
			fmt.Fprintf(file, "Time: %s\n\n", time.Now().Format(time.RFC3339))
			fmt.Fprintf(file, "Stack Trace:\n%s\n", string(debug.Stack()))
			slog.Info(fmt.Sprintf("Panic details written to %s", filename))
		}

		if cleanup != nil {
			cleanup()
		}
	}
}
