// Package playlog writes an append-only NDJSON log of submitted answers.
package playlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
)

// Event is one submitted answer.
type Event struct {
	Timestamp   time.Time `json:"ts"`
	UserID      string    `json:"user_id"`
	SessionID   string    `json:"session_id"`
	Channel     string    `json:"channel"`
	QuizTitle   string    `json:"quiz_title"`
	Position    int       `json:"position"`
	AnswerIndex int       `json:"answer_index"`
	Correct     bool      `json:"correct"`
	Score       int       `json:"score"`
	Finished    bool      `json:"finished"`
}

// Logger records play events.
type Logger interface {
	Log(event Event)
	Close() error
}

// Config controls the file logger.
type Config struct {
	Enabled   bool
	Path      string
	QueueSize int
}

// New returns a file-backed logger, or a no-op logger when disabled.
func New(cfg Config, logger *slog.Logger) (Logger, error) {
	if !cfg.Enabled {
		return Nop{}, nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		return nil, fmt.Errorf("create play log directory: %w", err)
	}
	f, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open play log: %w", err)
	}

	l := &FileLogger{
		file:   f,
		queue:  make(chan Event, cfg.QueueSize),
		done:   make(chan struct{}),
		logger: logger,
	}
	go l.run()
	return l, nil
}

// FileLogger appends events to a file from a background goroutine. Log never
// blocks; events are dropped when the queue is full.
type FileLogger struct {
	file      *os.File
	queue     chan Event
	done      chan struct{}
	logger    *slog.Logger
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
	dropped   atomic.Int64
}

// Log enqueues an event.
func (l *FileLogger) Log(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return
	}
	select {
	case l.queue <- event:
	default:
		n := l.dropped.Add(1)
		l.logger.Warn("Play log queue full, dropping event", "user_id", event.UserID, "dropped", n)
	}
}

func (l *FileLogger) run() {
	defer close(l.done)

	w := bufio.NewWriter(l.file)
	enc := json.NewEncoder(w)
	for event := range l.queue {
		if err := enc.Encode(event); err != nil {
			l.logger.Warn("Failed to encode play event", "error", err)
			continue
		}
		if len(l.queue) == 0 {
			if err := w.Flush(); err != nil {
				l.logger.Warn("Failed to flush play log", "error", err)
			}
		}
	}
	if err := w.Flush(); err != nil {
		l.logger.Warn("Failed to flush play log", "error", err)
	}
}

// Close drains the queue and closes the file.
func (l *FileLogger) Close() error {
	var err error
	l.closeOnce.Do(func() {
		l.mu.Lock()
		l.closed = true
		close(l.queue)
		l.mu.Unlock()

		<-l.done
		err = l.file.Close()
	})
	return err
}

// Nop discards events.
type Nop struct{}

// Log discards the event.
func (Nop) Log(Event) {}

// Close is a no-op.
func (Nop) Close() error { return nil }
