// Package notify carries the short operator-facing messages emitted by the
// lifecycle controller and the dashboard session.
package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Level classifies a notice.
type Level string

const (
	Info    Level = "info"
	Success Level = "success"
	Error   Level = "error"
)

// Notice is one message for the operator.
type Notice struct {
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Notifier publishes notices.
type Notifier interface {
	Notify(ctx context.Context, level Level, msg string)
}

// Log writes every notice to a structured logger.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Notify(ctx context.Context, level Level, msg string) {
	lvl := slog.LevelInfo
	if level == Error {
		lvl = slog.LevelWarn
	}
	l.logger.Log(ctx, lvl, "notification", "kind", string(level), "message", msg)
}

// Writer prints each notice on its own line.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (p *Writer) Notify(_ context.Context, level Level, msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = fmt.Fprintf(p.w, "[%s] %s\n", level, msg)
}

// Buffer keeps the most recent notices until they are drained for display.
type Buffer struct {
	mu      sync.Mutex
	limit   int
	notices []Notice
	now     func() time.Time
}

// NewBuffer returns a Buffer holding at most limit notices; older ones are
// dropped first.
func NewBuffer(limit int) *Buffer {
	if limit <= 0 {
		limit = 1
	}
	return &Buffer{limit: limit, now: time.Now}
}

func (b *Buffer) Notify(_ context.Context, level Level, msg string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.notices = append(b.notices, Notice{Level: level, Message: msg, At: b.now()})
	if over := len(b.notices) - b.limit; over > 0 {
		b.notices = append([]Notice(nil), b.notices[over:]...)
	}
}

// Drain returns the buffered notices, oldest first, and empties the buffer.
func (b *Buffer) Drain() []Notice {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := b.notices
	b.notices = nil
	if out == nil {
		return []Notice{}
	}
	return out
}

// Multi fans a notice out to several notifiers.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, level Level, msg string) {
	for _, n := range m {
		n.Notify(ctx, level, msg)
	}
}

// Recorder remembers every notice; handy in tests.
type Recorder struct {
	mu      sync.Mutex
	Notices []Notice
}

func (r *Recorder) Notify(_ context.Context, level Level, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Notices = append(r.Notices, Notice{Level: level, Message: msg})
}

// Last returns the most recent notice, or the zero Notice.
func (r *Recorder) Last() Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Notices) == 0 {
		return Notice{}
	}
	return r.Notices[len(r.Notices)-1]
}
