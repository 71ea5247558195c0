// Package notify is the user-visible side channel: the terminal equivalent
// of a toast message. Components report outcomes here in addition to logging.
package notify

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Level is the severity of a user notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Message is one user-visible notification.
type Message struct {
	Level Level
	Text  string
}

// Notifier delivers messages to the user.
type Notifier interface {
	Notify(ctx context.Context, msg Message)
}

// NotifierFunc adapts a function to the Notifier interface (useful for tests).
type NotifierFunc func(ctx context.Context, msg Message)

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, msg Message) {
	if f == nil {
		return
	}
	f(ctx, msg)
}

// Discard drops every message.
var Discard Notifier = NotifierFunc(nil)

// Success sends a success message.
func Success(ctx context.Context, n Notifier, text string) {
	n.Notify(ctx, Message{Level: LevelSuccess, Text: text})
}

// Warning sends a warning message.
func Warning(ctx context.Context, n Notifier, text string) {
	n.Notify(ctx, Message{Level: LevelWarning, Text: text})
}

// Error sends an error message.
func Error(ctx context.Context, n Notifier, text string) {
	n.Notify(ctx, Message{Level: LevelError, Text: text})
}

// Writer prints messages as single lines, e.g. "warning: bad credentials".
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriter returns a Notifier printing to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Notify implements Notifier.
func (n *Writer) Notify(_ context.Context, msg Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintf(n.w, "%s: %s\n", msg.Level, msg.Text)
}

// Recorder keeps every message in memory.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

// Notify implements Notifier.
func (r *Recorder) Notify(_ context.Context, msg Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
}

// Messages returns a copy of the recorded messages.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// Count returns how many messages of the given level were recorded.
func (r *Recorder) Count(level Level) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.messages {
		if m.Level == level {
			n++
		}
	}
	return n
}

// Reset forgets all recorded messages.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = nil
}

// Drain returns the recorded messages and forgets them.
func (r *Recorder) Drain() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.messages
	r.messages = nil
	return out
}

// Multi fans every message out to each notifier in order.
func Multi(ns ...Notifier) Notifier {
	return NotifierFunc(func(ctx context.Context, msg Message) {
		for _, n := range ns {
			if n != nil {
				n.Notify(ctx, msg)
			}
		}
	})
}
