// Package notify carries transient success/error messages from the board to
// whatever presents them.
package notify

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// DefaultDuration is how long a notification stays visible.
const DefaultDuration = 3 * time.Second

// Kind is the visual class of a notification.
type Kind int

const (
	Success Kind = iota
	Error
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Notification is a transient, auto-dismissing status message.
type Notification struct {
	Message  string
	Kind     Kind
	Duration time.Duration
	At       time.Time
}

// Expired reports whether the notification should no longer be shown at now.
func (n Notification) Expired(now time.Time) bool {
	return !now.Before(n.At.Add(n.Duration))
}

// Sink receives notifications.
type Sink interface {
	Notify(n Notification)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(n Notification)

// Notify implements Sink.
func (f SinkFunc) Notify(n Notification) { f(n) }

// Discard drops every notification.
var Discard Sink = SinkFunc(func(Notification) {})

// NewSuccess builds a success notification with the default duration.
func NewSuccess(msg string) Notification {
	return Notification{Message: msg, Kind: Success, Duration: DefaultDuration, At: time.Now()}
}

// NewError builds an error notification with the default duration.
func NewError(msg string) Notification {
	return Notification{Message: msg, Kind: Error, Duration: DefaultDuration, At: time.Now()}
}

// Writer prints notifications to a terminal.
// Success goes to Out unless Quiet; errors go to ErrOut as "error: <msg>".
type Writer struct {
	mu     sync.Mutex
	Out    io.Writer
	ErrOut io.Writer
	Quiet  bool
}

// NewWriter returns a Writer.
func NewWriter(out, errOut io.Writer, quiet bool) *Writer {
	return &Writer{Out: out, ErrOut: errOut, Quiet: quiet}
}

// Notify implements Sink.
func (w *Writer) Notify(n Notification) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if n.Kind == Error {
		fmt.Fprintf(w.ErrOut, "error: %s\n", n.Message)
		return
	}
	if !w.Quiet {
		fmt.Fprintln(w.Out, n.Message)
	}
}

// Recorder keeps every notification it receives. Safe for concurrent use.
type Recorder struct {
	mu  sync.Mutex
	all []Notification
}

// Notify implements Sink.
func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.all = append(r.all, n)
}

// All returns a copy of every recorded notification in arrival order.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.all))
	copy(out, r.all)
	return out
}

// Messages returns the recorded messages in arrival order.
func (r *Recorder) Messages() []string {
	all := r.All()
	msgs := make([]string, len(all))
	for i, n := range all {
		msgs[i] = n.Message
	}
	return msgs
}

// Last returns the most recent notification.
func (r *Recorder) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.all) == 0 {
		return Notification{}, false
	}
	return r.all[len(r.all)-1], true
}

// Active returns the notifications still visible at now.
func (r *Recorder) Active(now time.Time) []Notification {
	var active []Notification
	for _, n := range r.All() {
		if !n.Expired(now) {
			active = append(active, n)
		}
	}
	return active
}

// Reset forgets every recorded notification.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.all = nil
}

// Multi fans a notification out to several sinks.
func Multi(sinks ...Sink) Sink {
	return SinkFunc(func(n Notification) {
		for _, s := range sinks {
			s.Notify(n)
		}
	})
}
