// Package osd delivers user-visible messages to the host's on-screen display.
//
// The host owns rendering; this package only describes what to show, for how
// long and in which color, and routes it through a Notifier.
package osd

import (
	"log/slog"
	"sync"
	"time"

	"gamereporter/internal/logging"
)

// Color is an ARGB value understood by the host's message overlay.
type Color uint32

const (
	Cyan   Color = 0xFF00FFFF
	Green  Color = 0xFF00FF00
	Red    Color = 0xFFFF0000
	Yellow Color = 0xFFFFFF30
)

// Standard display durations.
const (
	Short    = 2 * time.Second
	Normal   = 5 * time.Second
	VeryLong = 10 * time.Second
)

// Message is one on-screen notification.
type Message struct {
	Color    Color
	Duration time.Duration
	Text     string
}

// Notifier shows messages to the player.
type Notifier interface {
	AddMessage(msg Message)
}

// Func adapts a plain function to a Notifier.
type Func func(Message)

func (f Func) AddMessage(msg Message) {
	if f != nil {
		f(msg)
	}
}

// Noop drops every message.
type Noop struct{}

func (Noop) AddMessage(Message) {}

// LogNotifier writes messages to a logger; used when no host overlay is attached.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) AddMessage(msg Message) {
	logger := n.Logger
	if logger == nil {
		return
	}
	logger.Warn("on-screen message",
		logging.String(logging.FieldEventType, "osd_message"),
		logging.String("text", msg.Text),
		logging.Duration("duration", msg.Duration),
		logging.Any("color", msg.Color),
	)
}

// Recorder keeps every message it receives. Safe for concurrent use.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

func (r *Recorder) AddMessage(msg Message) {
	r.mu.Lock()
	r.messages = append(r.messages, msg)
	r.mu.Unlock()
}

// Messages returns a copy of the recorded messages.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}
