// Package notify is the warning channel between the game core and its host.
// The core reports anomalies (bad weights, exhausted spawn pools, invalid
// rates) as human-readable messages; the host decides how to surface them.
package notify

import (
	"sync"

	"go.uber.org/zap"
)

// Notifier receives warnings from the game core.
//
// Implementations MUST be safe for concurrent use.
type Notifier interface {
	Warn(msg string, fields ...zap.Field)
}

// logNotifier forwards warnings to a zap logger at Warn level.
type logNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier returns a Notifier that writes to logger.
//
// Precondition: logger must be non-nil.
func NewLogNotifier(logger *zap.Logger) Notifier {
	return &logNotifier{logger: logger}
}

func (n *logNotifier) Warn(msg string, fields ...zap.Field) {
	n.logger.Warn(msg, fields...)
}

type nop struct{}

func (nop) Warn(string, ...zap.Field) {}

// Nop returns a Notifier that discards everything.
func Nop() Notifier { return nop{} }

// OrNop returns n, or a no-op Notifier when n is nil.
func OrNop(n Notifier) Notifier {
	if n == nil {
		return nop{}
	}
	return n
}

// Recorder collects warning messages so a UI can drain them as toasts.
// An optional next Notifier receives every warning as well.
type Recorder struct {
	mu   sync.Mutex
	msgs []string
	next Notifier
}

// NewRecorder returns a Recorder that also forwards to next (may be nil).
func NewRecorder(next Notifier) *Recorder {
	return &Recorder{next: next}
}

func (r *Recorder) Warn(msg string, fields ...zap.Field) {
	r.mu.Lock()
	r.msgs = append(r.msgs, msg)
	r.mu.Unlock()
	if r.next != nil {
		r.next.Warn(msg, fields...)
	}
}

// Messages returns a copy of every recorded message in arrival order.
func (r *Recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.msgs...)
}

// Drain returns the recorded messages and clears the buffer.
func (r *Recorder) Drain() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.msgs
	r.msgs = nil
	return out
}
