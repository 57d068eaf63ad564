// Package notify holds the transient status message shown after commands.
package notify

import (
	"sync"
	"time"

	"pipeline-dashboard-go/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Notifier shows one message at a time. Every message hides itself after the
// display duration; showing a new message cancels the pending hide of the
// previous one, so at most one hide transition is ever pending.
type Notifier struct {
	logger   *zap.Logger
	duration time.Duration

	mu       sync.Mutex
	current  models.Message
	timer    *time.Timer
	gen      uint64
	hides    int
	onChange func(models.Message)
}

// New creates a notifier whose messages stay visible for duration.
func New(duration time.Duration, logger *zap.Logger) *Notifier {
	return &Notifier{
		logger:   logger.Named("notify"),
		duration: duration,
		current:  models.Message{Bottom: models.MessageBottomHidden, Success: true},
	}
}

// OnChange registers fn to be called with every new message state.
// fn runs outside the notifier lock.
func (n *Notifier) OnChange(fn func(models.Message)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onChange = fn
}

// Show displays text and schedules it to hide.
func (n *Notifier) Show(text string, success bool) models.Message {
	n.mu.Lock()
	if n.timer != nil {
		n.timer.Stop()
	}
	n.gen++
	gen := n.gen
	n.current = models.Message{
		ID:      uuid.NewString(),
		Show:    true,
		Text:    text,
		Success: success,
		Bottom:  models.MessageBottomShown,
	}
	n.timer = time.AfterFunc(n.duration, func() { n.hide(gen) })
	msg, fn := n.current, n.onChange
	n.mu.Unlock()

	n.logger.Debug("Showing message", zap.String("text", text), zap.Bool("success", success))
	if fn != nil {
		fn(msg)
	}
	return msg
}

// hide slides the message out unless a newer one replaced it meanwhile.
func (n *Notifier) hide(gen uint64) {
	n.mu.Lock()
	if gen != n.gen {
		n.mu.Unlock()
		return
	}
	n.timer = nil
	n.hides++
	n.current.Show = false
	n.current.Bottom = models.MessageBottomHidden
	msg, fn := n.current, n.onChange
	n.mu.Unlock()

	if fn != nil {
		fn(msg)
	}
}

// Current returns the message state.
func (n *Notifier) Current() models.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// Pending reports whether a hide transition is scheduled.
func (n *Notifier) Pending() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.timer != nil
}

// Hides reports how many hide transitions have run.
func (n *Notifier) Hides() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.hides
}

// Stop cancels a pending hide. The current message is left as is.
func (n *Notifier) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	n.gen++
}
