package ledger

import (
	"context"
	"sync"
)

// Notifier is a level-triggered wakeup primitive: a call to Notify issued
// before a call to Wait is still observed by that Wait, and spurious
// wakeups are tolerated by design (callers re-check their own condition
// after Wait returns).
//
// This is deliberately not a sync.Cond: Cond's Wait has no way to observe
// a context cancellation, and a notification sent with no waiter present
// is lost rather than latched for the next Wait.
type Notifier struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending bool
}

// NewNotifier creates a Notifier with no pending notification.
func NewNotifier() *Notifier {
	n := &Notifier{}
	n.cond = sync.NewCond(&n.mu)
	return n
}

// Notify marks a notification pending and wakes any current waiter. If no
// goroutine is waiting, the notification is latched for the next Wait
// call rather than lost.
func (n *Notifier) Notify() {
	n.mu.Lock()
	n.pending = true
	n.cond.Broadcast()
	n.mu.Unlock()
}

// Wait blocks until a notification is pending or ctx is canceled. A
// pending notification is consumed (cleared) by the call that observes
// it.
func (n *Notifier) Wait(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if n.pending {
		n.pending = false
		return nil
	}

	canceled := false
	stop := context.AfterFunc(ctx, func() {
		n.mu.Lock()
		canceled = true
		n.cond.Broadcast()
		n.mu.Unlock()
	})
	defer stop()

	for !n.pending && !canceled {
		n.cond.Wait()
	}
	if n.pending {
		n.pending = false
		return nil
	}
	return ctx.Err()
}
