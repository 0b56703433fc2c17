package remote

import (
	"sync"
	"time"
)

// Lifecycle shuts the server down after a period without requests.
// A zero timeout disables the idle shutdown.
type Lifecycle struct {
	mu           sync.Mutex
	timer        *time.Timer
	lastActivity time.Time
	timeout      time.Duration
	done         chan struct{}
	once         sync.Once
}

// NewLifecycle creates a lifecycle with the given idle timeout.
func NewLifecycle(timeout time.Duration) *Lifecycle {
	l := &Lifecycle{
		lastActivity: time.Now(),
		timeout:      timeout,
		done:         make(chan struct{}),
	}
	if timeout > 0 {
		l.timer = time.AfterFunc(timeout, l.trigger)
	}
	return l
}

// Touch records activity and restarts the idle timer.
func (l *Lifecycle) Touch() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastActivity = time.Now()
	if l.timer != nil {
		l.timer.Reset(l.timeout)
	}
}

// IdleRemaining returns the time left before the idle shutdown, or zero when disabled.
func (l *Lifecycle) IdleRemaining() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.timeout <= 0 {
		return 0
	}
	return max(l.timeout-time.Since(l.lastActivity), 0)
}

// Done is closed when the server should stop.
func (l *Lifecycle) Done() <-chan struct{} {
	return l.done
}

// Stop cancels the idle timer and triggers shutdown.
func (l *Lifecycle) Stop() {
	l.mu.Lock()
	if l.timer != nil {
		l.timer.Stop()
	}
	l.mu.Unlock()
	l.trigger()
}

func (l *Lifecycle) trigger() {
	l.once.Do(func() {
		close(l.done)
	})
}
