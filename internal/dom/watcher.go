package dom

import (
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/reanchor/internal/engine"
)

// DefaultDebounce is the settling period before a change is delivered.
const DefaultDebounce = 50 * time.Millisecond

// Watcher debounces document changes into engine notifications.
// It implements engine.ChangeSource.
//
// Pause/Resume nest. While paused, notifications are dropped rather than
// deferred: changes seen during a pause are the engine's own writes, and a
// pending delivery is cancelled because the pass that paused the watcher
// already sees the document as it is.
type Watcher struct {
	mu       sync.Mutex
	debounce time.Duration
	poll     time.Duration

	subs   map[int]func(engine.ChangeReason)
	nextID int

	paused  int
	pending engine.ChangeReason
	timer   *time.Timer

	stop   chan struct{}
	closed bool
	wg     sync.WaitGroup
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the settling period. Zero delivers synchronously.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// WithPollInterval enables the fallback poll. Zero disables it.
func WithPollInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.poll = d
	}
}

// NewWatcher creates a Watcher. If a poll interval is set, a background
// goroutine delivers ChangePoll until Close.
func NewWatcher(opts ...WatcherOption) *Watcher {
	w := &Watcher{
		debounce: DefaultDebounce,
		subs:     make(map[int]func(engine.ChangeReason)),
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	if w.poll > 0 {
		w.wg.Add(1)
		go w.pollLoop()
	}
	return w
}

// Subscribe registers fn and returns its unsubscribe function.
func (w *Watcher) Subscribe(fn func(engine.ChangeReason)) func() {
	w.mu.Lock()
	defer w.mu.Unlock()

	id := w.nextID
	w.nextID++
	w.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			delete(w.subs, id)
		})
	}
}

// Pause suppresses delivery until the matching Resume.
func (w *Watcher) Pause() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.paused++
	w.cancelPendingLocked()
}

// Resume undoes one Pause.
func (w *Watcher) Resume() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.paused == 0 {
		slog.Warn("watcher resumed without matching pause")
		return
	}
	w.paused--
}

// Paused reports whether delivery is currently suppressed.
func (w *Watcher) Paused() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.paused > 0
}

// Notify records a change. Delivery happens once no further change has
// been recorded for the debounce period.
func (w *Watcher) Notify(reason engine.ChangeReason) {
	w.mu.Lock()
	if w.closed || w.paused > 0 {
		w.mu.Unlock()
		return
	}

	if w.debounce <= 0 {
		w.mu.Unlock()
		w.deliver(reason)
		return
	}

	w.pending = reason
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
	w.mu.Unlock()
}

// flush delivers the pending change, if any survived.
func (w *Watcher) flush() {
	w.mu.Lock()
	reason := w.pending
	w.pending = 0
	w.timer = nil
	suppressed := w.closed || w.paused > 0
	w.mu.Unlock()

	if reason == 0 || suppressed {
		return
	}
	w.deliver(reason)
}

func (w *Watcher) deliver(reason engine.ChangeReason) {
	w.mu.Lock()
	if w.paused > 0 {
		w.mu.Unlock()
		return
	}
	subs := make([]func(engine.ChangeReason), 0, len(w.subs))
	for _, fn := range w.subs {
		subs = append(subs, fn)
	}
	w.mu.Unlock()

	for _, fn := range subs {
		fn(reason)
	}
}

func (w *Watcher) pollLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			w.deliver(engine.ChangePoll)
		}
	}
}

// cancelPendingLocked drops a scheduled delivery. Callers must hold w.mu.
func (w *Watcher) cancelPendingLocked() {
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.pending = 0
}

// Close stops the poll goroutine and cancels pending deliveries.
func (w *Watcher) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.cancelPendingLocked()
	close(w.stop)
	w.mu.Unlock()

	w.wg.Wait()
}
