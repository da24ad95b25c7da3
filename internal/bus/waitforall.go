package bus

import (
	"context"
	"sync"

	"github.com/pv/sensapp/internal/storage"
)

// WaitForAll is a fan-in primitive: it tracks an expected number of
// completions (nb_started) and fires once every one of them has reported in
// (nb_finished). It is the portable shape of "await N independent
// completions" without coupling callers to the bus's subscriber list.
type WaitForAll struct {
	mu       sync.Mutex
	started  int
	finished int
	waiters  []chan struct{}
}

func NewWaitForAll() *WaitForAll {
	return &WaitForAll{}
}

// Add registers one expected completion and spawns a goroutine awaiting a
// single value on ack. nb_finished is incremented once ack fires; if the
// counters are then balanced, every current waiter is released.
func (w *WaitForAll) Add(ack <-chan storage.Sync) {
	w.mu.Lock()
	w.started++
	w.mu.Unlock()

	go func() {
		<-ack
		w.mu.Lock()
		w.finished++
		balanced := w.finished == w.started
		var released []chan struct{}
		if balanced {
			released, w.waiters = w.waiters, nil
		}
		w.mu.Unlock()
		for _, c := range released {
			close(c)
		}
	}()
}

// Absorb folds another WaitForAll into this one as a single expected
// completion: it counts as started now, and finished once other balances.
// Used to combine the per-batch waiters from a multi-batch drain into one
// composite waiter.
func (w *WaitForAll) Absorb(other *WaitForAll) {
	w.mu.Lock()
	w.started++
	w.mu.Unlock()

	go func() {
		_ = other.Wait(context.Background())
		w.mu.Lock()
		w.finished++
		balanced := w.finished == w.started
		var released []chan struct{}
		if balanced {
			released, w.waiters = w.waiters, nil
		}
		w.mu.Unlock()
		for _, c := range released {
			close(c)
		}
	}()
}

// Wait blocks until every added completion has reported in, or ctx is
// cancelled. If already balanced (including the zero-subscriber case,
// where started == finished == 0) it returns immediately.
func (w *WaitForAll) Wait(ctx context.Context) error {
	w.mu.Lock()
	if w.started == w.finished {
		w.mu.Unlock()
		return nil
	}
	done := make(chan struct{})
	w.waiters = append(w.waiters, done)
	w.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Started and Finished expose the counters for tests and diagnostics.
func (w *WaitForAll) Started() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.started
}

func (w *WaitForAll) Finished() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.finished
}
