package bus

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pv/sensapp/internal/datamodel"
	"github.com/pv/sensapp/internal/storage"
)

// DefaultCapacity is the default depth of each subscriber's inbox. It bounds
// in-flight batches per subscriber; a subscriber that falls behind by more
// than this depth back-pressures Publish.
const DefaultCapacity = 128

// EventBus fans a published batch out to every current subscriber (each
// storage backend attaches one) and hands the producer a WaitForAll that
// completes once every subscriber has acknowledged sync for that batch.
// Go has no broadcast-channel primitive in its standard library, so this
// implements the broadcast by maintaining one buffered channel per
// subscriber and sending the same Message on each — messages are delivered
// in publish order within one subscriber, with no cross-subscriber
// ordering guarantee, matching the bus's contract.
type EventBus struct {
	name     string
	capacity int

	mu          sync.Mutex
	subscribers []chan Message
}

func NewEventBus(name string, capacity int) *EventBus {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &EventBus{name: name, capacity: capacity}
}

func (b *EventBus) Name() string { return b.name }

// Subscribe attaches a new inbox to the bus and returns it for the caller
// (a storage backend's dispatch loop) to range over.
func (b *EventBus) Subscribe() <-chan Message {
	ch := make(chan Message, b.capacity)
	b.mu.Lock()
	b.subscribers = append(b.subscribers, ch)
	b.mu.Unlock()
	return ch
}

// Publish broadcasts batch to every current subscriber and returns a
// WaitForAll that fires once each of them has acknowledged. If Publish
// blocks because a subscriber's inbox is at capacity, this naturally
// throttles producers (back-pressure); ctx cancellation unblocks it with
// ctx.Err().
func (b *EventBus) Publish(ctx context.Context, batch *datamodel.Batch) (*WaitForAll, error) {
	b.mu.Lock()
	subs := append([]chan Message(nil), b.subscribers...)
	b.mu.Unlock()

	wf := NewWaitForAll()
	for _, sub := range subs {
		ack := make(chan storage.Sync, 1)
		wf.Add(ack)
		msg := Message{Batch: batch, Ack: ack}
		select {
		case sub <- msg:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return wf, nil
}

// SubscriberCount reports how many backends are currently attached.
func (b *EventBus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}

// AttachStorage subscribes store to the bus and runs its dispatch loop in a
// background goroutine until ctx is cancelled: every published Message is
// committed via store.Publish, and msg.Ack is signaled once that commit
// returns (successfully or not) so producers waiting on a WaitForAll are
// never left hanging on a backend that failed to commit.
func (b *EventBus) AttachStorage(ctx context.Context, store storage.Storage, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	inbox := b.Subscribe()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-inbox:
				if !ok {
					return
				}
				if err := store.Publish(ctx, msg.Batch, msg.Ack); err != nil {
					logger.Error("storage: publish failed", "bus", b.name, "error", err)
					msg.Ack <- storage.Sync{}
				}
			}
		}
	}()
}
