package bus

import (
	"context"
	"testing"
	"time"

	"github.com/pv/sensapp/internal/datamodel"
	"github.com/pv/sensapp/internal/storage"
)

func TestPublishNoSubscribersDoesNotWait(t *testing.T) {
	b := NewEventBus("test", 4)
	wf, err := b.Publish(context.Background(), &datamodel.Batch{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := wf.Wait(ctx); err != nil {
		t.Fatalf("expected immediate return with zero subscribers, got %v", err)
	}
}

func TestPublishWaitsForEverySubscriber(t *testing.T) {
	b := NewEventBus("test", 4)
	sub1 := b.Subscribe()
	sub2 := b.Subscribe()

	wf, err := b.Publish(context.Background(), &datamodel.Batch{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msg1 := <-sub1
	msg2 := <-sub2

	done := make(chan error, 1)
	go func() {
		done <- wf.Wait(context.Background())
	}()

	select {
	case <-done:
		t.Fatalf("wait returned before any subscriber acked")
	case <-time.After(20 * time.Millisecond):
	}

	msg1.Ack <- storage.Sync{}
	select {
	case <-done:
		t.Fatalf("wait returned before second subscriber acked")
	case <-time.After(20 * time.Millisecond):
	}

	msg2.Ack <- storage.Sync{}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected wait error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("wait did not return after all subscribers acked")
	}
}

func TestPublishOrderWithinOneSubscriber(t *testing.T) {
	b := NewEventBus("test", 4)
	sub := b.Subscribe()

	first := &datamodel.Batch{}
	second := &datamodel.Batch{}
	if _, err := b.Publish(context.Background(), first); err != nil {
		t.Fatalf("publish 1: %v", err)
	}
	if _, err := b.Publish(context.Background(), second); err != nil {
		t.Fatalf("publish 2: %v", err)
	}

	m1 := <-sub
	m2 := <-sub
	if m1.Batch != first || m2.Batch != second {
		t.Fatalf("expected publish order preserved within one subscriber")
	}
}
