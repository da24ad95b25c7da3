package batching

import (
	"context"
	"testing"
	"time"

	"github.com/pv/sensapp/internal/bus"
	"github.com/pv/sensapp/internal/datamodel"
	"github.com/pv/sensapp/internal/storage"
)

func intSamples(n int) datamodel.TypedSamples {
	ts := datamodel.TypedSamples{Kind: datamodel.KindInteger}
	for i := 0; i < n; i++ {
		ts.Integers = append(ts.Integers, datamodel.IntegerSample{Time: time.Unix(int64(i), 0), Value: int64(i)})
	}
	return ts
}

func sensor(name string) *datamodel.Sensor {
	return datamodel.NewDerivedSensor(name, datamodel.KindInteger, nil, nil, "test-salt")
}

func TestFFDSeedScenario(t *testing.T) {
	bb := New(5)
	if err := bb.Add(sensor("a"), intSamples(3)); err != nil {
		t.Fatal(err)
	}
	if err := bb.Add(sensor("b"), intSamples(2)); err != nil {
		t.Fatal(err)
	}
	if err := bb.Add(sensor("c"), intSamples(1)); err != nil {
		t.Fatal(err)
	}
	if err := bb.Add(sensor("c"), intSamples(1)); err != nil {
		t.Fatal(err)
	}

	batches := bb.drain()
	if len(batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(batches))
	}
	lengths := []int{batches[0].Len(), batches[1].Len()}
	if lengths[0] != 5 || lengths[1] != 2 {
		t.Fatalf("expected batch lengths [5 2], got %v", lengths)
	}
}

func TestBatchSizeEqualsTotalLength(t *testing.T) {
	bb := New(10)
	if err := bb.Add(sensor("a"), intSamples(6)); err != nil {
		t.Fatal(err)
	}
	if err := bb.Add(sensor("b"), intSamples(4)); err != nil {
		t.Fatal(err)
	}
	batches := bb.drain()
	if len(batches) != 1 {
		t.Fatalf("expected exactly one output batch, got %d", len(batches))
	}
	if batches[0].Len() != 10 {
		t.Fatalf("expected batch len 10, got %d", batches[0].Len())
	}
}

func TestBatchSizeOneProducesNBatches(t *testing.T) {
	bb := New(1)
	if err := bb.Add(sensor("a"), intSamples(2)); err != nil {
		t.Fatal(err)
	}
	if err := bb.Add(sensor("b"), intSamples(3)); err != nil {
		t.Fatal(err)
	}
	batches := bb.drain()
	if len(batches) != 5 {
		t.Fatalf("expected 5 single-sample batches, got %d", len(batches))
	}
	for _, b := range batches {
		if b.Len() != 1 {
			t.Fatalf("expected every batch to have len 1, got %d", b.Len())
		}
	}
}

func TestSendWhatIsLeftEmptiesBuilder(t *testing.T) {
	b := bus.NewEventBus("t", 8)
	sub := b.Subscribe()
	bb := New(100)
	if err := bb.Add(sensor("a"), intSamples(3)); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		msg := <-sub
		msg.Ack <- storage.Sync{}
		close(done)
	}()

	wf, err := bb.SendWhatIsLeft(context.Background(), b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wf == nil {
		t.Fatalf("expected non-nil waiter")
	}
	<-done
	if err := wf.Wait(context.Background()); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if bb.Len() != 0 {
		t.Fatalf("expected builder to be empty after drain, got len %d", bb.Len())
	}
}

func TestSendWhatIsLeftNoopWhenEmpty(t *testing.T) {
	b := bus.NewEventBus("t", 8)
	bb := New(100)
	wf, err := bb.SendWhatIsLeft(context.Background(), b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wf != nil {
		t.Fatalf("expected nil waiter for empty builder")
	}
}

func TestAddTypeMismatch(t *testing.T) {
	bb := New(10)
	s := sensor("a")
	if err := bb.Add(s, intSamples(1)); err != nil {
		t.Fatal(err)
	}
	floatSamples := datamodel.TypedSamples{Kind: datamodel.KindFloat, Floats: []datamodel.FloatSample{{Time: time.Unix(0, 0), Value: 1.0}}}
	if err := bb.Add(s, floatSamples); err == nil {
		t.Fatalf("expected TypeMismatch appending Float onto Integer sensor")
	}
}
