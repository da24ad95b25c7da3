// Package batching implements the per-sensor sample accumulator that groups
// incoming samples into size-bounded batches via First-Fit-Decreasing
// bin-packing, grounded on the original Rust BatchBuilder.
package batching

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/pv/sensapp/internal/bus"
	"github.com/pv/sensapp/internal/datamodel"
)

// BatchBuilder accumulates samples keyed by sensor UUID and drains them into
// one or more Batch values, each capped at BatchSize total elements. It is
// not safe for concurrent mutation: callers must serialize Add calls, per
// spec's concurrency model.
type BatchBuilder struct {
	batchSize int

	mu      sync.RWMutex
	order   []uuid.UUID
	entries map[uuid.UUID]*datamodel.SingleSensorBatch
}

func New(batchSize int) *BatchBuilder {
	if batchSize < 1 {
		batchSize = 1
	}
	return &BatchBuilder{
		batchSize: batchSize,
		entries:   make(map[uuid.UUID]*datamodel.SingleSensorBatch),
	}
}

// Add appends samples for sensor, creating a new entry if this is the first
// time this sensor's UUID has been seen. Fails with ErrTypeMismatch if the
// sensor already has samples of a different variant accumulated.
func (bb *BatchBuilder) Add(sensor *datamodel.Sensor, samples datamodel.TypedSamples) error {
	bb.mu.Lock()
	defer bb.mu.Unlock()

	if existing, ok := bb.entries[sensor.UUID]; ok {
		return existing.Append(samples)
	}
	bb.entries[sensor.UUID] = datamodel.NewSingleSensorBatch(sensor, samples)
	bb.order = append(bb.order, sensor.UUID)
	return nil
}

// Len returns the total number of samples currently accumulated across
// every sensor.
func (bb *BatchBuilder) Len() int {
	bb.mu.RLock()
	defer bb.mu.RUnlock()
	total := 0
	for _, e := range bb.entries {
		total += e.Len()
	}
	return total
}

// SendIfBatchFull drains and publishes only if the accumulated total has
// reached BatchSize; otherwise it is a no-op and returns nil.
func (bb *BatchBuilder) SendIfBatchFull(ctx context.Context, b *bus.EventBus) (*bus.WaitForAll, error) {
	if bb.Len() < bb.batchSize {
		return nil, nil
	}
	return bb.drainAndPublish(ctx, b)
}

// SendWhatIsLeft drains and publishes whatever remains, if anything.
func (bb *BatchBuilder) SendWhatIsLeft(ctx context.Context, b *bus.EventBus) (*bus.WaitForAll, error) {
	if bb.Len() == 0 {
		return nil, nil
	}
	return bb.drainAndPublish(ctx, b)
}

func (bb *BatchBuilder) drainAndPublish(ctx context.Context, b *bus.EventBus) (*bus.WaitForAll, error) {
	batches := bb.drain()
	if len(batches) == 0 {
		return nil, nil
	}
	composite := bus.NewWaitForAll()
	for _, batch := range batches {
		wf, err := b.Publish(ctx, batch)
		if err != nil {
			return nil, err
		}
		composite.Absorb(wf)
	}
	return composite, nil
}

// drain empties the builder and returns one or more Batch values per the
// drain policy in spec.md §4.2: a single batch if the total fits within
// BatchSize, otherwise First-Fit-Decreasing bin-packing over per-sensor
// chunks. After this call the builder's internal map is empty.
func (bb *BatchBuilder) drain() []*datamodel.Batch {
	bb.mu.Lock()
	entries := make([]*datamodel.SingleSensorBatch, 0, len(bb.order))
	for _, id := range bb.order {
		entries = append(entries, bb.entries[id])
	}
	bb.entries = make(map[uuid.UUID]*datamodel.SingleSensorBatch)
	bb.order = nil
	bb.mu.Unlock()

	total := 0
	for _, e := range entries {
		total += e.Len()
	}
	if total == 0 {
		return nil
	}
	if total <= bb.batchSize {
		return []*datamodel.Batch{{Sensors: entries}}
	}
	return ffdBinPack(entries, bb.batchSize)
}

type chunkRef struct {
	sensor *datamodel.Sensor
	data   datamodel.TypedSamples
}

// ffdBinPack implements the First-Fit-Decreasing pass: chunk every sensor's
// samples into runs of at most capacity elements, sort the chunk indices by
// descending length (stable, so equal-length chunks keep insertion order),
// then place each chunk into the first bin with enough remaining capacity,
// opening a new bin when none fits.
func ffdBinPack(entries []*datamodel.SingleSensorBatch, capacity int) []*datamodel.Batch {
	var chunks []chunkRef
	for _, e := range entries {
		samples := e.TakeSamples()
		for _, c := range samples.Chunk(capacity) {
			chunks = append(chunks, chunkRef{sensor: e.Sensor, data: c})
		}
	}

	order := make([]int, len(chunks))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return chunks[order[i]].data.Len() > chunks[order[j]].data.Len()
	})

	type bin struct {
		remaining int
		byUUID    map[uuid.UUID]*datamodel.SingleSensorBatch
		order     []uuid.UUID
	}
	var bins []*bin

	for _, idx := range order {
		c := chunks[idx]
		n := c.data.Len()
		placed := false
		for _, b := range bins {
			if b.remaining >= n {
				placeChunk(b.byUUID, &b.order, c)
				b.remaining -= n
				placed = true
				break
			}
		}
		if !placed {
			nb := &bin{remaining: capacity - n, byUUID: make(map[uuid.UUID]*datamodel.SingleSensorBatch)}
			placeChunk(nb.byUUID, &nb.order, c)
			bins = append(bins, nb)
		}
	}

	batches := make([]*datamodel.Batch, 0, len(bins))
	for _, b := range bins {
		sensors := make([]*datamodel.SingleSensorBatch, 0, len(b.order))
		for _, id := range b.order {
			sensors = append(sensors, b.byUUID[id])
		}
		batches = append(batches, &datamodel.Batch{Sensors: sensors})
	}
	return batches
}

func placeChunk(byUUID map[uuid.UUID]*datamodel.SingleSensorBatch, order *[]uuid.UUID, c chunkRef) {
	if existing, ok := byUUID[c.sensor.UUID]; ok {
		_ = existing.Append(c.data)
		return
	}
	byUUID[c.sensor.UUID] = datamodel.NewSingleSensorBatch(c.sensor, c.data)
	*order = append(*order, c.sensor.UUID)
}
