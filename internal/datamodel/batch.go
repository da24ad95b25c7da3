package datamodel

import "sync"

// SingleSensorBatch holds the ordered samples accumulated for one sensor.
// Samples is guarded by a read-write lock so Len can be computed
// concurrently with Append, matching the concurrency model callers rely on
// when a batch is being drained by one goroutine while another inspects it.
type SingleSensorBatch struct {
	Sensor *Sensor

	mu      sync.RWMutex
	samples TypedSamples
}

func NewSingleSensorBatch(sensor *Sensor, samples TypedSamples) *SingleSensorBatch {
	return &SingleSensorBatch{Sensor: sensor, samples: samples}
}

// Append adds samples to the batch, failing with ErrTypeMismatch if the
// variant disagrees with what the batch already holds.
func (b *SingleSensorBatch) Append(samples TypedSamples) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.samples.Append(samples)
}

// Len returns the number of samples currently held.
func (b *SingleSensorBatch) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.samples.Len()
}

// Samples returns a snapshot of the held samples.
func (b *SingleSensorBatch) Samples() TypedSamples {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.samples
}

// TakeSamples clears the batch's samples, returning what was held. The
// receiver is left holding an empty TypedSamples of the same variant.
func (b *SingleSensorBatch) TakeSamples() TypedSamples {
	b.mu.Lock()
	defer b.mu.Unlock()
	taken := b.samples
	b.samples = b.samples.CloneEmpty()
	return taken
}

// Batch is a unit of work handed to storage: an ordered sequence of
// per-sensor sample sets, published and acknowledged atomically.
type Batch struct {
	Sensors []*SingleSensorBatch
}

// Len sums the length of every SingleSensorBatch in the batch.
func (b *Batch) Len() int {
	total := 0
	for _, s := range b.Sensors {
		total += s.Len()
	}
	return total
}

func (b *Batch) IsEmpty() bool {
	return b.Len() == 0
}
