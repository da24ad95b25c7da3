// Package bus implements the in-process broadcast channel that carries
// published batches from the BatchBuilder to every storage backend, plus
// the WaitForAll fan-in primitive used to await their sync acknowledgements.
package bus

import (
	"github.com/pv/sensapp/internal/datamodel"
	"github.com/pv/sensapp/internal/storage"
)

// Message is the only variant currently carried on the bus; the shape is an
// open tagged union so future message kinds can be added without touching
// existing subscribers.
type Message struct {
	Batch *datamodel.Batch
	// Ack is sent exactly once by the subscriber, after it has durably
	// committed (or made its best synchronous effort for) Batch.
	Ack chan<- storage.Sync
}
