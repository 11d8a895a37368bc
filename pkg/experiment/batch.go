package experiment

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/eth-easl/perfcost/pkg/faas"
)

// BatchEntry is the outcome-or-failure of one invocation within a batch.
// Exactly one of Outcome and Err is set.
type BatchEntry struct {
	Outcome *faas.InvocationOutcome
	Err     error
}

// Batcher issues fixed-size batches of concurrent synchronous invocations.
// A batch blocks until every invocation has completed or failed; one remote
// failure never discards the sibling results.
type Batcher struct {
	trigger     faas.Trigger
	concurrency int
}

func NewBatcher(trigger faas.Trigger, concurrency int) *Batcher {
	return &Batcher{trigger: trigger, concurrency: concurrency}
}

// Invoke runs one batch and returns all entries. Ordering across the batch
// carries no meaning; callers treat the result as an unordered set.
func (b *Batcher) Invoke(payload map[string]interface{}) []BatchEntry {
	entries := make(chan BatchEntry, b.concurrency)

	var allDone sync.WaitGroup
	allDone.Add(b.concurrency)
	for i := 0; i < b.concurrency; i++ {
		go func() {
			defer allDone.Done()

			outcome, err := b.trigger.SyncInvoke(payload)
			if err != nil {
				log.Debugf("invocation failed - %s", err)
				entries <- BatchEntry{Err: err}
				return
			}
			entries <- BatchEntry{Outcome: outcome}
		}()
	}
	allDone.Wait()
	close(entries)

	batch := make([]BatchEntry, 0, b.concurrency)
	for entry := range entries {
		batch = append(batch, entry)
	}
	return batch
}
