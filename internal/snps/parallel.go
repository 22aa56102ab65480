package snps

import (
	"runtime"
	"sync"

	"github.com/evolab/bqh/internal/samples"
)

// workItem is a sample queued for loading.
type workItem struct {
	seq    int
	sample *samples.Sample
}

// workResult holds the calls loaded for a single sample.
type workResult struct {
	seq    int
	sample *samples.Sample
	calls  []*Call
	err    error
}

// parallelLoad loads call sets using a pool of workers.
// Results arrive in completion order; use orderedCollect to restore input order.
// If workers is 0, runtime.NumCPU() is used.
func (l *Loader) parallelLoad(items <-chan workItem, workers int) <-chan workResult {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make(chan workResult, 2*workers)

	var wg sync.WaitGroup
	wg.Add(workers)

	for range workers {
		go func() {
			defer wg.Done()
			for item := range items {
				calls, err := l.Load(item.sample.Path(CallSetFile))
				results <- workResult{
					seq:    item.seq,
					sample: item.sample,
					calls:  calls,
					err:    err,
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// orderedCollect calls fn for each result in sequence-number order,
// buffering results that arrive early. Blocks until results is closed.
func orderedCollect(results <-chan workResult, fn func(workResult) error) error {
	pending := make(map[int]workResult)
	nextSeq := 0

	for r := range results {
		pending[r.seq] = r

		for {
			rr, ok := pending[nextSeq]
			if !ok {
				break
			}
			delete(pending, nextSeq)
			nextSeq++
			if err := fn(rr); err != nil {
				// Drain remaining results to unblock workers.
				for range results {
				}
				return err
			}
		}
	}

	return nil
}
