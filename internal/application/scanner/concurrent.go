package scanner

// concurrent.go: worker pool for parallel path simulation. A large base
// currency on a big exchange yields thousands of triangles per snapshot;
// fanning the pure math across cores keeps the scan well under the tick.

import (
	"runtime"
	"sync"
	"time"

	"github.com/areebasiddiqi/triarb/internal/domain"
)

// simulateConcurrent evaluates every catalog path against the snapshot using
// a worker pool. Results come back in catalog order so the caller's ranking
// is stable; paths that fail simulation (stale sides) are dropped.
//
// If workers <= 0 it uses runtime.NumCPU().
func simulateConcurrent(snap domain.Snapshot, catalog []domain.Path, input float64, workers int) []domain.Opportunity {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(catalog) {
		workers = len(catalog)
	}

	now := time.Now().UTC()
	results := make([]*domain.Opportunity, len(catalog))

	idxCh := make(chan int, len(catalog))
	for i := range catalog {
		idxCh <- i
	}
	close(idxCh)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idxCh {
				output, ok := domain.SimulatePath(catalog[i], snap, input)
				if !ok {
					continue // stale snapshot for this path
				}
				opp := domain.NewOpportunity(catalog[i], input, output, now)
				results[i] = &opp
			}
		}()
	}
	wg.Wait()

	opps := make([]domain.Opportunity, 0, len(catalog))
	for _, r := range results {
		if r != nil {
			opps = append(opps, *r)
		}
	}
	return opps
}
