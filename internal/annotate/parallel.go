package annotate

import (
	"runtime"
	"sync"

	"github.com/crs4/vispa/internal/site"
)

// WorkItem is a query site tagged with its position in the input.
type WorkItem struct {
	Seq  int
	Site *site.Site
}

// WorkResult carries the records found for one site, or the lookup error
// (e.g. an unknown chromosome) that prevented annotating it.
type WorkResult struct {
	Seq     int
	Site    *site.Site
	Records []*Record
	Err     error
}

// ParallelAnnotate looks up sites against the finalized index on a pool of
// workers. The index is read-only at this point, so workers share it without
// locking. Results arrive in completion order; OrderedCollect restores input
// order. A non-positive workers count means runtime.NumCPU().
func (a *Annotator) ParallelAnnotate(items <-chan WorkItem, workers int) <-chan WorkResult {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make(chan WorkResult, 2*workers)

	var wg sync.WaitGroup
	wg.Add(workers)

	for range workers {
		go func() {
			defer wg.Done()
			for item := range items {
				recs, err := a.Annotate(item.Site.Chrom, item.Site.Pos)
				results <- WorkResult{
					Seq:     item.Seq,
					Site:    item.Site,
					Records: recs,
					Err:     err,
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

// OrderedCollect hands results to fn in input order, holding back sites that
// finished early. If fn fails, the remaining results are drained so workers
// can exit, and the error is returned.
func OrderedCollect(results <-chan WorkResult, fn func(WorkResult) error) error {
	pending := make(map[int]WorkResult)
	nextSeq := 0

	for r := range results {
		pending[r.Seq] = r

		for {
			rr, ok := pending[nextSeq]
			if !ok {
				break
			}
			delete(pending, nextSeq)
			nextSeq++
			if err := fn(rr); err != nil {
				for range results {
				}
				return err
			}
		}
	}

	return nil
}
