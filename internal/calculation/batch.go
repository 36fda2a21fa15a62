package calculation

import (
	"context"
	"runtime"
	"sync"

	"github.com/rgehrsitz/donormatch/internal/domain"
)

// Request is one household to impute with its draw.
type Request struct {
	Household *domain.Household
	Draw      domain.Draw
}

// BatchResult pairs an imputation with its error. Results are returned in
// request order.
type BatchResult struct {
	Imputation *domain.Imputation
	Err        error
}

// ImputeBatch imputes requests on up to workers goroutines. Cancelling ctx
// stops workers from picking up further requests; those requests report
// ctx.Err(). workers <= 0 uses GOMAXPROCS.
func (e *Engine) ImputeBatch(ctx context.Context, requests []Request, workers int) []BatchResult {
	results := make([]BatchResult, len(requests))
	if len(requests) == 0 {
		return results
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, len(requests))

	jobs := make(chan int, len(requests))
	for i := range requests {
		jobs <- i
	}
	close(jobs)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if err := ctx.Err(); err != nil {
					results[i] = BatchResult{Err: err}
					continue
				}
				req := requests[i]
				imp, err := e.Impute(req.Household, req.Draw)
				results[i] = BatchResult{Imputation: imp, Err: err}
			}
		}()
	}
	wg.Wait()

	e.Logger.Debugf("batch of %d imputations on %d workers done", len(requests), workers)
	return results
}
