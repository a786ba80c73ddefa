package media

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/webscrape/internal/model"
)

// DefaultWorkers is the pool size used when none is given.
const DefaultWorkers = 4

// Pool runs downloads for one page on a bounded number of goroutines.
type Pool struct {
	acquirer *Acquirer
	workers  int
}

// NewPool creates a Pool. workers <= 0 selects DefaultWorkers; 1 makes
// downloads strictly sequential.
func NewPool(acquirer *Acquirer, workers int) *Pool {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Pool{acquirer: acquirer, workers: workers}
}

// Download fetches every reference into root and returns the results in
// the order of refs. A failed download never affects its siblings. After
// ctx is cancelled the remaining references are marked skipped without a
// request.
func (p *Pool) Download(ctx context.Context, refs []model.MediaReference, root string) []model.DownloadResult {
	results := make([]model.DownloadResult, len(refs))

	var g errgroup.Group
	g.SetLimit(p.workers)
	for i, ref := range refs {
		g.Go(func() error {
			results[i] = p.acquirer.Acquire(ctx, ref, root)
			return nil
		})
	}
	_ = g.Wait()

	return results
}
