package valuation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Item is one request's outcome within a batch. Exactly one of Result and Err
// is set.
type Item struct {
	Index   int
	Request Request
	Result  *Result
	Err     error
}

// Batch is the outcome of ValueAll, items in request order.
type Batch struct {
	RunID  string
	Items  []Item
	Failed int
}

// ValueAll values every request with at most the engine's worker count in
// flight. Per-item failures are recorded on the item and do not stop the batch.
// Once ctx is done no further items are started; those items carry ctx.Err()
// and ValueAll returns it alongside the partial batch.
func (e *Engine) ValueAll(ctx context.Context, reqs []Request) (*Batch, error) {
	batch := &Batch{
		RunID: uuid.NewString(),
		Items: make([]Item, len(reqs)),
	}
	log := e.logger.With("run_id", batch.RunID)
	log.Info("batch started", "items", len(reqs), "workers", e.workers)
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i, req := range reqs {
		batch.Items[i] = Item{Index: i, Request: req}
		if gctx.Err() != nil {
			batch.Items[i].Err = gctx.Err()
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				batch.Items[i].Err = err
				return nil
			}
			res, err := e.Value(req)
			batch.Items[i].Result = res
			batch.Items[i].Err = err
			return nil
		})
	}
	_ = g.Wait()

	for _, it := range batch.Items {
		status := "ok"
		if it.Err != nil {
			status = "failed"
			batch.Failed++
			log.Warn("batch item failed",
				"index", it.Index,
				"identifier", it.Request.Identifier,
				"kind", KindOf(it.Err),
				"error", it.Err,
			)
		}
		e.metrics.ObserveBatchItem(status)
	}
	log.Info("batch finished",
		"items", len(reqs),
		"failed", batch.Failed,
		"elapsed", time.Since(start),
	)
	return batch, ctx.Err()
}
