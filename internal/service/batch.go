package service

import (
	"context"
	"sync"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/mtlprog/casegrid/internal/domain"
)

// BatchResult aggregates a set of independent single-row operations.
type BatchResult struct {
	Succeeded int
	Failed    int
	// Err combines every failure; nil when all operations succeeded.
	Err error
}

// DeleteTasks deletes each task independently and concurrently. There is no
// atomicity across the batch: a failure leaves the other deletes in place.
func (s *GridService) DeleteTasks(ctx context.Context, ids []string) BatchResult {
	return s.runBatch(ctx, ids, s.DeleteTask)
}

// UpdateTasksStatus sets the status of each task independently and concurrently.
func (s *GridService) UpdateTasksStatus(ctx context.Context, ids []string, status string) BatchResult {
	if _, err := domain.TaskStatuses.Parse(status); err != nil {
		return BatchResult{Failed: len(ids), Err: err}
	}
	return s.runBatch(ctx, ids, func(ctx context.Context, id string) error {
		return s.UpdateTaskStatus(ctx, id, status)
	})
}

func (s *GridService) runBatch(ctx context.Context, ids []string, op func(context.Context, string) error) BatchResult {
	var (
		g      errgroup.Group
		mu     sync.Mutex
		result BatchResult
	)
	g.SetLimit(s.batchConcurrency)

	for _, id := range ids {
		g.Go(func() error {
			err := op(ctx, id)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed++
				result.Err = multierr.Append(result.Err, err)
				return nil
			}
			result.Succeeded++
			return nil
		})
	}

	_ = g.Wait()
	return result
}
