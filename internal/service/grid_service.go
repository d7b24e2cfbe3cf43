package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mtlprog/casegrid/internal/cache"
	"github.com/mtlprog/casegrid/internal/domain"
	"github.com/mtlprog/casegrid/internal/metrics"
)

// DefaultSeedCount is the number of rows SeedTasks inserts when no count is given.
const DefaultSeedCount = 100

const defaultBatchConcurrency = 8

// TaskStore is the persistence the grid needs. *repository.TaskRepository implements it.
type TaskStore interface {
	// List returns one page of matching tasks and the total match count,
	// read from one consistent snapshot.
	List(ctx context.Context, q domain.TaskQuery) ([]*domain.Task, int, error)

	// UpdateStatus changes one row's status and reports how many rows changed.
	UpdateStatus(ctx context.Context, id string, status domain.TaskStatus) (int64, error)

	// Delete removes one row and inserts replacements atomically.
	Delete(ctx context.Context, id string, replacements []*domain.Task) (int64, error)

	// Seed bulk-inserts tasks, optionally clearing the table first.
	Seed(ctx context.Context, tasks []*domain.Task, reset bool) error

	// Stats counts rows per member of every enumerated column.
	Stats(ctx context.Context) (*domain.TaskStats, error)
}

// ListingCache caches rendered listings. *cache.RedisCache implements it.
type ListingCache interface {
	Get(ctx context.Context, q domain.TaskQuery) (*domain.TaskPage, int64, bool, error)
	Set(ctx context.Context, q domain.TaskQuery, gen int64, page *domain.TaskPage) error
	Invalidate(ctx context.Context) error
}

// Options configures a GridService. Nil fields get working defaults.
type Options struct {
	Cache            ListingCache
	Population       PopulationPolicy
	Generator        *TaskGenerator
	Metrics          *metrics.Metrics
	BatchConcurrency int
}

// GridService serves the task grid: listings, row mutations and seeding.
type GridService struct {
	store            TaskStore
	cache            ListingCache
	population       PopulationPolicy
	generator        *TaskGenerator
	metrics          *metrics.Metrics
	batchConcurrency int
}

// NewGridService creates a new GridService.
func NewGridService(store TaskStore, opts Options) *GridService {
	s := &GridService{
		store:            store,
		cache:            opts.Cache,
		population:       opts.Population,
		generator:        opts.Generator,
		metrics:          opts.Metrics,
		batchConcurrency: opts.BatchConcurrency,
	}
	if s.cache == nil {
		s.cache = cache.Nop{}
	}
	if s.population == nil {
		s.population = MaintainPopulation{}
	}
	if s.generator == nil {
		s.generator = NewTaskGenerator(0)
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	if s.batchConcurrency <= 0 {
		s.batchConcurrency = defaultBatchConcurrency
	}
	return s
}

// GetTasks returns the requested page. Under the fail-soft listing policy a
// storage failure yields an empty page and a nil error.
func (s *GridService) GetTasks(ctx context.Context, q domain.TaskQuery) (*domain.TaskPage, error) {
	start := time.Now()
	defer func() { s.metrics.ListingDuration.Observe(time.Since(start).Seconds()) }()

	cached, gen, hit, err := s.cache.Get(ctx, q)
	if err != nil {
		s.cacheFailed("read listing cache", err)
	}
	if hit {
		s.metrics.Listings.WithLabelValues(metrics.ListingCached).Inc()
		return cached, nil
	}

	tasks, total, err := s.store.List(ctx, q)
	if err != nil {
		if ListPolicy == FailSoft {
			slog.Error("listing failed, serving empty page",
				"error", err,
				"policy", ListPolicy.String(),
				"page", q.Page,
				"per_page", q.PerPage,
			)
			s.metrics.Listings.WithLabelValues(metrics.ListingFallback).Inc()
			return domain.EmptyPage(), nil
		}
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	page := &domain.TaskPage{
		Tasks:     tasks,
		Total:     total,
		PageCount: domain.PageCount(total, q.PerPage),
	}

	if err := s.cache.Set(ctx, q, gen, page); err != nil {
		s.cacheFailed("write listing cache", err)
	}

	s.metrics.Listings.WithLabelValues(metrics.ListingServed).Inc()
	return page, nil
}

// GetStats returns facet counts for the filter options. Like listings it is
// fail-soft: a storage failure yields all-zero counts.
func (s *GridService) GetStats(ctx context.Context) *domain.TaskStats {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		slog.Error("stats failed, serving zero counts", "error", err, "policy", ListPolicy.String())
		return domain.NewTaskStats()
	}
	return stats
}

// UpdateTaskStatus sets the status of one task. A missing task is not an
// error. Storage failures are returned to the caller.
func (s *GridService) UpdateTaskStatus(ctx context.Context, id string, status string) error {
	if err := validateTaskID(id); err != nil {
		return err
	}

	newStatus, err := domain.TaskStatuses.Parse(status)
	if err != nil {
		return err
	}

	updated, err := s.store.UpdateStatus(ctx, id, newStatus)
	if err != nil {
		s.metrics.Mutations.WithLabelValues("update_status", metrics.MutationError).Inc()
		return fmt.Errorf("update status of task %s: %w", id, err)
	}
	s.metrics.Mutations.WithLabelValues("update_status", metrics.MutationOK).Inc()

	slog.Info("task status updated",
		"task_id", id,
		"status", newStatus,
		"rows", updated,
	)

	s.invalidate(ctx)
	return nil
}

// DeleteTask removes one task. The population policy's replacement rows are
// inserted in the same transaction, also when the task did not exist.
// On failure nothing is deleted or inserted.
func (s *GridService) DeleteTask(ctx context.Context, id string) error {
	if err := validateTaskID(id); err != nil {
		return err
	}

	replacements := s.generator.Generate(s.population.Replacements())

	deleted, err := s.store.Delete(ctx, id, replacements)
	if err != nil {
		s.metrics.Mutations.WithLabelValues("delete", metrics.MutationError).Inc()
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	s.metrics.Mutations.WithLabelValues("delete", metrics.MutationOK).Inc()
	s.metrics.ReplacementsMade.Add(float64(len(replacements)))

	slog.Info("task deleted",
		"task_id", id,
		"rows", deleted,
		"replacements", len(replacements),
	)

	s.invalidate(ctx)
	return nil
}

// SeedOptions controls SeedTasks.
type SeedOptions struct {
	Count int
	Reset bool
}

// SeedTasks inserts synthetic tasks and returns how many were inserted.
// Failures are logged, not returned.
func (s *GridService) SeedTasks(ctx context.Context, opts SeedOptions) int {
	count := opts.Count
	if count <= 0 {
		count = DefaultSeedCount
	}

	tasks := s.generator.Generate(count)
	slog.Info("inserting tasks", "count", len(tasks), "reset", opts.Reset)

	if err := s.store.Seed(ctx, tasks, opts.Reset); err != nil {
		slog.Error("seeding failed", "error", err, "count", len(tasks))
		return 0
	}

	s.invalidate(ctx)
	return len(tasks)
}

func (s *GridService) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.cacheFailed("invalidate listing cache", err)
	}
}

func (s *GridService) cacheFailed(op string, err error) {
	s.metrics.CacheErrors.Inc()
	slog.Warn("listing cache unavailable", "op", op, "error", err)
}

// maxTaskIDLength matches the width of the id column.
const maxTaskIDLength = 128

func validateTaskID(id string) error {
	switch {
	case strings.TrimSpace(id) == "":
		return &domain.ValidationError{Field: "id", Reason: "is required"}
	case len(id) > maxTaskIDLength:
		return &domain.ValidationError{Field: "id", Reason: fmt.Sprintf("longer than %d characters", maxTaskIDLength)}
	}
	return nil
}
