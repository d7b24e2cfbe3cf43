package repository_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/suite"

	"github.com/mtlprog/casegrid/internal/database"
	"github.com/mtlprog/casegrid/internal/domain"
	"github.com/mtlprog/casegrid/internal/repository"
	"github.com/mtlprog/casegrid/internal/service"
	"github.com/mtlprog/casegrid/internal/testutil"
)

// TaskRepositoryTestSuite runs against a real PostgreSQL database.
type TaskRepositoryTestSuite struct {
	suite.Suite
	db   *database.DB
	pool *pgxpool.Pool
	repo *repository.TaskRepository
	gen  *service.TaskGenerator
}

// SetupSuite runs once before all tests.
func (s *TaskRepositoryTestSuite) SetupSuite() {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		s.T().Skip("DATABASE_URL not set")
	}

	ctx := context.Background()

	db, err := database.New(ctx, databaseURL, database.PoolOptions{})
	s.Require().NoError(err, "failed to connect to database")
	s.db = db
	s.pool = db.Pool()

	_, err = database.RunMigrations(ctx, s.pool)
	s.Require().NoError(err, "failed to run migrations")

	s.repo = repository.NewTaskRepository(s.pool)
	s.gen = service.NewTaskGenerator(99)
}

// SetupTest runs before each test.
func (s *TaskRepositoryTestSuite) SetupTest() {
	_, err := s.pool.Exec(context.Background(), "TRUNCATE tasks")
	s.Require().NoError(err, "failed to truncate tasks")
}

// TearDownSuite runs once after all tests.
func (s *TaskRepositoryTestSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
}

func TestTaskRepositorySuite(t *testing.T) {
	suite.Run(t, new(TaskRepositoryTestSuite))
}

func (s *TaskRepositoryTestSuite) seed(tasks ...*domain.Task) {
	s.Require().NoError(s.repo.Seed(context.Background(), tasks, false))
}

// seedNumbered inserts n tasks with ids task-000.. and distinct dates.
func (s *TaskRepositoryTestSuite) seedNumbered(n int, opts func(i int) []testutil.TaskOption) {
	tasks := make([]*domain.Task, n)
	for i := range tasks {
		var extra []testutil.TaskOption
		if opts != nil {
			extra = opts(i)
		}
		extra = append(extra, testutil.WithLastActionDate(testutil.FixtureTime.Add(time.Duration(i)*time.Minute)))
		tasks[i] = testutil.NewTask(fmt.Sprintf("task-%03d", i), fmt.Sprintf("Case %03d", i), extra...)
	}
	s.seed(tasks...)
}

func query(page, perPage int, sort domain.Sort) domain.TaskQuery {
	return domain.TaskQuery{Page: page, PerPage: perPage, Sort: sort, Operator: domain.CombinatorAnd}
}

func ids(tasks []*domain.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func (s *TaskRepositoryTestSuite) TestSeedAndGet() {
	ctx := context.Background()
	s.seed(testutil.NewTask("a", "Alpha", testutil.WithCategory(domain.TaskCategoryCivil)))

	task, ok, err := s.repo.GetByID(ctx, "a")
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Equal("Alpha", task.TitleOrEmpty())
	s.Equal(domain.TaskStatusActive, task.Status)
	s.Equal(domain.TaskCategoryCivil, task.Category)
	s.True(task.LastActionDate.Equal(testutil.FixtureTime))

	_, ok, err = s.repo.GetByID(ctx, "missing")
	s.Require().NoError(err)
	s.False(ok)
}

func (s *TaskRepositoryTestSuite) TestSeedReset() {
	ctx := context.Background()
	s.seedNumbered(5, nil)

	s.Require().NoError(s.repo.Seed(ctx, s.gen.Generate(3), true))

	total, err := s.repo.Count(ctx)
	s.Require().NoError(err)
	s.Equal(3, total)
}

func (s *TaskRepositoryTestSuite) TestSeedLargeBatch() {
	ctx := context.Background()
	s.Require().NoError(s.repo.Seed(ctx, s.gen.Generate(2500), false))

	total, err := s.repo.Count(ctx)
	s.Require().NoError(err)
	s.Equal(2500, total)
}

func (s *TaskRepositoryTestSuite) TestList_PagesPartitionRows() {
	ctx := context.Background()
	s.seedNumbered(25, nil)

	var seen []string
	for page := 1; page <= 3; page++ {
		tasks, total, err := s.repo.List(ctx, query(page, 10, domain.Sort{Column: "id", Direction: domain.SortAsc}))
		s.Require().NoError(err)
		s.Equal(25, total)
		seen = append(seen, ids(tasks)...)
	}

	s.Len(seen, 25)
	s.Equal("task-000", seen[0])
	s.Equal("task-024", seen[24])

	tasks, total, err := s.repo.List(ctx, query(4, 10, domain.Sort{Column: "id", Direction: domain.SortAsc}))
	s.Require().NoError(err)
	s.Empty(tasks)
	s.Equal(25, total)
}

func (s *TaskRepositoryTestSuite) TestList_DuplicateSortKeysStable() {
	ctx := context.Background()
	// Every row shares the same status, so the id tiebreaker decides the order.
	s.seedNumbered(12, nil)

	sort := domain.Sort{Column: "status", Direction: domain.SortAsc}
	first, _, err := s.repo.List(ctx, query(1, 6, sort))
	s.Require().NoError(err)
	second, _, err := s.repo.List(ctx, query(2, 6, sort))
	s.Require().NoError(err)

	all := append(ids(first), ids(second)...)
	s.Equal("task-000", all[0])
	s.Equal("task-011", all[11])
	s.Len(all, 12)
}

func (s *TaskRepositoryTestSuite) TestList_SortByDate() {
	ctx := context.Background()
	s.seedNumbered(5, nil)

	tasks, _, err := s.repo.List(ctx, query(1, 10, domain.Sort{Column: "last_action_date", Direction: domain.SortDesc}))
	s.Require().NoError(err)
	s.Equal([]string{"task-004", "task-003", "task-002", "task-001", "task-000"}, ids(tasks))
}

func (s *TaskRepositoryTestSuite) TestList_UnknownSortFallsBackToIDDesc() {
	ctx := context.Background()
	s.seedNumbered(3, nil)

	tasks, _, err := s.repo.List(ctx, query(1, 10, domain.Sort{Column: "priority; DROP TABLE tasks", Direction: domain.SortAsc}))
	s.Require().NoError(err)
	s.Equal([]string{"task-002", "task-001", "task-000"}, ids(tasks))
}

func (s *TaskRepositoryTestSuite) TestList_Filters() {
	ctx := context.Background()
	s.seedNumbered(10, func(i int) []testutil.TaskOption {
		var opts []testutil.TaskOption
		if i%2 == 0 {
			opts = append(opts, testutil.WithStatus(domain.TaskStatusInactive))
		}
		if i < 3 {
			opts = append(opts, testutil.WithDivision(domain.Division3))
		}
		return opts
	})
	asc := domain.Sort{Column: "id", Direction: domain.SortAsc}

	q := query(1, 10, asc)
	q.Filters = []domain.EnumFilter{
		{Column: "status", Values: []string{"inactive"}},
		{Column: "assigned_to", Values: []string{"division_3"}},
	}
	tasks, total, err := s.repo.List(ctx, q)
	s.Require().NoError(err)
	s.Equal(2, total)
	s.Equal([]string{"task-000", "task-002"}, ids(tasks))

	q.Operator = domain.CombinatorOr
	_, total, err = s.repo.List(ctx, q)
	s.Require().NoError(err)
	s.Equal(6, total) // 0,2,4,6,8 plus 1

	q.Filters = []domain.EnumFilter{{Column: "status", Values: []string{}}}
	tasks, total, err = s.repo.List(ctx, q)
	s.Require().NoError(err)
	s.Equal(0, total)
	s.NotNil(tasks)
	s.Empty(tasks)
}

func (s *TaskRepositoryTestSuite) TestList_TitleFilter() {
	ctx := context.Background()
	s.seed(
		testutil.NewTask("a", "Filed 100% of motions"),
		testutil.NewTask("b", "Filed motion_x"),
		testutil.NewTask("c", "", testutil.Untitled()),
	)
	asc := domain.Sort{Column: "id", Direction: domain.SortAsc}

	cases := []struct {
		filter domain.TextFilter
		want   []string
	}{
		{domain.TextFilter{Value: "FILED", Operator: domain.TextILike}, []string{"a", "b"}},
		{domain.TextFilter{Value: "100%", Operator: domain.TextILike}, []string{"a"}},
		{domain.TextFilter{Value: "n_x", Operator: domain.TextILike}, []string{"b"}},
		{domain.TextFilter{Value: "motions", Operator: domain.TextEndsWith}, []string{"a"}},
		{domain.TextFilter{Value: "100", Operator: domain.TextNotILike}, []string{"b"}},
		{domain.TextFilter{Value: "Filed motion_x", Operator: domain.TextEq}, []string{"b"}},
		{domain.TextFilter{Operator: domain.TextIsNull}, []string{"c"}},
		{domain.TextFilter{Operator: domain.TextIsNotNull}, []string{"a", "b"}},
	}

	for _, tc := range cases {
		q := query(1, 10, asc)
		q.Title = &tc.filter
		tasks, total, err := s.repo.List(ctx, q)
		s.Require().NoError(err, tc.filter)
		s.Equal(tc.want, ids(tasks), tc.filter)
		s.Equal(len(tc.want), total, tc.filter)
	}
}

func (s *TaskRepositoryTestSuite) TestUpdateStatus() {
	ctx := context.Background()
	s.seed(testutil.NewTask("a", "Alpha"))

	n, err := s.repo.UpdateStatus(ctx, "a", domain.TaskStatusInactive)
	s.Require().NoError(err)
	s.Equal(int64(1), n)

	task, _, err := s.repo.GetByID(ctx, "a")
	s.Require().NoError(err)
	s.Equal(domain.TaskStatusInactive, task.Status)

	n, err = s.repo.UpdateStatus(ctx, "missing", domain.TaskStatusInactive)
	s.Require().NoError(err)
	s.Equal(int64(0), n)
}

func (s *TaskRepositoryTestSuite) TestUpdateStatus_EnumEnforcedByStore() {
	s.seed(testutil.NewTask("a", "Alpha"))

	_, err := s.repo.UpdateStatus(context.Background(), "a", domain.TaskStatus("archived"))
	s.Require().Error(err)
	s.ErrorIs(err, domain.ErrStorage)
}

func (s *TaskRepositoryTestSuite) TestDelete_NetsZero() {
	ctx := context.Background()
	s.seedNumbered(5, nil)

	n, err := s.repo.Delete(ctx, "task-002", s.gen.Generate(1))
	s.Require().NoError(err)
	s.Equal(int64(1), n)

	total, err := s.repo.Count(ctx)
	s.Require().NoError(err)
	s.Equal(5, total)

	_, ok, err := s.repo.GetByID(ctx, "task-002")
	s.Require().NoError(err)
	s.False(ok)
}

func (s *TaskRepositoryTestSuite) TestDelete_MissingIDStillInserts() {
	ctx := context.Background()
	s.seedNumbered(5, nil)

	for range 2 {
		n, err := s.repo.Delete(ctx, "missing", s.gen.Generate(1))
		s.Require().NoError(err)
		s.Equal(int64(0), n)
	}

	total, err := s.repo.Count(ctx)
	s.Require().NoError(err)
	s.Equal(7, total)
}

func (s *TaskRepositoryTestSuite) TestDelete_FailedInsertRollsBackDelete() {
	ctx := context.Background()
	s.seedNumbered(3, nil)

	// The replacement reuses an existing id, so the insert violates the primary key.
	dup := testutil.NewTask("task-000", "Duplicate")
	_, err := s.repo.Delete(ctx, "task-001", []*domain.Task{dup})
	s.Require().Error(err)
	s.ErrorIs(err, domain.ErrStorage)

	_, ok, err := s.repo.GetByID(ctx, "task-001")
	s.Require().NoError(err)
	s.True(ok, "delete must be rolled back")
}

func (s *TaskRepositoryTestSuite) TestList_CountConsistentUnderConcurrentDeletes() {
	ctx := context.Background()
	s.seedNumbered(50, nil)

	// Deletes without replacements shrink the table, so page and count only
	// agree when both read the same snapshot.
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := range 40 {
			_, err := s.repo.Delete(ctx, fmt.Sprintf("task-%03d", i), nil)
			s.NoError(err)
		}
	}()

	for range 40 {
		tasks, total, err := s.repo.List(ctx, query(1, 100, domain.Sort{Column: "id", Direction: domain.SortAsc}))
		s.Require().NoError(err)
		s.Len(tasks, total)
		s.GreaterOrEqual(total, 10)
		s.LessOrEqual(total, 50)
	}
	wg.Wait()

	n, err := s.repo.Count(ctx)
	s.Require().NoError(err)
	s.Equal(10, n)
}

func (s *TaskRepositoryTestSuite) TestStats() {
	s.seedNumbered(6, func(i int) []testutil.TaskOption {
		if i < 2 {
			return []testutil.TaskOption{testutil.WithLastAction(domain.LastActionCaseClosed)}
		}
		return nil
	})

	stats, err := s.repo.Stats(context.Background())
	s.Require().NoError(err)
	s.Equal(6, stats.Total)
	s.Equal(map[string]int{"filed_motion": 4, "received_motion": 0, "case_closed": 2}, stats.Facets["last_action_taken"])
	s.Equal(6, stats.Facets["status"]["active"])
	s.Equal(0, stats.Facets["status"]["inactive"])
}

func (s *TaskRepositoryTestSuite) TestStorageErrorWhenClosed() {
	ctx := context.Background()
	db, err := database.New(ctx, os.Getenv("DATABASE_URL"), database.PoolOptions{MaxConns: 1})
	s.Require().NoError(err)
	repo := repository.NewTaskRepository(db.Pool())
	db.Close()

	_, _, err = repo.List(ctx, query(1, 10, domain.Sort{}))
	s.Require().Error(err)
	s.ErrorIs(err, domain.ErrStorage)
}
