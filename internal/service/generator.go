package service

import (
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/mtlprog/casegrid/internal/domain"
)

// recentWindow bounds how far back generated last_action_date values go.
const recentWindow = 24 * time.Hour

// TaskGenerator produces synthetic case records for seeding and for replacing
// deleted rows. It is safe for concurrent use.
type TaskGenerator struct {
	mu    sync.Mutex
	faker *gofakeit.Faker
	now   func() time.Time
}

// NewTaskGenerator creates a generator. A zero seed draws a random one.
func NewTaskGenerator(seed uint64) *TaskGenerator {
	return &TaskGenerator{
		faker: gofakeit.New(seed),
		now:   time.Now,
	}
}

// Generate returns n new tasks with random titles, random enum members and a
// last action within the past day.
func (g *TaskGenerator) Generate(n int) []*domain.Task {
	if n <= 0 {
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now().UTC()
	tasks := make([]*domain.Task, n)
	for i := range tasks {
		title := capitalize(g.faker.HackerPhrase())
		tasks[i] = &domain.Task{
			ID:              uuid.NewString(),
			Title:           &title,
			Status:          domain.TaskStatus(g.faker.RandomString(domain.TaskStatuses.Strings())),
			Category:        domain.TaskCategory(g.faker.RandomString(domain.TaskCategories.Strings())),
			AssignedTo:      domain.Division(g.faker.RandomString(domain.Divisions.Strings())),
			LastActionTaken: domain.LastAction(g.faker.RandomString(domain.LastActions.Strings())),
			LastActionDate:  g.faker.DateRange(now.Add(-recentWindow), now),
		}
	}
	return tasks
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
