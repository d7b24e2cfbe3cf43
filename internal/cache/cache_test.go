package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtlprog/casegrid/internal/cache"
	"github.com/mtlprog/casegrid/internal/domain"
)

func newCache(t *testing.T) (*cache.RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := cache.NewRedisCache(client, time.Minute)
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func samplePage() *domain.TaskPage {
	title := "Back up the haptic array"
	return &domain.TaskPage{
		Tasks: []*domain.Task{{
			ID:              "t1",
			Title:           &title,
			Status:          domain.TaskStatusActive,
			Category:        domain.TaskCategoryCivil,
			AssignedTo:      domain.Division2,
			LastActionTaken: domain.LastActionReceivedMotion,
			LastActionDate:  time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
		}},
		Total:     1,
		PageCount: 1,
	}
}

var query = domain.TaskQuery{
	Page:     1,
	PerPage:  10,
	Sort:     domain.Sort{Column: "title", Direction: domain.SortDesc},
	Operator: domain.CombinatorAnd,
}

func TestRedisCache_MissThenHit(t *testing.T) {
	ctx := context.Background()
	c, _ := newCache(t)

	_, gen, ok, err := c.Get(ctx, query)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(0), gen)

	require.NoError(t, c.Set(ctx, query, gen, samplePage()))

	page, _, ok, err := c.Get(ctx, query)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, samplePage(), page)
}

func TestRedisCache_InvalidateHidesEntries(t *testing.T) {
	ctx := context.Background()
	c, _ := newCache(t)

	require.NoError(t, c.Set(ctx, query, 0, samplePage()))
	require.NoError(t, c.Invalidate(ctx))

	_, gen, ok, err := c.Get(ctx, query)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(1), gen)
}

func TestRedisCache_StaleGenerationIsNotServed(t *testing.T) {
	ctx := context.Background()
	c, _ := newCache(t)

	_, gen, _, err := c.Get(ctx, query)
	require.NoError(t, err)

	// A mutation lands between the read and the write-back.
	require.NoError(t, c.Invalidate(ctx))
	require.NoError(t, c.Set(ctx, query, gen, samplePage()))

	_, _, ok, err := c.Get(ctx, query)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCache_EntriesExpire(t *testing.T) {
	ctx := context.Background()
	c, mr := newCache(t)

	require.NoError(t, c.Set(ctx, query, 0, samplePage()))
	mr.FastForward(2 * time.Minute)

	_, _, ok, err := c.Get(ctx, query)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCache_ServerDownIsAnError(t *testing.T) {
	ctx := context.Background()
	c, mr := newCache(t)
	mr.Close()

	_, _, _, err := c.Get(ctx, query)
	assert.Error(t, err)
	assert.Error(t, c.Invalidate(ctx))
}

func TestDial_BadURL(t *testing.T) {
	_, err := cache.Dial(context.Background(), "not a url", time.Minute)
	assert.Error(t, err)
}

func TestNop(t *testing.T) {
	ctx := context.Background()
	var c cache.Nop

	require.NoError(t, c.Set(ctx, query, 0, samplePage()))
	_, _, ok, err := c.Get(ctx, query)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, c.Invalidate(ctx))
}
