package cache

import (
	"context"
	"testing"
	"time"

	dom "TodoApp/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb, mr
}

func TestTodoCache_ListRoundTrip(t *testing.T) {
	rdb, mr := setupTestRedis(t)
	c := NewTodoCache(rdb, time.Minute)
	ctx := context.Background()

	_, ok, err := c.GetList(ctx, "u1", 0, ViewAll)
	require.NoError(t, err)
	assert.False(t, ok)

	created := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	list := []dom.Todo{{ID: "t1", OwnerID: "u1", Title: "a", Status: dom.StatusActive, Priority: dom.PriorityLow, CreatedAt: created, UpdatedAt: created}}
	require.NoError(t, c.SetList(ctx, "u1", 0, StatusView(dom.StatusActive), list))

	got, ok, err := c.GetList(ctx, "u1", 0, StatusView(dom.StatusActive))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, list, got)
	assert.True(t, mr.Exists("todo:u1:0:status:active"))

	mr.FastForward(2 * time.Minute)
	_, ok, err = c.GetList(ctx, "u1", 0, StatusView(dom.StatusActive))
	require.NoError(t, err)
	assert.False(t, ok, "entry expires after ttl")
}

func TestTodoCache_EmptyListIsAHit(t *testing.T) {
	rdb, _ := setupTestRedis(t)
	c := NewTodoCache(rdb, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.SetList(ctx, "u1", 0, ViewAll, nil))
	got, ok, err := c.GetList(ctx, "u1", 0, ViewAll)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, got)
}

func TestTodoCache_InvalidateUser(t *testing.T) {
	rdb, mr := setupTestRedis(t)
	c := NewTodoCache(rdb, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.SetList(ctx, "u1", 0, ViewAll, nil))
	require.NoError(t, c.SetList(ctx, "u1", 0, PriorityView(dom.PriorityHigh), nil))
	require.NoError(t, c.SetStats(ctx, "u1", 0, dom.Stats{Total: 1, Active: 1}))
	require.NoError(t, c.SetStats(ctx, "u2", 0, dom.Stats{Total: 2}))

	require.NoError(t, c.InvalidateUser(ctx, "u1"))

	assert.False(t, mr.Exists("todo:u1:0:list"))
	assert.False(t, mr.Exists("todo:u1:0:priority:high"))
	assert.False(t, mr.Exists("todo:u1:0:stats"))

	gen, err := c.Generation(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen)

	st, ok, err := c.GetStats(ctx, "u2", 0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, st.Total)

	require.NoError(t, c.InvalidateUser(ctx, "nobody"))
}

func TestTodoCache_LateWriteUnderOldGeneration(t *testing.T) {
	rdb, _ := setupTestRedis(t)
	c := NewTodoCache(rdb, time.Minute)
	ctx := context.Background()

	before, err := c.Generation(ctx, "u1")
	require.NoError(t, err)
	require.NoError(t, c.InvalidateUser(ctx, "u1"))

	// A load that read the generation before the write finishes afterwards.
	require.NoError(t, c.SetStats(ctx, "u1", before, dom.Stats{Total: 1}))

	now, err := c.Generation(ctx, "u1")
	require.NoError(t, err)
	assert.Greater(t, now, before)
	_, ok, err := c.GetStats(ctx, "u1", now)
	require.NoError(t, err)
	assert.False(t, ok)
}
