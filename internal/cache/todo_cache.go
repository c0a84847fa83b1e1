package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	dom "TodoApp/internal/domain"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "todo:"
	genPrefix = "todo-gen:"
)

// View names one cached list result of a user.
type View string

// ViewAll is the unfiltered list of a user's todos.
const ViewAll View = "list"

func StatusView(s dom.Status) View     { return View("status:" + string(s)) }
func PriorityView(p dom.Priority) View { return View("priority:" + string(p)) }

// TodoCache caches per-user list and stats results in Redis.
//
// Every entry is stored under the user's current generation,
// todo:{userID}:{gen}:{view}. InvalidateUser bumps the generation, so a
// result loaded before a write can only land under a generation no later
// read will ask for. Callers take the generation before loading from the store.
type TodoCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewTodoCache returns a new TodoCache.
func NewTodoCache(rdb *redis.Client, ttl time.Duration) *TodoCache {
	return &TodoCache{rdb: rdb, ttl: ttl}
}

func genKey(userID string) string {
	return genPrefix + userID
}

func userKey(userID string, gen int64, suffix string) string {
	return keyPrefix + userID + ":" + strconv.FormatInt(gen, 10) + ":" + suffix
}

// Generation returns the user's current cache generation; 0 until the first write.
func (c *TodoCache) Generation(ctx context.Context, userID string) (int64, error) {
	gen, err := c.rdb.Get(ctx, genKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// GetList returns the cached view. ok is false on a miss.
func (c *TodoCache) GetList(ctx context.Context, userID string, gen int64, v View) (list []dom.Todo, ok bool, err error) {
	ok, err = c.get(ctx, userKey(userID, gen, string(v)), &list)
	return list, ok, err
}

// SetList stores the view. A nil list is stored as empty.
func (c *TodoCache) SetList(ctx context.Context, userID string, gen int64, v View, list []dom.Todo) error {
	if list == nil {
		list = []dom.Todo{}
	}
	return c.set(ctx, userKey(userID, gen, string(v)), list)
}

// GetStats returns the cached stats. ok is false on a miss.
func (c *TodoCache) GetStats(ctx context.Context, userID string, gen int64) (st dom.Stats, ok bool, err error) {
	ok, err = c.get(ctx, userKey(userID, gen, "stats"), &st)
	return st, ok, err
}

// SetStats stores the stats.
func (c *TodoCache) SetStats(ctx context.Context, userID string, gen int64, st dom.Stats) error {
	return c.set(ctx, userKey(userID, gen, "stats"), st)
}

// InvalidateUser moves the user to a new generation and drops the entries it
// can find. Entries written later under an old generation expire on their own.
func (c *TodoCache) InvalidateUser(ctx context.Context, userID string) error {
	if err := c.rdb.Incr(ctx, genKey(userID)).Err(); err != nil {
		return err
	}

	iter := c.rdb.Scan(ctx, 0, keyPrefix+userID+":*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

func (c *TodoCache) get(ctx context.Context, key string, dst any) (bool, error) {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (c *TodoCache) set(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, b, c.ttl).Err()
}
