package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"TodoApp/internal/cache"
	dom "TodoApp/internal/domain"
	"TodoApp/internal/ratelimit"
	"TodoApp/internal/repo"

	"golang.org/x/sync/singleflight"
)

// Authenticator resolves the caller of an operation.
type Authenticator interface {
	Identify(ctx context.Context) (dom.Identity, bool)
}

// TodoService is the domain layer between the HTTP adapters and the store.
// Every operation authenticates first; mutations are then throttled, validated
// and checked for ownership before anything is written.
type TodoService struct {
	auth    Authenticator
	limiter ratelimit.Governor
	repo    repo.TodoRepo
	cache   *cache.TodoCache
	sf      singleflight.Group
	now     func() time.Time
	log     *slog.Logger
}

type Option func(*TodoService)

// WithCache enables per-user caching of list and stats results.
func WithCache(c *cache.TodoCache) Option {
	return func(s *TodoService) { s.cache = c }
}

func WithClock(now func() time.Time) Option {
	return func(s *TodoService) { s.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *TodoService) { s.log = l }
}

func NewTodoService(a Authenticator, g ratelimit.Governor, r repo.TodoRepo, opts ...Option) *TodoService {
	s := &TodoService{
		auth:    a,
		limiter: g,
		repo:    r,
		now:     func() time.Time { return time.Now().UTC() },
		log:     slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *TodoService) identify(ctx context.Context) (dom.Identity, error) {
	id, ok := s.auth.Identify(ctx)
	if !ok || id.ID == "" {
		return dom.Identity{}, dom.ErrUnauthenticated
	}
	return id, nil
}

func (s *TodoService) admit(ctx context.Context, class, userID string) error {
	d, err := s.limiter.Admit(ctx, class, userID)
	if err != nil {
		return dom.NewStoreError("rate limiter", err)
	}
	s.log.DebugContext(ctx, "rate decision", "class", class, "user", userID,
		"allowed", d.Allowed, "retry_after_ms", dom.CeilMillis(d.RetryAfter))
	if !d.Allowed {
		return &dom.RateLimitedError{Class: class, RetryAfter: d.RetryAfter}
	}
	return nil
}

// Create stores a new active todo owned by the caller.
func (s *TodoService) Create(ctx context.Context, in dom.CreateInput) (dom.Todo, error) {
	who, err := s.identify(ctx)
	if err != nil {
		return dom.Todo{}, err
	}
	if err := s.admit(ctx, ratelimit.ClassCreateTodo, who.ID); err != nil {
		return dom.Todo{}, err
	}
	now := s.now()
	if err := dom.ValidateCreate(in, now); err != nil {
		return dom.Todo{}, err
	}

	t := dom.Todo{
		OwnerID:   who.ID,
		Title:     in.Title,
		Status:    dom.StatusActive,
		Priority:  in.Priority,
		DueDate:   in.DueDate,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	t.ID, err = s.repo.Insert(ctx, t)
	if err != nil {
		return dom.Todo{}, s.fail(ctx, "create", who.ID, "", dom.NewStoreError("insert todo", err))
	}
	s.invalidate(ctx, who.ID)
	s.log.InfoContext(ctx, "todo created", "user", who.ID, "todo", t.ID)
	return t, nil
}

// List returns the caller's todos, newest first.
func (s *TodoService) List(ctx context.Context) ([]dom.Todo, error) {
	who, err := s.identify(ctx)
	if err != nil {
		return nil, err
	}
	return s.query(ctx, who.ID, cache.ViewAll, repo.IndexQuery{Index: repo.IndexByOwner, OwnerID: who.ID})
}

// ListByStatus returns the caller's todos in status st, newest first.
func (s *TodoService) ListByStatus(ctx context.Context, st dom.Status) ([]dom.Todo, error) {
	who, err := s.identify(ctx)
	if err != nil {
		return nil, err
	}
	if err := dom.ValidateStatus(st); err != nil {
		return nil, err
	}
	return s.query(ctx, who.ID, cache.StatusView(st), repo.IndexQuery{
		Index: repo.IndexByOwnerStatusCreated, OwnerID: who.ID, Status: st,
	})
}

// ListByPriority returns the caller's todos with priority p, newest first.
func (s *TodoService) ListByPriority(ctx context.Context, p dom.Priority) ([]dom.Todo, error) {
	who, err := s.identify(ctx)
	if err != nil {
		return nil, err
	}
	if err := dom.ValidatePriority(p); err != nil {
		return nil, err
	}
	return s.query(ctx, who.ID, cache.PriorityView(p), repo.IndexQuery{
		Index: repo.IndexByOwnerPriority, OwnerID: who.ID, Priority: p,
	})
}

// Get returns one todo. A missing id is NotFound even when the caller would
// not own it.
func (s *TodoService) Get(ctx context.Context, id string) (dom.Todo, error) {
	who, err := s.identify(ctx)
	if err != nil {
		return dom.Todo{}, err
	}
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return dom.Todo{}, storeErr("get todo", err)
	}
	if !t.OwnedBy(who.ID) {
		return dom.Todo{}, dom.ErrForbidden
	}
	return t, nil
}

// Update applies the supplied fields of p.
func (s *TodoService) Update(ctx context.Context, id string, p dom.TodoPatch) (dom.Todo, error) {
	return s.mutate(ctx, "update", id, p)
}

// Complete moves a todo to completed.
func (s *TodoService) Complete(ctx context.Context, id string) (dom.Todo, error) {
	st := dom.StatusCompleted
	return s.mutate(ctx, "complete", id, dom.TodoPatch{Status: &st})
}

// Archive moves a todo to archived.
func (s *TodoService) Archive(ctx context.Context, id string) (dom.Todo, error) {
	st := dom.StatusArchived
	return s.mutate(ctx, "archive", id, dom.TodoPatch{Status: &st})
}

// mutate runs the shared update path. The read, the ownership and
// transition checks and the write happen inside one store transaction.
func (s *TodoService) mutate(ctx context.Context, op, id string, p dom.TodoPatch) (dom.Todo, error) {
	who, err := s.identify(ctx)
	if err != nil {
		return dom.Todo{}, err
	}
	if err := s.admit(ctx, ratelimit.ClassUpdateTodo, who.ID); err != nil {
		return dom.Todo{}, err
	}

	var out dom.Todo
	err = s.repo.InTx(ctx, func(ctx context.Context, tx repo.TodoTx) error {
		cur, err := tx.Get(ctx, id)
		if err != nil {
			return storeErr("get todo", err)
		}
		if !cur.OwnedBy(who.ID) {
			return dom.ErrForbidden
		}
		now := s.now()
		if err := dom.ValidatePatch(p, now); err != nil {
			return err
		}
		if p.Status != nil {
			if err := dom.CheckTransition(cur.Status, *p.Status); err != nil {
				return err
			}
		}
		out, err = tx.Patch(ctx, id, p, now)
		if err != nil {
			return storeErr("patch todo", err)
		}
		return nil
	})
	if err != nil {
		return dom.Todo{}, s.fail(ctx, op, who.ID, id, storeErr("update tx", err))
	}
	s.invalidate(ctx, who.ID)
	s.log.InfoContext(ctx, "todo "+op+"d", "user", who.ID, "todo", id, "status", out.Status)
	return out, nil
}

// Remove deletes a todo permanently.
func (s *TodoService) Remove(ctx context.Context, id string) error {
	who, err := s.identify(ctx)
	if err != nil {
		return err
	}
	if err := s.admit(ctx, ratelimit.ClassDeleteTodo, who.ID); err != nil {
		return err
	}
	err = s.repo.InTx(ctx, func(ctx context.Context, tx repo.TodoTx) error {
		cur, err := tx.Get(ctx, id)
		if err != nil {
			return storeErr("get todo", err)
		}
		if !cur.OwnedBy(who.ID) {
			return dom.ErrForbidden
		}
		return storeErr("delete todo", tx.Delete(ctx, id))
	})
	if err != nil {
		return s.fail(ctx, "remove", who.ID, id, storeErr("delete tx", err))
	}
	s.invalidate(ctx, who.ID)
	s.log.InfoContext(ctx, "todo removed", "user", who.ID, "todo", id)
	return nil
}

// Stats counts the caller's todos from a full owner scan.
func (s *TodoService) Stats(ctx context.Context) (dom.Stats, error) {
	who, err := s.identify(ctx)
	if err != nil {
		return dom.Stats{}, err
	}
	load := func(ctx context.Context) (dom.Stats, error) {
		list, err := s.repo.Query(ctx, repo.IndexQuery{Index: repo.IndexByOwner, OwnerID: who.ID})
		if err != nil {
			return dom.Stats{}, storeErr("query todos", err)
		}
		return dom.ComputeStats(list), nil
	}
	gen, ok := s.generation(ctx, who.ID)
	if !ok {
		return load(ctx)
	}

	key := fmt.Sprintf("%s:%d:stats", who.ID, gen)
	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		ctx := context.WithoutCancel(ctx)
		if st, ok, err := s.cache.GetStats(ctx, who.ID, gen); err == nil && ok {
			return st, nil
		}
		st, err := load(ctx)
		if err != nil {
			return nil, err
		}
		_ = s.cache.SetStats(ctx, who.ID, gen, st)
		return st, nil
	})
	if err != nil {
		return dom.Stats{}, err
	}
	return v.(dom.Stats), nil
}

func (s *TodoService) query(ctx context.Context, userID string, view cache.View, q repo.IndexQuery) ([]dom.Todo, error) {
	load := func(ctx context.Context) ([]dom.Todo, error) {
		list, err := s.repo.Query(ctx, q)
		if err != nil {
			return nil, storeErr("query todos", err)
		}
		if list == nil {
			list = []dom.Todo{}
		}
		return list, nil
	}
	gen, ok := s.generation(ctx, userID)
	if !ok {
		return load(ctx)
	}

	// Waiters share one load, so it must not die with the first caller's request.
	key := fmt.Sprintf("%s:%d:%s", userID, gen, view)
	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		ctx := context.WithoutCancel(ctx)
		if list, ok, err := s.cache.GetList(ctx, userID, gen, view); err == nil && ok {
			return list, nil
		}
		list, err := load(ctx)
		if err != nil {
			return nil, err
		}
		_ = s.cache.SetList(ctx, userID, gen, view, list)
		return list, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]dom.Todo), nil
}

// generation reads the user's cache generation before any store load.
// ok is false when there is no cache or it cannot be reached.
func (s *TodoService) generation(ctx context.Context, userID string) (int64, bool) {
	if s.cache == nil {
		return 0, false
	}
	gen, err := s.cache.Generation(ctx, userID)
	if err != nil {
		s.log.WarnContext(ctx, "cache generation unavailable", "user", userID, "err", err)
		return 0, false
	}
	return gen, true
}

func (s *TodoService) invalidate(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateUser(ctx, userID); err != nil {
		s.log.WarnContext(ctx, "cache invalidation failed", "user", userID, "err", err)
	}
}

func (s *TodoService) fail(ctx context.Context, op, userID, id string, err error) error {
	level := slog.LevelInfo
	if dom.KindOf(err) == dom.KindStoreUnavailable {
		level = slog.LevelError
	}
	s.log.Log(ctx, level, "todo "+op+" failed", "user", userID, "todo", id, "kind", dom.KindOf(err), "err", err)
	return err
}

// storeErr maps the gateway's missing-record error and wraps anything
// unclassified as a store failure.
func storeErr(op string, err error) error {
	if errors.Is(err, repo.ErrNoRecord) {
		return dom.ErrNotFound
	}
	return dom.NewStoreError(op, err)
}
