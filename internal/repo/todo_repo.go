package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	dom "TodoApp/internal/domain"
)

var (
	// ErrNoRecord is returned when the requested record does not exist.
	ErrNoRecord = errors.New("repo: no record")
	// ErrDuplicate is returned when a unique key is already taken.
	ErrDuplicate = errors.New("repo: duplicate record")
	// ErrConflict is returned when a transaction lost a race it could not retry.
	ErrConflict = errors.New("repo: concurrent modification")
)

// Index names a secondary index over todos.
type Index string

const (
	IndexByOwner              Index = "by_owner"
	IndexByOwnerStatus        Index = "by_owner_status"
	IndexByOwnerPriority      Index = "by_owner_priority"
	IndexByOwnerStatusCreated Index = "by_owner_status_created"
)

// Order is the created-at order of query results.
type Order int

const (
	OrderDesc Order = iota
	OrderAsc
)

// IndexQuery is an equality match on an index prefix.
type IndexQuery struct {
	Index    Index
	OwnerID  string
	Status   dom.Status
	Priority dom.Priority
	Order    Order
}

// Validate checks that every attribute of the index prefix is set.
func (q IndexQuery) Validate() error {
	if q.OwnerID == "" {
		return fmt.Errorf("index %s: owner is required", q.Index)
	}
	switch q.Index {
	case IndexByOwner:
	case IndexByOwnerStatus, IndexByOwnerStatusCreated:
		if q.Status == "" {
			return fmt.Errorf("index %s: status is required", q.Index)
		}
	case IndexByOwnerPriority:
		if q.Priority == "" {
			return fmt.Errorf("index %s: priority is required", q.Index)
		}
	default:
		return fmt.Errorf("unknown index %q", q.Index)
	}
	return nil
}

// indexKey is the equality prefix of t under index idx.
func indexKey(idx Index, t dom.Todo) string {
	switch idx {
	case IndexByOwnerStatus, IndexByOwnerStatusCreated:
		return t.OwnerID + "#" + string(t.Status)
	case IndexByOwnerPriority:
		return t.OwnerID + "#" + string(t.Priority)
	default:
		return t.OwnerID
	}
}

func (q IndexQuery) key() string {
	return indexKey(q.Index, dom.Todo{OwnerID: q.OwnerID, Status: q.Status, Priority: q.Priority})
}

// TodoRepo is the only access point to persisted todos.
type TodoRepo interface {
	// Insert stores t and returns its ID. An empty t.ID is assigned by the store.
	Insert(ctx context.Context, t dom.Todo) (string, error)
	// Get returns ErrNoRecord when id does not exist.
	Get(ctx context.Context, id string) (dom.Todo, error)
	Query(ctx context.Context, q IndexQuery) ([]dom.Todo, error)
	// InTx runs fn as one atomic unit: records read through tx cannot be
	// changed by anyone else between the read and fn's write. Stores without
	// rollback apply writes immediately, so fn must do all checks before it
	// writes.
	InTx(ctx context.Context, fn func(ctx context.Context, tx TodoTx) error) error
}

// TodoTx is the read-then-write view of a transaction.
type TodoTx interface {
	Get(ctx context.Context, id string) (dom.Todo, error)
	Patch(ctx context.Context, id string, p dom.TodoPatch, at time.Time) (dom.Todo, error)
	Delete(ctx context.Context, id string) error
}
