package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	dom "TodoApp/internal/domain"

	"github.com/google/uuid"
)

var memoryIndexes = []Index{IndexByOwner, IndexByOwnerStatus, IndexByOwnerPriority, IndexByOwnerStatusCreated}

type memRow struct {
	todo dom.Todo
	seq  int64
}

// MemoryTodoRepo keeps todos in process memory with the same secondary
// indexes as the database schema. Transactions are serialized by one mutex.
type MemoryTodoRepo struct {
	mu      sync.Mutex
	rows    map[string]memRow
	seq     int64
	indexes map[Index]map[string]map[string]struct{}
}

func NewMemoryTodoRepo() *MemoryTodoRepo {
	r := &MemoryTodoRepo{
		rows:    make(map[string]memRow),
		indexes: make(map[Index]map[string]map[string]struct{}),
	}
	for _, idx := range memoryIndexes {
		r.indexes[idx] = make(map[string]map[string]struct{})
	}
	return r
}

func (r *MemoryTodoRepo) Insert(_ context.Context, t dom.Todo) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if _, ok := r.rows[t.ID]; ok {
		return "", ErrDuplicate
	}
	r.seq++
	r.put(memRow{todo: detach(t), seq: r.seq})
	return t.ID, nil
}

func (r *MemoryTodoRepo) Get(_ context.Context, id string) (dom.Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[id]
	if !ok {
		return dom.Todo{}, ErrNoRecord
	}
	return detach(row.todo), nil
}

func (r *MemoryTodoRepo) Query(_ context.Context, q IndexQuery) ([]dom.Todo, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ids := r.indexes[q.Index][q.key()]
	rows := make([]memRow, 0, len(ids))
	for id := range ids {
		rows = append(rows, r.rows[id])
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !a.todo.CreatedAt.Equal(b.todo.CreatedAt) {
			if q.Order == OrderAsc {
				return a.todo.CreatedAt.Before(b.todo.CreatedAt)
			}
			return a.todo.CreatedAt.After(b.todo.CreatedAt)
		}
		if q.Order == OrderAsc {
			return a.seq < b.seq
		}
		return a.seq > b.seq
	})

	out := make([]dom.Todo, len(rows))
	for i, row := range rows {
		out[i] = detach(row.todo)
	}
	return out, nil
}

func (r *MemoryTodoRepo) InTx(ctx context.Context, fn func(ctx context.Context, tx TodoTx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx := &memTx{repo: r, pending: make(map[string]*dom.Todo)}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	for id, t := range tx.pending {
		if t == nil {
			r.remove(id)
			continue
		}
		row := r.rows[id]
		r.remove(id)
		row.todo = detach(*t)
		r.put(row)
	}
	return nil
}

// Len returns the number of stored todos.
func (r *MemoryTodoRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

func (r *MemoryTodoRepo) put(row memRow) {
	r.rows[row.todo.ID] = row
	for _, idx := range memoryIndexes {
		k := indexKey(idx, row.todo)
		set, ok := r.indexes[idx][k]
		if !ok {
			set = make(map[string]struct{})
			r.indexes[idx][k] = set
		}
		set[row.todo.ID] = struct{}{}
	}
}

func (r *MemoryTodoRepo) remove(id string) {
	row, ok := r.rows[id]
	if !ok {
		return
	}
	delete(r.rows, id)
	for _, idx := range memoryIndexes {
		k := indexKey(idx, row.todo)
		delete(r.indexes[idx][k], id)
		if len(r.indexes[idx][k]) == 0 {
			delete(r.indexes[idx], k)
		}
	}
}

// memTx buffers writes until InTx commits. The repo mutex is held throughout.
type memTx struct {
	repo    *MemoryTodoRepo
	pending map[string]*dom.Todo
}

func (tx *memTx) Get(_ context.Context, id string) (dom.Todo, error) {
	if t, ok := tx.pending[id]; ok {
		if t == nil {
			return dom.Todo{}, ErrNoRecord
		}
		return detach(*t), nil
	}
	row, ok := tx.repo.rows[id]
	if !ok {
		return dom.Todo{}, ErrNoRecord
	}
	return detach(row.todo), nil
}

func (tx *memTx) Patch(ctx context.Context, id string, p dom.TodoPatch, at time.Time) (dom.Todo, error) {
	cur, err := tx.Get(ctx, id)
	if err != nil {
		return dom.Todo{}, err
	}
	next := p.Apply(cur, at)
	tx.pending[id] = &next
	return detach(next), nil
}

// detach copies the due date so callers never share it with a stored row.
func detach(t dom.Todo) dom.Todo {
	if t.DueDate != nil {
		d := *t.DueDate
		t.DueDate = &d
	}
	return t
}

func (tx *memTx) Delete(ctx context.Context, id string) error {
	if _, err := tx.Get(ctx, id); err != nil {
		return err
	}
	tx.pending[id] = nil
	return nil
}
