package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	dom "TodoApp/internal/domain"
	"TodoApp/internal/utils"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the subset of *pgxpool.Pool the repositories use.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// pgQuerier is what both the pool and a transaction offer.
type pgQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const todoColumns = `id, owner_id, title, description, status, priority, due_date, created_at, updated_at`

type PGTodoRepo struct {
	db PgxPool
}

func NewPGTodoRepo(db PgxPool) *PGTodoRepo {
	return &PGTodoRepo{db: db}
}

func (r *PGTodoRepo) Insert(ctx context.Context, t dom.Todo) (string, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	query := `
		INSERT INTO todos (` + todoColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.Exec(ctx, query,
		t.ID, t.OwnerID, t.Title, t.Description, string(t.Status), string(t.Priority),
		t.DueDate, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if utils.IsPGUniqueViolation(err) {
			return "", ErrDuplicate
		}
		return "", err
	}
	return t.ID, nil
}

func (r *PGTodoRepo) Get(ctx context.Context, id string) (dom.Todo, error) {
	return getTodo(ctx, r.db, id, false)
}

func (r *PGTodoRepo) Query(ctx context.Context, q IndexQuery) ([]dom.Todo, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	where := []string{"owner_id = $1"}
	args := []any{q.OwnerID}
	switch q.Index {
	case IndexByOwnerStatus, IndexByOwnerStatusCreated:
		where = append(where, "status = $2")
		args = append(args, string(q.Status))
	case IndexByOwnerPriority:
		where = append(where, "priority = $2")
		args = append(args, string(q.Priority))
	}
	dir := "DESC"
	if q.Order == OrderAsc {
		dir = "ASC"
	}
	query := fmt.Sprintf(`
		SELECT %s
		FROM todos WHERE %s
		ORDER BY created_at %s, seq %s`, todoColumns, strings.Join(where, " AND "), dir, dir)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []dom.Todo
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

// InTx runs fn inside a Postgres transaction; tx.Get locks the row with FOR UPDATE.
func (r *PGTodoRepo) InTx(ctx context.Context, fn func(ctx context.Context, tx TodoTx) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(ctx, &pgTodoTx{tx: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

type pgTodoTx struct {
	tx pgx.Tx
}

func (t *pgTodoTx) Get(ctx context.Context, id string) (dom.Todo, error) {
	return getTodo(ctx, t.tx, id, true)
}

func (t *pgTodoTx) Patch(ctx context.Context, id string, p dom.TodoPatch, at time.Time) (dom.Todo, error) {
	if !isUUID(id) {
		return dom.Todo{}, ErrNoRecord
	}
	sets := []string{}
	args := []any{id}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if p.Title != nil {
		add("title", *p.Title)
	}
	if p.Description != nil {
		add("description", *p.Description)
	}
	if p.Status != nil {
		add("status", string(*p.Status))
	}
	if p.Priority != nil {
		add("priority", string(*p.Priority))
	}
	if p.DueDate != nil {
		add("due_date", *p.DueDate)
	}
	add("updated_at", at)

	query := `UPDATE todos SET ` + strings.Join(sets, ", ") + ` WHERE id = $1 RETURNING ` + todoColumns
	out, err := scanTodo(t.tx.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return dom.Todo{}, ErrNoRecord
	}
	return out, err
}

func (t *pgTodoTx) Delete(ctx context.Context, id string) error {
	if !isUUID(id) {
		return ErrNoRecord
	}
	tag, err := t.tx.Exec(ctx, `DELETE FROM todos WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRecord
	}
	return nil
}

// isUUID reports whether id fits the UUID id column. Anything else names no row.
func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func getTodo(ctx context.Context, db pgQuerier, id string, forUpdate bool) (dom.Todo, error) {
	if !isUUID(id) {
		return dom.Todo{}, ErrNoRecord
	}
	query := `SELECT ` + todoColumns + ` FROM todos WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	t, err := scanTodo(db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return dom.Todo{}, ErrNoRecord
	}
	return t, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTodo(row rowScanner) (dom.Todo, error) {
	var (
		t        dom.Todo
		status   string
		priority string
	)
	err := row.Scan(&t.ID, &t.OwnerID, &t.Title, &t.Description, &status, &priority,
		&t.DueDate, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return dom.Todo{}, err
	}
	t.Status = dom.Status(status)
	t.Priority = dom.Priority(priority)
	return t, nil
}
