package repo

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	dom "TodoApp/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	pgID      = "0b6f8a52-3c1e-4d7a-9f21-5e8c4b7d2a10"
	pgMissing = "7c2d9e41-8a3b-4f5c-b6d0-1e9f2a3c4b5d"
)

var pgCols = []string{"id", "owner_id", "title", "description", "status", "priority", "due_date", "created_at", "updated_at"}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock
}

func TestPGTodoRepo_Insert(t *testing.T) {
	mock := newMock(t)
	r := NewPGTodoRepo(mock)
	td := dom.Todo{ID: "t1", OwnerID: "u1", Title: "a", Status: dom.StatusActive, Priority: dom.PriorityLow, CreatedAt: t0, UpdatedAt: t0}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO todos")).
		WithArgs("t1", "u1", "a", "", "active", "low", td.DueDate, t0, t0).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	id, err := r.Insert(context.Background(), td)
	require.NoError(t, err)
	assert.Equal(t, "t1", id)
}

func TestPGTodoRepo_InsertDuplicate(t *testing.T) {
	mock := newMock(t)
	r := NewPGTodoRepo(mock)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO todos")).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := r.Insert(context.Background(), dom.Todo{ID: "t1", OwnerID: "u1"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestPGTodoRepo_GetNotFound(t *testing.T) {
	mock := newMock(t)
	r := NewPGTodoRepo(mock)

	mock.ExpectQuery(`FROM todos WHERE id = \$1$`).
		WithArgs(pgMissing).
		WillReturnError(pgx.ErrNoRows)

	_, err := r.Get(context.Background(), pgMissing)
	assert.ErrorIs(t, err, ErrNoRecord)
}

func TestPGTodoRepo_QueryByStatus(t *testing.T) {
	mock := newMock(t)
	r := NewPGTodoRepo(mock)

	rows := pgxmock.NewRows(pgCols).
		AddRow("t2", "u1", "b", "", "completed", "high", nil, t0.Add(time.Minute), t0.Add(time.Minute)).
		AddRow("t1", "u1", "a", "d", "completed", "low", nil, t0, t0)
	mock.ExpectQuery(`FROM todos WHERE owner_id = \$1 AND status = \$2\s+ORDER BY created_at ASC, seq ASC`).
		WithArgs("u1", "completed").
		WillReturnRows(rows)

	list, err := r.Query(context.Background(), IndexQuery{
		Index: IndexByOwnerStatus, OwnerID: "u1", Status: dom.StatusCompleted, Order: OrderAsc,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, titles(list))
	assert.Equal(t, dom.PriorityHigh, list[0].Priority)
	assert.Nil(t, list[0].DueDate)
}

func TestPGTodoRepo_TxPatchCommits(t *testing.T) {
	mock := newMock(t)
	r := NewPGTodoRepo(mock)
	at := t0.Add(time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM todos WHERE id = \$1 FOR UPDATE`).
		WithArgs(pgID).
		WillReturnRows(pgxmock.NewRows(pgCols).AddRow(pgID, "u1", "a", "", "active", "low", nil, t0, t0))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE todos SET status = $2, updated_at = $3 WHERE id = $1 RETURNING")).
		WithArgs(pgID, "completed", at).
		WillReturnRows(pgxmock.NewRows(pgCols).AddRow(pgID, "u1", "a", "", "completed", "low", nil, t0, at))
	mock.ExpectCommit()

	done := dom.StatusCompleted
	var out dom.Todo
	err := r.InTx(context.Background(), func(ctx context.Context, tx TodoTx) error {
		cur, err := tx.Get(ctx, pgID)
		if err != nil {
			return err
		}
		assert.Equal(t, dom.StatusActive, cur.Status)
		out, err = tx.Patch(ctx, pgID, dom.TodoPatch{Status: &done}, at)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, dom.StatusCompleted, out.Status)
	assert.Equal(t, at, out.UpdatedAt)
}

func TestPGTodoRepo_TxRollsBackOnError(t *testing.T) {
	mock := newMock(t)
	r := NewPGTodoRepo(mock)
	boom := errors.New("forbidden")

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM todos WHERE id = $1")).
		WithArgs(pgID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectRollback()

	err := r.InTx(context.Background(), func(ctx context.Context, tx TodoTx) error {
		if err := tx.Delete(ctx, pgID); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestPGTodoRepo_TxDeleteMissing(t *testing.T) {
	mock := newMock(t)
	r := NewPGTodoRepo(mock)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM todos WHERE id = $1")).
		WithArgs(pgID).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectRollback()

	err := r.InTx(context.Background(), func(ctx context.Context, tx TodoTx) error {
		return tx.Delete(ctx, pgID)
	})
	assert.ErrorIs(t, err, ErrNoRecord)
}

func TestPGTodoRepo_GetMalformedID(t *testing.T) {
	mock := newMock(t)
	r := NewPGTodoRepo(mock)

	_, err := r.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNoRecord)

	mock.ExpectBegin()
	mock.ExpectRollback()
	err = r.InTx(context.Background(), func(ctx context.Context, tx TodoTx) error {
		if _, err := tx.Get(ctx, "abc"); !errors.Is(err, ErrNoRecord) {
			return err
		}
		if _, err := tx.Patch(ctx, "abc", dom.TodoPatch{}, t0); !errors.Is(err, ErrNoRecord) {
			return err
		}
		return tx.Delete(ctx, "abc")
	})
	assert.ErrorIs(t, err, ErrNoRecord)
}

func TestPGUserRepo_CreateDuplicate(t *testing.T) {
	mock := newMock(t)
	r := NewPGUserRepo(mock)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs(pgxmock.AnyArg(), "alice", "a@example.com", "hash").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := r.Create(context.Background(), dom.User{Username: "alice", Email: "a@example.com", PasswordHash: "hash"})
	assert.ErrorIs(t, err, ErrDuplicate)
}
