package repo

import (
	"context"
	"errors"
	"sync"
	"time"

	dom "TodoApp/internal/domain"
	"TodoApp/internal/utils"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// UserRepo provides user persistence.
type UserRepo interface {
	// GetByUsername returns ErrNoRecord when no such user exists.
	GetByUsername(ctx context.Context, username string) (dom.User, error)
	// Create returns ErrDuplicate when the username is taken.
	Create(ctx context.Context, u dom.User) (dom.User, error)
}

// PGUserRepo implements UserRepo with Postgres.
type PGUserRepo struct {
	db PgxPool
}

// NewPGUserRepo returns a new PGUserRepo.
func NewPGUserRepo(db PgxPool) *PGUserRepo {
	return &PGUserRepo{db: db}
}

// GetByUsername returns the user by username.
func (r *PGUserRepo) GetByUsername(ctx context.Context, username string) (dom.User, error) {
	var u dom.User
	err := r.db.QueryRow(ctx,
		`SELECT id, username, email, password_hash, created_at FROM users WHERE username = $1`,
		username,
	).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return dom.User{}, ErrNoRecord
	}
	return u, err
}

// Create inserts a new user and returns it.
func (r *PGUserRepo) Create(ctx context.Context, u dom.User) (dom.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	query := `
		INSERT INTO users (id, username, email, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id, username, email, password_hash, created_at`
	var out dom.User
	err := r.db.QueryRow(ctx, query, u.ID, u.Username, u.Email, u.PasswordHash).Scan(
		&out.ID, &out.Username, &out.Email, &out.PasswordHash, &out.CreatedAt,
	)
	if err != nil {
		if utils.IsPGUniqueViolation(err) {
			return dom.User{}, ErrDuplicate
		}
		return dom.User{}, err
	}
	return out, nil
}

// MemoryUserRepo keeps users in process memory.
type MemoryUserRepo struct {
	mu    sync.RWMutex
	users map[string]dom.User
}

func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{users: make(map[string]dom.User)}
}

func (r *MemoryUserRepo) GetByUsername(_ context.Context, username string) (dom.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[username]
	if !ok {
		return dom.User{}, ErrNoRecord
	}
	return u, nil
}

func (r *MemoryUserRepo) Create(_ context.Context, u dom.User) (dom.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.Username]; ok {
		return dom.User{}, ErrDuplicate
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	r.users[u.Username] = u
	return u, nil
}
