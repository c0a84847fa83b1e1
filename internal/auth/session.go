package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	dom "TodoApp/internal/domain"

	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "session:"
	sessionTTL       = 24 * time.Hour
)

// Store manages sessions in Redis. Each session holds the caller identity as JSON.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStore returns a new session store.
func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = sessionTTL
	}
	return &Store{rdb: rdb, ttl: ttl}
}

// TTL is how long a session lives after creation.
func (s *Store) TTL() time.Duration { return s.ttl }

// Create stores a new session for the identity and returns its ID.
func (s *Store) Create(ctx context.Context, id dom.Identity) (string, error) {
	if id.ID == "" {
		return "", errors.New("session: empty identity")
	}
	sid, err := newSessionID()
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(id)
	if err != nil {
		return "", fmt.Errorf("session: marshal: %w", err)
	}
	if err := s.rdb.Set(ctx, sessionKeyPrefix+sid, b, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("session: set: %w", err)
	}
	return sid, nil
}

// Get returns the identity of a session. ok is false when the session does
// not exist or has expired.
func (s *Store) Get(ctx context.Context, sid string) (dom.Identity, bool, error) {
	b, err := s.rdb.Get(ctx, sessionKeyPrefix+sid).Bytes()
	if errors.Is(err, redis.Nil) {
		return dom.Identity{}, false, nil
	}
	if err != nil {
		return dom.Identity{}, false, fmt.Errorf("session: get: %w", err)
	}
	var id dom.Identity
	if err := json.Unmarshal(b, &id); err != nil || id.ID == "" {
		// Unreadable sessions are treated as absent.
		return dom.Identity{}, false, nil
	}
	return id, true, nil
}

// Delete removes a session by ID.
func (s *Store) Delete(ctx context.Context, sid string) error {
	return s.rdb.Del(ctx, sessionKeyPrefix+sid).Err()
}

func newSessionID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("rand: %w", err)
	}
	return hex.EncodeToString(b), nil
}
