package pdfquiz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionStore persists sessions between requests (in-memory, Redis, etc).
type SessionStore interface {
	Load(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, id string, session *Session) error
	Delete(ctx context.Context, id string) error
}

// MemorySessionStore keeps session snapshots in process memory.
type MemorySessionStore struct {
	mu        sync.RWMutex
	snapshots map[string]SessionSnapshot
	opts      []SessionOption
}

// NewMemorySessionStore creates an empty store; opts apply to every loaded session
func NewMemorySessionStore(opts ...SessionOption) *MemorySessionStore {
	return &MemorySessionStore{
		snapshots: make(map[string]SessionSnapshot),
		opts:      opts,
	}
}

// Load restores the session saved under id
func (s *MemorySessionStore) Load(_ context.Context, id string) (*Session, error) {
	s.mu.RLock()
	snap, ok := s.snapshots[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return RestoreSession(snap, s.opts...)
}

// Save stores a snapshot of session under id
func (s *MemorySessionStore) Save(_ context.Context, id string, session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[id] = session.Snapshot()
	return nil
}

// Delete forgets the session saved under id
func (s *MemorySessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snapshots, id)
	return nil
}

// RedisSessionStore keeps JSON session snapshots in Redis with a sliding TTL.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
	opts   []SessionOption
}

// NewRedisSessionStore creates a store on client; every save refreshes the ttl
func NewRedisSessionStore(client *redis.Client, ttl time.Duration, opts ...SessionOption) *RedisSessionStore {
	return &RedisSessionStore{
		client: client,
		ttl:    ttl,
		opts:   opts,
	}
}

// Load fetches and restores the session saved under id
func (s *RedisSessionStore) Load(ctx context.Context, id string) (*Session, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var snap SessionSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return RestoreSession(snap, s.opts...)
}

// Save writes session as JSON under id and resets its expiry
func (s *RedisSessionStore) Save(ctx context.Context, id string, session *Session) error {
	data, err := json.Marshal(session.Snapshot())
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(id), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Delete removes the session saved under id
func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) key(id string) string {
	return "pdfquiz:session:" + id
}
