package attendance

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionStore keeps in-flight marking sessions. Implemented by
// RedisSessionStore; tests use an in-memory map.
type SessionStore interface {
	Put(ctx context.Context, sess *Session) error
	Get(ctx context.Context, id string) (*Session, error)
}

// RedisSessionStore holds sessions in Redis with a TTL, so abandoned
// attempts expire on their own.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSessionStore creates a store. TTL bounds how long a student can
// take to walk through the gates.
func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisSessionStore{client: client, ttl: ttl}
}

func sessionKey(id string) string { return "campus:attendance:session:" + id }

// Put stores or refreshes a session.
func (s *RedisSessionStore) Put(ctx context.Context, sess *Session) error {
	b, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, sessionKey(sess.ID), b, s.ttl).Err()
}

// Get returns a session by id, or nil when absent or expired.
func (s *RedisSessionStore) Get(ctx context.Context, id string) (*Session, error) {
	b, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var sess Session
	if err := json.Unmarshal(b, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}
