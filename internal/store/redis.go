package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"transitadmin/internal/models"
)

const defaultUpdateRetries = 5

// RedisAdapter keeps each collection as one JSON string. Update is an
// optimistic WATCH/MULTI cycle retried a bounded number of times.
type RedisAdapter struct {
	client     *redis.Client
	prefix     string
	maxRetries int
}

func NewRedisAdapter(client *redis.Client, prefix string, maxRetries int) *RedisAdapter {
	if maxRetries <= 0 {
		maxRetries = defaultUpdateRetries
	}
	if prefix == "" {
		prefix = "transit"
	}
	return &RedisAdapter{
		client:     client,
		prefix:     prefix,
		maxRetries: maxRetries,
	}
}

func (r *RedisAdapter) collectionKey(name Name) string {
	return fmt.Sprintf("%s:collection:%s", r.prefix, name)
}

func (r *RedisAdapter) sessionKey(id string) string {
	return fmt.Sprintf("%s:session:%s", r.prefix, id)
}

func (r *RedisAdapter) Read(ctx context.Context, name Name) ([]json.RawMessage, error) {
	raw, err := r.client.Get(ctx, r.collectionKey(name)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []json.RawMessage{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return decodeRecords(raw)
}

func (r *RedisAdapter) Write(ctx context.Context, name Name, records []json.RawMessage) error {
	raw, err := encodeRecords(records)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.collectionKey(name), raw, 0).Err(); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// Update may call fn more than once when a concurrent writer wins the race.
func (r *RedisAdapter) Update(ctx context.Context, name Name, fn UpdateFunc) error {
	key := r.collectionKey(name)

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		records, err := decodeRecords(raw)
		if err != nil {
			return err
		}
		next, err := fn(records)
		if err != nil {
			return err
		}
		encoded, err := encodeRecords(next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, 0)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < r.maxRetries; attempt++ {
		err := r.client.Watch(ctx, txf, key)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, ErrUnchanged):
			return nil
		case errors.Is(err, redis.TxFailedErr):
			continue
		default:
			return fmt.Errorf("update %s: %w", name, err)
		}
	}
	return fmt.Errorf("update %s: %w", name, ErrConflict)
}

func (r *RedisAdapter) ReadSession(ctx context.Context, id string) (models.Session, error) {
	raw, err := r.client.Get(ctx, r.sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.Session{}, ErrSessionNotFound
		}
		return models.Session{}, fmt.Errorf("read session: %w", err)
	}
	var session models.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return models.Session{}, fmt.Errorf("decode session: %w", err)
	}
	return session, nil
}

func (r *RedisAdapter) WriteSession(ctx context.Context, session models.Session) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return r.ClearSession(ctx, session.SessionID)
	}
	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.sessionKey(session.SessionID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

func (r *RedisAdapter) ClearSession(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (r *RedisAdapter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
