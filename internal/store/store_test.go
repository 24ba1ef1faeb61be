package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transitadmin/internal/errs"
	"transitadmin/internal/models"
)

func newRedisAdapter(t *testing.T) (*RedisAdapter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisAdapter(client, "test", 3), mr
}

func adapters(t *testing.T) map[string]Adapter {
	redisAdapter, _ := newRedisAdapter(t)
	return map[string]Adapter{
		"memory": NewMemoryAdapter(),
		"redis":  redisAdapter,
	}
}

func TestAdapterContract(t *testing.T) {
	for name, adapter := range adapters(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			records, err := adapter.Read(ctx, Users)
			require.NoError(t, err)
			assert.Empty(t, records, "absent collection reads as empty")

			require.NoError(t, adapter.Write(ctx, Users, []json.RawMessage{
				json.RawMessage(`{"id":"u1"}`),
				json.RawMessage(`{"id":"u2"}`),
			}))
			records, err = adapter.Read(ctx, Users)
			require.NoError(t, err)
			require.Len(t, records, 2)
			assert.JSONEq(t, `{"id":"u1"}`, string(records[0]))

			err = adapter.Update(ctx, Users, func(records []json.RawMessage) ([]json.RawMessage, error) {
				return append(records, json.RawMessage(`{"id":"u3"}`)), nil
			})
			require.NoError(t, err)
			records, err = adapter.Read(ctx, Users)
			require.NoError(t, err)
			assert.Len(t, records, 3)

			err = adapter.Update(ctx, Users, func([]json.RawMessage) ([]json.RawMessage, error) {
				return nil, ErrUnchanged
			})
			require.NoError(t, err)
			records, err = adapter.Read(ctx, Users)
			require.NoError(t, err)
			assert.Len(t, records, 3, "unchanged update must not write")

			boom := errors.New("boom")
			err = adapter.Update(ctx, Users, func([]json.RawMessage) ([]json.RawMessage, error) {
				return nil, boom
			})
			assert.ErrorIs(t, err, boom)

			other, err := adapter.Read(ctx, Verifications)
			require.NoError(t, err)
			assert.Empty(t, other, "collections are independent")
		})
	}
}

func TestAdapterSessions(t *testing.T) {
	for name, adapter := range adapters(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			session := models.Session{
				SessionID: "s1",
				ID:        "admin1",
				Name:      "Admin User",
				Email:     "admin@example.com",
				Role:      models.UserRoleAdmin,
				ExpiresAt: time.Now().Add(time.Hour),
			}

			_, err := adapter.ReadSession(ctx, "s1")
			assert.ErrorIs(t, err, ErrSessionNotFound)
			assert.ErrorIs(t, err, errs.ErrNotFound)

			require.NoError(t, adapter.WriteSession(ctx, session))
			got, err := adapter.ReadSession(ctx, "s1")
			require.NoError(t, err)
			assert.Equal(t, "admin1", got.ID)
			assert.Equal(t, models.UserRoleAdmin, got.Role)

			records, err := adapter.Read(ctx, Users)
			require.NoError(t, err)
			assert.Empty(t, records, "session slots live outside the collections")

			require.NoError(t, adapter.ClearSession(ctx, "s1"))
			_, err = adapter.ReadSession(ctx, "s1")
			assert.ErrorIs(t, err, ErrSessionNotFound)
		})
	}
}

func TestMemoryAdapterExpiredSession(t *testing.T) {
	adapter := NewMemoryAdapter()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	adapter.now = func() time.Time { return now }

	require.NoError(t, adapter.WriteSession(context.Background(), models.Session{SessionID: "s1", ExpiresAt: now.Add(time.Minute)}))
	now = now.Add(2 * time.Minute)

	_, err := adapter.ReadSession(context.Background(), "s1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisAdapterSessionTTL(t *testing.T) {
	adapter, mr := newRedisAdapter(t)
	ctx := context.Background()

	require.NoError(t, adapter.WriteSession(ctx, models.Session{SessionID: "s1", ExpiresAt: time.Now().Add(time.Minute)}))
	assert.True(t, mr.Exists("test:session:s1"))

	mr.FastForward(2 * time.Minute)
	_, err := adapter.ReadSession(ctx, "s1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisAdapterUpdateConflict(t *testing.T) {
	adapter, mr := newRedisAdapter(t)
	ctx := context.Background()

	rival := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rival.Close()

	// Every attempt gets raced by another client writing the watched key.
	err := adapter.Update(ctx, Users, func(records []json.RawMessage) ([]json.RawMessage, error) {
		require.NoError(t, rival.Set(ctx, "test:collection:users", `[{"id":"other"}]`, 0).Err())
		return append(records, json.RawMessage(`{"id":"mine"}`)), nil
	})
	assert.ErrorIs(t, err, ErrConflict)

	records, err := adapter.Read(ctx, Users)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.JSONEq(t, `{"id":"other"}`, string(records[0]))
}
