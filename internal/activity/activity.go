// Package activity records operator-visible events (approvals, key
// regenerations, sweeps) to a capped Redis stream and reads them back for
// the dashboard log page.
package activity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	User      string    `json:"user"`
	Details   string    `json:"details"`
	Level     Level     `json:"level"`
}

type Filter struct {
	Level  Level
	Action string
	Search string
	Limit  int64
}

// Log is what services publish to and handlers read from.
type Log interface {
	Record(ctx context.Context, entry Entry) error
	List(ctx context.Context, filter Filter) ([]Entry, error)
}

type actorKey struct{}

// WithActor tags ctx with the display name of whoever triggered the work.
func WithActor(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, actorKey{}, name)
}

func ActorFrom(ctx context.Context) string {
	if name, ok := ctx.Value(actorKey{}).(string); ok && name != "" {
		return name
	}
	return "system"
}

// Nop drops every entry. Used when no Redis is configured.
type Nop struct{}

func (Nop) Record(context.Context, Entry) error { return nil }

func (Nop) List(context.Context, Filter) ([]Entry, error) { return []Entry{}, nil }

type StreamLog struct {
	client *redis.Client
	stream string
	maxLen int64
	now    func() time.Time
}

func NewStreamLog(client *redis.Client, stream string, maxLen int64) *StreamLog {
	if maxLen <= 0 {
		maxLen = 10000
	}
	return &StreamLog{client: client, stream: stream, maxLen: maxLen, now: time.Now}
}

func (l *StreamLog) Record(ctx context.Context, entry Entry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = l.now().UTC()
	}
	if entry.Level == "" {
		entry.Level = LevelInfo
	}
	if entry.User == "" {
		entry.User = ActorFrom(ctx)
	}

	err := l.client.XAdd(ctx, &redis.XAddArgs{
		Stream: l.stream,
		MaxLen: l.maxLen,
		Approx: true,
		Values: map[string]any{
			"timestamp": entry.Timestamp.Format(time.RFC3339Nano),
			"action":    entry.Action,
			"user":      entry.User,
			"details":   entry.Details,
			"level":     string(entry.Level),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("record activity: %w", err)
	}
	return nil
}

// List returns entries newest first.
func (l *StreamLog) List(ctx context.Context, filter Filter) ([]Entry, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}

	msgs, err := l.client.XRevRange(ctx, l.stream, "+", "-").Result()
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	entries := make([]Entry, 0)
	for _, msg := range msgs {
		entry := decodeEntry(msg)
		if filter.Level != "" && entry.Level != filter.Level {
			continue
		}
		if filter.Action != "" && entry.Action != filter.Action {
			continue
		}
		if search != "" && !matches(entry, search) {
			continue
		}
		entries = append(entries, entry)
		if int64(len(entries)) >= limit {
			break
		}
	}
	return entries, nil
}

func matches(entry Entry, search string) bool {
	return strings.Contains(strings.ToLower(entry.Action), search) ||
		strings.Contains(strings.ToLower(entry.User), search) ||
		strings.Contains(strings.ToLower(entry.Details), search)
}

func decodeEntry(msg redis.XMessage) Entry {
	str := func(key string) string {
		if v, ok := msg.Values[key].(string); ok {
			return v
		}
		return ""
	}
	ts, _ := time.Parse(time.RFC3339Nano, str("timestamp"))
	return Entry{
		ID:        msg.ID,
		Timestamp: ts,
		Action:    str("action"),
		User:      str("user"),
		Details:   str("details"),
		Level:     Level(str("level")),
	}
}
