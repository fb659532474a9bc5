package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/dashsync/internal/remote"
)

// DefaultRedisKey holds the document when the DSN names no key.
const DefaultRedisKey = "dashsync:document"

// Redis keeps the document as a single JSON string.
type Redis struct {
	client *redis.Client
	key    string
	now    func() time.Time
}

// NewRedis wraps client. The store owns the client and closes it.
func NewRedis(client *redis.Client, key string, now func() time.Time) *Redis {
	if key == "" {
		key = DefaultRedisKey
	}
	if now == nil {
		now = time.Now
	}
	return &Redis{client: client, key: key, now: now}
}

func (r *Redis) Load(ctx context.Context) (remote.Document, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return remote.Document{}.Defaults(), nil
	}
	if err != nil {
		return remote.Document{}, r.wrap("load", err)
	}
	var doc remote.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return remote.Document{}, fmt.Errorf("failed to unmarshal document: %w", err)
	}
	return doc.Defaults(), nil
}

func (r *Redis) Save(ctx context.Context, doc remote.Document) (remote.Document, error) {
	doc = prepare(doc, r.now())
	data, err := json.Marshal(doc)
	if err != nil {
		return remote.Document{}, fmt.Errorf("failed to marshal document: %w", err)
	}
	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return remote.Document{}, r.wrap("save", err)
	}
	return doc, nil
}

func (r *Redis) Close() error { return r.client.Close() }

func (r *Redis) wrap(op string, err error) error {
	if errors.Is(err, redis.ErrClosed) {
		return ErrClosed
	}
	return fmt.Errorf("failed to %s document: %w", op, err)
}
