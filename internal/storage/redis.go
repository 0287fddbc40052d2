package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/skypro1111/feelcard-service/internal/card"
)

const (
	sortedKey  = "items:sorted"
	itemPrefix = "item:"
)

// RedisIndex stores each card as JSON under item:<id> and orders ids in a
// sorted set scored by creation time in microseconds. Microsecond Unix times
// stay below 2^53 and are exact as float64 scores.
type RedisIndex struct {
	client *redis.Client
}

// NewRedisIndex wraps an existing client
func NewRedisIndex(client *redis.Client) *RedisIndex {
	return &RedisIndex{client: client}
}

// NewRedisIndexFromURL parses a redis:// or rediss:// URL
func NewRedisIndexFromURL(url string) (*RedisIndex, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return NewRedisIndex(redis.NewClient(opts)), nil
}

func itemKey(id string) string {
	return itemPrefix + id
}

// Save writes the record and its sort entry in one transaction
func (r *RedisIndex) Save(ctx context.Context, c card.Card) error {
	const op = "save item"

	data, err := json.Marshal(c)
	if err != nil {
		return card.Fail(card.KindStorage, op, err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, itemKey(c.ID), data, 0)
	pipe.ZAdd(ctx, sortedKey, redis.Z{
		Score:  float64(c.CreatedAt.UnixMicro()),
		Member: c.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return card.Fail(card.KindStorage, op, err)
	}
	return nil
}

// List reads the newest limit ids and fetches their records. Ids whose record
// is missing or unreadable are skipped.
func (r *RedisIndex) List(ctx context.Context, limit int) ([]card.Card, error) {
	const op = "list items"

	limit = normalizeLimit(limit)
	if limit == 0 {
		return []card.Card{}, nil
	}

	ids, err := r.client.ZRevRange(ctx, sortedKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, card.Fail(card.KindStorage, op, err)
	}
	if len(ids) == 0 {
		return []card.Card{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = itemKey(id)
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, card.Fail(card.KindStorage, op, err)
	}

	cards := make([]card.Card, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var c card.Card
		if err := json.Unmarshal([]byte(raw), &c); err != nil {
			continue
		}
		cards = append(cards, c)
	}
	return cards, nil
}

func (r *RedisIndex) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisIndex) Kind() string { return "redis" }

func (r *RedisIndex) Close() error { return r.client.Close() }
