package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"

	"telegram-medication-report/internal/models"
)

// RedisStore keeps the document under one key and uses WATCH for compare-and-swap.
type RedisStore struct {
	client    *redis.Client
	key       string
	legacyKey string
}

func NewRedisStore(client *redis.Client, key, legacyKey string) *RedisStore {
	return &RedisStore{client: client, key: key, legacyKey: legacyKey}
}

func (r *RedisStore) Load(ctx context.Context) (*models.Document, error) {
	return r.get(ctx, r.client)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (r *RedisStore) get(ctx context.Context, c getter) (*models.Document, error) {
	b, err := c.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.NewDocument(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", r.key, err)
	}
	doc, _, err := Upgrade(b, r.legacyKey)
	return doc, err
}

func (r *RedisStore) Save(ctx context.Context, doc *models.Document) error {
	next := *doc
	next.Version = doc.Version + 1
	body, err := encode(&next)
	if err != nil {
		return err
	}

	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := r.get(ctx, tx)
		if err != nil {
			return err
		}
		if current.Version != doc.Version {
			return ErrConflict
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, r.key, body, 0)
			return nil
		})
		return err
	}, r.key)

	if errors.Is(err, redis.TxFailedErr) {
		return ErrConflict
	}
	if err != nil {
		return err
	}
	doc.Version = next.Version
	return nil
}
