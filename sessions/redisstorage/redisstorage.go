package redisstorage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-hr-admin/sessions"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const defaultPrefix = "hradmin:"

var (
	_ sessions.Storage = (*RedisStorage)(nil)
	_ sessions.Watcher = (*RedisStorage)(nil)
)

// RedisStorage shares the auth record between processes. Each write also
// publishes the writer's instance ID so other instances can resynchronise.
type RedisStorage struct {
	client     redis.UniversalClient
	prefix     string
	instanceID string
}

func New(client redis.UniversalClient, prefix string) *RedisStorage {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &RedisStorage{
		client:     client,
		prefix:     prefix,
		instanceID: uuid.NewString(),
	}
}

// NewFromURL connects using a redis:// URL.
func NewFromURL(rawURL, prefix string) (*RedisStorage, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("[redisstorage NewFromURL] parse url: %w", err)
	}
	return New(redis.NewClient(opts), prefix), nil
}

func (s *RedisStorage) key(key string) string {
	return s.prefix + key
}

func (s *RedisStorage) channel(key string) string {
	return s.prefix + key + ":changed"
}

func (s *RedisStorage) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("[redisstorage Get] %w", err)
	}
	return data, true, nil
}

func (s *RedisStorage) Set(ctx context.Context, key string, data []byte) error {
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, s.key(key), data, 0)
		p.Publish(ctx, s.channel(key), s.instanceID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("[redisstorage Set] %w", err)
	}
	return nil
}

func (s *RedisStorage) Delete(ctx context.Context, key string) error {
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, s.key(key))
		p.Publish(ctx, s.channel(key), s.instanceID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("[redisstorage Delete] %w", err)
	}
	return nil
}

// Watch calls onChange for every change published by another instance.
func (s *RedisStorage) Watch(ctx context.Context, key string, onChange func()) error {
	pubsub := s.client.Subscribe(ctx, s.channel(key))
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("[redisstorage Watch] subscribe: %w", err)
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if msg.Payload == s.instanceID {
				continue
			}
			log.Debug().Str("channel", msg.Channel).Msg("Auth record changed by another instance")
			onChange()
		}
	}
}

func (s *RedisStorage) Close() error {
	return s.client.Close()
}
