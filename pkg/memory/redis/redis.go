// Package redis provides a Redis-backed memory store. Each conversation is a
// Redis list of JSON-encoded turns; appends are RPUSH and retrieval is an
// LRANGE over the tail of the list.
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/papercomputeco/recall/pkg/llm"
	"github.com/papercomputeco/recall/pkg/memory"
)

// DefaultKeyPrefix namespaces conversation keys.
const DefaultKeyPrefix = "recall:chat-memory:"

// Config holds configuration for the Redis store.
type Config struct {
	// Addr is the host:port of the Redis server.
	Addr string

	// Password is optional.
	Password string

	// DB selects the logical database.
	DB int

	// KeyPrefix is prepended to every conversation ID. Defaults to DefaultKeyPrefix.
	KeyPrefix string
}

// Store implements memory.Store on Redis lists.
type Store struct {
	client goredis.UniversalClient
	prefix string
}

var _ memory.Store = (*Store)(nil)

// NewStore creates a Redis store. No connection is made until the first
// command; call Ping to verify reachability.
func NewStore(cfg Config) *Store {
	client := goredis.NewUniversalClient(&goredis.UniversalOptions{
		Addrs:    []string{cfg.Addr},
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewStoreWithClient(client, cfg.KeyPrefix)
}

// NewStoreWithClient wraps an existing client.
func NewStoreWithClient(client goredis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Store{client: client, prefix: prefix}
}

// Ping checks that the server is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}
	return nil
}

func (s *Store) Retrieve(ctx context.Context, conversationID string, lastN int) ([]llm.Message, error) {
	start := int64(0)
	if lastN > 0 {
		start = -int64(lastN)
	}

	raw, err := s.client.LRange(ctx, s.key(conversationID), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read turns: %w", err)
	}

	turns := make([]llm.Message, 0, len(raw))
	for _, item := range raw {
		var msg llm.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal turn: %w", err)
		}
		turns = append(turns, msg)
	}
	return turns, nil
}

func (s *Store) Append(ctx context.Context, conversationID string, turns ...llm.Message) error {
	if len(turns) == 0 {
		return nil
	}

	values := make([]any, 0, len(turns))
	for _, turn := range turns {
		encoded, err := json.Marshal(turn)
		if err != nil {
			return fmt.Errorf("failed to marshal turn: %w", err)
		}
		values = append(values, string(encoded))
	}

	if err := s.client.RPush(ctx, s.key(conversationID), values...).Err(); err != nil {
		return fmt.Errorf("failed to append turns: %w", err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context, conversationID string) error {
	if err := s.client.Del(ctx, s.key(conversationID)).Err(); err != nil {
		return fmt.Errorf("failed to clear turns: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) key(conversationID string) string {
	return s.prefix + conversationID
}
