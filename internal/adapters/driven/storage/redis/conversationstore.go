// Package redis provides a durable conversation store backed by Redis.
//
// Each conversation is a list of JSON-encoded messages plus a small hash of
// timestamps. A sorted set indexes conversations by last update so List can
// return the most recent first. When a TTL is configured every append
// refreshes the expiry of the conversation keys.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Ensure ConversationStore implements the interface.
var _ driven.ConversationStore = (*ConversationStore)(nil)

const (
	defaultPrefix = "sercha-rag"

	fieldCreated = "created_at"
	fieldUpdated = "updated_at"
)

// ConversationStore keeps conversations in Redis.
type ConversationStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// Options configures the store.
type Options struct {
	Addr     string
	Password string
	DB       int

	// Prefix namespaces every key. Defaults to "sercha-rag".
	Prefix string

	// TTL expires idle conversations. Zero keeps them forever.
	TTL time.Duration
}

// NewConversationStore connects to Redis and verifies the connection.
func NewConversationStore(ctx context.Context, opts Options) (*ConversationStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", opts.Addr, err)
	}
	logger.Debug("Connected to redis at %s", opts.Addr)
	return NewConversationStoreWithClient(client, opts.Prefix, opts.TTL), nil
}

// NewConversationStoreWithClient wraps an existing client.
func NewConversationStoreWithClient(client *redis.Client, prefix string, ttl time.Duration) *ConversationStore {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &ConversationStore{client: client, prefix: prefix, ttl: ttl}
}

// Close closes the Redis connection.
func (s *ConversationStore) Close() error {
	return s.client.Close()
}

func (s *ConversationStore) messagesKey(id string) string {
	return s.prefix + ":conv:" + id + ":messages"
}

func (s *ConversationStore) metaKey(id string) string {
	return s.prefix + ":conv:" + id + ":meta"
}

func (s *ConversationStore) indexKey() string {
	return s.prefix + ":conversations"
}

// Append adds messages to the end of a conversation, creating it if needed.
func (s *ConversationStore) Append(ctx context.Context, id string, msgs ...domain.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	encoded, err := encodeMessages(msgs)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	stamp := now.Format(time.RFC3339Nano)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, s.messagesKey(id), encoded...)
		pipe.HSetNX(ctx, s.metaKey(id), fieldCreated, stamp)
		pipe.HSet(ctx, s.metaKey(id), fieldUpdated, stamp)
		pipe.ZAdd(ctx, s.indexKey(), &redis.Z{Score: float64(now.UnixNano()), Member: id})
		if s.ttl > 0 {
			pipe.Expire(ctx, s.messagesKey(id), s.ttl)
			pipe.Expire(ctx, s.metaKey(id), s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("appending to conversation %s: %w", id, err)
	}
	return nil
}

// Get returns a conversation.
func (s *ConversationStore) Get(ctx context.Context, id string) (*domain.Conversation, error) {
	var meta *redis.StringStringMapCmd
	var raw *redis.StringSliceCmd
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		meta = pipe.HGetAll(ctx, s.metaKey(id))
		raw = pipe.LRange(ctx, s.messagesKey(id), 0, -1)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading conversation %s: %w", id, err)
	}
	if len(meta.Val()) == 0 {
		return nil, domain.ErrNotFound
	}

	msgs, err := decodeMessages(raw.Val())
	if err != nil {
		return nil, fmt.Errorf("decoding conversation %s: %w", id, err)
	}
	conv := &domain.Conversation{ID: id, Messages: msgs}
	conv.CreatedAt, conv.UpdatedAt = parseMeta(meta.Val())
	return conv, nil
}

// List returns summaries, most recently updated first. Index entries whose
// conversation has expired are pruned.
func (s *ConversationStore) List(ctx context.Context) ([]domain.ConversationSummary, error) {
	ids, err := s.client.ZRevRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	if len(ids) == 0 {
		return []domain.ConversationSummary{}, nil
	}

	metas := make([]*redis.StringStringMapCmd, len(ids))
	counts := make([]*redis.IntCmd, len(ids))
	lasts := make([]*redis.StringCmd, len(ids))
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			metas[i] = pipe.HGetAll(ctx, s.metaKey(id))
			counts[i] = pipe.LLen(ctx, s.messagesKey(id))
			lasts[i] = pipe.LIndex(ctx, s.messagesKey(id), -1)
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("reading conversation summaries: %w", err)
	}

	out := make([]domain.ConversationSummary, 0, len(ids))
	var expired []any
	for i, id := range ids {
		if len(metas[i].Val()) == 0 {
			expired = append(expired, id)
			continue
		}
		summary := domain.ConversationSummary{ID: id, MessageCount: int(counts[i].Val())}
		summary.CreatedAt, summary.UpdatedAt = parseMeta(metas[i].Val())
		if last := lasts[i].Val(); last != "" {
			var msg domain.Message
			if err := json.Unmarshal([]byte(last), &msg); err == nil {
				ts := msg.Timestamp
				summary.LastMessageAt = &ts
			}
		}
		out = append(out, summary)
	}

	if len(expired) > 0 {
		if err := s.client.ZRem(ctx, s.indexKey(), expired...).Err(); err != nil {
			logger.Warn("Pruning expired conversations: %v", err)
		}
	}
	return out, nil
}

// Delete removes a conversation.
func (s *ConversationStore) Delete(ctx context.Context, id string) error {
	var del *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, s.messagesKey(id), s.metaKey(id))
		pipe.ZRem(ctx, s.indexKey(), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("deleting conversation %s: %w", id, err)
	}
	if del.Val() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func encodeMessages(msgs []domain.Message) ([]any, error) {
	out := make([]any, len(msgs))
	for i, m := range msgs {
		b, err := json.Marshal(m)
		if err != nil {
			return nil, fmt.Errorf("encoding message: %w", err)
		}
		out[i] = string(b)
	}
	return out, nil
}

func decodeMessages(raw []string) ([]domain.Message, error) {
	msgs := make([]domain.Message, 0, len(raw))
	for _, r := range raw {
		var m domain.Message
		if err := json.Unmarshal([]byte(r), &m); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

func parseMeta(meta map[string]string) (created, updated time.Time) {
	created, _ = time.Parse(time.RFC3339Nano, meta[fieldCreated])
	updated, _ = time.Parse(time.RFC3339Nano, meta[fieldUpdated])
	return created, updated
}
