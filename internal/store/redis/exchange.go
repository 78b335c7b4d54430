package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/soundgate/internal/exchange"
)

// Store keeps exchange entries in a capped Redis stream so several
// operators can tail traffic without touching the gateway's disk.
type Store struct {
	client *redis.Client
	maxLen int64
}

// NewStore creates a new Redis exchange store. maxLen <= 0 uses
// DefaultStreamMaxLen.
func NewStore(client *redis.Client, maxLen int64) *Store {
	if maxLen <= 0 {
		maxLen = DefaultStreamMaxLen
	}
	return &Store{
		client: client,
		maxLen: maxLen,
	}
}

// Record appends an entry to the stream.
func (s *Store) Record(ctx context.Context, e exchange.Entry) error {
	values, err := encodeEntry(e)
	if err != nil {
		return err
	}
	err = s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: KeyExchangeStream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: values,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to append exchange entry: %w", err)
	}
	return nil
}

// Recent returns up to count entries, newest first.
func (s *Store) Recent(ctx context.Context, count int64) ([]exchange.Entry, error) {
	msgs, err := s.client.XRevRangeN(ctx, KeyExchangeStream, "+", "-", count).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read exchange stream: %w", err)
	}
	return decodeEntries(msgs), nil
}

func encodeEntry(e exchange.Entry) (map[string]any, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal exchange entry: %w", err)
	}
	return map[string]any{FieldEntry: string(data)}, nil
}

// decodeEntries keeps stream order and skips messages without a readable
// entry field.
func decodeEntries(msgs []redis.XMessage) []exchange.Entry {
	entries := make([]exchange.Entry, 0, len(msgs))
	for _, m := range msgs {
		raw, ok := m.Values[FieldEntry].(string)
		if !ok {
			continue
		}
		var e exchange.Entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries
}

// Close is a no-op; the client is owned by the caller.
func (s *Store) Close() error { return nil }
