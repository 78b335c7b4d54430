package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/soundgate/internal/exchange"
)

func TestEntryStreamRoundTrip(t *testing.T) {
	first := exchange.NewEntry(time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC))
	first.Target = "bmx"
	first.Outcome = exchange.OutcomeForwarded
	first.Request = exchange.Request{Method: "GET", Path: "/bmx/registry/v1/services"}
	first.Response = &exchange.Response{Status: 200, Body: "{}"}

	second := exchange.NewEntry(time.Date(2024, 5, 6, 7, 8, 10, 0, time.UTC))
	second.Target = "marge"
	second.Outcome = exchange.OutcomeFallback
	second.Error = "upstream returned 503"

	ids := []string{"1715000000001-0", "1715000000000-0"}
	var msgs []redis.XMessage
	for i, e := range []exchange.Entry{second, first} {
		values, err := encodeEntry(e)
		if err != nil {
			t.Fatalf("encodeEntry() error = %v", err)
		}
		msgs = append(msgs, redis.XMessage{ID: ids[i], Values: values})
	}

	got := decodeEntries(msgs)
	if len(got) != 2 {
		t.Fatalf("decodeEntries() returned %d entries, want 2", len(got))
	}
	if got[0].ID != second.ID || got[1].ID != first.ID {
		t.Errorf("stream order not kept: %s, %s", got[0].ID, got[1].ID)
	}
	if got[1].Response == nil || got[1].Response.Status != 200 || got[1].Request.Path != first.Request.Path {
		t.Errorf("decoded entry = %+v", got[1])
	}
	if got[0].Outcome != exchange.OutcomeFallback || got[0].Error != second.Error {
		t.Errorf("decoded entry = %+v", got[0])
	}
	if !got[1].Timestamp.Equal(first.Timestamp) {
		t.Errorf("timestamp = %v, want %v", got[1].Timestamp, first.Timestamp)
	}
}

func TestDecodeEntriesSkipsBadMessages(t *testing.T) {
	good, err := encodeEntry(exchange.NewEntry(time.Now()))
	if err != nil {
		t.Fatal(err)
	}
	msgs := []redis.XMessage{
		{ID: "1-0", Values: map[string]any{"other": "x"}},
		{ID: "2-0", Values: map[string]any{FieldEntry: "{not json"}},
		{ID: "3-0", Values: map[string]any{FieldEntry: 42}},
		{ID: "4-0", Values: good},
	}
	if got := decodeEntries(msgs); len(got) != 1 {
		t.Errorf("decodeEntries() = %d entries, want 1", len(got))
	}
}

func TestNewStoreDefaultsMaxLen(t *testing.T) {
	if s := NewStore(nil, 0); s.maxLen != DefaultStreamMaxLen {
		t.Errorf("maxLen = %d, want %d", s.maxLen, DefaultStreamMaxLen)
	}
	if s := NewStore(nil, 50); s.maxLen != 50 {
		t.Errorf("maxLen = %d, want 50", s.maxLen)
	}
}

func TestRecordWrapsClientErrors(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	s := NewStore(client, 10)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Record(ctx, exchange.NewEntry(time.Now())); err == nil {
		t.Error("Record() against an unreachable server should fail")
	}
	if _, err := s.Recent(ctx, 5); err == nil {
		t.Error("Recent() against an unreachable server should fail")
	}
}
