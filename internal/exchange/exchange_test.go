package exchange

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"
)

func TestDecodeBody(t *testing.T) {
	if got := DecodeBody([]byte("<presets/>")); got != "<presets/>" {
		t.Errorf("DecodeBody(text) = %q", got)
	}
	if got := DecodeBody([]byte{0xff, 0xfe, 0x00}); got != "base64://4A" {
		t.Errorf("DecodeBody(binary) = %q", got)
	}
	if got := DecodeBody(nil); got != "" {
		t.Errorf("DecodeBody(nil) = %q", got)
	}
}

func TestFlattenHeaders(t *testing.T) {
	h := http.Header{}
	h.Add("Accept", "text/xml")
	h.Add("Accept", "application/xml")
	got := FlattenHeaders(h)
	if got["Accept"] != "text/xml, application/xml" {
		t.Errorf("FlattenHeaders() = %v", got)
	}
}

func TestNewEntry(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.FixedZone("CET", 3600))
	a, b := NewEntry(now), NewEntry(now)
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("ids not unique: %q %q", a.ID, b.ID)
	}
	if a.Timestamp.Location() != time.UTC || !a.Timestamp.Equal(now) {
		t.Errorf("Timestamp = %v", a.Timestamp)
	}
}

func TestFileSinkConcurrentWrites(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewFileSink(dir)
	if err != nil {
		t.Fatalf("NewFileSink() error = %v", err)
	}

	const n = 100
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e := NewEntry(time.Now())
			e.Target = "marge"
			e.Outcome = OutcomeForwarded
			e.Request = Request{Method: "GET", Path: fmt.Sprintf("/marge/%d", i)}
			if err := sink.Record(context.Background(), e); err != nil {
				t.Errorf("Record() error = %v", err)
			}
		}(i)
	}
	wg.Wait()
	if err := sink.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	f, err := os.Open(sink.Path())
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	seen := map[string]bool{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("line %q is not valid JSON: %v", sc.Text(), err)
		}
		seen[e.Request.Path] = true
	}
	if len(seen) != n {
		t.Errorf("got %d distinct entries, want %d", len(seen), n)
	}
}

func TestFileSinkAppends(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 2; i++ {
		sink, err := NewFileSink(dir)
		if err != nil {
			t.Fatal(err)
		}
		if err := sink.Record(context.Background(), NewEntry(time.Now())); err != nil {
			t.Fatal(err)
		}
		sink.Close()
	}
	data, err := os.ReadFile(dir + "/" + FileName)
	if err != nil {
		t.Fatal(err)
	}
	lines := 0
	for _, c := range data {
		if c == '\n' {
			lines++
		}
	}
	if lines != 2 {
		t.Errorf("reopened log has %d lines, want 2", lines)
	}
}

type countSink struct {
	n   int
	err error
}

func (s *countSink) Record(context.Context, Entry) error { s.n++; return s.err }
func (s *countSink) Close() error                        { return s.err }

func TestTee(t *testing.T) {
	boom := errors.New("boom")
	a, b := &countSink{}, &countSink{err: boom}
	sink := Tee(a, nil, b)

	err := sink.Record(context.Background(), NewEntry(time.Now()))
	if !errors.Is(err, boom) {
		t.Errorf("Record() error = %v, want boom", err)
	}
	if a.n != 1 || b.n != 1 {
		t.Errorf("fan-out counts = %d, %d", a.n, b.n)
	}
	if !errors.Is(sink.Close(), boom) {
		t.Error("Close() should surface sink errors")
	}
}

func TestFileSinkRotate(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewFileSink(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer sink.Close()

	ctx := context.Background()
	if err := sink.Record(ctx, NewEntry(time.Now())); err != nil {
		t.Fatal(err)
	}
	before, _ := sink.Size()
	if before == 0 {
		t.Fatal("Size() = 0 after a write")
	}

	at := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	rotated, err := sink.Rotate(at)
	if err != nil {
		t.Fatalf("Rotate() error = %v", err)
	}
	if size, _ := sink.Size(); size != 0 {
		t.Errorf("live log size after rotate = %d, want 0", size)
	}
	if err := sink.Record(ctx, NewEntry(time.Now())); err != nil {
		t.Fatalf("Record() after rotate error = %v", err)
	}

	list, err := Rotated(dir)
	if err != nil {
		t.Fatal(err)
	}
	if got, ok := list[rotated]; !ok || !got.Equal(at) {
		t.Errorf("Rotated() = %v, want %s at %v", list, rotated, at)
	}
	if len(list) != 1 {
		t.Errorf("Rotated() should ignore the live log, got %v", list)
	}
}

func TestFileSinkRecoversFromFailedRotate(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewFileSink(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer sink.Close()

	if err := os.Remove(sink.Path()); err != nil {
		t.Fatal(err)
	}
	if _, err := sink.Rotate(time.Now()); err == nil {
		t.Fatal("Rotate() with the live log missing should fail")
	}

	if err := sink.Record(context.Background(), NewEntry(time.Now())); err != nil {
		t.Fatalf("Record() after failed rotate error = %v", err)
	}
	size, err := sink.Size()
	if err != nil {
		t.Fatalf("Size() after failed rotate error = %v", err)
	}
	if size == 0 {
		t.Error("entry did not reach the live log")
	}
	if _, err := os.Stat(sink.Path()); err != nil {
		t.Errorf("live log not recreated: %v", err)
	}
}
