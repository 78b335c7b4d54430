package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// FileName is the JSON-lines log inside the exchange log directory.
const FileName = "exchanges.jsonl"

// FileSink appends one JSON object per line. Writes are serialized so
// concurrent entries never interleave.
type FileSink struct {
	mu   sync.Mutex
	f    *os.File
	path string
}

func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create exchange log dir: %w", err)
	}
	path := filepath.Join(dir, FileName)
	f, err := openLog(path)
	if err != nil {
		return nil, fmt.Errorf("open exchange log: %w", err)
	}
	return &FileSink{f: f, path: path}, nil
}

func (s *FileSink) Path() string { return s.path }

func (s *FileSink) Record(_ context.Context, e Entry) error {
	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode exchange entry: %w", err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.f.Write(line); err != nil {
		return fmt.Errorf("write exchange entry: %w", err)
	}
	return nil
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Close()
}

// Size returns the current size of the live log.
func (s *FileSink) Size() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fi, err := s.f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat exchange log: %w", err)
	}
	return fi.Size(), nil
}

// Rotate renames the live log to exchanges-<timestamp>.jsonl and starts a
// new one. Entries recorded concurrently land in exactly one of the two.
func (s *FileSink) Rotate(now time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rotated := filepath.Join(filepath.Dir(s.path), rotatedPrefix+now.UTC().Format(rotatedLayout)+".jsonl")
	if err := os.Rename(s.path, rotated); err != nil {
		// The live file may be gone; start a fresh one so Record keeps working.
		if f, openErr := openLog(s.path); openErr == nil {
			s.swap(f)
		}
		return "", fmt.Errorf("rotate exchange log: %w", err)
	}
	f, err := openLog(s.path)
	if err != nil {
		// s.f still points at the renamed file and stays writable.
		return "", fmt.Errorf("reopen exchange log: %w", err)
	}
	s.swap(f)
	return rotated, nil
}

func (s *FileSink) swap(f *os.File) {
	old := s.f
	s.f = f
	_ = old.Close()
}

func openLog(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
}

const (
	rotatedPrefix = "exchanges-"
	rotatedLayout = "20060102T150405.000000000Z"
)

// Rotated lists rotated logs in dir with the time they were rotated.
func Rotated(dir string) (map[string]time.Time, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list exchange logs: %w", err)
	}
	out := make(map[string]time.Time)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, rotatedPrefix) || !strings.HasSuffix(name, ".jsonl") {
			continue
		}
		stamp := strings.TrimSuffix(strings.TrimPrefix(name, rotatedPrefix), ".jsonl")
		t, err := time.Parse(rotatedLayout, stamp)
		if err != nil {
			continue
		}
		out[filepath.Join(dir, name)] = t
	}
	return out, nil
}
