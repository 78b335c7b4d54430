package filestore

import (
	"os"
)

// ETags are the collection file's mtime in milliseconds. Two writes inside
// the same millisecond (or a clock step backwards) would leave the mtime
// unchanged, so every write made by this process also raises an in-memory
// floor: the ETag after a write is always greater than the one before it,
// and greater than any ETag this process issued earlier.

func (s *Store) etagForPath(path string) int64 {
	var mtime int64
	if fi, err := os.Stat(path); err == nil {
		mtime = fi.ModTime().UnixMilli()
	}
	s.etagMu.Lock()
	defer s.etagMu.Unlock()
	if floor := s.etagFloor[path]; floor > mtime {
		return floor
	}
	return mtime
}

func (s *Store) bumpETag(path string, before int64) {
	var mtime int64
	if fi, err := os.Stat(path); err == nil {
		mtime = fi.ModTime().UnixMilli()
	}
	next := max(mtime, before+1)
	s.etagMu.Lock()
	next = max(next, s.lastETag+1)
	s.lastETag = next
	s.etagFloor[path] = next
	s.etagMu.Unlock()
}

// ETagForPresets returns the change token of the account's presets.
// A missing collection yields 0.
func (s *Store) ETagForPresets(account string) int64 {
	return s.etagForPath(s.collectionPath(account, PresetsFile))
}

// ETagForRecents returns the change token of the account's recents.
func (s *Store) ETagForRecents(account string) int64 {
	return s.etagForPath(s.collectionPath(account, RecentsFile))
}

// ETagForSources returns the change token of the account's sources.
func (s *Store) ETagForSources(account string) int64 {
	return s.etagForPath(s.collectionPath(account, SourcesFile))
}

// ETagForAccount is the max over the account's collections, so it changes
// whenever any of them does.
func (s *Store) ETagForAccount(account string) int64 {
	return max(s.ETagForPresets(account), s.ETagForSources(account), s.ETagForRecents(account))
}
