package index

import (
	"sort"
	"sync"
	"time"

	"github.com/MrSnakeDoc/soundgate/internal/domain"
)

// MemoryIndex holds the registered speakers keyed by IP address so the
// allowlist can answer without touching the filesystem on every request.
type MemoryIndex struct {
	mu         sync.RWMutex
	byIP       map[string]domain.Speaker // IP -> Speaker
	count      int
	lastReload time.Time
}

// NewMemoryIndex creates an empty speaker index
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		byIP: make(map[string]domain.Speaker),
	}
}

// UpdateSpeakers replaces all speakers in the index. Speakers without an IP
// are counted but not addressable.
func (idx *MemoryIndex) UpdateSpeakers(speakers []domain.Speaker) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	// Clear and rebuild
	idx.byIP = make(map[string]domain.Speaker, len(speakers))
	for _, sp := range speakers {
		if sp.IPAddress != "" {
			idx.byIP[sp.IPAddress] = sp
		}
	}
	idx.count = len(speakers)
	idx.lastReload = time.Now()
}

// AddSpeaker adds or updates a single speaker
func (idx *MemoryIndex) AddSpeaker(sp domain.Speaker) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if sp.IPAddress == "" {
		return
	}
	if _, ok := idx.byIP[sp.IPAddress]; !ok {
		idx.count++
	}
	idx.byIP[sp.IPAddress] = sp
}

// RemoveDevice drops every entry for device.
func (idx *MemoryIndex) RemoveDevice(deviceID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for ip, sp := range idx.byIP {
		if sp.DeviceID == deviceID {
			delete(idx.byIP, ip)
			idx.count--
		}
	}
}

// ByIP looks up the speaker registered at ip
func (idx *MemoryIndex) ByIP(ip string) (domain.Speaker, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	sp, ok := idx.byIP[ip]
	return sp, ok
}

// HasIP reports whether ip belongs to a registered speaker
func (idx *MemoryIndex) HasIP(ip string) bool {
	_, ok := idx.ByIP(ip)
	return ok
}

// Speakers returns all addressable speakers sorted by IP
func (idx *MemoryIndex) Speakers() []domain.Speaker {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := make([]domain.Speaker, 0, len(idx.byIP))
	for _, sp := range idx.byIP {
		out = append(out, sp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IPAddress < out[j].IPAddress })
	return out
}

// Count returns the number of registered speakers
func (idx *MemoryIndex) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.count
}

// GetLastReload returns the timestamp of the last full rebuild
func (idx *MemoryIndex) GetLastReload() time.Time {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.lastReload
}
