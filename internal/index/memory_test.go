package index

import (
	"sync"
	"testing"

	"github.com/MrSnakeDoc/soundgate/internal/domain"
)

func TestNewMemoryIndex(t *testing.T) {
	index := NewMemoryIndex()
	if index == nil {
		t.Fatal("NewMemoryIndex() returned nil")
	}
	if got := index.Count(); got != 0 {
		t.Errorf("NewMemoryIndex() should start empty, got %v", got)
	}
	if !index.GetLastReload().IsZero() {
		t.Error("GetLastReload() should be zero before the first update")
	}
}

func TestUpdateSpeakers(t *testing.T) {
	index := NewMemoryIndex()

	index.UpdateSpeakers([]domain.Speaker{
		{AccountID: "1", DeviceID: "A", IPAddress: "192.168.1.20"},
		{AccountID: "1", DeviceID: "B", IPAddress: "192.168.1.21"},
		{AccountID: "2", DeviceID: "C"},
	})

	if got := index.Count(); got != 3 {
		t.Errorf("Count() = %v, want 3", got)
	}
	if got := len(index.Speakers()); got != 2 {
		t.Errorf("Speakers() = %v entries, want 2 addressable", got)
	}
	sp, ok := index.ByIP("192.168.1.21")
	if !ok || sp.DeviceID != "B" {
		t.Errorf("ByIP() = %+v, %v", sp, ok)
	}
	if index.GetLastReload().IsZero() {
		t.Error("GetLastReload() not updated")
	}
}

func TestUpdateSpeakersOverwrites(t *testing.T) {
	index := NewMemoryIndex()
	index.UpdateSpeakers([]domain.Speaker{{DeviceID: "A", IPAddress: "10.0.0.1"}})
	index.UpdateSpeakers([]domain.Speaker{{DeviceID: "B", IPAddress: "10.0.0.2"}})

	if index.HasIP("10.0.0.1") {
		t.Error("UpdateSpeakers() should overwrite previous entries")
	}
	if !index.HasIP("10.0.0.2") {
		t.Error("new speaker missing")
	}
}

func TestAddAndRemoveSpeaker(t *testing.T) {
	index := NewMemoryIndex()
	index.AddSpeaker(domain.Speaker{DeviceID: "A", IPAddress: "10.0.0.1"})
	index.AddSpeaker(domain.Speaker{DeviceID: "A", Name: "Kitchen", IPAddress: "10.0.0.1"})
	index.AddSpeaker(domain.Speaker{DeviceID: "X"})

	if got := index.Count(); got != 1 {
		t.Errorf("Count() = %v after re-adding the same IP, want 1", got)
	}
	if sp, _ := index.ByIP("10.0.0.1"); sp.Name != "Kitchen" {
		t.Errorf("AddSpeaker() did not update: %+v", sp)
	}

	index.RemoveDevice("A")
	if index.HasIP("10.0.0.1") || index.Count() != 0 {
		t.Error("RemoveDevice() left the speaker behind")
	}
}

func TestSpeakersSorted(t *testing.T) {
	index := NewMemoryIndex()
	index.UpdateSpeakers([]domain.Speaker{
		{DeviceID: "C", IPAddress: "10.0.0.3"},
		{DeviceID: "A", IPAddress: "10.0.0.1"},
		{DeviceID: "B", IPAddress: "10.0.0.2"},
	})
	got := index.Speakers()
	for i, want := range []string{"A", "B", "C"} {
		if got[i].DeviceID != want {
			t.Errorf("Speakers()[%d] = %s, want %s", i, got[i].DeviceID, want)
		}
	}
}

func TestConcurrentAccess(t *testing.T) {
	index := NewMemoryIndex()
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			index.UpdateSpeakers([]domain.Speaker{{DeviceID: "A", IPAddress: "10.0.0.1"}})
		}()
		go func() {
			defer wg.Done()
			_ = index.HasIP("10.0.0.1")
			_ = index.Speakers()
		}()
	}
	wg.Wait()
}
