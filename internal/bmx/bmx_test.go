package bmx

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MrSnakeDoc/soundgate/internal/domain"
)

func TestCatalogDefault(t *testing.T) {
	out, err := NewCatalog("", "http://soundgate.lan:8000/").Services()
	if err != nil {
		t.Fatalf("Services() error = %v", err)
	}
	s := string(out)
	if strings.Contains(s, "{MEDIA_SERVER}") || strings.Contains(s, "{BMX_SERVER}") {
		t.Error("placeholders not substituted")
	}
	if !strings.Contains(s, `"http://soundgate.lan:8000/bmx/orion"`) || !strings.Contains(s, `"http://soundgate.lan:8000/media/radio.png"`) {
		t.Errorf("Services() = %s", s)
	}
}

func TestCatalogFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "services.json")
	if err := os.WriteFile(path, []byte(`{"askAgainAfter":1,"bmx_services":[{"baseUrl":"{BMX_SERVER}/x"}]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := NewCatalog(path, "http://h").Services()
	if err != nil || string(out) != `{"askAgainAfter":1,"bmx_services":[{"baseUrl":"http://h/x"}]}` {
		t.Errorf("Services() = %s, %v", out, err)
	}

	if err := os.WriteFile(path, []byte(`{not json`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewCatalog(path, "http://h").Services(); err == nil {
		t.Error("invalid JSON should be rejected")
	}
	if _, err := NewCatalog(filepath.Join(dir, "missing.json"), "http://h").Services(); err == nil {
		t.Error("missing file should be an error")
	}
}

func TestDecodeStation(t *testing.T) {
	data := EncodeStation("http://radio.example/stream.mp3", "http://radio.example/logo.png", "Jazz FM")

	for name, in := range map[string]string{
		"padded":   data,
		"unpadded": strings.TrimRight(data, "="),
		"urlsafe":  base64.RawURLEncoding.EncodeToString([]byte(`{"streamUrl":"http://radio.example/stream.mp3?a=1&b=~~~","imageUrl":"","name":"Jazz FM"}`)),
	} {
		t.Run(name, func(t *testing.T) {
			resp, err := DecodeStation(in)
			if err != nil {
				t.Fatalf("DecodeStation() error = %v", err)
			}
			if resp.Name != "Jazz FM" || resp.StreamType != "liveRadio" || len(resp.Audio.Streams) != 1 {
				t.Errorf("DecodeStation() = %+v", resp)
			}
			if resp.Audio.StreamURL != resp.Audio.Streams[0].StreamURL {
				t.Error("audio and stream URLs differ")
			}
		})
	}
}

func TestDecodeStationJSONShape(t *testing.T) {
	resp, err := DecodeStation(EncodeStation("http://s", "http://i", "n"))
	if err != nil {
		t.Fatal(err)
	}
	b, _ := json.Marshal(resp)
	want := `{"audio":{"hasPlaylist":true,"isRealtime":true,"streamUrl":"http://s","streams":[{"hasPlaylist":true,"isRealtime":true,"streamUrl":"http://s"}]},"imageUrl":"http://i","name":"n","streamType":"liveRadio"}`
	if string(b) != want {
		t.Errorf("json = %s\nwant %s", b, want)
	}
}

func TestDecodeStationErrors(t *testing.T) {
	for name, in := range map[string]string{
		"not base64": "!!!",
		"not json":   base64.StdEncoding.EncodeToString([]byte("nope")),
		"no stream":  base64.StdEncoding.EncodeToString([]byte(`{"name":"x"}`)),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeStation(in)
			if !errors.Is(err, domain.ErrClientProtocol) {
				t.Errorf("DecodeStation() error = %v, want client protocol error", err)
			}
		})
	}
}

func TestMediaPath(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "radio.png"), []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}

	if p, err := MediaPath(dir, "radio.png"); err != nil || p != filepath.Join(dir, "radio.png") {
		t.Errorf("MediaPath() = %q, %v", p, err)
	}
	for _, name := range []string{"missing.png", "sub", "..", "../radio.png", "/etc/passwd"} {
		if _, err := MediaPath(dir, name); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("MediaPath(%q) error = %v, want not found", name, err)
		}
	}
	if got := SanitizeFilename("a b/../c?.mp3"); got != "ab..c.mp3" {
		t.Errorf("SanitizeFilename() = %q", got)
	}
}
