package bmx

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/MrSnakeDoc/soundgate/internal/domain"
)

type Stream struct {
	HasPlaylist bool   `json:"hasPlaylist"`
	IsRealtime  bool   `json:"isRealtime"`
	StreamURL   string `json:"streamUrl"`
}

type Audio struct {
	HasPlaylist bool     `json:"hasPlaylist"`
	IsRealtime  bool     `json:"isRealtime"`
	StreamURL   string   `json:"streamUrl"`
	Streams     []Stream `json:"streams"`
}

// PlaybackResponse tells the speaker what to play for a station.
type PlaybackResponse struct {
	Audio      Audio  `json:"audio"`
	ImageURL   string `json:"imageUrl"`
	Name       string `json:"name"`
	StreamType string `json:"streamType"`
}

type station struct {
	StreamURL string `json:"streamUrl"`
	ImageURL  string `json:"imageUrl"`
	Name      string `json:"name"`
}

// DecodeStation turns the base64 JSON {streamUrl, imageUrl, name} a custom
// preset carries into a live radio playback response.
func DecodeStation(data string) (*PlaybackResponse, error) {
	raw, err := decodeBase64(strings.TrimSpace(data))
	if err != nil {
		return nil, domain.NewMalformedPayloadError("station data", err)
	}
	var st station
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, domain.NewMalformedPayloadError("station data", err)
	}
	if st.StreamURL == "" {
		return nil, domain.NewMissingFieldError("streamUrl")
	}

	return &PlaybackResponse{
		Audio: Audio{
			HasPlaylist: true,
			IsRealtime:  true,
			StreamURL:   st.StreamURL,
			Streams: []Stream{{
				HasPlaylist: true,
				IsRealtime:  true,
				StreamURL:   st.StreamURL,
			}},
		},
		ImageURL:   st.ImageURL,
		Name:       st.Name,
		StreamType: "liveRadio",
	}, nil
}

// EncodeStation is the inverse of DecodeStation. The URL-safe alphabet
// keeps the result usable as a path segment.
func EncodeStation(streamURL, imageURL, name string) string {
	b, _ := json.Marshal(station{StreamURL: streamURL, ImageURL: imageURL, Name: name})
	return base64.RawURLEncoding.EncodeToString(b)
}

// decodeBase64 accepts standard and URL-safe alphabets, padded or not.
func decodeBase64(s string) ([]byte, error) {
	s = strings.TrimRight(s, "=")
	if strings.ContainsAny(s, "-_") {
		return base64.RawURLEncoding.DecodeString(s)
	}
	return base64.RawStdEncoding.DecodeString(s)
}
