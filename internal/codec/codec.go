// Package codec renders stored protocol state as the vendor XML documents
// the speakers expect and applies the protocol's preset and recent
// mutations.
package codec

import (
	"context"
	"encoding/xml"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/soundgate/internal/domain"
	"github.com/MrSnakeDoc/soundgate/internal/logger"
)

const (
	// ContentType is sent with every marge protocol response.
	ContentType = "application/vnd.bose.streaming-v1.2+xml"

	xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`
)

// Store is the persistence the codec reads from and writes through.
type Store interface {
	AccountExists(account string) bool
	ListDevices(account string) ([]string, error)
	GetDeviceInfo(account, device string) (*domain.DeviceInfo, error)
	AddDevice(account, device string, deviceInfoXML []byte) (bool, error)
	GetPresets(account, device string) ([]domain.Preset, error)
	SavePresets(account, device string, presets []domain.Preset) error
	GetRecents(account, device string) ([]domain.Recent, error)
	SaveRecents(account, device string, recents []domain.Recent) error
	GetConfiguredSources(account, device string) ([]domain.ConfiguredSource, error)
	Lock(account string) (unlock func())
}

// CredentialSource hands out a fresh bearer token for a provider type
// (e.g. SPOTIFY). ok is false when no token is available.
type CredentialSource interface {
	Token(ctx context.Context, providerType string) (token string, ok bool)
}

type Codec struct {
	store  Store
	creds  CredentialSource
	now    func() time.Time
	logger logger.Logger
}

type Option func(*Codec)

// WithCredentials injects provider tokens into rendered <credential> elements.
func WithCredentials(c CredentialSource) Option {
	return func(cd *Codec) { cd.creds = c }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(cd *Codec) { cd.now = now }
}

func New(store Store, log logger.Logger, opts ...Option) *Codec {
	c := &Codec{
		store:  store,
		now:    time.Now,
		logger: log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Marshal encodes v behind the standalone XML declaration the vendor uses.
func Marshal(v any) ([]byte, error) {
	body, err := xml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	out := make([]byte, 0, len(xmlHeader)+len(body))
	out = append(out, xmlHeader...)
	return append(out, body...), nil
}
