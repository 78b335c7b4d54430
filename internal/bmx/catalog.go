// Package bmx serves the media catalog side of the protocol: the services
// registry, custom station playback and static media files.
package bmx

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

//go:embed services.json
var defaultServices []byte

const (
	placeholderMedia = "{MEDIA_SERVER}"
	placeholderBMX   = "{BMX_SERVER}"
)

// Catalog renders the services registry with this server's URLs.
type Catalog struct {
	path    string
	baseURL string
}

// NewCatalog reads the registry template from path on every request so it
// can be edited live. An empty path uses the built-in template.
func NewCatalog(path, baseURL string) *Catalog {
	return &Catalog{path: path, baseURL: strings.TrimRight(baseURL, "/")}
}

// Services returns the registry JSON with placeholders substituted.
func (c *Catalog) Services() ([]byte, error) {
	tmpl := defaultServices
	if c.path != "" {
		data, err := os.ReadFile(c.path)
		if err != nil {
			return nil, fmt.Errorf("read services catalog: %w", err)
		}
		tmpl = data
	}
	out := strings.NewReplacer(
		placeholderMedia, c.baseURL+"/media",
		placeholderBMX, c.baseURL,
	).Replace(string(tmpl))

	if !json.Valid([]byte(out)) {
		return nil, fmt.Errorf("services catalog %q is not valid JSON", c.path)
	}
	return []byte(out), nil
}
