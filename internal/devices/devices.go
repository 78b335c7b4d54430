// Package devices talks to the speakers' own local HTTP API.
package devices

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/MrSnakeDoc/soundgate/internal/utils"
)

// Port is the speakers' local HTTP API port.
const Port = 8090

const (
	InfoPath    = "/info"
	PresetsPath = "/presets"
	RecentsPath = "/recents"

	maxDocument = 1 << 20
)

// InfoSource fetches documents from a speaker reachable at host.
type InfoSource interface {
	Info(ctx context.Context, host string) ([]byte, error)
	Presets(ctx context.Context, host string) ([]byte, error)
	Recents(ctx context.Context, host string) ([]byte, error)
}

// HTTPClient reads documents from http://{host}:8090.
type HTTPClient struct {
	client *http.Client
	port   int
}

func NewHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}, port: Port}
}

// WithPort overrides the speaker port. Used by tests.
func (c *HTTPClient) WithPort(port int) *HTTPClient {
	c.port = port
	return c
}

func (c *HTTPClient) Info(ctx context.Context, host string) ([]byte, error) {
	return c.fetch(ctx, host, InfoPath)
}

func (c *HTTPClient) Presets(ctx context.Context, host string) ([]byte, error) {
	return c.fetch(ctx, host, PresetsPath)
}

func (c *HTTPClient) Recents(ctx context.Context, host string) ([]byte, error) {
	return c.fetch(ctx, host, RecentsPath)
}

func (c *HTTPClient) fetch(ctx context.Context, host, path string) ([]byte, error) {
	u := "http://" + net.JoinHostPort(host, strconv.Itoa(c.port)) + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build speaker request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("speaker %s: %w", host, err)
	}
	defer utils.Close(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("speaker %s%s: status %d", host, path, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocument))
	if err != nil {
		return nil, fmt.Errorf("speaker %s%s: read: %w", host, path, err)
	}
	return body, nil
}
