package deps

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/soundgate/internal/bmx"
	"github.com/MrSnakeDoc/soundgate/internal/codec"
	"github.com/MrSnakeDoc/soundgate/internal/devices"
	"github.com/MrSnakeDoc/soundgate/internal/exchange"
	"github.com/MrSnakeDoc/soundgate/internal/gateway"
	"github.com/MrSnakeDoc/soundgate/internal/httpserver/mw"
	"github.com/MrSnakeDoc/soundgate/internal/index"
	"github.com/MrSnakeDoc/soundgate/internal/logger"
	"github.com/MrSnakeDoc/soundgate/internal/metrics"
	"github.com/MrSnakeDoc/soundgate/internal/store/filestore"
)

// ExchangeReader lists recently logged exchanges, newest first.
type ExchangeReader interface {
	Recent(ctx context.Context, count int64) ([]exchange.Entry, error)
}

type Deps struct {
	Logger            logger.Logger
	StartTime         time.Time
	Version           string
	Commit            string
	BuildDate         string
	GoVersion         string
	TimeNow           func() time.Time // for testing, defaults to time.Now
	BaseURL           string           // public URL speakers reach us on
	AllowedCIDRS      []string         // extra networks allowed on protocol routes
	TrustProxy        bool             // true if running behind a trusted reverse proxy
	LogRequestBody    bool             // log bodies of unknown requests
	LogRequestHeaders bool             // log headers of unknown requests
	MgmtUsername      string           // empty disables /mgmt
	MgmtPassword      string
	MgmtLimiter       *mw.RateLimiter // nil disables rate limiting on /mgmt

	Store        *filestore.Store       // protocol state
	Codec        *codec.Codec           // XML rendering and mutations
	Dispatcher   *gateway.Dispatcher    // nil serves everything locally
	Metrics      *metrics.Collector     // optional
	Gatherer     prometheus.Gatherer    // backs /metrics
	RedisClient  *redis.Client          // optional exchange stream backend
	Exchanges    ExchangeReader         // optional, backs /mgmt/exchanges
	MemoryIndex  *index.MemoryIndex     // registered speakers
	Devices      devices.InfoSource     // speaker local API
	Credentials  codec.CredentialSource // optional provider tokens
	Catalog      *bmx.Catalog           // BMX services registry
	SWUpdateFile string                 // software update index, empty answers 404
	MediaDir     string                 // files served under /media

	ReloadTrigger chan struct{} // Channel to trigger a manual speaker reload
}

// Now returns the configured clock.
func (d Deps) Now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}
