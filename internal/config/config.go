package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ListenPort      string        // ex: ":8000"
	ShutdownTimeout time.Duration // ex: 5s
	BaseURL         string        // public URL speakers reach us on, used in BMX catalogs

	LogLevel          string // "debug" | "info" | "warn" | "error"
	PrettyLog         bool   // true => zap dev (color), false => zap prod (JSON)
	LogRequestBody    bool   // include request bodies when logging unknown endpoints
	LogRequestHeaders bool   // include request headers when logging unknown endpoints

	// Protocol state
	DataDir string // root of the per-account filesystem store

	// Gateway
	Mode             string            // "local" | "proxy" | "shadow"
	ForwardTimeout   time.Duration     // bound on every upstream call (default: 10s)
	CircuitCooldown  time.Duration     // how long an open circuit stays open (default: 300s)
	CircuitThreshold int               // consecutive failures that open a circuit (default: 1)
	ExchangeLogDir   string            // JSON-lines exchange log directory (default: <data>/exchanges)
	LogRotateEvery   time.Duration     // how often the exchange log size is checked (default: 10m)
	LogMaxBytes      int64             // live exchange log size that triggers rotation
	LogRetention     time.Duration     // rotated exchange logs older than this are deleted
	UpstreamsFile    string            // optional YAML overriding upstream base URLs
	Upstreams        map[string]string // target name => base URL, from UpstreamsFile

	// Management API
	MgmtUsername  string  // Basic Auth user, empty disables /mgmt
	MgmtPassword  string  // Basic Auth password
	MgmtRateLimit float64 // requests per second per client IP
	MgmtBurst     int

	// Speaker allowlist
	AllowedCIDRS      []string      // extra networks allowed on protocol routes
	TrustProxy        bool          // true => trust X-Forwarded-For headers
	AllowlistInterval time.Duration // how often the allowlist is rebuilt from the store (default: 5m)
	DeviceInfoTimeout time.Duration // timeout for fetching a speaker's /info (default: 5s)

	// Static protocol documents
	BMXServicesFile string // services catalog JSON with {MEDIA_SERVER}/{BMX_SERVER} placeholders
	SWUpdateFile    string // software update XML served on /updates/soundtouch
	MediaDir        string // files served under /media
	TokenFile       string // optional YAML of provider bearer tokens

	// Redis (optional exchange log stream)
	RedisAddr             string        // ex: "localhost:6379", empty disables redis
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts
	RedisStreamMaxLen     int64         // approximate cap on the exchange stream
}

func Load() *Config {
	dataDir := requireEnv("SOUNDGATE_DATA_DIR")

	cfg := &Config{
		// Server settings
		ListenPort:      getenv("SOUNDGATE_LISTEN_PORT", ":8000"),
		ShutdownTimeout: mustDuration("SOUNDGATE_SHUTDOWN_TIMEOUT", 5*time.Second),
		BaseURL:         strings.TrimRight(getenv("SOUNDGATE_BASE_URL", "http://localhost:8000"), "/"),

		// Logging
		LogLevel:          getenv("SOUNDGATE_LOG_LEVEL", "info"),
		PrettyLog:         mustBool("SOUNDGATE_PRETTY_LOG", true),
		LogRequestBody:    mustBool("SOUNDGATE_LOG_REQUEST_BODY", false),
		LogRequestHeaders: mustBool("SOUNDGATE_LOG_REQUEST_HEADERS", false),

		DataDir: dataDir,

		// Gateway
		Mode:             getenv("SOUNDGATE_MODE", "proxy"),
		ForwardTimeout:   mustDuration("SOUNDGATE_FORWARD_TIMEOUT", 10*time.Second),
		CircuitCooldown:  mustDuration("SOUNDGATE_CIRCUIT_COOLDOWN", 300*time.Second),
		CircuitThreshold: getenvInt("SOUNDGATE_CIRCUIT_THRESHOLD", 1),
		ExchangeLogDir:   getenv("SOUNDGATE_EXCHANGE_LOG_DIR", filepath.Join(dataDir, "exchanges")),
		LogRotateEvery:   mustDuration("SOUNDGATE_EXCHANGE_LOG_ROTATE_INTERVAL", 10*time.Minute),
		LogMaxBytes:      int64(getenvInt("SOUNDGATE_EXCHANGE_LOG_MAX_BYTES", 64<<20)),
		LogRetention:     mustDuration("SOUNDGATE_EXCHANGE_LOG_RETENTION", 30*24*time.Hour),
		UpstreamsFile:    getenv("SOUNDGATE_UPSTREAMS_FILE", ""),

		// Management
		MgmtUsername:  getenv("SOUNDGATE_MGMT_USERNAME", ""),
		MgmtPassword:  getenv("SOUNDGATE_MGMT_PASSWORD", ""),
		MgmtRateLimit: getenvFloat("SOUNDGATE_MGMT_RATE_LIMIT", 5),
		MgmtBurst:     getenvInt("SOUNDGATE_MGMT_BURST", 10),

		// Access restrictions
		AllowedCIDRS:      parseAllowedIPs(getenv("SOUNDGATE_ALLOWED_CIDRS", "")),
		TrustProxy:        mustBool("SOUNDGATE_TRUST_PROXY", false),
		AllowlistInterval: mustDuration("SOUNDGATE_ALLOWLIST_INTERVAL", 5*time.Minute),
		DeviceInfoTimeout: mustDuration("SOUNDGATE_DEVICE_INFO_TIMEOUT", 5*time.Second),

		// Static documents
		BMXServicesFile: getenv("SOUNDGATE_BMX_SERVICES_FILE", ""),
		SWUpdateFile:    getenv("SOUNDGATE_SWUPDATE_FILE", ""),
		MediaDir:        getenv("SOUNDGATE_MEDIA_DIR", filepath.Join(dataDir, "media")),
		TokenFile:       getenv("SOUNDGATE_TOKEN_FILE", ""),

		// Redis settings
		RedisAddr:             getenv("SOUNDGATE_REDIS_ADDR", ""),
		RedisUser:             getenv("SOUNDGATE_REDIS_USERNAME", "default"),
		RedisPasswordRequired: mustBool("SOUNDGATE_REDIS_PASSWORD_REQUIRED", false),
		RedisPassword:         getenv("SOUNDGATE_REDIS_PASSWORD", ""),
		RedisDB:               getenvInt("SOUNDGATE_REDIS_DB", 0),
		RedisDT:               mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("REDIS_WARN_THRESHOLD", 3),
		RedisStreamMaxLen:     int64(getenvInt("SOUNDGATE_REDIS_STREAM_MAXLEN", 10000)),
	}

	if cfg.RedisAddr != "" && cfg.RedisPasswordRequired && cfg.RedisPassword == "" {
		panic("❌ FATAL: SOUNDGATE_REDIS_PASSWORD is required when SOUNDGATE_REDIS_PASSWORD_REQUIRED=true")
	}
	if (cfg.MgmtUsername == "") != (cfg.MgmtPassword == "") {
		panic("❌ FATAL: SOUNDGATE_MGMT_USERNAME and SOUNDGATE_MGMT_PASSWORD must be set together")
	}

	if cfg.UpstreamsFile != "" {
		upstreams, err := LoadUpstreams(cfg.UpstreamsFile)
		if err != nil {
			panic(fmt.Sprintf("❌ FATAL: %v", err))
		}
		cfg.Upstreams = upstreams
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.RedisPassword = "***REDACTED***"
		cfgCopy.MgmtPassword = "***REDACTED***"
		if cfg.RedisUser != "" {
			cfgCopy.RedisUser = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// MgmtEnabled reports whether management credentials are configured.
func (c *Config) MgmtEnabled() bool {
	return c.MgmtUsername != "" && c.MgmtPassword != ""
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
