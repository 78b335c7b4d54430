package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/MrSnakeDoc/soundgate/internal/bmx"
	"github.com/MrSnakeDoc/soundgate/internal/codec"
	"github.com/MrSnakeDoc/soundgate/internal/config"
	"github.com/MrSnakeDoc/soundgate/internal/credentials"
	"github.com/MrSnakeDoc/soundgate/internal/devices"
	"github.com/MrSnakeDoc/soundgate/internal/exchange"
	"github.com/MrSnakeDoc/soundgate/internal/gateway"
	"github.com/MrSnakeDoc/soundgate/internal/httpserver"
	"github.com/MrSnakeDoc/soundgate/internal/httpserver/deps"
	"github.com/MrSnakeDoc/soundgate/internal/httpserver/mw"
	"github.com/MrSnakeDoc/soundgate/internal/index"
	"github.com/MrSnakeDoc/soundgate/internal/logger"
	"github.com/MrSnakeDoc/soundgate/internal/metrics"
	"github.com/MrSnakeDoc/soundgate/internal/redis"
	"github.com/MrSnakeDoc/soundgate/internal/scheduler"
	"github.com/MrSnakeDoc/soundgate/internal/store/filestore"
	redisstore "github.com/MrSnakeDoc/soundgate/internal/store/redis"
	"github.com/MrSnakeDoc/soundgate/internal/utils"
	"github.com/MrSnakeDoc/soundgate/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	sink        exchange.Sink
	limiter     *mw.RateLimiter
	reloader    *scheduler.SpeakerReloader
	rotator     *scheduler.LogRotator
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	store, err := filestore.New(cfg.DataDir, loggerClient.Named("filestore"))
	if err != nil {
		loggerClient.Errorf("Failed to open data dir: %v", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(cfg.MediaDir, 0o755); err != nil {
		loggerClient.Warn("failed to create media dir", logger.String("dir", cfg.MediaDir), logger.Error(err))
	}

	mode, err := gateway.ParseMode(cfg.Mode)
	if err != nil {
		loggerClient.Errorf("Invalid gateway mode: %v", err)
		os.Exit(1)
	}
	upstreams, err := gateway.WithOverrides(cfg.Upstreams)
	if err != nil {
		loggerClient.Errorf("Invalid upstreams: %v", err)
		os.Exit(1)
	}

	// Exchange log: JSON lines on disk, optionally mirrored to a Redis stream
	fileSink, err := exchange.NewFileSink(cfg.ExchangeLogDir)
	if err != nil {
		loggerClient.Errorf("Failed to open exchange log: %v", err)
		os.Exit(1)
	}

	var (
		redisClient *goredis.Client
		exchanges   deps.ExchangeReader
		sink        exchange.Sink = fileSink
	)
	if cfg.RedisAddr != "" {
		loggerClient.Infof("Connecting to Redis at %s", cfg.RedisAddr)
		redisClient, err = redis.Connect(context.Background(), redis.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			RedisDB:        cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		}, loggerClient.Named("redis"))
		if err != nil {
			loggerClient.Warn("redis unavailable, exchange log stays file-only", logger.Error(err))
			redisClient = nil
		} else {
			stream := redisstore.NewStore(redisClient, cfg.RedisStreamMaxLen)
			sink = exchange.Tee(fileSink, stream)
			exchanges = stream
			loggerClient.Info("Redis exchange stream enabled")
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	dispatcher := gateway.NewDispatcher(gateway.Options{
		Mode:      mode,
		Upstreams: upstreams,
		Timeout:   cfg.ForwardTimeout,
		Breaker:   gateway.NewBreaker(cfg.CircuitCooldown, cfg.CircuitThreshold, time.Now),
		Sink:      sink,
		Metrics:   collector,
	}, loggerClient.Named("gateway"))

	var creds codec.CredentialSource
	if cfg.TokenFile != "" {
		src, err := credentials.NewFileSource(cfg.TokenFile, loggerClient)
		if err != nil {
			loggerClient.Warn("token file unreadable, provider tokens disabled",
				logger.String("file", cfg.TokenFile), logger.Error(err))
		} else {
			creds = src
		}
	}

	memIndex := index.NewMemoryIndex()
	if len(cfg.AllowedCIDRS) > 0 {
		loggerClient.Info("extra networks allowed on protocol routes",
			logger.Strings("cidrs", cfg.AllowedCIDRS))
	}

	// Create manual reload trigger channel
	reloadTrigger := make(chan struct{}, 1)

	reloader := scheduler.NewSpeakerReloader(
		store,
		memIndex,
		collector,
		loggerClient.Named("allowlist"),
		cfg.AllowlistInterval,
		reloadTrigger,
	)

	rotator := scheduler.NewLogRotator(
		fileSink,
		cfg.ExchangeLogDir,
		loggerClient.Named("exchange"),
		cfg.LogRotateEvery,
		cfg.LogMaxBytes,
		cfg.LogRetention,
	)

	var limiter *mw.RateLimiter
	if cfg.MgmtEnabled() {
		limiter = mw.NewRateLimiter(mw.RateLimitConfig{
			Rate:       rate.Limit(cfg.MgmtRateLimit),
			Burst:      cfg.MgmtBurst,
			TrustProxy: cfg.TrustProxy,
		}, loggerClient)
	} else {
		loggerClient.Info("management credentials not configured, /mgmt disabled")
	}

	d := deps.Deps{
		Logger:            loggerClient,
		StartTime:         time.Now(),
		Version:           version.Version,
		Commit:            version.Commit,
		BuildDate:         version.BuildDate,
		GoVersion:         version.GoVersion,
		TimeNow:           time.Now,
		BaseURL:           cfg.BaseURL,
		AllowedCIDRS:      cfg.AllowedCIDRS,
		TrustProxy:        cfg.TrustProxy,
		LogRequestBody:    cfg.LogRequestBody,
		LogRequestHeaders: cfg.LogRequestHeaders,
		MgmtUsername:      cfg.MgmtUsername,
		MgmtPassword:      cfg.MgmtPassword,
		MgmtLimiter:       limiter,

		Store:        store,
		Codec:        codec.New(store, loggerClient, codec.WithCredentials(creds)),
		Dispatcher:   dispatcher,
		Metrics:      collector,
		Gatherer:     registry,
		RedisClient:  redisClient,
		Exchanges:    exchanges,
		MemoryIndex:  memIndex,
		Devices:      devices.NewHTTPClient(cfg.DeviceInfoTimeout),
		Credentials:  creds,
		Catalog:      bmx.NewCatalog(cfg.BMXServicesFile, cfg.BaseURL),
		SWUpdateFile: cfg.SWUpdateFile,
		MediaDir:     cfg.MediaDir,

		ReloadTrigger: reloadTrigger,
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      server,
		redisClient: redisClient,
		sink:        sink,
		limiter:     limiter,
		reloader:    reloader,
		rotator:     rotator,
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting soundgate v%s on %s (mode=%s)", version.Version, a.cfg.ListenPort, a.cfg.Mode)
	a.logger.Info(version.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Loads the speaker allowlist once, then refreshes it periodically
	if err := a.reloader.Start(ctx); err != nil {
		return fmt.Errorf("failed to start speaker reloader: %w", err)
	}
	a.logger.Info("speaker reloader started",
		logger.Duration("interval", a.cfg.AllowlistInterval))

	if err := a.rotator.Start(ctx); err != nil {
		return fmt.Errorf("failed to start exchange log rotator: %w", err)
	}
	a.logger.Info("exchange log rotator started",
		logger.Duration("interval", a.cfg.LogRotateEvery))

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	a.reloader.Stop()
	a.rotator.Stop()
	if a.limiter != nil {
		a.limiter.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	utils.MustClose(a.sink, a.logger, "exchange log")

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		} else {
			a.logger.Info("✅ Redis closed cleanly")
		}
	}

	a.logger.Info("✅ soundgate stopped cleanly")
	return nil
}
