package scheduler

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/MrSnakeDoc/soundgate/internal/exchange"
	"github.com/MrSnakeDoc/soundgate/internal/logger"
)

const (
	// DefaultLogRetention is how long rotated exchange logs are kept
	DefaultLogRetention = 30 * 24 * time.Hour // 30 days
	// DefaultLogMaxBytes is the live log size that triggers a rotation
	DefaultLogMaxBytes = 64 << 20
)

// LogRotator rotates the exchange log once it grows past maxBytes and
// deletes rotated logs older than the retention.
type LogRotator struct {
	sink      *exchange.FileSink
	dir       string
	logger    logger.Logger
	interval  time.Duration
	maxBytes  int64
	retention time.Duration
	now       func() time.Time
	stopCh    chan struct{}
}

// NewLogRotator creates a new exchange log rotator
func NewLogRotator(
	sink *exchange.FileSink,
	dir string,
	log logger.Logger,
	interval time.Duration,
	maxBytes int64,
	retention time.Duration,
) *LogRotator {
	if maxBytes <= 0 {
		maxBytes = DefaultLogMaxBytes
	}
	if retention == 0 {
		retention = DefaultLogRetention
	}

	return &LogRotator{
		sink:      sink,
		dir:       dir,
		logger:    log,
		interval:  interval,
		maxBytes:  maxBytes,
		retention: retention,
		now:       time.Now,
		stopCh:    make(chan struct{}),
	}
}

// Start begins the periodic rotation
func (lr *LogRotator) Start(ctx context.Context) error {
	if err := lr.Collect(ctx); err != nil {
		lr.logger.Warn("initial exchange log rotation failed",
			logger.Error(err))
	}

	ticker := time.NewTicker(lr.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := lr.Collect(ctx); err != nil {
					lr.logger.Error("exchange log rotation failed",
						logger.Error(err))
				}
			case <-lr.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the rotator
func (lr *LogRotator) Stop() {
	close(lr.stopCh)
}

// Collect rotates the live log if needed and removes expired rotations
func (lr *LogRotator) Collect(_ context.Context) error {
	now := lr.now()

	size, err := lr.sink.Size()
	if err != nil {
		return err
	}
	if size >= lr.maxBytes {
		rotated, err := lr.sink.Rotate(now)
		if err != nil {
			return err
		}
		lr.logger.Info("exchange log rotated",
			logger.String("file", rotated),
			logger.Int64("bytes", size))
	}

	rotated, err := exchange.Rotated(lr.dir)
	if err != nil {
		return err
	}
	deleted := 0
	for path, at := range rotated {
		if now.Sub(at) <= lr.retention {
			continue
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("remove expired exchange log: %w", err)
		}
		deleted++
	}

	if deleted > 0 {
		lr.logger.Info("expired exchange logs removed",
			logger.Int("deleted", deleted))
	} else {
		lr.logger.Debug("no exchange logs to remove")
	}
	return nil
}
