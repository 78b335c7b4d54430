package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/soundgate/internal/domain"
	"github.com/MrSnakeDoc/soundgate/internal/index"
	"github.com/MrSnakeDoc/soundgate/internal/logger"
)

// DeviceLister is the read side of the protocol state store.
type DeviceLister interface {
	ListAccounts() ([]string, error)
	ListDevices(account string) ([]string, error)
	GetDeviceInfo(account, device string) (*domain.DeviceInfo, error)
}

// SpeakerGauge receives the registered speaker count.
type SpeakerGauge interface {
	SetSpeakers(n int)
}

// SpeakerReloader periodically rebuilds the speaker index from the store
type SpeakerReloader struct {
	store         DeviceLister
	index         *index.MemoryIndex
	gauge         SpeakerGauge
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	manualTrigger chan struct{}
}

// NewSpeakerReloader creates a new speaker reloader. gauge may be nil.
func NewSpeakerReloader(
	store DeviceLister,
	idx *index.MemoryIndex,
	gauge SpeakerGauge,
	log logger.Logger,
	interval time.Duration,
	manualTrigger chan struct{},
) *SpeakerReloader {
	return &SpeakerReloader{
		store:         store,
		index:         idx,
		gauge:         gauge,
		logger:        log,
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start loads the index once and then refreshes it on every tick or manual
// trigger.
func (sr *SpeakerReloader) Start(ctx context.Context) error {
	if err := sr.Reload(ctx); err != nil {
		return fmt.Errorf("initial speaker reload failed: %w", err)
	}

	ticker := time.NewTicker(sr.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := sr.Reload(ctx); err != nil {
					sr.logger.Error("failed to reload speakers",
						logger.Error(err))
				}
			case <-sr.manualTrigger:
				sr.logger.Info("manual speaker reload triggered")
				if err := sr.Reload(ctx); err != nil {
					sr.logger.Error("failed to reload speakers",
						logger.Error(err))
				}
			case <-sr.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the reloader
func (sr *SpeakerReloader) Stop() {
	close(sr.stopCh)
}

// Reload walks every account and device in the store. A device whose info
// cannot be read is skipped, not fatal.
func (sr *SpeakerReloader) Reload(ctx context.Context) error {
	accounts, err := sr.store.ListAccounts()
	if err != nil {
		return fmt.Errorf("list accounts: %w", err)
	}

	var speakers []domain.Speaker
	for _, account := range accounts {
		if err := ctx.Err(); err != nil {
			return err
		}
		devices, err := sr.store.ListDevices(account)
		if err != nil {
			sr.logger.Warn("failed to list devices",
				logger.String("account", account),
				logger.Error(err))
			continue
		}
		for _, device := range devices {
			info, err := sr.store.GetDeviceInfo(account, device)
			if err != nil {
				if !errors.Is(err, domain.ErrNotFound) {
					sr.logger.Warn("failed to read device info",
						logger.String("account", account),
						logger.String("device", device),
						logger.Error(err))
				}
				continue
			}
			speakers = append(speakers, domain.SpeakerFromInfo(account, info))
		}
	}

	sr.index.UpdateSpeakers(speakers)
	if sr.gauge != nil {
		sr.gauge.SetSpeakers(len(speakers))
	}
	sr.logger.Info("speaker index reloaded",
		logger.Int("accounts", len(accounts)),
		logger.Int("speakers", len(speakers)))
	return nil
}
