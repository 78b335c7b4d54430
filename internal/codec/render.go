package codec

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/MrSnakeDoc/soundgate/internal/domain"
	"github.com/MrSnakeDoc/soundgate/internal/logger"
)

const isoLayout = "2006-01-02T15:04:05-07:00"

// isoTime renders stored unix seconds. Unparseable or missing values fall
// back to domain.DefaultDate.
func isoTime(unix string) string {
	n, err := strconv.ParseInt(unix, 10, 64)
	if err != nil {
		return domain.DefaultDate
	}
	return time.Unix(n, 0).UTC().Format(isoLayout)
}

func (c *Codec) source(ctx context.Context, cs domain.ConfiguredSource) Source {
	credType := cs.SecretType
	if credType == "" {
		credType = "token"
	}
	secret := cs.Secret
	if c.creds != nil {
		if token, ok := c.creds.Token(ctx, cs.SourceKeyType); ok && token != "" {
			secret = token
		}
	}
	providerID := domain.ProviderID(cs.SourceKeyType)
	if providerID == 0 {
		c.logger.Warn("configured source has unknown provider type",
			logger.String("source_id", cs.ID),
			logger.String("type", cs.SourceKeyType))
	}
	return Source{
		ID:               cs.ID,
		Type:             "Audio",
		CreatedOn:        domain.DefaultDate,
		Credential:       Credential{Type: credType, Value: secret},
		Name:             cs.SourceKeyAccount,
		SourceProviderID: providerID,
		SourceName:       cs.DisplayName,
		UpdatedOn:        domain.DefaultDate,
		Username:         cs.SourceKeyAccount,
	}
}

func (c *Codec) preset(ctx context.Context, p domain.Preset, sources []domain.ConfiguredSource) (Preset, error) {
	cs, err := Resolve(sources, p.ContentItem)
	if err != nil {
		return Preset{}, fmt.Errorf("preset %s: %w", p.ID, err)
	}
	return Preset{
		ButtonNumber:    p.ID,
		ContainerArt:    p.ContainerArt,
		ContentItemType: p.Type,
		CreatedOn:       isoTime(p.CreatedOn),
		Location:        p.Location,
		Name:            p.Name,
		Source:          c.source(ctx, cs),
		UpdatedOn:       isoTime(p.UpdatedOn),
	}, nil
}

func (c *Codec) recent(ctx context.Context, r domain.Recent, sources []domain.ConfiguredSource, createdOn string) (Recent, error) {
	cs, err := Resolve(sources, r.ContentItem)
	if err != nil {
		return Recent{}, fmt.Errorf("recent %s: %w", r.ID, err)
	}
	played := isoTime(r.UTCTime)
	return Recent{
		ID:              r.ID,
		ContentItemType: r.Type,
		CreatedOn:       createdOn,
		LastPlayedAt:    played,
		Location:        r.Location,
		Name:            r.Name,
		Source:          c.source(ctx, cs),
		UpdatedOn:       played,
	}, nil
}

// Presets renders the <presets> document for a device.
func (c *Codec) Presets(ctx context.Context, account, device string) (*Presets, error) {
	sources, err := c.store.GetConfiguredSources(account, device)
	if err != nil {
		return nil, err
	}
	return c.presets(ctx, account, device, sources)
}

func (c *Codec) presets(ctx context.Context, account, device string, sources []domain.ConfiguredSource) (*Presets, error) {
	stored, err := c.store.GetPresets(account, device)
	if err != nil {
		return nil, err
	}
	doc := &Presets{Presets: make([]Preset, 0, len(stored))}
	for _, p := range stored {
		rendered, err := c.preset(ctx, p, sources)
		if err != nil {
			return nil, err
		}
		doc.Presets = append(doc.Presets, rendered)
	}
	return doc, nil
}

// Recents renders the <recents> document for a device.
func (c *Codec) Recents(ctx context.Context, account, device string) (*Recents, error) {
	sources, err := c.store.GetConfiguredSources(account, device)
	if err != nil {
		return nil, err
	}
	return c.recents(ctx, account, device, sources)
}

func (c *Codec) recents(ctx context.Context, account, device string, sources []domain.ConfiguredSource) (*Recents, error) {
	stored, err := c.store.GetRecents(account, device)
	if err != nil {
		return nil, err
	}
	doc := &Recents{Recents: make([]Recent, 0, len(stored))}
	for _, r := range stored {
		rendered, err := c.recent(ctx, r, sources, domain.DefaultDate)
		if err != nil {
			return nil, err
		}
		doc.Recents = append(doc.Recents, rendered)
	}
	return doc, nil
}

func (c *Codec) sources(ctx context.Context, sources []domain.ConfiguredSource) *Sources {
	doc := &Sources{Sources: make([]Source, 0, len(sources))}
	for _, cs := range sources {
		doc.Sources = append(doc.Sources, c.source(ctx, cs))
	}
	return doc
}

// Account renders the full account document: every device with its
// presets and recents, then the account-wide sources.
func (c *Codec) Account(ctx context.Context, account string) (*Account, error) {
	if !c.store.AccountExists(account) {
		return nil, fmt.Errorf("account %s: %w", account, domain.ErrNotFound)
	}
	deviceIDs, err := c.store.ListDevices(account)
	if err != nil {
		return nil, err
	}

	doc := &Account{
		ID:                account,
		AccountStatus:     "OK",
		Devices:           Devices{Devices: make([]Device, 0, len(deviceIDs))},
		Mode:              "global",
		PreferredLanguage: "en",
		ProviderSettings:  *ProviderSettingsFor(account),
		Sources:           Sources{Sources: []Source{}},
	}

	var lastSources []domain.ConfiguredSource
	for _, id := range deviceIDs {
		info, err := c.store.GetDeviceInfo(account, id)
		if err != nil {
			return nil, err
		}
		sources, err := c.store.GetConfiguredSources(account, id)
		if err != nil {
			return nil, err
		}
		presets, err := c.presets(ctx, account, id, sources)
		if err != nil {
			return nil, err
		}
		recents, err := c.recents(ctx, account, id, sources)
		if err != nil {
			return nil, err
		}
		doc.Devices.Devices = append(doc.Devices.Devices, Device{
			DeviceID: id,
			AttachedProduct: AttachedProduct{
				ProductCode:  info.ProductCode,
				ProductLabel: info.ProductCode,
				SerialNumber: info.ProductSerialNumber,
			},
			CreatedOn:       domain.DefaultDate,
			FirmwareVersion: info.FirmwareVersion,
			IPAddress:       info.IPAddress,
			Name:            info.Name,
			Presets:         *presets,
			Recents:         *recents,
			SerialNumber:    info.DeviceSerialNumber,
			UpdatedOn:       domain.DefaultDate,
		})
		lastSources = sources
	}
	doc.Sources = *c.sources(ctx, lastSources)
	return doc, nil
}

// ProviderSettingsFor returns the per-account provider settings. The only
// setting the speakers look at is trial eligibility.
func ProviderSettingsFor(account string) *ProviderSettings {
	return &ProviderSettings{
		Settings: []ProviderSetting{{
			BoseID:     account,
			KeyName:    "ELIGIBLE_FOR_TRIAL",
			Value:      "true",
			ProviderID: "14",
		}},
	}
}

// NoSoftwareUpdate tells the speaker there is nothing to install.
func NoSoftwareUpdate() *SoftwareUpdate {
	return &SoftwareUpdate{}
}

// AllSourceProviders lists every known provider with its protocol id.
func AllSourceProviders() *SourceProviders {
	doc := &SourceProviders{Providers: make([]SourceProvider, 0, len(domain.Providers))}
	for i, name := range domain.Providers {
		doc.Providers = append(doc.Providers, SourceProvider{
			ID:        i + 1,
			CreatedOn: domain.DefaultDate,
			Name:      name,
			UpdatedOn: domain.DefaultDate,
		})
	}
	return doc
}

// StreamingToken returns a locally minted bearer token. The speakers only
// check that one is present.
func (c *Codec) StreamingToken() (*BearerToken, string) {
	bearer := fmt.Sprintf("Bearer st-local-token-%d", c.now().Unix())
	return &BearerToken{Value: bearer}, bearer
}

// CustomerProfile is a placeholder profile for the account.
func CustomerProfile(account string) *Customer {
	return &Customer{
		AccountID:      account,
		Email:          "user@example.com",
		FirstName:      "SoundTouch",
		LastName:       "User",
		CountryCode:    "US",
		LanguageCode:   "en",
		MarketingOptIn: "false",
	}
}

func DefaultDeviceSettings() *DeviceSettings {
	return &DeviceSettings{Settings: []DeviceSetting{{Name: "CLOCK_FORMAT", Value: "24HR"}}}
}

func AccountEmail() *EmailAddress {
	return &EmailAddress{Value: "user@example.com"}
}
