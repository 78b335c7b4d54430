package codec

import (
	"bytes"
	"context"
	"encoding/xml"
	"strconv"
	"strings"
	"time"

	"github.com/MrSnakeDoc/soundgate/internal/domain"
	"github.com/MrSnakeDoc/soundgate/internal/logger"
)

func parseContent(body []byte) (*contentPayload, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, domain.NewMissingFieldError("name")
	}
	var p contentPayload
	if err := xml.Unmarshal(body, &p); err != nil {
		return nil, domain.NewMalformedXMLError(err)
	}
	p.Name = strings.TrimSpace(p.Name)
	p.SourceID = strings.TrimSpace(p.SourceID)
	p.Location = strings.TrimSpace(p.Location)
	p.ContentItemType = strings.TrimSpace(p.ContentItemType)
	p.ContainerArt = strings.TrimSpace(p.ContainerArt)
	p.LastPlayedAt = strings.TrimSpace(p.LastPlayedAt)

	switch {
	case p.Name == "":
		return nil, domain.NewMissingFieldError("name")
	case p.SourceID == "":
		return nil, domain.NewMissingFieldError("sourceid")
	case p.Location == "":
		return nil, domain.NewMissingFieldError("location")
	}
	return &p, nil
}

// UpdatePreset replaces preset slot (1-based) with the item in body and
// returns the rendered preset. The collection never grows: slots outside
// the stored collection are rejected.
func (c *Codec) UpdatePreset(ctx context.Context, account, device string, slot int, body []byte) (*Preset, error) {
	p, err := parseContent(body)
	if err != nil {
		return nil, err
	}

	unlock := c.store.Lock(account)
	defer unlock()

	sources, err := c.store.GetConfiguredSources(account, device)
	if err != nil {
		return nil, err
	}
	presets, err := c.store.GetPresets(account, device)
	if err != nil {
		return nil, err
	}
	if slot < 1 || slot > len(presets) {
		return nil, domain.NewSlotOutOfRangeError(slot, len(presets))
	}
	cs, err := Resolve(sources, domain.ContentItem{SourceID: p.SourceID})
	if err != nil {
		return nil, err
	}

	now := strconv.FormatInt(c.now().Unix(), 10)
	updated := domain.Preset{
		ContentItem: domain.ContentItem{
			ID:            strconv.Itoa(slot),
			Name:          p.Name,
			Source:        cs.SourceKeyType,
			SourceAccount: cs.SourceKeyAccount,
			SourceID:      cs.ID,
			Type:          p.ContentItemType,
			Location:      p.Location,
			IsPresetable:  "true",
			ContainerArt:  p.ContainerArt,
		},
		CreatedOn: now,
		UpdatedOn: now,
	}
	presets[slot-1] = updated

	if err := c.store.SavePresets(account, device, presets); err != nil {
		return nil, err
	}
	c.logger.Info("preset updated",
		logger.String("account", account),
		logger.String("device", device),
		logger.Int("slot", slot),
		logger.String("source", cs.SourceKeyType))

	rendered, err := c.preset(ctx, updated, sources)
	if err != nil {
		return nil, err
	}
	return &rendered, nil
}

// AddRecent records a played item at the front of the account's recents.
//
// An entry already matching (provider, location, provider account) is
// moved to the front with a new timestamp instead of being duplicated.
// Otherwise a new entry with id max+1 is inserted and the list is cut to
// domain.MaxRecents.
func (c *Codec) AddRecent(ctx context.Context, account, device string, body []byte) (*Recent, error) {
	p, err := parseContent(body)
	if err != nil {
		return nil, err
	}

	now := c.now()
	played := now
	if p.LastPlayedAt != "" {
		if t, ok := parseClientTime(p.LastPlayedAt); ok {
			played = t
		} else {
			c.logger.Debug("unparseable lastplayedat, using server time",
				logger.String("value", p.LastPlayedAt))
		}
	}
	utc := strconv.FormatInt(played.Unix(), 10)

	unlock := c.store.Lock(account)
	defer unlock()

	sources, err := c.store.GetConfiguredSources(account, device)
	if err != nil {
		return nil, err
	}
	recents, err := c.store.GetRecents(account, device)
	if err != nil {
		return nil, err
	}
	cs, err := Resolve(sources, domain.ContentItem{SourceID: p.SourceID})
	if err != nil {
		return nil, err
	}

	match := -1
	for i, r := range recents {
		if r.Source == cs.SourceKeyType && r.Location == p.Location && r.SourceAccount == cs.SourceKeyAccount {
			match = i
			break
		}
	}

	var entry domain.Recent
	createdOn := domain.DefaultDate
	if match >= 0 {
		entry = recents[match]
		entry.UTCTime = utc
	} else {
		entry = domain.Recent{
			ContentItem: domain.ContentItem{
				ID:            nextRecentID(recents),
				Name:          p.Name,
				Source:        cs.SourceKeyType,
				SourceAccount: cs.SourceKeyAccount,
				SourceID:      cs.ID,
				Type:          p.ContentItemType,
				Location:      p.Location,
				IsPresetable:  "true",
			},
			DeviceID: device,
			UTCTime:  utc,
		}
		createdOn = now.UTC().Format(isoLayout)
	}

	ordered := make([]domain.Recent, 0, len(recents)+1)
	ordered = append(ordered, entry)
	for i, r := range recents {
		if i != match {
			ordered = append(ordered, r)
		}
	}
	if len(ordered) > domain.MaxRecents {
		ordered = ordered[:domain.MaxRecents]
	}

	if err := c.store.SaveRecents(account, device, ordered); err != nil {
		return nil, err
	}
	c.logger.Info("recent added",
		logger.String("account", account),
		logger.String("device", device),
		logger.String("recent_id", entry.ID),
		logger.Bool("replay", match >= 0))

	rendered, err := c.recent(ctx, entry, sources, createdOn)
	if err != nil {
		return nil, err
	}
	return &rendered, nil
}

func nextRecentID(recents []domain.Recent) string {
	highest := 0
	for _, r := range recents {
		if n, err := strconv.Atoi(r.ID); err == nil && n > highest {
			highest = n
		}
	}
	return strconv.Itoa(highest + 1)
}

var clientTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
}

// parseClientTime accepts the ISO-8601 variants speakers send. Values
// without a zone are taken as UTC.
func parseClientTime(s string) (time.Time, bool) {
	for _, layout := range clientTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// RegisterDevice stores a newly added speaker. body is the speaker's
// <device deviceid=".."><name>..</name></device> request; deviceInfo is
// the DeviceInfo.xml fetched from the speaker itself.
func (c *Codec) RegisterDevice(account string, body, deviceInfo []byte) (*DeviceAdded, error) {
	reg, err := ParseDeviceRegistration(body)
	if err != nil {
		return nil, err
	}
	unlock := c.store.Lock(account)
	defer unlock()

	added, err := c.store.AddDevice(account, reg.DeviceID, deviceInfo)
	if err != nil {
		return nil, err
	}
	if !added {
		c.logger.Info("device already registered",
			logger.String("account", account),
			logger.String("device", reg.DeviceID))
	}
	now := c.now().UTC().Format(isoLayout)
	return &DeviceAdded{
		DeviceID:  reg.DeviceID,
		CreatedOn: now,
		Name:      reg.Name,
		UpdatedOn: now,
	}, nil
}

// DeviceRegistration is the parsed body of an add-device request.
type DeviceRegistration struct {
	DeviceID string
	Name     string
}

func ParseDeviceRegistration(body []byte) (*DeviceRegistration, error) {
	var raw deviceRegistration
	if err := xml.Unmarshal(body, &raw); err != nil {
		return nil, domain.NewMalformedXMLError(err)
	}
	raw.DeviceID = strings.TrimSpace(raw.DeviceID)
	if raw.DeviceID == "" {
		return nil, domain.NewMissingFieldError("deviceid")
	}
	if !domain.ValidDeviceID(raw.DeviceID) {
		return nil, domain.NewInvalidIdentifierError("device", raw.DeviceID)
	}
	return &DeviceRegistration{DeviceID: raw.DeviceID, Name: strings.TrimSpace(raw.Name)}, nil
}
