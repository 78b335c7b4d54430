package filestore

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/MrSnakeDoc/soundgate/internal/domain"
	"github.com/MrSnakeDoc/soundgate/internal/logger"
)

// firstGeneratedSourceID numbers sources whose file entry carries no id.
const firstGeneratedSourceID = 100001

func parseDeviceInfo(data []byte) (*domain.DeviceInfo, error) {
	var raw deviceInfoXML
	if err := xml.Unmarshal(data, &raw); err != nil {
		return nil, domain.NewMalformedXMLError(err)
	}

	info := &domain.DeviceInfo{
		DeviceID:    raw.DeviceID,
		Name:        strings.TrimSpace(raw.Name),
		ProductCode: strings.TrimSpace(raw.Type + " " + raw.ModuleType),
	}
	var haveSCM, haveProduct, haveIP bool
	for _, c := range raw.Components {
		switch c.Category {
		case "SCM":
			info.FirmwareVersion = strings.TrimSpace(c.SoftwareVersion)
			info.DeviceSerialNumber = strings.TrimSpace(c.SerialNumber)
			haveSCM = true
		case "PackagedProduct":
			info.ProductSerialNumber = strings.TrimSpace(c.SerialNumber)
			haveProduct = true
		}
	}
	for _, n := range raw.NetworkInfo {
		if n.Type == "SCM" {
			info.IPAddress = strings.TrimSpace(n.IPAddress)
			haveIP = true
		}
	}
	if !haveSCM || !haveProduct || !haveIP {
		return nil, &domain.ProtocolError{
			Code:    domain.CodeMissingField,
			Message: fmt.Sprintf("device info for %q is missing required fields", raw.DeviceID),
		}
	}
	return info, nil
}

// readCollection loads an account-level XML file into v. A missing file is
// an empty collection; missing accounts are caught earlier by requireDevice.
func (s *Store) readCollection(account, file string, v any) (bool, error) {
	data, err := os.ReadFile(s.collectionPath(account, file))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("%w: read %s: %v", domain.ErrStorage, file, err)
	}
	if err := xml.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("%w: parse %s: %v", domain.ErrStorage, file, err)
	}
	return true, nil
}

func (s *Store) writeCollection(account, file string, v any) error {
	body, err := xml.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", domain.ErrStorage, file, err)
	}
	var buf bytes.Buffer
	buf.WriteString("<?xml version='1.0' encoding='UTF-8'?>\n")
	buf.Write(body)
	buf.WriteByte('\n')
	return s.writeTracked(account, file, buf.Bytes())
}

// writeTracked writes a collection file and bumps its ETag floor.
func (s *Store) writeTracked(account, file string, data []byte) error {
	path := s.collectionPath(account, file)
	before := s.etagForPath(path)
	if err := writeFileAtomic(path, data); err != nil {
		return err
	}
	s.bumpETag(path, before)
	return nil
}

// GetPresets returns the account's presets in slot order as stored.
func (s *Store) GetPresets(account, device string) ([]domain.Preset, error) {
	if err := s.requireDevice(account, device); err != nil {
		return nil, err
	}
	var file presetsFileXML
	if _, err := s.readCollection(account, PresetsFile, &file); err != nil {
		return nil, err
	}
	presets := make([]domain.Preset, 0, len(file.Presets))
	for _, p := range file.Presets {
		presets = append(presets, domain.Preset{
			ContentItem: contentItemFromFile(p.ID, p.ContentItem),
			CreatedOn:   p.CreatedOn,
			UpdatedOn:   p.UpdatedOn,
		})
	}
	return presets, nil
}

// SavePresets replaces the account's preset collection.
func (s *Store) SavePresets(account, device string, presets []domain.Preset) error {
	if err := s.requireDevice(account, device); err != nil {
		return err
	}
	file := presetsFileXML{Presets: make([]presetFileXML, 0, len(presets))}
	for _, p := range presets {
		ci := contentItemToFile(p.ContentItem)
		ci.IsPresetable = "true"
		file.Presets = append(file.Presets, presetFileXML{
			ID:          p.ID,
			CreatedOn:   p.CreatedOn,
			UpdatedOn:   p.UpdatedOn,
			ContentItem: ci,
		})
	}
	if err := s.writeCollection(account, PresetsFile, file); err != nil {
		return err
	}
	s.logger.Debug("presets saved",
		logger.String("account", account),
		logger.Int("count", len(presets)))
	return nil
}

// GetRecents returns the account's recents, most recent first.
func (s *Store) GetRecents(account, device string) ([]domain.Recent, error) {
	if err := s.requireDevice(account, device); err != nil {
		return nil, err
	}
	var file recentsFileXML
	if _, err := s.readCollection(account, RecentsFile, &file); err != nil {
		return nil, err
	}
	recents := make([]domain.Recent, 0, len(file.Recents))
	for _, r := range file.Recents {
		id := r.ID
		if id == "" {
			id = "1"
		}
		recents = append(recents, domain.Recent{
			ContentItem: contentItemFromFile(id, r.ContentItem),
			DeviceID:    r.DeviceID,
			UTCTime:     r.UTCTime,
		})
	}
	return recents, nil
}

// SaveRecents replaces the account's recent collection.
func (s *Store) SaveRecents(account, device string, recents []domain.Recent) error {
	if err := s.requireDevice(account, device); err != nil {
		return err
	}
	file := recentsFileXML{Recents: make([]recentFileXML, 0, len(recents))}
	for _, r := range recents {
		ci := contentItemToFile(r.ContentItem)
		if ci.IsPresetable == "" {
			ci.IsPresetable = "true"
		}
		file.Recents = append(file.Recents, recentFileXML{
			DeviceID:    r.DeviceID,
			UTCTime:     r.UTCTime,
			ID:          r.ID,
			ContentItem: ci,
		})
	}
	if err := s.writeCollection(account, RecentsFile, file); err != nil {
		return err
	}
	s.logger.Debug("recents saved",
		logger.String("account", account),
		logger.Int("count", len(recents)))
	return nil
}

// GetConfiguredSources returns the account's linked music sources. Entries
// stored without an id get sequential ids starting at 100001.
func (s *Store) GetConfiguredSources(account, device string) ([]domain.ConfiguredSource, error) {
	if err := s.requireDevice(account, device); err != nil {
		return nil, err
	}
	var file sourcesFileXML
	if _, err := s.readCollection(account, SourcesFile, &file); err != nil {
		return nil, err
	}
	next := firstGeneratedSourceID
	sources := make([]domain.ConfiguredSource, 0, len(file.Sources))
	for _, src := range file.Sources {
		id := src.ID
		if id == "" {
			id = strconv.Itoa(next)
			next++
		}
		sources = append(sources, domain.ConfiguredSource{
			ID:               id,
			DisplayName:      src.DisplayName,
			Secret:           src.Secret,
			SecretType:       src.SecretType,
			SourceKeyType:    src.SourceKey.Type,
			SourceKeyAccount: src.SourceKey.Account,
		})
	}
	return sources, nil
}

// SaveConfiguredSources replaces the account's configured sources.
func (s *Store) SaveConfiguredSources(account string, sources []domain.ConfiguredSource) error {
	if !s.AccountExists(account) {
		return fmt.Errorf("account %s: %w", account, domain.ErrNotFound)
	}
	file := sourcesFileXML{Sources: make([]sourceFileXML, 0, len(sources))}
	for _, src := range sources {
		file.Sources = append(file.Sources, sourceFileXML{
			DisplayName: src.DisplayName,
			ID:          src.ID,
			Secret:      src.Secret,
			SecretType:  src.SecretType,
			SourceKey:   sourceKeyXML{Type: src.SourceKeyType, Account: src.SourceKeyAccount},
		})
	}
	return s.writeCollection(account, SourcesFile, file)
}

// ImportCollection stores a raw collection file copied from a speaker
// (Presets.xml, Recents.xml or Sources.xml). The payload must parse as the
// matching collection.
func (s *Store) ImportCollection(account, file string, data []byte) error {
	if !s.AccountExists(account) {
		return fmt.Errorf("account %s: %w", account, domain.ErrNotFound)
	}
	var probe any
	switch file {
	case PresetsFile:
		probe = &presetsFileXML{}
	case RecentsFile:
		probe = &recentsFileXML{}
	case SourcesFile:
		probe = &sourcesFileXML{}
	default:
		return fmt.Errorf("unknown collection file %q", file)
	}
	if err := xml.Unmarshal(data, probe); err != nil {
		return domain.NewMalformedXMLError(err)
	}
	return s.writeTracked(account, file, data)
}

func contentItemFromFile(id string, ci contentItemFileXML) domain.ContentItem {
	return domain.ContentItem{
		ID:            id,
		Name:          strings.TrimSpace(ci.ItemName),
		Source:        ci.Source,
		SourceAccount: ci.SourceAccount,
		SourceID:      ci.SourceID,
		Type:          ci.Type,
		Location:      ci.Location,
		IsPresetable:  ci.IsPresetable,
		ContainerArt:  strings.TrimSpace(ci.ContainerArt),
	}
}

func contentItemToFile(ci domain.ContentItem) contentItemFileXML {
	return contentItemFileXML{
		Source:        ci.Source,
		SourceID:      ci.SourceID,
		Type:          ci.Type,
		Location:      ci.Location,
		SourceAccount: ci.SourceAccount,
		IsPresetable:  ci.IsPresetable,
		ItemName:      ci.Name,
		ContainerArt:  ci.ContainerArt,
	}
}

// SeedCollection imports a speaker's collection file into an account that
// has none yet. It holds the account lock, so a collection written by a
// concurrent mutation is kept and the import reports false.
func (s *Store) SeedCollection(account, file string, data []byte) (bool, error) {
	unlock := s.Lock(account)
	defer unlock()

	if _, err := os.Stat(s.collectionPath(account, file)); err == nil {
		return false, nil
	}
	if err := s.ImportCollection(account, file, data); err != nil {
		return false, err
	}
	return true, nil
}
