// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"fmt"
	"testing"

	"github.com/MrSnakeDoc/soundgate/internal/domain"
	"github.com/MrSnakeDoc/soundgate/internal/logger"
	"github.com/MrSnakeDoc/soundgate/internal/store/filestore"
)

// DeviceInfoXML returns a speaker DeviceInfo.xml document.
func DeviceInfoXML(deviceID, name, ip string) []byte {
	return []byte(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" ?>
<info deviceID="%s">
    <name>%s</name>
    <type>SoundTouch 20</type>
    <margeAccountUUID>12345</margeAccountUUID>
    <components>
        <component>
            <componentCategory>SCM</componentCategory>
            <softwareVersion>27.0.6.46330.5043500 epdbuild.trunk.hepdswbld04.2022-08-04T11:20:29</softwareVersion>
            <serialNumber>I6332527703739342000020</serialNumber>
        </component>
        <component>
            <componentCategory>PackagedProduct</componentCategory>
            <softwareVersion>27.0.6.46330.5043500 epdbuild.trunk.hepdswbld04.2022-08-04T11:20:29</softwareVersion>
            <serialNumber>069231P63364828AE</serialNumber>
        </component>
    </components>
    <margeURL>https://streaming.bose.com</margeURL>
    <networkInfo type="SCM">
        <macAddress>%s</macAddress>
        <ipAddress>%s</ipAddress>
    </networkInfo>
    <moduleType>sm2</moduleType>
</info>
`, deviceID, name, deviceID, ip))
}

// NewStore returns a filestore rooted in a temp dir.
func NewStore(t *testing.T) *filestore.Store {
	t.Helper()
	s, err := filestore.New(t.TempDir(), logger.Nop())
	if err != nil {
		t.Fatalf("filestore.New: %v", err)
	}
	return s
}

// SeedDevice registers device under account with the given IP.
func SeedDevice(t *testing.T, s *filestore.Store, account, device, ip string) {
	t.Helper()
	if _, err := s.AddDevice(account, device, DeviceInfoXML(device, "Kitchen", ip)); err != nil {
		t.Fatalf("AddDevice(%s, %s): %v", account, device, err)
	}
}

// SeedSources stores configured sources for account.
func SeedSources(t *testing.T, s *filestore.Store, account string, sources ...domain.ConfiguredSource) {
	t.Helper()
	if err := s.SaveConfiguredSources(account, sources); err != nil {
		t.Fatalf("SaveConfiguredSources: %v", err)
	}
}

// EmptyPresets returns n placeholder presets in slots 1..n.
func EmptyPresets(n int, source string) []domain.Preset {
	presets := make([]domain.Preset, 0, n)
	for i := 1; i <= n; i++ {
		presets = append(presets, domain.Preset{
			ContentItem: domain.ContentItem{
				ID:       fmt.Sprint(i),
				Name:     fmt.Sprintf("Station %d", i),
				Source:   source,
				Type:     "stationurl",
				Location: fmt.Sprintf("s%d", 1000+i),
			},
			CreatedOn: "1700000000",
			UpdatedOn: "1700000000",
		})
	}
	return presets
}
