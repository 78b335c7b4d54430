package domain

// DeviceInfo is the identity snapshot captured when a speaker registers.
// It is re-read from storage on every query.
type DeviceInfo struct {
	DeviceID            string
	Name                string
	ProductCode         string // "<type> <moduleType>", e.g. "SoundTouch 20 sm2"
	DeviceSerialNumber  string // SCM module serial
	ProductSerialNumber string // PackagedProduct serial
	FirmwareVersion     string
	IPAddress           string
}

// ConfiguredSource is a linked music-provider account usable by an account's
// speakers. (SourceKeyType, SourceKeyAccount) identifies the provider and the
// provider-side account.
type ConfiguredSource struct {
	ID               string
	DisplayName      string
	Secret           string
	SecretType       string
	SourceKeyType    string
	SourceKeyAccount string
}

// ContentItem is anything playable referenced from a preset or a recent.
//
// Either SourceID points at a ConfiguredSource directly, or the
// (Source, SourceAccount) pair is used to find one.
type ContentItem struct {
	ID            string
	Name          string
	Source        string // provider type, e.g. TUNEIN
	SourceAccount string
	SourceID      string
	Type          string // contentItemType, e.g. stationurl
	Location      string
	IsPresetable  string
	ContainerArt  string
}

// Preset occupies a fixed button slot. ID holds the 1-based slot number.
// CreatedOn and UpdatedOn are unix seconds stored as strings.
type Preset struct {
	ContentItem
	CreatedOn string
	UpdatedOn string
}

// Recent is a recently played item. UTCTime is unix seconds.
type Recent struct {
	ContentItem
	DeviceID string
	UTCTime  string
}

// MaxRecents caps the account-wide recent list.
const MaxRecents = 10
