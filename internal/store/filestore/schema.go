package filestore

import "encoding/xml"

// On-disk shapes. They mirror the files a speaker keeps in its own
// persistence directory so an imported speaker's files can be dropped in as-is.

type deviceInfoXML struct {
	XMLName     xml.Name         `xml:"info"`
	DeviceID    string           `xml:"deviceID,attr"`
	Name        string           `xml:"name"`
	Type        string           `xml:"type"`
	ModuleType  string           `xml:"moduleType"`
	Components  []componentXML   `xml:"components>component"`
	NetworkInfo []networkInfoXML `xml:"networkInfo"`
}

type componentXML struct {
	Category        string `xml:"componentCategory"`
	SoftwareVersion string `xml:"softwareVersion"`
	SerialNumber    string `xml:"serialNumber"`
}

type networkInfoXML struct {
	Type      string `xml:"type,attr"`
	IPAddress string `xml:"ipAddress"`
}

type presetsFileXML struct {
	XMLName xml.Name        `xml:"presets"`
	Presets []presetFileXML `xml:"preset"`
}

type presetFileXML struct {
	ID          string             `xml:"id,attr"`
	CreatedOn   string             `xml:"createdOn,attr,omitempty"`
	UpdatedOn   string             `xml:"updatedOn,attr,omitempty"`
	ContentItem contentItemFileXML `xml:"ContentItem"`
}

type recentsFileXML struct {
	XMLName xml.Name        `xml:"recents"`
	Recents []recentFileXML `xml:"recent"`
}

type recentFileXML struct {
	DeviceID    string             `xml:"deviceID,attr"`
	UTCTime     string             `xml:"utcTime,attr"`
	ID          string             `xml:"id,attr"`
	ContentItem contentItemFileXML `xml:"contentItem"`
}

type contentItemFileXML struct {
	Source        string `xml:"source,attr,omitempty"`
	SourceID      string `xml:"sourceID,attr,omitempty"`
	Type          string `xml:"type,attr"`
	Location      string `xml:"location,attr"`
	SourceAccount string `xml:"sourceAccount,attr,omitempty"`
	IsPresetable  string `xml:"isPresetable,attr,omitempty"`
	ItemName      string `xml:"itemName"`
	ContainerArt  string `xml:"containerArt,omitempty"`
}

type sourcesFileXML struct {
	XMLName xml.Name        `xml:"sources"`
	Sources []sourceFileXML `xml:"source"`
}

type sourceFileXML struct {
	DisplayName string       `xml:"displayName,attr"`
	ID          string       `xml:"id,attr,omitempty"`
	Secret      string       `xml:"secret,attr"`
	SecretType  string       `xml:"secretType,attr"`
	SourceKey   sourceKeyXML `xml:"sourceKey"`
}

type sourceKeyXML struct {
	Type    string `xml:"type,attr"`
	Account string `xml:"account,attr"`
}
