package codec

import "encoding/xml"

// Field order in every type below is the order the vendor emits. Do not
// reorder.

type Credential struct {
	Type  string `xml:"type,attr"`
	Value string `xml:",chardata"`
}

type Source struct {
	XMLName          xml.Name   `xml:"source"`
	ID               string     `xml:"id,attr"`
	Type             string     `xml:"type,attr"`
	CreatedOn        string     `xml:"createdOn"`
	Credential       Credential `xml:"credential"`
	Name             string     `xml:"name,omitempty"`
	SourceProviderID int        `xml:"sourceproviderid"`
	SourceName       string     `xml:"sourcename,omitempty"`
	SourceSettings   struct{}   `xml:"sourcesettings"`
	UpdatedOn        string     `xml:"updatedOn"`
	Username         string     `xml:"username,omitempty"`
}

type Sources struct {
	XMLName xml.Name `xml:"sources"`
	Sources []Source `xml:"source"`
}

type Preset struct {
	XMLName         xml.Name `xml:"preset"`
	ButtonNumber    string   `xml:"buttonNumber,attr"`
	ContainerArt    string   `xml:"containerArt,omitempty"`
	ContentItemType string   `xml:"contentItemType,omitempty"`
	CreatedOn       string   `xml:"createdOn"`
	Location        string   `xml:"location"`
	Name            string   `xml:"name"`
	Source          Source   `xml:"source"`
	UpdatedOn       string   `xml:"updatedOn"`
}

type Presets struct {
	XMLName xml.Name `xml:"presets"`
	Presets []Preset `xml:"preset"`
}

type Recent struct {
	XMLName         xml.Name `xml:"recent"`
	ID              string   `xml:"id,attr"`
	ContentItemType string   `xml:"contentItemType,omitempty"`
	CreatedOn       string   `xml:"createdOn"`
	LastPlayedAt    string   `xml:"lastplayedat"`
	Location        string   `xml:"location"`
	Name            string   `xml:"name"`
	Source          Source   `xml:"source"`
	UpdatedOn       string   `xml:"updatedOn"`
}

type Recents struct {
	XMLName xml.Name `xml:"recents"`
	Recents []Recent `xml:"recent"`
}

type AttachedProduct struct {
	ProductCode  string   `xml:"product_code,attr"`
	Components   struct{} `xml:"components"`
	ProductLabel string   `xml:"productlabel"`
	SerialNumber string   `xml:"serialnumber,omitempty"`
}

type Device struct {
	XMLName         xml.Name        `xml:"device"`
	DeviceID        string          `xml:"deviceid,attr"`
	AttachedProduct AttachedProduct `xml:"attachedProduct"`
	CreatedOn       string          `xml:"createdOn"`
	FirmwareVersion string          `xml:"firmwareVersion,omitempty"`
	IPAddress       string          `xml:"ipaddress,omitempty"`
	Name            string          `xml:"name"`
	Presets         Presets         `xml:"presets"`
	Recents         Recents         `xml:"recents"`
	SerialNumber    string          `xml:"serialnumber,omitempty"`
	UpdatedOn       string          `xml:"updatedOn"`
}

type Devices struct {
	Devices []Device `xml:"device"`
}

type ProviderSetting struct {
	BoseID     string `xml:"boseId"`
	KeyName    string `xml:"keyName"`
	Value      string `xml:"value"`
	ProviderID string `xml:"providerId"`
}

type ProviderSettings struct {
	XMLName  xml.Name          `xml:"providerSettings"`
	Settings []ProviderSetting `xml:"providerSetting"`
}

type Account struct {
	XMLName           xml.Name         `xml:"account"`
	ID                string           `xml:"id,attr"`
	AccountStatus     string           `xml:"accountStatus"`
	Devices           Devices          `xml:"devices"`
	Mode              string           `xml:"mode"`
	PreferredLanguage string           `xml:"preferredLanguage"`
	ProviderSettings  ProviderSettings `xml:"providerSettings"`
	Sources           Sources          `xml:"sources"`
}

type SoftwareUpdate struct {
	XMLName  xml.Name `xml:"software_update"`
	Location string   `xml:"softwareUpdateLocation"`
}

type SourceProvider struct {
	ID        int    `xml:"id,attr"`
	CreatedOn string `xml:"createdOn"`
	Name      string `xml:"name"`
	UpdatedOn string `xml:"updatedOn"`
}

type SourceProviders struct {
	XMLName   xml.Name         `xml:"sourceProviders"`
	Providers []SourceProvider `xml:"sourceprovider"`
}

// DeviceAdded answers a device registration.
type DeviceAdded struct {
	XMLName   xml.Name `xml:"device"`
	DeviceID  string   `xml:"deviceid,attr"`
	CreatedOn string   `xml:"createdOn"`
	IPAddress string   `xml:"ipaddress"`
	Name      string   `xml:"name"`
	UpdatedOn string   `xml:"updatedOn"`
}

type BearerToken struct {
	XMLName xml.Name `xml:"bearertoken"`
	Value   string   `xml:"value,attr"`
}

type Customer struct {
	XMLName        xml.Name `xml:"customer"`
	AccountID      string   `xml:"accountID"`
	Email          string   `xml:"email"`
	FirstName      string   `xml:"firstName"`
	LastName       string   `xml:"lastName"`
	CountryCode    string   `xml:"countryCode"`
	LanguageCode   string   `xml:"languageCode"`
	Street         string   `xml:"street"`
	City           string   `xml:"city"`
	PostalCode     string   `xml:"postalCode"`
	State          string   `xml:"state"`
	Phone          string   `xml:"phone"`
	MarketingOptIn string   `xml:"marketingOptIn"`
}

type DeviceSetting struct {
	Name  string `xml:"name"`
	Value string `xml:"value"`
}

type DeviceSettings struct {
	XMLName  xml.Name        `xml:"deviceSettings"`
	Settings []DeviceSetting `xml:"deviceSetting"`
}

type EmailAddress struct {
	XMLName xml.Name `xml:"emailAddress"`
	Value   string   `xml:",chardata"`
}

// Error is the body of a 4xx/5xx protocol response.
type Error struct {
	XMLName xml.Name `xml:"error"`
	Code    string   `xml:"code"`
	Message string   `xml:"message"`
}

// contentPayload is the inbound body of preset and recent writes. The root
// element name is not checked.
type contentPayload struct {
	Name            string `xml:"name"`
	SourceID        string `xml:"sourceid"`
	Location        string `xml:"location"`
	ContentItemType string `xml:"contentItemType"`
	ContainerArt    string `xml:"containerArt"`
	LastPlayedAt    string `xml:"lastplayedat"`
}

type deviceRegistration struct {
	DeviceID string `xml:"deviceid,attr"`
	Name     string `xml:"name"`
}
