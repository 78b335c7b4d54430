package domain

import "regexp"

// Providers is the fixed list of source providers the speakers know. A
// provider's protocol id is its 1-based position in this list.
var Providers = []string{
	"PANDORA",
	"INTERNET_RADIO",
	"OFF",
	"LOCAL",
	"AIRPLAY",
	"CURRATED_RADIO",
	"STORED_MUSIC",
	"SLAVE_SOURCE",
	"AUX",
	"RECOMMENDED_INTERNET_RADIO",
	"LOCAL_INTERNET_RADIO",
	"GLOBAL_INTERNET_RADIO",
	"HELLO",
	"DEEZER",
	"SPOTIFY",
	"IHEART",
	"SIRIUSXM",
	"GOOGLE_PLAY_MUSIC",
	"QQMUSIC",
	"AMAZON",
	"LOCAL_MUSIC",
	"WBMX",
	"SOUNDCLOUD",
	"TIDAL",
	"TUNEIN",
	"QPLAY",
	"JUKE",
	"BBC",
	"DARFM",
	"7DIGITAL",
	"SAAVN",
	"RDIO",
	"PHONE_MUSIC",
	"ALEXA",
	"RADIOPLAYER",
	"RADIO.COM",
	"RADIO_COM",
	"SIRIUSXM_EVEREST",
}

// ProviderID returns the protocol id of a provider type, or 0 if unknown.
func ProviderID(sourceKeyType string) int {
	for i, p := range Providers {
		if p == sourceKeyType {
			return i + 1
		}
	}
	return 0
}

// SpotifyProviderID is the provider id the speaker uses for OAuth refreshes.
const SpotifyProviderID = "15"

// DefaultDate stands in for timestamps the store never recorded.
const DefaultDate = "2012-09-19T12:43:00.000+00:00"

var (
	accountRe = regexp.MustCompile(`^[0-9A-Za-z_-]{1,64}$`)
	deviceRe  = regexp.MustCompile(`^[0-9A-Za-z]{1,32}$`)
)

// ValidAccountID reports whether s is usable as an account directory name.
func ValidAccountID(s string) bool { return accountRe.MatchString(s) }

// ValidDeviceID reports whether s is usable as a device directory name.
func ValidDeviceID(s string) bool { return deviceRe.MatchString(s) }
