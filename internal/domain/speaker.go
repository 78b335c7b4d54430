package domain

// Speaker is a registered device as seen by the allowlist and the
// management API.
type Speaker struct {
	AccountID string `json:"accountId"`
	DeviceID  string `json:"deviceId"`
	Name      string `json:"name"`
	IPAddress string `json:"ipAddress"`
	Type      string `json:"type"`
}

// SpeakerFromInfo builds a Speaker from a stored DeviceInfo.
func SpeakerFromInfo(account string, info *DeviceInfo) Speaker {
	return Speaker{
		AccountID: account,
		DeviceID:  info.DeviceID,
		Name:      info.Name,
		IPAddress: info.IPAddress,
		Type:      info.ProductCode,
	}
}
