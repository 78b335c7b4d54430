package redis

const (
	// KeyExchangeStream is the capped stream holding exchange entries.
	KeyExchangeStream = "soundgate:exchanges"
	// FieldEntry is the stream field carrying the JSON-encoded entry.
	FieldEntry = "entry"
)

// DefaultStreamMaxLen caps the exchange stream (approximate trimming).
const DefaultStreamMaxLen = 10000
