package codec

import (
	"github.com/MrSnakeDoc/soundgate/internal/domain"
)

// Resolve returns the configured source a content item plays from.
//
// A direct SourceID reference wins. Items stored before ids existed carry
// only (Source, SourceAccount), which must match (SourceKeyType,
// SourceKeyAccount); an empty account matches only an empty account.
func Resolve(sources []domain.ConfiguredSource, item domain.ContentItem) (domain.ConfiguredSource, error) {
	if item.SourceID != "" {
		for _, s := range sources {
			if s.ID == item.SourceID {
				return s, nil
			}
		}
		return domain.ConfiguredSource{}, domain.NewInvalidSourceError("id " + item.SourceID)
	}

	for _, s := range sources {
		if s.SourceKeyType == item.Source && s.SourceKeyAccount == item.SourceAccount {
			return s, nil
		}
	}
	ref := item.Source
	if item.SourceAccount != "" {
		ref += "/" + item.SourceAccount
	}
	return domain.ConfiguredSource{}, domain.NewInvalidSourceError(ref)
}
